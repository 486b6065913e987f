package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteSession runs the workload against an embedded sqlite engine.
// Registered tables are materialized into session-scoped temp tables from
// the partition files at each table's location. Temp tables and attached
// databases are connection state, so the pool is pinned to a single
// connection for the session's whole lifetime.
type SQLiteSession struct {
	id       string
	db       *sql.DB
	conn     *sql.Conn
	resolver *PartitionResolver
	label    string
}

func OpenSQLiteSession(ctx context.Context, config Config) (*SQLiteSession, error) {
	dsn := ":memory:"
	if config.Workspace != "" {
		dsn = config.Workspace
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session workspace %v: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to pin session connection: %w", err)
	}
	id := fmt.Sprintf("power-%v-%v", time.Now().Unix(), uuid.New().String()[:8])
	Logger.Infof("opened sqlite session %v at %v", id, dsn)
	return &SQLiteSession{id: id, db: db, conn: conn, resolver: NewPartitionResolver(config)}, nil
}

func (s *SQLiteSession) ID() string {
	return s.id
}

// CreateTempView loads every partition file at location into one temp
// table named after the table. Partitions are attached one at a time and
// detached right after their rows are copied, so the engine's attached
// database limit never binds regardless of catalog size.
func (s *SQLiteSession) CreateTempView(ctx context.Context, table string, location string) error {
	partitions, err := s.resolver.Resolve(ctx, location)
	if err != nil {
		return err
	}
	quoted := quoteIdent(table)
	if _, err := s.conn.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS temp.%v", quoted)); err != nil {
		return fmt.Errorf("failed to drop stale view of %v: %w", table, err)
	}
	for i, partition := range partitions {
		if err := s.loadPartition(ctx, quoted, partition, i == 0); err != nil {
			return fmt.Errorf("failed to load partition %v of table %v: %w", partition, table, err)
		}
	}
	return nil
}

func (s *SQLiteSession) loadPartition(ctx context.Context, quoted string, path string, first bool) error {
	if _, err := s.conn.ExecContext(ctx, "ATTACH DATABASE ? AS part", path); err != nil {
		return err
	}
	stmt := fmt.Sprintf("INSERT INTO temp.%v SELECT * FROM part.%v", quoted, quoted)
	if first {
		stmt = fmt.Sprintf("CREATE TEMP TABLE %v AS SELECT * FROM part.%v", quoted, quoted)
	}
	_, execErr := s.conn.ExecContext(ctx, stmt)
	// detach even on failure, the scratch alias must stay free
	if _, err := s.conn.ExecContext(ctx, "DETACH DATABASE part"); err != nil && execErr == nil {
		execErr = err
	}
	return execErr
}

func (s *SQLiteSession) Query(ctx context.Context, query string) (Frame, error) {
	rows, err := s.conn.QueryContext(ctx, trimQueryText(query))
	if err != nil {
		return nil, err
	}
	columns, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, err
	}
	return &sqlFrame{rows: rows, columns: columns}, nil
}

func (s *SQLiteSession) Tag(label string) {
	s.label = label
	Logger.Debugf("session %v tagged %v", s.id, label)
}

func (s *SQLiteSession) Close() error {
	connErr := s.conn.Close()
	dbErr := s.db.Close()
	if connErr != nil {
		return connErr
	}
	return dbErr
}

// trimQueryText strips the comment-only lines around a unit's statement.
// sqlite prepares one statement at a time, and text after the terminating
// semicolon would be handed back as an unconsumed tail.
func trimQueryText(text string) string {
	lines := strings.Split(text, "\n")
	start, end := 0, len(lines)
	for start < end && isCommentLine(lines[start]) {
		start++
	}
	for end > start && isCommentLine(lines[end-1]) {
		end--
	}
	return strings.TrimSpace(strings.Join(lines[start:end], "\n"))
}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "--")
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

type sqlFrame struct {
	rows    *sql.Rows
	columns []string
}

func (f *sqlFrame) Columns() []string {
	return f.columns
}

func (f *sqlFrame) Next() bool {
	return f.rows.Next()
}

func (f *sqlFrame) Scan() ([]any, error) {
	values := make([]any, len(f.columns))
	pointers := make([]any, len(f.columns))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := f.rows.Scan(pointers...); err != nil {
		return nil, err
	}
	// the driver reuses []byte buffers between Next calls
	for i, value := range values {
		if data, ok := value.([]byte); ok {
			values[i] = string(data)
		}
	}
	return values, nil
}

func (f *sqlFrame) Err() error {
	return f.rows.Err()
}

func (f *sqlFrame) Close() error {
	return f.rows.Close()
}
