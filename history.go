package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golang/snappy"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

// History records finished runs into a SQL database for longitudinal
// comparison, next to (never instead of) the CSV time log. The URL scheme
// picks the driver: libsql:// for hosted databases, postgres:// for a team
// database, anything else is a local sqlite file.
type History struct {
	db      *sql.DB
	dialect string
}

func OpenHistory(url string) (*History, error) {
	driver, dialect := historyDriver(url)
	db, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %v: %w", url, err)
	}
	return &History{db: db, dialect: dialect}, nil
}

func historyDriver(url string) (string, string) {
	switch {
	case strings.HasPrefix(url, "libsql://"):
		return "libsql", dialectSQLite
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "pgx", dialectPostgres
	default:
		return "sqlite3", dialectSQLite
	}
}

func (h *History) Init() error {
	blob := "BLOB"
	if h.dialect == dialectPostgres {
		blob = "BYTEA"
	}
	statements := []string{
		"CREATE TABLE IF NOT EXISTS parameters (run_id TEXT, name TEXT, value TEXT, PRIMARY KEY (run_id, name))",
		"CREATE TABLE IF NOT EXISTS measurements (run_id TEXT, seq INTEGER, name TEXT, seconds REAL, PRIMARY KEY (run_id, seq))",
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS artifacts (run_id TEXT, filename TEXT, content %v, PRIMARY KEY (run_id, filename))", blob),
	}
	for _, statement := range statements {
		if _, err := h.db.Exec(statement); err != nil {
			return fmt.Errorf("failed to initialize history schema: %w", err)
		}
	}
	return nil
}

func (h *History) RecordParameters(runID string, meta map[string]any) error {
	parameters := make([]any, 0, (len(meta)+1)*3)
	parameters = append(parameters, runID, "time", time.Now().Format("2006-01-02 15:04:05"))
	for key, value := range meta {
		parameters = append(parameters, runID, key, fmt.Sprintf("%v", value))
	}
	insert := fmt.Sprintf(
		"INSERT INTO parameters VALUES %v ON CONFLICT DO NOTHING",
		h.valueGroups(len(parameters)/3, 3),
	)
	if _, err := h.db.Exec(insert, parameters...); err != nil {
		return fmt.Errorf("failed to record run parameters: %w", err)
	}
	Logger.Infof("recorded history parameters for run %v: %v", runID, meta)
	return nil
}

func (h *History) RecordRun(runID string, entries []TimingEntry) error {
	tx, err := h.db.Begin()
	if err != nil {
		return err
	}
	insert := fmt.Sprintf("INSERT INTO measurements VALUES (%v)", h.placeholders(4, 0))
	for i, entry := range entries {
		if _, err := tx.Exec(insert, runID, i, entry.Label, entry.Seconds); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record measurement %v: %w", entry.Label, err)
		}
	}
	return tx.Commit()
}

// UploadTimeLog stores the finished CSV time log as a snappy-compressed
// artifact next to the run's measurements.
func (h *History) UploadTimeLog(runID string, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	compressed := snappy.Encode(nil, data)
	insert := fmt.Sprintf("INSERT INTO artifacts VALUES (%v)", h.placeholders(3, 0))
	if _, err := h.db.Exec(insert, runID, filepath.Base(path), compressed); err != nil {
		return fmt.Errorf("failed to upload time log %v: %w", path, err)
	}
	Logger.Infof("uploaded time log %v to history (%v -> %v bytes)", path, len(data), len(compressed))
	return nil
}

func (h *History) Close() error {
	return h.db.Close()
}

func (h *History) placeholders(n int, offset int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "?"
		if h.dialect == dialectPostgres {
			parts[i] = fmt.Sprintf("$%v", offset+i+1)
		}
	}
	return strings.Join(parts, ", ")
}

func (h *History) valueGroups(rows int, width int) string {
	groups := make([]string, rows)
	for i := range groups {
		groups[i] = "(" + h.placeholders(width, i*width) + ")"
	}
	return strings.Join(groups, ", ")
}
