package main

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type RunState int

const (
	StateInit RunState = iota
	StateLoadingTables
	StateExecutingQueries
	StateFinalizing
	StateDone
	StateAborted
)

func (s RunState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateLoadingTables:
		return "LOADING_TABLES"
	case StateExecutingQueries:
		return "EXECUTING_QUERIES"
	case StateFinalizing:
		return "FINALIZING"
	case StateDone:
		return "DONE"
	case StateAborted:
		return "ABORTED"
	}
	return fmt.Sprintf("RunState(%v)", int(s))
}

type RunConfig struct {
	InputLocation  string
	TimeLogPath    string
	OutputLocation string
	OutputFormat   string
}

// PowerRun executes one power run: every catalog table is registered
// first, then every query unit runs strictly in order, one at a time.
// The session is injected and stays owned by the caller; Execute never
// closes it. Any error aborts the run and the time log is not written.
type PowerRun struct {
	session Session
	catalog []string
	config  RunConfig
	state   RunState
}

func NewPowerRun(session Session, catalog []string, config RunConfig) *PowerRun {
	if config.OutputFormat == "" {
		config.OutputFormat = FormatSQLite
	}
	return &PowerRun{session: session, catalog: catalog, config: config}
}

func (r *PowerRun) State() RunState {
	return r.state
}

func (r *PowerRun) Execute(ctx context.Context, queries []Query) (*TimeLog, error) {
	if r.state != StateInit {
		return nil, fmt.Errorf("power run already executed (state %v)", r.state)
	}
	if r.config.OutputLocation != "" {
		if err := checkFormat(r.config.OutputFormat); err != nil {
			return nil, r.abort(err)
		}
	}

	totalStart := time.Now()
	sessionID := r.session.ID()
	timeLog := &TimeLog{}
	Logger.Infof("starting power run %v: %v tables, %v queries", sessionID, len(r.catalog), len(queries))

	r.state = StateLoadingTables
	loadStart := time.Now()
	for _, table := range r.catalog {
		location := joinLocation(r.config.InputLocation, table)
		start := time.Now()
		if err := r.session.CreateTempView(ctx, table, location); err != nil {
			return nil, r.abort(fmt.Errorf("failed to create temp view %v from %v: %w", table, location, err))
		}
		elapsed := time.Since(start)
		timeLog.Append(sessionID, "CreateTempView "+table, elapsed.Seconds())
		Logger.Infof("created temp view %v from %v in %v", table, location, elapsed)
	}
	timeLog.Append(sessionID, "Load Time", time.Since(loadStart).Seconds())

	r.state = StateExecutingQueries
	powerStart := time.Now()
	for i, query := range queries {
		r.session.Tag(query.Name)
		Logger.Infof("running query %v/%v: %v", i+1, len(queries), query.Name)
		start := time.Now()
		rows, err := r.runQuery(ctx, query)
		if err != nil {
			return nil, r.abort(fmt.Errorf("failed to run query %v: %w", query.Name, err))
		}
		elapsed := time.Since(start)
		timeLog.Append(sessionID, query.Name, elapsed.Seconds())
		Logger.Infof("query %v finished in %v (%v rows)", query.Name, elapsed, rows)
	}

	r.state = StateFinalizing
	timeLog.Append(sessionID, "Power Test Time", time.Since(powerStart).Seconds())
	timeLog.Append(sessionID, "Total Time", time.Since(totalStart).Seconds())
	if err := timeLog.WriteCSV(r.config.TimeLogPath); err != nil {
		return nil, r.abort(err)
	}
	r.state = StateDone
	Logger.Infof("power run %v finished, time log written to %v", sessionID, r.config.TimeLogPath)
	return timeLog, nil
}

// runQuery submits one unit and forces full evaluation: either the result
// set is materialized to the output location, or the frame is drained so
// lazy engines cannot skip the work.
func (r *PowerRun) runQuery(ctx context.Context, query Query) (int64, error) {
	frame, err := r.session.Query(ctx, query.Text)
	if err != nil {
		return 0, err
	}
	if r.config.OutputLocation == "" {
		return drainFrame(frame)
	}
	return writeFrame(frame, joinLocation(r.config.OutputLocation, query.Name), r.config.OutputFormat)
}

func (r *PowerRun) abort(err error) error {
	r.state = StateAborted
	return err
}

func drainFrame(frame Frame) (int64, error) {
	var rows int64
	for frame.Next() {
		rows++
	}
	err := frame.Err()
	if closeErr := frame.Close(); err == nil {
		err = closeErr
	}
	return rows, err
}

// joinLocation joins with a plain separator: locations may be URLs
// (s3://...) that filepath.Join would mangle.
func joinLocation(prefix string, name string) string {
	return strings.TrimRight(prefix, "/") + "/" + name
}
