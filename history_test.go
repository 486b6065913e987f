package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/snappy"
	"github.com/stretchr/testify/require"
)

func openTestHistory(t *testing.T) *History {
	history, err := OpenHistory(filepath.Join(t.TempDir(), "history.db"))
	require.Nil(t, err)
	t.Cleanup(func() { history.Close() })
	require.Nil(t, history.Init())
	return history
}

func TestHistoryDriverSelection(t *testing.T) {
	driver, dialect := historyDriver("libsql://runs-org.turso.io?authToken=x")
	require.Equal(t, "libsql", driver)
	require.Equal(t, dialectSQLite, dialect)

	driver, dialect = historyDriver("postgres://user@host/runs")
	require.Equal(t, "pgx", driver)
	require.Equal(t, dialectPostgres, dialect)

	driver, dialect = historyDriver("postgresql://user@host/runs")
	require.Equal(t, "pgx", driver)
	require.Equal(t, dialectPostgres, dialect)

	driver, dialect = historyDriver("/var/lib/powerbench/history.db")
	require.Equal(t, "sqlite3", driver)
	require.Equal(t, dialectSQLite, dialect)
}

func TestHistoryRecordParameters(t *testing.T) {
	history := openTestHistory(t)
	meta := map[string]any{"hostname": "bench-01", "tables": 25, "queries": 103}
	require.Nil(t, history.RecordParameters("power-1-abcd", meta))

	var count int64
	require.Nil(t, history.db.QueryRow("select count(*) from parameters where run_id = ?", "power-1-abcd").Scan(&count))
	require.Equal(t, int64(4), count)

	var tables string
	require.Nil(t, history.db.QueryRow("select value from parameters where run_id = ? and name = ?", "power-1-abcd", "tables").Scan(&tables))
	require.Equal(t, "25", tables)

	// recording the same run twice must not fail or duplicate
	require.Nil(t, history.RecordParameters("power-1-abcd", meta))
	require.Nil(t, history.db.QueryRow("select count(*) from parameters where run_id = ?", "power-1-abcd").Scan(&count))
	require.Equal(t, int64(4), count)
}

func TestHistoryRecordRun(t *testing.T) {
	history := openTestHistory(t)
	entries := []TimingEntry{
		{SessionID: "power-1-abcd", Label: "CreateTempView store_sales", Seconds: 0.5},
		{SessionID: "power-1-abcd", Label: "query1", Seconds: 1.25},
		{SessionID: "power-1-abcd", Label: "Total Time", Seconds: 2},
	}
	require.Nil(t, history.RecordRun("power-1-abcd", entries))

	rows, err := history.db.Query("select seq, name, seconds from measurements where run_id = ? order by seq", "power-1-abcd")
	require.Nil(t, err)
	defer rows.Close()

	for i, entry := range entries {
		require.True(t, rows.Next())
		var seq int64
		var name string
		var seconds float64
		require.Nil(t, rows.Scan(&seq, &name, &seconds))
		require.Equal(t, int64(i), seq)
		require.Equal(t, entry.Label, name)
		require.Equal(t, entry.Seconds, seconds)
	}
	require.False(t, rows.Next())
	require.Nil(t, rows.Err())
}

func TestHistoryUploadTimeLog(t *testing.T) {
	history := openTestHistory(t)

	path := filepath.Join(t.TempDir(), "time.csv")
	content := "application_id,query,time/s\npower-1-abcd,query1,1.5\n"
	require.Nil(t, os.WriteFile(path, []byte(content), 0o644))
	require.Nil(t, history.UploadTimeLog("power-1-abcd", path))

	var stored []byte
	require.Nil(t, history.db.QueryRow(
		"select content from artifacts where run_id = ? and filename = ?",
		"power-1-abcd", "time.csv",
	).Scan(&stored))

	decoded, err := snappy.Decode(nil, stored)
	require.Nil(t, err)
	require.Equal(t, content, string(decoded))
}

func TestHistoryUploadMissingTimeLog(t *testing.T) {
	history := openTestHistory(t)
	err := history.UploadTimeLog("power-1-abcd", filepath.Join(t.TempDir(), "missing.csv"))
	require.NotNil(t, err)
}
