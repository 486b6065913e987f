package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTimeLogWriteCSV(t *testing.T) {
	log := &TimeLog{}
	log.Append("power-1-abcd", "CreateTempView store_sales", 0.125)
	log.Append("power-1-abcd", "Load Time", 1.5)
	log.Append("power-1-abcd", "query1", 300)
	require.Equal(t, 3, log.Len())

	path := filepath.Join(t.TempDir(), "time.csv")
	require.Nil(t, log.WriteCSV(path))

	records := readCSV(t, path)
	require.Equal(t, [][]string{
		{"application_id", "query", "time/s"},
		{"power-1-abcd", "CreateTempView store_sales", "0.125"},
		{"power-1-abcd", "Load Time", "1.5"},
		{"power-1-abcd", "query1", "300"},
	}, records)
}

func TestTimeLogWriteCSVEmpty(t *testing.T) {
	log := &TimeLog{}
	path := filepath.Join(t.TempDir(), "time.csv")
	require.Nil(t, log.WriteCSV(path))

	records := readCSV(t, path)
	require.Equal(t, [][]string{{"application_id", "query", "time/s"}}, records)
}

func TestTimeLogWriteCSVBadPath(t *testing.T) {
	log := &TimeLog{}
	log.Append("power-1-abcd", "query1", 1)
	err := log.WriteCSV(filepath.Join(t.TempDir(), "missing", "time.csv"))
	require.ErrorContains(t, err, "failed to create time log")
}

func TestTimeLogPreservesOrder(t *testing.T) {
	log := &TimeLog{}
	labels := []string{"query3", "query1", "query2", "query1"}
	for _, label := range labels {
		log.Append("power-1-abcd", label, 0)
	}
	entries := log.Entries()
	require.Len(t, entries, len(labels))
	for i, entry := range entries {
		require.Equal(t, labels[i], entry.Label)
	}
}
