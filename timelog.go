package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

type TimingEntry struct {
	SessionID string
	Label     string
	Seconds   float64
}

// TimeLog is the append-only timing record of one run: insertion order is
// execution order.
type TimeLog struct {
	entries []TimingEntry
}

func (l *TimeLog) Append(sessionID string, label string, seconds float64) {
	l.entries = append(l.entries, TimingEntry{SessionID: sessionID, Label: label, Seconds: seconds})
}

func (l *TimeLog) Entries() []TimingEntry {
	return l.entries
}

func (l *TimeLog) Len() int {
	return len(l.entries)
}

// WriteCSV serializes the accumulated entries to a local file, one row per
// entry in accumulation order. Called exactly once, at run completion.
func (l *TimeLog) WriteCSV(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create time log %v: %w", path, err)
	}
	writer := csv.NewWriter(file)
	rows := make([][]string, 0, len(l.entries)+1)
	rows = append(rows, []string{"application_id", "query", "time/s"})
	for _, entry := range l.entries {
		rows = append(rows, []string{entry.SessionID, entry.Label, strconv.FormatFloat(entry.Seconds, 'g', -1, 64)})
	}
	if err := writer.WriteAll(rows); err != nil {
		file.Close()
		return fmt.Errorf("failed to write time log %v: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close time log %v: %w", path, err)
	}
	return nil
}
