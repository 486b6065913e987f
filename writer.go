package main

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	FormatSQLite = "sqlite"
	FormatCSV    = "csv"
	FormatJSONL  = "jsonl"
)

func checkFormat(format string) error {
	switch format {
	case FormatSQLite, FormatCSV, FormatJSONL:
		return nil
	}
	return fmt.Errorf("unknown output format %v (supported: %v, %v, %v)", format, FormatSQLite, FormatCSV, FormatJSONL)
}

// writeFrame materializes a frame into dir in the requested format,
// replacing any prior contents of dir.
func writeFrame(frame Frame, dir string, format string) (int64, error) {
	rows, err := materialize(frame, dir, format)
	if closeErr := frame.Close(); err == nil {
		err = closeErr
	}
	return rows, err
}

func materialize(frame Frame, dir string, format string) (int64, error) {
	if err := checkFormat(format); err != nil {
		return 0, err
	}
	if err := os.RemoveAll(dir); err != nil {
		return 0, fmt.Errorf("failed to clear output %v: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output %v: %w", dir, err)
	}
	if len(frame.Columns()) == 0 {
		// statements with no result shape still run to completion and
		// leave an empty output directory
		var rows int64
		for frame.Next() {
			rows++
		}
		return rows, frame.Err()
	}
	switch format {
	case FormatCSV:
		return writeCSVPart(frame, filepath.Join(dir, "part-00000.csv"))
	case FormatJSONL:
		return writeJSONLPart(frame, filepath.Join(dir, "part-00000.jsonl"))
	default:
		return writeSQLitePart(frame, filepath.Join(dir, "part-00000"+partitionSuffix))
	}
}

func writeCSVPart(frame Frame, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	columns := frame.Columns()
	writer := csv.NewWriter(file)
	if err := writer.Write(columns); err != nil {
		file.Close()
		return 0, err
	}
	var rows int64
	record := make([]string, len(columns))
	for frame.Next() {
		values, err := frame.Scan()
		if err != nil {
			file.Close()
			return rows, err
		}
		for i, value := range values {
			record[i] = formatValue(value)
		}
		if err := writer.Write(record); err != nil {
			file.Close()
			return rows, err
		}
		rows++
	}
	if err := frame.Err(); err != nil {
		file.Close()
		return rows, err
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return rows, err
	}
	return rows, file.Close()
}

func writeJSONLPart(frame Frame, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	columns := frame.Columns()
	encoder := json.NewEncoder(file)
	var rows int64
	for frame.Next() {
		values, err := frame.Scan()
		if err != nil {
			file.Close()
			return rows, err
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		if err := encoder.Encode(row); err != nil {
			file.Close()
			return rows, err
		}
		rows++
	}
	if err := frame.Err(); err != nil {
		file.Close()
		return rows, err
	}
	return rows, file.Close()
}

func writeSQLitePart(frame Frame, path string) (int64, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	columns := frame.Columns()
	quoted := make([]string, len(columns))
	for i, column := range columns {
		quoted[i] = quoteIdent(column)
	}
	if _, err := db.Exec(fmt.Sprintf("CREATE TABLE results (%v)", strings.Join(quoted, ", "))); err != nil {
		return 0, err
	}
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	marks := make([]string, len(columns))
	for i := range marks {
		marks[i] = "?"
	}
	placeholders := strings.Join(marks, ", ")
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT INTO results VALUES (%v)", placeholders))
	if err != nil {
		return 0, err
	}
	var rows int64
	for frame.Next() {
		values, err := frame.Scan()
		if err != nil {
			return rows, err
		}
		if _, err := stmt.Exec(values...); err != nil {
			return rows, err
		}
		rows++
	}
	if err := frame.Err(); err != nil {
		return rows, err
	}
	if err := stmt.Close(); err != nil {
		return rows, err
	}
	return rows, tx.Commit()
}

func formatValue(value any) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%v", value)
}
