package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSampleDatasetLoad(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "sf0")
	sample := &SampleDataset{Rows: 20, Partitions: 2, Seed: 1}
	require.Nil(t, sample.Load(prefix))

	for _, table := range sample.Tables() {
		partitions, err := localPartitions(filepath.Join(prefix, table))
		require.Nil(t, err)
		require.Len(t, partitions, 2)
	}

	session := openTestSession(t)
	require.Nil(t, session.CreateTempView(context.Background(), "item", filepath.Join(prefix, "item")))
	require.Equal(t, int64(40), scanSingleInt(t, session, "select count(*) from item;"))
	require.Equal(t, int64(40), scanSingleInt(t, session, "select count(distinct i_item_sk) from item;"))
}

func TestSampleDatasetSkipsExisting(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "sf0")
	sample := &SampleDataset{Rows: 5, Partitions: 1, Seed: 1}
	require.Nil(t, sample.Load(prefix))

	removed := filepath.Join(prefix, "store", "part-00000.db")
	require.Nil(t, os.Remove(removed))

	require.Nil(t, sample.Load(prefix))
	_, err := os.Stat(removed)
	require.True(t, os.IsNotExist(err))
}

const smokeStream = `-- start query14 in stream 0 using template query14.tpl
select count(*) from store_sales;
select i_brand, count(*) from item group by i_brand order by i_brand limit 10;
-- end query14 in stream 0 using template query14.tpl

-- start query55 in stream 0 using template query55.tpl
select d_year, count(*) from date_dim group by d_year order by d_year;
-- end query55 in stream 0 using template query55.tpl
`

func TestPowerRunSmoke(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "sf0")
	output := filepath.Join(dir, "out")
	timeLogPath := filepath.Join(dir, "time.csv")

	sample := &SampleDataset{Rows: 50, Partitions: 2, Seed: 42}
	require.Nil(t, sample.Load(input))

	splitter := StreamSplitter{}
	queries, err := splitter.Split(smokeStream)
	require.Nil(t, err)
	require.Len(t, queries, 3)

	session := openTestSession(t)
	run := NewPowerRun(session, sample.Tables(), RunConfig{
		InputLocation:  input,
		TimeLogPath:    timeLogPath,
		OutputLocation: output,
		OutputFormat:   FormatCSV,
	})
	timeLog, err := run.Execute(context.Background(), queries)
	require.Nil(t, err)
	require.Equal(t, StateDone, run.State())

	expected := []string{
		"CreateTempView store_sales",
		"CreateTempView item",
		"CreateTempView customer",
		"CreateTempView date_dim",
		"CreateTempView promotion",
		"CreateTempView store",
		"Load Time",
		"query14_part1",
		"query14_part2",
		"query55",
		"Power Test Time",
		"Total Time",
	}
	entries := timeLog.Entries()
	require.Len(t, entries, len(expected))
	for i, entry := range entries {
		require.Equal(t, expected[i], entry.Label)
		require.Equal(t, session.ID(), entry.SessionID)
	}

	records := readCSV(t, timeLogPath)
	require.Len(t, records, len(expected)+1)

	counted := readCSV(t, filepath.Join(output, "query14_part1", "part-00000.csv"))
	require.Equal(t, [][]string{{"count(*)"}, {"100"}}, counted)

	brands := readCSV(t, filepath.Join(output, "query14_part2", "part-00000.csv"))
	require.GreaterOrEqual(t, len(brands), 2)
	require.LessOrEqual(t, len(brands), 11)

	years := readCSV(t, filepath.Join(output, "query55", "part-00000.csv"))
	require.Equal(t, [][]string{{"d_year", "count(*)"}, {"1998", "100"}}, years)
}
