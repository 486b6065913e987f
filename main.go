package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: powerbench [flags] <input_prefix> <query_stream_file> <time_log>\n")
	flag.PrintDefaults()
}

func main() {
	_ = godotenv.Load()

	outputPrefix := flag.String("output_prefix", "", "materialize every query result under this location")
	outputFormat := flag.String("output_format", FormatSQLite, "output format: sqlite, csv or jsonl")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 3 {
		usage()
		os.Exit(2)
	}

	config := ConfigFromEnv()
	runConfig := RunConfig{
		InputLocation:  flag.Arg(0),
		TimeLogPath:    flag.Arg(2),
		OutputLocation: *outputPrefix,
		OutputFormat:   *outputFormat,
	}
	if err := run(context.Background(), config, runConfig, flag.Arg(1)); err != nil {
		Logger.Fatalf("power run failed: %v", err)
	}
}

func run(ctx context.Context, config Config, runConfig RunConfig, streamPath string) error {
	info := HostStat()
	Logger.Infof("host stat: %+v", info)

	raw, err := os.ReadFile(streamPath)
	if err != nil {
		return fmt.Errorf("failed to read query stream %v: %w", streamPath, err)
	}
	splitter := StreamSplitter{}
	queries, err := splitter.Split(string(raw))
	if err != nil {
		return fmt.Errorf("failed to split query stream %v: %w", streamPath, err)
	}
	Logger.Infof("split query stream %v into %v units", streamPath, len(queries))

	if err := clearCachesIfNeeded(config); err != nil {
		return err
	}

	session, err := OpenSQLiteSession(ctx, config)
	if err != nil {
		return err
	}
	defer session.Close()

	catalog := CatalogFromConfig(config)
	power := NewPowerRun(session, catalog, runConfig)
	timeLog, err := power.Execute(ctx, queries)
	if err != nil {
		return err
	}

	if config.HistoryURL == "" {
		return nil
	}
	history, err := OpenHistory(config.HistoryURL)
	if err != nil {
		return err
	}
	defer history.Close()
	if err := history.Init(); err != nil {
		return err
	}
	meta := map[string]any{
		"version":  Version,
		"input":    runConfig.InputLocation,
		"stream":   streamPath,
		"tables":   len(catalog),
		"queries":  len(queries),
		"arch":     info.Arch,
		"hostname": info.Hostname,
		"platform": info.Platform,
		"ram":      info.RAM,
		"cpu":      info.CPUCount,
		"freq":     info.CPUFreq,
	}
	if err := history.RecordParameters(session.ID(), meta); err != nil {
		return err
	}
	if err := history.RecordRun(session.ID(), timeLog.Entries()); err != nil {
		return err
	}
	return history.UploadTimeLog(session.ID(), runConfig.TimeLogPath)
}
