package main

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Workspace           string
	HistoryURL          string
	DownloadDir         string
	DownloadConcurrency int
	S3Endpoint          string
	S3Region            string
	S3PathStyle         bool
	ClearCaches         bool
	Tables              []string
}

func ConfigFromEnv() Config {
	return Config{
		Workspace:           StringEnv("POWERBENCH_WORKSPACE", ""),
		HistoryURL:          StringEnv("POWERBENCH_HISTORY_URL", ""),
		DownloadDir:         StringEnv("POWERBENCH_DOWNLOAD_DIR", filepath.Join(os.TempDir(), "powerbench-partitions")),
		DownloadConcurrency: IntEnv("POWERBENCH_DOWNLOAD_CONCURRENCY", 8),
		S3Endpoint:          StringEnv("POWERBENCH_S3_ENDPOINT", ""),
		S3Region:            StringEnv("POWERBENCH_S3_REGION", ""),
		S3PathStyle:         BoolEnv("POWERBENCH_S3_PATH_STYLE", false),
		ClearCaches:         BoolEnv("POWERBENCH_CLEAR_CACHES", false),
		Tables:              ListEnv("POWERBENCH_TABLES"),
	}
}

func StringEnv(key string, def string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	return value
}

func IntEnv(key string, def int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("failed to parse %v=%v as int, fallback to %v: %v", key, value, def, err)
		return def
	}
	return parsed
}

func BoolEnv(key string, def bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("failed to parse %v=%v as bool, fallback to %v: %v", key, value, def, err)
		return def
	}
	return parsed
}

func ListEnv(key string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	items := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}
