package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLocalPartitionsDirectory(t *testing.T) {
	location := filepath.Join(t.TempDir(), "store_sales")
	require.Nil(t, os.MkdirAll(location, 0o755))
	for _, name := range []string{"part-00002.db", "part-00000.db", "part-00001.db", "_SUCCESS", "part-00000.db.crc"} {
		require.Nil(t, os.WriteFile(filepath.Join(location, name), []byte("x"), 0o644))
	}

	partitions, err := localPartitions(location)
	require.Nil(t, err)
	require.Equal(t, []string{
		filepath.Join(location, "part-00000.db"),
		filepath.Join(location, "part-00001.db"),
		filepath.Join(location, "part-00002.db"),
	}, partitions)
}

func TestLocalPartitionsSingleFile(t *testing.T) {
	location := filepath.Join(t.TempDir(), "item.db")
	require.Nil(t, os.WriteFile(location, []byte("x"), 0o644))

	partitions, err := localPartitions(location)
	require.Nil(t, err)
	require.Equal(t, []string{location}, partitions)
}

func TestLocalPartitionsEmptyDirectory(t *testing.T) {
	location := filepath.Join(t.TempDir(), "store_sales")
	require.Nil(t, os.MkdirAll(location, 0o755))

	_, err := localPartitions(location)
	require.ErrorContains(t, err, "contains no .db partitions")
}

func TestLocalPartitionsMissingLocation(t *testing.T) {
	_, err := localPartitions(filepath.Join(t.TempDir(), "nowhere"))
	require.ErrorContains(t, err, "failed to stat dataset location")
}

func TestResolveLocalLocation(t *testing.T) {
	location := filepath.Join(t.TempDir(), "item.db")
	require.Nil(t, os.WriteFile(location, []byte("x"), 0o644))

	resolver := NewPartitionResolver(Config{})
	partitions, err := resolver.Resolve(context.Background(), location)
	require.Nil(t, err)
	require.Equal(t, []string{location}, partitions)
}

func TestParseS3Location(t *testing.T) {
	bucket, prefix, err := parseS3Location("s3://benchmarks/tpcds/sf100/store_sales")
	require.Nil(t, err)
	require.Equal(t, "benchmarks", bucket)
	require.Equal(t, "tpcds/sf100/store_sales", prefix)

	bucket, prefix, err = parseS3Location("s3://benchmarks/store_sales/")
	require.Nil(t, err)
	require.Equal(t, "benchmarks", bucket)
	require.Equal(t, "store_sales", prefix)

	for _, malformed := range []string{"s3://", "s3://benchmarks", "s3://benchmarks/", "s3:///store_sales"} {
		_, _, err = parseS3Location(malformed)
		require.ErrorContains(t, err, "malformed s3 location")
	}
}
