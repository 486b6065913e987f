package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/semaphore"
)

const partitionSuffix = ".db"

// PartitionResolver maps a table location to the ordered list of local
// partition files a session can attach. A location is either a single
// partition file, a directory of partitions, or an s3:// prefix whose
// partitions are mirrored into the download cache first.
type PartitionResolver struct {
	config Config
	client *s3.Client
}

func NewPartitionResolver(config Config) *PartitionResolver {
	return &PartitionResolver{config: config}
}

func (r *PartitionResolver) Resolve(ctx context.Context, location string) ([]string, error) {
	if strings.HasPrefix(location, "s3://") {
		return r.mirrorS3(ctx, location)
	}
	return localPartitions(location)
}

func localPartitions(location string) ([]string, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("failed to stat dataset location %v: %w", location, err)
	}
	if !info.IsDir() {
		return []string{location}, nil
	}
	matches, err := filepath.Glob(filepath.Join(location, "*"+partitionSuffix))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("dataset location %v contains no %v partitions", location, partitionSuffix)
	}
	slices.Sort(matches)
	return matches, nil
}

func parseS3Location(location string) (string, string, error) {
	bucket, prefix, found := strings.Cut(strings.TrimPrefix(location, "s3://"), "/")
	prefix = strings.Trim(prefix, "/")
	if !found || bucket == "" || prefix == "" {
		return "", "", fmt.Errorf("malformed s3 location %v, expected s3://bucket/prefix", location)
	}
	return bucket, prefix, nil
}

func (r *PartitionResolver) mirrorS3(ctx context.Context, location string) ([]string, error) {
	bucket, prefix, err := parseS3Location(location)
	if err != nil {
		return nil, err
	}
	client, err := r.s3Client(ctx)
	if err != nil {
		return nil, err
	}
	keys, err := listPartitionKeys(ctx, client, bucket, prefix)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("dataset location %v contains no %v partitions", location, partitionSuffix)
	}
	slices.Sort(keys)
	return r.download(ctx, client, bucket, keys)
}

// listPartitionKeys lists <prefix>/ as a directory and falls back to the
// bare key for single-file datasets.
func listPartitionKeys(ctx context.Context, client *s3.Client, bucket string, prefix string) ([]string, error) {
	keys := make([]string, 0)
	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix + "/"),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%v/%v: %w", bucket, prefix, err)
		}
		for _, object := range page.Contents {
			if key := aws.ToString(object.Key); strings.HasSuffix(key, partitionSuffix) {
				keys = append(keys, key)
			}
		}
	}
	if len(keys) > 0 {
		return keys, nil
	}
	single := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for single.HasMorePages() {
		page, err := single.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list s3://%v/%v: %w", bucket, prefix, err)
		}
		for _, object := range page.Contents {
			if aws.ToString(object.Key) == prefix {
				keys = append(keys, prefix)
			}
		}
	}
	return keys, nil
}

func (r *PartitionResolver) download(ctx context.Context, client *s3.Client, bucket string, keys []string) ([]string, error) {
	sem := semaphore.NewWeighted(int64(max(r.config.DownloadConcurrency, 1)))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	locals := make([]string, len(keys))
	cached, started := 0, 0
	for i, key := range keys {
		local := filepath.Join(r.config.DownloadDir, bucket, filepath.FromSlash(key))
		locals[i] = local
		if _, err := os.Stat(local); err == nil {
			cached++
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = err
			}
			mu.Unlock()
			break
		}
		wg.Add(1)
		started++
		go func(key string, local string) {
			defer sem.Release(1)
			defer wg.Done()
			if err := fetchObject(ctx, client, bucket, key, local); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}(key, local)
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}
	Logger.Infof("mirrored %v partitions from s3 bucket %v (%v cached, %v downloaded)", len(keys), bucket, cached, started)
	return locals, nil
}

func fetchObject(ctx context.Context, client *s3.Client, bucket string, key string, local string) error {
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch s3://%v/%v: %w", bucket, key, err)
	}
	defer resp.Body.Close()
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return err
	}
	file, err := os.Create(local)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(local)
		return fmt.Errorf("failed to mirror s3://%v/%v: %w", bucket, key, err)
	}
	return file.Close()
}

func (r *PartitionResolver) s3Client(ctx context.Context) (*s3.Client, error) {
	if r.client != nil {
		return r.client, nil
	}
	opts := make([]func(*awsconfig.LoadOptions) error, 0)
	if r.config.S3Region != "" {
		opts = append(opts, awsconfig.WithRegion(r.config.S3Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	clientOpts := make([]func(*s3.Options), 0)
	if r.config.S3Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(r.config.S3Endpoint)
		})
	}
	if r.config.S3PathStyle {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	r.client = s3.NewFromConfig(cfg, clientOpts...)
	return r.client, nil
}
