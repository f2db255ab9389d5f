package main

import (
	"context"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/hupe1980/vecingest/blobstore"
	"github.com/hupe1980/vecingest/blobstore/minio"
	"github.com/hupe1980/vecingest/blobstore/s3"
)

// openStore resolves a store URI:
//
//	local:DIR                  files under DIR (a bare path works too)
//	mem:                       an in-process store, useful for dry runs
//	s3://bucket/prefix         S3, optionally with a DynamoDB CURRENT pointer
//	minio://host/bucket/prefix MinIO or any S3-compatible endpoint
func openStore(ctx context.Context, uri string, cfg *Config) (blobstore.BlobStore, error) {
	switch {
	case uri == "mem:":
		return blobstore.NewMemoryStore(), nil
	case strings.HasPrefix(uri, "local:"):
		return blobstore.NewLocalStore(strings.TrimPrefix(uri, "local:")), nil
	case strings.HasPrefix(uri, "s3://"):
		bucket, prefix := splitBucket(strings.TrimPrefix(uri, "s3://"))
		if bucket == "" {
			return nil, fmt.Errorf("store %q: missing bucket", uri)
		}
		return openS3(ctx, bucket, prefix, cfg.S3)
	case strings.HasPrefix(uri, "minio://"):
		host, rest, _ := strings.Cut(strings.TrimPrefix(uri, "minio://"), "/")
		bucket, prefix := splitBucket(rest)
		if host == "" || bucket == "" {
			return nil, fmt.Errorf("store %q: expected minio://host/bucket[/prefix]", uri)
		}
		mc := cfg.MinIO
		mc.Endpoint = host
		mc.Bucket = bucket
		mc.Prefix = prefix
		return minio.New(ctx, mc)
	case strings.Contains(uri, "://"):
		return nil, fmt.Errorf("store %q: unsupported scheme", uri)
	default:
		return blobstore.NewLocalStore(uri), nil
	}
}

func splitBucket(s string) (bucket, prefix string) {
	bucket, prefix, _ = strings.Cut(s, "/")
	return bucket, strings.Trim(prefix, "/")
}

func openS3(ctx context.Context, bucket, prefix string, cfg S3Config) (blobstore.BlobStore, error) {
	var opts []s3.Option
	if prefix != "" {
		opts = append(opts, s3.WithPrefix(prefix))
	}
	if cfg.Region != "" {
		opts = append(opts, s3.WithRegion(cfg.Region))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, s3.WithEndpoint(cfg.Endpoint))
	}

	store, err := s3.New(ctx, bucket, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open s3 store: %w", err)
	}
	if cfg.DynamoDBTable == "" {
		return store, nil
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewDDBCommitStoreFromStore(store, dynamodb.NewFromConfig(awsCfg), cfg.DynamoDBTable), nil
}
