package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const s3KeyPrefix = "uploads/"

// S3PutObjectAPI is the part of the S3 client used by S3BlobStore.
type S3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config holds the settings of an S3-compatible object store.
type S3Config struct {
	Bucket     string
	Region     string
	Endpoint   string
	AccessKey  string
	SecretKey  string
	PublicBase string
}

// S3BlobStore uploads blobs to an S3 bucket.
type S3BlobStore struct {
	client     S3PutObjectAPI
	bucket     string
	publicBase string
}

// NewS3BlobStore builds an S3 client from static credentials. A custom
// endpoint (MinIO and friends) switches the client to path-style addressing.
func NewS3BlobStore(ctx context.Context, cfg S3Config) (*S3BlobStore, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	publicBase := cfg.PublicBase
	if publicBase == "" {
		if cfg.Endpoint != "" {
			publicBase = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			publicBase = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return NewS3BlobStoreWithClient(client, cfg.Bucket, publicBase), nil
}

// NewS3BlobStoreWithClient creates a new instance of S3BlobStore around client.
func NewS3BlobStoreWithClient(client S3PutObjectAPI, bucket, publicBase string) *S3BlobStore {
	return &S3BlobStore{
		client:     client,
		bucket:     bucket,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

func (s *S3BlobStore) Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (string, error) {
	key := s3KeyPrefix + name
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if size >= 0 {
		input.ContentLength = aws.Int64(size)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload %s to bucket %s: %w", key, s.bucket, err)
	}
	return s.publicBase + "/" + key, nil
}
