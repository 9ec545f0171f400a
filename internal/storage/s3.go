package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/portfolio-blog-api/internal/config"
)

// ObjectPutter is the subset of the S3 client used for uploads
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store writes article images to an S3-compatible bucket
type S3Store struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

// NewS3Client creates an S3 client for the configured endpoint. A custom endpoint
// switches to path-style addressing so that MinIO and similar stores work.
func NewS3Client(ctx context.Context, cfg *config.StorageConfig) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Store creates a store backed by a real S3 client
func NewS3Store(ctx context.Context, cfg *config.StorageConfig) (*S3Store, error) {
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimRight(cfg.Endpoint, "/"), cfg.Bucket)
	}
	return NewS3StoreWithClient(client, cfg.Bucket, publicURL), nil
}

// NewS3StoreWithClient creates a store around an existing client
func NewS3StoreWithClient(client ObjectPutter, bucket, publicURL string) *S3Store {
	return &S3Store{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

// Put uploads data under key and returns its public link
func (s *S3Store) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s", s.publicURL, key), nil
}
