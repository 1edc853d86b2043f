// Package storage implements the object-storage collaborator on top of any
// S3-compatible backend (AWS S3, MinIO).
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// Config carries the S3 connection and addressing settings.
type Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string
	// Endpoint overrides the AWS endpoint for MinIO-style deployments.
	Endpoint string
	// PublicBaseURL is the prefix of the URL handed back to clients,
	// e.g. https://media.example.com. Defaults to Endpoint + bucket.
	PublicBaseURL string
}

// S3Storage uploads media objects and returns their public URLs.
type S3Storage struct {
	client *s3.Client
	cfg    Config
}

func New(ctx context.Context, cfg Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Storage{client: client, cfg: cfg}, nil
}

// Upload stores the object under a date-partitioned uuid key within prefix
// and returns its public URL.
func (s *S3Storage) Upload(ctx context.Context, prefix string, body io.Reader, size int64, contentType string) (string, error) {
	key := objectKey(prefix)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return s.publicURL(key), nil
}

func (s *S3Storage) publicURL(key string) string {
	base := s.cfg.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.Bucket)
	}
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), key)
}

func objectKey(prefix string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("%s/%d/%02d/%s", prefix, now.Year(), now.Month(), uuid.New())
}
