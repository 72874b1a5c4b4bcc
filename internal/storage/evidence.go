package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"tripseal-backend/internal/config"
)

// EvidenceStore uploads seal evidence photos to an S3-compatible bucket
// (R2 in production). The stored key is what goes into the seals table.
type EvidenceStore struct {
	client *s3.Client
	bucket string
}

// NewEvidenceStore builds the store from config. Returns nil when no
// endpoint is configured; callers treat a nil store as "keep evidence inline".
func NewEvidenceStore(ctx context.Context, cfg *config.Config) (*EvidenceStore, error) {
	if cfg.Evidence.Endpoint == "" {
		return nil, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Evidence.AccessKey,
			cfg.Evidence.SecretKey,
			"",
		)),
		awsconfig.WithRegion(cfg.Evidence.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("load evidence bucket config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Evidence.Endpoint)
	})

	return &EvidenceStore{client: client, bucket: cfg.Evidence.Bucket}, nil
}

// Put uploads the evidence bytes under key and returns the stored reference.
func (s *EvidenceStore) Put(ctx context.Context, key string, data []byte) (string, error) {
	contentType := http.DetectContentType(data)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload evidence %s: %w", key, err)
	}
	return key, nil
}
