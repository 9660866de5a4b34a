package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/predicate-security/predicate-gate/pkg/canonicalize"
)

// S3Archiver exports decision-log batches to S3 as JSONL objects, keyed by
// the batch's content hash for idempotent retention uploads.
type S3Archiver struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3ArchiverConfig holds configuration for S3Archiver.
type S3ArchiverConfig struct {
	Bucket   string
	Region   string
	Endpoint string // Optional custom endpoint (MinIO, LocalStack)
	Prefix   string // Optional key prefix (e.g., "decision-log/")
}

// NewS3Archiver creates an S3-backed archiver.
func NewS3Archiver(ctx context.Context, cfg S3ArchiverConfig) (*S3Archiver, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("audit: load AWS config: %w", err)
	}

	clientOpts := func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO/LocalStack
		}
	}

	return &S3Archiver{
		client: s3.NewFromConfig(awsCfg, clientOpts),
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

// Archive uploads a batch of entries as one JSONL object and returns the
// object key. An existing object with the same content hash is left as-is.
func (a *S3Archiver) Archive(ctx context.Context, entries []Entry) (string, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("audit: empty batch")
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range entries {
		if err := enc.Encode(&entries[i]); err != nil {
			return "", fmt.Errorf("audit: encode entry %s: %w", entries[i].ID, err)
		}
	}

	contentHash := canonicalize.HashBytes(buf.Bytes())
	key := fmt.Sprintf("%s%s-%s.jsonl",
		a.prefix,
		entries[0].Timestamp.UTC().Format(time.RFC3339),
		contentHash[:12],
	)

	_, err := a.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return key, nil
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/jsonl"),
	})
	if err != nil {
		return "", fmt.Errorf("audit: s3 put failed: %w", err)
	}
	return key, nil
}
