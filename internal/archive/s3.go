// Package archive writes the raw report JSON to S3, one object per day.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// API is the subset of the S3 service used by Client.
type API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Client archives report payloads.
type Client struct {
	api    API
	bucket string
	logger *slog.Logger
}

// New creates a Client writing to the given bucket. An empty bucket disables
// archival.
func New(api API, bucket string, logger *slog.Logger) *Client {
	return &Client{api: api, bucket: bucket, logger: logger}
}

// Store writes the payload as pretty-printed JSON under
// reports/<date>.json and returns the object key. When no bucket is
// configured the write is skipped and the key is empty.
func (c *Client) Store(ctx context.Context, reportDate time.Time, payload any) (string, error) {
	if c.bucket == "" {
		c.logger.Warn("archive bucket is not configured")
		return "", nil
	}

	body, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}

	key := fmt.Sprintf("reports/%s.json", reportDate.Format("2006-01-02"))
	_, err = c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("archive report: %w", err)
	}
	return key, nil
}
