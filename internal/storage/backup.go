package storage

import (
	"bytes"
	"context"
	"encoding/csv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/golang/snappy"
)

// S3Backup ships point-in-time snapshots of a backend to S3, snappy-
// compressed. It is a thin collaborator over Backend.ReadAll, not part of
// the core engine: edge deployments that want off-device durability run it
// on a schedule, the way the original project's backup-at-the-edge example
// periodically exports points to a remote store.
type S3Backup struct {
	client *s3.Client
	bucket string
}

// NewS3Backup loads AWS credentials and region from the environment/shared
// config (the same resolution chain the AWS CLI uses) and returns a backup
// client targeting bucket.
func NewS3Backup(ctx context.Context, bucket string, region string) (*S3Backup, error) {
	opts := []func(*config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, wrapIOError("failed to load aws config", err)
	}
	return &S3Backup{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
	}, nil
}

// Snapshot reads every row currently in backend, serializes it as CSV,
// compresses it with snappy, and uploads it to key under the configured
// bucket.
func (b *S3Backup) Snapshot(ctx context.Context, backend Backend, key string) error {
	rows, err := backend.ReadAll()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	for _, row := range rows {
		if err := w.Write(row.Raw); err != nil {
			return wrapIOError("failed to serialize snapshot", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return wrapIOError("failed to flush snapshot buffer", err)
	}

	compressed := snappy.Encode(nil, buf.Bytes())

	_, err = b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(compressed),
	})
	if err != nil {
		return wrapIOError("failed to upload snapshot to s3", err)
	}

	return nil
}
