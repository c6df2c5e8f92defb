package persistent

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mgrimsby/property-ops/pkg/s3client"
)

// ArchiveRepo stores submitted export documents for compliance lookups.
type ArchiveRepo struct {
	*s3client.S3Client
	bucket string
}

func NewArchiveRepo(s3c *s3client.S3Client, bucket string) *ArchiveRepo {
	return &ArchiveRepo{s3c, bucket}
}

func (r *ArchiveRepo) UploadBytes(ctx context.Context, key string, data []byte, contentType string, size int64) error {
	b := bytes.NewReader(data)

	_, err := r.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.bucket),
		Key:           aws.String(key),
		Body:          b,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("ArchiveRepo - UploadBytes - r.Client.PutObject: %w", err)
	}

	return nil
}

func (r *ArchiveRepo) DownloadBytes(ctx context.Context, key string) ([]byte, error) {
	result, err := r.Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("ArchiveRepo - DownloadBytes - r.Client.GetObject: %w", err)
	}
	defer result.Body.Close()

	b, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("ArchiveRepo - DownloadBytes - io.ReadAll: %w", err)
	}

	return b, nil
}
