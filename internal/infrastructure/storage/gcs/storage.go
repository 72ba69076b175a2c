// Package gcs stores document blobs in a Google Cloud Storage bucket.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

type Storage struct {
	client *storage.Client
	bucket *storage.BucketHandle
}

func New(ctx context.Context, bucket string, opts ...option.ClientOption) (*Storage, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket is empty")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	return &Storage{client: client, bucket: client.Bucket(bucket)}, nil
}

func (s *Storage) Close() error {
	return s.client.Close()
}

func (s *Storage) Save(ctx context.Context, key string, data io.Reader) error {
	writer := s.bucket.Object(key).NewWriter(ctx)
	if _, err := io.Copy(writer, data); err != nil {
		_ = writer.Close()
		return classify("write gcs object", err)
	}
	if err := writer.Close(); err != nil {
		return classify("finalize gcs object", err)
	}
	return nil
}

func (s *Storage) Download(ctx context.Context, key string) ([]byte, error) {
	reader, err := s.bucket.Object(key).NewReader(ctx)
	if err != nil {
		return nil, classify("open gcs object", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, classify("read gcs object", err)
	}
	return data, nil
}

// classify maps GCS failures onto domain error kinds so callers can tell a
// missing object from a retryable outage.
func classify(operation string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return domain.WrapError(domain.ErrBlobNotFound, operation, err)
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusNotFound:
			return domain.WrapError(domain.ErrBlobNotFound, operation, err)
		case apiErr.Code == http.StatusTooManyRequests, apiErr.Code >= 500:
			return domain.WrapError(domain.ErrTemporary, operation, err)
		}
	}
	return fmt.Errorf("%s: %w", operation, err)
}
