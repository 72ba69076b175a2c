// Package storage holds blob store decorators shared by the concrete backends.
package storage

import (
	"context"
	"io"

	"github.com/smarteducator/aidetector/internal/core/ports"
	"github.com/smarteducator/aidetector/internal/infrastructure/resilience"
)

// ResilientBlobStore retries downloads through a resilience executor. Saves
// consume a one-shot reader and are passed through unchanged.
type ResilientBlobStore struct {
	next     ports.BlobStore
	executor *resilience.Executor
}

func NewResilientBlobStore(next ports.BlobStore, executor *resilience.Executor) *ResilientBlobStore {
	return &ResilientBlobStore{next: next, executor: executor}
}

func (s *ResilientBlobStore) Save(ctx context.Context, key string, data io.Reader) error {
	return s.next.Save(ctx, key, data)
}

func (s *ResilientBlobStore) Download(ctx context.Context, key string) ([]byte, error) {
	return resilience.Call(ctx, s.executor, "blob.download", func(ctx context.Context) ([]byte, error) {
		return s.next.Download(ctx, key)
	}, resilience.ClassifyTemporary)
}
