// Package memory is a process-local record store for development and tests.
// Claims are serialized by a single mutex, so it is only safe for one process.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

type Store struct {
	mu sync.Mutex

	batches   map[string]*domain.Batch
	documents map[string]*domain.Document
	results   map[string]*domain.Result

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		batches:   make(map[string]*domain.Batch),
		documents: make(map[string]*domain.Document),
		results:   make(map[string]*domain.Result),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) CreateBatch(_ context.Context, batch *domain.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[batch.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create batch", fmt.Errorf("duplicate id=%s", batch.ID))
	}
	stored := *batch
	s.batches[batch.ID] = &stored
	return nil
}

func (s *Store) GetBatch(_ context.Context, id string) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok || batch.DeletedAt != nil {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id=%s", id))
	}
	out := *batch
	return &out, nil
}

// ClaimNextBatch picks the live QUEUED batch with the highest priority rank,
// oldest first, and flips it to PROCESSING under the store lock.
func (s *Store) ClaimNextBatch(context.Context) (*domain.Batch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var best *domain.Batch
	for _, batch := range s.batches {
		if batch.Status != domain.BatchQueued || batch.DeletedAt != nil {
			continue
		}
		if best == nil || claimsBefore(batch, best) {
			best = batch
		}
	}
	if best == nil {
		return nil, nil
	}

	best.Status = domain.BatchProcessing
	best.UpdatedAt = s.now()
	out := *best
	return &out, nil
}

func claimsBefore(a, b *domain.Batch) bool {
	if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
		return c > 0
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}

func (s *Store) UpdateBatchStatus(_ context.Context, id string, status domain.BatchStatus, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok || batch.DeletedAt != nil {
		return domain.WrapError(domain.ErrBatchNotFound, "update batch status", fmt.Errorf("id=%s", id))
	}
	batch.Status = status
	batch.ErrorMessage = errMessage
	batch.UpdatedAt = s.now()
	return nil
}

func (s *Store) FinishBatch(_ context.Context, id string, summary domain.BatchSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[id]
	if !ok {
		return domain.WrapError(domain.ErrBatchNotFound, "finish batch", fmt.Errorf("id=%s", id))
	}
	batch.Status = summary.Status
	batch.CompletedFiles = summary.CompletedFiles
	batch.FailedFiles = summary.FailedFiles
	batch.ErrorMessage = summary.ErrorMessage
	batch.UpdatedAt = s.now()
	return nil
}

func (s *Store) CreateDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.documents[doc.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create document", fmt.Errorf("duplicate id=%s", doc.ID))
	}
	stored := *doc
	s.documents[doc.ID] = &stored
	return nil
}

func (s *Store) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok || doc.DeletedAt != nil {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	out := *doc
	return &out, nil
}

func (s *Store) ListDocumentsByBatch(_ context.Context, batchID string) ([]domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Document, 0)
	for _, doc := range s.documents {
		if doc.BatchID == batchID && doc.DeletedAt == nil {
			out = append(out, *doc)
		}
	}
	slices.SortFunc(out, func(a, b domain.Document) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (s *Store) UpdateDocument(_ context.Context, id, teacherID string, update domain.DocumentUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok || doc.DeletedAt != nil || doc.TeacherID != teacherID {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id=%s", id))
	}
	doc.Status = update.Status
	if update.CharacterCount != nil {
		v := *update.CharacterCount
		doc.CharacterCount = &v
	}
	if update.WordCount != nil {
		v := *update.WordCount
		doc.WordCount = &v
	}
	doc.UpdatedAt = s.now()
	return nil
}

func (s *Store) CreateResult(_ context.Context, result *domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.results[result.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "create result", fmt.Errorf("duplicate id=%s", result.ID))
	}
	stored := *result
	s.results[result.ID] = &stored
	return nil
}

func (s *Store) GetResultByDocumentID(_ context.Context, documentID string) (*domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var found *domain.Result
	for _, result := range s.results {
		if result.DocumentID != documentID || result.DeletedAt != nil {
			continue
		}
		if found == nil || result.CreatedAt.After(found.CreatedAt) {
			found = result
		}
	}
	if found == nil {
		return nil, domain.WrapError(domain.ErrResultNotFound, "get result", fmt.Errorf("document_id=%s", documentID))
	}
	out := *found
	return &out, nil
}

func (s *Store) UpdateResultStatus(_ context.Context, id string, status domain.ResultStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.results[id]
	if !ok || result.DeletedAt != nil {
		return domain.WrapError(domain.ErrResultNotFound, "update result status", fmt.Errorf("id=%s", id))
	}
	result.Status = status
	result.UpdatedAt = s.now()
	return nil
}
