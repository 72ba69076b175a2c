package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/smarteducator/aidetector/internal/core/domain"
	"github.com/smarteducator/aidetector/internal/core/ports"
)

type BatchStatusUseCase struct {
	store ports.RecordStore
}

func NewBatchStatusUseCase(store ports.RecordStore) *BatchStatusUseCase {
	return &BatchStatusUseCase{store: store}
}

// GetBatchStatus returns the batch together with a per-status count of its documents.
func (uc *BatchStatusUseCase) GetBatchStatus(ctx context.Context, teacherID, batchID string) (*domain.BatchStatusReport, error) {
	owner, err := requireOwner("get batch status", teacherID)
	if err != nil {
		return nil, err
	}
	batch, err := uc.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if batch.TeacherID != owner {
		return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id=%s", batchID))
	}
	docs, err := uc.store.ListDocumentsByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("list batch documents: %w", err)
	}

	counts := make(map[domain.DocumentStatus]int)
	for _, doc := range docs {
		counts[doc.Status]++
	}
	return &domain.BatchStatusReport{Batch: batch, DocumentCounts: counts}, nil
}

func (uc *BatchStatusUseCase) GetDocument(ctx context.Context, teacherID, documentID string) (*domain.Document, error) {
	owner, err := requireOwner("get document", teacherID)
	if err != nil {
		return nil, err
	}
	doc, err := uc.store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc.TeacherID != owner {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", documentID))
	}
	return doc, nil
}

func requireOwner(op, teacherID string) (string, error) {
	owner := strings.TrimSpace(teacherID)
	if owner == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, op, errors.New("teacher id is required"))
	}
	return owner, nil
}
