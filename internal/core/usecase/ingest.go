package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smarteducator/aidetector/internal/core/domain"
	"github.com/smarteducator/aidetector/internal/core/ports"
)

// BatchIngestUseCase is the producer side of the batch queue: it persists every
// file of a submission and only then makes the batch visible to the processor.
type BatchIngestUseCase struct {
	store   ports.RecordStore
	storage ports.BlobStore
	logger  *slog.Logger
	now     func() time.Time
}

func NewBatchIngestUseCase(store ports.RecordStore, storage ports.BlobStore, logger *slog.Logger) *BatchIngestUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchIngestUseCase{
		store:   store,
		storage: storage,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (uc *BatchIngestUseCase) Submit(ctx context.Context, input ports.SubmitBatchInput) (*domain.Batch, error) {
	teacherID := strings.TrimSpace(input.TeacherID)
	if teacherID == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "submit batch", errors.New("teacher id is required"))
	}
	if len(input.Files) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("at least one file is required"))
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	if priority.Rank() < 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", fmt.Errorf("unknown priority %q", priority))
	}

	fileTypes := make([]domain.FileType, len(input.Files))
	for i, file := range input.Files {
		fileType, err := domain.FileTypeFromFilename(file.Filename)
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", file.Filename, err)
		}
		fileTypes[i] = fileType
	}

	now := uc.now()
	batch := &domain.Batch{
		ID:         uuid.NewString(),
		TeacherID:  teacherID,
		TotalFiles: len(input.Files),
		Status:     domain.BatchUploading,
		Priority:   priority,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.store.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	for i, file := range input.Files {
		if err := uc.persistFile(ctx, batch, input, file, fileTypes[i], i+1); err != nil {
			uc.abort(ctx, batch, err)
			return nil, err
		}
	}

	if err := uc.store.UpdateBatchStatus(ctx, batch.ID, domain.BatchQueued, ""); err != nil {
		uc.abort(ctx, batch, err)
		return nil, fmt.Errorf("queue batch: %w", err)
	}
	batch.Status = domain.BatchQueued

	uc.logger.Info("batch_queued",
		"batch_id", batch.ID,
		"teacher_id", teacherID,
		"priority", priority,
		"total_files", batch.TotalFiles,
	)
	return batch, nil
}

func (uc *BatchIngestUseCase) persistFile(
	ctx context.Context,
	batch *domain.Batch,
	input ports.SubmitBatchInput,
	file ports.UploadFile,
	fileType domain.FileType,
	position int,
) error {
	docID := uuid.NewString()
	storageKey := fmt.Sprintf("%s/%s_%s", batch.ID, docID, sanitizeFilename(file.Filename))
	if err := uc.storage.Save(ctx, storageKey, file.Body); err != nil {
		return fmt.Errorf("save %q to blob storage: %w", file.Filename, err)
	}

	now := uc.now()
	queuePosition := position
	doc := &domain.Document{
		ID:                 docID,
		BatchID:            batch.ID,
		QueuePosition:      &queuePosition,
		ProcessingPriority: batch.Priority.Rank(),
		TeacherID:          batch.TeacherID,
		OriginalFilename:   filepath.Base(file.Filename),
		StoragePath:        storageKey,
		FileType:           fileType,
		Status:             domain.DocumentUploaded,
		StudentID:          strings.TrimSpace(input.StudentID),
		AssignmentID:       strings.TrimSpace(input.AssignmentID),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := uc.store.CreateDocument(ctx, doc); err != nil {
		return fmt.Errorf("create document metadata: %w", err)
	}

	result := &domain.Result{
		ID:         uuid.NewString(),
		DocumentID: doc.ID,
		TeacherID:  batch.TeacherID,
		Status:     domain.ResultPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.store.CreateResult(ctx, result); err != nil {
		return fmt.Errorf("create result: %w", err)
	}
	return nil
}

func (uc *BatchIngestUseCase) abort(ctx context.Context, batch *domain.Batch, cause error) {
	uc.logger.Error("batch_upload_failed", "batch_id", batch.ID, "error", cause)
	if err := uc.store.UpdateBatchStatus(context.WithoutCancel(ctx), batch.ID, domain.BatchError, cause.Error()); err != nil {
		uc.logger.Error("batch_mark_error_failed", "batch_id", batch.ID, "error", err)
	}
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "document.bin"
	}
	return base
}
