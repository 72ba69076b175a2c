package ports

import (
	"context"
	"io"
	"time"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

// BatchStore persists batch records and provides the atomic claim.
type BatchStore interface {
	CreateBatch(ctx context.Context, batch *domain.Batch) error
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
	// ClaimNextBatch atomically moves the highest-priority, oldest QUEUED batch
	// to PROCESSING and returns it. It returns nil, nil when nothing is queued.
	ClaimNextBatch(ctx context.Context) (*domain.Batch, error)
	UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error
	FinishBatch(ctx context.Context, id string, summary domain.BatchSummary) error
}

// DocumentStore persists document records.
type DocumentStore interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, id string) (*domain.Document, error)
	ListDocumentsByBatch(ctx context.Context, batchID string) ([]domain.Document, error)
	// UpdateDocument is scoped by owner; a mismatched owner reads as not found.
	UpdateDocument(ctx context.Context, id, teacherID string, update domain.DocumentUpdate) error
}

// ResultStore persists AI-detection results.
type ResultStore interface {
	CreateResult(ctx context.Context, result *domain.Result) error
	GetResultByDocumentID(ctx context.Context, documentID string) (*domain.Result, error)
	UpdateResultStatus(ctx context.Context, id string, status domain.ResultStatus) error
}

// RecordStore is the full durable store consumed by the processor and ingest flow.
type RecordStore interface {
	BatchStore
	DocumentStore
	ResultStore
}

// BlobStore stores uploaded document bytes under opaque keys.
type BlobStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Download(ctx context.Context, key string) ([]byte, error)
}

// TextExtractor turns document bytes into plain text. An error means the type is
// unsupported or the content could not be read; callers decide how to treat it.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileType domain.FileType) (string, error)
}

// BatchEventPublisher announces terminal batch outcomes.
type BatchEventPublisher interface {
	PublishBatchFinished(ctx context.Context, event domain.BatchFinishedEvent) error
}

// ProcessorMetrics observes the batch processor.
type ProcessorMetrics interface {
	BatchClaimed(queueLag time.Duration)
	BatchFinished(status domain.BatchStatus, duration time.Duration)
	DocumentStarted()
	DocumentFinished(duration time.Duration, succeeded bool)
	ClaimFailed()
}
