package ports

import (
	"context"
	"io"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

// UploadFile is one file of a batch submission.
type UploadFile struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// SubmitBatchInput describes a teacher's multi-file upload.
type SubmitBatchInput struct {
	TeacherID    string
	Priority     domain.BatchPriority
	StudentID    string
	AssignmentID string
	Files        []UploadFile
}

// BatchIngestor is the inbound contract for batch upload orchestration.
type BatchIngestor interface {
	Submit(ctx context.Context, input SubmitBatchInput) (*domain.Batch, error)
}

// BatchReader is the inbound read model for batch and document state. Reads are
// scoped by owner; another teacher's record reads as not found.
type BatchReader interface {
	GetBatchStatus(ctx context.Context, teacherID, batchID string) (*domain.BatchStatusReport, error)
	GetDocument(ctx context.Context, teacherID, documentID string) (*domain.Document, error)
}

// BatchProcessor is the inbound contract for the background claim loop.
type BatchProcessor interface {
	Start(ctx context.Context) error
	Stop()
	Running() bool
}
