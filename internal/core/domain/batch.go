package domain

import (
	"fmt"
	"strings"
	"time"
)

type BatchStatus string

const (
	BatchCreated    BatchStatus = "CREATED"
	BatchUploading  BatchStatus = "UPLOADING"
	BatchQueued     BatchStatus = "QUEUED"
	BatchProcessing BatchStatus = "PROCESSING"
	BatchCompleted  BatchStatus = "COMPLETED"
	BatchPartial    BatchStatus = "PARTIAL"
	BatchError      BatchStatus = "ERROR"
)

var batchStatuses = []BatchStatus{
	BatchCreated, BatchUploading, BatchQueued, BatchProcessing, BatchCompleted, BatchPartial, BatchError,
}

func ParseBatchStatus(raw string) (BatchStatus, error) {
	for _, s := range batchStatuses {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", WrapError(ErrInvalidInput, "parse batch status", fmt.Errorf("unknown value %q", raw))
}

// Terminal reports whether the processor has finished with the batch.
func (s BatchStatus) Terminal() bool {
	return s == BatchCompleted || s == BatchPartial || s == BatchError
}

// BatchPriority is persisted as its lowercase token; Rank gives the claim order.
type BatchPriority string

const (
	PriorityLow    BatchPriority = "low"
	PriorityNormal BatchPriority = "normal"
	PriorityHigh   BatchPriority = "high"
	PriorityUrgent BatchPriority = "urgent"
)

// Priorities lists every priority from lowest to highest rank.
var Priorities = []BatchPriority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent}

func ParseBatchPriority(raw string) (BatchPriority, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return PriorityNormal, nil
	}
	for _, p := range Priorities {
		if string(p) == normalized {
			return p, nil
		}
	}
	return "", WrapError(ErrInvalidInput, "parse batch priority", fmt.Errorf("unknown value %q", raw))
}

func (p BatchPriority) Rank() int {
	for i, candidate := range Priorities {
		if candidate == p {
			return i
		}
	}
	return -1
}

type Batch struct {
	ID             string        `json:"id"`
	TeacherID      string        `json:"teacher_id"`
	TotalFiles     int           `json:"total_files"`
	CompletedFiles int           `json:"completed_files"`
	FailedFiles    int           `json:"failed_files"`
	Status         BatchStatus   `json:"status"`
	Priority       BatchPriority `json:"priority"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	DeletedAt      *time.Time    `json:"deleted_at,omitempty"`
}

// BatchSummary is the terminal write for a processed batch.
type BatchSummary struct {
	Status         BatchStatus
	CompletedFiles int
	FailedFiles    int
	ErrorMessage   string
}

// BatchFinishedEvent announces a terminal batch outcome to downstream consumers.
type BatchFinishedEvent struct {
	BatchID        string      `json:"batch_id"`
	TeacherID      string      `json:"teacher_id"`
	Status         BatchStatus `json:"status"`
	CompletedFiles int         `json:"completed_files"`
	FailedFiles    int         `json:"failed_files"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	FinishedAt     time.Time   `json:"finished_at"`
}

// BatchStatusReport is a read model combining a batch with its document status counts.
type BatchStatusReport struct {
	Batch          *Batch                 `json:"batch"`
	DocumentCounts map[DocumentStatus]int `json:"document_counts"`
}
