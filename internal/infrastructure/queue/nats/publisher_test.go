package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

func TestEncodeEventUsesSnakeCaseFields(t *testing.T) {
	payload, err := encodeEvent(domain.BatchFinishedEvent{
		BatchID:        "b-1",
		TeacherID:      "t-1",
		Status:         domain.BatchPartial,
		CompletedFiles: 2,
		FailedFiles:    1,
		ErrorMessage:   "Failed to process 1 files",
		FinishedAt:     time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("encodeEvent() error = %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["batch_id"] != "b-1" || decoded["status"] != "PARTIAL" || decoded["failed_files"] != float64(1) {
		t.Fatalf("unexpected payload: %s", payload)
	}
}

func TestClassifyNATSError(t *testing.T) {
	if class := classifyNATSError(fmt.Errorf("publish: %w", nats.ErrConnectionClosed)); !class.Retryable {
		t.Fatalf("expected closed connection to be retryable")
	}
	if class := classifyNATSError(context.Canceled); class.Retryable || class.RecordFailure {
		t.Fatalf("expected cancellation to be neither retried nor recorded")
	}
	if class := classifyNATSError(nats.ErrBadSubject); class.Retryable {
		t.Fatalf("expected bad subject to be permanent")
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrTimeout); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected timeout to become temporary, got %v", err)
	}
	if err := wrapTemporaryIfNeeded(gobreaker.ErrOpenState); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected open circuit to become temporary, got %v", err)
	}
	permanent := errors.New("bad payload")
	if err := wrapTemporaryIfNeeded(permanent); err != permanent {
		t.Fatalf("expected permanent error untouched, got %v", err)
	}
}
