package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/smarteducator/aidetector/internal/config"
	"github.com/smarteducator/aidetector/internal/core/domain"
	"github.com/smarteducator/aidetector/internal/core/ports"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		RecordStore:          config.RecordStoreMemory,
		BlobStore:            config.BlobStoreLocalFS,
		StoragePath:          t.TempDir(),
		BatchPollInterval:    10 * time.Millisecond,
		BlobRetryMaxAttempts: 1,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWiresSubmissionThroughProcessing(t *testing.T) {
	ctx := context.Background()
	app, err := New(ctx, memoryConfig(t), quietLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	batch, err := app.IngestUC.Submit(ctx, ports.SubmitBatchInput{
		TeacherID: "teacher-1",
		Priority:  domain.PriorityHigh,
		Files: []ports.UploadFile{
			{Filename: "essay.txt", Body: strings.NewReader("two words")},
			{Filename: "notes.txt", Body: strings.NewReader("three more words")},
		},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if batch.Status != domain.BatchQueued {
		t.Fatalf("expected queued batch, got %s", batch.Status)
	}

	if !app.Processor.ProcessNext(ctx) {
		t.Fatalf("expected the submitted batch to be claimed")
	}

	report, err := app.StatusUC.GetBatchStatus(ctx, "teacher-1", batch.ID)
	if err != nil {
		t.Fatalf("GetBatchStatus() error = %v", err)
	}
	if report.Batch.Status != domain.BatchCompleted || report.Batch.CompletedFiles != 2 {
		t.Fatalf("unexpected batch after processing: %+v", report.Batch)
	}
	if report.DocumentCounts[domain.DocumentCompleted] != 2 {
		t.Fatalf("expected two completed documents, got %+v", report.DocumentCounts)
	}
}

func TestNewRejectsUnknownRecordStore(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.RecordStore = "sqlite"

	if _, err := New(context.Background(), cfg, quietLogger()); err == nil {
		t.Fatalf("expected error for unknown record store")
	}
}

func TestNewRequiresBucketForGCS(t *testing.T) {
	cfg := memoryConfig(t)
	cfg.BlobStore = config.BlobStoreGCS

	_, err := New(context.Background(), cfg, quietLogger())
	if err == nil || !strings.Contains(err.Error(), "GCS_BUCKET") {
		t.Fatalf("expected missing bucket error, got %v", err)
	}
}

func TestProcessorConfigKeepsDefaultsForZeroValues(t *testing.T) {
	got := processorConfig(config.Config{DocumentRatePerSec: 2, DocumentTimeout: time.Minute})
	if got.PollInterval != 10*time.Second || got.PollBackoff != 1.0 {
		t.Fatalf("expected default polling, got %+v", got)
	}
	if got.DocumentRate != 2 || got.DocumentTimeout != time.Minute {
		t.Fatalf("expected document pacing overrides, got %+v", got)
	}

	got = processorConfig(config.Config{BatchPollInterval: time.Second, BatchPollMaxInterval: 8 * time.Second, BatchPollBackoff: 2})
	if got.PollInterval != time.Second || got.PollMaxInterval != 8*time.Second || got.PollBackoff != 2 {
		t.Fatalf("unexpected polling overrides: %+v", got)
	}
}
