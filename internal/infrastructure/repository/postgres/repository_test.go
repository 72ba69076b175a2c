package postgres

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

var batchRowColumns = []string{
	"id", "teacher_id", "total_files", "completed_files", "failed_files", "status", "priority",
	"error_message", "created_at", "updated_at", "deleted_at",
}

var documentRowColumns = []string{
	"id", "batch_id", "queue_position", "processing_priority", "teacher_id", "original_filename",
	"storage_path", "file_type", "status", "character_count", "word_count", "student_id",
	"assignment_id", "created_at", "updated_at", "deleted_at",
}

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewStore(db), mock, func() { _ = db.Close() }
}

func TestClaimNextBatchReturnsClaimedBatch(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(batchRowColumns).
		AddRow("b-1", "t-1", 3, 0, 0, "PROCESSING", "urgent", nil, created, created, nil)

	mock.ExpectQuery("UPDATE batches").
		WithArgs(string(domain.BatchProcessing), sqlmock.AnyArg(), string(domain.BatchQueued)).
		WillReturnRows(rows)

	batch, err := store.ClaimNextBatch(context.Background())
	if err != nil {
		t.Fatalf("ClaimNextBatch() error = %v", err)
	}
	if batch == nil || batch.ID != "b-1" || batch.Status != domain.BatchProcessing || batch.Priority != domain.PriorityUrgent {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	if batch.ErrorMessage != "" || batch.DeletedAt != nil {
		t.Fatalf("expected null columns to map to zero values, got %+v", batch)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimNextBatchReturnsNilWhenQueueEmpty(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("UPDATE batches").
		WillReturnRows(sqlmock.NewRows(batchRowColumns))

	batch, err := store.ClaimNextBatch(context.Background())
	if err != nil || batch != nil {
		t.Fatalf("expected nil, nil; got %+v, %v", batch, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestClaimQueryOrdersByPriorityRank(t *testing.T) {
	got := priorityRankSQL("priority")
	want := "CASE priority WHEN 'low' THEN 0 WHEN 'normal' THEN 1 WHEN 'high' THEN 2 WHEN 'urgent' THEN 3 ELSE -1 END"
	if got != want {
		t.Fatalf("priorityRankSQL() = %q", got)
	}
	for _, fragment := range []string{want + " DESC, created_at ASC", "FOR UPDATE SKIP LOCKED", "deleted_at IS NULL"} {
		if !strings.Contains(claimQuery, fragment) {
			t.Fatalf("claim query missing %q", fragment)
		}
	}
}

func TestGetBatchReturnsDomainNotFound(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("FROM batches").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetBatch(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestFinishBatchWritesCountsAndMessage(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE batches").
		WithArgs("b-1", string(domain.BatchPartial), 2, 1, "Failed to process 1 files", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.FinishBatch(context.Background(), "b-1", domain.BatchSummary{
		Status:         domain.BatchPartial,
		CompletedFiles: 2,
		FailedFiles:    1,
		ErrorMessage:   "Failed to process 1 files",
	})
	if err != nil {
		t.Fatalf("FinishBatch() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateBatchStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE batches").
		WithArgs("missing", string(domain.BatchQueued), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateBatchStatus(context.Background(), "missing", domain.BatchQueued, "")
	if !domain.IsKind(err, domain.ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateDocumentIsScopedToOwner(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	chars, words := 16, 3
	mock.ExpectExec("UPDATE documents").
		WithArgs("d-1", "t-1", string(domain.DocumentCompleted), int64(chars), int64(words), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateDocument(context.Background(), "d-1", "t-1", domain.DocumentUpdate{
		Status:         domain.DocumentCompleted,
		CharacterCount: &chars,
		WordCount:      &words,
	})
	if err != nil {
		t.Fatalf("UpdateDocument() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateDocumentReturnsDomainNotFoundForOtherOwner(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("d-1", "intruder", string(domain.DocumentProcessing), nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateDocument(context.Background(), "d-1", "intruder", domain.DocumentUpdate{Status: domain.DocumentProcessing})
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestListDocumentsByBatchScansNullableColumns(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows(documentRowColumns).
		AddRow("d-1", "b-1", 2, 1, "t-1", "essay.txt", "b-1/d-1_essay.txt", "txt", "UPLOADED", nil, nil, "", "", now, now, nil).
		AddRow("d-2", "b-1", nil, 1, "t-1", "notes.pdf", "b-1/d-2_notes.pdf", "pdf", "COMPLETED", 120, 20, "s-1", "", now, now, nil)

	mock.ExpectQuery("FROM documents").
		WithArgs("b-1").
		WillReturnRows(rows)

	docs, err := store.ListDocumentsByBatch(context.Background(), "b-1")
	if err != nil {
		t.Fatalf("ListDocumentsByBatch() error = %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}
	if docs[0].QueuePosition == nil || *docs[0].QueuePosition != 2 || docs[0].CharacterCount != nil {
		t.Fatalf("unexpected first document: %+v", docs[0])
	}
	if docs[1].QueuePosition != nil || docs[1].WordCount == nil || *docs[1].WordCount != 20 {
		t.Fatalf("unexpected second document: %+v", docs[1])
	}
	if docs[1].FileType != domain.FileTypePDF || docs[1].Status != domain.DocumentCompleted {
		t.Fatalf("unexpected enums: %+v", docs[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetResultByDocumentIDReturnsDomainNotFound(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("FROM results").
		WithArgs("d-1").
		WillReturnError(sql.ErrNoRows)

	_, err := store.GetResultByDocumentID(context.Background(), "d-1")
	if !domain.IsKind(err, domain.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateResultStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE results").
		WithArgs("r-1", string(domain.ResultCompleted), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateResultStatus(context.Background(), "r-1", domain.ResultCompleted)
	if !domain.IsKind(err, domain.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
