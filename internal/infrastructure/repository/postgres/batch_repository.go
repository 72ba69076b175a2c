package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

const batchColumns = `id, teacher_id, total_files, completed_files, failed_files, status, priority, error_message, created_at, updated_at, deleted_at`

// claimQuery flips the best queued batch to PROCESSING in one statement.
// SKIP LOCKED keeps concurrent workers from claiming the same row.
var claimQuery = `
UPDATE batches
SET status = $1, updated_at = $2
WHERE id = (
	SELECT id FROM batches
	WHERE status = $3 AND deleted_at IS NULL
	ORDER BY ` + priorityRankSQL("priority") + ` DESC, created_at ASC
	LIMIT 1
	FOR UPDATE SKIP LOCKED
)
RETURNING ` + batchColumns

// priorityRankSQL maps the stored priority token to its numeric rank. Ordering
// by the raw token would sort alphabetically.
func priorityRankSQL(column string) string {
	var b strings.Builder
	b.WriteString("CASE " + column)
	for _, p := range domain.Priorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, p.Rank())
	}
	b.WriteString(" ELSE -1 END")
	return b.String()
}

type BatchRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewBatchRepository(db *sql.DB) *BatchRepository {
	return &BatchRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *BatchRepository) CreateBatch(ctx context.Context, batch *domain.Batch) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO batches (id, teacher_id, total_files, completed_files, failed_files, status, priority, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,NULLIF($8, ''),$9,$10)
`,
		batch.ID, batch.TeacherID, batch.TotalFiles, batch.CompletedFiles, batch.FailedFiles,
		string(batch.Status), string(batch.Priority), batch.ErrorMessage, batch.CreatedAt, batch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+batchColumns+`
FROM batches
WHERE id = $1 AND deleted_at IS NULL
`, id)

	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	return batch, nil
}

func (r *BatchRepository) ClaimNextBatch(ctx context.Context) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, claimQuery,
		string(domain.BatchProcessing), r.now(), string(domain.BatchQueued),
	)
	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim batch: %w", err)
	}
	return batch, nil
}

func (r *BatchRepository) UpdateBatchStatus(ctx context.Context, id string, status domain.BatchStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batches
SET status = $2, error_message = NULLIF($3, ''), updated_at = $4
WHERE id = $1 AND deleted_at IS NULL
`, id, string(status), errMessage, r.now())
	if err != nil {
		return fmt.Errorf("update batch status: %w", err)
	}
	return requireAffected(res, domain.ErrBatchNotFound, "update batch status", id)
}

func (r *BatchRepository) FinishBatch(ctx context.Context, id string, summary domain.BatchSummary) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE batches
SET status = $2, completed_files = $3, failed_files = $4, error_message = NULLIF($5, ''), updated_at = $6
WHERE id = $1
`, id, string(summary.Status), summary.CompletedFiles, summary.FailedFiles, summary.ErrorMessage, r.now())
	if err != nil {
		return fmt.Errorf("finish batch: %w", err)
	}
	return requireAffected(res, domain.ErrBatchNotFound, "finish batch", id)
}

func scanBatch(row rowScanner) (*domain.Batch, error) {
	var batch domain.Batch
	var status, priority string
	var errMessage sql.NullString

	err := row.Scan(
		&batch.ID, &batch.TeacherID, &batch.TotalFiles, &batch.CompletedFiles, &batch.FailedFiles,
		&status, &priority, &errMessage, &batch.CreatedAt, &batch.UpdatedAt, &batch.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	if batch.Status, err = domain.ParseBatchStatus(status); err != nil {
		return nil, err
	}
	if batch.Priority, err = domain.ParseBatchPriority(priority); err != nil {
		return nil, err
	}
	batch.ErrorMessage = nullString(errMessage)
	return &batch, nil
}

func requireAffected(res sql.Result, kind error, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(kind, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
