package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

type ResultRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *ResultRepository) CreateResult(ctx context.Context, result *domain.Result) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO results (id, document_id, teacher_id, status, score, label, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`, result.ID, result.DocumentID, result.TeacherID, string(result.Status), result.Score, result.Label, result.CreatedAt, result.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (r *ResultRepository) GetResultByDocumentID(ctx context.Context, documentID string) (*domain.Result, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, document_id, teacher_id, status, score, label, created_at, updated_at, deleted_at
FROM results
WHERE document_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC
LIMIT 1
`, documentID)

	var result domain.Result
	var status string
	err := row.Scan(
		&result.ID, &result.DocumentID, &result.TeacherID, &status, &result.Score, &result.Label,
		&result.CreatedAt, &result.UpdatedAt, &result.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrResultNotFound, "get result", fmt.Errorf("document_id=%s", documentID))
		}
		return nil, fmt.Errorf("scan result: %w", err)
	}
	if result.Status, err = domain.ParseResultStatus(status); err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *ResultRepository) UpdateResultStatus(ctx context.Context, id string, status domain.ResultStatus) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE results
SET status = $2, updated_at = $3
WHERE id = $1 AND deleted_at IS NULL
`, id, string(status), r.now())
	if err != nil {
		return fmt.Errorf("update result status: %w", err)
	}
	return requireAffected(res, domain.ErrResultNotFound, "update result status", id)
}
