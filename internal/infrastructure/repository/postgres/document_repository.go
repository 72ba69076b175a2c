package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/smarteducator/aidetector/internal/core/domain"
)

const documentColumns = `id, batch_id, queue_position, processing_priority, teacher_id, original_filename, storage_path, file_type, status, character_count, word_count, student_id, assignment_id, created_at, updated_at, deleted_at`

type DocumentRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (r *DocumentRepository) CreateDocument(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (`+documentColumns+`)
VALUES ($1,NULLIF($2, ''),$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
`,
		doc.ID, doc.BatchID, doc.QueuePosition, doc.ProcessingPriority, doc.TeacherID, doc.OriginalFilename,
		doc.StoragePath, string(doc.FileType), string(doc.Status), doc.CharacterCount, doc.WordCount,
		doc.StudentID, doc.AssignmentID, doc.CreatedAt, doc.UpdatedAt, doc.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1 AND deleted_at IS NULL
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

// ListDocumentsByBatch returns the live documents of a batch in insertion order.
func (r *DocumentRepository) ListDocumentsByBatch(ctx context.Context, batchID string) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE batch_id = $1 AND deleted_at IS NULL
ORDER BY created_at ASC
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

// UpdateDocument writes the status and, when set, the text counts. The owner
// is part of the predicate so a document is never touched on behalf of another
// teacher.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, id, teacherID string, update domain.DocumentUpdate) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $3,
	character_count = COALESCE($4, character_count),
	word_count = COALESCE($5, word_count),
	updated_at = $6
WHERE id = $1 AND teacher_id = $2 AND deleted_at IS NULL
`, id, teacherID, string(update.Status), update.CharacterCount, update.WordCount, r.now())
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	return requireAffected(res, domain.ErrDocumentNotFound, "update document", id)
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var batchID sql.NullString
	var fileType, status string

	err := row.Scan(
		&doc.ID, &batchID, &doc.QueuePosition, &doc.ProcessingPriority, &doc.TeacherID, &doc.OriginalFilename,
		&doc.StoragePath, &fileType, &status, &doc.CharacterCount, &doc.WordCount,
		&doc.StudentID, &doc.AssignmentID, &doc.CreatedAt, &doc.UpdatedAt, &doc.DeletedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.BatchID = nullString(batchID)
	doc.FileType = domain.FileType(fileType)
	if doc.Status, err = domain.ParseDocumentStatus(status); err != nil {
		return nil, err
	}
	return &doc, nil
}
