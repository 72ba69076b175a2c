package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store is the PostgreSQL record store: one handle serving batches, documents
// and results.
type Store struct {
	*BatchRepository
	*DocumentRepository
	*ResultRepository

	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		BatchRepository:    NewBatchRepository(db),
		DocumentRepository: NewDocumentRepository(db),
		ResultRepository:   NewResultRepository(db),
		db:                 db,
	}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025030101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	teacher_id TEXT NOT NULL,
	total_files INTEGER NOT NULL DEFAULT 0,
	completed_files INTEGER NOT NULL DEFAULT 0,
	failed_files INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	priority TEXT NOT NULL DEFAULT 'normal',
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_batches_queue ON batches(status, created_at) WHERE deleted_at IS NULL;
CREATE INDEX IF NOT EXISTS idx_batches_teacher ON batches(teacher_id);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	batch_id TEXT REFERENCES batches(id),
	queue_position INTEGER,
	processing_priority INTEGER NOT NULL DEFAULT 0,
	teacher_id TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	file_type TEXT NOT NULL,
	status TEXT NOT NULL,
	character_count INTEGER,
	word_count INTEGER,
	student_id TEXT NOT NULL DEFAULT '',
	assignment_id TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_documents_batch ON documents(batch_id) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS results (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id),
	teacher_id TEXT NOT NULL,
	status TEXT NOT NULL,
	score DOUBLE PRECISION,
	label TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	deleted_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_results_document ON results(document_id) WHERE deleted_at IS NULL;
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func nullString(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return v.String
}
