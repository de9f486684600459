package repository

import (
	"context"
	"fmt"

	"printshop/storefront/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

// Executor is the subset of pgxpool.Pool the repository needs.
type Executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type SubmissionRepository interface {
	SaveSubmission(ctx context.Context, submission *domain.FormSubmission) error
}

type submissionRepository struct {
	db Executor
}

func NewSubmissionRepository(db Executor) SubmissionRepository {
	return &submissionRepository{
		db: db,
	}
}

// SaveSubmission stores the fields as a jsonb document. Resubmitting the same id
// replaces the stored fields.
func (r *submissionRepository) SaveSubmission(ctx context.Context, submission *domain.FormSubmission) error {
	query := `
	INSERT INTO form_submissions (id, form_name, data, submitted_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (id)
	DO UPDATE SET form_name = $2, data = $3, submitted_at = $4`
	_, err := r.db.Exec(ctx, query,
		submission.ID,
		submission.FormName,
		submission.Fields,
		submission.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save %s submission: %w", submission.FormName, err)
	}

	return nil
}

// Schema creates the submissions table when it does not exist yet.
const Schema = `
CREATE TABLE IF NOT EXISTS form_submissions (
	id           uuid PRIMARY KEY,
	form_name    text NOT NULL,
	data         jsonb NOT NULL,
	submitted_at timestamptz NOT NULL
)`

func EnsureSchema(ctx context.Context, db Executor) error {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to create form_submissions table: %w", err)
	}
	return nil
}
