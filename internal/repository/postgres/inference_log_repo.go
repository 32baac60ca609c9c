package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"ocrgate/internal/domain"
	"ocrgate/internal/port"
)

type inferenceLogRepo struct {
	db *sqlx.DB
}

// NewInferenceLogRepo creates a PostgreSQL-backed inference audit log.
func NewInferenceLogRepo(db *sqlx.DB) port.InferenceLogRepository {
	return &inferenceLogRepo{db: db}
}

func (r *inferenceLogRepo) Insert(ctx context.Context, entry *domain.InferenceLogEntry) error {
	query := `
		INSERT INTO inference_log (
			id, request_id, preset, task, image_width, image_height,
			status, error, detections, prompt_tokens, completion_tokens,
			duration_ms, created_at
		) VALUES (
			:id, :request_id, :preset, :task, :image_width, :image_height,
			:status, :error, :detections, :prompt_tokens, :completion_tokens,
			:duration_ms, :created_at
		)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("inserting inference log entry: %w", err)
	}
	return nil
}
