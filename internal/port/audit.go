package port

import (
	"context"

	"ocrgate/internal/domain"
)

// InferenceLogRepository records completed and failed inference requests
// for operators. Writes are best-effort; a failing sink must never block
// or fail the request that produced the entry.
type InferenceLogRepository interface {
	Insert(ctx context.Context, entry *domain.InferenceLogEntry) error
}
