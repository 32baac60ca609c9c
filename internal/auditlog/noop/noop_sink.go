// Package noop provides an inference audit sink for deployments without
// a database. Entries are emitted to the process log instead.
package noop

import (
	"context"
	"log"

	"ocrgate/internal/domain"
	"ocrgate/internal/port"
)

type sink struct{}

// NewSink creates a log-only InferenceLogRepository.
func NewSink() port.InferenceLogRepository {
	return &sink{}
}

func (s *sink) Insert(_ context.Context, entry *domain.InferenceLogEntry) error {
	log.Printf("auditlog: [%s] task=%s preset=%s status=%s detections=%d duration=%dms",
		entry.RequestID, entry.Task, entry.Preset, entry.Status, entry.Detections, entry.DurationMs)
	return nil
}
