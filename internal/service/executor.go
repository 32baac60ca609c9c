package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"ocrgate/internal/domain"
	"ocrgate/internal/port"
)

// Executor drives one inference call under the job's deadline and
// classifies failures. It performs no retries; retry policy belongs to
// the caller of the pipeline.
type Executor struct {
	manager *ModelManager
}

// NewExecutor creates an Executor bound to the shared model manager.
func NewExecutor(manager *ModelManager) *Executor {
	return &Executor{manager: manager}
}

// Run executes the job through the model manager's execution lane.
// The job deadline bounds the whole wait, queueing included: a caller
// stuck behind a long lane holder gives up when its deadline fires,
// and a job whose deadline passed while queued fails fast with
// ErrDeadlineExceeded without issuing a model invocation. The lane is
// only released once the engine call has physically returned, so a
// later job can never observe interleaved accelerator state.
func (e *Executor) Run(ctx context.Context, job *domain.OcrJob) (*domain.InferenceResult, error) {
	var result *domain.InferenceResult

	// The request context carries no deadline of its own; the job's
	// deadline governs lane acquisition and the engine call alike.
	ctx, cancel := context.WithDeadline(ctx, job.Deadline)
	defer cancel()

	err := e.manager.WithModel(ctx, func(handle *ModelHandle) error {
		if !time.Now().Before(job.Deadline) {
			return fmt.Errorf("%w: deadline passed while queued", domain.ErrDeadlineExceeded)
		}

		// The deadline bounds how long this caller waits, not how long
		// the accelerator works: the runner call is not preemptible,
		// but the HTTP round trip is abandoned once the context expires.
		start := time.Now()
		out, err := handle.Infer(ctx, port.InferInput{
			Prompt:    job.Prompt,
			ImagePNG:  job.ImageData,
			BaseSize:  job.Preset.BaseSize,
			ImageSize: job.Preset.ImageSize,
			CropMode:  job.Preset.CropMode,
		})
		elapsed := time.Since(start)
		if err != nil {
			return classifyInferError(err, elapsed)
		}

		result = &domain.InferenceResult{
			RawText:          out.RawText,
			PromptTokens:     out.PromptTokens,
			CompletionTokens: out.CompletionTokens,
			Elapsed:          elapsed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func classifyInferError(err error, elapsed time.Duration) error {
	switch {
	case errors.Is(err, port.ErrEngineOutOfMemory):
		return fmt.Errorf("%w: %v", domain.ErrResourceExhausted, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: model call still in flight after %s", domain.ErrDeadlineExceeded, elapsed.Round(time.Millisecond))
	default:
		log.Printf("executor.Run: inference failed after %s: %v", elapsed.Round(time.Millisecond), err)
		return fmt.Errorf("%w: %v", domain.ErrInferenceFailed, err)
	}
}
