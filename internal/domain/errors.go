package domain

import "errors"

var (
	ErrUnknownPreset     = errors.New("unknown size preset")
	ErrUnknownTask       = errors.New("unknown task type")
	ErrMissingReference  = errors.New("reference text is required for the locate task")
	ErrNoImage           = errors.New("no image provided in request")
	ErrInvalidImage      = errors.New("image could not be decoded or is not an accepted format")
	ErrModelLoadFailed   = errors.New("model loading failed")
	ErrResourceExhausted = errors.New("accelerator memory exhausted")
	ErrDeadlineExceeded  = errors.New("inference deadline exceeded")
	ErrServerBusy        = errors.New("inference backlog is full")
	ErrInferenceFailed   = errors.New("inference failed")
)
