package port

import (
	"context"
	"errors"
)

// ErrEngineOutOfMemory is returned by engine implementations when the
// accelerator ran out of memory. The executor surfaces it distinctly so
// callers can retry with a smaller size preset.
var ErrEngineOutOfMemory = errors.New("engine: accelerator out of memory")

// InferInput carries one prompt-plus-image payload to the model runner.
type InferInput struct {
	Prompt    string
	ImagePNG  []byte
	BaseSize  int
	ImageSize int
	CropMode  bool
}

// InferOutput is the runner's raw answer. Token counts are zero when the
// runner does not report them.
type InferOutput struct {
	RawText          string
	PromptTokens     int
	CompletionTokens int
}

// InferenceEngine abstracts the GPU-resident model and its tokenizer.
// Load brings the weights into accelerator memory; Infer performs one
// forward pass. Implementations are not required to be safe for
// concurrent Infer calls - serialization is the model manager's job.
type InferenceEngine interface {
	Load(ctx context.Context) error
	Infer(ctx context.Context, input InferInput) (*InferOutput, error)
}
