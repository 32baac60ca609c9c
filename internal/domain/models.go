package domain

import (
	"time"
)

// SizePreset is a named resolution configuration for the OCR model.
type SizePreset struct {
	Name      string `json:"name"`
	BaseSize  int    `json:"base_size"`
	ImageSize int    `json:"image_size"`
	CropMode  bool   `json:"crop_mode"`
}

// TaskTemplate is a named prompt skeleton selecting an OCR behavior.
type TaskTemplate struct {
	TaskType TaskType `json:"task_type"`
	Template string   `json:"template"`
}

// OcrJob is one validated unit of inference work. It is created by the
// request translator and never mutated afterwards.
type OcrJob struct {
	ImageData   []byte
	ContentType string
	Width       int
	Height      int
	Preset      SizePreset
	Task        TaskTemplate
	RefText     string
	Instruction string
	Prompt      string
	SubmittedAt time.Time
	Deadline    time.Time
}

// InferenceResult is the raw outcome of one model pass.
type InferenceResult struct {
	RawText          string
	PromptTokens     int
	CompletionTokens int
	// TokensEstimated marks token counts that were approximated locally
	// because the runner did not report them.
	TokensEstimated bool
	Elapsed         time.Duration
}

// Detection is a labeled bounding box with coordinates normalized to [0,1].
type Detection struct {
	Label string  `json:"label"`
	X0    float64 `json:"x0"`
	Y0    float64 `json:"y0"`
	X1    float64 `json:"x1"`
	Y1    float64 `json:"y1"`
}

// PixelDetection is a Detection scaled to image pixel space.
type PixelDetection struct {
	Label string `json:"label"`
	X0    int    `json:"x0"`
	Y0    int    `json:"y0"`
	X1    int    `json:"x1"`
	Y1    int    `json:"y1"`
}

// OcrResult is the fully processed outcome of a job: marker-free text,
// pixel-space detections, and an optional annotated copy of the input image.
type OcrResult struct {
	Text             string
	Detections       []PixelDetection
	AnnotatedPNG     []byte
	AnnotatedURL     string
	PromptTokens     int
	CompletionTokens int
	TokensEstimated  bool
	Elapsed          time.Duration
}

// InferenceLogEntry is one row of the optional inference audit log.
type InferenceLogEntry struct {
	ID               string    `db:"id"`
	RequestID        string    `db:"request_id"`
	Preset           string    `db:"preset"`
	Task             string    `db:"task"`
	ImageWidth       int       `db:"image_width"`
	ImageHeight      int       `db:"image_height"`
	Status           string    `db:"status"`
	Error            string    `db:"error"`
	Detections       int       `db:"detections"`
	PromptTokens     int       `db:"prompt_tokens"`
	CompletionTokens int       `db:"completion_tokens"`
	DurationMs       int64     `db:"duration_ms"`
	CreatedAt        time.Time `db:"created_at"`
}
