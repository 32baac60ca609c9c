// Package oai defines the OpenAI-compatible wire types served by the
// gateway, plus the response assembler that packages pipeline results
// into the chat-completion envelope.
package oai

import "encoding/json"

// ImageURL is the image_url block of a multi-modal content part.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentPart is one element of a multi-modal message content list.
type ContentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// Message is a chat message. Content accepts either a plain string or a
// list of content parts, matching what OpenAI clients send.
type Message struct {
	Role    string         `json:"role"`
	Content MessageContent `json:"content"`
}

// MessageContent holds either a plain-text body or structured parts.
type MessageContent struct {
	Text  string
	Parts []ContentPart
}

// UnmarshalJSON accepts both the string and the array form of content.
func (m *MessageContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		m.Text = s
		m.Parts = nil
		return nil
	}
	var parts []ContentPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	m.Parts = parts
	return nil
}

// MarshalJSON emits the string form when no parts are present.
func (m MessageContent) MarshalJSON() ([]byte, error) {
	if m.Parts == nil {
		return json.Marshal(m.Text)
	}
	return json.Marshal(m.Parts)
}

// ExtraBody carries the OCR-specific side-channel parameters.
type ExtraBody struct {
	ModelSize string `json:"model_size,omitempty"`
	TaskType  string `json:"task_type,omitempty"`
	RefText   string `json:"ref_text,omitempty"`
}

// ChatCompletionRequest is the inbound request shape.
type ChatCompletionRequest struct {
	Model       string     `json:"model"`
	Messages    []Message  `json:"messages"`
	Temperature float64    `json:"temperature,omitempty"`
	MaxTokens   int        `json:"max_tokens,omitempty"`
	ExtraBody   *ExtraBody `json:"extra_body,omitempty"`
}

// Choice is one completion choice.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage reports token consumption for the request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// DetectionBox is a pixel-space bounding box included alongside the text
// when the model emitted grounding output.
type DetectionBox struct {
	Label string `json:"label"`
	Box   [4]int `json:"box"` // [x0, y0, x1, y1]
}

// ChatCompletionResponse is the outbound response envelope. The annotated
// image fields are gateway extensions: exactly one of AnnotatedImage
// (inline base64 PNG) or AnnotatedImageURL (presigned link) is set, and
// only when detections are present.
type ChatCompletionResponse struct {
	ID                string         `json:"id"`
	Object            string         `json:"object"`
	Created           int64          `json:"created"`
	Model             string         `json:"model"`
	Choices           []Choice       `json:"choices"`
	Usage             Usage          `json:"usage"`
	Detections        []DetectionBox `json:"detections,omitempty"`
	AnnotatedImage    string         `json:"annotated_image,omitempty"`
	AnnotatedImageURL string         `json:"annotated_image_url,omitempty"`
	// UsageEstimated is true when the runner did not report token counts
	// and the usage block is a local approximation.
	UsageEstimated bool `json:"usage_estimated,omitempty"`
}

// ModelInfo describes one entry of the /v1/models listing.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}

// ModelList is the /v1/models response envelope.
type ModelList struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// APIError is the OpenAI-style error body.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// ErrorResponse wraps APIError the way OpenAI clients expect.
type ErrorResponse struct {
	Error APIError `json:"error"`
}
