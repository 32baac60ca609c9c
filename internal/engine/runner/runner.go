// Package runner implements port.InferenceEngine against the colocated
// GPU model runner process, which exposes a small HTTP API on localhost.
package runner

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ocrgate/internal/config"
	"ocrgate/internal/port"
)

// Engine talks to the model runner over HTTP. Request deadlines are
// carried by the caller's context; the underlying client has no timeout
// of its own since load and inference operate on very different scales.
type Engine struct {
	endpoint  string
	modelName string
	client    *http.Client
}

// NewEngine creates a runner-backed inference engine from config.
func NewEngine(cfg *config.RunnerConfig) *Engine {
	return &Engine{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		modelName: cfg.ModelName,
		client:    &http.Client{},
	}
}

// NewEngineWithClient creates an engine with a custom HTTP client (for testing).
func NewEngineWithClient(cfg *config.RunnerConfig, client *http.Client) *Engine {
	e := NewEngine(cfg)
	e.client = client
	return e
}

type loadRequest struct {
	Model string `json:"model"`
}

type inferRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	ImageB64  string `json:"image_b64"`
	BaseSize  int    `json:"base_size"`
	ImageSize int    `json:"image_size"`
	CropMode  bool   `json:"crop_mode"`
}

type inferResponse struct {
	Text             string `json:"text"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
}

type runnerError struct {
	Error string `json:"error"`
}

// Load asks the runner to bring the model weights into accelerator
// memory. The runner answers only once loading has finished or failed.
func (e *Engine) Load(ctx context.Context) error {
	body, err := json.Marshal(loadRequest{Model: e.modelName})
	if err != nil {
		return fmt.Errorf("marshaling load request: %w", err)
	}
	resp, err := e.post(ctx, "/load", body)
	if err != nil {
		return fmt.Errorf("calling runner load: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return e.statusError(resp)
	}
	return nil
}

// Infer performs one forward pass. The caller holds the execution lane;
// the runner itself serves one request at a time.
func (e *Engine) Infer(ctx context.Context, input port.InferInput) (*port.InferOutput, error) {
	body, err := json.Marshal(inferRequest{
		Model:     e.modelName,
		Prompt:    input.Prompt,
		ImageB64:  base64.StdEncoding.EncodeToString(input.ImagePNG),
		BaseSize:  input.BaseSize,
		ImageSize: input.ImageSize,
		CropMode:  input.CropMode,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling infer request: %w", err)
	}

	resp, err := e.post(ctx, "/infer", body)
	if err != nil {
		return nil, fmt.Errorf("calling runner infer: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, e.statusError(resp)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading runner response: %w", err)
	}
	var out inferResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshaling runner response: %w", err)
	}

	return &port.InferOutput{
		RawText:          out.Text,
		PromptTokens:     out.PromptTokens,
		CompletionTokens: out.CompletionTokens,
	}, nil
}

func (e *Engine) post(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return e.client.Do(req)
}

// statusError maps a non-200 runner reply to an error. The runner
// reports CUDA memory exhaustion with 507 Insufficient Storage.
func (e *Engine) statusError(resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	msg := strings.TrimSpace(string(respBody))
	var rerr runnerError
	if err := json.Unmarshal(respBody, &rerr); err == nil && rerr.Error != "" {
		msg = rerr.Error
	}

	if resp.StatusCode == http.StatusInsufficientStorage || strings.Contains(strings.ToLower(msg), "out of memory") {
		return fmt.Errorf("%w: %s", port.ErrEngineOutOfMemory, msg)
	}
	return fmt.Errorf("runner error (status %d): %s", resp.StatusCode, msg)
}
