package oai

import (
	"encoding/base64"
	"strings"
	"time"

	"github.com/google/uuid"

	"ocrgate/internal/domain"
)

// EstimateTokens approximates a token count from text when the runner
// does not report one. It is a deliberately crude whitespace word count
// and is flagged as approximate in the response.
func EstimateTokens(text string) int {
	return len(strings.Fields(text))
}

// AssembleChatCompletion packages a fully processed OCR result into the
// chat-completion envelope. It is only called on the success path;
// failures are mapped to error responses at the HTTP boundary.
func AssembleChatCompletion(model string, result *domain.OcrResult) *ChatCompletionResponse {
	resp := &ChatCompletionResponse{
		ID:      "chatcmpl-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:8],
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      Message{Role: "assistant", Content: MessageContent{Text: result.Text}},
				FinishReason: "stop",
			},
		},
		Usage: Usage{
			PromptTokens:     result.PromptTokens,
			CompletionTokens: result.CompletionTokens,
			TotalTokens:      result.PromptTokens + result.CompletionTokens,
		},
		UsageEstimated: result.TokensEstimated,
	}

	for _, d := range result.Detections {
		resp.Detections = append(resp.Detections, DetectionBox{
			Label: d.Label,
			Box:   [4]int{d.X0, d.Y0, d.X1, d.Y1},
		})
	}

	if result.AnnotatedURL != "" {
		resp.AnnotatedImageURL = result.AnnotatedURL
	} else if len(result.AnnotatedPNG) > 0 {
		resp.AnnotatedImage = base64.StdEncoding.EncodeToString(result.AnnotatedPNG)
	}

	return resp
}
