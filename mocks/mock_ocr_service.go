package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ocrgate/internal/oai"
)

// MockOcrService is a mock implementation of service.OcrService.
type MockOcrService struct {
	mock.Mock
}

func (m *MockOcrService) Process(ctx context.Context, requestID string, req *oai.ChatCompletionRequest) (*oai.ChatCompletionResponse, error) {
	args := m.Called(ctx, requestID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oai.ChatCompletionResponse), args.Error(1)
}
