package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ocrgate/internal/port"
)

// MockInferenceEngine is a mock implementation of port.InferenceEngine.
type MockInferenceEngine struct {
	mock.Mock
}

func (m *MockInferenceEngine) Load(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockInferenceEngine) Infer(ctx context.Context, input port.InferInput) (*port.InferOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.InferOutput), args.Error(1)
}
