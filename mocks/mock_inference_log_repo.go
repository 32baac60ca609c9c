package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"ocrgate/internal/domain"
)

// MockInferenceLogRepo is a mock implementation of port.InferenceLogRepository.
type MockInferenceLogRepo struct {
	mock.Mock
}

func (m *MockInferenceLogRepo) Insert(ctx context.Context, entry *domain.InferenceLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}
