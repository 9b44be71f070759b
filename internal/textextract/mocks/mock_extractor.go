package mocks

import (
	"context"

	"invoicescan/internal/textextract"

	"github.com/stretchr/testify/mock"
)

type MockExtractor struct {
	mock.Mock
}

func (m *MockExtractor) Extract(ctx context.Context, data []byte, mediaType string) (textextract.Result, error) {
	args := m.Called(ctx, data, mediaType)
	return args.Get(0).(textextract.Result), args.Error(1)
}
