package mocks

import (
	"context"
	"io"

	"invoicescan/internal/export"
	"invoicescan/internal/model"
	"invoicescan/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Process(ctx context.Context, r io.Reader, filename, contentType string, size int64) (*service.ProcessResult, error) {
	args := m.Called(ctx, r, filename, contentType, size)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ProcessResult), args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context, limit, offset int) (*service.InvoiceListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InvoiceListResult), args.Error(1)
}

func (m *MockInvoiceService) Get(ctx context.Context, handle string) (*model.InvoiceRecord, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceService) Export(ctx context.Context, handles []string, format export.Format) (*service.ExportResult, error) {
	args := m.Called(ctx, handles, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportResult), args.Error(1)
}

func (m *MockInvoiceService) Source(ctx context.Context, handle string) (*service.SourceResult, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SourceResult), args.Error(1)
}

func (m *MockInvoiceService) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
