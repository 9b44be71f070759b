package mocks

import (
	"context"

	"invoicescan/internal/model"
	"invoicescan/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockInvoiceIndex struct {
	mock.Mock
}

func (m *MockInvoiceIndex) Create(ctx context.Context, s *model.InvoiceSummary) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockInvoiceIndex) FindByHandle(ctx context.Context, handle string) (*model.InvoiceSummary, error) {
	args := m.Called(ctx, handle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.InvoiceSummary), args.Error(1)
}

func (m *MockInvoiceIndex) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.InvoiceSummary], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.InvoiceSummary]), args.Error(1)
}

func (m *MockInvoiceIndex) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
