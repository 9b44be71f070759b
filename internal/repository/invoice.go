// Package repository contains data access layer abstractions for the invoice index.
// Implementations live in subpackages (postgres, bolt) inside this directory.
package repository

import (
	"context"
	"errors"

	"invoicescan/internal/model"
)

var (
	ErrNotFound  = errors.New("invoice not found in index")
	ErrDuplicate = errors.New("invoice already indexed")
)

// InvoiceIndex keeps a listing view of stored records for fast, paginated reads.
// The record store stays the source of truth; no business logic here.
type InvoiceIndex interface {
	// Create inserts the summary of a newly stored record. A handle can be indexed once.
	Create(ctx context.Context, s *model.InvoiceSummary) error

	// FindByHandle returns the summary stored for handle, or ErrNotFound.
	FindByHandle(ctx context.Context, handle string) (*model.InvoiceSummary, error)

	// List returns a page of summaries, newest first, and the total number of rows.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.InvoiceSummary], error)

	// Ping reports whether the index backend is reachable.
	Ping(ctx context.Context) error
}

// PageQuery holds limit/offset pagination parameters.
type PageQuery struct {
	Limit  int
	Offset int
}

// PageResult is a generic pagination result wrapper.
// T is typically a model type.
type PageResult[T any] struct {
	Items []T
	Total int
}
