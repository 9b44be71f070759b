package bolt

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"invoicescan/internal/model"
	"invoicescan/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *InvoiceBolt {
	t.Helper()
	idx, err := Open(filepath.Join(t.TempDir(), "index", "invoices.db"))
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func summary(n int, at time.Time) *model.InvoiceSummary {
	return &model.InvoiceSummary{
		Handle:         fmt.Sprintf("invoice_pdf-20240101T000000Z-0000000%d", n),
		SourceFilename: "invoice.pdf",
		ProcessedAt:    at,
	}
}

func TestInvoiceBolt_CreateFind(t *testing.T) {
	idx := openTemp(t)
	ctx := context.Background()

	number := "INV-2024-001"
	amount := decimal.RequireFromString("1250.00")
	s := summary(1, time.Now().UTC())
	s.InvoiceNumber = &number
	s.TotalAmount = &amount

	require.NoError(t, idx.Create(ctx, s))

	got, err := idx.FindByHandle(ctx, s.Handle)
	require.NoError(t, err)
	assert.Equal(t, s.Handle, got.Handle)
	assert.Equal(t, number, *got.InvoiceNumber)
	assert.Nil(t, got.InvoiceDate)
	assert.True(t, amount.Equal(*got.TotalAmount))

	assert.ErrorIs(t, idx.Create(ctx, s), repository.ErrDuplicate)

	_, err = idx.FindByHandle(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestInvoiceBolt_List(t *testing.T) {
	idx := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 1; i <= 5; i++ {
		require.NoError(t, idx.Create(ctx, summary(i, base.Add(time.Duration(i)*time.Minute))))
	}

	page, err := idx.List(ctx, repository.PageQuery{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	require.Len(t, page.Items, 2)
	assert.Equal(t, summary(5, base).Handle, page.Items[0].Handle)
	assert.Equal(t, summary(4, base).Handle, page.Items[1].Handle)

	page, err = idx.List(ctx, repository.PageQuery{Limit: 10, Offset: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, summary(1, base).Handle, page.Items[1].Handle)

	page, err = idx.List(ctx, repository.PageQuery{Limit: 10, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 5, page.Total)
}

func TestInvoiceBolt_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoices.db")
	idx, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, idx.Create(context.Background(), summary(1, time.Now())))
	require.NoError(t, idx.Ping(context.Background()))
	require.NoError(t, idx.Close())

	idx, err = Open(path)
	require.NoError(t, err)
	defer idx.Close()
	page, err := idx.List(context.Background(), repository.PageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
}
