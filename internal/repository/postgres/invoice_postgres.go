package postgres

import (
	"context"
	"database/sql"
	"errors"

	"invoicescan/internal/model"
	"invoicescan/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// InvoicePostgres is a PostgreSQL implementation of repository.InvoiceIndex.
// It uses database/sql with parameterized queries and contains no business logic.
type InvoicePostgres struct {
	db *sql.DB
}

// NewInvoicePostgres creates a new InvoicePostgres index.
func NewInvoicePostgres(db *sql.DB) *InvoicePostgres {
	return &InvoicePostgres{db: db}
}

var _ repository.InvoiceIndex = (*InvoicePostgres)(nil)

const uniqueViolation = "23505"

// Create inserts a new invoice row.
func (r *InvoicePostgres) Create(ctx context.Context, s *model.InvoiceSummary) error {
	const q = `
		INSERT INTO invoices (handle, source_filename, invoice_number, invoice_date, total_amount, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, q,
		s.Handle,
		s.SourceFilename,
		nullString(s.InvoiceNumber),
		nullString(s.InvoiceDate),
		nullDecimal(s.TotalAmount),
		s.ProcessedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrDuplicate
		}
		return err
	}
	return nil
}

// FindByHandle fetches a single invoice row by its handle.
func (r *InvoicePostgres) FindByHandle(ctx context.Context, handle string) (*model.InvoiceSummary, error) {
	const q = `
		SELECT handle, source_filename, invoice_number, invoice_date, total_amount, processed_at
		FROM invoices
		WHERE handle = $1
	`
	s, err := scanSummary(r.db.QueryRowContext(ctx, q, handle))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

// List returns invoices using LIMIT/OFFSET pagination and a total count.
func (r *InvoicePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.InvoiceSummary], error) {
	const qCount = `SELECT COUNT(*) FROM invoices`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	const qList = `
		SELECT handle, source_filename, invoice_number, invoice_date, total_amount, processed_at
		FROM invoices
		ORDER BY processed_at DESC, handle DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.InvoiceSummary, 0)
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.InvoiceSummary]{
		Items: items,
		Total: total,
	}, nil
}

// Ping checks the database connection.
func (r *InvoicePostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (*model.InvoiceSummary, error) {
	var (
		s      model.InvoiceSummary
		number sql.NullString
		date   sql.NullString
		amount decimal.NullDecimal
	)
	if err := row.Scan(&s.Handle, &s.SourceFilename, &number, &date, &amount, &s.ProcessedAt); err != nil {
		return nil, err
	}
	if number.Valid {
		s.InvoiceNumber = &number.String
	}
	if date.Valid {
		s.InvoiceDate = &date.String
	}
	if amount.Valid {
		s.TotalAmount = &amount.Decimal
	}
	return &s, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
