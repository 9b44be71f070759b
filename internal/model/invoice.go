package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceFields holds the best-effort fields derived from a document's text.
// A nil field means no rule matched; absence is never an error.
type InvoiceFields struct {
	InvoiceNumber *string          `json:"invoice_number"`
	InvoiceDate   *string          `json:"invoice_date"`
	TotalAmount   *decimal.Decimal `json:"total_amount"`
}

// InvoiceRecord is the result of processing one uploaded document.
// It is created once and never updated.
type InvoiceRecord struct {
	SourceFilename   string           `json:"source_filename"`
	InvoiceNumber    *string          `json:"invoice_number"`
	InvoiceDate      *string          `json:"invoice_date"`
	TotalAmount      *decimal.Decimal `json:"total_amount"`
	RawText          string           `json:"raw_text"`
	MediaType        string           `json:"media_type,omitempty"`
	ExtractionMethod string           `json:"extraction_method,omitempty"`
	SourceKey        string           `json:"source_key,omitempty"`
	ProcessedAt      time.Time        `json:"processed_at"`
}

// NewInvoiceRecord assembles a record from the upload name, its raw text and the derived fields.
func NewInvoiceRecord(sourceFilename, rawText string, fields InvoiceFields) InvoiceRecord {
	return InvoiceRecord{
		SourceFilename: sourceFilename,
		InvoiceNumber:  fields.InvoiceNumber,
		InvoiceDate:    fields.InvoiceDate,
		TotalAmount:    fields.TotalAmount,
		RawText:        rawText,
		ProcessedAt:    time.Now().UTC(),
	}
}

// Fields returns the derived fields of the record.
func (r InvoiceRecord) Fields() InvoiceFields {
	return InvoiceFields{
		InvoiceNumber: r.InvoiceNumber,
		InvoiceDate:   r.InvoiceDate,
		TotalAmount:   r.TotalAmount,
	}
}

// InvoiceSummary is the listing view of a stored record, as kept by an index.
type InvoiceSummary struct {
	Handle         string           `json:"handle"`
	SourceFilename string           `json:"source_filename"`
	InvoiceNumber  *string          `json:"invoice_number"`
	InvoiceDate    *string          `json:"invoice_date"`
	TotalAmount    *decimal.Decimal `json:"total_amount"`
	ProcessedAt    time.Time        `json:"processed_at"`
}

// Summary builds the listing view of the record stored under handle.
func (r InvoiceRecord) Summary(handle string) InvoiceSummary {
	return InvoiceSummary{
		Handle:         handle,
		SourceFilename: r.SourceFilename,
		InvoiceNumber:  r.InvoiceNumber,
		InvoiceDate:    r.InvoiceDate,
		TotalAmount:    r.TotalAmount,
		ProcessedAt:    r.ProcessedAt,
	}
}
