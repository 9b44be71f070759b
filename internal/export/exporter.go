// Package export renders invoice records as downloadable CSV, JSON or XLSX.
//
// CSV and JSON output is deterministic: the same records in the same order
// always produce byte-identical output.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"invoicescan/internal/model"

	"github.com/shopspring/decimal"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

var header = []string{"source_filename", "invoice_number", "invoice_date", "total_amount"}

// ParseFormat maps a user-supplied format name to a Format. Case and surrounding space are ignored.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type for the format.
func ContentType(f Format) string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the file extension (with dot) for the format.
func Extension(f Format) string {
	return "." + string(f)
}

// Export serializes records in the given format, preserving their order.
func Export(records []model.InvoiceRecord, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return exportCSV(records)
	case FormatJSON:
		return exportJSON(records)
	case FormatXLSX:
		return exportXLSX(records)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(f))
	}
}

type jsonRow struct {
	SourceFilename string       `json:"source_filename"`
	InvoiceNumber  *string      `json:"invoice_number"`
	InvoiceDate    *string      `json:"invoice_date"`
	TotalAmount    *json.Number `json:"total_amount"`
}

func exportJSON(records []model.InvoiceRecord) ([]byte, error) {
	rows := make([]jsonRow, 0, len(records))
	for _, r := range records {
		row := jsonRow{
			SourceFilename: r.SourceFilename,
			InvoiceNumber:  r.InvoiceNumber,
			InvoiceDate:    r.InvoiceDate,
		}
		if r.TotalAmount != nil {
			n := json.Number(formatAmount(*r.TotalAmount))
			row.TotalAmount = &n
		}
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

func exportCSV(records []model.InvoiceRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, r := range records {
		amount := ""
		if r.TotalAmount != nil {
			amount = formatAmount(*r.TotalAmount)
		}
		if err := w.Write([]string{r.SourceFilename, deref(r.InvoiceNumber), deref(r.InvoiceDate), amount}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
