package export

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"invoicescan/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func strPtr(s string) *string { return &s }

func amountPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func sampleRecords() []model.InvoiceRecord {
	return []model.InvoiceRecord{
		{
			SourceFilename: "invoice.pdf",
			InvoiceNumber:  strPtr("INV-2024-001"),
			InvoiceDate:    strPtr("12/01/2024"),
			TotalAmount:    amountPtr("1250"),
			RawText:        "Invoice No: INV-2024-001",
			ProcessedAt:    time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC),
		},
		{
			SourceFilename: "blank, scan.png",
			RawText:        "",
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{" JSON ", FormatJSON, false},
		{"xlsx", FormatXLSX, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnsupportedFormat)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", ContentType(FormatCSV))
	assert.Equal(t, "application/json", ContentType(FormatJSON))
	assert.Contains(t, ContentType(FormatXLSX), "spreadsheetml")
	assert.Equal(t, ".xlsx", Extension(FormatXLSX))
}

func TestExport_CSV(t *testing.T) {
	out, err := Export(sampleRecords(), FormatCSV)
	require.NoError(t, err)

	want := "source_filename,invoice_number,invoice_date,total_amount\n" +
		"invoice.pdf,INV-2024-001,12/01/2024,1250.00\n" +
		"\"blank, scan.png\",,,\n"
	assert.Equal(t, want, string(out))
}

func TestExport_CSVEmpty(t *testing.T) {
	out, err := Export(nil, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "source_filename,invoice_number,invoice_date,total_amount\n", string(out))
}

func TestExport_JSON(t *testing.T) {
	out, err := Export(sampleRecords(), FormatJSON)
	require.NoError(t, err)

	want := `[
  {
    "source_filename": "invoice.pdf",
    "invoice_number": "INV-2024-001",
    "invoice_date": "12/01/2024",
    "total_amount": 1250.00
  },
  {
    "source_filename": "blank, scan.png",
    "invoice_number": null,
    "invoice_date": null,
    "total_amount": null
  }
]
`
	assert.Equal(t, want, string(out))
}

func TestExport_JSONEmpty(t *testing.T) {
	out, err := Export([]model.InvoiceRecord{}, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(out))
}

func TestExport_JSONRoundTrip(t *testing.T) {
	records := sampleRecords()
	out, err := Export(records, FormatJSON)
	require.NoError(t, err)

	var got []model.InvoiceFields
	var names []struct {
		SourceFilename string `json:"source_filename"`
	}
	require.NoError(t, json.Unmarshal(out, &got))
	require.NoError(t, json.Unmarshal(out, &names))
	require.Len(t, got, len(records))

	for i, r := range records {
		assert.Equal(t, r.SourceFilename, names[i].SourceFilename)
		assert.Equal(t, r.InvoiceNumber, got[i].InvoiceNumber)
		assert.Equal(t, r.InvoiceDate, got[i].InvoiceDate)
		if r.TotalAmount == nil {
			assert.Nil(t, got[i].TotalAmount)
		} else {
			require.NotNil(t, got[i].TotalAmount)
			assert.True(t, r.TotalAmount.Equal(*got[i].TotalAmount))
		}
	}
}

func TestExport_Deterministic(t *testing.T) {
	for _, f := range []Format{FormatCSV, FormatJSON} {
		a, err := Export(sampleRecords(), f)
		require.NoError(t, err)
		b, err := Export(sampleRecords(), f)
		require.NoError(t, err)
		assert.Equal(t, a, b, string(f))
	}
}

func TestExport_XLSX(t *testing.T) {
	out, err := Export(sampleRecords(), FormatXLSX)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetName}, f.GetSheetList())

	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, header, rows[0])
	assert.Equal(t, []string{"invoice.pdf", "INV-2024-001", "12/01/2024"}, rows[1][:3])
	assert.True(t, decimal.RequireFromString("1250").Equal(decimal.RequireFromString(rows[1][3])))
	assert.Equal(t, "blank, scan.png", rows[2][0])
}

func TestExport_Unsupported(t *testing.T) {
	_, err := Export(sampleRecords(), Format("pdf"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
