package export

import (
	"fmt"

	"invoicescan/internal/model"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Invoices"

func exportXLSX(records []model.InvoiceRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	for i, h := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}

	for i, r := range records {
		row := i + 2
		write := func(col int, v any) error {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			return f.SetCellValue(sheetName, cell, v)
		}
		if err := write(1, r.SourceFilename); err != nil {
			return nil, err
		}
		if err := write(2, deref(r.InvoiceNumber)); err != nil {
			return nil, err
		}
		if err := write(3, deref(r.InvoiceDate)); err != nil {
			return nil, err
		}
		if r.TotalAmount != nil {
			cell, _ := excelize.CoordinatesToCellName(4, row)
			if err := f.SetCellFloat(sheetName, cell, r.TotalAmount.InexactFloat64(), 2, 64); err != nil {
				return nil, err
			}
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 32)
	_ = f.SetColWidth(sheetName, "B", "C", 18)
	_ = f.SetColWidth(sheetName, "D", "D", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}
