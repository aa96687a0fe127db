package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Sheet1"

// XLSXWriter writes the report as a single-sheet Excel workbook.
type XLSXWriter struct {
	Path string
}

// Write writes the header and all rows into the default sheet and saves
// the workbook.
func (w *XLSXWriter) Write(rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to compute cell name: %w", err)
		}
		record := row.Record()
		cells := make([]interface{}, len(record))
		for j, v := range record {
			cells[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &cells); err != nil {
			return fmt.Errorf("failed to write report row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(w.Path); err != nil {
		return fmt.Errorf("failed to save report workbook: %w", err)
	}
	return nil
}
