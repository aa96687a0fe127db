package report

import (
	"encoding/csv"
	"fmt"
	"os"
)

// CSVWriter writes the report as a CSV file with a header row.
type CSVWriter struct {
	Path string
}

// Write writes the header and all rows, failing on the first I/O error.
func (w *CSVWriter) Write(rows []Row) error {
	f, err := os.Create(w.Path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cw := csv.NewWriter(f)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, row := range rows {
		if err := cw.Write(row.Record()); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush report: %w", err)
	}

	return f.Close()
}
