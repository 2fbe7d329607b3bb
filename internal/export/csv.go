// Package export writes table views to downloadable files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/ggitteam/salesops/internal/model"
)

// WriteCSV writes a header of column labels followed by the stringified rows.
// Quoting of commas, quotes and newlines follows RFC 4180 via encoding/csv.
func WriteCSV(w io.Writer, columns []model.Column, rows []model.SaleRow) error {
	cw := csv.NewWriter(w)

	header := make([]string, len(columns))
	for i, col := range columns {
		header[i] = col.Label
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = row.Field(col.Key)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
