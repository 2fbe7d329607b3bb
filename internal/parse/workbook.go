package parse

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/ggitteam/salesops/internal/model"
)

// AllSheets selects every sheet of the workbook in stored order.
const AllSheets = ""

// ExtractRows decodes a workbook and runs every raw row through ParseRow,
// returning the surviving canonical rows in sheet-then-row order. sheet names
// a single sheet, or AllSheets for the whole workbook. Rows are read with raw
// cell values so date cells arrive as Excel serials rather than display
// strings. This is a one-shot batch transform; there are no resume semantics.
func ExtractRows(r io.Reader, sheet string) ([]model.SaleRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if sheet != AllSheets {
		found := false
		for _, name := range sheets {
			if name == sheet {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("sheet %q not found in workbook", sheet)
		}
		sheets = []string{sheet}
	}

	var rows []model.SaleRow
	for _, name := range sheets {
		raw, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}
		for idx, cells := range raw {
			values := make([]any, len(cells))
			for i, c := range cells {
				values[i] = c
			}
			row, ok := ParseRow(values, idx+1, name)
			if !ok {
				continue
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// SheetNames lists the sheets of a workbook in stored order.
func SheetNames(r io.Reader) ([]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// WarningCount sums row warnings across a parsed batch.
func WarningCount(rows []model.SaleRow) int {
	total := 0
	for _, row := range rows {
		total += len(row.Warnings)
	}
	return total
}
