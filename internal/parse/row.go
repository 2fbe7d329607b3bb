package parse

import (
	"fmt"

	"github.com/ggitteam/salesops/internal/model"
)

// Expected cell layout of an input row.
const (
	colTransactedAt = 0
	colDepot        = 1
	colPSCode       = 2
	colAccountType  = 3
	colBuyer        = 4
	colItems        = 5
	colAmount       = 6
)

// ParseRow builds a canonical sale row from raw cells. rowNumber is 1-based
// and sheetName labels the source sheet; both only appear in warnings. The
// second return is false when the row should be skipped: an empty row or a
// missing transaction date is expected in real spreadsheets and is not an
// error. Every field past the date is best-effort.
func ParseRow(cells []any, rowNumber int, sheetName string) (model.SaleRow, bool) {
	if len(cells) == 0 {
		return model.SaleRow{}, false
	}

	transactedAt, ok := NormalizeDate(cell(cells, colTransactedAt))
	if !ok {
		return model.SaleRow{}, false
	}

	buyerRaw := cellString(cell(cells, colBuyer))
	buyerName, buyerUsername := SplitBuyer(buyerRaw)

	itemsRaw := cellString(cell(cells, colItems))
	items, warnings := ParseItems(itemsRaw)
	if len(warnings) > 0 {
		warnings = append([]string{fmt.Sprintf("Sheet %s, row %d", sheetName, rowNumber)}, warnings...)
	}

	return model.SaleRow{
		TransactedAt:  transactedAt,
		Depot:         cellString(cell(cells, colDepot)),
		PSCode:        cellString(cell(cells, colPSCode)),
		AccountType:   cellString(cell(cells, colAccountType)),
		BuyerRaw:      buyerRaw,
		BuyerName:     buyerName,
		BuyerUsername: buyerUsername,
		ItemsRaw:      itemsRaw,
		Amount:        NormalizeAmount(cell(cells, colAmount)),
		Items:         items,
		Warnings:      warnings,
	}, true
}

func cell(cells []any, idx int) any {
	if idx >= len(cells) {
		return nil
	}
	return cells[idx]
}
