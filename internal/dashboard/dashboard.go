// Package dashboard derives the KPI/trend report from persisted sale rows.
package dashboard

import (
	"sort"
	"strings"

	"github.com/ggitteam/salesops/internal/model"
	"github.com/ggitteam/salesops/internal/parse"
)

const (
	trendDays   = 14
	depotLimit  = 8
	recentLimit = 10
)

// Totals are the headline KPI cards.
type Totals struct {
	Amount           float64 `json:"amount"`
	Transactions     int     `json:"transactions"`
	UniqueBuyers     int     `json:"uniqueBuyers"`
	RowsWithWarnings int     `json:"rowsWithWarnings"`
	AvgOrderValue    float64 `json:"avgOrderValue"`
	TopProduct       string  `json:"topProduct"`
	TopProductQty    int     `json:"topProductQty"`
}

// TrendPoint is one day of the sales trend.
type TrendPoint struct {
	Date         string  `json:"date"`
	Amount       float64 `json:"amount"`
	Transactions int     `json:"transactions"`
}

// ProductTotal is the quantity sold per product type.
type ProductTotal struct {
	Product model.ItemType `json:"product"`
	Qty     int            `json:"qty"`
}

// DepotTotal aggregates amount and transaction count per depot.
type DepotTotal struct {
	Depot        string  `json:"depot"`
	Amount       float64 `json:"amount"`
	Transactions int     `json:"transactions"`
}

// Model is the full dashboard payload.
type Model struct {
	Totals     Totals          `json:"totals"`
	Trend      []TrendPoint    `json:"trend"`
	Products   []ProductTotal  `json:"products"`
	Depots     []DepotTotal    `json:"depots"`
	RecentRows []model.SaleRow `json:"recentRows"`
	Uploads    []model.Upload  `json:"uploads"`
}

// Build computes the dashboard model from rows ordered newest-first, the
// persisted items per row id, and the recent upload batches. Rows whose
// stored items are missing get their raw items text re-parsed on the fly; a
// re-parse that produces warnings counts the row as warned.
func Build(rows []model.SaleRow, itemsByRowID map[string][]model.LineItem, uploads []model.Upload) Model {
	totals := Totals{Transactions: len(rows), TopProduct: "N/A"}

	buyers := make(map[string]struct{})
	daily := make(map[string]*TrendPoint)
	productTotals := make(map[model.ItemType]int, len(model.SupportedTypes))
	depotTotals := make(map[string]*DepotTotal)
	for _, t := range model.SupportedTypes {
		productTotals[t] = 0
	}

	for _, row := range rows {
		totals.Amount += row.Amount

		if key := strings.ToLower(strings.TrimSpace(row.BuyerName)); key != "" {
			buyers[key] = struct{}{}
		}

		if !row.TransactedAt.IsZero() {
			day := row.TransactedAt.UTC().Format("2006-01-02")
			bucket, ok := daily[day]
			if !ok {
				bucket = &TrendPoint{Date: day}
				daily[day] = bucket
			}
			bucket.Amount += row.Amount
			bucket.Transactions++
		}

		depot := strings.TrimSpace(row.Depot)
		if depot == "" {
			depot = "Unknown Depot"
		}
		depotBucket, ok := depotTotals[depot]
		if !ok {
			depotBucket = &DepotTotal{Depot: depot}
			depotTotals[depot] = depotBucket
		}
		depotBucket.Amount += row.Amount
		depotBucket.Transactions++

		items, warned := rowItems(row, itemsByRowID)
		if warned {
			totals.RowsWithWarnings++
		}
		for _, item := range items {
			if _, ok := productTotals[item.ItemType]; ok {
				productTotals[item.ItemType] += item.Qty
			}
		}
	}

	totals.UniqueBuyers = len(buyers)
	if totals.Transactions > 0 {
		totals.AvgOrderValue = totals.Amount / float64(totals.Transactions)
	}

	products := make([]ProductTotal, 0, len(productTotals))
	for _, t := range model.SupportedTypes {
		products = append(products, ProductTotal{Product: t, Qty: productTotals[t]})
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].Qty > products[j].Qty })
	if len(products) > 0 && products[0].Qty > 0 {
		totals.TopProduct = string(products[0].Product)
		totals.TopProductQty = products[0].Qty
	}

	trend := make([]TrendPoint, 0, len(daily))
	for _, point := range daily {
		trend = append(trend, *point)
	}
	sort.Slice(trend, func(i, j int) bool { return trend[i].Date < trend[j].Date })
	if len(trend) > trendDays {
		trend = trend[len(trend)-trendDays:]
	}

	depots := make([]DepotTotal, 0, len(depotTotals))
	for _, d := range depotTotals {
		depots = append(depots, *d)
	}
	sort.SliceStable(depots, func(i, j int) bool { return depots[i].Amount > depots[j].Amount })
	if len(depots) > depotLimit {
		depots = depots[:depotLimit]
	}

	recent := rows
	if len(recent) > recentLimit {
		recent = recent[:recentLimit]
	}

	return Model{
		Totals:     totals,
		Trend:      trend,
		Products:   products,
		Depots:     depots,
		RecentRows: recent,
		Uploads:    uploads,
	}
}

func rowItems(row model.SaleRow, itemsByRowID map[string][]model.LineItem) ([]model.LineItem, bool) {
	if items := itemsByRowID[row.ID]; len(items) > 0 {
		return items, false
	}
	if row.ItemsRaw == "" {
		return nil, false
	}
	items, warnings := parse.ParseItems(row.ItemsRaw)
	return items, len(warnings) > 0
}
