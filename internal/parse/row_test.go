package parse

import (
	"reflect"
	"testing"
	"time"

	"github.com/ggitteam/salesops/internal/model"
)

func TestParseRowFull(t *testing.T) {
	cells := []any{44926.0, "Depot A", "PS1", "Retail", "Jane Doe [jane99]", "Gold * 2\nSilver * 1", "1,500.00"}
	row, ok := ParseRow(cells, 2, "Sheet1")
	if !ok {
		t.Fatal("expected row to parse")
	}
	if want := time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC); !row.TransactedAt.Equal(want) {
		t.Fatalf("TransactedAt = %v, want %v", row.TransactedAt, want)
	}
	if row.Depot != "Depot A" || row.PSCode != "PS1" || row.AccountType != "Retail" {
		t.Fatalf("unexpected fields: %+v", row)
	}
	if row.BuyerRaw != "Jane Doe [jane99]" || row.BuyerName != "Jane Doe" || row.BuyerUsername != "jane99" {
		t.Fatalf("unexpected buyer fields: %+v", row)
	}
	if row.Amount != 1500 {
		t.Fatalf("Amount = %v, want 1500", row.Amount)
	}
	wantItems := []model.LineItem{
		{ItemType: model.ItemGold, Qty: 2},
		{ItemType: model.ItemSilver, Qty: 1},
	}
	if !reflect.DeepEqual(row.Items, wantItems) {
		t.Fatalf("Items = %+v, want %+v", row.Items, wantItems)
	}
	if len(row.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", row.Warnings)
	}
}

func TestParseRowSkipsWithoutDate(t *testing.T) {
	cases := [][]any{
		nil,
		{},
		{"", "Depot A"},
		{"not a date", "Depot A"},
	}
	for _, cells := range cases {
		if _, ok := ParseRow(cells, 1, "Sheet1"); ok {
			t.Fatalf("expected row %#v to be skipped", cells)
		}
	}
}

func TestParseRowWarningsGetLocationMarker(t *testing.T) {
	cells := []any{"2023-05-10", "Depot A", "PS1", "Retail", "Jane", "Bronze * 3", "10"}
	row, ok := ParseRow(cells, 7, "May")
	if !ok {
		t.Fatal("expected row to parse")
	}
	want := []string{"Sheet May, row 7", "Unknown item type: Bronze"}
	if !reflect.DeepEqual(row.Warnings, want) {
		t.Fatalf("Warnings = %v, want %v", row.Warnings, want)
	}
	if len(row.Items) != 0 {
		t.Fatalf("unexpected items: %+v", row.Items)
	}
}

func TestParseRowShortRowBestEffort(t *testing.T) {
	row, ok := ParseRow([]any{"2023-05-10", "Depot B"}, 1, "Sheet1")
	if !ok {
		t.Fatal("expected row to parse")
	}
	if row.Depot != "Depot B" {
		t.Fatalf("Depot = %q", row.Depot)
	}
	if row.PSCode != "" || row.BuyerName != "" || row.ItemsRaw != "" {
		t.Fatalf("expected empty trailing fields: %+v", row)
	}
	if row.Amount != 0 {
		t.Fatalf("Amount = %v, want 0", row.Amount)
	}
}
