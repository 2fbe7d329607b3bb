package parse

import (
	"reflect"
	"testing"

	"github.com/ggitteam/salesops/internal/model"
)

func TestParseItemsBasic(t *testing.T) {
	items, warnings := ParseItems("Gold * 2\nSilver * 1")
	want := []model.LineItem{
		{ItemType: model.ItemGold, Qty: 2},
		{ItemType: model.ItemSilver, Qty: 1},
	}
	if !reflect.DeepEqual(items, want) {
		t.Fatalf("items = %+v, want %+v", items, want)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestParseItemsAliasNormalization(t *testing.T) {
	items, warnings := ParseItems("  sgguard * 4\nSYNBIOTIC+   MM * 1")
	want := []model.LineItem{
		{ItemType: model.ItemSGGuard, Qty: 4},
		{ItemType: model.ItemSynbioticMM, Qty: 1},
	}
	if !reflect.DeepEqual(items, want) {
		t.Fatalf("items = %+v, want %+v", items, want)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestParseItemsUnknownType(t *testing.T) {
	items, warnings := ParseItems("Bronze * 3")
	if len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
	if len(warnings) != 1 || warnings[0] != "Unknown item type: Bronze" {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestParseItemsZeroQuantitySilentlyDropped(t *testing.T) {
	items, warnings := ParseItems("Gold*0")
	if len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
	// Unlike an unknown type, a zero quantity is not reported.
	if len(warnings) != 0 {
		t.Fatalf("expected no warnings, got %v", warnings)
	}
}

func TestParseItemsUnrecognizedFormat(t *testing.T) {
	items, warnings := ParseItems("Gold x 2")
	if len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
	if len(warnings) != 1 || warnings[0] != "Unrecognized item format: Gold x 2" {
		t.Fatalf("warnings = %v", warnings)
	}
}

func TestParseItemsQuotedCRLFCell(t *testing.T) {
	items, warnings := ParseItems("\"Gold * 2\r\nPlatinum * 5\"")
	want := []model.LineItem{
		{ItemType: model.ItemGold, Qty: 2},
		{ItemType: model.ItemPlatinum, Qty: 5},
	}
	if !reflect.DeepEqual(items, want) {
		t.Fatalf("items = %+v, want %+v", items, want)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}

func TestParseItemsMixedLinesKeepOrder(t *testing.T) {
	items, warnings := ParseItems("Gold * 2\n\nMystery * 1\nSilver * 3\nbad line")
	wantItems := []model.LineItem{
		{ItemType: model.ItemGold, Qty: 2},
		{ItemType: model.ItemSilver, Qty: 3},
	}
	if !reflect.DeepEqual(items, wantItems) {
		t.Fatalf("items = %+v, want %+v", items, wantItems)
	}
	wantWarnings := []string{
		"Unknown item type: Mystery",
		"Unrecognized item format: bad line",
	}
	if !reflect.DeepEqual(warnings, wantWarnings) {
		t.Fatalf("warnings = %v, want %v", warnings, wantWarnings)
	}
}

func TestParseItemsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\n"} {
		items, warnings := ParseItems(raw)
		if len(items) != 0 || len(warnings) != 0 {
			t.Fatalf("ParseItems(%q) = (%v, %v), want empty", raw, items, warnings)
		}
	}
}
