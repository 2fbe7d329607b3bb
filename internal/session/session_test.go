package session

import (
	"reflect"
	"testing"
	"time"

	"github.com/ggitteam/salesops/internal/model"
)

func day(d int, hour int) time.Time {
	return time.Date(2023, 5, d, hour, 0, 0, 0, time.UTC)
}

func sampleRows() []model.SaleRow {
	return []model.SaleRow{
		{
			ID:           "r1",
			TransactedAt: day(10, 9),
			Depot:        "Depot A",
			BuyerName:    "Jane Doe",
			ItemsRaw:     "Gold * 2",
			Items:        []model.LineItem{{ItemType: model.ItemGold, Qty: 2}},
			Amount:       1500,
		},
		{
			ID:           "r2",
			TransactedAt: day(11, 9),
			Depot:        "Depot B",
			BuyerName:    "John",
			ItemsRaw:     "Silver * 1",
			Items:        []model.LineItem{{ItemType: model.ItemSilver, Qty: 1}},
			Amount:       300,
		},
	}
}

func TestInitialModeIsPersisted(t *testing.T) {
	s := New()
	if s.Mode() != ModePersisted {
		t.Fatalf("initial mode = %v, want %v", s.Mode(), ModePersisted)
	}
}

func TestModeTransitions(t *testing.T) {
	s := New()
	s.SetPreview(sampleRows())
	if s.Mode() != ModePreview {
		t.Fatalf("mode after SetPreview = %v", s.Mode())
	}
	s.SetPersisted(sampleRows(), nil)
	if s.Mode() != ModePersisted {
		t.Fatalf("mode after SetPersisted = %v", s.Mode())
	}
	s.SetPreview(sampleRows())
	s.ClearPreview()
	if s.Mode() != ModePersisted {
		t.Fatalf("mode after ClearPreview = %v", s.Mode())
	}
	if len(s.Visible()) != 2 {
		t.Fatalf("persisted rows should survive a preview round trip")
	}
}

func TestDateFilterInclusiveBounds(t *testing.T) {
	rows := []model.SaleRow{
		{ID: "early", TransactedAt: time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC)},
		{ID: "late", TransactedAt: time.Date(2023, 5, 12, 23, 59, 59, 0, time.UTC)},
		{ID: "before", TransactedAt: time.Date(2023, 5, 9, 23, 59, 59, 0, time.UTC)},
		{ID: "after", TransactedAt: time.Date(2023, 5, 13, 0, 0, 0, 0, time.UTC)},
		{ID: "undated"},
	}
	s := New()
	s.SetPersisted(rows, nil)
	s.SetDateRange(time.Date(2023, 5, 10, 0, 0, 0, 0, time.UTC), time.Date(2023, 5, 12, 0, 0, 0, 0, time.UTC))

	var ids []string
	for _, row := range s.Visible() {
		ids = append(ids, row.ID)
	}
	if want := []string{"early", "late"}; !reflect.DeepEqual(ids, want) {
		t.Fatalf("visible ids = %v, want %v", ids, want)
	}
}

func TestSearchFilterMatchesAnyColumn(t *testing.T) {
	s := New()
	s.SetPersisted(sampleRows(), nil)

	s.SetSearch("jane")
	visible := s.Visible()
	if len(visible) != 1 || visible[0].BuyerName != "Jane Doe" {
		t.Fatalf("visible = %+v", visible)
	}

	// Matches against non-buyer columns too.
	s.SetSearch("depot b")
	visible = s.Visible()
	if len(visible) != 1 || visible[0].ID != "r2" {
		t.Fatalf("visible = %+v", visible)
	}

	s.SetSearch("no such value")
	if visible = s.Visible(); len(visible) != 0 {
		t.Fatalf("visible = %+v", visible)
	}
}

func TestFilterIdempotence(t *testing.T) {
	s := New()
	s.SetPersisted(sampleRows(), map[string][]model.LineItem{
		"r1": {{ItemType: model.ItemGold, Qty: 2}},
	})
	s.SetDateRange(time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 5, 31, 0, 0, 0, 0, time.UTC))
	s.SetSearch("depot")

	first := s.Visible()
	firstCards := s.Cards()
	second := s.Visible()
	secondCards := s.Cards()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("visible rows changed between identical reads")
	}
	if !reflect.DeepEqual(firstCards, secondCards) {
		t.Fatalf("cards changed between identical reads")
	}
}

func TestCardsPreviewMode(t *testing.T) {
	rows := append(sampleRows(), model.SaleRow{
		ID:           "r3",
		TransactedAt: day(12, 9),
		BuyerName:    "  jane doe  ", // dedups against "Jane Doe"
		Items:        []model.LineItem{{ItemType: model.ItemGold, Qty: 3}},
	}, model.SaleRow{
		ID:           "r4",
		TransactedAt: day(12, 10),
		BuyerName:    "   ", // blank names are excluded
	})
	s := New()
	s.SetPreview(rows)

	cards := s.Cards()
	if cards.UniqueBuyers != 2 {
		t.Fatalf("UniqueBuyers = %d, want 2", cards.UniqueBuyers)
	}
	if cards.Totals[model.ItemGold] != 5 || cards.Totals[model.ItemSilver] != 1 {
		t.Fatalf("Totals = %v", cards.Totals)
	}
	if cards.Totals[model.ItemPlatinum] != 0 {
		t.Fatalf("expected zero entry for unsold products, got %v", cards.Totals)
	}
}

func TestCardsPersistedFallbackToRawItems(t *testing.T) {
	rows := sampleRows()
	// Only r1 has stored items; r2 falls back to re-parsing its raw text.
	items := map[string][]model.LineItem{
		"r1": {{ItemType: model.ItemGold, Qty: 2}},
	}
	s := New()
	s.SetPersisted(rows, items)

	cards := s.Cards()
	if cards.Totals[model.ItemGold] != 2 {
		t.Fatalf("Gold total = %d, want 2", cards.Totals[model.ItemGold])
	}
	if cards.Totals[model.ItemSilver] != 1 {
		t.Fatalf("Silver total = %d, want 1 via raw re-parse", cards.Totals[model.ItemSilver])
	}
}
