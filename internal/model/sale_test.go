package model

import (
	"testing"
	"time"
)

func TestCanonicalType(t *testing.T) {
	cases := []struct {
		label string
		want  ItemType
		ok    bool
	}{
		{"Gold", ItemGold, true},
		{"gold", ItemGold, true},
		{"  GOLD  ", ItemGold, true},
		{"synbiotic+   mm", ItemSynbioticMM, true},
		{"SGGuard", ItemSGGuard, true},
		{"Bronze", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := CanonicalType(tc.label)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("CanonicalType(%q) = (%q, %v), want (%q, %v)", tc.label, got, ok, tc.want, tc.ok)
		}
	}
}

func TestSaleRowField(t *testing.T) {
	row := SaleRow{
		TransactedAt: time.Date(2023, 5, 10, 9, 30, 0, 0, time.UTC),
		Depot:        "Depot A",
		Amount:       1234.5,
	}
	if got := row.Field("transacted_at"); got != "2023-05-10T09:30:00Z" {
		t.Fatalf("transacted_at = %q", got)
	}
	if got := row.Field("amount"); got != "1234.50" {
		t.Fatalf("amount = %q", got)
	}
	if got := row.Field("depot"); got != "Depot A" {
		t.Fatalf("depot = %q", got)
	}
	if got := (SaleRow{}).Field("transacted_at"); got != "" {
		t.Fatalf("zero timestamp = %q", got)
	}
	if got := row.Field("unknown"); got != "" {
		t.Fatalf("unknown column = %q", got)
	}
}
