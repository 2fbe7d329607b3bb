// Package model contains the domain types shared across packages.
package model

import (
	"strconv"
	"strings"
	"time"
)

// ItemType is a canonical product category. Free-text labels from spreadsheet
// cells are mapped onto this fixed set; anything else is reported as a warning
// and excluded.
type ItemType string

const (
	ItemBPGuard     ItemType = "BPGUARD"
	ItemSGGuard     ItemType = "SGGUARD"
	ItemSynbioticMM ItemType = "Synbiotic+ MM"
	ItemSilver      ItemType = "Silver"
	ItemGold        ItemType = "Gold"
	ItemPlatinum    ItemType = "Platinum"
)

// SupportedTypes lists every canonical product category in display order.
var SupportedTypes = []ItemType{
	ItemBPGuard,
	ItemSGGuard,
	ItemSynbioticMM,
	ItemSilver,
	ItemGold,
	ItemPlatinum,
}

var typeAliases = map[string]ItemType{
	"bpguard":       ItemBPGuard,
	"sgguard":       ItemSGGuard,
	"synbiotic+ mm": ItemSynbioticMM,
	"silver":        ItemSilver,
	"gold":          ItemGold,
	"platinum":      ItemPlatinum,
}

// CanonicalType resolves a free-text product label to its canonical type.
// Matching is case-insensitive and collapses internal whitespace.
func CanonicalType(label string) (ItemType, bool) {
	key := strings.Join(strings.Fields(strings.ToLower(label)), " ")
	t, ok := typeAliases[key]
	return t, ok
}

// LineItem is one (product type, quantity) pair extracted from a
// transaction's free-text item list. Quantity is always positive; zero and
// negative quantities are dropped during parsing.
type LineItem struct {
	ItemType ItemType `json:"itemType"`
	Qty      int      `json:"qty"`
}

// SaleRow is a normalized transaction record derived from one spreadsheet
// row. Warnings collect row-level parse problems; they never abort an import.
type SaleRow struct {
	ID            string     `json:"id,omitempty"`
	UploadID      string     `json:"uploadId,omitempty"`
	TransactedAt  time.Time  `json:"transactedAt"`
	Depot         string     `json:"depot"`
	PSCode        string     `json:"psCode"`
	AccountType   string     `json:"accountType"`
	BuyerRaw      string     `json:"buyerRaw"`
	BuyerName     string     `json:"buyerName"`
	BuyerUsername string     `json:"buyerUsername"`
	ItemsRaw      string     `json:"itemsRaw"`
	Amount        float64    `json:"amount"`
	Items         []LineItem `json:"items,omitempty"`
	Warnings      []string   `json:"warnings,omitempty"`
}

// Column describes one displayed table column.
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// SaleColumns are the displayed columns, in table order. The free-text search
// and the CSV export both operate over exactly this set.
var SaleColumns = []Column{
	{Key: "transacted_at", Label: "TRANSACTED AT"},
	{Key: "depot", Label: "DEPOT"},
	{Key: "ps_code", Label: "PS CODE"},
	{Key: "account_type", Label: "ACCOUNT TYPE"},
	{Key: "buyer_name", Label: "BUYER NAME"},
	{Key: "buyer_username", Label: "USERNAME"},
	{Key: "items_raw", Label: "ITEMS RAW"},
	{Key: "amount", Label: "AMOUNT"},
}

// Field returns the stringified value of a displayed column.
func (r SaleRow) Field(key string) string {
	switch key {
	case "transacted_at":
		if r.TransactedAt.IsZero() {
			return ""
		}
		return r.TransactedAt.UTC().Format(time.RFC3339)
	case "depot":
		return r.Depot
	case "ps_code":
		return r.PSCode
	case "account_type":
		return r.AccountType
	case "buyer_name":
		return r.BuyerName
	case "buyer_username":
		return r.BuyerUsername
	case "items_raw":
		return r.ItemsRaw
	case "amount":
		return strconv.FormatFloat(r.Amount, 'f', 2, 64)
	default:
		return ""
	}
}

// UploadStatus enumerates the lifecycle of an upload batch during import.
type UploadStatus string

const (
	StatusQueued     UploadStatus = "queued"
	StatusProcessing UploadStatus = "processing"
	StatusCompleted  UploadStatus = "completed"
	StatusFailed     UploadStatus = "failed"
)

// Upload represents a row in the sales_uploads table. One batch is created
// per import and referenced by every row it produced.
type Upload struct {
	ID           string       `json:"id"`
	Filename     string       `json:"filename"`
	RowCount     int          `json:"rowCount"`
	Status       UploadStatus `json:"status"`
	ErrorMessage *string      `json:"errorMessage,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}
