// Package session holds the view state shared by the table, the filters and
// the summary cards: which row set is active (freshly parsed preview rows vs
// rows fetched from the store), the current date range and the free-text
// search term. Derived values are recomputed from scratch on every read so
// reapplying unchanged filters always yields the same result.
//
// A Session is not safe for concurrent use; callers that interleave refreshes
// accept that the last writer wins.
package session

import (
	"strings"
	"time"

	"github.com/ggitteam/salesops/internal/model"
	"github.com/ggitteam/salesops/internal/parse"
)

// Mode names the active row source.
type Mode string

const (
	// ModePreview displays rows from an unsaved, just-parsed batch.
	ModePreview Mode = "preview"
	// ModePersisted displays rows fetched from the store.
	ModePersisted Mode = "persisted"
)

// Cards are the aggregates shown above the table.
type Cards struct {
	UniqueBuyers int                    `json:"uniqueBuyers"`
	Totals       map[model.ItemType]int `json:"totals"`
}

// Session reconciles two row sets against the active filters.
type Session struct {
	mode          Mode
	previewRows   []model.SaleRow
	persistedRows []model.SaleRow
	itemsByRowID  map[string][]model.LineItem
	from          time.Time
	to            time.Time
	search        string
}

// New returns a Session in persisted mode with no rows and no filters.
func New() *Session {
	return &Session{mode: ModePersisted}
}

// Mode reports the active row source.
func (s *Session) Mode() Mode { return s.mode }

// SetPreview installs a freshly parsed batch and switches to preview mode.
func (s *Session) SetPreview(rows []model.SaleRow) {
	s.previewRows = rows
	s.mode = ModePreview
}

// ClearPreview drops the preview batch, e.g. after a successful commit.
func (s *Session) ClearPreview() {
	s.previewRows = nil
	s.mode = ModePersisted
}

// SetPersisted installs rows fetched from the store together with their
// persisted line items and switches to persisted mode. On a failed fetch the
// caller simply does not call this, leaving the previous state visible.
func (s *Session) SetPersisted(rows []model.SaleRow, items map[string][]model.LineItem) {
	s.persistedRows = rows
	s.itemsByRowID = items
	s.mode = ModePersisted
}

// SetDateRange bounds the visible rows to [from 00:00:00, to 23:59:59]
// inclusive. A zero bound is open.
func (s *Session) SetDateRange(from, to time.Time) {
	s.from = from
	s.to = to
}

// SetSearch installs the free-text filter term.
func (s *Session) SetSearch(term string) {
	s.search = strings.TrimSpace(term)
}

func (s *Session) baseRows() []model.SaleRow {
	if s.mode == ModePreview {
		return s.previewRows
	}
	return s.persistedRows
}

// Visible returns the filtered row subset for the active mode. The date
// filter excludes rows without a valid timestamp; the search term is a
// case-insensitive substring match against every displayed column, keeping a
// row when any column matches.
func (s *Session) Visible() []model.SaleRow {
	var start, end time.Time
	if !s.from.IsZero() {
		start = time.Date(s.from.Year(), s.from.Month(), s.from.Day(), 0, 0, 0, 0, s.from.Location())
	}
	if !s.to.IsZero() {
		end = time.Date(s.to.Year(), s.to.Month(), s.to.Day(), 23, 59, 59, 0, s.to.Location())
	}
	term := strings.ToLower(s.search)

	out := make([]model.SaleRow, 0, len(s.baseRows()))
	for _, row := range s.baseRows() {
		if row.TransactedAt.IsZero() {
			continue
		}
		if !start.IsZero() && row.TransactedAt.Before(start) {
			continue
		}
		if !end.IsZero() && row.TransactedAt.After(end) {
			continue
		}
		if term != "" && !rowMatches(row, term) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func rowMatches(row model.SaleRow, term string) bool {
	for _, col := range model.SaleColumns {
		if strings.Contains(strings.ToLower(row.Field(col.Key)), term) {
			return true
		}
	}
	return false
}

// Cards recomputes the summary aggregates over the visible rows: the number
// of unique buyers (trimmed, case-insensitive names; blanks excluded) and the
// total quantity per product type.
func (s *Session) Cards() Cards {
	totals := make(map[model.ItemType]int, len(model.SupportedTypes))
	for _, t := range model.SupportedTypes {
		totals[t] = 0
	}

	buyers := make(map[string]struct{})
	for _, row := range s.Visible() {
		key := strings.ToLower(strings.TrimSpace(row.BuyerName))
		if key != "" {
			buyers[key] = struct{}{}
		}
		for _, item := range s.rowItems(row) {
			if _, ok := totals[item.ItemType]; ok {
				totals[item.ItemType] += item.Qty
			}
		}
	}

	return Cards{UniqueBuyers: len(buyers), Totals: totals}
}

// rowItems resolves the line items for a row. Persisted rows use the fetched
// items map and fall back to re-parsing the raw items text when nothing was
// stored; preview rows carry their items inline.
func (s *Session) rowItems(row model.SaleRow) []model.LineItem {
	if s.mode == ModePreview {
		return row.Items
	}
	if items := s.itemsByRowID[row.ID]; len(items) > 0 {
		return items
	}
	if row.ItemsRaw == "" {
		return nil
	}
	items, _ := parse.ParseItems(row.ItemsRaw)
	return items
}
