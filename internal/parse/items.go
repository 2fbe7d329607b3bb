package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ggitteam/salesops/internal/model"
)

var itemLinePattern = regexp.MustCompile(`^(.+?)\s*\*\s*(\d+)\s*$`)

// ParseItems decodes a free-text items cell into line items. Each line is
// expected in the form "<label> * <quantity>". Unrecognized lines and unknown
// product labels produce warnings and are skipped; a zero or negative
// quantity drops the line silently. Items and warnings keep encounter order.
func ParseItems(raw string) ([]model.LineItem, []string) {
	var items []model.LineItem
	var warnings []string

	text := strings.TrimSpace(raw)
	if text == "" {
		return items, warnings
	}
	// Spreadsheets sometimes carry the whole cell wrapped in quotes.
	text = strings.TrimPrefix(text, `"`)
	text = strings.TrimSuffix(text, `"`)
	text = strings.ReplaceAll(text, "\r\n", "\n")

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		match := itemLinePattern.FindStringSubmatch(line)
		if match == nil {
			warnings = append(warnings, fmt.Sprintf("Unrecognized item format: %s", line))
			continue
		}
		label := strings.TrimSpace(match[1])
		canonical, ok := model.CanonicalType(label)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("Unknown item type: %s", label))
			continue
		}
		qty, err := strconv.Atoi(match[2])
		if err != nil {
			qty = 0
		}
		// Zero quantity is excluded without a warning, unlike the unknown
		// type case above.
		if qty > 0 {
			items = append(items, model.LineItem{ItemType: canonical, Qty: qty})
		}
	}

	return items, warnings
}
