// Package parse turns raw workbook cells into canonical sale rows. Parsing is
// deliberately tolerant: a row is only rejected when its transaction date is
// missing or unreadable, every other field degrades to a zero value or a
// warning.
package parse

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
}

// NormalizeDate converts a raw cell value into a UTC timestamp. It accepts a
// native time.Time, a numeric Excel date serial (integer day count plus
// fractional time of day), or a string in one of the common layouts. The
// second return is false when the value is empty or unparseable, which tells
// the caller to skip the row.
func NormalizeDate(value any) (time.Time, bool) {
	switch v := value.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	case float64:
		return serialToTime(v)
	case int:
		return serialToTime(float64(v))
	case int64:
		return serialToTime(float64(v))
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return time.Time{}, false
		}
		if serial, err := strconv.ParseFloat(s, 64); err == nil {
			return serialToTime(serial)
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

func serialToTime(serial float64) (time.Time, bool) {
	if serial <= 0 {
		return time.Time{}, false
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return time.Time{}, false
	}
	// ExcelDateToTime yields a wall-clock value; the serial carries no zone,
	// so it is interpreted as UTC.
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
}

// NormalizeAmount converts a raw cell value into a numeric amount. Strings
// have thousands separators stripped before parsing. Amounts are best-effort:
// anything unparseable becomes 0, never an error.
func NormalizeAmount(value any) float64 {
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if cleaned == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// SplitBuyer separates a buyer cell of the form "Name [username]" into its
// parts. When brackets are absent or malformed the whole string becomes the
// name and the username is empty. The first bracket pair wins; the username
// content is not validated.
func SplitBuyer(raw string) (name, username string) {
	left := strings.Index(raw, "[")
	right := strings.Index(raw, "]")
	if left >= 0 && right > left {
		return strings.TrimSpace(raw[:left]), strings.TrimSpace(raw[left+1 : right])
	}
	return strings.TrimSpace(raw), ""
}

func cellString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return ""
	}
}
