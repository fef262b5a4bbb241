package normalizer

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Spreadsheet serial plausibility range. Serials outside it fall through to
// the explicit layouts, so 8-digit YYYYMMDD tokens are never mistaken for
// day counts.
const (
	serialMin = 20000
	serialMax = 80000
)

// spreadsheetEpoch is the reference date certain spreadsheet tools count
// days from. Serial 44562 is 2022-01-01.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order against the whole token. Ambiguous
// two-digit day/month tokens are resolved by this order, not by locale.
var dateLayouts = []string{
	"Monday, January 2, 2006",
	"January 2, 2006",
	"2006-01-02",
	"02/01/2006",
	"20060102",
	time.RFC3339,
	"2006/01/02",
}

// DateParser turns arbitrary date tokens into calendar dates. Rules run in
// a fixed order and the first success wins; a token no rule accepts is
// not-a-date, never an error.
type DateParser struct {
	embedded *regexp.Regexp
}

// NewDateParser creates a new date parser instance.
func NewDateParser() *DateParser {
	return &DateParser{
		embedded: regexp.MustCompile(`\d{4}-\d{2}-\d{2}`),
	}
}

// Parse applies the ordered rules to a token. The boolean is false when the
// token is not a date under any rule.
func (p *DateParser) Parse(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return time.Time{}, false
	}

	// 1. Spreadsheet serial: numeric and in plausible range. The fractional
	// part encodes time-of-day and is ignored.
	if serial, err := strconv.ParseFloat(token, 64); err == nil && serial >= serialMin && serial <= serialMax {
		return spreadsheetEpoch.AddDate(0, 0, int(serial)), true
	}

	// 2. Explicit layouts, whole token only.
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, token); err == nil {
			return dateOnly(t), true
		}
	}

	// 3. Embedded YYYY-MM-DD inside noisy text.
	if m := p.embedded.FindString(token); m != "" {
		if t, err := time.Parse("2006-01-02", m); err == nil {
			return t, true
		}
	}

	return time.Time{}, false
}

// dateOnly discards any time-of-day and zone the layout captured.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
