// Package report renders run summaries as aligned plain-text tables.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"recnorm/internal/models"

	"github.com/mattn/go-runewidth"
)

// Render formats a batch summary as a two-column table with a per-reason
// breakdown. Columns align by display width, so wide runes line up too.
func Render(s models.BatchSummary) string {
	rows := [][]string{
		{"Batch", s.BatchID},
		{"Input records", strconv.Itoa(s.Input)},
		{"Kept", strconv.Itoa(s.Kept)},
		{"Dropped", strconv.Itoa(s.Dropped)},
		{"Flagged", strconv.Itoa(s.Flagged)},
		{"Duration", s.Duration.String()},
	}

	for _, reason := range sortedReasons(s.Reasons) {
		rows = append(rows, []string{"  " + reason, strconv.Itoa(s.Reasons[reason])})
	}

	return renderRows(rows)
}

func sortedReasons(reasons map[string]int) []string {
	keys := make([]string, 0, len(reasons))
	for k := range reasons {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func renderRows(rows [][]string) string {
	// Column widths by display width, not byte length.
	widths := make([]int, 2)

	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	rule := "+" + strings.Repeat("-", widths[0]+2) + "+" + strings.Repeat("-", widths[1]+2) + "+"

	var sb strings.Builder

	sb.WriteString(rule)
	sb.WriteString("\n")

	for _, row := range rows {
		sb.WriteString("|")

		for i, cell := range row {
			padding := widths[i] - runewidth.StringWidth(cell)
			sb.WriteString(" ")
			sb.WriteString(cell)
			sb.WriteString(strings.Repeat(" ", padding))
			sb.WriteString(" |")
		}

		sb.WriteString("\n")
	}

	sb.WriteString(rule)
	sb.WriteString("\n")

	return sb.String()
}

// Line returns a one-line form for logs.
func Line(s models.BatchSummary) string {
	return fmt.Sprintf("input=%d kept=%d dropped=%d flagged=%d in %v",
		s.Input, s.Kept, s.Dropped, s.Flagged, s.Duration)
}
