package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"recnorm/internal/models"
)

func TestWriteTable(t *testing.T) {
	columns := []string{"title", "age"}

	kept := models.NewRecord(2, columns)
	kept.Set("title", models.TextValue("first story"))
	kept.Set("age", models.TextValue("34"))
	kept.Disposition = models.Keep()

	flagged := models.NewRecord(3, columns)
	flagged.Set("title", models.TextValue("second story"))
	flagged.Set("age", models.MissingValue())
	flagged.Disposition = models.Flag("no return")

	placeholder := models.NewRecord(4, columns)
	placeholder.Set("title", models.PlaceholderValue("N/A"))
	placeholder.Set("age", models.InvalidValue("??"))
	placeholder.Disposition = models.Keep()

	path := filepath.Join(t.TempDir(), "out", "clean.csv")

	err := WriteTable(path, columns, []*models.Record{kept, flagged, placeholder}, "unknown")
	if err != nil {
		t.Fatalf("WriteTable failed: %v", err)
	}

	rows := readCSV(t, path)

	if len(rows) != 4 {
		t.Fatalf("rows = %d, want header + 3", len(rows))
	}

	if rows[0][2] != FlagColumn {
		t.Errorf("last header column = %q, want %q", rows[0][2], FlagColumn)
	}

	// Kept record: values straight through, empty flag.
	if rows[1][0] != "first story" || rows[1][2] != "" {
		t.Errorf("kept row = %v", rows[1])
	}

	// Flagged record keeps its reason.
	if rows[2][2] != "no return" {
		t.Errorf("flag column = %q, want 'no return'", rows[2][2])
	}

	// Both missing states and invalid tokens render as the unknown label.
	if rows[2][1] != "unknown" {
		t.Errorf("explicit-missing rendered as %q, want unknown", rows[2][1])
	}

	if rows[3][0] != "unknown" || rows[3][1] != "unknown" {
		t.Errorf("placeholder/invalid row = %v, want unknown in both cells", rows[3])
	}
}

func TestWriteDropped(t *testing.T) {
	dropped := []models.DroppedRecord{
		{
			Line:   7,
			Reason: "duplicate",
			Fields: map[string]string{"title": "Copy", "url": "https://example.com/a"},
		},
	}

	path := filepath.Join(t.TempDir(), "dropped.csv")

	if err := WriteDropped(path, []string{"title", "url"}, dropped); err != nil {
		t.Fatalf("WriteDropped failed: %v", err)
	}

	rows := readCSV(t, path)

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(rows))
	}

	want := []string{"7", "duplicate", "Copy", "https://example.com/a"}
	for i, cell := range want {
		if rows[1][i] != cell {
			t.Errorf("dropped row[%d] = %q, want %q", i, rows[1][i], cell)
		}
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("failed to parse %s: %v", path, err)
	}

	return rows
}
