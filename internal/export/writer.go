// Package export writes normalized tables and dropped-row sidecars to
// delimited files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"recnorm/internal/models"
)

// FlagColumn is appended to the output table so flagged records keep
// their reason. Kept records leave it empty.
const FlagColumn = "flag"

// WriteTable writes the surviving records as CSV. Missing and invalid
// sentinels render as the unknown label here; this is the only place the
// two missing states collapse into one.
func WriteTable(path string, columns []string, records []*models.Record, unknown string) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append(append([]string{}, columns...), FlagColumn)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, 0, len(header))

		for _, col := range columns {
			row = append(row, rec.Get(col).Render(unknown))
		}

		flag := ""
		if rec.Disposition.Kind == models.Flagged {
			flag = rec.Disposition.Reason
		}

		row = append(row, flag)

		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rec.Line, err)
		}
	}

	w.Flush()

	return w.Error()
}

// WriteDropped writes the dropped-rows sidecar: source line, reason, and
// the untouched raw fields.
func WriteDropped(path string, columns []string, dropped []models.DroppedRecord) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := append([]string{"line", "reason"}, columns...)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, d := range dropped {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(d.Line), d.Reason)

		for _, col := range columns {
			row = append(row, d.Fields[col])
		}

		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write dropped row %d: %w", d.Line, err)
		}
	}

	w.Flush()

	return w.Error()
}

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file %s: %w", path, err)
	}

	return f, nil
}
