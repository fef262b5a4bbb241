// Package ingest reads raw tables from delimited files or a paginated API.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"recnorm/internal/models"
)

// ErrEmptyInput is returned when the source has no header row.
var ErrEmptyInput = errors.New("input contains no header row")

// ReadCSVFile reads a delimited file into a raw table. The first row is
// the header; ragged rows are tolerated, short rows simply omit the
// trailing fields.
func ReadCSVFile(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file %s: %w", path, err)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return table, nil
}

// ReadCSV reads delimited rows from any reader.
func ReadCSV(r io.Reader) (*models.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyInput
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	table := &models.Table{Columns: header}

	// Header is line 1; data starts at 2.
	line := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}

		line++

		fields := make(map[string]string, len(header))

		for i, name := range header {
			if i < len(row) {
				fields[name] = row[i]
			}
		}

		table.Rows = append(table.Rows, models.RawRecord{
			Line:   line,
			Fields: fields,
		})
	}

	return table, nil
}
