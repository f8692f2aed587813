package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// LoadCSV reads records from a CSV stream whose first row is the header.
func LoadCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}
	return parseTable(rows[0], rows[1:])
}

// LoadCSVFiles loads and concatenates CSV files in the given order.
func LoadCSVFiles(paths ...string) (*Dataset, error) {
	var all []Record
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open dataset %s: %w", path, err)
		}
		records, err := LoadCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to load dataset %s: %w", path, err)
		}
		all = append(all, records...)
	}
	return New(all), nil
}
