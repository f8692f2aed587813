package dataset

import (
	"fmt"
	"strconv"
	"strings"
)

var strictColumns = func() map[string]bool {
	m := make(map[string]bool, len(NumericColumns))
	for _, c := range NumericColumns {
		m[c] = true
	}
	return m
}()

// parseTable converts a header and string rows into records. Known numeric
// columns must parse; other columns are kept only when they are numeric.
func parseTable(header []string, rows [][]string) ([]Record, error) {
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	records := make([]Record, 0, len(rows))
	for n, row := range rows {
		if isBlank(row) {
			continue
		}
		rec := Record{Values: make(map[string]float64)}
		for i, col := range header {
			if i >= len(row) {
				break
			}
			cell := strings.TrimSpace(row[i])
			switch col {
			case ColDistrict:
				rec.District = cell
			case ColSoilType:
				rec.SoilType = cell
			case ColCrop, ColMajorCrops:
				if rec.Crop == "" {
					rec.Crop = cell
				}
			default:
				if cell == "" {
					continue
				}
				v, err := strconv.ParseFloat(cell, 64)
				if err != nil {
					if strictColumns[col] {
						return nil, fmt.Errorf("row %d column %s: %w", n+2, col, err)
					}
					continue
				}
				rec.Values[col] = v
			}
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return nil, ErrNoRows
	}
	return records, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
