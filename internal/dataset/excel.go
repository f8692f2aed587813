package dataset

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// LoadExcel reads records from a workbook sheet. An empty sheet name selects
// the first sheet.
func LoadExcel(path, sheet string) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, ErrNoRows
	}

	records, err := parseTable(rows[0], rows[1:])
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheet %s: %w", sheet, err)
	}
	return New(records), nil
}
