package dataset

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// LoadPostgres reads every row of table. Column names follow the CSV
// headers; numeric columns may be stored as numeric or text.
func LoadPostgres(ctx context.Context, db *sqlx.DB, table string) (*Dataset, error) {
	query := "SELECT * FROM " + pq.QuoteIdentifier(table)
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}

	var data [][]string
	for rows.Next() {
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = cellString(row[col])
		}
		data = append(data, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate %s: %w", table, err)
	}

	records, err := parseTable(columns, data)
	if err != nil {
		return nil, err
	}
	return New(records), nil
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(t)
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}
