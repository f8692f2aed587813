package dataset

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"
)

// Sources lists where a dataset is read from. Every configured source is
// loaded and the results are concatenated in the order CSV, Excel, Postgres.
type Sources struct {
	CSVPaths      []string
	ExcelPath     string
	ExcelSheet    string
	PostgresTable string
}

// Empty reports whether no source is configured.
func (s Sources) Empty() bool {
	return len(s.CSVPaths) == 0 && s.ExcelPath == "" && s.PostgresTable == ""
}

// Load reads every configured source. db is only used when PostgresTable is
// set.
func Load(ctx context.Context, src Sources, db *sqlx.DB) (*Dataset, error) {
	var sets []*Dataset

	if len(src.CSVPaths) > 0 {
		d, err := LoadCSVFiles(src.CSVPaths...)
		if err != nil {
			return nil, err
		}
		sets = append(sets, d)
	}
	if src.ExcelPath != "" {
		d, err := LoadExcel(src.ExcelPath, src.ExcelSheet)
		if err != nil {
			return nil, err
		}
		sets = append(sets, d)
	}
	if src.PostgresTable != "" {
		if db == nil {
			return nil, errors.New("dataset: postgres table configured without a database connection")
		}
		d, err := LoadPostgres(ctx, db, src.PostgresTable)
		if err != nil {
			return nil, err
		}
		sets = append(sets, d)
	}
	return Concat(sets...), nil
}
