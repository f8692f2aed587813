package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSVExporter exports tables to CSV format
type CSVExporter struct {
	writer        *csv.Writer
	options       CSVOptions
	headerWritten bool
}

// CSVOptions configures CSV export behavior
type CSVOptions struct {
	Delimiter       rune   `json:"delimiter"`
	UseCRLF         bool   `json:"use_crlf"`
	IncludeHeader   bool   `json:"include_header"`
	TimestampFormat string `json:"timestamp_format"`
	NumberFormat    string `json:"number_format"` // e.g. "%.2f"
	NullValue       string `json:"null_value"`
}

// DefaultCSVOptions returns default CSV export options
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{
		Delimiter:       ',',
		IncludeHeader:   true,
		TimestampFormat: time.RFC3339,
	}
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(w io.Writer, options CSVOptions) *CSVExporter {
	if options.Delimiter == 0 {
		options.Delimiter = ','
	}
	if options.TimestampFormat == "" {
		options.TimestampFormat = time.RFC3339
	}
	writer := csv.NewWriter(w)
	writer.Comma = options.Delimiter
	writer.UseCRLF = options.UseCRLF

	return &CSVExporter{
		writer:  writer,
		options: options,
	}
}

// WriteHeader writes the CSV header row
func (e *CSVExporter) WriteHeader(labels []string) error {
	if !e.options.IncludeHeader || e.headerWritten {
		return nil
	}
	if err := e.writer.Write(labels); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	e.headerWritten = true
	return nil
}

// WriteRows writes rows in column order. Missing keys become NullValue.
func (e *CSVExporter) WriteRows(rows []Row, keys []string) error {
	for _, row := range rows {
		record := make([]string, len(keys))
		for i, key := range keys {
			val, ok := row[key]
			if !ok {
				record[i] = e.options.NullValue
				continue
			}
			record[i] = e.formatValue(val)
		}
		if err := e.writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// WriteTable writes the header and every row of t, then flushes.
func (e *CSVExporter) WriteTable(t Table) error {
	if err := e.WriteHeader(t.Labels()); err != nil {
		return err
	}
	if err := e.WriteRows(t.Rows, t.Keys()); err != nil {
		return err
	}
	return e.Flush()
}

// Flush writes any buffered data to the underlying writer
func (e *CSVExporter) Flush() error {
	e.writer.Flush()
	return e.writer.Error()
}

func (e *CSVExporter) formatValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return e.options.NullValue
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		if e.options.NumberFormat != "" {
			return fmt.Sprintf(e.options.NumberFormat, v)
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case *float64:
		if v == nil {
			return e.options.NullValue
		}
		return e.formatValue(*v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return e.options.NullValue
		}
		return v.Format(e.options.TimestampFormat)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
