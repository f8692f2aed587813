package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	FreezeHeader bool              `json:"freeze_header"`
	AutoFilter   bool              `json:"auto_filter"`
	AutoWidth    bool              `json:"auto_width"`
	NumberFormat string            `json:"number_format"`
	HeaderStyle  *ExcelStyleConfig `json:"header_style,omitempty"`
}

// ExcelStyleConfig defines style for cells
type ExcelStyleConfig struct {
	FontBold  bool   `json:"font_bold"`
	FontSize  int    `json:"font_size"`
	FontColor string `json:"font_color"`
	FillColor string `json:"fill_color"`
	Alignment string `json:"alignment"` // left, center, right
	Border    bool   `json:"border"`
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions() ExcelOptions {
	return ExcelOptions{
		FreezeHeader: true,
		AutoFilter:   true,
		AutoWidth:    true,
		NumberFormat: "#,##0.00",
		HeaderStyle: &ExcelStyleConfig{
			FontBold:  true,
			FontSize:  11,
			FillColor: "2E7D32",
			FontColor: "FFFFFF",
			Alignment: "center",
			Border:    true,
		},
	}
}

// Workbook writes one or more tables as sheets of an xlsx file.
type Workbook struct {
	file    *excelize.File
	options ExcelOptions
	sheets  int

	headerStyle int
	numberStyle int
	dateStyle   int
}

// NewWorkbook creates an empty workbook
func NewWorkbook(options ExcelOptions) (*Workbook, error) {
	w := &Workbook{file: excelize.NewFile(), options: options}

	if options.HeaderStyle != nil {
		id, err := w.createStyle(options.HeaderStyle)
		if err != nil {
			return nil, fmt.Errorf("failed to create header style: %w", err)
		}
		w.headerStyle = id
	}
	if options.NumberFormat != "" {
		format := options.NumberFormat
		id, err := w.file.NewStyle(&excelize.Style{CustomNumFmt: &format})
		if err != nil {
			return nil, fmt.Errorf("failed to create number style: %w", err)
		}
		w.numberStyle = id
	}
	id, err := w.file.NewStyle(&excelize.Style{NumFmt: 22}) // m/d/yy h:mm
	if err != nil {
		return nil, fmt.Errorf("failed to create date style: %w", err)
	}
	w.dateStyle = id
	return w, nil
}

// AddTable writes t to a new sheet named after the table.
func (w *Workbook) AddTable(t Table) error {
	name := t.Name
	if name == "" {
		name = fmt.Sprintf("Sheet%d", w.sheets+1)
	}

	// The default sheet is reused for the first table.
	if w.sheets == 0 {
		if err := w.file.SetSheetName("Sheet1", name); err != nil {
			return fmt.Errorf("failed to rename sheet: %w", err)
		}
	} else if _, err := w.file.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	w.sheets++

	if err := w.writeHeader(name, t.Labels()); err != nil {
		return err
	}
	return w.writeRows(name, t)
}

func (w *Workbook) writeHeader(sheet string, labels []string) error {
	for i, label := range labels {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := w.file.SetCellValue(sheet, cell, label); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		if w.headerStyle > 0 {
			w.file.SetCellStyle(sheet, cell, cell, w.headerStyle)
		}
	}

	if w.options.FreezeHeader {
		w.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
	return nil
}

func (w *Workbook) writeRows(sheet string, t Table) error {
	keys := t.Keys()
	widths := make([]float64, len(keys))
	for i, label := range t.Labels() {
		widths[i] = cellWidth(label)
	}

	for r, row := range t.Rows {
		for c, key := range keys {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			val := row[key]
			if err := w.setCellValue(sheet, cell, val); err != nil {
				return fmt.Errorf("failed to set cell value: %w", err)
			}
			if width := cellWidth(val); width > widths[c] {
				widths[c] = width
			}
		}
	}

	if w.options.AutoFilter && len(t.Rows) > 0 && len(keys) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(keys), len(t.Rows)+1)
		w.file.AutoFilter(sheet, "A1:"+last, nil)
	}

	if w.options.AutoWidth {
		for i, width := range widths {
			col, _ := excelize.ColumnNumberToName(i + 1)
			// Min width 10, max width 50
			if width < 10 {
				width = 10
			}
			if width > 50 {
				width = 50
			}
			w.file.SetColWidth(sheet, col, col, width)
		}
	}
	return nil
}

func (w *Workbook) setCellValue(sheet, cell string, val interface{}) error {
	switch v := val.(type) {
	case nil:
		return w.file.SetCellValue(sheet, cell, "")
	case *float64:
		if v == nil {
			return w.file.SetCellValue(sheet, cell, "")
		}
		return w.setCellValue(sheet, cell, *v)
	case float64:
		if err := w.file.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		if w.numberStyle > 0 {
			return w.file.SetCellStyle(sheet, cell, cell, w.numberStyle)
		}
		return nil
	case time.Time:
		if v.IsZero() {
			return w.file.SetCellValue(sheet, cell, "")
		}
		if err := w.file.SetCellValue(sheet, cell, v); err != nil {
			return err
		}
		return w.file.SetCellStyle(sheet, cell, cell, w.dateStyle)
	case fmt.Stringer:
		return w.file.SetCellValue(sheet, cell, v.String())
	default:
		return w.file.SetCellValue(sheet, cell, v)
	}
}

func (w *Workbook) createStyle(config *ExcelStyleConfig) (int, error) {
	style := &excelize.Style{
		Font: &excelize.Font{
			Bold:  config.FontBold,
			Size:  float64(config.FontSize),
			Color: config.FontColor,
		},
	}
	if config.FillColor != "" {
		style.Fill = excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{config.FillColor},
		}
	}
	if config.Alignment != "" {
		style.Alignment = &excelize.Alignment{Horizontal: config.Alignment}
	}
	if config.Border {
		style.Border = []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		}
	}
	return w.file.NewStyle(style)
}

// SheetNames lists the sheets written so far.
func (w *Workbook) SheetNames() []string {
	return w.file.GetSheetList()
}

// WriteTo writes the workbook to a writer
func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.file.WriteTo(out)
}

// Bytes renders the workbook.
func (w *Workbook) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := w.file.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Close closes the workbook
func (w *Workbook) Close() error {
	return w.file.Close()
}

// cellWidth estimates the display width of a cell value
func cellWidth(val interface{}) float64 {
	if val == nil {
		return 0
	}
	return float64(len(fmt.Sprintf("%v", val))) * 1.2
}
