package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// PDFGenerator generates PDF reports
type PDFGenerator struct {
	pdf     *gofpdf.Fpdf
	options PDFOptions
	started bool
}

// PDFOptions configures PDF generation
type PDFOptions struct {
	PageSize       string     `json:"page_size"`   // A4, Letter, Legal
	Orientation    string     `json:"orientation"` // portrait, landscape
	Title          string     `json:"title"`
	Subtitle       string     `json:"subtitle,omitempty"`
	Author         string     `json:"author,omitempty"`
	TimestampFmt   string     `json:"timestamp_format"`
	IncludePageNum bool       `json:"include_page_num"`
	IncludeDate    bool       `json:"include_date"`
	HeaderColor    PDFColor   `json:"header_color"`
	AlternateRows  bool       `json:"alternate_rows"`
	AlternateColor PDFColor   `json:"alternate_color"`
	FontFamily     string     `json:"font_family"`
	FontSize       float64    `json:"font_size"`
	HeaderFontSize float64    `json:"header_font_size"`
	TitleFontSize  float64    `json:"title_font_size"`
	Margins        PDFMargins `json:"margins"`
}

// PDFColor represents an RGB color
type PDFColor struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

// PDFMargins represents page margins
type PDFMargins struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
}

// DefaultPDFOptions returns default PDF options
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PageSize:       "A4",
		Orientation:    "portrait",
		Title:          "Report",
		TimestampFmt:   "2006-01-02 15:04",
		IncludePageNum: true,
		IncludeDate:    true,
		HeaderColor:    PDFColor{R: 46, G: 125, B: 50},
		AlternateRows:  true,
		AlternateColor: PDFColor{R: 242, G: 242, B: 242},
		FontFamily:     "Arial",
		FontSize:       10,
		HeaderFontSize: 10,
		TitleFontSize:  16,
		Margins: PDFMargins{
			Left:   15,
			Right:  15,
			Top:    20,
			Bottom: 20,
		},
	}
}

// NewPDFGenerator creates a new PDF generator
func NewPDFGenerator(options PDFOptions) *PDFGenerator {
	orientation := "P"
	if options.Orientation == "landscape" {
		orientation = "L"
	}

	pdf := gofpdf.New(orientation, "mm", options.PageSize, "")
	pdf.SetMargins(options.Margins.Left, options.Margins.Top, options.Margins.Right)
	pdf.SetAutoPageBreak(true, options.Margins.Bottom)
	pdf.SetTitle(options.Title, true)
	if options.Author != "" {
		pdf.SetAuthor(options.Author, true)
	}

	g := &PDFGenerator{pdf: pdf, options: options}
	g.setFooter()
	return g
}

// begin adds the first page with the title block.
func (g *PDFGenerator) begin() {
	if g.started {
		return
	}
	g.started = true
	g.pdf.AddPage()

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.TitleFontSize)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 10, g.options.Title, "", 1, "C", false, 0, "")

	if g.options.Subtitle != "" {
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize+2)
		g.pdf.SetTextColor(100, 100, 100)
		g.pdf.CellFormat(0, 8, g.options.Subtitle, "", 1, "C", false, 0, "")
	}

	if g.options.IncludeDate {
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize-1)
		g.pdf.SetTextColor(128, 128, 128)
		dateStr := fmt.Sprintf("Generated: %s", time.Now().Format(g.options.TimestampFmt))
		g.pdf.CellFormat(0, 6, dateStr, "", 1, "R", false, 0, "")
	}
	g.pdf.Ln(4)
}

// AddSection adds a titled block of label/value pairs in order.
func (g *PDFGenerator) AddSection(title string, fields []Field) {
	g.begin()
	g.pdf.Ln(4)

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+2)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	g.pdf.Ln(1)

	for _, f := range fields {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize)
		g.pdf.CellFormat(60, 6, f.Label+":", "", 0, "L", false, 0, "")
		g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
		g.pdf.MultiCell(0, 6, g.formatValue(f.Value), "", "L", false)
	}
}

// AddList adds a titled bullet list.
func (g *PDFGenerator) AddList(title string, items []string) {
	if len(items) == 0 {
		return
	}
	g.begin()
	g.pdf.Ln(4)

	g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+2)
	g.pdf.SetTextColor(0, 0, 0)
	g.pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	for _, item := range items {
		g.pdf.MultiCell(0, 6, "- "+item, "", "L", false)
	}
}

// AddTable renders t with a repeated header on each page.
func (g *PDFGenerator) AddTable(t Table) {
	g.begin()
	g.pdf.Ln(6)

	if t.Name != "" {
		g.pdf.SetFont(g.options.FontFamily, "B", g.options.FontSize+2)
		g.pdf.SetTextColor(0, 0, 0)
		g.pdf.CellFormat(0, 8, t.Name, "", 1, "L", false, 0, "")
	}

	labels := t.Labels()
	widths := g.columnWidths(t)
	g.addTableHeader(labels, widths)

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	g.pdf.SetTextColor(0, 0, 0)
	_, pageHeight := g.pdf.GetPageSize()

	for i, row := range t.Rows {
		if g.pdf.GetY()+7 > pageHeight-g.options.Margins.Bottom {
			g.pdf.AddPage()
			g.addTableHeader(labels, widths)
			g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
			g.pdf.SetTextColor(0, 0, 0)
		}

		if g.options.AlternateRows && i%2 == 1 {
			g.pdf.SetFillColor(g.options.AlternateColor.R, g.options.AlternateColor.G, g.options.AlternateColor.B)
		} else {
			g.pdf.SetFillColor(255, 255, 255)
		}

		for j, col := range t.Columns {
			val := g.fit(g.formatValue(row[col.Key]), widths[j])
			g.pdf.CellFormat(widths[j], 7, val, "1", 0, "L", true, 0, "")
		}
		g.pdf.Ln(-1)
	}
}

func (g *PDFGenerator) addTableHeader(labels []string, widths []float64) {
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	g.pdf.SetFillColor(g.options.HeaderColor.R, g.options.HeaderColor.G, g.options.HeaderColor.B)
	g.pdf.SetTextColor(255, 255, 255)

	for i, label := range labels {
		g.pdf.CellFormat(widths[i], 8, g.fit(label, widths[i]), "1", 0, "C", true, 0, "")
	}
	g.pdf.Ln(-1)
}

// columnWidths sizes columns to content, scaled down to fit the page.
func (g *PDFGenerator) columnWidths(t Table) []float64 {
	pageWidth, _ := g.pdf.GetPageSize()
	available := pageWidth - g.options.Margins.Left - g.options.Margins.Right

	widths := make([]float64, len(t.Columns))
	g.pdf.SetFont(g.options.FontFamily, "B", g.options.HeaderFontSize)
	for i, label := range t.Labels() {
		widths[i] = g.pdf.GetStringWidth(label) + 4
	}

	g.pdf.SetFont(g.options.FontFamily, "", g.options.FontSize)
	sample := t.Rows
	if len(sample) > 100 {
		sample = sample[:100]
	}
	for _, row := range sample {
		for i, col := range t.Columns {
			if w := g.pdf.GetStringWidth(g.formatValue(row[col.Key])) + 4; w > widths[i] {
				widths[i] = w
			}
		}
	}

	total := 0.0
	for _, w := range widths {
		total += w
	}
	if total > available {
		scale := available / total
		for i := range widths {
			widths[i] *= scale
		}
	}
	return widths
}

// fit truncates s so it renders within width.
func (g *PDFGenerator) fit(s string, width float64) string {
	if g.pdf.GetStringWidth(s) <= width-2 {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && g.pdf.GetStringWidth(string(runes)+"...") > width-2 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

func (g *PDFGenerator) formatValue(val interface{}) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.Format(g.options.TimestampFmt)
	case float64:
		return fmt.Sprintf("%.2f", v)
	case *float64:
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%.2f", *v)
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (g *PDFGenerator) setFooter() {
	g.pdf.SetFooterFunc(func() {
		if !g.options.IncludePageNum {
			return
		}
		g.pdf.SetY(-15)
		g.pdf.SetFont(g.options.FontFamily, "", 8)
		g.pdf.SetTextColor(128, 128, 128)
		g.pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", g.pdf.PageNo()), "", 0, "C", false, 0, "")
	})
}

// WriteTo writes the PDF to a writer
func (g *PDFGenerator) WriteTo(w io.Writer) error {
	g.begin()
	return g.pdf.Output(w)
}

// OutputToBytes returns the PDF as bytes
func (g *PDFGenerator) OutputToBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
