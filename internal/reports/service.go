package reports

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"agronity/agronity-backend/internal/feasibility"
	"agronity/agronity-backend/internal/history"
	"agronity/agronity-backend/internal/reports/export"
	"go.uber.org/zap"
)

// Service renders feasibility reports and history exports
type Service struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new reports service
func NewService(logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{logger: logger, now: time.Now}
}

// FeasibilityPDF renders a single evaluation as a PDF document.
func (s *Service) FeasibilityPDF(q feasibility.Query, res feasibility.Result) ([]byte, error) {
	opts := export.DefaultPDFOptions()
	opts.Title = "Crop Feasibility Report"
	opts.Subtitle = fmt.Sprintf("%s in %s", q.Crop, q.District)
	opts.Author = "AgroNity"
	g := export.NewPDFGenerator(opts)

	g.AddSection("Query", []export.Field{
		{Label: "Crop", Value: q.Crop},
		{Label: "District", Value: q.District},
		{Label: "Soil Type", Value: q.SoilType},
		{Label: "Area (acres)", Value: q.AreaAcres},
		{Label: "Model", Value: string(res.Strategy)},
	})

	outcome := []export.Field{{Label: "Status", Value: string(res.Status)}, {Label: "Feasible", Value: res.Feasible}}
	if res.Error != "" {
		outcome = append(outcome, export.Field{Label: "Error", Value: res.Error})
	}
	g.AddSection("Outcome", outcome)
	g.AddList("Reasons", res.Reasons)

	if p := res.Projection; p != nil {
		g.AddSection("Financial Projection", ProjectionFields(p))
	}
	if r := res.RegionalScores; r != nil {
		g.AddSection("Regional Scores", RegionalFields(r))
	}

	data, err := g.OutputToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render feasibility report: %w", err)
	}
	return data, nil
}

// ProjectionFields lists the projection values in display order.
func ProjectionFields(p *feasibility.Projection) []export.Field {
	return []export.Field{
		{Label: "Probability", Value: p.Probability},
		{Label: "Expected Yield (t/ha)", Value: p.ExpectedYield},
		{Label: "Yield Percentage", Value: p.YieldPercentage},
		{Label: "Area (ha)", Value: p.AreaHa},
		{Label: "Mandi Price (Rs/quintal)", Value: p.MandiPrice},
		{Label: "Total Revenue (Rs)", Value: p.TotalRevenue},
		{Label: "Total Cost (Rs)", Value: p.TotalCost},
		{Label: "Profit (Rs)", Value: p.Profit},
		{Label: "Revenue Year 1 (Rs)", Value: p.Revenue1Yr},
		{Label: "Revenue Year 2 (Rs)", Value: p.Revenue2Yr},
	}
}

// RegionalFields lists the regional scores in display order.
func RegionalFields(r *feasibility.RegionalScores) []export.Field {
	fields := []export.Field{
		{Label: "Feasibility Score", Value: r.FeasibilityScore},
		{Label: "Productivity Score", Value: r.ProductivityScore},
		{Label: "Profit/Loss (%)", Value: r.ProfitLossPercent},
	}
	if r.FutureGrowthPercent != nil {
		fields = append(fields, export.Field{Label: "Future Growth (%)", Value: *r.FutureGrowthPercent})
	}
	return append(fields, export.Field{Label: "Matched Rows", Value: r.MatchedRows})
}

var historyColumns = []export.Column{
	{Key: "id", Label: "ID"},
	{Key: "created_at", Label: "Created At"},
	{Key: "kind", Label: "Kind"},
	{Key: "crop", Label: "Crop"},
	{Key: "district", Label: "District"},
	{Key: "soil_type", Label: "Soil Type"},
	{Key: "area_acres", Label: "Area (acres)"},
	{Key: "filename", Label: "Filename"},
	{Key: "strategy", Label: "Model"},
	{Key: "status", Label: "Status"},
	{Key: "feasible", Label: "Feasible"},
	{Key: "probability", Label: "Probability"},
	{Key: "profit", Label: "Profit (Rs)"},
	{Key: "feasibility_score", Label: "Feasibility Score"},
	{Key: "productivity_score", Label: "Productivity Score"},
	{Key: "health_status", Label: "Health"},
}

// HistoryTable lays out evaluations as rows.
func HistoryTable(evals []history.Evaluation) export.Table {
	t := export.Table{Name: "Evaluations", Columns: historyColumns, Rows: make([]export.Row, 0, len(evals))}
	for _, e := range evals {
		row := export.Row{
			"id":                 e.ID.String(),
			"created_at":         e.CreatedAt,
			"kind":               string(e.Kind),
			"crop":               e.Crop,
			"district":           e.District,
			"soil_type":          e.SoilType,
			"filename":           e.Filename,
			"strategy":           e.Strategy,
			"status":             e.Status,
			"probability":        e.Probability,
			"profit":             e.Profit,
			"feasibility_score":  e.FeasibilityScore,
			"productivity_score": e.ProductivityScore,
			"health_status":      e.HealthStatus,
		}
		if e.Kind == history.KindFeasibility {
			row["area_acres"] = e.AreaAcres
			row["feasible"] = e.Feasible
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// SummaryFields flattens a history summary with stable ordering.
func SummaryFields(sum history.Summary) []export.Field {
	fields := []export.Field{
		{Label: "Total Evaluations", Value: sum.Total},
		{Label: "Feasible", Value: sum.Feasible},
	}
	fields = append(fields, countFields("Kind", sum.ByKind)...)
	fields = append(fields, countFields("Status", sum.ByStatus)...)
	return append(fields, countFields("Model", sum.ByStrategy)...)
}

func countFields(prefix string, counts map[string]int) []export.Field {
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]export.Field, 0, len(keys))
	for _, k := range keys {
		fields = append(fields, export.Field{Label: prefix + ": " + k, Value: counts[k]})
	}
	return fields
}

// WriteHistory renders evals in the requested format to w.
func (s *Service) WriteHistory(w io.Writer, format ExportFormat, evals []history.Evaluation) error {
	table := HistoryTable(evals)
	summary := SummaryFields(history.Summarize(evals))

	switch format {
	case ExportFormatCSV:
		return export.NewCSVExporter(w, export.DefaultCSVOptions()).WriteTable(table)

	case ExportFormatExcel:
		wb, err := export.NewWorkbook(export.DefaultExcelOptions())
		if err != nil {
			return err
		}
		defer wb.Close()
		if err := wb.AddTable(table); err != nil {
			return err
		}
		if err := wb.AddTable(export.FieldsTable("Summary", summary)); err != nil {
			return err
		}
		_, err = wb.WriteTo(w)
		return err

	case ExportFormatPDF:
		opts := export.DefaultPDFOptions()
		opts.Title = "Evaluation History"
		opts.Orientation = "landscape"
		g := export.NewPDFGenerator(opts)
		g.AddSection("Summary", summary)
		g.AddTable(compactTable(table))
		return g.WriteTo(w)

	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// RenderHistory is WriteHistory into memory.
func (s *Service) RenderHistory(format ExportFormat, evals []history.Evaluation) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.WriteHistory(&buf, format, evals); err != nil {
		s.logger.Error("Failed to render history export",
			zap.String("format", string(format)),
			zap.Int("rows", len(evals)),
			zap.Error(err))
		return nil, err
	}
	return buf.Bytes(), nil
}

// SnapshotKey names an export written at the current time.
func (s *Service) SnapshotKey(prefix string, format ExportFormat) string {
	return fmt.Sprintf("%shistory-%s%s", prefix, s.now().UTC().Format("20060102-150405"), format.Extension())
}

// compactTable drops the columns that do not fit a printed page.
func compactTable(t export.Table) export.Table {
	keep := map[string]bool{
		"created_at": true, "kind": true, "crop": true, "district": true,
		"strategy": true, "status": true, "probability": true, "profit": true,
		"feasibility_score": true, "health_status": true,
	}
	out := export.Table{Name: t.Name, Rows: t.Rows}
	for _, c := range t.Columns {
		if keep[c.Key] {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}
