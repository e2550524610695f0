// Package export writes the product catalog to a spreadsheet and renders
// summary bar charts next to it.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/foodfacts/scraper/config"
	"github.com/foodfacts/scraper/internal/domain"
	"github.com/rs/zerolog"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/xuri/excelize/v2"
)

// SheetName is the worksheet holding the product rows
const SheetName = "products"

const (
	chartHeight   = 512
	minChartWidth = 800
	barWidth      = 60
	barSpacing    = 40
)

// FileExporter writes the spreadsheet and charts into a directory
type FileExporter struct {
	cfg    config.ExportConfig
	logger zerolog.Logger
}

// NewFileExporter creates a new exporter writing into cfg.Dir
func NewFileExporter(cfg config.ExportConfig, logger zerolog.Logger) *FileExporter {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	if cfg.TopCategories <= 0 {
		cfg.TopCategories = 10
	}
	return &FileExporter{
		cfg:    cfg,
		logger: logger.With().Str("component", "exporter").Logger(),
	}
}

// Export writes the spreadsheet and whichever charts have data.
// An empty record set returns domain.ErrNoRecords.
func (e *FileExporter) Export(ctx context.Context, records []domain.ProductRecord) (*domain.ExportResult, error) {
	if len(records) == 0 {
		return nil, domain.ErrNoRecords
	}
	if err := os.MkdirAll(e.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	result := &domain.ExportResult{Records: len(records)}

	sheetPath := filepath.Join(e.cfg.Dir, e.cfg.Spreadsheet)
	if err := WriteSpreadsheet(sheetPath, records); err != nil {
		return nil, err
	}
	result.Spreadsheet = sheetPath
	e.logger.Info().Str("path", sheetPath).Int("rows", len(records)).Msg("spreadsheet written")

	if err := ctx.Err(); err != nil {
		return result, err
	}

	grades := gradeBars(records)
	if len(grades) == 0 {
		e.logger.Warn().Msg("no nutrition grades, skipping nutriscore chart")
	} else {
		path := filepath.Join(e.cfg.Dir, e.cfg.NutriscoreChart)
		if err := renderBarChart(path, "Nutri-Score distribution", grades); err != nil {
			return result, err
		}
		result.Charts = append(result.Charts, path)
		e.logger.Info().Str("path", path).Msg("chart written")
	}

	categories := categoryBars(records, e.cfg.TopCategories)
	if len(categories) == 0 {
		e.logger.Warn().Msg("no categories, skipping categories chart")
	} else {
		path := filepath.Join(e.cfg.Dir, e.cfg.CategoriesChart)
		title := fmt.Sprintf("Top %d categories", e.cfg.TopCategories)
		if err := renderBarChart(path, title, categories); err != nil {
			return result, err
		}
		result.Charts = append(result.Charts, path)
		e.logger.Info().Str("path", path).Msg("chart written")
	}

	return result, nil
}

// WriteSpreadsheet writes a header row of field names followed by one row
// per record
func WriteSpreadsheet(path string, records []domain.ProductRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]interface{}, len(domain.Fields))
	for i, name := range domain.Fields {
		header[i] = name
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	if err := f.SetRowStyle(SheetName, 1, 1, bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i := range records {
		values := records[i].Values()
		row := make([]interface{}, len(values))
		for j, v := range values {
			row[j] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save spreadsheet %s: %w", path, err)
	}
	return nil
}

// gradeBars counts non-empty grades, sorted by grade
func gradeBars(records []domain.ProductRecord) []chart.Value {
	var bars []chart.Value
	for _, g := range domain.CountGrades(records) {
		if g.Nutriscore == "" {
			continue
		}
		bars = append(bars, chart.Value{Label: g.Nutriscore, Value: float64(g.Count)})
	}
	return bars
}

// categoryBars counts the top category tokens
func categoryBars(records []domain.ProductRecord, top int) []chart.Value {
	var bars []chart.Value
	for _, c := range domain.TopCategories(records, top) {
		bars = append(bars, chart.Value{Label: c.Category, Value: float64(c.Count)})
	}
	return bars
}

// renderBarChart draws bars into a PNG file at path
func renderBarChart(path, title string, bars []chart.Value) error {
	maxValue := 0.0
	for _, b := range bars {
		if b.Value > maxValue {
			maxValue = b.Value
		}
	}

	width := len(bars)*(barWidth+barSpacing) + 2*barSpacing
	if width < minChartWidth {
		width = minChartWidth
	}

	graph := chart.BarChart{
		Title: title,
		Background: chart.Style{
			Padding: chart.Box{Top: 60, Left: 20, Right: 20, Bottom: 20},
		},
		Width:      width,
		Height:     chartHeight,
		BarWidth:   barWidth,
		BarSpacing: barSpacing,
		// a fixed range keeps single-value charts from collapsing
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: maxValue + 1},
		},
		Bars: bars,
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart %s: %w", path, err)
	}
	defer out.Close()

	if err := graph.Render(chart.PNG, out); err != nil {
		return fmt.Errorf("render chart %s: %w", path, err)
	}
	return nil
}
