package export

import (
	"bytes"
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/floorpro/measure-backend-go/internal/measure/metrics"
	"github.com/floorpro/measure-backend-go/internal/measure/openings"
	"github.com/floorpro/measure-backend-go/internal/models"
	"github.com/floorpro/measure-backend-go/internal/spatial"
)

// Sheet names in the takeoff workbook
const (
	SheetSummary  = "Summary"
	SheetWalls    = "Walls"
	SheetOpenings = "Openings"
)

var (
	wallHeader    = []string{"Wall", "From", "To", "Length (in)", "Length", "Source"}
	openingHeader = []string{"Opening", "Type", "Wall", "Width (in)", "Offset (in)"}
)

// Takeoff builds an XLSX workbook with the plan totals, one row per wall and
// one row per opening
func Takeoff(g *models.Geometry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetWalls, SheetOpenings} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	calc := metrics.Calculate(g)
	conf := metrics.Score(g.Segments)
	counts := openings.Count(g.Openings)
	summary := [][]any{
		{"Geometry", g.ID},
		{"Room", g.RoomID},
		{"Version", g.Version},
		{"Area (sq ft)", round2(calc.Area)},
		{"Perimeter (ft)", round2(calc.Perimeter)},
		{"Baseboard (lf)", round2(calc.BaseboardLf)},
		{"Confidence", conf.Score},
		{"Doors", counts.Doors},
		{"Windows", counts.Windows},
		{"Points", len(g.Points)},
		{"Walls", len(g.Segments)},
	}
	for i, row := range summary {
		if err := writeRow(f, SheetSummary, i+1, row); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(SheetSummary, "A1", fmt.Sprintf("A%d", len(summary)), headerStyle); err != nil {
		return nil, fmt.Errorf("failed to style summary: %w", err)
	}

	if err := writeHeader(f, SheetWalls, wallHeader, headerStyle); err != nil {
		return nil, err
	}
	for i, s := range g.Segments {
		row := []any{s.ID, s.A, s.B, round2(s.Length), spatial.FormatFeetInches(s.Length), s.Source}
		if err := writeRow(f, SheetWalls, i+2, row); err != nil {
			return nil, err
		}
	}

	if err := writeHeader(f, SheetOpenings, openingHeader, headerStyle); err != nil {
		return nil, err
	}
	for i, o := range g.Openings {
		row := []any{o.ID, o.Type, o.SegmentID, round2(o.Width), round2(o.OffsetFromA)}
		if err := writeRow(f, SheetOpenings, i+2, row); err != nil {
			return nil, err
		}
	}

	for _, sheet := range []string{SheetSummary, SheetWalls, SheetOpenings} {
		if err := f.SetColWidth(sheet, "A", "F", 18); err != nil {
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeHeader(f *excelize.File, sheet string, header []string, style int) error {
	row := make([]any, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := writeRow(f, sheet, 1, row); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to set header style: %w", err)
	}
	return f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
