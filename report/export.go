// Package report exports page scores as a spreadsheet for the account team.
package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/seo-optimizer/seoengine/analyzer"
)

const sheetName = "SEO"

// Row is one exported page
type Row struct {
	Profile  analyzer.PageSeoProfile
	Analysis analyzer.AnalysisResult
}

// NewRow analyzes p and wraps it as a row
func NewRow(p analyzer.PageSeoProfile) Row {
	return Row{Profile: p, Analysis: analyzer.Analyze(p)}
}

var fixedColumns = []string{"Slug", "Title", "Focus keyword", "Score", "Band"}

// Columns returns the header row. Category columns follow the rubric order.
func Columns() []string {
	cols := append([]string{}, fixedColumns...)
	for _, c := range analyzer.Analyze(analyzer.PageSeoProfile{}).Categories {
		cols = append(cols, fmt.Sprintf("%s (/%d)", c.Name, c.MaxScore))
	}
	return append(cols, "Keyword density %", "Density")
}

// Write renders rows into an xlsx workbook on w
func Write(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"1E88E5"}},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	bandStyles := make(map[analyzer.Band]int)
	for band, color := range map[analyzer.Band]string{
		analyzer.BandGood:     "C8E6C9",
		analyzer.BandWarn:     "FFF9C4",
		analyzer.BandCritical: "FFCDD2",
	} {
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}},
		})
		if err != nil {
			return fmt.Errorf("create band style: %w", err)
		}
		bandStyles[band] = style
	}

	columns := Columns()
	for i, name := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, name)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)

		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := 14.0
		if i < 3 {
			width = 32
		}
		f.SetColWidth(sheetName, colName, colName, width)
	}

	for r, row := range rows {
		values := []interface{}{
			row.Profile.Slug,
			row.Profile.Title,
			row.Profile.FocusKeyword,
			row.Analysis.Score,
			string(row.Analysis.Band),
		}
		for _, c := range row.Analysis.Categories {
			values = append(values, c.Score)
		}
		values = append(values, row.Analysis.Density.Percent, string(row.Analysis.Density.Band))

		first, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(sheetName, first, &values); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}

		if style, ok := bandStyles[row.Analysis.Band]; ok {
			scoreCell, _ := excelize.CoordinatesToCellName(4, r+2)
			bandCell, _ := excelize.CoordinatesToCellName(5, r+2)
			f.SetCellStyle(sheetName, scoreCell, bandCell, style)
		}
	}

	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
