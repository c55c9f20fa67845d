package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/pipeline"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/report"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

var (
	borderColor = lipgloss.Color("#5c6370")
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#61afef")).MarginTop(1)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	mutedStyle  = lipgloss.NewStyle().Foreground(borderColor)

	categoryColors = map[classify.Category]lipgloss.Color{
		classify.Low:      lipgloss.Color("#98c379"),
		classify.Moderate: lipgloss.Color("#e5c07b"),
		classify.High:     lipgloss.Color("#d19a66"),
		classify.VeryHigh: lipgloss.Color("#e06c75"),
	}
)

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(borderColor)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		String()
}

func section(w io.Writer, title, body string) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintln(w, body)
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f", *v)
}

func printSummary(w io.Writer, s report.Summary) {
	rows := [][]string{
		{"source", s.Source},
		{"rows", fmt.Sprint(s.Rows)},
	}
	if s.Rows > 0 {
		rows = append(rows,
			[]string{"start", s.Start.Format("2006-01-02 15:04")},
			[]string{"end", s.End.Format("2006-01-02 15:04")},
		)
	}
	before, after := s.MissingTotal()
	rows = append(rows, []string{"missing values", fmt.Sprintf("%d before, %d after cleaning", before, after)})
	section(w, "Summary", renderTable([]string{"", ""}, rows))
}

func printPeriods(w io.Writer, g types.Granularity, s types.Series) {
	rows := make([][]string, 0, s.Len())
	for _, r := range s.Readings {
		rows = append(rows, []string{
			g.Label(r.Time),
			formatFloat(r.Values[types.PM25]),
			formatFloat(r.Values[types.PM10]),
			formatFloat(r.Values[types.TEMP]),
		})
	}
	if len(rows) == 0 {
		section(w, title(g), mutedStyle.Render("no data"))
		return
	}
	section(w, title(g), renderTable([]string{"period", "PM2.5", "PM10", "TEMP"}, rows))
}

func title(g types.Granularity) string {
	s := string(g)
	return strings.ToUpper(s[:1]) + s[1:] + " means"
}

func printMatrix(w io.Writer, m types.CorrelationMatrix) {
	if len(m.Columns) == 0 {
		return
	}
	headers := make([]string, 0, len(m.Columns)+1)
	headers = append(headers, "")
	for _, c := range m.Columns {
		headers = append(headers, c.String())
	}
	rows := make([][]string, len(m.Columns))
	for i, c := range m.Columns {
		row := make([]string, 0, len(m.Columns)+1)
		row = append(row, c.String())
		for _, cell := range m.Cells[i] {
			if !cell.Defined {
				row = append(row, "n/a")
				continue
			}
			row = append(row, fmt.Sprintf("%.2f", cell.R))
		}
		rows[i] = row
	}
	section(w, "Correlation", renderTable(headers, rows))
}

func printCategories(w io.Writer, s report.Summary) {
	rows := make([][]string, 0, len(s.Categories)+1)
	for _, cc := range s.Categories {
		name := lipgloss.NewStyle().Foreground(categoryColors[cc.Category]).Render(cc.Category.String())
		rows = append(rows, []string{name, fmt.Sprint(cc.Count), fmt.Sprintf("%.1f%%", s.Share(cc.Category)*100)})
	}
	if s.Unclassified > 0 {
		rows = append(rows, []string{"unclassified", fmt.Sprint(s.Unclassified), ""})
	}
	section(w, "PM2.5 categories", renderTable([]string{"category", "hours", "share"}, rows))
}

func printResult(w io.Writer, res *pipeline.Result) {
	printSummary(w, res.Summary)
	for _, g := range []types.Granularity{types.Monthly, types.Annual} {
		if s, ok := res.Resampled[g]; ok {
			printPeriods(w, g, s)
		}
	}
	printMatrix(w, res.Correlation)
	if res.CorrelationErr != nil {
		fmt.Fprintln(w, mutedStyle.Render(res.CorrelationErr.Error()))
	}
	printCategories(w, res.Summary)
}
