package views

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"math"
	"strings"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/charts"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/pipeline"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/report"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

//go:embed templates
var viewsFS embed.FS

var errNotLoaded = errors.New("dashboard template not loaded: call views.LoadTemplates during startup")

var dashboardTmpl *template.Template

var funcs = template.FuncMap{
	"value":    formatValue,
	"pct":      func(f float64) string { return fmt.Sprintf("%.1f%%", f*100) },
	"date":     func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04") },
	"catClass": func(c classify.Category) string { return strings.ToLower(strings.ReplaceAll(c.String(), " ", "-")) },
}

// loadTemplatesFromFS parses the templates under dir. Tests use it to
// simulate broken template sets.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.New("").Funcs(funcs).ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads the embedded templates. Call during startup before serving requests.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// PeriodRow is one resampled bucket in the dashboard tables.
type PeriodRow struct {
	Label string
	PM25  *float64
	TEMP  *float64
}

type HeatmapCell struct {
	Text    string
	Color   string
	Defined bool
}

type HeatmapRow struct {
	Column string
	Cells  []HeatmapCell
}

// Heatmap is the correlation matrix laid out as a coloured table.
type Heatmap struct {
	Columns []string
	Rows    []HeatmapRow
}

type CategoryRow struct {
	Category classify.Category
	Count    int
	Share    float64
}

type DashboardData struct {
	Summary     report.Summary
	Categories  []CategoryRow
	Monthly     []PeriodRow
	Annual      []PeriodRow
	Heatmap     Heatmap
	Charts      []string
	Stations    []types.Station
	GeneratedAt time.Time
}

// NewDashboardData builds the view model for a pipeline result.
func NewDashboardData(res *pipeline.Result, stations []types.Station) *DashboardData {
	d := &DashboardData{
		Summary:     res.Summary,
		Monthly:     periodRows(res.Resampled[types.Monthly], types.Monthly),
		Annual:      periodRows(res.Resampled[types.Annual], types.Annual),
		Heatmap:     NewHeatmap(res.Correlation),
		Charts:      charts.Names(),
		Stations:    stations,
		GeneratedAt: res.GeneratedAt,
	}
	for _, c := range res.Summary.Categories {
		d.Categories = append(d.Categories, CategoryRow{
			Category: c.Category,
			Count:    c.Count,
			Share:    res.Summary.Share(c.Category),
		})
	}
	return d
}

func periodRows(s types.Series, g types.Granularity) []PeriodRow {
	rows := make([]PeriodRow, 0, s.Len())
	for _, r := range s.Readings {
		rows = append(rows, PeriodRow{Label: g.Label(r.Time), PM25: r.Values[types.PM25], TEMP: r.Values[types.TEMP]})
	}
	return rows
}

// NewHeatmap lays out m; undefined cells read "n/a".
func NewHeatmap(m types.CorrelationMatrix) Heatmap {
	h := Heatmap{Columns: make([]string, len(m.Columns))}
	for i, c := range m.Columns {
		h.Columns[i] = c.String()
	}
	for i, c := range m.Columns {
		row := HeatmapRow{Column: c.String(), Cells: make([]HeatmapCell, len(m.Columns))}
		for j := range m.Columns {
			cell := m.Cells[i][j]
			if !cell.Defined {
				row.Cells[j] = HeatmapCell{Text: "n/a", Color: undefinedColor}
				continue
			}
			row.Cells[j] = HeatmapCell{Text: fmt.Sprintf("%.2f", cell.R), Color: HeatColor(cell.R), Defined: true}
		}
		h.Rows = append(h.Rows, row)
	}
	return h
}

const undefinedColor = "#e0e0e0"

var (
	coldRGB = [3]float64{59, 76, 192}
	hotRGB  = [3]float64{180, 4, 38}
)

// HeatColor maps r in [-1, 1] onto a blue-white-red scale.
func HeatColor(r float64) string {
	if math.IsNaN(r) {
		return undefinedColor
	}
	r = math.Max(-1, math.Min(1, r))
	end := hotRGB
	if r < 0 {
		end = coldRGB
	}
	t := math.Abs(r)
	var rgb [3]int
	for i := range rgb {
		rgb[i] = int(math.Round(255 + (end[i]-255)*t))
	}
	return fmt.Sprintf("#%02x%02x%02x", rgb[0], rgb[1], rgb[2])
}

func formatValue(v *float64) string {
	if v == nil {
		return "–"
	}
	return fmt.Sprintf("%.1f", *v)
}

func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}

// RenderHeatmapPartial executes only the heatmap table. Used for fragment refresh.
func RenderHeatmapPartial(w io.Writer, data *Heatmap) error {
	if dashboardTmpl == nil {
		return errNotLoaded
	}
	return dashboardTmpl.ExecuteTemplate(w, "partials/heatmap.html", data)
}
