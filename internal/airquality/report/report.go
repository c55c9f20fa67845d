// Package report summarises a pipeline run for the CLI and the dashboard.
package report

import (
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/classify"
	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// DefaultHead is the number of leading rows shown in a preview.
const DefaultHead = 5

// ColumnMissing is the null count of one column before and after cleaning.
type ColumnMissing struct {
	Column types.Column `json:"column"`
	Before int          `json:"before"`
	After  int          `json:"after"`
}

type Summary struct {
	Source       string                   `json:"source"`
	Rows         int                      `json:"rows"`
	Start        time.Time                `json:"start"`
	End          time.Time                `json:"end"`
	Missing      []ColumnMissing          `json:"missing"`
	Categories   []classify.CategoryCount `json:"categories"`
	Unclassified int                      `json:"unclassified"`
	Head         []types.Reading          `json:"head"`
}

// Summarize builds the summary of one run. raw is the series before cleaning,
// cleaned the forward-filled one; head caps the preview, non-positive means DefaultHead.
func Summarize(source string, raw, cleaned types.Series, as []classify.Assignment, head int) Summary {
	if head <= 0 {
		head = DefaultHead
	}
	before := raw.MissingCounts()
	after := cleaned.MissingCounts()
	missing := make([]ColumnMissing, 0, types.ColumnCount)
	for _, c := range types.Columns() {
		missing = append(missing, ColumnMissing{Column: c, Before: before[c], After: after[c]})
	}

	counts, unclassified := classify.Counts(as)
	start, end := cleaned.Span()

	n := min(head, cleaned.Len())
	preview := make([]types.Reading, n)
	for i := 0; i < n; i++ {
		preview[i] = cleaned.Readings[i].Clone()
	}

	return Summary{
		Source:       source,
		Rows:         cleaned.Len(),
		Start:        start,
		End:          end,
		Missing:      missing,
		Categories:   counts,
		Unclassified: unclassified,
		Head:         preview,
	}
}

// MissingTotal returns the total null count before and after cleaning.
func (s Summary) MissingTotal() (before, after int) {
	for _, m := range s.Missing {
		before += m.Before
		after += m.After
	}
	return before, after
}

// Share returns the fraction of classified rows in category c.
func (s Summary) Share(c classify.Category) float64 {
	total := 0
	n := 0
	for _, cc := range s.Categories {
		total += cc.Count
		if cc.Category == c {
			n = cc.Count
		}
	}
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total)
}
