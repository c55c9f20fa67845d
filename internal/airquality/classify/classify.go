// Package classify bins PM2.5 concentrations into ordinal categories.
package classify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

type Category int

const (
	Low Category = iota
	Moderate
	High
	VeryHigh
)

var categoryNames = [...]string{
	Low:      "Low",
	Moderate: "Moderate",
	High:     "High",
	VeryHigh: "Very High",
}

// Categories lists every category from lowest to highest.
func Categories() []Category {
	return []Category{Low, Moderate, High, VeryHigh}
}

func (c Category) String() string {
	if c < Low || c > VeryHigh {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

func (c Category) MarshalText() ([]byte, error) {
	if c < Low || c > VeryHigh {
		return nil, fmt.Errorf("%w: category %d", types.ErrInvalidInput, int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(b []byte) error {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(b))), " ", "")
	for i, n := range categoryNames {
		if strings.ReplaceAll(strings.ToLower(n), " ", "") == s {
			*c = Category(i)
			return nil
		}
	}
	return fmt.Errorf("%w: unknown category %q", types.ErrInvalidInput, string(b))
}

// Binning holds the lower bounds of the Moderate, High and VeryHigh categories.
// Each bound belongs to the category it opens.
type Binning struct {
	Moderate float64 `mapstructure:"moderate" json:"moderate"`
	High     float64 `mapstructure:"high" json:"high"`
	VeryHigh float64 `mapstructure:"very_high" json:"veryHigh"`
}

// DefaultBinning uses the 35 / 75 / 150 µg/m³ thresholds.
var DefaultBinning = Binning{Moderate: 35, High: 75, VeryHigh: 150}

// Validate requires finite, strictly increasing thresholds.
func (b Binning) Validate() error {
	for _, v := range []float64{b.Moderate, b.High, b.VeryHigh} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: thresholds must be finite: %+v", types.ErrInvalidInput, b)
		}
	}
	if !(b.Moderate < b.High && b.High < b.VeryHigh) {
		return fmt.Errorf("%w: thresholds must be strictly increasing: %+v", types.ErrInvalidInput, b)
	}
	return nil
}

// Classify maps v to its category. NaN has no category and is rejected with
// ErrInvalidInput.
func (b Binning) Classify(v float64) (Category, error) {
	switch {
	case math.IsNaN(v):
		return 0, fmt.Errorf("%w: PM2.5 value is NaN", types.ErrInvalidInput)
	case v < b.Moderate:
		return Low, nil
	case v < b.High:
		return Moderate, nil
	case v < b.VeryHigh:
		return High, nil
	default:
		return VeryHigh, nil
	}
}

// Classify bins v with DefaultBinning.
func Classify(v float64) (Category, error) {
	return DefaultBinning.Classify(v)
}

// Assignment is the category of one row. Category is nil when the row has no
// PM2.5 value.
type Assignment struct {
	Time     time.Time `json:"time"`
	Value    *float64  `json:"value"`
	Category *Category `json:"category"`
}

// Series classifies every row of s. Rows with a null PM2.5 are kept with a nil category.
func (b Binning) Series(s types.Series) []Assignment {
	out := make([]Assignment, len(s.Readings))
	for i := range s.Readings {
		r := &s.Readings[i]
		a := Assignment{Time: r.Time}
		if v, ok := r.Values.Get(types.PM25); ok {
			a.Value = types.Float(v)
			if cat, err := b.Classify(v); err == nil {
				a.Category = &cat
			}
		}
		out[i] = a
	}
	return out
}

// CategoryCount is the number of rows in one category.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// Counts tallies assignments per category in ascending order, always listing
// all four categories. The second value is the number of unclassified rows.
func Counts(as []Assignment) ([]CategoryCount, int) {
	var counts [VeryHigh + 1]int
	unclassified := 0
	for _, a := range as {
		if a.Category == nil {
			unclassified++
			continue
		}
		counts[*a.Category]++
	}
	out := make([]CategoryCount, 0, len(counts))
	for _, c := range Categories() {
		out = append(out, CategoryCount{Category: c, Count: counts[c]})
	}
	return out, unclassified
}
