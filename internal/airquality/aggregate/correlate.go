package aggregate

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/WigunaKurniawan/air-quality-tiantan-analysis/internal/airquality/types"
)

// Correlate computes the Pearson coefficient of every pair of columns over the
// rows where both values are present. Pairs with fewer than two such rows or
// with a constant column are left undefined; each one contributes an
// ErrUndefinedCorrelation to the returned error, and the matrix is returned
// regardless so callers can render the defined cells.
func Correlate(s types.Series, columns []types.Column) (types.CorrelationMatrix, error) {
	if len(columns) == 0 {
		return types.CorrelationMatrix{}, fmt.Errorf("%w: no columns to correlate", types.ErrInvalidInput)
	}
	seen := make(map[types.Column]bool, len(columns))
	for _, c := range columns {
		if !c.Valid() {
			return types.CorrelationMatrix{}, fmt.Errorf("%w: column %d", types.ErrInvalidInput, int(c))
		}
		if seen[c] {
			return types.CorrelationMatrix{}, fmt.Errorf("%w: duplicate column %s", types.ErrInvalidInput, c)
		}
		seen[c] = true
	}

	n := len(columns)
	cells := make([][]types.Correlation, n)
	for i := range cells {
		cells[i] = make([]types.Correlation, n)
	}

	var errs []error
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			cell, err := pearson(s, columns[i], columns[j])
			if err != nil {
				errs = append(errs, err)
			}
			cells[i][j] = cell
			cells[j][i] = cell
		}
	}

	m := types.CorrelationMatrix{Columns: append([]types.Column(nil), columns...), Cells: cells}
	return m, errors.Join(errs...)
}

func pearson(s types.Series, a, b types.Column) (types.Correlation, error) {
	var xs, ys []float64
	for i := range s.Readings {
		x, okX := s.Readings[i].Values.Get(a)
		y, okY := s.Readings[i].Values.Get(b)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	cell := types.Correlation{N: len(xs)}
	if len(xs) < 2 {
		return cell, fmt.Errorf("%w: %s/%s: %d complete observations", types.ErrUndefinedCorrelation, a, b, len(xs))
	}
	if constant(xs) || constant(ys) {
		return cell, fmt.Errorf("%w: %s/%s: zero variance", types.ErrUndefinedCorrelation, a, b)
	}
	if a == b {
		cell.R, cell.Defined = 1, true
		return cell, nil
	}

	r := stat.Correlation(xs, ys, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return cell, fmt.Errorf("%w: %s/%s: degenerate variance", types.ErrUndefinedCorrelation, a, b)
	}
	cell.R = math.Max(-1, math.Min(1, r))
	cell.Defined = true
	return cell, nil
}

func constant(vs []float64) bool {
	for _, v := range vs[1:] {
		if v != vs[0] {
			return false
		}
	}
	return true
}
