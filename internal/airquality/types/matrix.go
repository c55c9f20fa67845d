package types

// Correlation is one cell of a CorrelationMatrix. R is meaningful only when Defined is true.
type Correlation struct {
	R       float64 `json:"r"`
	N       int     `json:"n"`
	Defined bool    `json:"defined"`
}

// CorrelationMatrix is a square, symmetric matrix of Pearson coefficients
// over Columns. Cells[i][j] pairs Columns[i] with Columns[j].
type CorrelationMatrix struct {
	Columns []Column        `json:"columns"`
	Cells   [][]Correlation `json:"cells"`
}

// At returns the coefficient for the pair (a, b) and whether it is defined.
func (m CorrelationMatrix) At(a, b Column) (float64, bool) {
	i, j := m.index(a), m.index(b)
	if i < 0 || j < 0 {
		return 0, false
	}
	cell := m.Cells[i][j]
	return cell.R, cell.Defined
}

func (m CorrelationMatrix) index(c Column) int {
	for i, col := range m.Columns {
		if col == c {
			return i
		}
	}
	return -1
}
