package rg

import (
	"gencorr/domain/core"
)

// Cell is one matrix position: an annotated estimate, a synthesized
// diagonal, or absent (reliability-filtered or never computed). Absent
// cells render with a neutral fill, never interpolated.
type Cell struct {
	Value    float64 `json:"value"`
	Marker   Marker  `json:"marker"`
	Present  bool    `json:"present"`
	Diagonal bool    `json:"diagonal"`
}

// Label renders the cell text. Diagonal and absent cells are unlabeled.
func (c Cell) Label() string {
	if !c.Present || c.Diagonal {
		return ""
	}
	a := AnnotatedResult{CorrelationResult: CorrelationResult{Rg: c.Value}, Marker: c.Marker}
	return a.Label()
}

// Matrix is the pivoted rows × columns grid handed to the renderer
type Matrix struct {
	RowIDs []string `json:"row_ids"`
	ColIDs []string `json:"col_ids"`
	Cells  [][]Cell `json:"cells"` // indexed [row][col]
}

// GridRow is one flattened matrix cell for tabular export
type GridRow struct {
	RowID  string  `json:"row_id"`
	ColID  string  `json:"col_id"`
	Value  float64 `json:"value"` // missing when the cell is absent
	Marker Marker  `json:"marker"`
}

// Pivot arranges annotated results into a grid keyed by the caller's axis
// orderings. Cells with no matching record are absent. When several
// records share a (row, col) key the last one wins; the estimator does not
// produce duplicates for a single run.
func Pivot(results []AnnotatedResult, rowOrder, colOrder []string) (*Matrix, error) {
	if len(rowOrder) == 0 || len(colOrder) == 0 {
		return nil, core.ErrEmptyMatrix
	}

	rowIdx := indexOf(rowOrder)
	colIdx := indexOf(colOrder)

	cells := make([][]Cell, len(rowOrder))
	for i := range cells {
		cells[i] = make([]Cell, len(colOrder))
	}
	for _, r := range results {
		i, okRow := rowIdx[r.SubjectA]
		j, okCol := colIdx[r.SubjectB]
		if !okRow || !okCol {
			continue
		}
		cells[i][j] = Cell{Value: r.Rg, Marker: r.Marker, Present: true}
	}

	return &Matrix{RowIDs: rowOrder, ColIDs: colOrder, Cells: cells}, nil
}

// PivotSquare builds the metric-vs-metric matrix: self pairs are excluded
// from the input and the diagonal is synthesized at exactly 1 with no
// marker, then over-unity off-diagonal estimates are clamped. Both
// directions of an unordered pair render as estimated; no symmetrizing.
func PivotSquare(results []AnnotatedResult, order []string) (*Matrix, error) {
	offDiagonal := make([]AnnotatedResult, 0, len(results))
	for _, r := range results {
		if r.SubjectA == r.SubjectB {
			continue
		}
		offDiagonal = append(offDiagonal, r)
	}

	m, err := Pivot(offDiagonal, order, order)
	if err != nil {
		return nil, err
	}
	for i := range m.RowIDs {
		m.Cells[i][i] = Cell{Value: 1, Marker: MarkerNone, Present: true, Diagonal: true}
	}
	m.ClampOverUnity()
	return m, nil
}

// ClampOverUnity clamps rg estimates above 1 down to exactly 1. The
// estimator emits slightly-over-1 values for near-identical metrics; these
// are display artifacts, not data errors, so they are clamped rather than
// discarded. Idempotent.
func (m *Matrix) ClampOverUnity() {
	for i := range m.Cells {
		for j := range m.Cells[i] {
			c := &m.Cells[i][j]
			if c.Present && !IsMissing(c.Value) && c.Value > 1 {
				c.Value = 1
			}
		}
	}
}

func indexOf(order []string) map[string]int {
	idx := make(map[string]int, len(order))
	for i, id := range order {
		idx[id] = i
	}
	return idx
}

// Flatten exports the grid as flat rows (row id, column id, value, marker)
// for downstream automated checks. Absent cells carry the missing value.
func (m *Matrix) Flatten() []GridRow {
	rows := make([]GridRow, 0, len(m.RowIDs)*len(m.ColIDs))
	for i, rowID := range m.RowIDs {
		for j, colID := range m.ColIDs {
			c := m.Cells[i][j]
			gr := GridRow{RowID: rowID, ColID: colID, Value: Missing(), Marker: MarkerNone}
			if c.Present {
				gr.Value = c.Value
				gr.Marker = c.Marker
			}
			rows = append(rows, gr)
		}
	}
	return rows
}
