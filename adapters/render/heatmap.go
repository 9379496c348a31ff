// Package render draws the annotated correlation heatmaps and exports the
// underlying tables.
package render

import (
	"fmt"
	"image/color"
	"math"

	"gencorr/domain/rg"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// absentFill is the neutral fill for cells with no estimate; absent cells
// are never interpolated into the color scale
var absentFill = color.Gray{Y: 0xd9}

// HeatmapRenderer draws a matrix as an annotated heatmap PNG
type HeatmapRenderer struct {
	CellSize vg.Length // square cell edge
}

// NewHeatmapRenderer creates a renderer with the default cell geometry
func NewHeatmapRenderer() *HeatmapRenderer {
	return &HeatmapRenderer{CellSize: vg.Centimeter}
}

// matrixGrid adapts rg.Matrix to plotter.GridXYZ. Row 0 of the matrix is
// the display top, so rows are flipped into plot space (y grows upward).
type matrixGrid struct {
	m *rg.Matrix
}

func (g matrixGrid) Dims() (c, r int) { return len(g.m.ColIDs), len(g.m.RowIDs) }
func (g matrixGrid) X(c int) float64  { return float64(c) }
func (g matrixGrid) Y(r int) float64  { return float64(r) }

func (g matrixGrid) Z(c, r int) float64 {
	cell := g.m.Cells[len(g.m.RowIDs)-1-r][c]
	if !cell.Present {
		return math.NaN()
	}
	return cell.Value
}

// RenderHeatmap draws the matrix with per-cell labels (rounded rg plus the
// significance suffix; diagonal and absent cells unlabeled) on a diverging
// blue-red scale symmetric around zero.
func (r *HeatmapRenderer) RenderHeatmap(m *rg.Matrix, title, path string) error {
	if len(m.RowIDs) == 0 || len(m.ColIDs) == 0 {
		return fmt.Errorf("cannot render empty matrix")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Tick.Label.Rotation = math.Pi / 2
	p.X.Tick.Label.XAlign = text.XRight
	p.X.Tick.Label.YAlign = text.YCenter
	p.NominalX(m.ColIDs...)
	p.NominalY(rg.Reverse(m.RowIDs)...)

	grid := matrixGrid{m: m}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(-limit(m))
	cm.SetMax(limit(m))
	pal := cm.Palette(255)

	hm := plotter.NewHeatMap(grid, pal)
	hm.Min = -limit(m)
	hm.Max = limit(m)
	hm.NaN = absentFill
	p.Add(hm)

	labels, err := cellLabels(m)
	if err != nil {
		return err
	}
	p.Add(labels)

	w := vg.Length(len(m.ColIDs))*r.CellSize + 6*vg.Centimeter
	h := vg.Length(len(m.RowIDs))*r.CellSize + 4*vg.Centimeter
	if err := p.Save(w, h, path); err != nil {
		return fmt.Errorf("saving heatmap %s: %w", path, err)
	}
	return nil
}

// limit returns the symmetric color-scale bound: 1 unless estimates spill
// outside [-1,1], in which case the scale widens to contain them
func limit(m *rg.Matrix) float64 {
	vals := make([]float64, 0, len(m.RowIDs)*len(m.ColIDs))
	for i := range m.Cells {
		for _, c := range m.Cells[i] {
			if c.Present && !rg.IsMissing(c.Value) {
				vals = append(vals, c.Value)
			}
		}
	}
	lim := 1.0
	if len(vals) > 0 {
		lim = math.Max(lim, math.Max(floats.Max(vals), -floats.Min(vals)))
	}
	return lim
}

// cellLabels builds center-aligned value labels for every labeled cell
func cellLabels(m *rg.Matrix) (*plotter.Labels, error) {
	rows := len(m.RowIDs)
	var xys plotter.XYs
	var texts []string
	for i := range m.Cells {
		for j, c := range m.Cells[i] {
			label := c.Label()
			if label == "" {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(rows - 1 - i)})
			texts = append(texts, label)
		}
	}

	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: texts})
	if err != nil {
		return nil, fmt.Errorf("building cell labels: %w", err)
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
	}
	return labels, nil
}
