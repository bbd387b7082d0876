package plot

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/decisionlab/metrics"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// Default heatmap size in centimetres.
const (
	DefaultHeatmapWidth  = 40
	DefaultHeatmapHeight = 20
)

const (
	paletteColors = 255
	colorBarWidth = 2.5 * vg.Centimeter
)

// HeatmapOption configures Heatmap.
type HeatmapOption func(*heatmapConfig)

type heatmapConfig struct {
	title, xLabel, yLabel string
	xTicks, yTicks        []string
	width, height         float64
	topLeft               bool
	format                string
}

// WithTitle sets the plot title.
func WithTitle(title string) HeatmapOption {
	return func(c *heatmapConfig) { c.title = title }
}

// WithAxisLabels sets the axis labels.
func WithAxisLabels(x, y string) HeatmapOption {
	return func(c *heatmapConfig) { c.xLabel, c.yLabel = x, y }
}

// WithTickLabels names the columns (x) and rows (y) of the matrix.
func WithTickLabels(x, y []string) HeatmapOption {
	return func(c *heatmapConfig) { c.xTicks, c.yTicks = x, y }
}

// WithSize sets the figure size in centimetres.
func WithSize(widthCM, heightCM float64) HeatmapOption {
	return func(c *heatmapConfig) { c.width, c.height = widthCM, heightCM }
}

// WithTopLeftOrigin draws the first matrix row at the top. By default it is
// at the bottom.
func WithTopLeftOrigin() HeatmapOption {
	return func(c *heatmapConfig) { c.topLeft = true }
}

// WithCellFormat sets the fmt verb of the cell annotations ("%.2f").
func WithCellFormat(format string) HeatmapOption {
	return func(c *heatmapConfig) { c.format = format }
}

// cells adapts a matrix to plotter.GridXYZ. Columns map to x and rows to y.
type cells struct {
	m       mat.Matrix
	topLeft bool
}

func (g cells) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g cells) Z(c, r int) float64 {
	return g.m.At(g.row(r), c)
}

func (g cells) X(c int) float64 { return float64(c) }
func (g cells) Y(r int) float64 { return float64(r) }

// row maps a y position to the matrix row drawn there.
func (g cells) row(r int) int {
	if !g.topLeft {
		return r
	}
	rows, _ := g.m.Dims()
	return rows - 1 - r
}

// Heatmap draws values as coloured cells annotated with their value, next
// to a colour bar. Low values are red and high values blue. Annotations are
// black on light cells and white otherwise.
func Heatmap(values mat.Matrix, opts ...HeatmapOption) (*Figure, error) {
	cfg := heatmapConfig{width: DefaultHeatmapWidth, height: DefaultHeatmapHeight, format: "%.2f"}
	for _, opt := range opts {
		opt(&cfg)
	}
	rows, cols := values.Dims()
	if rows == 0 || cols == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	if err := errors.CheckMatrix("plot.Heatmap", values); err != nil {
		return nil, err
	}
	if cfg.xTicks != nil && len(cfg.xTicks) != cols {
		return nil, errors.NewDimensionError("plot.Heatmap", cols, len(cfg.xTicks), 1)
	}
	if cfg.yTicks != nil && len(cfg.yTicks) != rows {
		return nil, errors.NewDimensionError("plot.Heatmap", rows, len(cfg.yTicks), 0)
	}

	lo, hi := mat.Min(values), mat.Max(values)
	if lo == hi {
		hi = lo + 1
	}
	cmap := heatmapColorMap(lo, hi)

	grid := cells{m: values, topLeft: cfg.topLeft}
	hm := plotter.NewHeatMap(grid, cmap.Palette(paletteColors))
	hm.Min, hm.Max = lo, hi

	p := plot.New()
	p.Title.Text = cfg.title
	p.X.Label.Text = cfg.xLabel
	p.Y.Label.Text = cfg.yLabel
	p.Add(hm)

	annotations, err := annotate(grid, cmap, cfg.format)
	if err != nil {
		return nil, err
	}
	p.Add(annotations)

	p.X.Min, p.X.Max = -0.5, float64(cols)-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(rows)-0.5
	p.X.Tick.Marker = ticks(cfg.xTicks, cols, nil)
	p.Y.Tick.Marker = ticks(cfg.yTicks, rows, grid.row)
	p.X.Tick.Length = 0
	p.Y.Tick.Length = 0

	bar := plot.New()
	bar.Add(&plotter.ColorBar{ColorMap: cmap, Vertical: true, Colors: paletteColors})
	bar.HideX()
	bar.Title.Text = " "

	width := vg.Length(cfg.width) * vg.Centimeter
	height := vg.Length(cfg.height) * vg.Centimeter
	return NewFigure(width, height, func(c draw.Canvas) {
		c.SetColor(color.White)
		c.Fill(c.Rectangle.Path())
		p.Draw(draw.Crop(c, 0, -colorBarWidth, 0, 0))
		w := c.Max.X - c.Min.X
		bar.Draw(draw.Crop(c, w-colorBarWidth+vg.Millimeter*5, 0, 0, 0))
	}), nil
}

// annotate writes every cell value at the centre of its cell.
func annotate(grid cells, cmap palette.ColorMap, format string) (*plotter.Labels, error) {
	cols, rows := grid.Dims()
	var data plotter.XYLabels
	data.XYs = make(plotter.XYs, 0, rows*cols)
	data.Labels = make([]string, 0, rows*cols)
	var colors []color.Color
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			v := grid.Z(c, r)
			data.XYs = append(data.XYs, plotter.XY{X: grid.X(c), Y: grid.Y(r)})
			data.Labels = append(data.Labels, fmt.Sprintf(format, v))
			colors = append(colors, textColor(cmap, v))
		}
	}
	labels, err := plotter.NewLabels(data)
	if err != nil {
		return nil, errors.Wrap(err, "annotate heatmap")
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Color = colors[i]
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YCenter
	}
	return labels, nil
}

// textColor is black when every channel of the cell colour is above half
// intensity and white otherwise.
func textColor(cmap palette.ColorMap, v float64) color.Color {
	v = math.Max(cmap.Min(), math.Min(cmap.Max(), v))
	c, err := cmap.At(v)
	if err != nil {
		return color.Black
	}
	r, g, b, _ := c.RGBA()
	const half = 0xffff / 2
	if r > half && g > half && b > half {
		return color.Black
	}
	return color.White
}

// ticks places one labelled tick at the centre of each cell. row maps a
// position to the index of its label; nil is the identity.
func ticks(labels []string, n int, row func(int) int) plot.ConstantTicks {
	out := make(plot.ConstantTicks, n)
	for i := range out {
		k := i
		if row != nil {
			k = row(i)
		}
		label := fmt.Sprint(k)
		if labels != nil {
			label = labels[k]
		}
		out[i] = plot.Tick{Value: float64(i), Label: label}
	}
	return out
}

// heatmapColorMap is RdBu over [lo, hi]: red for low values, blue for high
// ones.
func heatmapColorMap(lo, hi float64) palette.ColorMap {
	base := moreland.SmoothBlueRed()
	base.SetMin(lo)
	base.SetMax(hi)
	return palette.Reverse(base)
}

// ClassificationReportHeatmap draws the precision, recall and F1 of every
// class of report. Rows are labelled "<class> (<support>)".
func ClassificationReportHeatmap(report *metrics.ClassificationReport, title string) (*Figure, error) {
	if report == nil || len(report.Classes) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	n := len(report.Classes)
	values := mat.NewDense(n, 3, nil)
	names := make([]string, n)
	for i, c := range report.Classes {
		values.SetRow(i, []float64{c.Precision, c.Recall, c.F1})
		names[i] = fmt.Sprintf("%s (%d)", c.Name, c.Support)
	}
	return Heatmap(values,
		WithTitle(title),
		WithAxisLabels("Metrics", "Classes"),
		WithTickLabels([]string{"Precision", "Recall", "F1-score"}, names),
		WithSize(25, float64(n+7)),
	)
}
