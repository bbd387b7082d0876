package plot

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/evaluation"
	"github.com/YuminosukeSato/decisionlab/model_selection"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// Grid layout of ValidationCurves.
const (
	CurveColumns      = 4
	curveGridWidth    = 15 * vg.Inch
	curveRowHeight    = 4 * vg.Inch
	curveFigureWidth  = 6.4 * vg.Inch
	curveFigureHeight = 4.8 * vg.Inch
	bandAlpha         = 0.2
	noneParamX        = -1
)

var (
	trainColor = color.NRGBA{R: 0xff, G: 0x8c, A: 0xff} // darkorange
	testColor  = color.NRGBA{B: 0x80, A: 0xff}          // navy
)

// Curve is a validation curve ready to be drawn.
type Curve struct {
	Title     string
	Param     string
	Values    []any
	TrainMean []float64
	TrainStd  []float64
	TestMean  []float64
	TestStd   []float64
}

// CurveFromResult builds a Curve from a cross-validated validation curve.
func CurveFromResult(title string, r *model_selection.ValidationCurveResult) Curve {
	return Curve{
		Title:     title,
		Param:     r.Param,
		Values:    r.Values,
		TrainMean: r.TrainMean(),
		TrainStd:  r.TrainStd(),
		TestMean:  r.TestMean(),
		TestStd:   r.TestStd(),
	}
}

// ParamPositions places parameter values on the x axis. A nil value is
// drawn at -1. When any value is not numeric every value is placed at its
// index instead and the returned ticks name them.
func ParamPositions(values []any) ([]float64, plot.Ticker) {
	x := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			x[i] = noneParamX
			continue
		}
		f, ok := model.ParamNumeric(v)
		if !ok {
			ticks := make(plot.ConstantTicks, len(values))
			for k, v := range values {
				x[k] = float64(k)
				ticks[k] = plot.Tick{Value: float64(k), Label: model.FormatParam(v)}
			}
			return x, ticks
		}
		x[i] = f
	}
	return x, nil
}

// ValidationCurve draws the mean training and cross-validation scores of c
// with a band of one standard deviation around each.
func ValidationCurve(c Curve) (*plot.Plot, error) {
	n := len(c.Values)
	for _, s := range [][]float64{c.TrainMean, c.TrainStd, c.TestMean, c.TestStd} {
		if len(s) != n {
			return nil, errors.NewDimensionError("plot.ValidationCurve", n, len(s), 0)
		}
	}
	if n == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	x, ticker := ParamPositions(c.Values)

	p := plot.New()
	p.Title.Text = c.Title
	p.X.Label.Text = c.Param
	p.Y.Label.Text = "Score"
	p.Y.Min, p.Y.Max = 0, 1.1
	if ticker != nil {
		p.X.Tick.Marker = ticker
	}

	for _, s := range []struct {
		label     string
		mean, std []float64
		color     color.NRGBA
	}{
		{"Training score", c.TrainMean, c.TrainStd, trainColor},
		{"Cross-validation score", c.TestMean, c.TestStd, testColor},
	} {
		line, poly, err := scoreLine(x, s.mean, s.std, s.color)
		if err != nil {
			return nil, errors.Wrapf(err, "plot %s", s.label)
		}
		p.Add(poly, line)
		p.Legend.Add(s.label, line)
	}
	// Polygons widen the y range; keep the fixed score axis.
	p.Y.Min, p.Y.Max = 0, 1.1
	return p, nil
}

func scoreLine(x, mean, std []float64, c color.NRGBA) (*plotter.Line, *plotter.Polygon, error) {
	pts := make(plotter.XYs, len(x))
	band := make(plotter.XYs, 0, 2*len(x))
	for i := range x {
		pts[i] = plotter.XY{X: x[i], Y: mean[i]}
		band = append(band, plotter.XY{X: x[i], Y: mean[i] + std[i]})
	}
	for i := len(x) - 1; i >= 0; i-- {
		band = append(band, plotter.XY{X: x[i], Y: mean[i] - std[i]})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, nil, err
	}
	line.Color = c
	line.Width = vg.Points(2)

	poly, err := plotter.NewPolygon(band)
	if err != nil {
		return nil, nil, err
	}
	fill := c
	fill.A = uint8(bandAlpha * 0xff)
	poly.Color = fill
	poly.LineStyle.Width = 0
	return line, poly, nil
}

// ValidationCurveFile is the file name ValidationCurves figures are saved
// under.
func ValidationCurveFile(estimator, param string) string {
	return fmt.Sprintf("validation_curves_%s_%s.png", estimator, param)
}

// ValidationCurves lays the curves of every project out on a grid of
// CurveColumns columns, titled "<project> \n n=<observations>". Projects
// without data are skipped and the following panels move up.
func ValidationCurves(curves []*evaluation.ProjectCurve) (*Figure, error) {
	var panels []*plot.Plot
	for _, c := range curves {
		if !c.HasData {
			continue
		}
		p, err := ValidationCurve(CurveFromResult(fmt.Sprintf("%s \n n=%d", c.Project, c.Observations), c.Result))
		if err != nil {
			return nil, errors.Wrapf(err, "validation curve %s", c.Project)
		}
		panels = append(panels, p)
	}
	if len(panels) == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "no project has enough observations")
	}

	rows := (len(curves) + CurveColumns - 1) / CurveColumns
	tiles := draw.Tiles{
		Rows: rows,
		Cols: CurveColumns,
		PadX: vg.Centimeter, PadY: vg.Centimeter,
		PadTop: vg.Centimeter / 2, PadBottom: vg.Centimeter / 2,
		PadLeft: vg.Centimeter / 2, PadRight: vg.Centimeter / 2,
	}
	return NewFigure(curveGridWidth, curveRowHeight*vg.Length(rows), func(dc draw.Canvas) {
		dc.SetColor(color.White)
		dc.Fill(dc.Rectangle.Path())
		for i, p := range panels {
			p.Draw(tiles.At(dc, i%CurveColumns, i/CurveColumns))
		}
	}), nil
}

// AccumulatedValidationCurve draws the validation curve averaged over
// projects.
func AccumulatedValidationCurve(s *evaluation.CurveSummary) (*Figure, error) {
	if s.Projects == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, "no project has enough observations")
	}
	p, err := ValidationCurve(Curve{
		Title:     fmt.Sprintf("Accumulated Validation Curve with %s.\n Number of projects: %d", s.Estimator, s.Projects),
		Param:     s.Param,
		Values:    s.Values,
		TrainMean: s.TrainMean,
		TrainStd:  s.TrainStd,
		TestMean:  s.TestMean,
		TestStd:   s.TestStd,
	})
	if err != nil {
		return nil, err
	}
	return NewFigure(curveFigureWidth, curveFigureHeight, func(dc draw.Canvas) {
		dc.SetColor(color.White)
		dc.Fill(dc.Rectangle.Path())
		p.Draw(dc)
	}), nil
}
