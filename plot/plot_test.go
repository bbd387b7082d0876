package plot

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/evaluation"
	"github.com/YuminosukeSato/decisionlab/metrics"
	"github.com/YuminosukeSato/decisionlab/model_selection"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func assertPNG(t *testing.T, path string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngMagic), "%s is not a PNG", path)
}

func TestHeatmap(t *testing.T) {
	values := mat.NewDense(2, 3, []float64{
		0.9, 0.5, 0.1,
		0.2, 0.7, 1.0,
	})
	fig, err := Heatmap(values,
		WithTitle("scores"),
		WithAxisLabels("metric", "class"),
		WithTickLabels([]string{"a", "b", "c"}, []string{"x", "y"}),
		WithSize(12, 8),
		WithTopLeftOrigin(),
	)
	require.NoError(t, err)
	assert.InDelta(t, float64(12*Centimeter), float64(fig.Width), 1e-9)
	assert.InDelta(t, float64(8*Centimeter), float64(fig.Height), 1e-9)

	path := filepath.Join(t.TempDir(), "nested", "heatmap.png")
	require.NoError(t, fig.Save(path))
	assertPNG(t, path)

	var svg bytes.Buffer
	_, err = fig.WriteTo(&svg, "svg")
	require.NoError(t, err)
	assert.Contains(t, svg.String(), "<svg")
	assert.Contains(t, svg.String(), "0.90")
}

func TestHeatmapErrors(t *testing.T) {
	_, err := Heatmap(mat.NewDense(1, 2, []float64{0, 1}), WithTickLabels([]string{"only"}, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))

	_, err = Heatmap(mat.NewDense(1, 1, []float64{0}), WithTickLabels(nil, []string{"a", "b"}))
	assert.True(t, errors.As(err, &de))

	_, err = ClassificationReportHeatmap(&metrics.ClassificationReport{}, "empty")
	assert.True(t, errors.Is(err, errors.ErrEmptyData))

	fig, err := Heatmap(mat.NewDense(1, 1, []float64{3}))
	require.NoError(t, err)
	assert.Error(t, fig.Save(filepath.Join(t.TempDir(), "noext")))
	_, err = fig.WriteTo(&bytes.Buffer{}, "bmp")
	assert.Error(t, err)
}

func TestCellsOrientation(t *testing.T) {
	m := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})

	bottom := cells{m: m}
	c, r := bottom.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 3, r)
	assert.Equal(t, 1.0, bottom.Z(0, 0))

	top := cells{m: m, topLeft: true}
	assert.Equal(t, 5.0, top.Z(0, 0))
	assert.Equal(t, 2.0, top.Z(1, 2))

	labels := ticks([]string{"r0", "r1", "r2"}, 3, top.row)
	assert.Equal(t, "r2", labels[0].Label)
	assert.Equal(t, "r0", labels[2].Label)
}

func TestTextColor(t *testing.T) {
	rev := heatmapColorMap(0, 1)
	assert.Equal(t, 0.0, rev.Min())
	assert.Equal(t, 1.0, rev.Max())

	// the middle of the diverging map is light, its ends are saturated
	assert.Equal(t, color.Black, textColor(rev, 0.5))
	assert.Equal(t, color.White, textColor(rev, 0))
	assert.Equal(t, color.White, textColor(rev, 1))
	assert.Equal(t, color.White, textColor(rev, 7), "values are clamped")

	low, err := rev.At(0)
	require.NoError(t, err)
	r, _, b, _ := low.RGBA()
	assert.Greater(t, r, b, "low values are red")

	high, err := rev.At(1)
	require.NoError(t, err)
	r, _, b, _ = high.RGBA()
	assert.Greater(t, b, r, "high values are blue")
}

func TestClassificationReportHeatmap(t *testing.T) {
	yTrue := mat.NewVecDense(6, []float64{0, 0, 1, 1, 2, 2})
	yPred := mat.NewVecDense(6, []float64{0, 1, 1, 1, 2, 0})
	report, err := metrics.NewClassificationReport(yTrue, yPred,
		metrics.WithTargetNames([]string{"Version 1", "Version 2", "Manual"}))
	require.NoError(t, err)

	fig, err := ClassificationReportHeatmap(report, "Classification report")
	require.NoError(t, err)
	assert.InDelta(t, float64(25*Centimeter), float64(fig.Width), 1e-9)
	assert.InDelta(t, float64(10*Centimeter), float64(fig.Height), 1e-9)

	var svg bytes.Buffer
	_, err = fig.WriteTo(&svg, "svg")
	require.NoError(t, err)
	assert.Contains(t, svg.String(), "Version 2 (2)")
	assert.Contains(t, svg.String(), "F1-score")
}

func TestParamPositions(t *testing.T) {
	x, ticker := ParamPositions([]any{nil, 1, 2.5, 10})
	assert.Equal(t, []float64{-1, 1, 2.5, 10}, x)
	assert.Nil(t, ticker)

	x, ticker = ParamPositions([]any{"gini", nil, "entropy"})
	assert.Equal(t, []float64{0, 1, 2}, x)
	require.NotNil(t, ticker)
	ticks := ticker.Ticks(0, 2)
	assert.Equal(t, "None", ticks[1].Label)
	assert.Equal(t, "entropy", ticks[2].Label)
}

func curveResult(values []any) *model_selection.ValidationCurveResult {
	r := &model_selection.ValidationCurveResult{Param: "max_depth", Values: values}
	for i := range values {
		s := 0.5 + 0.1*float64(i)
		r.TrainScores = append(r.TrainScores, []float64{s + 0.1, s + 0.2, s + 0.15})
		r.TestScores = append(r.TestScores, []float64{s - 0.1, s, s - 0.05})
	}
	return r
}

func TestValidationCurve(t *testing.T) {
	p, err := ValidationCurve(CurveFromResult("org/alpha \n n=20", curveResult([]any{nil, 1, 2})))
	require.NoError(t, err)
	assert.Equal(t, "max_depth", p.X.Label.Text)
	assert.Equal(t, "Score", p.Y.Label.Text)
	assert.Equal(t, 0.0, p.Y.Min)
	assert.Equal(t, 1.1, p.Y.Max)

	_, err = ValidationCurve(Curve{Values: []any{1, 2}, TrainMean: []float64{1}})
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestValidationCurves(t *testing.T) {
	values := []any{nil, 1, 2}
	var curves []*evaluation.ProjectCurve
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		c := &evaluation.ProjectCurve{Project: name, Observations: 20 + i}
		if name != "b" {
			c.HasData = true
			c.Result = curveResult(values)
		}
		curves = append(curves, c)
	}

	fig, err := ValidationCurves(curves)
	require.NoError(t, err)
	assert.InDelta(t, float64(15*72), float64(fig.Width), 1e-9)
	assert.InDelta(t, float64(2*4*72), float64(fig.Height), 1e-9)

	dir := t.TempDir()
	path := filepath.Join(dir, ValidationCurveFile("DecisionTreeClassifier", "max_depth"))
	assert.Equal(t, "validation_curves_DecisionTreeClassifier_max_depth.png", filepath.Base(path))
	require.NoError(t, fig.Save(path))
	assertPNG(t, path)

	_, err = ValidationCurves([]*evaluation.ProjectCurve{{Project: "b"}})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}

func TestAccumulatedValidationCurve(t *testing.T) {
	summary := &evaluation.CurveSummary{
		Estimator: "DecisionTreeClassifier",
		Param:     "max_depth",
		Values:    []any{nil, 1},
		TrainMean: []float64{1, 0.8},
		TrainStd:  []float64{0, 0.05},
		TestMean:  []float64{0.7, 0.75},
		TestStd:   []float64{0.1, 0.1},
		Projects:  3,
	}
	fig, err := AccumulatedValidationCurve(summary)
	require.NoError(t, err)

	var svg bytes.Buffer
	_, err = fig.WriteTo(&svg, "svg")
	require.NoError(t, err)
	assert.Contains(t, svg.String(), "Accumulated Validation Curve with DecisionTreeClassifier.")
	assert.Contains(t, svg.String(), "Number of projects: 3")

	_, err = AccumulatedValidationCurve(&evaluation.CurveSummary{Values: []any{1}})
	assert.True(t, errors.Is(err, errors.ErrEmptyData))
}
