package ensemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

var _ model.Estimator = (*RandomForestClassifier)(nil)
var _ model.ProbabilisticClassifier = (*RandomForestClassifier)(nil)

// clusters returns three classes around (0,0), (5,5) and (10,0) with a noise feature.
func clusters() (*mat.Dense, *mat.Dense) {
	n := 60
	X := mat.NewDense(n, 3, nil)
	y := mat.NewDense(n, 1, nil)
	centers := [][2]float64{{0, 0}, {5, 5}, {10, 0}}
	for i := 0; i < n; i++ {
		c := i % 3
		jitter := float64(i%5) * 0.2
		X.Set(i, 0, centers[c][0]+jitter)
		X.Set(i, 1, centers[c][1]-jitter)
		X.Set(i, 2, float64((i*7)%11))
		y.Set(i, 0, float64(c))
	}
	return X, y
}

func TestRandomForestClassifier_FitPredict(t *testing.T) {
	X, y := clusters()
	rf := NewRandomForestClassifier(WithNEstimators(25), WithRandomState(0))
	require.NoError(t, rf.Fit(X, y))

	assert.Len(t, rf.Estimators(), 25)
	assert.Equal(t, []float64{0, 1, 2}, rf.Classes())

	pred, err := rf.Predict(X)
	require.NoError(t, err)
	correct := 0
	for i := 0; i < 60; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	assert.GreaterOrEqual(t, correct, 57)

	proba, err := rf.PredictProba(X)
	require.NoError(t, err)
	rows, cols := proba.Dims()
	require.Equal(t, 3, cols)
	for i := 0; i < rows; i++ {
		assert.InDelta(t, 1.0, floats.Sum(mat.Row(nil, i, proba)), 1e-9)
	}

	imp := rf.FeatureImportances()
	require.Len(t, imp, 3)
	assert.InDelta(t, 1.0, imp[0]+imp[1]+imp[2], 1e-9)
}

func TestRandomForestClassifier_DeterministicAcrossJobs(t *testing.T) {
	X, y := clusters()

	fit := func(jobs int) mat.Matrix {
		rf := NewRandomForestClassifier(WithNEstimators(12), WithRandomState(42), WithNJobs(jobs))
		require.NoError(t, rf.Fit(X, y))
		proba, err := rf.PredictProba(X)
		require.NoError(t, err)
		return proba
	}
	assert.True(t, mat.Equal(fit(1), fit(4)))
}

func TestRandomForestClassifier_WithoutBootstrap(t *testing.T) {
	X, y := clusters()
	rf := NewRandomForestClassifier(WithNEstimators(5), WithBootstrap(false), WithMaxFeatures(nil), WithRandomState(1))
	require.NoError(t, rf.Fit(X, y))

	// without bootstrap or feature sampling every tree is identical
	first := rf.Estimators()[0].GetFeatureImportances()
	for _, tr := range rf.Estimators()[1:] {
		assert.Equal(t, first, tr.GetFeatureImportances())
	}
}

func TestRandomForestClassifier_Params(t *testing.T) {
	rf := NewRandomForestClassifier()
	params := rf.GetParams()
	assert.Equal(t, 100, params["n_estimators"])
	assert.Equal(t, "sqrt", params["max_features"])
	assert.Equal(t, true, params["bootstrap"])
	assert.Nil(t, params["max_depth"])

	require.NoError(t, rf.SetParams(model.Params{
		"n_estimators": 10,
		"max_depth":    4,
		"criterion":    "entropy",
		"bootstrap":    "false",
		"random_state": 9,
	}))
	clone := rf.Clone()
	assert.Equal(t, rf.GetParams(), clone.GetParams())
	assert.Equal(t, false, clone.GetParams()["bootstrap"])

	var ve *errors.ValidationError
	assert.True(t, errors.As(rf.SetParams(model.Params{"learning_rate": 0.1}), &ve))

	rf = NewRandomForestClassifier(WithNEstimators(0))
	X, y := clusters()
	assert.Error(t, rf.Fit(X, y))
}

func TestRandomForestClassifier_NotFitted(t *testing.T) {
	_, err := NewRandomForestClassifier().Predict(mat.NewDense(1, 2, nil))
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))
}
