package linear_model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

var _ model.Estimator = (*LogisticRegression)(nil)
var _ model.ProbabilisticClassifier = (*LogisticRegression)(nil)

func binaryData() (*mat.Dense, *mat.Dense) {
	// Class 0 around (1, 1), class 1 around (3, 3)
	X := mat.NewDense(6, 2, []float64{
		0.5, 0.5,
		1.0, 1.5,
		1.5, 1.0,
		3.0, 2.5,
		2.5, 3.0,
		3.5, 3.5,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	return X, y
}

func TestLogisticRegressionBinary(t *testing.T) {
	X, y := binaryData()
	lr := NewLogisticRegression(WithMaxIter(1000))
	require.NoError(t, lr.Fit(X, y))

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, mat.Col(nil, 0, y), mat.Col(nil, 0, pred))

	rows, cols := lr.Coef().Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 2, cols)
	assert.Len(t, lr.Intercept(), 1)
	assert.Equal(t, []float64{0, 1}, lr.Classes())

	test := mat.NewDense(2, 2, []float64{1, 1, 3, 3})
	proba, err := lr.PredictProba(test)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		assert.InDelta(t, 1.0, proba.At(i, 0)+proba.At(i, 1), 1e-12)
	}
	assert.Greater(t, proba.At(0, 0), 0.5)
	assert.Greater(t, proba.At(1, 1), 0.5)
}

func TestLogisticRegressionMulticlass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0, 0.5, 0, 0, 0.5,
		5, 0, 5.5, 0, 5, 0.5,
		0, 5, 0.5, 5, 0, 5.5,
	})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})
	lr := NewLogisticRegression(WithC(10), WithMaxIter(2000))
	require.NoError(t, lr.Fit(X, y))

	rows, _ := lr.Coef().Dims()
	assert.Equal(t, 3, rows)
	assert.Len(t, lr.NIter(), 3)

	pred, err := lr.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, mat.Col(nil, 0, y), mat.Col(nil, 0, pred))

	proba, err := lr.PredictProba(X)
	require.NoError(t, err)
	for i := 0; i < 9; i++ {
		row := mat.Row(nil, i, proba)
		assert.InDelta(t, 1.0, row[0]+row[1]+row[2], 1e-12)
	}
}

func TestLogisticRegressionRegularisationShrinksCoef(t *testing.T) {
	X, y := binaryData()
	strong := NewLogisticRegression(WithC(0.01), WithMaxIter(500))
	weak := NewLogisticRegression(WithPenalty(PenaltyNone), WithMaxIter(500))
	require.NoError(t, strong.Fit(X, y))
	require.NoError(t, weak.Fit(X, y))

	norm := func(m mat.Matrix) float64 { return mat.Norm(m, 2) }
	assert.Less(t, norm(strong.Coef()), norm(weak.Coef()))
}

func TestLogisticRegressionNoIntercept(t *testing.T) {
	X, y := binaryData()
	lr := NewLogisticRegression(WithFitIntercept(false))
	require.NoError(t, lr.Fit(X, y))
	assert.Equal(t, []float64{0}, lr.Intercept())
}

func TestLogisticRegressionBalancedWeights(t *testing.T) {
	lr := NewLogisticRegression(WithClassWeight(ClassWeightBalanced))
	w := lr.sampleWeights([]float64{0, 0, 0, 1}, []float64{0, 1})
	assert.InDeltaSlice(t, []float64{4.0 / 6, 4.0 / 6, 4.0 / 6, 2}, w, 1e-12)
}

func TestLogisticRegressionParams(t *testing.T) {
	lr := NewLogisticRegression()
	require.NoError(t, lr.SetParams(model.Params{
		"C": 0.5, "penalty": nil, "class_weight": "balanced", "max_iter": 20, "tol": "0.01", "fit_intercept": false,
	}))
	assert.Equal(t, model.Params{
		"penalty":       PenaltyNone,
		"C":             0.5,
		"fit_intercept": false,
		"class_weight":  ClassWeightBalanced,
		"max_iter":      20,
		"tol":           0.01,
	}, lr.GetParams())
	assert.Equal(t, lr.GetParams(), lr.Clone().GetParams())

	var ve *errors.ValidationError
	assert.True(t, errors.As(lr.SetParams(model.Params{"solver": "lbfgs"}), &ve))
	assert.True(t, errors.As(lr.SetParams(model.Params{"penalty": "l1"}), &ve))
}

func TestLogisticRegressionErrors(t *testing.T) {
	X, _ := binaryData()
	lr := NewLogisticRegression()

	_, err := lr.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf))

	err = lr.Fit(X, mat.NewDense(6, 1, []float64{1, 1, 1, 1, 1, 1}))
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))

	err = NewLogisticRegression(WithC(0)).Fit(X, mat.NewDense(6, 1, []float64{0, 1, 0, 1, 0, 1}))
	var val *errors.ValidationError
	assert.True(t, errors.As(err, &val))
}
