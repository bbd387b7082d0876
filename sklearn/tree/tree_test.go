package tree

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

var _ model.Estimator = (*DecisionTreeClassifier)(nil)
var _ model.ProbabilisticClassifier = (*DecisionTreeClassifier)(nil)

// separable returns two well separated clusters in 2D.
func separable() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(8, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		1, 1,
		3, 3,
		3, 4,
		4, 3,
		4, 4,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})
	return X, y
}

func TestDecisionTreeClassifier_FitPredict_Binary(t *testing.T) {
	X, y := separable()

	dt := NewDecisionTreeClassifier(WithCriterion("gini"), WithMaxDepth(5))
	require.NoError(t, dt.Fit(X, y))

	predictions, err := dt.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(y, predictions))

	XTest := mat.NewDense(2, 2, []float64{
		0.5, 0.5,
		3.5, 3.5,
	})
	testPreds, err := dt.Predict(XTest)
	require.NoError(t, err)
	assert.Equal(t, 0.0, testPreds.At(0, 0))
	assert.Equal(t, 1.0, testPreds.At(1, 0))

	// a single split at the midpoint between the clusters
	assert.Equal(t, 1, dt.GetDepth())
	assert.Equal(t, 2, dt.GetNLeaves())
	assert.Equal(t, 2.0, dt.nodes_[0].threshold)
}

func TestDecisionTreeClassifier_PredictRowByRow(t *testing.T) {
	X, y := separable()
	dt := NewDecisionTreeClassifier(WithRandomState(0))
	require.NoError(t, dt.Fit(X, y))

	// a strided view exercises the per-row copy
	wide := mat.NewDense(8, 3, nil)
	wide.Slice(0, 8, 0, 2).(*mat.Dense).Copy(X)
	view := wide.Slice(4, 8, 0, 2)

	pred, err := dt.Predict(view)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 1, 1, 1}, mat.Col(nil, 0, pred))

	proba, err := dt.PredictProba(view)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		assert.Equal(t, []float64{0, 1}, mat.Row(nil, i, proba))
	}
}

func TestDecisionTreeClassifier_PredictProba(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		2, 2,
		2, 3,
		3, 2,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	dt := NewDecisionTreeClassifier(WithMaxDepth(3))
	require.NoError(t, dt.Fit(X, y))

	probas, err := dt.PredictProba(X)
	require.NoError(t, err)

	rows, cols := probas.Dims()
	require.Equal(t, 6, rows)
	require.Equal(t, 2, cols)
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := probas.At(i, j)
			assert.True(t, p >= 0 && p <= 1, "invalid probability at (%d, %d): %v", i, j, p)
			sum += p
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestDecisionTreeClassifier_LeafProbabilities(t *testing.T) {
	// depth one on overlapping data leaves mixed leaves
	X := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	y := mat.NewDense(6, 1, []float64{0, 0, 1, 1, 1, 0})

	dt := NewDecisionTreeClassifier(WithMaxDepth(1))
	require.NoError(t, dt.Fit(X, y))

	probas, err := dt.PredictProba(mat.NewDense(2, 1, []float64{0, 1}))
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, probas.At(0, 0), 1e-12)
	assert.InDelta(t, 2.0/3.0, probas.At(1, 1), 1e-12)
}

func TestDecisionTreeClassifier_Score(t *testing.T) {
	// XOR-like data: class 0 when both features are low or both are high
	X := mat.NewDense(8, 2, []float64{
		0.0, 0.0,
		0.0, 0.1,
		0.1, 1.0,
		0.0, 0.9,
		1.0, 0.0,
		0.9, 0.0,
		1.0, 1.0,
		0.9, 0.9,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 1, 1, 1, 1, 0, 0})

	dt := NewDecisionTreeClassifier(WithMaxDepth(5), WithMinSamplesLeaf(1))
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 1.0, dt.Score(X, y))

	unfitted := NewDecisionTreeClassifier()
	assert.True(t, math.IsNaN(unfitted.Score(X, y)))
}

func TestDecisionTreeClassifier_Multiclass(t *testing.T) {
	X := mat.NewDense(9, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		3, 3,
		3, 4,
		4, 3,
		6, 6,
		6, 7,
		7, 6,
	})
	y := mat.NewDense(9, 1, []float64{0, 0, 0, 1, 1, 1, 2, 2, 2})

	dt := NewDecisionTreeClassifier(WithCriterion("gini"), WithMaxDepth(5))
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 3, dt.nClasses_)
	assert.Equal(t, []float64{0, 1, 2}, dt.Classes())

	predictions, err := dt.Predict(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(y, predictions))

	probas, err := dt.PredictProba(X)
	require.NoError(t, err)
	rows, cols := probas.Dims()
	require.Equal(t, 3, cols)
	for i := 0; i < rows; i++ {
		assert.Equal(t, int(y.At(i, 0)), model.ArgMax(mat.Row(nil, i, probas)))
	}
}

func TestDecisionTreeClassifier_Entropy(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		0, 0,
		0, 1,
		1, 0,
		2, 2,
		2, 3,
		3, 2,
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	for _, criterion := range []string{CriterionEntropy, CriterionLogLoss} {
		dt := NewDecisionTreeClassifier(WithCriterion(criterion), WithMaxDepth(3))
		require.NoError(t, dt.Fit(X, y))
		assert.Equal(t, 1.0, dt.Score(X, y), criterion)
	}
}

func TestDecisionTreeClassifier_FeatureImportance(t *testing.T) {
	X := mat.NewDense(8, 3, []float64{
		0, 0, 0,
		0, 1, 1,
		0, 0, 1,
		0, 1, 0,
		1, 0, 0,
		1, 1, 1,
		1, 0, 1,
		1, 1, 0,
	})
	y := mat.NewDense(8, 1, []float64{0, 0, 0, 0, 1, 1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	importances := dt.GetFeatureImportances()
	require.Len(t, importances, 3)
	assert.InDelta(t, 1.0, importances[0], 1e-12)
	assert.InDelta(t, 1.0, importances[0]+importances[1]+importances[2], 1e-12)
}

func TestDecisionTreeClassifier_MaxDepth(t *testing.T) {
	X := mat.NewDense(16, 2, nil)
	y := mat.NewDense(16, 1, nil)
	for i := 0; i < 16; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%4))
		y.Set(i, 0, float64(i%2))
	}

	dt := NewDecisionTreeClassifier(WithMaxDepth(2))
	require.NoError(t, dt.Fit(X, y))
	assert.LessOrEqual(t, dt.GetDepth(), 2)

	unlimited := NewDecisionTreeClassifier()
	require.NoError(t, unlimited.Fit(X, y))
	assert.Equal(t, 1.0, unlimited.Score(X, y))
}

func TestDecisionTreeClassifier_MinSamples(t *testing.T) {
	X := mat.NewDense(10, 2, nil)
	y := mat.NewDense(10, 1, nil)
	for i := 0; i < 10; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(i%3))
		y.Set(i, 0, float64(i%2))
	}

	dt := NewDecisionTreeClassifier(WithMinSamplesSplit(5), WithMinSamplesLeaf(2))
	require.NoError(t, dt.Fit(X, y))
	assert.LessOrEqual(t, dt.GetNLeaves(), 5)
	for _, n := range dt.nodes_ {
		assert.GreaterOrEqual(t, n.nSamples, 2)
	}
}

func TestDecisionTreeClassifier_GetSetParams(t *testing.T) {
	dt := NewDecisionTreeClassifier()

	params := dt.GetParams()
	assert.Equal(t, "gini", params["criterion"])
	assert.Equal(t, 2, params["min_samples_split"])
	assert.Nil(t, params["max_depth"])
	assert.Nil(t, params["random_state"])

	err := dt.SetParams(map[string]interface{}{
		"criterion":         "entropy",
		"max_depth":         5,
		"min_samples_split": 4,
		"min_samples_leaf":  2,
		"random_state":      42,
	})
	require.NoError(t, err)
	assert.Equal(t, "entropy", dt.criterion)
	assert.Equal(t, 5, dt.maxDepth)
	assert.Equal(t, 4, dt.minSamplesSplit)
	assert.Equal(t, 2, dt.minSamplesLeaf)
	assert.Equal(t, 42, dt.GetParams()["random_state"])

	require.NoError(t, dt.SetParams(model.Params{"max_depth": nil}))
	assert.Equal(t, 0, dt.maxDepth)

	tests := []struct {
		name   string
		params model.Params
	}{
		{"unknown key", model.Params{"depth": 3}},
		{"bad criterion", model.Params{"criterion": "mse"}},
		{"negative depth", model.Params{"max_depth": -1}},
		{"fractional split", model.Params{"min_samples_split": 2.5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ve *errors.ValidationError
			assert.True(t, errors.As(NewDecisionTreeClassifier().SetParams(tt.params), &ve))
		})
	}
}

func TestDecisionTreeClassifier_Clone(t *testing.T) {
	X, y := separable()
	dt := NewDecisionTreeClassifier(WithMaxDepth(3), WithRandomState(7), WithMaxFeatures("sqrt"))
	require.NoError(t, dt.Fit(X, y))

	clone := dt.Clone()
	assert.Equal(t, dt.GetParams(), clone.GetParams())
	_, err := clone.Predict(X)
	var nf *errors.NotFittedError
	assert.True(t, errors.As(err, &nf), "clones must be unfitted")
}

func TestDecisionTreeClassifier_RandomStateIsDeterministic(t *testing.T) {
	n := 60
	X := mat.NewDense(n, 4, nil)
	y := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i%7))
		X.Set(i, 1, float64((i*3)%11))
		X.Set(i, 2, float64((i*5)%13))
		X.Set(i, 3, float64(i%2))
		y.Set(i, 0, float64((i*7)%3))
	}

	fit := func() *DecisionTreeClassifier {
		dt := NewDecisionTreeClassifier(WithMaxFeatures("sqrt"), WithRandomState(3))
		require.NoError(t, dt.Fit(X, y))
		return dt
	}
	a, b := fit(), fit()
	assert.Equal(t, a.nodes_, b.nodes_)
}

func TestDecisionTreeClassifier_FitWeighted(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 2})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.FitWeighted(X, y, []float64{1, 2, 0, 1}))

	// class 1 has zero weight but stays a known class
	assert.Equal(t, []float64{0, 1, 2}, dt.Classes())
	probas, err := dt.PredictProba(mat.NewDense(1, 1, []float64{0}))
	require.NoError(t, err)
	assert.Equal(t, 0.0, probas.At(0, 1))

	assert.Error(t, dt.FitWeighted(X, y, []float64{1, 1}))
	assert.Error(t, dt.FitWeighted(X, y, []float64{0, 0, 0, 0}))
}

func TestDecisionTreeClassifier_NotFitted(t *testing.T) {
	dt := NewDecisionTreeClassifier()
	X := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := dt.Predict(X)
	assert.Error(t, err)
	_, err = dt.PredictProba(X)
	assert.Error(t, err)
}

func TestDecisionTreeClassifier_DimensionMismatch(t *testing.T) {
	X, y := separable()
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	_, err := dt.Predict(mat.NewDense(1, 3, nil))
	var de *errors.DimensionError
	assert.True(t, errors.As(err, &de))
}

func TestResolveMaxFeatures(t *testing.T) {
	tests := []struct {
		v       any
		want    int
		wantErr bool
	}{
		{nil, 16, false},
		{"sqrt", 4, false},
		{"log2", 4, false},
		{3, 3, false},
		{0.5, 8, false},
		{1.0, 16, false},
		{"cube", 0, true},
		{0, 0, true},
		{17, 0, true},
	}
	for _, tt := range tests {
		got, err := ResolveMaxFeatures(tt.v, 16)
		if tt.wantErr {
			assert.Error(t, err, "%v", tt.v)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%v", tt.v)
	}
}
