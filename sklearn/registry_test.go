package sklearn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		typeName string
		params   model.Params
		check    func(t *testing.T, p model.Params)
	}{
		{"DecisionTreeClassifier", model.Params{"max_depth": 3}, func(t *testing.T, p model.Params) {
			assert.Equal(t, 3, p["max_depth"])
		}},
		{"RandomForestClassifier", model.Params{"n_estimators": 10, "random_state": 0}, func(t *testing.T, p model.Params) {
			assert.Equal(t, 10, p["n_estimators"])
			assert.Equal(t, 0, p["random_state"])
		}},
		{"GaussianNB", nil, func(t *testing.T, p model.Params) {
			assert.Equal(t, 1e-9, p["var_smoothing"])
		}},
		{"DummyClassifier", model.Params{"strategy": "most_frequent"}, func(t *testing.T, p model.Params) {
			assert.Equal(t, "most_frequent", p["strategy"])
		}},
		{"LogisticRegression", model.Params{"C": 0.1}, func(t *testing.T, p model.Params) {
			assert.Equal(t, 0.1, p["C"])
			assert.Equal(t, "l2", p["penalty"])
		}},
		{"StandardScaler+LogisticRegression", model.Params{"with_mean": false, "max_iter": 50}, func(t *testing.T, p model.Params) {
			assert.Equal(t, false, p["with_mean"])
			assert.Equal(t, 50, p["max_iter"])
		}},
		{"MinMaxScaler+GaussianNB", nil, func(t *testing.T, p model.Params) {
			assert.Equal(t, []float64{0, 1}, p["feature_range"])
			assert.Equal(t, 1e-9, p["var_smoothing"])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.typeName, func(t *testing.T) {
			est, err := New(tt.typeName, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.typeName, est.Name())
			tt.check(t, est.GetParams())
		})
	}
}

func TestNewErrors(t *testing.T) {
	_, err := New("SVC", nil)
	assert.True(t, errors.Is(err, errors.ErrUnknownEstimator))

	_, err = New("PCA+LogisticRegression", nil)
	assert.True(t, errors.Is(err, errors.ErrUnknownEstimator))

	_, err = New("StandardScaler+SVC", nil)
	assert.True(t, errors.Is(err, errors.ErrUnknownEstimator))

	_, err = New("DecisionTreeClassifier", model.Params{"kernel": "rbf"})
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"DecisionTreeClassifier", "DummyClassifier", "GaussianNB", "LogisticRegression", "RandomForestClassifier"}, Names())
	assert.Equal(t, []string{"MinMaxScaler", "StandardScaler"}, TransformerNames())
}
