package model_selection

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// ValidationCurveResult holds training and test accuracy for every value of
// a single hyperparameter. Score slices are indexed [value][fold].
type ValidationCurveResult struct {
	Param       string      `yaml:"param" msgpack:"param"`
	Values      []any       `yaml:"values" msgpack:"values"`
	TrainScores [][]float64 `yaml:"train_scores" msgpack:"train_scores"`
	TestScores  [][]float64 `yaml:"test_scores" msgpack:"test_scores"`
}

// ValidationCurve fits a clone of est for every value of param on every
// fold and records the training and test accuracy.
func ValidationCurve(est model.Estimator, X, y mat.Matrix, param string, values []any, cv KFoldSplitter) (_ *ValidationCurveResult, err error) {
	defer errors.Recover(&err, "ValidationCurve")

	if len(values) == 0 {
		return nil, errors.NewValidationError("param_range", "must contain at least one value", values)
	}
	if _, err := model.CheckXy("ValidationCurve", X, y); err != nil {
		return nil, err
	}
	folds, err := resolveCV(cv).Split(X, y)
	if err != nil {
		return nil, err
	}

	result := &ValidationCurveResult{
		Param:       param,
		Values:      values,
		TrainScores: make([][]float64, len(values)),
		TestScores:  make([][]float64, len(values)),
	}
	for v, value := range values {
		result.TrainScores[v] = make([]float64, len(folds))
		result.TestScores[v] = make([]float64, len(folds))
		for f, fold := range folds {
			clone := est.Clone()
			if err := clone.SetParams(model.Params{param: value}); err != nil {
				return nil, err
			}
			s, err := fitAndScore(clone, X, y, fold, true)
			if err != nil {
				return nil, errors.Wrapf(err, "ValidationCurve: %s=%s, fold %d", param, model.FormatParam(value), f)
			}
			result.TrainScores[v][f] = s.train
			result.TestScores[v][f] = s.test
		}
	}
	return result, nil
}

// TrainMean returns the mean training score per value.
func (r *ValidationCurveResult) TrainMean() []float64 { return rowMeans(r.TrainScores) }

// TrainStd returns the population standard deviation of training scores per value.
func (r *ValidationCurveResult) TrainStd() []float64 { return rowStds(r.TrainScores) }

// TestMean returns the mean cross-validation score per value.
func (r *ValidationCurveResult) TestMean() []float64 { return rowMeans(r.TestScores) }

// TestStd returns the population standard deviation of cross-validation scores per value.
func (r *ValidationCurveResult) TestStd() []float64 { return rowStds(r.TestScores) }

func rowMeans(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = stat.Mean(row, nil)
	}
	return out
}

func rowStds(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		_, out[i] = stat.PopMeanStdDev(row, nil)
	}
	return out
}
