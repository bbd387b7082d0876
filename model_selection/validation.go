package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/metrics"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// CrossValPredict returns out-of-fold predictions for every sample as an
// n×1 column vector. Each fold is fitted on a fresh clone of est, so est
// itself is never fitted. A nil cv means stratified 10-fold.
//
// The test folds must partition the samples.
func CrossValPredict(est model.Estimator, X, y mat.Matrix, cv KFoldSplitter) (_ *mat.Dense, err error) {
	defer errors.Recover(&err, "CrossValPredict")

	if _, err := model.CheckXy("CrossValPredict", X, y); err != nil {
		return nil, err
	}
	folds, err := resolveCV(cv).Split(X, y)
	if err != nil {
		return nil, err
	}

	nSamples, _ := X.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	seen := make([]bool, nSamples)
	for i, fold := range folds {
		clone := est.Clone()
		if err := clone.Fit(takeRows(X, fold.TrainIndices), takeRows(y, fold.TrainIndices)); err != nil {
			return nil, errors.Wrapf(err, "CrossValPredict: fold %d", i)
		}
		pred, err := clone.Predict(takeRows(X, fold.TestIndices))
		if err != nil {
			return nil, errors.Wrapf(err, "CrossValPredict: fold %d", i)
		}
		for j, idx := range fold.TestIndices {
			if seen[idx] {
				return nil, errors.NewValueError("CrossValPredict", "cross_val_predict only works for partitions")
			}
			seen[idx] = true
			predictions.Set(idx, 0, pred.At(j, 0))
		}
	}
	for _, s := range seen {
		if !s {
			return nil, errors.NewValueError("CrossValPredict", "cross_val_predict only works for partitions")
		}
	}
	return predictions, nil
}

// CrossValScore returns the test accuracy of every fold.
func CrossValScore(est model.Estimator, X, y mat.Matrix, cv KFoldSplitter) ([]float64, error) {
	if _, err := model.CheckXy("CrossValScore", X, y); err != nil {
		return nil, err
	}
	folds, err := resolveCV(cv).Split(X, y)
	if err != nil {
		return nil, err
	}
	scores := make([]float64, len(folds))
	for i, fold := range folds {
		result, err := fitAndScore(est.Clone(), X, y, fold, false)
		if err != nil {
			return nil, errors.Wrapf(err, "CrossValScore: fold %d", i)
		}
		scores[i] = result.test
	}
	return scores, nil
}

type foldScore struct {
	train float64
	test  float64
}

// fitAndScore fits est on the training part of fold and measures accuracy on
// the test part, and on the training part when withTrain is set.
func fitAndScore(est model.Estimator, X, y mat.Matrix, fold CVFold, withTrain bool) (foldScore, error) {
	var out foldScore
	trainX, trainY := takeRows(X, fold.TrainIndices), takeRows(y, fold.TrainIndices)
	if err := est.Fit(trainX, trainY); err != nil {
		return out, err
	}
	testScore, err := score(est, takeRows(X, fold.TestIndices), takeRows(y, fold.TestIndices))
	if err != nil {
		return out, err
	}
	out.test = testScore
	if withTrain {
		if out.train, err = score(est, trainX, trainY); err != nil {
			return out, err
		}
	}
	return out, nil
}

func score(est model.Predictor, X, y mat.Matrix) (float64, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return 0, err
	}
	return metrics.AccuracyMatrix(y, pred)
}

// takeRows copies the given rows of m into a new dense matrix.
func takeRows(m mat.Matrix, indices []int) *mat.Dense {
	_, cols := m.Dims()
	out := mat.NewDense(len(indices), cols, nil)
	if raw, ok := m.(mat.RawMatrixer); ok {
		src := raw.RawMatrix()
		for i, idx := range indices {
			copy(out.RawRowView(i), src.Data[idx*src.Stride:idx*src.Stride+cols])
		}
		return out
	}
	for i, idx := range indices {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(idx, j))
		}
	}
	return out
}
