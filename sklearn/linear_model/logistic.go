// Package linear_model provides linear classifiers.
package linear_model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// Penalties accepted by LogisticRegression.
const (
	PenaltyL2   = "l2"
	PenaltyNone = "none"
)

// ClassWeightBalanced weights samples inversely to their class frequency.
const ClassWeightBalanced = "balanced"

// LogisticRegression implements L2-regularised logistic regression fitted by
// gradient descent. Two classes share one decision function; more classes
// are fitted one-vs-rest.
// Compatible with scikit-learn's LogisticRegression
type LogisticRegression struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	penalty      string  // "l2" or "none"
	c            float64 // Inverse regularization strength
	fitIntercept bool
	classWeight  string // "" or "balanced"
	maxIter      int
	tol          float64 // Stop when every gradient component is below tol

	// Model parameters
	classes_   []float64
	coef_      *mat.Dense // 1 x n_features for two classes, n_classes x n_features otherwise
	intercept_ []float64
	nIter_     []int

	logger log.Logger
}

// Option is a functional option for LogisticRegression
type Option func(*LogisticRegression)

// WithPenalty sets the regularization type
func WithPenalty(penalty string) Option {
	return func(lr *LogisticRegression) { lr.penalty = penalty }
}

// WithC sets the inverse regularization strength
func WithC(c float64) Option {
	return func(lr *LogisticRegression) { lr.c = c }
}

// WithFitIntercept sets whether to fit intercept
func WithFitIntercept(fit bool) Option {
	return func(lr *LogisticRegression) { lr.fitIntercept = fit }
}

// WithClassWeight sets the class weighting, "" or "balanced"
func WithClassWeight(weight string) Option {
	return func(lr *LogisticRegression) { lr.classWeight = weight }
}

// WithMaxIter sets the maximum number of iterations
func WithMaxIter(maxIter int) Option {
	return func(lr *LogisticRegression) { lr.maxIter = maxIter }
}

// WithTol sets the tolerance for stopping criteria
func WithTol(tol float64) Option {
	return func(lr *LogisticRegression) { lr.tol = tol }
}

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...Option) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      PenaltyL2,
		c:            1.0,
		fitIntercept: true,
		maxIter:      100,
		tol:          1e-4,
	}
	for _, opt := range opts {
		opt(lr)
	}
	lr.logger = log.GetLoggerWithName("LogisticRegression")
	return lr
}

func (lr *LogisticRegression) Name() string { return "LogisticRegression" }

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() model.Params {
	var classWeight any
	if lr.classWeight != "" {
		classWeight = lr.classWeight
	}
	return model.Params{
		"penalty":       lr.penalty,
		"C":             lr.c,
		"fit_intercept": lr.fitIntercept,
		"class_weight":  classWeight,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params model.Params) error {
	for name, v := range params {
		var err error
		switch name {
		case "penalty":
			if v == nil {
				lr.penalty = PenaltyNone
				continue
			}
			lr.penalty, err = model.ParamString(name, v, PenaltyL2, PenaltyNone)
		case "C":
			lr.c, err = model.ParamFloat(name, v)
		case "fit_intercept":
			lr.fitIntercept, err = model.ParamBool(name, v)
		case "class_weight":
			if v == nil {
				lr.classWeight = ""
				continue
			}
			lr.classWeight, err = model.ParamString(name, v, ClassWeightBalanced)
		case "max_iter":
			lr.maxIter, err = model.ParamInt(name, v)
		case "tol":
			lr.tol, err = model.ParamFloat(name, v)
		default:
			err = model.UnknownParam(lr.Name(), name, v)
		}
		if err != nil {
			return err
		}
	}
	lr.state.Reset()
	return nil
}

func (lr *LogisticRegression) Clone() model.Estimator {
	return NewLogisticRegression(
		WithPenalty(lr.penalty),
		WithC(lr.c),
		WithFitIntercept(lr.fitIntercept),
		WithClassWeight(lr.classWeight),
		WithMaxIter(lr.maxIter),
		WithTol(lr.tol),
	)
}

func (lr *LogisticRegression) validate() error {
	switch {
	case lr.penalty != PenaltyL2 && lr.penalty != PenaltyNone:
		return errors.NewValidationError("penalty", "must be l2 or none", lr.penalty)
	case lr.c <= 0:
		return errors.NewValidationError("C", "must be > 0", lr.c)
	case lr.maxIter < 1:
		return errors.NewValidationError("max_iter", "must be >= 1", lr.maxIter)
	case lr.tol < 0:
		return errors.NewValidationError("tol", "must be >= 0", lr.tol)
	case lr.classWeight != "" && lr.classWeight != ClassWeightBalanced:
		return errors.NewValidationError("class_weight", "must be None or balanced", lr.classWeight)
	}
	return nil
}

// Fit trains the logistic regression model
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LogisticRegression.Fit")

	labels, err := model.CheckXy("LogisticRegression.Fit", X, y)
	if err != nil {
		return err
	}
	if err := errors.CheckMatrix("LogisticRegression.Fit", X); err != nil {
		return err
	}
	if err := lr.validate(); err != nil {
		return err
	}
	classes := model.UniqueSorted(labels)
	if len(classes) < 2 {
		return errors.NewValueError("LogisticRegression.Fit",
			fmt.Sprintf("this solver needs samples of at least 2 classes in the data, but the data contains only one class: %s", model.FormatParam(classes[0])))
	}
	nSamples, nFeatures := X.Dims()
	weights := lr.sampleWeights(labels, classes)

	// Binary classification: single set of weights for classes[1]
	targets := classes[1:]
	if len(classes) > 2 {
		targets = classes
	}
	coef := mat.NewDense(len(targets), nFeatures, nil)
	intercept := make([]float64, len(targets))
	nIter := make([]int, len(targets))
	t := make([]float64, nSamples)
	for k, class := range targets {
		for i, l := range labels {
			t[i] = 0
			if l == class {
				t[i] = 1
			}
		}
		intercept[k], nIter[k] = lr.fitBinary(X, t, weights, coef.RawRowView(k))
	}

	lr.classes_ = classes
	lr.coef_ = coef
	lr.intercept_ = intercept
	lr.nIter_ = nIter
	lr.state.SetFitted(nFeatures, nSamples)

	lr.logger.Debug("LogisticRegression fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, len(classes),
		"iterations", nIter,
	)
	return nil
}

// sampleWeights returns 1 for every sample, or n_samples / (n_classes *
// class count) with balanced class weights.
func (lr *LogisticRegression) sampleWeights(labels, classes []float64) []float64 {
	w := make([]float64, len(labels))
	if lr.classWeight != ClassWeightBalanced {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	counts := make(map[float64]float64, len(classes))
	for _, l := range labels {
		counts[l]++
	}
	for i, l := range labels {
		w[i] = float64(len(labels)) / (float64(len(classes)) * counts[l])
	}
	return w
}

// fitBinary minimises the weighted log loss of the 0/1 targets t by gradient
// descent with a decaying step, writing the coefficients into coef. It
// returns the intercept and the number of iterations run.
func (lr *LogisticRegression) fitBinary(X mat.Matrix, t, w, coef []float64) (float64, int) {
	nSamples, nFeatures := X.Dims()
	n := float64(nSamples)
	lambda := 0.0
	if lr.penalty == PenaltyL2 {
		lambda = 1 / (lr.c * n)
	}

	beta := mat.NewVecDense(nFeatures, coef)
	z := mat.NewVecDense(nSamples, nil)
	residual := mat.NewVecDense(nSamples, nil)
	grad := mat.NewVecDense(nFeatures, nil)
	intercept := 0.0

	iter := 0
	for iter < lr.maxIter {
		z.MulVec(X, beta)
		gradIntercept := 0.0
		for i := 0; i < nSamples; i++ {
			r := w[i] * (sigmoid(z.AtVec(i)+intercept) - t[i]) / n
			residual.SetVec(i, r)
			gradIntercept += r
		}
		grad.MulVec(X.T(), residual)
		if !lr.fitIntercept {
			gradIntercept = 0
		}
		// Stopping uses the full gradient, penalty included.
		maxGrad := math.Abs(gradIntercept)
		for j := 0; j < nFeatures; j++ {
			if g := math.Abs(grad.AtVec(j) + lambda*beta.AtVec(j)); g > maxGrad {
				maxGrad = g
			}
		}

		// Implicit L2 shrink.
		step := 1.0 / (1.0 + 0.1*float64(iter))
		beta.AddScaledVec(beta, -step, grad)
		beta.ScaleVec(1/(1+step*lambda), beta)
		intercept -= step * gradIntercept
		iter++

		if maxGrad < lr.tol {
			break
		}
	}
	return intercept, iter
}

// DecisionFunction returns the signed distance of every sample to each
// decision boundary: one column for two classes, one per class otherwise.
func (lr *LogisticRegression) DecisionFunction(X mat.Matrix) (mat.Matrix, error) {
	if err := lr.state.RequirePredictable(lr.Name(), X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	k, _ := lr.coef_.Dims()
	scores := mat.NewDense(rows, k, nil)
	scores.Mul(X, lr.coef_.T())
	for i := 0; i < rows; i++ {
		row := scores.RawRowView(i)
		floats.Add(row, lr.intercept_)
	}
	return scores, nil
}

// PredictProba returns probability estimates for each class. One-vs-rest
// probabilities are normalised to sum to one.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	rows, k := scores.Dims()
	proba := mat.NewDense(rows, len(lr.classes_), nil)
	for i := 0; i < rows; i++ {
		if k == 1 {
			p := sigmoid(scores.At(i, 0))
			proba.Set(i, 0, 1-p)
			proba.Set(i, 1, p)
			continue
		}
		row := proba.RawRowView(i)
		for c := range row {
			row[c] = sigmoid(scores.At(i, c))
		}
		if sum := floats.Sum(row); sum > 0 {
			floats.Scale(1/sum, row)
		}
	}
	return proba, nil
}

// Predict makes predictions for input data
func (lr *LogisticRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	scores, err := lr.DecisionFunction(X)
	if err != nil {
		return nil, err
	}
	rows, k := scores.Dims()
	pred := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		if k == 1 {
			c := 0
			if scores.At(i, 0) > 0 {
				c = 1
			}
			pred.Set(i, 0, lr.classes_[c])
			continue
		}
		pred.Set(i, 0, lr.classes_[model.ArgMax(mat.Row(nil, i, scores))])
	}
	return pred, nil
}

// Classes returns the class labels seen during Fit in ascending order
func (lr *LogisticRegression) Classes() []float64 { return lr.classes_ }

// Coef returns the fitted coefficients
func (lr *LogisticRegression) Coef() mat.Matrix { return lr.coef_ }

// Intercept returns the fitted intercepts
func (lr *LogisticRegression) Intercept() []float64 { return lr.intercept_ }

// NIter returns the iterations run per decision function
func (lr *LogisticRegression) NIter() []int { return lr.nIter_ }

func (lr *LogisticRegression) String() string {
	return fmt.Sprintf("LogisticRegression(%s)", lr.GetParams())
}

// sigmoid computes the sigmoid function without overflowing exp
func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
