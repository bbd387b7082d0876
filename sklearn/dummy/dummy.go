// Package dummy provides baseline classifiers that ignore the features.
package dummy

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/sklearn/tree"
)

// Strategies accepted by DummyClassifier.
const (
	StrategyMostFrequent = "most_frequent"
	StrategyPrior        = "prior"
	StrategyStratified   = "stratified"
	StrategyUniform      = "uniform"
	StrategyConstant     = "constant"
)

// DummyClassifier predicts from the label distribution alone. With the
// most_frequent strategy its accuracy is the majority-class baseline.
type DummyClassifier struct {
	state *model.StateManager

	strategy    string
	constant    any
	randomState *int64

	classes_    []float64
	classPrior_ []float64
	rng         *rand.Rand
}

// Option configures a DummyClassifier.
type Option func(*DummyClassifier)

// WithStrategy sets the prediction strategy.
func WithStrategy(strategy string) Option {
	return func(d *DummyClassifier) { d.strategy = strategy }
}

// WithConstant sets the label predicted by the constant strategy.
func WithConstant(label float64) Option {
	return func(d *DummyClassifier) { d.constant = label }
}

// WithRandomState fixes the seed of the stratified and uniform strategies.
func WithRandomState(seed int64) Option {
	return func(d *DummyClassifier) { d.randomState = &seed }
}

// NewDummyClassifier creates a classifier with the prior strategy.
func NewDummyClassifier(opts ...Option) *DummyClassifier {
	d := &DummyClassifier{
		state:    model.NewStateManager(),
		strategy: StrategyPrior,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *DummyClassifier) Name() string { return "DummyClassifier" }

func (d *DummyClassifier) GetParams() model.Params {
	var randomState any
	if d.randomState != nil {
		randomState = int(*d.randomState)
	}
	return model.Params{
		"strategy":     d.strategy,
		"constant":     d.constant,
		"random_state": randomState,
	}
}

func (d *DummyClassifier) SetParams(params model.Params) error {
	for name, v := range params {
		var err error
		switch name {
		case "strategy":
			d.strategy, err = model.ParamString(name, v,
				StrategyMostFrequent, StrategyPrior, StrategyStratified, StrategyUniform, StrategyConstant)
		case "constant":
			d.constant = v
		case "random_state":
			d.randomState, err = tree.ParseRandomState(name, v)
		default:
			err = model.UnknownParam(d.Name(), name, v)
		}
		if err != nil {
			return err
		}
	}
	d.state.Reset()
	return nil
}

func (d *DummyClassifier) Clone() model.Estimator {
	clone := NewDummyClassifier(WithStrategy(d.strategy))
	clone.constant = d.constant
	if d.randomState != nil {
		seed := *d.randomState
		clone.randomState = &seed
	}
	return clone
}

// Fit records the classes and their frequencies.
func (d *DummyClassifier) Fit(X, y mat.Matrix) error {
	labels, err := model.CheckXy("DummyClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	switch d.strategy {
	case StrategyMostFrequent, StrategyPrior, StrategyStratified, StrategyUniform:
	case StrategyConstant:
		if d.constant == nil {
			return errors.NewValidationError("constant", "must be set when strategy is constant", nil)
		}
		c, err := model.ParamFloat("constant", d.constant)
		if err != nil {
			return err
		}
		found := false
		for _, l := range labels {
			if l == c {
				found = true
				break
			}
		}
		if !found {
			return errors.NewValueError("DummyClassifier.Fit",
				fmt.Sprintf("the constant target value %s must be present in the training data", model.FormatParam(c)))
		}
	default:
		return errors.NewValidationError("strategy", "unknown strategy", d.strategy)
	}

	d.classes_ = model.UniqueSorted(labels)
	index := model.ClassIndex(d.classes_)
	d.classPrior_ = make([]float64, len(d.classes_))
	for _, l := range labels {
		d.classPrior_[index[l]]++
	}
	for k := range d.classPrior_ {
		d.classPrior_[k] /= float64(len(labels))
	}

	seed := uint64(time.Now().UnixNano())
	if d.randomState != nil {
		seed = uint64(*d.randomState)
	}
	d.rng = rand.New(rand.NewPCG(seed, seed))

	nSamples, nFeatures := X.Dims()
	d.state.SetFitted(nFeatures, nSamples)
	return nil
}

// PredictProba returns per-strategy class probabilities. Columns follow Classes().
func (d *DummyClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := d.state.RequirePredictable(d.Name(), X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	k := len(d.classes_)
	proba := mat.NewDense(rows, k, nil)
	for i := 0; i < rows; i++ {
		switch d.strategy {
		case StrategyMostFrequent:
			proba.Set(i, model.ArgMax(d.classPrior_), 1)
		case StrategyPrior:
			proba.SetRow(i, d.classPrior_)
		case StrategyStratified:
			proba.Set(i, d.sampleClass(), 1)
		case StrategyUniform:
			for j := 0; j < k; j++ {
				proba.Set(i, j, 1/float64(k))
			}
		case StrategyConstant:
			c, _ := model.ParamFloat("constant", d.constant)
			proba.Set(i, model.ClassIndex(d.classes_)[c], 1)
		}
	}
	return proba, nil
}

// sampleClass draws a class index from the training distribution.
func (d *DummyClassifier) sampleClass() int {
	u := d.rng.Float64()
	acc := 0.0
	for k, p := range d.classPrior_ {
		acc += p
		if u < acc {
			return k
		}
	}
	return len(d.classPrior_) - 1
}

// Predict returns one label per sample.
func (d *DummyClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := d.state.RequirePredictable(d.Name(), X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	pred := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		var k int
		switch d.strategy {
		case StrategyStratified:
			k = d.sampleClass()
		case StrategyUniform:
			k = d.rng.IntN(len(d.classes_))
		case StrategyConstant:
			c, _ := model.ParamFloat("constant", d.constant)
			pred.Set(i, 0, c)
			continue
		default:
			k = model.ArgMax(d.classPrior_)
		}
		pred.Set(i, 0, d.classes_[k])
	}
	return pred, nil
}

// Classes returns the labels seen during Fit in ascending order.
func (d *DummyClassifier) Classes() []float64 {
	return d.classes_
}

// ClassPrior returns the relative frequency of each class.
func (d *DummyClassifier) ClassPrior() []float64 {
	return d.classPrior_
}
