// Package pipeline chains a feature transformer in front of an estimator so
// the pair cross-validates as one model: the transformer is refitted on the
// training folds only.
package pipeline

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// Separator joins the step names of a pipeline type name.
const Separator = "+"

// Pipeline fits a transformer and then an estimator on the transformed
// features.
type Pipeline struct {
	transformer model.Transformer
	estimator   model.Estimator
}

// New returns a pipeline of transformer followed by estimator.
func New(transformer model.Transformer, estimator model.Estimator) *Pipeline {
	return &Pipeline{transformer: transformer, estimator: estimator}
}

// Name is the step names joined by Separator, e.g.
// "StandardScaler+LogisticRegression".
func (p *Pipeline) Name() string {
	return p.transformer.Name() + Separator + p.estimator.Name()
}

// Transformer returns the first step.
func (p *Pipeline) Transformer() model.Transformer { return p.transformer }

// Estimator returns the final step.
func (p *Pipeline) Estimator() model.Estimator { return p.estimator }

// GetParams merges the parameters of both steps.
func (p *Pipeline) GetParams() model.Params {
	params := p.estimator.GetParams()
	for k, v := range p.transformer.GetParams() {
		params[k] = v
	}
	return params
}

// SetParams routes every key the transformer knows to the transformer and
// the rest to the estimator.
func (p *Pipeline) SetParams(params model.Params) error {
	own := p.transformer.GetParams()
	tp, ep := model.Params{}, model.Params{}
	for k, v := range params {
		if _, ok := own[k]; ok {
			tp[k] = v
		} else {
			ep[k] = v
		}
	}
	if len(tp) > 0 {
		if err := p.transformer.SetParams(tp); err != nil {
			return err
		}
	}
	if len(ep) > 0 {
		return p.estimator.SetParams(ep)
	}
	return nil
}

func (p *Pipeline) Clone() model.Estimator {
	return New(p.transformer.Clone(), p.estimator.Clone())
}

// Fit fits the transformer on X and the estimator on the transformed X.
func (p *Pipeline) Fit(X, y mat.Matrix) error {
	if err := p.transformer.Fit(X); err != nil {
		return errors.Wrapf(err, "%s.Fit", p.Name())
	}
	Xt, err := p.transformer.Transform(X)
	if err != nil {
		return errors.Wrapf(err, "%s.Fit", p.Name())
	}
	return p.estimator.Fit(Xt, y)
}

// Predict transforms X and predicts with the estimator.
func (p *Pipeline) Predict(X mat.Matrix) (mat.Matrix, error) {
	Xt, err := p.transformer.Transform(X)
	if err != nil {
		return nil, err
	}
	return p.estimator.Predict(Xt)
}

// PredictProba transforms X and returns the class probabilities of the
// estimator. The estimator must be a model.ProbabilisticClassifier.
func (p *Pipeline) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	pc, ok := p.estimator.(model.ProbabilisticClassifier)
	if !ok {
		return nil, errors.NewValueError(p.Name()+".PredictProba",
			fmt.Sprintf("%s does not predict probabilities", p.estimator.Name()))
	}
	Xt, err := p.transformer.Transform(X)
	if err != nil {
		return nil, err
	}
	return pc.PredictProba(Xt)
}

// Classes returns the classes of the estimator, or nil when it does not
// expose them.
func (p *Pipeline) Classes() []float64 {
	if pc, ok := p.estimator.(model.ProbabilisticClassifier); ok {
		return pc.Classes()
	}
	return nil
}

func (p *Pipeline) String() string {
	return fmt.Sprintf("Pipeline(%s)", p.GetParams())
}
