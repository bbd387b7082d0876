// Package sklearn builds estimators from their scikit-learn type name and a
// parameter map, so configuration files can describe the models to compare.
//
// A type name of the form "<Transformer>+<Estimator>" builds a pipeline, for
// example "StandardScaler+LogisticRegression".
package sklearn

import (
	"sort"
	"strings"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/preprocessing"
	"github.com/YuminosukeSato/decisionlab/sklearn/dummy"
	"github.com/YuminosukeSato/decisionlab/sklearn/ensemble"
	"github.com/YuminosukeSato/decisionlab/sklearn/linear_model"
	"github.com/YuminosukeSato/decisionlab/sklearn/naive_bayes"
	"github.com/YuminosukeSato/decisionlab/sklearn/pipeline"
	"github.com/YuminosukeSato/decisionlab/sklearn/tree"
)

var constructors = map[string]func() model.Estimator{
	"DecisionTreeClassifier": func() model.Estimator { return tree.NewDecisionTreeClassifier() },
	"RandomForestClassifier": func() model.Estimator { return ensemble.NewRandomForestClassifier() },
	"GaussianNB":             func() model.Estimator { return naive_bayes.NewGaussianNB() },
	"DummyClassifier":        func() model.Estimator { return dummy.NewDummyClassifier() },
	"LogisticRegression":     func() model.Estimator { return linear_model.NewLogisticRegression() },
}

var transformers = map[string]func() model.Transformer{
	"StandardScaler": func() model.Transformer { return preprocessing.NewStandardScaler() },
	"MinMaxScaler":   func() model.Transformer { return preprocessing.NewMinMaxScaler([2]float64{0, 1}) },
}

// Names returns the registered estimator type names in sorted order.
func Names() []string {
	return sortedKeys(constructors)
}

// TransformerNames returns the transformers usable as the first step of a
// pipeline type name, in sorted order.
func TransformerNames() []string {
	return sortedKeys(transformers)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func construct(typeName string) (model.Estimator, error) {
	if first, rest, ok := strings.Cut(typeName, pipeline.Separator); ok {
		newTransformer, found := transformers[first]
		if !found {
			return nil, errors.Wrapf(errors.ErrUnknownEstimator, "transformer %q (known: %v)", first, TransformerNames())
		}
		est, err := construct(rest)
		if err != nil {
			return nil, err
		}
		return pipeline.New(newTransformer(), est), nil
	}
	ctor, ok := constructors[typeName]
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownEstimator, "%q (known: %v)", typeName, Names())
	}
	return ctor(), nil
}

// New returns an unfitted estimator of the given type with params applied.
// Unknown type names wrap ErrUnknownEstimator.
func New(typeName string, params model.Params) (model.Estimator, error) {
	est, err := construct(typeName)
	if err != nil {
		return nil, err
	}
	if len(params) > 0 {
		if err := est.SetParams(params); err != nil {
			return nil, errors.Wrapf(err, "configure %s", typeName)
		}
	}
	return est, nil
}
