// Package tree implements CART decision tree classifiers.
package tree

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// Criterion names accepted by WithCriterion.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
	CriterionLogLoss = "log_loss"
)

// DecisionTreeClassifier is a CART classifier. Splits are chosen greedily by
// the largest impurity decrease, and a sample goes left when its feature
// value is less than or equal to the threshold.
type DecisionTreeClassifier struct {
	state *model.StateManager

	criterion           string
	maxDepth            int // 0 means unlimited
	minSamplesSplit     int
	minSamplesLeaf      int
	maxFeatures         any
	minImpurityDecrease float64
	randomState         *int64

	classes_            []float64
	nClasses_           int
	nodes_              []node
	depth_              int
	featureImportances_ []float64

	logger log.Logger
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

// WithCriterion sets the split quality measure ("gini", "entropy" or "log_loss").
func WithCriterion(criterion string) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.criterion = criterion
	}
}

// WithMaxDepth limits the depth of the tree. Zero means unlimited.
func WithMaxDepth(depth int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples required to split a node.
func WithMinSamplesSplit(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples required at a leaf.
func WithMinSamplesLeaf(n int) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMaxFeatures sets how many features are considered per split: nil for
// all, "sqrt", "log2", an int count or a float fraction.
func WithMaxFeatures(v any) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = v
	}
}

// WithMinImpurityDecrease sets the minimum weighted impurity decrease of a split.
func WithMinImpurityDecrease(v float64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.minImpurityDecrease = v
	}
}

// WithRandomState fixes the seed used for feature sampling.
func WithRandomState(seed int64) Option {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = &seed
	}
}

// NewDecisionTreeClassifier creates a tree with scikit-learn's defaults.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
	}
	for _, opt := range opts {
		opt(dt)
	}
	dt.logger = log.GetLoggerWithName("DecisionTreeClassifier")
	return dt
}

// Name returns the estimator type name.
func (dt *DecisionTreeClassifier) Name() string {
	return "DecisionTreeClassifier"
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() model.Params {
	var maxDepth any
	if dt.maxDepth > 0 {
		maxDepth = dt.maxDepth
	}
	var randomState any
	if dt.randomState != nil {
		randomState = int(*dt.randomState)
	}
	return model.Params{
		"criterion":             dt.criterion,
		"max_depth":             maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"max_features":          dt.maxFeatures,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"random_state":          randomState,
	}
}

// SetParams sets hyperparameters by name. The fitted state is discarded.
func (dt *DecisionTreeClassifier) SetParams(params model.Params) error {
	for name, v := range params {
		var err error
		switch name {
		case "criterion":
			dt.criterion, err = model.ParamString(name, v, CriterionGini, CriterionEntropy, CriterionLogLoss)
		case "max_depth":
			dt.maxDepth, err = model.ParamOptionalInt(name, v)
		case "min_samples_split":
			dt.minSamplesSplit, err = model.ParamInt(name, v)
		case "min_samples_leaf":
			dt.minSamplesLeaf, err = model.ParamInt(name, v)
		case "max_features":
			dt.maxFeatures = v
		case "min_impurity_decrease":
			dt.minImpurityDecrease, err = model.ParamFloat(name, v)
		case "random_state":
			dt.randomState, err = ParseRandomState(name, v)
		default:
			err = model.UnknownParam(dt.Name(), name, v)
		}
		if err != nil {
			return err
		}
	}
	dt.state.Reset()
	return nil
}

// Clone returns an unfitted tree with the same hyperparameters.
func (dt *DecisionTreeClassifier) Clone() model.Estimator {
	clone := &DecisionTreeClassifier{
		state:               model.NewStateManager(),
		criterion:           dt.criterion,
		maxDepth:            dt.maxDepth,
		minSamplesSplit:     dt.minSamplesSplit,
		minSamplesLeaf:      dt.minSamplesLeaf,
		maxFeatures:         dt.maxFeatures,
		minImpurityDecrease: dt.minImpurityDecrease,
		logger:              dt.logger,
	}
	if dt.randomState != nil {
		seed := *dt.randomState
		clone.randomState = &seed
	}
	return clone
}

func (dt *DecisionTreeClassifier) validate(nFeatures int) (maxFeatures int, err error) {
	switch dt.criterion {
	case CriterionGini, CriterionEntropy, CriterionLogLoss:
	default:
		return 0, errors.NewValidationError("criterion", "must be one of gini, entropy, log_loss", dt.criterion)
	}
	if dt.maxDepth < 0 {
		return 0, errors.NewValidationError("max_depth", "must be >= 1 or None", dt.maxDepth)
	}
	if dt.minSamplesSplit < 2 {
		return 0, errors.NewValidationError("min_samples_split", "must be >= 2", dt.minSamplesSplit)
	}
	if dt.minSamplesLeaf < 1 {
		return 0, errors.NewValidationError("min_samples_leaf", "must be >= 1", dt.minSamplesLeaf)
	}
	if dt.minImpurityDecrease < 0 {
		return 0, errors.NewValidationError("min_impurity_decrease", "must be >= 0", dt.minImpurityDecrease)
	}
	return ResolveMaxFeatures(dt.maxFeatures, nFeatures)
}

// ResolveMaxFeatures turns a max_features value into a feature count.
func ResolveMaxFeatures(v any, nFeatures int) (int, error) {
	switch x := v.(type) {
	case nil:
		return nFeatures, nil
	case string:
		switch x {
		case "None", "null":
			return nFeatures, nil
		case "sqrt":
			return max(1, int(math.Sqrt(float64(nFeatures)))), nil
		case "log2":
			return max(1, int(math.Log2(float64(nFeatures)))), nil
		}
		return 0, errors.NewValidationError("max_features", "must be None, sqrt, log2, an int or a float in (0, 1]", v)
	case float32, float64:
		f, _ := model.ParamNumeric(x)
		if f == math.Trunc(f) && f > 1 {
			return min(int(f), nFeatures), nil
		}
		if f <= 0 || f > 1 {
			return 0, errors.NewValidationError("max_features", "a float must be in (0, 1]", v)
		}
		return max(1, int(f*float64(nFeatures))), nil
	default:
		n, err := model.ParamInt("max_features", v)
		if err != nil {
			return 0, err
		}
		if n < 1 || n > nFeatures {
			return 0, errors.NewValidationError("max_features", fmt.Sprintf("must be in [1, %d]", nFeatures), v)
		}
		return n, nil
	}
}

// ParseRandomState accepts nil (fresh seed on every fit) or an integer seed.
func ParseRandomState(name string, v any) (*int64, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok && (s == "None" || s == "null") {
		return nil, nil
	}
	n, err := model.ParamInt(name, v)
	if err != nil {
		return nil, err
	}
	seed := int64(n)
	return &seed, nil
}

func (dt *DecisionTreeClassifier) newRand() *rand.Rand {
	seed := uint64(time.Now().UnixNano())
	if dt.randomState != nil {
		seed = uint64(*dt.randomState)
	}
	return rand.New(rand.NewPCG(seed, seed))
}

// Fit builds the tree from the training data.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) error {
	return dt.FitWeighted(X, y, nil)
}

// FitWeighted builds the tree with per-sample weights. Samples with zero
// weight do not reach any node, but their labels still count as classes.
// A nil weight slice means every sample has weight one.
func (dt *DecisionTreeClassifier) FitWeighted(X, y mat.Matrix, sampleWeight []float64) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	labels, err := model.CheckXy("DecisionTreeClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if err := errors.CheckMatrix("DecisionTreeClassifier.Fit", X); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if sampleWeight != nil && len(sampleWeight) != nSamples {
		return errors.NewDimensionError("DecisionTreeClassifier.Fit", nSamples, len(sampleWeight), 0)
	}
	maxFeatures, err := dt.validate(nFeatures)
	if err != nil {
		return err
	}

	classes := model.UniqueSorted(labels)
	index := model.ClassIndex(classes)
	encoded := make([]int, nSamples)
	for i, l := range labels {
		encoded[i] = index[l]
	}

	weights := sampleWeight
	if weights == nil {
		weights = make([]float64, nSamples)
		for i := range weights {
			weights[i] = 1
		}
	}
	samples := make([]int, 0, nSamples)
	for i, w := range weights {
		if w < 0 {
			return errors.NewValidationError("sample_weight", "must be non-negative", w)
		}
		if w > 0 {
			samples = append(samples, i)
		}
	}
	if len(samples) == 0 {
		return errors.NewValueError("DecisionTreeClassifier.Fit", "sample weights sum to zero")
	}

	b := newBuilder(X, encoded, weights, len(classes), builderConfig{
		criterion:           dt.criterion,
		maxDepth:            dt.maxDepth,
		minSamplesSplit:     dt.minSamplesSplit,
		minSamplesLeaf:      dt.minSamplesLeaf,
		maxFeatures:         maxFeatures,
		minImpurityDecrease: dt.minImpurityDecrease,
	}, dt.newRand())
	b.build(samples, 0)

	dt.classes_ = classes
	dt.nClasses_ = len(classes)
	dt.nodes_ = b.nodes
	dt.depth_ = b.depth
	dt.featureImportances_ = b.normalizedImportances()
	dt.state.SetFitted(nFeatures, nSamples)

	if dt.logger.Enabled(context.Background(), log.LevelDebug) {
		dt.logger.Debug("Tree fitted",
			log.OperationKey, log.OperationFit,
			log.SamplesKey, len(samples),
			log.FeaturesKey, nFeatures,
			log.ClassesKey, len(classes),
			"tree.depth", b.depth,
			"tree.nodes", len(b.nodes),
		)
	}
	return nil
}

// PredictProba returns the class distribution of the leaf each sample falls
// into. Columns follow Classes().
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequirePredictable(dt.Name(), X); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	proba := mat.NewDense(rows, dt.nClasses_, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		leaf := dt.nodes_[dt.apply(row)]
		for k, c := range leaf.value {
			proba.Set(i, k, c/leaf.weightedN)
		}
	}
	return proba, nil
}

// Predict returns the most probable class of every sample.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.state.RequirePredictable(dt.Name(), X); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	pred := mat.NewDense(rows, 1, nil)
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, X)
		leaf := dt.nodes_[dt.apply(row)]
		pred.Set(i, 0, dt.classes_[model.ArgMax(leaf.value)])
	}
	return pred, nil
}

// apply returns the index of the leaf reached by x.
func (dt *DecisionTreeClassifier) apply(x []float64) int {
	id := 0
	for dt.nodes_[id].feature >= 0 {
		n := dt.nodes_[id]
		if x[n.feature] <= n.threshold {
			id = n.left
		} else {
			id = n.right
		}
	}
	return id
}

// Score returns the accuracy on the given data, or NaN when prediction fails.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) float64 {
	pred, err := dt.Predict(X)
	if err != nil {
		return math.NaN()
	}
	rows, _ := y.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows)
}

// Classes returns the class labels seen during Fit in ascending order.
func (dt *DecisionTreeClassifier) Classes() []float64 {
	return dt.classes_
}

// GetFeatureImportances returns the normalized total impurity decrease
// contributed by each feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	return dt.featureImportances_
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	return dt.depth_
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	n := 0
	for _, nd := range dt.nodes_ {
		if nd.feature < 0 {
			n++
		}
	}
	return n
}

// IsFitted reports whether Fit has completed.
func (dt *DecisionTreeClassifier) IsFitted() bool {
	return dt.state.IsFitted()
}

func (dt *DecisionTreeClassifier) String() string {
	return fmt.Sprintf("DecisionTreeClassifier(%s)", dt.GetParams())
}
