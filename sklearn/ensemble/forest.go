// Package ensemble はバギングによるアンサンブル分類器を提供します。
package ensemble

import (
	"fmt"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/core/parallel"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
	"github.com/YuminosukeSato/decisionlab/sklearn/tree"
)

// RandomForestClassifier はランダムフォレスト分類器
// scikit-learnのRandomForestClassifierと同じパラメータ名を持つ
type RandomForestClassifier struct {
	state *model.StateManager

	// ハイパーパラメータ
	nEstimators         int     // 木の本数
	criterion           string  // 分割基準: "gini", "entropy", "log_loss"
	maxDepth            int     // 最大深さ（0は無制限）
	minSamplesSplit     int     // 分割に必要な最小サンプル数
	minSamplesLeaf      int     // 葉の最小サンプル数
	maxFeatures         any     // 分割ごとに考慮する特徴量数
	minImpurityDecrease float64 // 分割に必要な不純度の最小減少量
	bootstrap           bool    // ブートストラップサンプリングを行うか
	randomState         *int64  // 乱数シード（nilは毎回異なる）
	nJobs               int     // 並列数（-1は全コア）

	// 学習パラメータ
	estimators_ []*tree.DecisionTreeClassifier
	classes_    []float64

	logger log.Logger
}

// Option はRandomForestClassifierの設定オプション
type Option func(*RandomForestClassifier)

// WithNEstimators は木の本数を設定する
func WithNEstimators(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithCriterion は分割基準を設定する
func WithCriterion(criterion string) Option {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithMaxDepth は最大深さを設定する（0は無制限）
func WithMaxDepth(depth int) Option {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithMinSamplesLeaf は葉の最小サンプル数を設定する
func WithMinSamplesLeaf(n int) Option {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithMaxFeatures は分割ごとに考慮する特徴量数を設定する
func WithMaxFeatures(v any) Option {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = v }
}

// WithBootstrap はブートストラップサンプリングの有無を設定する
func WithBootstrap(bootstrap bool) Option {
	return func(rf *RandomForestClassifier) { rf.bootstrap = bootstrap }
}

// WithRandomState は乱数シードを固定する
func WithRandomState(seed int64) Option {
	return func(rf *RandomForestClassifier) { rf.randomState = &seed }
}

// WithNJobs は木の学習の並列数を設定する
func WithNJobs(n int) Option {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// NewRandomForestClassifier は新しいRandomForestClassifierを作成する
func NewRandomForestClassifier(opts ...Option) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       tree.CriterionGini,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     "sqrt",
		bootstrap:       true,
		nJobs:           1,
	}
	for _, opt := range opts {
		opt(rf)
	}
	rf.logger = log.GetLoggerWithName("RandomForestClassifier")
	return rf
}

// Name は推定器の型名を返す
func (rf *RandomForestClassifier) Name() string {
	return "RandomForestClassifier"
}

// GetParams はハイパーパラメータを返す
func (rf *RandomForestClassifier) GetParams() model.Params {
	var maxDepth any
	if rf.maxDepth > 0 {
		maxDepth = rf.maxDepth
	}
	var randomState any
	if rf.randomState != nil {
		randomState = int(*rf.randomState)
	}
	return model.Params{
		"n_estimators":          rf.nEstimators,
		"criterion":             rf.criterion,
		"max_depth":             maxDepth,
		"min_samples_split":     rf.minSamplesSplit,
		"min_samples_leaf":      rf.minSamplesLeaf,
		"max_features":          rf.maxFeatures,
		"min_impurity_decrease": rf.minImpurityDecrease,
		"bootstrap":             rf.bootstrap,
		"random_state":          randomState,
		"n_jobs":                rf.nJobs,
	}
}

// SetParams はハイパーパラメータを設定する
func (rf *RandomForestClassifier) SetParams(params model.Params) error {
	for name, v := range params {
		var err error
		switch name {
		case "n_estimators":
			rf.nEstimators, err = model.ParamInt(name, v)
		case "criterion":
			rf.criterion, err = model.ParamString(name, v, tree.CriterionGini, tree.CriterionEntropy, tree.CriterionLogLoss)
		case "max_depth":
			rf.maxDepth, err = model.ParamOptionalInt(name, v)
		case "min_samples_split":
			rf.minSamplesSplit, err = model.ParamInt(name, v)
		case "min_samples_leaf":
			rf.minSamplesLeaf, err = model.ParamInt(name, v)
		case "max_features":
			rf.maxFeatures = v
		case "min_impurity_decrease":
			rf.minImpurityDecrease, err = model.ParamFloat(name, v)
		case "bootstrap":
			rf.bootstrap, err = model.ParamBool(name, v)
		case "random_state":
			rf.randomState, err = tree.ParseRandomState(name, v)
		case "n_jobs":
			rf.nJobs, err = model.ParamInt(name, v)
		default:
			err = model.UnknownParam(rf.Name(), name, v)
		}
		if err != nil {
			return err
		}
	}
	rf.state.Reset()
	return nil
}

// Clone は同じハイパーパラメータを持つ未学習のインスタンスを返す
func (rf *RandomForestClassifier) Clone() model.Estimator {
	clone := NewRandomForestClassifier()
	_ = clone.SetParams(rf.GetParams())
	return clone
}

// treeParams は各決定木に渡すパラメータ
func (rf *RandomForestClassifier) treeParams(seed int64) model.Params {
	var maxDepth any
	if rf.maxDepth > 0 {
		maxDepth = rf.maxDepth
	}
	return model.Params{
		"criterion":             rf.criterion,
		"max_depth":             maxDepth,
		"min_samples_split":     rf.minSamplesSplit,
		"min_samples_leaf":      rf.minSamplesLeaf,
		"max_features":          rf.maxFeatures,
		"min_impurity_decrease": rf.minImpurityDecrease,
		"random_state":          int(seed),
	}
}

// Fit は木ごとにブートストラップ標本を重みとして与え、並列に学習する。
// 各木の乱数シードはフォレストの乱数から順に引くため、random_stateが同じなら
// 並列数に関係なく同じフォレストになる
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "RandomForestClassifier.Fit")

	labels, err := model.CheckXy("RandomForestClassifier.Fit", X, y)
	if err != nil {
		return err
	}
	if rf.nEstimators < 1 {
		return errors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}
	nSamples, nFeatures := X.Dims()

	seed := uint64(time.Now().UnixNano())
	if rf.randomState != nil {
		seed = uint64(*rf.randomState)
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	weights := make([][]float64, rf.nEstimators)
	for i := range trees {
		treeSeed := rng.Int64N(1 << 31)
		trees[i] = tree.NewDecisionTreeClassifier()
		if err := trees[i].SetParams(rf.treeParams(treeSeed)); err != nil {
			return err
		}
		if rf.bootstrap {
			w := make([]float64, nSamples)
			for j := 0; j < nSamples; j++ {
				w[rng.IntN(nSamples)]++
			}
			weights[i] = w
		}
	}

	errs := make([]error, rf.nEstimators)
	parallel.Parallelize(rf.nEstimators, rf.nJobs, func(start, end int) {
		for i := start; i < end; i++ {
			errs[i] = trees[i].FitWeighted(X, y, weights[i])
		}
	})
	for i, e := range errs {
		if e != nil {
			return errors.Wrapf(e, "RandomForestClassifier: tree %d", i)
		}
	}

	rf.estimators_ = trees
	rf.classes_ = model.UniqueSorted(labels)
	rf.state.SetFitted(nFeatures, nSamples)

	rf.logger.Debug("Forest fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		"forest.n_estimators", rf.nEstimators,
	)
	return nil
}

// PredictProba は全ての木のクラス確率の平均を返す
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	if err := rf.state.RequirePredictable(rf.Name(), X); err != nil {
		return nil, err
	}
	rows, _ := X.Dims()
	proba := mat.NewDense(rows, len(rf.classes_), nil)
	for _, t := range rf.estimators_ {
		p, err := t.PredictProba(X)
		if err != nil {
			return nil, err
		}
		proba.Add(proba, p)
	}
	proba.Scale(1/float64(len(rf.estimators_)), proba)
	return proba, nil
}

// Predict は平均確率が最大のクラスを返す
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	rows, _ := proba.Dims()
	pred := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred.Set(i, 0, rf.classes_[model.ArgMax(mat.Row(nil, i, proba))])
	}
	return pred, nil
}

// Classes は学習時のクラスを昇順で返す
func (rf *RandomForestClassifier) Classes() []float64 {
	return rf.classes_
}

// Estimators は学習済みの決定木を返す
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.estimators_
}

// FeatureImportances は各木の特徴量重要度の平均を返す
func (rf *RandomForestClassifier) FeatureImportances() []float64 {
	if len(rf.estimators_) == 0 {
		return nil
	}
	out := make([]float64, len(rf.estimators_[0].GetFeatureImportances()))
	for _, t := range rf.estimators_ {
		for j, v := range t.GetFeatureImportances() {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(rf.estimators_))
	}
	return out
}

func (rf *RandomForestClassifier) String() string {
	return fmt.Sprintf("RandomForestClassifier(%s)", rf.GetParams())
}
