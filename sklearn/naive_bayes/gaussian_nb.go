// Package naive_bayes はナイーブベイズ分類器を提供します。
package naive_bayes

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// GaussianNB は特徴量がクラスごとに正規分布に従うと仮定するナイーブベイズ分類器
// scikit-learnのGaussianNBと互換性を持つ
type GaussianNB struct {
	state *model.StateManager

	// ハイパーパラメータ
	varSmoothing float64   // 最大分散に対する分散の下駄の比率
	priors       []float64 // クラスの事前確率（nilの場合はデータから推定）

	// 学習パラメータ
	classes_     []float64   // クラスラベル（昇順）
	classCount_  []float64   // クラスごとのサンプル数
	classPrior_  []float64   // クラスの事前確率
	theta_       [][]float64 // クラスごとの平均（nClasses x nFeatures）
	var_         [][]float64 // クラスごとの分散（nClasses x nFeatures）
	epsilon_     float64     // 分散に加えた値
	nSamplesSeen int

	logger log.Logger
}

// Option はGaussianNBの設定オプション
type Option func(*GaussianNB)

// WithVarSmoothing は分散の平滑化係数を設定する
func WithVarSmoothing(v float64) Option {
	return func(nb *GaussianNB) { nb.varSmoothing = v }
}

// WithPriors はクラスの事前確率を固定する
func WithPriors(priors []float64) Option {
	return func(nb *GaussianNB) { nb.priors = priors }
}

// NewGaussianNB は新しいGaussianNBを作成する
func NewGaussianNB(opts ...Option) *GaussianNB {
	nb := &GaussianNB{
		state:        model.NewStateManager(),
		varSmoothing: 1e-9,
	}
	for _, opt := range opts {
		opt(nb)
	}
	nb.logger = log.GetLoggerWithName("GaussianNB")
	return nb
}

// Name は推定器の型名を返す
func (nb *GaussianNB) Name() string {
	return "GaussianNB"
}

// GetParams はハイパーパラメータを返す
func (nb *GaussianNB) GetParams() model.Params {
	var priors any
	if nb.priors != nil {
		priors = append([]float64(nil), nb.priors...)
	}
	return model.Params{
		"var_smoothing": nb.varSmoothing,
		"priors":        priors,
	}
}

// SetParams はハイパーパラメータを設定する
func (nb *GaussianNB) SetParams(params model.Params) error {
	for name, v := range params {
		switch name {
		case "var_smoothing":
			f, err := model.ParamFloat(name, v)
			if err != nil {
				return err
			}
			nb.varSmoothing = f
		case "priors":
			priors, err := toFloatSlice(name, v)
			if err != nil {
				return err
			}
			nb.priors = priors
		default:
			return model.UnknownParam(nb.Name(), name, v)
		}
	}
	nb.state.Reset()
	return nil
}

func toFloatSlice(name string, v any) ([]float64, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []float64:
		return append([]float64(nil), x...), nil
	case []any:
		out := make([]float64, len(x))
		for i, e := range x {
			f, err := model.ParamFloat(name, e)
			if err != nil {
				return nil, err
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, errors.NewValidationError(name, "must be a list of numbers or None", v)
	}
}

// Clone は同じハイパーパラメータを持つ未学習のインスタンスを返す
func (nb *GaussianNB) Clone() model.Estimator {
	clone := NewGaussianNB(WithVarSmoothing(nb.varSmoothing))
	if nb.priors != nil {
		clone.priors = append([]float64(nil), nb.priors...)
	}
	return clone
}

// Fit はクラスごとの平均と分散を推定する
func (nb *GaussianNB) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GaussianNB.Fit")

	labels, err := model.CheckXy("GaussianNB.Fit", X, y)
	if err != nil {
		return err
	}
	if err := errors.CheckMatrix("GaussianNB.Fit", X); err != nil {
		return err
	}
	if nb.varSmoothing < 0 {
		return errors.NewValidationError("var_smoothing", "must be >= 0", nb.varSmoothing)
	}
	nSamples, nFeatures := X.Dims()
	classes := model.UniqueSorted(labels)
	index := model.ClassIndex(classes)
	nClasses := len(classes)

	// 全体の分散の最大値から平滑化量を決める
	maxVar := 0.0
	col := make([]float64, nSamples)
	for j := 0; j < nFeatures; j++ {
		mat.Col(col, j, X)
		if v := popVariance(col); v > maxVar {
			maxVar = v
		}
	}
	epsilon := nb.varSmoothing * maxVar

	count := make([]float64, nClasses)
	theta := make([][]float64, nClasses)
	variance := make([][]float64, nClasses)
	for k := range theta {
		theta[k] = make([]float64, nFeatures)
		variance[k] = make([]float64, nFeatures)
	}
	for i := 0; i < nSamples; i++ {
		k := index[labels[i]]
		count[k]++
		for j := 0; j < nFeatures; j++ {
			theta[k][j] += X.At(i, j)
		}
	}
	for k := range theta {
		floats.Scale(1/count[k], theta[k])
	}
	for i := 0; i < nSamples; i++ {
		k := index[labels[i]]
		for j := 0; j < nFeatures; j++ {
			d := X.At(i, j) - theta[k][j]
			variance[k][j] += d * d
		}
	}
	for k := range variance {
		for j := range variance[k] {
			variance[k][j] = variance[k][j]/count[k] + epsilon
		}
	}

	prior := make([]float64, nClasses)
	if nb.priors != nil {
		if len(nb.priors) != nClasses {
			return errors.NewValueError("GaussianNB.Fit", "number of priors must match number of classes")
		}
		if math.Abs(floats.Sum(nb.priors)-1) > 1e-8 {
			return errors.NewValueError("GaussianNB.Fit", "the sum of the priors should be 1")
		}
		for _, p := range nb.priors {
			if p < 0 {
				return errors.NewValueError("GaussianNB.Fit", "priors must be non-negative")
			}
		}
		copy(prior, nb.priors)
	} else {
		for k := range prior {
			prior[k] = count[k] / float64(nSamples)
		}
	}

	nb.classes_ = classes
	nb.classCount_ = count
	nb.classPrior_ = prior
	nb.theta_ = theta
	nb.var_ = variance
	nb.epsilon_ = epsilon
	nb.nSamplesSeen = nSamples
	nb.state.SetFitted(nFeatures, nSamples)

	nb.logger.Debug("GaussianNB fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ClassesKey, nClasses,
	)
	return nil
}

func popVariance(x []float64) float64 {
	mean := floats.Sum(x) / float64(len(x))
	s := 0.0
	for _, v := range x {
		d := v - mean
		s += d * d
	}
	return s / float64(len(x))
}

// jointLogLikelihood は各クラスの log P(c) + log P(x|c) を計算する
func (nb *GaussianNB) jointLogLikelihood(X mat.Matrix) *mat.Dense {
	rows, cols := X.Dims()
	jll := mat.NewDense(rows, len(nb.classes_), nil)
	for k := range nb.classes_ {
		base := math.Log(nb.classPrior_[k])
		for j := 0; j < cols; j++ {
			base -= 0.5 * math.Log(2*math.Pi*nb.var_[k][j])
		}
		for i := 0; i < rows; i++ {
			s := 0.0
			for j := 0; j < cols; j++ {
				d := X.At(i, j) - nb.theta_[k][j]
				s += d * d / nb.var_[k][j]
			}
			jll.Set(i, k, base-0.5*s)
		}
	}
	return jll
}

// PredictLogProba は対数事後確率を返す
func (nb *GaussianNB) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.state.RequirePredictable(nb.Name(), X); err != nil {
		return nil, err
	}
	jll := nb.jointLogLikelihood(X)
	rows, _ := jll.Dims()
	for i := 0; i < rows; i++ {
		row := jll.RawRowView(i)
		lse := floats.LogSumExp(row)
		for k := range row {
			row[k] -= lse
		}
	}
	return jll, nil
}

// PredictProba は事後確率を返す。列の順序はClasses()と同じ
func (nb *GaussianNB) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	logProba, err := nb.PredictLogProba(X)
	if err != nil {
		return nil, err
	}
	proba := mat.DenseCopyOf(logProba)
	proba.Apply(func(_, _ int, v float64) float64 { return math.Exp(v) }, proba)
	return proba, nil
}

// Predict は事後確率が最大のクラスを返す
func (nb *GaussianNB) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := nb.state.RequirePredictable(nb.Name(), X); err != nil {
		return nil, err
	}
	jll := nb.jointLogLikelihood(X)
	rows, _ := jll.Dims()
	pred := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		pred.Set(i, 0, nb.classes_[model.ArgMax(jll.RawRowView(i))])
	}
	return pred, nil
}

// Score は正解率を返す
func (nb *GaussianNB) Score(X, y mat.Matrix) (float64, error) {
	pred, err := nb.Predict(X)
	if err != nil {
		return 0, err
	}
	rows, _ := y.Dims()
	correct := 0
	for i := 0; i < rows; i++ {
		if pred.At(i, 0) == y.At(i, 0) {
			correct++
		}
	}
	return float64(correct) / float64(rows), nil
}

// Classes は学習時のクラスを昇順で返す
func (nb *GaussianNB) Classes() []float64 {
	return nb.classes_
}

// NSamplesSeen は学習に使ったサンプル数を返す
func (nb *GaussianNB) NSamplesSeen() int {
	return nb.nSamplesSeen
}

// Theta はクラスごとの平均を返す
func (nb *GaussianNB) Theta() [][]float64 {
	return nb.theta_
}

// Var はクラスごとの分散（平滑化済み）を返す
func (nb *GaussianNB) Var() [][]float64 {
	return nb.var_
}

func (nb *GaussianNB) String() string {
	return fmt.Sprintf("GaussianNB(%s)", nb.GetParams())
}
