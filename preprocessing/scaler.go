// Package preprocessing は推定器の前段に置く特徴量スケーラーを提供します。
package preprocessing

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// zeroScale 未満の標準偏差（範囲）は定数列とみなし、スケールを1にする
const zeroScale = 1e-8

// StandardScaler はscikit-learn互換の標準化スケーラー
// データを平均0、標準偏差1に変換する
type StandardScaler struct {
	state *model.StateManager

	withMean bool // 平均を引くかどうか (デフォルト: true)
	withStd  bool // 標準偏差で割るかどうか (デフォルト: true)

	mean_  []float64 // 各特徴量の平均値
	scale_ []float64 // 各特徴量の標準偏差
}

// StandardScalerOption はStandardScalerの設定オプション
type StandardScalerOption func(*StandardScaler)

// WithMean は平均を引くかどうかを設定する
func WithMean(b bool) StandardScalerOption {
	return func(s *StandardScaler) { s.withMean = b }
}

// WithStd は標準偏差で割るかどうかを設定する
func WithStd(b bool) StandardScalerOption {
	return func(s *StandardScaler) { s.withStd = b }
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler()
//	XScaled, err := scaler.FitTransform(X)
func NewStandardScaler(opts ...StandardScalerOption) *StandardScaler {
	s := &StandardScaler{
		state:    model.NewStateManager(),
		withMean: true,
		withStd:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name は前処理器の型名を返す
func (s *StandardScaler) Name() string { return "StandardScaler" }

// GetParams はパラメータを返す
func (s *StandardScaler) GetParams() model.Params {
	return model.Params{
		"with_mean": s.withMean,
		"with_std":  s.withStd,
	}
}

// SetParams はパラメータを設定する
func (s *StandardScaler) SetParams(params model.Params) error {
	for name, v := range params {
		b, err := model.ParamBool(name, v)
		if err != nil {
			return err
		}
		switch name {
		case "with_mean":
			s.withMean = b
		case "with_std":
			s.withStd = b
		default:
			return model.UnknownParam(s.Name(), name, v)
		}
	}
	s.state.Reset()
	return nil
}

// Clone は同じパラメータを持つ未学習のインスタンスを返す
func (s *StandardScaler) Clone() model.Transformer {
	return NewStandardScaler(WithMean(s.withMean), WithStd(s.withStd))
}

// Fit は訓練データから各特徴量の平均と標準偏差（母標準偏差）を計算する
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("StandardScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	mean := make([]float64, c)
	scale := make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m, std := stat.PopMeanStdDev(col, nil)
		if s.withMean {
			mean[j] = m
		}
		scale[j] = 1
		if s.withStd && std >= zeroScale {
			scale[j] = std
		}
	}
	s.mean_ = mean
	s.scale_ = scale
	s.state.SetFitted(c, r)
	return nil
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequirePredictable(s.Name(), X); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(X)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - s.mean_[j]) / s.scale_[j]
	}, out)
	return out, nil
}

// FitTransform は学習と変換を続けて行う
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.state.RequirePredictable(s.Name(), X); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(X)
	out.Apply(func(_, j int, v float64) float64 {
		return v*s.scale_[j] + s.mean_[j]
	}, out)
	return out, nil
}

// Mean は各特徴量の平均値を返す（with_mean=falseの場合は0）
func (s *StandardScaler) Mean() []float64 { return s.mean_ }

// Scale は各特徴量のスケールを返す
func (s *StandardScaler) Scale() []float64 { return s.scale_ }

func (s *StandardScaler) String() string {
	return fmt.Sprintf("StandardScaler(%s)", s.GetParams())
}

// MinMaxScaler はscikit-learn互換のMin-Maxスケーラー
// 各特徴量をfeature_rangeの範囲に線形変換する
type MinMaxScaler struct {
	state *model.StateManager

	featureRange [2]float64

	dataMin_ []float64
	dataMax_ []float64
	scale_   []float64
	min_     []float64
}

// NewMinMaxScaler は新しいMinMaxScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewMinMaxScaler([2]float64{0, 1})
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		state:        model.NewStateManager(),
		featureRange: featureRange,
	}
}

// Name は前処理器の型名を返す
func (m *MinMaxScaler) Name() string { return "MinMaxScaler" }

// GetParams はパラメータを返す
func (m *MinMaxScaler) GetParams() model.Params {
	return model.Params{"feature_range": []float64{m.featureRange[0], m.featureRange[1]}}
}

// SetParams はパラメータを設定する。feature_rangeは2要素のリスト
func (m *MinMaxScaler) SetParams(params model.Params) error {
	for name, v := range params {
		if name != "feature_range" {
			return model.UnknownParam(m.Name(), name, v)
		}
		var values []any
		switch x := v.(type) {
		case []float64:
			for _, f := range x {
				values = append(values, f)
			}
		case []any:
			values = x
		}
		if len(values) != 2 {
			return errors.NewValidationError(name, "must be a pair of numbers", v)
		}
		for i, e := range values {
			f, err := model.ParamFloat(name, e)
			if err != nil {
				return err
			}
			m.featureRange[i] = f
		}
	}
	m.state.Reset()
	return nil
}

// Clone は同じパラメータを持つ未学習のインスタンスを返す
func (m *MinMaxScaler) Clone() model.Transformer {
	return NewMinMaxScaler(m.featureRange)
}

// Fit は各特徴量の最小値と最大値を計算する
func (m *MinMaxScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewModelError("MinMaxScaler.Fit", "empty data", errors.ErrEmptyData)
	}
	lo, hi := m.featureRange[0], m.featureRange[1]
	if lo >= hi {
		return errors.NewValidationError("feature_range", "minimum must be smaller than maximum", m.featureRange)
	}
	m.dataMin_ = make([]float64, c)
	m.dataMax_ = make([]float64, c)
	m.scale_ = make([]float64, c)
	m.min_ = make([]float64, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m.dataMin_[j] = floats.Min(col)
		m.dataMax_[j] = floats.Max(col)
		span := m.dataMax_[j] - m.dataMin_[j]
		if math.Abs(span) < zeroScale {
			span = 1
		}
		m.scale_[j] = (hi - lo) / span
		m.min_[j] = lo - m.dataMin_[j]*m.scale_[j]
	}
	m.state.SetFitted(c, r)
	return nil
}

// Transform はデータをfeature_rangeに変換する
func (m *MinMaxScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequirePredictable(m.Name(), X); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(X)
	out.Apply(func(_, j int, v float64) float64 {
		return v*m.scale_[j] + m.min_[j]
	}, out)
	return out, nil
}

// FitTransform は学習と変換を続けて行う
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// InverseTransform は変換済みのデータを元のスケールに戻す
func (m *MinMaxScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := m.state.RequirePredictable(m.Name(), X); err != nil {
		return nil, err
	}
	out := mat.DenseCopyOf(X)
	out.Apply(func(_, j int, v float64) float64 {
		return (v - m.min_[j]) / m.scale_[j]
	}, out)
	return out, nil
}

// DataMin は学習時の各特徴量の最小値を返す
func (m *MinMaxScaler) DataMin() []float64 { return m.dataMin_ }

// DataMax は学習時の各特徴量の最大値を返す
func (m *MinMaxScaler) DataMax() []float64 { return m.dataMax_ }

func (m *MinMaxScaler) String() string {
	return fmt.Sprintf("MinMaxScaler(feature_range=[%g, %g])", m.featureRange[0], m.featureRange[1])
}
