// Package model は推定器の共通インターフェースと状態管理を提供します。
package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる。yはクラス番号の列ベクトル
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
type Predictor interface {
	// Predict は入力データに対するクラス番号を列ベクトルで返す
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Classifier は分類器の基本インターフェース
type Classifier interface {
	Fitter
	Predictor
}

// ProbabilisticClassifier はクラス確率を返せる分類器
type ProbabilisticClassifier interface {
	Classifier

	// PredictProba は各クラスの確率を返す。列の順序はClasses()と同じ
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// Classes は学習時に観測したクラス番号を昇順で返す
	Classes() []float64
}

// Estimator は交差検証やグリッドサーチで扱える分類器
//
// Cloneは同じハイパーパラメータを持つ未学習のインスタンスを返す。
// GetParamsのキーはscikit-learnと同じ名前（max_depth, n_estimatorsなど）を使う。
type Estimator interface {
	Classifier

	// Name は推定器の型名を返す（例: "DecisionTreeClassifier"）
	Name() string

	// GetParams はハイパーパラメータを返す
	GetParams() Params

	// SetParams はハイパーパラメータを設定する。未知のキーはValidationErrorになる
	SetParams(params Params) error

	// Clone は同じハイパーパラメータで未学習の新しいインスタンスを作成する
	Clone() Estimator
}

// Transformer は推定器の前段で特徴量を変換する前処理器
type Transformer interface {
	// Fit は変換に必要な統計量を学習する
	Fit(X mat.Matrix) error

	// Transform は学習済みの統計量でXを変換した新しい行列を返す
	Transform(X mat.Matrix) (mat.Matrix, error)

	// Name は前処理器の型名を返す（例: "StandardScaler"）
	Name() string

	GetParams() Params
	SetParams(params Params) error

	// Clone は同じパラメータで未学習の新しいインスタンスを作成する
	Clone() Transformer
}
