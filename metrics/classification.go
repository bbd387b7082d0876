package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

func checkPair(op string, yTrue, yPred mat.Vector) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, errors.NewValueError(op, "nil vector")
	}
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError(op, "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred mat.Vector) (float64, error) {
	n, err := checkPair("Accuracy", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

// AccuracyMatrix は列ベクトル（n×1行列）同士の正解率を計算する
func AccuracyMatrix(yTrue, yPred mat.Matrix) (float64, error) {
	t, err := columnVector("AccuracyMatrix", yTrue)
	if err != nil {
		return 0, err
	}
	p, err := columnVector("AccuracyMatrix", yPred)
	if err != nil {
		return 0, err
	}
	return Accuracy(t, p)
}

func columnVector(op string, m mat.Matrix) (mat.Vector, error) {
	if m == nil {
		return nil, errors.NewValueError(op, "nil matrix")
	}
	if v, ok := m.(mat.Vector); ok {
		return v, nil
	}
	r, c := m.Dims()
	if c != 1 {
		return nil, errors.NewValueError(op, "must be a column vector (n×1 matrix)")
	}
	return mat.NewVecDense(r, mat.Col(nil, 0, m)), nil
}

// UniqueLabels はyTrueとyPredに現れるラベルの和集合を昇順で返す
func UniqueLabels(yTrue, yPred mat.Vector) []float64 {
	all := make([]float64, 0, yTrue.Len()+yPred.Len())
	for i := 0; i < yTrue.Len(); i++ {
		all = append(all, yTrue.AtVec(i))
	}
	for i := 0; i < yPred.Len(); i++ {
		all = append(all, yPred.AtVec(i))
	}
	return model.UniqueSorted(all)
}

// ConfusionMatrix は混同行列を計算する。行が正解ラベル、列が予測ラベル。
// labelsがnilの場合はUniqueLabelsを使う。labelsに含まれないサンプルは無視される
func ConfusionMatrix(yTrue, yPred mat.Vector, labels []float64) (*mat.Dense, error) {
	n, err := checkPair("ConfusionMatrix", yTrue, yPred)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = UniqueLabels(yTrue, yPred)
	}
	if len(labels) == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "'labels' should contain at least one label")
	}
	index := model.ClassIndex(labels)
	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		ti, okT := index[yTrue.AtVec(i)]
		pi, okP := index[yPred.AtVec(i)]
		if !okT || !okP {
			continue
		}
		cm.Set(ti, pi, cm.At(ti, pi)+1)
	}
	return cm, nil
}

// ClassScores は1クラス（または平均）の指標
type ClassScores struct {
	Precision float64 `json:"precision" yaml:"precision" msgpack:"precision"`
	Recall    float64 `json:"recall" yaml:"recall" msgpack:"recall"`
	F1        float64 `json:"f1-score" yaml:"f1-score" msgpack:"f1-score"`
	Support   int     `json:"support" yaml:"support" msgpack:"support"`
}

// PrecisionRecallFSupport はラベルごとの適合率・再現率・F1・サポートを計算する。
// 分母が0になる指標は0とし、UndefinedMetricWarningを発生させる
func PrecisionRecallFSupport(yTrue, yPred mat.Vector, labels []float64) ([]ClassScores, error) {
	cm, err := ConfusionMatrix(yTrue, yPred, labels)
	if err != nil {
		return nil, err
	}
	if labels == nil {
		labels = UniqueLabels(yTrue, yPred)
	}

	k, _ := cm.Dims()
	scores := make([]ClassScores, k)
	var noPred, noTrue []string
	for j := 0; j < k; j++ {
		tp := cm.At(j, j)
		trueSum := mat.Sum(cm.RowView(j))
		predSum := mat.Sum(cm.ColView(j))

		precision, zp := errors.SafeDivide(tp, predSum, 0)
		recall, zr := errors.SafeDivide(tp, trueSum, 0)
		if zp {
			noPred = append(noPred, formatLabel(labels[j]))
		}
		if zr {
			noTrue = append(noTrue, formatLabel(labels[j]))
		}
		f1 := 0.0
		if precision+recall > 0 {
			f1 = 2 * precision * recall / (precision + recall)
		}
		scores[j] = ClassScores{Precision: precision, Recall: recall, F1: f1, Support: int(trueSum)}
	}

	if len(noPred) > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("precision",
			fmt.Sprintf("no predicted samples for labels %v", noPred), 0))
	}
	if len(noTrue) > 0 {
		errors.Warn(errors.NewUndefinedMetricWarning("recall",
			fmt.Sprintf("no true samples for labels %v", noTrue), 0))
	}
	return scores, nil
}

func formatLabel(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int(v))
	}
	return fmt.Sprint(v)
}

// MacroAverage はクラス間の単純平均を返す（クラスの不均衡を考慮しない）
func MacroAverage(scores []ClassScores) ClassScores {
	avg := ClassScores{}
	if len(scores) == 0 {
		return avg
	}
	for _, s := range scores {
		avg.Precision += s.Precision
		avg.Recall += s.Recall
		avg.F1 += s.F1
		avg.Support += s.Support
	}
	n := float64(len(scores))
	avg.Precision /= n
	avg.Recall /= n
	avg.F1 /= n
	return avg
}

// WeightedAverage はサポート（正解ラベルの件数）で重み付けした平均を返す
func WeightedAverage(scores []ClassScores) ClassScores {
	avg := ClassScores{}
	for _, s := range scores {
		w := float64(s.Support)
		avg.Precision += s.Precision * w
		avg.Recall += s.Recall * w
		avg.F1 += s.F1 * w
		avg.Support += s.Support
	}
	if avg.Support == 0 {
		return ClassScores{}
	}
	total := float64(avg.Support)
	avg.Precision /= total
	avg.Recall /= total
	avg.F1 /= total
	return avg
}
