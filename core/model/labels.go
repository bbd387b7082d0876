package model

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// CheckXy はXとyの形状を検証し、yを[]float64として返す
func CheckXy(op string, X, y mat.Matrix) ([]float64, error) {
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return nil, errors.Wrap(errors.ErrEmptyData, op)
	}
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return nil, errors.NewDimensionError(op, 1, yCols, 1)
	}
	if yRows != nSamples {
		return nil, errors.NewDimensionError(op, nSamples, yRows, 0)
	}
	labels := make([]float64, yRows)
	for i := range labels {
		labels[i] = y.At(i, 0)
	}
	return labels, nil
}

// UniqueSorted は重複を除いた値を昇順で返す
func UniqueSorted(values []float64) []float64 {
	seen := make(map[float64]struct{}, len(values))
	out := make([]float64, 0)
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

// ClassIndex はクラス番号から列インデックスへの対応表を作る
func ClassIndex(classes []float64) map[float64]int {
	idx := make(map[float64]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	return idx
}

// ArgMax は最大値の最初のインデックスを返す（同値の場合は小さいクラスが優先）
func ArgMax(values []float64) int {
	best := 0
	for i := 1; i < len(values); i++ {
		if values[i] > values[best] {
			best = i
		}
	}
	return best
}
