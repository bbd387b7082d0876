package metrics

import "math"

// MajorityClassPercentage は最頻ラベルの割合（常に最頻クラスを予測した場合の正解率）を返す。
// 空の場合はNaN
func MajorityClassPercentage[T comparable](labels []T) float64 {
	if len(labels) == 0 {
		return math.NaN()
	}
	counts := make(map[T]int, 8)
	best := 0
	for _, l := range labels {
		counts[l]++
		if counts[l] > best {
			best = counts[l]
		}
	}
	return float64(best) / float64(len(labels))
}

// NormalizedImprovement はベースラインに対する正解率の改善を、残りの改善余地で正規化する。
// accuracyがbaselineを上回る場合は (acc-b)/(1-b)、それ以外は (acc-b)/b
func NormalizedImprovement(accuracy, baseline float64) float64 {
	if accuracy > baseline {
		return (accuracy - baseline) / (1 - baseline)
	}
	return (accuracy - baseline) / baseline
}

// Round はdigits桁に丸める（偶数丸め）。NaNはそのまま返す
func Round(x float64, digits int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(digits))
	return math.RoundToEven(x*p) / p
}
