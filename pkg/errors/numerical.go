package errors

import (
	"fmt"
	"math"
)

// NonFiniteError は特徴量行列にNaNまたはInfが含まれる場合のエラーです。
type NonFiniteError struct {
	Operation string
	Row       int
	Col       int
	Value     float64
}

func (e *NonFiniteError) Error() string {
	return fmt.Sprintf("decisionlab: %s: input contains non-finite value %v at (%d, %d)",
		e.Operation, e.Value, e.Row, e.Col)
}

// CheckMatrix は行列の全ての値が有限であることを確認します。
// 最初に見つかった非有限値の位置をエラーとして返します。
func CheckMatrix(operation string, matrix interface {
	At(int, int) float64
	Dims() (int, int)
}) error {
	rows, cols := matrix.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := matrix.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return WithStack(&NonFiniteError{Operation: operation, Row: i, Col: j, Value: v})
			}
		}
	}
	return nil
}

// SafeDivide はゼロ除算を避けて除算します。
// 分母が0の場合はfallbackを返し、divisionByZeroにtrueを返します。
func SafeDivide(numerator, denominator, fallback float64) (result float64, divisionByZero bool) {
	if denominator == 0 {
		return fallback, true
	}
	return numerator / denominator, false
}
