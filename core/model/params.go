package model

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// Params はハイパーパラメータの集合。値はint, float64, string, bool, nilのいずれか
type Params map[string]any

// Keys はキーを昇順で返す
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Copy は浅いコピーを返す
func (p Params) Copy() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String は "a=1, b=None" の形式で表現する
func (p Params) String() string {
	parts := make([]string, 0, len(p))
	for _, k := range p.Keys() {
		parts = append(parts, k+"="+FormatParam(p[k]))
	}
	return strings.Join(parts, ", ")
}

// FormatParam はパラメータ値を表示用の文字列に変換する。nilは"None"
func FormatParam(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatFloat(x, 'f', 1, 64)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		if x {
			return "True"
		}
		return "False"
	default:
		return fmt.Sprint(x)
	}
}

// ParamEqual は2つのパラメータ値が等しいかを判定する。
// 数値は型に関係なく値で比較し（5 == 5.0）、nilはnilとのみ等しい
func ParamEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	if aNum != bNum {
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// ParamNumeric はパラメータ値をfloat64として返す
func ParamNumeric(v any) (float64, bool) {
	return toFloat(v)
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case float32:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// ParamInt はパラメータ値を整数に変換する
func ParamInt(name string, v any) (int, error) {
	f, ok := toFloat(v)
	if !ok {
		if s, isStr := v.(string); isStr {
			if n, err := strconv.Atoi(s); err == nil {
				return n, nil
			}
		}
		return 0, errors.NewValidationError(name, "must be an integer", v)
	}
	if f != math.Trunc(f) {
		return 0, errors.NewValidationError(name, "must be an integer", v)
	}
	return int(f), nil
}

// ParamOptionalInt は整数またはnil（上限なし）を受け付ける。nilの場合は0を返す
func ParamOptionalInt(name string, v any) (int, error) {
	if v == nil {
		return 0, nil
	}
	if s, ok := v.(string); ok && (s == "None" || s == "null") {
		return 0, nil
	}
	n, err := ParamInt(name, v)
	if err != nil {
		return 0, err
	}
	if n < 1 {
		return 0, errors.NewValidationError(name, "must be >= 1 or None", v)
	}
	return n, nil
}

// ParamFloat はパラメータ値をfloat64に変換する
func ParamFloat(name string, v any) (float64, error) {
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	if s, ok := v.(string); ok {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	}
	return 0, errors.NewValidationError(name, "must be a number", v)
}

// ParamString はパラメータ値を文字列として取り出し、allowedに含まれるかを検証する
func ParamString(name string, v any, allowed ...string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.NewValidationError(name, "must be a string", v)
	}
	if len(allowed) == 0 {
		return s, nil
	}
	for _, a := range allowed {
		if s == a {
			return s, nil
		}
	}
	return "", errors.NewValidationError(name, "must be one of "+strings.Join(allowed, ", "), v)
}

// ParamBool はパラメータ値をboolに変換する
func ParamBool(name string, v any) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err == nil {
			return b, nil
		}
	}
	return false, errors.NewValidationError(name, "must be a boolean", v)
}

// UnknownParam はSetParamsに未知のキーが渡された場合のエラーを返す
func UnknownParam(estimator, name string, v any) error {
	return errors.NewValidationError(name, "invalid parameter for estimator "+estimator, v)
}
