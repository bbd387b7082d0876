package dataset

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// LabelEncoder maps string labels to the codes 0..n-1 in sorted label order.
type LabelEncoder struct {
	classes []string
	index   map[string]int
}

// NewLabelEncoder returns an encoder over the given classes. Duplicates are
// removed and the classes are sorted.
func NewLabelEncoder(classes []string) *LabelEncoder {
	e := &LabelEncoder{classes: uniqueStrings(classes)}
	e.index = make(map[string]int, len(e.classes))
	for i, c := range e.classes {
		e.index[c] = i
	}
	return e
}

// Classes returns the encoded labels; the code of Classes()[i] is i.
func (e *LabelEncoder) Classes() []string {
	return e.classes
}

// Transform encodes labels as an n×1 column vector.
func (e *LabelEncoder) Transform(labels []string) (*mat.Dense, error) {
	if len(labels) == 0 {
		return nil, errors.WithStack(errors.ErrEmptyData)
	}
	y := mat.NewDense(len(labels), 1, nil)
	for i, l := range labels {
		code, ok := e.index[l]
		if !ok {
			return nil, errors.NewValueError("LabelEncoder.Transform", fmt.Sprintf("y contains previously unseen label %q", l))
		}
		y.Set(i, 0, float64(code))
	}
	return y, nil
}

// InverseTransform decodes label codes.
func (e *LabelEncoder) InverseTransform(codes []float64) ([]string, error) {
	out := make([]string, len(codes))
	for i, c := range codes {
		k := int(c)
		if float64(k) != c || k < 0 || k >= len(e.classes) {
			return nil, errors.NewValueError("LabelEncoder.InverseTransform", fmt.Sprintf("unknown label code %v", c))
		}
		out[i] = e.classes[k]
	}
	return out, nil
}

// Names returns the class names of the given codes in the same order.
func (e *LabelEncoder) Names(codes []float64) []string {
	names, err := e.InverseTransform(codes)
	if err != nil {
		return nil
	}
	return names
}

// Codes returns the codes of the given classes, sorted.
func (e *LabelEncoder) Codes(classes []string) []float64 {
	out := make([]float64, 0, len(classes))
	for _, c := range classes {
		if code, ok := e.index[c]; ok {
			out = append(out, float64(code))
		}
	}
	sort.Float64s(out)
	return out
}
