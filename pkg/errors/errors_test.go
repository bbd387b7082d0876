package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "invalid input",
			err:     fmt.Errorf("test error"),
			wantMsg: "decisionlab: Fit: invalid input: test error",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "not fitted",
			err:     nil,
			wantMsg: "decisionlab: Predict: not fitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
		})
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("Predict", 10, 8, 1)

	want := "decisionlab: Predict: dimension mismatch on axis 1 (features). Expected 10, got 8"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewNotFittedError(t *testing.T) {
	err := NewNotFittedError("DecisionTreeClassifier", "Predict")

	want := "decisionlab: DecisionTreeClassifier: this model is not fitted yet. Call Fit() before using Predict()"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}

	var notFittedErr *NotFittedError
	if !As(err, &notFittedErr) {
		t.Error("Error should be castable to *NotFittedError")
	}
}

func TestNewDataError(t *testing.T) {
	tests := []struct {
		name    string
		row     int
		column  string
		wantMsg string
	}{
		{"row and column", 4, "chunkAbsSize", `decisionlab: p.csv: row 4, column "chunkAbsSize": bad`},
		{"column only", 0, "developerdecision", `decisionlab: p.csv: column "developerdecision": bad`},
		{"path only", 0, "", `decisionlab: p.csv: bad`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := New("bad")
			err := NewDataError("p.csv", tt.row, tt.column, base)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
			if !Is(err, base) {
				t.Error("DataError should unwrap to the underlying error")
			}
		})
	}
}

func TestUndefinedMetricWarning(t *testing.T) {
	w := NewUndefinedMetricWarning("precision", "no predicted samples for label 'Manual'", 0)

	want := "'precision' is ill-defined and being set to 0.0 due to no predicted samples for label 'Manual'."
	if w.Error() != want {
		t.Errorf("Error() = %v, want %v", w.Error(), want)
	}
}

func TestWarnUsesHandler(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(error) {})

	Warn(NewSplitWarning("StratifiedKFold", 10, 3))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "n_splits=10") {
		t.Errorf("unexpected warning text %q", got[0].Error())
	}
}

func TestWarnPrefersZerologFunc(t *testing.T) {
	var handled, zerologged int
	SetWarningHandler(func(error) { handled++ })
	SetZerologWarnFunc(func(error) { zerologged++ })
	defer func() {
		SetZerologWarnFunc(nil)
		SetWarningHandler(func(error) {})
	}()

	Warn(NewUndefinedMetricWarning("recall", "no true samples", 0))

	if handled != 0 || zerologged != 1 {
		t.Errorf("handled=%d zerologged=%d, want 0 and 1", handled, zerologged)
	}
}

func TestWrapAndIs(t *testing.T) {
	wrapped := Wrap(ErrUnknownEstimator, "in registry.New")

	if !Is(wrapped, ErrUnknownEstimator) {
		t.Error("Expected Is(wrapped, ErrUnknownEstimator) to be true")
	}
	if !strings.Contains(wrapped.Error(), "in registry.New") {
		t.Error("Expected wrapped error to contain wrapping message")
	}
}

func TestWrapf(t *testing.T) {
	wrapped := Wrapf(ErrEmptyData, "in %s: expected %d, got %d", "Predict", 10, 5)

	if !Is(wrapped, ErrEmptyData) {
		t.Error("Expected Is(wrapped, ErrEmptyData) to be true")
	}
	expectedMsg := "in Predict: expected 10, got 5"
	if !strings.Contains(wrapped.Error(), expectedMsg) {
		t.Errorf("Expected wrapped error to contain %q", expectedMsg)
	}
}

func TestCheckMatrix(t *testing.T) {
	ok := fakeMatrix{{1, 2}, {3, 4}}
	if err := CheckMatrix("Fit", ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	inf := fakeMatrix{{1, 2}, {3, posInf()}}
	err := CheckMatrix("Fit", inf)
	var nf *NonFiniteError
	if !As(err, &nf) {
		t.Fatalf("expected NonFiniteError, got %v", err)
	}
	if nf.Row != 1 || nf.Col != 1 {
		t.Errorf("got position (%d, %d), want (1, 1)", nf.Row, nf.Col)
	}
}

func TestSafeDivide(t *testing.T) {
	if v, zero := SafeDivide(1, 4, 0); v != 0.25 || zero {
		t.Errorf("SafeDivide(1, 4) = %v, %v", v, zero)
	}
	if v, zero := SafeDivide(1, 0, 0); v != 0 || !zero {
		t.Errorf("SafeDivide(1, 0) = %v, %v", v, zero)
	}
}

type fakeMatrix [][]float64

func (m fakeMatrix) At(i, j int) float64 { return m[i][j] }
func (m fakeMatrix) Dims() (int, int)    { return len(m), len(m[0]) }

func posInf() float64 {
	zero := 0.0
	return 1 / zero
}
