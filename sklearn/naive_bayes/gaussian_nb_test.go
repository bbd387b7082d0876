package naive_bayes

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
)

var _ model.Estimator = (*GaussianNB)(nil)
var _ model.ProbabilisticClassifier = (*GaussianNB)(nil)

// TestGaussianNBBasicFit tests basic fitting functionality
func TestGaussianNBBasicFit(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		1, 2, // class 0
		2, 1, // class 0
		3, 3, // class 0
		7, 8, // class 1
		8, 7, // class 1
		9, 9, // class 1
	})
	y := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	nb := NewGaussianNB()
	if err := nb.Fit(X, y); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	if !nb.state.IsFitted() {
		t.Error("Model should be fitted after Fit()")
	}
	if len(nb.Classes()) != 2 {
		t.Errorf("Expected 2 classes, got %d", len(nb.Classes()))
	}
	if nb.NSamplesSeen() != 6 {
		t.Errorf("Expected 6 samples seen, got %d", nb.NSamplesSeen())
	}

	// class means
	if nb.Theta()[0][0] != 2 || nb.Theta()[1][1] != 8 {
		t.Errorf("Unexpected class means: %v", nb.Theta())
	}

	// population variance of {1,2,3} is 2/3, plus the smoothing term
	want := 2.0/3.0 + nb.epsilon_
	if math.Abs(nb.Var()[0][0]-want) > 1e-12 {
		t.Errorf("Expected variance %v, got %v", want, nb.Var()[0][0])
	}
	if nb.epsilon_ <= 0 {
		t.Errorf("Smoothing term should be positive, got %v", nb.epsilon_)
	}
}

// TestGaussianNBPredict tests prediction functionality
func TestGaussianNBPredict(t *testing.T) {
	XTrain := mat.NewDense(6, 2, []float64{
		0, 0,
		0.5, 0.2,
		0.1, 0.4,
		5, 5,
		5.5, 4.8,
		4.9, 5.3,
	})
	yTrain := mat.NewDense(6, 1, []float64{3, 3, 3, 7, 7, 7})

	nb := NewGaussianNB()
	if err := nb.Fit(XTrain, yTrain); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	XTest := mat.NewDense(2, 2, []float64{
		0.2, 0.1, // should predict class 3
		5.1, 5.0, // should predict class 7
	})
	predictions, err := nb.Predict(XTest)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	rows, cols := predictions.Dims()
	if rows != 2 || cols != 1 {
		t.Errorf("Predictions shape should be (2, 1), got (%d, %d)", rows, cols)
	}
	if predictions.At(0, 0) != 3 {
		t.Errorf("First sample should be predicted as class 3, got %f", predictions.At(0, 0))
	}
	if predictions.At(1, 0) != 7 {
		t.Errorf("Second sample should be predicted as class 7, got %f", predictions.At(1, 0))
	}
}

// TestGaussianNBPredictProba tests probability prediction
func TestGaussianNBPredictProba(t *testing.T) {
	XTrain := mat.NewDense(6, 1, []float64{-1, 0, 1, 9, 10, 11})
	yTrain := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	nb := NewGaussianNB()
	if err := nb.Fit(XTrain, yTrain); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	XTest := mat.NewDense(3, 1, []float64{0, 5, 10})
	proba, err := nb.PredictProba(XTest)
	if err != nil {
		t.Fatalf("PredictProba failed: %v", err)
	}

	rows, cols := proba.Dims()
	if rows != 3 || cols != 2 {
		t.Errorf("Proba shape should be (3, 2), got (%d, %d)", rows, cols)
	}
	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			p := proba.At(i, j)
			if p < 0 || p > 1 {
				t.Errorf("Probability should be in [0, 1], got %f", p)
			}
			sum += p
		}
		if math.Abs(sum-1.0) > 1e-10 {
			t.Errorf("Probabilities should sum to 1, got %f", sum)
		}
	}

	// the midpoint is equally likely under equal variances and priors
	if math.Abs(proba.At(1, 0)-0.5) > 1e-9 {
		t.Errorf("Midpoint should have probability 0.5, got %f", proba.At(1, 0))
	}
	if proba.At(0, 0) <= proba.At(0, 1) {
		t.Error("First sample should have higher probability for class 0")
	}
	if proba.At(2, 1) <= proba.At(2, 0) {
		t.Error("Last sample should have higher probability for class 1")
	}
}

// TestGaussianNBPredictLogProba tests log probability prediction
func TestGaussianNBPredictLogProba(t *testing.T) {
	XTrain := mat.NewDense(4, 2, []float64{
		2, 0,
		1, 1,
		0, 2,
		1, 1.5,
	})
	yTrain := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	nb := NewGaussianNB()
	if err := nb.Fit(XTrain, yTrain); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	logProba, err := nb.PredictLogProba(mat.NewDense(1, 2, []float64{1, 1}))
	if err != nil {
		t.Fatalf("PredictLogProba failed: %v", err)
	}

	_, cols := logProba.Dims()
	sum := 0.0
	for j := 0; j < cols; j++ {
		if logProba.At(0, j) > 0 {
			t.Errorf("Log probability should be <= 0, got %f", logProba.At(0, j))
		}
		sum += math.Exp(logProba.At(0, j))
	}
	if math.Abs(sum-1.0) > 1e-10 {
		t.Errorf("Exp of log probabilities should sum to 1, got %f", sum)
	}
}

// TestGaussianNBPriors tests fixed class priors
func TestGaussianNBPriors(t *testing.T) {
	XTrain := mat.NewDense(6, 1, []float64{-1, 0, 1, 9, 10, 11})
	yTrain := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})
	XTest := mat.NewDense(1, 1, []float64{5})

	nb := NewGaussianNB(WithPriors([]float64{0.9, 0.1}))
	if err := nb.Fit(XTrain, yTrain); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	proba, _ := nb.PredictProba(XTest)
	if math.Abs(proba.At(0, 0)-0.9) > 1e-9 {
		t.Errorf("With equal likelihoods the posterior should equal the prior, got %f", proba.At(0, 0))
	}

	bad := NewGaussianNB(WithPriors([]float64{0.5, 0.4}))
	if err := bad.Fit(XTrain, yTrain); err == nil {
		t.Error("Fit should fail when priors do not sum to 1")
	}
	wrongLen := NewGaussianNB(WithPriors([]float64{1}))
	if err := wrongLen.Fit(XTrain, yTrain); err == nil {
		t.Error("Fit should fail when priors do not match the classes")
	}
}

// TestGaussianNBScore tests accuracy scoring
func TestGaussianNBScore(t *testing.T) {
	XTrain := mat.NewDense(6, 2, []float64{
		5, 0,
		4, 1,
		3, 0,
		0, 5,
		1, 4,
		0, 3,
	})
	yTrain := mat.NewDense(6, 1, []float64{0, 0, 0, 1, 1, 1})

	nb := NewGaussianNB()
	if err := nb.Fit(XTrain, yTrain); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}
	score, err := nb.Score(XTrain, yTrain)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if score < 0.9 {
		t.Errorf("Score should be high for separable data, got %f", score)
	}
}

// TestGaussianNBParams tests parameter management
func TestGaussianNBParams(t *testing.T) {
	nb := NewGaussianNB()
	if nb.GetParams()["var_smoothing"] != 1e-9 {
		t.Errorf("Default var_smoothing should be 1e-9, got %v", nb.GetParams()["var_smoothing"])
	}
	if err := nb.SetParams(model.Params{"var_smoothing": 1e-3, "priors": []any{0.5, 0.5}}); err != nil {
		t.Fatalf("SetParams failed: %v", err)
	}
	clone := nb.Clone().(*GaussianNB)
	if clone.varSmoothing != 1e-3 || len(clone.priors) != 2 {
		t.Errorf("Clone lost parameters: %v", clone.GetParams())
	}
	if err := nb.SetParams(model.Params{"alpha": 1.0}); err == nil {
		t.Error("SetParams should reject unknown parameters")
	}
}

// TestGaussianNBInvalidInput tests error handling
func TestGaussianNBInvalidInput(t *testing.T) {
	nb := NewGaussianNB()

	XInvalid := mat.NewDense(2, 2, []float64{
		1, math.NaN(),
		2, 3,
	})
	y := mat.NewDense(2, 1, []float64{0, 1})
	if err := nb.Fit(XInvalid, y); err == nil {
		t.Error("Fit should fail with NaN values")
	}

	nbUnfitted := NewGaussianNB()
	if _, err := nbUnfitted.Predict(XInvalid); err == nil {
		t.Error("Predict should fail on unfitted model")
	}
}
