// Package model_selection provides cross-validation splitters, out-of-fold
// prediction, exhaustive grid search and validation curves for estimators
// implementing model.Estimator.
package model_selection

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// DefaultFolds is the number of folds used when no splitter is given.
const DefaultFolds = 10

// KFoldSplitter defines interface for cross-validation splitters
type KFoldSplitter interface {
	Split(X, y mat.Matrix) ([]CVFold, error)
	GetNSplits() int
}

// CVFold represents a single fold in cross-validation. Both index slices are
// sorted in ascending order.
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// KFold implements k-fold cross-validation splitter
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewKFold creates a new k-fold splitter
func NewKFold(nSplits int, shuffle bool, randomSeed int) *KFold {
	return &KFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (kf *KFold) GetNSplits() int {
	return kf.NSplits
}

// Split generates train/test indices for each fold. The first n % k folds
// hold one extra sample.
func (kf *KFold) Split(X, _ mat.Matrix) ([]CVFold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits("KFold", kf.NSplits, nSamples); err != nil {
		return nil, err
	}

	indices := make([]int, nSamples)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		r := newRand(kf.RandomSeed)
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
	}

	testFolds := make([]int, nSamples)
	foldSize := nSamples / kf.NSplits
	remainder := nSamples % kf.NSplits
	current := 0
	for f := 0; f < kf.NSplits; f++ {
		size := foldSize
		if f < remainder {
			size++
		}
		for _, idx := range indices[current : current+size] {
			testFolds[idx] = f
		}
		current += size
	}
	return foldsFromAssignment(testFolds, kf.NSplits), nil
}

// StratifiedKFold implements stratified k-fold cross-validation. Each fold
// preserves the class proportions of y as closely as possible.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed int
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed int) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits:    nSplits,
		Shuffle:    shuffle,
		RandomSeed: randomSeed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split generates stratified train/test indices for each fold.
//
// Classes are numbered by order of first appearance. The sorted class codes
// are dealt round-robin over the folds to decide how many samples of each
// class every fold receives, then each class's samples are handed out to the
// folds in order. Without shuffling this reproduces scikit-learn's folds
// exactly.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]CVFold, error) {
	nSamples, _ := X.Dims()
	if err := checkSplits("StratifiedKFold", skf.NSplits, nSamples); err != nil {
		return nil, err
	}
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold", "y is required for stratification")
	}
	yRows, yCols := y.Dims()
	if yCols != 1 {
		return nil, errors.NewDimensionError("StratifiedKFold", 1, yCols, 1)
	}
	if yRows != nSamples {
		return nil, errors.NewDimensionError("StratifiedKFold", nSamples, yRows, 0)
	}

	codes := make(map[float64]int)
	encoded := make([]int, nSamples)
	var counts []int
	for i := 0; i < nSamples; i++ {
		label := y.At(i, 0)
		k, ok := codes[label]
		if !ok {
			k = len(counts)
			codes[label] = k
			counts = append(counts, 0)
		}
		encoded[i] = k
		counts[k]++
	}

	minCount := counts[0]
	allTooSmall := true
	for _, c := range counts {
		if c < minCount {
			minCount = c
		}
		if c >= skf.NSplits {
			allTooSmall = false
		}
	}
	if allTooSmall {
		return nil, errors.NewValueError("StratifiedKFold",
			fmt.Sprintf("n_splits=%d cannot be greater than the number of members in each class", skf.NSplits))
	}
	if minCount < skf.NSplits {
		errors.Warn(errors.NewSplitWarning("StratifiedKFold", skf.NSplits, minCount))
	}

	ordered := make([]int, nSamples)
	copy(ordered, encoded)
	sort.Ints(ordered)
	allocation := make([][]int, skf.NSplits)
	for f := range allocation {
		allocation[f] = make([]int, len(counts))
	}
	for pos, k := range ordered {
		allocation[pos%skf.NSplits][k]++
	}

	var r *rand.Rand
	if skf.Shuffle {
		r = newRand(skf.RandomSeed)
	}

	testFolds := make([]int, nSamples)
	for k := range counts {
		foldsForClass := make([]int, 0, counts[k])
		for f := 0; f < skf.NSplits; f++ {
			for j := 0; j < allocation[f][k]; j++ {
				foldsForClass = append(foldsForClass, f)
			}
		}
		if r != nil {
			r.Shuffle(len(foldsForClass), func(i, j int) {
				foldsForClass[i], foldsForClass[j] = foldsForClass[j], foldsForClass[i]
			})
		}
		next := 0
		for i, code := range encoded {
			if code == k {
				testFolds[i] = foldsForClass[next]
				next++
			}
		}
	}
	return foldsFromAssignment(testFolds, skf.NSplits), nil
}

func checkSplits(splitter string, nSplits, nSamples int) error {
	if nSplits < 2 {
		return errors.NewValidationError("n_splits", "must be at least 2", nSplits)
	}
	if nSamples == 0 {
		return errors.Wrap(errors.ErrEmptyData, splitter)
	}
	if nSplits > nSamples {
		return errors.NewValueError(splitter,
			fmt.Sprintf("cannot have number of splits n_splits=%d greater than the number of samples: n_samples=%d", nSplits, nSamples))
	}
	return nil
}

// foldsFromAssignment turns a per-sample fold number into train/test index
// sets. Indices come out in ascending order.
func foldsFromAssignment(testFolds []int, nSplits int) []CVFold {
	folds := make([]CVFold, nSplits)
	for f := range folds {
		folds[f] = CVFold{
			TrainIndices: make([]int, 0, len(testFolds)),
			TestIndices:  make([]int, 0, len(testFolds)/nSplits+1),
		}
	}
	for i, f := range testFolds {
		for g := range folds {
			if g == f {
				folds[g].TestIndices = append(folds[g].TestIndices, i)
			} else {
				folds[g].TrainIndices = append(folds[g].TrainIndices, i)
			}
		}
	}
	return folds
}

func newRand(seed int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// resolveCV returns the default stratified 10-fold splitter when cv is nil.
func resolveCV(cv KFoldSplitter) KFoldSplitter {
	if cv == nil {
		return NewStratifiedKFold(DefaultFolds, false, 0)
	}
	return cv
}
