package model_selection

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// Param is one hyperparameter and the values to try for it.
type Param struct {
	Name   string `yaml:"name" mapstructure:"name"`
	Values []any  `yaml:"values" mapstructure:"values"`
}

// ParameterGrid is an ordered set of hyperparameters. Combinations are the
// cartesian product in declaration order with the last parameter varying
// fastest.
type ParameterGrid []Param

// Validate checks that names are unique and non-empty and that every
// parameter has at least one value.
func (g ParameterGrid) Validate() error {
	if len(g) == 0 {
		return errors.NewValidationError("param_grid", "must contain at least one parameter", nil)
	}
	seen := make(map[string]bool, len(g))
	for _, p := range g {
		if p.Name == "" {
			return errors.NewValidationError("param_grid", "parameter name must not be empty", p.Values)
		}
		if seen[p.Name] {
			return errors.NewValidationError(p.Name, "duplicate parameter in grid", p.Values)
		}
		seen[p.Name] = true
		if len(p.Values) == 0 {
			return errors.NewValidationError(p.Name, "parameter values must be a non-empty sequence", p.Values)
		}
	}
	return nil
}

// Names returns the parameter names in declaration order.
func (g ParameterGrid) Names() []string {
	names := make([]string, len(g))
	for i, p := range g {
		names[i] = p.Name
	}
	return names
}

// Len returns the number of combinations.
func (g ParameterGrid) Len() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, p := range g {
		n *= len(p.Values)
	}
	return n
}

// Combinations enumerates every parameter combination.
func (g ParameterGrid) Combinations() []model.Params {
	total := g.Len()
	out := make([]model.Params, 0, total)
	if total == 0 {
		return out
	}
	odometer := make([]int, len(g))
	for c := 0; c < total; c++ {
		params := make(model.Params, len(g))
		for i, p := range g {
			params[p.Name] = p.Values[odometer[i]]
		}
		out = append(out, params)

		for i := len(g) - 1; i >= 0; i-- {
			odometer[i]++
			if odometer[i] < len(g[i].Values) {
				break
			}
			odometer[i] = 0
		}
	}
	return out
}

// Sorted returns a copy of the grid ordered by parameter name, which is the
// candidate order GridSearchCV reports.
func (g ParameterGrid) Sorted() ParameterGrid {
	out := make(ParameterGrid, len(g))
	copy(out, g)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// CVResults holds the per-candidate scores of a grid search.
type CVResults struct {
	ParamNames      []string       `yaml:"param_names" msgpack:"param_names"`
	Params          []model.Params `yaml:"params" msgpack:"params"`
	SplitTestScores [][]float64    `yaml:"split_test_scores" msgpack:"split_test_scores"`
	MeanTestScore   []float64      `yaml:"mean_test_score" msgpack:"mean_test_score"`
	StdTestScore    []float64      `yaml:"std_test_score" msgpack:"std_test_score"`
	RankTestScore   []int          `yaml:"rank_test_score" msgpack:"rank_test_score"`
	MeanFitTime     []float64      `yaml:"mean_fit_time" msgpack:"mean_fit_time"`
}

// Len returns the number of candidates.
func (r *CVResults) Len() int {
	return len(r.Params)
}

// Param returns the value of the named parameter for candidate i.
func (r *CVResults) Param(i int, name string) (any, bool) {
	v, ok := r.Params[i][name]
	return v, ok
}

// TopRanked returns the candidates whose rank is at most k, ordered by rank.
func (r *CVResults) TopRanked(k int) []int {
	var idx []int
	for i, rank := range r.RankTestScore {
		if rank <= k {
			idx = append(idx, i)
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return r.RankTestScore[idx[a]] < r.RankTestScore[idx[b]]
	})
	return idx
}

// rankMin ranks scores in descending order. Ties share the smallest rank
// and NaN scores rank after every finite score.
func rankMin(scores []float64) []int {
	ranks := make([]int, len(scores))
	for i, s := range scores {
		better := 0
		for _, o := range scores {
			if math.IsNaN(s) {
				if !math.IsNaN(o) {
					better++
				}
				continue
			}
			if !math.IsNaN(o) && o > s {
				better++
			}
		}
		ranks[i] = better + 1
	}
	return ranks
}

// GridSearchCV exhaustively evaluates every parameter combination with
// cross-validation and keeps the best one.
type GridSearchCV struct {
	estimator model.Estimator
	grid      ParameterGrid
	cv        KFoldSplitter
	refit     bool

	results       *CVResults
	bestIndex     int
	bestEstimator model.Estimator

	state  *model.StateManager
	logger log.Logger
}

// GridSearchOption configures a GridSearchCV.
type GridSearchOption func(*GridSearchCV)

// WithCV sets the splitter. The default is stratified 10-fold.
func WithCV(cv KFoldSplitter) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.cv = cv
	}
}

// WithFolds uses a non-shuffled stratified splitter with n folds.
func WithFolds(n int) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.cv = NewStratifiedKFold(n, false, 0)
	}
}

// WithRefit controls whether the best candidate is refitted on the whole
// dataset. Enabled by default.
func WithRefit(refit bool) GridSearchOption {
	return func(gs *GridSearchCV) {
		gs.refit = refit
	}
}

// NewGridSearchCV creates a grid search over est.
func NewGridSearchCV(est model.Estimator, grid ParameterGrid, opts ...GridSearchOption) *GridSearchCV {
	gs := &GridSearchCV{
		estimator: est,
		grid:      grid,
		refit:     true,
		bestIndex: -1,
		state:     model.NewStateManager(),
	}
	for _, opt := range opts {
		opt(gs)
	}
	gs.cv = resolveCV(gs.cv)
	gs.logger = log.GetLoggerWithName("GridSearchCV").With(log.ModelNameKey, est.Name())
	return gs
}

// Fit runs the search. Every candidate sees the same folds.
func (gs *GridSearchCV) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GridSearchCV.Fit")

	if err := gs.grid.Validate(); err != nil {
		return err
	}
	if _, err := model.CheckXy("GridSearchCV.Fit", X, y); err != nil {
		return err
	}
	folds, err := gs.cv.Split(X, y)
	if err != nil {
		return err
	}

	candidates := gs.grid.Sorted().Combinations()
	gs.logger.Debug("Starting grid search",
		log.OperationKey, log.OperationGridSearch,
		log.CombinationsKey, len(candidates),
		log.FoldsKey, len(folds),
	)

	results := &CVResults{
		ParamNames:      gs.grid.Names(),
		Params:          candidates,
		SplitTestScores: make([][]float64, len(candidates)),
		MeanTestScore:   make([]float64, len(candidates)),
		StdTestScore:    make([]float64, len(candidates)),
		MeanFitTime:     make([]float64, len(candidates)),
	}
	for c, params := range candidates {
		scores := make([]float64, len(folds))
		start := time.Now()
		for f, fold := range folds {
			est := gs.estimator.Clone()
			if err := est.SetParams(params); err != nil {
				return errors.Wrapf(err, "GridSearchCV: candidate %s", params)
			}
			s, err := fitAndScore(est, X, y, fold, false)
			if err != nil {
				return errors.Wrapf(err, "GridSearchCV: candidate %s, fold %d", params, f)
			}
			scores[f] = s.test
		}
		results.SplitTestScores[c] = scores
		results.MeanTestScore[c], results.StdTestScore[c] = stat.PopMeanStdDev(scores, nil)
		results.MeanFitTime[c] = time.Since(start).Seconds() / float64(len(folds))
	}
	results.RankTestScore = rankMin(results.MeanTestScore)

	gs.results = results
	gs.bestIndex = 0
	for i, r := range results.RankTestScore {
		if r < results.RankTestScore[gs.bestIndex] {
			gs.bestIndex = i
		}
	}

	gs.logger.Debug("Grid search finished",
		log.BestParamsKey, results.Params[gs.bestIndex].String(),
		log.ScoreKey, results.MeanTestScore[gs.bestIndex],
	)

	if gs.refit {
		best := gs.estimator.Clone()
		if err := best.SetParams(results.Params[gs.bestIndex]); err != nil {
			return err
		}
		if err := best.Fit(X, y); err != nil {
			return errors.Wrap(err, "GridSearchCV: refit")
		}
		gs.bestEstimator = best
	}

	nSamples, nFeatures := X.Dims()
	gs.state.SetFitted(nFeatures, nSamples)
	return nil
}

// Predict uses the refitted best estimator.
func (gs *GridSearchCV) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := gs.state.RequirePredictable("GridSearchCV", X); err != nil {
		return nil, err
	}
	if gs.bestEstimator == nil {
		return nil, errors.NewValueError("GridSearchCV.Predict", "refit is disabled; no best estimator is available")
	}
	return gs.bestEstimator.Predict(X)
}

// CVResults returns the search results, or nil before Fit.
func (gs *GridSearchCV) CVResults() *CVResults {
	return gs.results
}

// BestIndex returns the index of the first top-ranked candidate.
func (gs *GridSearchCV) BestIndex() int {
	return gs.bestIndex
}

// BestParams returns the parameters of the best candidate.
func (gs *GridSearchCV) BestParams() (model.Params, error) {
	if gs.results == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "BestParams")
	}
	return gs.results.Params[gs.bestIndex].Copy(), nil
}

// BestScore returns the mean cross-validated score of the best candidate.
func (gs *GridSearchCV) BestScore() (float64, error) {
	if gs.results == nil {
		return 0, errors.NewNotFittedError("GridSearchCV", "BestScore")
	}
	return gs.results.MeanTestScore[gs.bestIndex], nil
}

// BestEstimator returns the refitted best estimator.
func (gs *GridSearchCV) BestEstimator() (model.Estimator, error) {
	if gs.bestEstimator == nil {
		return nil, errors.NewNotFittedError("GridSearchCV", "BestEstimator")
	}
	return gs.bestEstimator, nil
}

// String describes the search configuration.
func (gs *GridSearchCV) String() string {
	return fmt.Sprintf("GridSearchCV(estimator=%s, n_candidates=%d, n_splits=%d)",
		gs.estimator.Name(), gs.grid.Len(), gs.cv.GetNSplits())
}
