package evaluation

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/model_selection"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// Leaderboard columns following the parameter columns.
const (
	ColumnMeanAccuracy = "mean_accuracy"
	ColumnTotalMedals  = "total_medals"
	ColumnGoldMedals   = "gold_medals"
	ColumnSilverMedals = "silver_medals"
	ColumnBronzeMedals = "bronze_medals"
)

// medalRanks is the worst rank_test_score that still earns a medal.
const medalRanks = 3

// LeaderboardRow is one parameter combination with the medals it won
// across projects.
type LeaderboardRow struct {
	Params       model.Params `yaml:"params" msgpack:"params"`
	MeanAccuracy float64      `yaml:"mean_accuracy" msgpack:"mean_accuracy"`
	TotalMedals  int          `yaml:"total_medals" msgpack:"total_medals"`
	GoldMedals   int          `yaml:"gold_medals" msgpack:"gold_medals"`
	SilverMedals int          `yaml:"silver_medals" msgpack:"silver_medals"`
	BronzeMedals int          `yaml:"bronze_medals" msgpack:"bronze_medals"`

	sumAccuracy float64
}

// Value returns a numeric leaderboard column.
func (r LeaderboardRow) Value(column string) (float64, bool) {
	switch column {
	case ColumnMeanAccuracy:
		return r.MeanAccuracy, true
	case ColumnTotalMedals:
		return float64(r.TotalMedals), true
	case ColumnGoldMedals:
		return float64(r.GoldMedals), true
	case ColumnSilverMedals:
		return float64(r.SilverMedals), true
	case ColumnBronzeMedals:
		return float64(r.BronzeMedals), true
	}
	return 0, false
}

// Leaderboard tallies grid-search medals per parameter combination. Rows
// follow the cartesian product of the grid in declaration order.
type Leaderboard struct {
	Estimator  string           `yaml:"estimator" msgpack:"estimator"`
	ParamNames []string         `yaml:"param_names" msgpack:"param_names"`
	Projects   int              `yaml:"projects" msgpack:"projects"`
	Rows       []LeaderboardRow `yaml:"rows" msgpack:"rows"`
}

// Header implements Table.
func (l *Leaderboard) Header() []string {
	return append(append([]string(nil), l.ParamNames...),
		ColumnMeanAccuracy, ColumnTotalMedals, ColumnGoldMedals, ColumnSilverMedals, ColumnBronzeMedals)
}

// Records implements Table.
func (l *Leaderboard) Records() [][]string {
	out := make([][]string, len(l.Rows))
	for i, r := range l.Rows {
		rec := make([]string, 0, len(l.ParamNames)+5)
		for _, name := range l.ParamNames {
			rec = append(rec, model.FormatParam(r.Params[name]))
		}
		rec = append(rec,
			formatFloat(r.MeanAccuracy),
			formatInt(r.TotalMedals),
			formatInt(r.GoldMedals),
			formatInt(r.SilverMedals),
			formatInt(r.BronzeMedals),
		)
		out[i] = rec
	}
	return out
}

// SortBy orders the rows descending by a leaderboard column, NaN last.
func (l *Leaderboard) SortBy(column string) error {
	if _, ok := (LeaderboardRow{}).Value(column); !ok {
		return errors.NewValidationError("sort_by", "unknown leaderboard column", column)
	}
	sort.SliceStable(l.Rows, func(i, j int) bool {
		a, _ := l.Rows[i].Value(column)
		b, _ := l.Rows[j].Value(column)
		return descNaNLast(a, b)
	})
	return nil
}

func newLeaderboard(est model.Estimator, grid model_selection.ParameterGrid) *Leaderboard {
	combos := grid.Combinations()
	rows := make([]LeaderboardRow, len(combos))
	for i, params := range combos {
		rows[i] = LeaderboardRow{Params: params}
	}
	return &Leaderboard{Estimator: est.Name(), ParamNames: grid.Names(), Rows: rows}
}

// award adds the top-ranked candidates of one project's grid search. A
// candidate counts for every combination whose parameters are equal to
// its own; parameters the candidate does not carry are not compared.
func (l *Leaderboard) award(results *model_selection.CVResults) {
	for _, c := range results.TopRanked(medalRanks) {
		rank := results.RankTestScore[c]
		for i := range l.Rows {
			row := &l.Rows[i]
			if !matches(row.Params, results.Params[c], l.ParamNames) {
				continue
			}
			row.sumAccuracy += results.MeanTestScore[c]
			switch rank {
			case 1:
				row.GoldMedals++
			case 2:
				row.SilverMedals++
			default:
				row.BronzeMedals++
			}
			row.TotalMedals = row.GoldMedals + row.SilverMedals + row.BronzeMedals
		}
	}
}

func matches(combination, candidate model.Params, names []string) bool {
	for _, name := range names {
		v, ok := candidate[name]
		if !ok {
			continue
		}
		if !model.ParamEqual(combination[name], v) {
			return false
		}
	}
	return true
}

func (l *Leaderboard) finish() {
	for i := range l.Rows {
		row := &l.Rows[i]
		row.MeanAccuracy = math.NaN()
		if row.TotalMedals > 0 {
			row.MeanAccuracy = row.sumAccuracy / float64(row.TotalMedals)
		}
	}
}

// GridSearchProject runs a cross-validated grid search on one project. It
// returns nil results when the cleaned project is below the observation
// threshold. Rows with missing values are always dropped.
func GridSearchProject(ctx context.Context, est model.Estimator, project string, grid model_selection.ParameterGrid, opts ...Option) (*model_selection.CVResults, error) {
	return gridSearchProject(ctx, est, project, grid, newOptions(opts))
}

func gridSearchProject(ctx context.Context, est model.Estimator, project string, grid model_selection.ParameterGrid, o Options) (*model_selection.CVResults, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := load(o, project, true)
	if err != nil {
		return nil, errors.Wrapf(err, "grid search %s", project)
	}
	if !d.eligible(o.MinObservations) {
		o.Logger.Info("Skipping project with too few observations",
			log.ProjectKey, project,
			log.CleanSamplesKey, d.clean,
		)
		return nil, nil
	}
	gs := model_selection.NewGridSearchCV(est, grid,
		model_selection.WithCV(o.splitter()),
		model_selection.WithRefit(false),
	)
	if err := gs.Fit(d.X, d.y); err != nil {
		return nil, errors.Wrapf(err, "grid search %s", project)
	}
	return gs.CVResults(), nil
}

// GridSearchAll runs a grid search on every project and awards the top
// three parameter combinations of each: rank 1 a gold medal, rank 2 silver
// and rank 3 bronze. Each medal adds the candidate's mean test score to its
// combination; mean_accuracy is that sum divided by the medals won and NaN
// for combinations without medals.
func GridSearchAll(ctx context.Context, est model.Estimator, projects []string, grid model_selection.ParameterGrid, opts ...Option) (*Leaderboard, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	o := newOptions(opts)
	start := time.Now()
	logger := o.Logger.With(log.ModelNameKey, est.Name())
	logger.Info("Starting grid search over projects",
		log.OperationKey, log.OperationGridSearch,
		log.CombinationsKey, grid.Len(),
		"projects", len(projects),
	)

	perProject := make([]*model_selection.CVResults, len(projects))
	err := forEachProject(ctx, o, projects, func(ctx context.Context, i int, project string) error {
		res, err := gridSearchProject(ctx, est.Clone(), project, grid, o)
		if err != nil {
			return err
		}
		perProject[i] = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	board := newLeaderboard(est, grid)
	for _, res := range perProject {
		if res == nil {
			continue
		}
		board.award(res)
		board.Projects++
	}
	board.finish()

	logger.Info("Grid search over projects finished",
		"projects.searched", board.Projects,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return board, nil
}

func formatInt(v int) string {
	return strconv.Itoa(v)
}
