package evaluation

import (
	"context"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/dataset"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// ProjectsResults holds the evaluation of one estimator over many projects.
type ProjectsResults struct {
	RunID     string           `yaml:"run_id" msgpack:"run_id"`
	Estimator string           `yaml:"estimator" msgpack:"estimator"`
	Params    model.Params     `yaml:"params" msgpack:"params"`
	CreatedAt time.Time        `yaml:"created_at" msgpack:"created_at"`
	Results   []*ProjectResult `yaml:"results" msgpack:"results"`
}

// NewProjectsResults evaluates est on every project. Results keep the order
// of projects regardless of the number of workers. The first failing
// project cancels the remaining ones and its error is returned.
func NewProjectsResults(ctx context.Context, est model.Estimator, projects []string, opts ...Option) (*ProjectsResults, error) {
	o := newOptions(opts)
	runID := uuid.NewString()
	o.Logger = o.Logger.With(log.RunIDKey, runID)
	start := time.Now()

	o.Logger.Info("Evaluating projects",
		log.ModelNameKey, est.Name(),
		"projects", len(projects),
		log.FoldsKey, o.Folds,
	)

	results := make([]*ProjectResult, len(projects))
	err := forEachProject(ctx, o, projects, func(ctx context.Context, i int, project string) error {
		r, err := evaluateProject(ctx, est.Clone(), project, o)
		if err != nil {
			return err
		}
		results[i] = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.Logger.Info("Projects evaluated",
		log.ModelNameKey, est.Name(),
		"projects", len(projects),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &ProjectsResults{
		RunID:     runID,
		Estimator: est.Name(),
		Params:    est.GetParams(),
		CreatedAt: time.Now().UTC(),
		Results:   results,
	}, nil
}

// Project returns the result of a project, by its name or its file name.
func (r *ProjectsResults) Project(name string) (*ProjectResult, error) {
	key := dataset.FileName(name)
	for _, p := range r.Results {
		if p.Name == key {
			return p, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrProjectNotFound, "%q", name)
}

// Report returns one row per project sorted descending by sortBy, NaN last.
// With includeOverall an Overall row is appended.
func (r *ProjectsResults) Report(includeOverall bool, sortBy string) (*Report, error) {
	rows := make([]Row, len(r.Results))
	for i, p := range r.Results {
		rows[i] = p.Row
	}
	if err := sortRows(rows, sortBy); err != nil {
		return nil, err
	}
	report := &Report{Rows: rows}
	if includeOverall {
		report.Rows = append(report.Rows, Overall(rows))
	}
	return report, nil
}

// Report is the tabular evaluation result.
type Report struct {
	Rows []Row `yaml:"rows" msgpack:"rows"`
}

// Header implements Table.
func (r *Report) Header() []string {
	return RowColumns
}

// Records implements Table.
func (r *Report) Records() [][]string {
	out := make([][]string, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.Record()
	}
	return out
}

// Overall summarises rows: observation counts are summed and every float
// column is averaged over the rows where it is not NaN.
func Overall(rows []Row) Row {
	overall := Row{Project: OverallProject}
	sums := make([]float64, 6)
	counts := make([]int, 6)
	for i := range rows {
		overall.Observations += rows[i].Observations
		overall.ObservationsClean += rows[i].ObservationsClean
		for k, f := range rows[i].floats() {
			if !math.IsNaN(*f) {
				sums[k] += *f
				counts[k]++
			}
		}
	}
	for k, f := range overall.floats() {
		*f = math.NaN()
		if counts[k] > 0 {
			*f = sums[k] / float64(counts[k])
		}
	}
	return overall
}

// sortRows orders rows descending by column. NaN values go last and equal
// values keep their order.
func sortRows(rows []Row, column string) error {
	if column == "" {
		return nil
	}
	if column == ColumnProject {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Project > rows[j].Project })
		return nil
	}
	if _, ok := (Row{}).Value(column); !ok {
		return errors.NewValidationError("sort_by", "unknown report column", column)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := rows[i].Value(column)
		b, _ := rows[j].Value(column)
		return descNaNLast(a, b)
	})
	return nil
}

func descNaNLast(a, b float64) bool {
	switch {
	case math.IsNaN(a):
		return false
	case math.IsNaN(b):
		return true
	default:
		return a > b
	}
}

// ModelRow is the overall row of one model in a comparison.
type ModelRow struct {
	Row   `yaml:",inline" msgpack:",inline"`
	Model string `yaml:"model" msgpack:"model"`
}

// Comparison is the overall result of several models on the same projects.
type Comparison struct {
	Rows []ModelRow `yaml:"rows" msgpack:"rows"`
}

// Header implements Table.
func (c *Comparison) Header() []string {
	return append(append([]string(nil), RowColumns...), ColumnModel)
}

// Records implements Table.
func (c *Comparison) Records() [][]string {
	out := make([][]string, len(c.Rows))
	for i, r := range c.Rows {
		out[i] = append(r.Row.Record(), r.Model)
	}
	return out
}

// CompareModels evaluates every estimator on projects and returns the
// Overall row of each, labelled with the matching name.
func CompareModels(ctx context.Context, estimators []model.Estimator, names []string, projects []string, opts ...Option) (*Comparison, error) {
	if len(estimators) != len(names) {
		return nil, errors.NewValueError("CompareModels",
			"number of models, "+strconv.Itoa(len(estimators))+", does not match number of names, "+strconv.Itoa(len(names)))
	}
	comparison := &Comparison{Rows: make([]ModelRow, 0, len(estimators))}
	for i, est := range estimators {
		results, err := NewProjectsResults(ctx, est, projects, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "compare %s", names[i])
		}
		report, err := results.Report(true, ColumnImprovement)
		if err != nil {
			return nil, err
		}
		comparison.Rows = append(comparison.Rows, ModelRow{
			Row:   report.Rows[len(report.Rows)-1],
			Model: names[i],
		})
	}
	return comparison, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
