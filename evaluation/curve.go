package evaluation

import (
	"context"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/model_selection"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// ProjectCurve is the validation curve of one project. HasData is false
// when the cleaned project is below the observation threshold.
type ProjectCurve struct {
	Project      string                                 `yaml:"project" msgpack:"project"`
	Observations int                                    `yaml:"observations" msgpack:"observations"`
	HasData      bool                                   `yaml:"has_data" msgpack:"has_data"`
	Result       *model_selection.ValidationCurveResult `yaml:"result,omitempty" msgpack:"result"`
}

// CurveSummary averages the per-project mean and standard deviation of the
// training and cross-validation scores over the projects with data.
type CurveSummary struct {
	Estimator string          `yaml:"estimator" msgpack:"estimator"`
	Param     string          `yaml:"param" msgpack:"param"`
	Values    []any           `yaml:"values" msgpack:"values"`
	TrainMean []float64       `yaml:"train_mean" msgpack:"train_mean"`
	TrainStd  []float64       `yaml:"train_std" msgpack:"train_std"`
	TestMean  []float64       `yaml:"test_mean" msgpack:"test_mean"`
	TestStd   []float64       `yaml:"test_std" msgpack:"test_std"`
	Projects  int             `yaml:"projects" msgpack:"projects"`
	Curves    []*ProjectCurve `yaml:"curves" msgpack:"curves"`
}

// Header implements Table.
func (s *CurveSummary) Header() []string {
	return []string{s.Param, "train_mean", "train_std", "test_mean", "test_std"}
}

// Records implements Table.
func (s *CurveSummary) Records() [][]string {
	out := make([][]string, len(s.Values))
	for i, v := range s.Values {
		out[i] = []string{
			model.FormatParam(v),
			formatFloat(s.TrainMean[i]),
			formatFloat(s.TrainStd[i]),
			formatFloat(s.TestMean[i]),
			formatFloat(s.TestStd[i]),
		}
	}
	return out
}

// ProjectValidationCurve computes the validation curve of est on one
// project. Rows with missing values are always dropped.
func ProjectValidationCurve(ctx context.Context, est model.Estimator, project, param string, values []any, opts ...Option) (*ProjectCurve, error) {
	return projectValidationCurve(ctx, est, project, param, values, newOptions(opts))
}

func projectValidationCurve(ctx context.Context, est model.Estimator, project, param string, values []any, o Options) (*ProjectCurve, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d, err := load(o, project, true)
	if err != nil {
		return nil, errors.Wrapf(err, "validation curve %s", project)
	}
	curve := &ProjectCurve{Project: project, Observations: d.clean}
	if !d.eligible(o.MinObservations) {
		return curve, nil
	}
	result, err := model_selection.ValidationCurve(est, d.X, d.y, param, values, o.splitter())
	if err != nil {
		return nil, errors.Wrapf(err, "validation curve %s", project)
	}
	curve.HasData = true
	curve.Result = result
	return curve, nil
}

// ValidationCurveAll computes the validation curve of every project and
// averages them. Every value of the summary is NaN when no project has
// enough observations.
func ValidationCurveAll(ctx context.Context, est model.Estimator, projects []string, param string, values []any, opts ...Option) (*CurveSummary, error) {
	if len(values) == 0 {
		return nil, errors.NewValidationError("param_range", "must contain at least one value", values)
	}
	o := newOptions(opts)
	start := time.Now()

	curves := make([]*ProjectCurve, len(projects))
	err := forEachProject(ctx, o, projects, func(ctx context.Context, i int, project string) error {
		c, err := projectValidationCurve(ctx, est.Clone(), project, param, values, o)
		if err != nil {
			return err
		}
		curves[i] = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	summary := &CurveSummary{
		Estimator: est.Name(),
		Param:     param,
		Values:    values,
		Curves:    curves,
	}
	var trainMean, trainStd, testMean, testStd [][]float64
	for _, c := range curves {
		if !c.HasData {
			continue
		}
		trainMean = append(trainMean, c.Result.TrainMean())
		trainStd = append(trainStd, c.Result.TrainStd())
		testMean = append(testMean, c.Result.TestMean())
		testStd = append(testStd, c.Result.TestStd())
		summary.Projects++
	}
	summary.TrainMean = columnMeans(trainMean, len(values))
	summary.TrainStd = columnMeans(trainStd, len(values))
	summary.TestMean = columnMeans(testMean, len(values))
	summary.TestStd = columnMeans(testStd, len(values))

	o.Logger.Info("Validation curves computed",
		log.OperationKey, log.OperationValidationCurve,
		log.ModelNameKey, est.Name(),
		log.ParamKey, param,
		"projects", summary.Projects,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return summary, nil
}

// columnMeans averages rows position by position.
func columnMeans(rows [][]float64, n int) []float64 {
	out := make([]float64, n)
	col := make([]float64, len(rows))
	for j := range out {
		if len(rows) == 0 {
			out[j] = math.NaN()
			continue
		}
		for i, row := range rows {
			col[i] = row[j]
		}
		out[j] = stat.Mean(col, nil)
	}
	return out
}
