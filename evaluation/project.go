// Package evaluation runs cross-validated evaluations of classifiers over
// many projects and builds the tables reported for them: per-project
// results with an overall row, model comparisons, class distributions,
// grid-search medal leaderboards and accumulated validation curves.
package evaluation

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/dataset"
	"github.com/YuminosukeSato/decisionlab/metrics"
	"github.com/YuminosukeSato/decisionlab/model_selection"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// Report columns.
const (
	ColumnProject           = "project"
	ColumnObservations      = "observations"
	ColumnObservationsClean = "observations (wt NaN)"
	ColumnPrecision         = "precision"
	ColumnRecall            = "recall"
	ColumnF1                = "f1-score"
	ColumnAccuracy          = "accuracy"
	ColumnBaseline          = "baseline (majority)"
	ColumnImprovement       = "improvement"
	ColumnModel             = "model"

	OverallProject = "Overall"
)

// RowColumns lists the report columns in order.
var RowColumns = []string{
	ColumnProject, ColumnObservations, ColumnObservationsClean,
	ColumnPrecision, ColumnRecall, ColumnF1, ColumnAccuracy, ColumnBaseline, ColumnImprovement,
}

// scoreDigits is the rounding applied to the float columns of a project row.
const scoreDigits = 3

// Row is one line of the evaluation report. Precision, recall and F1 are
// support-weighted averages over the classes.
type Row struct {
	Project           string  `yaml:"project" msgpack:"project"`
	Observations      int     `yaml:"observations" msgpack:"observations"`
	ObservationsClean int     `yaml:"observations_clean" msgpack:"observations_clean"`
	Precision         float64 `yaml:"precision" msgpack:"precision"`
	Recall            float64 `yaml:"recall" msgpack:"recall"`
	F1                float64 `yaml:"f1_score" msgpack:"f1_score"`
	Accuracy          float64 `yaml:"accuracy" msgpack:"accuracy"`
	Baseline          float64 `yaml:"baseline" msgpack:"baseline"`
	Improvement       float64 `yaml:"improvement" msgpack:"improvement"`
}

// Value returns a numeric column of the row.
func (r Row) Value(column string) (float64, bool) {
	switch column {
	case ColumnObservations:
		return float64(r.Observations), true
	case ColumnObservationsClean:
		return float64(r.ObservationsClean), true
	case ColumnPrecision:
		return r.Precision, true
	case ColumnRecall:
		return r.Recall, true
	case ColumnF1:
		return r.F1, true
	case ColumnAccuracy:
		return r.Accuracy, true
	case ColumnBaseline:
		return r.Baseline, true
	case ColumnImprovement:
		return r.Improvement, true
	}
	return 0, false
}

func (r *Row) floats() []*float64 {
	return []*float64{&r.Precision, &r.Recall, &r.F1, &r.Accuracy, &r.Baseline, &r.Improvement}
}

// Record formats the row as strings in RowColumns order.
func (r Row) Record() []string {
	return []string{
		r.Project,
		fmt.Sprint(r.Observations),
		fmt.Sprint(r.ObservationsClean),
		formatFloat(r.Precision),
		formatFloat(r.Recall),
		formatFloat(r.F1),
		formatFloat(r.Accuracy),
		formatFloat(r.Baseline),
		formatFloat(r.Improvement),
	}
}

func nanRow(project string, observations, clean int) Row {
	nan := math.NaN()
	return Row{
		Project:           project,
		Observations:      observations,
		ObservationsClean: clean,
		Precision:         nan,
		Recall:            nan,
		F1:                nan,
		Accuracy:          nan,
		Baseline:          nan,
		Improvement:       nan,
	}
}

// ProjectResult is the evaluation of one project. Projects below the
// observation threshold have a NaN row and no report.
type ProjectResult struct {
	Name            string                        `yaml:"name" msgpack:"name"`
	Row             Row                           `yaml:"row" msgpack:"row"`
	Report          *metrics.ClassificationReport `yaml:"report,omitempty" msgpack:"report"`
	ReportText      string                        `yaml:"report_text,omitempty" msgpack:"report_text"`
	ConfusionMatrix [][]float64                   `yaml:"confusion_matrix,omitempty" msgpack:"confusion_matrix"`
	TargetNames     []string                      `yaml:"target_names" msgpack:"target_names"`
}

// Evaluated reports whether the project had enough observations.
func (p *ProjectResult) Evaluated() bool {
	return p.Report != nil
}

// Scores returns the classification report as rows, or nil when the
// project was not evaluated.
func (p *ProjectResult) Scores() []metrics.ReportRow {
	if p.Report == nil {
		return nil
	}
	return p.Report.Rows()
}

// Confusion returns the confusion matrix over TargetNames; rows are true
// labels and columns predicted labels.
func (p *ProjectResult) Confusion() *mat.Dense {
	k := len(p.ConfusionMatrix)
	if k == 0 {
		return nil
	}
	cm := mat.NewDense(k, k, nil)
	for i, row := range p.ConfusionMatrix {
		cm.SetRow(i, row)
	}
	return cm
}

// projectData is a project table prepared for cross-validation.
type projectData struct {
	name        string
	raw         int
	clean       int
	baseline    float64
	targetNames []string
	encoder     *dataset.LabelEncoder
	X           *mat.Dense
	y           *mat.Dense
}

// eligible reports whether the cleaned table is large enough to evaluate.
func (d *projectData) eligible(minObservations int) bool {
	return d.clean >= minObservations
}

// load reads project and, when it is large enough, builds X and y.
func load(o Options, project string, dropNA bool) (*projectData, error) {
	frame, err := o.Loader.Load(project)
	if err != nil {
		return nil, err
	}
	clean := frame
	if dropNA {
		clean = frame.DropNA()
	}
	targetNames, err := frame.TargetNames(o.LabelColumn)
	if err != nil {
		return nil, err
	}
	labels, err := clean.Labels(o.LabelColumn)
	if err != nil {
		return nil, err
	}

	d := &projectData{
		name:        dataset.FileName(project),
		raw:         frame.Len(),
		clean:       clean.Len(),
		baseline:    metrics.MajorityClassPercentage(labels),
		targetNames: targetNames,
		encoder:     dataset.NewLabelEncoder(targetNames),
	}
	if !d.eligible(o.MinObservations) {
		return d, nil
	}

	if len(labels) != clean.Len() {
		return nil, errors.NewDataError(frame.Path, 0, o.LabelColumn,
			fmt.Errorf("%d rows have no %s", clean.Len()-len(labels), o.LabelColumn))
	}
	X, _, err := clean.Features(o.LabelColumn, o.NonFeatureColumns)
	if err != nil {
		return nil, err
	}
	if err := errors.CheckMatrix(frame.Path, X); err != nil {
		return nil, err
	}
	y, err := d.encoder.Transform(labels)
	if err != nil {
		return nil, err
	}
	d.X, d.y = X, y
	return d, nil
}

// EvaluateProject predicts every observation of project with out-of-fold
// cross-validation and scores the predictions.
func EvaluateProject(ctx context.Context, est model.Estimator, project string, opts ...Option) (*ProjectResult, error) {
	return evaluateProject(ctx, est, project, newOptions(opts))
}

func evaluateProject(ctx context.Context, est model.Estimator, project string, o Options) (*ProjectResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	logger := o.Logger.With(log.ProjectKey, project, log.ModelNameKey, est.Name())

	d, err := load(o, project, o.DropNA)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %s", project)
	}
	result := &ProjectResult{
		Name:        d.name,
		TargetNames: d.targetNames,
		Row:         nanRow(d.name, d.raw, d.clean),
	}
	if !d.eligible(o.MinObservations) {
		logger.Info("Skipping project with too few observations",
			log.SamplesKey, d.raw,
			log.CleanSamplesKey, d.clean,
		)
		return result, nil
	}

	pred, err := model_selection.CrossValPredict(est, d.X, d.y, o.splitter())
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %s", project)
	}
	yTrue := d.y.ColView(0)
	yPred := pred.ColView(0)

	present := metrics.UniqueLabels(yTrue, yPred)
	report, err := metrics.NewClassificationReport(yTrue, yPred,
		metrics.WithLabels(present),
		metrics.WithTargetNames(d.encoder.Names(present)),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %s", project)
	}
	all := make([]float64, len(d.targetNames))
	for i := range all {
		all[i] = float64(i)
	}
	cm, err := metrics.ConfusionMatrix(yTrue, yPred, all)
	if err != nil {
		return nil, errors.Wrapf(err, "evaluate %s", project)
	}

	result.Report = report
	result.ReportText = report.Format(scoreDigits)
	result.ConfusionMatrix = make([][]float64, len(all))
	for i := range all {
		result.ConfusionMatrix[i] = mat.Row(nil, i, cm)
	}
	row := Row{
		Project:           d.name,
		Observations:      d.raw,
		ObservationsClean: d.clean,
		Precision:         report.WeightedAvg.Precision,
		Recall:            report.WeightedAvg.Recall,
		F1:                report.WeightedAvg.F1,
		Accuracy:          report.Accuracy,
		Baseline:          d.baseline,
		Improvement:       metrics.NormalizedImprovement(report.Accuracy, d.baseline),
	}
	for _, f := range row.floats() {
		*f = metrics.Round(*f, scoreDigits)
	}
	result.Row = row

	logger.Debug("Project evaluated",
		log.OperationKey, log.OperationEvaluate,
		log.SamplesKey, d.raw,
		log.CleanSamplesKey, d.clean,
		log.ClassesKey, len(d.targetNames),
		log.AccuracyKey, row.Accuracy,
		log.BaselineKey, row.Baseline,
		log.ImprovementKey, row.Improvement,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

// ConfusionTable is a confusion matrix labelled with the target names.
type ConfusionTable struct {
	Names  []string
	Matrix [][]float64
}

// ConfusionTable returns the confusion matrix as a table.
func (p *ProjectResult) ConfusionTable() *ConfusionTable {
	return &ConfusionTable{Names: p.TargetNames, Matrix: p.ConfusionMatrix}
}

// Header implements Table.
func (c *ConfusionTable) Header() []string {
	return append([]string{""}, c.Names...)
}

// Records implements Table.
func (c *ConfusionTable) Records() [][]string {
	out := make([][]string, len(c.Matrix))
	for i, row := range c.Matrix {
		rec := make([]string, 0, len(row)+1)
		rec = append(rec, c.Names[i])
		for _, v := range row {
			rec = append(rec, formatFloat(v))
		}
		out[i] = rec
	}
	return out
}

// ScoresTable is a classification report as a table.
type ScoresTable struct {
	Rows []metrics.ReportRow
}

// ScoresTable returns the classification report of the project as a table.
func (p *ProjectResult) ScoresTable() *ScoresTable {
	return &ScoresTable{Rows: p.Scores()}
}

// Header implements Table.
func (s *ScoresTable) Header() []string {
	return []string{"", "precision", "recall", "f1-score", "support"}
}

// Records implements Table.
func (s *ScoresTable) Records() [][]string {
	out := make([][]string, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = []string{r.Name, formatFloat(r.Precision), formatFloat(r.Recall), formatFloat(r.F1), formatFloat(r.Support)}
	}
	return out
}
