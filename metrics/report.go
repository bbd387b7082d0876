package metrics

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// 分類レポートの集計行の見出し
const (
	AccuracyHeading = "accuracy"
	MacroHeading    = "macro avg"
	WeightedHeading = "weighted avg"
)

// ClassReport はレポートの1行（クラス名と指標）
type ClassReport struct {
	Name string `yaml:"name" msgpack:"name"`
	ClassScores `yaml:",inline" msgpack:",inline"`
}

// ClassificationReport はscikit-learnのclassification_reportに相当する
type ClassificationReport struct {
	Classes     []ClassReport `yaml:"classes" msgpack:"classes"`
	Accuracy    float64       `yaml:"accuracy" msgpack:"accuracy"`
	MacroAvg    ClassScores   `yaml:"macro_avg" msgpack:"macro_avg"`
	WeightedAvg ClassScores   `yaml:"weighted_avg" msgpack:"weighted_avg"`
}

type reportConfig struct {
	labels      []float64
	targetNames []string
}

// ReportOption はClassificationReportのオプション
type ReportOption func(*reportConfig)

// WithLabels はレポートに含めるラベルとその順序を指定する
func WithLabels(labels []float64) ReportOption {
	return func(c *reportConfig) {
		c.labels = labels
	}
}

// WithTargetNames はラベルの表示名を位置で対応付ける（labelsと同じ長さが必要）
func WithTargetNames(names []string) ReportOption {
	return func(c *reportConfig) {
		c.targetNames = names
	}
}

// NewClassificationReport は適合率・再現率・F1・サポートをクラスごとに計算し、
// 正解率、マクロ平均、重み付き平均を加えたレポートを作成する
func NewClassificationReport(yTrue, yPred mat.Vector, opts ...ReportOption) (*ClassificationReport, error) {
	if _, err := checkPair("ClassificationReport", yTrue, yPred); err != nil {
		return nil, err
	}

	cfg := &reportConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.labels == nil {
		cfg.labels = UniqueLabels(yTrue, yPred)
	}
	if cfg.targetNames != nil && len(cfg.targetNames) != len(cfg.labels) {
		return nil, errors.NewValueError("ClassificationReport",
			fmt.Sprintf("number of classes, %d, does not match size of target_names, %d", len(cfg.labels), len(cfg.targetNames)))
	}

	scores, err := PrecisionRecallFSupport(yTrue, yPred, cfg.labels)
	if err != nil {
		return nil, err
	}
	acc, err := Accuracy(yTrue, yPred)
	if err != nil {
		return nil, err
	}

	report := &ClassificationReport{
		Classes:     make([]ClassReport, len(scores)),
		Accuracy:    acc,
		MacroAvg:    MacroAverage(scores),
		WeightedAvg: WeightedAverage(scores),
	}
	for i, s := range scores {
		name := formatLabel(cfg.labels[i])
		if cfg.targetNames != nil {
			name = cfg.targetNames[i]
		}
		report.Classes[i] = ClassReport{Name: name, ClassScores: s}
	}
	return report, nil
}

// Class はクラス名で行を探す
func (r *ClassificationReport) Class(name string) (ClassReport, bool) {
	for _, c := range r.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return ClassReport{}, false
}

// TotalSupport は全クラスのサポートの合計
func (r *ClassificationReport) TotalSupport() int {
	return r.WeightedAvg.Support
}

// ReportRow は表形式のレポート1行（スコアのデータフレームの1行に相当）
type ReportRow struct {
	Name      string
	Precision float64
	Recall    float64
	F1        float64
	Support   float64
}

// Rows はクラスごとの行、accuracy行、macro avg行、weighted avg行を返す。
// accuracy行は全ての列が正解率になる
func (r *ClassificationReport) Rows() []ReportRow {
	rows := make([]ReportRow, 0, len(r.Classes)+3)
	for _, c := range r.Classes {
		rows = append(rows, ReportRow{c.Name, c.Precision, c.Recall, c.F1, float64(c.Support)})
	}
	rows = append(rows,
		ReportRow{AccuracyHeading, r.Accuracy, r.Accuracy, r.Accuracy, r.Accuracy},
		ReportRow{MacroHeading, r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, float64(r.MacroAvg.Support)},
		ReportRow{WeightedHeading, r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, float64(r.WeightedAvg.Support)},
	)
	return rows
}

// Format はscikit-learnのテキスト形式でレポートを整形する
func (r *ClassificationReport) Format(digits int) string {
	width := len(WeightedHeading)
	for _, c := range r.Classes {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}
	if digits > width {
		width = digits
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")

	row := func(name string, s ClassScores) {
		fmt.Fprintf(&b, "%*s  %9.*f %9.*f %9.*f %9d\n", width, name,
			digits, s.Precision, digits, s.Recall, digits, s.F1, s.Support)
	}
	for _, c := range r.Classes {
		row(c.Name, c.ClassScores)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.*f %9d\n", width, AccuracyHeading, "", "", digits, r.Accuracy, r.TotalSupport())
	row(MacroHeading, r.MacroAvg)
	row(WeightedHeading, r.WeightedAvg)
	return b.String()
}

// String は3桁でFormatする
func (r *ClassificationReport) String() string {
	return r.Format(3)
}
