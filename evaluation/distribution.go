package evaluation

import (
	"context"
	"fmt"

	"github.com/YuminosukeSato/decisionlab/dataset"
	"github.com/YuminosukeSato/decisionlab/metrics"
)

// DistributionRow is the class distribution of one project over
// dataset.Decisions.
type DistributionRow struct {
	Project string    `yaml:"project" msgpack:"project"`
	Values  []float64 `yaml:"values" msgpack:"values"`
}

// Distribution is the class distribution table of several projects.
// Normalized tables hold percentages rounded to 2 decimals, others counts.
type Distribution struct {
	Normalized bool              `yaml:"normalized" msgpack:"normalized"`
	Rows       []DistributionRow `yaml:"rows" msgpack:"rows"`
}

// Header implements Table.
func (d *Distribution) Header() []string {
	return append([]string{"Project"}, dataset.Decisions...)
}

// Records implements Table.
func (d *Distribution) Records() [][]string {
	out := make([][]string, len(d.Rows))
	for i, r := range d.Rows {
		rec := make([]string, 0, len(r.Values)+1)
		rec = append(rec, r.Project)
		for _, v := range r.Values {
			if d.Normalized {
				rec = append(rec, formatFloat(v))
			} else {
				rec = append(rec, fmt.Sprint(int(v)))
			}
		}
		out[i] = rec
	}
	return out
}

// ProjectClassDistribution counts the developer decisions of project. The
// row keeps the project name as given.
func ProjectClassDistribution(project string, normalized bool, opts ...Option) (DistributionRow, error) {
	return projectClassDistribution(project, normalized, newOptions(opts))
}

func projectClassDistribution(project string, normalized bool, o Options) (DistributionRow, error) {
	frame, err := o.Loader.Load(project)
	if err != nil {
		return DistributionRow{}, err
	}
	if o.DropNA {
		frame = frame.DropNA()
	}
	labels, err := frame.Column(o.LabelColumn)
	if err != nil {
		return DistributionRow{}, err
	}
	values := dataset.ClassDistribution(labels, dataset.Decisions, normalized)
	if normalized {
		for i := range values {
			values[i] = metrics.Round(values[i], 2)
		}
	}
	return DistributionRow{Project: project, Values: values}, nil
}

// ProjectsClassDistribution builds the class distribution table of projects.
func ProjectsClassDistribution(ctx context.Context, projects []string, normalized bool, opts ...Option) (*Distribution, error) {
	o := newOptions(opts)
	rows := make([]DistributionRow, len(projects))
	err := forEachProject(ctx, o, projects, func(_ context.Context, i int, project string) error {
		row, err := projectClassDistribution(project, normalized, o)
		if err != nil {
			return err
		}
		rows[i] = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Distribution{Normalized: normalized, Rows: rows}, nil
}
