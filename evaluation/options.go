package evaluation

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/YuminosukeSato/decisionlab/dataset"
	"github.com/YuminosukeSato/decisionlab/model_selection"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// Defaults of the evaluation knobs.
const (
	DefaultProjectsPath    = "../../data/projects"
	DefaultMinObservations = 10
)

// Options configures how projects are loaded and evaluated.
type Options struct {
	Loader            *dataset.Loader
	LabelColumn       string
	NonFeatureColumns []string
	Folds             int
	MinObservations   int
	DropNA            bool
	Workers           int
	Logger            log.Logger
}

// Option configures Options.
type Option func(*Options)

// WithLoader reads project tables through loader.
func WithLoader(loader *dataset.Loader) Option {
	return func(o *Options) { o.Loader = loader }
}

// WithProjectsPath reads project tables from dir.
func WithProjectsPath(dir string) Option {
	return func(o *Options) { o.Loader = dataset.NewLoader(dir, 0) }
}

// WithLabelColumn sets the column holding the developer decision.
func WithLabelColumn(column string) Option {
	return func(o *Options) { o.LabelColumn = column }
}

// WithNonFeatureColumns sets the columns excluded from the features.
func WithNonFeatureColumns(columns []string) Option {
	return func(o *Options) { o.NonFeatureColumns = columns }
}

// WithFolds sets the number of stratified folds.
func WithFolds(n int) Option {
	return func(o *Options) { o.Folds = n }
}

// WithMinObservations sets the smallest cleaned dataset that is evaluated.
func WithMinObservations(n int) Option {
	return func(o *Options) { o.MinObservations = n }
}

// WithDropNA controls whether rows with missing values are dropped before
// evaluation. Grid searches and validation curves always drop them.
func WithDropNA(drop bool) Option {
	return func(o *Options) { o.DropNA = drop }
}

// WithWorkers bounds the number of projects processed concurrently.
// One worker processes projects strictly in order.
func WithWorkers(n int) Option {
	return func(o *Options) { o.Workers = n }
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func newOptions(opts []Option) Options {
	o := Options{
		LabelColumn:     dataset.DefaultLabelColumn,
		Folds:           model_selection.DefaultFolds,
		MinObservations: DefaultMinObservations,
		DropNA:          true,
		Workers:         runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Loader == nil {
		o.Loader = dataset.NewLoader(DefaultProjectsPath, 0)
	}
	if o.Logger == nil {
		o.Logger = log.GetLoggerWithName("evaluation")
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return o
}

func (o Options) splitter() model_selection.KFoldSplitter {
	return model_selection.NewStratifiedKFold(o.Folds, false, 0)
}

// forEachProject runs fn for every project on at most o.Workers goroutines.
// fn writes its result by index, so the output order follows projects.
func forEachProject(ctx context.Context, o Options, projects []string, fn func(ctx context.Context, i int, project string) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(o.Workers, max(len(projects), 1)))
	for i, project := range projects {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			return errors.SafeExecute("evaluate "+project, func() error {
				return fn(gctx, i, project)
			})
		})
	}
	return g.Wait()
}
