// Package log defines standard attribute keys for evaluation runs.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples", "cv.folds") so that runs over hundreds of projects can be
// filtered and aggregated from the log stream.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type.
	// Examples: "DecisionTreeClassifier", "RandomForestClassifier"
	ModelNameKey = "model.name"

	// EstimatorIDKey identifies a configured estimator instance (its configured name).
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// RunIDKey identifies a single evaluation run across many projects.
	RunIDKey = "run.id"
)

// Project and Data
const (
	// ProjectKey is the project name as used in dataset file names.
	ProjectKey = "project.name"

	// PathKey is the dataset file being read or written.
	PathKey = "data.path"

	// SamplesKey indicates the number of rows in the raw dataset.
	SamplesKey = "data.samples"

	// CleanSamplesKey indicates the number of rows after dropping missing values.
	CleanSamplesKey = "data.samples_clean"

	// FeaturesKey indicates the number of feature columns.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct developer decisions.
	ClassesKey = "data.classes"
)

// Model Selection
const (
	// FoldsKey records the number of cross-validation folds.
	FoldsKey = "cv.folds"

	// FoldKey records the current fold index.
	FoldKey = "cv.fold"

	// CombinationsKey records the number of grid-search parameter combinations.
	CombinationsKey = "grid.combinations"

	// ParamKey records the parameter name of a validation curve.
	ParamKey = "grid.param"

	// BestParamsKey records the best parameters of a grid search.
	BestParamsKey = "grid.best_params"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy.
	AccuracyKey = "metrics.accuracy"

	// BaselineKey records the majority-class baseline accuracy.
	BaselineKey = "metrics.baseline"

	// ImprovementKey records the normalized improvement over the baseline.
	ImprovementKey = "metrics.improvement"

	// ScoreKey records a generic cross-validation score.
	ScoreKey = "metrics.score"
)

// Error Context
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit             = "fit"
	OperationPredict         = "predict"
	OperationCrossValidate   = "cross_validate"
	OperationGridSearch      = "grid_search"
	OperationValidationCurve = "validation_curve"
	OperationEvaluate        = "evaluate"
	OperationLoad            = "load"
	OperationDownload        = "download"
	OperationPlot            = "plot"
)
