// Package config loads decisionlab settings from a YAML file, environment
// variables prefixed with DECISIONLAB_ and command-line flags bound by the
// CLI.
package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/model_selection"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "DECISIONLAB"

// DefaultConfigName is the config file looked up when none is given.
const DefaultConfigName = "decisionlab"

// Settings is the complete configuration.
type Settings struct {
	Paths      Paths           `mapstructure:"paths" yaml:"paths"`
	Evaluation Evaluation      `mapstructure:"evaluation" yaml:"evaluation"`
	Estimators []Estimator     `mapstructure:"estimators" yaml:"estimators"`
	GridSearch GridSearch      `mapstructure:"gridsearch" yaml:"gridsearch"`
	Curve      ValidationCurve `mapstructure:"curve" yaml:"curve"`
	Log        Log             `mapstructure:"log" yaml:"log"`
	Output     Output          `mapstructure:"output" yaml:"output"`
}

// Paths are the locations of the mining pipeline artifacts. Paths left
// empty are derived from DataPath.
type Paths struct {
	DataPath                string `mapstructure:"data" yaml:"data"`
	InitialDataset          string `mapstructure:"initial_dataset" yaml:"initial_dataset"`
	InitialDatasetTest      string `mapstructure:"initial_dataset_test" yaml:"initial_dataset_test"`
	ReposPath               string `mapstructure:"repos" yaml:"repos"`
	MacToolPath             string `mapstructure:"mac_tool" yaml:"mac_tool"`
	MacToolOutput           string `mapstructure:"mac_tool_output" yaml:"mac_tool_output"`
	MacToolFiles            string `mapstructure:"mac_tool_files" yaml:"mac_tool_files"`
	LabelledDataset         string `mapstructure:"labelled_dataset" yaml:"labelled_dataset"`
	SelectedProjectsDataset string `mapstructure:"selected_projects_dataset" yaml:"selected_projects_dataset"`
	DatasetDownloadLink     string `mapstructure:"dataset_download_link" yaml:"dataset_download_link"`
	LogsPath                string `mapstructure:"logs" yaml:"logs"`
	ProjectsPath            string `mapstructure:"projects" yaml:"projects"`
}

// Evaluation holds the cross-validation knobs shared by every command.
type Evaluation struct {
	Projects          []string      `mapstructure:"projects" yaml:"projects"`
	LabelColumn       string        `mapstructure:"label_column" yaml:"label_column"`
	NonFeatureColumns []string      `mapstructure:"non_feature_columns" yaml:"non_feature_columns"`
	Folds             int           `mapstructure:"folds" yaml:"folds"`
	MinObservations   int           `mapstructure:"min_observations" yaml:"min_observations"`
	DropNA            bool          `mapstructure:"drop_na" yaml:"drop_na"`
	Workers           int           `mapstructure:"workers" yaml:"workers"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
	SortBy            string        `mapstructure:"sort_by" yaml:"sort_by"`
	IncludeOverall    bool          `mapstructure:"include_overall" yaml:"include_overall"`
}

// Estimator names an estimator type and its parameters.
type Estimator struct {
	Name   string         `mapstructure:"name" yaml:"name"`
	Type   string         `mapstructure:"type" yaml:"type"`
	Params map[string]any `mapstructure:"params" yaml:"params"`
}

// Label returns Name, or Type when no name is set.
func (e Estimator) Label() string {
	if e.Name != "" {
		return e.Name
	}
	return e.Type
}

// ModelParams returns the parameters as model.Params.
func (e Estimator) ModelParams() model.Params {
	return model.Params(e.Params).Copy()
}

// GridSearch configures the medal leaderboard.
type GridSearch struct {
	Estimator Estimator                     `mapstructure:"estimator" yaml:"estimator"`
	Params    model_selection.ParameterGrid `mapstructure:"params" yaml:"params"`
}

// ValidationCurve configures the validation curve plots.
type ValidationCurve struct {
	Estimator Estimator `mapstructure:"estimator" yaml:"estimator"`
	Param     string    `mapstructure:"param" yaml:"param"`
	Values    []any     `mapstructure:"values" yaml:"values"`
	OutputDir string    `mapstructure:"output_dir" yaml:"output_dir"`
}

// Log configures the global logger.
type Log struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"` // console, json or slog
}

// Output configures how tables are printed.
type Output struct {
	Format string `mapstructure:"format" yaml:"format"` // table, csv or yaml
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("paths.data", "../data")
	v.SetDefault("paths.repos", "../repos")
	v.SetDefault("paths.mac_tool", "macTool.jar")
	v.SetDefault("paths.dataset_download_link",
		"https://drive.google.com/uc?export=download&confirm=iIXP&id=1OwMq81W2xajsHuG6HKBzZoL0Fp3_HL5d")
	v.SetDefault("paths.projects", "../../data/projects")

	v.SetDefault("evaluation.projects", []string{})
	v.SetDefault("evaluation.label_column", "developerdecision")
	v.SetDefault("evaluation.non_feature_columns", []string{})
	v.SetDefault("evaluation.folds", 10)
	v.SetDefault("evaluation.min_observations", 10)
	v.SetDefault("evaluation.drop_na", true)
	v.SetDefault("evaluation.workers", runtime.NumCPU())
	v.SetDefault("evaluation.cache_ttl", 10*time.Minute)
	v.SetDefault("evaluation.sort_by", "improvement")
	v.SetDefault("evaluation.include_overall", true)

	v.SetDefault("estimators", []map[string]any{
		{"name": "Decision Tree", "type": "DecisionTreeClassifier", "params": map[string]any{"random_state": 99}},
		{"name": "Random Forest", "type": "RandomForestClassifier", "params": map[string]any{"random_state": 99}},
		{"name": "Gaussian NB", "type": "GaussianNB"},
		{"name": "Logistic Regression", "type": "StandardScaler+LogisticRegression", "params": map[string]any{"max_iter": 200}},
		{"name": "Majority", "type": "DummyClassifier", "params": map[string]any{"strategy": "most_frequent"}},
	})

	v.SetDefault("gridsearch.estimator.type", "DecisionTreeClassifier")
	v.SetDefault("gridsearch.estimator.params", map[string]any{"random_state": 99})
	v.SetDefault("gridsearch.params", []map[string]any{
		{"name": "criterion", "values": []any{"gini", "entropy"}},
		{"name": "max_depth", "values": []any{nil, 3, 5, 10}},
		{"name": "min_samples_leaf", "values": []any{1, 5, 10}},
	})

	v.SetDefault("curve.estimator.type", "DecisionTreeClassifier")
	v.SetDefault("curve.estimator.params", map[string]any{"random_state": 99})
	v.SetDefault("curve.param", "max_depth")
	v.SetDefault("curve.values", []any{nil, 1, 2, 3, 4, 5, 10, 15, 20})
	v.SetDefault("curve.output_dir", ".")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("output.format", "table")
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file at path into v and decodes the settings. An
// empty path searches the working directory for decisionlab.yaml; a missing
// file is not an error in that case.
func Load(v *viper.Viper, path string) (*Settings, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}
	return Decode(v)
}

// Decode unmarshals the settings held by v, fills derived paths and
// validates the result.
func Decode(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	settings.Paths.derive()
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (p *Paths) derive() {
	fill := func(dst *string, name string) {
		if *dst == "" {
			*dst = filepath.Join(p.DataPath, name)
		}
	}
	fill(&p.InitialDataset, "INITIAL_DATASET.csv")
	fill(&p.InitialDatasetTest, "INITIAL_DATASET_test.csv")
	fill(&p.MacToolOutput, "macTool_output")
	fill(&p.MacToolFiles, "macTool_output.zip")
	fill(&p.LabelledDataset, "LABELLED_DATASET.csv")
	fill(&p.SelectedProjectsDataset, "SELECTED_LABELLED_DATASET.csv")
	fill(&p.LogsPath, "logs")
}

// Validate checks the evaluation knobs.
func (s *Settings) Validate() error {
	e := s.Evaluation
	switch {
	case e.LabelColumn == "":
		return errors.NewValidationError("evaluation.label_column", "must not be empty", e.LabelColumn)
	case e.Folds < 2:
		return errors.NewValidationError("evaluation.folds", "must be >= 2", e.Folds)
	case e.MinObservations < 0:
		return errors.NewValidationError("evaluation.min_observations", "must be >= 0", e.MinObservations)
	case e.Workers < 1:
		return errors.NewValidationError("evaluation.workers", "must be >= 1", e.Workers)
	}
	for _, est := range s.Estimators {
		if est.Type == "" {
			return errors.NewValidationError("estimators", "every estimator needs a type", est.Name)
		}
	}
	switch s.Output.Format {
	case "table", "csv", "yaml":
	default:
		return errors.NewValidationError("output.format", "must be table, csv or yaml", s.Output.Format)
	}
	return nil
}
