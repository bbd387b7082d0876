package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/dataset"
	"github.com/YuminosukeSato/decisionlab/evaluation"
	"github.com/YuminosukeSato/decisionlab/pkg/config"
	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
	"github.com/YuminosukeSato/decisionlab/sklearn"
)

// app carries the settings shared by every sub-command.
type app struct {
	v          *viper.Viper
	configPath string
	settings   *config.Settings
	loader     *dataset.Loader
	logger     log.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "decisionlab",
		Short:         "Evaluate merge-conflict resolution classifiers per project",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initialize(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default ./decisionlab.yaml)")
	flags.String("log-level", "info", "log level: debug, info, warn or error")
	flags.String("projects-path", "", "directory holding the <owner>__<repo>-training.csv tables")
	flags.Int("workers", 0, "projects processed in parallel")
	flags.String("format", "table", "output format: table, csv or yaml")
	bindFlags(a.v, flags, map[string]string{
		"log.level":          "log-level",
		"paths.projects":     "projects-path",
		"evaluation.workers": "workers",
		"output.format":      "format",
	})

	root.AddCommand(
		evaluateCommand(a),
		compareCommand(a),
		distributionCommand(a),
		gridSearchCommand(a),
		curveCommand(a),
		downloadCommand(a),
		estimatorsCommand(),
	)
	return root
}

// bindFlags binds viper keys to flags. Unset flags leave the config file,
// environment and defaults in charge.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

// initialize loads the settings and sets up logging before a command runs.
func (a *app) initialize(logOutput io.Writer) error {
	settings, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	if err := setupLogging(settings.Log, logOutput); err != nil {
		return err
	}
	a.settings = settings
	a.loader = dataset.NewLoader(settings.Paths.ProjectsPath, settings.Evaluation.CacheTTL)
	a.logger = log.GetLoggerWithName("cli")
	a.logger.Debug("Configuration loaded",
		"config", a.v.ConfigFileUsed(),
		log.PathKey, settings.Paths.ProjectsPath,
	)
	return nil
}

func setupLogging(cfg config.Log, w io.Writer) error {
	level, ok := log.ParseLevel(cfg.Level)
	if !ok {
		return errors.NewValidationError("log.level", "must be debug, info, warn or error", cfg.Level)
	}
	switch cfg.Format {
	case "console", "":
		log.SetProvider(log.NewConsoleProvider(w, level))
	case "json":
		log.SetProvider(log.NewZerologProvider(w, level))
	case "slog":
		log.SetProvider(log.NewSlogProvider(w, level))
	default:
		return errors.NewValidationError("log.format", "must be console, json or slog", cfg.Format)
	}
	return nil
}

// options turns the evaluation settings into evaluation options.
func (a *app) options() []evaluation.Option {
	e := a.settings.Evaluation
	return []evaluation.Option{
		evaluation.WithLoader(a.loader),
		evaluation.WithLabelColumn(e.LabelColumn),
		evaluation.WithNonFeatureColumns(e.NonFeatureColumns),
		evaluation.WithFolds(e.Folds),
		evaluation.WithMinObservations(e.MinObservations),
		evaluation.WithDropNA(e.DropNA),
		evaluation.WithWorkers(e.Workers),
	}
}

// projects returns the projects named on the command line, or the
// configured ones.
func (a *app) projects(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if len(a.settings.Evaluation.Projects) == 0 {
		return nil, errors.NewValidationError("evaluation.projects", "no projects given on the command line or in the config", nil)
	}
	return a.settings.Evaluation.Projects, nil
}

// estimator returns the configured estimator labelled name, or the first
// one when name is empty.
func (a *app) estimator(name string) (model.Estimator, string, error) {
	for _, e := range a.settings.Estimators {
		if name == "" || e.Label() == name || e.Type == name {
			est, err := sklearn.New(e.Type, e.ModelParams())
			return est, e.Label(), err
		}
	}
	if name != "" {
		est, err := sklearn.New(name, nil)
		return est, name, err
	}
	return nil, "", errors.NewValidationError("estimators", "no estimator configured", nil)
}

func newEstimator(e config.Estimator) (model.Estimator, error) {
	return sklearn.New(e.Type, e.ModelParams())
}
