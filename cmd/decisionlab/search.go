package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/decisionlab/dataset"
	"github.com/YuminosukeSato/decisionlab/evaluation"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
	"github.com/YuminosukeSato/decisionlab/plot"
	"github.com/YuminosukeSato/decisionlab/sklearn"
	"github.com/YuminosukeSato/decisionlab/table"
)

func gridSearchCommand(a *app) *cobra.Command {
	var sortBy string
	cmd := &cobra.Command{
		Use:   "gridsearch [project...]",
		Short: "Award medals to the best parameter combinations of every project",
		Long: `Runs a cross-validated grid search on every project. The combinations
ranked first, second and third in a project win a gold, silver and bronze
medal; mean_accuracy averages the scores of the medals won.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.projects(args)
			if err != nil {
				return err
			}
			gs := a.settings.GridSearch
			est, err := newEstimator(gs.Estimator)
			if err != nil {
				return err
			}
			board, err := evaluation.GridSearchAll(cmd.Context(), est, projects, gs.Params, a.options()...)
			if err != nil {
				return err
			}
			if sortBy != "" {
				if err := board.SortBy(sortBy); err != nil {
					return err
				}
			}
			return table.Write(cmd.OutOrStdout(), board, a.settings.Output.Format)
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "leaderboard column to sort by, descending")
	return cmd
}

func curveCommand(a *app) *cobra.Command {
	var noPlots bool
	cmd := &cobra.Command{
		Use:   "curve [project...]",
		Short: "Plot validation curves per project and accumulated over projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.projects(args)
			if err != nil {
				return err
			}
			c := a.settings.Curve
			est, err := newEstimator(c.Estimator)
			if err != nil {
				return err
			}
			summary, err := evaluation.ValidationCurveAll(cmd.Context(), est, projects, c.Param, c.Values, a.options()...)
			if err != nil {
				return err
			}
			if !noPlots && summary.Projects > 0 {
				grid, err := plot.ValidationCurves(summary.Curves)
				if err != nil {
					return err
				}
				path := filepath.Join(c.OutputDir, plot.ValidationCurveFile(est.Name(), c.Param))
				if err := grid.Save(path); err != nil {
					return err
				}
				accumulated, err := plot.AccumulatedValidationCurve(summary)
				if err != nil {
					return err
				}
				accPath := filepath.Join(c.OutputDir, fmt.Sprintf("accumulated_validation_curve_%s_%s.png", est.Name(), c.Param))
				if err := accumulated.Save(accPath); err != nil {
					return err
				}
				a.logger.Info("Validation curves saved", log.PathKey, path, "accumulated", accPath)
			}
			return table.Write(cmd.OutOrStdout(), summary, a.settings.Output.Format)
		},
	}
	cmd.Flags().BoolVar(&noPlots, "no-plots", false, "only print the accumulated scores")
	return cmd
}

func downloadCommand(a *app) *cobra.Command {
	var url, dest string
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download and extract the labelled dataset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if url == "" {
				url = a.settings.Paths.DatasetDownloadLink
			}
			if dest == "" {
				dest = a.settings.Paths.DataPath
			}
			files, err := dataset.Download(cmd.Context(), nil, url, dest)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "dataset URL (default: paths.dataset_download_link)")
	cmd.Flags().StringVar(&dest, "dest", "", "destination directory (default: paths.data)")
	return cmd
}

func estimatorsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "estimators",
		Short: "List the estimator types that can be configured",
		// Listing needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			for _, name := range sklearn.Names() {
				fmt.Fprintln(out, name)
			}
			fmt.Fprintf(out, "\nPipeline steps (<step>+<estimator>):\n")
			for _, name := range sklearn.TransformerNames() {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}
