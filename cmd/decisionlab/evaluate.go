package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/decisionlab/core/model"
	"github.com/YuminosukeSato/decisionlab/evaluation"
	"github.com/YuminosukeSato/decisionlab/plot"
	"github.com/YuminosukeSato/decisionlab/table"
)

func evaluateCommand(a *app) *cobra.Command {
	var (
		estimatorName string
		sortBy        string
		noOverall     bool
		showReports   bool
		snapshot      string
		heatmapDir    string
	)
	cmd := &cobra.Command{
		Use:   "evaluate [project...]",
		Short: "Cross-validate one estimator on every project",
		Long: `Predicts every chunk of each project with out-of-fold cross-validation
and reports precision, recall, F1 and accuracy against the majority-class
baseline. Projects with fewer clean observations than the threshold get an
empty row.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.projects(args)
			if err != nil {
				return err
			}
			est, label, err := a.estimator(estimatorName)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("sort-by") {
				sortBy = a.settings.Evaluation.SortBy
			}
			if !cmd.Flags().Changed("no-overall") {
				noOverall = !a.settings.Evaluation.IncludeOverall
			}

			results, err := evaluation.NewProjectsResults(cmd.Context(), est, projects, a.options()...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if showReports {
				for _, r := range results.Results {
					if r.Evaluated() {
						fmt.Fprintf(out, "%s\n%s\n", r.Name, r.ReportText)
					}
				}
			}
			if heatmapDir != "" {
				for _, r := range results.Results {
					if !r.Evaluated() {
						continue
					}
					fig, err := plot.ClassificationReportHeatmap(r.Report, fmt.Sprintf("Classification report %s (%s)", r.Name, label))
					if err != nil {
						return err
					}
					if err := fig.Save(filepath.Join(heatmapDir, r.Name+"_classification_report.png")); err != nil {
						return err
					}
				}
			}
			if snapshot != "" {
				if err := evaluation.SaveSnapshot(snapshot, results); err != nil {
					return err
				}
			}

			report, err := results.Report(!noOverall, sortBy)
			if err != nil {
				return err
			}
			return table.Write(out, report, a.settings.Output.Format)
		},
	}
	cmd.Flags().StringVarP(&estimatorName, "estimator", "e", "", "configured estimator name or estimator type (default: first configured)")
	cmd.Flags().StringVar(&sortBy, "sort-by", "", "report column to sort by, descending")
	cmd.Flags().BoolVar(&noOverall, "no-overall", false, "omit the Overall row")
	cmd.Flags().BoolVar(&showReports, "reports", false, "print the classification report of every project")
	cmd.Flags().StringVar(&snapshot, "snapshot", "", "save the results as a msgpack snapshot")
	cmd.Flags().StringVar(&heatmapDir, "heatmaps", "", "directory for classification report heatmaps")
	return cmd
}

func compareCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare [project...]",
		Short: "Compare the overall results of every configured estimator",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.projects(args)
			if err != nil {
				return err
			}
			var (
				estimators = make([]model.Estimator, 0, len(a.settings.Estimators))
				names      = make([]string, 0, len(a.settings.Estimators))
			)
			for _, e := range a.settings.Estimators {
				est, err := newEstimator(e)
				if err != nil {
					return err
				}
				estimators = append(estimators, est)
				names = append(names, e.Label())
			}
			comparison, err := evaluation.CompareModels(cmd.Context(), estimators, names, projects, a.options()...)
			if err != nil {
				return err
			}
			return table.Write(cmd.OutOrStdout(), comparison, a.settings.Output.Format)
		},
	}
}

func distributionCommand(a *app) *cobra.Command {
	var normalized bool
	cmd := &cobra.Command{
		Use:   "distribution [project...]",
		Short: "Count the developer decisions of every project",
		RunE: func(cmd *cobra.Command, args []string) error {
			projects, err := a.projects(args)
			if err != nil {
				return err
			}
			dist, err := evaluation.ProjectsClassDistribution(cmd.Context(), projects, normalized, a.options()...)
			if err != nil {
				return err
			}
			return table.Write(cmd.OutOrStdout(), dist, a.settings.Output.Format)
		},
	}
	cmd.Flags().BoolVarP(&normalized, "normalized", "n", false, "percentages instead of counts")
	return cmd
}
