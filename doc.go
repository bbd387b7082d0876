// Package decisionlab evaluates how well classifiers predict the developer
// decision that resolved each merge-conflict chunk of a project.
//
// Every project has a training table of chunk features labelled with the
// developer decision. decisionlab cross-validates a scikit-learn style
// estimator on each project and reports, per project and overall, the
// weighted precision, recall, F1 and accuracy next to the majority-class
// baseline and the normalized improvement over it.
//
// # Packages
//
//   - dataset: project tables, NA handling, label encoding, cached loading
//   - metrics: classification report, confusion matrix, baseline
//   - model_selection: stratified folds, out-of-fold predictions, grid
//     search, validation curves
//   - sklearn: decision tree, random forest, Gaussian naive Bayes, logistic
//     regression, dummy classifiers and scaler pipelines, built by type name
//   - evaluation: project reports, model comparison, class distribution,
//     grid-search medal leaderboard, accumulated validation curves
//   - plot, table: PNG figures and terminal tables
//   - cmd/decisionlab: the command-line tool
//
// # Quick Start
//
//	est, _ := sklearn.New("DecisionTreeClassifier", model.Params{"random_state": 99})
//	results, err := evaluation.NewProjectsResults(ctx, est, []string{"apache/kafka"},
//	    evaluation.WithProjectsPath("../../data/projects"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, _ := results.Report(true, evaluation.ColumnImprovement)
//	fmt.Println(table.Render(report))
package decisionlab
