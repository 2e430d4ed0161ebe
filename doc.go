// Package valcurve computes and plots validation curves for kernel support
// vector classifiers in Go.
//
// A validation curve shows how the training and cross-validation scores of a
// model change as one hyperparameter varies. Training score rising while the
// validation score falls marks overfitting, both scores low marks
// underfitting.
//
// # Quick Start
//
// The command in examples/validation_curve reproduces the classic RBF SVC
// gamma sweep on the 8×8 digits dataset:
//
//	go run ./examples/validation_curve
//
// The same steps from code:
//
//	ds, err := datasets.LoadDigits()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	gammas, _ := model_selection.LogSpace(-6, -1, 5)
//	result, err := model_selection.ValidationCurve(ctx, svm.NewSVC(), ds.X, ds.Y,
//	    "gamma", gammas, model_selection.WithCV(10))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	summary, _ := model_selection.Summarize(result)
//	p, _ := visualization.NewValidationCurvePlot(summary)
//	_ = visualization.Save(p, "validation_curve.png", visualization.DefaultWidth, visualization.DefaultHeight)
//
// # Packages
//
//   - sklearn/datasets: digits loader (optdigits files or built-in generator)
//   - sklearn/svm: C-SVC with SMO and one-vs-one multiclass
//   - sklearn/model_selection: KFold, StratifiedKFold, ValidationCurve, Summarize, Diagnose
//   - sklearn/pipeline: scaler + estimator chains with step__param routing
//   - preprocessing: StandardScaler, MinMaxScaler
//   - metrics: accuracy, balanced accuracy, confusion matrix
//   - visualization: gonum/plot chart and JSON export
//   - core/model: estimator interfaces and fitted-state tracking
//   - core/parallel: CPU-parallel loops
//   - pkg/errors, pkg/log, pkg/config: error types, logging, configuration
package valcurve
