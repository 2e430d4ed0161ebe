// Standard attribute keys for logging model fitting and cross-validation.
//
// Keys follow a hierarchical naming convention ("model.name",
// "data.samples") so that logs can be filtered by category.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the type of estimator.
	// Examples: "SVC", "StandardScaler", "Pipeline"
	ModelNameKey = "model.name"

	// EstimatorIDKey provides a unique identifier for a specific estimator instance.
	EstimatorIDKey = "estimator.id"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "transform", "score", "validation_curve"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "svm", "model_selection", "datasets"
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"

	// RunIDKey identifies one invocation of the command line tool.
	RunIDKey = "run.id"

	// CVRunIDKey identifies one ValidationCurve call, so its fold logs can be
	// told apart from other curves within the same run.
	CVRunIDKey = "cv.run_id"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ClassesKey indicates the number of distinct class labels.
	ClassesKey = "data.classes"

	// DataSourceKey records where a dataset came from (file path or "generated").
	DataSourceKey = "data.source"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records model accuracy for evaluation operations.
	AccuracyKey = "metrics.accuracy"

	// TrainScoreKey and TestScoreKey record the scores of one fold.
	TrainScoreKey = "metrics.train_score"
	TestScoreKey  = "metrics.test_score"

	// IterationKey records the iteration count of an iterative solver.
	IterationKey = "training.iteration"

	// SupportVectorsKey records the number of support vectors after a fit.
	SupportVectorsKey = "training.support_vectors"
)

// Cross-validation Context
const (
	// FoldKey records the index of a cross-validation fold.
	FoldKey = "cv.fold"

	// NSplitsKey records the number of cross-validation folds.
	NSplitsKey = "cv.n_splits"

	// NJobsKey records the parallelism of the scorer.
	NJobsKey = "cv.n_jobs"

	// ParamNameKey and ParamValueKey identify the hyperparameter being varied.
	ParamNameKey  = "cv.param_name"
	ParamValueKey = "cv.param_value"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RegularizationKey records the SVM penalty C.
	RegularizationKey = "hyperparams.regularization"

	// GammaKey records the kernel coefficient actually used by a fit.
	GammaKey = "hyperparams.gamma"

	// KernelKey records the kernel name.
	KernelKey = "hyperparams.kernel"

	// RandomSeedKey records the random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute values.
const (
	OperationFit             = "fit"
	OperationPredict         = "predict"
	OperationTransform       = "transform"
	OperationScore           = "score"
	OperationValidationCurve = "validation_curve"
	OperationLoad            = "load"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhasePreprocessing = "preprocessing"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
	ErrorConvergence       = "CONVERGENCE_FAILURE"
)
