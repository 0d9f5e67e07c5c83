// Standard attribute keys for estimator logging. Keys follow a hierarchical
// naming convention ("model.name", "data.samples") so records can be filtered
// by prefix.

package log

// Model and Operation Context
const (
	// ModelNameKey identifies the estimator type, e.g. "DecisionTreeClassifier".
	ModelNameKey = "model.name"

	// OperationKey specifies the operation being performed.
	// Standard values: "fit", "predict", "predict_proba", "score"
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is performing the operation.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of model lifecycle.
	PhaseKey = "ml.phase"
)

// Data Shape and Characteristics
const (
	// SamplesKey indicates the number of samples (rows) in the dataset.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of features (columns) in the dataset.
	FeaturesKey = "data.features"

	// ObservationsKey is the number of rows drawn for training, which
	// differs from SamplesKey under bootstrap.
	ObservationsKey = "data.observations"

	// ClassesKey is the number of target classes.
	ClassesKey = "data.classes"

	// LayoutKey is the memory order of a raw input buffer.
	LayoutKey = "data.layout"
)

// Performance Metrics
const (
	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"

	// AccuracyKey records classification accuracy.
	AccuracyKey = "metrics.accuracy"
)

// Tree Structure
const (
	// TreeDepthKey is the depth of the deepest node.
	TreeDepthKey = "tree.depth"

	// TreeNodesKey is the total number of nodes.
	TreeNodesKey = "tree.nodes"

	// TreeLeavesKey is the number of leaves.
	TreeLeavesKey = "tree.leaves"

	// CriterionKey is the impurity criterion in use.
	CriterionKey = "tree.criterion"

	// BuildOrderKey is the node expansion order.
	BuildOrderKey = "tree.build_order"

	// SortMethodKey is the sample sorting strategy.
	SortMethodKey = "tree.sort_method"
)

// Prediction and Output Context
const (
	// PredsKey indicates the number of predictions made.
	PredsKey = "preds.count"
)

// Error and Warning Context
const (
	// ErrorCodeKey provides a structured error code for programmatic handling.
	ErrorCodeKey = "error.code"

	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// ErrorKindKey carries the errors.Kind classification.
	ErrorKindKey = "error.kind"

	// SuggestionKey provides helpful suggestions for resolving issues.
	SuggestionKey = "error.suggestion"
)

// Hyperparameters and Configuration
const (
	// HyperParamsKey contains model hyperparameters as a structured object.
	HyperParamsKey = "model.hyperparams"

	// RandomSeedKey records the resolved random seed for reproducibility.
	RandomSeedKey = "config.random_seed"
)

// Standard attribute value constants for common operations.
const (
	OperationFit             = "fit"
	OperationPredict         = "predict"
	OperationPredictProba    = "predict_proba"
	OperationPredictLogProba = "predict_log_proba"
	OperationScore           = "score"

	PhaseTraining  = "training"
	PhaseInference = "inference"

	ErrorNotFitted         = "NOT_FITTED"
	ErrorDimensionMismatch = "DIMENSION_MISMATCH"
	ErrorEmptyData         = "EMPTY_DATA"
	ErrorInvalidInput      = "INVALID_INPUT"
)
