package tree

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treeml/core/dense"
	"github.com/YuminosukeSato/treeml/core/model"
	"github.com/YuminosukeSato/treeml/core/parallel"
	"github.com/YuminosukeSato/treeml/metrics"
	"github.com/YuminosukeSato/treeml/pkg/errors"
	"github.com/YuminosukeSato/treeml/pkg/log"
)

const modelName = "DecisionTreeClassifier"

// predictParallelThreshold is the row count above which prediction fans out
// over CPU cores.
const predictParallelThreshold = 2048

// DecisionTreeClassifier is a CART-style classification tree grown greedily
// from the root. Compatible with scikit-learn's DecisionTreeClassifier.
//
// A fitted classifier is read-only during prediction and may be shared
// between goroutines; Fit and SetParams must not run concurrently with any
// other call.
type DecisionTreeClassifier struct {
	state *model.StateManager // State management (composition)

	// Hyperparameters
	criterion           Criterion  // Impurity measure
	maxDepth            int        // Maximum depth; 0 means a single leaf
	minSamplesSplit     int        // Minimum samples for a node to be split
	minSamplesLeaf      int        // Minimum samples on each side of a split
	minImpurityDecrease float64    // Required decrease of the weighted impurity
	minSplitScore       float64    // Nodes at or below this impurity are not split
	maxFeatures         int        // Candidate features per node; 0 means all
	randomState         int64      // Random seed; -1 draws one
	featThresh          float64    // Adjacent values closer than this are not split apart
	buildOrder          BuildOrder // Node expansion order
	sortMethod          SortMethod // Per-node sorting algorithm
	bootstrap           bool       // Draw the training rows with replacement
	nObs                int        // Bootstrap sample size; 0 means n_samples
	sampleSubset        []int      // Fixed bootstrap rows (testing aid)
	predictProba        bool       // Track class proportions in every node
	nClasses            int        // Number of classes; 0 infers max(y)+1
	printTimings        bool       // Log per-phase durations

	logger log.Logger

	// Model parameters
	tree_      *Tree
	classes_   []int
	nClasses_  int
	nFeatures_ int
	nSamples_  int
	nObs_      int
	seed_      int64

	// Working memory of the last fit
	builder *builder
}

// DecisionTreeOption is a functional option for DecisionTreeClassifier.
type DecisionTreeOption func(*DecisionTreeClassifier)

// NewDecisionTreeClassifier creates a classifier with the given options.
func NewDecisionTreeClassifier(opts ...DecisionTreeOption) *DecisionTreeClassifier {
	dt := &DecisionTreeClassifier{
		state:           model.NewStateManager(),
		criterion:       Gini,
		maxDepth:        29,
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     0,
		randomState:     -1,
		featThresh:      1e-6,
		buildOrder:      BreadthFirst,
		sortMethod:      RadixSort,
		predictProba:    true,
	}

	for _, opt := range opts {
		opt(dt)
	}
	if dt.logger == nil {
		dt.logger = log.GetLoggerWithName("tree.classifier")
	}
	dt.logger = dt.logger.With(log.ModelNameKey, modelName)

	return dt
}

// WithCriterion sets the impurity measure: "gini", "entropy" or
// "misclassification". Unknown names are reported by Fit.
func WithCriterion(criterion string) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		if c, err := ParseCriterion(criterion); err == nil {
			dt.criterion = c
		} else {
			dt.criterion = Criterion(criterion)
		}
	}
}

// WithMaxDepth sets the maximum depth of the tree.
func WithMaxDepth(depth int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxDepth = depth
	}
}

// WithMinSamplesSplit sets the minimum number of samples a node needs to be
// considered for splitting.
func WithMinSamplesSplit(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesSplit = n
	}
}

// WithMinSamplesLeaf sets the minimum number of samples on each side of a split.
func WithMinSamplesLeaf(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSamplesLeaf = n
	}
}

// WithMinImpurityDecrease sets the minimum decrease of impurity a split must bring.
func WithMinImpurityDecrease(v float64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minImpurityDecrease = v
	}
}

// WithMinSplitScore sets the impurity at or below which a node is not split.
func WithMinSplitScore(v float64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.minSplitScore = v
	}
}

// WithMaxFeatures sets the number of features tried at each node.
func WithMaxFeatures(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.maxFeatures = n
	}
}

// WithRandomState sets the random seed. A negative seed draws a fresh one at
// each fit; the seed used is reported by Info.
func WithRandomState(seed int64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.randomState = seed
	}
}

// WithFeatureThreshold sets the minimum gap between two sorted feature
// values for a split to be placed between them.
func WithFeatureThreshold(v float64) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.featThresh = v
	}
}

// WithBuildOrder sets the node expansion order.
func WithBuildOrder(order BuildOrder) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.buildOrder = order
	}
}

// WithSortMethod sets the sorting algorithm used at every node.
func WithSortMethod(method SortMethod) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.sortMethod = method
	}
}

// WithBootstrap enables sampling the training rows with replacement.
func WithBootstrap(bootstrap bool) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.bootstrap = bootstrap
	}
}

// WithNObs sets the bootstrap sample size.
func WithNObs(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.nObs = n
	}
}

// WithSampleSubset fixes the bootstrap rows instead of drawing them. The
// indices are not validated.
func WithSampleSubset(rows []int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.sampleSubset = rows
	}
}

// WithPredictProba enables tracking class proportions for PredictProba.
func WithPredictProba(enabled bool) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.predictProba = enabled
	}
}

// WithNClasses sets the number of classes.
func WithNClasses(n int) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.nClasses = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.logger = logger
	}
}

// WithPrintTimings logs the duration of each fit phase at info level.
func WithPrintTimings(enabled bool) DecisionTreeOption {
	return func(dt *DecisionTreeClassifier) {
		dt.printTimings = enabled
	}
}

// validate checks hyperparameters that do not depend on the data.
func (dt *DecisionTreeClassifier) validate() (Criterion, error) {
	c, err := ParseCriterion(string(dt.criterion))
	if err != nil {
		return "", err
	}
	switch {
	case dt.maxDepth < 0:
		return "", errors.NewValidationError("max_depth", "must be non-negative", dt.maxDepth)
	case dt.minSamplesSplit < 0:
		return "", errors.NewValidationError("min_samples_split", "must be non-negative", dt.minSamplesSplit)
	case dt.minSamplesLeaf < 1:
		return "", errors.NewValidationError("min_samples_leaf", "must be at least 1", dt.minSamplesLeaf)
	case dt.maxFeatures < 0:
		return "", errors.NewValidationError("max_features", "must be non-negative", dt.maxFeatures)
	case dt.featThresh < 0 || math.IsNaN(dt.featThresh):
		return "", errors.NewValidationError("feat_thresh", "must be non-negative", dt.featThresh)
	case math.IsNaN(dt.minImpurityDecrease):
		return "", errors.NewValidationError("min_impurity_decrease", "must be a number", dt.minImpurityDecrease)
	case math.IsNaN(dt.minSplitScore):
		return "", errors.NewValidationError("min_split_score", "must be a number", dt.minSplitScore)
	case dt.nClasses < 0:
		return "", errors.NewValidationError("n_classes", "must be non-negative", dt.nClasses)
	}
	return c, nil
}

// Fit grows the tree on X (n_samples x n_features) and the labels y
// (n_samples x 1, non-negative integers). Column-major input (a transposed
// *mat.Dense) is used in place.
func (dt *DecisionTreeClassifier) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.Fit")

	if X == nil {
		return errors.NewPointerError("Fit", "X")
	}
	if y == nil {
		return errors.NewPointerError("Fit", "y")
	}
	nSamples, _ := X.Dims()
	yRows, yCols := y.Dims()
	if yRows != nSamples {
		return errors.NewDimensionError("Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewValueError("Fit", fmt.Sprintf("y must be a column vector: got shape (%d, %d)", yRows, yCols))
	}
	labels := make([]int, nSamples)
	for i := range labels {
		v := y.At(i, 0)
		c := int(v)
		if float64(c) != v || c < 0 {
			return errors.NewValueError("Fit", fmt.Sprintf("label %v at row %d is not a non-negative integer", v, i))
		}
		labels[i] = c
	}
	return dt.fit(X, labels)
}

// FitLayout is Fit over a caller buffer of rows x cols values with leading
// dimension ld, stored in the given order, and integer labels.
func (dt *DecisionTreeClassifier) FitLayout(order dense.Order, rows, cols int, data []float64, ld int, labels []int) (err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier.FitLayout")

	X, err := dense.View(order, rows, cols, data, ld)
	if err != nil {
		return err
	}
	if labels == nil {
		return errors.NewPointerError("FitLayout", "labels")
	}
	if len(labels) != rows {
		return errors.NewDimensionError("FitLayout", rows, len(labels), 0)
	}
	for i, c := range labels {
		if c < 0 {
			return errors.NewValueError("FitLayout", fmt.Sprintf("label %d at row %d is negative", c, i))
		}
	}
	return dt.fit(X, labels)
}

func (dt *DecisionTreeClassifier) fit(X mat.Matrix, labels []int) error {
	// a failed fit leaves the model untrained
	dt.Refresh()

	criterion, err := dt.validate()
	if err != nil {
		return err
	}
	if err := errors.CheckMatrix("Fit", X); err != nil {
		return err
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.NewValueError("Fit", fmt.Sprintf("empty training matrix %dx%d", nSamples, nFeatures))
	}

	nClasses := dt.nClasses
	maxLabel := 0
	for _, c := range labels {
		if c > maxLabel {
			maxLabel = c
		}
	}
	if nClasses == 0 {
		nClasses = maxLabel + 1
	} else if maxLabel >= nClasses {
		return errors.NewValueError("Fit", fmt.Sprintf("label %d is out of range for n_classes = %d", maxLabel, nClasses))
	}
	if err := checkClassStorage(nClasses, initialCapacity(dt.maxDepth), dt.predictProba); err != nil {
		dt.logger.Error("Class storage exceeds the allocation limit", err, log.ClassesKey, nClasses)
		return err
	}

	nObs := nSamples
	if dt.bootstrap {
		if dt.nObs < 0 || dt.nObs > nSamples {
			return errors.NewValidationError("n_obs", fmt.Sprintf("must be in [0, %d]", nSamples), dt.nObs)
		}
		if dt.nObs > 0 {
			nObs = dt.nObs
		}
		if dt.sampleSubset != nil && len(dt.sampleSubset) < nObs {
			return errors.NewValueError("Fit", fmt.Sprintf("sample subset holds %d rows, need %d", len(dt.sampleSubset), nObs))
		}
	}

	seed := dt.randomState
	if seed < 0 {
		seed = rand.New(rand.NewSource(time.Now().UnixNano())).Int63()
	}

	logger := dt.logger.With(log.OperationKey, log.OperationFit, log.PhaseKey, log.PhaseTraining)
	logger.Debug("Starting decision tree fit",
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.ObservationsKey, nObs,
		log.ClassesKey, nClasses,
		log.LayoutKey, dense.LayoutOf(X).String(),
		log.RandomSeedKey, seed,
	)

	start := time.Now()
	cols := dense.NewColumns(dense.NewAccessor(X))
	b := newBuilder(builderConfig{
		criterion:           criterion,
		maxDepth:            dt.maxDepth,
		minSamplesSplit:     dt.minSamplesSplit,
		minSamplesLeaf:      dt.minSamplesLeaf,
		minImpurityDecrease: dt.minImpurityDecrease,
		minSplitScore:       dt.minSplitScore,
		maxFeatures:         dt.maxFeatures,
		featThresh:          dt.featThresh,
		order:               dt.buildOrder,
		sortMethod:          dt.sortMethod,
		withProba:           dt.predictProba,
	}, cols, labels, nClasses, rand.New(rand.NewSource(seed)))
	b.drawSamples(nObs, dt.bootstrap, dt.sampleSubset)
	setup := time.Since(start)

	start = time.Now()
	t, err := b.build()
	if err != nil {
		logger.Error("Decision tree fit failed", err)
		return err
	}
	grow := time.Since(start)

	dt.tree_ = t
	dt.builder = b
	dt.nClasses_ = nClasses
	dt.classes_ = make([]int, nClasses)
	for c := range dt.classes_ {
		dt.classes_[c] = c
	}
	dt.nFeatures_ = nFeatures
	dt.nSamples_ = nSamples
	dt.nObs_ = nObs
	dt.seed_ = seed
	dt.state.SetDimensions(nFeatures, nSamples)
	dt.state.SetFitted()

	if dt.printTimings {
		logger.Info("Fit timings",
			log.PhaseKey, "setup", log.DurationMsKey, float64(setup.Microseconds())/1000)
		logger.Info("Fit timings",
			log.PhaseKey, "build", log.DurationMsKey, float64(grow.Microseconds())/1000)
	}
	logger.Info("Decision tree fitted",
		log.TreeDepthKey, t.Depth(),
		log.TreeNodesKey, t.NNodes(),
		log.TreeLeavesKey, t.NLeaves,
		log.CriterionKey, string(criterion),
		log.BuildOrderKey, dt.buildOrder.String(),
		log.SortMethodKey, dt.sortMethod.String(),
	)
	return nil
}

// checkPredict validates X against the fitted model.
func (dt *DecisionTreeClassifier) checkPredict(method string, X mat.Matrix) error {
	if X == nil {
		return errors.NewPointerError(method, "X")
	}
	_, nFeatures := X.Dims()
	if err := dt.state.RequireFeatures(modelName, method, nFeatures); err != nil {
		return err
	}
	return errors.CheckMatrix(method, X)
}

// leaves returns the leaf reached by every row of X. A panic in a
// prediction worker is returned as a PanicError.
func (dt *DecisionTreeClassifier) leaves(method string, X mat.Matrix) (out []int, err error) {
	defer errors.Recover(&err, "DecisionTreeClassifier."+method)
	acc := dense.NewAccessor(X)
	rows, cols := acc.Dims()
	out = make([]int, rows)
	parallel.ParallelizeWithThreshold(rows, predictParallelThreshold, func(start, end int) {
		row := make([]float64, cols)
		for i := start; i < end; i++ {
			acc.Row(row, i)
			out[i] = dt.tree_.Apply(row)
		}
	})
	return out, nil
}

// Predict returns the class of every row of X as an n_samples x 1 matrix.
func (dt *DecisionTreeClassifier) Predict(X mat.Matrix) (mat.Matrix, error) {
	if err := dt.checkPredict("Predict", X); err != nil {
		return nil, err
	}
	leaves, err := dt.leaves("Predict", X)
	if err != nil {
		return nil, err
	}
	out := dense.NewOutput(dense.LayoutOf(X), len(leaves), 1)
	for i, l := range leaves {
		out.Set(i, 0, float64(dt.tree_.Nodes[l].YPred))
	}
	dt.logger.Debug("Predicted", log.OperationKey, log.OperationPredict, log.PredsKey, len(leaves))
	return out.Matrix(), nil
}

// PredictRaw predicts the classes of a caller buffer (see FitLayout).
func (dt *DecisionTreeClassifier) PredictRaw(order dense.Order, rows, cols int, data []float64, ld int) ([]int, error) {
	X, err := dense.View(order, rows, cols, data, ld)
	if err != nil {
		return nil, err
	}
	if err := dt.checkPredict("PredictRaw", X); err != nil {
		return nil, err
	}
	leaves, err := dt.leaves("PredictRaw", X)
	if err != nil {
		return nil, err
	}
	pred := make([]int, len(leaves))
	for i, l := range leaves {
		pred[i] = dt.tree_.Nodes[l].YPred
	}
	return pred, nil
}

// probaInto writes the class proportions of every row of X into out.
func (dt *DecisionTreeClassifier) probaInto(method string, X mat.Matrix, out func(rows int) *dense.Output) (*dense.Output, error) {
	if err := dt.checkPredict(method, X); err != nil {
		return nil, err
	}
	if !dt.tree_.WithProba {
		return nil, errors.NewUsageWarning(method,
			"class probabilities were not tracked during fit; refit with WithPredictProba(true)")
	}
	leaves, err := dt.leaves(method, X)
	if err != nil {
		return nil, err
	}
	o := out(len(leaves))
	for i, l := range leaves {
		for c, p := range dt.tree_.Proba(l) {
			o.Set(i, c, p)
		}
	}
	return o, nil
}

// PredictProba returns the class proportions of the leaf reached by every
// row of X, as an n_samples x n_classes matrix laid out like X.
func (dt *DecisionTreeClassifier) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	o, err := dt.probaInto("PredictProba", X, func(rows int) *dense.Output {
		return dense.NewOutput(dense.LayoutOf(X), rows, dt.nClasses_)
	})
	if err != nil {
		return nil, err
	}
	return o.Matrix(), nil
}

// PredictLogProba returns the natural logarithm of PredictProba.
func (dt *DecisionTreeClassifier) PredictLogProba(X mat.Matrix) (mat.Matrix, error) {
	o, err := dt.probaInto("PredictLogProba", X, func(rows int) *dense.Output {
		return dense.NewOutput(dense.LayoutOf(X), rows, dt.nClasses_)
	})
	if err != nil {
		return nil, err
	}
	o.Log()
	return o.Matrix(), nil
}

// PredictProbaRaw is PredictProba over a caller buffer. The result is laid
// out in the same order as the input.
func (dt *DecisionTreeClassifier) PredictProbaRaw(order dense.Order, rows, cols int, data []float64, ld int) (*dense.Output, error) {
	X, err := dense.View(order, rows, cols, data, ld)
	if err != nil {
		return nil, err
	}
	return dt.probaInto("PredictProbaRaw", X, func(n int) *dense.Output {
		return dense.NewOutput(order, n, dt.nClasses_)
	})
}

// PredictProbaInto is PredictProbaRaw writing into out, which must be
// rows x n_classes. out may wrap a caller buffer (see dense.WrapOutput) and
// need not share the input's order.
func (dt *DecisionTreeClassifier) PredictProbaInto(order dense.Order, rows, cols int, data []float64, ld int, out *dense.Output) error {
	X, err := dense.View(order, rows, cols, data, ld)
	if err != nil {
		return err
	}
	if out == nil {
		return errors.NewPointerError("PredictProbaInto", "out")
	}
	if err := dt.state.RequireFitted(modelName, "PredictProbaInto"); err != nil {
		return err
	}
	if out.Rows != rows {
		return errors.NewDimensionError("PredictProbaInto", rows, out.Rows, 0)
	}
	if out.Cols != dt.nClasses_ {
		return errors.NewDimensionError("PredictProbaInto", dt.nClasses_, out.Cols, 1)
	}
	_, err = dt.probaInto("PredictProbaInto", X, func(int) *dense.Output { return out })
	return err
}

// PredictLogProbaRaw is PredictLogProba over a caller buffer.
func (dt *DecisionTreeClassifier) PredictLogProbaRaw(order dense.Order, rows, cols int, data []float64, ld int) (*dense.Output, error) {
	o, err := dt.PredictProbaRaw(order, rows, cols, data, ld)
	if err != nil {
		return nil, err
	}
	o.Log()
	return o, nil
}

// Score returns the mean accuracy on X and the labels y.
func (dt *DecisionTreeClassifier) Score(X, y mat.Matrix) (float64, error) {
	pred, err := dt.Predict(X)
	if err != nil {
		return 0, err
	}
	if y == nil {
		return 0, errors.NewPointerError("Score", "y")
	}
	acc, err := metrics.AccuracyScore(y, pred)
	if err != nil {
		return 0, err
	}
	dt.logger.Debug("Scored", log.OperationKey, log.OperationScore, log.AccuracyKey, acc)
	return acc, nil
}

// Classes returns the class labels 0..n_classes-1. nil before Fit.
func (dt *DecisionTreeClassifier) Classes() []int {
	return dt.classes_
}

// NClasses returns the number of classes of the fitted model.
func (dt *DecisionTreeClassifier) NClasses() int {
	return dt.nClasses_
}

// TreeInfo summarizes a fitted tree.
type TreeInfo struct {
	NFeatures int   `json:"n_features"`
	NSamples  int   `json:"n_samples"`
	NObs      int   `json:"n_obs"`
	Seed      int64 `json:"seed"`
	Depth     int   `json:"depth"`
	NNodes    int   `json:"n_nodes"`
	NLeaves   int   `json:"n_leaves"`
}

// Info returns the fitted tree's summary. On an untrained model it returns a
// zero TreeInfo and a usage warning.
func (dt *DecisionTreeClassifier) Info() (TreeInfo, error) {
	if !dt.state.IsFitted() {
		return TreeInfo{}, errors.NewUsageWarning("Info", "the model has not been trained yet")
	}
	return TreeInfo{
		NFeatures: dt.nFeatures_,
		NSamples:  dt.nSamples_,
		NObs:      dt.nObs_,
		Seed:      dt.seed_,
		Depth:     dt.tree_.Depth(),
		NNodes:    dt.tree_.NNodes(),
		NLeaves:   dt.tree_.NLeaves,
	}, nil
}

// Tree returns the fitted tree, or nil. It must not be modified.
func (dt *DecisionTreeClassifier) Tree() *Tree {
	return dt.tree_
}

// SampleIndices returns the training sample index array of the last fit,
// partitioned so that each node's samples lie in [StartIdx, EndIdx]. nil
// after ClearWorkingMemory.
func (dt *DecisionTreeClassifier) SampleIndices() []int {
	if dt.builder == nil {
		return nil
	}
	return dt.builder.samples
}

// Refresh drops the fitted tree and every working buffer.
func (dt *DecisionTreeClassifier) Refresh() {
	dt.state.Reset()
	dt.tree_ = nil
	dt.classes_ = nil
	dt.nClasses_ = 0
	dt.nFeatures_, dt.nSamples_, dt.nObs_ = 0, 0, 0
	dt.seed_ = 0
	dt.builder = nil
}

// ClearWorkingMemory drops the buffers used during fit. The fitted tree is kept.
func (dt *DecisionTreeClassifier) ClearWorkingMemory() {
	if dt.builder != nil {
		dt.builder.release()
		dt.builder = nil
	}
}

// GetDepth returns the depth of the fitted tree.
func (dt *DecisionTreeClassifier) GetDepth() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.Depth()
}

// GetNLeaves returns the number of leaves of the fitted tree.
func (dt *DecisionTreeClassifier) GetNLeaves() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.NLeaves
}

// GetNNodes returns the number of nodes of the fitted tree.
func (dt *DecisionTreeClassifier) GetNNodes() int {
	if dt.tree_ == nil {
		return 0
	}
	return dt.tree_.NNodes()
}

// GetFeatureImportances returns the normalized impurity decrease per feature.
func (dt *DecisionTreeClassifier) GetFeatureImportances() []float64 {
	if dt.tree_ == nil {
		return nil
	}
	return dt.tree_.FeatureImportances()
}

// GetParams returns the hyperparameters.
func (dt *DecisionTreeClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"criterion":             string(dt.criterion),
		"max_depth":             dt.maxDepth,
		"min_samples_split":     dt.minSamplesSplit,
		"min_samples_leaf":      dt.minSamplesLeaf,
		"min_impurity_decrease": dt.minImpurityDecrease,
		"min_split_score":       dt.minSplitScore,
		"max_features":          dt.maxFeatures,
		"random_state":          dt.randomState,
		"feat_thresh":           dt.featThresh,
		"build_order":           dt.buildOrder.String(),
		"sort_method":           dt.sortMethod.String(),
		"bootstrap":             dt.bootstrap,
		"n_obs":                 dt.nObs,
		"predict_proba":         dt.predictProba,
		"n_classes":             dt.nClasses,
	}
}

// SetParams sets hyperparameters by name. Numbers may be given as any Go
// integer or float type, so maps decoded from JSON are accepted. Changing a
// parameter of a fitted model discards the tree. If any key is rejected no
// parameter changes and the fitted tree is kept.
func (dt *DecisionTreeClassifier) SetParams(params map[string]interface{}) error {
	saved := *dt
	for key, value := range params {
		var err error
		switch key {
		case "criterion":
			var s string
			if s, err = toString(key, value); err == nil {
				var c Criterion
				if c, err = ParseCriterion(s); err == nil {
					dt.criterion = c
				}
			}
		case "max_depth":
			dt.maxDepth, err = toInt(key, value, dt.maxDepth)
		case "min_samples_split":
			dt.minSamplesSplit, err = toInt(key, value, dt.minSamplesSplit)
		case "min_samples_leaf":
			dt.minSamplesLeaf, err = toInt(key, value, dt.minSamplesLeaf)
		case "min_impurity_decrease":
			dt.minImpurityDecrease, err = toFloat(key, value, dt.minImpurityDecrease)
		case "min_split_score":
			dt.minSplitScore, err = toFloat(key, value, dt.minSplitScore)
		case "max_features":
			dt.maxFeatures, err = toInt(key, value, dt.maxFeatures)
		case "random_state":
			var seed int
			if seed, err = toInt(key, value, int(dt.randomState)); err == nil {
				dt.randomState = int64(seed)
			}
		case "feat_thresh":
			dt.featThresh, err = toFloat(key, value, dt.featThresh)
		case "build_order":
			var s string
			if s, err = toString(key, value); err == nil {
				var o BuildOrder
				if o, err = ParseBuildOrder(s); err == nil {
					dt.buildOrder = o
				}
			}
		case "sort_method":
			var s string
			if s, err = toString(key, value); err == nil {
				var m SortMethod
				if m, err = ParseSortMethod(s); err == nil {
					dt.sortMethod = m
				}
			}
		case "bootstrap":
			dt.bootstrap, err = toBool(key, value)
		case "n_obs":
			dt.nObs, err = toInt(key, value, dt.nObs)
		case "predict_proba":
			dt.predictProba, err = toBool(key, value)
		case "n_classes":
			dt.nClasses, err = toInt(key, value, dt.nClasses)
		default:
			err = errors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			*dt = saved
			return err
		}
	}
	if dt.state.IsFitted() {
		dt.Refresh()
	}
	return nil
}

func toInt(key string, value interface{}, current int) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case float64:
		if v == math.Trunc(v) {
			return int(v), nil
		}
	}
	return current, errors.NewValidationError(key, "must be an integer", value)
}

func toFloat(key string, value interface{}, current float64) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	}
	return current, errors.NewValidationError(key, "must be a number", value)
}

func toBool(key string, value interface{}) (bool, error) {
	if b, ok := value.(bool); ok {
		return b, nil
	}
	return false, errors.NewValidationError(key, "must be a boolean", value)
}

func toString(key string, value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", errors.NewValidationError(key, "must be a string", value)
}

// snapshot is the gob form of a classifier.
type snapshot struct {
	Params    map[string]interface{}
	Tree      *Tree
	NClasses  int
	NFeatures int
	NSamples  int
	NObs      int
	Seed      int64
	State     model.ModelState
}

// GobEncode implements gob.GobEncoder. Working memory is not saved.
func (dt *DecisionTreeClassifier) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	s := snapshot{
		Params:    dt.GetParams(),
		Tree:      dt.tree_,
		NClasses:  dt.nClasses_,
		NFeatures: dt.nFeatures_,
		NSamples:  dt.nSamples_,
		NObs:      dt.nObs_,
		Seed:      dt.seed_,
		State:     dt.state.GetState(),
	}
	if err := gob.NewEncoder(&buf).Encode(&s); err != nil {
		return nil, errors.Wrap(err, "encode DecisionTreeClassifier")
	}
	return buf.Bytes(), nil
}

// GobDecode implements gob.GobDecoder.
func (dt *DecisionTreeClassifier) GobDecode(data []byte) error {
	var s snapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return errors.Wrap(err, "decode DecisionTreeClassifier")
	}
	if dt.state == nil {
		dt.state = model.NewStateManager()
	}
	if dt.logger == nil {
		dt.logger = log.GetLoggerWithName("tree.classifier").With(log.ModelNameKey, modelName)
	}
	dt.Refresh()
	if err := dt.SetParams(s.Params); err != nil {
		return err
	}
	if s.State.Fitted && s.Tree == nil {
		return errors.NewModelError("GobDecode", "fitted model without a tree", nil)
	}
	dt.tree_ = s.Tree
	dt.nClasses_ = s.NClasses
	if s.State.Fitted {
		dt.classes_ = make([]int, s.NClasses)
		for c := range dt.classes_ {
			dt.classes_[c] = c
		}
	}
	dt.nFeatures_ = s.NFeatures
	dt.nSamples_ = s.NSamples
	dt.nObs_ = s.NObs
	dt.seed_ = s.Seed
	dt.state.SetState(s.State)
	return nil
}
