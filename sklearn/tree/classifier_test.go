package tree

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treeml/core/dense"
	"github.com/YuminosukeSato/treeml/core/model"
	"github.com/YuminosukeSato/treeml/pkg/errors"
	"github.com/YuminosukeSato/treeml/pkg/log"
)

func rowMajor(X *mat.Dense) []float64 {
	r, c := X.Dims()
	data := make([]float64, 0, r*c)
	for i := 0; i < r; i++ {
		data = append(data, X.RawRowView(i)...)
	}
	return data
}

// columnMajor lays X out column by column with leading dimension ld >= rows.
func columnMajor(X *mat.Dense, ld int) []float64 {
	r, c := X.Dims()
	data := make([]float64, ld*c)
	for j := 0; j < c; j++ {
		for i := 0; i < r; i++ {
			data[j*ld+i] = X.At(i, j)
		}
	}
	return data
}

func labelsOf(y mat.Matrix) []int {
	r, _ := y.Dims()
	out := make([]int, r)
	for i := range out {
		out[i] = int(y.At(i, 0))
	}
	return out
}

func TestClassifier_LayoutsGiveSameTree(t *testing.T) {
	X, y := blobs(200, 3, 3)
	n, p := X.Dims()
	labels := labelsOf(y)

	ref := NewDecisionTreeClassifier()
	require.NoError(t, ref.Fit(X, y))

	row := NewDecisionTreeClassifier()
	require.NoError(t, row.FitLayout(dense.RowMajor, n, p, rowMajor(X), p, labels))

	col := NewDecisionTreeClassifier()
	require.NoError(t, col.FitLayout(dense.ColumnMajor, n, p, columnMajor(X, n+3), n+3, labels))

	var T mat.Dense
	T.CloneFrom(X.T())
	trans := NewDecisionTreeClassifier()
	require.NoError(t, trans.Fit(T.T(), y))

	assert.Equal(t, ref.Tree(), row.Tree())
	assert.Equal(t, ref.Tree(), col.Tree())
	assert.Equal(t, ref.Tree(), trans.Tree())
}

func TestClassifier_RawPredictionsRestoreLayout(t *testing.T) {
	X, y := blobs(150, 3, 3)
	n, p := X.Dims()

	dt := NewDecisionTreeClassifier(WithMaxDepth(4))
	require.NoError(t, dt.Fit(X, y))

	want, err := dt.PredictProba(X)
	require.NoError(t, err)
	wantPred, err := dt.Predict(X)
	require.NoError(t, err)

	ld := n + 2
	out, err := dt.PredictProbaRaw(dense.ColumnMajor, n, p, columnMajor(X, ld), ld)
	require.NoError(t, err)
	assert.Equal(t, dense.ColumnMajor, out.Order)
	k := dt.NClasses()
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			assert.Equal(t, want.At(i, c), out.Data[c*n+i])
		}
	}

	out, err = dt.PredictProbaRaw(dense.RowMajor, n, p, rowMajor(X), p)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			assert.Equal(t, want.At(i, c), out.Data[i*k+c])
		}
	}

	logOut, err := dt.PredictLogProbaRaw(dense.ColumnMajor, n, p, columnMajor(X, ld), ld)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for c := 0; c < k; c++ {
			assert.Equal(t, math.Log(want.At(i, c)), logOut.At(i, c))
		}
	}

	pred, err := dt.PredictRaw(dense.ColumnMajor, n, p, columnMajor(X, ld), ld)
	require.NoError(t, err)
	for i, c := range pred {
		assert.Equal(t, wantPred.At(i, 0), float64(c))
	}
}

func TestClassifier_PredictProbaInto(t *testing.T) {
	X, y := blobs(90, 3, 3)
	n, p := X.Dims()
	dt := NewDecisionTreeClassifier(WithMaxDepth(3))

	buf := make([]float64, 3*(n+1))
	out, err := dense.WrapOutput(dense.ColumnMajor, n, 3, buf, n+1)
	require.NoError(t, err)
	err = dt.PredictProbaInto(dense.RowMajor, n, p, rowMajor(X), p, out)
	assert.Equal(t, errors.KindOutOfDate, errors.KindOf(err))

	require.NoError(t, dt.Fit(X, y))
	want, err := dt.PredictProba(X)
	require.NoError(t, err)

	// row-major input, column-major caller buffer with padding
	require.NoError(t, dt.PredictProbaInto(dense.RowMajor, n, p, rowMajor(X), p, out))
	for i := 0; i < n; i++ {
		for c := 0; c < 3; c++ {
			assert.Equal(t, want.At(i, c), buf[c*(n+1)+i])
		}
	}

	wrongCols, err := dense.WrapOutput(dense.RowMajor, n, 2, make([]float64, 2*n), 2)
	require.NoError(t, err)
	err = dt.PredictProbaInto(dense.RowMajor, n, p, rowMajor(X), p, wrongCols)
	var dimErr *errors.DimensionError
	require.True(t, errors.As(err, &dimErr))
	assert.Equal(t, 3, dimErr.Expected)
	assert.Equal(t, 2, dimErr.Got)

	err = dt.PredictProbaInto(dense.RowMajor, n, p, rowMajor(X), p, nil)
	assert.Equal(t, errors.KindInvalidPointer, errors.KindOf(err))
}

func TestClassifier_PredictLogProba(t *testing.T) {
	X, y := blobs(100, 2, 2)
	dt := NewDecisionTreeClassifier(WithMaxDepth(2))
	require.NoError(t, dt.Fit(X, y))

	proba, err := dt.PredictProba(X)
	require.NoError(t, err)
	logProba, err := dt.PredictLogProba(X)
	require.NoError(t, err)

	r, c := proba.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.Equal(t, math.Log(proba.At(i, j)), logProba.At(i, j))
		}
	}
}

func TestClassifier_ColumnMajorInputGivesColumnMajorOutput(t *testing.T) {
	X, y := blobs(60, 2, 3)
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	var T mat.Dense
	T.CloneFrom(X.T())
	proba, err := dt.PredictProba(T.T())
	require.NoError(t, err)
	assert.Equal(t, dense.ColumnMajor, dense.LayoutOf(proba))

	want, err := dt.PredictProba(X)
	require.NoError(t, err)
	assert.Equal(t, dense.RowMajor, dense.LayoutOf(want))
	assert.True(t, mat.Equal(want, proba))
}

func TestClassifier_ParallelPredictMatchesSequential(t *testing.T) {
	X, y := blobs(300, 3, 3)
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	big := mat.NewDense(3*predictParallelThreshold, 3, nil)
	for i := 0; i < 3*predictParallelThreshold; i++ {
		big.SetRow(i, X.RawRowView(i%300))
	}
	pred, err := dt.Predict(big)
	require.NoError(t, err)
	small, err := dt.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 3*predictParallelThreshold; i++ {
		require.Equal(t, small.At(i%300, 0), pred.At(i, 0), "row %d", i)
	}
}

func TestClassifier_Errors(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{0, 0, 1, 1, 2, 2, 3, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})

	t.Run("not fitted", func(t *testing.T) {
		dt := NewDecisionTreeClassifier()
		_, err := dt.Predict(X)
		require.Error(t, err)
		assert.Equal(t, errors.KindOutOfDate, errors.KindOf(err))
		var nf *errors.NotFittedError
		assert.True(t, errors.As(err, &nf))

		_, err = dt.Score(X, y)
		assert.Equal(t, errors.KindOutOfDate, errors.KindOf(err))
	})

	t.Run("feature mismatch", func(t *testing.T) {
		dt := NewDecisionTreeClassifier()
		require.NoError(t, dt.Fit(X, y))
		_, err := dt.Predict(mat.NewDense(2, 3, nil))
		require.Error(t, err)
		var dimErr *errors.DimensionError
		require.True(t, errors.As(err, &dimErr))
		assert.Equal(t, 2, dimErr.Expected)
		assert.Equal(t, 3, dimErr.Got)
		assert.Contains(t, err.Error(), "n_features = 3 doesn't match the expected value 2")
	})

	t.Run("proba not tracked", func(t *testing.T) {
		dt := NewDecisionTreeClassifier(WithPredictProba(false))
		require.NoError(t, dt.Fit(X, y))
		_, err := dt.PredictProba(X)
		require.Error(t, err)
		assert.Equal(t, errors.KindUsage, errors.KindOf(err))
		assert.True(t, errors.KindOf(err).IsWarning())

		_, err = dt.PredictLogProba(X)
		assert.Equal(t, errors.KindUsage, errors.KindOf(err))

		pred, err := dt.Predict(X)
		require.NoError(t, err)
		assert.Equal(t, 1.0, pred.At(3, 0))
	})

	t.Run("n_obs out of range", func(t *testing.T) {
		for _, nObs := range []int{-1, 5} {
			dt := NewDecisionTreeClassifier(WithBootstrap(true), WithNObs(nObs))
			err := dt.Fit(X, y)
			require.Error(t, err, "n_obs=%d", nObs)
			assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
			_, err = dt.Predict(X)
			assert.Equal(t, errors.KindOutOfDate, errors.KindOf(err), "failed fit leaves the model untrained")
		}
	})

	t.Run("bad hyperparameters", func(t *testing.T) {
		for _, opt := range []DecisionTreeOption{
			WithMaxDepth(-1),
			WithMinSamplesLeaf(0),
			WithCriterion("mse"),
			WithFeatureThreshold(-1),
			WithMaxFeatures(-2),
		} {
			err := NewDecisionTreeClassifier(opt).Fit(X, y)
			require.Error(t, err)
			var ve *errors.ValidationError
			assert.True(t, errors.As(err, &ve), err.Error())
		}
	})

	t.Run("bad data", func(t *testing.T) {
		dt := NewDecisionTreeClassifier()
		assert.Error(t, dt.Fit(X, mat.NewDense(3, 1, nil)))
		assert.Error(t, dt.Fit(X, mat.NewDense(4, 1, []float64{0, 1, 0.5, 1})))
		assert.Error(t, dt.Fit(X, mat.NewDense(4, 1, []float64{0, 1, -1, 1})))
		assert.Error(t, dt.Fit(mat.NewDense(4, 2, []float64{0, 0, 1, math.NaN(), 2, 2, 3, 3}), y))

		err := dt.Fit(nil, y)
		assert.Equal(t, errors.KindInvalidPointer, errors.KindOf(err))

		err = NewDecisionTreeClassifier(WithNClasses(2)).Fit(X, mat.NewDense(4, 1, []float64{0, 1, 2, 1}))
		assert.Error(t, err)

		err = dt.FitLayout(dense.RowMajor, 4, 2, nil, 2, []int{0, 0, 1, 1})
		assert.Equal(t, errors.KindInvalidPointer, errors.KindOf(err))
		err = dt.FitLayout(dense.RowMajor, 4, 2, rowMajor(X), 1, []int{0, 0, 1, 1})
		assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
	})

	t.Run("class storage limit", func(t *testing.T) {
		cases := []struct {
			name   string
			dt     *DecisionTreeClassifier
			prefit bool
			fit    func(dt *DecisionTreeClassifier) error
		}{
			{"explicit n_classes", NewDecisionTreeClassifier(WithNClasses(1 << 60)), false,
				func(dt *DecisionTreeClassifier) error { return dt.Fit(X, y) }},
			{"huge label", NewDecisionTreeClassifier(), true,
				func(dt *DecisionTreeClassifier) error {
					return dt.Fit(X, mat.NewDense(4, 1, []float64{0, 0, 1, 1e12}))
				}},
			{"huge label without proba", NewDecisionTreeClassifier(WithPredictProba(false)), true,
				func(dt *DecisionTreeClassifier) error {
					return dt.Fit(X, mat.NewDense(4, 1, []float64{0, 0, 1, 1e12}))
				}},
			{"label wraps n_classes", NewDecisionTreeClassifier(), true,
				func(dt *DecisionTreeClassifier) error {
					return dt.FitLayout(dense.RowMajor, 4, 2, rowMajor(X), 2, []int{0, 0, 1, math.MaxInt})
				}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				if tc.prefit {
					require.NoError(t, tc.dt.Fit(X, y))
				}

				err := tc.fit(tc.dt)
				require.Error(t, err)
				assert.Equal(t, errors.KindMemory, errors.KindOf(err))
				var me *errors.MemoryError
				assert.True(t, errors.As(err, &me))

				_, err = tc.dt.Predict(X)
				assert.Equal(t, errors.KindOutOfDate, errors.KindOf(err), "failed fit leaves the model untrained")
			})
		}
	})
}

func TestClassifier_NClassesAndClasses(t *testing.T) {
	X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
	y := mat.NewDense(4, 1, []float64{0, 0, 2, 2})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, 3, dt.NClasses())
	assert.Equal(t, []int{0, 1, 2}, dt.Classes())

	dt = NewDecisionTreeClassifier(WithNClasses(5))
	require.NoError(t, dt.Fit(X, y))
	proba, err := dt.PredictProba(X)
	require.NoError(t, err)
	_, c := proba.Dims()
	assert.Equal(t, 5, c)
	assert.Equal(t, 0.0, proba.At(0, 1))
}

func TestClassifier_Info(t *testing.T) {
	dt := NewDecisionTreeClassifier(WithRandomState(-1))

	info, err := dt.Info()
	require.Error(t, err)
	assert.Equal(t, errors.KindUsage, errors.KindOf(err))
	assert.Equal(t, TreeInfo{}, info)

	X, y := blobs(80, 3, 2)
	require.NoError(t, dt.Fit(X, y))
	info, err = dt.Info()
	require.NoError(t, err)
	assert.Equal(t, 3, info.NFeatures)
	assert.Equal(t, 80, info.NSamples)
	assert.Equal(t, 80, info.NObs)
	assert.GreaterOrEqual(t, info.Seed, int64(0))
	assert.Equal(t, dt.GetDepth(), info.Depth)
	assert.Equal(t, dt.GetNNodes(), info.NNodes)
	assert.Equal(t, dt.GetNLeaves(), info.NLeaves)

	// a drawn seed reproduces the tree
	again := NewDecisionTreeClassifier(WithRandomState(info.Seed))
	require.NoError(t, again.Fit(X, y))
	assert.Equal(t, dt.Tree(), again.Tree())
}

func TestClassifier_RefreshAndClearWorkingMemory(t *testing.T) {
	X, y := blobs(50, 2, 2)
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	require.NotNil(t, dt.SampleIndices())

	dt.ClearWorkingMemory()
	assert.Nil(t, dt.SampleIndices())
	_, err := dt.Predict(X)
	assert.NoError(t, err, "clearing working memory keeps the tree")

	dt.Refresh()
	assert.Nil(t, dt.Tree())
	assert.Equal(t, 0, dt.GetNNodes())
	assert.Nil(t, dt.GetFeatureImportances())
	_, err = dt.Predict(X)
	assert.Equal(t, errors.KindOutOfDate, errors.KindOf(err))
}

func TestClassifier_SetParamsFromJSON(t *testing.T) {
	var params map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(`{
		"criterion": "cross-entropy",
		"max_depth": 3,
		"min_impurity_decrease": 0.01,
		"random_state": 7,
		"build_order": "depth",
		"sort_method": "stl",
		"bootstrap": true,
		"n_obs": 10,
		"predict_proba": false
	}`), &params))

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.SetParams(params))

	got := dt.GetParams()
	assert.Equal(t, "entropy", got["criterion"])
	assert.Equal(t, 3, got["max_depth"])
	assert.Equal(t, 0.01, got["min_impurity_decrease"])
	assert.Equal(t, int64(7), got["random_state"])
	assert.Equal(t, "depth-first", got["build_order"])
	assert.Equal(t, "comparison", got["sort_method"])
	assert.Equal(t, true, got["bootstrap"])
	assert.Equal(t, 10, got["n_obs"])
	assert.Equal(t, false, got["predict_proba"])

	assert.Error(t, dt.SetParams(map[string]interface{}{"max_depth": 2.5}))
	assert.Error(t, dt.SetParams(map[string]interface{}{"bootstrap": "yes"}))
	assert.Error(t, dt.SetParams(map[string]interface{}{"splitter": "best"}))
	assert.Error(t, dt.SetParams(map[string]interface{}{"build_order": "random"}))
}

func TestClassifier_SetParamsInvalidatesFit(t *testing.T) {
	X, y := blobs(40, 2, 2)
	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))

	require.NoError(t, dt.SetParams(map[string]interface{}{"max_depth": 1}))
	_, err := dt.Predict(X)
	assert.Equal(t, errors.KindOutOfDate, errors.KindOf(err))
}

func TestClassifier_SetParamsRejectsAll(t *testing.T) {
	X, y := blobs(40, 2, 2)
	dt := NewDecisionTreeClassifier(WithMaxDepth(4))
	require.NoError(t, dt.Fit(X, y))
	before := dt.GetParams()

	for _, bad := range []map[string]interface{}{
		{"max_depth": 1, "min_samples_leaf": 3, "criterion": "entropy", "sort_method": "bogus"},
		{"bootstrap": true, "n_obs": 10, "max_features": 1, "no_such_param": 1},
		{"max_depth": 2.5},
	} {
		err := dt.SetParams(bad)
		require.Error(t, err)
		assert.Equal(t, errors.KindInvalidInput, errors.KindOf(err))
		assert.Equal(t, before, dt.GetParams())

		// the fitted tree still describes the current parameters
		_, err = dt.Predict(X)
		assert.NoError(t, err)
		assert.LessOrEqual(t, dt.GetDepth(), 4)
	}
}

func TestClassifier_GobRoundTrip(t *testing.T) {
	X, y := blobs(120, 3, 3)
	dt := NewDecisionTreeClassifier(WithCriterion("entropy"), WithMaxDepth(6), WithRandomState(3))
	require.NoError(t, dt.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(dt, &buf))

	loaded := NewDecisionTreeClassifier()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))

	assert.Equal(t, dt.GetParams(), loaded.GetParams())
	assert.Equal(t, dt.Tree(), loaded.Tree())
	assert.Equal(t, dt.Classes(), loaded.Classes())

	want, err := dt.PredictProba(X)
	require.NoError(t, err)
	got, err := loaded.PredictProba(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(want, got))

	wantInfo, _ := dt.Info()
	gotInfo, err := loaded.Info()
	require.NoError(t, err)
	assert.Equal(t, wantInfo, gotInfo)
}

func TestClassifier_GobUnfitted(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, model.SaveModelToWriter(NewDecisionTreeClassifier(WithMaxDepth(4)), &buf))

	loaded := NewDecisionTreeClassifier()
	require.NoError(t, model.LoadModelFromReader(loaded, &buf))
	assert.Equal(t, 4, loaded.GetParams()["max_depth"])
	_, err := loaded.Info()
	assert.Equal(t, errors.KindUsage, errors.KindOf(err))
}

func TestClassifier_Logging(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelDebug)
	X, y := blobs(60, 2, 2)

	dt := NewDecisionTreeClassifier(WithLogger(logger), WithPrintTimings(true), WithRandomState(1))
	require.NoError(t, dt.Fit(X, y))

	assert.True(t, logger.ContainsMessage("Decision tree fitted"))
	assert.True(t, logger.ContainsMessage("Fit timings"))
	assert.True(t, logger.ContainsField(log.ModelNameKey, "DecisionTreeClassifier"))
	assert.True(t, logger.ContainsField(log.OperationKey, log.OperationFit))
	assert.True(t, logger.ContainsField(log.TreeNodesKey, float64(dt.GetNNodes())))
	assert.True(t, logger.ContainsField(log.RandomSeedKey, float64(1)))
	assert.True(t, logger.ContainsField(log.PhaseKey, "build"))

	logger.Clear()
	dt = NewDecisionTreeClassifier(WithLogger(logger), WithNClasses(1<<40))
	require.Error(t, dt.Fit(X, y))
	assert.False(t, logger.ContainsMessage("Decision tree fitted"))
	assert.True(t, logger.ContainsMessage("Class storage exceeds the allocation limit"))
}

func TestClassifier_FeatureImportancesWithoutSplit(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(3, 1, []float64{1, 1, 1})

	dt := NewDecisionTreeClassifier()
	require.NoError(t, dt.Fit(X, y))
	assert.Equal(t, []float64{0, 0}, dt.GetFeatureImportances())
}

var _ model.Classifier = (*DecisionTreeClassifier)(nil)
var _ model.SKLearnCompatible = (*DecisionTreeClassifier)(nil)
var _ model.LayoutEstimator = (*DecisionTreeClassifier)(nil)
var _ model.TreeModel = (*DecisionTreeClassifier)(nil)
