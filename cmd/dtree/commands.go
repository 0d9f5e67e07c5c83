package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treeml/core/dense"
	"github.com/YuminosukeSato/treeml/core/model"
	"github.com/YuminosukeSato/treeml/metrics"
	"github.com/YuminosukeSato/treeml/pkg/errors"
	"github.com/YuminosukeSato/treeml/sklearn/tree"
	"github.com/YuminosukeSato/treeml/sklearn/tree/treeviz"
)

// hyperparameter flags, keyed by the SetParams name they feed
var paramFlags = map[string]string{
	"criterion":             "criterion",
	"max-depth":             "max_depth",
	"min-samples-split":     "min_samples_split",
	"min-samples-leaf":      "min_samples_leaf",
	"min-impurity-decrease": "min_impurity_decrease",
	"min-split-score":       "min_split_score",
	"max-features":          "max_features",
	"seed":                  "random_state",
	"feat-thresh":           "feat_thresh",
	"build-order":           "build_order",
	"sort":                  "sort_method",
	"bootstrap":             "bootstrap",
	"n-obs":                 "n_obs",
	"proba":                 "predict_proba",
	"n-classes":             "n_classes",
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("dtree "+name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

func required(fs *flag.FlagSet, values map[string]string) error {
	var missing []string
	for name, v := range values {
		if v == "" {
			missing = append(missing, "-"+name)
		}
	}
	if len(missing) > 0 {
		return errors.Newf("%s: missing required flags %s", fs.Name(), strings.Join(missing, ", "))
	}
	return nil
}

func loadModel(path string) (*tree.DecisionTreeClassifier, error) {
	dt := tree.NewDecisionTreeClassifier()
	if err := model.LoadModel(dt, path); err != nil {
		return nil, err
	}
	return dt, nil
}

func readParams(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	params := map[string]interface{}{}
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return params, nil
}

func runFit(args []string, stdout io.Writer) error {
	fs := newFlagSet("fit")
	xPath := fs.String("x", "", "feature matrix (.npy)")
	yPath := fs.String("y", "", "labels (.npy)")
	modelPath := fs.String("model", "", "output model (.gob)")
	paramsPath := fs.String("params", "", "JSON file of hyperparameters")
	timings := fs.Bool("timings", false, "log fit phase durations")
	order := fs.String("order", "", "working layout: row or column; defaults to the .npy order")

	defaults := tree.NewDecisionTreeClassifier().GetParams()
	fs.String("criterion", fmt.Sprint(defaults["criterion"]), "gini, entropy or misclassification")
	fs.Int("max-depth", defaults["max_depth"].(int), "maximum tree depth")
	fs.Int("min-samples-split", defaults["min_samples_split"].(int), "minimum samples to split a node")
	fs.Int("min-samples-leaf", defaults["min_samples_leaf"].(int), "minimum samples in each child")
	fs.Float64("min-impurity-decrease", 0, "minimum score gain of a split")
	fs.Float64("min-split-score", 0, "nodes scoring at or below this are leaves")
	fs.Int("max-features", 0, "features tried per node, 0 for all")
	fs.Int64("seed", -1, "random seed, -1 for a time-based seed")
	fs.Float64("feat-thresh", defaults["feat_thresh"].(float64), "values closer than this are not split apart")
	fs.String("build-order", fmt.Sprint(defaults["build_order"]), "breadth-first or depth-first")
	fs.String("sort", fmt.Sprint(defaults["sort_method"]), "radix or comparison")
	fs.Bool("bootstrap", false, "draw training rows with replacement")
	fs.Int("n-obs", 0, "rows drawn per fit, 0 for all")
	fs.Bool("proba", true, "store class proportions for probability predictions")
	fs.Int("n-classes", 0, "number of classes, 0 to infer")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"x": *xPath, "y": *yPath, "model": *modelPath}); err != nil {
		return err
	}

	params := map[string]interface{}{}
	if *paramsPath != "" {
		var err error
		if params, err = readParams(*paramsPath); err != nil {
			return err
		}
	}
	// explicit flags override the params file
	fs.Visit(func(f *flag.Flag) {
		if key, ok := paramFlags[f.Name]; ok {
			params[key] = f.Value.(flag.Getter).Get()
		}
	})

	dt := tree.NewDecisionTreeClassifier(tree.WithPrintTimings(*timings))
	if err := dt.SetParams(params); err != nil {
		return err
	}

	X, err := loadFeatures(*xPath, *order)
	if err != nil {
		return err
	}
	y, err := readLabels(*yPath)
	if err != nil {
		return err
	}
	if err := dt.Fit(X, y); err != nil {
		return err
	}
	if err := model.SaveModel(dt, *modelPath); err != nil {
		return err
	}
	info, _ := dt.Info()
	fmt.Fprintf(stdout, "fitted %d nodes, %d leaves, depth %d, seed %d\n", info.NNodes, info.NLeaves, info.Depth, info.Seed)
	return nil
}

func runPredict(args []string, stdout io.Writer) error {
	fs := newFlagSet("predict")
	xPath := fs.String("x", "", "feature matrix (.npy)")
	modelPath := fs.String("model", "", "model (.gob)")
	outPath := fs.String("out", "", "output (.npy)")
	proba := fs.Bool("proba", false, "write class probabilities")
	logProba := fs.Bool("log", false, "write log probabilities")
	order := fs.String("order", "", "input layout: row or column; defaults to the .npy order")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"x": *xPath, "model": *modelPath, "out": *outPath}); err != nil {
		return err
	}

	dt, err := loadModel(*modelPath)
	if err != nil {
		return err
	}
	if dt.Tree() == nil {
		return errors.NewNotFittedError("DecisionTreeClassifier", "predict")
	}
	t, err := readTable(*xPath, *order)
	if err != nil {
		return err
	}

	var out mat.Matrix
	if *proba || *logProba {
		// probabilities go straight into the row-major buffer that is saved
		k := dt.NClasses()
		o, err := dense.WrapOutput(dense.RowMajor, t.rows, k, make([]float64, t.rows*k), k)
		if err != nil {
			return err
		}
		if err := dt.PredictProbaInto(t.order, t.rows, t.cols, t.data, t.ld(), o); err != nil {
			return err
		}
		if *logProba {
			o.Log()
		}
		out = o.Matrix()
	} else {
		pred, err := dt.PredictRaw(t.order, t.rows, t.cols, t.data, t.ld())
		if err != nil {
			return err
		}
		col := make([]float64, len(pred))
		for i, c := range pred {
			col[i] = float64(c)
		}
		out = mat.NewDense(len(col), 1, col)
	}
	if err := writeMatrix(*outPath, out); err != nil {
		return err
	}
	rows, cols := out.Dims()
	fmt.Fprintf(stdout, "wrote %dx%d to %s\n", rows, cols, *outPath)
	return nil
}

func runScore(args []string, stdout io.Writer) error {
	fs := newFlagSet("score")
	xPath := fs.String("x", "", "feature matrix (.npy)")
	yPath := fs.String("y", "", "labels (.npy)")
	modelPath := fs.String("model", "", "model (.gob)")
	report := fs.Bool("report", false, "also print the error rate, balanced accuracy and confusion matrix")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"x": *xPath, "y": *yPath, "model": *modelPath}); err != nil {
		return err
	}

	dt, err := loadModel(*modelPath)
	if err != nil {
		return err
	}
	X, err := loadFeatures(*xPath, "")
	if err != nil {
		return err
	}
	y, err := readLabels(*yPath)
	if err != nil {
		return err
	}
	score, err := dt.Score(X, y)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%.6f\n", score)
	if !*report {
		return nil
	}

	pred, err := dt.Predict(X)
	if err != nil {
		return err
	}
	return writeReport(stdout, y, pred, dt.NClasses())
}

// writeReport prints the classification error, the balanced accuracy and
// the confusion matrix (rows: true class, columns: predicted class).
func writeReport(w io.Writer, y, pred mat.Matrix, nClasses int) error {
	trueCol, predCol := mat.Col(nil, 0, y), mat.Col(nil, 0, pred)
	yTrue := mat.NewVecDense(len(trueCol), trueCol)
	yPred := mat.NewVecDense(len(predCol), predCol)

	errRate, err := metrics.ClassificationError(yTrue, yPred)
	if err != nil {
		return err
	}
	balanced, err := metrics.BalancedAccuracy(yTrue, yPred, nClasses)
	if err != nil {
		return err
	}
	cm, err := metrics.ConfusionMatrix(yTrue, yPred, nClasses)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "error %.6f\n", errRate)
	fmt.Fprintf(w, "balanced_accuracy %.6f\n", balanced)
	fmt.Fprintln(w, "confusion_matrix")
	for i := 0; i < nClasses; i++ {
		cells := make([]string, nClasses)
		for j := range cells {
			cells[j] = strconv.Itoa(int(cm.At(i, j)))
		}
		fmt.Fprintln(w, strings.Join(cells, " "))
	}
	return nil
}

// loadFeatures reads a feature matrix, repacked into order when given.
func loadFeatures(path, order string) (mat.Matrix, error) {
	t, err := readTable(path, order)
	if err != nil {
		return nil, err
	}
	return t.matrix()
}

func runInfo(args []string, stdout io.Writer) error {
	fs := newFlagSet("info")
	modelPath := fs.String("model", "", "model (.gob)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"model": *modelPath}); err != nil {
		return err
	}

	dt, err := loadModel(*modelPath)
	if err != nil {
		return err
	}
	info, err := dt.Info()
	if err != nil {
		errors.Warn(err)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		tree.TreeInfo
		NClasses    int                    `json:"n_classes"`
		Importances []float64              `json:"feature_importances,omitempty"`
		Params      map[string]interface{} `json:"params"`
	}{info, dt.NClasses(), dt.GetFeatureImportances(), dt.GetParams()})
}

func runRender(args []string, stdout io.Writer) error {
	fs := newFlagSet("render")
	modelPath := fs.String("model", "", "model (.gob)")
	outPath := fs.String("out", "", "output image or dot file")
	format := fs.String("format", "", "svg, dot, png or jpg; defaults to the -out extension")
	features := fs.String("features", "", "comma-separated feature names")
	classes := fs.String("classes", "", "comma-separated class names")
	importances := fs.String("importances", "", "also write a feature-importance bar chart (.png, .svg or .pdf)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := required(fs, map[string]string{"model": *modelPath, "out": *outPath}); err != nil {
		return err
	}

	dt, err := loadModel(*modelPath)
	if err != nil {
		return err
	}
	if dt.Tree() == nil {
		return errors.NewNotFittedError("DecisionTreeClassifier", "render")
	}
	name := *format
	if name == "" {
		name = filepath.Ext(*outPath)
	}
	f, err := treeviz.ParseFormat(name)
	if err != nil {
		return err
	}

	var opts []treeviz.Option
	var featureNames []string
	if *features != "" {
		featureNames = strings.Split(*features, ",")
		opts = append(opts, treeviz.WithFeatureNames(featureNames...))
	}
	if *classes != "" {
		opts = append(opts, treeviz.WithClassNames(strings.Split(*classes, ",")...))
	}
	if err := writeFile(*outPath, func(w io.Writer) error {
		return treeviz.Render(context.Background(), w, dt.Tree(), f, opts...)
	}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "wrote %s\n", *outPath)

	if *importances != "" {
		ext := strings.TrimPrefix(filepath.Ext(*importances), ".")
		if err := writeFile(*importances, func(w io.Writer) error {
			return treeviz.PlotImportances(w, dt.GetFeatureImportances(), featureNames, ext)
		}); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "wrote %s\n", *importances)
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "close %s", path)
		}
	}()
	return write(f)
}
