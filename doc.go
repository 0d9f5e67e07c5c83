// Package treeml provides a fast decision tree classifier for Go, designed for
// backend services that train and serve small tree models in process.
//
// treeml offers a scikit-learn-like API on top of gonum matrices, so the
// estimator fits into code written against Python's ecosystem.
//
// # Features
//
// - Gini, entropy and misclassification split criteria
// - Breadth-first or depth-first tree growth over a flat node array
// - Radix or comparison sorting of feature values per node
// - Bootstrap and random feature subsampling for forest-style training
// - Row-major and column-major inputs without copies on the prediction path
// - Structured errors and zerolog/slog logging
//
// # Installation
//
//	go get github.com/YuminosukeSato/treeml
//
// # Quick Start
//
//	package main
//
//	import (
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/treeml/sklearn/tree"
//	    "gonum.org/v1/gonum/mat"
//	)
//
//	func main() {
//	    X := mat.NewDense(4, 1, []float64{0, 1, 2, 3})
//	    y := mat.NewDense(4, 1, []float64{0, 0, 1, 1})
//
//	    clf := tree.NewDecisionTreeClassifier(
//	        tree.WithCriterion("entropy"),
//	        tree.WithMaxDepth(5),
//	        tree.WithRandomState(42),
//	    )
//	    if err := clf.Fit(X, y); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    pred, err := clf.Predict(mat.NewDense(2, 1, []float64{0.5, 2.5}))
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println(mat.Formatted(pred))
//	}
//
// # Packages
//
//   - sklearn/tree: DecisionTreeClassifier and the flat Tree it produces
//   - sklearn/tree/treeviz: Graphviz rendering and importance charts
//   - metrics: accuracy, confusion matrix, balanced accuracy
//   - core/dense: raw buffer views and column-major working stores
//   - core/model: estimator state, interfaces and gob persistence
//   - core/parallel: parallel prediction helpers
//   - pkg/errors: structured errors and warnings
//   - pkg/log: structured logging
//   - cmd/dtree: command-line fit, predict, score, info and render
//
// # Large inputs
//
// Prediction is parallelized above a row threshold. Fitting is single
// threaded; train several trees concurrently for forests, each with its own
// classifier.
//
// # License
//
// treeml is released under the MIT License.
package treeml
