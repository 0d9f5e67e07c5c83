package model

import (
	"gonum.org/v1/gonum/mat"
)

// Scorer is the interface for models that can compute a score.
type Scorer interface {
	// Score returns the mean accuracy on the given data and labels.
	Score(X mat.Matrix, y mat.Matrix) (float64, error)
}

// Classifier combines interfaces for classification models.
type Classifier interface {
	Estimator
	Scorer

	// PredictProba returns probability estimates for each class.
	PredictProba(X mat.Matrix) (mat.Matrix, error)

	// PredictLogProba returns the natural log of PredictProba.
	PredictLogProba(X mat.Matrix) (mat.Matrix, error)

	// Classes returns the class labels the model can predict.
	Classes() []int
}

// ParameterGetter is the interface for models that expose their parameters.
type ParameterGetter interface {
	// GetParams returns the model's hyperparameters.
	GetParams() map[string]interface{}
}

// ParameterSetter is the interface for models that allow parameter modification.
type ParameterSetter interface {
	// SetParams sets the model's hyperparameters.
	SetParams(params map[string]interface{}) error
}

// SKLearnCompatible is implemented by estimators exposing sklearn-style
// parameter maps.
type SKLearnCompatible interface {
	ParameterGetter
	ParameterSetter
}
