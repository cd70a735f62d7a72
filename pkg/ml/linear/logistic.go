// Package linear evaluates logistic-regression artifacts produced by the
// offline training pipeline. Training itself happens out of process; this
// package only consumes frozen weights.
package linear

import "math"

type Weights struct {
	Bias         float64   `json:"bias"`
	Coefficients []float64 `json:"coefficients"`
}

// Predict returns the positive-class probability for one sample. The sample
// must be ordered to match the artifact's feature names.
func Predict(weights Weights, sample []float64) float64 {
	return sigmoid(dot(weights.Coefficients, sample) + weights.Bias)
}

func dot(weights []float64, sample []float64) float64 {
	var sum float64
	for i := 0; i < len(weights) && i < len(sample); i++ {
		sum += weights[i] * sample[i]
	}
	return sum
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}
