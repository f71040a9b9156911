// Package classifier provides the linear model behind the diagnostics
// pipeline: a feature standardizer and a multinomial logistic regression.
package classifier

// Classifier is a trainable probabilistic multiclass model. Classes are
// identified by index in [0, classes).
type Classifier interface {
	Fit(x [][]float64, y []int, classes int) error
	PredictProbabilities(x []float64) []float64
	Parameters() Parameters
}

// Parameters are the fitted weights of a linear model: one weight row and
// one bias per class.
type Parameters struct {
	Weights [][]float64
	Bias    []float64
}

// Classes reports the number of classes the parameters describe.
func (p Parameters) Classes() int {
	return len(p.Bias)
}

// Features reports the input width the parameters expect.
func (p Parameters) Features() int {
	if len(p.Weights) == 0 {
		return 0
	}
	return len(p.Weights[0])
}
