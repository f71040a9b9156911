package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/Skufu/symptomdx/pkg/errors"
)

const (
	DefaultC       = 1.0
	DefaultMaxIter = 200
)

// Logistic is an L2-regularized multinomial logistic regression fitted with
// L-BFGS. C is the inverse regularization strength; biases are not penalized.
type Logistic struct {
	C       float64
	MaxIter int

	params Parameters
	// Status and Iterations describe the last Fit.
	Status     optimize.Status
	Iterations int
}

var _ Classifier = (*Logistic)(nil)

// NewLogistic returns an unfitted model with the default C and iteration cap.
func NewLogistic() *Logistic {
	return &Logistic{C: DefaultC, MaxIter: DefaultMaxIter}
}

// FromParameters rebuilds a fitted model from persisted parameters.
func FromParameters(p Parameters) (*Logistic, error) {
	if p.Classes() == 0 || len(p.Weights) != p.Classes() {
		return nil, fmt.Errorf("parameters: %d weight rows for %d biases", len(p.Weights), p.Classes())
	}
	width := p.Features()
	for k, row := range p.Weights {
		if len(row) != width {
			return nil, fmt.Errorf("parameters: weight row %d has %d features, want %d", k, len(row), width)
		}
	}
	l := NewLogistic()
	l.params = p
	return l, nil
}

// Fit minimizes the regularized multinomial log-loss over x and y.
func (l *Logistic) Fit(x [][]float64, y []int, classes int) error {
	if len(x) == 0 {
		return errors.Wrap(errors.ErrValidation, "no training rows")
	}
	if len(x) != len(y) {
		return errors.Wrapf(errors.ErrValidation, "%d rows but %d labels", len(x), len(y))
	}
	if classes < 2 {
		return errors.Wrapf(errors.ErrValidation, "need at least 2 classes, got %d", classes)
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return errors.Wrapf(errors.ErrValidation, "row %d has %d features, want %d", i, len(row), width)
		}
		if y[i] < 0 || y[i] >= classes {
			return errors.Wrapf(errors.ErrValidation, "row %d has class %d outside [0,%d)", i, y[i], classes)
		}
	}

	obj := newObjective(dense(x), y, classes, 1/l.cValue())
	problem := optimize.Problem{
		Func: obj.loss,
		Grad: obj.gradient,
	}
	settings := &optimize.Settings{
		MajorIterations:   l.maxIter(),
		GradientThreshold: 1e-4,
	}

	theta0 := make([]float64, classes*(width+1))
	result, err := optimize.Minimize(problem, theta0, settings, &optimize.LBFGS{})
	if result == nil {
		return errors.Wrap(err, "optimize")
	}
	// A line search that stalls near the optimum still leaves a usable
	// location, so only a non-finite loss is fatal.
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return errors.Newf("optimize: non-finite loss (status %v): %v", result.Status, err)
	}

	l.params = obj.unpack(result.X)
	l.Status = result.Status
	l.Iterations = result.Stats.MajorIterations
	return nil
}

// PredictProbabilities returns the softmax over class scores for one row.
func (l *Logistic) PredictProbabilities(x []float64) []float64 {
	k := l.params.Classes()
	scores := make([]float64, k)
	for c := 0; c < k; c++ {
		scores[c] = floats.Dot(l.params.Weights[c], x) + l.params.Bias[c]
	}
	lse := floats.LogSumExp(scores)
	for c := range scores {
		scores[c] = math.Exp(scores[c] - lse)
	}
	return scores
}

// Parameters returns a copy of the fitted weights.
func (l *Logistic) Parameters() Parameters {
	out := Parameters{
		Weights: make([][]float64, len(l.params.Weights)),
		Bias:    append([]float64(nil), l.params.Bias...),
	}
	for k, row := range l.params.Weights {
		out.Weights[k] = append([]float64(nil), row...)
	}
	return out
}

func (l *Logistic) cValue() float64 {
	if l.C <= 0 {
		return DefaultC
	}
	return l.C
}

func (l *Logistic) maxIter() int {
	if l.MaxIter <= 0 {
		return DefaultMaxIter
	}
	return l.MaxIter
}

// objective packs the weights row-major as classes*features followed by one
// bias per class.
type objective struct {
	x       *mat.Dense
	target  *mat.Dense
	classes int
	width   int
	lambda  float64
}

func newObjective(x *mat.Dense, y []int, classes int, lambda float64) *objective {
	rows, width := x.Dims()
	target := mat.NewDense(rows, classes, nil)
	for i, c := range y {
		target.Set(i, c, 1)
	}
	return &objective{x: x, target: target, classes: classes, width: width, lambda: lambda}
}

func (o *objective) split(theta []float64) (*mat.Dense, []float64) {
	n := o.classes * o.width
	return mat.NewDense(o.classes, o.width, theta[:n]), theta[n:]
}

// probabilities returns the row-wise softmax of x*W^T + b and the summed log-loss.
func (o *objective) probabilities(theta []float64) (*mat.Dense, float64) {
	w, b := o.split(theta)
	rows, _ := o.x.Dims()

	var scores mat.Dense
	scores.Mul(o.x, w.T())

	loss := 0.0
	row := make([]float64, o.classes)
	for i := 0; i < rows; i++ {
		mat.Row(row, i, &scores)
		floats.Add(row, b)
		lse := floats.LogSumExp(row)
		for c := range row {
			if o.target.At(i, c) == 1 {
				loss += lse - row[c]
			}
			row[c] = math.Exp(row[c] - lse)
		}
		scores.SetRow(i, row)
	}
	return &scores, loss
}

func (o *objective) loss(theta []float64) float64 {
	_, loss := o.probabilities(theta)
	n := o.classes * o.width
	return loss + 0.5*o.lambda*floats.Dot(theta[:n], theta[:n])
}

func (o *objective) gradient(grad, theta []float64) {
	probs, _ := o.probabilities(theta)
	w, _ := o.split(theta)

	var diff mat.Dense
	diff.Sub(probs, o.target)

	n := o.classes * o.width
	gw := mat.NewDense(o.classes, o.width, grad[:n])
	gw.Mul(diff.T(), o.x)
	gw.Add(gw, scaled(w, o.lambda))

	gb := grad[n:]
	rows, _ := diff.Dims()
	for c := 0; c < o.classes; c++ {
		sum := 0.0
		for i := 0; i < rows; i++ {
			sum += diff.At(i, c)
		}
		gb[c] = sum
	}
}

func (o *objective) unpack(theta []float64) Parameters {
	p := Parameters{
		Weights: make([][]float64, o.classes),
		Bias:    append([]float64(nil), theta[o.classes*o.width:]...),
	}
	for c := 0; c < o.classes; c++ {
		p.Weights[c] = append([]float64(nil), theta[c*o.width:(c+1)*o.width]...)
	}
	return p
}

func scaled(m *mat.Dense, f float64) *mat.Dense {
	var out mat.Dense
	out.Scale(f, m)
	return &out
}
