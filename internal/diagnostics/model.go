// Package diagnostics ranks probable conditions for a symptom sample with a
// standardized linear classifier.
//
// A Model starts untrained. Fit or Load make it trained; after that it is
// read-only and safe to share between goroutines. Retraining produces a new
// Model that callers swap in through a Handle.
package diagnostics

import (
	"sort"

	"github.com/Skufu/symptomdx/internal/classifier"
	"github.com/Skufu/symptomdx/internal/features"
	"github.com/Skufu/symptomdx/pkg/errors"
	"github.com/Skufu/symptomdx/pkg/logger"
)

// Prediction is one entry of a ranked result.
type Prediction struct {
	Label string  `json:"label"`
	Prob  float64 `json:"prob"`
}

// Model couples a fitted scaler and classifier with the label space.
type Model struct {
	vocab         features.Vocabulary
	newClassifier func() classifier.Classifier

	scaler *classifier.StandardScaler
	clf    classifier.Classifier
	labels []string
}

// Option configures a Model.
type Option func(*Model)

// WithVocabulary replaces the default symptom vocabulary.
func WithVocabulary(v features.Vocabulary) Option {
	return func(m *Model) { m.vocab = v }
}

// WithClassifier sets the factory used by Fit.
func WithClassifier(factory func() classifier.Classifier) Option {
	return func(m *Model) { m.newClassifier = factory }
}

// New returns an untrained model.
func New(opts ...Option) *Model {
	m := &Model{
		vocab: features.Default,
		newClassifier: func() classifier.Classifier {
			return classifier.NewLogistic()
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Trained reports whether Fit or Load has completed.
func (m *Model) Trained() bool {
	return m != nil && m.clf != nil
}

// Labels returns the label space in classifier order.
func (m *Model) Labels() []string {
	return append([]string(nil), m.labels...)
}

// Vocabulary returns the schema the model encodes samples with.
func (m *Model) Vocabulary() features.Vocabulary {
	return m.vocab
}

// Fit trains on examples. The distinct conditions, sorted, become the label space.
// A trained model is never refitted; build a new one and swap it through a Handle.
func (m *Model) Fit(examples []features.Example) error {
	if m.Trained() {
		return errors.NewValidationError("model", "already trained", len(m.labels))
	}
	if len(examples) == 0 {
		return errors.NewValidationError("examples", "no training examples", 0)
	}
	x, y, err := m.vocab.Matrix(examples)
	if err != nil {
		return errors.Wrap(err, "prepare training data")
	}

	labels := distinct(y)
	index := make(map[string]int, len(labels))
	for i, label := range labels {
		index[label] = i
	}
	ids := make([]int, len(y))
	for i, label := range y {
		ids[i] = index[label]
	}

	scaler := classifier.FitScaler(x)
	clf := m.newClassifier()
	if err := clf.Fit(scaler.TransformAll(x), ids, len(labels)); err != nil {
		return errors.Wrap(err, "fit classifier")
	}

	if l, ok := clf.(*classifier.Logistic); ok {
		logger.Get().With("component", "diagnostics").Debugw("classifier fitted",
			"examples", len(examples),
			"labels", len(labels),
			"iterations", l.Iterations,
			"status", l.Status.String())
	}

	m.scaler, m.clf, m.labels = scaler, clf, labels
	return nil
}

// PredictProba ranks every known label for sample, most probable first.
// Equal probabilities keep label-space order.
func (m *Model) PredictProba(sample features.Sample) ([]Prediction, error) {
	probs, err := m.probabilities(sample)
	if err != nil {
		return nil, err
	}

	ranked := make([]Prediction, len(m.labels))
	for i, label := range m.labels {
		ranked[i] = Prediction{Label: label, Prob: probs[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Prob > ranked[j].Prob
	})
	return ranked, nil
}

// Predict returns the single most probable label.
func (m *Model) Predict(sample features.Sample) (string, error) {
	probs, err := m.probabilities(sample)
	if err != nil {
		return "", err
	}
	best := 0
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return m.labels[best], nil
}

// Evaluate predicts every example and scores the predictions against the
// recorded conditions.
func (m *Model) Evaluate(examples []features.Example) (*Report, error) {
	if !m.Trained() {
		return nil, errors.ErrNotTrained
	}
	truth := make([]string, 0, len(examples))
	predicted := make([]string, 0, len(examples))
	for i, ex := range examples {
		label, err := m.Predict(ex.Sample)
		if err != nil {
			return nil, errors.Wrapf(err, "example %d", i)
		}
		truth = append(truth, ex.Condition)
		predicted = append(predicted, label)
	}
	return NewReport(truth, predicted), nil
}

func (m *Model) probabilities(sample features.Sample) ([]float64, error) {
	if !m.Trained() {
		return nil, errors.ErrNotTrained
	}
	x, err := m.vocab.Assemble(sample)
	if err != nil {
		return nil, err
	}
	return m.clf.PredictProbabilities(m.scaler.Transform(x)), nil
}

func distinct(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
