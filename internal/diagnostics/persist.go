package diagnostics

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/Skufu/symptomdx/internal/classifier"
	"github.com/Skufu/symptomdx/pkg/errors"
)

const (
	DefaultModelPath  = "model/diagnostics_model.gob"
	DefaultLabelsPath = "model/labels.gob"

	artifactFormat = 1
)

// artifact is the gob payload of the model file.
type artifact struct {
	Format      int
	Vocabulary  string
	Features    []string
	Mean, Scale []float64
	Weights     [][]float64
	Bias        []float64
	Classes     []string
}

// Save writes the fitted pipeline to modelPath and the label list to
// labelsPath, creating parent directories as needed.
func (m *Model) Save(modelPath, labelsPath string) error {
	if !m.Trained() {
		return errors.ErrNotTrained
	}
	params := m.clf.Parameters()
	a := artifact{
		Format:     artifactFormat,
		Vocabulary: m.vocab.Fingerprint(),
		Features:   m.vocab.FeatureNames(),
		Mean:       m.scaler.Mean,
		Scale:      m.scaler.Scale,
		Weights:    params.Weights,
		Bias:       params.Bias,
		Classes:    m.labels,
	}
	if err := writeGob(modelPath, a); err != nil {
		return err
	}
	return writeGob(labelsPath, m.labels)
}

// Load reads a model saved by Save. Both files must exist and agree with each
// other and with the configured vocabulary.
func Load(modelPath, labelsPath string, opts ...Option) (*Model, error) {
	m := New(opts...)

	modelMissing, labelsMissing := missing(modelPath), missing(labelsPath)
	switch {
	case modelMissing && labelsMissing:
		return nil, errors.Wrapf(errors.ErrNotFound, "model %s and labels %s", modelPath, labelsPath)
	case modelMissing:
		return nil, fmt.Errorf("model %s: %w: %w", modelPath, errors.ErrNotFound, errors.ErrCorruptData)
	case labelsMissing:
		return nil, fmt.Errorf("labels %s: %w: %w", labelsPath, errors.ErrNotFound, errors.ErrCorruptData)
	}

	var a artifact
	if err := readGob(modelPath, &a); err != nil {
		return nil, err
	}
	var labels []string
	if err := readGob(labelsPath, &labels); err != nil {
		return nil, err
	}

	if err := a.validate(m, labels); err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptData, "%s: %v", modelPath, err)
	}
	clf, err := classifier.FromParameters(classifier.Parameters{Weights: a.Weights, Bias: a.Bias})
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptData, "%s: %v", modelPath, err)
	}

	m.scaler = &classifier.StandardScaler{Mean: a.Mean, Scale: a.Scale}
	m.clf = clf
	m.labels = labels
	return m, nil
}

func (a artifact) validate(m *Model, labels []string) error {
	if a.Format != artifactFormat {
		return fmt.Errorf("unsupported format %d", a.Format)
	}
	if a.Vocabulary != m.vocab.Fingerprint() {
		return fmt.Errorf("vocabulary %s does not match %s", a.Vocabulary, m.vocab.Fingerprint())
	}
	width := m.vocab.Width()
	if len(a.Mean) != width || len(a.Scale) != width {
		return fmt.Errorf("scaler width %d/%d, want %d", len(a.Mean), len(a.Scale), width)
	}
	for j, s := range a.Scale {
		if s == 0 {
			return fmt.Errorf("zero scale for feature %d", j)
		}
	}
	if len(a.Classes) < 2 || len(a.Weights) != len(a.Classes) || len(a.Bias) != len(a.Classes) {
		return fmt.Errorf("%d classes with %d weight rows and %d biases", len(a.Classes), len(a.Weights), len(a.Bias))
	}
	for k, row := range a.Weights {
		if len(row) != width {
			return fmt.Errorf("weight row %d has width %d, want %d", k, len(row), width)
		}
	}
	if !slices.Equal(a.Classes, labels) {
		return fmt.Errorf("labels file lists %v, model has %v", labels, a.Classes)
	}
	return nil
}

func missing(path string) bool {
	_, err := os.Stat(path)
	return os.IsNotExist(err)
}

// writeGob encodes v into a temp file next to path and renames it into place.
func writeGob(path string, v any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(errors.ErrIO, "create %s: %v", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(errors.ErrIO, "create temp for %s: %v", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return errors.Wrapf(errors.ErrIO, "encode %s: %v", path, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(errors.ErrIO, "close %s: %v", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(errors.ErrIO, "rename %s: %v", path, err)
	}
	return nil
}

func readGob(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(errors.ErrNotFound, "open %s", path)
		}
		return errors.Wrapf(errors.ErrCorruptData, "open %s: %v", path, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return errors.Wrapf(errors.ErrCorruptData, "decode %s: %v", path, err)
	}
	return nil
}
