// Package dataset seeds, reads and splits the labelled symptom examples used
// to train the diagnostics model.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/Skufu/symptomdx/internal/features"
	"github.com/Skufu/symptomdx/pkg/errors"
)

// DefaultPath is where the demo CSV lives relative to the working directory.
const DefaultPath = "data/sample_training.csv"

var seed = []features.Example{
	{Sample: features.Sample{Symptoms: "fever cough fatigue sore throat"}, Condition: "Common Cold"},
	{Sample: features.Sample{Symptoms: "fever dry cough loss of taste shortness of breath"}, Condition: "COVID-19"},
	{Sample: features.Sample{Symptoms: "sneezing runny nose itchy eyes"}, Condition: "Allergic Rhinitis"},
	{Sample: features.Sample{Symptoms: "nausea vomiting diarrhea abdominal pain"}, Condition: "Gastroenteritis"},
	{Sample: features.Sample{Symptoms: "headache sensitivity to light nausea"}, Condition: "Migraine"},
	{Sample: features.Sample{Symptoms: "burning urination frequent urination lower abdominal pain"}, Condition: "Urinary Tract Infection"},
	{Sample: features.Sample{Symptoms: "joint pain stiffness swelling"}, Condition: "Arthritis"},
	{Sample: features.Sample{Symptoms: "chest pain shortness of breath sweating nausea"}, Condition: "Possible Cardiac Issue"},
	{Sample: features.Sample{Symptoms: "fever chills body aches cough"}, Condition: "Influenza"},
	{Sample: features.Sample{Symptoms: "rash itching redness swelling"}, Condition: "Dermatitis"},
}

// Seed returns a copy of the ten-row demo dataset.
func Seed() []features.Example {
	return append([]features.Example(nil), seed...)
}

// Ensure writes the seed dataset to path unless a file already exists there.
func Ensure(path string) (created bool, err error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !os.IsNotExist(err) {
		return false, errors.Wrapf(errors.ErrIO, "stat %s: %v", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, errors.Wrapf(errors.ErrIO, "create %s: %v", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return false, errors.Wrapf(errors.ErrIO, "create %s: %v", path, err)
	}
	defer f.Close()

	if err := Write(f, seed); err != nil {
		return false, err
	}
	return true, nil
}

// Write encodes examples as CSV with a symptoms,condition header. Demographic
// columns are added only when some example carries them.
func Write(w io.Writer, examples []features.Example) error {
	withDemographics := false
	for _, ex := range examples {
		if ex.Age != "" || ex.Sex != "" || ex.Duration != "" {
			withDemographics = true
			break
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"symptoms", "condition"}
	if withDemographics {
		header = []string{"symptoms", "age", "sex", "duration", "condition"}
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrapf(errors.ErrIO, "write header: %v", err)
	}
	for _, ex := range examples {
		row := []string{ex.Symptoms, ex.Condition}
		if withDemographics {
			row = []string{ex.Symptoms, string(ex.Age), ex.Sex, string(ex.Duration), ex.Condition}
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(errors.ErrIO, "write row: %v", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrapf(errors.ErrIO, "flush csv: %v", err)
	}
	return nil
}

// Load reads a CSV file of labelled examples.
func Load(path string) ([]features.Example, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(errors.ErrNotFound, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	return Read(f)
}

// Read parses labelled examples. Columns are located by header name; only
// symptoms and condition are required.
func Read(r io.Reader) ([]features.Example, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCorruptData, "read csv: %v", err)
	}
	if len(rows) == 0 {
		return nil, errors.NewValidationError("header", "empty dataset", "")
	}

	cols := map[string]int{}
	for i, name := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, required := range []string{"symptoms", "condition"} {
		if _, ok := cols[required]; !ok {
			return nil, errors.NewValidationError(required, "missing column", rows[0])
		}
	}

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	examples := make([]features.Example, 0, len(rows)-1)
	for n, row := range rows[1:] {
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		condition := NormalizeLabel(cell(row, "condition"))
		if condition == "" {
			return nil, errors.NewValidationError("condition", fmt.Sprintf("empty on line %d", n+2), row)
		}
		examples = append(examples, features.Example{
			Sample: features.Sample{
				Symptoms: cell(row, "symptoms"),
				Age:      features.Numeric(cell(row, "age")),
				Sex:      cell(row, "sex"),
				Duration: features.Numeric(cell(row, "duration")),
			},
			Condition: condition,
		})
	}
	return examples, nil
}

// NormalizeLabel trims, collapses inner whitespace and applies NFKC so that
// visually identical condition names share one label.
func NormalizeLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFKC.String(s)
}

// Split shuffles examples with a fixed seed and holds out testFraction of
// them. Both sides keep at least one example when there are two or more.
func Split(examples []features.Example, testFraction float64, seed int64) (train, test []features.Example) {
	shuffled := append([]features.Example(nil), examples...)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := len(shuffled)
	nTest := int(math.Ceil(float64(n)*testFraction - 1e-9))
	if n >= 2 {
		nTest = max(1, min(nTest, n-1))
	} else {
		nTest = 0
	}
	return shuffled[nTest:], shuffled[:nTest]
}
