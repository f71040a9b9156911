package features

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Skufu/symptomdx/pkg/errors"
)

// Numeric holds the raw text of an optional numeric field. The empty value
// means absent and reads as zero; anything else must parse as a float.
type Numeric string

// Number wraps a float as a Numeric.
func Number(f float64) Numeric {
	return Numeric(strconv.FormatFloat(f, 'g', -1, 64))
}

// Float parses the value. Absent and blank values are 0.
func (n Numeric) Float() (float64, error) {
	raw := strings.TrimSpace(string(n))
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.Wrapf(errors.ErrNumericParse, "%q is not a number", raw)
	}
	return f, nil
}

// UnmarshalJSON accepts a JSON number, a string, or null.
func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(s)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return errors.Wrapf(errors.ErrNumericParse, "%s is not a number", string(data))
	}
	*n = Numeric(num.String())
	return nil
}

// MarshalJSON writes numbers as JSON numbers and absent values as null.
func (n Numeric) MarshalJSON() ([]byte, error) {
	if strings.TrimSpace(string(n)) == "" {
		return []byte("null"), nil
	}
	if f, err := n.Float(); err == nil {
		return json.Marshal(f)
	}
	return json.Marshal(string(n))
}

// Sample is one patient description.
type Sample struct {
	Symptoms string  `json:"symptoms"`
	Age      Numeric `json:"age"`
	Sex      string  `json:"sex"`
	Duration Numeric `json:"duration"`
}

// Example is a labelled Sample used for training and evaluation.
type Example struct {
	Sample
	Condition string `json:"condition"`
}

// Assemble builds the feature vector: symptom flags, age, (male, female), duration.
func (v Vocabulary) Assemble(s Sample) ([]float64, error) {
	age, err := s.Age.Float()
	if err != nil {
		return nil, errors.Wrap(err, "age")
	}
	duration, err := s.Duration.Float()
	if err != nil {
		return nil, errors.Wrap(err, "duration")
	}

	vector := make([]float64, 0, v.Width())
	vector = append(vector, v.Vectorize(s.Symptoms)...)
	male, female := EncodeSex(s.Sex)
	vector = append(vector, age, male, female, duration)
	return vector, nil
}

// Matrix assembles every example against v and returns the rows with their labels.
func (v Vocabulary) Matrix(examples []Example) ([][]float64, []string, error) {
	x := make([][]float64, 0, len(examples))
	y := make([]string, 0, len(examples))
	for i, ex := range examples {
		row, err := v.Assemble(ex.Sample)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "example %d", i)
		}
		x = append(x, row)
		y = append(y, ex.Condition)
	}
	return x, y, nil
}
