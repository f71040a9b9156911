package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/symptomdx/internal/features"
	"github.com/Skufu/symptomdx/pkg/errors"
)

func TestEnsureSeedsOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "sample_training.csv")

	created, err := Ensure(path)
	require.NoError(t, err)
	assert.True(t, created)

	examples, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Seed(), examples)

	require.NoError(t, os.WriteFile(path, []byte("symptoms,condition\nrash,Dermatitis\n"), 0o644))
	created, err = Ensure(path)
	require.NoError(t, err)
	assert.False(t, created)

	examples, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, examples, 1)
}

func TestReadOptionalColumns(t *testing.T) {
	in := "Condition,Symptoms,Age,Sex,Duration\n" +
		"\"Common   Cold\",\"fever, cough\",29,female,3\n" +
		"Migraine,headache,,,\n"

	examples, err := Read(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, examples, 2)

	assert.Equal(t, "Common Cold", examples[0].Condition)
	assert.Equal(t, "fever, cough", examples[0].Symptoms)
	assert.Equal(t, features.Numeric("29"), examples[0].Age)
	assert.Equal(t, "female", examples[0].Sex)
	assert.Equal(t, features.Numeric(""), examples[1].Duration)
}

func TestReadRequiresColumns(t *testing.T) {
	_, err := Read(strings.NewReader("symptoms,age\nrash,3\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = Read(strings.NewReader(""))
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestReadRejectsEmptyCondition(t *testing.T) {
	_, err := Read(strings.NewReader("symptoms,condition\nrash,  \n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestWriteRoundTripWithDemographics(t *testing.T) {
	in := []features.Example{
		{Sample: features.Sample{Symptoms: "rash", Age: "40", Sex: "m", Duration: "2"}, Condition: "Dermatitis"},
		{Sample: features.Sample{Symptoms: "cough"}, Condition: "Influenza"},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, in))
	assert.True(t, strings.HasPrefix(buf.String(), "symptoms,age,sex,duration,condition\n"))

	out, err := Read(&buf)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestNormalizeLabel(t *testing.T) {
	assert.Equal(t, "COVID-19", NormalizeLabel("  ＣＯＶＩＤ-１９ "))
	assert.Equal(t, "Common Cold", NormalizeLabel("Common \t Cold"))
}

func TestSplitDeterministic(t *testing.T) {
	examples := Seed()

	trainA, testA := Split(examples, 0.2, 42)
	trainB, testB := Split(examples, 0.2, 42)
	assert.Equal(t, trainA, trainB)
	assert.Equal(t, testA, testB)
	assert.Len(t, trainA, 8)
	assert.Len(t, testA, 2)
	assert.Equal(t, Seed(), examples, "input must not be reordered")
}

func TestSplitKeepsBothSides(t *testing.T) {
	train, test := Split(Seed()[:2], 0.9, 1)
	assert.Len(t, train, 1)
	assert.Len(t, test, 1)

	train, test = Split(Seed()[:1], 0.5, 1)
	assert.Len(t, train, 1)
	assert.Empty(t, test)
}
