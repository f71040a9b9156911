// Package features turns free-text symptoms and patient metadata into the
// fixed-width numeric vectors consumed by the diagnostics model.
package features

import (
	"crypto/sha256"
	"encoding/hex"
)

// Vocabulary is the ordered symptom schema. Term positions are feature
// positions, so any change to Terms must come with a new Version.
type Vocabulary struct {
	Version string
	Terms   []string
}

// Default is the reference symptom vocabulary.
var Default = Vocabulary{
	Version: "v1",
	Terms: []string{
		"fever", "cough", "fatigue", "sore throat", "headache", "nausea", "vomiting",
		"diarrhea", "abdominal pain", "joint pain", "stiffness", "swelling",
		"chest pain", "shortness of breath", "sneezing", "runny nose", "itchy eyes",
		"rash", "itching", "redness", "burning", "urination", "chills", "body aches",
		"loss of taste", "sensitivity to light", "stiff neck", "confusion",
		"blue lips", "unconscious", "bleeding", "dizziness", "congestion",
	},
}

// demographicNames follow the symptom flags in every feature vector.
var demographicNames = []string{"age", "sex_male", "sex_female", "duration"}

// Size is the number of symptom flags.
func (v Vocabulary) Size() int {
	return len(v.Terms)
}

// Width is the full feature vector length: symptom flags, age, sex one-hot, duration.
func (v Vocabulary) Width() int {
	return len(v.Terms) + len(demographicNames)
}

// FeatureNames lists a name for every position of an assembled vector.
func (v Vocabulary) FeatureNames() []string {
	names := make([]string, 0, v.Width())
	names = append(names, v.Terms...)
	return append(names, demographicNames...)
}

// Fingerprint identifies the exact positional scheme. Persisted models carry
// it so a vocabulary edit is caught at load time.
func (v Vocabulary) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(v.Version))
	for _, term := range v.Terms {
		h.Write([]byte{0})
		h.Write([]byte(term))
	}
	return v.Version + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}
