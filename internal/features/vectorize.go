package features

import (
	"strings"
	"unicode"
)

// Normalize lowercases and trims a token, then drops every rune that is not
// a word character or whitespace.
func Normalize(token string) string {
	token = strings.TrimSpace(strings.ToLower(token))
	return strings.Map(func(r rune) rune {
		if r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, token)
}

// normalizeList splits comma separated symptoms and normalizes each piece.
// A piece that normalizes to "" is kept and matches every term.
func normalizeList(text string) []string {
	pieces := strings.Split(text, ",")
	out := make([]string, len(pieces))
	for i, t := range pieces {
		out[i] = Normalize(t)
	}
	return out
}

// Vectorize returns one 0/1 flag per vocabulary term. A term is flagged when
// some token contains it or is contained by it.
func (v Vocabulary) Vectorize(text string) []float64 {
	vector := make([]float64, len(v.Terms))
	if text == "" {
		return vector
	}

	tokens := normalizeList(text)
	for i, term := range v.Terms {
		for _, token := range tokens {
			if strings.Contains(token, term) || strings.Contains(term, token) {
				vector[i] = 1
				break
			}
		}
	}
	return vector
}

// VectorizeSymptoms vectorizes against the Default vocabulary.
func VectorizeSymptoms(text string) []float64 {
	return Default.Vectorize(text)
}

// EncodeSex one-hot encodes sex as (male, female). Anything unrecognised is (0, 0).
func EncodeSex(sex string) (male, female float64) {
	switch strings.ToLower(sex) {
	case "male", "m":
		return 1, 0
	case "female", "f":
		return 0, 1
	default:
		return 0, 0
	}
}
