package explain

import (
	"fmt"
	"strings"

	"github.com/Skufu/symptomdx/internal/diagnostics"
	"github.com/Skufu/symptomdx/internal/features"
)

const systemPrompt = "You are a clinical decision support AI. You are not a doctor. " +
	"Provide helpful, cautious, evidence-informed guidance."

// Payload is the patient context sent along with the ranking.
type Payload struct {
	features.Sample
	History string `json:"history"`
	Notes   string `json:"notes"`
}

// FormatPrompt lists the top five conditions, the non-empty patient fields
// and the sections the answer must contain.
func FormatPrompt(p Payload, ranked []diagnostics.Prediction) string {
	lines := []string{
		"Based on the following symptom analysis, provide a detailed explanation:",
		"",
		"Most likely conditions:",
	}
	lines = append(lines, diagnostics.Summary(ranked, 5)...)

	lines = append(lines, "", "Patient information:")
	for _, field := range p.fields() {
		if field.value != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", field.name, field.value))
		}
	}

	lines = append(lines,
		"",
		"Structure your response with the following sections:",
		"1) Probable conditions (top 3-5) with brief rationale",
		"2) Severity assessment (mild/moderate/severe) with reasoning and red flags",
		"3) What to do now: step-by-step self-care and when to seek urgent care",
		"4) How long it may last and expected progression",
		"5) What to tell a doctor and suggested tests to discuss",
		"6) Clear disclaimer that you are not a medical professional",
		"",
		"Be concise but thorough. Avoid overconfident statements.",
	)
	return strings.Join(lines, "\n")
}

type field struct {
	name, value string
}

func (p Payload) fields() []field {
	return []field{
		{"symptoms", strings.TrimSpace(p.Symptoms)},
		{"age", numericText(p.Age)},
		{"sex", strings.TrimSpace(p.Sex)},
		{"duration", numericText(p.Duration)},
		{"history", strings.TrimSpace(p.History)},
		{"notes", strings.TrimSpace(p.Notes)},
	}
}

// numericText hides absent and zero values.
func numericText(n features.Numeric) string {
	if f, err := n.Float(); err == nil && f == 0 {
		return ""
	}
	return strings.TrimSpace(string(n))
}
