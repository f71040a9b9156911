package diagnostics

import (
	"fmt"
	"sort"
	"strings"
)

// ClassMetrics scores one label, or an average over labels.
type ClassMetrics struct {
	Label     string  `json:"label"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarizes predictions against ground truth.
type Report struct {
	Classes     []ClassMetrics `json:"classes"`
	Accuracy    float64        `json:"accuracy"`
	MacroAvg    ClassMetrics   `json:"macro_avg"`
	WeightedAvg ClassMetrics   `json:"weighted_avg"`
	Support     int            `json:"support"`
}

// NewReport scores predicted against truth. Labels are the sorted union of
// both sides; ratios with a zero denominator are 0.
func NewReport(truth, predicted []string) *Report {
	labels := distinct(append(append([]string(nil), truth...), predicted...))
	tp := make(map[string]int, len(labels))
	fp := make(map[string]int, len(labels))
	support := make(map[string]int, len(labels))

	correct := 0
	for i, want := range truth {
		got := predicted[i]
		support[want]++
		if got == want {
			tp[want]++
			correct++
		} else {
			fp[got]++
		}
	}

	r := &Report{Support: len(truth)}
	if len(truth) > 0 {
		r.Accuracy = float64(correct) / float64(len(truth))
	}

	r.MacroAvg.Label = "macro avg"
	r.WeightedAvg.Label = "weighted avg"
	for _, label := range labels {
		c := ClassMetrics{
			Label:     label,
			Precision: ratio(tp[label], tp[label]+fp[label]),
			Recall:    ratio(tp[label], support[label]),
			Support:   support[label],
		}
		if c.Precision+c.Recall > 0 {
			c.F1 = 2 * c.Precision * c.Recall / (c.Precision + c.Recall)
		}
		r.Classes = append(r.Classes, c)

		r.MacroAvg.Precision += c.Precision
		r.MacroAvg.Recall += c.Recall
		r.MacroAvg.F1 += c.F1
		w := float64(c.Support)
		r.WeightedAvg.Precision += w * c.Precision
		r.WeightedAvg.Recall += w * c.Recall
		r.WeightedAvg.F1 += w * c.F1
	}

	if n := float64(len(labels)); n > 0 {
		r.MacroAvg.Precision /= n
		r.MacroAvg.Recall /= n
		r.MacroAvg.F1 /= n
	}
	if total := float64(r.Support); total > 0 {
		r.WeightedAvg.Precision /= total
		r.WeightedAvg.Recall /= total
		r.WeightedAvg.F1 /= total
	}
	r.MacroAvg.Support = r.Support
	r.WeightedAvg.Support = r.Support
	return r
}

// Class returns the metrics for label.
func (r *Report) Class(label string) (ClassMetrics, bool) {
	i := sort.Search(len(r.Classes), func(i int) bool { return r.Classes[i].Label >= label })
	if i < len(r.Classes) && r.Classes[i].Label == label {
		return r.Classes[i], true
	}
	return ClassMetrics{}, false
}

// String renders the report as a fixed-width table.
func (r *Report) String() string {
	width := len("weighted avg")
	for _, c := range r.Classes {
		width = max(width, len(c.Label))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%*s %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	row := func(c ClassMetrics) {
		fmt.Fprintf(&b, "%*s %9.2f %9.2f %9.2f %9d\n", width, c.Label, c.Precision, c.Recall, c.F1, c.Support)
	}
	for _, c := range r.Classes {
		row(c)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Support)
	row(r.MacroAvg)
	row(r.WeightedAvg)
	return b.String()
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// Summary renders the first n predictions as "1. Label (42.0%)" lines.
func Summary(ranked []Prediction, n int) []string {
	n = min(n, len(ranked))
	lines := make([]string, 0, n)
	for i, p := range ranked[:n] {
		lines = append(lines, fmt.Sprintf("%d. %s (%.1f%%)", i+1, p.Label, p.Prob*100))
	}
	return lines
}
