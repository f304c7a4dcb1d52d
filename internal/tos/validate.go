package tos

import (
	"fmt"
	"slices"
	"strings"

	"github.com/p-n-ai/pai-tos/internal/bloom"
)

// ValidateWeights reports every problem with a Bloom weight configuration:
// missing levels, values outside 0..100, and a sum other than 100.
func ValidateWeights(w Weights) []string {
	var problems []string

	var missing []string
	for _, l := range bloom.Levels {
		if _, ok := w[l]; !ok {
			missing = append(missing, l.String())
		}
	}
	if len(missing) > 0 {
		problems = append(problems, fmt.Sprintf("Missing Bloom levels: %s", strings.Join(missing, ", ")))
	}

	sum := 0
	for _, l := range bloom.Levels {
		v, ok := w[l]
		if !ok {
			continue
		}
		if v < 0 || v > 100 {
			problems = append(problems, fmt.Sprintf("Bloom '%s' weight must be between 0 and 100, got %d", l, v))
		}
		sum += v
	}
	for l := range w {
		if !l.Valid() {
			problems = append(problems, fmt.Sprintf("Unknown Bloom level %d in weights", int(l)))
		}
	}
	if sum != 100 {
		problems = append(problems, fmt.Sprintf("Bloom weights must sum to 100, got %d", sum))
	}
	return problems
}

// ValidateOutcomes reports every problem with a list of learning outcomes.
func ValidateOutcomes(outcomes []Outcome) []string {
	if len(outcomes) == 0 {
		return []string{"At least one learning outcome must be defined."}
	}

	var problems []string
	seen := make(map[int]bool, len(outcomes))
	var dup []int
	var total float64
	for i, o := range outcomes {
		if seen[o.ID] && !slices.Contains(dup, o.ID) {
			dup = append(dup, o.ID)
		}
		seen[o.ID] = true
		if strings.TrimSpace(o.Text) == "" {
			problems = append(problems, fmt.Sprintf("Outcome %d (id %d): text is empty", i+1, o.ID))
		}
		if o.Hours < 0 {
			problems = append(problems, fmt.Sprintf("Outcome %d (id %d): hours cannot be negative, got %g", i+1, o.ID, o.Hours))
		}
		total += o.Hours
	}
	if len(dup) > 0 {
		problems = append(problems, fmt.Sprintf("Duplicate outcome ids: %v", dup))
	}
	if total <= 0 {
		problems = append(problems, "Total outcome hours must be greater than zero.")
	}
	return problems
}
