package tos

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/p-n-ai/pai-tos/internal/bloom"
)

func fullWeights(r, u, ap, an, e, c int) Weights {
	return Weights{bloom.Remember: r, bloom.Understand: u, bloom.Apply: ap, bloom.Analyze: an, bloom.Evaluate: e, bloom.Create: c}
}

func TestValidateWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		want    int
	}{
		{"valid", fullWeights(20, 20, 20, 20, 10, 10), 0},
		{"sum too high", fullWeights(50, 50, 10, 0, 0, 0), 1},
		{"negative and bad sum", fullWeights(-10, 50, 0, 0, 0, 0), 2},
		{"missing levels", Weights{bloom.Remember: 100}, 1},
		{"empty", Weights{}, 2},
		{"over 100 single", fullWeights(120, -20, 0, 0, 0, 0), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateWeights(tt.weights)
			assert.Len(t, got, tt.want, "problems: %v", got)
		})
	}
}

func TestValidateWeights_MessagesNameLevels(t *testing.T) {
	got := ValidateWeights(Weights{bloom.Remember: 60, bloom.Apply: 40})

	assert.Equal(t, []string{"Missing Bloom levels: Understand, Analyze, Evaluate, Create"}, got)
}

func TestValidateOutcomes(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert.Empty(t, ValidateOutcomes([]Outcome{{ID: 1, Text: "a", Hours: 2}, {ID: 2, Text: "b", Hours: 0}}))
	})

	t.Run("none", func(t *testing.T) {
		assert.Equal(t, []string{"At least one learning outcome must be defined."}, ValidateOutcomes(nil))
	})

	t.Run("reports every problem", func(t *testing.T) {
		got := ValidateOutcomes([]Outcome{
			{ID: 1, Text: "", Hours: 0},
			{ID: 1, Text: "dup", Hours: -1},
		})

		assert.Contains(t, got, "Outcome 1 (id 1): text is empty")
		assert.Contains(t, got, "Outcome 2 (id 1): hours cannot be negative, got -1")
		assert.Contains(t, got, "Duplicate outcome ids: [1]")
		assert.Contains(t, got, "Total outcome hours must be greater than zero.")
	})
}
