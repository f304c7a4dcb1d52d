package slot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/tos"
)

func TestExpandBloom_Order(t *testing.T) {
	m := tos.Matrix{
		bloom.Apply:    {0: 1, 1: 2},
		bloom.Remember: {1: 1, 0: 2},
	}
	outcomes := []tos.Outcome{{ID: 1, Text: "Classify"}, {ID: 0, Text: "Define"}}

	got := ExpandBloom(m, outcomes)

	want := []BloomSlot{
		{OutcomeID: 1, OutcomeText: "Classify", Level: bloom.Remember},
		{OutcomeID: 0, OutcomeText: "Define", Level: bloom.Remember},
		{OutcomeID: 0, OutcomeText: "Define", Level: bloom.Remember},
		{OutcomeID: 1, OutcomeText: "Classify", Level: bloom.Apply},
		{OutcomeID: 1, OutcomeText: "Classify", Level: bloom.Apply},
		{OutcomeID: 0, OutcomeText: "Define", Level: bloom.Apply},
	}
	assert.Equal(t, want, got)
}

func TestExpandBloom_UnknownOutcomePlaceholder(t *testing.T) {
	m := tos.Matrix{bloom.Create: {5: 1, 2: 1, 0: 1}}

	got := ExpandBloom(m, []tos.Outcome{{ID: 0, Text: "Known"}})

	require.Len(t, got, 3)
	assert.Equal(t, "Known", got[0].OutcomeText)
	assert.Equal(t, "Outcome 2", got[1].OutcomeText)
	assert.Equal(t, "Outcome 5", got[2].OutcomeText)
}

func TestExpandBloom_RoundTrip(t *testing.T) {
	outcomes := []tos.Outcome{{ID: 0, Text: "a", Hours: 5}, {ID: 1, Text: "b", Hours: 3}, {ID: 2, Text: "c", Hours: 1}}
	table, err := tos.Generate(outcomes, tos.Weights{
		bloom.Remember: 30, bloom.Understand: 20, bloom.Apply: 20,
		bloom.Analyze: 10, bloom.Evaluate: 10, bloom.Create: 10,
	}, 37)
	require.NoError(t, err)

	slots := ExpandBloom(table.Matrix, outcomes)
	require.Len(t, slots, table.Matrix.Total())

	back := tos.Matrix{}
	for l, row := range table.Matrix {
		back[l] = make(map[int]int, len(row))
		for id := range row {
			back[l][id] = 0
		}
	}
	for _, s := range slots {
		back[s.Level][s.OutcomeID]++
	}
	assert.Equal(t, table.Matrix, back)
}

func TestExpandType(t *testing.T) {
	d := qtype.Distribution{
		{Type: qtype.MCQ, Items: 2, PointsPerItem: 1},
		{Type: qtype.Essay, Items: 1, PointsPerItem: 10},
		{Type: qtype.Drawing, Items: 0, PointsPerItem: 3},
	}

	got := ExpandType(d)

	assert.Equal(t, []TypeSlot{
		{QuestionType: qtype.MCQ, PointsPerItem: 1},
		{QuestionType: qtype.MCQ, PointsPerItem: 1},
		{QuestionType: qtype.Essay, PointsPerItem: 10},
	}, got)
}

func TestExpand_Empty(t *testing.T) {
	assert.Empty(t, ExpandBloom(tos.Matrix{}, nil))
	assert.Empty(t, ExpandType(nil))
}
