package tqs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/qtype"
)

func criteria(points ...float64) Rubric {
	r := Rubric{}
	for _, p := range points {
		r.Criteria = append(r.Criteria, Criterion{Descriptor: "c", Points: p})
	}
	return r
}

func TestScaleRubric(t *testing.T) {
	tests := []struct {
		name   string
		in     Rubric
		points float64
		want   []float64
	}{
		{"proportional", criteria(2, 3), 10, []float64{4, 6}},
		{"already exact", criteria(1, 4), 5, []float64{1, 4}},
		{"all zero splits evenly", criteria(0, 0, 0, 0), 8, []float64{2, 2, 2, 2}},
		{"thirds sum exactly", criteria(1, 1, 1), 1, []float64{1.0 / 3, 1.0 / 3, 1 - 2.0/3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScaleRubric(tt.in, tt.points)

			require.Len(t, got.Criteria, len(tt.want))
			var sum float64
			for i, c := range got.Criteria {
				assert.InDelta(t, tt.want[i], c.Points, 1e-12)
				sum += c.Points
			}
			assert.Equal(t, tt.points, got.TotalPoints)
			assert.InDelta(t, tt.points, sum, 1e-12)
		})
	}
}

func TestScaleRubric_DoesNotMutateInput(t *testing.T) {
	in := criteria(2, 3)
	_ = ScaleRubric(in, 10)
	assert.Equal(t, 2.0, in.Criteria[0].Points)
}

func TestScaleRubric_NoCriteria(t *testing.T) {
	got := ScaleRubric(Rubric{}, 4)
	assert.Empty(t, got.Criteria)
	assert.Equal(t, 4.0, got.TotalPoints)
}

func TestValidateQuestion(t *testing.T) {
	valid := Question{
		Number: 1, OutcomeText: "o", Level: bloom.Apply, Type: qtype.MCQ, Points: 1,
		Text: "q", Choices: []string{"a", "b", "c"}, CorrectAnswer: "C", Status: StatusDrafted,
	}
	assert.Empty(t, ValidateQuestion(valid))

	bad := valid
	bad.Number = 0
	bad.Text = ""
	bad.Points = 0
	bad.CorrectAnswer = "D"
	assert.Equal(t, []string{
		"Invalid question number: 0",
		"Question text is empty",
		"Invalid points value: 0",
		`Correct answer "D" does not name a choice`,
	}, ValidateQuestion(bad))

	essay := Question{
		Number: 2, OutcomeText: "o", Level: bloom.Evaluate, Type: qtype.Essay, Points: 10,
		Text: "q", Rubric: &Rubric{Criteria: []Criterion{{Descriptor: "d", Points: 4}}}, Status: StatusEdited,
	}
	assert.Equal(t, []string{"Rubric totals 4 points, question is worth 10"}, ValidateQuestion(essay))

	assert.Equal(t, []string{"Question 1: Rubric totals 4 points, question is worth 10"}, ValidateSheet([]Question{essay}))
}
