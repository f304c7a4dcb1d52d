package assign

import (
	"fmt"
	"math"

	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/slot"
	"github.com/p-n-ai/pai-tos/internal/tos"
)

const pointsTolerance = 1e-9

// Verify recomputes per-level counts and per-type counts and points from
// assigned alone and compares them with the matrix and distribution that
// produced it. Mismatches are returned as messages; an empty list means the
// blueprint preserves both configured distributions.
func Verify(assigned []slot.AssignedSlot, m tos.Matrix, d qtype.Distribution) (bool, []string) {
	var problems []string

	levelCounts := make(map[bloom.Level]int)
	typeCounts := make(map[string]int)
	typePoints := make(map[string]float64)
	for _, s := range assigned {
		levelCounts[s.Level]++
		typeCounts[s.QuestionType]++
		typePoints[s.QuestionType] += s.Points
	}

	for _, l := range bloom.Levels {
		if _, ok := m[l]; !ok {
			continue
		}
		want := m.LevelTotal(l)
		if got := levelCounts[l]; got != want {
			problems = append(problems, fmt.Sprintf("Bloom '%s' expected %d items, got %d", l, want, got))
		}
	}

	for _, e := range d {
		if got := typeCounts[e.Type]; got != e.Items {
			problems = append(problems, fmt.Sprintf("Question type '%s' expected %d items, got %d", e.Type, e.Items, got))
		}
		want := e.TotalPoints()
		if got := typePoints[e.Type]; !pointsEqual(got, want) {
			problems = append(problems, fmt.Sprintf("Question type '%s' expected %g total points, got %g", e.Type, want, got))
		}
	}

	return len(problems) == 0, problems
}

func pointsEqual(a, b float64) bool {
	return math.Abs(a-b) <= pointsTolerance*math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
}
