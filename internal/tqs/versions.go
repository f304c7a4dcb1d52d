package tqs

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/p-n-ai/pai-tos/internal/qtype"
)

// Version is one shuffled form of an exam.
type Version struct {
	Label     string     `json:"label"`
	Questions []Question `json:"questions"`
}

func versionLabel(i int) string {
	if i < 8 {
		return "Version " + choiceLetter(i)
	}
	return fmt.Sprintf("Version %d", i+1)
}

// Versions returns n forms of questions. Each form has its own question order
// and MCQ choice order, derived from seed, so the same seed always yields the
// same forms. MCQ answers are remapped to follow their choice. questions is
// not modified.
func Versions(questions []Question, n int, seed uint64) []Version {
	versions := make([]Version, 0, max(n, 0))
	for i := range n {
		rng := rand.New(rand.NewPCG(seed, uint64(i)))

		qs := make([]Question, len(questions))
		for j, q := range questions {
			qs[j] = cloneQuestion(q)
		}
		rng.Shuffle(len(qs), func(a, b int) { qs[a], qs[b] = qs[b], qs[a] })
		for j := range qs {
			qs[j].Number = j + 1
			shuffleChoices(&qs[j], rng)
		}

		versions = append(versions, Version{Label: versionLabel(i), Questions: qs})
	}
	return versions
}

// shuffleChoices permutes an MCQ's choices and moves its answer letter with
// the correct choice. Questions without a usable answer are left alone.
func shuffleChoices(q *Question, rng *rand.Rand) {
	if q.Type != qtype.MCQ || len(q.Choices) < 2 {
		return
	}
	correct := choiceIndex(q.CorrectAnswer)
	if correct < 0 || correct >= len(q.Choices) {
		return
	}

	order := rng.Perm(len(q.Choices))
	choices := make([]string, len(order))
	for newPos, oldPos := range order {
		choices[newPos] = q.Choices[oldPos]
		if oldPos == correct {
			q.CorrectAnswer = choiceLetter(newPos)
		}
	}
	q.Choices = choices
}

func cloneQuestion(q Question) Question {
	q.Choices = slices.Clone(q.Choices)
	if q.Rubric != nil {
		r := *q.Rubric
		r.Criteria = slices.Clone(r.Criteria)
		q.Rubric = &r
	}
	return q
}
