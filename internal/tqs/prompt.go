package tqs

import (
	"fmt"
	"strings"

	"github.com/p-n-ai/pai-tos/internal/ai"
	"github.com/p-n-ai/pai-tos/internal/slot"
)

const systemPrompt = `You write assessment items for teachers. Every item must target the given learning outcome at the given Bloom level. Reply with a single JSON object and nothing else.`

var formatInstructions = map[family]string{
	familyChoice: `Each question has exactly 4 choices without letter prefixes and one correct answer given as its letter.
{"questions": [{"question_text": "...", "choices": ["...", "...", "...", "..."], "correct_answer": "B"}]}`,
	familyShort: `Each question prompts a brief written response and includes an answer key. Add a rubric only when the item is worth more than 1 point.
{"questions": [{"question_text": "...", "answer_key": "...", "rubric": null}]}`,
	familyConstructed: `Each question includes a sample answer and a rubric of 2 to 4 criteria whose points total the item's points.
{"questions": [{"question_text": "...", "sample_answer": "...", "rubric": {"criteria": [{"descriptor": "...", "points": 0}], "total_points": 0}}]}`,
}

// buildPrompt asks for n distinct questions sharing the characteristics of s.
func buildPrompt(s slot.AssignedSlot, n int) []ai.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate exactly %d distinct %s questions.\n\n", n, s.QuestionType)
	fmt.Fprintf(&b, "Learning Outcome: %s\n", s.OutcomeText)
	fmt.Fprintf(&b, "Bloom Level: %s\n", s.Level)
	fmt.Fprintf(&b, "Question Type: %s\n", s.QuestionType)
	fmt.Fprintf(&b, "Points per question: %g\n\n", s.Points)
	fmt.Fprintf(&b, "Cognitive complexity must match the %s level.\n", s.Level)
	b.WriteString(formatInstructions[familyOf(s.QuestionType)])

	return []ai.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: b.String()},
	}
}
