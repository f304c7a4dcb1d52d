// Package tqs builds the Test Question Sheet: one drafted question per
// assigned slot, with the slot's outcome, level, type, and points carried
// over unchanged.
package tqs

import (
	"fmt"
	"time"

	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/slot"
)

// Status records where a question's content came from.
type Status string

const (
	StatusDrafted     Status = "drafted"
	StatusPending     Status = "pending"
	StatusEdited      Status = "edited"
	StatusRegenerated Status = "regenerated"
)

// Criterion is one scoring line of a rubric.
type Criterion struct {
	Descriptor string  `json:"descriptor"`
	Points     float64 `json:"points"`
}

// Rubric scores constructed responses.
type Rubric struct {
	Criteria    []Criterion `json:"criteria"`
	TotalPoints float64     `json:"total_points"`
}

// Question is one item of the sheet.
type Question struct {
	Number        int         `json:"question_number"`
	OutcomeID     int         `json:"outcome_id"`
	OutcomeText   string      `json:"outcome_text"`
	Level         bloom.Level `json:"bloom_level"`
	Type          string      `json:"question_type"`
	Points        float64     `json:"points"`
	Text          string      `json:"question_text"`
	Choices       []string    `json:"choices,omitempty"`
	CorrectAnswer string      `json:"correct_answer,omitempty"`
	AnswerKey     string      `json:"answer_key,omitempty"`
	SampleAnswer  string      `json:"sample_answer,omitempty"`
	Rubric        *Rubric     `json:"rubric,omitempty"`
	Status        Status      `json:"status"`
	GeneratedAt   time.Time   `json:"generated_at,omitzero"`
	UpdatedAt     time.Time   `json:"updated_at,omitzero"`
}

// Slot returns the assigned slot the question was drafted for.
func (q Question) Slot() slot.AssignedSlot {
	return slot.AssignedSlot{
		OutcomeID:    q.OutcomeID,
		OutcomeText:  q.OutcomeText,
		Level:        q.Level,
		QuestionType: q.Type,
		Points:       q.Points,
	}
}

func fromSlot(s slot.AssignedSlot) Question {
	return Question{
		OutcomeID:   s.OutcomeID,
		OutcomeText: s.OutcomeText,
		Level:       s.Level,
		Type:        s.QuestionType,
		Points:      s.Points,
	}
}

// placeholder stands in for a slot whose draft failed, so the sheet keeps one
// question per slot.
func placeholder(s slot.AssignedSlot) Question {
	q := fromSlot(s)
	q.Text = fmt.Sprintf("[Pending] %s question for %q at %s level", s.QuestionType, s.OutcomeText, s.Level)
	q.Status = StatusPending
	return q
}

// choiceLetter returns the answer letter for a zero-based choice index.
func choiceLetter(i int) string {
	return string(rune('A' + i))
}

func choiceIndex(letter string) int {
	if len(letter) != 1 || letter[0] < 'A' || letter[0] > 'Z' {
		return -1
	}
	return int(letter[0] - 'A')
}

// ValidateQuestion reports every structural problem with q. Pending
// placeholders are exempt from the per-format content checks.
func ValidateQuestion(q Question) []string {
	var problems []string
	if q.Number <= 0 {
		problems = append(problems, fmt.Sprintf("Invalid question number: %d", q.Number))
	}
	if q.Text == "" {
		problems = append(problems, "Question text is empty")
	}
	if q.Type == "" {
		problems = append(problems, "Question type is empty")
	}
	if !q.Level.Valid() {
		problems = append(problems, fmt.Sprintf("Invalid Bloom level: %s", q.Level))
	}
	if q.OutcomeText == "" {
		problems = append(problems, "Learning outcome is empty")
	}
	if q.Points <= 0 {
		problems = append(problems, fmt.Sprintf("Invalid points value: %g", q.Points))
	}
	if q.Status == StatusPending {
		return problems
	}

	if q.Type == qtype.MCQ {
		if len(q.Choices) < 2 {
			problems = append(problems, fmt.Sprintf("MCQ needs at least 2 choices, got %d", len(q.Choices)))
		}
		if i := choiceIndex(q.CorrectAnswer); i < 0 || i >= len(q.Choices) {
			problems = append(problems, fmt.Sprintf("Correct answer %q does not name a choice", q.CorrectAnswer))
		}
	}
	if q.Rubric != nil && len(q.Rubric.Criteria) > 0 && !rubricMatches(q.Rubric, q.Points) {
		problems = append(problems, fmt.Sprintf("Rubric totals %g points, question is worth %g", q.Rubric.sum(), q.Points))
	}
	return problems
}

// ValidateSheet validates every question, prefixing problems with the
// question position.
func ValidateSheet(questions []Question) []string {
	var problems []string
	for i, q := range questions {
		for _, p := range ValidateQuestion(q) {
			problems = append(problems, fmt.Sprintf("Question %d: %s", i+1, p))
		}
	}
	return problems
}
