package tqs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/p-n-ai/pai-tos/internal/ai"
)

// ErrIndexOutOfRange is returned for edits addressing a missing question.
var ErrIndexOutOfRange = errors.New("question index out of range")

// Sheet is an ordered list of questions numbered from 1.
type Sheet struct {
	Questions []Question `json:"questions"`
}

func (s *Sheet) renumber() {
	for i := range s.Questions {
		s.Questions[i].Number = i + 1
	}
}

func (s *Sheet) check(index int) error {
	if index < 0 || index >= len(s.Questions) {
		return fmt.Errorf("%w: %d (sheet has %d questions)", ErrIndexOutOfRange, index, len(s.Questions))
	}
	return nil
}

// Edit replaces question content. Nil fields are left unchanged. Structural
// fields come from the blueprint and cannot be edited.
type Edit struct {
	Text          *string   `json:"question_text,omitempty"`
	Choices       *[]string `json:"choices,omitempty"`
	CorrectAnswer *string   `json:"correct_answer,omitempty"`
	AnswerKey     *string   `json:"answer_key,omitempty"`
	SampleAnswer  *string   `json:"sample_answer,omitempty"`
	Rubric        *Rubric   `json:"rubric,omitempty"`
}

// Update applies e to the question at the zero-based index. A new rubric is
// scaled to the question's points.
func (s *Sheet) Update(index int, e Edit, now time.Time) error {
	if err := s.check(index); err != nil {
		return err
	}
	q := &s.Questions[index]
	if e.Text != nil {
		q.Text = *e.Text
	}
	if e.Choices != nil {
		q.Choices = append([]string(nil), (*e.Choices)...)
	}
	if e.CorrectAnswer != nil {
		q.CorrectAnswer = *e.CorrectAnswer
	}
	if e.AnswerKey != nil {
		q.AnswerKey = *e.AnswerKey
	}
	if e.SampleAnswer != nil {
		q.SampleAnswer = *e.SampleAnswer
	}
	if e.Rubric != nil {
		r := ScaleRubric(*e.Rubric, q.Points)
		q.Rubric = &r
	}
	q.Status = StatusEdited
	q.UpdatedAt = now.UTC()
	return nil
}

// Delete removes the question at the zero-based index and renumbers the rest.
func (s *Sheet) Delete(index int) error {
	if err := s.check(index); err != nil {
		return err
	}
	s.Questions = append(s.Questions[:index], s.Questions[index+1:]...)
	s.renumber()
	return nil
}

// Regenerate drafts fresh content for the question at the zero-based index,
// keeping its number and slot. Unlike Generate it reports failure as an error
// and leaves the question untouched.
func (s *Sheet) Regenerate(ctx context.Context, g *Generator, scope string, index int) error {
	if err := s.check(index); err != nil {
		return err
	}
	old := s.Questions[index]

	drafts, _, err := g.draft(ctx, scope, ai.TaskRegenerate, old.Slot(), 1)
	if len(drafts) == 0 {
		if err == nil {
			err = ErrInvalidResponse
		}
		return fmt.Errorf("regenerating question %d: %w", old.Number, err)
	}

	q := g.merge(old.Slot(), drafts[0], StatusRegenerated)
	q.Number = old.Number
	q.UpdatedAt = q.GeneratedAt
	s.Questions[index] = q

	slog.Info("question regenerated", "number", q.Number, "type", q.Type, "bloom", q.Level.String())
	return nil
}
