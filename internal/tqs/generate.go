package tqs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/p-n-ai/pai-tos/internal/ai"
	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/slot"
)

// ErrBudgetExceeded is returned when the token budget for a scope is spent.
var ErrBudgetExceeded = errors.New("token budget exceeded")

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.7
	defaultAttempts    = 3
	defaultBackoff     = time.Second
)

// Generator drafts question content for assigned slots with an AI provider.
type Generator struct {
	provider    ai.Completer
	budget      ai.BudgetChecker
	maxTokens   int
	temperature float64
	attempts    int
	backoff     time.Duration
	now         func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithBudget checks budget before each provider call and records usage after.
func WithBudget(b ai.BudgetChecker) Option {
	return func(g *Generator) {
		g.budget = b
	}
}

// WithMaxTokens caps the output tokens of each provider call.
func WithMaxTokens(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.maxTokens = n
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(g *Generator) {
		g.temperature = t
	}
}

// WithRetry sets how many times a group is attempted and the base delay
// between attempts, which doubles after each failure.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(g *Generator) {
		if attempts > 0 {
			g.attempts = attempts
		}
		g.backoff = backoff
	}
}

// WithClock sets the time source for question timestamps.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) {
		g.now = now
	}
}

// NewGenerator creates a Generator that drafts through provider.
func NewGenerator(provider ai.Completer, opts ...Option) *Generator {
	g := &Generator{
		provider:    provider,
		maxTokens:   defaultMaxTokens,
		temperature: defaultTemperature,
		attempts:    defaultAttempts,
		backoff:     defaultBackoff,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Report summarizes one Generate run.
type Report struct {
	Groups   int            `json:"groups"`
	Calls    int            `json:"calls"`
	Drafted  int            `json:"drafted"`
	Pending  int            `json:"pending"`
	Tokens   int            `json:"tokens"`
	Failures []GroupFailure `json:"failures,omitempty"`
}

// GroupFailure describes a group that was not fully drafted.
type GroupFailure struct {
	QuestionType string      `json:"question_type"`
	Level        bloom.Level `json:"bloom_level"`
	OutcomeText  string      `json:"outcome_text"`
	Slots        int         `json:"slots"`
	Drafted      int         `json:"drafted"`
	Error        string      `json:"error"`
}

type groupKey struct {
	questionType string
	level        bloom.Level
	outcomeText  string
}

type group struct {
	key     groupKey
	indexes []int
}

// groupSlots buckets slot positions by (type, level, outcome text) in order
// of first appearance.
func groupSlots(assigned []slot.AssignedSlot) []group {
	pos := make(map[groupKey]int)
	var groups []group
	for i, s := range assigned {
		k := groupKey{questionType: s.QuestionType, level: s.Level, outcomeText: s.OutcomeText}
		gi, ok := pos[k]
		if !ok {
			gi = len(groups)
			pos[k] = gi
			groups = append(groups, group{key: k})
		}
		groups[gi].indexes = append(groups[gi].indexes, i)
	}
	return groups
}

// Generate drafts one question per assigned slot, in slot order. Each group of
// slots sharing type, level, and outcome is drafted with a single call. Slots
// that cannot be drafted get pending placeholders, so the sheet always has
// len(assigned) questions. The only error is a cancelled context.
func (g *Generator) Generate(ctx context.Context, scope string, assigned []slot.AssignedSlot) (*Sheet, Report, error) {
	questions := make([]Question, len(assigned))
	groups := groupSlots(assigned)
	report := Report{Groups: len(groups)}

	for _, grp := range groups {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}

		first := assigned[grp.indexes[0]]
		drafts, res, err := g.draft(ctx, scope, ai.TaskDraft, first, len(grp.indexes))
		report.Calls += res.calls
		report.Tokens += res.tokens
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, report, ctxErr
		}

		for n, idx := range grp.indexes {
			if n < len(drafts) {
				questions[idx] = g.merge(assigned[idx], drafts[n], StatusDrafted)
				report.Drafted++
				continue
			}
			questions[idx] = placeholder(assigned[idx])
			report.Pending++
		}

		if len(drafts) < len(grp.indexes) {
			if err == nil {
				err = fmt.Errorf("%w: expected %d questions, got %d", ErrInvalidResponse, len(grp.indexes), len(drafts))
			}
			report.Failures = append(report.Failures, GroupFailure{
				QuestionType: grp.key.questionType,
				Level:        grp.key.level,
				OutcomeText:  grp.key.outcomeText,
				Slots:        len(grp.indexes),
				Drafted:      len(drafts),
				Error:        err.Error(),
			})
			slog.Warn("question group not fully drafted",
				"type", grp.key.questionType,
				"bloom", grp.key.level.String(),
				"slots", len(grp.indexes),
				"drafted", len(drafts),
				"error", err,
			)
		}
	}

	sheet := &Sheet{Questions: questions}
	sheet.renumber()

	slog.Info("question sheet drafted",
		"questions", len(questions),
		"groups", report.Groups,
		"calls", report.Calls,
		"pending", report.Pending,
		"tokens", report.Tokens,
	)
	return sheet, report, nil
}

type callResult struct {
	calls  int
	tokens int
}

// draft asks for n questions matching s. It retries on provider or parse
// failures and on short replies, returning the longest reply seen. A budget
// refusal stops immediately with ErrBudgetExceeded.
func (g *Generator) draft(ctx context.Context, scope string, task ai.TaskType, s slot.AssignedSlot, n int) ([]draft, callResult, error) {
	var (
		res     callResult
		best    []draft
		lastErr error
	)
	delay := g.backoff

	for attempt := range g.attempts {
		if attempt > 0 && delay > 0 {
			select {
			case <-ctx.Done():
				return best, res, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if g.budget != nil {
			ok, err := g.budget.Check(ctx, scope)
			if err != nil {
				return best, res, fmt.Errorf("checking budget: %w", err)
			}
			if !ok {
				return best, res, ErrBudgetExceeded
			}
		}

		resp, err := g.provider.Complete(ctx, ai.CompletionRequest{
			Messages:    buildPrompt(s, n),
			MaxTokens:   g.maxTokens,
			Temperature: g.temperature,
			Task:        task,
			JSON:        true,
		})
		res.calls++
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return best, res, ctx.Err()
			}
			continue
		}

		res.tokens += resp.TotalTokens()
		if g.budget != nil {
			if err := g.budget.Record(ctx, scope, resp.TotalTokens()); err != nil {
				slog.Warn("failed to record token usage", "scope", scope, "error", err)
			}
		}

		drafts, err := parseDrafts(s.QuestionType, resp.Content)
		if err != nil {
			lastErr = err
			continue
		}
		if len(drafts) > n {
			drafts = drafts[:n]
		}
		if len(drafts) > len(best) {
			best = drafts
		}
		if len(best) == n {
			return best, res, nil
		}
		lastErr = fmt.Errorf("%w: expected %d questions, got %d", ErrInvalidResponse, n, len(drafts))
	}
	return best, res, lastErr
}

// merge takes content from d and every structural field from s.
func (g *Generator) merge(s slot.AssignedSlot, d draft, status Status) Question {
	q := fromSlot(s)
	q.Text = strings.TrimSpace(d.QuestionText)
	q.Choices = d.Choices
	q.CorrectAnswer = d.CorrectAnswer
	q.AnswerKey = d.AnswerKey
	q.SampleAnswer = d.SampleAnswer
	if d.Rubric != nil && len(d.Rubric.Criteria) > 0 {
		r := ScaleRubric(*d.Rubric, s.Points)
		q.Rubric = &r
	}
	q.Status = status
	q.GeneratedAt = g.now().UTC()
	return q
}
