package authoring

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/p-n-ai/pai-tos/internal/assign"
	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/tos"
	"github.com/p-n-ai/pai-tos/internal/tqs"
)

// ErrNoSheet is returned by question operations on a blueprint that has not
// been drafted yet.
var ErrNoSheet = errors.New("blueprint has no question sheet")

// ServiceConfig holds dependencies for the authoring service.
type ServiceConfig struct {
	Store BlueprintStore
	// Generator drafts questions. Drafting operations return ErrNoGenerator
	// when it is nil.
	Generator *tqs.Generator
	Events    EventLogger
	Now       func() time.Time
	// Seed supplies shuffle seeds for inputs that do not carry one.
	Seed func() uint64
}

// Service is the blueprint pipeline.
type Service struct {
	store     BlueprintStore
	generator *tqs.Generator
	events    EventLogger
	now       func() time.Time
	seed      func() uint64

	// sheetLocks serializes the read-modify-write of a blueprint's sheet.
	sheetLocks [64]sync.Mutex
}

// NewService creates an authoring service. Missing dependencies default to an
// in-memory store, no event logging, and the wall clock.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		store:     cfg.Store,
		generator: cfg.Generator,
		events:    cfg.Events,
		now:       cfg.Now,
		seed:      cfg.Seed,
	}
	if s.store == nil {
		s.store = NewMemoryStore()
	}
	if s.events == nil {
		s.events = NopEventLogger{}
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.seed == nil {
		s.seed = rand.Uint64
	}
	return s
}

// CanDraft reports whether a question generator is configured.
func (s *Service) CanDraft() bool {
	return s.generator != nil
}

// Build runs the pipeline without persisting: validate, apportion, assign,
// verify. Configuration problems are returned together as a *ConfigError.
func (s *Service) Build(in Input) (*Blueprint, error) {
	if problems := in.Validate(); len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}
	in.Distribution = qtype.WithIDs(in.Distribution)

	weighted, err := tos.AllocateOutcomeWeights(in.Outcomes)
	if err != nil {
		return nil, fmt.Errorf("allocating outcome weights: %w", err)
	}
	totals := tos.AllocateBloomTotals(in.Weights, in.TotalItems)
	table := tos.Table{BloomTotals: totals, Matrix: tos.AllocateCells(weighted, totals)}

	readiness := tos.CheckReadiness(in.Outcomes, table.Matrix)
	if !readiness.Ready() {
		return nil, fmt.Errorf("TOS not ready: %s", strings.Join(readiness.Errors, "; "))
	}
	return s.assemble(in, weighted, table, readiness, false)
}

// BuildFromTable runs an existing TOS matrix, such as one read from an
// uploaded workbook, through readiness, assignment and verification without
// re-apportioning it. Outcomes without any class time are each given one
// hour. Readiness errors are returned as a *ConfigError.
func (s *Service) BuildFromTable(in TableInput) (*Blueprint, error) {
	outcomes := defaultHours(in.Outcomes)
	total := in.Matrix.Total()

	var problems []string
	if strings.TrimSpace(in.Title) == "" {
		problems = append(problems, "Title is required.")
	}
	problems = append(problems, tos.ValidateOutcomes(outcomes)...)
	if ok, p := qtype.Validate(in.Distribution, total); !ok {
		problems = append(problems, p...)
	}
	readiness := tos.CheckReadiness(outcomes, in.Matrix)
	problems = append(problems, readiness.Errors...)
	if len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}

	weighted, err := tos.AllocateOutcomeWeights(outcomes)
	if err != nil {
		return nil, fmt.Errorf("allocating outcome weights: %w", err)
	}
	matrix := make(tos.Matrix, len(bloom.Levels))
	totals := make(tos.LevelTotals, len(bloom.Levels))
	for _, l := range bloom.Levels {
		row := make(map[int]int, len(outcomes))
		for _, o := range outcomes {
			row[o.ID] = in.Matrix[l][o.ID]
		}
		matrix[l] = row
		totals[l] = in.Matrix.LevelTotal(l)
	}

	input := Input{
		Title:        in.Title,
		AuthorID:     in.AuthorID,
		Outcomes:     outcomes,
		TotalItems:   total,
		Distribution: qtype.WithIDs(in.Distribution),
		Shuffle:      in.Shuffle,
		Seed:         in.Seed,
	}
	return s.assemble(input, weighted, tos.Table{BloomTotals: totals, Matrix: matrix}, readiness, true)
}

func (s *Service) assemble(in Input, weighted []tos.WeightedOutcome, table tos.Table, readiness tos.Readiness, imported bool) (*Blueprint, error) {
	var opts []assign.Option
	if in.Shuffle {
		if in.Seed == nil {
			seed := s.seed()
			in.Seed = &seed
		}
		opts = append(opts, assign.WithSeed(*in.Seed))
	} else {
		in.Seed = nil
	}

	slots, meta, err := assign.Assign(table.Matrix, in.Outcomes, in.Distribution, opts...)
	if err != nil {
		return nil, fmt.Errorf("assigning slots: %w", err)
	}
	if ok, problems := assign.Verify(slots, table.Matrix, in.Distribution); !ok {
		return nil, fmt.Errorf("blueprint failed verification: %s", strings.Join(problems, "; "))
	}

	now := s.now().UTC()
	return &Blueprint{
		Input:     in,
		Imported:  imported,
		Outcomes:  weighted,
		Table:     table,
		Slots:     slots,
		Metadata:  meta,
		Summary:   assign.Summarize(slots),
		Readiness: readiness,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func defaultHours(outcomes []tos.Outcome) []tos.Outcome {
	out := slices.Clone(outcomes)
	var total float64
	for _, o := range out {
		total += o.Hours
	}
	if total != 0 {
		return out
	}
	for i := range out {
		out[i].Hours = 1
	}
	return out
}

// Generate builds and persists a blueprint.
func (s *Service) Generate(ctx context.Context, in Input) (*Blueprint, error) {
	b, err := s.Build(in)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Import persists a blueprint built from an existing TOS matrix.
func (s *Service) Import(ctx context.Context, in TableInput) (*Blueprint, error) {
	b, err := s.BuildFromTable(in)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *Service) save(ctx context.Context, b *Blueprint) error {
	if _, err := s.store.Create(ctx, b); err != nil {
		return fmt.Errorf("saving blueprint: %w", err)
	}

	slog.Info("blueprint generated",
		"id", b.ID,
		"author_id", b.Input.AuthorID,
		"imported", b.Imported,
		"slots", len(b.Slots),
		"coverage", b.Metadata.CoverageQuality,
		"warnings", len(b.Readiness.Warnings),
	)
	s.logEvent(ctx, b, EventBlueprintGenerated, map[string]any{
		"total_items":       len(b.Slots),
		"imported":          b.Imported,
		"preferred_matches": b.Metadata.PreferredMatches,
		"fallback_matches":  b.Metadata.FallbackMatches,
	})
	return nil
}

// Get returns a stored blueprint.
func (s *Service) Get(ctx context.Context, id string) (*Blueprint, error) {
	return s.store.Get(ctx, id)
}

// List returns stored blueprints, newest first.
func (s *Service) List(ctx context.Context, authorID string) ([]Listing, error) {
	return s.store.List(ctx, authorID)
}

// Delete removes a blueprint.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// DraftSheet drafts one question per slot and stores the sheet, replacing any
// earlier one.
func (s *Service) DraftSheet(ctx context.Context, id string) (*Blueprint, tqs.Report, error) {
	if s.generator == nil {
		return nil, tqs.Report{}, ErrNoGenerator
	}
	mu := s.sheetLock(id)
	mu.Lock()
	defer mu.Unlock()

	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, tqs.Report{}, err
	}

	sheet, report, err := s.generator.Generate(ctx, scopeOf(b), b.Slots)
	if err != nil {
		return nil, report, fmt.Errorf("drafting sheet: %w", err)
	}
	if err := s.store.SaveSheet(ctx, id, sheet); err != nil {
		return nil, report, fmt.Errorf("saving sheet: %w", err)
	}
	b.Sheet = sheet

	s.logEvent(ctx, b, EventSheetDrafted, map[string]any{
		"questions": len(sheet.Questions),
		"pending":   report.Pending,
		"calls":     report.Calls,
		"tokens":    report.Tokens,
	})
	return b, report, nil
}

// UpdateQuestion edits the question at the zero-based index.
func (s *Service) UpdateQuestion(ctx context.Context, id string, index int, e tqs.Edit) (*tqs.Question, error) {
	return s.editSheet(ctx, id, index, EventQuestionEdited, func(b *Blueprint) error {
		return b.Sheet.Update(index, e, s.now())
	})
}

// RegenerateQuestion redrafts the question at the zero-based index.
func (s *Service) RegenerateQuestion(ctx context.Context, id string, index int) (*tqs.Question, error) {
	if s.generator == nil {
		return nil, ErrNoGenerator
	}
	return s.editSheet(ctx, id, index, EventQuestionRegenerated, func(b *Blueprint) error {
		return b.Sheet.Regenerate(ctx, s.generator, scopeOf(b), index)
	})
}

// DeleteQuestion removes the question at the zero-based index.
func (s *Service) DeleteQuestion(ctx context.Context, id string, index int) error {
	_, err := s.editSheet(ctx, id, index, EventQuestionDeleted, func(b *Blueprint) error {
		return b.Sheet.Delete(index)
	})
	return err
}

func (s *Service) editSheet(ctx context.Context, id string, index int, event string, edit func(*Blueprint) error) (*tqs.Question, error) {
	mu := s.sheetLock(id)
	mu.Lock()
	defer mu.Unlock()

	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Sheet == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSheet, id)
	}
	if err := edit(b); err != nil {
		return nil, err
	}
	if err := s.store.SaveSheet(ctx, id, b.Sheet); err != nil {
		return nil, fmt.Errorf("saving sheet: %w", err)
	}
	s.logEvent(ctx, b, event, map[string]any{"index": index})

	if index < len(b.Sheet.Questions) && event != EventQuestionDeleted {
		q := b.Sheet.Questions[index]
		return &q, nil
	}
	return nil, nil
}

// Versions returns n shuffled forms of the blueprint's sheet.
func (s *Service) Versions(ctx context.Context, id string, n int, seed uint64) ([]tqs.Version, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Sheet == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoSheet, id)
	}
	return tqs.Versions(b.Sheet.Questions, n, seed), nil
}

func (s *Service) logEvent(ctx context.Context, b *Blueprint, eventType string, data map[string]any) {
	if err := s.events.LogEvent(ctx, Event{
		BlueprintID: b.ID,
		AuthorID:    b.Input.AuthorID,
		EventType:   eventType,
		Data:        data,
		CreatedAt:   s.now(),
	}); err != nil {
		slog.Warn("failed to log event", "type", eventType, "blueprint_id", b.ID, "error", err)
	}
}

func (s *Service) sheetLock(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	return &s.sheetLocks[h.Sum32()%uint32(len(s.sheetLocks))]
}

// scopeOf returns the token budget scope for b.
func scopeOf(b *Blueprint) string {
	if b.Input.AuthorID != "" {
		return b.Input.AuthorID
	}
	return "global"
}
