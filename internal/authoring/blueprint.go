// Package authoring runs the blueprint pipeline: validate the configuration,
// apportion the TOS, assign question types to slots, verify both
// distributions, and persist the result for question drafting.
package authoring

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/p-n-ai/pai-tos/internal/assign"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/slot"
	"github.com/p-n-ai/pai-tos/internal/tos"
	"github.com/p-n-ai/pai-tos/internal/tqs"
)

var (
	// ErrNotFound is returned when a blueprint does not exist.
	ErrNotFound = errors.New("blueprint not found")
	// ErrInvalidConfig is matched by ConfigError.
	ErrInvalidConfig = errors.New("invalid blueprint configuration")
	// ErrNoGenerator is returned by drafting operations when no AI provider
	// is configured.
	ErrNoGenerator = errors.New("question drafting is not configured")
)

// ConfigError carries every problem found in an Input.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid blueprint configuration: %s", strings.Join(e.Problems, "; "))
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Input is everything an author configures before generating a blueprint.
type Input struct {
	Title        string             `json:"title" yaml:"title"`
	AuthorID     string             `json:"author_id,omitempty" yaml:"author_id,omitempty"`
	Outcomes     []tos.Outcome      `json:"outcomes" yaml:"outcomes"`
	Weights      tos.Weights        `json:"bloom_weights" yaml:"bloom_weights"`
	TotalItems   int                `json:"total_items" yaml:"total_items"`
	Distribution qtype.Distribution `json:"question_types" yaml:"question_types"`
	Shuffle      bool               `json:"shuffle,omitempty" yaml:"shuffle,omitempty"`
	// Seed makes a shuffled blueprint reproducible. It is ignored unless
	// Shuffle is set.
	Seed *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// Validate returns every problem with in.
func (in Input) Validate() []string {
	var problems []string
	if strings.TrimSpace(in.Title) == "" {
		problems = append(problems, "Title is required.")
	}
	problems = append(problems, tos.ValidateOutcomes(in.Outcomes)...)
	problems = append(problems, tos.ValidateWeights(in.Weights)...)
	if in.TotalItems <= 0 {
		problems = append(problems, fmt.Sprintf("Total test items must be positive, got %d.", in.TotalItems))
	}
	if ok, p := qtype.Validate(in.Distribution, in.TotalItems); !ok {
		problems = append(problems, p...)
	}
	return problems
}

// TableInput is a TOS matrix authored elsewhere, plus the question types to
// assign over it. The item total is the matrix total.
type TableInput struct {
	Title        string             `json:"title"`
	AuthorID     string             `json:"author_id,omitempty"`
	Outcomes     []tos.Outcome      `json:"outcomes"`
	Matrix       tos.Matrix         `json:"tos_matrix"`
	Distribution qtype.Distribution `json:"question_types"`
	Shuffle      bool               `json:"shuffle,omitempty"`
	Seed         *uint64            `json:"seed,omitempty"`
}

// Blueprint is a generated test plan: the TOS matrix and one assigned slot per
// item, plus the drafted question sheet once it exists.
type Blueprint struct {
	ID    string `json:"id"`
	Input Input  `json:"input"`
	// Imported marks a blueprint whose matrix was supplied rather than
	// apportioned from Bloom weights.
	Imported  bool                  `json:"imported,omitempty"`
	Outcomes  []tos.WeightedOutcome `json:"outcomes"`
	Table     tos.Table             `json:"tos"`
	Slots     []slot.AssignedSlot   `json:"assigned_slots"`
	Metadata  assign.Metadata       `json:"assignment_metadata"`
	Summary   assign.Summary        `json:"summary"`
	Readiness tos.Readiness         `json:"readiness"`
	Sheet     *tqs.Sheet            `json:"sheet,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// Listing is the short form of a blueprint returned by List.
type Listing struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	AuthorID   string    `json:"author_id,omitempty"`
	TotalItems int       `json:"total_items"`
	HasSheet   bool      `json:"has_sheet"`
	CreatedAt  time.Time `json:"created_at"`
}

func (b *Blueprint) listing() Listing {
	return Listing{
		ID:         b.ID,
		Title:      b.Input.Title,
		AuthorID:   b.Input.AuthorID,
		TotalItems: len(b.Slots),
		HasSheet:   b.Sheet != nil,
		CreatedAt:  b.CreatedAt,
	}
}
