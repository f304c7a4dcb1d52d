// Package assign pairs every Bloom slot of a Table of Specifications with a
// question-type slot, preferring formats suited to the cognitive level while
// keeping the per-level and per-type totals exactly as configured.
package assign

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/slot"
	"github.com/p-n-ai/pai-tos/internal/tos"
)

// ErrIntegrityViolation is matched by IntegrityError.
var ErrIntegrityViolation = errors.New("integrity violation")

// IntegrityError reports that the Bloom axis and the question-type axis do
// not describe the same number of items.
type IntegrityError struct {
	BloomSlots int
	TypeSlots  int
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf(
		"integrity violation: Bloom distribution (%d items) does not match question type distribution (%d items)",
		e.BloomSlots, e.TypeSlots)
}

func (e *IntegrityError) Is(target error) bool {
	return target == ErrIntegrityViolation
}

// Preferences lists, per level, the question-type labels to try first, in
// priority order.
var Preferences = map[bloom.Level][]string{
	bloom.Remember:   {qtype.MCQ, qtype.Identification},
	bloom.Understand: {qtype.MCQ, qtype.ShortAnswer},
	bloom.Apply:      {qtype.MCQ, qtype.ProblemSolving},
	bloom.Analyze:    {qtype.ShortAnswer, qtype.ProblemSolving},
	bloom.Evaluate:   {qtype.Essay, qtype.ProblemSolving},
	bloom.Create:     {qtype.Essay, qtype.Drawing},
}

// Metadata describes how well an assignment followed the preference table.
type Metadata struct {
	TotalSlots       int       `json:"total_slots"`
	PreferredMatches int       `json:"preferred_matches"`
	FallbackMatches  int       `json:"fallback_matches"`
	CoverageQuality  string    `json:"coverage_quality"`
	Integrity        Integrity `json:"integrity_check"`
}

// Integrity records the slot counts seen during assignment.
type Integrity struct {
	BloomSlotsExpanded int  `json:"bloom_slots_expanded"`
	TypeSlotsExpanded  int  `json:"type_slots_expanded"`
	SlotsAssigned      int  `json:"slots_assigned"`
	AllTypesUsed       bool `json:"all_types_used"`
	Valid              bool `json:"valid"`
}

// PreferredPercent returns the share of preferred matches as a percentage.
func (m Metadata) PreferredPercent() float64 {
	if m.TotalSlots == 0 {
		return 0
	}
	return float64(m.PreferredMatches) / float64(m.TotalSlots) * 100
}

type options struct {
	rng *rand.Rand
}

// Option configures Assign.
type Option func(*options)

// WithShuffle randomly permutes the final list using rng. Only the order
// changes; the multiset of assignments is the same as without shuffling.
func WithShuffle(rng *rand.Rand) Option {
	return func(o *options) {
		o.rng = rng
	}
}

// WithSeed shuffles with a PCG generator seeded by seed.
func WithSeed(seed uint64) Option {
	return WithShuffle(rand.New(rand.NewPCG(seed, seed)))
}

// Assign expands both axes and matches them greedily. Bloom slots are
// processed in expansion order; each takes the first preferred type still in
// the pool, or else the first remaining type slot. It returns an
// *IntegrityError when the two axes have different lengths.
func Assign(m tos.Matrix, outcomes []tos.Outcome, d qtype.Distribution, opts ...Option) ([]slot.AssignedSlot, Metadata, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	bloomSlots := slot.ExpandBloom(m, outcomes)
	typeSlots := slot.ExpandType(d)
	if len(bloomSlots) != len(typeSlots) {
		return nil, Metadata{}, &IntegrityError{BloomSlots: len(bloomSlots), TypeSlots: len(typeSlots)}
	}

	p := newPool(typeSlots)
	assigned := make([]slot.AssignedSlot, 0, len(bloomSlots))
	var preferred, fallback int

	for _, bs := range bloomSlots {
		ts, ok := p.takePreferred(Preferences[bs.Level])
		if ok {
			preferred++
		} else {
			ts = p.takeFirst()
			fallback++
		}
		assigned = append(assigned, slot.AssignedSlot{
			OutcomeID:    bs.OutcomeID,
			OutcomeText:  bs.OutcomeText,
			Level:        bs.Level,
			QuestionType: ts.QuestionType,
			Points:       ts.PointsPerItem,
		})
	}

	if o.rng != nil {
		o.rng.Shuffle(len(assigned), func(i, j int) {
			assigned[i], assigned[j] = assigned[j], assigned[i]
		})
	}

	meta := Metadata{
		TotalSlots:       len(assigned),
		PreferredMatches: preferred,
		FallbackMatches:  fallback,
		Integrity: Integrity{
			BloomSlotsExpanded: len(bloomSlots),
			TypeSlotsExpanded:  len(typeSlots),
			SlotsAssigned:      len(assigned),
			AllTypesUsed:       p.len() == 0,
			Valid:              len(bloomSlots) == len(typeSlots) && len(typeSlots) == len(assigned),
		},
	}
	meta.CoverageQuality = fmt.Sprintf("%.1f%% preferred", meta.PreferredPercent())
	return assigned, meta, nil
}

// pool holds the type slots not yet bound, in expansion order.
type pool struct {
	slots []slot.TypeSlot
}

func newPool(slots []slot.TypeSlot) *pool {
	return &pool{slots: append([]slot.TypeSlot(nil), slots...)}
}

func (p *pool) len() int { return len(p.slots) }

func (p *pool) takePreferred(labels []string) (slot.TypeSlot, bool) {
	for _, label := range labels {
		for i, ts := range p.slots {
			if ts.QuestionType == label {
				return p.remove(i), true
			}
		}
	}
	return slot.TypeSlot{}, false
}

// takeFirst must only be called on a non-empty pool; Assign guarantees this
// by checking both axes have the same length.
func (p *pool) takeFirst() slot.TypeSlot {
	return p.remove(0)
}

func (p *pool) remove(i int) slot.TypeSlot {
	ts := p.slots[i]
	p.slots = append(p.slots[:i], p.slots[i+1:]...)
	return ts
}
