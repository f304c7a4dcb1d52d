// Package qtype holds the question-type distribution: how many items of each
// format a test has and how many points each one is worth.
package qtype

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// Entry is one row of a question-type distribution. Type is a free-form
// label; ID is an opaque identifier.
type Entry struct {
	ID            string  `json:"id" yaml:"id,omitempty"`
	Type          string  `json:"type" yaml:"type"`
	Items         int     `json:"items" yaml:"items"`
	PointsPerItem float64 `json:"points_per_item" yaml:"points_per_item"`
}

// TotalPoints returns Items × PointsPerItem.
func (e Entry) TotalPoints() float64 {
	return float64(e.Items) * e.PointsPerItem
}

// Distribution is an ordered list of entries. Its item sum must equal the
// TOS total item count.
type Distribution []Entry

// NewEntry builds an entry with a fresh ID, rejecting empty labels and
// non-positive counts or points.
func NewEntry(typ string, items int, pointsPerItem float64) (Entry, error) {
	if strings.TrimSpace(typ) == "" {
		return Entry{}, fmt.Errorf("question type name cannot be empty")
	}
	if items <= 0 {
		return Entry{}, fmt.Errorf("number of items must be positive (got %d)", items)
	}
	if pointsPerItem <= 0 {
		return Entry{}, fmt.Errorf("points per item must be positive (got %g)", pointsPerItem)
	}
	return Entry{ID: uuid.NewString(), Type: typ, Items: items, PointsPerItem: pointsPerItem}, nil
}

// WithIDs returns a copy of d where entries missing an ID are given one.
func WithIDs(d Distribution) Distribution {
	out := slices.Clone(d)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return out
}

// Totals is the single place item and point totals are computed. Every
// display, validator and export path goes through it.
func Totals(d Distribution) (totalItems int, totalPoints float64) {
	for _, e := range d {
		totalItems += e.Items
		totalPoints += e.TotalPoints()
	}
	return totalItems, totalPoints
}

// Validate checks d against the expected total item count and returns every
// violation found: no entries, an item sum other than totalItems, entries
// with non-positive items or points, and duplicate labels.
func Validate(d Distribution, totalItems int) (bool, []string) {
	if len(d) == 0 {
		return false, []string{"At least one question type must be defined."}
	}

	var problems []string
	if items, _ := Totals(d); items != totalItems {
		problems = append(problems, fmt.Sprintf(
			"Sum of question type items (%d) must equal total test items (%d).", items, totalItems))
	}

	for _, e := range d {
		if e.Items <= 0 {
			problems = append(problems, fmt.Sprintf(
				"Question type '%s' must have at least 1 item. Current: %d", e.Type, e.Items))
		}
		if e.PointsPerItem <= 0 {
			problems = append(problems, fmt.Sprintf(
				"Question type '%s' must have positive points per item. Current: %g", e.Type, e.PointsPerItem))
		}
	}

	seen := make(map[string]int, len(d))
	var dups []string
	for _, e := range d {
		seen[e.Type]++
		if seen[e.Type] == 2 {
			dups = append(dups, e.Type)
		}
	}
	if len(dups) > 0 {
		problems = append(problems, fmt.Sprintf("Duplicate question types found: %s", strings.Join(dups, ", ")))
	}

	return len(problems) == 0, problems
}

// Labels used by the preference table. Distributions built from Defaults
// match these exactly.
const (
	MCQ            = "MCQ"
	Identification = "Identification"
	ShortAnswer    = "Short Answer"
	ProblemSolving = "Problem Solving"
	Essay          = "Essay"
	Drawing        = "Drawing/Diagram"
)

// Defaults returns the starter templates an author edits: every common
// format with zero items and a typical point value.
func Defaults() Distribution {
	return Distribution{
		{ID: uuid.NewString(), Type: MCQ, Items: 0, PointsPerItem: 1},
		{ID: uuid.NewString(), Type: ShortAnswer, Items: 0, PointsPerItem: 2},
		{ID: uuid.NewString(), Type: Essay, Items: 0, PointsPerItem: 5},
		{ID: uuid.NewString(), Type: ProblemSolving, Items: 0, PointsPerItem: 3},
		{ID: uuid.NewString(), Type: Drawing, Items: 0, PointsPerItem: 2},
		{ID: uuid.NewString(), Type: Identification, Items: 0, PointsPerItem: 1},
	}
}

// Active drops entries with no items, which is how an author "switches off"
// a default template.
func Active(d Distribution) Distribution {
	return slices.DeleteFunc(slices.Clone(d), func(e Entry) bool { return e.Items == 0 })
}
