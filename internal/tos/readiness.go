package tos

import (
	"fmt"
	"slices"

	"github.com/p-n-ai/pai-tos/internal/bloom"
)

// Readiness is the outcome of checking a matrix before question generation.
// Errors block generation; warnings are informational.
type Readiness struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Ready reports whether no blocking errors were found.
func (r Readiness) Ready() bool {
	return len(r.Errors) == 0
}

// CheckReadiness inspects a matrix (generated or imported) against its
// outcomes. An empty matrix, negative cells and cells for unknown outcomes
// are errors. Outcomes and levels with no items are warnings.
func CheckReadiness(outcomes []Outcome, m Matrix) Readiness {
	var r Readiness

	known := make(map[int]bool, len(outcomes))
	for _, o := range outcomes {
		known[o.ID] = true
	}

	for _, l := range bloom.Levels {
		row, ok := m[l]
		if !ok {
			r.Warnings = append(r.Warnings, fmt.Sprintf("TOS matrix missing Bloom level: %s", l))
			continue
		}
		for _, id := range sortedIDs(row) {
			if row[id] < 0 {
				r.Errors = append(r.Errors, fmt.Sprintf("TOS matrix[%s][%d] cannot be negative", l, id))
			}
			if !known[id] {
				r.Errors = append(r.Errors, fmt.Sprintf("TOS matrix references outcome id %d not found in learning outcomes", id))
			}
		}
		if m.LevelTotal(l) == 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("Bloom level %s has no items", l))
		}
	}

	for _, o := range outcomes {
		if m.OutcomeTotal(o.ID) == 0 {
			r.Warnings = append(r.Warnings, fmt.Sprintf("Outcome %d has no items", o.ID))
		}
	}

	if m.Total() <= 0 {
		r.Errors = append(r.Errors, "TOS matrix contains no items (all counts are 0)")
	}
	return r
}

// Stats summarizes a matrix.
type Stats struct {
	NumOutcomes        int         `json:"num_outcomes"`
	TotalItems         int         `json:"total_items"`
	ItemsPerLevel      LevelTotals `json:"items_per_bloom"`
	ItemsPerOutcome    map[int]int `json:"items_per_outcome"`
	LevelsCovered      int         `json:"bloom_levels_covered"`
	AvgItemsPerOutcome float64     `json:"avg_items_per_outcome"`
}

// ComputeStats returns item counts per level and per outcome for m.
func ComputeStats(outcomes []Outcome, m Matrix) Stats {
	s := Stats{
		NumOutcomes:     len(outcomes),
		ItemsPerLevel:   make(LevelTotals, len(bloom.Levels)),
		ItemsPerOutcome: make(map[int]int, len(outcomes)),
	}
	for _, l := range bloom.Levels {
		n := m.LevelTotal(l)
		s.ItemsPerLevel[l] = n
		s.TotalItems += n
		if n > 0 {
			s.LevelsCovered++
		}
	}
	for _, o := range outcomes {
		s.ItemsPerOutcome[o.ID] = m.OutcomeTotal(o.ID)
	}
	if len(outcomes) > 0 {
		s.AvgItemsPerOutcome = float64(s.TotalItems) / float64(len(outcomes))
	}
	return s
}

func sortedIDs(row map[int]int) []int {
	ids := make([]int, 0, len(row))
	for id := range row {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
