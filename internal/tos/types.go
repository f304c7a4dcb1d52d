// Package tos builds a Table of Specifications: the matrix allocating a fixed
// item budget across Bloom levels and learning outcomes.
package tos

import "github.com/p-n-ai/pai-tos/internal/bloom"

// Outcome is a learning outcome. Hours is class time and is used only as an
// apportionment weight. ID must be unique within an authoring session.
type Outcome struct {
	ID    int     `json:"id" yaml:"id"`
	Text  string  `json:"text" yaml:"text"`
	Hours float64 `json:"hours" yaml:"hours"`
}

// WeightedOutcome is an Outcome with its share of total hours.
type WeightedOutcome struct {
	Outcome
	Weight float64 `json:"weight"`
}

// Weights maps each Bloom level to a percentage. Values are expected to sum
// to 100; see ValidateWeights.
type Weights map[bloom.Level]int

// LevelTotals maps each Bloom level to its number of items.
type LevelTotals map[bloom.Level]int

// Sum returns the total number of items across all levels.
func (t LevelTotals) Sum() int {
	n := 0
	for _, v := range t {
		n += v
	}
	return n
}

// Matrix maps a Bloom level to outcome ID to item count.
type Matrix map[bloom.Level]map[int]int

// LevelTotal returns the number of items allocated to level l.
func (m Matrix) LevelTotal(l bloom.Level) int {
	n := 0
	for _, c := range m[l] {
		n += c
	}
	return n
}

// OutcomeTotal returns the number of items allocated to an outcome across
// every level.
func (m Matrix) OutcomeTotal(id int) int {
	n := 0
	for _, row := range m {
		n += row[id]
	}
	return n
}

// Total returns the grand total of all cells.
func (m Matrix) Total() int {
	n := 0
	for _, row := range m {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// Totals returns the per-level item counts of m.
func (m Matrix) Totals() LevelTotals {
	t := make(LevelTotals, len(m))
	for l := range m {
		t[l] = m.LevelTotal(l)
	}
	return t
}

// Table is a generated Table of Specifications.
type Table struct {
	BloomTotals LevelTotals `json:"bloom_totals"`
	Matrix      Matrix      `json:"tos_matrix"`
}
