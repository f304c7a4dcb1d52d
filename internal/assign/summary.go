package assign

import (
	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/slot"
	"github.com/p-n-ai/pai-tos/internal/tos"
)

// Tally is an item count with its point total.
type Tally struct {
	Items  int     `json:"items"`
	Points float64 `json:"points"`
}

func (t *Tally) add(points float64) {
	t.Items++
	t.Points += points
}

// Summary breaks a blueprint down by level and by question type.
type Summary struct {
	ByLevel     map[bloom.Level]Tally `json:"by_bloom"`
	ByType      map[string]Tally      `json:"by_type"`
	TotalItems  int                   `json:"total_items"`
	TotalPoints float64               `json:"total_points"`
}

// Summarize tallies assigned slots by level and by type.
func Summarize(assigned []slot.AssignedSlot) Summary {
	s := Summary{
		ByLevel:    make(map[bloom.Level]Tally),
		ByType:     make(map[string]Tally),
		TotalItems: len(assigned),
	}
	for _, a := range assigned {
		lt := s.ByLevel[a.Level]
		lt.add(a.Points)
		s.ByLevel[a.Level] = lt

		tt := s.ByType[a.QuestionType]
		tt.add(a.Points)
		s.ByType[a.QuestionType] = tt

		s.TotalPoints += a.Points
	}
	return s
}

// WeightedTable is a TOS rebuilt from an assignment, where item counts and
// points are independent because each format carries its own weight.
type WeightedTable struct {
	Items       tos.Matrix                      `json:"tos_matrix"`
	Points      map[bloom.Level]map[int]float64 `json:"points_matrix"`
	BloomTotals tos.LevelTotals                 `json:"bloom_totals"`
}

// Rebuild derives item and point matrices from assigned slots. Only cells
// that occur in assigned appear.
func Rebuild(assigned []slot.AssignedSlot) WeightedTable {
	w := WeightedTable{
		Items:  make(tos.Matrix),
		Points: make(map[bloom.Level]map[int]float64),
	}
	for _, a := range assigned {
		if w.Items[a.Level] == nil {
			w.Items[a.Level] = make(map[int]int)
			w.Points[a.Level] = make(map[int]float64)
		}
		w.Items[a.Level][a.OutcomeID]++
		w.Points[a.Level][a.OutcomeID] += a.Points
	}
	w.BloomTotals = w.Items.Totals()
	return w
}
