// Package slot flattens the TOS matrix and the question-type distribution
// into parallel lists of single-item slots.
package slot

import (
	"fmt"
	"slices"

	"github.com/p-n-ai/pai-tos/internal/bloom"
	"github.com/p-n-ai/pai-tos/internal/qtype"
	"github.com/p-n-ai/pai-tos/internal/tos"
)

// BloomSlot is one unit of assessment demand.
type BloomSlot struct {
	OutcomeID   int         `json:"outcome_id"`
	OutcomeText string      `json:"outcome_text"`
	Level       bloom.Level `json:"bloom_level"`
}

// TypeSlot is one unit of assessment supply.
type TypeSlot struct {
	QuestionType  string  `json:"type"`
	PointsPerItem float64 `json:"points"`
}

// AssignedSlot pairs a BloomSlot with a TypeSlot. A list of these is the
// exam blueprint handed to question drafting.
type AssignedSlot struct {
	OutcomeID    int         `json:"outcome_id"`
	OutcomeText  string      `json:"outcome_text"`
	Level        bloom.Level `json:"bloom_level"`
	QuestionType string      `json:"question_type"`
	Points       float64     `json:"points"`
}

// ExpandBloom emits one BloomSlot per item in m, level-major in canonical
// order, then outcome order, then replication order. Cells for outcome ids
// not in outcomes follow the known ones in ascending id order and get the
// placeholder text "Outcome {id}".
func ExpandBloom(m tos.Matrix, outcomes []tos.Outcome) []BloomSlot {
	text := make(map[int]string, len(outcomes))
	order := make([]int, 0, len(outcomes))
	for _, o := range outcomes {
		if _, dup := text[o.ID]; dup {
			continue
		}
		text[o.ID] = o.Text
		order = append(order, o.ID)
	}

	slots := make([]BloomSlot, 0, max(m.Total(), 0))
	for _, l := range bloom.Levels {
		row, ok := m[l]
		if !ok {
			continue
		}
		for _, id := range rowOrder(row, order, text) {
			t, known := text[id]
			if !known {
				t = fmt.Sprintf("Outcome %d", id)
			}
			for range row[id] {
				slots = append(slots, BloomSlot{OutcomeID: id, OutcomeText: t, Level: l})
			}
		}
	}
	return slots
}

func rowOrder(row map[int]int, known []int, text map[int]string) []int {
	ids := make([]int, 0, len(row))
	for _, id := range known {
		if _, ok := row[id]; ok {
			ids = append(ids, id)
		}
	}
	var extra []int
	for id := range row {
		if _, ok := text[id]; !ok {
			extra = append(extra, id)
		}
	}
	slices.Sort(extra)
	return append(ids, extra...)
}

// ExpandType emits Items copies of each entry's type and points, in
// distribution order.
func ExpandType(d qtype.Distribution) []TypeSlot {
	n, _ := qtype.Totals(d)
	slots := make([]TypeSlot, 0, max(n, 0))
	for _, e := range d {
		for range e.Items {
			slots = append(slots, TypeSlot{QuestionType: e.Type, PointsPerItem: e.PointsPerItem})
		}
	}
	return slots
}
