package tos

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/p-n-ai/pai-tos/internal/bloom"
)

// ErrZeroHours is returned when outcome weights cannot be computed because
// the outcomes have no class time at all.
var ErrZeroHours = errors.New("total outcome hours cannot be zero")

// AllocateBloomTotals splits totalItems across the Bloom levels. Every level
// but the last gets floor(totalItems*weight/100); Create absorbs whatever
// remains, so the counts always sum to totalItems. Weights are trusted to
// sum to 100; when they do not, the result still sums to totalItems but the
// proportions are off. A non-positive totalItems yields all zeros.
func AllocateBloomTotals(weights Weights, totalItems int) LevelTotals {
	totals := make(LevelTotals, len(bloom.Levels))
	if totalItems <= 0 {
		for _, l := range bloom.Levels {
			totals[l] = 0
		}
		return totals
	}

	remainder := totalItems
	last := bloom.Levels[len(bloom.Levels)-1]
	for _, l := range bloom.Levels[:len(bloom.Levels)-1] {
		n := totalItems * weights[l] / 100
		totals[l] = n
		remainder -= n
	}
	totals[last] = remainder
	return totals
}

// AllocateOutcomeWeights returns each outcome with weight hours/total_hours.
// It fails with ErrZeroHours when the outcomes carry no hours.
func AllocateOutcomeWeights(outcomes []Outcome) ([]WeightedOutcome, error) {
	var total float64
	for _, o := range outcomes {
		total += o.Hours
	}
	if total == 0 {
		return nil, ErrZeroHours
	}

	weighted := make([]WeightedOutcome, len(outcomes))
	for i, o := range outcomes {
		weighted[i] = WeightedOutcome{Outcome: o, Weight: o.Hours / total}
	}
	return weighted, nil
}

// AllocateCells distributes every level total across the outcomes with the
// largest-remainder (Hamilton) method: shares are floored, then the leftover
// units go to the outcomes with the largest fractional parts, ties broken by
// input order. Each level's row sums exactly to its total and lists every
// outcome, including those allocated zero.
func AllocateCells(outcomes []WeightedOutcome, totals LevelTotals) Matrix {
	matrix := make(Matrix, len(totals))
	for _, l := range bloom.Levels {
		total, ok := totals[l]
		if !ok {
			continue
		}
		matrix[l] = allocateRow(outcomes, total)
	}
	return matrix
}

func allocateRow(outcomes []WeightedOutcome, total int) map[int]int {
	row := make(map[int]int, len(outcomes))
	if len(outcomes) == 0 {
		return row
	}

	frac := make([]float64, len(outcomes))
	used := 0
	for i, o := range outcomes {
		raw := float64(total) * o.Weight
		floor := math.Floor(raw)
		row[o.ID] += int(floor)
		frac[i] = raw - floor
		used += int(floor)
	}

	order := make([]int, len(outcomes))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(frac[b], frac[a])
	})

	remaining := total - used
	for k := 0; k < remaining && k < len(order); k++ {
		row[outcomes[order[k]].ID]++
	}
	return row
}

// Generate runs the full apportionment: level totals, outcome weights, then
// largest-remainder cell allocation.
func Generate(outcomes []Outcome, weights Weights, totalItems int) (Table, error) {
	totals := AllocateBloomTotals(weights, totalItems)

	weighted, err := AllocateOutcomeWeights(outcomes)
	if err != nil {
		return Table{}, fmt.Errorf("allocating outcome weights: %w", err)
	}

	return Table{
		BloomTotals: totals,
		Matrix:      AllocateCells(weighted, totals),
	}, nil
}
