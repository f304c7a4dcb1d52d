package tqs

import (
	"github.com/p-n-ai/pai-tos/internal/assign"
	"github.com/p-n-ai/pai-tos/internal/bloom"
)

// Statistics tallies a sheet by question type and by Bloom level.
type Statistics struct {
	TotalQuestions int                          `json:"total_questions"`
	TotalPoints    float64                      `json:"total_points"`
	Pending        int                          `json:"pending"`
	ByType         map[string]assign.Tally      `json:"by_type"`
	ByLevel        map[bloom.Level]assign.Tally `json:"by_bloom"`
}

// ComputeStatistics tallies questions.
func ComputeStatistics(questions []Question) Statistics {
	st := Statistics{
		TotalQuestions: len(questions),
		ByType:         make(map[string]assign.Tally),
		ByLevel:        make(map[bloom.Level]assign.Tally),
	}
	for _, q := range questions {
		st.TotalPoints += q.Points
		if q.Status == StatusPending {
			st.Pending++
		}

		t := st.ByType[q.Type]
		t.Items++
		t.Points += q.Points
		st.ByType[q.Type] = t

		l := st.ByLevel[q.Level]
		l.Items++
		l.Points += q.Points
		st.ByLevel[q.Level] = l
	}
	return st
}
