package tqs

import "math"

const rubricTolerance = 1e-9

func (r *Rubric) sum() float64 {
	var total float64
	for _, c := range r.Criteria {
		total += c.Points
	}
	return total
}

func rubricMatches(r *Rubric, points float64) bool {
	return math.Abs(r.sum()-points) <= rubricTolerance*math.Max(1, points)
}

// ScaleRubric returns a copy of r whose criteria sum to points. Criteria are
// scaled proportionally, or split evenly when they are all zero. The last
// criterion absorbs float rounding so the sum is exact. A rubric without
// criteria is returned with only its total updated.
func ScaleRubric(r Rubric, points float64) Rubric {
	out := Rubric{
		Criteria:    append([]Criterion(nil), r.Criteria...),
		TotalPoints: points,
	}
	n := len(out.Criteria)
	if n == 0 {
		return out
	}

	current := out.sum()
	switch {
	case current <= 0:
		for i := range out.Criteria {
			out.Criteria[i].Points = points / float64(n)
		}
	case current != points:
		scale := points / current
		for i := range out.Criteria {
			out.Criteria[i].Points *= scale
		}
	default:
		return out
	}

	var head float64
	for _, c := range out.Criteria[:n-1] {
		head += c.Points
	}
	out.Criteria[n-1].Points = points - head
	return out
}
