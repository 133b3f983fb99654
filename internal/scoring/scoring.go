// Package scoring runs the ordered ATS checks and aggregates them into an
// overall score, grade and verdict. Given the same input it always produces
// the same dashboard.
package scoring

import (
	"math"

	"atscheck/internal/types"
)

// Input is everything a check may look at.
type Input struct {
	Text     string
	Signals  types.ExtractionSignals
	Profile  types.StructuredProfile
	Sections types.Sections
}

// Score runs every check in declaration order and fills the score, issues,
// grade, ats_friendly and checks fields of the dashboard. Suggestions and
// signals are left to the caller.
func Score(in Input) types.Dashboard {
	results := make([]types.CheckResult, 0, len(checks))
	weighted := 0.0
	issues := 0

	for _, c := range checks {
		r := c.run(in)
		r.Key = c.key
		r.Label = c.label
		r.Score = clamp(r.Score)
		r.Status = StatusFor(r.Score)
		if r.Status == types.StatusGood {
			r.Failure, r.FailureArgs = "", nil
		}
		if r.Status == types.StatusBad {
			issues++
		}
		weighted += c.weight * float64(r.Score)
		results = append(results, r)
	}

	overall := clamp(int(math.Round(weighted)))
	return types.Dashboard{
		Score:       overall,
		Issues:      issues,
		Grade:       Grade(overall),
		ATSFriendly: overall >= PassScore && issues == 0,
		Checks:      results,
	}
}

func clamp(v int) int {
	return min(max(v, 0), 100)
}
