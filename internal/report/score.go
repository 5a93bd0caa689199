package report

import (
	"math"

	"meshdoctor/internal/types"
)

// Per-severity score penalties. These are load-bearing: downstream
// dashboards compare scores across runs, so the table only changes with
// a coordinated migration.
const (
	penaltyFatal = 0.30
	penaltyError = 0.10
	penaltyWarn  = 0.02
)

// Score maps a problem list to [0, 1]. A clean scene scores 1.0; each
// problem subtracts its severity penalty; the floor is 0. The result is
// rounded to six decimals to keep CSV output stable across platforms.
func Score(problems []types.Problem) float64 {
	score := 1.0
	for _, p := range problems {
		switch {
		case p.Severity >= types.SeverityFatal:
			score -= penaltyFatal
		case p.Severity == types.SeverityError:
			score -= penaltyError
		default:
			score -= penaltyWarn
		}
	}
	if score < 0 {
		score = 0
	}
	return math.Round(score*1e6) / 1e6
}
