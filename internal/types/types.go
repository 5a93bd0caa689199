// Package types holds the shared domain types of the debug pipeline:
// problems, overlap pairs, run reports, and the error taxonomy.
package types

import (
	"strings"
	"time"

	"meshdoctor/internal/geom"
)

// ProblemCode identifies a class of geometric or structural defect.
type ProblemCode string

const (
	CodeOverlapSlatsFrame      ProblemCode = "OVERLAP_SLATS_FRAME"
	CodeOverlapSlatsArms       ProblemCode = "OVERLAP_SLATS_ARMS"
	CodeOverlapBackSlatsFrame  ProblemCode = "OVERLAP_BACK_SLATS_FRAME"
	CodeModExpectationMissing  ProblemCode = "MOD_EXPECTATION_MISSING"
	CodeModExpectationNoEffect ProblemCode = "MOD_EXPECTATION_NO_EFFECT"
	CodeSlatsNotBent           ProblemCode = "SLATS_NOT_BENT"
	CodeBackSlatsNotBent       ProblemCode = "BACK_SLATS_NOT_BENT"
	CodeLowClearanceSlatsFrame ProblemCode = "LOW_CLEARANCE_SLATS_FRAME"
)

// IsOverlap reports whether the code describes a part interpenetration.
func (c ProblemCode) IsOverlap() bool {
	return strings.HasPrefix(string(c), "OVERLAP_")
}

// Severity levels. Warnings do not fail a scene; errors do.
const (
	SeverityWarn  = 1
	SeverityError = 2
	SeverityFatal = 3
)

// Problem is one detected defect, attributed to the meshes it affects.
type Problem struct {
	Code      ProblemCode `json:"code"`
	Severity  int         `json:"severity"`
	Message   string      `json:"message"`
	Subjects  []string    `json:"subjects,omitempty"`
	Magnitude float64     `json:"magnitude,omitempty"` // overlap volume in m3 where applicable
}

// OverlapPair is one detected mesh-to-mesh penetration under a configured
// group-pair rule. Volume is strictly positive; sub-epsilon intersections
// are filtered out before a pair is emitted.
type OverlapPair struct {
	RuleKey string    `json:"rule_key"`
	Left    string    `json:"left"`
	Right   string    `json:"right"`
	Volume  float64   `json:"volume_m3"`
	Bounds  geom.Box  `json:"bounds"`
	MTV     *geom.MTV `json:"mtv,omitempty"`
}

// TerminationReason is the typed outcome of the autofix loop.
type TerminationReason string

const (
	// TerminationConverged means no overlaps remained.
	TerminationConverged TerminationReason = "converged"
	// TerminationExhausted means the iteration budget ran out with
	// residual overlaps; the report reflects the best state achieved.
	TerminationExhausted TerminationReason = "exhausted"
	// TerminationDisabled means autofix was off and only a read-only
	// highlight pass ran.
	TerminationDisabled TerminationReason = "disabled"
)

// IsValid reports whether the reason is one of the defined outcomes.
func (r TerminationReason) IsValid() bool {
	switch r {
	case TerminationConverged, TerminationExhausted, TerminationDisabled:
		return true
	}
	return false
}

// Correction is one bounded corrective command issued by the autofix
// engine. It exists only inside a run; the report keeps the count.
type Correction struct {
	TargetMesh string   `json:"target_mesh"`
	Delta      geom.Vec `json:"delta_m"`
	Magnitude  float64  `json:"magnitude_m"`
}

// DebugReport is the immutable outcome of a single pipeline run.
type DebugReport struct {
	RunID         string             `json:"run_id"`
	Source        string             `json:"source"`
	Score         float64            `json:"score"`
	Problems      []Problem          `json:"problems"`
	Overlaps      map[string]float64 `json:"overlaps"` // rule key -> total residual volume m3
	FixesApplied  int                `json:"fixes_applied"`
	IterationsRun int                `json:"iterations_run"`
	Termination   TerminationReason  `json:"termination"`
	StartedAt     time.Time          `json:"started_at"`
	FinishedAt    time.Time          `json:"finished_at"`
}

// OverlapTotal returns the residual volume recorded for a rule key.
func (r *DebugReport) OverlapTotal(ruleKey string) float64 {
	if r == nil || r.Overlaps == nil {
		return 0
	}
	return r.Overlaps[ruleKey]
}

// BatchRow is one summary record per processed IR file. Err is set when
// the file's run failed; the row is still written.
type BatchRow struct {
	FileName string
	Report   *DebugReport
	Err      error
}
