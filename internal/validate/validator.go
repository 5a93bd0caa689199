// Package validate checks a scene snapshot against the IR's modifier
// expectation table and the configured overlap rules, producing the
// problem list the classifier and reporter consume. The validator is a
// read-only observer; it never mutates geometry.
package validate

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"meshdoctor/internal/engine"
	"meshdoctor/internal/ir"
	"meshdoctor/internal/overlap"
	"meshdoctor/internal/types"
)

// bendModAngleEps is the bend angle below which a bend modifier counts
// as absent evidence, in radians.
const bendModAngleEps = 1e-6

// Params are the numeric thresholds of the validation rules.
type Params struct {
	// OverlapEpsM3 is the volume below which an overlap is ignored.
	OverlapEpsM3 float64
	// BendEpsM is the bbox-delta evidence threshold for bent parts.
	BendEpsM float64
	// ModEffectEpsM is the bbox-delta threshold for modifier effect.
	ModEffectEpsM float64
	// ModEffectVertsEps is the vertex-count delta threshold.
	ModEffectVertsEps int
	// ClearanceEpsM is the minimum slat/frame Z clearance.
	ClearanceEpsM float64
	// JointAllowanceMM is the extra span allowed for expected
	// joint-contact overlaps at frame rails.
	JointAllowanceMM float64
}

// DefaultParams returns the production thresholds.
func DefaultParams() Params {
	return Params{
		OverlapEpsM3:      overlap.DefaultEpsilon,
		BendEpsM:          0.002,
		ModEffectEpsM:     0.001,
		ModEffectVertsEps: 4,
		ClearanceEpsM:     0.003,
		JointAllowanceMM:  2.0,
	}
}

// Validator evaluates the rule set against one snapshot.
type Validator struct {
	params Params
}

// New builds a validator.
func New(params Params) *Validator {
	return &Validator{params: params}
}

// Validate returns the problem list for the snapshot. The pairs argument
// is the overlap detector's output for the same snapshot. The only error
// condition is a malformed expectation table (ConfigError).
func (v *Validator) Validate(doc *ir.Document, snap *engine.Snapshot, pairs []types.OverlapPair) ([]types.Problem, error) {
	table, err := doc.ExpectationTable()
	if err != nil {
		return nil, err
	}

	var problems []types.Problem
	problems = append(problems, v.expectationMissing(table, snap)...)
	problems = append(problems, v.expectationNoEffect(table, snap)...)
	problems = append(problems, v.slatsNotBent(doc, snap)...)
	problems = append(problems, v.backSlatsNotBent(doc, snap)...)
	problems = append(problems, v.overlapProblems(doc, snap, pairs)...)
	problems = append(problems, v.lowClearance(snap, pairs)...)
	return problems, nil
}

// expectationMissing reports meshes whose longest-prefix expectation
// entry lists modifier kinds absent from the stack. One problem per
// entry, carrying every offending mesh.
func (v *Validator) expectationMissing(table *ir.ExpectationTable, snap *engine.Snapshot) []types.Problem {
	if table.Len() == 0 {
		return nil
	}

	missingByEntry := map[string][]string{}
	for _, mesh := range snap.Meshes {
		entry, ok := table.Match(mesh.Name)
		if !ok {
			continue
		}
		present := mesh.ModifierKeys()
		for _, required := range entry.Required {
			if !hasExpectedModifier(present, required) {
				missingByEntry[entry.NamePrefix] = append(missingByEntry[entry.NamePrefix], mesh.Name)
				break
			}
		}
	}

	var problems []types.Problem
	for _, entry := range table.Entries() {
		subjects := missingByEntry[entry.NamePrefix]
		if len(subjects) == 0 {
			continue
		}
		sort.Strings(subjects)
		problems = append(problems, types.Problem{
			Code:     types.CodeModExpectationMissing,
			Severity: types.SeverityError,
			Message:  fmt.Sprintf("Expected modifiers are missing for group %q.", entry.NamePrefix),
			Subjects: subjects,
		})
	}
	return problems
}

// expectationNoEffect reports present-but-ineffective expected
// modifiers, one problem per mesh and modifier.
func (v *Validator) expectationNoEffect(table *ir.ExpectationTable, snap *engine.Snapshot) []types.Problem {
	if table.Len() == 0 {
		return nil
	}

	var problems []types.Problem
	for _, mesh := range snap.Meshes {
		entry, ok := table.Match(mesh.Name)
		if !ok {
			continue
		}
		present := mesh.ModifierKeys()
		if len(present) == 0 {
			continue
		}
		for _, required := range entry.Required {
			if !hasExpectedModifier(present, required) {
				continue
			}
			noEffect, severity := v.modifierNoEffect(mesh, required)
			if !noEffect || severity <= 0 {
				continue
			}
			problems = append(problems, types.Problem{
				Code:     types.CodeModExpectationNoEffect,
				Severity: severity,
				Message:  fmt.Sprintf("Modifier %s has no observable effect.", required),
				Subjects: []string{mesh.Name},
			})
		}
	}
	return problems
}

// softEffectKinds get a warning instead of an error when ineffective:
// their geometric footprint is legitimately small on simple meshes.
var softEffectKinds = map[string]bool{
	"BEVEL":           true,
	"SUBSURF":         true,
	"WEIGHTED_NORMAL": true,
	"BOOLEAN":         true,
	"SHRINKWRAP":      true,
	"CURVE":           true,
	"LATTICE":         true,
}

// modifierNoEffect decides whether an expected modifier left measurable
// evidence on the mesh. Evidence differs per kind: deforms move the
// bounding box, mirrors and arrays multiply vertices, solidify does
// either.
func (v *Validator) modifierNoEffect(mesh engine.MeshState, key string) (noEffect bool, severity int) {
	kind, _, _ := strings.Cut(key, ":")
	hasGeomDelta := mesh.MaxBoxDelta() >= v.params.ModEffectEpsM
	hasVertsDelta := absInt(mesh.VertsDelta()) > v.params.ModEffectVertsEps

	switch {
	case kind == "SIMPLE_DEFORM":
		hasBend, angle := mesh.BendEvidence()
		if hasGeomDelta || (hasBend && angle > bendModAngleEps) {
			return false, 0
		}
		if key == "SIMPLE_DEFORM:BEND" {
			return true, types.SeverityError
		}
		return true, types.SeverityWarn
	case kind == "ARRAY":
		if hasGeomDelta || hasVertsDelta {
			return false, 0
		}
		return true, types.SeverityError
	case kind == "MIRROR":
		if hasVertsDelta {
			return false, 0
		}
		return true, types.SeverityError
	case kind == "SOLIDIFY":
		if hasGeomDelta || hasVertsDelta {
			return false, 0
		}
		return true, types.SeverityError
	case softEffectKinds[kind]:
		if hasGeomDelta || hasVertsDelta {
			return false, 0
		}
		return true, types.SeverityWarn
	default:
		if hasGeomDelta || hasVertsDelta {
			return false, 0
		}
		return true, types.SeverityWarn
	}
}

// slatsNotBent fires when the IR requests a seat-slat arc but no slat
// shows bend evidence.
func (v *Validator) slatsNotBent(doc *ir.Document, snap *engine.Snapshot) []types.Problem {
	if doc == nil || doc.Slats == nil {
		return nil
	}
	enabled, known := doc.SlatsEnabled()
	if !known || !enabled {
		return nil
	}
	if doc.Slats.ArcHeightMM <= 0 {
		return nil
	}
	return v.notBentProblem(snap, overlap.GroupSlats, types.CodeSlatsNotBent,
		"Seat slats are expected to be bent but bend evidence is missing.")
}

// backSlatsNotBent is the back-rest counterpart of slatsNotBent.
func (v *Validator) backSlatsNotBent(doc *ir.Document, snap *engine.Snapshot) []types.Problem {
	if doc == nil || doc.BackSupport == nil {
		return nil
	}
	if slats, known := doc.BackSlatsMode(); !known || !slats {
		return nil
	}
	if doc.BackSupport.Slats == nil || doc.BackSupport.Slats.ArcHeightMM <= 0 {
		return nil
	}
	return v.notBentProblem(snap, overlap.GroupBackSlats, types.CodeBackSlatsNotBent,
		"Back slats are expected to be bent but bend evidence is missing.")
}

func (v *Validator) notBentProblem(snap *engine.Snapshot, group overlap.Group, code types.ProblemCode, message string) []types.Problem {
	type candidate struct {
		name     string
		maxDelta float64
	}
	var all []candidate
	bent := 0
	for _, mesh := range snap.Meshes {
		if !group.Matches(mesh.Name) {
			continue
		}
		hasBend, angle := mesh.BendEvidence()
		if mesh.MaxBoxDelta() >= v.params.BendEpsM || (hasBend && angle > bendModAngleEps) {
			bent++
		}
		all = append(all, candidate{name: mesh.Name, maxDelta: mesh.MaxBoxDelta()})
	}
	if bent > 0 {
		return nil
	}

	// Subjects: the five flattest members, worst evidence first.
	sort.Slice(all, func(i, j int) bool {
		if all[i].maxDelta != all[j].maxDelta {
			return all[i].maxDelta > all[j].maxDelta
		}
		return all[i].name < all[j].name
	})
	if len(all) > 5 {
		all = all[:5]
	}
	subjects := make([]string, len(all))
	for i, c := range all {
		subjects[i] = c.name
	}

	return []types.Problem{{
		Code:     code,
		Severity: types.SeverityError,
		Message:  message,
		Subjects: subjects,
	}}
}

// overlapProblems turns detector pairs into problems, downgrading pairs
// that are expected joint contact at frame rails.
func (v *Validator) overlapProblems(doc *ir.Document, snap *engine.Snapshot, pairs []types.OverlapPair) []types.Problem {
	byRule := map[string][]types.OverlapPair{}
	for _, p := range pairs {
		byRule[p.RuleKey] = append(byRule[p.RuleKey], p)
	}

	var problems []types.Problem
	if v.shouldCheckSlats(doc, snap) {
		if p, ok := v.plainOverlapProblem(byRule["slats_vs_arms"],
			types.CodeOverlapSlatsArms, "Seat slats overlap arm geometry."); ok {
			problems = append(problems, p)
		}
		if p, ok := v.jointAwareOverlapProblem(byRule["slats_vs_frame"],
			types.CodeOverlapSlatsFrame,
			"Seat slats overlap frame geometry.",
			"Seat slats have only expected joint-contact overlaps with frame.",
			func(pair types.OverlapPair) bool { return v.isSlatFrameJoint(doc, pair) }); ok {
			problems = append(problems, p)
		}
	}
	if v.shouldCheckBackSlats(doc, snap) {
		if p, ok := v.jointAwareOverlapProblem(byRule["back_slats_vs_frame"],
			types.CodeOverlapBackSlatsFrame,
			"Back slats overlap frame geometry.",
			"Back slats have only expected joint-contact overlaps with frame.",
			func(pair types.OverlapPair) bool { return v.isBackSlatFrameJoint(doc, pair) }); ok {
			problems = append(problems, p)
		}
	}
	return problems
}

func (v *Validator) plainOverlapProblem(pairs []types.OverlapPair, code types.ProblemCode, message string) (types.Problem, bool) {
	total := pairVolume(pairs)
	if total <= v.params.OverlapEpsM3 {
		return types.Problem{}, false
	}
	return types.Problem{
		Code:      code,
		Severity:  types.SeverityError,
		Message:   message,
		Subjects:  pairSubjects(pairs),
		Magnitude: total,
	}, true
}

func (v *Validator) jointAwareOverlapProblem(
	pairs []types.OverlapPair,
	code types.ProblemCode,
	hardMessage, jointMessage string,
	isJoint func(types.OverlapPair) bool,
) (types.Problem, bool) {
	var hard, joints []types.OverlapPair
	for _, p := range pairs {
		if isJoint(p) {
			joints = append(joints, p)
		} else {
			hard = append(hard, p)
		}
	}

	hardVolume := pairVolume(hard)
	if hardVolume > v.params.OverlapEpsM3 {
		return types.Problem{
			Code:      code,
			Severity:  types.SeverityError,
			Message:   hardMessage,
			Subjects:  pairSubjects(hard),
			Magnitude: hardVolume,
		}, true
	}

	jointVolume := pairVolume(joints)
	if jointVolume > v.params.OverlapEpsM3 && len(joints) > 0 {
		return types.Problem{
			Code:      code,
			Severity:  types.SeverityWarn,
			Message:   jointMessage,
			Subjects:  pairSubjects(joints),
			Magnitude: jointVolume,
		}, true
	}
	return types.Problem{}, false
}

// isSlatFrameJoint accepts shallow contact between slats and the rails
// or cross beams they mount on: the slat clearance plus mount offset
// plus the joint allowance bounds the intersection's thinnest span.
func (v *Validator) isSlatFrameJoint(doc *ir.Document, pair types.OverlapPair) bool {
	right := strings.ToLower(pair.Right)
	if !strings.HasPrefix(right, "rail_") && !strings.HasPrefix(right, "beam_cross_") {
		return false
	}
	allowanceMM := v.params.JointAllowanceMM
	if doc != nil && doc.Slats != nil {
		allowanceMM += doc.Slats.ClearanceMM + doc.Slats.MountOffsetMM
	}
	return pairMinSpan(pair) <= math.Max(0, allowanceMM/1000.0)
}

// isBackSlatFrameJoint accepts back-slat contact at the back rails when
// the back support is thicker than the frame members it sits on.
func (v *Validator) isBackSlatFrameJoint(doc *ir.Document, pair types.OverlapPair) bool {
	right := strings.ToLower(pair.Right)
	if right != "back_rail_left" && right != "back_rail_right" {
		return false
	}
	if doc == nil || doc.BackSupport == nil || doc.Frame == nil {
		return false
	}
	allowanceMM := math.Max(0, doc.BackSupport.ThicknessMM-doc.Frame.ThicknessMM) + v.params.JointAllowanceMM
	return pairMinSpan(pair) <= math.Max(0, allowanceMM/1000.0)
}

// lowClearance warns when slats sit almost on the frame without
// touching it: fine to build, fragile to ship.
func (v *Validator) lowClearance(snap *engine.Snapshot, pairs []types.OverlapPair) []types.Problem {
	for _, p := range pairs {
		if p.RuleKey == "slats_vs_frame" {
			return nil
		}
	}

	slatBox, ok := overlap.GroupBounds(snap, overlap.GroupSlats)
	if !ok {
		return nil
	}
	frameBox, ok := overlap.GroupBounds(snap, overlap.GroupFrame)
	if !ok {
		return nil
	}

	var clearance float64
	switch {
	case slatBox.Max.Z < frameBox.Min.Z:
		clearance = frameBox.Min.Z - slatBox.Max.Z
	case frameBox.Max.Z < slatBox.Min.Z:
		clearance = slatBox.Min.Z - frameBox.Max.Z
	default:
		clearance = 0
	}
	if clearance >= v.params.ClearanceEpsM {
		return nil
	}

	return []types.Problem{{
		Code:      types.CodeLowClearanceSlatsFrame,
		Severity:  types.SeverityWarn,
		Message:   "Seat slats and frame have very low Z clearance.",
		Magnitude: clearance,
	}}
}

// shouldCheckSlats gates seat-slat rules on the IR flag when declared,
// otherwise on scene evidence.
func (v *Validator) shouldCheckSlats(doc *ir.Document, snap *engine.Snapshot) bool {
	if enabled, known := doc.SlatsEnabled(); known {
		return enabled
	}
	return overlap.GroupCount(snap, overlap.GroupSlats) > 0
}

func (v *Validator) shouldCheckBackSlats(doc *ir.Document, snap *engine.Snapshot) bool {
	if slats, known := doc.BackSlatsMode(); known {
		return slats
	}
	return overlap.GroupCount(snap, overlap.GroupBackSlats) > 0
}

// hasExpectedModifier matches an expected key against the present set.
// A bare kind matches any method variant and a compound key is satisfied
// by its bare kind: order and method detail are advisory, presence is
// the contract.
func hasExpectedModifier(present map[string]bool, expected string) bool {
	if expected == "" {
		return false
	}
	if present[expected] {
		return true
	}
	if kind, _, compound := strings.Cut(expected, ":"); compound {
		return present[kind]
	}
	prefix := expected + ":"
	for key := range present {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func pairVolume(pairs []types.OverlapPair) float64 {
	total := 0.0
	for _, p := range pairs {
		total += p.Volume
	}
	return total
}

func pairSubjects(pairs []types.OverlapPair) []string {
	seen := map[string]bool{}
	var subjects []string
	for _, p := range pairs {
		for _, name := range []string{p.Left, p.Right} {
			if name != "" && !seen[name] {
				seen[name] = true
				subjects = append(subjects, name)
			}
		}
	}
	sort.Strings(subjects)
	return subjects
}

func pairMinSpan(pair types.OverlapPair) float64 {
	s := pair.Bounds.Spans()
	return math.Min(s.X, math.Min(s.Y, s.Z))
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
