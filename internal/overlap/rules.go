// Package overlap detects interpenetrations between configured mesh
// groups using the engine's bounding geometry.
package overlap

import "strings"

// Group identifies a named mesh group by naming convention.
type Group string

const (
	GroupSlats     Group = "slat_"
	GroupBackSlats Group = "back_slat_"
	GroupArms      Group = "arm_"
	GroupFrame     Group = "frame_"
	GroupLegs      Group = "leg_"
)

// Matches reports whether a mesh name belongs to the group. Frame and
// arm groups accept the alternate spellings the scene builder produces.
func (g Group) Matches(name string) bool {
	lower := strings.ToLower(name)
	switch g {
	case GroupSlats:
		// back_slat_ members must not leak into the seat-slat group.
		return strings.HasPrefix(lower, "slat_")
	case GroupBackSlats:
		return strings.HasPrefix(lower, "back_slat_")
	case GroupArms:
		return strings.HasPrefix(lower, "arm_") ||
			strings.HasPrefix(lower, "left_arm") ||
			strings.HasPrefix(lower, "right_arm") ||
			strings.Contains(lower, "_arm_")
	case GroupFrame:
		switch lower {
		case "seat_support", "back_frame", "back_panel":
			return true
		}
		return strings.HasPrefix(lower, "frame_") ||
			strings.HasPrefix(lower, "beam_") ||
			strings.HasPrefix(lower, "rail_") ||
			strings.HasPrefix(lower, "back_rail_")
	case GroupLegs:
		return strings.HasPrefix(lower, "leg_")
	}
	return false
}

// Side designates which member of a pair the autofix engine may move.
type Side int

const (
	// MoveLeft moves the rule's left group member (the slat-like part).
	MoveLeft Side = iota
	// MoveRight moves the right group member.
	MoveRight
)

// Rule is one configured group-pair overlap check. Rule order is the
// output order of the detector and the correction order of the autofix
// engine.
type Rule struct {
	// Key names the pair in reports, e.g. "slats_vs_frame".
	Key string
	// Left and Right are the two groups checked pairwise.
	Left, Right Group
	// Movable designates the side corrective displacements apply to.
	// The lighter, repositionable part moves; the structural part stays.
	Movable Side
	// SummaryColumn is the batch CSV column for this pair's residual
	// volume, e.g. "overlaps_slats_m3". Empty means the pair is checked
	// but not summarized.
	SummaryColumn string
}

// MovableMesh returns the mesh name corrections target for a pair of
// this rule.
func (r Rule) MovableMesh(left, right string) string {
	if r.Movable == MoveRight {
		return right
	}
	return left
}

// DefaultRules returns the configured group pairs in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{
			// Arm overlaps surface as problems only; the summary keeps
			// the slats and back columns.
			Key:     "slats_vs_arms",
			Left:    GroupSlats,
			Right:   GroupArms,
			Movable: MoveLeft,
		},
		{
			Key:           "slats_vs_frame",
			Left:          GroupSlats,
			Right:         GroupFrame,
			Movable:       MoveLeft,
			SummaryColumn: "overlaps_slats_m3",
		},
		{
			Key:           "back_slats_vs_frame",
			Left:          GroupBackSlats,
			Right:         GroupFrame,
			Movable:       MoveLeft,
			SummaryColumn: "overlaps_back_m3",
		},
	}
}
