package overlap

import (
	"meshdoctor/internal/engine"
	"meshdoctor/internal/geom"
	"meshdoctor/internal/types"
)

// DefaultEpsilon is the volume below which an intersection is treated as
// zero and excluded, in cubic meters.
const DefaultEpsilon = 1e-8

// Detector computes penetration volumes for the configured group pairs.
// It is a read-only observer of engine snapshots.
type Detector struct {
	rules []Rule
	eps   float64
}

// NewDetector builds a detector. A non-positive epsilon falls back to
// DefaultEpsilon; nil rules fall back to DefaultRules.
func NewDetector(rules []Rule, eps float64) *Detector {
	if rules == nil {
		rules = DefaultRules()
	}
	if eps <= 0 {
		eps = DefaultEpsilon
	}
	return &Detector{rules: rules, eps: eps}
}

// Rules returns the configured rules in evaluation order.
func (d *Detector) Rules() []Rule { return d.rules }

// Epsilon returns the active volume cutoff.
func (d *Detector) Epsilon() float64 { return d.eps }

// Detect returns every pair whose intersection volume exceeds the
// epsilon. Output order is deterministic: configured rule order first,
// then lexical left/right mesh order (the snapshot is name-sorted).
func (d *Detector) Detect(snap *engine.Snapshot) []types.OverlapPair {
	var pairs []types.OverlapPair
	for _, rule := range d.rules {
		lefts := membersOf(snap, rule.Left)
		rights := membersOf(snap, rule.Right)
		for _, left := range lefts {
			for _, right := range rights {
				if left.Name == right.Name {
					continue
				}
				bounds, ok := geom.Intersect(left.Box, right.Box)
				if !ok {
					continue
				}
				volume := bounds.Volume()
				if volume <= d.eps {
					continue
				}
				pair := types.OverlapPair{
					RuleKey: rule.Key,
					Left:    left.Name,
					Right:   right.Name,
					Volume:  volume,
					Bounds:  bounds,
				}
				if mtv, ok := geom.MinTranslation(left.Box, right.Box); ok {
					pair.MTV = &mtv
				}
				pairs = append(pairs, pair)
			}
		}
	}
	return pairs
}

// Totals sums pair volumes per rule key. Every configured rule gets an
// entry, zero when clean, so report columns are always present.
func (d *Detector) Totals(pairs []types.OverlapPair) map[string]float64 {
	totals := make(map[string]float64, len(d.rules))
	for _, rule := range d.rules {
		totals[rule.Key] = 0
	}
	for _, p := range pairs {
		totals[p.RuleKey] += p.Volume
	}
	return totals
}

// RuleFor returns the rule with the given key.
func (d *Detector) RuleFor(key string) (Rule, bool) {
	for _, rule := range d.rules {
		if rule.Key == key {
			return rule, true
		}
	}
	return Rule{}, false
}

// GroupCount returns how many meshes in the snapshot belong to a group.
func GroupCount(snap *engine.Snapshot, group Group) int {
	return len(membersOf(snap, group))
}

// GroupBounds returns the union box over a group's meshes.
func GroupBounds(snap *engine.Snapshot, group Group) (geom.Box, bool) {
	members := membersOf(snap, group)
	boxes := make([]geom.Box, len(members))
	for i, m := range members {
		boxes[i] = m.Box
	}
	return geom.Union(boxes...)
}

func membersOf(snap *engine.Snapshot, group Group) []engine.MeshState {
	var members []engine.MeshState
	for _, m := range snap.Meshes {
		if group.Matches(m.Name) {
			members = append(members, m)
		}
	}
	return members
}
