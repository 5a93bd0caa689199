// Package engine defines the capability interface the debug pipeline
// uses to talk to a host geometry engine. All pipeline components depend
// on this interface only; the bridge subpackage binds it to a real host
// process and enginetest provides an in-memory fake.
package engine

import (
	"context"
	"math"
	"sort"

	"meshdoctor/internal/geom"
	"meshdoctor/internal/ir"
)

// Modifier is one entry of a mesh's modifier stack as reported by the
// engine.
type Modifier struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind"`             // e.g. BEVEL, SOLIDIFY, SIMPLE_DEFORM
	Method string  `json:"method,omitempty"` // deform method for SIMPLE_DEFORM, e.g. BEND
	Angle  float64 `json:"angle,omitempty"`  // radians, deform modifiers only
}

// Key returns the normalized expectation key for the modifier,
// "KIND" or "KIND:METHOD" for compound kinds.
func (m Modifier) Key() string {
	kind := ir.NormalizeModifierKey(m.Kind)
	if kind == "SIMPLE_DEFORM" {
		if method := ir.NormalizeModifierKey(m.Method); method != "" {
			return kind + ":" + method
		}
	}
	return kind
}

// MeshState is one mesh's geometry as observed in a snapshot: evaluated
// bounds after the modifier stack, base bounds before it, and counts
// used as modifier-effect evidence.
type MeshState struct {
	Name      string     `json:"name"`
	Box       geom.Box   `json:"bbox_world"`      // evaluated, world space
	BaseBox   geom.Box   `json:"bbox_world_base"` // pre-modifier, world space
	Verts     int        `json:"verts"`
	BaseVerts int        `json:"verts_base"`
	Polys     int        `json:"polys"`
	Modifiers []Modifier `json:"modifiers,omitempty"`
}

// BoxDelta returns the per-axis difference between evaluated and base
// spans. A modifier that changes geometry shows up here.
func (m MeshState) BoxDelta() geom.Vec {
	e, b := m.Box.Spans(), m.BaseBox.Spans()
	return geom.Vec{X: e.X - b.X, Y: e.Y - b.Y, Z: e.Z - b.Z}
}

// MaxBoxDelta returns the largest absolute span delta across axes.
func (m MeshState) MaxBoxDelta() float64 {
	d := m.BoxDelta()
	return math.Max(math.Abs(d.X), math.Max(math.Abs(d.Y), math.Abs(d.Z)))
}

// VertsDelta returns the evaluated-minus-base vertex count difference.
func (m MeshState) VertsDelta() int {
	return m.Verts - m.BaseVerts
}

// ModifierKeys returns the set of normalized modifier keys on the stack.
func (m MeshState) ModifierKeys() map[string]bool {
	keys := make(map[string]bool, len(m.Modifiers))
	for _, mod := range m.Modifiers {
		if key := mod.Key(); key != "" {
			keys[key] = true
		}
	}
	return keys
}

// BendEvidence returns whether the stack carries a bend deform and the
// largest absolute bend angle on it.
func (m MeshState) BendEvidence() (hasBend bool, maxAngle float64) {
	for _, mod := range m.Modifiers {
		if mod.Key() != "SIMPLE_DEFORM:BEND" {
			continue
		}
		hasBend = true
		if a := math.Abs(mod.Angle); a > maxAngle {
			maxAngle = a
		}
	}
	return hasBend, maxAngle
}

// Snapshot is a read-only view of the scene at one instant. Meshes are
// sorted by name so downstream output is deterministic.
type Snapshot struct {
	Meshes []MeshState
	byName map[string]int
}

// NewSnapshot builds a snapshot, sorting meshes by name.
func NewSnapshot(meshes []MeshState) *Snapshot {
	sorted := make([]MeshState, len(meshes))
	copy(sorted, meshes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	index := make(map[string]int, len(sorted))
	for i, m := range sorted {
		index[m.Name] = i
	}
	return &Snapshot{Meshes: sorted, byName: index}
}

// Mesh looks a mesh up by name.
func (s *Snapshot) Mesh(name string) (MeshState, bool) {
	i, ok := s.byName[name]
	if !ok {
		return MeshState{}, false
	}
	return s.Meshes[i], true
}

// RGBA is a display color in linear 0..1 channels.
type RGBA struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
	A float64 `json:"a"`
}

// Session is one engine session bound to one scene. Sessions are not
// safe for concurrent mutation; within a run all calls are sequential.
type Session interface {
	// Snapshot queries the current state of every mesh in the scene.
	Snapshot(ctx context.Context) (*Snapshot, error)
	// ApplyTranslation shifts a named mesh by delta (meters).
	ApplyTranslation(ctx context.Context, mesh string, delta geom.Vec) error
	// SetDisplayColor assigns an overlay color to a named mesh.
	SetDisplayColor(ctx context.Context, mesh string, color RGBA) error
	// SaveScene writes a scene snapshot artifact to path.
	SaveScene(ctx context.Context, path string) error
	// RenderImage renders the scene to an image at path.
	RenderImage(ctx context.Context, path string) error
}
