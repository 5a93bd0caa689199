// Package enginetest provides an in-memory engine.Session used across
// the test suite and by pipeline tests end to end.
package enginetest

import (
	"context"
	"fmt"
	"sync"

	"meshdoctor/internal/engine"
	"meshdoctor/internal/geom"
	"meshdoctor/internal/types"
)

// Fake is an in-memory scene. ApplyTranslation shifts the mesh's boxes
// so re-detection after a correction behaves like a real engine.
type Fake struct {
	mu     sync.Mutex
	meshes map[string]engine.MeshState

	// Colors records the last overlay color per mesh.
	Colors map[string]engine.RGBA
	// SavedScenes and RenderedImages record emitted artifact paths.
	SavedScenes    []string
	RenderedImages []string
	// Translations records every corrective command in order.
	Translations []types.Correction

	// SnapshotErr, when set, makes Snapshot fail (query-error paths).
	SnapshotErr error
	// TranslateErr, when set, makes ApplyTranslation fail.
	TranslateErr error

	snapshotCalls int
}

// New builds a fake session from initial mesh states.
func New(meshes ...engine.MeshState) *Fake {
	f := &Fake{
		meshes: make(map[string]engine.MeshState, len(meshes)),
		Colors: map[string]engine.RGBA{},
	}
	for _, m := range meshes {
		f.meshes[m.Name] = m
	}
	return f
}

// Snapshot returns the current scene state.
func (f *Fake) Snapshot(ctx context.Context) (*engine.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SnapshotErr != nil {
		return nil, &types.QueryError{Op: "snapshot", Err: f.SnapshotErr}
	}
	f.snapshotCalls++

	states := make([]engine.MeshState, 0, len(f.meshes))
	for _, m := range f.meshes {
		mods := make([]engine.Modifier, len(m.Modifiers))
		copy(mods, m.Modifiers)
		m.Modifiers = mods
		states = append(states, m)
	}
	return engine.NewSnapshot(states), nil
}

// ApplyTranslation shifts both evaluated and base boxes of the mesh.
func (f *Fake) ApplyTranslation(ctx context.Context, mesh string, delta geom.Vec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TranslateErr != nil {
		return &types.QueryError{Op: "apply_translation", Mesh: mesh, Err: f.TranslateErr}
	}
	m, ok := f.meshes[mesh]
	if !ok {
		return &types.QueryError{Op: "apply_translation", Mesh: mesh, Err: fmt.Errorf("unknown mesh")}
	}
	m.Box = m.Box.Translate(delta)
	m.BaseBox = m.BaseBox.Translate(delta)
	f.meshes[mesh] = m
	f.Translations = append(f.Translations, types.Correction{
		TargetMesh: mesh,
		Delta:      delta,
		Magnitude:  delta.Length(),
	})
	return nil
}

// SetDisplayColor records the overlay color.
func (f *Fake) SetDisplayColor(ctx context.Context, mesh string, color engine.RGBA) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.meshes[mesh]; !ok {
		return &types.QueryError{Op: "set_display_color", Mesh: mesh, Err: fmt.Errorf("unknown mesh")}
	}
	f.Colors[mesh] = color
	return nil
}

// SaveScene records the scene artifact path.
func (f *Fake) SaveScene(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SavedScenes = append(f.SavedScenes, path)
	return nil
}

// RenderImage records the image artifact path.
func (f *Fake) RenderImage(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RenderedImages = append(f.RenderedImages, path)
	return nil
}

// SnapshotCalls returns how many snapshots were taken.
func (f *Fake) SnapshotCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotCalls
}

// Mesh returns the current state of a mesh.
func (f *Fake) Mesh(name string) (engine.MeshState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.meshes[name]
	return m, ok
}

// SlabMesh is a test helper building a plain axis-aligned mesh state.
func SlabMesh(name string, min, max geom.Vec, mods ...engine.Modifier) engine.MeshState {
	box := geom.Box{Min: min, Max: max}
	return engine.MeshState{
		Name:      name,
		Box:       box,
		BaseBox:   box,
		Verts:     8,
		BaseVerts: 8,
		Polys:     6,
		Modifiers: mods,
	}
}
