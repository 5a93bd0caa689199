package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"meshdoctor/internal/geom"
)

func TestModifierKey(t *testing.T) {
	tests := []struct {
		mod  Modifier
		want string
	}{
		{Modifier{Kind: "BEVEL"}, "BEVEL"},
		{Modifier{Kind: "simple_deform", Method: "bend"}, "SIMPLE_DEFORM:BEND"},
		{Modifier{Kind: "SIMPLE_DEFORM"}, "SIMPLE_DEFORM"},
		{Modifier{Kind: "MIRROR", Method: "BEND"}, "MIRROR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.mod.Key())
	}
}

func TestMeshStateDeltas(t *testing.T) {
	m := MeshState{
		Box:       geom.Box{Max: geom.Vec{X: 1, Y: 0.05, Z: 0.032}},
		BaseBox:   geom.Box{Max: geom.Vec{X: 1, Y: 0.05, Z: 0.02}},
		Verts:     128,
		BaseVerts: 8,
	}
	assert.InDelta(t, 0.012, m.BoxDelta().Z, 1e-12)
	assert.InDelta(t, 0.012, m.MaxBoxDelta(), 1e-12)
	assert.Equal(t, 120, m.VertsDelta())
}

func TestBendEvidence(t *testing.T) {
	m := MeshState{Modifiers: []Modifier{
		{Kind: "SIMPLE_DEFORM", Method: "BEND", Angle: -0.4},
		{Kind: "SIMPLE_DEFORM", Method: "BEND", Angle: 0.1},
		{Kind: "BEVEL"},
	}}
	hasBend, angle := m.BendEvidence()
	assert.True(t, hasBend)
	assert.Equal(t, 0.4, angle, "largest absolute angle wins")

	none := MeshState{Modifiers: []Modifier{{Kind: "BEVEL"}}}
	hasBend, _ = none.BendEvidence()
	assert.False(t, hasBend)
}

func TestSnapshotSortsAndIndexes(t *testing.T) {
	snap := NewSnapshot([]MeshState{
		{Name: "slat_02"},
		{Name: "arm_left"},
		{Name: "slat_01"},
	})
	assert.Equal(t, "arm_left", snap.Meshes[0].Name)
	assert.Equal(t, "slat_01", snap.Meshes[1].Name)

	m, ok := snap.Mesh("slat_02")
	assert.True(t, ok)
	assert.Equal(t, "slat_02", m.Name)
	_, ok = snap.Mesh("ghost")
	assert.False(t, ok)
}
