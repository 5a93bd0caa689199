package validate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshdoctor/internal/engine"
	"meshdoctor/internal/engine/enginetest"
	"meshdoctor/internal/geom"
	"meshdoctor/internal/ir"
	"meshdoctor/internal/overlap"
	"meshdoctor/internal/types"
)

func boolPtr(v bool) *bool { return &v }

func snapshotOf(t *testing.T, meshes ...engine.MeshState) *engine.Snapshot {
	t.Helper()
	snap, err := enginetest.New(meshes...).Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func docWithExpectations(entries map[string]string) *ir.Document {
	expect := map[string]json.RawMessage{}
	for prefix, list := range entries {
		expect[prefix] = json.RawMessage(list)
	}
	return &ir.Document{Debug: &ir.Debug{ExpectModifiers: expect}}
}

func validateAll(t *testing.T, doc *ir.Document, snap *engine.Snapshot) []types.Problem {
	t.Helper()
	pairs := overlap.NewDetector(nil, 0).Detect(snap)
	problems, err := New(DefaultParams()).Validate(doc, snap, pairs)
	require.NoError(t, err)
	return problems
}

func problemsByCode(problems []types.Problem, code types.ProblemCode) []types.Problem {
	var out []types.Problem
	for _, p := range problems {
		if p.Code == code {
			out = append(out, p)
		}
	}
	return out
}

func TestExpectationMissing(t *testing.T) {
	doc := docWithExpectations(map[string]string{
		"slat_": `["SIMPLE_DEFORM:BEND"]`,
	})
	snap := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 0.05, Z: 0.02}),
		enginetest.SlabMesh("slat_02", geom.Vec{Y: 0.1}, geom.Vec{X: 1, Y: 0.15, Z: 0.02},
			engine.Modifier{Name: "Bend", Kind: "SIMPLE_DEFORM", Method: "BEND", Angle: 0.4}),
	)

	got := problemsByCode(validateAll(t, doc, snap), types.CodeModExpectationMissing)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityError, got[0].Severity)
	assert.Equal(t, []string{"slat_01"}, got[0].Subjects)
}

func TestExpectationMissingUsesLongestPrefix(t *testing.T) {
	doc := docWithExpectations(map[string]string{
		"slat_":      `["MIRROR"]`,
		"back_slat_": `["SOLIDIFY"]`,
	})
	// back_slat_01 carries SOLIDIFY but not MIRROR; only the longer
	// back_slat_ entry applies, so nothing is missing.
	snap := snapshotOf(t,
		enginetest.SlabMesh("back_slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 0.05, Z: 0.02},
			engine.Modifier{Name: "Solidify", Kind: "SOLIDIFY"}),
	)

	problems := validateAll(t, doc, snap)
	assert.Empty(t, problemsByCode(problems, types.CodeModExpectationMissing))
}

func TestExpectationMissingBareKindMatchesMethodVariant(t *testing.T) {
	doc := docWithExpectations(map[string]string{
		"slat_": `["SIMPLE_DEFORM"]`,
	})
	snap := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 0.05, Z: 0.02},
			engine.Modifier{Name: "Bend", Kind: "SIMPLE_DEFORM", Method: "BEND", Angle: 0.4}),
	)

	problems := validateAll(t, doc, snap)
	assert.Empty(t, problemsByCode(problems, types.CodeModExpectationMissing))
}

func TestNoEffectBend(t *testing.T) {
	doc := docWithExpectations(map[string]string{
		"slat_": `["SIMPLE_DEFORM:BEND"]`,
	})

	// Zero angle and identical base/evaluated boxes: no evidence.
	flat := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 0.05, Z: 0.02},
			engine.Modifier{Name: "Bend", Kind: "SIMPLE_DEFORM", Method: "BEND", Angle: 0}),
	)
	got := problemsByCode(validateAll(t, doc, flat), types.CodeModExpectationNoEffect)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityError, got[0].Severity)
	assert.Equal(t, []string{"slat_01"}, got[0].Subjects)

	// A real bend angle is evidence even without a bbox delta.
	bent := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 0.05, Z: 0.02},
			engine.Modifier{Name: "Bend", Kind: "SIMPLE_DEFORM", Method: "BEND", Angle: 0.35}),
	)
	assert.Empty(t, problemsByCode(validateAll(t, doc, bent), types.CodeModExpectationNoEffect))
}

func TestNoEffectMirrorNeedsVertexGrowth(t *testing.T) {
	doc := docWithExpectations(map[string]string{
		"arm_": `["MIRROR"]`,
	})

	stale := enginetest.SlabMesh("arm_left", geom.Vec{}, geom.Vec{X: 0.1, Y: 0.4, Z: 0.5},
		engine.Modifier{Name: "Mirror", Kind: "MIRROR"})
	got := problemsByCode(validateAll(t, doc, snapshotOf(t, stale)), types.CodeModExpectationNoEffect)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityError, got[0].Severity)

	grown := stale
	grown.Verts = 16
	assert.Empty(t, problemsByCode(validateAll(t, doc, snapshotOf(t, grown)), types.CodeModExpectationNoEffect))
}

func TestNoEffectSoftKindIsWarning(t *testing.T) {
	doc := docWithExpectations(map[string]string{
		"frame_": `["BEVEL"]`,
	})
	snap := snapshotOf(t,
		enginetest.SlabMesh("frame_base", geom.Vec{}, geom.Vec{X: 1, Y: 1, Z: 0.1},
			engine.Modifier{Name: "Bevel", Kind: "BEVEL"}),
	)

	got := problemsByCode(validateAll(t, doc, snap), types.CodeModExpectationNoEffect)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityWarn, got[0].Severity)
}

func TestSlatsNotBent(t *testing.T) {
	doc := &ir.Document{
		Slats: &ir.Slats{Enabled: boolPtr(true), Count: 6, ArcHeightMM: 12},
	}

	flat := func(name string, y float64) engine.MeshState {
		return enginetest.SlabMesh(name, geom.Vec{Y: y}, geom.Vec{X: 1, Y: y + 0.05, Z: 0.02})
	}
	snap := snapshotOf(t,
		flat("slat_01", 0), flat("slat_02", 0.1), flat("slat_03", 0.2),
		flat("slat_04", 0.3), flat("slat_05", 0.4), flat("slat_06", 0.5),
	)

	got := problemsByCode(validateAll(t, doc, snap), types.CodeSlatsNotBent)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityError, got[0].Severity)
	assert.Len(t, got[0].Subjects, 5, "subjects are capped at five meshes")
}

func TestSlatsNotBentAcceptsBoxDeltaEvidence(t *testing.T) {
	doc := &ir.Document{
		Slats: &ir.Slats{Enabled: boolPtr(true), Count: 2, ArcHeightMM: 12},
	}

	bent := enginetest.SlabMesh("slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 0.05, Z: 0.02})
	bent.Box.Max.Z += 0.012 // evaluated box grew by the arc height
	snap := snapshotOf(t,
		bent,
		enginetest.SlabMesh("slat_02", geom.Vec{Y: 0.1}, geom.Vec{X: 1, Y: 0.15, Z: 0.02}),
	)

	assert.Empty(t, problemsByCode(validateAll(t, doc, snap), types.CodeSlatsNotBent))
}

func TestSlatsNotBentSkippedWhenFlatArc(t *testing.T) {
	doc := &ir.Document{
		Slats: &ir.Slats{Enabled: boolPtr(true), Count: 2, ArcHeightMM: 0},
	}
	snap := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 0.05, Z: 0.02}),
	)
	assert.Empty(t, problemsByCode(validateAll(t, doc, snap), types.CodeSlatsNotBent))
}

func TestBackSlatsNotBent(t *testing.T) {
	doc := &ir.Document{
		BackSupport: &ir.BackSupport{
			Mode:  "slats",
			Slats: &ir.Slats{Count: 3, ArcHeightMM: 8},
		},
	}
	snap := snapshotOf(t,
		enginetest.SlabMesh("back_slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 0.02, Z: 0.4}),
	)

	got := problemsByCode(validateAll(t, doc, snap), types.CodeBackSlatsNotBent)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"back_slat_01"}, got[0].Subjects)
}

func TestOverlapSlatsFrameHard(t *testing.T) {
	doc := &ir.Document{Slats: &ir.Slats{Enabled: boolPtr(true)}}
	// 10mm deep penetration into a frame beam, well past any joint
	// allowance.
	snap := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{Z: 0.5}, geom.Vec{X: 1, Y: 0.05, Z: 0.53}),
		enginetest.SlabMesh("frame_beam", geom.Vec{Z: 0.4}, geom.Vec{X: 1, Y: 1, Z: 0.51}),
	)

	got := problemsByCode(validateAll(t, doc, snap), types.CodeOverlapSlatsFrame)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityError, got[0].Severity)
	assert.Equal(t, []string{"frame_beam", "slat_01"}, got[0].Subjects)
	assert.InDelta(t, 1*0.05*0.01, got[0].Magnitude, 1e-12)
}

func TestOverlapSlatsFrameJointContactIsWarning(t *testing.T) {
	doc := &ir.Document{
		Slats: &ir.Slats{Enabled: boolPtr(true), ClearanceMM: 2, MountOffsetMM: 1},
	}
	// A 3mm-thin contact patch against a rail stays within the joint
	// allowance (2 + 1 + 2 mm).
	snap := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{Z: 0.497}, geom.Vec{X: 1, Y: 0.05, Z: 0.52}),
		enginetest.SlabMesh("rail_front", geom.Vec{Z: 0.4}, geom.Vec{X: 1, Y: 1, Z: 0.5}),
	)

	got := problemsByCode(validateAll(t, doc, snap), types.CodeOverlapSlatsFrame)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityWarn, got[0].Severity)
	assert.Equal(t, []string{"rail_front", "slat_01"}, got[0].Subjects)
}

func TestOverlapBackSlatsFrameJoint(t *testing.T) {
	doc := &ir.Document{
		BackSupport: &ir.BackSupport{Mode: "slats", ThicknessMM: 20, Slats: &ir.Slats{}},
		Frame:       &ir.Frame{ThicknessMM: 18},
	}
	// Allowance is (20-18)+2 = 4mm; a 3mm contact at the back rail is a
	// joint, not a defect.
	snap := snapshotOf(t,
		enginetest.SlabMesh("back_slat_01", geom.Vec{X: 0.017}, geom.Vec{X: 0.12, Y: 0.05, Z: 0.4}),
		enginetest.SlabMesh("back_rail_left", geom.Vec{}, geom.Vec{X: 0.02, Y: 1, Z: 0.5}),
	)

	got := problemsByCode(validateAll(t, doc, snap), types.CodeOverlapBackSlatsFrame)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityWarn, got[0].Severity)
}

func TestOverlapChecksGatedBySlatsDisabled(t *testing.T) {
	doc := &ir.Document{Slats: &ir.Slats{Enabled: boolPtr(false)}}
	snap := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 1, Z: 1}),
		enginetest.SlabMesh("frame_base", geom.Vec{X: 0.5}, geom.Vec{X: 1.5, Y: 1, Z: 1}),
	)

	problems := validateAll(t, doc, snap)
	assert.Empty(t, problemsByCode(problems, types.CodeOverlapSlatsFrame))
}

func TestOverlapChecksFallBackToSceneEvidence(t *testing.T) {
	// IR says nothing about slats; the scene has them, so the rule runs.
	doc := &ir.Document{}
	snap := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{}, geom.Vec{X: 1, Y: 1, Z: 1}),
		enginetest.SlabMesh("frame_base", geom.Vec{X: 0.5}, geom.Vec{X: 1.5, Y: 1, Z: 1}),
	)

	got := problemsByCode(validateAll(t, doc, snap), types.CodeOverlapSlatsFrame)
	require.Len(t, got, 1)
}

func TestLowClearance(t *testing.T) {
	doc := &ir.Document{Slats: &ir.Slats{Enabled: boolPtr(true)}}

	// 1mm of air between slats and frame: no overlap, but too tight.
	tight := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{Z: 0.501}, geom.Vec{X: 1, Y: 0.05, Z: 0.52}),
		enginetest.SlabMesh("frame_base", geom.Vec{}, geom.Vec{X: 1, Y: 1, Z: 0.5}),
	)
	got := problemsByCode(validateAll(t, doc, tight), types.CodeLowClearanceSlatsFrame)
	require.Len(t, got, 1)
	assert.Equal(t, types.SeverityWarn, got[0].Severity)
	assert.InDelta(t, 0.001, got[0].Magnitude, 1e-9)

	// 5mm is comfortable.
	fine := snapshotOf(t,
		enginetest.SlabMesh("slat_01", geom.Vec{Z: 0.505}, geom.Vec{X: 1, Y: 0.05, Z: 0.52}),
		enginetest.SlabMesh("frame_base", geom.Vec{}, geom.Vec{X: 1, Y: 1, Z: 0.5}),
	)
	assert.Empty(t, problemsByCode(validateAll(t, doc, fine), types.CodeLowClearanceSlatsFrame))
}

func TestValidateRejectsMalformedExpectationTable(t *testing.T) {
	doc := docWithExpectations(map[string]string{
		"slat_": `"not-a-list"`,
	})
	snap := snapshotOf(t)

	_, err := New(DefaultParams()).Validate(doc, snap, nil)
	var cfgErr *types.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}
