package geom

import (
	"math"
	"testing"
)

func box(minX, minY, minZ, maxX, maxY, maxZ float64) Box {
	return Box{
		Min: Vec{X: minX, Y: minY, Z: minZ},
		Max: Vec{X: maxX, Y: maxY, Z: maxZ},
	}
}

func TestVolumeAndSpans(t *testing.T) {
	b := box(0, 0, 0, 2, 3, 4)
	if got := b.Volume(); got != 24 {
		t.Errorf("Volume = %v, want 24", got)
	}
	if s := b.Spans(); s != (Vec{X: 2, Y: 3, Z: 4}) {
		t.Errorf("Spans = %+v", s)
	}

	// Inverted boxes clamp to zero instead of going negative.
	inv := box(1, 1, 1, 0, 0, 0)
	if got := inv.Volume(); got != 0 {
		t.Errorf("inverted Volume = %v, want 0", got)
	}
}

func TestIntersectionVolume(t *testing.T) {
	a := box(0, 0, 0, 1, 1, 1)

	tests := []struct {
		name string
		b    Box
		want float64
	}{
		{"half overlap on x", box(0.5, 0, 0, 1.5, 1, 1), 0.5},
		{"disjoint", box(2, 2, 2, 3, 3, 3), 0},
		{"touching faces", box(1, 0, 0, 2, 1, 1), 0},
		{"contained", box(0.25, 0.25, 0.25, 0.75, 0.75, 0.75), 0.125},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntersectionVolume(a, tt.b)
			if math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("IntersectionVolume = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMinTranslation(t *testing.T) {
	// Left box penetrates right by 0.1 on z, deeper on x and y, and left's
	// center sits above right's center, so the MTV pushes left up.
	left := box(0, 0, 0.9, 1, 1, 1.9)
	right := box(0, 0, 0, 1, 1, 1)

	mtv, ok := MinTranslation(left, right)
	if !ok {
		t.Fatal("expected penetration")
	}
	if mtv.Axis != 2 {
		t.Errorf("Axis = %d, want 2", mtv.Axis)
	}
	if math.Abs(mtv.Depth-0.1) > 1e-12 {
		t.Errorf("Depth = %v, want 0.1", mtv.Depth)
	}
	if mtv.Sign != 1 {
		t.Errorf("Sign = %d, want 1", mtv.Sign)
	}
	if math.Abs(mtv.Delta.Z-0.1) > 1e-12 || mtv.Delta.X != 0 || mtv.Delta.Y != 0 {
		t.Errorf("Delta = %+v", mtv.Delta)
	}

	// Separated boxes have no MTV.
	if _, ok := MinTranslation(box(0, 0, 0, 1, 1, 1), box(5, 5, 5, 6, 6, 6)); ok {
		t.Error("expected no MTV for disjoint boxes")
	}

	// Lower left box is pushed down (negative sign).
	lower := box(0, 0, 0, 1, 1, 1.05)
	upper := box(0, 0, 1, 1, 1, 2)
	mtv, ok = MinTranslation(lower, upper)
	if !ok || mtv.Sign != -1 || mtv.Delta.Z >= 0 {
		t.Errorf("lower box MTV = %+v ok=%v, want negative z push", mtv, ok)
	}
}

func TestUnion(t *testing.T) {
	if _, ok := Union(); ok {
		t.Error("empty union should report not ok")
	}
	u, ok := Union(box(0, 0, 0, 1, 1, 1), box(-1, 2, 0, 0.5, 3, 4))
	if !ok {
		t.Fatal("union failed")
	}
	want := box(-1, 0, 0, 1, 3, 4)
	if u != want {
		t.Errorf("Union = %+v, want %+v", u, want)
	}
}

func TestTranslate(t *testing.T) {
	b := box(0, 0, 0, 1, 1, 1).Translate(Vec{X: 1, Y: -2, Z: 0.5})
	want := box(1, -2, 0.5, 2, -1, 1.5)
	if b != want {
		t.Errorf("Translate = %+v, want %+v", b, want)
	}
}
