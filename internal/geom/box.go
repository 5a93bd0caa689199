// Package geom provides the axis-aligned bounding-box arithmetic the
// debug pipeline runs on: intersection volumes, unions, spans, and the
// minimum translation vector used to separate penetrating boxes.
package geom

import "math"

// Vec is a point or displacement in meters.
type Vec struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Add returns v + o.
func (v Vec) Add(o Vec) Vec {
	return Vec{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Axis returns the component for axis index 0..2.
func (v Vec) Axis(i int) float64 {
	switch i {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Length returns the Euclidean norm.
func (v Vec) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Box is an axis-aligned bounding box in world space, in meters.
type Box struct {
	Min Vec `json:"min"`
	Max Vec `json:"max"`
}

// Spans returns the per-axis extents, clamped to zero for inverted boxes.
func (b Box) Spans() Vec {
	return Vec{
		X: math.Max(0, b.Max.X-b.Min.X),
		Y: math.Max(0, b.Max.Y-b.Min.Y),
		Z: math.Max(0, b.Max.Z-b.Min.Z),
	}
}

// Volume returns the box volume in cubic meters.
func (b Box) Volume() float64 {
	s := b.Spans()
	return s.X * s.Y * s.Z
}

// Center returns the box midpoint.
func (b Box) Center() Vec {
	return Vec{
		X: (b.Min.X + b.Max.X) * 0.5,
		Y: (b.Min.Y + b.Max.Y) * 0.5,
		Z: (b.Min.Z + b.Max.Z) * 0.5,
	}
}

// Translate returns the box shifted by delta.
func (b Box) Translate(delta Vec) Box {
	return Box{Min: b.Min.Add(delta), Max: b.Max.Add(delta)}
}

// Union returns the smallest box containing all inputs. The second return
// is false when the input is empty.
func Union(boxes ...Box) (Box, bool) {
	if len(boxes) == 0 {
		return Box{}, false
	}
	out := boxes[0]
	for _, b := range boxes[1:] {
		out.Min.X = math.Min(out.Min.X, b.Min.X)
		out.Min.Y = math.Min(out.Min.Y, b.Min.Y)
		out.Min.Z = math.Min(out.Min.Z, b.Min.Z)
		out.Max.X = math.Max(out.Max.X, b.Max.X)
		out.Max.Y = math.Max(out.Max.Y, b.Max.Y)
		out.Max.Z = math.Max(out.Max.Z, b.Max.Z)
	}
	return out, true
}

// Intersect returns the intersection box of a and b. The second return is
// false when the boxes do not overlap with positive volume on all axes.
func Intersect(a, b Box) (Box, bool) {
	out := Box{
		Min: Vec{
			X: math.Max(a.Min.X, b.Min.X),
			Y: math.Max(a.Min.Y, b.Min.Y),
			Z: math.Max(a.Min.Z, b.Min.Z),
		},
		Max: Vec{
			X: math.Min(a.Max.X, b.Max.X),
			Y: math.Min(a.Max.Y, b.Max.Y),
			Z: math.Min(a.Max.Z, b.Max.Z),
		},
	}
	if out.Max.X-out.Min.X <= 0 || out.Max.Y-out.Min.Y <= 0 || out.Max.Z-out.Min.Z <= 0 {
		return Box{}, false
	}
	return out, true
}

// IntersectionVolume returns the overlap volume of a and b, zero when the
// boxes are disjoint or merely touching.
func IntersectionVolume(a, b Box) float64 {
	inter, ok := Intersect(a, b)
	if !ok {
		return 0
	}
	return inter.Volume()
}

// MTV is the minimum translation vector separating two penetrating boxes:
// the shallowest penetration axis, its depth, and the signed displacement
// that moves the left box out of the right one along that axis.
type MTV struct {
	Axis  int     `json:"axis"`
	Depth float64 `json:"depth_m"`
	Sign  int     `json:"sign"`
	Delta Vec     `json:"delta_m"`
}

// MinTranslation computes the MTV that moves left out of right. The second
// return is false when the boxes do not penetrate on all three axes.
// The sign points away from right's center: when left sits on the lower
// side of the penetration axis it is pushed further down, otherwise up.
func MinTranslation(left, right Box) (MTV, bool) {
	depths := [3]float64{
		math.Min(left.Max.X, right.Max.X) - math.Max(left.Min.X, right.Min.X),
		math.Min(left.Max.Y, right.Max.Y) - math.Max(left.Min.Y, right.Min.Y),
		math.Min(left.Max.Z, right.Max.Z) - math.Max(left.Min.Z, right.Min.Z),
	}
	if depths[0] <= 0 || depths[1] <= 0 || depths[2] <= 0 {
		return MTV{}, false
	}

	axis := 0
	for i := 1; i < 3; i++ {
		if depths[i] < depths[axis] {
			axis = i
		}
	}

	sign := 1
	if left.Center().Axis(axis) < right.Center().Axis(axis) {
		sign = -1
	}

	mtv := MTV{Axis: axis, Depth: depths[axis], Sign: sign}
	shift := float64(sign) * depths[axis]
	switch axis {
	case 0:
		mtv.Delta = Vec{X: shift}
	case 1:
		mtv.Delta = Vec{Y: shift}
	default:
		mtv.Delta = Vec{Z: shift}
	}
	return mtv, true
}
