// Package classify maps problem codes to highlight colors for the
// visualization pass. One color per mesh: when several problems touch
// the same mesh, the strongest color wins.
package classify

import (
	"meshdoctor/internal/engine"
	"meshdoctor/internal/types"
)

// Color is a highlight bucket, strongest first.
type Color int

const (
	// Red marks hard overlaps: parts interpenetrate.
	Red Color = iota
	// Blue marks missing expected modifiers and bend failures.
	Blue
	// Orange marks present-but-ineffective modifiers.
	Orange
	// Gray is the neutral wash for untouched meshes.
	Gray
)

// String returns the lowercase color name.
func (c Color) String() string {
	switch c {
	case Red:
		return "red"
	case Blue:
		return "blue"
	case Orange:
		return "orange"
	default:
		return "gray"
	}
}

// RGBA returns the viewport overlay color.
func (c Color) RGBA() engine.RGBA {
	switch c {
	case Red:
		return engine.RGBA{R: 0.92, G: 0.16, B: 0.16, A: 1}
	case Blue:
		return engine.RGBA{R: 0.18, G: 0.42, B: 0.95, A: 1}
	case Orange:
		return engine.RGBA{R: 0.95, G: 0.52, B: 0.14, A: 1}
	default:
		return engine.RGBA{R: 0.58, G: 0.58, B: 0.58, A: 1}
	}
}

// Stronger reports whether c outranks other. Red > Blue > Orange > Gray
// is a total order; ties are not stronger.
func (c Color) Stronger(other Color) bool {
	return c < other
}

// colorFor buckets a single problem code.
func colorFor(code types.ProblemCode) (Color, bool) {
	switch {
	case code.IsOverlap():
		return Red, true
	case code == types.CodeModExpectationMissing,
		code == types.CodeSlatsNotBent,
		code == types.CodeBackSlatsNotBent:
		return Blue, true
	case code == types.CodeModExpectationNoEffect:
		return Orange, true
	default:
		return Gray, false
	}
}

// Classify assigns each problem subject its strongest applicable color.
// Meshes untouched by any problem are absent from the result; painting
// them Gray is the visualizer's job.
func Classify(problems []types.Problem) map[string]Color {
	out := map[string]Color{}
	for _, p := range problems {
		color, ok := colorFor(p.Code)
		if !ok {
			continue
		}
		for _, subject := range p.Subjects {
			current, seen := out[subject]
			if !seen || color.Stronger(current) {
				out[subject] = color
			}
		}
	}
	return out
}
