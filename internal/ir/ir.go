// Package ir loads intermediate-representation documents describing a
// furniture scene and exposes the debug block's modifier expectation
// table to the validator.
package ir

import (
	"encoding/json"
	"fmt"
	"os"

	"meshdoctor/internal/types"
)

// Document is the slice of the IR the debug pipeline reads: part
// parameters that gate validation rules, and the optional debug block.
// Scene construction consumes the full document elsewhere; unknown
// fields are ignored here.
type Document struct {
	SeatWidthMM float64      `json:"seat_width_mm,omitempty"`
	SeatDepthMM float64      `json:"seat_depth_mm,omitempty"`
	Slats       *Slats       `json:"slats,omitempty"`
	BackSupport *BackSupport `json:"back_support,omitempty"`
	Frame       *Frame       `json:"frame,omitempty"`
	Arms        *Arms        `json:"arms,omitempty"`
	Debug       *Debug       `json:"debug,omitempty"`
}

// Slats describes seat or back slat parameters.
type Slats struct {
	Enabled       *bool   `json:"enabled,omitempty"`
	Count         int     `json:"count,omitempty"`
	ArcHeightMM   float64 `json:"arc_height_mm,omitempty"`
	MarginXMM     float64 `json:"margin_x_mm,omitempty"`
	MarginYMM     float64 `json:"margin_y_mm,omitempty"`
	ClearanceMM   float64 `json:"clearance_mm,omitempty"`
	MountOffsetMM float64 `json:"mount_offset_mm,omitempty"`
}

// BackSupport describes the back construction. Mode "slats" enables the
// back-slat overlap and bend checks.
type BackSupport struct {
	Mode        string  `json:"mode,omitempty"`
	ThicknessMM float64 `json:"thickness_mm,omitempty"`
	Slats       *Slats  `json:"slats,omitempty"`
}

// Frame describes the seat frame.
type Frame struct {
	ThicknessMM float64 `json:"thickness_mm,omitempty"`
}

// Arms describes the arm construction.
type Arms struct {
	Type    string  `json:"type,omitempty"`
	WidthMM float64 `json:"width_mm,omitempty"`
	Profile string  `json:"profile,omitempty"`
}

// Debug is the IR's optional debug block. ExpectModifiers maps a mesh
// name prefix to the ordered list of modifier kinds expected on every
// mesh matching that prefix. Values are kept raw so a malformed entry
// (non-list value) can be reported as a ConfigError instead of a silent
// unmarshal failure.
type Debug struct {
	ExpectModifiers map[string]json.RawMessage `json:"expect_modifiers,omitempty"`
}

// SlatsEnabled reports whether seat slats are switched on. When the IR
// carries no explicit flag the caller falls back to scene evidence.
func (d *Document) SlatsEnabled() (enabled, known bool) {
	if d == nil || d.Slats == nil || d.Slats.Enabled == nil {
		return false, false
	}
	return *d.Slats.Enabled, true
}

// BackSlatsMode reports whether the back is built from slats. Known is
// false when the IR does not declare a back-support mode.
func (d *Document) BackSlatsMode() (slats, known bool) {
	if d == nil || d.BackSupport == nil || d.BackSupport.Mode == "" {
		return false, false
	}
	return d.BackSupport.Mode == "slats", true
}

// looksLikeIR guards against feeding arbitrary JSON objects through the
// pipeline: a document must carry at least one known scene key.
func looksLikeIR(raw map[string]json.RawMessage) bool {
	for _, key := range []string{"slats", "back_support", "seat_width_mm", "seat_depth_mm"} {
		if _, ok := raw[key]; ok {
			return true
		}
	}
	return false
}

// Load reads an IR document from path. A missing or unreadable file is
// an IOError; unparsable or non-IR content is a ConfigError.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.IOError{Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse decodes IR JSON. The name parameter is used in error messages.
func Parse(data []byte, name string) (*Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &types.ConfigError{Reason: fmt.Sprintf("%s: not a JSON object", name), Err: err}
	}
	if !looksLikeIR(raw) {
		return nil, types.NewConfigError("%s: payload is not an IR document", name)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &types.ConfigError{Reason: fmt.Sprintf("%s: malformed IR document", name), Err: err}
	}
	return &doc, nil
}
