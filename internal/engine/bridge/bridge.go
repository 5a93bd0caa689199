// Package bridge is the HTTP client for the geometry engine's debug
// bridge. The engine side exposes a small JSON API over localhost; this
// adapter turns it into an engine.Session.
package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"meshdoctor/internal/engine"
	"meshdoctor/internal/geom"
	"meshdoctor/internal/types"
)

// Client talks to one engine bridge endpoint.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ engine.Session = (*Client)(nil)

// New builds a client for the given base URL. The HTTP client carries
// no timeout: scene renders legitimately take minutes, so deadlines
// come from the caller's context.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// wire types; axis triples keep the payload compact.

type wireBox struct {
	Min [3]float64 `json:"min"`
	Max [3]float64 `json:"max"`
}

type wireModifier struct {
	Name   string  `json:"name"`
	Kind   string  `json:"kind"`
	Method string  `json:"method,omitempty"`
	Angle  float64 `json:"angle,omitempty"`
}

type wireMesh struct {
	Name      string         `json:"name"`
	Box       wireBox        `json:"box"`
	BaseBox   wireBox        `json:"base_box"`
	Verts     int            `json:"verts"`
	BaseVerts int            `json:"base_verts"`
	Polys     int            `json:"polys"`
	Modifiers []wireModifier `json:"modifiers,omitempty"`
}

type wireSnapshot struct {
	Meshes []wireMesh `json:"meshes"`
}

func toVec(a [3]float64) geom.Vec {
	return geom.Vec{X: a[0], Y: a[1], Z: a[2]}
}

func fromVec(v geom.Vec) [3]float64 {
	return [3]float64{v.X, v.Y, v.Z}
}

func toBox(b wireBox) geom.Box {
	return geom.Box{Min: toVec(b.Min), Max: toVec(b.Max)}
}

// Snapshot queries the full scene state.
func (c *Client) Snapshot(ctx context.Context) (*engine.Snapshot, error) {
	var snap wireSnapshot
	if err := c.get(ctx, "/snapshot", &snap); err != nil {
		return nil, &types.QueryError{Op: "snapshot", Err: err}
	}

	meshes := make([]engine.MeshState, len(snap.Meshes))
	for i, m := range snap.Meshes {
		mods := make([]engine.Modifier, len(m.Modifiers))
		for j, mod := range m.Modifiers {
			mods[j] = engine.Modifier{
				Name:   mod.Name,
				Kind:   mod.Kind,
				Method: mod.Method,
				Angle:  mod.Angle,
			}
		}
		meshes[i] = engine.MeshState{
			Name:      m.Name,
			Box:       toBox(m.Box),
			BaseBox:   toBox(m.BaseBox),
			Verts:     m.Verts,
			BaseVerts: m.BaseVerts,
			Polys:     m.Polys,
			Modifiers: mods,
		}
	}
	return engine.NewSnapshot(meshes), nil
}

// ApplyTranslation moves one mesh by delta, in meters.
func (c *Client) ApplyTranslation(ctx context.Context, mesh string, delta geom.Vec) error {
	body := struct {
		Mesh  string     `json:"mesh"`
		Delta [3]float64 `json:"delta"`
	}{Mesh: mesh, Delta: fromVec(delta)}
	if err := c.post(ctx, "/translate", body); err != nil {
		return &types.QueryError{Op: "apply_translation", Mesh: mesh, Err: err}
	}
	return nil
}

// SetDisplayColor sets a mesh's viewport overlay color.
func (c *Client) SetDisplayColor(ctx context.Context, mesh string, color engine.RGBA) error {
	body := struct {
		Mesh  string     `json:"mesh"`
		Color [4]float64 `json:"color"`
	}{Mesh: mesh, Color: [4]float64{color.R, color.G, color.B, color.A}}
	if err := c.post(ctx, "/display_color", body); err != nil {
		return &types.QueryError{Op: "set_display_color", Mesh: mesh, Err: err}
	}
	return nil
}

// SaveScene persists the engine's scene file.
func (c *Client) SaveScene(ctx context.Context, path string) error {
	if err := c.post(ctx, "/save_scene", struct {
		Path string `json:"path"`
	}{Path: path}); err != nil {
		return &types.QueryError{Op: "save_scene", Err: err}
	}
	return nil
}

// RenderImage renders the current viewport to an image file.
func (c *Client) RenderImage(ctx context.Context, path string) error {
	if err := c.post(ctx, "/render_image", struct {
		Path string `json:"path"`
	}{Path: path}); err != nil {
		return &types.QueryError{Op: "render_image", Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// The bridge puts its failure reason in the body.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("bridge returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode bridge response: %w", err)
	}
	return nil
}
