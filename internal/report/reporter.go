// Package report assembles the per-run debug report, paints the
// visualization overlay, and emits artifacts.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"meshdoctor/internal/classify"
	"meshdoctor/internal/engine"
	"meshdoctor/internal/types"
)

// BuildParams carries everything a report needs; the pipeline fills it
// from the detector, validator, and autofix results.
type BuildParams struct {
	RunID        string
	Source       string
	Problems     []types.Problem
	Overlaps     map[string]float64
	FixesApplied int
	Iterations   int
	Termination  types.TerminationReason
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Build assembles the report and computes its score.
func Build(p BuildParams) *types.DebugReport {
	overlaps := p.Overlaps
	if overlaps == nil {
		overlaps = map[string]float64{}
	}
	return &types.DebugReport{
		RunID:         p.RunID,
		Source:        p.Source,
		Score:         Score(p.Problems),
		Problems:      p.Problems,
		Overlaps:      overlaps,
		FixesApplied:  p.FixesApplied,
		IterationsRun: p.Iterations,
		Termination:   p.Termination,
		StartedAt:     p.StartedAt,
		FinishedAt:    p.FinishedAt,
	}
}

// Visualize paints every mesh in the snapshot: problem subjects get
// their classified color, the rest get the neutral gray wash. Painting
// is best-effort; a mesh that refuses its color is logged and skipped.
func Visualize(ctx context.Context, session engine.Session, snap *engine.Snapshot, colors map[string]classify.Color, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for _, mesh := range snap.Meshes {
		color, ok := colors[mesh.Name]
		if !ok {
			color = classify.Gray
		}
		if err := session.SetDisplayColor(ctx, mesh.Name, color.RGBA()); err != nil {
			logger.Warn("could not set display color",
				zap.String("mesh", mesh.Name),
				zap.String("color", color.String()),
				zap.Error(err))
		}
	}
}

// EmitSnapshots saves the scene and renders an image to the given
// paths. Empty paths skip the corresponding artifact. Best-effort: a
// failed artifact never fails the run.
func EmitSnapshots(ctx context.Context, session engine.Session, scenePath, imagePath string, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if scenePath != "" {
		if err := session.SaveScene(ctx, scenePath); err != nil {
			logger.Warn("could not save scene snapshot",
				zap.String("path", scenePath), zap.Error(err))
		}
	}
	if imagePath != "" {
		if err := session.RenderImage(ctx, imagePath); err != nil {
			logger.Warn("could not render image snapshot",
				zap.String("path", imagePath), zap.Error(err))
		}
	}
}

// WriteJSON persists the report as an indented JSON artifact, creating
// parent directories as needed.
func WriteJSON(path string, rep *types.DebugReport) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &types.IOError{Path: dir, Err: err}
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return &types.IOError{Path: path, Err: err}
	}
	return nil
}
