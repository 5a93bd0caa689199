// Package autofix iteratively removes detected overlaps by translating
// the movable member of each overlapping pair along its minimum
// translation vector. The loop is bounded: it converges when a
// detection pass finds nothing, and gives up after the configured
// iteration budget with the residual recorded.
package autofix

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"meshdoctor/internal/engine"
	"meshdoctor/internal/geom"
	"meshdoctor/internal/overlap"
	"meshdoctor/internal/types"
)

// Config controls one correction run.
type Config struct {
	// Enabled gates the whole loop; a disabled run still takes one
	// detection pass so reports carry the residual.
	Enabled bool
	// MaxIterations bounds correction passes. Zero means detect-only:
	// nothing is ever moved.
	MaxIterations int
	// SafetyMargin is added to every correction magnitude, in meters,
	// so separated parts end up clear of each other instead of touching.
	SafetyMargin float64
	// Verbose logs every planned correction.
	Verbose bool
}

// Validate rejects configurations the loop cannot honor.
func (c Config) Validate() error {
	if c.MaxIterations < 0 {
		return types.NewConfigError("autofix iterations must be >= 0, got %d", c.MaxIterations)
	}
	if c.SafetyMargin < 0 {
		return types.NewConfigError("autofix safety margin must be >= 0, got %g", c.SafetyMargin)
	}
	return nil
}

// IterationStats is one detection pass of the loop.
type IterationStats struct {
	// Iteration numbers passes from zero (the initial detection).
	Iteration int
	// Pairs is how many overlapping pairs the pass found.
	Pairs int
	// Volume is the summed intersection volume of the pass, m3.
	Volume float64
	// Fixes is how many corrections the pass applied afterwards.
	Fixes int
}

// MetricsCollector observes loop progress. Implementations must be fast;
// the loop calls them inline.
type MetricsCollector interface {
	RecordIteration(stats IterationStats)
}

type nopCollector struct{}

func (nopCollector) RecordIteration(IterationStats) {}

// Result summarizes a finished run.
type Result struct {
	Reason        types.TerminationReason
	Iterations    int
	FixesApplied  int
	ResidualPairs int
	// ResidualVolume is the summed overlap volume at termination, m3.
	ResidualVolume float64
	// History holds per-pass stats in order, the initial detection first.
	History []IterationStats
}

// Corrector drives the correction loop against one engine session.
type Corrector struct {
	session   engine.Session
	detector  *overlap.Detector
	logger    *zap.Logger
	collector MetricsCollector
}

// New builds a corrector. A nil logger falls back to zap.NewNop.
func New(session engine.Session, detector *overlap.Detector, logger *zap.Logger) *Corrector {
	if logger == nil {
		logger = zap.NewNop()
	}
	if detector == nil {
		detector = overlap.NewDetector(nil, 0)
	}
	return &Corrector{
		session:   session,
		detector:  detector,
		logger:    logger,
		collector: nopCollector{},
	}
}

// SetCollector installs a metrics observer for subsequent runs.
func (c *Corrector) SetCollector(mc MetricsCollector) {
	if mc == nil {
		mc = nopCollector{}
	}
	c.collector = mc
}

// Run executes the loop. The scene is mutated only by corrections; a
// disabled or zero-iteration run leaves it untouched.
func (c *Corrector) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	result := &Result{Reason: types.TerminationConverged}
	prevVolume := -1.0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snap, err := c.session.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("autofix snapshot: %w", err)
		}
		pairs := c.detector.Detect(snap)
		volume := totalVolume(pairs)

		stats := IterationStats{
			Iteration: result.Iterations,
			Pairs:     len(pairs),
			Volume:    volume,
		}

		if prevVolume >= 0 && volume > prevVolume {
			// Corrections can push a part into a third mesh. The loop
			// keeps going within budget; the log line is the trail.
			c.logger.Warn("residual overlap volume increased",
				zap.Int("iteration", result.Iterations),
				zap.Float64("previous_m3", prevVolume),
				zap.Float64("current_m3", volume))
		}
		prevVolume = volume

		if len(pairs) == 0 {
			c.collector.RecordIteration(stats)
			result.History = append(result.History, stats)
			result.Reason = types.TerminationConverged
			break
		}
		if !cfg.Enabled {
			c.collector.RecordIteration(stats)
			result.History = append(result.History, stats)
			result.Reason = types.TerminationDisabled
			result.ResidualPairs = len(pairs)
			result.ResidualVolume = volume
			break
		}
		if result.Iterations >= cfg.MaxIterations {
			c.collector.RecordIteration(stats)
			result.History = append(result.History, stats)
			result.Reason = types.TerminationExhausted
			result.ResidualPairs = len(pairs)
			result.ResidualVolume = volume
			break
		}

		corrections := c.plan(pairs, cfg.SafetyMargin)
		for _, corr := range corrections {
			if cfg.Verbose {
				c.logger.Info("applying correction",
					zap.String("mesh", corr.TargetMesh),
					zap.Float64("magnitude_m", corr.Magnitude))
			}
			if err := c.session.ApplyTranslation(ctx, corr.TargetMesh, corr.Delta); err != nil {
				return nil, fmt.Errorf("autofix apply: %w", err)
			}
			result.FixesApplied++
			stats.Fixes++
		}

		c.collector.RecordIteration(stats)
		result.History = append(result.History, stats)
		result.Iterations++

		if stats.Fixes == 0 {
			// Every pair was unplannable (degenerate geometry). Nothing
			// will change on the next pass, so stop here.
			c.logger.Warn("no applicable corrections for remaining overlaps",
				zap.Int("pairs", len(pairs)))
			result.Reason = types.TerminationExhausted
			result.ResidualPairs = len(pairs)
			result.ResidualVolume = volume
			break
		}
	}

	return result, nil
}

// plan turns pairs into at most one correction per mesh. Pair order is
// the detector's deterministic order, so the first rule claiming a mesh
// wins the iteration.
func (c *Corrector) plan(pairs []types.OverlapPair, margin float64) []types.Correction {
	claimed := map[string]bool{}
	var corrections []types.Correction
	for _, pair := range pairs {
		rule, ok := c.detector.RuleFor(pair.RuleKey)
		if !ok || pair.MTV == nil {
			continue
		}
		target := rule.MovableMesh(pair.Left, pair.Right)
		if claimed[target] {
			continue
		}
		claimed[target] = true

		magnitude := pair.MTV.Depth + margin
		if magnitude <= 0 {
			c.logger.Debug("skipping zero-magnitude correction",
				zap.String("mesh", target))
			continue
		}
		corrections = append(corrections, types.Correction{
			TargetMesh: target,
			Delta:      axisDelta(pair.MTV.Axis, pair.MTV.Sign, magnitude),
			Magnitude:  magnitude,
		})
	}
	return corrections
}

func axisDelta(axis, sign int, magnitude float64) geom.Vec {
	v := magnitude * float64(sign)
	switch axis {
	case 0:
		return geom.Vec{X: v}
	case 1:
		return geom.Vec{Y: v}
	default:
		return geom.Vec{Z: v}
	}
}

func totalVolume(pairs []types.OverlapPair) float64 {
	total := 0.0
	for _, p := range pairs {
		total += p.Volume
	}
	return total
}
