// Package pipeline runs the full debug sequence against one scene:
// autofix, detection, validation, scoring, visualization, artifacts,
// and history.
package pipeline

import (
	"context"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"meshdoctor/internal/autofix"
	"meshdoctor/internal/classify"
	"meshdoctor/internal/config"
	"meshdoctor/internal/engine"
	"meshdoctor/internal/ir"
	"meshdoctor/internal/overlap"
	"meshdoctor/internal/report"
	"meshdoctor/internal/storage"
	"meshdoctor/internal/types"
	"meshdoctor/internal/validate"
)

// Request is one scene to debug.
type Request struct {
	Session engine.Session
	Doc     *ir.Document
	// Source labels the run in reports and history, usually the input
	// file name.
	Source string
	// ScenePath and ImagePath override the configured single-run
	// snapshot destinations; batch mode derives them per input file.
	ScenePath string
	ImagePath string
}

// Pipeline executes debug runs under one configuration.
type Pipeline struct {
	cfg    *config.Config
	logger *zap.Logger
	store  storage.Store
}

// New builds a pipeline. A nil store disables history; a nil logger
// falls back to zap.NewNop.
func New(cfg *config.Config, logger *zap.Logger, store storage.Store) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{cfg: cfg, logger: logger, store: store}
}

// Run executes the debug sequence and returns the report. Failed runs
// are recorded in history before the error is returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (*types.DebugReport, error) {
	started := time.Now().UTC()
	runID := uuid.NewString()
	logger := p.logger.With(
		zap.String("run_id", runID),
		zap.String("source", req.Source))

	rep, err := p.run(ctx, req, runID, started, logger)
	if err != nil {
		p.recordFailure(ctx, runID, req.Source, started, err, logger)
		return nil, err
	}
	return rep, nil
}

func (p *Pipeline) run(ctx context.Context, req Request, runID string, started time.Time, logger *zap.Logger) (*types.DebugReport, error) {
	detector := overlap.NewDetector(nil, p.cfg.Thresholds.OverlapEpsM3)
	corrector := autofix.New(req.Session, detector, logger)

	fix, err := corrector.Run(ctx, autofix.Config{
		Enabled:       p.cfg.Autofix,
		MaxIterations: p.cfg.Iterations,
		SafetyMargin:  p.cfg.SafetyMarginM(),
		Verbose:       p.cfg.AutofixVerbose,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("autofix finished",
		zap.String("reason", string(fix.Reason)),
		zap.Int("iterations", fix.Iterations),
		zap.Int("fixes", fix.FixesApplied),
		zap.Float64("residual_m3", fix.ResidualVolume))

	// Validation runs against the corrected scene.
	snap, err := req.Session.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	pairs := detector.Detect(snap)

	problems, err := validate.New(p.cfg.Params()).Validate(req.Doc, snap, pairs)
	if err != nil {
		return nil, err
	}

	rep := report.Build(report.BuildParams{
		RunID:        runID,
		Source:       req.Source,
		Problems:     problems,
		Overlaps:     detector.Totals(pairs),
		FixesApplied: fix.FixesApplied,
		Iterations:   fix.Iterations,
		Termination:  fix.Reason,
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	})
	logger.Info("validation finished",
		zap.Float64("score", rep.Score),
		zap.Int("problems", len(problems)))

	if p.cfg.Visualize {
		colors := classify.Classify(problems)
		report.Visualize(ctx, req.Session, snap, colors, logger)
		report.EmitSnapshots(ctx, req.Session, req.ScenePath, req.ImagePath, logger)
	}

	if p.cfg.ArtifactDir != "" {
		path := filepath.Join(p.cfg.ArtifactDir, runID+".json")
		if err := report.WriteJSON(path, rep); err != nil {
			logger.Warn("could not write report artifact",
				zap.String("path", path), zap.Error(err))
		}
	}

	p.recordSuccess(ctx, rep, logger)
	return rep, nil
}

// recordSuccess is best-effort: a history failure never fails the run.
func (p *Pipeline) recordSuccess(ctx context.Context, rep *types.DebugReport, logger *zap.Logger) {
	if p.store == nil {
		return
	}
	if err := p.store.RecordRun(ctx, storage.FromReport(rep)); err != nil {
		logger.Warn("could not record run history", zap.Error(err))
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, runID, source string, started time.Time, runErr error, logger *zap.Logger) {
	if p.store == nil {
		return
	}
	rec := storage.RunRecord{
		RunID:      runID,
		Source:     source,
		Status:     storage.StatusError,
		Error:      runErr.Error(),
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}
	if err := p.store.RecordRun(ctx, rec); err != nil {
		logger.Warn("could not record failed run history", zap.Error(err))
	}
}
