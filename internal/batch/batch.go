// Package batch debugs a directory of scene documents and writes the
// CSV summary. Individual file failures are tolerated: every input gets
// a summary row, failed ones with sentinel values.
package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"meshdoctor/internal/config"
	"meshdoctor/internal/engine"
	"meshdoctor/internal/ir"
	"meshdoctor/internal/overlap"
	"meshdoctor/internal/pipeline"
	"meshdoctor/internal/storage"
	"meshdoctor/internal/types"
)

// SummaryFileName is the summary written next to the inputs.
const SummaryFileName = "summary.csv"

// summaryRules returns the overlap rules carrying a summary column, in
// rule order.
func summaryRules() []overlap.Rule {
	var rules []overlap.Rule
	for _, rule := range overlap.DefaultRules() {
		if rule.SummaryColumn != "" {
			rules = append(rules, rule)
		}
	}
	return rules
}

// summaryHeader derives the CSV column set from the rule configuration.
// Downstream tooling parses columns by name; the fixed columns and the
// rules' SummaryColumn names are frozen together.
func summaryHeader(rules []overlap.Rule) []string {
	header := []string{"file_name", "debug_score", "problems_count"}
	for _, rule := range rules {
		header = append(header, rule.SummaryColumn)
	}
	return append(header, "fixes_applied_count", "status")
}

// SessionFactory opens an engine session for one input document. Batch
// workers call it concurrently.
type SessionFactory func(ctx context.Context, source string, doc *ir.Document) (engine.Session, error)

// Runner executes the pipeline over every *.json file in a directory.
type Runner struct {
	cfg     *config.Config
	logger  *zap.Logger
	pipe    *pipeline.Pipeline
	factory SessionFactory
}

// New builds a batch runner.
func New(cfg *config.Config, logger *zap.Logger, store storage.Store, factory SessionFactory) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:     cfg,
		logger:  logger,
		pipe:    pipeline.New(cfg, logger, store),
		factory: factory,
	}
}

// Run debugs every *.json file under dir, in name order, and returns
// one row per file in the same order. Per-file failures land in the
// row's Err; only a missing directory or context cancellation fails the
// batch itself.
func (r *Runner) Run(ctx context.Context, dir string) ([]types.BatchRow, error) {
	files, err := listInputs(dir)
	if err != nil {
		return nil, err
	}

	rows := make([]types.BatchRow, len(files))
	g, ctx := errgroup.WithContext(ctx)
	workers := r.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, name := range files {
		rows[i] = types.BatchRow{FileName: name}
		g.Go(func() error {
			rep, err := r.runOne(ctx, dir, name)
			if err != nil {
				r.logger.Warn("batch input failed",
					zap.String("file", name), zap.Error(err))
				rows[i].Err = err
				// Tolerated; the row carries the failure.
				return nil
			}
			rows[i].Report = rep
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *Runner) runOne(ctx context.Context, dir, name string) (*types.DebugReport, error) {
	path := filepath.Join(dir, name)
	doc, err := ir.Load(path)
	if err != nil {
		return nil, err
	}

	session, err := r.factory(ctx, name, doc)
	if err != nil {
		return nil, err
	}

	req := pipeline.Request{
		Session: session,
		Doc:     doc,
		Source:  name,
	}
	if r.cfg.Visualize && r.cfg.SnapshotSceneDir != "" {
		stem := strings.TrimSuffix(name, filepath.Ext(name))
		req.ScenePath = filepath.Join(r.cfg.SnapshotSceneDir, stem+"_debug.scene")
		req.ImagePath = filepath.Join(r.cfg.SnapshotSceneDir, stem+"_debug.png")
	}
	return r.pipe.Run(ctx, req)
}

func listInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &types.IOError{Path: dir, Err: err}
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, entry.Name())
	}
	sort.Strings(files)
	return files, nil
}

// WriteSummary writes the CSV summary, creating the output directory as
// needed. The header and every row are always present: error rows carry
// problems_count -1 and a zero score so the file stays parseable when
// runs fail.
func WriteSummary(path string, rows []types.BatchRow) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &types.IOError{Path: dir, Err: err}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return &types.IOError{Path: path, Err: err}
	}
	defer f.Close()

	rules := summaryRules()
	w := csv.NewWriter(f)
	if err := w.Write(summaryHeader(rules)); err != nil {
		return fmt.Errorf("write summary header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(summaryRow(row, rules)); err != nil {
			return fmt.Errorf("write summary row %s: %w", row.FileName, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush summary: %w", err)
	}
	return nil
}

func summaryRow(row types.BatchRow, rules []overlap.Rule) []string {
	if row.Err != nil {
		out := []string{row.FileName, "0.000000", "-1"}
		for range rules {
			out = append(out, "0")
		}
		return append(out, "0", "error: "+row.Err.Error())
	}
	rep := row.Report
	out := []string{
		row.FileName,
		strconv.FormatFloat(rep.Score, 'f', 6, 64),
		strconv.Itoa(len(rep.Problems)),
	}
	for _, rule := range rules {
		out = append(out, formatVolume(rep.OverlapTotal(rule.Key)))
	}
	return append(out, strconv.Itoa(rep.FixesApplied), "ok")
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', 9, 64)
}
