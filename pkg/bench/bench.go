// Package bench runs a complete benchmark: discovery, one timing pass per
// strategy, aggregation and persistence.
package bench

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pyhub-apps/pdfpagebench/pkg/discovery"
	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
	"github.com/pyhub-apps/pdfpagebench/pkg/history"
	"github.com/pyhub-apps/pdfpagebench/pkg/report"
	"github.com/pyhub-apps/pdfpagebench/pkg/strategy"
)

// Recorder stores finished runs
type Recorder interface {
	Save(ctx context.Context, run history.Run) (int64, error)
}

// Options configures a Runner
type Options struct {
	// OutputDir is the root of the timing logs, statistics and plots
	OutputDir string
	Progress  io.Writer
	Logger    *slog.Logger
	Clock     func() time.Time
	// History, when set, receives every completed run
	History Recorder
}

// Result is a finished run
type Result struct {
	Root       string
	Files      []discovery.CandidateFile
	Report     report.Report
	StartedAt  time.Time
	FinishedAt time.Time
	// RunID is the history id, zero when no history is kept
	RunID int64
}

// Runner executes benchmark runs
type Runner struct {
	opts   Options
	writer *report.Writer
	logger *slog.Logger
}

// New creates a Runner
func New(opts Options) *Runner {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Runner{
		opts:   opts,
		writer: report.NewWriter(opts.OutputDir),
		logger: opts.Logger,
	}
}

// Writer returns the report writer of the output root
func (r *Runner) Writer() *report.Writer {
	return r.writer
}

// Run benchmarks strategies over the PDFs under root and returns the
// persisted report. Discovery runs before the output directories are
// reset, so a bad root leaves the previous results alone.
func (r *Runner) Run(ctx context.Context, root string, strategies []strategy.Strategy) (Result, error) {
	if len(strategies) == 0 {
		return Result{}, fmt.Errorf("no strategies to run")
	}
	seen := make(map[string]bool, len(strategies))
	for _, s := range strategies {
		if seen[s.Name] {
			return Result{}, fmt.Errorf("strategy %q listed twice", s.Name)
		}
		seen[s.Name] = true
	}
	res := Result{Root: root, StartedAt: r.opts.Clock()}

	files, err := discovery.Discover(root)
	if err != nil {
		return Result{}, err
	}
	res.Files = files
	r.logger.Info("discovered files",
		"root", root,
		"files", len(files),
		"bytes", discovery.TotalSize(files))

	if err := r.writer.Reset(); err != nil {
		return Result{}, err
	}

	h := harness.New(r.writer, harness.Options{
		Progress: r.opts.Progress,
		Logger:   r.logger,
		Clock:    r.opts.Clock,
	})

	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name
	}

	summaries := make([]harness.Summary, 0, len(strategies))
	for _, s := range strategies {
		if err := r.writer.Begin(s.Name); err != nil {
			return Result{}, err
		}
		summary, err := h.Run(ctx, s, files)
		if err != nil {
			return Result{}, err
		}
		summaries = append(summaries, summary)
	}

	rep, err := report.Aggregate(names, summaries...)
	if err != nil {
		return Result{}, err
	}

	if err := r.writer.WriteSummary(rep); err != nil {
		return Result{}, err
	}
	res.Report = rep
	res.FinishedAt = r.opts.Clock()

	if r.opts.History != nil {
		id, err := r.opts.History.Save(ctx, toRun(res))
		if err != nil {
			return Result{}, fmt.Errorf("failed to record run history: %w", err)
		}
		res.RunID = id
	}

	r.logger.Info("benchmark finished",
		"strategies", len(strategies),
		"files", len(files),
		"stats", r.writer.StatsPath())
	return res, nil
}

func toRun(res Result) history.Run {
	run := history.Run{
		Root:       res.Root,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		FileCount:  len(res.Files),
		TotalBytes: discovery.TotalSize(res.Files),
	}
	for _, name := range res.Report.Strategies() {
		if s, ok := res.Report.Summary(name); ok {
			run.Summaries = append(run.Summaries, s)
		}
	}
	return run
}
