// Package harness times one extraction strategy over a list of files and
// keeps the bookkeeping of recognized and unrecognized failures.
package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pyhub-apps/pdfpagebench/pkg/discovery"
	"github.com/pyhub-apps/pdfpagebench/pkg/strategy"
)

// State is where a file is in its measurement
type State int

const (
	Pending State = iota
	Timing
	Succeeded
	Failed
	Recorded
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Timing:
		return "timing"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case Recorded:
		return "recorded"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Outcome is the result of measuring one file
type Outcome struct {
	File    discovery.CandidateFile
	State   State
	Pages   int
	Elapsed decimal.Decimal
	Err     error
}

// Sink receives timing records in production order
type Sink interface {
	Append(strategy string, rec Record) error
}

// AbortError is an unrecognized failure that stopped a run
type AbortError struct {
	Strategy string
	File     string
	Err      error
}

func (e *AbortError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("strategy %s aborted: %v", e.Strategy, e.Err)
	}
	return fmt.Sprintf("strategy %s aborted on %s: %v", e.Strategy, e.File, e.Err)
}

func (e *AbortError) Unwrap() error {
	return e.Err
}

// Options configures a Harness
type Options struct {
	// Progress receives one line per file; nil disables progress output
	Progress io.Writer
	Logger   *slog.Logger
	// Clock defaults to time.Now
	Clock func() time.Time
}

// Harness runs strategies over files, one file at a time
type Harness struct {
	sink     Sink
	progress *progress
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a Harness writing its records to sink
func New(sink Sink, opts Options) *Harness {
	h := &Harness{
		sink:   sink,
		logger: opts.Logger,
		now:    opts.Clock,
	}
	if opts.Progress != nil {
		h.progress = &progress{w: opts.Progress}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

// Run measures s on every file in order and returns its summary. A failure
// s does not recognize stops the loop and is returned as an *AbortError;
// the records already written stay in place.
func (h *Harness) Run(ctx context.Context, s strategy.Strategy, files []discovery.CandidateFile) (Summary, error) {
	outcomes := make([]Outcome, 0, len(files))

	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return Summary{}, &AbortError{Strategy: s.Name, File: f.Path, Err: err}
		}
		o, err := h.measure(ctx, s, f)
		if err != nil {
			h.logger.Error("unrecognized extraction failure",
				"strategy", s.Name,
				"file", f.Path,
				"error", err)
			return Summary{}, &AbortError{Strategy: s.Name, File: f.Path, Err: err}
		}

		if err := h.sink.Append(s.Name, Record{Filename: RecordName(f.Path), Elapsed: o.Elapsed}); err != nil {
			return Summary{}, err
		}

		if o.Err == nil {
			h.progress.file(s.Name, i+1, len(files), o.Pages, f)
		} else {
			h.progress.failure(s.Name, i+1, len(files), o.Err, f)
		}
		o.State = Recorded
		outcomes = append(outcomes, o)
	}

	summary, err := Summarize(s.Name, outcomes)
	if err != nil {
		return Summary{}, &AbortError{Strategy: s.Name, Err: err}
	}
	h.progress.total(summary)
	h.logger.Info("strategy finished",
		"strategy", s.Name,
		"files", len(files),
		"pages", summary.TotalPages,
		"seconds", summary.TotalParsingTime.StringFixed(Precision),
		"errors", summary.ErrorCount)
	return summary, nil
}

// measure times a single extraction. Only the Extract call sits between
// the two clock readings.
func (h *Harness) measure(ctx context.Context, s strategy.Strategy, f discovery.CandidateFile) (Outcome, error) {
	o := Outcome{File: f, State: Pending, Elapsed: decimal.Zero}
	in := strategy.Input{Path: f.Path}

	if s.Preload {
		data, err := os.ReadFile(f.Path)
		if err != nil {
			return o, fmt.Errorf("failed to preload file: %w", err)
		}
		in.Data = data
	}
	if s.Prepare != nil {
		if err := s.Prepare(ctx); err != nil {
			return o, err
		}
	}

	o.State = Timing
	start := h.now()
	pages, err := s.Extract(ctx, in)
	elapsed := h.now().Sub(start)

	if err != nil {
		if !s.Recognizes(err) {
			return o, err
		}
		h.logger.Debug("recognized extraction failure",
			"strategy", s.Name,
			"file", f.Path,
			"kind", strategy.Classify(err),
			"error", err)
		o.State = Failed
		o.Err = err
		return o, nil
	}

	o.State = Succeeded
	o.Pages = pages
	o.Elapsed = SuccessSeconds(elapsed)
	return o, nil
}
