package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"

	"github.com/pyhub-apps/pdfpagebench/pkg/bench"
	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
	"github.com/pyhub-apps/pdfpagebench/pkg/history"
	"github.com/pyhub-apps/pdfpagebench/pkg/plot"
	"github.com/pyhub-apps/pdfpagebench/pkg/report"
	"github.com/pyhub-apps/pdfpagebench/pkg/strategy"
)

// RunAction runs the benchmark over the directory given as argument
func RunAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: pdfpagebench run [flags] ROOT")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c, cfg)

	root, err := homedir.Expand(c.Args().First())
	if err != nil {
		return fmt.Errorf("failed to expand root: %w", err)
	}

	strategies, err := strategy.Build(cfg.Strategies, cfg.StrategyOptions())
	if err != nil {
		return err
	}

	opts := bench.Options{
		OutputDir: cfg.OutputDir,
		Logger:    logger,
	}
	if cfg.Progress {
		opts.Progress = c.App.Writer
	}
	if cfg.History.Path != "" {
		store, err := history.Open(cfg.History.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.History = store
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := bench.New(opts)
	res, err := runner.Run(ctx, root, strategies)
	if err != nil {
		return err
	}

	printReport(c, res.Report)
	fmt.Fprintf(c.App.Writer, "\nStatistics: %s\n", runner.Writer().StatsPath())
	if res.RunID != 0 {
		fmt.Fprintf(c.App.Writer, "Recorded as run %d in %s\n", res.RunID, cfg.History.Path)
	}

	if cfg.Plots {
		paths, err := plot.Generate(runner.Writer(), res.Report.Strategies()...)
		if err != nil {
			return fmt.Errorf("failed to render plots: %w", err)
		}
		for _, p := range paths {
			fmt.Fprintf(c.App.Writer, "Chart: %s\n", p)
		}
	}
	return nil
}

func printReport(c *cli.Context, r report.Report) {
	w := c.App.Writer
	fmt.Fprintf(w, "\n%-12s %12s %16s %8s\n", "Strategy", "Pages", "Parsing time", "Errors")
	fmt.Fprintln(w, strings.Repeat("-", 51))
	for _, name := range r.Strategies() {
		s, ok := r.Summary(name)
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%-12s %12d %15ss %8d\n",
			name, s.TotalPages, s.TotalParsingTime.StringFixed(harness.Precision), s.ErrorCount)
	}
}
