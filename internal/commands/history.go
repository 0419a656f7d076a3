package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"

	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
	"github.com/pyhub-apps/pdfpagebench/pkg/history"
)

// HistoryAction lists recorded runs, newest first
func HistoryAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	path := cfg.History.Path
	if c.IsSet("db") {
		if path, err = homedir.Expand(c.String("db")); err != nil {
			return fmt.Errorf("failed to expand database path: %w", err)
		}
	}
	if path == "" {
		return fmt.Errorf("no history database: pass --db or set history.path")
	}

	store, err := history.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(c.Context, c.Int("limit"))
	if err != nil {
		return err
	}

	w := c.App.Writer
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}

	for _, run := range runs {
		fmt.Fprintf(w, "Run %d  %s  %s  %d files, %s, took %s\n",
			run.ID,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Root,
			run.FileCount,
			humanize.IBytes(uint64(run.TotalBytes)),
			run.Duration().Round(time.Millisecond))
		for _, s := range run.Summaries {
			errs := ""
			if len(s.Errors) > 0 {
				errs = " [" + strings.Join(s.Errors, "; ") + "]"
			}
			fmt.Fprintf(w, "    %-12s %8d pages %12ss %4d errors%s\n",
				s.Strategy, s.TotalPages, s.TotalParsingTime.StringFixed(harness.Precision), s.ErrorCount, errs)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d runs\n", len(runs))
	return nil
}
