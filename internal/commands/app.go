// Package commands implements the pdfpagebench command line.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v2"

	"github.com/pyhub-apps/pdfpagebench/pkg/config"
)

// NewApp builds the command line application
func NewApp() *cli.App {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "YAML configuration file",
	}
	outputFlag := &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "output root for timing logs, statistics and plots",
	}

	return &cli.App{
		Name:  "pdfpagebench",
		Usage: "benchmark PDF page counting strategies",
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "time every strategy on every PDF under ROOT",
				ArgsUsage: "ROOT",
				Flags: []cli.Flag{
					configFlag,
					outputFlag,
					&cli.StringSliceFlag{Name: "strategies", Aliases: []string{"s"}, Usage: "strategies to run, in order"},
					&cli.BoolFlag{Name: "no-plots", Usage: "skip chart rendering"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "suppress per-file progress"},
					&cli.StringFlag{Name: "history-db", Usage: "SQLite file to record the run in"},
					&cli.StringFlag{Name: "tika-url", Usage: "Apache Tika server URL"},
					&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn or error"},
					&cli.StringFlag{Name: "log-format", Usage: "text or json"},
				},
				Action: RunAction,
			},
			{
				Name:   "plot",
				Usage:  "render charts from existing timing logs",
				Flags:  []cli.Flag{configFlag, outputFlag},
				Action: PlotAction,
			},
			{
				Name:  "history",
				Usage: "list recorded runs",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{Name: "db", Usage: "history database"},
					&cli.IntFlag{Name: "limit", Value: 10, Usage: "number of runs to show, 0 for all"},
				},
				Action: HistoryAction,
			},
			{
				Name:   "strategies",
				Usage:  "list available strategies",
				Action: StrategiesAction,
			},
		},
	}
}

// loadConfig reads --config when given and applies the flag overrides
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to expand config path: %w", err)
		}
		if cfg, err = config.Load(expanded); err != nil {
			return config.Config{}, err
		}
	}

	if c.IsSet("output") {
		cfg.OutputDir = c.String("output")
	}
	if c.IsSet("strategies") {
		cfg.Strategies = c.StringSlice("strategies")
	}
	if c.Bool("no-plots") {
		cfg.Plots = false
	}
	if c.Bool("quiet") {
		cfg.Progress = false
	}
	if c.IsSet("history-db") {
		cfg.History.Path = c.String("history-db")
	}
	if c.IsSet("tika-url") {
		cfg.Tika.URL = c.String("tika-url")
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}

	var err error
	if cfg.OutputDir, err = homedir.Expand(cfg.OutputDir); err != nil {
		return config.Config{}, fmt.Errorf("failed to expand output path: %w", err)
	}
	if cfg.History.Path, err = homedir.Expand(cfg.History.Path); err != nil {
		return config.Config{}, fmt.Errorf("failed to expand history path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func newLogger(c *cli.Context, cfg config.Config) *slog.Logger {
	return cfg.Log.NewLogger(c.App.ErrWriter)
}
