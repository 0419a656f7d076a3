package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pyhub-apps/pdfpagebench/pkg/plot"
	"github.com/pyhub-apps/pdfpagebench/pkg/report"
)

// PlotAction renders charts from the logs of an earlier run
func PlotAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	paths, err := plot.Generate(report.NewWriter(cfg.OutputDir))
	if err != nil {
		return fmt.Errorf("failed to render plots: %w", err)
	}
	for _, p := range paths {
		fmt.Fprintf(c.App.Writer, "Chart: %s\n", p)
	}
	return nil
}
