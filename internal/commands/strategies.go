package commands

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/pyhub-apps/pdfpagebench/pkg/strategy"
)

// StrategiesAction prints every registered strategy and the failures it tolerates
func StrategiesAction(c *cli.Context) error {
	defaults := make(map[string]bool, len(strategy.DefaultOrder))
	for _, name := range strategy.DefaultOrder {
		defaults[name] = true
	}

	w := c.App.Writer
	fmt.Fprintf(w, "%-12s %-8s %-8s %s\n", "Name", "Default", "Preload", "Recognized failures")
	for _, name := range strategy.Names() {
		s, err := strategy.Lookup(name, strategy.Options{})
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%-12s %-8s %-8s %s\n", name, yesNo(defaults[name]), yesNo(s.Preload), s.Recognized)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
