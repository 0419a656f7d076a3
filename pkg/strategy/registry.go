package strategy

import (
	"fmt"
	"sort"
)

// DefaultOrder is the strategy order of a run when none is configured
var DefaultOrder = []string{"regex", "pdfcpu", "ledongthuc", "dslipak", "tika", "native"}

// Options carries the settings backends need to be constructed
type Options struct {
	Tika TikaOptions
}

type constructor func(Options) Strategy

var registry = map[string]constructor{
	"regex":      func(Options) Strategy { return Regex() },
	"pdfcpu":     func(Options) Strategy { return PDFCPU() },
	"ledongthuc": func(Options) Strategy { return Ledongthuc() },
	"dslipak":    func(Options) Strategy { return Dslipak() },
	"rscpdf":     func(Options) Strategy { return RSC() },
	"tika":       func(o Options) Strategy { return Tika(o.Tika) },
	"native":     func(Options) Strategy { return Native() },
}

// Names returns every registered strategy name in lexical order
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Registered reports whether name is a known strategy
func Registered(name string) bool {
	_, ok := registry[name]
	return ok
}

// Lookup constructs the strategy called name
func Lookup(name string, opts Options) (Strategy, error) {
	ctor, ok := registry[name]
	if !ok {
		return Strategy{}, fmt.Errorf("unknown strategy %q", name)
	}
	return ctor(opts), nil
}

// Build constructs the named strategies in order
func Build(names []string, opts Options) ([]Strategy, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("no strategies selected")
	}

	seen := make(map[string]bool, len(names))
	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("strategy %q selected twice", name)
		}
		seen[name] = true

		s, err := Lookup(name, opts)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}
	return strategies, nil
}
