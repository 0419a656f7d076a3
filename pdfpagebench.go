// Package pdfpagebench measures how long different PDF libraries take to
// determine page counts
package pdfpagebench

import (
	"context"

	"github.com/pyhub-apps/pdfpagebench/pkg/bench"
	"github.com/pyhub-apps/pdfpagebench/pkg/discovery"
	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
	"github.com/pyhub-apps/pdfpagebench/pkg/parser"
	"github.com/pyhub-apps/pdfpagebench/pkg/report"
	"github.com/pyhub-apps/pdfpagebench/pkg/strategy"
)

// Re-export types for the public API
type (
	CandidateFile   = discovery.CandidateFile
	Strategy        = strategy.Strategy
	StrategyOptions = strategy.Options
	Kind            = strategy.Kind
	Record          = harness.Record
	Summary         = harness.Summary
	Report          = report.Report
	Options         = bench.Options
	Result          = bench.Result
)

// Discover lists the PDFs under root, largest first
func Discover(root string) ([]CandidateFile, error) {
	return discovery.Discover(root)
}

// Strategies builds the named strategies, or the default set when no
// names are given
func Strategies(opts StrategyOptions, names ...string) ([]Strategy, error) {
	if len(names) == 0 {
		names = strategy.DefaultOrder
	}
	return strategy.Build(names, opts)
}

// Run benchmarks the named strategies over the PDFs under root
func Run(ctx context.Context, root string, opts Options, names ...string) (Result, error) {
	strategies, err := Strategies(StrategyOptions{}, names...)
	if err != nil {
		return Result{}, err
	}
	return bench.New(opts).Run(ctx, root, strategies)
}

// CountPages returns the page count of a single file using the in-house parser
func CountPages(path string) (int, error) {
	return parser.CountPagesFile(path)
}
