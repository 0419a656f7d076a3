package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
	"github.com/pyhub-apps/pdfpagebench/pkg/strategy"
)

// pagecount times every local strategy on a single file. Each strategy gets
// one warm-up call before the measured one.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pagecount <pdf-file> [strategy...]")
		os.Exit(1)
	}

	path := os.Args[1]
	info, err := os.Stat(path)
	if err != nil {
		log.Fatalf("Failed to stat PDF: %v", err)
	}

	names := os.Args[2:]
	if len(names) == 0 {
		names = []string{"regex", "pdfcpu", "ledongthuc", "dslipak", "rscpdf", "native"}
	}
	strategies, err := strategy.Build(names, strategy.Options{})
	if err != nil {
		log.Fatalf("Failed to build strategies: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Failed to read PDF: %v", err)
	}

	fmt.Printf("=== Page count ===\n")
	fmt.Printf("File: %s (%s)\n\n", path, humanize.IBytes(uint64(info.Size())))

	ctx := context.Background()
	for _, s := range strategies {
		in := strategy.Input{Path: path}
		if s.Preload {
			in.Data = data
		}

		// Warm-up run
		_, _ = s.Extract(ctx, in)

		start := time.Now()
		pages, err := s.Extract(ctx, in)
		elapsed := harness.Seconds(time.Since(start))

		if err != nil {
			fmt.Printf("%-12s FAILED (%s): %v\n", s.Name, strategy.Classify(err), err)
			continue
		}
		fmt.Printf("%-12s %6d pages %10ss\n", s.Name, pages, elapsed.StringFixed(harness.Precision))
	}
}
