package harness

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/pyhub-apps/pdfpagebench/pkg/discovery"
	"github.com/pyhub-apps/pdfpagebench/pkg/strategy"
)

// maxNameWidth bounds the displayed filename in terminal cells
const maxNameWidth = 60

// progress prints console lines; a nil *progress prints nothing
type progress struct {
	w io.Writer
}

func (p *progress) file(name string, index, count, pages int, f discovery.CandidateFile) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.w, "[%s] File %d/%d. Total pages: %d --> %q - %s\n",
		strings.ToUpper(name), index, count, pages, DisplayName(f.Path), humanize.IBytes(uint64(f.Size)))
}

func (p *progress) failure(name string, index, count int, err error, f discovery.CandidateFile) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.w, "[%s] File %d/%d. FAILED (%s) --> %q - %s\n",
		strings.ToUpper(name), index, count, strategy.Classify(err), DisplayName(f.Path), humanize.IBytes(uint64(f.Size)))
}

func (p *progress) total(s Summary) {
	if p == nil {
		return
	}
	fmt.Fprintf(p.w, "[%s] Total pages: %d, parsing time: %ss, errors: %d\n",
		strings.ToUpper(s.Strategy), s.TotalPages, s.TotalParsingTime.StringFixed(Precision), s.ErrorCount)
}

// DisplayName is the accent-stripped base name clipped to the console width
func DisplayName(path string) string {
	return runewidth.Truncate(RecordName(path), maxNameWidth, "...")
}
