package harness

import (
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Precision is the number of decimal places kept for elapsed times
const Precision = 5

// Separator splits the filename from the elapsed time in a log line
const Separator = ";"

// Record is one line of a strategy's timing log
type Record struct {
	Filename string
	Elapsed  decimal.Decimal
}

// Line renders the record as "filename;elapsed\n"
func (r Record) Line() string {
	return r.Filename + Separator + r.Elapsed.StringFixed(Precision) + "\n"
}

// Seconds converts d to seconds rounded to Precision places. The rounded
// value is both what gets logged and what gets summed.
func Seconds(d time.Duration) decimal.Decimal {
	return decimal.New(d.Nanoseconds(), -9).Round(Precision)
}

// Resolution is the smallest elapsed time a success is recorded with, so a
// success never collides with the zero failure marker.
var Resolution = decimal.New(1, -Precision)

// SuccessSeconds is Seconds clamped to at least Resolution
func SuccessSeconds(d time.Duration) decimal.Decimal {
	s := Seconds(d)
	if s.LessThan(Resolution) {
		return Resolution
	}
	return s
}

// StripAccents removes combining marks after compatibility decomposition
func StripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

var recordNameReplacer = strings.NewReplacer(Separator, "_", "\n", "_", "\r", "_")

// RecordName is the name a file is logged under: its accent-stripped base
// name with separators and line breaks replaced
func RecordName(path string) string {
	return recordNameReplacer.Replace(StripAccents(filepath.Base(path)))
}
