// Package strategy defines the page-count extraction strategies a benchmark
// compares and the failure kinds each of them is allowed to report.
package strategy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Kind tags a class of extraction failure
type Kind string

const (
	KindMalformed    Kind = "malformed"
	KindEncrypted    Kind = "encrypted"
	KindMissingKey   Kind = "missing_key"
	KindTypeMismatch Kind = "type_mismatch"
	KindUnsupported  Kind = "unsupported"
	KindUnavailable  Kind = "unavailable"
	KindUnknown      Kind = "unknown"
)

// KindSet is a set of failure kinds
type KindSet map[Kind]struct{}

// Kinds builds a KindSet
func Kinds(kinds ...Kind) KindSet {
	set := make(KindSet, len(kinds))
	for _, k := range kinds {
		set[k] = struct{}{}
	}
	return set
}

// Has reports whether k is in the set
func (s KindSet) Has(k Kind) bool {
	_, ok := s[k]
	return ok
}

// Sorted returns the kinds in lexical order
func (s KindSet) Sorted() []Kind {
	kinds := make([]Kind, 0, len(s))
	for k := range s {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (s KindSet) String() string {
	parts := make([]string, 0, len(s))
	for _, k := range s.Sorted() {
		parts = append(parts, string(k))
	}
	return strings.Join(parts, ", ")
}

// Input is what one extraction attempt receives. Data is only set for
// strategies that preload the file before timing starts.
type Input struct {
	Path string
	Data []byte
}

// ExtractFunc returns the page count of one file
type ExtractFunc func(ctx context.Context, in Input) (int, error)

// Strategy is one page-count extraction approach
type Strategy struct {
	Name string

	// Preload makes the harness read the whole file before the timer
	// starts, so only the extraction itself is measured.
	Preload bool

	// Prepare, when set, runs before the timer starts on every file.
	Prepare func(ctx context.Context) error

	// Recognized lists the failure kinds that are recorded and skipped.
	// Any other failure aborts the run.
	Recognized KindSet

	Extract ExtractFunc
}

// Recognizes reports whether err is a failure this strategy tolerates
func (s Strategy) Recognizes(err error) bool {
	return s.Recognized.Has(Classify(err))
}

// ExtractionError is a classified failure reported by a backend
type ExtractionError struct {
	Strategy string
	Path     string
	Kind     Kind
	Err      error
}

// Error leaves the path out so equal failures on different files compare equal
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ContractError reports a backend that broke its contract, for example by
// producing a page count that is not a non-negative integer. It is never
// recognized.
type ContractError struct {
	Strategy string
	Msg      string
}

func (e *ContractError) Error() string {
	return fmt.Sprintf("strategy %s: contract violation: %s", e.Strategy, e.Msg)
}

// Classify returns the failure kind carried by err, or KindUnknown
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	var ee *ExtractionError
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindUnknown
}
