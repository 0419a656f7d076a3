// Package report aggregates strategy summaries into the final report and
// persists timing logs and statistics under an output root.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
)

// ErrIncomplete is returned when a report lacks an expected strategy
var ErrIncomplete = errors.New("report is incomplete")

// Field name suffixes; every strategy contributes one key of each
const (
	TotalPagesSuffix       = "_total_pages"
	TotalParsingTimeSuffix = "_total_parsing_time"
	ErrorsSuffix           = "_errors"
)

// ErrorsField is the value stored under {strategy}_errors
type ErrorsField struct {
	Count  int      `json:"count"`
	Errors []string `json:"errors"`
}

// Report collects one summary per expected strategy. It is a value: With
// returns a new Report and never changes the receiver.
type Report struct {
	expected  []string
	summaries map[string]harness.Summary
}

// New creates an empty report expecting the given strategies
func New(expected []string) Report {
	return Report{
		expected:  append([]string(nil), expected...),
		summaries: map[string]harness.Summary{},
	}
}

// With returns a copy of r holding s as well
func (r Report) With(s harness.Summary) (Report, error) {
	if !r.expects(s.Strategy) {
		return r, fmt.Errorf("unexpected strategy %q in report", s.Strategy)
	}
	if _, ok := r.summaries[s.Strategy]; ok {
		return r, fmt.Errorf("duplicate summary for strategy %q", s.Strategy)
	}

	summaries := make(map[string]harness.Summary, len(r.summaries)+1)
	for k, v := range r.summaries {
		summaries[k] = v
	}
	summaries[s.Strategy] = s
	return Report{expected: r.expected, summaries: summaries}, nil
}

func (r Report) expects(name string) bool {
	for _, e := range r.expected {
		if e == name {
			return true
		}
	}
	return false
}

// Strategies returns the expected strategies in run order
func (r Report) Strategies() []string {
	return append([]string(nil), r.expected...)
}

// Summary returns the summary received for name
func (r Report) Summary(name string) (harness.Summary, bool) {
	s, ok := r.summaries[name]
	return s, ok
}

// Missing lists the expected strategies without a summary, in run order
func (r Report) Missing() []string {
	var missing []string
	for _, name := range r.expected {
		if _, ok := r.summaries[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether every expected strategy has a summary
func (r Report) Complete() bool {
	return len(r.Missing()) == 0
}

// Ready reports whether the report may be persisted and consumed
func (r Report) Ready() bool {
	return len(r.expected) > 0 && r.Complete()
}

// Fields returns the namespaced report keys of the strategies received so far
func (r Report) Fields() map[string]interface{} {
	fields := make(map[string]interface{}, 3*len(r.summaries))
	for name, s := range r.summaries {
		errs := s.Errors
		if errs == nil {
			errs = []string{}
		}
		fields[name+TotalPagesSuffix] = s.TotalPages
		fields[name+TotalParsingTimeSuffix] = json.Number(s.TotalParsingTime.String())
		fields[name+ErrorsSuffix] = ErrorsField{Count: s.ErrorCount, Errors: errs}
	}
	return fields
}

// Aggregate builds the report of a finished run
func Aggregate(expected []string, summaries ...harness.Summary) (Report, error) {
	r := New(expected)
	for _, s := range summaries {
		var err error
		if r, err = r.With(s); err != nil {
			return Report{}, err
		}
	}
	if missing := r.Missing(); len(missing) > 0 {
		return Report{}, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return r, nil
}
