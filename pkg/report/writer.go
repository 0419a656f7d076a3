package report

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
)

// Layout of the output root
const (
	TimingDir = "pdfs_processing_time"
	StatsDir  = "processing_stats"
	PlotsDir  = "plots"
	StatsFile = "final_stats.json"
	LogExt    = ".txt"
)

// DirError reports an output directory that could not be reset
type DirError struct {
	Path string
	Err  error
}

func (e *DirError) Error() string {
	return fmt.Sprintf("failed to prepare directory %s: %v", e.Path, e.Err)
}

func (e *DirError) Unwrap() error {
	return e.Err
}

// PersistError reports a timing log or statistics file that could not be written
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}

// Writer owns the output directories under one root
type Writer struct {
	root string
}

// NewWriter creates a writer for the output root
func NewWriter(root string) *Writer {
	return &Writer{root: root}
}

// Root returns the output root
func (w *Writer) Root() string {
	return w.root
}

// TimingPath returns the log path of a strategy
func (w *Writer) TimingPath(strategy string) string {
	return filepath.Join(w.root, TimingDir, strategy+LogExt)
}

// StatsPath returns the path of the statistics file
func (w *Writer) StatsPath() string {
	return filepath.Join(w.root, StatsDir, StatsFile)
}

// PlotsPath returns the chart directory
func (w *Writer) PlotsPath() string {
	return filepath.Join(w.root, PlotsDir)
}

// Reset removes and recreates the three output directories so no file of
// an earlier run survives
func (w *Writer) Reset() error {
	for _, dir := range []string{TimingDir, StatsDir, PlotsDir} {
		path := filepath.Join(w.root, dir)
		if err := os.RemoveAll(path); err != nil {
			return &DirError{Path: path, Err: err}
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return &DirError{Path: path, Err: err}
		}
	}
	return nil
}

// Begin creates an empty log for strategy, so a strategy that saw no
// files still leaves a log behind
func (w *Writer) Begin(strategy string) error {
	path := w.TimingPath(strategy)
	f, err := os.Create(path)
	if err != nil {
		return &PersistError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	return nil
}

// Append adds one line to a strategy's log. The file is opened and closed
// for every record.
func (w *Writer) Append(strategy string, rec harness.Record) error {
	path := w.TimingPath(strategy)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &PersistError{Path: path, Err: err}
	}
	if _, err := f.WriteString(rec.Line()); err != nil {
		f.Close()
		return &PersistError{Path: path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	return nil
}

// WriteSummary writes the statistics file with sorted keys and a 4-space
// indent. Incomplete reports are refused.
func (w *Writer) WriteSummary(r Report) error {
	path := w.StatsPath()
	if !r.Ready() {
		return &PersistError{
			Path: path,
			Err:  fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(r.Missing(), ", ")),
		}
	}

	data, err := Encode(r)
	if err != nil {
		return &PersistError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	return nil
}

// Encode renders the report fields as JSON
func Encode(r Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Fields()); err != nil {
		return nil, fmt.Errorf("failed to encode report: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadSummary loads a statistics file written by WriteSummary
func ReadSummary(path string) (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics: %w", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to decode statistics %s: %w", path, err)
	}
	return fields, nil
}

// ReadTimings loads a strategy's log
func (w *Writer) ReadTimings(strategy string) ([]harness.Record, error) {
	return ReadTimingLog(w.TimingPath(strategy))
}

// LoggedStrategies lists the strategies that have a log, in lexical order
func (w *Writer) LoggedStrategies() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(w.root, TimingDir))
	if err != nil {
		return nil, fmt.Errorf("failed to list timing logs: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), LogExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), LogExt))
	}
	sort.Strings(names)
	return names, nil
}

// ReadTimingLog parses a timing log back into records, in file order
func ReadTimingLog(path string) ([]harness.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open timing log: %w", err)
	}
	defer f.Close()

	var records []harness.Record
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		i := strings.LastIndex(text, harness.Separator)
		if i < 0 {
			return nil, fmt.Errorf("%s:%d: missing separator in %q", path, line, text)
		}
		elapsed, err := decimal.NewFromString(text[i+1:])
		if err != nil {
			return nil, fmt.Errorf("%s:%d: invalid elapsed time %q: %w", path, line, text[i+1:], err)
		}
		records = append(records, harness.Record{Filename: text[:i], Elapsed: elapsed})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read timing log: %w", err)
	}
	return records, nil
}
