package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
)

func TestResetRecreatesDirectories(t *testing.T) {
	root := t.TempDir()
	w := NewWriter(root)

	stale := filepath.Join(root, TimingDir, "old.txt")
	if err := os.MkdirAll(filepath.Dir(stale), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(stale, []byte("x;1.00000\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(root, "unrelated.txt")
	if err := os.WriteFile(keep, []byte("keep"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := w.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}

	for _, dir := range []string{TimingDir, StatsDir, PlotsDir} {
		entries, err := os.ReadDir(filepath.Join(root, dir))
		if err != nil {
			t.Fatalf("%s missing after Reset: %v", dir, err)
		}
		if len(entries) != 0 {
			t.Errorf("%s not empty after Reset", dir)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Error("Reset removed a file outside the output directories")
	}
}

func TestResetFailure(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := NewWriter(blocker).Reset()
	var dirErr *DirError
	if !errors.As(err, &dirErr) {
		t.Fatalf("error = %v, want *DirError", err)
	}
}

func TestAppendAndRead(t *testing.T) {
	w := NewWriter(t.TempDir())
	if err := w.Reset(); err != nil {
		t.Fatal(err)
	}

	records := []harness.Record{
		{Filename: "big.pdf", Elapsed: decimal.RequireFromString("0.12345")},
		{Filename: "broken.pdf", Elapsed: decimal.Zero},
		{Filename: "small.pdf", Elapsed: decimal.RequireFromString("0.00100")},
	}
	for _, rec := range records {
		if err := w.Append("native", rec); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	data, err := os.ReadFile(w.TimingPath("native"))
	if err != nil {
		t.Fatal(err)
	}
	want := "big.pdf;0.12345\nbroken.pdf;0.00000\nsmall.pdf;0.00100\n"
	if string(data) != want {
		t.Errorf("log = %q, want %q", data, want)
	}

	got, err := w.ReadTimings("native")
	if err != nil {
		t.Fatalf("ReadTimings() error = %v", err)
	}
	if len(got) != len(records) {
		t.Fatalf("read %d records, want %d", len(got), len(records))
	}
	for i := range records {
		if got[i].Filename != records[i].Filename || !got[i].Elapsed.Equal(records[i].Elapsed) {
			t.Errorf("record %d = %+v, want %+v", i, got[i], records[i])
		}
	}

	names, err := w.LoggedStrategies()
	if err != nil || len(names) != 1 || names[0] != "native" {
		t.Errorf("LoggedStrategies() = %v, %v", names, err)
	}
}

func TestAppendWithoutDirectory(t *testing.T) {
	w := NewWriter(filepath.Join(t.TempDir(), "missing"))
	err := w.Append("regex", harness.Record{Filename: "a.pdf", Elapsed: decimal.Zero})
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PersistError", err)
	}
}

func TestReadTimingLogMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.txt")
	if err := os.WriteFile(path, []byte("a.pdf;0.1\nno separator\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadTimingLog(path); err == nil || !strings.Contains(err.Error(), ":2:") {
		t.Errorf("error = %v, want a line 2 error", err)
	}
}

func TestWriteSummary(t *testing.T) {
	w := NewWriter(t.TempDir())
	if err := w.Reset(); err != nil {
		t.Fatal(err)
	}

	r, err := Aggregate([]string{"regex", "native"},
		summary("regex", 12, "0.00321"),
		summary("native", 9, "0.01000", "encrypted: document is encrypted", "malformed: <bad>"),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteSummary(r); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}

	data, err := os.ReadFile(w.StatsPath())
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)

	order := []string{
		`"native_errors"`, `"native_total_pages"`, `"native_total_parsing_time"`,
		`"regex_errors"`, `"regex_total_pages"`, `"regex_total_parsing_time"`,
	}
	last := -1
	for _, key := range order {
		i := strings.Index(text, key)
		if i < 0 {
			t.Fatalf("key %s missing from\n%s", key, text)
		}
		if i < last {
			t.Errorf("key %s out of order", key)
		}
		last = i
	}
	if !strings.Contains(text, "\n    \"native_errors\": {\n        \"count\": 2,") {
		t.Errorf("unexpected indentation:\n%s", text)
	}
	if !strings.Contains(text, "malformed: <bad>") {
		t.Error("HTML characters should not be escaped")
	}

	fields, err := ReadSummary(w.StatsPath())
	if err != nil {
		t.Fatalf("ReadSummary() error = %v", err)
	}
	var total float64
	if err := json.Unmarshal(fields["regex_total_parsing_time"], &total); err != nil || total != 0.00321 {
		t.Errorf("regex_total_parsing_time = %s (%v)", fields["regex_total_parsing_time"], err)
	}
	var errs ErrorsField
	if err := json.Unmarshal(fields["regex_errors"], &errs); err != nil || errs.Count != 0 || errs.Errors == nil {
		t.Errorf("regex_errors = %s (%v)", fields["regex_errors"], err)
	}
}

func TestWriteSummaryRefusesIncomplete(t *testing.T) {
	w := NewWriter(t.TempDir())
	if err := w.Reset(); err != nil {
		t.Fatal(err)
	}

	partial, err := New([]string{"a", "b"}).With(summary("a", 1, "0"))
	if err != nil {
		t.Fatal(err)
	}
	err = w.WriteSummary(partial)
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("error = %v, want ErrIncomplete", err)
	}
	if _, err := os.Stat(w.StatsPath()); !os.IsNotExist(err) {
		t.Error("no statistics file should be written for an incomplete report")
	}
}

func TestBeginCreatesEmptyLog(t *testing.T) {
	w := NewWriter(t.TempDir())
	if err := w.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := w.Begin("regex"); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}

	records, err := w.ReadTimings("regex")
	if err != nil {
		t.Fatalf("ReadTimings() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want none", len(records))
	}
}
