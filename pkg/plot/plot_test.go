package plot

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
	"github.com/pyhub-apps/pdfpagebench/pkg/report"
)

func writeLogs(t *testing.T) *report.Writer {
	t.Helper()
	w := report.NewWriter(t.TempDir())
	if err := w.Reset(); err != nil {
		t.Fatal(err)
	}

	logs := map[string][]harness.Record{
		"regex": {
			{Filename: "Big.PDF.pdf", Elapsed: decimal.RequireFromString("0.01000")},
			{Filename: "small.pdf", Elapsed: decimal.RequireFromString("0.00200")},
		},
		"native": {
			{Filename: "Big.PDF.pdf", Elapsed: decimal.RequireFromString("0.50000")},
			{Filename: "small.pdf", Elapsed: decimal.Zero},
			{Filename: "SMALL.pdf", Elapsed: decimal.RequireFromString("0.25000")},
		},
	}
	for name, records := range logs {
		for _, rec := range records {
			if err := w.Append(name, rec); err != nil {
				t.Fatal(err)
			}
		}
	}
	return w
}

func TestLoad(t *testing.T) {
	w := writeLogs(t)

	series, err := Load(w)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(series) != 2 || series[0].Name != "native" || series[1].Name != "regex" {
		t.Fatalf("series = %+v", series)
	}

	native := series[0]
	if strings.Join(native.Files, ",") != "big.pdf.pdf,small.pdf" {
		t.Errorf("native files = %v", native.Files)
	}
	if native.Seconds[1] != 0.25 {
		t.Errorf("duplicate key should keep the last value, got %v", native.Seconds)
	}

	ordered, err := Load(w, "regex")
	if err != nil || len(ordered) != 1 || ordered[0].Name != "regex" {
		t.Errorf("Load(regex) = %+v, %v", ordered, err)
	}
}

func TestRender(t *testing.T) {
	series := []Series{{Name: "native", Files: []string{"a</script>.pdf"}, Seconds: []float64{0.5}}}

	var buf bytes.Buffer
	if err := Render(&buf, Scatter, series); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{`"type":"scatter"`, `"name":"NATIVE"`, `rgb(205, 12, 24)`, "Plotly.newPlot"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s", want)
		}
	}
	if strings.Contains(out, "a</script>") {
		t.Error("filenames must be escaped inside the script")
	}

	buf.Reset()
	if err := Render(&buf, Bar, series); err != nil {
		t.Fatalf("Render(bar) error = %v", err)
	}
	if !strings.Contains(buf.String(), `"type":"bar"`) || strings.Contains(buf.String(), `"line"`) {
		t.Error("bar chart should have bar traces without line styling")
	}
}

func TestGenerate(t *testing.T) {
	w := writeLogs(t)

	paths, err := Generate(w)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	want := []string{
		filepath.Join(w.PlotsPath(), ScatterFile),
		filepath.Join(w.PlotsPath(), BarFile),
	}
	for i, path := range want {
		if paths[i] != path {
			t.Errorf("path %d = %s, want %s", i, paths[i], path)
		}
		info, err := os.Stat(path)
		if err != nil || info.Size() == 0 {
			t.Errorf("%s not written: %v", path, err)
		}
	}
}

func TestGenerateWithoutLogs(t *testing.T) {
	w := report.NewWriter(t.TempDir())
	if _, err := Generate(w); err == nil {
		t.Error("expected an error without a timing directory")
	}
}
