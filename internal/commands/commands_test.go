package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pyhub-apps/pdfpagebench/internal/testpdf"
	"github.com/pyhub-apps/pdfpagebench/pkg/plot"
	"github.com/pyhub-apps/pdfpagebench/pkg/report"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	app := NewApp()
	app.Writer = &out
	app.ErrWriter = &errOut
	err := app.Run(append([]string{"pdfpagebench"}, args...))
	return out.String(), err
}

func TestStrategiesCommand(t *testing.T) {
	out, err := runApp(t, "strategies")
	if err != nil {
		t.Fatalf("strategies error = %v", err)
	}
	for _, want := range []string{"native", "pdfcpu", "rscpdf", "tika", "missing_key, type_mismatch"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRunCommand(t *testing.T) {
	input := t.TempDir()
	testpdf.Write(t, input, "three.pdf", testpdf.Pages(3))
	testpdf.Write(t, input, "nested/two.pdf", testpdf.Pages(2))
	out := t.TempDir()
	db := filepath.Join(t.TempDir(), "history.db")

	stdout, err := runApp(t, "run",
		"--output", out,
		"--strategies", "regex,native",
		"--history-db", db,
		input)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}

	for _, want := range []string{`[REGEX] File 1/2`, `[NATIVE] File 2/2`, "Recorded as run 1"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}

	fields, err := report.ReadSummary(filepath.Join(out, report.StatsDir, report.StatsFile))
	if err != nil {
		t.Fatalf("statistics not written: %v", err)
	}
	if string(fields["native_total_pages"]) != "5" {
		t.Errorf("native_total_pages = %s, want 5", fields["native_total_pages"])
	}
	for _, file := range []string{plot.ScatterFile, plot.BarFile} {
		if _, err := os.Stat(filepath.Join(out, report.PlotsDir, file)); err != nil {
			t.Errorf("chart %s missing: %v", file, err)
		}
	}

	hist, err := runApp(t, "history", "--db", db)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(hist, "Run 1") || !strings.Contains(hist, "native") {
		t.Errorf("unexpected history output:\n%s", hist)
	}
}

func TestRunCommandQuietNoPlots(t *testing.T) {
	input := t.TempDir()
	testpdf.Write(t, input, "one.pdf", testpdf.Pages(1))
	out := t.TempDir()

	stdout, err := runApp(t, "run", "-q", "--no-plots", "-o", out, "-s", "regex", input)
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if strings.Contains(stdout, "File 1/1") {
		t.Error("quiet run printed progress")
	}
	if _, err := os.Stat(filepath.Join(out, report.PlotsDir, plot.ScatterFile)); !os.IsNotExist(err) {
		t.Error("--no-plots still rendered charts")
	}

	plotted, err := runApp(t, "plot", "-o", out)
	if err != nil {
		t.Fatalf("plot error = %v", err)
	}
	if !strings.Contains(plotted, plot.BarFile) {
		t.Errorf("plot output = %q", plotted)
	}
}

func TestRunCommandConfigFile(t *testing.T) {
	input := t.TempDir()
	testpdf.Write(t, input, "one.pdf", testpdf.Pages(4))
	out := t.TempDir()

	cfgPath := filepath.Join(t.TempDir(), "bench.yaml")
	cfg := "output_dir: " + out + "\nstrategies: [native]\nplots: false\nprogress: false\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := runApp(t, "run", "-c", cfgPath, input); err != nil {
		t.Fatalf("run error = %v", err)
	}
	fields, err := report.ReadSummary(filepath.Join(out, report.StatsDir, report.StatsFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 3 {
		t.Errorf("got %d fields, want 3 for a single strategy", len(fields))
	}
}

func TestRunCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"missing root", []string{"run"}},
		{"unknown strategy", []string{"run", "-s", "pypdf2", t.TempDir()}},
		{"missing directory", []string{"run", "-o", t.TempDir(), "-s", "regex", filepath.Join(t.TempDir(), "nope")}},
		{"history without db", []string{"history"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := runApp(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
