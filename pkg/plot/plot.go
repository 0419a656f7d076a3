// Package plot renders the per-file timing logs as HTML charts.
package plot

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pyhub-apps/pdfpagebench/pkg/report"
)

// Chart file names under the plots directory
const (
	ScatterFile = "pdfs_performance_scatter.html"
	BarFile     = "pdfs_performance_bar.html"
)

// Kind is a plotly trace type
type Kind string

const (
	Scatter Kind = "scatter"
	Bar     Kind = "bar"
)

var palette = []string{
	"rgb(205, 12, 24)",
	"rgb(22, 96, 167)",
	"rgb(102, 204, 0)",
	"rgb(178, 102, 255)",
	"rgb(255, 255, 0)",
	"rgb(204, 0, 102)",
}

// Series is one strategy's elapsed times keyed by lowercased filename
type Series struct {
	Name    string
	Files   []string
	Seconds []float64
}

type trace struct {
	Type string    `json:"type"`
	Name string    `json:"name"`
	X    []string  `json:"x"`
	Y    []float64 `json:"y"`
	Line *line     `json:"line,omitempty"`
}

type line struct {
	Color string `json:"color"`
	Width int    `json:"width"`
}

type page struct {
	Title  string
	Traces []trace
}

var chartTemplate = template.Must(template.New("chart").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://cdn.plot.ly/plotly-2.35.2.min.js"></script>
</head>
<body>
<div id="chart" style="width:100%;height:90vh;"></div>
<script>
var data = {{.Traces}};
var layout = {
	title: {{.Title}},
	xaxis: {title: {text: "filename", font: {family: "Verdana", size: 18, color: "#7f7f7f"}}, autorange: true},
	yaxis: {title: {text: "processing time (seconds)", font: {family: "Verdana", size: 18, color: "#7f7f7f"}}, autorange: true}
};
Plotly.newPlot("chart", data, layout);
</script>
</body>
</html>
`))

// Title heads every chart
const Title = "PDF page count performance by strategy"

// Load reads the timing logs of the given strategies. With no names,
// every logged strategy is loaded in lexical order. A filename logged twice
// keeps its first position and its last value.
func Load(w *report.Writer, names ...string) ([]Series, error) {
	if len(names) == 0 {
		var err error
		if names, err = w.LoggedStrategies(); err != nil {
			return nil, err
		}
	}

	series := make([]Series, 0, len(names))
	for _, name := range names {
		records, err := w.ReadTimings(name)
		if err != nil {
			return nil, err
		}

		s := Series{Name: name}
		index := make(map[string]int, len(records))
		for _, rec := range records {
			key := strings.ToLower(strings.TrimSpace(rec.Filename))
			value := rec.Elapsed.InexactFloat64()
			if i, ok := index[key]; ok {
				s.Seconds[i] = value
				continue
			}
			index[key] = len(s.Files)
			s.Files = append(s.Files, key)
			s.Seconds = append(s.Seconds, value)
		}
		series = append(series, s)
	}
	return series, nil
}

// Render writes one chart with a trace per series
func Render(out io.Writer, kind Kind, series []Series) error {
	p := page{Title: Title, Traces: make([]trace, 0, len(series))}
	for i, s := range series {
		t := trace{
			Type: string(kind),
			Name: strings.ToUpper(s.Name),
			X:    nonNil(s.Files),
			Y:    s.Seconds,
		}
		if t.Y == nil {
			t.Y = []float64{}
		}
		if kind == Scatter {
			t.Line = &line{Color: palette[i%len(palette)], Width: 4}
		}
		p.Traces = append(p.Traces, t)
	}

	if err := chartTemplate.Execute(out, p); err != nil {
		return fmt.Errorf("failed to render %s chart: %w", kind, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// WriteFiles renders the scatter and bar charts into dir and returns
// their paths
func WriteFiles(dir string, series []Series) ([]string, error) {
	charts := []struct {
		kind Kind
		file string
	}{
		{Scatter, ScatterFile},
		{Bar, BarFile},
	}

	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		path := filepath.Join(dir, c.file)
		if err := writeChart(path, c.kind, series); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeChart(path string, kind Kind, series []Series) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart: %w", err)
	}
	if err := Render(f, kind, series); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close chart: %w", err)
	}
	return nil
}

// Generate renders both charts from the logs under the writer's root
func Generate(w *report.Writer, names ...string) ([]string, error) {
	series, err := Load(w, names...)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(w.PlotsPath(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create plots directory: %w", err)
	}
	return WriteFiles(w.PlotsPath(), series)
}
