package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pyhub-apps/pdfpagebench/pkg/harness"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(root string, started time.Time) Run {
	return Run{
		Root:       root,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		FileCount:  4,
		TotalBytes: 123456,
		Summaries: []harness.Summary{
			{Strategy: "regex", TotalPages: 20, TotalParsingTime: decimal.RequireFromString("0.01234"), Errors: []string{}},
			{Strategy: "native", TotalPages: 18, TotalParsingTime: decimal.RequireFromString("0.50000"),
				ErrorCount: 2, Errors: []string{"encrypted: document is encrypted"}},
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)

	id, err := store.Save(ctx, sampleRun("/data", started))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if id == 0 {
		t.Fatal("Save() returned run id 0")
	}

	run, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if run.Root != "/data" || run.FileCount != 4 || run.TotalBytes != 123456 {
		t.Errorf("run = %+v", run)
	}
	if !run.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", run.StartedAt, started)
	}
	if run.Duration() != 3*time.Second {
		t.Errorf("Duration() = %v, want 3s", run.Duration())
	}

	if len(run.Summaries) != 2 {
		t.Fatalf("got %d summaries, want 2", len(run.Summaries))
	}
	if run.Summaries[0].Strategy != "regex" || run.Summaries[1].Strategy != "native" {
		t.Errorf("summaries out of run order: %+v", run.Summaries)
	}
	native := run.Summaries[1]
	if native.ErrorCount != 2 || len(native.Errors) != 1 {
		t.Errorf("native summary = %+v", native)
	}
	if !native.TotalParsingTime.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("TotalParsingTime = %s", native.TotalParsingTime)
	}
}

func TestGetUnknown(t *testing.T) {
	store := setupTestDB(t)
	if _, err := store.Get(context.Background(), 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, root := range []string{"/first", "/second", "/third"} {
		if _, err := store.Save(ctx, sampleRun(root, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save(%s) error = %v", root, err)
		}
	}

	runs, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].Root != "/third" || runs[1].Root != "/second" {
		t.Errorf("order = %s, %s", runs[0].Root, runs[1].Root)
	}
	if len(runs[0].Summaries) != 2 {
		t.Errorf("summaries not loaded: %+v", runs[0])
	}

	all, err := store.List(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Errorf("List(0) = %d runs, %v", len(all), err)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 2; i++ {
		store, err := Open(path)
		if err != nil {
			t.Fatalf("Open() #%d error = %v", i+1, err)
		}
		if store.Path() != path {
			t.Errorf("Path() = %s", store.Path())
		}
		store.Close()
	}
}
