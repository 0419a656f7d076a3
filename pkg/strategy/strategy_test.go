package strategy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"testing"
)

func TestKindSet(t *testing.T) {
	set := Kinds(KindMissingKey, KindEncrypted, KindMalformed)

	if !set.Has(KindEncrypted) {
		t.Error("expected encrypted in set")
	}
	if set.Has(KindUnavailable) {
		t.Error("unavailable should not be in set")
	}
	if got, want := set.String(), "encrypted, malformed, missing_key"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestClassify(t *testing.T) {
	classified := &ExtractionError{Strategy: "x", Path: "a.pdf", Kind: KindEncrypted, Err: errors.New("locked")}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"extraction error", classified, KindEncrypted},
		{"wrapped extraction error", fmt.Errorf("outer: %w", classified), KindEncrypted},
		{"plain error", errors.New("boom"), KindUnknown},
		{"contract error", &ContractError{Strategy: "x", Msg: "bad"}, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractionErrorOmitsPath(t *testing.T) {
	a := &ExtractionError{Strategy: "s", Path: "a.pdf", Kind: KindMalformed, Err: errors.New("bad xref")}
	b := &ExtractionError{Strategy: "s", Path: "b.pdf", Kind: KindMalformed, Err: errors.New("bad xref")}

	if a.Error() != b.Error() {
		t.Errorf("equal failures render differently: %q vs %q", a.Error(), b.Error())
	}
	if a.Error() != "malformed: bad xref" {
		t.Errorf("Error() = %q", a.Error())
	}
}

func TestClassifierRules(t *testing.T) {
	c := Classifier{
		Rules: []Rule{
			{Match: messageContains("password"), Kind: KindEncrypted},
			{Match: is(os.ErrInvalid), Kind: KindTypeMismatch},
		},
		Fallback: KindMalformed,
	}

	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"message fragment", errors.New("Password required"), KindEncrypted},
		{"sentinel", fmt.Errorf("wrapped: %w", os.ErrInvalid), KindTypeMismatch},
		{"fallback", errors.New("something else"), KindMalformed},
		{"path error", &fs.PathError{Op: "open", Path: "x", Err: os.ErrNotExist}, KindUnknown},
		{"canceled", fmt.Errorf("stop: %w", context.Canceled), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWrapLeavesUnknownUntouched(t *testing.T) {
	c := Classifier{Fallback: KindUnknown}
	raw := errors.New("disk on fire")

	if err := c.wrap("s", "a.pdf", raw); err != raw {
		t.Errorf("wrap() = %v, want the original error", err)
	}
}

func TestGuardRecoversPanic(t *testing.T) {
	n, err := guard(func() (int, error) {
		panic("malformed stream")
	})
	if n != 0 {
		t.Errorf("n = %d, want 0", n)
	}
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("error = %v, want *PanicError", err)
	}
	if got := rscClassifier.Kind(err); got != KindMalformed {
		t.Errorf("panic classified as %q, want malformed", got)
	}
}

func TestRecognizes(t *testing.T) {
	s := Strategy{Name: "s", Recognized: Kinds(KindMalformed)}

	if !s.Recognizes(&ExtractionError{Kind: KindMalformed, Err: errors.New("x")}) {
		t.Error("malformed should be recognized")
	}
	if s.Recognizes(&ExtractionError{Kind: KindEncrypted, Err: errors.New("x")}) {
		t.Error("encrypted should not be recognized")
	}
	if s.Recognizes(errors.New("raw")) {
		t.Error("unclassified errors should not be recognized")
	}
}

func TestBuild(t *testing.T) {
	strategies, err := Build(DefaultOrder, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(strategies) != len(DefaultOrder) {
		t.Fatalf("got %d strategies, want %d", len(strategies), len(DefaultOrder))
	}
	for i, s := range strategies {
		if s.Name != DefaultOrder[i] {
			t.Errorf("strategy %d = %s, want %s", i, s.Name, DefaultOrder[i])
		}
		if s.Extract == nil {
			t.Errorf("strategy %s has no Extract", s.Name)
		}
	}

	if !strategies[0].Preload {
		t.Error("regex should preload")
	}
	for _, s := range strategies[1:] {
		if s.Preload {
			t.Errorf("%s should not preload", s.Name)
		}
	}
}

func TestBuildRejects(t *testing.T) {
	tests := []struct {
		name  string
		names []string
	}{
		{"empty", nil},
		{"unknown", []string{"regex", "pypdf2"}},
		{"duplicate", []string{"native", "native"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Build(tt.names, Options{}); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestNames(t *testing.T) {
	names := Names()
	for _, name := range append(DefaultOrder, "rscpdf") {
		if !Registered(name) {
			t.Errorf("%s not registered", name)
		}
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("Names() not sorted: %v", names)
		}
	}
}
