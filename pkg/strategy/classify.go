package strategy

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Rule maps errors matching Match to Kind
type Rule struct {
	Match func(error) bool
	Kind  Kind
}

// Classifier turns a backend's raw errors into failure kinds. Rules are
// tried in order; Fallback applies when none matches. File system and
// context errors are always KindUnknown so they abort the run.
type Classifier struct {
	Rules    []Rule
	Fallback Kind
}

// Kind classifies err
func (c Classifier) Kind(err error) Kind {
	var pathErr *fs.PathError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.As(err, &pathErr) {
		return KindUnknown
	}
	for _, r := range c.Rules {
		if r.Match(err) {
			return r.Kind
		}
	}
	if c.Fallback == "" {
		return KindUnknown
	}
	return c.Fallback
}

// wrap returns err as an ExtractionError unless it classifies as unknown,
// in which case it is returned untouched
func (c Classifier) wrap(strategy, path string, err error) error {
	kind := c.Kind(err)
	if kind == KindUnknown {
		return err
	}
	return &ExtractionError{Strategy: strategy, Path: path, Kind: kind, Err: err}
}

func messageContains(fragments ...string) func(error) bool {
	return func(err error) bool {
		msg := strings.ToLower(err.Error())
		for _, f := range fragments {
			if strings.Contains(msg, f) {
				return true
			}
		}
		return false
	}
}

func is(target error) func(error) bool {
	return func(err error) bool {
		return errors.Is(err, target)
	}
}

func as[T error]() func(error) bool {
	return func(err error) bool {
		var target T
		return errors.As(err, &target)
	}
}

// PanicError carries a panic raised inside a backend library
type PanicError struct {
	Value interface{}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// guard runs fn and turns a panic into a *PanicError
func guard(fn func() (int, error)) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, &PanicError{Value: r}
		}
	}()
	return fn()
}

// withFile opens path for the duration of fn
func withFile(path string, fn func(f *os.File, size int64) (int, error)) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return fn(f, info.Size())
}
