package parser

import (
	"errors"
	"fmt"
)

var (
	// ErrNotPDF is returned when no %PDF- header is found
	ErrNotPDF = errors.New("not a PDF file")

	// ErrEncrypted is returned for documents carrying an /Encrypt dictionary
	ErrEncrypted = errors.New("document is encrypted")
)

// SyntaxError reports malformed document structure
type SyntaxError struct {
	Offset int64
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Offset, e.Msg)
}

func syntaxErrorf(offset int64, format string, args ...interface{}) error {
	return &SyntaxError{Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// MissingKeyError reports a required dictionary key that is absent
type MissingKeyError struct {
	Dict string
	Key  Name
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("missing /%s in %s", e.Key, e.Dict)
}

// TypeError reports a value of the wrong type while resolving structure
type TypeError struct {
	Key  Name
	Want string
	Got  Object
}

func (e *TypeError) Error() string {
	got := "nothing"
	if e.Got != nil {
		got = e.Got.Type()
	}
	return fmt.Sprintf("/%s: expected %s, got %s", e.Key, e.Want, got)
}
