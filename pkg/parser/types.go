package parser

import (
	"fmt"
)

// Object is any PDF object
type Object interface {
	Type() string
}

// Ref is an indirect object reference
type Ref struct {
	Number     int
	Generation int
}

func (r Ref) String() string {
	return fmt.Sprintf("%d %d R", r.Number, r.Generation)
}

func (Ref) Type() string { return "ref" }

// Null is the null object
type Null struct{}

func (Null) Type() string { return "null" }

// Bool is a boolean object
type Bool bool

func (Bool) Type() string { return "bool" }

// Int is an integer object
type Int int64

func (Int) Type() string { return "int" }

// Real is a floating-point object
type Real float64

func (Real) Type() string { return "real" }

// String is a literal or hexadecimal string object
type String []byte

func (String) Type() string { return "string" }

// Name is a name object
type Name string

func (Name) Type() string { return "name" }

// Array is an array object
type Array []Object

func (Array) Type() string { return "array" }

// Dict is a dictionary object
type Dict map[Name]Object

func (Dict) Type() string { return "dict" }

// Name returns the name stored under key
func (d Dict) Name(key Name) (Name, bool) {
	n, ok := d[key].(Name)
	return n, ok
}

// Int returns the integer stored under key
func (d Dict) Int(key Name) (int64, bool) {
	i, ok := d[key].(Int)
	return int64(i), ok
}

// Stream is a stream object with its decoded data
type Stream struct {
	Dict Dict
	Data []byte
}

func (*Stream) Type() string { return "stream" }

// keyword is a bare token such as obj, endobj, stream or trailer
type keyword string

func (keyword) Type() string { return "keyword" }

type entryKind int

const (
	entryFree entryKind = iota
	entryOffset
	entryCompressed
)

// xrefEntry locates one object, either at a byte offset or inside an object stream
type xrefEntry struct {
	kind       entryKind
	offset     int64
	generation int
	stream     int
	index      int
}

// Document is the part of a parsed PDF needed to report its size in pages
type Document struct {
	Version   string
	Trailer   Dict
	Catalog   Dict
	PageCount int
	// Recovered is set when the cross-reference data was rebuilt by scanning the file
	Recovered bool
}
