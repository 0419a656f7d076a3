// Package testpdf builds small, well-formed PDF files for tests.
package testpdf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Options controls the shape of a generated document
type Options struct {
	// Pages is the number of leaf pages
	Pages int
	// Encrypted adds a standard security handler entry to the trailer
	Encrypted bool
	// OmitCount drops /Count from the page tree root
	OmitCount bool
	// XRefStream writes a cross-reference stream instead of a table
	XRefStream bool
	// ObjectStream stores the catalog and page tree root in an object stream
	// and implies XRefStream
	ObjectStream bool
}

const pageBody = "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>"

// Build returns the bytes of a document shaped by opts
func Build(opts Options) []byte {
	if opts.ObjectStream {
		opts.XRefStream = true
	}

	bodies := map[int]string{
		1: "<< /Type /Catalog /Pages 2 0 R >>",
	}

	kids := make([]string, opts.Pages)
	for i := 0; i < opts.Pages; i++ {
		kids[i] = fmt.Sprintf("%d 0 R", 3+i)
		bodies[3+i] = pageBody
	}
	if opts.OmitCount {
		bodies[2] = fmt.Sprintf("<< /Type /Pages /Kids [%s] >>", strings.Join(kids, " "))
	} else {
		bodies[2] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), opts.Pages)
	}

	last := 2 + opts.Pages
	encryptNum := 0
	if opts.Encrypted {
		last++
		encryptNum = last
		bodies[encryptNum] = "<< /Filter /Standard /V 1 /R 2 /O (owner) /U (user) /P -4 >>"
	}

	objStmNum := 0
	if opts.ObjectStream {
		last++
		objStmNum = last
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.5\n%\xe2\xe3\xcf\xd3\n")

	offsets := make(map[int]int)
	for num := 1; num <= last; num++ {
		if num == objStmNum {
			continue
		}
		if opts.ObjectStream && (num == 1 || num == 2) {
			continue
		}
		offsets[num] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", num, bodies[num])
	}

	if opts.ObjectStream {
		first := fmt.Sprintf("1 0 2 %d ", len(bodies[1])+1)
		content := first + bodies[1] + " " + bodies[2]
		offsets[objStmNum] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /ObjStm /N 2 /First %d /Length %d >>\nstream\n%s\nendstream\nendobj\n",
			objStmNum, len(first), len(content), content)
	}

	encrypt := ""
	if opts.Encrypted {
		encrypt = fmt.Sprintf(" /Encrypt %d 0 R /ID [<0102> <0102>]", encryptNum)
	}

	if !opts.XRefStream {
		xrefOffset := buf.Len()
		fmt.Fprintf(&buf, "xref\n0 %d\n", last+1)
		buf.WriteString("0000000000 65535 f \n")
		for num := 1; num <= last; num++ {
			fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[num])
		}
		fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R%s >>\nstartxref\n%d\n%%%%EOF\n", last+1, encrypt, xrefOffset)
		return buf.Bytes()
	}

	xrefNum := last + 1
	offsets[xrefNum] = buf.Len()

	var entries bytes.Buffer
	writeEntry := func(kind byte, field2 uint32, field3 uint16) {
		entries.WriteByte(kind)
		binary.Write(&entries, binary.BigEndian, field2)
		binary.Write(&entries, binary.BigEndian, field3)
	}
	writeEntry(0, 0, 0xFFFF)
	for num := 1; num <= xrefNum; num++ {
		if opts.ObjectStream && (num == 1 || num == 2) {
			writeEntry(2, uint32(objStmNum), uint16(num-1))
			continue
		}
		writeEntry(1, uint32(offsets[num]), 0)
	}

	fmt.Fprintf(&buf, "%d 0 obj\n<< /Type /XRef /Size %d /W [1 4 2] /Root 1 0 R%s /Length %d >>\nstream\n",
		xrefNum, xrefNum+1, encrypt, entries.Len())
	buf.Write(entries.Bytes())
	buf.WriteString("\nendstream\nendobj\n")
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", offsets[xrefNum])
	return buf.Bytes()
}

// Pages returns a plain document with n pages
func Pages(n int) []byte {
	return Build(Options{Pages: n})
}

// Write stores data as dir/name, creating dir when needed, and returns the path
func Write(t testing.TB, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}
