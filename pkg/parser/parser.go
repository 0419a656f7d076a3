package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

const (
	// initialWindow is the first read size for an object; it grows when an
	// object does not fit.
	initialWindow = 64 << 10

	// tailSize is how much of the file end is searched for startxref
	tailSize = 1024

	// maxRebuildSize bounds the file size for which a damaged
	// cross-reference table is rebuilt by a full scan.
	maxRebuildSize = 256 << 20
)

// Parser reads the structure of a PDF document far enough to count its pages
type Parser struct {
	reader    io.ReaderAt
	size      int64
	xref      map[int]xrefEntry
	trailer   Dict
	objects   map[int]Object
	objStms   map[int]*objectStream
	resolving map[int]bool
}

// New creates a parser over size bytes readable from r
func New(r io.ReaderAt, size int64) *Parser {
	return &Parser{
		reader: r,
		size:   size,
	}
}

func (p *Parser) reset() {
	p.xref = make(map[int]xrefEntry)
	p.trailer = nil
	p.objects = make(map[int]Object)
	p.objStms = make(map[int]*objectStream)
	p.resolving = make(map[int]bool)
}

// CountPages parses the document in r and returns its page count
func CountPages(r io.ReaderAt, size int64) (int, error) {
	doc, err := New(r, size).Parse()
	if err != nil {
		return 0, err
	}
	return doc.PageCount, nil
}

// CountPagesFile opens path, counts its pages and closes it
func CountPagesFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return CountPages(f, info.Size())
}

// Parse reads the header, cross-reference data, trailer and catalog. When
// the cross-reference data is unusable it is rebuilt by scanning the file
// for object headers.
func (p *Parser) Parse() (*Document, error) {
	version, err := p.header()
	if err != nil {
		return nil, err
	}

	p.reset()
	doc, err := p.parse(version)
	if err == nil {
		return doc, nil
	}

	var syntaxErr *SyntaxError
	if !errors.As(err, &syntaxErr) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}

	p.reset()
	if rerr := p.rebuild(); rerr != nil {
		return nil, err
	}
	doc, rerr := p.document(version)
	if rerr != nil {
		return nil, rerr
	}
	doc.Recovered = true
	return doc, nil
}

func (p *Parser) parse(version string) (*Document, error) {
	if err := p.loadXRef(); err != nil {
		return nil, err
	}
	return p.document(version)
}

// document resolves the catalog and the page tree from the loaded trailer
func (p *Parser) document(version string) (*Document, error) {
	if _, ok := p.trailer["Encrypt"]; ok {
		return nil, ErrEncrypted
	}

	rootObj, ok := p.trailer["Root"]
	if !ok {
		return nil, &MissingKeyError{Dict: "trailer", Key: "Root"}
	}
	root, err := p.resolve(rootObj)
	if err != nil {
		return nil, err
	}
	catalog, ok := root.(Dict)
	if !ok {
		return nil, &TypeError{Key: "Root", Want: "dictionary", Got: root}
	}

	pagesObj, ok := catalog["Pages"]
	if !ok {
		return nil, &MissingKeyError{Dict: "catalog", Key: "Pages"}
	}
	pagesRes, err := p.resolve(pagesObj)
	if err != nil {
		return nil, err
	}
	pages, ok := pagesRes.(Dict)
	if !ok {
		return nil, &TypeError{Key: "Pages", Want: "dictionary", Got: pagesRes}
	}

	count, err := p.countPages(pages)
	if err != nil {
		return nil, err
	}

	return &Document{
		Version:   version,
		Trailer:   p.trailer,
		Catalog:   catalog,
		PageCount: count,
	}, nil
}

// countPages trusts /Count on the page tree root and walks the tree only
// when it is absent
func (p *Parser) countPages(pages Dict) (int, error) {
	if countObj, ok := pages["Count"]; ok {
		count, err := p.resolve(countObj)
		if err != nil {
			return 0, err
		}
		n, ok := count.(Int)
		if !ok || n < 0 {
			return 0, &TypeError{Key: "Count", Want: "non-negative integer", Got: count}
		}
		return int(n), nil
	}

	return p.countLeaves(pages, make(map[int]bool))
}

func (p *Parser) countLeaves(node Dict, visited map[int]bool) (int, error) {
	if t, _ := node.Name("Type"); t == "Page" {
		return 1, nil
	}

	kidsObj, ok := node["Kids"]
	if !ok {
		return 0, &MissingKeyError{Dict: "page tree node", Key: "Kids"}
	}
	kidsRes, err := p.resolve(kidsObj)
	if err != nil {
		return 0, err
	}
	kids, ok := kidsRes.(Array)
	if !ok {
		return 0, &TypeError{Key: "Kids", Want: "array", Got: kidsRes}
	}

	total := 0
	for _, kid := range kids {
		if ref, ok := kid.(Ref); ok {
			if visited[ref.Number] {
				continue
			}
			visited[ref.Number] = true
		}
		obj, err := p.resolve(kid)
		if err != nil {
			return 0, err
		}
		child, ok := obj.(Dict)
		if !ok {
			return 0, &TypeError{Key: "Kids", Want: "dictionary entries", Got: obj}
		}
		n, err := p.countLeaves(child, visited)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// header locates %PDF- near the start of the file and returns the version
func (p *Parser) header() (string, error) {
	n := int64(tailSize)
	if p.size < n {
		n = p.size
	}
	buf := make([]byte, n)
	if _, err := p.reader.ReadAt(buf, 0); err != nil && err != io.EOF {
		return "", err
	}

	idx := bytes.Index(buf, []byte("%PDF-"))
	if idx < 0 {
		return "", ErrNotPDF
	}

	version := buf[idx+5:]
	end := 0
	for end < len(version) && (isDigit(version[end]) || version[end] == '.') {
		end++
	}
	return string(version[:end]), nil
}

// read returns up to n bytes starting at offset
func (p *Parser) read(offset int64, n int) ([]byte, error) {
	if offset < 0 || offset >= p.size {
		return nil, syntaxErrorf(offset, "offset outside file of %d bytes", p.size)
	}
	if rest := p.size - offset; int64(n) > rest {
		n = int(rest)
	}
	buf := make([]byte, n)
	read, err := p.reader.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return nil, err
	}
	return buf[:read], nil
}

// withWindow runs fn over a lexer positioned at offset, retrying with a
// larger window while fn runs off the end of a window that does not yet
// reach the end of the file.
func (p *Parser) withWindow(offset int64, fn func(lex *Lexer) error) error {
	for n := initialWindow; ; n *= 4 {
		data, err := p.read(offset, n)
		if err != nil {
			return err
		}
		err = fn(NewLexer(data, offset))
		if err == nil {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			if offset+int64(len(data)) < p.size {
				continue
			}
			return syntaxErrorf(offset, "unexpected end of file")
		}
		return err
	}
}

// findStartXRef returns the offset named by the last startxref keyword
func (p *Parser) findStartXRef() (int64, error) {
	n := int64(tailSize)
	if p.size < n {
		n = p.size
	}
	buf, err := p.read(p.size-n, int(n))
	if err != nil {
		return 0, err
	}

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx < 0 {
		return 0, syntaxErrorf(p.size, "startxref not found")
	}

	lex := NewLexer(buf[idx+len("startxref"):], p.size-n+int64(idx+len("startxref")))
	tok, err := lex.Next()
	if err != nil {
		return 0, err
	}
	offset, ok := tok.Value.(Int)
	if !ok {
		return 0, syntaxErrorf(tok.Offset, "startxref is not followed by an offset")
	}
	return int64(offset), nil
}

// loadXRef follows the chain of cross-reference sections from startxref.
// Entries and trailer keys from newer sections take precedence.
func (p *Parser) loadXRef() error {
	offset, err := p.findStartXRef()
	if err != nil {
		return err
	}

	seen := make(map[int64]bool)
	for {
		if seen[offset] {
			break
		}
		seen[offset] = true

		trailer, err := p.readXRefSection(offset)
		if err != nil {
			return err
		}
		p.mergeTrailer(trailer)

		// hybrid files keep a cross-reference stream next to the table
		if stm, ok := trailer.Int("XRefStm"); ok && !seen[stm] {
			seen[stm] = true
			if _, err := p.readXRefSection(stm); err != nil {
				return err
			}
		}

		prev, ok := trailer.Int("Prev")
		if !ok {
			break
		}
		offset = prev
	}

	if p.trailer == nil {
		return syntaxErrorf(offset, "no trailer found")
	}
	return nil
}

func (p *Parser) mergeTrailer(trailer Dict) {
	if p.trailer == nil {
		p.trailer = make(Dict, len(trailer))
	}
	for k, v := range trailer {
		if k == "Prev" || k == "XRefStm" {
			continue
		}
		if _, ok := p.trailer[k]; !ok {
			p.trailer[k] = v
		}
	}
}

func (p *Parser) addEntry(num int, entry xrefEntry) {
	if num <= 0 {
		return
	}
	if _, ok := p.xref[num]; !ok {
		p.xref[num] = entry
	}
}

// readXRefSection reads either a classic table or a cross-reference stream
// at offset and returns the associated trailer dictionary.
func (p *Parser) readXRefSection(offset int64) (Dict, error) {
	var trailer Dict
	var stream *Stream

	err := p.withWindow(offset, func(lex *Lexer) error {
		tok, err := lex.Next()
		if err != nil {
			return err
		}
		if kw, ok := tok.Value.(keyword); ok && kw == "xref" {
			trailer, err = p.readXRefTable(lex)
			return err
		}
		if tok.Type != TokenNumber {
			return syntaxErrorf(tok.Offset, "expected xref table or stream")
		}
		lex.Unread(tok)
		obj, _, err := p.parseIndirect(lex)
		if err != nil {
			return err
		}
		s, ok := obj.(*Stream)
		if !ok {
			return syntaxErrorf(offset, "cross-reference object is not a stream")
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, err
	}

	if stream != nil {
		if err := p.readXRefStream(stream, offset); err != nil {
			return nil, err
		}
		return stream.Dict, nil
	}
	return trailer, nil
}

func (p *Parser) readXRefTable(lex *Lexer) (Dict, error) {
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenEOF {
			return nil, io.ErrUnexpectedEOF
		}
		if kw, ok := tok.Value.(keyword); ok && kw == "trailer" {
			break
		}

		first, ok := tok.Value.(Int)
		if !ok {
			return nil, syntaxErrorf(tok.Offset, "expected subsection start or trailer")
		}
		countTok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		count, ok := countTok.Value.(Int)
		if !ok {
			if countTok.Type == TokenEOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, syntaxErrorf(countTok.Offset, "expected subsection count")
		}

		for i := 0; i < int(count); i++ {
			entry, err := readTableEntry(lex)
			if err != nil {
				return nil, err
			}
			p.addEntry(int(first)+i, entry)
		}
	}

	obj, err := p.parseObject(lex)
	if err != nil {
		return nil, err
	}
	trailer, ok := obj.(Dict)
	if !ok {
		return nil, syntaxErrorf(lex.Offset(), "trailer is not a dictionary")
	}
	return trailer, nil
}

func readTableEntry(lex *Lexer) (xrefEntry, error) {
	var fields [3]Token
	for i := range fields {
		tok, err := lex.Next()
		if err != nil {
			return xrefEntry{}, err
		}
		if tok.Type == TokenEOF {
			return xrefEntry{}, io.ErrUnexpectedEOF
		}
		fields[i] = tok
	}

	offset, ok1 := fields[0].Value.(Int)
	gen, ok2 := fields[1].Value.(Int)
	flag, ok3 := fields[2].Value.(keyword)
	if !ok1 || !ok2 || !ok3 || (flag != "n" && flag != "f") {
		return xrefEntry{}, syntaxErrorf(fields[0].Offset, "malformed cross-reference entry")
	}

	if flag == "f" {
		return xrefEntry{kind: entryFree}, nil
	}
	return xrefEntry{kind: entryOffset, offset: int64(offset), generation: int(gen)}, nil
}

func (p *Parser) readXRefStream(s *Stream, offset int64) error {
	wObj, ok := s.Dict["W"].(Array)
	if !ok || len(wObj) != 3 {
		return syntaxErrorf(offset, "cross-reference stream has no valid /W")
	}
	var widths [3]int
	for i, w := range wObj {
		n, ok := w.(Int)
		if !ok || n < 0 || n > 8 {
			return syntaxErrorf(offset, "invalid /W entry")
		}
		widths[i] = int(n)
	}
	rowLen := widths[0] + widths[1] + widths[2]
	if rowLen == 0 {
		return syntaxErrorf(offset, "empty /W")
	}

	var index []int64
	if idx, ok := s.Dict["Index"].(Array); ok {
		for _, v := range idx {
			n, ok := v.(Int)
			if !ok {
				return syntaxErrorf(offset, "invalid /Index entry")
			}
			index = append(index, int64(n))
		}
	} else {
		size, ok := s.Dict.Int("Size")
		if !ok {
			return syntaxErrorf(offset, "cross-reference stream has no /Size")
		}
		index = []int64{0, size}
	}
	if len(index)%2 != 0 {
		return syntaxErrorf(offset, "odd /Index length")
	}

	data := s.Data
	for i := 0; i < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := int64(0); j < count; j++ {
			if len(data) < rowLen {
				return syntaxErrorf(offset, "cross-reference stream is truncated")
			}
			row := data[:rowLen]
			data = data[rowLen:]

			kind := int64(1)
			if widths[0] > 0 {
				kind = beUint(row[:widths[0]])
			}
			f2 := beUint(row[widths[0] : widths[0]+widths[1]])
			f3 := beUint(row[widths[0]+widths[1]:])

			num := int(first + j)
			switch kind {
			case 0:
				p.addEntry(num, xrefEntry{kind: entryFree})
			case 1:
				p.addEntry(num, xrefEntry{kind: entryOffset, offset: f2, generation: int(f3)})
			case 2:
				p.addEntry(num, xrefEntry{kind: entryCompressed, stream: int(f2), index: int(f3)})
			}
		}
	}
	return nil
}

func beUint(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

// resolve follows obj when it is a reference
func (p *Parser) resolve(obj Object) (Object, error) {
	ref, ok := obj.(Ref)
	if !ok {
		return obj, nil
	}
	return p.object(ref)
}

// object loads the object ref points to. References to objects that do not
// exist resolve to null.
func (p *Parser) object(ref Ref) (Object, error) {
	if obj, ok := p.objects[ref.Number]; ok {
		return obj, nil
	}
	if p.resolving[ref.Number] {
		return nil, syntaxErrorf(0, "reference cycle through object %s", ref)
	}
	p.resolving[ref.Number] = true
	defer delete(p.resolving, ref.Number)

	entry, ok := p.xref[ref.Number]
	if !ok || entry.kind == entryFree {
		return Null{}, nil
	}

	var obj Object
	var err error
	switch entry.kind {
	case entryOffset:
		var num int
		err = p.withWindow(entry.offset, func(lex *Lexer) error {
			obj, num, err = p.parseIndirect(lex)
			return err
		})
		if err == nil && num != ref.Number {
			err = syntaxErrorf(entry.offset, "expected object %d, found %d", ref.Number, num)
		}
	case entryCompressed:
		obj, err = p.compressedObject(entry.stream, entry.index)
	}
	if err != nil {
		return nil, err
	}

	p.objects[ref.Number] = obj
	return obj, nil
}

// parseIndirect parses "N G obj <object> [stream ... endstream]" and returns
// the object together with its number
func (p *Parser) parseIndirect(lex *Lexer) (Object, int, error) {
	var header [3]Token
	for i := range header {
		tok, err := lex.Next()
		if err != nil {
			return nil, 0, err
		}
		if tok.Type == TokenEOF {
			return nil, 0, io.ErrUnexpectedEOF
		}
		header[i] = tok
	}
	num, ok1 := header[0].Value.(Int)
	_, ok2 := header[1].Value.(Int)
	kw, ok3 := header[2].Value.(keyword)
	if !ok1 || !ok2 || !ok3 || kw != "obj" {
		return nil, 0, syntaxErrorf(header[0].Offset, "expected object header")
	}

	obj, err := p.parseObject(lex)
	if err != nil {
		return nil, 0, err
	}

	dict, ok := obj.(Dict)
	if !ok {
		return obj, int(num), nil
	}

	tok, err := lex.Next()
	if err != nil {
		return nil, 0, err
	}
	if tok.Type == TokenEOF {
		// the window may have cut the stream keyword off
		return nil, 0, io.ErrUnexpectedEOF
	}
	if kw, ok := tok.Value.(keyword); !ok || kw != "stream" {
		return dict, int(num), nil
	}

	lex.skipEOL()
	stream, err := p.readStream(dict, lex.Offset())
	if err != nil {
		return nil, 0, err
	}
	return stream, int(num), nil
}

// parseObject parses one direct object. Bare keywords are returned as-is so
// callers can react to obj, stream, trailer and friends.
func (p *Parser) parseObject(lex *Lexer) (Object, error) {
	tok, err := lex.Next()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, io.ErrUnexpectedEOF
	case TokenNumber:
		num, isInt := tok.Value.(Int)
		if !isInt {
			return tok.Value, nil
		}
		// N G R is a reference; anything else leaves N as a plain integer
		second, err := lex.Next()
		if err != nil {
			return nil, err
		}
		gen, ok := second.Value.(Int)
		if !ok {
			lex.Unread(second)
			return num, nil
		}
		third, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if third.Type == TokenRef {
			return Ref{Number: int(num), Generation: int(gen)}, nil
		}
		lex.Unread(third)
		lex.Unread(second)
		return num, nil
	case TokenString, TokenName, TokenKeyword:
		return tok.Value, nil
	case TokenArrayStart:
		return p.parseArray(lex)
	case TokenDictStart:
		return p.parseDict(lex)
	default:
		return nil, syntaxErrorf(tok.Offset, "unexpected %s", tok.Type)
	}
}

func (p *Parser) parseArray(lex *Lexer) (Array, error) {
	arr := Array{}
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenArrayEnd {
			return arr, nil
		}
		lex.Unread(tok)

		obj, err := p.parseObject(lex)
		if err != nil {
			return nil, err
		}
		if _, ok := obj.(keyword); ok {
			return nil, syntaxErrorf(tok.Offset, "unexpected keyword %q in array", obj)
		}
		arr = append(arr, obj)
	}
}

func (p *Parser) parseDict(lex *Lexer) (Dict, error) {
	dict := make(Dict)
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, io.ErrUnexpectedEOF
		case TokenName:
		default:
			return nil, syntaxErrorf(tok.Offset, "expected name as dictionary key, got %s", tok.Type)
		}
		key := tok.Value.(Name)

		value, err := p.parseObject(lex)
		if err != nil {
			return nil, err
		}
		if _, ok := value.(keyword); ok {
			return nil, syntaxErrorf(tok.Offset, "unexpected keyword %q as value of /%s", value, key)
		}
		dict[key] = value
	}
}

// readStream reads and decodes the stream whose data starts at offset
func (p *Parser) readStream(dict Dict, offset int64) (*Stream, error) {
	length := int64(-1)
	if lengthObj, ok := dict["Length"]; ok {
		resolved, err := p.resolve(lengthObj)
		if err == nil {
			if n, ok := resolved.(Int); ok && n >= 0 && offset+int64(n) <= p.size {
				length = int64(n)
			}
		}
	}
	if length < 0 {
		n, err := p.scanStreamLength(offset)
		if err != nil {
			return nil, err
		}
		length = n
	}

	data := []byte{}
	if length > 0 {
		var err error
		data, err = p.read(offset, int(length))
		if err != nil {
			return nil, err
		}
	}

	decoded, err := decodeStream(data, dict, offset)
	if err != nil {
		return nil, err
	}
	return &Stream{Dict: dict, Data: decoded}, nil
}

// scanStreamLength finds endstream when /Length is missing or wrong
func (p *Parser) scanStreamLength(offset int64) (int64, error) {
	marker := []byte("endstream")
	for n := initialWindow; ; n *= 4 {
		data, err := p.read(offset, n)
		if err != nil {
			return 0, err
		}
		if idx := bytes.Index(data, marker); idx >= 0 {
			return int64(len(bytes.TrimRight(data[:idx], "\r\n"))), nil
		}
		if offset+int64(len(data)) >= p.size {
			return 0, syntaxErrorf(offset, "stream without endstream")
		}
	}
}

type objectStream struct {
	numbers []int
	offsets []int
	data    []byte
	first   int
}

func (p *Parser) compressedObject(streamNum, index int) (Object, error) {
	stm, err := p.objectStream(streamNum)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(stm.offsets) {
		return nil, syntaxErrorf(0, "object stream %d has no entry %d", streamNum, index)
	}

	start := stm.first + stm.offsets[index]
	if start < 0 || start > len(stm.data) {
		return nil, syntaxErrorf(0, "object stream %d entry %d is out of range", streamNum, index)
	}
	obj, err := p.parseObject(NewLexer(stm.data[start:], 0))
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, syntaxErrorf(0, "object stream %d entry %d is truncated", streamNum, index)
	}
	return obj, err
}

func (p *Parser) objectStream(num int) (*objectStream, error) {
	if stm, ok := p.objStms[num]; ok {
		return stm, nil
	}

	obj, err := p.object(Ref{Number: num})
	if err != nil {
		return nil, err
	}
	s, ok := obj.(*Stream)
	if !ok {
		return nil, &TypeError{Key: Name("ObjStm " + strconv.Itoa(num)), Want: "stream", Got: obj}
	}
	n, ok1 := s.Dict.Int("N")
	first, ok2 := s.Dict.Int("First")
	if !ok1 || !ok2 || first < 0 || first > int64(len(s.Data)) {
		return nil, syntaxErrorf(0, "object stream %d has an invalid header", num)
	}

	stm := &objectStream{data: s.Data, first: int(first)}
	lex := NewLexer(s.Data[:first], 0)
	for i := int64(0); i < n; i++ {
		numTok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		offTok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		objNum, ok1 := numTok.Value.(Int)
		off, ok2 := offTok.Value.(Int)
		if !ok1 || !ok2 {
			return nil, syntaxErrorf(0, "object stream %d header entry %d is malformed", num, i)
		}
		stm.numbers = append(stm.numbers, int(objNum))
		stm.offsets = append(stm.offsets, int(off))
	}

	p.objStms[num] = stm
	return stm, nil
}

// String renders the document summary
func (d *Document) String() string {
	return fmt.Sprintf("PDF %s, %d pages", d.Version, d.PageCount)
}
