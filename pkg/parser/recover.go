package parser

import (
	"bytes"
	"regexp"
	"strconv"
)

var (
	objHeaderPattern = regexp.MustCompile(`(\d+)\s+(\d+)\s+obj\b`)
	catalogPattern   = regexp.MustCompile(`/Type\s*/Catalog\b`)
)

// rebuild reconstructs the cross-reference data by scanning the whole file
// for object headers and picks a trailer from what it finds: the last
// trailer dictionary with /Root, then the last cross-reference stream with
// /Root, then the last object that looks like a catalog.
func (p *Parser) rebuild() error {
	if p.size > maxRebuildSize {
		return syntaxErrorf(0, "file too large to rebuild cross-reference data")
	}
	data, err := p.read(0, int(p.size))
	if err != nil {
		return err
	}

	headers := objHeaderPattern.FindAllSubmatchIndex(data, -1)
	for _, m := range headers {
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil || num <= 0 {
			continue
		}
		// later definitions replace earlier ones, as incremental updates do
		p.xref[num] = xrefEntry{kind: entryOffset, offset: int64(m[0]), generation: gen}
	}
	if len(p.xref) == 0 {
		return syntaxErrorf(0, "no objects found")
	}

	if trailer := p.lastTrailer(data); trailer != nil {
		p.trailer = trailer
		return nil
	}

	for i := len(headers) - 1; i >= 0; i-- {
		num, _ := strconv.Atoi(string(data[headers[i][2]:headers[i][3]]))
		obj, err := p.object(Ref{Number: num})
		if err != nil {
			continue
		}
		if s, ok := obj.(*Stream); ok {
			if t, _ := s.Dict.Name("Type"); t == "XRef" {
				if _, ok := s.Dict["Root"]; ok {
					p.trailer = s.Dict
					return nil
				}
			}
		}
	}

	if locs := catalogPattern.FindAllIndex(data, -1); len(locs) > 0 {
		at := locs[len(locs)-1][0]
		for i := len(headers) - 1; i >= 0; i-- {
			if headers[i][0] < at {
				num, _ := strconv.Atoi(string(data[headers[i][2]:headers[i][3]]))
				p.trailer = Dict{"Root": Ref{Number: num}}
				return nil
			}
		}
	}

	return syntaxErrorf(0, "no trailer or catalog found")
}

func (p *Parser) lastTrailer(data []byte) Dict {
	marker := []byte("trailer")
	end := len(data)
	for {
		idx := bytes.LastIndex(data[:end], marker)
		if idx < 0 {
			return nil
		}
		end = idx

		lex := NewLexer(data[idx+len(marker):], int64(idx+len(marker)))
		obj, err := p.parseObject(lex)
		if err != nil {
			continue
		}
		if dict, ok := obj.(Dict); ok {
			if _, ok := dict["Root"]; ok {
				return dict
			}
		}
	}
}
