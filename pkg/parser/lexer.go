package parser

import (
	"bytes"
	"io"
	"strconv"
)

// TokenType identifies the kind of a lexical token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenNumber
	TokenString
	TokenName
	TokenKeyword
	TokenArrayStart
	TokenArrayEnd
	TokenDictStart
	TokenDictEnd
	TokenRef
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenNumber:
		return "Number"
	case TokenString:
		return "String"
	case TokenName:
		return "Name"
	case TokenKeyword:
		return "Keyword"
	case TokenArrayStart:
		return "ArrayStart"
	case TokenArrayEnd:
		return "ArrayEnd"
	case TokenDictStart:
		return "DictStart"
	case TokenDictEnd:
		return "DictEnd"
	case TokenRef:
		return "Ref"
	default:
		return "Unknown"
	}
}

// Token is one lexical unit
type Token struct {
	Type  TokenType
	Value Object
	// Offset is the absolute file offset where the token starts
	Offset int64
}

// Lexer tokenizes a window of PDF bytes that starts at file offset base
type Lexer struct {
	data   []byte
	pos    int
	base   int64
	pushed []Token
}

// NewLexer returns a lexer over data, which was read from file offset base
func NewLexer(data []byte, base int64) *Lexer {
	return &Lexer{data: data, base: base}
}

// Offset returns the absolute file offset of the next unread byte
func (l *Lexer) Offset() int64 {
	return l.base + int64(l.pos)
}

// Unread pushes tok back so the next call to Next returns it
func (l *Lexer) Unread(tok Token) {
	l.pushed = append(l.pushed, tok)
}

// Next returns the next token. Running off the end of the window inside a
// token yields io.ErrUnexpectedEOF; a clean end yields a TokenEOF token.
func (l *Lexer) Next() (Token, error) {
	if n := len(l.pushed); n > 0 {
		tok := l.pushed[n-1]
		l.pushed = l.pushed[:n-1]
		return tok, nil
	}

	l.skipSpaceAndComments()
	start := l.Offset()
	if l.pos >= len(l.data) {
		return Token{Type: TokenEOF, Offset: start}, nil
	}

	ch := l.data[l.pos]
	switch {
	case ch == '[':
		l.pos++
		return Token{Type: TokenArrayStart, Offset: start}, nil
	case ch == ']':
		l.pos++
		return Token{Type: TokenArrayEnd, Offset: start}, nil
	case ch == '<':
		if l.pos+1 >= len(l.data) {
			return Token{}, io.ErrUnexpectedEOF
		}
		if l.data[l.pos+1] == '<' {
			l.pos += 2
			return Token{Type: TokenDictStart, Offset: start}, nil
		}
		return l.hexString(start)
	case ch == '>':
		if l.pos+1 >= len(l.data) {
			return Token{}, io.ErrUnexpectedEOF
		}
		if l.data[l.pos+1] != '>' {
			return Token{}, syntaxErrorf(start, "expected >>")
		}
		l.pos += 2
		return Token{Type: TokenDictEnd, Offset: start}, nil
	case ch == '(':
		return l.literalString(start)
	case ch == '/':
		return l.name(start)
	case ch == '+' || ch == '-' || ch == '.' || isDigit(ch):
		return l.number(start)
	default:
		return l.keyword(start)
	}
}

func (l *Lexer) skipSpaceAndComments() {
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if isWhitespace(ch) {
			l.pos++
			continue
		}
		if ch == '%' {
			for l.pos < len(l.data) && l.data[l.pos] != '\n' && l.data[l.pos] != '\r' {
				l.pos++
			}
			continue
		}
		return
	}
}

// skipEOL consumes the single end-of-line marker that follows the stream keyword
func (l *Lexer) skipEOL() {
	if l.pos < len(l.data) && l.data[l.pos] == '\r' {
		l.pos++
	}
	if l.pos < len(l.data) && l.data[l.pos] == '\n' {
		l.pos++
	}
}

func (l *Lexer) number(start int64) (Token, error) {
	begin := l.pos
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if ch != '+' && ch != '-' && ch != '.' && !isDigit(ch) {
			break
		}
		l.pos++
	}
	raw := l.data[begin:l.pos]

	if bytes.IndexByte(raw, '.') >= 0 {
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil {
			return Token{}, syntaxErrorf(start, "invalid real %q", raw)
		}
		return Token{Type: TokenNumber, Value: Real(f), Offset: start}, nil
	}

	i, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return Token{}, syntaxErrorf(start, "invalid integer %q", raw)
	}
	return Token{Type: TokenNumber, Value: Int(i), Offset: start}, nil
}

func (l *Lexer) literalString(start int64) (Token, error) {
	l.pos++ // (
	var out []byte
	depth := 1

	for {
		if l.pos >= len(l.data) {
			return Token{}, io.ErrUnexpectedEOF
		}
		ch := l.data[l.pos]
		l.pos++

		switch ch {
		case '(':
			depth++
			out = append(out, ch)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Value: String(out), Offset: start}, nil
			}
			out = append(out, ch)
		case '\\':
			if l.pos >= len(l.data) {
				return Token{}, io.ErrUnexpectedEOF
			}
			esc := l.data[l.pos]
			l.pos++
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '\r':
				if l.pos < len(l.data) && l.data[l.pos] == '\n' {
					l.pos++
				}
			case '\n':
			default:
				if esc >= '0' && esc <= '7' {
					val := int(esc - '0')
					for i := 0; i < 2 && l.pos < len(l.data) && l.data[l.pos] >= '0' && l.data[l.pos] <= '7'; i++ {
						val = val*8 + int(l.data[l.pos]-'0')
						l.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, esc)
				}
			}
		default:
			out = append(out, ch)
		}
	}
}

func (l *Lexer) hexString(start int64) (Token, error) {
	l.pos++ // <
	var digits []byte

	for {
		if l.pos >= len(l.data) {
			return Token{}, io.ErrUnexpectedEOF
		}
		ch := l.data[l.pos]
		l.pos++
		if ch == '>' {
			break
		}
		if isWhitespace(ch) {
			continue
		}
		if !isHexDigit(ch) {
			return Token{}, syntaxErrorf(start, "invalid character %q in hex string", ch)
		}
		digits = append(digits, ch)
	}

	if len(digits)%2 != 0 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = unhex(digits[2*i])<<4 | unhex(digits[2*i+1])
	}
	return Token{Type: TokenString, Value: String(out), Offset: start}, nil
}

func (l *Lexer) name(start int64) (Token, error) {
	l.pos++ // /
	var out []byte

	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if isDelimiter(ch) || isWhitespace(ch) {
			break
		}
		l.pos++
		if ch == '#' && l.pos+1 < len(l.data) && isHexDigit(l.data[l.pos]) && isHexDigit(l.data[l.pos+1]) {
			out = append(out, unhex(l.data[l.pos])<<4|unhex(l.data[l.pos+1]))
			l.pos += 2
			continue
		}
		out = append(out, ch)
	}

	return Token{Type: TokenName, Value: Name(out), Offset: start}, nil
}

func (l *Lexer) keyword(start int64) (Token, error) {
	begin := l.pos
	for l.pos < len(l.data) {
		ch := l.data[l.pos]
		if isDelimiter(ch) || isWhitespace(ch) {
			break
		}
		l.pos++
	}
	if l.pos == begin {
		// stray delimiter such as ) or {
		l.pos++
		return Token{}, syntaxErrorf(start, "unexpected character %q", l.data[begin])
	}

	switch word := string(l.data[begin:l.pos]); word {
	case "true":
		return Token{Type: TokenKeyword, Value: Bool(true), Offset: start}, nil
	case "false":
		return Token{Type: TokenKeyword, Value: Bool(false), Offset: start}, nil
	case "null":
		return Token{Type: TokenKeyword, Value: Null{}, Offset: start}, nil
	case "R":
		return Token{Type: TokenRef, Offset: start}, nil
	default:
		return Token{Type: TokenKeyword, Value: keyword(word), Offset: start}, nil
	}
}

func isWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' || ch == '\f' || ch == 0
}

func isDelimiter(ch byte) bool {
	return ch == '(' || ch == ')' || ch == '<' || ch == '>' ||
		ch == '[' || ch == ']' || ch == '{' || ch == '}' ||
		ch == '/' || ch == '%'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'A' && ch <= 'F') || (ch >= 'a' && ch <= 'f')
}

func unhex(ch byte) byte {
	switch {
	case isDigit(ch):
		return ch - '0'
	case ch >= 'a' && ch <= 'f':
		return ch - 'a' + 10
	default:
		return ch - 'A' + 10
	}
}
