package mirtext

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	col  int // 1-based byte column
}

func (t token) String() string {
	switch t.kind {
	case tokEOF:
		return "end of line"
	case tokString:
		return strconv.Quote(t.text)
	default:
		return fmt.Sprintf("%q", t.text)
	}
}

// cursor walks one line of MIR text.
type cursor struct {
	src string
	off int
}

func (c *cursor) eof() bool {
	return c.off >= len(c.src)
}

func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.off]
}

func (c *cursor) peek2() (b0, b1 byte, ok bool) {
	if c.off+1 >= len(c.src) {
		return 0, 0, false
	}
	return c.src[c.off], c.src[c.off+1], true
}

func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.src[c.off]
	c.off++
	return b
}

func isIdentStart(b byte) bool {
	return b == '_' || ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z')
}

func isIdentContinue(b byte) bool {
	return isIdentStart(b) || isDigit(b)
}

func isDigit(b byte) bool {
	return '0' <= b && b <= '9'
}

// lex splits line into tokens. The returned slice always ends with tokEOF.
func lex(line string) ([]token, error) {
	c := cursor{src: line}
	var toks []token
	for {
		for !c.eof() && (c.peek() == ' ' || c.peek() == '\t') {
			c.bump()
		}
		start := c.off
		col := start + 1
		if c.eof() {
			toks = append(toks, token{kind: tokEOF, col: col})
			return toks, nil
		}
		b := c.peek()
		switch {
		case isIdentStart(b):
			for !c.eof() && isIdentContinue(c.peek()) {
				c.bump()
			}
			toks = append(toks, token{kind: tokIdent, text: c.src[start:c.off], col: col})
		case isDigit(b):
			for !c.eof() && isDigit(c.peek()) {
				c.bump()
			}
			toks = append(toks, token{kind: tokInt, text: c.src[start:c.off], col: col})
		case b == '-':
			b0, b1, ok := c.peek2()
			switch {
			case ok && b0 == '-' && b1 == '>':
				c.bump()
				c.bump()
				toks = append(toks, token{kind: tokPunct, text: "->", col: col})
			case ok && isDigit(b1):
				c.bump()
				for !c.eof() && isDigit(c.peek()) {
					c.bump()
				}
				toks = append(toks, token{kind: tokInt, text: c.src[start:c.off], col: col})
			default:
				return nil, fmt.Errorf("col %d: unexpected '-'", col)
			}
		case b == '"':
			c.bump()
			for {
				if c.eof() {
					return nil, fmt.Errorf("col %d: unterminated string", col)
				}
				ch := c.bump()
				if ch == '\\' {
					c.bump()
					continue
				}
				if ch == '"' {
					break
				}
			}
			text, err := strconv.Unquote(c.src[start:c.off])
			if err != nil {
				return nil, fmt.Errorf("col %d: bad string literal: %w", col, err)
			}
			toks = append(toks, token{kind: tokString, text: text, col: col})
		case strings.IndexByte("()*.#[]{},=;<>&:", b) >= 0:
			c.bump()
			toks = append(toks, token{kind: tokPunct, text: string(b), col: col})
		default:
			return nil, fmt.Errorf("col %d: unexpected character %q", col, rune(b))
		}
	}
}
