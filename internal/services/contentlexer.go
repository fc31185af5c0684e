package services

import "bytes"

type tokenKind int

const (
	tokString tokenKind = iota
	tokArrayStart
	tokArrayEnd
	tokOperator
	tokOperand
	tokName
)

type token struct {
	kind  tokenKind
	value []byte
}

// contentLexer splits a PDF content stream into the tokens needed to find
// shown text. Numbers and dictionaries are reported as operands, names keep
// their value without the slash and comments are skipped.
type contentLexer struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (lx *contentLexer) next() (token, bool) {
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		switch {
		case isPDFSpace(c):
			lx.pos++
		case c == '%':
			for lx.pos < len(lx.data) && lx.data[lx.pos] != '\n' && lx.data[lx.pos] != '\r' {
				lx.pos++
			}
		case c == '(':
			lx.pos++
			return token{kind: tokString, value: lx.literalString()}, true
		case c == '<':
			if lx.pos+1 < len(lx.data) && lx.data[lx.pos+1] == '<' {
				lx.pos += 2
				return token{kind: tokOperand}, true
			}
			lx.pos++
			return token{kind: tokString, value: lx.hexString()}, true
		case c == '>':
			lx.pos++
			if lx.pos < len(lx.data) && lx.data[lx.pos] == '>' {
				lx.pos++
			}
			return token{kind: tokOperand}, true
		case c == '[':
			lx.pos++
			return token{kind: tokArrayStart}, true
		case c == ']':
			lx.pos++
			return token{kind: tokArrayEnd}, true
		case c == '/':
			lx.pos++
			return token{kind: tokName, value: lx.regular()}, true
		case c == ')' || c == '{' || c == '}':
			lx.pos++
		default:
			word := lx.regular()
			if isOperandWord(word) {
				return token{kind: tokOperand, value: word}, true
			}
			return token{kind: tokOperator, value: word}, true
		}
	}
	return token{}, false
}

func (lx *contentLexer) regular() []byte {
	start := lx.pos
	for lx.pos < len(lx.data) && !isPDFSpace(lx.data[lx.pos]) && !isPDFDelimiter(lx.data[lx.pos]) {
		lx.pos++
	}
	return lx.data[start:lx.pos]
}

func isOperandWord(word []byte) bool {
	switch string(word) {
	case "true", "false", "null":
		return true
	}
	c := word[0]
	return c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9')
}

// literalString reads a (string) body; lx.pos is just past the opening parenthesis.
func (lx *contentLexer) literalString() []byte {
	var out []byte
	depth := 1
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return out
			}
			out = append(out, c)
		case '\\':
			if lx.pos >= len(lx.data) {
				return out
			}
			e := lx.data[lx.pos]
			lx.pos++
			switch e {
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
				// Line continuation.
				if lx.pos < len(lx.data) && lx.data[lx.pos] == '\n' {
					lx.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for i := 0; i < 2 && lx.pos < len(lx.data); i++ {
						d := lx.data[lx.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						lx.pos++
					}
					out = append(out, byte(val))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

// hexString reads a <hex> body; lx.pos is just past the opening angle bracket.
func (lx *contentLexer) hexString() []byte {
	var out []byte
	var hi byte
	half := false
	for lx.pos < len(lx.data) {
		c := lx.data[lx.pos]
		lx.pos++
		if c == '>' {
			break
		}
		v, ok := hexValue(c)
		if !ok {
			continue
		}
		if half {
			out = append(out, hi<<4|v)
		} else {
			hi = v
		}
		half = !half
	}
	if half {
		out = append(out, hi<<4)
	}
	return out
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// skipInlineImage advances past BI ... ID <binary> EI.
func (lx *contentLexer) skipInlineImage() {
	for {
		tok, ok := lx.next()
		if !ok {
			return
		}
		if tok.kind == tokOperator && string(tok.value) == "ID" {
			break
		}
	}
	// A single whitespace byte separates ID from the image data.
	lx.pos++
	for lx.pos < len(lx.data) {
		i := bytes.Index(lx.data[lx.pos:], []byte("EI"))
		if i < 0 {
			lx.pos = len(lx.data)
			return
		}
		at := lx.pos + i
		before := at == 0 || isPDFSpace(lx.data[at-1])
		after := at+2 >= len(lx.data) || isPDFSpace(lx.data[at+2])
		lx.pos = at + 2
		if before && after {
			return
		}
	}
}
