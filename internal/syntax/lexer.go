package syntax

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokSymbol
)

type token struct {
	kind  tokenKind
	text  string
	start int
	end   int
	line  int
	col   int
}

// lexer produces a flat token stream over already-preprocessed source text.
// Comments are skipped; SystemVerilog based literals (8'hFF) come out as a
// single number token so balanced-region skipping never trips on them.
type lexer struct {
	src  string
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1, col: 1}
}

func (l *lexer) advance() byte {
	c := l.src[l.pos]
	l.pos++
	if c == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return c
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			l.advance()
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
		case c == '/' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '*':
			l.advance()
			l.advance()
			for l.pos < len(l.src) {
				if l.src[l.pos] == '*' && l.pos+1 < len(l.src) && l.src[l.pos+1] == '/' {
					l.advance()
					l.advance()
					break
				}
				l.advance()
			}
		default:
			return
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || c == '$' || (c >= '0' && c <= '9')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (l *lexer) next() token {
	l.skipSpaceAndComments()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, start: l.pos, end: l.pos, line: l.line, col: l.col}
	}

	start, line, col := l.pos, l.line, l.col
	c := l.src[l.pos]

	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.advance()
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], start: start, end: l.pos, line: line, col: col}

	case c == '\\':
		// Escaped identifier: backslash up to the next whitespace.
		l.advance()
		for l.pos < len(l.src) {
			c := l.src[l.pos]
			if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
				break
			}
			l.advance()
		}
		return token{kind: tokIdent, text: l.src[start:l.pos], start: start, end: l.pos, line: line, col: col}

	case isDigit(c) || c == '\'':
		l.lexNumberTail()
		return token{kind: tokNumber, text: l.src[start:l.pos], start: start, end: l.pos, line: line, col: col}

	case c == '"':
		l.advance()
		for l.pos < len(l.src) {
			c := l.src[l.pos]
			if c == '\\' && l.pos+1 < len(l.src) {
				l.advance()
				l.advance()
				continue
			}
			l.advance()
			if c == '"' {
				break
			}
		}
		return token{kind: tokString, text: l.src[start:l.pos], start: start, end: l.pos, line: line, col: col}

	default:
		l.advance()
		return token{kind: tokSymbol, text: l.src[start:l.pos], start: start, end: l.pos, line: line, col: col}
	}
}

// lexNumberTail consumes the remainder of a numeric literal, including sized
// based forms like 8'hFF, 'b1010 and real numbers.
func (l *lexer) lexNumberTail() {
	for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
		l.advance()
	}
	if l.pos < len(l.src) && l.src[l.pos] == '\'' {
		l.advance()
		if l.pos < len(l.src) && (l.src[l.pos] == 's' || l.src[l.pos] == 'S') {
			l.advance()
		}
		if l.pos < len(l.src) {
			switch l.src[l.pos] {
			case 'b', 'B', 'o', 'O', 'd', 'D', 'h', 'H':
				l.advance()
			}
		}
		for l.pos < len(l.src) {
			c := l.src[l.pos]
			if isIdentPart(c) || c == '?' {
				l.advance()
				continue
			}
			break
		}
		return
	}
	// Real part.
	if l.pos+1 < len(l.src) && l.src[l.pos] == '.' && isDigit(l.src[l.pos+1]) {
		l.advance()
		for l.pos < len(l.src) && (isDigit(l.src[l.pos]) || l.src[l.pos] == '_') {
			l.advance()
		}
	}
}
