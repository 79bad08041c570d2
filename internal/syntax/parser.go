package syntax

import (
	"errors"
	"fmt"
)

// Tag names follow the sv-parser grammar vocabulary so downstream passes can
// dispatch on the same category names regardless of which frontend produced
// the tree.

var directionKeywords = map[string]bool{
	"input": true, "output": true, "inout": true,
}

var processKeywords = map[string]bool{
	"always": true, "always_ff": true, "always_comb": true,
	"always_latch": true, "initial": true, "final": true,
}

// reservedWords are identifiers that can never start a module instantiation.
var reservedWords = map[string]bool{
	"module": true, "macromodule": true, "endmodule": true,
	"input": true, "output": true, "inout": true,
	"wire": true, "logic": true, "reg": true, "bit": true, "byte": true,
	"int": true, "integer": true, "shortint": true, "longint": true,
	"real": true, "realtime": true, "time": true, "string": true,
	"tri": true, "tri0": true, "tri1": true, "triand": true, "trior": true,
	"supply0": true, "supply1": true, "wand": true, "wor": true,
	"signed": true, "unsigned": true, "var": true, "const": true,
	"event": true, "genvar": true, "parameter": true, "localparam": true,
	"typedef": true, "struct": true, "enum": true, "union": true,
	"assign": true, "defparam": true, "import": true, "export": true,
	"always": true, "always_ff": true, "always_comb": true,
	"always_latch": true, "initial": true, "final": true,
	"generate": true, "endgenerate": true, "begin": true, "end": true,
	"if": true, "else": true, "for": true, "while": true, "repeat": true,
	"case": true, "casex": true, "casez": true, "endcase": true,
	"function": true, "endfunction": true, "task": true, "endtask": true,
	"specify": true, "endspecify": true, "fork": true, "join": true,
	"posedge": true, "negedge": true, "default": true, "return": true,
}

var errIncomplete = errors.New("incomplete source")

// errNotInstantiation signals that a statement which looked like a module
// instantiation (two identifiers) is actually a data declaration with a
// user-defined type. Only distinguishable after the instance name.
var errNotInstantiation = errors.New("not an instantiation")

type parser struct {
	lex             *lexer
	cur             token
	ahead           token
	prevEnd         int
	b               *treeBuilder
	path            string
	library         bool
	allowIncomplete bool
}

func (p *parser) next() {
	p.prevEnd = p.cur.end
	p.cur = p.ahead
	p.ahead = p.lex.next()
}

func (p *parser) atEOF() bool {
	return p.cur.kind == tokEOF
}

func (p *parser) atSym(s string) bool {
	return p.cur.kind == tokSymbol && p.cur.text == s
}

func (p *parser) atKeyword(s string) bool {
	return p.cur.kind == tokIdent && p.cur.text == s
}

func (p *parser) errorf(tok token, format string, args ...interface{}) error {
	return &ParseError{Path: p.path, Line: tok.line, Col: tok.col, Msg: fmt.Sprintf(format, args...)}
}

// truncated reports unexpected end of input. Under AllowIncomplete the parse
// is accepted as-is; otherwise it is a hard error.
func (p *parser) truncated(what string) error {
	if p.allowIncomplete {
		return errIncomplete
	}
	return p.errorf(p.cur, "unexpected end of file in %s", what)
}

func (p *parser) parseSourceText() (*Tree, error) {
	p.b.openNode("SourceText", 0)

	var err error
	for !p.atEOF() {
		if p.atKeyword("module") || p.atKeyword("macromodule") {
			if err = p.parseModule(); err != nil {
				break
			}
			continue
		}
		if p.library {
			p.next()
			continue
		}
		err = p.errorf(p.cur, "unexpected %q at top level", p.cur.text)
		break
	}

	if err != nil {
		if !errors.Is(err, errIncomplete) {
			return nil, err
		}
	}
	p.b.closeAll(len(p.b.source))
	return p.b.finish(), nil
}

func (p *parser) parseModule() error {
	declIdx := p.b.openNode("ModuleDeclarationAnsi", p.cur.start)
	p.next() // module keyword

	if p.atKeyword("static") || p.atKeyword("automatic") {
		p.next()
	}
	if p.atEOF() {
		return p.truncated("module declaration")
	}
	if p.cur.kind != tokIdent {
		return p.errorf(p.cur, "expected module name, found %q", p.cur.text)
	}
	p.b.leaf("ModuleIdentifier", p.cur.start, p.cur.end)
	p.next()

	// Package import list between name and port list.
	for p.atKeyword("import") {
		if err := p.skipToSemicolon("import declaration"); err != nil {
			return err
		}
	}
	if p.atSym("#") {
		p.next()
		if err := p.skipBalanced("(", ")", "parameter port list"); err != nil {
			return err
		}
	}

	ansi := false
	if p.atSym("(") {
		hasAnsi, err := p.parseHeaderPortList()
		if err != nil {
			return err
		}
		ansi = hasAnsi
	}
	if !ansi {
		p.b.setTag(declIdx, "ModuleDeclarationNonansi")
	}

	if p.atEOF() {
		return p.truncated("module header")
	}
	if !p.atSym(";") {
		return p.errorf(p.cur, "expected ';' after module header, found %q", p.cur.text)
	}
	p.next()

	return p.parseModuleBody()
}

func (p *parser) parseModuleBody() error {
	for {
		if p.atEOF() {
			return p.truncated("module body")
		}
		if p.cur.kind != tokIdent {
			// Stray punctuation contributes nothing.
			p.next()
			continue
		}

		switch {
		case p.atKeyword("endmodule"):
			end := p.cur.end
			p.next()
			if p.atSym(":") {
				p.next()
				if p.cur.kind == tokIdent {
					end = p.cur.end
					p.next()
				}
			}
			p.b.closeNode(end)
			return nil

		case directionKeywords[p.cur.text]:
			if err := p.parseBodyPortDeclaration(); err != nil {
				return err
			}

		case processKeywords[p.cur.text]:
			if err := p.skipProcess(); err != nil {
				return err
			}

		case p.atKeyword("assign"):
			p.b.openNode("ContinuousAssign", p.cur.start)
			if err := p.skipToSemicolon("continuous assignment"); err != nil {
				return err
			}
			p.b.closeNode(p.prevEnd)

		case p.atKeyword("function") || p.atKeyword("task"):
			if err := p.skipUntilKeyword("end"+p.cur.text, p.cur.text+" body"); err != nil {
				return err
			}

		case p.atKeyword("generate"), p.atKeyword("endgenerate"), p.atKeyword("else"):
			p.next()

		case p.atKeyword("begin"):
			p.next()
			if p.atSym(":") {
				p.next()
				if p.cur.kind == tokIdent {
					p.next()
				}
			}

		case p.atKeyword("end"):
			p.next()
			if p.atSym(":") {
				p.next()
				if p.cur.kind == tokIdent {
					p.next()
				}
			}

		case p.atKeyword("if"), p.atKeyword("for"):
			p.next()
			if p.atSym("(") {
				if err := p.skipBalanced("(", ")", "generate condition"); err != nil {
					return err
				}
			}

		case p.atKeyword("case"), p.atKeyword("casex"), p.atKeyword("casez"):
			if err := p.skipUntilKeyword("endcase", "case generate"); err != nil {
				return err
			}

		case !reservedWords[p.cur.text] && (p.ahead.kind == tokIdent && !reservedWords[p.ahead.text] ||
			p.ahead.kind == tokSymbol && p.ahead.text == "#"):
			m := p.b.mark()
			if err := p.parseInstantiation(); err != nil {
				if !errors.Is(err, errNotInstantiation) {
					return err
				}
				p.b.rollback(m)
				if err := p.skipToSemicolon("data declaration"); err != nil {
					return err
				}
			}

		default:
			if err := p.skipToSemicolon("module item"); err != nil {
				return err
			}
		}
	}
}

// parseHeaderPortList handles the parenthesized port list after the module
// name. ANSI declarations (direction present) produce AnsiPortDeclaration
// nodes; a plain non-ANSI identifier list produces Port references only.
// Returns whether any ANSI declaration was seen.
func (p *parser) parseHeaderPortList() (bool, error) {
	p.next() // '('
	ansi := false
	var dirTok token
	haveDir := false
	var typeStart, typeEnd int

	for {
		if p.atEOF() {
			return ansi, p.truncated("port list")
		}
		if p.atSym(")") {
			p.next()
			return ansi, nil
		}
		if p.atSym(",") {
			p.next()
			continue
		}

		segDir := haveDir
		if p.cur.kind == tokIdent && directionKeywords[p.cur.text] {
			ansi = true
			dirTok = p.cur
			haveDir = true
			segDir = true
			typeStart, typeEnd = 0, 0
			p.next()
		}

		seg, err := p.collectSegment("port declaration", ",", ")")
		if err != nil {
			return ansi, err
		}
		if len(seg) == 0 {
			continue
		}

		if !segDir {
			// Non-ANSI reference; direction comes from body declarations.
			p.b.leaf("Port", seg[0].start, seg[len(seg)-1].end)
			continue
		}

		ident, typeSeg := splitPortSegment(seg)
		if ident == nil {
			continue
		}
		if len(typeSeg) > 0 {
			typeStart, typeEnd = typeSeg[0].start, typeSeg[len(typeSeg)-1].end
		}
		p.b.openNode("AnsiPortDeclaration", seg[0].start)
		p.b.leaf("PortDirection", dirTok.start, dirTok.end)
		if typeEnd > typeStart {
			p.b.leaf("DataType", typeStart, typeEnd)
		}
		p.b.leaf("PortIdentifier", ident.start, ident.end)
		p.b.closeNode(seg[len(seg)-1].end)
	}
}

// parseBodyPortDeclaration handles non-ANSI declarations such as
// "input [3:0] a, b;" inside the module body. Each declared identifier gets
// its own PortDeclaration node.
func (p *parser) parseBodyPortDeclaration() error {
	dirTok := p.cur
	p.next()

	var typeStart, typeEnd int
	for {
		if p.atEOF() {
			return p.truncated("port declaration")
		}
		if p.atSym(";") {
			p.next()
			return nil
		}
		if p.atSym(",") {
			p.next()
			continue
		}

		seg, err := p.collectSegment("port declaration", ",", ";")
		if err != nil {
			return err
		}
		if len(seg) == 0 {
			continue
		}

		ident, typeSeg := splitPortSegment(seg)
		if ident == nil {
			continue
		}
		if len(typeSeg) > 0 {
			typeStart, typeEnd = typeSeg[0].start, typeSeg[len(typeSeg)-1].end
		}
		p.b.openNode("PortDeclaration", seg[0].start)
		p.b.leaf("PortDirection", dirTok.start, dirTok.end)
		if typeEnd > typeStart {
			p.b.leaf("DataType", typeStart, typeEnd)
		}
		p.b.leaf("PortIdentifier", ident.start, ident.end)
		p.b.closeNode(seg[len(seg)-1].end)
	}
}

// collectSegment gathers tokens up to one of the stop symbols at bracket
// depth zero, leaving the stop symbol as the current token.
func (p *parser) collectSegment(what string, stops ...string) ([]token, error) {
	var seg []token
	depth := 0
	for {
		if p.atEOF() {
			return seg, p.truncated(what)
		}
		if p.cur.kind == tokSymbol {
			switch p.cur.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				if depth == 0 && stopMatch(p.cur.text, stops) {
					return seg, nil
				}
				depth--
			default:
				if depth == 0 && stopMatch(p.cur.text, stops) {
					return seg, nil
				}
			}
		}
		seg = append(seg, p.cur)
		p.next()
	}
}

func stopMatch(text string, stops []string) bool {
	for _, s := range stops {
		if text == s {
			return true
		}
	}
	return false
}

// splitPortSegment finds the declared identifier within a port segment: the
// last identifier before a default-value '='. Everything between the
// direction and that identifier is its data type.
func splitPortSegment(seg []token) (ident *token, typeSeg []token) {
	limit := len(seg)
	for i, t := range seg {
		if t.kind == tokSymbol && t.text == "=" {
			limit = i
			break
		}
	}
	for i := limit - 1; i >= 0; i-- {
		if seg[i].kind == tokIdent && !reservedWords[seg[i].text] {
			tok := seg[i]
			return &tok, seg[:i]
		}
	}
	return nil, nil
}

func (p *parser) parseInstantiation() error {
	typeTok := p.cur
	p.b.openNode("ModuleInstantiation", typeTok.start)
	p.b.leaf("ModuleIdentifier", typeTok.start, typeTok.end)
	p.next()

	// A parameter list commits the statement to being an instantiation.
	committed := false
	if p.atSym("#") {
		committed = true
		p.next()
		if err := p.skipBalanced("(", ")", "parameter value assignment"); err != nil {
			return err
		}
	}

	for {
		if p.atEOF() {
			return p.truncated("module instantiation")
		}
		if p.cur.kind != tokIdent {
			return p.errorf(p.cur, "expected instance name, found %q", p.cur.text)
		}
		p.b.openNode("HierarchicalInstance", p.cur.start)
		p.b.leaf("InstanceIdentifier", p.cur.start, p.cur.end)
		p.next()

		if p.atSym("[") {
			if err := p.skipBalanced("[", "]", "instance range"); err != nil {
				return err
			}
		}
		if p.atEOF() {
			return p.truncated("module instantiation")
		}
		if !p.atSym("(") {
			if !committed {
				return errNotInstantiation
			}
			return p.errorf(p.cur, "expected '(' in instantiation, found %q", p.cur.text)
		}
		committed = true
		p.next()
		if err := p.parsePortConnections(); err != nil {
			return err
		}
		p.b.closeNode(p.prevEnd)

		if p.atSym(",") {
			p.next()
			continue
		}
		break
	}

	if p.atEOF() {
		return p.truncated("module instantiation")
	}
	if !p.atSym(";") {
		return p.errorf(p.cur, "expected ';' after instantiation, found %q", p.cur.text)
	}
	end := p.cur.end
	p.next()
	p.b.closeNode(end)
	return nil
}

// parsePortConnections consumes a connection list through its closing ')'.
// Named connections produce NamedPortConnection nodes; positional ones are
// recorded as OrderedPortConnection and carry no binding information.
func (p *parser) parsePortConnections() error {
	for {
		if p.atEOF() {
			return p.truncated("port connection list")
		}
		if p.atSym(")") {
			p.next()
			return nil
		}
		if p.atSym(",") {
			p.next()
			continue
		}

		if p.atSym(".") {
			dotTok := p.cur
			p.next()
			if p.atSym("*") {
				// .* implicit wildcard carries no explicit binding.
				p.next()
				continue
			}
			if p.cur.kind != tokIdent {
				return p.errorf(p.cur, "expected port name after '.', found %q", p.cur.text)
			}
			p.b.openNode("NamedPortConnection", dotTok.start)
			p.b.leaf("PortIdentifier", p.cur.start, p.cur.end)
			p.next()

			if !p.atSym("(") {
				// .name shorthand: port bound to the like-named signal, left
				// without an Expression child.
				p.b.closeNode(p.prevEnd)
				continue
			}
			p.next()
			seg, err := p.collectSegment("port connection", ")")
			if err != nil {
				return err
			}
			if len(seg) > 0 {
				p.b.leaf("Expression", seg[0].start, seg[len(seg)-1].end)
			}
			end := p.cur.end
			p.next() // ')'
			p.b.closeNode(end)
			continue
		}

		seg, err := p.collectSegment("port connection", ",", ")")
		if err != nil {
			return err
		}
		if len(seg) > 0 {
			p.b.leaf("OrderedPortConnection", seg[0].start, seg[len(seg)-1].end)
		}
	}
}

// skipProcess consumes a procedural block, matching begin/end, fork/join and
// case/endcase pairs; a bare statement terminates at its semicolon.
func (p *parser) skipProcess() error {
	p.next() // process keyword
	depth := 0
	for {
		if p.atEOF() {
			return p.truncated("procedural block")
		}
		if p.cur.kind == tokIdent {
			switch p.cur.text {
			case "begin", "fork", "case", "casex", "casez":
				depth++
			case "end", "join", "join_any", "join_none", "endcase":
				depth--
				p.next()
				if depth <= 0 {
					if p.atSym(":") {
						p.next()
						if p.cur.kind == tokIdent {
							p.next()
						}
					}
					return nil
				}
				continue
			}
		}
		if depth == 0 && p.atSym(";") {
			p.next()
			return nil
		}
		p.next()
	}
}

func (p *parser) skipToSemicolon(what string) error {
	depth := 0
	for {
		if p.atEOF() {
			return p.truncated(what)
		}
		if p.cur.kind == tokSymbol {
			switch p.cur.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
			case ";":
				if depth <= 0 {
					p.next()
					return nil
				}
			}
		}
		p.next()
	}
}

func (p *parser) skipUntilKeyword(keyword, what string) error {
	for {
		if p.atEOF() {
			return p.truncated(what)
		}
		if p.atKeyword(keyword) {
			p.next()
			return nil
		}
		p.next()
	}
}

// skipBalanced consumes a bracketed region; the current token must be the
// opening symbol.
func (p *parser) skipBalanced(open, close, what string) error {
	if !p.atSym(open) {
		return p.errorf(p.cur, "expected %q, found %q", open, p.cur.text)
	}
	depth := 0
	for {
		if p.atEOF() {
			return p.truncated(what)
		}
		if p.cur.kind == tokSymbol {
			switch p.cur.text {
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					p.next()
					return nil
				}
			}
		}
		p.next()
	}
}
