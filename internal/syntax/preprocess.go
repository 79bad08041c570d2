package syntax

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxIncludeDepth = 32

// preprocessor performs the compiler-directive pass that runs before lexing:
// `define/`undef, `ifdef/`ifndef/`else/`endif, `include resolution and macro
// substitution. The output text is what the syntax tree's spans refer to.
type preprocessor struct {
	defines       map[string]string
	includePaths  []string
	ignoreInclude bool
}

func newPreprocessor(opts Options) *preprocessor {
	defines := make(map[string]string, len(opts.Defines))
	for name, body := range opts.Defines {
		defines[name] = body
	}
	return &preprocessor{
		defines:       defines,
		includePaths:  opts.IncludePaths,
		ignoreInclude: opts.IgnoreInclude,
	}
}

func (p *preprocessor) expand(text, path string, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", &ParseError{Path: path, Line: 1, Col: 1, Msg: "include depth limit exceeded"}
	}

	var out strings.Builder
	lines := strings.Split(text, "\n")

	// Conditional stack: each entry records whether the current `ifdef arm
	// is active and whether any arm has been taken yet.
	type cond struct{ active, taken bool }
	var conds []cond
	active := func() bool {
		for _, c := range conds {
			if !c.active {
				return false
			}
		}
		return true
	}

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		lineNo := i + 1
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "`") {
			directive, rest := splitDirective(trimmed[1:])
			switch directive {
			case "ifdef", "ifndef":
				name := firstWord(rest)
				_, defined := p.defines[name]
				on := defined
				if directive == "ifndef" {
					on = !defined
				}
				on = on && active()
				conds = append(conds, cond{active: on, taken: on})
				continue
			case "else":
				if len(conds) == 0 {
					return "", &ParseError{Path: path, Line: lineNo, Col: 1, Msg: "`else without `ifdef"}
				}
				outerActive := true
				for _, c := range conds[:len(conds)-1] {
					if !c.active {
						outerActive = false
					}
				}
				top := &conds[len(conds)-1]
				top.active = !top.taken && outerActive
				top.taken = top.taken || top.active
				continue
			case "endif":
				if len(conds) == 0 {
					return "", &ParseError{Path: path, Line: lineNo, Col: 1, Msg: "`endif without `ifdef"}
				}
				conds = conds[:len(conds)-1]
				continue
			}

			if !active() {
				continue
			}

			switch directive {
			case "define":
				body := rest
				for strings.HasSuffix(body, "\\") && i+1 < len(lines) {
					i++
					body = strings.TrimSuffix(body, "\\") + "\n" + lines[i]
				}
				name, value := splitDefine(body)
				if name == "" {
					return "", &ParseError{Path: path, Line: lineNo, Col: 1, Msg: "malformed `define"}
				}
				p.defines[name] = value
				continue
			case "undef":
				delete(p.defines, firstWord(rest))
				continue
			case "include":
				if p.ignoreInclude {
					continue
				}
				target := includeTarget(rest)
				if target == "" {
					return "", &ParseError{Path: path, Line: lineNo, Col: 1, Msg: "malformed `include"}
				}
				content, resolved, err := p.resolveInclude(target, path)
				if err != nil {
					return "", &ParseError{Path: path, Line: lineNo, Col: 1, Msg: err.Error()}
				}
				expanded, err := p.expand(content, resolved, depth+1)
				if err != nil {
					return "", err
				}
				out.WriteString(expanded)
				out.WriteByte('\n')
				continue
			default:
				// Directives this subset does not interpret (`timescale,
				// `default_nettype, ...) are dropped unless they are macro
				// uses, which are substituted below.
				if _, ok := p.defines[directive]; !ok {
					continue
				}
			}
		}

		if !active() {
			continue
		}

		out.WriteString(p.substitute(line))
		if i < len(lines)-1 {
			out.WriteByte('\n')
		}
	}

	if len(conds) != 0 {
		return "", &ParseError{Path: path, Line: len(lines), Col: 1, Msg: "unterminated `ifdef"}
	}
	return out.String(), nil
}

// substitute replaces `NAME macro uses with their defined bodies. Expansion
// is repeated so macros may refer to other macros, with a fixed bound to stop
// self-referential definitions.
func (p *preprocessor) substitute(line string) string {
	for round := 0; round < 8; round++ {
		idx := strings.IndexByte(line, '`')
		if idx < 0 {
			return line
		}
		changed := false
		var out strings.Builder
		for i := 0; i < len(line); {
			if line[i] != '`' {
				out.WriteByte(line[i])
				i++
				continue
			}
			j := i + 1
			for j < len(line) && isIdentPart(line[j]) {
				j++
			}
			name := line[i+1 : j]
			if body, ok := p.defines[name]; ok {
				out.WriteString(body)
				changed = true
			} else {
				out.WriteString(line[i:j])
			}
			i = j
		}
		line = out.String()
		if !changed {
			return line
		}
	}
	return line
}

func (p *preprocessor) resolveInclude(target, fromPath string) (content, resolved string, err error) {
	var candidates []string
	if dir := filepath.Dir(fromPath); fromPath != "" && dir != "" {
		candidates = append(candidates, filepath.Join(dir, target))
	}
	for _, inc := range p.includePaths {
		candidates = append(candidates, filepath.Join(inc, target))
	}
	for _, candidate := range candidates {
		data, readErr := os.ReadFile(candidate)
		if readErr == nil {
			return string(data), candidate, nil
		}
	}
	return "", "", fmt.Errorf("cannot resolve include %q", target)
}

func splitDirective(s string) (directive, rest string) {
	i := 0
	for i < len(s) && isIdentPart(s[i]) {
		i++
	}
	return s[:i], strings.TrimSpace(s[i:])
}

func firstWord(s string) string {
	i := 0
	for i < len(s) && isIdentPart(s[i]) {
		i++
	}
	return s[:i]
}

// splitDefine separates a macro name from its body. Parameterized macros are
// recorded with an empty body; this subset does not expand their arguments.
func splitDefine(s string) (name, value string) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && isIdentPart(s[i]) {
		i++
	}
	name = s[:i]
	if i < len(s) && s[i] == '(' {
		return name, ""
	}
	return name, strings.TrimSpace(s[i:])
}

func includeTarget(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' {
		if end := strings.IndexByte(s[1:], '"'); end >= 0 {
			return s[1 : 1+end]
		}
	}
	if len(s) >= 2 && s[0] == '<' {
		if end := strings.IndexByte(s[1:], '>'); end >= 0 {
			return s[1 : 1+end]
		}
	}
	return ""
}
