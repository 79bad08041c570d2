package syntax

import (
	"fmt"
	"os"
)

// Options controls preprocessing and parse tolerance for all four parse
// entry points.
type Options struct {
	// Defines are macro definitions supplied before the source is read,
	// as if each had appeared in a `define directive.
	Defines map[string]string

	// IncludePaths are the directories searched when resolving `include
	// directives, after the including file's own directory.
	IncludePaths []string

	// IgnoreInclude skips `include resolution entirely.
	IgnoreInclude bool

	// AllowIncomplete accepts source that ends mid-construct instead of
	// reporting a parse error; open nodes are closed at end of input.
	AllowIncomplete bool
}

// ParseError reports a failure to build a syntax tree.
type ParseError struct {
	Path string
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
	}
	return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Line, e.Col, e.Msg)
}

// ParseFile parses a SystemVerilog source file.
func ParseFile(path string, opts Options) (*Tree, error) {
	return parseFile(path, opts, false)
}

// ParseText parses in-memory SystemVerilog source. The path is used only for
// error reporting and `include resolution.
func ParseText(text, path string, opts Options) (*Tree, error) {
	return parse(text, path, opts, false)
}

// ParseLibraryFile parses a library-style source file. Library parsing skims
// over top-level constructs it does not recognize instead of failing, which
// suits vendor files that mix modules with unsupported material.
func ParseLibraryFile(path string, opts Options) (*Tree, error) {
	return parseFile(path, opts, true)
}

// ParseLibraryText is the in-memory form of ParseLibraryFile.
func ParseLibraryText(text, path string, opts Options) (*Tree, error) {
	return parse(text, path, opts, true)
}

func parseFile(path string, opts Options, library bool) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading source file: %w", err)
	}
	return parse(string(data), path, opts, library)
}

func parse(text, path string, opts Options, library bool) (*Tree, error) {
	expanded, err := newPreprocessor(opts).expand(text, path, 0)
	if err != nil {
		return nil, err
	}

	p := &parser{
		lex:             newLexer(expanded),
		b:               newTreeBuilder(expanded),
		path:            path,
		library:         library,
		allowIncomplete: opts.AllowIncomplete,
	}
	p.next()
	p.next()
	return p.parseSourceText()
}
