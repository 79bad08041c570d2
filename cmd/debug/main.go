package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/robert-at-pretension-io/sv-netlist/internal/syntax"
)

// Dumps the tagged node stream for a source file, one node per line.
// Useful when a construct is not showing up in the extracted netlist.
func main() {
	var tree *syntax.Tree
	var err error

	if len(os.Args) > 1 {
		tree, err = syntax.ParseLibraryFile(os.Args[1], syntax.Options{AllowIncomplete: true})
	} else {
		source := `module top;
  sub #(.WIDTH(8)) u0 (.clk(clk), .din(data));
endmodule

module sub(input clk, input [7:0] din);
endmodule
`
		tree, err = syntax.ParseText(source, "sample.sv", syntax.Options{})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse: %v\n", err)
		os.Exit(1)
	}

	for _, n := range tree.Nodes() {
		text := tree.Text(n)
		if len(text) > 60 {
			text = text[:60] + "..."
		}
		text = strings.ReplaceAll(text, "\n", "\\n")
		fmt.Printf("%-28s %q\n", n.Tag(), text)
	}
}
