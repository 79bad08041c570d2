package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/robert-at-pretension-io/sv-netlist/internal/config"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestRunDiscoversAndParses(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "top.sv", `module top;
  sub u0 (.in(x));
endmodule
`)
	writeFile(t, root, "sub.sv", `module sub(input in);
endmodule
`)

	l := New()
	results, err := l.Run(root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %#v", results)
	}
	if len(l.ParseErrors) != 0 {
		t.Fatalf("unexpected parse errors: %#v", l.ParseErrors)
	}

	// Sorted by path: sub.sv before top.sv
	if filepath.Base(results[0].File) != "sub.sv" || filepath.Base(results[1].File) != "top.sv" {
		t.Fatalf("results not sorted by file: %q, %q", results[0].File, results[1].File)
	}
	if results[0].Library != "work" {
		t.Fatalf("expected work library, got %q", results[0].Library)
	}
	if len(results[1].Modules) != 1 || results[1].Modules[0].Name != "top" {
		t.Fatalf("top module not extracted: %#v", results[1].Modules)
	}
	if got := results[1].Instances["top"]; len(got) != 1 || got[0].ModuleName != "sub" {
		t.Fatalf("instance map not extracted: %#v", results[1].Instances)
	}
}

func TestRunCollectsParseErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "good.sv", `module good;
endmodule
`)
	bad := writeFile(t, root, "bad.sv", "this is not verilog")

	l := New()
	results, err := l.Run(root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || filepath.Base(results[0].File) != "good.sv" {
		t.Fatalf("good file should still parse: %#v", results)
	}
	if len(l.ParseErrors) != 1 || l.ParseErrors[0].File != bad {
		t.Fatalf("expected one parse error for %s, got %#v", bad, l.ParseErrors)
	}
}

func TestRunUsesLibraryParseForThirdParty(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "vendor/ip.sv", `package vendor_pkg;
endpackage

module ip(input clk);
endmodule
`)

	cfg := config.DefaultConfig()
	cfg.Libraries = map[string]config.LibraryConfig{
		"vendor": {Files: []string{"vendor/*.sv"}, IsThirdParty: true},
	}

	l := NewWithConfig(cfg)
	results, err := l.Run(root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(l.ParseErrors) != 0 {
		t.Fatalf("third-party file should be skimmed, got %#v", l.ParseErrors)
	}
	if len(results) != 1 || !results[0].ThirdParty || results[0].Library != "vendor" {
		t.Fatalf("unexpected result: %#v", results)
	}
	if len(results[0].Modules) != 1 || results[0].Modules[0].Name != "ip" {
		t.Fatalf("module not extracted from library file: %#v", results[0].Modules)
	}
}

func TestRunAppliesIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "core.sv", "module core;\nendmodule\n")
	writeFile(t, root, "core_tb.sv", "module core_tb;\nendmodule\n")

	cfg := config.DefaultConfig()
	cfg.Lint.IgnorePatterns = []string{"*_tb.sv"}

	l := NewWithConfig(cfg)
	results, err := l.Run(root)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || filepath.Base(results[0].File) != "core.sv" {
		t.Fatalf("testbench not ignored: %#v", results)
	}
}

func TestLintEndToEnd(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "design.sv", `module top;
  sub u0 (.in(x), .bogus(y));
  ghost u1 ();
endmodule

module sub(input in);
endmodule
`)

	l := New()
	result, err := l.Lint(root, "")
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}

	rules := map[string]int{}
	for _, v := range result.Violations {
		rules[v.Rule]++
	}
	if rules["undeclared-module"] != 1 {
		t.Fatalf("expected undeclared-module violation, got %v", rules)
	}
	if rules["unknown-port"] != 1 {
		t.Fatalf("expected unknown-port violation, got %v", rules)
	}
	if result.Summary.TotalViolations != len(result.Violations) {
		t.Fatalf("summary mismatch: %+v vs %d violations", result.Summary, len(result.Violations))
	}
	if result.Stats.Modules != 2 || result.Stats.Instances != 2 {
		t.Fatalf("unexpected stats: %+v", result.Stats)
	}
	if len(result.Files) == 0 {
		t.Fatalf("expected per-file breakdown")
	}
}

func TestLintRespectsRuleConfig(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "design.sv", `module top;
  ghost u1 ();
endmodule
`)

	cfg := config.DefaultConfig()
	cfg.Lint.Rules["undeclared-module"] = "off"

	l := NewWithConfig(cfg)
	result, err := l.Lint(root, "")
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	for _, v := range result.Violations {
		if v.Rule == "undeclared-module" {
			t.Fatalf("disabled rule still reported: %+v", v)
		}
	}

	cfg = config.DefaultConfig()
	cfg.Lint.Rules["undeclared-module"] = "warning"
	l = NewWithConfig(cfg)
	result, err = l.Lint(root, "")
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	found := false
	for _, v := range result.Violations {
		if v.Rule == "undeclared-module" {
			found = true
			if v.Severity != "warning" {
				t.Fatalf("severity override not applied: %+v", v)
			}
		}
	}
	if !found {
		t.Fatalf("expected downgraded violation, got %+v", result.Violations)
	}
}

func TestLintSuppressesThirdPartyWarnings(t *testing.T) {
	root := t.TempDir()
	// An unconnected input inside a third-party file is only a warning and
	// should be suppressed.
	writeFile(t, root, "vendor/ip.sv", `module ip;
  leaf u0 ();
endmodule

module leaf(input clk);
endmodule
`)

	cfg := config.DefaultConfig()
	cfg.Libraries = map[string]config.LibraryConfig{
		"vendor": {Files: []string{"vendor/*.sv"}, IsThirdParty: true},
	}

	l := NewWithConfig(cfg)
	result, err := l.Lint(root, "")
	if err != nil {
		t.Fatalf("Lint: %v", err)
	}
	for _, v := range result.Violations {
		if v.Severity == "warning" {
			t.Fatalf("third-party warning not suppressed: %+v", v)
		}
	}
}
