package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Standard != "2017" {
		t.Fatalf("default standard = %q", cfg.Standard)
	}
	lib, ok := cfg.Libraries["work"]
	if !ok {
		t.Fatalf("default config missing work library")
	}
	if len(lib.Files) == 0 {
		t.Fatalf("work library has no file patterns")
	}
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sv_netlist.json")
	raw := `{
  "includePaths": ["include"],
  "lint": {"rules": {"unconnected-input": "off"}}
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Standard != "2017" {
		t.Fatalf("standard default not applied: %q", cfg.Standard)
	}
	if cfg.Defines == nil {
		t.Fatalf("defines map not initialized")
	}
	if _, ok := cfg.Libraries["work"]; !ok {
		t.Fatalf("work library default not applied")
	}
	if len(cfg.IncludePaths) != 1 || cfg.IncludePaths[0] != "include" {
		t.Fatalf("include paths not loaded: %v", cfg.IncludePaths)
	}
}

func TestLoadFileRejectsBadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Standard != "2017" {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sv_netlist.json")

	cfg := DefaultConfig()
	cfg.Defines["SYNTHESIS"] = "1"
	cfg.AllowIncomplete = true
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Defines["SYNTHESIS"] != "1" {
		t.Fatalf("defines not round-tripped: %v", loaded.Defines)
	}
	if !loaded.AllowIncomplete {
		t.Fatalf("AllowIncomplete not round-tripped")
	}
}

func TestRuleSeverityAndEnablement(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lint.Rules["unconnected-input"] = "off"
	cfg.Lint.Rules["unknown-port"] = "warning"

	if cfg.IsRuleEnabled("unconnected-input") {
		t.Fatalf("rule set to off should be disabled")
	}
	if !cfg.IsRuleEnabled("undeclared-module") {
		t.Fatalf("unconfigured rule should be enabled")
	}
	if got := cfg.GetRuleSeverity("unknown-port", "error"); got != "warning" {
		t.Fatalf("severity override not applied: %q", got)
	}
	if got := cfg.GetRuleSeverity("undeclared-module", "error"); got != "error" {
		t.Fatalf("default severity not returned: %q", got)
	}
}

func TestIsThirdPartyFile(t *testing.T) {
	cfg := Config{
		Files: []FileEntry{
			{File: "vendor/ip.sv", IsThirdParty: true},
		},
		Libraries: map[string]LibraryConfig{
			"vendor": {Files: []string{"third_party/*.sv"}, IsThirdParty: true},
		},
	}

	if !cfg.IsThirdPartyFile("vendor/ip.sv") {
		t.Fatalf("explicit entry not recognized")
	}
	if !cfg.IsThirdPartyFile("third_party/mem.sv") {
		t.Fatalf("library pattern not recognized")
	}
	if cfg.IsThirdPartyFile("rtl/top.sv") {
		t.Fatalf("unrelated file flagged as third-party")
	}
}

func TestShouldIgnoreFile(t *testing.T) {
	cfg := Config{
		Lint: LintConfig{IgnorePatterns: []string{"*_tb.sv"}},
	}
	if !cfg.ShouldIgnoreFile("sim/core_tb.sv") {
		t.Fatalf("ignore pattern not matched against base name")
	}
	if cfg.ShouldIgnoreFile("rtl/core.sv") {
		t.Fatalf("unrelated file ignored")
	}
}
