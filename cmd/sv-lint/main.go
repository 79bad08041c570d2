// sv-lint turns a SystemVerilog source tree into a queryable structural
// netlist and checks it against policy rules.
//
// The pipeline:
//  1. The syntax package parses each file into a tagged node stream
//  2. The netlist pass extracts modules, ports, instances and connections
//  3. Fact tables aggregate the per-file netlists
//  4. The CUE validator enforces the data contract
//  5. OPA evaluates policy rules against the tables
//  6. Violations are reported per file with module/instance context

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/robert-at-pretension-io/sv-netlist/internal/config"
	"github.com/robert-at-pretension-io/sv-netlist/internal/loader"
	"github.com/robert-at-pretension-io/sv-netlist/internal/validator"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]

	switch cmd {
	case "init":
		runInit()
	case "-v", "--verbose":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		runLint(os.Args[2], "", true, false)
	case "-j", "--json":
		if len(os.Args) < 3 {
			printUsage()
			os.Exit(1)
		}
		runLint(os.Args[2], "", false, true)
	case "-h", "--help", "help":
		printUsage()
	case "-c", "--config":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		runLintWithConfig(os.Args[2], os.Args[3])
	case "-p", "--policy":
		if len(os.Args) < 4 {
			printUsage()
			os.Exit(1)
		}
		runLint(os.Args[3], os.Args[2], false, false)
	default:
		runLint(cmd, "", false, false)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Usage: sv-lint [command] [options] <path>

Commands:
  init              Create a sv_netlist.json configuration file
  <path>            Lint SystemVerilog files in the given path

Options:
  -v, --verbose     Enable verbose output
  -j, --json        Emit the full result as JSON
  -c, --config      Specify config file: sv-lint -c config.json <path>
  -p, --policy      Specify a custom policy rule directory
  -h, --help        Show this help message

Configuration:
  sv-lint looks for configuration in:
    1. ./sv_netlist.json
    2. ./.sv_netlist.json
    3. ~/.config/sv_netlist/config.json

  Run 'sv-lint init' to create a default configuration file.`)
}

func runInit() {
	configPath := "sv_netlist.json"

	if _, err := os.Stat(configPath); err == nil {
		fmt.Printf("Config file %s already exists. Overwrite? [y/N]: ", configPath)
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return
		}
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s\n", configPath)
	fmt.Println("\nEdit this file to configure:")
	fmt.Println("  - Library file patterns")
	fmt.Println("  - Preprocessor defines and include paths")
	fmt.Println("  - Lint rule severities")
}

func runLint(path, policyDir string, verbose, jsonOutput bool) {
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Printf("Warning: Could not load config: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	lint(cfg, path, policyDir, verbose, jsonOutput)
}

func runLintWithConfig(configPath, lintPath string) {
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config %s: %v\n", configPath, err)
		os.Exit(1)
	}
	lint(cfg, lintPath, "", false, false)
}

func lint(cfg *config.Config, path, policyDir string, verbose, jsonOutput bool) {
	l := loader.NewWithConfig(cfg)
	l.Verbose = verbose

	result, err := l.Lint(path, policyDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if jsonOutput {
		ov, err := validator.NewOutputValidator()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output validator: %v\n", err)
			os.Exit(1)
		}
		if err := ov.Validate(struct {
			Violations interface{} `json:"violations"`
			Summary    interface{} `json:"summary"`
		}{Violations: result.Violations, Summary: result.Summary}); err != nil {
			fmt.Fprintf(os.Stderr, "Output validation failed: %v\n", err)
			os.Exit(1)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding result: %v\n", err)
			os.Exit(1)
		}
	} else {
		printResult(result)
	}

	if result.Summary.Errors > 0 {
		os.Exit(1)
	}
}

func printResult(result *loader.LintResult) {
	for _, pe := range result.ParseErrors {
		fmt.Printf("%s: parse error: %s\n", pe.File, pe.Message)
	}

	for _, v := range result.Violations {
		location := v.Module
		if v.Instance != "" {
			location = fmt.Sprintf("%s/%s", v.Module, v.Instance)
		}
		fmt.Printf("%s: %s: %s (%s) [%s]\n", v.File, v.Severity, v.Message, location, v.Rule)
	}

	s := result.Summary
	fmt.Printf("\n%d violations: %d errors, %d warnings, %d info\n",
		s.TotalViolations, s.Errors, s.Warnings, s.Info)
	fmt.Printf("Analyzed %d files, %d modules, %d instances\n",
		result.Stats.Files, result.Stats.Modules, result.Stats.Instances)
}
