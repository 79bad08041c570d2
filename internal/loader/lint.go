package loader

import (
	"fmt"

	"github.com/robert-at-pretension-io/sv-netlist/internal/facts"
	"github.com/robert-at-pretension-io/sv-netlist/internal/policy"
	"github.com/robert-at-pretension-io/sv-netlist/internal/validator"
)

// LintResult is the structured result of running the linter.
// This can be serialized to JSON for programmatic consumption.
type LintResult struct {
	// Violations found by policy evaluation
	Violations []policy.Violation `json:"violations"`

	// Summary counts
	Summary ResultSummary `json:"summary"`

	// Extraction statistics
	Stats ExtractionStats `json:"stats"`

	// Per-file breakdown
	Files []FileResult `json:"files"`

	// Parse errors encountered
	ParseErrors []ParseError `json:"parse_errors,omitempty"`
}

// ResultSummary provides aggregate violation counts
type ResultSummary struct {
	TotalViolations int `json:"total_violations"`
	Errors          int `json:"errors"`
	Warnings        int `json:"warnings"`
	Info            int `json:"info"`
}

// ExtractionStats provides counts of extracted elements
type ExtractionStats struct {
	Files       int `json:"files"`
	Modules     int `json:"modules"`
	Ports       int `json:"ports"`
	Instances   int `json:"instances"`
	Connections int `json:"connections"`
}

// FileResult provides per-file violation counts
type FileResult struct {
	Path     string `json:"path"`
	Errors   int    `json:"errors"`
	Warnings int    `json:"warnings"`
	Info     int    `json:"info"`
}

// Lint runs the full pipeline: parse, build fact tables, validate them
// against the CUE schema and evaluate the policy rules. policyDir selects a
// custom rule directory; empty means the built-in rules.
func (l *Loader) Lint(rootPath, policyDir string) (*LintResult, error) {
	results, err := l.Run(rootPath)
	if err != nil {
		return nil, err
	}

	tables := facts.BuildTables(results)

	fv, err := validator.NewFactsValidator()
	if err != nil {
		return nil, fmt.Errorf("create facts validator: %w", err)
	}
	if err := fv.Validate(tables); err != nil {
		return nil, fmt.Errorf("facts validation: %w", err)
	}

	var engine *policy.Engine
	if policyDir != "" {
		engine, err = policy.New(policyDir)
	} else {
		engine, err = policy.NewDefault()
	}
	if err != nil {
		return nil, fmt.Errorf("create policy engine: %w", err)
	}

	evalResult, err := engine.Evaluate(policy.InputFromTables(tables))
	if err != nil {
		return nil, fmt.Errorf("policy evaluation: %w", err)
	}

	result := &LintResult{
		Violations: l.applyRuleConfig(evalResult.Violations),
		Stats: ExtractionStats{
			Files:       len(tables.Files),
			Modules:     len(tables.Modules),
			Ports:       len(tables.Ports),
			Instances:   len(tables.Instances),
			Connections: len(tables.Connections),
		},
		ParseErrors: l.ParseErrors,
	}
	result.Summary = summarize(result.Violations)
	result.Files = perFileCounts(result.Violations)

	return result, nil
}

// applyRuleConfig drops disabled rules, applies severity overrides from the
// configuration and suppresses warnings for third-party files.
func (l *Loader) applyRuleConfig(violations []policy.Violation) []policy.Violation {
	out := make([]policy.Violation, 0, len(violations))
	for _, v := range violations {
		if !l.Config.IsRuleEnabled(v.Rule) {
			continue
		}
		v.Severity = l.Config.GetRuleSeverity(v.Rule, v.Severity)
		if v.Severity == "off" {
			continue
		}
		if v.Severity != "error" && l.isThirdParty(v.File) {
			continue
		}
		out = append(out, v)
	}
	return out
}

func (l *Loader) isThirdParty(file string) bool {
	if info, ok := l.FileLibraries[file]; ok {
		return info.IsThirdParty
	}
	return l.Config.IsThirdPartyFile(file)
}

func summarize(violations []policy.Violation) ResultSummary {
	s := ResultSummary{TotalViolations: len(violations)}
	for _, v := range violations {
		switch v.Severity {
		case "error":
			s.Errors++
		case "warning":
			s.Warnings++
		case "info":
			s.Info++
		}
	}
	return s
}

func perFileCounts(violations []policy.Violation) []FileResult {
	byFile := make(map[string]*FileResult)
	var order []string
	for _, v := range violations {
		fr, ok := byFile[v.File]
		if !ok {
			fr = &FileResult{Path: v.File}
			byFile[v.File] = fr
			order = append(order, v.File)
		}
		switch v.Severity {
		case "error":
			fr.Errors++
		case "warning":
			fr.Warnings++
		case "info":
			fr.Info++
		}
	}

	results := make([]FileResult, 0, len(order))
	for _, f := range order {
		results = append(results, *byFile[f])
	}
	return results
}
