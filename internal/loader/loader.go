package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/robert-at-pretension-io/sv-netlist/internal/config"
	"github.com/robert-at-pretension-io/sv-netlist/internal/facts"
	"github.com/robert-at-pretension-io/sv-netlist/internal/netlist"
	"github.com/robert-at-pretension-io/sv-netlist/internal/syntax"
)

// Loader discovers SystemVerilog sources, parses them and extracts the
// per-file netlists that feed the fact tables. Parse failures are collected
// rather than aborting the run so one broken file does not hide the rest of
// the design.
type Loader struct {
	// Configuration loaded from sv_netlist.json
	Config *config.Config

	// Resolved library information (file -> library mapping)
	FileLibraries map[string]config.FileLibraryInfo

	// Files parsed in library mode (unknown top-level constructs skimmed)
	libraryParse map[string]bool

	// Parse errors encountered during the last run
	ParseErrors []ParseError

	// Verbose output
	Verbose bool
}

// ParseError represents a file that failed to parse
type ParseError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// New creates a new Loader with default configuration
func New() *Loader {
	return &Loader{
		Config:        config.DefaultConfig(),
		FileLibraries: make(map[string]config.FileLibraryInfo),
		libraryParse:  make(map[string]bool),
	}
}

// NewWithConfig creates a new Loader with the given configuration
func NewWithConfig(cfg *config.Config) *Loader {
	l := New()
	l.Config = cfg
	return l
}

// Run discovers and parses all configured files under rootPath and returns
// the per-file netlists, sorted by file path.
func (l *Loader) Run(rootPath string) ([]facts.FileNetlist, error) {
	if l.Config == nil {
		cfg, err := config.Load(rootPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		l.Config = cfg
	}

	// Reset per-run state
	l.FileLibraries = make(map[string]config.FileLibraryInfo)
	l.libraryParse = make(map[string]bool)
	l.ParseErrors = nil

	files, err := l.discoverFiles(rootPath)
	if err != nil {
		return nil, err
	}

	if l.Verbose {
		fmt.Printf("Found %d source files\n", len(files))
	}

	opts := l.parseOptions()

	type parseOutcome struct {
		result facts.FileNetlist
		err    *ParseError
	}

	workers := l.Config.Analysis.MaxParallelFiles
	if workers <= 0 {
		workers = 8
	}
	sem := make(chan struct{}, workers)
	outcomes := make(chan parseOutcome, len(files))

	var wg sync.WaitGroup
	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tree, err := l.parseFile(f, opts)
			if err != nil {
				outcomes <- parseOutcome{err: &ParseError{File: f, Message: err.Error()}}
				return
			}

			info := l.FileLibraries[f]
			outcomes <- parseOutcome{result: facts.FileNetlist{
				File:       f,
				Library:    info.LibraryName,
				ThirdParty: info.IsThirdParty,
				Modules:    netlist.Topology(tree),
				Instances:  netlist.InstanceMap(tree),
			}}
		}(file)
	}
	wg.Wait()
	close(outcomes)

	var results []facts.FileNetlist
	for outcome := range outcomes {
		if outcome.err != nil {
			l.ParseErrors = append(l.ParseErrors, *outcome.err)
			continue
		}
		results = append(results, outcome.result)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].File < results[j].File })
	sort.Slice(l.ParseErrors, func(i, j int) bool { return l.ParseErrors[i].File < l.ParseErrors[j].File })

	return results, nil
}

func (l *Loader) parseOptions() syntax.Options {
	return syntax.Options{
		Defines:         l.Config.Defines,
		IncludePaths:    l.Config.IncludePaths,
		IgnoreInclude:   l.Config.IgnoreInclude,
		AllowIncomplete: l.Config.AllowIncomplete,
	}
}

func (l *Loader) parseFile(path string, opts syntax.Options) (*syntax.Tree, error) {
	if l.libraryParse[path] {
		return syntax.ParseLibraryFile(path, opts)
	}
	return syntax.ParseFile(path, opts)
}

// discoverFiles resolves the configured libraries into a deduplicated,
// ignore-filtered file list and records per-file library info.
func (l *Loader) discoverFiles(rootPath string) ([]string, error) {
	var files []string

	if len(l.Config.Libraries) > 0 || len(l.Config.Files) > 0 {
		libs, err := l.Config.ResolveLibraries(rootPath)
		if err != nil {
			return nil, fmt.Errorf("resolve libraries: %w", err)
		}

		fileSet := make(map[string]bool)
		for _, lib := range libs {
			for _, f := range lib.Files {
				if fileSet[f] {
					continue
				}
				fileSet[f] = true
				files = append(files, f)

				l.FileLibraries[f] = config.FileLibraryInfo{
					LibraryName:  lib.Name,
					IsThirdParty: lib.IsThirdParty,
				}
				if lib.UseLibraryParse || lib.IsThirdParty {
					l.libraryParse[f] = true
				}
			}
		}

		if l.Verbose {
			fmt.Printf("Loaded configuration with %d libraries\n", len(libs))
			for _, lib := range libs {
				thirdParty := ""
				if lib.IsThirdParty {
					thirdParty = " (third-party)"
				}
				fmt.Printf("  %s: %d files%s\n", lib.Name, len(lib.Files), thirdParty)
			}
		}
	}

	// Fallback to directory scan if no files from config
	if len(files) == 0 {
		scanned, err := findSourceFiles(rootPath)
		if err != nil {
			return nil, fmt.Errorf("scanning files: %w", err)
		}
		files = scanned
		for _, f := range files {
			l.FileLibraries[f] = config.FileLibraryInfo{LibraryName: "work"}
		}
	}

	var filtered []string
	for _, f := range files {
		if !l.Config.ShouldIgnoreFile(f) {
			filtered = append(filtered, f)
		}
	}
	sort.Strings(filtered)

	return filtered, nil
}

func findSourceFiles(rootPath string) ([]string, error) {
	var files []string
	err := filepath.Walk(rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors, continue walking
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && path != rootPath {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".sv" || ext == ".v" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
