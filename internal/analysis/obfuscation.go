package analysis

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/nao1215/apkscan/internal/model"
)

// mappingArtifactNames are file names left behind by minifier configuration
// or output.
var mappingArtifactNames = map[string]bool{
	"mapping.txt":          true,
	"proguard.cfg":         true,
	"proguard-project.txt": true,
}

// sourceExtensions are the file extensions read for declarations.
var sourceExtensions = map[string]bool{
	".java": true,
	".kt":   true,
}

var (
	// obfuscatedNamePattern matches one- or two-letter names, the shape
	// minifiers produce.
	obfuscatedNamePattern = regexp.MustCompile(`^[A-Za-z]{1,2}$`)

	// classDeclPattern matches a declaration at the start of a line, after
	// block comments, annotations and modifiers.
	classDeclPattern = regexp.MustCompile(
		`^\s*(?:/\*.*?\*/\s*)*(?:@[\w.]+(?:\([^)]*\))?\s+)*` +
			`(?:(?:public|protected|private|internal|static|final|abstract|sealed|non-sealed|strictfp|open|data|inner|value|annotation|fun)\s+)*` +
			`(?:class|@?interface|enum(?:\s+class)?)\s+([A-Za-z_$][\w$]*)`)

	methodDeclPattern = regexp.MustCompile(
		`^\s*(?:(?:public|protected|private|static|final|abstract|synchronized|native|strictfp|default|override|suspend|open)\s+)*` +
			`(?:<[^>]*>\s+)?` +
			`([\w$.\[\]]+(?:<[^()=;]*>)?(?:\[\])*)\s+` +
			`([A-Za-z_$][\w$]*)\s*\(`)
)

// nonTypeTokens cannot start a method declaration; they show up in
// statements such as "return foo(x)" or "else if (x)".
var nonTypeTokens = map[string]bool{
	"return": true, "new": true, "throw": true, "else": true, "case": true,
	"package": true, "import": true, "yield": true, "await": true, "goto": true,
	"public": true, "protected": true, "private": true, "static": true, "final": true,
	"abstract": true, "synchronized": true, "native": true, "default": true,
}

// nonMethodNames are keywords that look like method names after a token.
var nonMethodNames = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"synchronized": true, "return": true, "new": true, "when": true,
}

// IsObfuscatedName reports whether name has the shape of a minified
// identifier: one or two ASCII letters.
func IsObfuscatedName(name string) bool {
	return obfuscatedNamePattern.MatchString(name)
}

// ObfuscationAnalyzer estimates how much of a decompiled tree was minified.
type ObfuscationAnalyzer struct {
	walker treeWalker
	logger *slog.Logger
}

// ObfuscationOption configures an ObfuscationAnalyzer.
type ObfuscationOption func(*obfuscationOptions)

type obfuscationOptions struct {
	workers  int
	skipDirs []string
	logger   *slog.Logger
}

// WithObfuscationWorkers sets the number of files read concurrently.
func WithObfuscationWorkers(n int) ObfuscationOption {
	return func(o *obfuscationOptions) {
		o.workers = n
	}
}

// WithObfuscationSkipDirs sets directory names that are not descended into.
func WithObfuscationSkipDirs(dirs []string) ObfuscationOption {
	return func(o *obfuscationOptions) {
		o.skipDirs = dirs
	}
}

// WithObfuscationLogger sets the logger.
func WithObfuscationLogger(logger *slog.Logger) ObfuscationOption {
	return func(o *obfuscationOptions) {
		o.logger = logger
	}
}

// NewObfuscationAnalyzer creates an ObfuscationAnalyzer.
func NewObfuscationAnalyzer(opts ...ObfuscationOption) *ObfuscationAnalyzer {
	o := &obfuscationOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &ObfuscationAnalyzer{
		walker: newTreeWalker(o.workers, o.skipDirs, o.logger),
		logger: o.logger,
	}
}

// FindMappingArtifacts returns the slash-separated paths, relative to root,
// of every mapping or minifier configuration file in the tree, sorted.
func (a *ObfuscationAnalyzer) FindMappingArtifacts(ctx context.Context, root string) ([]string, error) {
	var (
		mu        sync.Mutex
		artifacts = []string{}
	)
	include := func(rel string) bool {
		return mappingArtifactNames[path.Base(rel)]
	}
	_, err := a.walker.walk(ctx, root, include, func(_ context.Context, _, rel string) error {
		mu.Lock()
		artifacts = append(artifacts, rel)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(artifacts)
	return artifacts, nil
}

// declarations holds the distinct class and method names of one or more
// files.
type declarations struct {
	classes map[string]struct{}
	methods map[string]struct{}
}

func newDeclarations() *declarations {
	return &declarations{
		classes: make(map[string]struct{}),
		methods: make(map[string]struct{}),
	}
}

func (d *declarations) merge(other *declarations) {
	for n := range other.classes {
		d.classes[n] = struct{}{}
	}
	for n := range other.methods {
		d.methods[n] = struct{}{}
	}
}

// Analyze scans every Java and Kotlin file under root and reports how many
// distinct class and method names look minified. A missing root yields
// model.ErrInputNotFound; an empty tree yields an all-zero report.
func (a *ObfuscationAnalyzer) Analyze(ctx context.Context, root string) (*model.ObfuscationReport, error) {
	artifacts, err := a.FindMappingArtifacts(ctx, root)
	if err != nil {
		return nil, err
	}

	var (
		mu      sync.Mutex
		all     = newDeclarations()
		scanned int
	)
	include := func(rel string) bool {
		return sourceExtensions[strings.ToLower(path.Ext(rel))]
	}
	skipped, err := a.walker.walk(ctx, root, include, func(ctx context.Context, file, rel string) error {
		decls, err := scanDeclarations(ctx, file)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s: %v", ErrFileUnreadable, rel, err)
		}
		mu.Lock()
		all.merge(decls)
		scanned++
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}

	report := &model.ObfuscationReport{
		TotalClassCount:  len(all.classes),
		TotalMethodCount: len(all.methods),
		MappingArtifacts: artifacts,
		FilesScanned:     scanned,
		FilesSkipped:     skipped,
	}
	for n := range all.classes {
		if IsObfuscatedName(n) {
			report.ObfuscatedClassCount++
		}
	}
	for n := range all.methods {
		if IsObfuscatedName(n) {
			report.ObfuscatedMethodCount++
		}
	}

	a.logger.Debug("obfuscation analysis complete",
		"root", root,
		"classes", report.TotalClassCount,
		"obfuscated_classes", report.ObfuscatedClassCount,
		"methods", report.TotalMethodCount,
		"obfuscated_methods", report.ObfuscatedMethodCount,
		"artifacts", len(artifacts),
	)
	return report, nil
}

// scanDeclarations collects the class and method names declared in one file.
func scanDeclarations(ctx context.Context, file string) (*declarations, error) {
	f, err := os.Open(file) //nolint:gosec // path comes from a directory walk
	if err != nil {
		return nil, err
	}
	defer f.Close()

	decls := newDeclarations()
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		line := sc.Text()
		if m := classDeclPattern.FindStringSubmatch(line); m != nil {
			decls.classes[m[1]] = struct{}{}
		}
		if m := methodDeclPattern.FindStringSubmatch(line); m != nil {
			if !nonTypeTokens[m[1]] && !nonMethodNames[m[2]] {
				decls.methods[m[2]] = struct{}{}
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return decls, nil
}
