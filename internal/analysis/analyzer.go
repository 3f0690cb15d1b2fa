package analysis

import (
	"context"
	"log/slog"

	"github.com/nao1215/apkscan/internal/manifest"
	"github.com/nao1215/apkscan/internal/model"
)

// Analyzer category constants.
const (
	// CategoryManifest is used by analyzers that read manifest declarations.
	CategoryManifest = "manifest"
	// CategoryCode is used by analyzers that read the decompiled tree.
	CategoryCode = "code"
	// CategoryAsset is used by analyzers that read bundled resources.
	CategoryAsset = "asset"
)

// CheckAnalyzer turns scan data into findings.
type CheckAnalyzer interface {
	// Name returns the analyzer's name for logging and reporting.
	Name() string

	// Category returns the analyzer's category.
	Category() string

	// Analyze runs the analysis on the provided data.
	Analyze(ctx context.Context, data *AnalysisData) ([]model.Finding, error)
}

// AnalysisData is everything a scan has produced so far. Fields are nil or
// empty when the corresponding step did not run.
type AnalysisData struct {
	// Manifest is the walker result of the package manifest.
	Manifest *manifest.Result

	// SourceRoot is the decompiled source tree.
	SourceRoot string

	// Obfuscation is the obfuscation analyzer result.
	Obfuscation *model.ObfuscationReport
}

// Analyzer coordinates the registered CheckAnalyzers.
type Analyzer struct {
	analyzers []CheckAnalyzer
	options   AnalyzerOptions
	logger    *slog.Logger
}

// AnalyzerOptions configures the built-in analyzer set.
type AnalyzerOptions struct {
	// EnableEXIF enables EXIF extraction from bundled images.
	EnableEXIF bool

	// Logger receives analyzer failures; slog.Default when nil.
	Logger *slog.Logger
}

// DefaultOptions returns the default analyzer options.
func DefaultOptions() AnalyzerOptions {
	return AnalyzerOptions{
		EnableEXIF: true,
	}
}

// NewAnalyzer creates an Analyzer with all built-in analyzers registered.
func NewAnalyzer(opts ...func(*AnalyzerOptions)) *Analyzer {
	options := DefaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	a := &Analyzer{
		options: options,
		logger:  options.Logger,
	}
	a.Register(NewManifestRiskAnalyzer())
	a.Register(NewObfuscationFindingAnalyzer())
	if options.EnableEXIF {
		a.Register(NewEXIFAnalyzer())
	}
	return a
}

// Register adds an analyzer.
func (a *Analyzer) Register(analyzer CheckAnalyzer) {
	a.analyzers = append(a.analyzers, analyzer)
}

// Analyzers returns the registered analyzers.
func (a *Analyzer) Analyzers() []CheckAnalyzer {
	return a.analyzers
}

// Analyze runs all registered analyzers and returns their deduplicated
// findings. A failing analyzer is logged and skipped.
func (a *Analyzer) Analyze(ctx context.Context, data *AnalysisData) ([]model.Finding, error) {
	var all []model.Finding
	for _, analyzer := range a.analyzers {
		select {
		case <-ctx.Done():
			return deduplicateFindings(all), ctx.Err()
		default:
		}

		findings, err := analyzer.Analyze(ctx, data)
		if err != nil {
			a.logger.Warn("analyzer failed", "analyzer", analyzer.Name(), "error", err)
			continue
		}
		all = append(all, findings...)
	}
	return deduplicateFindings(all), nil
}

// deduplicateFindings removes findings with the same type, value and
// location, keeping the most severe instance.
func deduplicateFindings(findings []model.Finding) []model.Finding {
	seen := make(map[string]int)
	result := make([]model.Finding, 0, len(findings))
	for _, f := range findings {
		key := f.Type + "|" + f.Value + "|" + f.Location
		if idx, ok := seen[key]; ok {
			if f.Severity > result[idx].Severity {
				result[idx] = f
			}
			continue
		}
		seen[key] = len(result)
		result = append(result, f)
	}
	return result
}
