package pipeline

import (
	"log/slog"

	"github.com/nao1215/apkscan/internal/analysis"
	"github.com/nao1215/apkscan/internal/decompiler"
)

// Store is the persistence the scan pipeline writes to.
type Store interface {
	ManifestStore
	ResultStore
}

// ScanConfig selects and wires the steps of a scan.
type ScanConfig struct {
	// Store persists results. A nil Store disables persistence and the
	// record step.
	Store Store

	// Decompiler produces the source tree. Required when Obfuscation or
	// Secrets is enabled.
	Decompiler decompiler.Decompiler

	// OutputBase is the directory decompiled trees are written under.
	OutputBase string

	// Obfuscation enables the obfuscation analyzer.
	Obfuscation bool

	// Secrets enables the secret scanner.
	Secrets bool

	// ObfuscationAnalyzer and SecretScanner override the defaults.
	ObfuscationAnalyzer *analysis.ObfuscationAnalyzer
	SecretScanner       *analysis.SecretScanner

	// Analyzer derives findings; defaults to analysis.NewAnalyzer.
	Analyzer *analysis.Analyzer

	Logger *slog.Logger
}

// NeedsSource reports whether the configuration requires decompilation.
func (c ScanConfig) NeedsSource() bool {
	return c.Obfuscation || c.Secrets
}

// NewScanPipeline builds a fresh pipeline for one APK. Steps share a new
// State, so a pipeline must not be reused across APKs.
func NewScanPipeline(cfg ScanConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	state := &State{}
	p := New(WithLogger(logger), WithContinueOnError(true))
	p.AddStep(NewManifestStep(cfg.Store, state, logger))

	if cfg.NeedsSource() && cfg.Decompiler != nil {
		p.AddStep(NewDecompileStep(cfg.Decompiler, cfg.OutputBase))
	}
	if cfg.Obfuscation {
		oa := cfg.ObfuscationAnalyzer
		if oa == nil {
			oa = analysis.NewObfuscationAnalyzer(analysis.WithObfuscationLogger(logger))
		}
		p.AddStep(NewObfuscationStep(oa, cfg.Store))
	}
	if cfg.Secrets {
		ss := cfg.SecretScanner
		if ss == nil {
			ss = analysis.NewSecretScanner(analysis.WithSecretLogger(logger))
		}
		p.AddStep(NewSecretStep(ss, cfg.Store))
	}

	an := cfg.Analyzer
	if an == nil {
		an = analysis.NewAnalyzer(func(o *analysis.AnalyzerOptions) {
			o.Logger = logger
		})
	}
	p.AddStep(NewFindingsStep(an, state))

	if cfg.Store != nil {
		p.AddStep(NewRecordStep(cfg.Store))
	}
	return p
}
