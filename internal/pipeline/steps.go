package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/apkscan/internal/analysis"
	"github.com/nao1215/apkscan/internal/decompiler"
	"github.com/nao1215/apkscan/internal/manifest"
	"github.com/nao1215/apkscan/internal/model"
)

// ManifestStore persists extracted manifest data.
type ManifestStore interface {
	ClearManifest(ctx context.Context, appID int64) error
	SaveComponent(ctx context.Context, comp *model.Component, meta []model.MetaData) (int64, error)
	SavePermissions(ctx context.Context, appID int64, names []string) error
}

// ResultStore persists analyzer results and scan runs.
type ResultStore interface {
	SaveObfuscationReport(ctx context.Context, runID string, appID int64, report *model.ObfuscationReport) error
	SaveSecretFindings(ctx context.Context, runID string, appID int64, findings []model.SecretFinding) error
	SaveScanRun(ctx context.Context, report *model.ScanReport) error
	MarkScanned(ctx context.Context, id int64, at time.Time) error
}

// State carries intermediate results between the steps of one scan.
type State struct {
	// Manifest is the walker result, nil until the manifest step succeeds.
	Manifest *manifest.Result
}

// errNoAPK is returned by steps that run without a resolved package.
var errNoAPK = fmt.Errorf("%w: report has no resolved apk", model.ErrInputNotFound)

// ManifestStep loads the manifest of the APK, extracts its components and
// stores them. Components that cannot be built are reported as warnings;
// the others are kept.
type ManifestStep struct {
	store  ManifestStore
	walker *manifest.Walker
	state  *State
	logger *slog.Logger
}

// NewManifestStep creates a ManifestStep. store may be nil to skip
// persistence.
func NewManifestStep(store ManifestStore, state *State, logger *slog.Logger) *ManifestStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManifestStep{
		store:  store,
		walker: manifest.NewWalker(manifest.WithWalkerLogger(logger)),
		state:  state,
		logger: logger,
	}
}

// Name returns the step name.
func (s *ManifestStep) Name() string {
	return "manifest"
}

// Do executes the manifest step.
func (s *ManifestStep) Do(ctx context.Context, report *model.ScanReport) error {
	if report.APK == nil {
		return errNoAPK
	}
	apk := report.APK

	root, err := manifest.Load(apk.FilePath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	result, walkErr := s.walker.Extract(root, apk.ID)
	if walkErr != nil {
		report.ManifestWarnings = append(report.ManifestWarnings, splitJoined(walkErr)...)
	}
	if s.state != nil {
		s.state.Manifest = result
	}

	for _, entry := range result.Entries {
		report.ComponentCounts[entry.Component.Kind.String()]++
		report.MetaDataCount += len(entry.MetaData)
	}
	report.Permissions = result.Permissions

	if s.store == nil {
		return nil
	}
	return s.persist(ctx, apk.ID, result)
}

// persist replaces the stored manifest of appID. Each component is stored
// atomically with its meta-data; a failed component does not stop the rest.
func (s *ManifestStep) persist(ctx context.Context, appID int64, result *manifest.Result) error {
	if err := s.store.ClearManifest(ctx, appID); err != nil {
		return err
	}

	var errs []error
	for _, entry := range result.Entries {
		if _, err := s.store.SaveComponent(ctx, entry.Component, entry.MetaData); err != nil {
			s.logger.Warn("failed to store component",
				"kind", entry.Component.Kind.String(),
				"name", entry.Component.Name(),
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	if err := s.store.SavePermissions(ctx, appID, result.Permissions); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// splitJoined flattens an errors.Join tree into messages.
func splitJoined(err error) []string {
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		var msgs []string
		for _, e := range joined.Unwrap() {
			msgs = append(msgs, splitJoined(e)...)
		}
		return msgs
	}
	return []string{err.Error()}
}

// DecompileStep runs the decompiler and records the source tree location.
type DecompileStep struct {
	decompiler decompiler.Decompiler
	baseDir    string
}

// NewDecompileStep creates a DecompileStep writing trees under baseDir.
func NewDecompileStep(d decompiler.Decompiler, baseDir string) *DecompileStep {
	return &DecompileStep{decompiler: d, baseDir: baseDir}
}

// Name returns the step name.
func (s *DecompileStep) Name() string {
	return "decompile"
}

// Do executes the decompile step.
func (s *DecompileStep) Do(ctx context.Context, report *model.ScanReport) error {
	if report.APK == nil {
		return errNoAPK
	}
	apk := report.APK

	out := decompiler.OutputDir(s.baseDir, fmt.Sprintf("%d-%s", apk.ID, apk.FileName))
	if err := s.decompiler.Decompile(ctx, apk.FilePath, out); err != nil {
		return err
	}
	report.SourceDir = out
	return nil
}

// ObfuscationStep runs the obfuscation analyzer over the source tree.
type ObfuscationStep struct {
	analyzer *analysis.ObfuscationAnalyzer
	store    ResultStore
}

// NewObfuscationStep creates an ObfuscationStep. store may be nil.
func NewObfuscationStep(analyzer *analysis.ObfuscationAnalyzer, store ResultStore) *ObfuscationStep {
	return &ObfuscationStep{analyzer: analyzer, store: store}
}

// Name returns the step name.
func (s *ObfuscationStep) Name() string {
	return "obfuscation"
}

// Do executes the obfuscation step.
func (s *ObfuscationStep) Do(ctx context.Context, report *model.ScanReport) error {
	if report.SourceDir == "" {
		return fmt.Errorf("%w: no decompiled source tree", ErrStepSkipped)
	}
	result, err := s.analyzer.Analyze(ctx, report.SourceDir)
	if err != nil {
		return fmt.Errorf("obfuscation analysis: %w", err)
	}
	report.Obfuscation = result

	if s.store != nil && report.APK != nil {
		return s.store.SaveObfuscationReport(ctx, report.RunID, report.APK.ID, result)
	}
	return nil
}

// SecretStep runs the secret scanner over the source tree.
type SecretStep struct {
	scanner *analysis.SecretScanner
	store   ResultStore
}

// NewSecretStep creates a SecretStep. store may be nil.
func NewSecretStep(scanner *analysis.SecretScanner, store ResultStore) *SecretStep {
	return &SecretStep{scanner: scanner, store: store}
}

// Name returns the step name.
func (s *SecretStep) Name() string {
	return "secrets"
}

// Do executes the secret scanning step.
func (s *SecretStep) Do(ctx context.Context, report *model.ScanReport) error {
	if report.SourceDir == "" {
		return fmt.Errorf("%w: no decompiled source tree", ErrStepSkipped)
	}
	findings, err := s.scanner.Scan(ctx, report.SourceDir)
	if err != nil {
		return fmt.Errorf("secret scan: %w", err)
	}
	report.Secrets = findings

	if s.store != nil && report.APK != nil {
		return s.store.SaveSecretFindings(ctx, report.RunID, report.APK.ID, findings)
	}
	return nil
}

// FindingsStep derives findings from everything the scan produced so far.
type FindingsStep struct {
	analyzer *analysis.Analyzer
	state    *State
}

// NewFindingsStep creates a FindingsStep.
func NewFindingsStep(analyzer *analysis.Analyzer, state *State) *FindingsStep {
	return &FindingsStep{analyzer: analyzer, state: state}
}

// Name returns the step name.
func (s *FindingsStep) Name() string {
	return "findings"
}

// Do executes the findings step.
func (s *FindingsStep) Do(ctx context.Context, report *model.ScanReport) error {
	data := &analysis.AnalysisData{
		SourceRoot:  report.SourceDir,
		Obfuscation: report.Obfuscation,
	}
	if s.state != nil {
		data.Manifest = s.state.Manifest
	}

	findings, err := s.analyzer.Analyze(ctx, data)
	for _, f := range findings {
		report.AddFinding(f)
	}
	return err
}

// RecordStep stores the finished scan run and stamps the APK as scanned.
type RecordStep struct {
	store ResultStore
	now   func() time.Time
}

// NewRecordStep creates a RecordStep.
func NewRecordStep(store ResultStore) *RecordStep {
	return &RecordStep{store: store, now: time.Now}
}

// Name returns the step name.
func (s *RecordStep) Name() string {
	return "record"
}

// Do executes the record step.
func (s *RecordStep) Do(ctx context.Context, report *model.ScanReport) error {
	if report.APK == nil {
		return errNoAPK
	}
	now := s.now()
	report.Duration = now.Sub(report.DateScanned)

	if err := s.store.SaveScanRun(ctx, report); err != nil {
		return err
	}
	if err := s.store.MarkScanned(ctx, report.APK.ID, now); err != nil {
		return err
	}
	report.APK.LastScanned = &now
	return nil
}
