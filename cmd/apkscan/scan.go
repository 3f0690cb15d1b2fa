package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/apkscan/internal/analysis"
	"github.com/nao1215/apkscan/internal/config"
	"github.com/nao1215/apkscan/internal/database"
	"github.com/nao1215/apkscan/internal/decompiler"
	applog "github.com/nao1215/apkscan/internal/log"
	"github.com/nao1215/apkscan/internal/model"
	"github.com/nao1215/apkscan/internal/pipeline"
	"github.com/nao1215/apkscan/internal/report"
	"github.com/nao1215/apkscan/internal/session"
)

// errAllFailed is returned when no package of a batch scanned cleanly.
var errAllFailed = errors.New("every scan in the batch failed")

var (
	_ pipeline.Resolver = (*database.Repository)(nil)
	_ pipeline.Store    = (*database.Repository)(nil)
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [id|name...]",
		Short: "Scan packages for manifest risks, obfuscation and secrets",
		Long: `Scan analyzes loaded packages one after another. Without arguments the
current selection (see "apkscan select") is scanned.

Every scan extracts the manifest components, permissions and meta-data and
stores them in the repository. With --obfuscation or --secrets the package
is decompiled first (jadx by default) and the source tree is analyzed:
- Obfuscation: share of classes and methods with minified names
- Secrets: hard-coded API keys, tokens and private keys

A failure in one package never stops the others.

Examples:
  # Scan the selection with every analysis
  apkscan scan --all

  # Scan two packages for secrets only
  apkscan scan -S 1 app-release.apk

  # Write a Markdown report
  apkscan scan -a -m -o report.md

  # Use a custom configuration file
  apkscan scan -c myconfig.yaml -a

Configuration file (.apkscan) example:
  decompiler:
    path: /opt/jadx/bin/jadx
    timeout: 15m
  secrets:
    signatures:
      - id: internal_token
        label: Internal service token
        severity: high
        pattern: 'itk_[0-9a-f]{32}'`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	// Analysis flags
	cmd.Flags().BoolP("obfuscation", "O", false, "Decompile and measure identifier obfuscation")
	cmd.Flags().BoolP("secrets", "S", false, "Decompile and search the sources for secrets")
	cmd.Flags().BoolP("all", "a", false, "Enable every analysis (same as -O -S)")

	// Decompiler flags
	cmd.Flags().String("jadx", config.DefaultDecompiler, "Decompiler executable")
	cmd.Flags().Duration("decompile-timeout", config.DefaultDecompileTimeout,
		"Timeout for one decompiler run")
	cmd.Flags().Bool("force-decompile", false, "Decompile again even if sources exist")

	// Signature and configuration files
	cmd.Flags().String("signatures", "", "YAML file with additional secret signatures")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .apkscan in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON Lines, one report object per line (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if len(cfg.Targets) == 0 {
		targets, err := selectedTargets(cfg.SessionFile)
		if err != nil {
			return err
		}
		cfg.Targets = targets
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoTarget) {
			return fmt.Errorf("configuration error: %w (name packages or run 'apkscan select' first)", err)
		}
		return fmt.Errorf("configuration error: %w", err)
	}

	var sigs []analysis.Signature
	if cfg.Secrets {
		if sigs, err = signatureTable(cfg); err != nil {
			return err
		}
	}
	logger := newLogger(cmd, applog.WithPatterns(signaturePatterns(sigs)...))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Warn("received shutdown signal, cancelling...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runScan(ctx, cmd, cfg, sigs, logger)
}

// buildConfig creates a Config from defaults, the configuration file and
// command flags, in that order.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If user explicitly specified a config file path, error if not found.
	// If no path specified, silently use defaults if no file found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Apply(file)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	all, err := flags.GetBool("all")
	if err != nil {
		return nil, err
	}
	if cfg.Obfuscation, err = flags.GetBool("obfuscation"); err != nil {
		return nil, err
	}
	if cfg.Secrets, err = flags.GetBool("secrets"); err != nil {
		return nil, err
	}
	if all {
		cfg.Obfuscation = true
		cfg.Secrets = true
	}

	// Decompiler flags override the file only when given.
	if flags.Changed("jadx") {
		if cfg.DecompilerPath, err = flags.GetString("jadx"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("decompile-timeout") {
		if cfg.DecompileTimeout, err = flags.GetDuration("decompile-timeout"); err != nil {
			return nil, err
		}
	}
	if cfg.ForceDecompile, err = flags.GetBool("force-decompile"); err != nil {
		return nil, err
	}
	if cfg.SignatureFile, err = flags.GetString("signatures"); err != nil {
		return nil, err
	}

	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}

	dataDir, err := persistentString(cmd, "data-dir")
	if err != nil {
		return nil, err
	}
	cfg.DBDir = dataDir
	cfg.OutputDir = filepath.Join(dataDir, "decompiled")
	if cfg.SessionFile, err = persistentString(cmd, "session-file"); err != nil {
		return nil, err
	}
	cfg.Verbose = persistentBool(cmd, "verbose")

	cfg.Targets = splitIdentifiers(args)

	return cfg, nil
}

// selectedTargets returns the ids of the persisted selection.
func selectedTargets(sessionFile string) ([]string, error) {
	sess, err := session.NewStore(sessionFile).Load()
	if err != nil {
		return nil, err
	}
	targets := make([]string, len(sess.Selected))
	for i, id := range sess.Selected {
		targets[i] = strconv.FormatInt(id, 10)
	}
	return targets, nil
}

// signatureTable builds the secret signatures from the configuration file
// and the --signatures file.
func signatureTable(cfg *config.Config) ([]analysis.Signature, error) {
	sigs, err := cfg.File.SignatureTable()
	if err != nil {
		return nil, fmt.Errorf("invalid signatures in configuration file: %w", err)
	}
	if cfg.SignatureFile == "" {
		return sigs, nil
	}
	extra, err := analysis.LoadSignatureFile(cfg.SignatureFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load signatures %s: %w", cfg.SignatureFile, err)
	}
	return analysis.MergeSignatures(sigs, extra), nil
}

// signaturePatterns returns the patterns of sigs, which the logger masks.
func signaturePatterns(sigs []analysis.Signature) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(sigs))
	for i, s := range sigs {
		patterns[i] = s.Pattern
	}
	return patterns
}

// newScanConfig wires the scan pipeline for cfg. sigs is the secret
// signature table and is only used with --secrets.
func newScanConfig(cfg *config.Config, store pipeline.Store, sigs []analysis.Signature, logger *slog.Logger) pipeline.ScanConfig {
	sc := pipeline.ScanConfig{
		Store:       store,
		OutputBase:  cfg.OutputDir,
		Obfuscation: cfg.Obfuscation,
		Secrets:     cfg.Secrets,
		Logger:      logger,
		Analyzer: analysis.NewAnalyzer(func(o *analysis.AnalyzerOptions) {
			o.EnableEXIF = cfg.Obfuscation || cfg.Secrets
			o.Logger = logger
		}),
	}

	if sc.NeedsSource() {
		sc.Decompiler = decompiler.NewJadx(
			decompiler.WithPath(cfg.DecompilerPath),
			decompiler.WithArgs(cfg.DecompilerArgs...),
			decompiler.WithTimeout(cfg.DecompileTimeout),
			decompiler.WithForce(cfg.ForceDecompile),
			decompiler.WithLogger(logger),
		)
	}
	if cfg.Obfuscation {
		sc.ObfuscationAnalyzer = analysis.NewObfuscationAnalyzer(
			analysis.WithObfuscationWorkers(cfg.Workers),
			analysis.WithObfuscationSkipDirs(cfg.SkipDirs),
			analysis.WithObfuscationLogger(logger),
		)
	}
	if cfg.Secrets {
		sc.SecretScanner = analysis.NewSecretScanner(
			analysis.WithSignatures(sigs),
			analysis.WithMaxFileSize(cfg.MaxFileSize),
			analysis.WithSecretWorkers(cfg.Workers),
			analysis.WithSecretSkipDirs(cfg.SkipDirs),
			analysis.WithSecretLogger(logger),
		)
	}
	return sc
}

// runScan scans every target and writes one report per target.
func runScan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, sigs []analysis.Signature, logger *slog.Logger) error {
	logger.Info("starting scan",
		"targets", cfg.Targets,
		"obfuscation", cfg.Obfuscation,
		"secrets", cfg.Secrets,
	)

	repo, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open repository: %w", err)
	}
	defer repo.Close()

	sc := newScanConfig(cfg, repo, sigs, logger)

	output, closeOutput, err := openReportOutput(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output)

	bp := pipeline.NewBatchProcessor(
		repo,
		func() *pipeline.Pipeline { return pipeline.NewScanPipeline(sc) },
		pipeline.WithBatchLogger(logger),
	)

	progress := cmd.ErrOrStderr()
	startTime := time.Now()
	total, failed := len(cfg.Targets), 0
	fmt.Fprintf(progress, "Scanning %d package(s)...\n", total)

	index := 0
	err = bp.ProcessWithCallback(ctx, cfg.Targets, func(r *model.ScanReport) {
		index++
		state := "done"
		if r.Failed() {
			failed++
			state = "completed with errors"
		}
		fmt.Fprintf(progress, "[%d/%d] %s: %s\n", index, total, r.Name(), state)
		if r.APK == nil {
			if apks, lerr := repo.ListAPKs(ctx); lerr == nil {
				if s := suggestNames(r.Identifier, apks); len(s) > 0 {
					fmt.Fprintf(progress, "  did you mean %s?\n", strings.Join(s, ", "))
				}
			}
		}

		if _, werr := writer.Write(r); werr != nil {
			logger.Error("report failed", "target", r.Identifier, "error", werr)
		}
	})

	fmt.Fprintf(progress, "Scan finished in %s\n", time.Since(startTime).Round(time.Millisecond))

	if err != nil {
		return err
	}
	if failed == total {
		return errAllFailed
	}
	return nil
}

// openReportOutput returns the report destination: the --output file,
// created with owner-only permissions, or stdout.
func openReportOutput(cfg *config.Config, stdout io.Writer) (io.Writer, func(), error) {
	if cfg.ReportFile == "" {
		return stdout, func() {}, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(cfg.ReportFile)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports contain unredacted secrets and are readable by the owner only.
	f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // best effort close
}

// newReportWriter returns the renderer selected by the report flags. JSON
// reports are written compact, one per line, unless jsonOpts say otherwise.
func newReportWriter(cfg *config.Config, output io.Writer, jsonOpts ...report.JSONWriterOption) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(output, getVersion(), jsonOpts...)
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}
