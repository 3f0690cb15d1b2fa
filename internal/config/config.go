package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "apkscan"

	// DefaultDecompiler is the decompiler executable looked up on PATH.
	DefaultDecompiler = "jadx"

	// DefaultDecompileTimeout bounds one decompiler run. Large APKs with
	// several dex files take minutes.
	DefaultDecompileTimeout = 10 * time.Minute

	// DefaultWorkers is the number of files read in parallel while walking a
	// decompiled tree.
	DefaultWorkers = 8

	// DefaultMaxFileSize is the largest file the secret scanner reads.
	// Bigger files are usually bundled media or native libraries.
	DefaultMaxFileSize = 10 * 1024 * 1024 // 10MB
)

// Config holds all configuration options for apkscan.
// It is populated from defaults, the config file and CLI flags, in that
// order, and passed to commands explicitly.
type Config struct {
	// DecompilerPath is the decompiler executable.
	DecompilerPath string

	// DecompilerArgs are extra arguments placed before "-d <out> <apk>".
	DecompilerArgs []string

	// DecompileTimeout bounds one decompiler run.
	DecompileTimeout time.Duration

	// ForceDecompile discards an existing decompiled tree instead of reusing it.
	ForceDecompile bool

	// Workers is the per-file parallelism of source tree walks.
	Workers int

	// MaxFileSize is the largest file the secret scanner reads, in bytes.
	MaxFileSize int64

	// SkipDirs are directory names skipped during source tree walks.
	SkipDirs []string

	// Obfuscation enables the obfuscation analyzer.
	Obfuscation bool

	// Secrets enables the secret scanner.
	Secrets bool

	// SignatureFile is a YAML signature table merged over the built-in one.
	SignatureFile string

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .apkscan in the current directory
	// and then in the user's home directory.
	ConfigFilePath string

	// File is the loaded configuration file, nil when none was found.
	File *File

	// DBDir is the directory holding the SQLite database.
	DBDir string

	// OutputDir is the directory decompiled trees are written under.
	OutputDir string

	// SessionFile is the path of the persisted selection.
	SessionFile string

	// Targets are the APK ids or file names to scan.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		DecompilerPath:   DefaultDecompiler,
		DecompileTimeout: DefaultDecompileTimeout,
		Workers:          DefaultWorkers,
		MaxFileSize:      DefaultMaxFileSize,
		DBDir:            XDGDataDir(),
		OutputDir:        DecompiledDir(),
		SessionFile:      SessionPath(),
	}
}

// Apply overlays the values set in f onto c. Zero values in f are ignored.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	c.File = f

	if f.Decompiler.Path != "" {
		c.DecompilerPath = f.Decompiler.Path
	}
	if len(f.Decompiler.Args) > 0 {
		c.DecompilerArgs = f.Decompiler.Args
	}
	if f.Decompiler.Timeout > 0 {
		c.DecompileTimeout = f.Decompiler.Timeout
	}
	if f.Analysis.Workers > 0 {
		c.Workers = f.Analysis.Workers
	}
	if f.Analysis.MaxFileSize > 0 {
		c.MaxFileSize = f.Analysis.MaxFileSize
	}
	if len(f.Analysis.SkipDirs) > 0 {
		c.SkipDirs = f.Analysis.SkipDirs
	}
}

// XDGDataDir returns the XDG data directory for apkscan.
// On Linux: ~/.local/share/apkscan
// On macOS: ~/Library/Application Support/apkscan
// On Windows: %LOCALAPPDATA%\apkscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for apkscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// DecompiledDir returns the default directory for decompiled trees.
func DecompiledDir() string {
	return filepath.Join(XDGDataDir(), "decompiled")
}

// SessionPath returns the default location of the session file.
func SessionPath() string {
	return filepath.Join(xdg.StateHome, AppName, "session.yaml")
}

// Validate checks if the configuration is valid and returns the first
// violated rule.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.DecompileTimeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.MaxFileSize <= 0 {
		return ErrInvalidMaxFileSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if (c.Obfuscation || c.Secrets) && c.DecompilerPath == "" {
		return ErrNoDecompiler
	}

	return nil
}
