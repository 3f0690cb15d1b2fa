package config

import "errors"

// Configuration validation errors returned by Config.Validate().
var (
	// ErrNoTarget is returned when no APK is given and nothing is selected.
	ErrNoTarget = errors.New("no target specified: pass APK ids or names, or select some with 'apkscan select'")

	// ErrInvalidTimeout is returned when the decompile timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid decompile timeout: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid worker count: must be positive")

	// ErrInvalidMaxFileSize is returned when the secret scan size limit is not positive.
	ErrInvalidMaxFileSize = errors.New("invalid max file size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrNoDecompiler is returned when a source analysis is requested
	// without a decompiler path.
	ErrNoDecompiler = errors.New("no decompiler configured: set --jadx or decompiler.path")
)
