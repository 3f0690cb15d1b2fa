package decompiler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/apkscan/internal/model"
)

const (
	// DefaultPath is the decompiler executable looked up in PATH.
	DefaultPath = "jadx"

	// DefaultTimeout bounds one decompilation.
	DefaultTimeout = 10 * time.Minute

	// stderrTailSize is how much of the tool's stderr is kept for errors.
	stderrTailSize = 2048

	// waitDelay bounds how long Wait blocks on output pipes held open by
	// children of a killed process.
	waitDelay = 2 * time.Second
)

// Decompiler produces a source tree for an APK.
type Decompiler interface {
	// Decompile writes the recovered sources of apkPath into outDir.
	Decompile(ctx context.Context, apkPath, outDir string) error
}

// Jadx runs the jadx command line decompiler as
// "<Path> <Args...> -d <outDir> <apk>".
type Jadx struct {
	// Path is the executable name or path. DefaultPath when empty.
	Path string

	// Args are extra arguments placed before the output flag.
	Args []string

	// Timeout bounds one run. Zero disables the limit.
	Timeout time.Duration

	// Force discards an existing output directory instead of reusing it.
	Force bool

	logger *slog.Logger
}

// Option configures a Jadx runner.
type Option func(*Jadx)

// WithPath sets the decompiler executable.
func WithPath(path string) Option {
	return func(j *Jadx) {
		j.Path = path
	}
}

// WithArgs sets extra decompiler arguments.
func WithArgs(args ...string) Option {
	return func(j *Jadx) {
		j.Args = args
	}
}

// WithTimeout sets the per-run timeout.
func WithTimeout(d time.Duration) Option {
	return func(j *Jadx) {
		j.Timeout = d
	}
}

// WithForce makes every run start from an empty output directory.
func WithForce(force bool) Option {
	return func(j *Jadx) {
		j.Force = force
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Jadx) {
		j.logger = logger
	}
}

// NewJadx creates a Jadx runner with DefaultPath and DefaultTimeout.
func NewJadx(opts ...Option) *Jadx {
	j := &Jadx{
		Path:    DefaultPath,
		Timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = slog.Default()
	}
	return j
}

// Decompile implements Decompiler. An outDir that already holds files is
// reused unless Force is set.
func (j *Jadx) Decompile(ctx context.Context, apkPath, outDir string) error {
	logger := j.log()

	if _, err := os.Stat(apkPath); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", model.ErrInputNotFound, apkPath)
		}
		return fmt.Errorf("%w: %v", ErrToolFailure, err)
	}

	if j.Force {
		if err := os.RemoveAll(outDir); err != nil {
			return fmt.Errorf("%w: clear output directory: %v", ErrToolFailure, err)
		}
	} else if Populated(outDir) {
		logger.Info("reusing decompiled sources", "dir", outDir)
		return nil
	}

	if err := os.MkdirAll(outDir, 0o750); err != nil {
		return fmt.Errorf("%w: create output directory: %v", ErrToolFailure, err)
	}

	err := j.run(ctx, apkPath, outDir)
	if err == nil && !Populated(outDir) {
		err = fmt.Errorf("%w: no output written to %s", ErrToolFailure, outDir)
	}
	if err != nil {
		if rmErr := os.RemoveAll(outDir); rmErr != nil {
			logger.Warn("failed to remove partial output", "dir", outDir, "error", rmErr)
		}
		return err
	}
	return nil
}

func (j *Jadx) log() *slog.Logger {
	if j.logger == nil {
		return slog.Default()
	}
	return j.logger
}

func (j *Jadx) run(ctx context.Context, apkPath, outDir string) error {
	path := j.Path
	if path == "" {
		path = DefaultPath
	}

	runCtx := ctx
	if j.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, j.Timeout)
		defer cancel()
	}

	args := make([]string, 0, len(j.Args)+3)
	args = append(args, j.Args...)
	args = append(args, "-d", outDir, apkPath)

	stderr := &tailBuffer{limit: stderrTailSize}
	cmd := exec.CommandContext(runCtx, path, args...) //nolint:gosec // decompiler path is operator configuration
	cmd.Stderr = stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	j.log().Debug("running decompiler", "path", path, "apk", apkPath, "out", outDir)
	err := cmd.Run()
	if err == nil {
		j.log().Debug("decompiler finished", "apk", apkPath, "elapsed", time.Since(start))
		return nil
	}

	switch {
	case ctx.Err() != nil:
		return fmt.Errorf("%w: %w", ErrToolFailure, ctx.Err())
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w after %s: %s", ErrTimedOut, j.Timeout, filepath.Base(apkPath))
	case errors.Is(err, exec.ErrNotFound):
		return fmt.Errorf("%w: %s not found in PATH", ErrToolFailure, path)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: exit status %d: %s", ErrToolFailure, exitErr.ExitCode(), stderr.String())
	}
	return fmt.Errorf("%w: %v", ErrToolFailure, err)
}

// Populated reports whether dir exists and holds at least one entry.
func Populated(dir string) bool {
	entries, err := os.ReadDir(dir)
	return err == nil && len(entries) > 0
}

// OutputDir returns the directory under base that holds the sources of
// apkPath, named after the sanitized file stem.
func OutputDir(base, apkPath string) string {
	name := filepath.Base(apkPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	return filepath.Join(base, SanitizeName(stem))
}

// SanitizeName keeps ASCII letters, digits, '.', '_' and '-' and replaces
// every other rune with '_'. Names that would escape the parent directory
// become "unnamed".
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" || s == "." || s == ".." {
		return "unnamed"
	}
	return s
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	return strings.TrimSpace(string(t.buf))
}

// Ensure Jadx implements Decompiler.
var _ Decompiler = (*Jadx)(nil)
