package analysis

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/nao1215/apkscan/internal/model"
)

// DefaultMaxFileSize is the largest file the secret scanner reads in one
// piece. Larger files are read in windows of this size.
const DefaultMaxFileSize = 10 * 1024 * 1024

// windowOverlap is the tail of each window carried into the next one. A
// match is reported by the window it starts in, outside that tail.
const windowOverlap = 4 * 1024

// SecretScanner matches credential signatures against every file of a tree,
// whatever its extension.
type SecretScanner struct {
	signatures  []Signature
	maxFileSize int64
	walker      treeWalker
	logger      *slog.Logger
}

// SecretOption configures a SecretScanner.
type SecretOption func(*secretOptions)

type secretOptions struct {
	signatures  []Signature
	maxFileSize int64
	workers     int
	skipDirs    []string
	logger      *slog.Logger
}

// WithSignatures replaces the signature table.
func WithSignatures(sigs []Signature) SecretOption {
	return func(o *secretOptions) {
		o.signatures = sigs
	}
}

// WithMaxFileSize sets the size above which files are scanned in windows.
func WithMaxFileSize(n int64) SecretOption {
	return func(o *secretOptions) {
		o.maxFileSize = n
	}
}

// WithSecretWorkers sets the number of files read concurrently.
func WithSecretWorkers(n int) SecretOption {
	return func(o *secretOptions) {
		o.workers = n
	}
}

// WithSecretSkipDirs sets directory names that are not descended into.
func WithSecretSkipDirs(dirs []string) SecretOption {
	return func(o *secretOptions) {
		o.skipDirs = dirs
	}
}

// WithSecretLogger sets the logger.
func WithSecretLogger(logger *slog.Logger) SecretOption {
	return func(o *secretOptions) {
		o.logger = logger
	}
}

// NewSecretScanner creates a SecretScanner using DefaultSignatures unless
// WithSignatures is given.
func NewSecretScanner(opts ...SecretOption) *SecretScanner {
	o := &secretOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.signatures == nil {
		o.signatures = DefaultSignatures()
	}
	if o.maxFileSize <= 0 {
		o.maxFileSize = DefaultMaxFileSize
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &SecretScanner{
		signatures:  o.signatures,
		maxFileSize: o.maxFileSize,
		walker:      newTreeWalker(o.workers, o.skipDirs, o.logger),
		logger:      o.logger,
	}
}

// Signatures returns the signature table in use.
func (s *SecretScanner) Signatures() []Signature {
	return s.signatures
}

// Scan returns one finding per signature match per file under root. Files
// that cannot be read are skipped. Findings are sorted by file, line and
// pattern so repeated scans compare equal.
func (s *SecretScanner) Scan(ctx context.Context, root string) ([]model.SecretFinding, error) {
	var (
		mu       sync.Mutex
		findings = []model.SecretFinding{}
	)
	skipped, err := s.walker.walk(ctx, root, nil, func(ctx context.Context, file, rel string) error {
		found, err := s.scanFile(ctx, file, rel)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %s: %v", ErrFileUnreadable, rel, err)
		}
		if len(found) == 0 {
			return nil
		}
		for _, f := range found {
			s.logger.Debug("secret found", "finding", f)
		}
		mu.Lock()
		findings = append(findings, found...)
		mu.Unlock()
		return ctx.Err()
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.SourceFile != b.SourceFile {
			return a.SourceFile < b.SourceFile
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.PatternID < b.PatternID
	})

	s.logger.Debug("secret scan complete", "root", root, "findings", len(findings), "skipped", skipped)
	return findings, nil
}

// scanFile matches the signatures against one file. Files above the size
// limit are read in overlapping windows.
func (s *SecretScanner) scanFile(ctx context.Context, file, rel string) ([]model.SecretFinding, error) {
	f, err := os.Open(file) //nolint:gosec // path comes from a directory walk
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() <= s.maxFileSize {
		data, err := io.ReadAll(f)
		if err != nil {
			return nil, err
		}
		return s.ScanBytes(rel, data), nil
	}

	s.logger.Debug("scanning large file in windows", "path", rel, "size", fi.Size())
	var (
		findings []model.SecretFinding
		carry    []byte
		line     int
		from     int
		chunk    = make([]byte, s.maxFileSize)
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, readErr := io.ReadFull(f, chunk)
		done := readErr != nil
		if done && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			return nil, readErr
		}

		window := append(carry, chunk[:n]...)
		keep := 0
		if !done {
			keep = min(windowOverlap, len(window))
		}
		limit := len(window) - keep
		found, end := s.matchWindow(rel, window, line, from, limit)
		findings = append(findings, found...)
		if done {
			return findings, nil
		}

		line += bytes.Count(window[:limit], []byte{'\n'})
		from = max(end-limit, 0)
		carry = append([]byte(nil), window[limit:]...)
	}
}

// ScanBytes matches every signature against data, reporting file as the
// source of each finding.
func (s *SecretScanner) ScanBytes(file string, data []byte) []model.SecretFinding {
	findings, _ := s.matchWindow(file, data, 0, 0, len(data))
	return findings
}

// matchWindow matches the signatures against one window of a file and keeps
// the matches starting in [from, limit). line is the number of newlines
// before the window. It also returns the end offset of the last kept match.
func (s *SecretScanner) matchWindow(file string, data []byte, line, from, limit int) ([]model.SecretFinding, int) {
	var (
		findings []model.SecretFinding
		end      int
	)
	for _, sig := range s.signatures {
		for _, loc := range sig.Pattern.FindAllIndex(data, -1) {
			if loc[0] < from || loc[0] >= limit {
				continue
			}
			end = max(end, loc[1])
			findings = append(findings, model.SecretFinding{
				SourceFile:  file,
				Line:        line + bytes.Count(data[:loc[0]], []byte{'\n'}) + 1,
				MatchedText: string(data[loc[0]:loc[1]]),
				PatternID:   sig.ID,
				Label:       sig.Label,
				Severity:    sig.Severity,
			})
		}
	}
	return findings, end
}
