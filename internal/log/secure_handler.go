package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// MaskValue replaces credentials in log output.
const MaskValue = "***REDACTED***"

// matchPrefixLen is how much of a secret scanner match stays readable.
const matchPrefixLen = 4

// credentialKeywords mark attribute keys whose string or error value is
// masked. Matching is on the lowercased key.
var credentialKeywords = []string{
	"password", "passwd", "passphrase", "storepass", "keypass",
	"secret", "token", "credential", "authorization", "cookie",
	"api_key", "apikey", "private_key", "signing_key",
}

// matchKeys hold secret scanner matches. Their values keep a short prefix
// so the kind of credential stays recognizable.
var matchKeys = map[string]bool{
	"match":        true,
	"matched_text": true,
}

// pathKeys hold file system paths, which are logged relative to the home
// directory.
var pathKeys = map[string]bool{
	"path":       true,
	"file":       true,
	"dir":        true,
	"root":       true,
	"source_dir": true,
	"output":     true,
}

// builtinPatterns find credentials inside free text such as error messages
// and decompiler output.
var builtinPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AIza[0-9A-Za-z_\-]{31,35}`),
	regexp.MustCompile(`\b(?:AKIA|ASIA)[0-9A-Z]{16}\b`),
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]+\.eyJ[A-Za-z0-9_-]+\.[A-Za-z0-9_-]*`),
	regexp.MustCompile(`xox[abposr]-[0-9A-Za-z-]+`),
	regexp.MustCompile(`gh[pousr]_[0-9A-Za-z]{36,}`),
	regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9._~+/=-]+`),
	regexp.MustCompile(`(?s)-----BEGIN [A-Z ]*PRIVATE KEY-----.*?(?:-----END [A-Z ]*PRIVATE KEY-----|$)`),
}

// SecureHandler wraps an slog.Handler and scrubs attributes before they
// reach it:
//   - keys naming a credential are replaced by MaskValue
//   - secret scanner matches keep only a short prefix
//   - credentials found inside strings and errors are replaced in place
//   - paths under the home directory are shortened to ~
//
// slog.LogValuer values are resolved first, so a model.SecretFinding logged
// as one attribute is scrubbed field by field.
type SecureHandler struct {
	handler  slog.Handler
	patterns []*regexp.Regexp
	home     string
}

// Option configures a SecureHandler.
type Option func(*SecureHandler)

// WithPatterns adds patterns whose matches are masked in every string and
// error value, such as the signature table of the running scan.
func WithPatterns(patterns ...*regexp.Regexp) Option {
	return func(h *SecureHandler) {
		for _, p := range patterns {
			if p != nil {
				h.patterns = append(h.patterns, p)
			}
		}
	}
}

// WithHomeDir sets the directory shortened to ~ in path attributes. An
// empty dir disables shortening.
func WithHomeDir(dir string) Option {
	return func(h *SecureHandler) {
		if dir != "" {
			dir = filepath.Clean(dir)
		}
		h.home = dir
	}
}

// NewSecureHandler creates a SecureHandler around handler, or around the
// default handler when handler is nil. The home directory defaults to the
// current user's.
func NewSecureHandler(handler slog.Handler, opts ...Option) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	h := &SecureHandler{
		handler:  handler,
		patterns: append([]*regexp.Regexp(nil), builtinPatterns...),
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		h.home = filepath.Clean(home)
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Enabled implements slog.Handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	out := slog.NewRecord(r.Time, r.Level, h.scrubText(r.Message), r.PC)
	r.Attrs(func(a slog.Attr) bool {
		out.AddAttrs(h.scrub(a))
		return true
	})
	return h.handler.Handle(ctx, out)
}

// WithAttrs implements slog.Handler.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	scrubbed := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		scrubbed[i] = h.scrub(a)
	}
	return h.clone(h.handler.WithAttrs(scrubbed))
}

// WithGroup implements slog.Handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return h.clone(h.handler.WithGroup(name))
}

func (h *SecureHandler) clone(next slog.Handler) *SecureHandler {
	return &SecureHandler{handler: next, patterns: h.patterns, home: h.home}
}

func (h *SecureHandler) scrub(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()
	key := strings.ToLower(a.Key)

	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		scrubbed := make([]slog.Attr, len(group))
		for i, ga := range group {
			scrubbed[i] = h.scrub(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(scrubbed...)}
	}

	kind := a.Value.Kind()
	if kind != slog.KindString && kind != slog.KindAny {
		return a
	}
	if isCredentialKey(key) {
		return slog.String(a.Key, MaskValue)
	}
	if matchKeys[key] {
		return slog.String(a.Key, maskMatch(a.Value.String()))
	}

	switch kind {
	case slog.KindString:
		s := h.scrubText(a.Value.String())
		if pathKeys[key] {
			s = h.shortenPath(s)
		}
		return slog.String(a.Key, s)
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, h.scrubText(err.Error()))
		}
	}
	return a
}

// scrubText replaces every pattern match in s with MaskValue.
func (h *SecureHandler) scrubText(s string) string {
	for _, p := range h.patterns {
		s = p.ReplaceAllLiteralString(s, MaskValue)
	}
	return s
}

func (h *SecureHandler) shortenPath(s string) string {
	if h.home == "" || h.home == "/" {
		return s
	}
	if s == h.home {
		return "~"
	}
	if rest, ok := strings.CutPrefix(s, h.home+string(filepath.Separator)); ok {
		return "~" + string(filepath.Separator) + rest
	}
	return s
}

func isCredentialKey(key string) bool {
	for _, kw := range credentialKeywords {
		if strings.Contains(key, kw) {
			return true
		}
	}
	return false
}

// maskMatch keeps the first runes of a scanner match, enough to tell an
// AIza key from an AKIA key.
func maskMatch(s string) string {
	r := []rune(s)
	if len(r) <= matchPrefixLen {
		return MaskValue
	}
	return string(r[:matchPrefixLen]) + MaskValue
}

// NewSecureLogger returns a text logger on w. verbose lowers the level from
// Warn to Debug.
func NewSecureLogger(w io.Writer, verbose bool, opts ...Option) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose)), opts...))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool, opts ...Option) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose)), opts...))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}
