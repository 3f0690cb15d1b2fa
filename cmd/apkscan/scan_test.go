package main

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/apkscan/internal/config"
	"github.com/nao1215/apkscan/internal/model"
)

// fakeJadx writes a shell script that behaves like jadx: it writes one
// source file holding a Google API key into the directory after -d.
func fakeJadx(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake decompiler is a shell script")
	}
	path := filepath.Join(t.TempDir(), "jadx")
	script := `#!/bin/sh
mkdir -p "$2/sources/a"
cat > "$2/sources/a/a.java" <<'SRC'
package a;

class a {
    String k = "AIzaSyA1234567890abcdefghijklmnopqrstu";
    void b() {}
}
SRC
`
	if err := os.WriteFile(path, []byte(script), 0700); err != nil { //nolint:gosec // executable test fixture
		t.Fatal(err)
	}
	return path
}

// jsonReport mirrors the JSON report document.
type jsonReport struct {
	Version string           `json:"version"`
	Report  model.ScanReport `json:"report"`
	Summary map[string]int   `json:"summary"`
}

// decodeReports decodes JSON Lines output, one report per line.
func decodeReports(t *testing.T, data string) []jsonReport {
	t.Helper()
	var reports []jsonReport
	for line := range strings.Lines(data) {
		var r jsonReport
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			t.Fatalf("invalid JSON report line: %v\n%s", err, line)
		}
		reports = append(reports, r)
	}
	return reports
}

// TestNewScanCmd tests the scan command creation.
func TestNewScanCmd(t *testing.T) {
	t.Parallel()

	cmd := NewScanCmd()

	tests := []struct {
		name      string
		shorthand string
		defValue  string
	}{
		{"obfuscation", "O", "false"},
		{"secrets", "S", "false"},
		{"all", "a", "false"},
		{"json", "j", "false"},
		{"markdown", "m", "false"},
		{"output", "o", ""},
		{"config", "c", ""},
		{"jadx", "", config.DefaultDecompiler},
		{"decompile-timeout", "", config.DefaultDecompileTimeout.String()},
		{"force-decompile", "", "false"},
		{"signatures", "", ""},
	}

	for _, tt := range tests {
		t.Run("has "+tt.name+" flag", func(t *testing.T) {
			t.Parallel()
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Fatalf("expected %s flag", tt.name)
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("expected shorthand %q, got %q", tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.defValue {
				t.Errorf("expected default %q, got %q", tt.defValue, flag.DefValue)
			}
		})
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	parse := func(t *testing.T, args ...string) (*config.Config, error) {
		t.Helper()
		root := NewRootCmd()
		scan, rest, err := root.Find(args)
		if err != nil {
			t.Fatal(err)
		}
		if err := scan.ParseFlags(rest); err != nil {
			t.Fatal(err)
		}
		return buildConfig(scan, scan.Flags().Args())
	}

	t.Run("all enables every analysis", func(t *testing.T) {
		t.Parallel()
		cfg, err := parse(t, "scan", "--data-dir", t.TempDir(), "-a", "1,2", "app.apk")
		if err != nil {
			t.Fatal(err)
		}
		if !cfg.Obfuscation || !cfg.Secrets {
			t.Error("expected obfuscation and secrets enabled")
		}
		if !slices.Equal(cfg.Targets, []string{"1", "2", "app.apk"}) {
			t.Errorf("unexpected targets %v", cfg.Targets)
		}
		if cfg.OutputDir != filepath.Join(cfg.DBDir, "decompiled") {
			t.Errorf("unexpected output dir %s", cfg.OutputDir)
		}
	})

	t.Run("config file and flag precedence", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "apkscan.yaml")
		body := "decompiler:\n  path: /opt/jadx/bin/jadx\n  timeout: 15m\nanalysis:\n  workers: 2\n"
		if err := os.WriteFile(path, []byte(body), 0600); err != nil {
			t.Fatal(err)
		}

		cfg, err := parse(t, "scan", "-c", path, "1")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.DecompilerPath != "/opt/jadx/bin/jadx" || cfg.DecompileTimeout != 15*time.Minute || cfg.Workers != 2 {
			t.Errorf("config file not applied: %+v", cfg)
		}

		cfg, err = parse(t, "scan", "-c", path, "--jadx", "jadx-dev", "--decompile-timeout", "1m", "1")
		if err != nil {
			t.Fatal(err)
		}
		if cfg.DecompilerPath != "jadx-dev" || cfg.DecompileTimeout != time.Minute {
			t.Errorf("flags must override the config file: %s %s", cfg.DecompilerPath, cfg.DecompileTimeout)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()
		_, err := parse(t, "scan", "-c", filepath.Join(t.TempDir(), "nope.yaml"), "1")
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestSignatureTable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "sigs.yaml")
	body := "signatures:\n  - id: internal_token\n    label: Internal token\n    severity: high\n    pattern: 'itk_[0-9a-f]{8}'\n"
	if err := os.WriteFile(path, []byte(body), 0600); err != nil {
		t.Fatal(err)
	}

	cfg := config.NewConfig()
	cfg.SignatureFile = path
	sigs, err := signatureTable(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sigs) <= 1 {
		t.Fatalf("expected built-in signatures plus one, got %d", len(sigs))
	}
	if sigs[len(sigs)-1].ID != "internal_token" {
		t.Errorf("expected custom signature last, got %s", sigs[len(sigs)-1].ID)
	}

	cfg.SignatureFile = filepath.Join(dir, "missing.yaml")
	if _, err := signatureTable(cfg); err == nil {
		t.Error("expected error for missing signature file")
	}
}

func TestScanCmd(t *testing.T) {
	t.Parallel()

	t.Run("manifest scan of the selection as JSON", func(t *testing.T) {
		t.Parallel()
		c := newCLIEnv(t)
		c.mustRun(t, "load", "-f", writeAPK(t, t.TempDir(), "app.apk", testManifest))
		c.mustRun(t, "select", "1")

		stdout, stderr, err := c.run(t, "scan", "-j")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, stderr)
		}
		if !strings.Contains(stderr, "[1/1] app.apk") {
			t.Errorf("expected progress on stderr, got: %s", stderr)
		}

		reports := decodeReports(t, stdout)
		if len(reports) != 1 {
			t.Fatalf("expected 1 report, got %d", len(reports))
		}
		r := reports[0].Report
		if r.RunID == "" || r.APK == nil || r.APK.ID != 1 {
			t.Fatalf("unexpected report header: %+v", r)
		}
		wantCounts := map[string]int{"application": 1, "activity": 1, "service": 1}
		for kind, n := range wantCounts {
			if r.ComponentCounts[kind] != n {
				t.Errorf("expected %d %s, got %d", n, kind, r.ComponentCounts[kind])
			}
		}
		if len(r.ManifestWarnings) != 1 {
			t.Errorf("expected 1 manifest warning, got %v", r.ManifestWarnings)
		}
		if !slices.Equal(r.Permissions, []string{"android.permission.READ_SMS", "android.permission.INTERNET"}) {
			t.Errorf("unexpected permissions %v", r.Permissions)
		}
		if !slices.Equal(r.PerformedSteps, []string{"manifest", "findings", "record"}) {
			t.Errorf("unexpected steps %v", r.PerformedSteps)
		}
		found := false
		for _, f := range r.Findings {
			if f.Type == "debuggable_application" {
				found = true
			}
		}
		if !found {
			t.Error("expected debuggable_application finding")
		}

		out := c.mustRun(t, "list")
		if strings.Contains(out, "Never") {
			t.Errorf("scanned package still shows Never:\n%s", out)
		}
	})

	t.Run("full scan with decompiler writes a report file", func(t *testing.T) {
		t.Parallel()
		c := newCLIEnv(t)
		jadx := fakeJadx(t)
		c.mustRun(t, "load", "-f", writeAPK(t, t.TempDir(), "app.apk", testManifest))

		reportPath := filepath.Join(t.TempDir(), "out", "report.json")
		c.mustRun(t, "scan", "-a", "-j", "--jadx", jadx, "-o", reportPath, "app.apk")

		data, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("report not written: %v", err)
		}
		info, err := os.Stat(reportPath)
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != 0600 {
			t.Errorf("expected permissions 0600, got %o", info.Mode().Perm())
		}

		reports := decodeReports(t, string(data))
		if len(reports) != 1 {
			t.Fatalf("expected 1 report, got %d", len(reports))
		}
		r := reports[0].Report
		if r.SourceDir == "" {
			t.Error("expected source dir")
		}
		if r.Obfuscation == nil {
			t.Fatal("expected obfuscation report")
		}
		if len(r.Secrets) == 0 || r.Secrets[0].PatternID != "google_api_key" {
			t.Errorf("expected google_api_key secret, got %+v", r.Secrets)
		}
		want := []string{"manifest", "decompile", "obfuscation", "secrets", "findings", "record"}
		if !slices.Equal(r.PerformedSteps, want) {
			t.Errorf("expected steps %v, got %v", want, r.PerformedSteps)
		}
	})

	t.Run("verbose logs mask secret matches", func(t *testing.T) {
		t.Parallel()
		c := newCLIEnv(t)
		jadx := fakeJadx(t)
		c.mustRun(t, "load", "-f", writeAPK(t, t.TempDir(), "app.apk", testManifest))

		_, stderr, err := c.run(t, "scan", "-S", "-v", "--jadx", jadx, "1")
		if err != nil {
			t.Fatalf("unexpected error: %v\n%s", err, stderr)
		}
		if !strings.Contains(stderr, "secret found") {
			t.Fatalf("expected a secret log line, got:\n%s", stderr)
		}
		if strings.Contains(stderr, "AIzaSyA1234567890abcdefghijklmnopqrstu") {
			t.Errorf("secret leaked into logs:\n%s", stderr)
		}
		if !strings.Contains(stderr, "AIza***REDACTED***") {
			t.Errorf("expected masked match prefix in logs:\n%s", stderr)
		}
	})

	t.Run("failing decompiler skips source steps", func(t *testing.T) {
		t.Parallel()
		c := newCLIEnv(t)
		c.mustRun(t, "load", "-f", writeAPK(t, t.TempDir(), "app.apk", testManifest))

		stdout, _, err := c.run(t, "scan", "-S", "-j", "--jadx", filepath.Join(t.TempDir(), "no-such-jadx"), "1")
		if !errors.Is(err, errAllFailed) {
			t.Fatalf("expected errAllFailed, got %v", err)
		}
		reports := decodeReports(t, stdout)
		if len(reports) != 1 {
			t.Fatalf("expected 1 report, got %d", len(reports))
		}
		if !slices.Equal(reports[0].Report.SkippedSteps, []string{"secrets"}) {
			t.Errorf("expected secrets skipped, got %v", reports[0].Report.SkippedSteps)
		}
	})

	t.Run("unresolved target does not stop the batch", func(t *testing.T) {
		t.Parallel()
		c := newCLIEnv(t)
		c.mustRun(t, "load", "-f", writeAPK(t, t.TempDir(), "app.apk", testManifest))

		stdout, stderr, err := c.run(t, "scan", "-j", "ap.apk", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stderr, "did you mean app.apk?") {
			t.Errorf("expected suggestion on stderr, got: %s", stderr)
		}
		reports := decodeReports(t, stdout)
		if len(reports) != 2 {
			t.Fatalf("expected 2 reports, got %d", len(reports))
		}
		if reports[0].Report.APK != nil || len(reports[0].Report.ErrorMessage) == 0 {
			t.Errorf("expected unresolved report with error, got %+v", reports[0].Report)
		}
		if reports[1].Report.APK == nil || reports[1].Report.APK.FileName != "app.apk" {
			t.Errorf("expected app.apk report, got %+v", reports[1].Report)
		}
	})

	t.Run("errors", func(t *testing.T) {
		t.Parallel()
		tests := []struct {
			name    string
			args    []string
			wantErr error
		}{
			{"no target and empty selection", []string{"scan"}, config.ErrNoTarget},
			{"conflicting formats", []string{"scan", "-j", "-m", "1"}, config.ErrConflictingReportFormats},
			{"invalid timeout", []string{"scan", "--decompile-timeout", "0s", "1"}, config.ErrInvalidTimeout},
			{"only unresolved targets", []string{"scan", "nope.apk"}, errAllFailed},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				t.Parallel()
				c := newCLIEnv(t)
				_, _, err := c.run(t, tt.args...)
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
			})
		}
	})

	t.Run("simple and markdown reports", func(t *testing.T) {
		t.Parallel()
		c := newCLIEnv(t)
		c.mustRun(t, "load", "-f", writeAPK(t, t.TempDir(), "app.apk", testManifest))

		out := c.mustRun(t, "scan", "1")
		if !strings.Contains(out, "APKSCAN REPORT") {
			t.Errorf("expected simple report, got: %s", out)
		}

		out = c.mustRun(t, "scan", "-m", "1")
		if !strings.Contains(out, "# apkscan Report: app.apk") {
			t.Errorf("expected markdown report, got: %s", out)
		}
	})
}
