package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/apkscan/internal/analysis"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default decompiler is jadx", func(t *testing.T) {
		t.Parallel()
		if cfg.DecompilerPath != "jadx" {
			t.Errorf("expected DecompilerPath to be 'jadx', got '%s'", cfg.DecompilerPath)
		}
	})

	t.Run("default DecompileTimeout is 10 minutes", func(t *testing.T) {
		t.Parallel()
		if cfg.DecompileTimeout != 10*time.Minute {
			t.Errorf("expected DecompileTimeout to be 10m, got %v", cfg.DecompileTimeout)
		}
	})

	t.Run("default Workers is 8", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 8 {
			t.Errorf("expected Workers to be 8, got %d", cfg.Workers)
		}
	})

	t.Run("default MaxFileSize is 10MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxFileSize != 10*1024*1024 {
			t.Errorf("expected MaxFileSize to be 10MB, got %d", cfg.MaxFileSize)
		}
	})

	t.Run("analyzers are disabled by default", func(t *testing.T) {
		t.Parallel()
		if cfg.Obfuscation || cfg.Secrets {
			t.Error("expected Obfuscation and Secrets to be false")
		}
	})

	t.Run("directories live under the XDG data dir", func(t *testing.T) {
		t.Parallel()
		if cfg.DBDir != XDGDataDir() {
			t.Errorf("expected DBDir %q, got %q", XDGDataDir(), cfg.DBDir)
		}
		if !strings.HasPrefix(cfg.OutputDir, XDGDataDir()) {
			t.Errorf("expected OutputDir under %q, got %q", XDGDataDir(), cfg.OutputDir)
		}
		if filepath.Base(cfg.SessionFile) != "session.yaml" {
			t.Errorf("unexpected SessionFile %q", cfg.SessionFile)
		}
	})
}

// TestConfigValidate tests the Validate method.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"1"}
		return cfg
	}

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{name: "valid config returns nil", modify: func(*Config) {}},
		{name: "multiple targets is valid", modify: func(c *Config) { c.Targets = []string{"1", "app.apk"} }},
		{name: "empty targets returns ErrNoTarget", modify: func(c *Config) { c.Targets = nil }, wantErr: ErrNoTarget},
		{name: "zero timeout returns ErrInvalidTimeout", modify: func(c *Config) { c.DecompileTimeout = 0 }, wantErr: ErrInvalidTimeout},
		{name: "negative timeout returns ErrInvalidTimeout", modify: func(c *Config) { c.DecompileTimeout = -time.Second }, wantErr: ErrInvalidTimeout},
		{name: "zero workers returns ErrInvalidWorkers", modify: func(c *Config) { c.Workers = 0 }, wantErr: ErrInvalidWorkers},
		{name: "zero max file size returns ErrInvalidMaxFileSize", modify: func(c *Config) { c.MaxFileSize = 0 }, wantErr: ErrInvalidMaxFileSize},
		{
			name:    "json and markdown both enabled returns ErrConflictingReportFormats",
			modify:  func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			wantErr: ErrConflictingReportFormats,
		},
		{name: "json only is valid", modify: func(c *Config) { c.JSONReport = true }},
		{
			name:    "secrets without decompiler returns ErrNoDecompiler",
			modify:  func(c *Config) { c.Secrets, c.DecompilerPath = true, "" },
			wantErr: ErrNoDecompiler,
		},
		{name: "manifest only scan needs no decompiler", modify: func(c *Config) { c.DecompilerPath = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestConfigApply tests overlaying the config file onto defaults.
func TestConfigApply(t *testing.T) {
	t.Parallel()

	t.Run("set values override defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		f := &File{
			Decompiler: DecompilerSettings{Path: "/opt/jadx/bin/jadx", Args: []string{"--no-res"}, Timeout: 15 * time.Minute},
			Analysis:   AnalysisSettings{Workers: 2, MaxFileSize: 1024, SkipDirs: []string{"resources"}},
		}
		cfg.Apply(f)

		if cfg.DecompilerPath != "/opt/jadx/bin/jadx" || cfg.DecompileTimeout != 15*time.Minute {
			t.Errorf("decompiler settings not applied: %+v", cfg)
		}
		if len(cfg.DecompilerArgs) != 1 || cfg.DecompilerArgs[0] != "--no-res" {
			t.Errorf("DecompilerArgs = %v", cfg.DecompilerArgs)
		}
		if cfg.Workers != 2 || cfg.MaxFileSize != 1024 || len(cfg.SkipDirs) != 1 {
			t.Errorf("analysis settings not applied: %+v", cfg)
		}
		if cfg.File != f {
			t.Error("expected File to be kept")
		}
	})

	t.Run("zero values keep defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Apply(&File{})
		if cfg.DecompilerPath != DefaultDecompiler || cfg.Workers != DefaultWorkers {
			t.Errorf("defaults were overwritten: %+v", cfg)
		}
	})

	t.Run("nil file is ignored", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.Apply(nil)
		if cfg.File != nil {
			t.Error("expected File to stay nil")
		}
	})
}

// TestFileSignatureTable tests building the signature table from the file.
func TestFileSignatureTable(t *testing.T) {
	t.Parallel()

	builtin := len(analysis.DefaultSignatures())
	custom := analysis.SignatureDef{ID: "internal_token", Severity: "high", Pattern: `itk_[0-9a-f]{32}`}
	override := analysis.SignatureDef{ID: "google_api_key", Severity: "low", Pattern: `AIza[0-9A-Za-z_\-]{35}`}

	tests := []struct {
		name    string
		file    *File
		wantLen int
		wantErr bool
	}{
		{name: "nil file yields built-in table", file: nil, wantLen: builtin},
		{name: "custom signature is appended", file: &File{Secrets: SecretSettings{Signatures: []analysis.SignatureDef{custom}}}, wantLen: builtin + 1},
		{name: "same id replaces built-in", file: &File{Secrets: SecretSettings{Signatures: []analysis.SignatureDef{override}}}, wantLen: builtin},
		{
			name:    "disable builtin keeps only custom",
			file:    &File{Secrets: SecretSettings{DisableBuiltin: true, Signatures: []analysis.SignatureDef{custom}}},
			wantLen: 1,
		},
		{
			name:    "invalid pattern is an error",
			file:    &File{Secrets: SecretSettings{Signatures: []analysis.SignatureDef{{ID: "bad", Pattern: "("}}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sigs, err := tt.file.SignatureTable()
			if (err != nil) != tt.wantErr {
				t.Fatalf("SignatureTable() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && len(sigs) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(sigs), tt.wantLen)
			}
		})
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.apkscan")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".apkscan")
		content := `decompiler:
  path: /opt/jadx/bin/jadx
  args: ["--no-res"]
  timeout: 15m
analysis:
  workers: 4
  maxFileSize: 2048
  skipDirs:
    - resources
secrets:
  disableBuiltin: false
  signatures:
    - id: internal_token
      label: Internal service token
      severity: high
      pattern: 'itk_[0-9a-f]{32}'
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Decompiler.Path != "/opt/jadx/bin/jadx" {
			t.Errorf("expected decompiler path, got %q", cfg.Decompiler.Path)
		}
		if cfg.Decompiler.Timeout != 15*time.Minute {
			t.Errorf("expected 15m timeout, got %v", cfg.Decompiler.Timeout)
		}
		if cfg.Analysis.Workers != 4 || cfg.Analysis.MaxFileSize != 2048 {
			t.Errorf("unexpected analysis settings: %+v", cfg.Analysis)
		}
		if len(cfg.Secrets.Signatures) != 1 || cfg.Secrets.Signatures[0].ID != "internal_token" {
			t.Errorf("unexpected signatures: %+v", cfg.Secrets.Signatures)
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".apkscan")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Run("returns explicit path if exists", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("analysis: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})

	t.Run("finds config in current directory", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("analysis: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}
		t.Chdir(dir)

		if result := FindConfigFile(""); filepath.Base(result) != DefaultConfigFile {
			t.Errorf("expected %s in %s, got %q", DefaultConfigFile, dir, result)
		}
	})
}

// TestXDGDirs tests XDG directory functions.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	for name, dir := range map[string]string{
		"data":       XDGDataDir(),
		"config":     XDGConfigDir(),
		"decompiled": DecompiledDir(),
		"session":    SessionPath(),
	} {
		if dir == "" || !strings.Contains(dir, AppName) {
			t.Errorf("%s dir = %q, want a path containing %q", name, dir, AppName)
		}
	}
}
