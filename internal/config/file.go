package config

import (
	"time"

	"github.com/nao1215/apkscan/internal/analysis"
)

// DecompilerSettings configures the external decompiler.
type DecompilerSettings struct {
	// Path is the decompiler executable.
	Path string `yaml:"path,omitempty"`

	// Args are extra decompiler arguments, e.g. ["--no-res"].
	Args []string `yaml:"args,omitempty"`

	// Timeout bounds one run, e.g. "15m".
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// AnalysisSettings configures source tree walks.
type AnalysisSettings struct {
	Workers     int      `yaml:"workers,omitempty"`
	MaxFileSize int64    `yaml:"maxFileSize,omitempty"`
	SkipDirs    []string `yaml:"skipDirs,omitempty"`
}

// SecretSettings adjusts the secret signature table.
type SecretSettings struct {
	// DisableBuiltin drops the built-in signatures so only Signatures apply.
	DisableBuiltin bool `yaml:"disableBuiltin,omitempty"`

	// Signatures are added to the table; an entry whose id matches a
	// built-in signature replaces it.
	Signatures []analysis.SignatureDef `yaml:"signatures,omitempty"`
}

// File represents the structure of the .apkscan configuration file.
type File struct {
	Decompiler DecompilerSettings `yaml:"decompiler,omitempty"`
	Analysis   AnalysisSettings   `yaml:"analysis,omitempty"`
	Secrets    SecretSettings     `yaml:"secrets,omitempty"`
}

// SignatureTable builds the secret signature table described by the file.
// A nil File yields the built-in table.
func (f *File) SignatureTable() ([]analysis.Signature, error) {
	if f == nil {
		return analysis.DefaultSignatures(), nil
	}

	extra, err := analysis.CompileSignatures(f.Secrets.Signatures)
	if err != nil {
		return nil, err
	}
	if f.Secrets.DisableBuiltin {
		return extra, nil
	}
	return analysis.MergeSignatures(analysis.DefaultSignatures(), extra), nil
}
