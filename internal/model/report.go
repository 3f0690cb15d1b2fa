package model

import (
	"time"
)

// ScanReport is the result of scanning one APK. The pipeline fills it step
// by step; renderers and the repository consume it.
type ScanReport struct {
	// RunID identifies this scan in the repository.
	RunID string `json:"run_id"`

	// Identifier is the id or file name the scan was requested with.
	Identifier string `json:"identifier"`

	// APK is the resolved package record, nil when resolution failed.
	APK *APK `json:"apk,omitempty"`

	DateScanned time.Time     `json:"date_scanned"`
	Duration    time.Duration `json:"duration_ns"`

	// ComponentCounts counts extracted components per kind name.
	ComponentCounts map[string]int `json:"component_counts,omitempty"`

	// MetaDataCount is the number of meta-data records extracted.
	MetaDataCount int `json:"metadata_count"`

	// Permissions lists uses-permission declarations in manifest order.
	Permissions []string `json:"permissions,omitempty"`

	// ManifestWarnings holds per-component extraction problems.
	ManifestWarnings []string `json:"manifest_warnings,omitempty"`

	// SourceDir is the decompiled tree, empty when decompilation did not run
	// or failed.
	SourceDir string `json:"source_dir,omitempty"`

	Obfuscation *ObfuscationReport `json:"obfuscation,omitempty"`
	Secrets     []SecretFinding    `json:"secrets,omitempty"`
	Findings    []Finding          `json:"findings,omitempty"`

	// PerformedSteps and SkippedSteps list pipeline step names.
	PerformedSteps []string `json:"performed_steps,omitempty"`
	SkippedSteps   []string `json:"skipped_steps,omitempty"`

	// Errors collects step failures; the scan itself continues past them.
	Errors       []error  `json:"-"`
	ErrorMessage []string `json:"errors,omitempty"`

	// Cancelled is set when the context ended before all steps ran.
	Cancelled bool `json:"cancelled,omitempty"`
}

// NewScanReport creates an empty report for the given identifier.
func NewScanReport(identifier string) *ScanReport {
	return &ScanReport{
		Identifier:      identifier,
		DateScanned:     time.Now(),
		ComponentCounts: make(map[string]int),
	}
}

// Name returns the best display name of the scanned package.
func (r *ScanReport) Name() string {
	if r.APK != nil && r.APK.FileName != "" {
		return r.APK.FileName
	}
	return r.Identifier
}

// AddError records a step failure.
func (r *ScanReport) AddError(err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, err)
	r.ErrorMessage = append(r.ErrorMessage, err.Error())
}

// Failed reports whether any step failed.
func (r *ScanReport) Failed() bool {
	return len(r.Errors) > 0
}

// AddFinding appends a finding unless one with the same type, value and
// location is already present.
func (r *ScanReport) AddFinding(finding Finding) {
	for _, f := range r.Findings {
		if f.Type == finding.Type && f.Value == finding.Value && f.Location == finding.Location {
			return
		}
	}
	r.Findings = append(r.Findings, finding)
}

// SeverityCounts counts findings and secret findings per severity.
func (r *ScanReport) SeverityCounts() map[Severity]int {
	counts := make(map[Severity]int)
	for _, f := range r.Findings {
		counts[f.Severity]++
	}
	for _, s := range r.Secrets {
		counts[s.Severity]++
	}
	return counts
}

// TotalFindings returns the number of findings plus secret findings.
func (r *ScanReport) TotalFindings() int {
	return len(r.Findings) + len(r.Secrets)
}

// FindingsBySeverity returns findings filtered by severity.
func (r *ScanReport) FindingsBySeverity(severity Severity) []Finding {
	var result []Finding
	for _, f := range r.Findings {
		if f.Severity == severity {
			result = append(result, f)
		}
	}
	return result
}
