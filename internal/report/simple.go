package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/apkscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no findings are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.ScanReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeSummary(&sb, report)
	w.writeManifest(&sb, report)
	w.writeObfuscation(&sb, report)
	w.writeSecrets(&sb, report)
	w.writeFindings(&sb, report)
	w.writeErrors(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

func section(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with scan information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.ScanReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          APKSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "APK:            %s\n", report.Name())
	if report.APK != nil {
		fmt.Fprintf(sb, "ID:             %d\n", report.APK.ID)
		if report.APK.PackageName != "" {
			fmt.Fprintf(sb, "Package:        %s\n", report.APK.PackageName)
		}
		fmt.Fprintf(sb, "SHA-256:        %s\n", report.APK.Hash)
	}
	if report.RunID != "" {
		fmt.Fprintf(sb, "Run:            %s\n", report.RunID)
	}
	fmt.Fprintf(sb, "Scan Date:      %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Duration:       %s\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(sb, "Status:         %s\n", status(report))
	sb.WriteString("\n")
}

// writeSummary writes the severity summary section.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.ScanReport) {
	section(sb, "SEVERITY SUMMARY")

	counts := report.SeverityCounts()
	for _, sev := range severityOrder {
		fmt.Fprintf(sb, "  %-9s %d\n", sev.String()+":", counts[sev])
	}
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:    %d findings\n", report.TotalFindings())
	sb.WriteString("\n")
}

// writeManifest writes component counts and permissions.
func (w *SimpleWriter) writeManifest(sb *strings.Builder, report *model.ScanReport) {
	section(sb, "MANIFEST")

	for _, row := range componentCountRows(report) {
		fmt.Fprintf(sb, "  %-12s %s\n", row[0], row[1])
	}
	fmt.Fprintf(sb, "  %-12s %d\n", "meta-data", report.MetaDataCount)
	sb.WriteString("\n")

	if len(report.Permissions) > 0 || w.showEmpty {
		sb.WriteString("  Permissions:\n")
		if len(report.Permissions) == 0 {
			sb.WriteString("    none\n")
		}
		for _, p := range report.Permissions {
			fmt.Fprintf(sb, "    [+] %s\n", p)
		}
		sb.WriteString("\n")
	}

	if len(report.ManifestWarnings) > 0 {
		sb.WriteString("  Warnings:\n")
		for _, warn := range report.ManifestWarnings {
			fmt.Fprintf(sb, "    ! %s\n", warn)
		}
		sb.WriteString("\n")
	}
}

// writeObfuscation writes the obfuscation statistics.
func (w *SimpleWriter) writeObfuscation(sb *strings.Builder, report *model.ScanReport) {
	obf := report.Obfuscation
	if obf == nil && !w.showEmpty {
		return
	}

	section(sb, "OBFUSCATION")
	if obf == nil {
		sb.WriteString("  Not analyzed\n\n")
		return
	}

	fmt.Fprintf(sb, "  Classes:  %d / %d obfuscated (%.1f%%)\n",
		obf.ObfuscatedClassCount, obf.TotalClassCount, obf.ClassRatio()*100)
	fmt.Fprintf(sb, "  Methods:  %d / %d obfuscated (%.1f%%)\n",
		obf.ObfuscatedMethodCount, obf.TotalMethodCount, obf.MethodRatio()*100)
	if len(obf.MappingArtifacts) > 0 {
		sb.WriteString("  Mapping artifacts:\n")
		for _, a := range obf.MappingArtifacts {
			fmt.Fprintf(sb, "    [+] %s\n", a)
		}
	}
	if obf.Obfuscated() {
		sb.WriteString("  Verdict:  likely obfuscated\n")
	} else {
		sb.WriteString("  Verdict:  not obfuscated\n")
	}
	if w.verbose {
		fmt.Fprintf(sb, "  Files:    %d scanned, %d skipped\n", obf.FilesScanned, obf.FilesSkipped)
	}
	sb.WriteString("\n")
}

// writeSecrets writes secret findings, most severe first.
func (w *SimpleWriter) writeSecrets(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Secrets) == 0 && !w.showEmpty {
		return
	}

	section(sb, "SECRETS")
	if len(report.Secrets) == 0 {
		sb.WriteString("  No secrets found\n\n")
		return
	}

	for _, s := range secretsBySeverity(report.Secrets) {
		fmt.Fprintf(sb, "  [%s] %s\n", getSeverityIndicator(s.Severity), s.Label)
		fmt.Fprintf(sb, "    Location: %s:%d\n", s.SourceFile, s.Line)
		fmt.Fprintf(sb, "    Match:    %s\n", s.MatchedText)
	}
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by severity.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.ScanReport) {
	if len(report.Findings) == 0 && !w.showEmpty {
		return
	}

	section(sb, "FINDINGS")

	for _, severity := range severityOrder {
		findings := report.FindingsBySeverity(severity)
		if len(findings) == 0 && !w.showEmpty {
			continue
		}

		w.writeFindingsForSeverity(sb, severity, findings)
	}
}

// writeFindingsForSeverity writes findings of a specific severity level.
func (w *SimpleWriter) writeFindingsForSeverity(sb *strings.Builder, severity model.Severity, findings []model.Finding) {
	fmt.Fprintf(sb, "[%s] %s\n", getSeverityIndicator(severity), severity.String())

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, finding := range findings {
		fmt.Fprintf(sb, "  * %s\n", finding.Title)
		if finding.Value != "" {
			fmt.Fprintf(sb, "    Value: %s\n", finding.Value)
		}
		if finding.Location != "" {
			fmt.Fprintf(sb, "    Location: %s\n", finding.Location)
		}
		if w.verbose && finding.Description != "" {
			fmt.Fprintf(sb, "    Description: %s\n", finding.Description)
		}
		if w.verbose && finding.Recommendation != "" {
			fmt.Fprintf(sb, "    Recommendation: %s\n", finding.Recommendation)
		}
	}
	sb.WriteString("\n")
}

// writeErrors writes step errors and skipped steps.
func (w *SimpleWriter) writeErrors(sb *strings.Builder, report *model.ScanReport) {
	if len(report.ErrorMessage) == 0 && len(report.SkippedSteps) == 0 {
		return
	}

	section(sb, "ERRORS")
	for _, msg := range report.ErrorMessage {
		fmt.Fprintf(sb, "  x %s\n", msg)
	}
	if len(report.SkippedSteps) > 0 {
		fmt.Fprintf(sb, "  Skipped steps: %s\n", strings.Join(report.SkippedSteps, ", "))
	}
	sb.WriteString("\n")
}

// getSeverityIndicator returns a visual indicator for the severity level.
func getSeverityIndicator(severity model.Severity) string {
	switch severity {
	case model.SeverityCritical:
		return "!!!"
	case model.SeverityHigh:
		return "!!"
	case model.SeverityMedium:
		return "!"
	case model.SeverityLow:
		return "-"
	case model.SeverityInfo:
		return "i"
	default:
		return "?"
	}
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by apkscan\n")
	sb.WriteString("https://github.com/nao1215/apkscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
