package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/apkscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format for documentation and
// sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.ScanReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeSummary(md, report)
	w.writeManifest(md, report)
	w.writeObfuscation(md, report)
	w.writeSecrets(md, report)
	w.writeFindings(md, report)
	w.writeErrors(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with scan information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.ScanReport) {
	md.H1("apkscan Report: " + report.Name())
	md.PlainText("")

	rows := [][]string{}
	if report.APK != nil {
		rows = append(rows,
			[]string{"ID", strconv.FormatInt(report.APK.ID, 10)},
			[]string{"File", "`" + report.APK.FileName + "`"},
			[]string{"Package", orDash(report.APK.PackageName)},
			[]string{"SHA-256", "`" + report.APK.Hash + "`"},
		)
	} else {
		rows = append(rows, []string{"Identifier", "`" + report.Identifier + "`"})
	}
	rows = append(rows,
		[]string{"Run", orDash(report.RunID)},
		[]string{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
		[]string{"Status", statusText(report)},
	)

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// statusText returns the status text based on report state.
func statusText(report *model.ScanReport) string {
	switch {
	case report.Cancelled:
		return "⚠️ " + status(report)
	case report.Failed():
		return "❌ " + status(report)
	default:
		return "✅ " + status(report)
	}
}

// writeSummary writes the severity summary section.
func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Severity Summary")
	md.PlainText("")

	counts := report.SeverityCounts()
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Count"},
		Rows: [][]string{
			{"🔴 Critical", strconv.Itoa(counts[model.SeverityCritical])},
			{"🟠 High", strconv.Itoa(counts[model.SeverityHigh])},
			{"🟡 Medium", strconv.Itoa(counts[model.SeverityMedium])},
			{"🔵 Low", strconv.Itoa(counts[model.SeverityLow])},
			{"⚪ Info", strconv.Itoa(counts[model.SeverityInfo])},
			{"**Total**", "**" + strconv.Itoa(report.TotalFindings()) + "**"},
		},
	})
	md.PlainText("")

	if report.TotalFindings() > 0 {
		w.writePieChart(md, counts)
	}

	w.writeAlert(md, report, counts)
}

// writePieChart writes a mermaid pie chart for severity distribution.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts map[model.Severity]int) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Finding Severity Distribution"),
		piechart.WithShowData(true),
	)

	for _, sev := range severityOrder {
		if counts[sev] > 0 {
			chart.LabelAndIntValue(titleCase(sev.String()), uint64(counts[sev]))
		}
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an appropriate alert based on severity counts.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.ScanReport, counts map[model.Severity]int) {
	switch {
	case counts[model.SeverityCritical] > 0:
		md.Cautionf(
			"Critical issues detected! %d critical finding(s) expose credentials or backend access.",
			counts[model.SeverityCritical],
		)
	case counts[model.SeverityHigh] > 0:
		md.Warningf(
			"High severity issues detected. %d high severity finding(s) should be fixed before release.",
			counts[model.SeverityHigh],
		)
	case counts[model.SeverityMedium] > 0:
		md.Importantf(
			"Medium severity issues found. %d finding(s) are worth reviewing.",
			counts[model.SeverityMedium],
		)
	case report.TotalFindings() > 0:
		md.Note("Only low severity and informational findings detected.")
	default:
		md.Tip("No significant security issues detected.")
	}
	md.PlainText("")
}

// writeManifest writes component counts and requested permissions.
func (w *MarkdownWriter) writeManifest(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Manifest")
	md.PlainText("")

	rows := make([][]string, 0, len(model.ComponentKinds)+1)
	for _, row := range componentCountRows(report) {
		rows = append(rows, []string{row[0], row[1]})
	}
	rows = append(rows, []string{"meta-data", strconv.Itoa(report.MetaDataCount)})
	md.Table(markdown.TableSet{
		Header: []string{"Component", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(report.Permissions) > 0 {
		md.PlainText("### Permissions")
		md.PlainText("")
		md.BulletList(report.Permissions...)
		md.PlainText("")
	}
	if len(report.ManifestWarnings) > 0 {
		md.PlainText("### Warnings")
		md.PlainText("")
		md.BulletList(report.ManifestWarnings...)
		md.PlainText("")
	}
}

// writeObfuscation writes the obfuscation statistics.
func (w *MarkdownWriter) writeObfuscation(md *markdown.Markdown, report *model.ScanReport) {
	obf := report.Obfuscation
	if obf == nil {
		return
	}

	md.H2("Obfuscation")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Names", "Obfuscated", "Total", "Ratio"},
		Rows: [][]string{
			{"Classes", strconv.Itoa(obf.ObfuscatedClassCount), strconv.Itoa(obf.TotalClassCount), percent(obf.ClassRatio())},
			{"Methods", strconv.Itoa(obf.ObfuscatedMethodCount), strconv.Itoa(obf.TotalMethodCount), percent(obf.MethodRatio())},
		},
	})
	md.PlainText("")

	if len(obf.MappingArtifacts) > 0 {
		md.PlainText("### Mapping artifacts")
		md.PlainText("")
		md.BulletList(obf.MappingArtifacts...)
		md.PlainText("")
	}
}

// writeSecrets writes a table of secret findings.
func (w *MarkdownWriter) writeSecrets(md *markdown.Markdown, report *model.ScanReport) {
	if len(report.Secrets) == 0 {
		return
	}

	md.H2("Secrets")
	md.PlainText("")

	secrets := secretsBySeverity(report.Secrets)
	rows := make([][]string, len(secrets))
	for i, s := range secrets {
		rows[i] = []string{
			s.Severity.String(),
			s.Label,
			"`" + truncateString(s.MatchedText, 50) + "`",
			fmt.Sprintf("%s:%d", truncateString(s.SourceFile, 60), s.Line),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Severity", "Signature", "Match", "Location"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFindings writes all findings grouped by severity.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.ScanReport) {
	md.H2("Findings")
	md.PlainText("")

	if len(report.Findings) == 0 {
		md.PlainText("No manifest or asset findings.")
		md.PlainText("")
		return
	}

	severities := []struct {
		level  model.Severity
		header string
	}{
		{model.SeverityCritical, "### 🔴 Critical"},
		{model.SeverityHigh, "### 🟠 High"},
		{model.SeverityMedium, "### 🟡 Medium"},
		{model.SeverityLow, "### 🔵 Low"},
		{model.SeverityInfo, "### ⚪ Info"},
	}

	for _, sev := range severities {
		findings := report.FindingsBySeverity(sev.level)
		if len(findings) == 0 {
			continue
		}

		md.PlainText(sev.header)
		md.PlainText("")
		w.writeFindingsTable(md, findings)
	}
}

// writeFindingsTable writes a table of findings with details.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		rows[i] = []string{
			f.Title,
			truncateString(orDash(f.Value), 50),
			truncateString(orDash(f.Location), 40),
			truncateString(orDash(f.Recommendation), 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Title", "Value", "Location", "Recommendation"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		if f.Impact != "" {
			md.Details(f.Title, f.Impact)
		}
	}
	md.PlainText("")
}

// writeErrors lists step errors and skipped steps.
func (w *MarkdownWriter) writeErrors(md *markdown.Markdown, report *model.ScanReport) {
	if len(report.ErrorMessage) == 0 && len(report.SkippedSteps) == 0 {
		return
	}

	md.H2("Errors")
	md.PlainText("")
	if len(report.ErrorMessage) > 0 {
		md.BulletList(report.ErrorMessage...)
		md.PlainText("")
	}
	if len(report.SkippedSteps) > 0 {
		md.PlainTextf("Skipped steps: %v", report.SkippedSteps)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [apkscan](https://github.com/nao1215/apkscan)*")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func percent(ratio float64) string {
	return strconv.FormatFloat(ratio*100, 'f', 1, 64) + "%"
}

// titleCase turns "CRITICAL" into "Critical".
func titleCase(s string) string {
	if s == "" {
		return s
	}
	return s[:1] + strings.ToLower(s[1:])
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
