package report

import (
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/apkscan/internal/model"
)

// Writer defines the interface for report output.
// Implementations write scan results in various formats.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.ScanReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.ScanReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteAll writes every report with w and returns the total bytes written.
func WriteAll(w Writer, reports []*model.ScanReport) (int, error) {
	var total int
	for _, r := range reports {
		n, err := w.Write(r)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// severityOrder lists severities from most to least severe.
var severityOrder = []model.Severity{
	model.SeverityCritical,
	model.SeverityHigh,
	model.SeverityMedium,
	model.SeverityLow,
	model.SeverityInfo,
}

// componentCountRows returns kind/count pairs in declaration order.
func componentCountRows(report *model.ScanReport) [][2]string {
	rows := make([][2]string, 0, len(model.ComponentKinds))
	for _, kind := range model.ComponentKinds {
		rows = append(rows, [2]string{kind.String(), strconv.Itoa(report.ComponentCounts[kind.String()])})
	}
	return rows
}

// secretsBySeverity returns secret findings ordered most severe first,
// keeping file and line order within a severity.
func secretsBySeverity(secrets []model.SecretFinding) []model.SecretFinding {
	sorted := make([]model.SecretFinding, len(secrets))
	copy(sorted, secrets)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity > sorted[j].Severity
	})
	return sorted
}

// status returns the one-line scan status.
func status(report *model.ScanReport) string {
	switch {
	case report.Cancelled:
		return "Cancelled (partial results)"
	case report.Failed():
		return "Completed with errors"
	default:
		return "Complete"
	}
}
