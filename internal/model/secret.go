package model

import "log/slog"

// SecretFinding is one signature match in one file. Identical matches at
// different locations are separate findings.
type SecretFinding struct {
	SourceFile  string   `json:"source_file"`
	Line        int      `json:"line"`
	MatchedText string   `json:"matched_text"`
	PatternID   string   `json:"pattern_id"`
	Label       string   `json:"label"`
	Severity    Severity `json:"severity"`
}

// LogValue implements slog.LogValuer.
func (f SecretFinding) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("pattern", f.PatternID),
		slog.String("severity", f.Severity.String()),
		slog.String("file", f.SourceFile),
		slog.Int("line", f.Line),
		slog.String("match", f.MatchedText),
	)
}
