package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/apkscan/internal/model"
)

// SaveSecretFindings stores the secret findings of one scan run.
func (r *Repository) SaveSecretFindings(ctx context.Context, runID string, appID int64, findings []model.SecretFinding) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrPersistence, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error is what matters
		}
	}()

	for _, f := range findings {
		if _, err = tx.ExecContext(ctx, `
		INSERT INTO secret_findings (run_id, app_id, source_file, line, matched_text, pattern_id, label, severity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, appID, f.SourceFile, f.Line, f.MatchedText, f.PatternID, f.Label, int(f.Severity)); err != nil {
			return fmt.Errorf("%w: insert secret finding: %v", ErrPersistence, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrPersistence, err)
	}
	return nil
}

// SecretFindings returns the stored secret findings of one scan run.
func (r *Repository) SecretFindings(ctx context.Context, runID string) ([]model.SecretFinding, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT source_file, line, matched_text, pattern_id, label, severity
	FROM secret_findings WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query secret findings: %w", err)
	}
	defer rows.Close()

	var findings []model.SecretFinding
	for rows.Next() {
		var (
			f        model.SecretFinding
			label    sql.NullString
			severity int
		)
		if err := rows.Scan(&f.SourceFile, &f.Line, &f.MatchedText, &f.PatternID, &label, &severity); err != nil {
			return nil, fmt.Errorf("failed to scan secret finding: %w", err)
		}
		f.Label = label.String
		f.Severity = model.Severity(severity)
		findings = append(findings, f)
	}
	return findings, rows.Err()
}

// SaveObfuscationReport stores the obfuscation result of one scan run.
func (r *Repository) SaveObfuscationReport(ctx context.Context, runID string, appID int64, report *model.ObfuscationReport) error {
	artifacts, err := json.Marshal(report.MappingArtifacts)
	if err != nil {
		return fmt.Errorf("failed to serialize mapping artifacts: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `
	INSERT INTO obfuscation_reports (run_id, app_id, obfuscated_classes, total_classes,
		obfuscated_methods, total_methods, mapping_artifacts, files_scanned, files_skipped)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		runID,
		appID,
		report.ObfuscatedClassCount,
		report.TotalClassCount,
		report.ObfuscatedMethodCount,
		report.TotalMethodCount,
		string(artifacts),
		report.FilesScanned,
		report.FilesSkipped,
	); err != nil {
		return fmt.Errorf("%w: insert obfuscation report: %v", ErrPersistence, err)
	}
	return nil
}

// ObfuscationReport returns the stored obfuscation result of one scan run,
// or model.ErrInputNotFound.
func (r *Repository) ObfuscationReport(ctx context.Context, runID string) (*model.ObfuscationReport, error) {
	var (
		report    model.ObfuscationReport
		artifacts string
	)
	err := r.db.QueryRowContext(ctx, `
	SELECT obfuscated_classes, total_classes, obfuscated_methods, total_methods,
		mapping_artifacts, files_scanned, files_skipped
	FROM obfuscation_reports WHERE run_id = ?
	`, runID).Scan(
		&report.ObfuscatedClassCount,
		&report.TotalClassCount,
		&report.ObfuscatedMethodCount,
		&report.TotalMethodCount,
		&artifacts,
		&report.FilesScanned,
		&report.FilesSkipped,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no obfuscation report for run %s", model.ErrInputNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get obfuscation report: %w", err)
	}
	if err := json.Unmarshal([]byte(artifacts), &report.MappingArtifacts); err != nil {
		return nil, fmt.Errorf("failed to parse mapping artifacts: %w", err)
	}
	return &report, nil
}

// SaveScanRun stores a complete scan report. The report must carry a
// resolved APK and a run id.
func (r *Repository) SaveScanRun(ctx context.Context, report *model.ScanReport) error {
	if report.APK == nil || report.RunID == "" {
		return fmt.Errorf("%w: scan run without apk or run id", ErrPersistence)
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	riskSummary := make(map[string]int)
	for sev, n := range report.SeverityCounts() {
		riskSummary[strings.ToLower(sev.String())] = n
	}
	riskJSON, _ := json.Marshal(riskSummary) //nolint:errcheck,errchkjson // riskSummary is a simple map; Marshal won't fail

	if _, err := r.db.ExecContext(ctx, `
	INSERT INTO scan_runs (run_id, app_id, scanned_at, duration_ms, report_json, risk_summary)
	VALUES (?, ?, ?, ?, ?, ?)
	`,
		report.RunID,
		report.APK.ID,
		formatTimestamp(report.DateScanned),
		report.Duration.Milliseconds(),
		string(reportJSON),
		string(riskJSON),
	); err != nil {
		return fmt.Errorf("%w: insert scan run: %v", ErrPersistence, err)
	}
	return nil
}

// ScanRunMetadata contains summary information about a scan run.
// This is used for displaying scan history without loading the full report.
type ScanRunMetadata struct {
	RunID     string
	AppID     int64
	ScannedAt time.Time
	Duration  time.Duration

	// RiskSummary contains counts of findings by lower-case severity name.
	RiskSummary map[string]int
}

// ListScanRuns returns the scan runs of an APK, newest first.
func (r *Repository) ListScanRuns(ctx context.Context, appID int64) ([]ScanRunMetadata, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT run_id, app_id, scanned_at, duration_ms, risk_summary
	FROM scan_runs
	WHERE app_id = ?
	ORDER BY scanned_at DESC, id DESC
	`, appID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var results []ScanRunMetadata
	for rows.Next() {
		var (
			meta      ScanRunMetadata
			scannedAt string
			duration  int64
			riskJSON  sql.NullString
		)
		if err := rows.Scan(&meta.RunID, &meta.AppID, &scannedAt, &duration, &riskJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.ScannedAt = parseTimestamp(scannedAt)
		meta.Duration = time.Duration(duration) * time.Millisecond

		meta.RiskSummary = make(map[string]int)
		if riskJSON.Valid && riskJSON.String != "" {
			if err := json.Unmarshal([]byte(riskJSON.String), &meta.RiskSummary); err != nil {
				meta.RiskSummary = make(map[string]int)
			}
		}
		results = append(results, meta)
	}
	return results, rows.Err()
}

// LatestScanRuns returns up to n complete reports of an APK, newest first.
func (r *Repository) LatestScanRuns(ctx context.Context, appID int64, n int) ([]*model.ScanReport, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT report_json FROM scan_runs
	WHERE app_id = ?
	ORDER BY scanned_at DESC, id DESC
	LIMIT ?
	`, appID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get scan history: %w", err)
	}
	defer rows.Close()

	var reports []*model.ScanReport
	for rows.Next() {
		var reportJSON string
		if err := rows.Scan(&reportJSON); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		var report model.ScanReport
		if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
			continue // Skip malformed reports
		}
		reports = append(reports, &report)
	}
	return reports, rows.Err()
}

// GetScanRun returns the complete report of one run, or
// model.ErrInputNotFound.
func (r *Repository) GetScanRun(ctx context.Context, runID string) (*model.ScanReport, error) {
	var reportJSON string
	err := r.db.QueryRowContext(ctx, `SELECT report_json FROM scan_runs WHERE run_id = ?`, runID).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no scan run %s", model.ErrInputNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scan run: %w", err)
	}

	var report model.ScanReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}
