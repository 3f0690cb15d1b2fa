package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/nao1215/apkscan/internal/model"
)

// Resolver looks up a registered APK by id or file name.
type Resolver interface {
	FindByIdentifier(ctx context.Context, identifier string) (*model.APK, error)
}

// BatchProcessor scans several APKs one after another. Each APK gets a
// fresh pipeline and its own report; a failure in one scan never stops the
// others.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each scan.
	pipelineFactory func() *Pipeline

	resolver Resolver
	logger   *slog.Logger
	newRunID func() string
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithRunIDGenerator replaces the generator of scan run ids.
func WithRunIDGenerator(fn func() string) BatchOption {
	return func(b *BatchProcessor) {
		if fn != nil {
			b.newRunID = fn
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(resolver Resolver, pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		resolver:        resolver,
		newRunID:        uuid.NewString,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch scans every identifier in order and returns one report per
// identifier that was started. Unresolvable identifiers produce a report
// carrying model.ErrInputNotFound. If ctx is cancelled, processing stops
// before the next identifier and ctx.Err() is returned with the reports
// gathered so far.
func (b *BatchProcessor) ProcessBatch(ctx context.Context, identifiers []string) ([]*model.ScanReport, error) {
	reports := make([]*model.ScanReport, 0, len(identifiers))
	err := b.ProcessWithCallback(ctx, identifiers, func(report *model.ScanReport) {
		reports = append(reports, report)
	})
	return reports, err
}

// ProcessWithCallback scans identifiers like ProcessBatch and hands each
// report to callback as soon as its scan finishes.
func (b *BatchProcessor) ProcessWithCallback(ctx context.Context, identifiers []string, callback func(*model.ScanReport)) error {
	b.logger.Info("starting batch processing", "count", len(identifiers))

	for i, identifier := range identifiers {
		if err := ctx.Err(); err != nil {
			b.logger.Warn("batch processing cancelled", "remaining", len(identifiers)-i)
			return err
		}

		report := b.scanOne(ctx, identifier)
		if callback != nil {
			callback(report)
		}
	}

	b.logger.Info("batch processing completed", "count", len(identifiers))
	return nil
}

func (b *BatchProcessor) scanOne(ctx context.Context, identifier string) *model.ScanReport {
	report := model.NewScanReport(identifier)
	report.RunID = b.newRunID()

	apk, err := b.resolver.FindByIdentifier(ctx, identifier)
	if err != nil {
		b.logger.Warn("cannot resolve apk", "identifier", identifier, "error", err)
		report.AddError(err)
		return report
	}
	report.APK = apk

	b.logger.Info("scanning apk", "id", apk.ID, "file", apk.FileName, "run_id", report.RunID)
	if err := b.pipelineFactory().Execute(ctx, report); err != nil {
		b.logger.Warn("scan ended early", "identifier", identifier, "error", err)
	}
	if report.Failed() {
		b.logger.Warn("scan completed with errors", "identifier", identifier, "errors", len(report.Errors))
	} else {
		b.logger.Info("scan completed", "identifier", identifier, "findings", report.TotalFindings())
	}
	return report
}
