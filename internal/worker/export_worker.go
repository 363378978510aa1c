package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"planilla/internal/amqp"
	"planilla/internal/core"
	"planilla/internal/log"
	"planilla/internal/metrics"
	"planilla/internal/sheets"
)

// Payroll is the read side the worker needs from the payroll service.
type Payroll interface {
	ListWeeks(ctx context.Context, limit int) ([]core.Week, error)
	Summary(ctx context.Context, weekID int64) (core.WeeklySummary, error)
}

// ExportWorker pushes closed weeks to the payout spreadsheet
type ExportWorker struct {
	payroll Payroll
	sheets  sheets.PayoutPublisher
}

func NewExportWorker(payroll Payroll, publisher sheets.PayoutPublisher) *ExportWorker {
	return &ExportWorker{
		payroll: payroll,
		sheets:  publisher,
	}
}

// HandleWeekClosed processes a single week.closed message from AMQP. Weeks
// that were reopened or deleted since the event was published are skipped.
func (w *ExportWorker) HandleWeekClosed(ctx context.Context, msg *amqp.WeekClosedMessage) error {
	slog.InfoContext(ctx, "Processing week closed message",
		"message_id", msg.ID,
		"week_id", msg.WeekID)

	summary, err := w.payroll.Summary(ctx, msg.WeekID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Week no longer exists, skipping export", "week_id", msg.WeekID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load summary: %w", err)
	}
	if !summary.Week.Closed {
		slog.InfoContext(ctx, "Week was reopened, skipping export", "week_id", msg.WeekID)
		return nil
	}

	return w.export(ctx, summary)
}

func (w *ExportWorker) export(ctx context.Context, summary core.WeeklySummary) error {
	ref, err := w.sheets.PublishPayout(ctx, summary)
	if err != nil {
		metrics.Exports.WithLabelValues("sheets", "error").Inc()
		return fmt.Errorf("publish payout: %w", err)
	}
	metrics.Exports.WithLabelValues("sheets", "ok").Inc()

	slog.InfoContext(ctx, "Week payout exported",
		log.FieldOperation, log.OpExport,
		log.FieldWeekID, summary.Week.ID,
		log.FieldSheetsRef, ref,
		"workers", summary.WorkerCount(),
		"total", summary.TotalPayable.String())
	return nil
}

// StartupSyncCheck re-exports the most recent closed weeks. It recovers from
// messages lost while the worker was down; rewriting a tab is idempotent.
func (w *ExportWorker) StartupSyncCheck(ctx context.Context, limit int) error {
	weeks, err := w.payroll.ListWeeks(ctx, limit)
	if err != nil {
		return fmt.Errorf("list weeks for startup check: %w", err)
	}

	exported, failed := 0, 0
	for _, week := range weeks {
		if !week.Closed {
			continue
		}
		summary, err := w.payroll.Summary(ctx, week.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to load summary for startup sync", "week_id", week.ID, "error", err)
			failed++
			continue
		}
		if err := w.export(ctx, summary); err != nil {
			slog.ErrorContext(ctx, "Failed to export week on startup", "week_id", week.ID, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup sync check completed",
		log.FieldOperation, log.OpSync,
		"checked", len(weeks),
		"exported", exported,
		"failed", failed)
	return nil
}
