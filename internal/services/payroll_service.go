package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"planilla/internal/core"
	"planilla/internal/log"
	"planilla/internal/metrics"
	"planilla/internal/storage"
)

// WeekEventPublisher announces lifecycle changes to other processes.
type WeekEventPublisher interface {
	PublishWeekClosed(ctx context.Context, w core.Week) error
}

// PayrollService orchestrates weeks, entries and the worker catalog on top of SQLite.
type PayrollService struct {
	storage     *storage.SQLiteRepository
	events      WeekEventPublisher
	placeholder string
}

func NewPayrollService(storage *storage.SQLiteRepository, events WeekEventPublisher, supervisorPlaceholder string) *PayrollService {
	if strings.TrimSpace(supervisorPlaceholder) == "" {
		supervisorPlaceholder = core.DefaultSupervisorPlaceholder
	}
	return &PayrollService{
		storage:     storage,
		events:      events,
		placeholder: supervisorPlaceholder,
	}
}

// ResolveWeek returns the week containing ref, creating the Monday..Saturday
// row when neither it nor a legacy Monday..Sunday row exists.
func (s *PayrollService) ResolveWeek(ctx context.Context, ref core.Date, supervisor string) (core.Week, error) {
	w, err := s.FindWeek(ctx, ref)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Week{}, err
	}

	name := core.SupervisorOrPlaceholder(supervisor, s.placeholder)
	w, err = s.storage.CreateWeek(ctx, core.WeekStart(ref), core.WeekEnd(ref), name)
	if err != nil {
		return core.Week{}, fmt.Errorf("create week: %w", err)
	}
	slog.InfoContext(ctx, "Week created", weekFields(w, log.OpCreate)...)
	return w, nil
}

// FindWeek looks up the week containing ref without creating it. Legacy rows
// that end on Sunday are returned as they are and never rewritten.
func (s *PayrollService) FindWeek(ctx context.Context, ref core.Date) (core.Week, error) {
	if ref.IsZero() {
		return core.Week{}, core.ErrMissingDate
	}
	w, err := s.storage.FindWeekByRange(ctx, core.WeekStart(ref), core.WeekEnd(ref))
	if err == nil || !errors.Is(err, core.ErrNotFound) {
		return w, err
	}

	w, err = s.storage.FindWeekByRange(ctx, core.WeekStart(ref), core.LegacyWeekEnd(ref))
	if err == nil {
		slog.DebugContext(ctx, "Using legacy week row", "week_id", w.ID, "end", w.EndDate.String())
	}
	return w, err
}

func (s *PayrollService) GetWeek(ctx context.Context, id int64) (core.Week, error) {
	return s.storage.GetWeek(ctx, id)
}

func (s *PayrollService) ListWeeks(ctx context.Context, limit int) ([]core.Week, error) {
	return s.storage.ListWeeks(ctx, limit)
}

// SetSupervisor renames the week's supervisor in any lifecycle state.
func (s *PayrollService) SetSupervisor(ctx context.Context, weekID int64, name string) (core.Week, error) {
	name = core.SupervisorOrPlaceholder(name, s.placeholder)
	if err := s.storage.SetWeekSupervisor(ctx, weekID, name); err != nil {
		return core.Week{}, fmt.Errorf("set supervisor: %w", err)
	}
	return s.storage.GetWeek(ctx, weekID)
}

// CloseWeek freezes the week. Closing a closed week is a no-op and does not
// publish a second event.
func (s *PayrollService) CloseWeek(ctx context.Context, weekID int64) (core.Week, error) {
	changed, err := s.storage.SetWeekClosed(ctx, weekID, true)
	if err != nil {
		return core.Week{}, fmt.Errorf("close week: %w", err)
	}
	w, err := s.storage.GetWeek(ctx, weekID)
	if err != nil {
		return core.Week{}, err
	}
	if !changed {
		return w, nil
	}

	metrics.WeekTransitions.WithLabelValues(string(core.WeekClosed)).Inc()
	slog.InfoContext(ctx, "Week closed", weekFields(w, log.OpClose)...)

	// Don't fail the close if the broker is unavailable
	if err := s.publishWeekClosed(ctx, w); err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "Failed to publish week closed event",
			log.NewFields().WithWeek(w.ID, w.Label()).WithError(err).ToSlice()...)
	}

	return w, nil
}

// ReopenWeek makes a closed week writable again.
func (s *PayrollService) ReopenWeek(ctx context.Context, weekID int64) (core.Week, error) {
	changed, err := s.storage.SetWeekClosed(ctx, weekID, false)
	if err != nil {
		return core.Week{}, fmt.Errorf("reopen week: %w", err)
	}
	w, err := s.storage.GetWeek(ctx, weekID)
	if err != nil {
		return core.Week{}, err
	}
	if changed {
		metrics.WeekTransitions.WithLabelValues(string(core.WeekOpen)).Inc()
		slog.InfoContext(ctx, "Week reopened", weekFields(w, log.OpReopen)...)
	}
	return w, nil
}

func weekFields(w core.Week, op string) []any {
	return log.NewFields().
		WithComponent(log.ComponentPayroll).
		WithOperation(op).
		WithWeek(w.ID, w.Label()).
		ToSlice()
}

func (s *PayrollService) publishWeekClosed(ctx context.Context, w core.Week) error {
	if s.events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping week closed event")
		return nil
	}
	if err := s.events.PublishWeekClosed(ctx, w); err != nil {
		return err
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
	return nil
}

// UpsertEntry validates and stores one worker's amount for one day. A second
// write for the same (week, date, worker) replaces the first.
func (s *PayrollService) UpsertEntry(ctx context.Context, in core.EntryInput) (core.Entry, error) {
	w, err := s.storage.GetWeek(ctx, in.WeekID)
	if err != nil {
		return core.Entry{}, err
	}

	in = in.Normalize()
	if err := in.Validate(w); err != nil {
		var ve *core.ValidationError
		if errors.As(err, &ve) {
			metrics.WritesRejected.WithLabelValues(ve.Field).Inc()
		}
		return core.Entry{}, err
	}
	in.WeekID = w.ID

	e, err := s.storage.UpsertEntry(ctx, in)
	if err != nil {
		return core.Entry{}, fmt.Errorf("save entry: %w", err)
	}
	metrics.EntriesUpserted.Inc()
	return e, nil
}

// DeleteEntry removes one worker's row for a day. Closed weeks allow deletion.
func (s *PayrollService) DeleteEntry(ctx context.Context, weekID int64, workerName string, date core.Date) (int64, error) {
	workerName = strings.TrimSpace(workerName)
	if workerName == "" {
		return 0, core.ErrEmptyWorker
	}
	if date.IsZero() {
		return 0, core.ErrMissingDate
	}
	n, err := s.storage.DeleteEntry(ctx, weekID, workerName, date)
	if err != nil {
		return 0, fmt.Errorf("delete entry: %w", err)
	}
	metrics.EntriesDeleted.Add(float64(n))
	return n, nil
}

// DeleteAllEntries removes every row of the worker in the week.
func (s *PayrollService) DeleteAllEntries(ctx context.Context, weekID int64, workerName string) (int64, error) {
	workerName = strings.TrimSpace(workerName)
	if workerName == "" {
		return 0, core.ErrEmptyWorker
	}
	n, err := s.storage.DeleteWorkerEntries(ctx, weekID, workerName)
	if err != nil {
		return 0, fmt.Errorf("delete worker entries: %w", err)
	}
	metrics.EntriesDeleted.Add(float64(n))
	slog.InfoContext(ctx, "Worker entries deleted",
		log.FieldComponent, log.ComponentPayroll,
		log.FieldOperation, log.OpDelete,
		log.FieldWeekID, weekID,
		log.FieldWorker, workerName,
		"count", n)
	return n, nil
}

func (s *PayrollService) ListEntries(ctx context.Context, weekID int64) ([]core.Entry, error) {
	return s.storage.ListEntries(ctx, weekID)
}

// Summary aggregates the week's entries. The result is cross-checked against
// the SQL cash total.
func (s *PayrollService) Summary(ctx context.Context, weekID int64) (core.WeeklySummary, error) {
	w, err := s.storage.GetWeek(ctx, weekID)
	if err != nil {
		return core.WeeklySummary{}, err
	}
	entries, err := s.storage.ListEntries(ctx, weekID)
	if err != nil {
		return core.WeeklySummary{}, err
	}
	summary := core.Aggregate(w, entries)

	cash, err := s.storage.WeekCashTotal(ctx, weekID)
	if err != nil {
		return core.WeeklySummary{}, err
	}
	if cash != summary.TotalPayable {
		slog.WarnContext(ctx, "Week has entries outside Monday..Saturday",
			"week_id", weekID,
			"aggregated", summary.TotalPayable.String(),
			"stored", cash.String())
	}
	return summary, nil
}

func (s *PayrollService) ListWorkers(ctx context.Context, activeOnly bool) ([]core.Worker, error) {
	return s.storage.ListWorkers(ctx, activeOnly)
}

func (s *PayrollService) GetWorker(ctx context.Context, name string) (core.Worker, error) {
	return s.storage.GetWorkerByName(ctx, strings.TrimSpace(name))
}

func (s *PayrollService) CreateWorker(ctx context.Context, name, role string) (core.Worker, error) {
	if err := core.ValidateName(name); err != nil {
		return core.Worker{}, err
	}
	return s.storage.CreateWorker(ctx, strings.TrimSpace(name), strings.TrimSpace(role))
}

// SetWorkerActive soft-deletes or reactivates a worker. Entries are kept.
func (s *PayrollService) SetWorkerActive(ctx context.Context, name string, active bool) error {
	return s.storage.SetWorkerActive(ctx, strings.TrimSpace(name), active)
}

func (s *PayrollService) RenameWorker(ctx context.Context, oldName, newName string) error {
	if err := core.ValidateName(newName); err != nil {
		return err
	}
	oldName, newName = strings.TrimSpace(oldName), strings.TrimSpace(newName)
	if oldName == newName {
		return nil
	}
	return s.storage.RenameWorker(ctx, oldName, newName)
}

func (s *PayrollService) SetWorkerRole(ctx context.Context, name, role string) error {
	return s.storage.SetWorkerRole(ctx, strings.TrimSpace(name), strings.TrimSpace(role))
}

// Ping checks the store for readiness probes.
func (s *PayrollService) Ping(ctx context.Context) error {
	return s.storage.Ping(ctx)
}

// Close closes storage. The event publisher is owned by the caller.
func (s *PayrollService) Close() error {
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			return fmt.Errorf("close payroll service: storage: %w", err)
		}
	}
	return nil
}
