package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"planilla/internal/core"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository persists weeks, workers and entries.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens the database at dbPath, applies pending
// migrations and returns a repository backed by a single connection.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations before the main handle is opened
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	return &core.StorageError{Op: op, Err: err}
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWeek(row rowScanner) (core.Week, error) {
	var (
		w          core.Week
		start, end string
	)
	if err := row.Scan(&w.ID, &start, &end, &w.Supervisor, &w.Closed); err != nil {
		return core.Week{}, err
	}
	var err error
	if w.StartDate, err = core.ParseDate(start); err != nil {
		return core.Week{}, fmt.Errorf("week %d start_date: %w", w.ID, err)
	}
	if w.EndDate, err = core.ParseDate(end); err != nil {
		return core.Week{}, fmt.Errorf("week %d end_date: %w", w.ID, err)
	}
	return w, nil
}

func scanWorker(row rowScanner) (core.Worker, error) {
	var w core.Worker
	if err := row.Scan(&w.ID, &w.Name, &w.Role, &w.Active); err != nil {
		return core.Worker{}, err
	}
	return w, nil
}

// FindWeekByRange returns the week stored with exactly [start, end].
func (r *SQLiteRepository) FindWeekByRange(ctx context.Context, start, end core.Date) (core.Week, error) {
	w, err := scanWeek(r.db.QueryRowContext(ctx, getWeekByRange, start.String(), end.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Week{}, fmt.Errorf("week %s..%s: %w", start, end, core.ErrNotFound)
	}
	if err != nil {
		return core.Week{}, storageErr("find week", err)
	}
	return w, nil
}

// CreateWeek inserts the week if no row holds the same range and returns the stored row.
func (r *SQLiteRepository) CreateWeek(ctx context.Context, start, end core.Date, supervisor string) (core.Week, error) {
	if _, err := r.db.ExecContext(ctx, insertWeek, start.String(), end.String(), supervisor); err != nil {
		return core.Week{}, storageErr("create week", err)
	}
	w, err := r.FindWeekByRange(ctx, start, end)
	if err != nil {
		return core.Week{}, err
	}

	slog.DebugContext(ctx, "Week row stored",
		"week_id", w.ID,
		"start", w.StartDate.String(),
		"end", w.EndDate.String(),
		"supervisor", w.Supervisor)

	return w, nil
}

func (r *SQLiteRepository) GetWeek(ctx context.Context, id int64) (core.Week, error) {
	w, err := scanWeek(r.db.QueryRowContext(ctx, getWeekByID, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Week{}, fmt.Errorf("week %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Week{}, storageErr("get week", err)
	}
	return w, nil
}

// ListWeeks returns the most recent weeks first.
func (r *SQLiteRepository) ListWeeks(ctx context.Context, limit int) ([]core.Week, error) {
	if limit <= 0 {
		limit = 52
	}
	rows, err := r.db.QueryContext(ctx, listWeeks, limit)
	if err != nil {
		return nil, storageErr("list weeks", err)
	}
	defer rows.Close()

	var weeks []core.Week
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, storageErr("scan week", err)
		}
		weeks = append(weeks, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list weeks", err)
	}
	return weeks, nil
}

func (r *SQLiteRepository) SetWeekSupervisor(ctx context.Context, id int64, supervisor string) error {
	res, err := r.db.ExecContext(ctx, updateWeekSupervisor, supervisor, id)
	if err != nil {
		return storageErr("set supervisor", err)
	}
	return requireAffected(res, fmt.Sprintf("week %d", id))
}

// SetWeekClosed stores the closed flag and reports whether the state changed.
func (r *SQLiteRepository) SetWeekClosed(ctx context.Context, id int64, closed bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, updateWeekClosed, closed, id, closed)
	if err != nil {
		return false, storageErr("set week closed", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("set week closed", err)
	}
	if n > 0 {
		return true, nil
	}

	// Nothing changed: either already in that state or the week does not exist.
	var one int
	err = r.db.QueryRowContext(ctx, weekExists, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("week %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return false, storageErr("set week closed", err)
	}
	return false, nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return storageErr("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

// CreateWorker adds a worker to the catalog. Names are unique.
func (r *SQLiteRepository) CreateWorker(ctx context.Context, name, role string) (core.Worker, error) {
	if _, err := r.db.ExecContext(ctx, insertWorker, name, role); err != nil {
		if isUniqueViolation(err) {
			return core.Worker{}, core.ErrWorkerNameTaken
		}
		return core.Worker{}, storageErr("create worker", err)
	}
	return r.GetWorkerByName(ctx, name)
}

func (r *SQLiteRepository) GetWorkerByName(ctx context.Context, name string) (core.Worker, error) {
	w, err := scanWorker(r.db.QueryRowContext(ctx, getWorkerByName, name))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Worker{}, fmt.Errorf("worker %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return core.Worker{}, storageErr("get worker", err)
	}
	return w, nil
}

func (r *SQLiteRepository) ListWorkers(ctx context.Context, activeOnly bool) ([]core.Worker, error) {
	query := listWorkers
	if activeOnly {
		query = listActiveWorkers
	}
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list workers", err)
	}
	defer rows.Close()

	var workers []core.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, storageErr("scan worker", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list workers", err)
	}
	return workers, nil
}

func (r *SQLiteRepository) SetWorkerActive(ctx context.Context, name string, active bool) error {
	res, err := r.db.ExecContext(ctx, updateWorkerActive, active, name)
	if err != nil {
		return storageErr("set worker active", err)
	}
	return requireAffected(res, fmt.Sprintf("worker %q", name))
}

// RenameWorker changes the catalog name. Entries reference the worker by id
// and follow the rename.
func (r *SQLiteRepository) RenameWorker(ctx context.Context, oldName, newName string) error {
	res, err := r.db.ExecContext(ctx, updateWorkerName, newName, oldName)
	if err != nil {
		if isUniqueViolation(err) {
			return core.ErrWorkerNameTaken
		}
		return storageErr("rename worker", err)
	}
	return requireAffected(res, fmt.Sprintf("worker %q", oldName))
}

func (r *SQLiteRepository) SetWorkerRole(ctx context.Context, name, role string) error {
	res, err := r.db.ExecContext(ctx, updateWorkerRole, role, name)
	if err != nil {
		return storageErr("set worker role", err)
	}
	return requireAffected(res, fmt.Sprintf("worker %q", name))
}

// UpsertEntry stores one (week, date, worker) row, inserting the worker into
// the catalog when it is not there yet. The input must already be validated;
// the closed flag is checked again inside the transaction.
func (r *SQLiteRepository) UpsertEntry(ctx context.Context, in core.EntryInput) (core.Entry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Entry{}, storageErr("begin upsert", err)
	}
	defer tx.Rollback()

	var closed bool
	err = tx.QueryRowContext(ctx, weekClosed, in.WeekID).Scan(&closed)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("week %d: %w", in.WeekID, core.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, storageErr("check week closed", err)
	}
	if closed {
		return core.Entry{}, core.ErrWeekClosed
	}

	if _, err := tx.ExecContext(ctx, insertWorkerIfAbsent, in.WorkerName, in.Role); err != nil {
		return core.Entry{}, storageErr("ensure worker", err)
	}
	worker, err := scanWorker(tx.QueryRowContext(ctx, getWorkerByName, in.WorkerName))
	if err != nil {
		return core.Entry{}, storageErr("load worker", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, upsertEntry,
		in.WeekID,
		in.Date.String(),
		worker.ID,
		in.Activity,
		in.Amount.Cents,
		in.BonusFlag,
		in.BonusAmount.Cents,
	).Scan(&id)
	if err != nil {
		return core.Entry{}, storageErr("upsert entry", err)
	}

	if err := tx.Commit(); err != nil {
		return core.Entry{}, storageErr("commit upsert", err)
	}

	slog.DebugContext(ctx, "Entry saved to SQLite",
		"id", id,
		"week_id", in.WeekID,
		"date", in.Date.String(),
		"worker", worker.Name,
		"amount_cents", in.Amount.Cents,
		"bonus_cents", in.BonusAmount.Cents)

	return core.Entry{
		ID:          id,
		WeekID:      in.WeekID,
		Date:        in.Date,
		WorkerID:    worker.ID,
		WorkerName:  worker.Name,
		WorkerRole:  worker.Role,
		Activity:    in.Activity,
		Amount:      in.Amount,
		BonusFlag:   in.BonusFlag,
		BonusAmount: in.BonusAmount,
	}, nil
}

// ListEntries returns the raw rows of a week ordered by worker name then date.
func (r *SQLiteRepository) ListEntries(ctx context.Context, weekID int64) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, listEntriesByWeek, weekID)
	if err != nil {
		return nil, storageErr("list entries", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		var (
			e                       core.Entry
			date                    string
			amountCents, bonusCents int64
		)
		if err := rows.Scan(&e.ID, &e.WeekID, &date, &e.WorkerID, &e.WorkerName, &e.WorkerRole,
			&e.Activity, &amountCents, &e.BonusFlag, &bonusCents); err != nil {
			return nil, storageErr("scan entry", err)
		}
		if e.Date, err = core.ParseDate(date); err != nil {
			return nil, storageErr("scan entry", err)
		}
		e.Amount = core.Money{Cents: amountCents}
		e.BonusAmount = core.Money{Cents: bonusCents}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list entries", err)
	}
	return entries, nil
}

// DeleteEntry removes the row for (week, date, worker) and returns how many rows went away.
func (r *SQLiteRepository) DeleteEntry(ctx context.Context, weekID int64, workerName string, date core.Date) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteEntry, weekID, date.String(), workerName)
	if err != nil {
		return 0, storageErr("delete entry", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("delete entry", err)
	}
	return n, nil
}

// DeleteWorkerEntries removes every row of the worker in the week.
func (r *SQLiteRepository) DeleteWorkerEntries(ctx context.Context, weekID int64, workerName string) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteWorkerEntries, weekID, workerName)
	if err != nil {
		return 0, storageErr("delete worker entries", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storageErr("delete worker entries", err)
	}
	return n, nil
}

// WeekCashTotal sums amount and bonus over every row of the week in SQL.
func (r *SQLiteRepository) WeekCashTotal(ctx context.Context, weekID int64) (core.Money, error) {
	var cents int64
	if err := r.db.QueryRowContext(ctx, weekCashTotal, weekID).Scan(&cents); err != nil {
		return core.Money{}, storageErr("week cash total", err)
	}
	return core.Money{Cents: cents}, nil
}
