package storage

// SQL used by SQLiteRepository. Dates are stored as YYYY-MM-DD text and
// amounts as integer cents.

const weekColumns = `id, start_date, end_date, supervisor, closed`

const (
	getWeekByRange = `SELECT ` + weekColumns + ` FROM weeks WHERE start_date = ? AND end_date = ?`

	getWeekByID = `SELECT ` + weekColumns + ` FROM weeks WHERE id = ?`

	listWeeks = `SELECT ` + weekColumns + ` FROM weeks ORDER BY start_date DESC LIMIT ?`

	insertWeek = `INSERT INTO weeks (start_date, end_date, supervisor) VALUES (?, ?, ?)
ON CONFLICT (start_date, end_date) DO NOTHING`

	updateWeekSupervisor = `UPDATE weeks SET supervisor = ? WHERE id = ?`

	updateWeekClosed = `UPDATE weeks SET closed = ? WHERE id = ? AND closed <> ?`

	weekExists = `SELECT 1 FROM weeks WHERE id = ?`

	weekClosed = `SELECT closed FROM weeks WHERE id = ?`
)

const workerColumns = `id, name, role, active`

const (
	insertWorkerIfAbsent = `INSERT INTO workers (name, role) VALUES (?, ?) ON CONFLICT (name) DO NOTHING`

	insertWorker = `INSERT INTO workers (name, role) VALUES (?, ?)`

	getWorkerByName = `SELECT ` + workerColumns + ` FROM workers WHERE name = ?`

	listWorkers = `SELECT ` + workerColumns + ` FROM workers ORDER BY name`

	listActiveWorkers = `SELECT ` + workerColumns + ` FROM workers WHERE active = 1 ORDER BY name`

	updateWorkerActive = `UPDATE workers SET active = ? WHERE name = ?`

	updateWorkerName = `UPDATE workers SET name = ? WHERE name = ?`

	updateWorkerRole = `UPDATE workers SET role = ? WHERE name = ?`
)

const (
	upsertEntry = `INSERT INTO entries
    (week_id, date, worker_id, activity, amount_cents, saturday_bonus_flag, saturday_bonus_cents)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (week_id, date, worker_id) DO UPDATE SET
    activity = excluded.activity,
    amount_cents = excluded.amount_cents,
    saturday_bonus_flag = excluded.saturday_bonus_flag,
    saturday_bonus_cents = excluded.saturday_bonus_cents,
    updated_at = datetime('now')
RETURNING id`

	listEntriesByWeek = `SELECT e.id, e.week_id, e.date, w.id, w.name, w.role, e.activity,
    e.amount_cents, e.saturday_bonus_flag, e.saturday_bonus_cents
FROM entries e
JOIN workers w ON w.id = e.worker_id
WHERE e.week_id = ?
ORDER BY w.name, e.date`

	deleteEntry = `DELETE FROM entries
WHERE week_id = ? AND date = ? AND worker_id = (SELECT id FROM workers WHERE name = ?)`

	deleteWorkerEntries = `DELETE FROM entries
WHERE week_id = ? AND worker_id = (SELECT id FROM workers WHERE name = ?)`

	weekCashTotal = `SELECT COALESCE(SUM(amount_cents + saturday_bonus_cents), 0) FROM entries WHERE week_id = ?`
)
