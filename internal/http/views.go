package http

import "planilla/internal/core"

type weekView struct {
	ID         int64     `json:"id"`
	StartDate  core.Date `json:"start_date"`
	EndDate    core.Date `json:"end_date"`
	LastDay    core.Date `json:"last_payable_day"`
	Label      string    `json:"label"`
	Supervisor string    `json:"supervisor"`
	Closed     bool      `json:"closed"`
	State      string    `json:"state"`
	Legacy     bool      `json:"legacy,omitempty"`
}

func newWeekView(w core.Week) weekView {
	return weekView{
		ID:         w.ID,
		StartDate:  w.StartDate,
		EndDate:    w.EndDate,
		LastDay:    w.LastPayableDay(),
		Label:      w.Label(),
		Supervisor: w.Supervisor,
		Closed:     w.Closed,
		State:      string(w.State()),
		Legacy:     w.Legacy(),
	}
}

type entryView struct {
	ID          int64      `json:"id"`
	WeekID      int64      `json:"week_id"`
	Date        core.Date  `json:"date"`
	Worker      string     `json:"worker"`
	Role        string     `json:"role,omitempty"`
	Activity    string     `json:"activity,omitempty"`
	Amount      core.Money `json:"amount"`
	BonusFlag   bool       `json:"saturday_bonus"`
	BonusAmount core.Money `json:"saturday_bonus_amount"`
}

func newEntryView(e core.Entry) entryView {
	return entryView{
		ID:          e.ID,
		WeekID:      e.WeekID,
		Date:        e.Date,
		Worker:      e.WorkerName,
		Role:        e.WorkerRole,
		Activity:    e.Activity,
		Amount:      e.Amount,
		BonusFlag:   e.BonusFlag,
		BonusAmount: e.BonusAmount,
	}
}

// entryRequest is the body of PUT /api/weeks/{id}/entries.
type entryRequest struct {
	Date        core.Date  `json:"date"`
	Worker      string     `json:"worker"`
	Role        string     `json:"role"`
	Activity    string     `json:"activity"`
	Amount      core.Money `json:"amount"`
	BonusFlag   bool       `json:"saturday_bonus"`
	BonusAmount core.Money `json:"saturday_bonus_amount"`
}

func (req entryRequest) input(weekID int64) core.EntryInput {
	return core.EntryInput{
		WeekID:      weekID,
		Date:        req.Date,
		WorkerName:  req.Worker,
		Role:        req.Role,
		Activity:    req.Activity,
		Amount:      req.Amount,
		BonusFlag:   req.BonusFlag,
		BonusAmount: req.BonusAmount,
	}
}

type workerWeekView struct {
	Worker     string       `json:"worker"`
	Role       string       `json:"role"`
	Days       []core.Money `json:"days"`
	DaysWorked int          `json:"days_worked"`
	Subtotal   core.Money   `json:"subtotal"`
	Bonus      core.Money   `json:"bonus"`
	Total      core.Money   `json:"total"`
}

type summaryView struct {
	Week         weekView         `json:"week"`
	Days         []core.Date      `json:"days"`
	Workers      []workerWeekView `json:"workers"`
	DayTotals    []core.Money     `json:"day_totals"`
	Payouts      []core.PayoutRow `json:"payouts"`
	WorkerCount  int              `json:"worker_count"`
	TotalBonus   core.Money       `json:"total_bonus"`
	TotalPayable core.Money       `json:"total_payable"`
}

func newSummaryView(s core.WeeklySummary) summaryView {
	v := summaryView{
		Week:         newWeekView(s.Week),
		Days:         s.Week.Days(),
		Workers:      make([]workerWeekView, 0, len(s.Workers)),
		DayTotals:    s.DayTotals[:],
		Payouts:      s.Payouts(),
		WorkerCount:  s.WorkerCount(),
		TotalBonus:   s.TotalBonus,
		TotalPayable: s.TotalPayable,
	}
	for _, w := range s.Workers {
		v.Workers = append(v.Workers, workerWeekView{
			Worker:     w.Worker,
			Role:       w.Role,
			Days:       w.Days[:],
			DaysWorked: w.DaysWorked,
			Subtotal:   w.Subtotal,
			Bonus:      w.Bonus,
			Total:      w.Total,
		})
	}
	return v
}

type workerView struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func newWorkerView(w core.Worker) workerView {
	return workerView{ID: w.ID, Name: w.Name, Role: w.Role, Active: w.Active}
}
