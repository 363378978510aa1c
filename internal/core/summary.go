package core

import (
	"sort"
)

// DailyAmounts holds one amount per payable day, Monday first.
type DailyAmounts [DaysPerWeek]Money

func (d DailyAmounts) Sum() Money {
	var total Money
	for _, m := range d {
		total = total.Add(m)
	}
	return total
}

// WorkerWeek is one row of the pivoted weekly view.
type WorkerWeek struct {
	Worker     string
	Role       string
	Days       DailyAmounts
	DaysWorked int
	Bonus      Money
	Subtotal   Money // Monday..Saturday without bonus
	Total      Money
}

// PayoutRow is what the supervisor hands out on Saturday.
type PayoutRow struct {
	Worker     string `json:"worker"`
	Role       string `json:"role"`
	DaysWorked int    `json:"days_worked"`
	Bonus      Money  `json:"bonus"`
	Total      Money  `json:"total"`
}

// WeeklySummary is the aggregated view of one week of entries.
type WeeklySummary struct {
	Week         Week
	Workers      []WorkerWeek
	DayTotals    DailyAmounts
	TotalBonus   Money
	TotalPayable Money
}

func (s WeeklySummary) WorkerCount() int {
	return len(s.Workers)
}

func (s WeeklySummary) Payouts() []PayoutRow {
	rows := make([]PayoutRow, 0, len(s.Workers))
	for _, w := range s.Workers {
		rows = append(rows, PayoutRow{
			Worker:     w.Worker,
			Role:       w.Role,
			DaysWorked: w.DaysWorked,
			Bonus:      w.Bonus,
			Total:      w.Total,
		})
	}
	return rows
}

// Worker returns the row for name, if that worker has entries in the week.
func (s WeeklySummary) Worker(name string) (WorkerWeek, bool) {
	for _, w := range s.Workers {
		if w.Worker == name {
			return w, true
		}
	}
	return WorkerWeek{}, false
}

// Aggregate pivots the entries of one week by worker and weekday.
//
// Rows for the same worker and day are summed, never assumed unique. Bonus
// amounts are summed across the week. Entries dated outside the week's
// Monday..Saturday span are ignored.
func Aggregate(week Week, entries []Entry) WeeklySummary {
	summary := WeeklySummary{Week: week}
	byWorker := make(map[string]*WorkerWeek)
	dates := make(map[string]map[string]struct{})

	for _, e := range entries {
		if !week.Contains(e.Date) {
			continue
		}
		idx, ok := DayIndex(e.Date)
		if !ok {
			continue
		}
		row, exists := byWorker[e.WorkerName]
		if !exists {
			row = &WorkerWeek{Worker: e.WorkerName}
			byWorker[e.WorkerName] = row
			dates[e.WorkerName] = make(map[string]struct{})
		}
		if row.Role == "" && e.WorkerRole != "" {
			row.Role = e.WorkerRole
		}
		row.Days[idx] = row.Days[idx].Add(e.Amount)
		row.Bonus = row.Bonus.Add(e.BonusAmount)
		dates[e.WorkerName][e.Date.String()] = struct{}{}

		summary.DayTotals[idx] = summary.DayTotals[idx].Add(e.Amount)
	}

	names := make([]string, 0, len(byWorker))
	for name := range byWorker {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		row := byWorker[name]
		row.DaysWorked = len(dates[name])
		row.Subtotal = row.Days.Sum()
		row.Total = row.Subtotal.Add(row.Bonus)
		summary.Workers = append(summary.Workers, *row)
		summary.TotalBonus = summary.TotalBonus.Add(row.Bonus)
		summary.TotalPayable = summary.TotalPayable.Add(row.Total)
	}

	return summary
}
