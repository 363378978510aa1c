package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the storage and wire format for calendar dates.
const DateLayout = "2006-01-02"

// DefaultSupervisorPlaceholder is stored when a week is created without a supervisor name.
const DefaultSupervisorPlaceholder = "Sin asignar"

// DaysPerWeek is the number of payable days, Monday through Saturday.
const DaysPerWeek = 6

// DayLabels are the column labels used by summaries and exports, Monday first.
var DayLabels = [DaysPerWeek]string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}

type (
	// WeekState is the lifecycle state of a week.
	WeekState string

	Date struct {
		time.Time
	}

	Week struct {
		ID         int64
		StartDate  Date
		EndDate    Date
		Supervisor string
		Closed     bool
	}

	Worker struct {
		ID     int64
		Name   string
		Role   string
		Active bool
	}

	Entry struct {
		ID          int64
		WeekID      int64
		Date        Date
		WorkerID    int64
		WorkerName  string
		WorkerRole  string
		Activity    string
		Amount      Money
		BonusFlag   bool
		BonusAmount Money
	}

	// EntryInput is what an operator submits for one worker on one day.
	EntryInput struct {
		WeekID      int64
		Date        Date
		WorkerName  string
		Role        string // only used when the worker is new to the catalog
		Activity    string
		Amount      Money
		BonusFlag   bool
		BonusAmount Money
	}
)

const (
	WeekOpen   WeekState = "open"
	WeekClosed WeekState = "closed"
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, &ValidationError{Field: "date", Reason: fmt.Sprintf("invalid date %q, expected YYYY-MM-DD", s)}
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) IsSaturday() bool {
	return d.Weekday() == time.Saturday
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WeekStart returns the Monday of d's calendar week.
func WeekStart(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7
	return DateOf(d.Time).AddDays(-offset)
}

// WeekEnd returns the Saturday five days after WeekStart(d).
func WeekEnd(d Date) Date {
	return WeekStart(d).AddDays(DaysPerWeek - 1)
}

// LegacyWeekEnd returns the Sunday that older rows stored as the week end.
func LegacyWeekEnd(d Date) Date {
	return WeekStart(d).AddDays(DaysPerWeek)
}

// DayIndex maps Monday..Saturday to 0..5. Sunday reports false.
func DayIndex(d Date) (int, bool) {
	if d.Weekday() == time.Sunday {
		return 0, false
	}
	return int(d.Weekday()) - 1, true
}

func (w Week) State() WeekState {
	if w.Closed {
		return WeekClosed
	}
	return WeekOpen
}

// LastPayableDay is the Saturday of the week, also for legacy rows ending on Sunday.
func (w Week) LastPayableDay() Date {
	return w.StartDate.AddDays(DaysPerWeek - 1)
}

// Legacy reports whether the row was stored with a Sunday end date.
func (w Week) Legacy() bool {
	return w.EndDate.Equal(w.StartDate.AddDays(DaysPerWeek).Time)
}

// Contains reports whether d falls on a payable day of the week.
func (w Week) Contains(d Date) bool {
	return !d.Before(w.StartDate.Time) && !d.After(w.LastPayableDay().Time)
}

// Days lists the payable dates Monday..Saturday.
func (w Week) Days() []Date {
	days := make([]Date, DaysPerWeek)
	for i := range days {
		days[i] = w.StartDate.AddDays(i)
	}
	return days
}

// Label renders the span the way exports name it.
func (w Week) Label() string {
	return w.StartDate.String() + " a " + w.LastPayableDay().String()
}

// SupervisorOrPlaceholder trims name and falls back to placeholder when blank.
func SupervisorOrPlaceholder(name, placeholder string) string {
	name = strings.TrimSpace(name)
	if name != "" {
		return name
	}
	if strings.TrimSpace(placeholder) == "" {
		return DefaultSupervisorPlaceholder
	}
	return placeholder
}

// NormalizeBonus applies the Saturday bonus rule: only Saturdays carry a bonus,
// and a positive bonus amount wins over an unchecked flag. Negative amounts are
// kept so that Validate rejects them.
func NormalizeBonus(d Date, flag bool, amount Money) (bool, Money) {
	if amount.Cents < 0 {
		return flag, amount
	}
	if !d.IsSaturday() {
		return false, Money{}
	}
	if amount.Cents > 0 {
		return true, amount
	}
	return flag, Money{}
}

// Normalize trims text fields and applies the bonus rule.
func (in EntryInput) Normalize() EntryInput {
	in.WorkerName = strings.TrimSpace(in.WorkerName)
	in.Role = strings.TrimSpace(in.Role)
	in.Activity = strings.TrimSpace(in.Activity)
	in.BonusFlag, in.BonusAmount = NormalizeBonus(in.Date, in.BonusFlag, in.BonusAmount)
	return in
}

// Validate checks the input against the owning week. The input should be normalized first.
func (in EntryInput) Validate(w Week) error {
	if w.Closed {
		return ErrWeekClosed
	}
	if in.WeekID != 0 && in.WeekID != w.ID {
		return &ValidationError{Field: "week", Reason: fmt.Sprintf("entry belongs to week %d, not %d", in.WeekID, w.ID)}
	}
	if strings.TrimSpace(in.WorkerName) == "" {
		return ErrEmptyWorker
	}
	if len(in.WorkerName) > 100 {
		return &ValidationError{Field: "worker", Reason: "worker name too long (max 100 characters)"}
	}
	if in.Date.IsZero() {
		return ErrMissingDate
	}
	if !w.Contains(in.Date) {
		return ErrDateOutsideWeek
	}
	if err := in.Amount.Validate(); err != nil {
		return err
	}
	if err := in.BonusAmount.Validate(); err != nil {
		return err
	}
	return nil
}

// ValidateName checks a worker name before it reaches the catalog.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyWorker
	}
	if len(name) > 100 {
		return &ValidationError{Field: "worker", Reason: "worker name too long (max 100 characters)"}
	}
	return nil
}
