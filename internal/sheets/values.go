package sheets

import (
	"strings"

	"planilla/internal/core"
)

// PayoutHeader is the first row of every payout tab.
var PayoutHeader = []any{"Trabajador", "Cargo", "Días trabajados", "Monto adicional", "Total a pagar"}

// TabTitle names the tab for a week, e.g. "2024-06-03 a 2024-06-08".
func TabTitle(w core.Week) string {
	return w.Label()
}

// QuoteTitle quotes a tab title for use in A1 notation.
func QuoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// PayoutValues lays out header, one row per worker and a total row.
func PayoutValues(s core.WeeklySummary) [][]any {
	values := make([][]any, 0, len(s.Workers)+2)
	values = append(values, PayoutHeader)
	for _, p := range s.Payouts() {
		values = append(values, []any{p.Worker, p.Role, p.DaysWorked, p.Bonus.Float(), p.Total.Float()})
	}
	values = append(values, []any{"Total", "", "", s.TotalBonus.Float(), s.TotalPayable.Float()})
	return values
}
