package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"planilla/internal/core"
)

const (
	payoutSheet = "Pagos"
	weekSheet   = "Semana"
)

// sheetWriter wraps the excelize calls of one workbook and keeps the first
// error, so the layout code can stay linear.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) fail(op string, err error) {
	if err != nil && w.err == nil {
		w.err = fmt.Errorf("%s: %w", op, err)
	}
}

func (w *sheetWriter) set(sheet, ref string, v any) {
	if w.err == nil {
		w.fail("set "+sheet+"!"+ref, w.f.SetCellValue(sheet, ref, v))
	}
}

func (w *sheetWriter) style(sheet, from, to string, style int) {
	if w.err == nil {
		w.fail("style "+sheet+"!"+from, w.f.SetCellStyle(sheet, from, to, style))
	}
}

func (w *sheetWriter) width(sheet, from, to string, width float64) {
	if w.err == nil {
		w.fail("width "+sheet+"!"+from, w.f.SetColWidth(sheet, from, to, width))
	}
}

func (w *sheetWriter) newStyle(s *excelize.Style) int {
	if w.err != nil {
		return 0
	}
	id, err := w.f.NewStyle(s)
	w.fail("new style", err)
	return id
}

func (w *sheetWriter) row(sheet string, row int, values ...any) {
	for i, v := range values {
		w.set(sheet, cell(i, row), v)
	}
}

// XLSX renders a workbook with the payout table and the per-day pivot.
func XLSX(s core.WeeklySummary) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(payoutSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if _, err := f.NewSheet(weekSheet); err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("delete default sheet: %w", err)
	}

	w := &sheetWriter{f: f}
	header := w.newStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	money := w.newStyle(&excelize.Style{NumFmt: 4}) // #,##0.00

	writePayouts(w, s, header, money)
	writeWeek(w, s, header, money)
	if w.err != nil {
		return nil, fmt.Errorf("render xlsx: %w", w.err)
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf, nil
}

func writePayouts(w *sheetWriter, s core.WeeklySummary, header, money int) {
	w.set(payoutSheet, "A1", fmt.Sprintf("Semana %s (supervisor: %s)", s.Week.Label(), s.Week.Supervisor))
	if w.err == nil {
		w.fail("merge title", w.f.MergeCell(payoutSheet, "A1", "E1"))
	}

	cols := []any{"Trabajador", "Cargo", "Días trabajados", "Monto adicional", "Total a pagar"}
	w.row(payoutSheet, 2, cols...)
	w.style(payoutSheet, cell(0, 2), cell(len(cols)-1, 2), header)
	w.width(payoutSheet, "A", "A", 24)
	w.width(payoutSheet, "B", "E", 16)

	row := 3
	for _, p := range s.Payouts() {
		w.row(payoutSheet, row, p.Worker, p.Role, p.DaysWorked, p.Bonus.Float(), p.Total.Float())
		row++
	}

	w.set(payoutSheet, cell(0, row), "Total")
	w.set(payoutSheet, cell(3, row), s.TotalBonus.Float())
	w.set(payoutSheet, cell(4, row), s.TotalPayable.Float())
	w.style(payoutSheet, cell(0, row), cell(4, row), header)
	w.style(payoutSheet, cell(3, 3), cell(4, row), money)
}

func writeWeek(w *sheetWriter, s core.WeeklySummary, header, money int) {
	cols := []any{"Trabajador"}
	for i, d := range s.Week.Days() {
		cols = append(cols, fmt.Sprintf("%s %s", core.DayLabels[i], d.Format("02/01")))
	}
	cols = append(cols, "Adicional", "Total semana")
	w.row(weekSheet, 1, cols...)
	w.style(weekSheet, cell(0, 1), cell(len(cols)-1, 1), header)
	w.width(weekSheet, "A", "A", 24)

	row := 2
	for _, ww := range s.Workers {
		values := []any{ww.Worker}
		for _, m := range ww.Days {
			values = append(values, m.Float())
		}
		w.row(weekSheet, row, append(values, ww.Bonus.Float(), ww.Total.Float())...)
		row++
	}

	totals := []any{"Total"}
	for _, m := range s.DayTotals {
		totals = append(totals, m.Float())
	}
	w.row(weekSheet, row, append(totals, s.TotalBonus.Float(), s.TotalPayable.Float())...)
	w.style(weekSheet, cell(0, row), cell(len(cols)-1, row), header)
	w.style(weekSheet, cell(1, 2), cell(len(cols)-1, row), money)
}

// cell maps a zero-based column and a one-based row to an A1 reference.
func cell(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col+1, row)
	return name
}
