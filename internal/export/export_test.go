package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"planilla/internal/core"
)

func sampleSummary() core.WeeklySummary {
	week := core.Week{ID: 1, StartDate: core.NewDate(2024, 6, 3), EndDate: core.NewDate(2024, 6, 8), Supervisor: "Rosa"}
	return core.Aggregate(week, []core.Entry{
		{Date: core.NewDate(2024, 6, 3), WorkerName: "Ana", WorkerRole: "Cocina", Amount: core.MustMoney("50")},
		{Date: core.NewDate(2024, 6, 5), WorkerName: "Ana", Amount: core.MustMoney("30")},
		{Date: core.NewDate(2024, 6, 8), WorkerName: "Ana", Amount: core.MustMoney("40"), BonusFlag: true, BonusAmount: core.MustMoney("20")},
		{Date: core.NewDate(2024, 6, 4), WorkerName: "Luis", Amount: core.MustMoney("12.5")},
	})
}

func TestFileName(t *testing.T) {
	w := core.Week{StartDate: core.NewDate(2024, 6, 3), EndDate: core.NewDate(2024, 6, 8)}
	if got := FileName(w, "csv"); got != "pagos_semana_2024-06-03_a_2024-06-08.csv" {
		t.Fatalf("FileName = %q", got)
	}
	legacy := core.Week{StartDate: core.NewDate(2024, 6, 3), EndDate: core.NewDate(2024, 6, 9)}
	if got := FileName(legacy, "xlsx"); got != "pagos_semana_2024-06-03_a_2024-06-08.xlsx" {
		t.Fatalf("legacy FileName = %q", got)
	}
}

func TestCSV(t *testing.T) {
	out, err := CSV(sampleSummary())
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	want := []string{
		"trabajador,cargo,dias_trabajados,subtotal_lun_sab,adicional_sabado,monto_adicional,total_a_pagar",
		"Ana,Cocina,3,120.00,1,20.00,140.00",
		"Luis,,1,12.50,0,0.00,12.50",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	for i := range want {
		if strings.TrimRight(lines[i], "\r") != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestCSVEmptyWeek(t *testing.T) {
	s := core.Aggregate(core.Week{StartDate: core.NewDate(2024, 6, 3)}, nil)
	var buf bytes.Buffer
	if err := WriteCSV(&buf, s); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "trabajador,") {
		t.Fatalf("empty export should still carry the header, got %q", buf.String())
	}
}

func TestXLSX(t *testing.T) {
	buf, err := XLSX(sampleSummary())
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) != 2 || sheets[0] != payoutSheet || sheets[1] != weekSheet {
		t.Fatalf("sheets = %v", sheets)
	}

	checks := []struct {
		sheet, cell, want string
	}{
		{payoutSheet, "A2", "Trabajador"},
		{payoutSheet, "A3", "Ana"},
		{payoutSheet, "C3", "3"},
		{payoutSheet, "A4", "Luis"},
		{payoutSheet, "A5", "Total"},
		{weekSheet, "B1", "Lunes 03/06"},
		{weekSheet, "G1", "Sábado 08/06"},
		{weekSheet, "A2", "Ana"},
	}
	for _, c := range checks {
		got, err := f.GetCellValue(c.sheet, c.cell)
		if err != nil {
			t.Fatal(err)
		}
		if got != c.want {
			t.Errorf("%s!%s = %q, want %q", c.sheet, c.cell, got, c.want)
		}
	}

	raw, err := f.GetCellValue(payoutSheet, "E5", excelize.Options{RawCellValue: true})
	if err != nil {
		t.Fatal(err)
	}
	if raw != "152.5" {
		t.Errorf("total payable cell = %q, want 152.5", raw)
	}
}

func TestSheetWriterKeepsFirstError(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	w := &sheetWriter{f: f}
	w.set("Sheet1", "A1", "ok")
	w.set("Missing", "A1", "lost")
	w.width("Sheet1", "A", "A", 300) // also invalid, but the first error wins
	w.set("Sheet1", "A2", "skipped")

	if w.err == nil || !strings.Contains(w.err.Error(), "Missing!A1") {
		t.Fatalf("expected the missing sheet error first, got %v", w.err)
	}
	if got, _ := f.GetCellValue("Sheet1", "A2"); got != "" {
		t.Errorf("writes after an error should be skipped, A2 = %q", got)
	}

	w = &sheetWriter{f: f}
	w.width("Sheet1", "A", "A", 300)
	if w.err == nil {
		t.Error("column width above the excelize limit should be reported")
	}
	if id := w.newStyle(&excelize.Style{NumFmt: 4}); id != 0 {
		t.Errorf("newStyle after an error returned %d", id)
	}
}
