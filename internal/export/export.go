// Package export renders weekly payouts as downloadable files.
package export

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"planilla/internal/core"
)

const (
	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// FileName returns pagos_semana_<start>_a_<end>.<ext>.
func FileName(w core.Week, ext string) string {
	return fmt.Sprintf("pagos_semana_%s_a_%s.%s", w.StartDate, w.LastPayableDay(), ext)
}

// payoutRecord is one CSV line. Amounts are rendered with two decimals.
type payoutRecord struct {
	Worker     string `csv:"trabajador"`
	Role       string `csv:"cargo"`
	DaysWorked int    `csv:"dias_trabajados"`
	Subtotal   string `csv:"subtotal_lun_sab"`
	BonusFlag  int    `csv:"adicional_sabado"`
	Bonus      string `csv:"monto_adicional"`
	Total      string `csv:"total_a_pagar"`
}

func records(s core.WeeklySummary) []*payoutRecord {
	out := make([]*payoutRecord, 0, len(s.Workers))
	for _, w := range s.Workers {
		flag := 0
		if !w.Bonus.IsZero() {
			flag = 1
		}
		out = append(out, &payoutRecord{
			Worker:     w.Worker,
			Role:       w.Role,
			DaysWorked: w.DaysWorked,
			Subtotal:   w.Subtotal.String(),
			BonusFlag:  flag,
			Bonus:      w.Bonus.String(),
			Total:      w.Total.String(),
		})
	}
	return out
}

// WriteCSV writes the payout table, one row per worker.
func WriteCSV(out io.Writer, s core.WeeklySummary) error {
	if err := gocsv.Marshal(records(s), out); err != nil {
		return fmt.Errorf("marshal payout csv: %w", err)
	}
	return nil
}

// CSV renders the payout table into memory.
func CSV(s core.WeeklySummary) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
