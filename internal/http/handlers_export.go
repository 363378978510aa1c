package http

import (
	"fmt"
	"net/http"
	"strconv"

	"planilla/internal/export"
	"planilla/internal/log"
	"planilla/internal/metrics"
)

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "csv")
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.serveExport(w, r, "xlsx")
}

func (s *Server) serveExport(w http.ResponseWriter, r *http.Request, format string) {
	id, err := weekIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	summary, err := s.summary(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "csv":
		contentType = export.CSVContentType
		data, err = export.CSV(summary)
	case "xlsx":
		contentType = export.XLSXContentType
		buf, xerr := export.XLSX(summary)
		if xerr == nil {
			data = buf.Bytes()
		}
		err = xerr
	}
	if err != nil {
		metrics.Exports.WithLabelValues(format, "error").Inc()
		log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(), "Export failed", err,
			log.ComponentExport, log.OpExport, log.NewFields().WithWeek(id, summary.Week.Label()))
		writeError(w, r, fmt.Errorf("render %s: %w", format, err))
		return
	}
	metrics.Exports.WithLabelValues(format, "ok").Inc()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(summary.Week, format)))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
