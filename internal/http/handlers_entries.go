package http

import (
	"net/http"
	"strings"

	"planilla/internal/core"
	"planilla/internal/log"
)

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	id, err := weekIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.payroll.GetWeek(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := s.payroll.ListEntries(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]entryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, newEntryView(e))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleUpsertEntry(w http.ResponseWriter, r *http.Request) {
	id, err := weekIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req entryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := s.upsert(r, req.input(id))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryView(entry))
}

func (s *Server) upsert(r *http.Request, in core.EntryInput) (core.Entry, error) {
	entry, err := s.payroll.UpsertEntry(r.Context(), in)
	if err != nil {
		return core.Entry{}, err
	}
	s.invalidateWeek(in.WeekID)
	log.NewStructuredLogger(log.FromContext(r.Context())).LogEntrySaved(r.Context(),
		entry.WeekID, entry.WorkerName, entry.Date.String(), entry.Amount.String(), entry.BonusAmount.String())
	return entry, nil
}

type deleteResult struct {
	Deleted int64 `json:"deleted"`
}

// handleDeleteEntries deletes one day with ?worker=&date=, or the worker's whole week with ?worker= alone.
func (s *Server) handleDeleteEntries(w http.ResponseWriter, r *http.Request) {
	id, err := weekIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	q := r.URL.Query()
	n, err := s.deleteEntries(r, id, q.Get("worker"), q.Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResult{Deleted: n})
}

func (s *Server) deleteEntries(r *http.Request, weekID int64, worker, rawDate string) (int64, error) {
	if _, err := s.payroll.GetWeek(r.Context(), weekID); err != nil {
		return 0, err
	}

	var (
		n   int64
		err error
	)
	if strings.TrimSpace(rawDate) == "" {
		n, err = s.payroll.DeleteAllEntries(r.Context(), weekID, worker)
	} else {
		var date core.Date
		date, err = core.ParseDate(rawDate)
		if err != nil {
			return 0, err
		}
		n, err = s.payroll.DeleteEntry(r.Context(), weekID, worker, date)
	}
	if err != nil {
		return 0, err
	}
	s.invalidateWeek(weekID)
	return n, nil
}
