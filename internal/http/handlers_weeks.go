package http

import (
	"net/http"
	"strconv"

	"planilla/internal/core"
)

// handleFindWeek returns the week containing ?date=, or recent weeks when no date is given.
func (s *Server) handleFindWeek(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if raw := q.Get("date"); raw != "" {
		date, err := core.ParseDate(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		week, err := s.payroll.FindWeek(r.Context(), date)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newWeekView(week))
		return
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, badRequest("invalid limit "+strconv.Quote(raw)))
			return
		}
		limit = n
	}
	weeks, err := s.payroll.ListWeeks(r.Context(), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]weekView, 0, len(weeks))
	for _, wk := range weeks {
		views = append(views, newWeekView(wk))
	}
	writeJSON(w, http.StatusOK, views)
}

type resolveWeekRequest struct {
	Date       core.Date `json:"date"`
	Supervisor string    `json:"supervisor"`
}

func (s *Server) handleResolveWeek(w http.ResponseWriter, r *http.Request) {
	var req resolveWeekRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	week, err := s.payroll.ResolveWeek(r.Context(), req.Date, req.Supervisor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newWeekView(week))
}

func (s *Server) handleGetWeek(w http.ResponseWriter, r *http.Request) {
	id, err := weekIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	week, err := s.payroll.GetWeek(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newWeekView(week))
}

type supervisorRequest struct {
	Supervisor string `json:"supervisor"`
}

func (s *Server) handleSetSupervisor(w http.ResponseWriter, r *http.Request) {
	id, err := weekIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req supervisorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	week, err := s.payroll.SetSupervisor(r.Context(), id, req.Supervisor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateWeek(id)
	writeJSON(w, http.StatusOK, newWeekView(week))
}

func (s *Server) handleCloseWeek(w http.ResponseWriter, r *http.Request) {
	id, err := weekIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	week, err := s.payroll.CloseWeek(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateWeek(id)
	writeJSON(w, http.StatusOK, newWeekView(week))
}

func (s *Server) handleReopenWeek(w http.ResponseWriter, r *http.Request) {
	id, err := weekIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	week, err := s.payroll.ReopenWeek(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.invalidateWeek(id)
	writeJSON(w, http.StatusOK, newWeekView(week))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, newSummaryView(summary))
}
