package http

import (
	"net/http"
	"strings"
)

func (s *Server) handleListWorkers(w http.ResponseWriter, r *http.Request) {
	activeOnly := parseBool(r.URL.Query().Get("active"))
	workers, err := s.payroll.ListWorkers(r.Context(), activeOnly)
	if err != nil {
		writeError(w, r, err)
		return
	}
	views := make([]workerView, 0, len(workers))
	for _, wk := range workers {
		views = append(views, newWorkerView(wk))
	}
	writeJSON(w, http.StatusOK, views)
}

type createWorkerRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (s *Server) handleCreateWorker(w http.ResponseWriter, r *http.Request) {
	var req createWorkerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	worker, err := s.payroll.CreateWorker(r.Context(), req.Name, req.Role)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newWorkerView(worker))
}

// updateWorkerRequest carries only the fields to change.
type updateWorkerRequest struct {
	Name   *string `json:"name"`
	Role   *string `json:"role"`
	Active *bool   `json:"active"`
}

func (s *Server) handleUpdateWorker(w http.ResponseWriter, r *http.Request) {
	name := pathParam(r, "name")
	var req updateWorkerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Name == nil && req.Role == nil && req.Active == nil {
		writeError(w, r, badRequest("nothing to update"))
		return
	}

	ctx := r.Context()
	if _, err := s.payroll.GetWorker(ctx, name); err != nil {
		writeError(w, r, err)
		return
	}
	// Names and roles appear in every cached summary, and a later step may
	// fail after an earlier one was applied.
	defer s.invalidateAll()

	if req.Name != nil {
		if err := s.payroll.RenameWorker(ctx, name, *req.Name); err != nil {
			writeError(w, r, err)
			return
		}
		name = strings.TrimSpace(*req.Name)
	}
	if req.Role != nil {
		if err := s.payroll.SetWorkerRole(ctx, name, *req.Role); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Active != nil {
		if err := s.payroll.SetWorkerActive(ctx, name, *req.Active); err != nil {
			writeError(w, r, err)
			return
		}
	}
	worker, err := s.payroll.GetWorker(ctx, name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newWorkerView(worker))
}

