package http

import (
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"planilla/internal/core"
	"planilla/internal/log"
)

var templateFuncs = template.FuncMap{
	"money": func(m core.Money) string { return m.String() },
}

type dayColumn struct {
	Label    string
	Date     core.Date
	Saturday bool
}

type pageData struct {
	Week    core.Week
	// Exists is false for a week nobody has created yet; the page then only offers to create it.
	Exists  bool
	Summary core.WeeklySummary
	Days    []dayColumn
	Entries []core.Entry
	Workers []core.Worker
	Prev    string
	Next    string
	Today   string
	Message string
	Error   string
}

// handleIndex renders the week that contains ?date=. Viewing never creates
// the week; that happens through the create form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		s.logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	q := r.URL.Query()
	ref, err := dateOrToday(q.Get("date"), s.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data := pageData{Exists: true}
	week, err := s.payroll.FindWeek(ctx, ref)
	switch {
	case errors.Is(err, core.ErrNotFound):
		week = core.Week{StartDate: core.WeekStart(ref), EndDate: core.WeekEnd(ref)}
		data.Exists = false
		data.Summary = core.Aggregate(week, nil)
	case err != nil:
		s.renderFailure(w, r, "find week", err)
		return
	default:
		data.Summary, err = s.summary(ctx, week.ID)
		if err != nil {
			s.renderFailure(w, r, "summary", err)
			return
		}
		data.Entries, err = s.payroll.ListEntries(ctx, week.ID)
		if err != nil {
			s.renderFailure(w, r, "list entries", err)
			return
		}
	}
	workers, err := s.payroll.ListWorkers(ctx, true)
	if err != nil {
		s.renderFailure(w, r, "list workers", err)
		return
	}

	data.Week = week
	data.Workers = workers
	data.Prev = week.StartDate.AddDays(-7).String()
	data.Next = week.StartDate.AddDays(7).String()
	data.Today = core.DateOf(s.now()).String()
	data.Message = q.Get("msg")
	data.Error = q.Get("err")
	for i, d := range week.Days() {
		data.Days = append(data.Days, dayColumn{Label: core.DayLabels[i], Date: d, Saturday: d.IsSaturday()})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		s.logger.ErrorContext(ctx, "Index template execution failed",
			log.FieldError, err, log.FieldOperation, log.OpRender)
	}
}

func (s *Server) renderFailure(w http.ResponseWriter, r *http.Request, what string, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "Page data failed", log.FieldOperation, what, log.FieldError, err)
		http.Error(w, "internal error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

// redirectToWeek sends the browser back to the page with a flash message.
func (s *Server) redirectToWeek(w http.ResponseWriter, r *http.Request, week core.Week, err error, okMsg string) {
	v := url.Values{}
	v.Set("date", week.StartDate.String())
	if err != nil {
		if errorStatus(err) == http.StatusInternalServerError {
			s.logger.ErrorContext(r.Context(), "Form action failed", log.FieldPath, r.URL.Path, log.FieldError, err)
			v.Set("err", "Error guardando los cambios")
		} else {
			v.Set("err", err.Error())
		}
	} else if okMsg != "" {
		v.Set("msg", okMsg)
	}
	http.Redirect(w, r, "/?"+v.Encode(), http.StatusSeeOther)
}

// formWeek loads the week named in the path for a form post.
func (s *Server) formWeek(w http.ResponseWriter, r *http.Request) (core.Week, bool) {
	id, err := weekIDParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return core.Week{}, false
	}
	week, err := s.payroll.GetWeek(r.Context(), id)
	if err != nil {
		s.renderFailure(w, r, "get week", err)
		return core.Week{}, false
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return core.Week{}, false
	}
	return week, true
}

// handleFormCreateWeek creates the week containing the posted date.
func (s *Server) handleFormCreateWeek(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	ref, err := core.ParseDate(r.PostForm.Get("date"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	week, err := s.payroll.ResolveWeek(r.Context(), ref, sanitizeInput(r.PostForm.Get("supervisor")))
	if err != nil {
		week = core.Week{StartDate: core.WeekStart(ref)}
	}
	s.redirectToWeek(w, r, week, err, "Semana creada")
}

func (s *Server) handleFormEntry(w http.ResponseWriter, r *http.Request) {
	week, ok := s.formWeek(w, r)
	if !ok {
		return
	}
	in, err := entryFromForm(r.PostForm, week.ID)
	if err == nil {
		_, err = s.upsert(r, in)
	}
	s.redirectToWeek(w, r, week, err, "Registro guardado")
}

func (s *Server) handleFormDeleteEntry(w http.ResponseWriter, r *http.Request) {
	week, ok := s.formWeek(w, r)
	if !ok {
		return
	}
	_, err := s.deleteEntries(r, week.ID, r.PostForm.Get("worker"), r.PostForm.Get("date"))
	s.redirectToWeek(w, r, week, err, "Registro eliminado")
}

func (s *Server) handleFormSupervisor(w http.ResponseWriter, r *http.Request) {
	week, ok := s.formWeek(w, r)
	if !ok {
		return
	}
	_, err := s.payroll.SetSupervisor(r.Context(), week.ID, sanitizeInput(r.PostForm.Get("supervisor")))
	if err == nil {
		s.invalidateWeek(week.ID)
	}
	s.redirectToWeek(w, r, week, err, "Encargado actualizado")
}

func (s *Server) handleFormLifecycle(closeWeek bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		week, ok := s.formWeek(w, r)
		if !ok {
			return
		}
		var err error
		msg := "Semana reabierta"
		if closeWeek {
			_, err = s.payroll.CloseWeek(r.Context(), week.ID)
			msg = "Semana cerrada"
		} else {
			_, err = s.payroll.ReopenWeek(r.Context(), week.ID)
		}
		if err == nil {
			s.invalidateWeek(week.ID)
		}
		s.redirectToWeek(w, r, week, err, msg)
	}
}
