package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"planilla/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads a single JSON object into dst. Amount and date fields that
// fail their own parsing surface as validation errors, not 400s.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if core.IsValidation(err) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("invalid JSON body: " + err.Error())
	}
	if dec.More() {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}

func weekIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid week id " + strconv.Quote(raw))
	}
	return id, nil
}

// pathParam returns a decoded path segment; worker names may contain spaces and accents.
func pathParam(r *http.Request, key string) string {
	v := chi.URLParam(r, key)
	if r.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(v); err == nil {
			return decoded
		}
	}
	return v
}

// dateOrToday parses s, defaulting to the current day when blank.
func dateOrToday(s string, now time.Time) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.DateOf(now), nil
	}
	return core.ParseDate(s)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "on", "yes", "si", "sí":
		return true
	}
	return false
}

// entryFromForm reads the page's entry form.
func entryFromForm(form url.Values, weekID int64) (core.EntryInput, error) {
	date, err := core.ParseDate(form.Get("date"))
	if err != nil {
		return core.EntryInput{}, err
	}
	amount, err := core.ParseMoney(form.Get("amount"))
	if err != nil {
		return core.EntryInput{}, err
	}
	bonus, err := core.ParseMoney(form.Get("bonus_amount"))
	if err != nil {
		return core.EntryInput{}, err
	}
	return core.EntryInput{
		WeekID:      weekID,
		Date:        date,
		WorkerName:  sanitizeInput(form.Get("worker")),
		Role:        sanitizeInput(form.Get("role")),
		Activity:    sanitizeInput(form.Get("activity")),
		Amount:      amount,
		BonusFlag:   parseBool(form.Get("bonus")),
		BonusAmount: bonus,
	}, nil
}

// sanitizeInput trims and drops control characters except tab and newlines.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
