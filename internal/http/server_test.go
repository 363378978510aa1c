package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"planilla/internal/services"
	"planilla/internal/storage"
)

func newTestService(t *testing.T) *services.PayrollService {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "planilla.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	svc := services.NewPayrollService(repo, nil, "")
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func newTestServer(t *testing.T, opts Options) *Server {
	t.Helper()
	return newTestServerFor(t, newTestService(t), opts)
}

func newTestServerFor(t *testing.T, payroll Payroll, opts Options) *Server {
	t.Helper()
	if opts.SummaryCacheTTL == 0 {
		opts.SummaryCacheTTL = time.Minute
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC) }
	}
	return NewServer(":0", payroll, opts)
}

func do(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func resolveWeek(t *testing.T, srv *Server, date string) int64 {
	t.Helper()
	rr := do(t, srv, http.MethodPost, "/api/weeks", map[string]string{"date": date})
	if rr.Code != http.StatusOK {
		t.Fatalf("resolve week: status %d body %s", rr.Code, rr.Body.String())
	}
	return int64(decode(t, rr)["id"].(float64))
}

func weekPath(id int64, suffix string) string {
	return "/api/weeks/" + strconv.FormatInt(id, 10) + suffix
}

func TestHealthReadyMetrics(t *testing.T) {
	srv := newTestServer(t, Options{})
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := do(t, srv, http.MethodGet, path, nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rr.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/healthz", nil)
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("missing X-Frame-Options")
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP")
	}
}

func TestIndexRendersWeek(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodGet, "/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Semana 2024-06-03 a 2024-06-08", "SIN CREAR", "Crear semana", "Sin registros"} {
		if !strings.Contains(body, want) {
			t.Errorf("index body missing %q", want)
		}
	}

	// Viewing a week must not create it.
	if rr := do(t, srv, http.MethodGet, "/api/weeks?date=2024-06-05", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("GET / created the week: status %d", rr.Code)
	}

	form := url.Values{"date": {"2024-06-05"}, "supervisor": {"Marta"}}
	req := httptest.NewRequest(http.MethodPost, "/weeks", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusSeeOther || !strings.Contains(rr.Header().Get("Location"), "msg=") {
		t.Fatalf("create week: status %d Location %q", rr.Code, rr.Header().Get("Location"))
	}

	body = do(t, srv, http.MethodGet, "/", nil).Body.String()
	for _, want := range []string{"ABIERTA", `value="Marta"`, "Guardar registro"} {
		if !strings.Contains(body, want) {
			t.Errorf("created week page missing %q", want)
		}
	}

	rr = do(t, srv, http.MethodGet, "/?date=2024-06-12", nil)
	if !strings.Contains(rr.Body.String(), "2024-06-10 a 2024-06-15") {
		t.Error("date query should select the containing week")
	}

	rr = do(t, srv, http.MethodGet, "/?date=12/06/2024", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad date status=%d", rr.Code)
	}
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, Options{})
	rr := do(t, srv, http.MethodGet, "/static/style.css", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Cache-Control"), "max-age=3600") {
		t.Errorf("Cache-Control=%q", rr.Header().Get("Cache-Control"))
	}
}

func TestWeekAPI(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := resolveWeek(t, srv, "2024-06-05")

	if again := resolveWeek(t, srv, "2024-06-08"); again != id {
		t.Fatalf("resolve is not idempotent: %d vs %d", id, again)
	}

	rr := do(t, srv, http.MethodGet, "/api/weeks?date=2024-06-03", nil)
	got := decode(t, rr)
	if got["start_date"] != "2024-06-03" || got["end_date"] != "2024-06-08" || got["supervisor"] != "Sin asignar" {
		t.Errorf("unexpected week: %v", got)
	}

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
	}{
		{"unknown week by date", http.MethodGet, "/api/weeks?date=2030-01-07", nil, http.StatusNotFound},
		{"bad date query", http.MethodGet, "/api/weeks?date=junio", nil, http.StatusUnprocessableEntity},
		{"bad id", http.MethodGet, "/api/weeks/abc", nil, http.StatusBadRequest},
		{"unknown id", http.MethodGet, "/api/weeks/999", nil, http.StatusNotFound},
		{"resolve without date", http.MethodPost, "/api/weeks", map[string]string{}, http.StatusUnprocessableEntity},
		{"resolve empty body", http.MethodPost, "/api/weeks", "", http.StatusBadRequest},
		{"list weeks", http.MethodGet, "/api/weeks?limit=5", nil, http.StatusOK},
		{"bad limit", http.MethodGet, "/api/weeks?limit=-1", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.method, tt.path, tt.body)
			if rr.Code != tt.status {
				t.Errorf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
		})
	}

	rr = do(t, srv, http.MethodPut, weekPath(id, "/supervisor"), map[string]string{"supervisor": "  Marta "})
	if decode(t, rr)["supervisor"] != "Marta" {
		t.Errorf("supervisor not trimmed: %s", rr.Body.String())
	}
	rr = do(t, srv, http.MethodPut, weekPath(id, "/supervisor"), map[string]string{"supervisor": ""})
	if decode(t, rr)["supervisor"] != "Sin asignar" {
		t.Errorf("blank supervisor should reset to placeholder: %s", rr.Body.String())
	}
}

func TestEntryWorkflow(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := resolveWeek(t, srv, "2024-06-03")

	put := func(body map[string]any) *httptest.ResponseRecorder {
		return do(t, srv, http.MethodPut, weekPath(id, "/entries"), body)
	}

	for _, body := range []map[string]any{
		{"date": "2024-06-03", "worker": "Ana", "role": "Cocina", "amount": "50"},
		{"date": "2024-06-05", "worker": "Ana", "amount": 30},
		{"date": "2024-06-08", "worker": "Ana", "amount": "40", "saturday_bonus_amount": "20"},
	} {
		if rr := put(body); rr.Code != http.StatusOK {
			t.Fatalf("upsert %v: status %d body %s", body, rr.Code, rr.Body.String())
		}
	}

	// Warm the cache, then make sure a write invalidates it.
	rr := do(t, srv, http.MethodGet, weekPath(id, "/summary"), nil)
	summary := decode(t, rr)
	if summary["total_payable"] != "140.00" || summary["total_bonus"] != "20.00" {
		t.Fatalf("unexpected summary: %v", summary)
	}
	workers := summary["workers"].([]any)
	ana := workers[0].(map[string]any)
	if ana["days_worked"] != float64(3) || ana["role"] != "Cocina" {
		t.Errorf("unexpected worker row: %v", ana)
	}

	rr = put(map[string]any{"date": "2024-06-05", "worker": "Ana", "amount": "35"})
	if rr.Code != http.StatusOK {
		t.Fatalf("replace: %d", rr.Code)
	}
	summary = decode(t, do(t, srv, http.MethodGet, weekPath(id, "/summary"), nil))
	if summary["total_payable"] != "145.00" {
		t.Errorf("summary not refreshed after write: %v", summary["total_payable"])
	}

	rr = do(t, srv, http.MethodGet, weekPath(id, "/entries"), nil)
	var entries []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	if rr := do(t, srv, http.MethodPost, weekPath(id, "/close"), nil); decode(t, rr)["state"] != "closed" {
		t.Fatalf("close: %s", rr.Body.String())
	}
	rr = put(map[string]any{"date": "2024-06-04", "worker": "Ana", "amount": "10"})
	if rr.Code != http.StatusUnprocessableEntity || decode(t, rr)["field"] != "week" {
		t.Fatalf("write to closed week: status %d body %s", rr.Code, rr.Body.String())
	}

	do(t, srv, http.MethodPost, weekPath(id, "/reopen"), nil)
	if rr := put(map[string]any{"date": "2024-06-04", "worker": "Ana", "amount": "10"}); rr.Code != http.StatusOK {
		t.Fatalf("write after reopen: %d %s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv, http.MethodDelete, weekPath(id, "/entries?worker=Ana&date=2024-06-04"), nil)
	if decode(t, rr)["deleted"] != float64(1) {
		t.Errorf("delete one: %s", rr.Body.String())
	}
	summary = decode(t, do(t, srv, http.MethodGet, weekPath(id, "/summary"), nil))
	if summary["total_payable"] != "145.00" {
		t.Errorf("after delete total=%v", summary["total_payable"])
	}

	rr = do(t, srv, http.MethodDelete, weekPath(id, "/entries?worker=Ana"), nil)
	if decode(t, rr)["deleted"] != float64(3) {
		t.Errorf("delete all: %s", rr.Body.String())
	}
	summary = decode(t, do(t, srv, http.MethodGet, weekPath(id, "/summary"), nil))
	if summary["total_payable"] != "0.00" || summary["worker_count"] != float64(0) {
		t.Errorf("after delete all: %v", summary)
	}
}

func TestEntryValidation(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := resolveWeek(t, srv, "2024-06-03")
	path := weekPath(id, "/entries")

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"negative amount", map[string]any{"date": "2024-06-03", "worker": "Ana", "amount": "-1"}, http.StatusUnprocessableEntity},
		{"invalid amount", map[string]any{"date": "2024-06-03", "worker": "Ana", "amount": "doce"}, http.StatusUnprocessableEntity},
		{"date outside week", map[string]any{"date": "2024-06-09", "worker": "Ana", "amount": "1"}, http.StatusUnprocessableEntity},
		{"missing date", map[string]any{"worker": "Ana", "amount": "1"}, http.StatusUnprocessableEntity},
		{"blank worker", map[string]any{"date": "2024-06-03", "worker": "   ", "amount": "1"}, http.StatusUnprocessableEntity},
		{"malformed json", `{"date": `, http.StatusBadRequest},
		{"unknown field", map[string]any{"date": "2024-06-03", "worker": "Ana", "monto": "1"}, http.StatusBadRequest},
		{"weekday bonus dropped", map[string]any{"date": "2024-06-04", "worker": "Ana", "amount": "1", "saturday_bonus": true, "saturday_bonus_amount": "5"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, http.MethodPut, path, tt.body)
			if rr.Code != tt.status {
				t.Fatalf("status=%d want %d body=%s", rr.Code, tt.status, rr.Body.String())
			}
			if tt.status == http.StatusOK {
				got := decode(t, rr)
				if got["saturday_bonus"] != false || got["saturday_bonus_amount"] != "0.00" {
					t.Errorf("bonus should be cleared on weekdays: %v", got)
				}
			}
		})
	}

	rr := do(t, srv, http.MethodPut, weekPath(999, "/entries"), map[string]any{"date": "2024-06-03", "worker": "Ana", "amount": "1"})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown week status=%d", rr.Code)
	}
	rr = do(t, srv, http.MethodDelete, path+"?worker=&date=2024-06-03", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("delete without worker status=%d", rr.Code)
	}
}

func TestExports(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := resolveWeek(t, srv, "2024-06-03")
	do(t, srv, http.MethodPut, weekPath(id, "/entries"), map[string]any{"date": "2024-06-08", "worker": "Ana", "role": "Cocina", "amount": "40", "saturday_bonus_amount": "20"})

	rr := do(t, srv, http.MethodGet, weekPath(id, "/export.csv"), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("csv status=%d", rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/csv") {
		t.Errorf("csv content type %q", rr.Header().Get("Content-Type"))
	}
	if got := rr.Header().Get("Content-Disposition"); !strings.Contains(got, "pagos_semana_2024-06-03_a_2024-06-08.csv") {
		t.Errorf("Content-Disposition=%q", got)
	}
	if !strings.Contains(rr.Body.String(), "Ana,Cocina,1,40.00,1,20.00,60.00") {
		t.Errorf("csv body:\n%s", rr.Body.String())
	}

	rr = do(t, srv, http.MethodGet, weekPath(id, "/export.xlsx"), nil)
	if rr.Code != http.StatusOK || rr.Body.Len() == 0 {
		t.Fatalf("xlsx status=%d len=%d", rr.Code, rr.Body.Len())
	}
	if !bytes.HasPrefix(rr.Body.Bytes(), []byte("PK")) {
		t.Error("xlsx body is not a zip archive")
	}

	if rr := do(t, srv, http.MethodGet, weekPath(42, "/export.csv"), nil); rr.Code != http.StatusNotFound {
		t.Errorf("export of unknown week status=%d", rr.Code)
	}
}

func TestWorkerAPI(t *testing.T) {
	srv := newTestServer(t, Options{})

	rr := do(t, srv, http.MethodPost, "/api/workers", map[string]string{"name": "Luis", "role": "Mesero"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	if rr := do(t, srv, http.MethodPost, "/api/workers", map[string]string{"name": "Luis"}); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("duplicate name status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPost, "/api/workers", map[string]string{"name": " "}); rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("blank name status=%d", rr.Code)
	}

	rr = do(t, srv, http.MethodPatch, "/api/workers/Luis", map[string]any{"name": "Luis Pérez", "role": "Cocina"})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rr.Code, rr.Body.String())
	}
	got := decode(t, rr)
	if got["name"] != "Luis Pérez" || got["role"] != "Cocina" {
		t.Errorf("patched worker: %v", got)
	}

	escaped := "/api/workers/" + url.PathEscape("Luis Pérez")
	if rr := do(t, srv, http.MethodPatch, escaped, map[string]any{"active": false}); rr.Code != http.StatusOK {
		t.Fatalf("deactivate: %d %s", rr.Code, rr.Body.String())
	}

	var active []map[string]any
	rr = do(t, srv, http.MethodGet, "/api/workers?active=true", nil)
	if err := json.Unmarshal(rr.Body.Bytes(), &active); err != nil {
		t.Fatal(err)
	}
	if len(active) != 0 {
		t.Errorf("inactive worker listed: %v", active)
	}

	if rr := do(t, srv, http.MethodPatch, "/api/workers/Nadie", map[string]any{"active": true}); rr.Code != http.StatusNotFound {
		t.Errorf("unknown worker status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodPatch, escaped, map[string]any{}); rr.Code != http.StatusBadRequest {
		t.Errorf("empty patch status=%d", rr.Code)
	}
}

// roleFailingPayroll applies renames but fails every role change.
type roleFailingPayroll struct {
	*services.PayrollService
}

func (roleFailingPayroll) SetWorkerRole(context.Context, string, string) error {
	return errors.New("disk I/O error")
}

func TestWorkerPatchPartialFailureRefreshesSummaries(t *testing.T) {
	srv := newTestServerFor(t, roleFailingPayroll{newTestService(t)}, Options{SummaryCacheTTL: time.Hour})
	id := resolveWeek(t, srv, "2024-06-03")
	do(t, srv, http.MethodPut, weekPath(id, "/entries"), map[string]any{"date": "2024-06-03", "worker": "Ana", "amount": "50"})

	// Cache the summary under the old name.
	if got := do(t, srv, http.MethodGet, weekPath(id, "/summary"), nil).Body.String(); !strings.Contains(got, `"Ana"`) {
		t.Fatalf("summary: %s", got)
	}

	rr := do(t, srv, http.MethodPatch, "/api/workers/Ana", map[string]any{"name": "Ana María", "role": "Cocina"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("patch status=%d body=%s", rr.Code, rr.Body.String())
	}

	summary := decode(t, do(t, srv, http.MethodGet, weekPath(id, "/summary"), nil))
	row := summary["workers"].([]any)[0].(map[string]any)
	if row["worker"] != "Ana María" {
		t.Errorf("summary still shows %v after the rename was applied", row["worker"])
	}
}

func TestFormFlow(t *testing.T) {
	srv := newTestServer(t, Options{})
	id := resolveWeek(t, srv, "2024-06-03")

	post := func(path string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		return rr
	}
	base := "/weeks/" + strconv.FormatInt(id, 10)

	rr := post(base+"/entries", url.Values{"date": {"2024-06-08"}, "worker": {"Ana"}, "amount": {"40,50"}, "bonus": {"1"}, "bonus_amount": {"0"}})
	if rr.Code != http.StatusSeeOther {
		t.Fatalf("form entry status=%d", rr.Code)
	}
	if loc := rr.Header().Get("Location"); !strings.Contains(loc, "msg=") || !strings.Contains(loc, "date=2024-06-03") {
		t.Errorf("Location=%q", loc)
	}

	page := do(t, srv, http.MethodGet, "/?date=2024-06-03", nil).Body.String()
	if !strings.Contains(page, "40.50") {
		t.Error("page should show the saved amount")
	}

	post(base+"/close", url.Values{})
	rr = post(base+"/entries", url.Values{"date": {"2024-06-04"}, "worker": {"Ana"}, "amount": {"5"}})
	if loc := rr.Header().Get("Location"); !strings.Contains(loc, "err=") {
		t.Errorf("closed week should redirect with an error, Location=%q", loc)
	}
	if page := do(t, srv, http.MethodGet, "/?date=2024-06-03", nil).Body.String(); !strings.Contains(page, "CERRADA") {
		t.Error("page should show the week closed")
	}

	rr = post(base+"/entries/delete", url.Values{"worker": {"Ana"}, "date": {"2024-06-08"}})
	if loc := rr.Header().Get("Location"); !strings.Contains(loc, "msg=") {
		t.Errorf("delete on closed week should succeed, Location=%q", loc)
	}

	post(base+"/reopen", url.Values{})
	post(base+"/supervisor", url.Values{"supervisor": {"Marta"}})
	if page := do(t, srv, http.MethodGet, "/?date=2024-06-03", nil).Body.String(); !strings.Contains(page, `value="Marta"`) {
		t.Error("supervisor not shown on page")
	}
}

func TestRateLimitWrites(t *testing.T) {
	srv := newTestServer(t, Options{RequestsPerMinute: 2})
	id := resolveWeek(t, srv, "2024-06-03")

	body := map[string]any{"date": "2024-06-03", "worker": "Ana", "amount": "1"}
	if rr := do(t, srv, http.MethodPut, weekPath(id, "/entries"), body); rr.Code != http.StatusOK {
		t.Fatalf("second write status=%d", rr.Code)
	}
	rr := do(t, srv, http.MethodPut, weekPath(id, "/entries"), body)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("third write status=%d", rr.Code)
	}
	if rr := do(t, srv, http.MethodGet, weekPath(id, "/summary"), nil); rr.Code != http.StatusOK {
		t.Errorf("reads must not be limited, status=%d", rr.Code)
	}
}
