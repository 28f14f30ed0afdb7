package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcarneiro/airbnb-organizer/internal/coordinator"
	"github.com/mcarneiro/airbnb-organizer/internal/core"
	"github.com/mcarneiro/airbnb-organizer/internal/identity"
	"github.com/mcarneiro/airbnb-organizer/internal/log"
	"github.com/mcarneiro/airbnb-organizer/internal/metrics"
	"github.com/mcarneiro/airbnb-organizer/internal/scheduler"
	"github.com/mcarneiro/airbnb-organizer/internal/session"
	"github.com/mcarneiro/airbnb-organizer/internal/sheets"
	"github.com/mcarneiro/airbnb-organizer/internal/sheets/memory"
)

type testServer struct {
	srv   *Server
	coord *coordinator.Coordinator
	store *memory.Store
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	clock := scheduler.NewManualClock(time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC))
	store := memory.New()
	reg := prometheus.NewRegistry()

	idp, err := identity.NewLocal("test-secret", "host@example.com", time.Hour, identity.WithLocalClock(clock.Now))
	require.NoError(t, err)
	coord, err := coordinator.New(coordinator.Options{
		Identity: idp,
		Open: func(context.Context, string) (sheets.Store, error) {
			return store, nil
		},
		Session: session.NewManager(session.NewMemoryKV(), clock.Now),
		Clock:   clock,
		Metrics: metrics.New(reg),
		Logger:  log.Discard(),
	})
	require.NoError(t, err)
	t.Cleanup(coord.Close)

	opts.Organizer = coord
	opts.Logger = log.Discard()
	if opts.Gatherer == nil {
		opts.Gatherer = reg
	}
	srv := NewServer(":0", opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return &testServer{srv: srv, coord: coord, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) signIn(t *testing.T) {
	t.Helper()
	rec := ts.do(t, http.MethodPut, "/api/session/store", `{"spreadsheet_id":"sheet-1"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = ts.do(t, http.MethodPost, "/api/session/signin", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndState(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, map[string]string{"status": "ok", "phase": "unauthenticated"}, decode[map[string]string](t, rec))

	rec = ts.do(t, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[coordinator.State](t, rec)
	assert.Equal(t, coordinator.PhaseUnauthenticated, st.Phase)
	assert.False(t, st.Expired)
}

func TestSignInFlow(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.signIn(t)

	st := decode[coordinator.State](t, ts.do(t, http.MethodGet, "/api/state", ""))
	assert.Equal(t, coordinator.PhaseReady, st.Phase)
	assert.Equal(t, "host@example.com", st.Email)
	assert.Equal(t, "sheet-1", st.SpreadsheetID)

	rec := ts.do(t, http.MethodPost, "/api/sync/reload", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(t, http.MethodPost, "/api/session/signout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, coordinator.PhaseUnauthenticated, decode[coordinator.State](t, rec).Phase)
}

func TestReloadRequiresReady(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodPost, "/api/sync/reload", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, CodeConflict, decode[ErrorResponse](t, rec).Error)
}

func TestSetStoreRequiresID(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodPut, "/api/session/store", `{"spreadsheet_id":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeValidation, decode[ErrorResponse](t, rec).Error)
}

func TestReservationsAndMonths(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.signIn(t)

	rec := ts.do(t, http.MethodPost, "/api/reservations", `{"check_in":"2025-03-05","nights":5,"total":"12500"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[reservationView](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "12500.00", created.Total)
	assert.Equal(t, "10000.00", created.OwnerAmount)
	assert.Equal(t, "2500.00", created.AdminFee)

	list := decode[[]reservationView](t, ts.do(t, http.MethodGet, "/api/reservations", ""))
	require.Len(t, list, 1)
	assert.Equal(t, created, list[0])

	rec = ts.do(t, http.MethodGet, "/api/months/2025-03", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sum := decode[summaryView](t, rec)
	assert.Equal(t, "2025-03", sum.Month)
	assert.Equal(t, "10000.00", sum.TotalIncome)
	assert.Equal(t, "607.20", sum.Deduction)
	assert.Equal(t, "9392.80", sum.TaxableIncome)
	assert.False(t, sum.IsPaid)

	months := decode[[]summaryView](t, ts.do(t, http.MethodGet, "/api/months", ""))
	require.Len(t, months, 1)

	rec = ts.do(t, http.MethodGet, "/api/months/2025-03/occupancy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	occ := decode[map[string]any](t, rec)
	assert.Equal(t, "2025-03", occ["month"])
	assert.EqualValues(t, 17, occ["occupancy_percent"])

	years := decode[[]yearSeriesView](t, ts.do(t, http.MethodGet, "/api/profit/yearly", ""))
	require.Len(t, years, 1)
	assert.Equal(t, 2025, years[0].Year)
	assert.Len(t, years[0].Points, 12)

	rec = ts.do(t, http.MethodPut, "/api/reservations/"+created.ID, `{"check_in":"2025-03-06","nights":4,"total":12500}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[reservationView](t, rec)
	assert.Equal(t, "2025-03-06", updated.CheckIn)
	assert.Equal(t, "10000.00", updated.OwnerAmount)

	rec = ts.do(t, http.MethodDelete, "/api/reservations/"+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = ts.do(t, http.MethodDelete, "/api/reservations/"+created.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkPaid(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.signIn(t)

	rec := ts.do(t, http.MethodPost, "/api/expenses", `{"date":"2025-02-14","amount":"50"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, tc := range []struct {
		method  string
		changed bool
	}{
		{http.MethodPut, true},
		{http.MethodPut, false},
		{http.MethodDelete, true},
		{http.MethodDelete, false},
	} {
		rec := ts.do(t, tc.method, "/api/months/2025-02/paid", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		body := decode[map[string]any](t, rec)
		assert.Equal(t, "2025-02", body["month"])
		assert.Equal(t, tc.changed, body["changed"], "%s", tc.method)
	}

	rec = ts.do(t, http.MethodPut, "/api/months/2025-13/paid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/months/2025-01/paid", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, CodeNotFound, decode[ErrorResponse](t, rec).Error)

	rec = ts.do(t, http.MethodDelete, "/api/months/2025-01/paid", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, false, decode[map[string]any](t, rec)["changed"])
}

func TestExpenses(t *testing.T) {
	ts := newTestServer(t, Options{})

	rec := ts.do(t, http.MethodPost, "/api/expenses", `{"date":"2025-03-10","amount":"1.234,56","category":"cleaning","notes":"deep clean"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	e := decode[expenseView](t, rec)
	assert.Equal(t, "1234.56", e.Amount)
	assert.Equal(t, "cleaning", e.Category)

	rec = ts.do(t, http.MethodPut, "/api/expenses/"+e.ID, `{"date":"2025-03-11","amount":99.9}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "99.90", decode[expenseView](t, rec).Amount)

	list := decode[[]expenseView](t, ts.do(t, http.MethodGet, "/api/expenses", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "", list[0].Category)

	rec = ts.do(t, http.MethodDelete, "/api/expenses/"+e.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestValidationErrors(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"zero nights", http.MethodPost, "/api/reservations", `{"check_in":"2025-03-05","nights":0,"total":"100"}`, http.StatusBadRequest},
		{"bad date", http.MethodPost, "/api/reservations", `{"check_in":"05/03/2025","nights":1,"total":"100"}`, http.StatusBadRequest},
		{"negative total", http.MethodPost, "/api/reservations", `{"check_in":"2025-03-05","nights":1,"total":"-5"}`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/api/expenses", `{"date":"2025-03-05","amount":"10","color":"red"}`, http.StatusBadRequest},
		{"empty body", http.MethodPost, "/api/expenses", ``, http.StatusBadRequest},
		{"unknown category", http.MethodPost, "/api/expenses", `{"date":"2025-03-05","amount":"10","category":"yacht"}`, http.StatusBadRequest},
		{"bad month", http.MethodGet, "/api/months/2025-13", "", http.StatusBadRequest},
		{"month without records", http.MethodGet, "/api/months/2024-01", "", http.StatusNotFound},
		{"unknown reservation", http.MethodPut, "/api/reservations/nope", `{"check_in":"2025-03-05","nights":1,"total":"100"}`, http.StatusNotFound},
		{"split not summing to one", http.MethodPut, "/api/settings", `{"dependents":0,"owner_split":"0.7","admin_split":"0.2"}`, http.StatusBadRequest},
		{"negative dependents", http.MethodPut, "/api/settings", `{"dependents":-1,"owner_split":"0.8","admin_split":"0.2"}`, http.StatusBadRequest},
		{"method not allowed", http.MethodPatch, "/api/settings", `{}`, http.StatusMethodNotAllowed},
		{"no such route", http.MethodGet, "/api/nothing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestSettings(t *testing.T) {
	ts := newTestServer(t, Options{})

	got := decode[settingsView](t, ts.do(t, http.MethodGet, "/api/settings", ""))
	assert.Equal(t, settingsView{Dependents: 0, OwnerSplit: "0.8", AdminSplit: "0.2"}, got)

	rec := ts.do(t, http.MethodPut, "/api/settings", `{"dependents":2,"owner_split":0.7,"admin_split":"0.3"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, settingsView{Dependents: 2, OwnerSplit: "0.7", AdminSplit: "0.3"}, decode[settingsView](t, rec))
}

func TestSessionRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{SessionRequestsPerMinute: 1})

	rec := ts.do(t, http.MethodPost, "/api/session/signout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/session/signout", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, CodeRateLimited, decode[ErrorResponse](t, rec).Error)

	// Other endpoints are not limited.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/state", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})
	ts.signIn(t)

	rec := ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `organizer_loads_total{result="ok"} 1`)
}

func TestNotificationsMount(t *testing.T) {
	called := false
	ts := newTestServer(t, Options{Notifications: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusSwitchingProtocols)
	})})

	ts.do(t, http.MethodGet, "/api/ws", "")
	assert.True(t, called)
}

func TestRecovery(t *testing.T) {
	h := recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, CodeInternal, decode[ErrorResponse](t, rec).Error)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidNights, http.StatusBadRequest},
		{fmt.Errorf("load: %w", coordinator.ErrAuthExpired), http.StatusUnauthorized},
		{sheets.ErrUnauthenticated, http.StatusUnauthorized},
		{identity.ErrSignInRejected, http.StatusUnauthorized},
		{coordinator.ErrNotFound, http.StatusNotFound},
		{coordinator.ErrLoadInProgress, http.StatusConflict},
		{coordinator.ErrNoStore, http.StatusConflict},
		{fmt.Errorf("read taxes: %w", sheets.ErrUnavailable), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got, _ := errorStatus(tt.err)
		assert.Equal(t, tt.want, got, tt.err.Error())
	}
}
