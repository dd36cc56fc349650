package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BruksfildServices01/vet-agenda/internal/audit"
	"github.com/BruksfildServices01/vet-agenda/internal/backend"
	"github.com/BruksfildServices01/vet-agenda/internal/config"
	"github.com/BruksfildServices01/vet-agenda/internal/logging"
	"github.com/BruksfildServices01/vet-agenda/internal/metrics"
	"github.com/BruksfildServices01/vet-agenda/internal/screen"
	"github.com/BruksfildServices01/vet-agenda/internal/session"
	"github.com/BruksfildServices01/vet-agenda/internal/workspace"
)

const secret = "test-secret"

// clinicAPI stands in for the external clinic REST API.
type clinicAPI struct {
	mu       sync.Mutex
	requests []string
	auth     []string
	created  []map[string]any
}

func (a *clinicAPI) record(r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.requests = append(a.requests, r.Method+" "+r.URL.Path)
	a.auth = append(a.auth, r.Header.Get("Authorization")+"|"+r.Header.Get("X-Clinic-ID"))
}

func (a *clinicAPI) count(req string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for _, r := range a.requests {
		if r == req {
			n++
		}
	}
	return n
}

func (a *clinicAPI) handler() http.Handler {
	write := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /schedules", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		write(w, 200, gin.H{"data": []gin.H{{"id": 1, "name": "Dra. Ana", "active": true, "time_granularity": 30}}})
	})
	mux.HandleFunc("GET /schedules/1/timeline", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		write(w, 200, []gin.H{
			{"time": "08:00", "available": true},
			{"time": "08:30", "available": false, "appointment_id": 7, "pet_name": "Rex", "duration": 30, "status": "confirmed"},
			{"time": "09:00", "available": true},
		})
	})
	mux.HandleFunc("GET /schedules/1/services", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		write(w, 200, []gin.H{{"id": 5, "name": "Consulta", "duration": 30, "active": true}})
	})
	mux.HandleFunc("GET /schedules/1/available-slots", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		write(w, 200, []gin.H{{"time": "10:00", "available": true}})
	})
	mux.HandleFunc("GET /tutors", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		write(w, 200, []gin.H{{"id": 10, "name": "Carla", "active": true}})
	})
	mux.HandleFunc("GET /tutors/10/pets", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		write(w, 200, []gin.H{{"id": 20, "name": "Rex", "species": "dog", "tutor_id": 10, "active": true}})
	})
	mux.HandleFunc("GET /services", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		write(w, 200, []gin.H{{"id": 5, "name": "Consulta", "active": true}})
	})
	mux.HandleFunc("POST /appointments", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		a.mu.Lock()
		a.created = append(a.created, body)
		a.mu.Unlock()
		body["id"] = 100
		write(w, 201, body)
	})
	mux.HandleFunc("POST /schedules", func(w http.ResponseWriter, r *http.Request) {
		a.record(r)
		write(w, 201, gin.H{"id": 2})
	})
	return mux
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	api    *clinicAPI
	token  string
	sink   *memSink
}

type memSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *memSink) Write(ev audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	api := &clinicAPI{}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	logger := logging.Discard()
	reg := prometheus.NewRegistry()
	m := metrics.NewBackendMetrics(reg)
	client := backend.NewClient(srv.URL, 5*time.Second, logger, m)

	sink := &memSink{}
	dispatcher := audit.NewDispatcher(sink, logger)
	t.Cleanup(dispatcher.Close)

	registry := workspace.NewRegistry(client, screen.Config{Location: time.UTC, Logger: logger, Metrics: m}, workspace.Options{})

	r := gin.New()
	cfg := &config.Config{JWTSecret: secret}
	RegisterRoutes(r, cfg, Deps{
		Logger:   logger,
		Registry: registry,
		Sessions: session.NewMemoryStore(time.Hour),
		Audit:    dispatcher,
		Gatherer: reg,
	})

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":      float64(42),
		"clinicId": "7",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)

	return &harness{t: t, router: r, api: api, token: tok, sink: sink}
}

func (h *harness) do(method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+h.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 && strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(h.t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestHealthAndLabels(t *testing.T) {
	h := newHarness(t)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/labels", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var labels struct {
		Statuses []map[string]any `json:"statuses"`
		Weekdays []map[string]any `json:"weekdays"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &labels))
	assert.Len(t, labels.Statuses, 6)
	assert.Len(t, labels.Weekdays, 7)
}

func TestScheduleRequiresSession(t *testing.T) {
	h := newHarness(t)

	w, _ := h.do(http.MethodGet, "/api/schedule", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := h.do(http.MethodPost, "/api/session", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "42", body["user_id"])
	assert.NotContains(t, body, "token")

	w, _ = h.do(http.MethodGet, "/api/schedule", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = h.do(http.MethodPatch, "/api/session", gin.H{"sidebar_collapsed": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["sidebar_collapsed"])

	w, _ = h.do(http.MethodDelete, "/api/session", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w, _ = h.do(http.MethodGet, "/api/schedule", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBookFromSlotClick(t *testing.T) {
	h := newHarness(t)
	date := time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")

	w, _ := h.do(http.MethodPost, "/api/session", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := h.do(http.MethodGet, "/api/schedule?date="+date, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, date, body["date"])
	require.Len(t, body["columns"], 1)
	require.Len(t, body["appointments"], 1)
	// today on first load, then the requested date
	assert.Equal(t, 2, h.api.count("GET /schedules/1/timeline"))

	w, body = h.do(http.MethodPost, "/api/schedule/slot-click", gin.H{"calendar_id": 1, "time": "09:30"})
	require.Equal(t, http.StatusCreated, w.Code)
	formID := body["id"].(string)
	form := body["form"].(map[string]any)
	values := form["values"].(map[string]any)
	assert.Equal(t, "09:30", values["time"])
	assert.Equal(t, date, values["date"])

	w, body = h.do(http.MethodPatch, "/api/forms/appointments/"+formID, gin.H{"tutor_id": 10, "pet_id": 20, "service_id": 5})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["form"].(map[string]any)["submittable"])

	w, body = h.do(http.MethodPost, "/api/forms/appointments/"+formID+"/submit", nil)
	require.Equal(t, http.StatusOK, w.Code, body)
	assert.Equal(t, true, body["form"].(map[string]any)["closed"])

	require.Len(t, h.api.created, 1)
	assert.Equal(t, "scheduled", h.api.created[0]["status"])
	assert.Equal(t, float64(1), h.api.created[0]["schedule_id"])
	for _, a := range h.api.auth {
		assert.Equal(t, "Bearer "+h.token+"|7", a)
	}

	// the calendar's timeline was reloaded after the submit
	assert.Equal(t, 3, h.api.count("GET /schedules/1/timeline"))

	w, _ = h.do(http.MethodGet, "/api/forms/appointments/"+formID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Eventually(t, func() bool {
		h.sink.mu.Lock()
		defer h.sink.mu.Unlock()
		return len(h.sink.events) == 1 && h.sink.events[0].Action == audit.ActionAppointmentCreated
	}, time.Second, 10*time.Millisecond)
}

func TestCalendarFormWithoutDaysNeverReachesAPI(t *testing.T) {
	h := newHarness(t)

	w, _ := h.do(http.MethodPost, "/api/session", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w, body := h.do(http.MethodPost, "/api/forms/calendars", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	formID := body["id"].(string)
	assert.Len(t, body["form"].(map[string]any)["days"], 7)

	w, _ = h.do(http.MethodPatch, "/api/forms/calendars/"+formID, gin.H{"name": "Banho"})
	require.Equal(t, http.StatusOK, w.Code)

	w, body = h.do(http.MethodPost, "/api/forms/calendars/"+formID+"/submit", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "at_least_one_day_required", body["error_code"])
	assert.Equal(t, 0, h.api.count("POST /schedules"))

	w, _ = h.do(http.MethodPatch, "/api/forms/calendars/"+formID, gin.H{"toggle_days": []int{2}})
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = h.do(http.MethodPost, "/api/forms/calendars/"+formID+"/submit", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, h.api.count("POST /schedules"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, "/api/session", nil)
	h.do(http.MethodGet, "/api/schedule", nil)

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vet_agenda_backend_requests_total")
}
