package router

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-records/internal/handler"
	"github.com/jwalitptl/patient-records/internal/handler/patient"
	"github.com/jwalitptl/patient-records/internal/handler/prometheus"
	"github.com/jwalitptl/patient-records/internal/middleware"
	"github.com/jwalitptl/patient-records/internal/model"
	"github.com/jwalitptl/patient-records/internal/repository/memory"
)

func newTestRouter(config RouterConfig, seed ...*model.Patient) *Router {
	log := zerolog.Nop()
	store := memory.NewPatientStore(seed...)
	r := NewRouter(patient.NewHandler(store, log), handler.NewHandler(), prometheus.New(), config, log)
	r.Setup()
	return r
}

func serve(r *Router, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	return w
}

func TestHealthRoutes(t *testing.T) {
	r := newTestRouter(RouterConfig{})

	w := serve(r, http.MethodGet, "/health/live", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alive")

	w = serve(r, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "uptime")
}

func TestMetricsRoute(t *testing.T) {
	r := newTestRouter(RouterConfig{})

	serve(r, http.MethodGet, "/patients", "")
	w := serve(r, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestPatientRoutes(t *testing.T) {
	r := newTestRouter(RouterConfig{},
		&model.Patient{ID: 1, Name: "Alice Smith", UID: "11111111111", BloodGroup: model.BloodGroupOPos},
	)

	w := serve(r, http.MethodPost, "/patients", `{"id":2,"name":"Bob Jones","uid":"22222222222","bloodGroup":"A-"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = serve(r, http.MethodGet, "/patients?bloodGroup=O%2B", "")
	require.Equal(t, http.StatusOK, w.Code)
	var got []model.Patient
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Alice Smith", got[0].Name)

	w = serve(r, http.MethodPatch, "/patients/2", `{"name":"Robert Jones"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Robert Jones")

	w = serve(r, http.MethodDelete, "/patients/2", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(r, http.MethodGet, "/patients/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{}`, w.Body.String())
}

func TestDuplicateIDIsServerError(t *testing.T) {
	r := newTestRouter(RouterConfig{}, &model.Patient{ID: 1, Name: "Alice Smith"})

	w := serve(r, http.MethodPost, "/patients", `{"id":1,"name":"Again"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCustomBasePath(t *testing.T) {
	r := newTestRouter(RouterConfig{BasePath: "api/patients"}, &model.Patient{ID: 1, Name: "Alice Smith"})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/api/patients/1", "").Code)
	assert.Equal(t, http.StatusNotFound, serve(r, http.MethodGet, "/patients/1", "").Code)
}

func TestRequestIDEchoed(t *testing.T) {
	r := newTestRouter(RouterConfig{})

	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	req.Header.Set(middleware.HeaderXRequestID, "req-123")
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(middleware.HeaderXRequestID))
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(RouterConfig{CORSOrigins: []string{"http://localhost:3000"}})

	req := httptest.NewRequest(http.MethodOptions, "/patients", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	r := newTestRouter(RouterConfig{RateLimit: 0.001, RateBurst: 1})

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/health/live", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/health/live", "").Code)
}
