package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thatsimonsguy/brewfridge/internal/controller"
	"github.com/thatsimonsguy/brewfridge/internal/status"
)

type mockQuerier struct {
	ext     status.Extended
	health  Health
	gains   controller.Gains
	updates []GainsUpdate
	err     error
}

func (m *mockQuerier) Status(ctx context.Context) (status.Extended, error) {
	return m.ext, m.err
}

func (m *mockQuerier) Health(ctx context.Context) (Health, error) {
	return m.health, m.err
}

func (m *mockQuerier) Gains(ctx context.Context) (controller.Gains, error) {
	return m.gains, m.err
}

func (m *mockQuerier) SetGains(ctx context.Context, u GainsUpdate) (controller.Gains, error) {
	m.updates = append(m.updates, u)
	if u.Kp != nil {
		m.gains.Kp = *u.Kp
	}
	if u.Ki != nil {
		m.gains.Ki = *u.Ki
	}
	if u.Kd != nil {
		m.gains.Kd = *u.Kd
	}
	return m.gains, m.err
}

func do(t *testing.T, s *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthOK(t *testing.T) {
	s := NewServer(&mockQuerier{health: Health{OK: true, Uptime: 42}})

	w := do(t, s, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok","uptime":42}`, w.Body.String())
}

func TestHealthSensorFailure(t *testing.T) {
	s := NewServer(&mockQuerier{health: Health{OK: false, Uptime: 7}})

	w := do(t, s, "GET", "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"error","error":"sensor_failure","uptime":7}`, w.Body.String())
}

func TestStatus(t *testing.T) {
	temp := 4.5
	q := &mockQuerier{ext: status.Extended{
		Snapshot: status.Snapshot{Temp: &temp, Power: 12, PeltierEnabled: true},
		Uptime:   100,
		PID:      status.PIDInfo{Kp: 30, PWM: 26, Cooling: true},
	}}
	s := NewServer(q)

	w := do(t, s, "GET", "/status", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(t, 4.5, m["temp"])
	assert.Equal(t, float64(12), m["power"])
	assert.Equal(t, float64(100), m["uptime"])
	assert.Equal(t, true, m["pid"].(map[string]any)["cooling"])
}

func TestGetPID(t *testing.T) {
	s := NewServer(&mockQuerier{gains: controller.Gains{Kp: 30, Ki: 0.5, Kd: 10}})

	w := do(t, s, "GET", "/pid", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"kp":30,"ki":0.5,"kd":10}`, w.Body.String())
}

func TestSetPIDPartial(t *testing.T) {
	q := &mockQuerier{gains: controller.Gains{Kp: 30, Ki: 0.5, Kd: 10}}
	s := NewServer(q)

	w := do(t, s, "POST", "/pid", []byte(`{"ki":1.5}`))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"kp":30,"ki":1.5,"kd":10}`, w.Body.String())

	require.Len(t, q.updates, 1)
	assert.Nil(t, q.updates[0].Kp)
	assert.Nil(t, q.updates[0].Kd)
}

func TestSetPIDInvalid(t *testing.T) {
	q := &mockQuerier{}
	s := NewServer(q)

	w := do(t, s, "POST", "/pid", []byte(`{kp: 3`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid_json"}`, w.Body.String())

	w = do(t, s, "POST", "/pid", []byte(`{"kp":"high"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, "POST", "/pid", []byte(`{"kd":-1}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"invalid_value"}`, w.Body.String())

	assert.Empty(t, q.updates)
}

func TestQueryTimeout(t *testing.T) {
	s := NewServer(&mockQuerier{err: context.DeadlineExceeded})

	w := do(t, s, "GET", "/status", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"error":"unavailable"}`, w.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	s := NewServer(&mockQuerier{})

	w := do(t, s, "DELETE", "/pid", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = do(t, s, "GET", "/update", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSHeaders(t *testing.T) {
	s := NewServer(&mockQuerier{health: Health{OK: true}})

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsRoute(t *testing.T) {
	s := NewServer(&mockQuerier{})
	w := do(t, s, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	s = NewServer(&mockQuerier{}).WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fridge_duty 32\n"))
	}))
	w = do(t, s, "GET", "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "fridge_duty 32\n", w.Body.String())
}
