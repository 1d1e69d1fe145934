package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/thatsimonsguy/brewfridge/internal/controller"
	"github.com/thatsimonsguy/brewfridge/internal/status"
)

// Health is the sensor health as seen by the control loop.
type Health struct {
	OK     bool
	Uptime int64
}

// GainsUpdate carries the gains a caller wants to change. Nil fields are kept.
type GainsUpdate struct {
	Kp *float64 `json:"kp"`
	Ki *float64 `json:"ki"`
	Kd *float64 `json:"kd"`
}

// Querier answers queries against the live controller state. Calls are
// serviced by the control tick, so they may wait up to one tick.
type Querier interface {
	Status(ctx context.Context) (status.Extended, error)
	Health(ctx context.Context) (Health, error)
	Gains(ctx context.Context) (controller.Gains, error)
	SetGains(ctx context.Context, u GainsUpdate) (controller.Gains, error)
}

type Server struct {
	q       Querier
	timeout time.Duration
	metrics http.Handler
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Uptime int64  `json:"uptime"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func NewServer(q Querier) *Server {
	return &Server{q: q, timeout: 2 * time.Second}
}

// WithMetrics exposes h at /metrics.
func (s *Server) WithMetrics(h http.Handler) *Server {
	s.metrics = h
	return s
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", s.index).Methods("GET")
	r.HandleFunc("/status", s.getStatus).Methods("GET")
	r.HandleFunc("/health", s.getHealth).Methods("GET")
	r.HandleFunc("/pid", s.getPID).Methods("GET")
	r.HandleFunc("/pid", s.setPID).Methods("POST")
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods("GET")
	}

	return r
}

// Handler wraps the router with access logging and CORS.
func (s *Server) Handler() http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return handlers.LoggingHandler(log.Logger, cors(s.Router()))
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("address", addr).Msg("Starting REST API server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string][]string{
		"endpoints": {"/status", "/health", "/pid"},
	})
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	st, err := s.q.Status(ctx)
	if err != nil {
		s.unavailable(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	h, err := s.q.Health(ctx)
	if err != nil {
		s.unavailable(w, err)
		return
	}

	if !h.OK {
		s.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "error", Error: "sensor_failure", Uptime: h.Uptime})
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Uptime: h.Uptime})
}

func (s *Server) getPID(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	g, err := s.q.Gains(ctx)
	if err != nil {
		s.unavailable(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, g)
}

func (s *Server) setPID(w http.ResponseWriter, r *http.Request) {
	var u GainsUpdate
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	for _, v := range []*float64{u.Kp, u.Ki, u.Kd} {
		if v != nil && *v < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid_value")
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	g, err := s.q.SetGains(ctx, u)
	if err != nil {
		s.unavailable(w, err)
		return
	}

	log.Info().Float64("kp", g.Kp).Float64("ki", g.Ki).Float64("kd", g.Kd).Msg("PID gains updated via API")
	s.writeJSON(w, http.StatusOK, g)
}

func (s *Server) unavailable(w http.ResponseWriter, err error) {
	log.Warn().Err(err).Msg("Query not serviced")
	s.writeError(w, http.StatusServiceUnavailable, "unavailable")
}

func (s *Server) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, statusCode int, message string) {
	s.writeJSON(w, statusCode, ErrorResponse{Error: message})
}
