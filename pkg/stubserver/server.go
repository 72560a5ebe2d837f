package stubserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/verdantops/esgportal/pkg/config"
	"github.com/verdantops/esgportal/pkg/httpx"
)

// Server hosts the telemetry, alerts, compliance and simulator APIs behind
// one router. All handlers share the uniform error envelope
// {"error":{"code","message"}}.
type Server struct {
	cfg    *config.StubConfig
	store  metricStore
	hub    *Hub
	limits *sourceLimits
	router *mux.Router

	mu        sync.Mutex
	seen      map[string]int64
	nextRawID int64
}

// NewServer wires the stores and routes. With an empty DBPath metrics are
// kept in memory only.
func NewServer(cfg *config.StubConfig) (*Server, error) {
	var (
		store metricStore
		err   error
	)

	if cfg.DBPath != "" {
		store, err = newSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open metric store: %w", err)
		}
	} else {
		store = newMemoryStore()
	}

	s := &Server{
		cfg:    cfg,
		store:  store,
		hub:    NewHub(),
		limits: newSourceLimits(rate.Limit(cfg.IngestPerSec), cfg.IngestBurst),
		seen:   make(map[string]int64),
	}

	s.router = s.buildRouter()

	return s, nil
}

// sourceLimits keys ingestion rate limiters by client, one limiter per
// source identifier.
type sourceLimits struct {
	mu      sync.Mutex
	rate    rate.Limit
	burst   int
	sources map[string]*rate.Limiter
}

func newSourceLimits(r rate.Limit, burst int) *sourceLimits {
	return &sourceLimits{rate: r, burst: burst, sources: make(map[string]*rate.Limiter)}
}

func (l *sourceLimits) allow(source string) bool {
	l.mu.Lock()

	lim, ok := l.sources[source]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.sources[source] = lim
	}

	l.mu.Unlock()

	return lim.Allow()
}

// clientKey identifies the caller for rate limiting, preferring the
// declared source over the transport address.
func clientKey(r *http.Request) string {
	if src := r.Header.Get("X-Source-ID"); src != "" {
		return src
	}

	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}

	return r.RemoteAddr
}

// Router exposes the handler for serving and for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP listener until the context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.router,
	}

	go func() {
		<-ctx.Done()

		if err := srv.Shutdown(context.Background()); err != nil {
			log.Printf("Error shutting down stub server: %v", err)
		}
	}()

	log.Printf("Stub services listening on %s", s.cfg.ListenAddr)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("stub server failed: %w", err)
	}

	return nil
}

// Stop releases the metric store.
func (s *Server) Stop(_ context.Context) error {
	return s.store.Close()
}

func (s *Server) buildRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(httpx.CommonMiddleware)
	r.Use(httpx.RequestIDMiddleware)

	tele := r.PathPrefix("/api/telemetry").Subrouter()
	tele.HandleFunc("/ingest", s.handleIngest).Methods(http.MethodPost, http.MethodOptions)
	tele.HandleFunc("/replay", s.handleReplay).Methods(http.MethodPost, http.MethodOptions)
	tele.HandleFunc("/metrics/report", s.handleMetricsReport).Methods(http.MethodGet)
	tele.HandleFunc("/metrics/reset", s.handleMetricsReset).Methods(http.MethodPost, http.MethodOptions)
	tele.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	alerts := r.PathPrefix("/api/alerts").Subrouter()
	alerts.HandleFunc("/process-telemetry", s.handleProcessTelemetry).Methods(http.MethodPost, http.MethodOptions)
	alerts.HandleFunc("/stream", s.hub.ServeStream).Methods(http.MethodGet)
	alerts.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	compliance := r.PathPrefix("/api/compliance").Subrouter()
	compliance.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost, http.MethodOptions)
	compliance.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	simulator := r.PathPrefix("/api/simulator").Subrouter()
	simulator.HandleFunc("/simulate", s.handleSimulate).Methods(http.MethodPost, http.MethodOptions)
	simulator.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "OK")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// decodeJSONBody enforces a JSON content type and parses the body into a
// generic map. It writes the error response itself and reports success.
func decodeJSONBody(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(ct, "application/json") {
		writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Content-Type must be application/json")

		return nil, false
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Request body is not valid JSON")

		return nil, false
	}

	return payload, true
}
