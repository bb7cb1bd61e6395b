// Package http exposes the engine's public operations over HTTP and one
// WebSocket stream: a mux.Router with request-ID, logging, CORS, and
// JSON-content-type middleware, plus a rate limiter guarding the mutating
// routes. No scoring or matching logic lives here.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/opendoor-marketplace/matchengine/internal/engine"
	"github.com/opendoor-marketplace/matchengine/internal/feedcache"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	CORSOrigins     []string
	MutationsPerSec float64
	MutationsBurst  int
}

// DefaultServerConfig binds to localhost only.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "127.0.0.1",
		Port:            8090,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		CORSOrigins:     []string{"*"},
		MutationsPerSec: 20,
		MutationsBurst:  40,
	}
}

// Server is the admin/demo HTTP surface over one Engine. cache, when
// non-nil, short-TTL-caches the feed and trending read surfaces.
type Server struct {
	router  *mux.Router
	server  *http.Server
	eng     *engine.Engine
	cfg     ServerConfig
	limiter *rate.Limiter
	cache   *feedcache.Cache
}

// NewServer constructs a Server bound to addr, failing fast if the port is
// already in use. cache may be nil to disable feed/trending caching.
func NewServer(eng *engine.Engine, cfg ServerConfig, cache *feedcache.Cache) (*Server, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("port %d is busy or unavailable: %w", cfg.Port, err)
	}
	ln.Close()

	s := &Server{
		router:  mux.NewRouter(),
		eng:     eng,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.MutationsPerSec), cfg.MutationsBurst),
		cache:   cache,
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.requestLoggingMiddleware)
	s.router.Use(s.corsMiddleware)

	api := s.router.PathPrefix("/").Subrouter()
	api.Use(s.jsonContentTypeMiddleware)

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/metrics", promhttp.Handler().ServeHTTP).Methods("GET")

	api.HandleFunc("/feed/{userID}", s.handleFeed).Methods("GET")
	api.HandleFunc("/trending", s.handleTrending).Methods("GET")
	api.HandleFunc("/explain/{userID}/{oppID}", s.handleExplain).Methods("GET")
	api.HandleFunc("/state", s.handleStateSnapshot).Methods("GET")
	api.HandleFunc("/events/{oppID}", s.handleEventDetail).Methods("GET")

	mutations := s.router.PathPrefix("/").Subrouter()
	mutations.Use(s.jsonContentTypeMiddleware)
	mutations.Use(s.rateLimitMiddleware)
	mutations.HandleFunc("/solve", s.handleSolve).Methods("POST")
	mutations.HandleFunc("/rebalance", s.handleRebalance).Methods("POST")
	mutations.HandleFunc("/feedback", s.handleFeedback).Methods("POST")
	mutations.HandleFunc("/rsvp", s.handleRSVP).Methods("POST")
	mutations.HandleFunc("/users", s.handleUpsertUser).Methods("POST")
	mutations.HandleFunc("/seed", s.handleSeed).Methods("POST")

	s.router.HandleFunc("/ws/pulses", s.handlePulseStream)

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		log.Info().
			Str("request_id", fmt.Sprint(r.Context().Value(requestIDKey{}))).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", sw.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		for _, allowed := range s.cfg.CORSOrigins {
			if allowed == "*" || allowed == origin {
				w.Header().Set("Access-Control-Allow-Origin", allowed)
				break
			}
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			s.writeError(w, http.StatusTooManyRequests, "rate_limited", "too many mutating requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("http: failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, msg string) {
	s.writeJSON(w, status, map[string]string{"error": code, "message": msg})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusNotFound, "not_found", "no such route")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start runs the server until it errors or is shut down.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("starting admin/demo HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
