// Package server exposes the inversion pipeline to a thin task-pane shim over HTTP
// and to agents over MCP. The shim forwards what the document host returned, the
// pipeline runs against an in-memory copy, and the writes it produced are sent back
// for the shim to apply.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/nvr-ai/go-invert/images/codec"
	"github.com/nvr-ai/go-invert/pipeline"
	"github.com/nvr-ai/go-invert/profiler"
)

// RunIDHeader carries the run id of every bridge response.
const RunIDHeader = "X-Run-ID"

// Version is reported by the MCP server and the health check.
var Version = "0.1.0"

// Config configures a Server.
type Config struct {
	// Pipeline holds the orchestrator settings applied to every run.
	Pipeline pipeline.Config
	// MaxBodyBytes bounds a request body (default: 64 MiB).
	MaxBodyBytes int64
	Logger       *slog.Logger
	// Profiler collects stage timings across runs (default: a new profiler).
	Profiler *profiler.Profiler
}

func (c *Config) defaults() {
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 64 << 20
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Profiler == nil {
		c.Profiler = profiler.New(profiler.Options{})
	}
	c.Pipeline.Profiler = c.Profiler
}

// Server serves the bridge.
type Server struct {
	cfg    Config
	logger *slog.Logger
	codec  *codec.Codec
}

// New creates a Server.
func New(cfg Config) *Server {
	cfg.defaults()
	return &Server{
		cfg:    cfg,
		logger: cfg.Logger,
		codec:  codec.New(codec.Config{MaxPixels: cfg.Pipeline.MaxPixels, Logger: cfg.Logger}),
	}
}

// Handler returns the HTTP router with every route registered.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	s.RegisterHTTP(r)
	return r
}

// RegisterHTTP registers the bridge endpoints on a router.
func (s *Server) RegisterHTTP(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Post("/v1/invert", s.handleInvert)
	r.Post("/v1/images/invert", s.handleInvertImage)
	r.Post("/v1/capabilities", s.handleCapabilities)
	r.Get("/v1/stats", s.handleStats)
}

// MCPServer returns an MCP server with the bridge tools registered.
func (s *Server) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "go-invert", Version: Version}, nil)
	s.RegisterMCP(srv)
	return srv
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"run_id", ww.Header().Get(RunIDHeader))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": Version})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Profiler.Snapshot())
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
