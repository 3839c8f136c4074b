package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voyagen/streamvault/api"
	"github.com/voyagen/streamvault/internal/catalog"
	"github.com/voyagen/streamvault/internal/config"
	"github.com/voyagen/streamvault/internal/match"
	"github.com/voyagen/streamvault/internal/models"
	"github.com/voyagen/streamvault/internal/store"
	"github.com/voyagen/streamvault/internal/xtream"
)

// GuideTrigger requests a guide refresh. It either runs the refresh
// directly or enqueues a job for the worker.
type GuideTrigger func(ctx context.Context, reason string) error

// Server holds dependencies for the HTTP API.
type Server struct {
	store    store.Store
	cfg      *config.Config
	engine   *match.Engine
	syncer   *catalog.Syncer
	provider *xtream.Client
	guide    GuideTrigger // nil when guide ingestion is disabled
	mux      *http.ServeMux
}

// New creates a Server and registers routes.
// guide may be nil if guide ingestion is not configured.
func New(s store.Store, cfg *config.Config, engine *match.Engine, syncer *catalog.Syncer, provider *xtream.Client, guide GuideTrigger) *Server {
	srv := &Server{store: s, cfg: cfg, engine: engine, syncer: syncer, provider: provider, guide: guide, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	// Resolution
	s.mux.HandleFunc("GET /api/stream/{type}/{id}", s.handleStream)

	// Playback redirects
	s.mux.HandleFunc("GET /redirect/movie/{id}", s.handleMovieRedirect)
	s.mux.HandleFunc("GET /redirect/series/{id}/{season}/{episode}", s.handleSeriesRedirect)

	// Live TV
	s.mux.HandleFunc("GET /api/live/categories", s.handleLiveCategories)
	s.mux.HandleFunc("GET /api/live/channels", s.handleLiveChannels)

	// Guide
	s.mux.HandleFunc("POST /api/guide/refresh", s.handleGuideRefresh)

	// Docs
	s.mux.HandleFunc("GET /api/docs", handleSwaggerUI)
	s.mux.HandleFunc("GET /api/docs/openapi.yaml", handleOpenAPISpec)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the configured port.
// It blocks until the server is shut down or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := ":" + s.cfg.ServerPort
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      withCORS(withLogging(s)),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("ListenAndServe: %w", err)
	}
	return nil
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	contentType := r.PathValue("type")
	id := strings.TrimSuffix(r.PathValue("id"), ".json")
	if id == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("id is required"))
		return
	}
	switch contentType {
	case models.ContentTypeMovie, models.ContentTypeSeries, models.ContentTypeTV:
	default:
		writeErr(w, http.StatusBadRequest, fmt.Errorf("unsupported type: %s", contentType))
		return
	}

	candidates := s.engine.Resolve(r.Context(), contentType, id, s.baseURL(r))
	if candidates == nil {
		candidates = []models.StreamCandidate{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"streams": candidates})
}

func (s *Server) handleMovieRedirect(w http.ResponseWriter, r *http.Request) {
	movieID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	http.Redirect(w, r, s.provider.MovieURL(r.Context(), movieID), http.StatusFound)
}

func (s *Server) handleSeriesRedirect(w http.ResponseWriter, r *http.Request) {
	seriesID, err := parseID(r, "id")
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	season, err := strconv.Atoi(r.PathValue("season"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid season: %s", r.PathValue("season")))
		return
	}
	episode, err := strconv.Atoi(r.PathValue("episode"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid episode: %s", r.PathValue("episode")))
		return
	}

	target, err := s.provider.SeriesEpisodeURL(r.Context(), seriesID, season, episode)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (s *Server) handleLiveCategories(w http.ResponseWriter, r *http.Request) {
	if err := s.syncer.RefreshLiveCategories(r.Context()); err != nil {
		log.Printf("live categories refresh: %v", err)
	}
	cats, err := s.store.ListLiveCategories(r.Context(), s.provider.TenantID())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if cats == nil {
		cats = []models.LiveCategory{}
	}
	writeJSON(w, http.StatusOK, cats)
}

func (s *Server) handleLiveChannels(w http.ResponseWriter, r *http.Request) {
	if err := s.syncer.RefreshLiveChannels(r.Context()); err != nil {
		log.Printf("live channels refresh: %v", err)
	}

	tenant := s.provider.TenantID()
	categoryID := ""
	if genre := r.URL.Query().Get("genre"); genre != "" {
		cat, err := s.store.FindLiveCategory(r.Context(), tenant, strings.TrimSpace(genre))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		if cat != nil {
			categoryID = cat.CategoryID
		}
	}

	limit := 200
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid limit: %s", v))
			return
		}
		limit = n
	}
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	channels, err := s.store.ListLiveChannels(r.Context(), tenant, categoryID, limit)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	metas := make([]models.Meta, 0, len(channels))
	for _, ch := range channels {
		metas = append(metas, s.syncer.LiveChannelMeta(r.Context(), ch))
	}
	writeJSON(w, http.StatusOK, map[string]any{"metas": metas})
}

func (s *Server) handleGuideRefresh(w http.ResponseWriter, r *http.Request) {
	if s.guide == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("guide ingestion is disabled"))
		return
	}
	if err := s.guide(r.Context(), "manual"); err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("guide refresh: %w", err))
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"triggered": true})
}

// baseURL resolves the externally visible address for redirect URLs,
// preferring the configured one over what the request implies.
func (s *Server) baseURL(r *http.Request) string {
	if s.cfg.BaseURL != "" {
		return strings.TrimSuffix(s.cfg.BaseURL, "/")
	}
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

// --- docs handlers ---

func handleOpenAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(api.OpenAPISpec)
}

func handleSwaggerUI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, swaggerUIHTML)
}

const swaggerUIHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>StreamVault API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
  <style>html{box-sizing:border-box;overflow-y:scroll}*,*:before,*:after{box-sizing:inherit}body{margin:0;background:#fafafa}</style>
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    SwaggerUIBundle({
      url: "/api/docs/openapi.yaml",
      dom_id: "#swagger-ui",
      presets: [SwaggerUIBundle.presets.apis, SwaggerUIBundle.SwaggerUIStandalonePreset],
      layout: "BaseLayout",
    });
  </script>
</body>
</html>`

// --- middleware ---

// withCORS adds CORS headers to every response and handles preflight OPTIONS requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// withLogging wraps a handler and logs each request with method, path, status, and duration.
func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		duration := time.Since(start)
		statusCode := sw.status

		// Color the status code for terminal readability.
		statusColor := colorForStatus(statusCode)
		methodColor := colorForMethod(r.Method)

		log.Printf("%s %-7s %s\x1b[0m  %s %3d %s\x1b[0m  %s",
			methodColor, r.Method, "\x1b[0m",
			statusColor, statusCode, "\x1b[0m",
			formatDuration(duration),
		)
		if r.URL.RawQuery != "" {
			log.Printf("         %s?%s", r.URL.Path, r.URL.RawQuery)
		} else {
			log.Printf("         %s", r.URL.Path)
		}
	})
}

func colorForStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "\x1b[32m" // green
	case code >= 300 && code < 400:
		return "\x1b[36m" // cyan
	case code >= 400 && code < 500:
		return "\x1b[33m" // yellow
	default:
		return "\x1b[31m" // red
	}
}

func colorForMethod(method string) string {
	switch method {
	case http.MethodGet:
		return "\x1b[36m" // cyan
	case http.MethodPost:
		return "\x1b[32m" // green
	case http.MethodDelete:
		return "\x1b[31m" // red
	default:
		return "\x1b[37m" // white
	}
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%dus", d.Microseconds())
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	default:
		return fmt.Sprintf("%.2fs", d.Seconds())
	}
}

// --- helpers ---

// APIError is the standard error envelope for all error responses.
type APIError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// parseID extracts a path parameter by name and parses it as int64.
func parseID(r *http.Request, param string) (int64, error) {
	v := r.PathValue(param)
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %s", param, v)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("writeJSON: %v", err)
	}
}

func writeErr(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		log.Printf("ERROR %d: %v", status, err)
	}
	writeJSON(w, status, APIError{
		Status: status,
		Error:  http.StatusText(status),
		Detail: err.Error(),
	})
}
