// Package http serves rendered flood tiles and the operational API around
// them: coverage audits, cache introspection, health, and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/flood-tile-service/internal/audit"
	"github.com/couchcryptid/flood-tile-service/internal/cache"
	"github.com/couchcryptid/flood-tile-service/internal/domain"
)

// maxAuditTiles bounds how much work one audit request may demand. Larger
// areas belong in the offline audit tool.
const maxAuditTiles = 1024

// TileRenderer renders the flood overlay for one tile and scenario.
type TileRenderer interface {
	RenderTile(ctx context.Context, waterLevel float64, z, x, y int) ([]byte, string, error)
}

// CoverageAuditor runs coverage audits over areas and single tiles.
type CoverageAuditor interface {
	AuditBBox(ctx context.Context, minLon, minLat, maxLon, maxLat float64, z int) (*audit.Report, error)
	InspectTile(ctx context.Context, z, x, y int) (*audit.TileReport, error)
}

// RenderCache is the cache surface exposed to operators.
type RenderCache interface {
	Stats() cache.Stats
	Clear()
}

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes the tile, audit, cache, health, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	renderer   TileRenderer
	auditor    CoverageAuditor
	cache      RenderCache
	logger     *slog.Logger
}

// NewServer creates the HTTP server and wires all routes.
func NewServer(addr string, renderer TileRenderer, auditor CoverageAuditor, renderCache RenderCache, ready ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Audits touch many tiles; give them more room than health checks need.
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		renderer: renderer,
		auditor:  auditor,
		cache:    renderCache,
		logger:   logger,
	}

	mux.HandleFunc("GET /tiles/{z}/{x}/{file}", s.handleTile)
	mux.HandleFunc("GET /api/tiles/{z}/{x}/{y}/inspect", s.handleInspect)
	mux.HandleFunc("GET /api/audit", s.handleAudit)
	mux.HandleFunc("GET /api/cache/stats", s.handleCacheStats)
	mux.HandleFunc("POST /api/cache/clear", s.handleCacheClear)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

// handleTile serves GET /tiles/{z}/{x}/{y}.png?water_level=N. A missing
// water_level renders the normal sea level scenario. Tiles with no elevation
// under them are still a success, just transparent.
func (s *Server) handleTile(w http.ResponseWriter, r *http.Request) {
	z, err := pathInt(r, "z")
	if err != nil {
		s.writeError(w, err)
		return
	}
	x, err := pathInt(r, "x")
	if err != nil {
		s.writeError(w, err)
		return
	}

	file := r.PathValue("file")
	stem, ok := strings.CutSuffix(file, ".png")
	if !ok {
		s.writeError(w, fmt.Errorf("%w: unsupported tile format %q", domain.ErrInvalidInput, file))
		return
	}
	y, err := strconv.Atoi(stem)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: tile row %q is not an integer", domain.ErrInvalidInput, stem))
		return
	}

	waterLevel := 0.0
	if raw := r.URL.Query().Get("water_level"); raw != "" {
		waterLevel, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, fmt.Errorf("%w: water_level %q is not a number", domain.ErrInvalidInput, raw))
			return
		}
	}

	data, contentType, err := s.renderer.RenderTile(r.Context(), waterLevel, z, x, y)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck // client gone is not our problem
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	z, err := pathInt(r, "z")
	if err != nil {
		s.writeError(w, err)
		return
	}
	x, err := pathInt(r, "x")
	if err != nil {
		s.writeError(w, err)
		return
	}
	y, err := pathInt(r, "y")
	if err != nil {
		s.writeError(w, err)
		return
	}

	report, err := s.auditor.InspectTile(r.Context(), z, x, y)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	minLon, err := queryFloat(r, "min_lon")
	if err != nil {
		s.writeError(w, err)
		return
	}
	minLat, err := queryFloat(r, "min_lat")
	if err != nil {
		s.writeError(w, err)
		return
	}
	maxLon, err := queryFloat(r, "max_lon")
	if err != nil {
		s.writeError(w, err)
		return
	}
	maxLat, err := queryFloat(r, "max_lat")
	if err != nil {
		s.writeError(w, err)
		return
	}
	z, err := queryInt(r, "z")
	if err != nil {
		s.writeError(w, err)
		return
	}

	tr, err := domain.BBoxToTileRange(minLon, minLat, maxLon, maxLat, z)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tr.Count() > maxAuditTiles {
		s.writeError(w, fmt.Errorf("%w: audit covers %d tiles, limit is %d",
			domain.ErrInvalidInput, tr.Count(), maxAuditTiles))
		return
	}

	report, err := s.auditor.AuditBBox(r.Context(), minLon, minLat, maxLon, maxLat, z)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cache.Stats())
}

func (s *Server) handleCacheClear(w http.ResponseWriter, _ *http.Request) {
	s.cache.Clear()
	s.logger.Info("render cache cleared by operator")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// writeError maps invalid input to 400 and everything else to an opaque 500.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrInvalidInput) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.logger.Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(r.PathValue(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", domain.ErrInvalidInput, name, r.PathValue(name))
	}
	return v, nil
}

func queryFloat(r *http.Request, name string) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing query parameter %s", domain.ErrInvalidInput, name)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a number", domain.ErrInvalidInput, name, raw)
	}
	return v, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, fmt.Errorf("%w: missing query parameter %s", domain.ErrInvalidInput, name)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not an integer", domain.ErrInvalidInput, name, raw)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
