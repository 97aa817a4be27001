package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/joescharf/relstatus/internal/gauge"
	"github.com/joescharf/relstatus/internal/report"
)

// Source produces fresh data for every request.
type Source interface {
	Report(ctx context.Context) (*report.Report, error)
	Gauge() (gauge.Description, error)
}

// Server provides the HTTP handlers.
type Server struct {
	src    Source
	logger *slog.Logger
}

// NewServer creates a new API server. A nil logger uses slog.Default.
func NewServer(src Source, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{src: src, logger: logger}
}

// Router returns an http.Handler for the API routes.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.page)
	mux.HandleFunc("GET /healthz", s.healthz)

	mux.HandleFunc("GET /api/v1/report", s.getReport)
	mux.HandleFunc("GET /api/v1/blueprints/{name}", s.getBlueprint)
	mux.HandleFunc("GET /api/v1/gauge", s.getGauge)

	return s.logRequests(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// build runs the pipeline and writes a 502 on failure, since every failure
// past config validation comes from an upstream service.
func (s *Server) build(w http.ResponseWriter, r *http.Request) (*report.Report, bool) {
	rep, err := s.src.Report(r.Context())
	if err != nil {
		s.logger.Error("build report", "error", err)
		writeError(w, http.StatusBadGateway, err.Error())
		return nil, false
	}
	return rep, true
}

// --- Report ---

var contentTypes = map[string]string{
	"json":     "application/json",
	"csv":      "text/csv; charset=utf-8",
	"markdown": "text/markdown; charset=utf-8",
	"md":       "text/markdown; charset=utf-8",
	"html":     "text/html; charset=utf-8",
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	ct, ok := contentTypes[format]
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown format: "+format)
		return
	}

	rep, ok := s.build(w, r)
	if !ok {
		return
	}
	if format == "json" {
		writeJSON(w, http.StatusOK, rep)
		return
	}
	w.Header().Set("Content-Type", ct)
	if err := report.Render(w, rep, format); err != nil {
		s.logger.Error("render report", "format", format, "error", err)
	}
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	rep, ok := s.build(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", contentTypes["html"])
	if err := report.RenderHTML(w, rep); err != nil {
		s.logger.Error("render page", "error", err)
	}
}

func (s *Server) getBlueprint(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	rep, ok := s.build(w, r)
	if !ok {
		return
	}
	bp, found := rep.Find(name)
	if !found {
		writeError(w, http.StatusNotFound, "blueprint not found: "+name)
		return
	}
	writeJSON(w, http.StatusOK, bp)
}

// --- Gauge ---

type gaugeResponse struct {
	gauge.Description
	Zone string `json:"zone"`
}

func (s *Server) getGauge(w http.ResponseWriter, r *http.Request) {
	g, err := s.src.Gauge()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gauge.ErrInsufficientSchedule) || errors.Is(err, gauge.ErrInvalidSchedule) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, gaugeResponse{Description: g, Zone: g.Zone()})
}
