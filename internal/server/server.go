// Package server exposes the audit pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dtnitsch/web-audit/internal/common"
	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/auditor"
	"github.com/dtnitsch/web-audit/pkg/db"
	"github.com/dtnitsch/web-audit/pkg/extractor"
	"github.com/dtnitsch/web-audit/pkg/metrics"
)

// DefaultRequestTimeout is the ceiling for a single request.
const DefaultRequestTimeout = 120 * time.Second

const maxBodyBytes = 1 << 20

type Auditor interface {
	Run(ctx context.Context, req auditor.Request) (*models.AuditReport, error)
}

type SafetyChecker interface {
	Check(ctx context.Context, url string) (*models.SafetyResult, error)
}

type HistoryLister interface {
	ListAudits(url string, limit int) ([]db.AuditRecord, error)
}

// Deps wires the handlers. Only Auditor is required; a nil collaborator
// makes its endpoint report 503 (or 502 for performance).
type Deps struct {
	Auditor     Auditor
	Performance extractor.PerformanceSource
	Safety      SafetyChecker
	History     HistoryLister
	Metrics     *metrics.Collector
}

type Server struct {
	deps   Deps
	logger *slog.Logger

	RequestTimeout time.Duration
}

func New(deps Deps, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{deps: deps, logger: logger, RequestTimeout: DefaultRequestTimeout}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.Middleware)
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	if s.deps.Metrics != nil {
		r.Handle("/metrics", s.deps.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.RequestTimeout))
		r.Post("/audit", s.handleAudit)
		r.Get("/performance", s.handlePerformance)
		r.Post("/safety", s.handleSafety)
		r.Get("/history", s.handleHistory)
	})
	return r
}

type errorResponse struct {
	Error           string                  `json:"error"`
	Details         string                  `json:"details,omitempty"`
	ScanDiagnostics *models.SiteDiagnostics `json:"scanDiagnostics,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAudit runs an audit. POST /audit {url, mode, forceRefresh}
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("audit handler panicked", "panic", rec, "request_id", middleware.GetReqID(r.Context()))
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error:   fmt.Sprint(rec),
				Details: fmt.Sprintf("panic: %v", rec),
			})
		}
	}()

	var req auditor.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body", Details: err.Error()})
		return
	}

	report, err := s.deps.Auditor.Run(r.Context(), req)
	if err != nil {
		var reqErr *auditor.RequestError
		if errors.As(err, &reqErr) {
			writeJSON(w, reqErr.Status, errorResponse{Error: reqErr.Message, ScanDiagnostics: reqErr.Diagnostics})
			return
		}
		s.logger.Error("audit failed", "url", req.URL, "error", err, "request_id", middleware.GetReqID(r.Context()))
		msg := err.Error()
		if msg == "" {
			msg = "Audit process failed"
		}
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: msg, Details: fmt.Sprintf("%T: %v", err, err)})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handlePerformance returns lab metrics with field data attached.
// GET /performance?url=
func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.URL.Query().Get("url"))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL is required"})
		return
	}
	target, err := common.NormalizeURL(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid URL format."})
		return
	}
	if s.deps.Performance == nil {
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Failed to fetch performance metrics"})
		return
	}

	var (
		wg    sync.WaitGroup
		field *models.FieldMetrics
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("crux lookup panicked", "url", target, "panic", rec)
			}
		}()
		field = s.deps.Performance.Field(r.Context(), target)
	}()

	lab, err := s.deps.Performance.Lab(r.Context(), target)
	wg.Wait()
	if err != nil {
		s.logger.Warn("performance lookup failed", "url", target, "error", err)
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "Failed to fetch performance metrics", Details: err.Error()})
		return
	}

	out := *lab
	out.Crux = field
	writeJSON(w, http.StatusOK, out)
}

// handleSafety checks URL reputation. Failures answer 503 so callers can
// treat the result as unknown rather than unsafe. POST /safety {url}
func (s *Server) handleSafety(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := decodeBody(w, r, &req); err != nil || strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "URL is required"})
		return
	}
	if s.deps.Safety == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Safety check unavailable"})
		return
	}

	result, err := s.deps.Safety.Check(r.Context(), strings.TrimSpace(req.URL))
	if err != nil {
		s.logger.Warn("safety check failed", "url", req.URL, "error", err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Failed to verify safety status", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// handleHistory lists recent audits. GET /history?url=&limit=
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.deps.History == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Audit history is disabled"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target != "" {
		normalized, err := common.NormalizeURL(target)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid URL format."})
			return
		}
		target = normalized
	}

	records, err := s.deps.History.ListAudits(target, limit)
	if err != nil {
		s.logger.Error("failed to list audit history", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to list audit history", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
