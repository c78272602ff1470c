package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dtnitsch/web-audit/models"
	"github.com/dtnitsch/web-audit/pkg/auditor"
	"github.com/dtnitsch/web-audit/pkg/db"
	"github.com/dtnitsch/web-audit/pkg/metrics"
	"github.com/dtnitsch/web-audit/pkg/safety"
)

type fakeAuditor struct {
	got    auditor.Request
	report *models.AuditReport
	err    error
	panics bool
}

func (f *fakeAuditor) Run(ctx context.Context, req auditor.Request) (*models.AuditReport, error) {
	f.got = req
	if f.panics {
		panic("boom")
	}
	return f.report, f.err
}

type fakePerf struct {
	err error
}

func (f *fakePerf) Lab(ctx context.Context, url string) (*models.PerformanceMetrics, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.PerformanceMetrics{LighthouseScore: 64, LCP: "3.1 s"}, nil
}

func (f *fakePerf) Field(ctx context.Context, url string) *models.FieldMetrics {
	return &models.FieldMetrics{LCP: "2.80 s", DataSource: "CrUX"}
}

type fakeSafety struct {
	result *models.SafetyResult
	err    error
}

func (f *fakeSafety) Check(ctx context.Context, url string) (*models.SafetyResult, error) {
	return f.result, f.err
}

type fakeHistory struct {
	gotURL   string
	gotLimit int
	records  []db.AuditRecord
}

func (f *fakeHistory) ListAudits(url string, limit int) ([]db.AuditRecord, error) {
	f.gotURL, f.gotLimit = url, limit
	return f.records, nil
}

func newTestServer(deps Deps) http.Handler {
	return New(deps, slog.New(slog.NewTextHandler(io.Discard, nil))).Handler()
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, r))

	var decoded map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("failed to decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, decoded
}

func TestAudit(t *testing.T) {
	diag := &models.SiteDiagnostics{RobotsTxt: &models.RobotsTxt{Status: 200, SitemapURLs: []string{}}}

	tests := []struct {
		name       string
		body       string
		auditor    *fakeAuditor
		wantStatus int
		wantError  string
		wantDiag   bool
	}{
		{
			name:       "success",
			body:       `{"url":"example.com","mode":"fast","forceRefresh":true}`,
			auditor:    &fakeAuditor{report: &models.AuditReport{Type: models.ModeFast, AnalysisMode: models.AnalysisDeterministic}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "malformed body",
			body:       `{"url":`,
			auditor:    &fakeAuditor{},
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid request body",
		},
		{
			name:       "bad request from auditor",
			body:       `{}`,
			auditor:    &fakeAuditor{err: &auditor.RequestError{Status: http.StatusBadRequest, Message: "URL is required"}},
			wantStatus: http.StatusBadRequest,
			wantError:  "URL is required",
		},
		{
			name: "homepage unreachable",
			body: `{"url":"example.com"}`,
			auditor: &fakeAuditor{err: &auditor.RequestError{
				Status:      http.StatusBadGateway,
				Message:     "Unable to scan https://example.com: HTTP 503",
				Diagnostics: diag,
			}},
			wantStatus: http.StatusBadGateway,
			wantError:  "Unable to scan https://example.com: HTTP 503",
			wantDiag:   true,
		},
		{
			name:       "unexpected error",
			body:       `{"url":"example.com"}`,
			auditor:    &fakeAuditor{err: errors.New("disk full")},
			wantStatus: http.StatusInternalServerError,
			wantError:  "disk full",
		},
		{
			name:       "panic",
			body:       `{"url":"example.com"}`,
			auditor:    &fakeAuditor{panics: true},
			wantStatus: http.StatusInternalServerError,
			wantError:  "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(Deps{Auditor: tt.auditor})
			rec, body := do(t, h, http.MethodPost, "/audit", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantError != "" && body["error"] != tt.wantError {
				t.Errorf("error = %v, want %q", body["error"], tt.wantError)
			}
			if _, ok := body["scanDiagnostics"]; ok != tt.wantDiag {
				t.Errorf("scanDiagnostics present = %v, want %v", ok, tt.wantDiag)
			}
			if tt.wantStatus == http.StatusInternalServerError && body["details"] == nil {
				t.Error("details missing from 500 response")
			}
		})
	}
}

func TestAuditPassesRequest(t *testing.T) {
	fa := &fakeAuditor{report: &models.AuditReport{Type: models.ModeDeep}}
	h := newTestServer(Deps{Auditor: fa})

	rec, body := do(t, h, http.MethodPost, "/audit", `{"url":"example.com","mode":"deep","forceRefresh":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if fa.got.URL != "example.com" || fa.got.Mode != "deep" || !fa.got.ForceRefresh {
		t.Errorf("auditor request = %+v", fa.got)
	}
	if body["type"] != "deep" {
		t.Errorf("type = %v, want deep", body["type"])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
}

func TestPerformance(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		perf       *fakePerf
		wantStatus int
	}{
		{name: "missing url", query: "", perf: &fakePerf{}, wantStatus: http.StatusBadRequest},
		{name: "collector failure", query: "?url=example.com", perf: &fakePerf{err: errors.New("psi down")}, wantStatus: http.StatusBadGateway},
		{name: "success", query: "?url=example.com", perf: &fakePerf{}, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(Deps{Auditor: &fakeAuditor{}, Performance: tt.perf})
			rec, body := do(t, h, http.MethodGet, "/performance"+tt.query, "")

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			if body["lighthouseScore"] != float64(64) {
				t.Errorf("lighthouseScore = %v, want 64", body["lighthouseScore"])
			}
			crux, _ := body["crux"].(map[string]any)
			if crux["dataSource"] != "CrUX" {
				t.Errorf("crux = %v, want CrUX field data", body["crux"])
			}
		})
	}
}

func TestPerformanceWithoutCollector(t *testing.T) {
	h := newTestServer(Deps{Auditor: &fakeAuditor{}})
	if rec, _ := do(t, h, http.MethodGet, "/performance?url=example.com", ""); rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestSafety(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		checker    SafetyChecker
		wantStatus int
	}{
		{name: "missing url", body: `{}`, checker: &fakeSafety{}, wantStatus: http.StatusBadRequest},
		{name: "no key fails open", body: `{"url":"https://x.com"}`, checker: &fakeSafety{err: safety.ErrNoAPIKey}, wantStatus: http.StatusServiceUnavailable},
		{name: "no checker", body: `{"url":"https://x.com"}`, checker: nil, wantStatus: http.StatusServiceUnavailable},
		{
			name:       "unsafe",
			body:       `{"url":"https://x.com"}`,
			checker:    &fakeSafety{result: &models.SafetyResult{IsSafe: false, Threats: []string{"MALWARE"}}},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(Deps{Auditor: &fakeAuditor{}, Safety: tt.checker})
			rec, body := do(t, h, http.MethodPost, "/safety", tt.body)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if body["isSafe"] != false {
					t.Errorf("isSafe = %v, want false", body["isSafe"])
				}
				if threats, _ := body["threats"].([]any); len(threats) != 1 || threats[0] != "MALWARE" {
					t.Errorf("threats = %v, want [MALWARE]", body["threats"])
				}
			}
		})
	}
}

func TestHistory(t *testing.T) {
	hist := &fakeHistory{records: []db.AuditRecord{{AuditID: "a1", URL: "https://example.com"}}}
	h := newTestServer(Deps{Auditor: &fakeAuditor{}, History: hist})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history?url=example.com&limit=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if hist.gotURL != "https://example.com" || hist.gotLimit != 5 {
		t.Errorf("ListAudits(%q, %d), want (https://example.com, 5)", hist.gotURL, hist.gotLimit)
	}
	var records []db.AuditRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &records); err != nil || len(records) != 1 || records[0].AuditID != "a1" {
		t.Errorf("body = %s, want one record", rec.Body.String())
	}

	if rec, _ := do(t, h, http.MethodGet, "/history?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}

	disabled := newTestServer(Deps{Auditor: &fakeAuditor{}})
	if rec, _ := do(t, disabled, http.MethodGet, "/history", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled history status = %d, want 503", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(Deps{Auditor: &fakeAuditor{}, Metrics: metrics.New()})

	if rec, body := do(t, h, http.MethodGet, "/health", ""); rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Errorf("/health = %d %v", rec.Code, body)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `web_audit_http_requests_total{endpoint="/health"`) {
		t.Errorf("/metrics missing health request counter:\n%s", rec.Body.String())
	}
}
