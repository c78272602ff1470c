package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dtnitsch/web-audit/models"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Use in-memory database for tests
	database := &DB{path: MemoryPath}
	var err error
	database.DB, err = openDB(MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := database.InitSchema(); err != nil {
		t.Fatalf("failed to initialize schema: %v", err)
	}

	return database
}

func TestOpenCreatesSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if err := db.RecordAudit(AuditRecord{AuditID: "a1", URL: "https://example.com", Mode: models.ModeFast}); err != nil {
		t.Fatalf("RecordAudit() error = %v", err)
	}
	db.Close()

	// Reopening must keep existing rows
	db, err = Open(path)
	if err != nil {
		t.Fatalf("Open() second time error = %v", err)
	}
	defer db.Close()

	records, err := db.ListAudits("", 0)
	if err != nil {
		t.Fatalf("ListAudits() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("len(records) = %d, want 1", len(records))
	}
}

func TestOpenEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("Open(\"\") error = nil, want error")
	}
}

func TestRecordFromReport(t *testing.T) {
	ts := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	report := &models.AuditReport{
		Meta: models.ReportMeta{
			AuditID:       "abc",
			URL:           "https://example.com",
			ScanTimestamp: ts,
			Performance:   &models.PerformanceMetrics{LighthouseScore: 71},
			DataSources:   models.DataSources{LLM: models.StageResult{Status: models.StageOK}},
		},
		Type:         models.ModeDeep,
		AnalysisMode: models.AnalysisAI,
		ScannedPages: []string{"https://example.com", "https://example.com/about"},
		CoreSignals:  models.CoreSignals{VibeScore: models.VibeScore{Score: 65}},
	}

	rec := RecordFromReport(report)
	if rec.AuditID != "abc" || rec.URL != "https://example.com" {
		t.Errorf("record identity = %q %q", rec.AuditID, rec.URL)
	}
	if rec.PageCount != 2 {
		t.Errorf("PageCount = %d, want 2", rec.PageCount)
	}
	if rec.PerformanceScore == nil || *rec.PerformanceScore != 71 {
		t.Errorf("PerformanceScore = %v, want 71", rec.PerformanceScore)
	}
	if rec.LLMStatus != models.StageOK {
		t.Errorf("LLMStatus = %q, want %q", rec.LLMStatus, models.StageOK)
	}
	if !rec.CreatedAt.Equal(ts) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, ts)
	}

	report.Meta.Performance = nil
	if rec := RecordFromReport(report); rec.PerformanceScore != nil {
		t.Errorf("PerformanceScore = %v, want nil", *rec.PerformanceScore)
	}
}

func TestRecordAndListAudits(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	perf := 88
	records := []AuditRecord{
		{AuditID: "a1", URL: "https://a.com", Mode: models.ModeFast, AnalysisMode: models.AnalysisDeterministic, VibeScore: 50, PageCount: 1, CreatedAt: base},
		{AuditID: "a2", URL: "https://a.com", Mode: models.ModeDeep, AnalysisMode: models.AnalysisAI, VibeScore: 70, PageCount: 4, PerformanceScore: &perf, LLMStatus: models.StageOK, CreatedAt: base.Add(time.Hour)},
		{AuditID: "b1", URL: "https://b.com", Mode: models.ModeFast, AnalysisMode: models.AnalysisDeterministic, VibeScore: 40, PageCount: 1, CreatedAt: base.Add(2 * time.Hour)},
	}
	for _, rec := range records {
		if err := db.RecordAudit(rec); err != nil {
			t.Fatalf("RecordAudit(%s) error = %v", rec.AuditID, err)
		}
	}

	tests := []struct {
		name    string
		url     string
		limit   int
		wantIDs []string
	}{
		{name: "all sites newest first", url: "", limit: 0, wantIDs: []string{"b1", "a2", "a1"}},
		{name: "filtered by url", url: "https://a.com", limit: 10, wantIDs: []string{"a2", "a1"}},
		{name: "limited", url: "", limit: 1, wantIDs: []string{"b1"}},
		{name: "unknown url", url: "https://c.com", limit: 10, wantIDs: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := db.ListAudits(tt.url, tt.limit)
			if err != nil {
				t.Fatalf("ListAudits() error = %v", err)
			}
			if got == nil {
				t.Fatal("ListAudits() = nil, want empty slice")
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("len(ListAudits()) = %d, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].AuditID != id {
					t.Errorf("ListAudits()[%d].AuditID = %q, want %q", i, got[i].AuditID, id)
				}
			}
		})
	}

	got, _ := db.ListAudits("https://a.com", 1)
	if got[0].PerformanceScore == nil || *got[0].PerformanceScore != 88 {
		t.Errorf("PerformanceScore = %v, want 88", got[0].PerformanceScore)
	}
	if got[0].Mode != models.ModeDeep || got[0].AnalysisMode != models.AnalysisAI {
		t.Errorf("modes = %q/%q, want deep/ai", got[0].Mode, got[0].AnalysisMode)
	}
	if got[0].PageCount != 4 || got[0].VibeScore != 70 {
		t.Errorf("PageCount, VibeScore = %d, %v, want 4, 70", got[0].PageCount, got[0].VibeScore)
	}
}

func TestRecordAuditRequiresID(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	if err := db.RecordAudit(AuditRecord{URL: "https://a.com"}); err == nil {
		t.Error("RecordAudit() without id error = nil, want error")
	}
}

func TestRecordAuditReplaces(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()

	rec := AuditRecord{AuditID: "a1", URL: "https://a.com", Mode: models.ModeFast, VibeScore: 10}
	if err := db.RecordAudit(rec); err != nil {
		t.Fatal(err)
	}
	rec.VibeScore = 90
	if err := db.RecordAudit(rec); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListAudits("", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].VibeScore != 90 {
		t.Errorf("ListAudits() = %+v, want one row with score 90", got)
	}
}
