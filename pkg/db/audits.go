package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dtnitsch/web-audit/models"
)

// DefaultListLimit caps ListAudits when the caller passes no limit.
const DefaultListLimit = 20

// AuditRecord is one row of audit history.
type AuditRecord struct {
	AuditID          string              `json:"auditId" yaml:"audit_id"`
	URL              string              `json:"url" yaml:"url"`
	Mode             models.Mode         `json:"mode" yaml:"mode"`
	AnalysisMode     models.AnalysisMode `json:"analysisMode" yaml:"analysis_mode"`
	VibeScore        float64             `json:"vibeScore" yaml:"vibe_score"`
	PageCount        int                 `json:"pageCount" yaml:"page_count"`
	PerformanceScore *int                `json:"performanceScore,omitempty" yaml:"performance_score,omitempty"`
	LLMStatus        models.StageStatus  `json:"llmStatus,omitempty" yaml:"llm_status,omitempty"`
	CreatedAt        time.Time           `json:"createdAt" yaml:"created_at"`
}

// RecordFromReport flattens a report into a history row.
func RecordFromReport(r *models.AuditReport) AuditRecord {
	rec := AuditRecord{
		AuditID:      r.Meta.AuditID,
		URL:          r.Meta.URL,
		Mode:         r.Type,
		AnalysisMode: r.AnalysisMode,
		VibeScore:    r.CoreSignals.VibeScore.Score,
		PageCount:    len(r.ScannedPages),
		LLMStatus:    r.Meta.DataSources.LLM.Status,
		CreatedAt:    r.Meta.ScanTimestamp,
	}
	if r.Meta.Performance != nil {
		score := r.Meta.Performance.LighthouseScore
		rec.PerformanceScore = &score
	}
	return rec
}

// RecordAudit inserts one audit row. Re-recording an audit id replaces it.
func (db *DB) RecordAudit(rec AuditRecord) error {
	if rec.AuditID == "" {
		return fmt.Errorf("failed to record audit: missing audit id")
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	var perf sql.NullInt64
	if rec.PerformanceScore != nil {
		perf = sql.NullInt64{Int64: int64(*rec.PerformanceScore), Valid: true}
	}

	_, err := db.Exec(`
		INSERT OR REPLACE INTO audits
			(audit_id, url, mode, analysis_mode, vibe_score, page_count, performance_score, llm_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.AuditID, rec.URL, string(rec.Mode), string(rec.AnalysisMode), rec.VibeScore,
		rec.PageCount, perf, string(rec.LLMStatus), createdAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record audit %s: %w", rec.AuditID, err)
	}
	return nil
}

// ListAudits returns the newest audits first. An empty url lists all sites.
func (db *DB) ListAudits(url string, limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `
		SELECT audit_id, url, mode, analysis_mode, vibe_score, page_count, performance_score, llm_status, created_at
		FROM audits`
	args := []any{}
	if url != "" {
		query += " WHERE url = ?"
		args = append(args, url)
	}
	query += " ORDER BY created_at DESC, audit_id LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list audits: %w", err)
	}
	defer rows.Close()

	records := []AuditRecord{}
	for rows.Next() {
		var (
			rec       AuditRecord
			mode      string
			analysis  string
			perf      sql.NullInt64
			llmStatus sql.NullString
		)
		if err := rows.Scan(&rec.AuditID, &rec.URL, &mode, &analysis, &rec.VibeScore,
			&rec.PageCount, &perf, &llmStatus, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit: %w", err)
		}
		rec.Mode = models.Mode(mode)
		rec.AnalysisMode = models.AnalysisMode(analysis)
		rec.LLMStatus = models.StageStatus(llmStatus.String)
		if perf.Valid {
			score := int(perf.Int64)
			rec.PerformanceScore = &score
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audits: %w", err)
	}
	return records, nil
}
