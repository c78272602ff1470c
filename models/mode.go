package models

import "fmt"

// Mode selects the audit depth.
type Mode string

const (
	ModeFast Mode = "fast" // homepage only, low latency
	ModeDeep Mode = "deep" // multi-page, full strategic report
)

// ParseMode resolves a request mode. An empty string defaults to deep.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeDeep, nil
	case ModeFast, ModeDeep:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q (want fast or deep)", s)
}

// AnalysisMode records which path produced a report.
type AnalysisMode string

const (
	AnalysisAI            AnalysisMode = "ai"
	AnalysisDeterministic AnalysisMode = "deterministic"
)

// StageStatus is the outcome of one pipeline collaborator.
type StageStatus string

const (
	StageOK       StageStatus = "ok"
	StageDegraded StageStatus = "degraded"
	StageFailed   StageStatus = "failed"
	StageSkipped  StageStatus = "skipped"
)

// StageResult is reported per data source in the report meta.
type StageResult struct {
	Status StageStatus `json:"status" yaml:"status"`
	Detail string      `json:"detail" yaml:"detail"`
}
