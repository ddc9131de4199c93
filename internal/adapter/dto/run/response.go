package run

import "time"

// StageSummary is one stage of a stored run, without its result payload
type StageSummary struct {
	Stage      string `json:"stage"`
	Success    bool   `json:"success"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// RunResponse represents a stored pipeline run in history listings
type RunResponse struct {
	ID         string         `json:"id"`
	Trigger    string         `json:"trigger"`
	Status     string         `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	DurationMs int64          `json:"duration_ms"`
	Failed     []string       `json:"failed_stages,omitempty"`
	Stages     []StageSummary `json:"stages"`
}

// ArchiveListResponse lists archived run report objects
type ArchiveListResponse struct {
	Prefix  string   `json:"prefix"`
	Count   int      `json:"count"`
	Objects []string `json:"objects"`
}
