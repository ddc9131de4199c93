package pipeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/internal/domain/repositories"
)

// ItemError records a failure for one call or analysis
type ItemError struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id,omitempty"`
	Message    string `json:"message"`
}

// Window is an inclusive time range
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// SDREnrichResult is the per-rep accounting of an enrichment run
type SDREnrichResult struct {
	SDRID      uuid.UUID `json:"sdr_id"`
	SDRName    string    `json:"sdr_name"`
	CallsFound int       `json:"calls_found"`
	Inserted   int       `json:"inserted"`
	Merged     int       `json:"merged"`
	Unchanged  int       `json:"unchanged"`
	Errors     []string  `json:"errors"`
}

func (r *SDREnrichResult) count(outcome repositories.UpsertOutcome) {
	switch outcome {
	case repositories.UpsertInserted:
		r.Inserted++
	case repositories.UpsertMerged:
		r.Merged++
	default:
		r.Unchanged++
	}
}

// EnrichTotals sums the per-rep counters
type EnrichTotals struct {
	CallsFound int `json:"calls_found"`
	Inserted   int `json:"inserted"`
	Merged     int `json:"merged"`
	Unchanged  int `json:"unchanged"`
	Errors     int `json:"errors"`
}

// EnrichResult is returned by the enrichment stage
type EnrichResult struct {
	LookbackDays int               `json:"lookback_days"`
	Window       Window            `json:"window"`
	SDRs         []SDREnrichResult `json:"sdrs"`
	Totals       EnrichTotals      `json:"totals"`
}

func (r *EnrichResult) tally() {
	r.Totals = EnrichTotals{}
	for _, s := range r.SDRs {
		r.Totals.CallsFound += s.CallsFound
		r.Totals.Inserted += s.Inserted
		r.Totals.Merged += s.Merged
		r.Totals.Unchanged += s.Unchanged
		r.Totals.Errors += len(s.Errors)
	}
}

// TranscribeResult is returned by the transcription stage
type TranscribeResult struct {
	Selected     int         `json:"selected"`
	Transcribed  int         `json:"transcribed"`
	SkippedShort int         `json:"skipped_short"`
	Failed       int         `json:"failed"`
	Errors       []ItemError `json:"errors"`
}

// ScoreResult is returned by the scoring stage
type ScoreResult struct {
	Selected        int         `json:"selected"`
	Scored          int         `json:"scored"`
	SkippedExisting int         `json:"skipped_existing"`
	Failed          int         `json:"failed"`
	Errors          []ItemError `json:"errors"`
}

// SDRAggregateResult is the per-rep accounting of an aggregation run
type SDRAggregateResult struct {
	SDRID          uuid.UUID `json:"sdr_id"`
	SDRName        string    `json:"sdr_name"`
	TotalDials     int       `json:"total_dials"`
	ConnectedCalls int       `json:"connected_calls"`
	ConnectionRate float64   `json:"connection_rate"`
	StatsWritten   bool      `json:"stats_written"`
	FocusWritten   bool      `json:"focus_written"`
	WeeklyWritten  bool      `json:"weekly_written"`
	Errors         []string  `json:"errors"`
}

// AggregateResult is returned by the aggregation stage
type AggregateResult struct {
	Date      string               `json:"date"`
	WeeklyRan bool                 `json:"weekly_ran"`
	ISOYear   int                  `json:"iso_year"`
	ISOWeek   int                  `json:"iso_week"`
	SDRs      []SDRAggregateResult `json:"sdrs"`
}

// StageReport is one stage's slot in an orchestrated run
type StageReport struct {
	Stage      string      `json:"stage"`
	Success    bool        `json:"success"`
	DurationMs int64       `json:"duration_ms"`
	Error      string      `json:"error,omitempty"`
	Result     interface{} `json:"result,omitempty"`
}

// RunResult is returned by the orchestrator
type RunResult struct {
	RunID        uuid.UUID                  `json:"run_id"`
	Trigger      string                     `json:"trigger"`
	StartedAt    time.Time                  `json:"started_at"`
	FinishedAt   time.Time                  `json:"finished_at"`
	DurationMs   int64                      `json:"duration_ms"`
	AllSucceeded bool                       `json:"all_succeeded"`
	Status       entities.PipelineRunStatus `json:"status"`
	Stages       []StageReport              `json:"stages"`
}

// RepairResult is returned by the breakdown repair job
type RepairResult struct {
	ISOYear       int         `json:"iso_year"`
	ISOWeek       int         `json:"iso_week"`
	Checked       int         `json:"checked"`
	NeedingRepair int         `json:"needing_repair"`
	Repaired      int         `json:"repaired"`
	Failed        int         `json:"failed"`
	Errors        []ItemError `json:"errors"`
}

// IngestResult is returned for one webhook call
type IngestResult struct {
	ExternalID string                     `json:"external_id"`
	SDRID      uuid.UUID                  `json:"sdr_id"`
	Upsert     repositories.UpsertOutcome `json:"upsert"`
	Outcome    *entities.Outcome          `json:"outcome,omitempty"`
	DurationMs *int64                     `json:"duration_ms,omitempty"`
	CallDate   string                     `json:"call_date"`
}
