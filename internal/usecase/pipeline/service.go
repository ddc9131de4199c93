// Package pipeline implements the call-processing stages (enrich, transcribe,
// score, aggregate), the orchestrator that chains them, the breakdown repair
// job and webhook ingestion.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/internal/domain/repositories"
	"github.com/johnquangdev/call-coach/pkg/ai"
	"github.com/johnquangdev/call-coach/pkg/config"
	"github.com/johnquangdev/call-coach/pkg/hubspot"
)

// Stage names, also used as lock names and in run reports
const (
	StageEnrich     = "enrich"
	StageTranscribe = "transcribe"
	StageScore      = "score"
	StageAggregate  = "aggregate"
	StagePipeline   = "pipeline"
	StageRepair     = "repair_breakdown"
)

var (
	ErrCRMNotConfigured         = errors.New("crm access token is not configured")
	ErrTranscriberNotConfigured = errors.New("transcription service is not configured")
	ErrLLMNotConfigured         = errors.New("llm provider is not configured")
	ErrStageBusy                = errors.New("stage is already running")
	ErrInvalidWeek              = errors.New("invalid iso week")
	ErrLockUnavailable          = errors.New("stage lock backend unavailable")
)

// StoreError marks a call store failure that aborted a whole operation.
// Per-item write failures are recorded on the stage result instead.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeError(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// Service defines the pipeline operations exposed to handlers and the CLI
type Service interface {
	Enrich(ctx context.Context, lookbackDays int) (*EnrichResult, error)
	Transcribe(ctx context.Context) (*TranscribeResult, error)
	Score(ctx context.Context) (*ScoreResult, error)
	// Aggregate targets date; the zero time means yesterday (UTC)
	Aggregate(ctx context.Context, date time.Time) (*AggregateResult, error)
	RunPipeline(ctx context.Context, trigger string) (*RunResult, error)
	RepairBreakdowns(ctx context.Context, isoYear, isoWeek int) (*RepairResult, error)
	IngestCall(ctx context.Context, in CallIngest) (*IngestResult, error)
	MonthlyBenchmark(ctx context.Context, year, month int) (*entities.MonthlyBenchmark, error)
	RecentRuns(ctx context.Context, limit int) ([]*entities.PipelineRun, error)
}

// CRMClient is the subset of the CRM API the enrichment stage reads
type CRMClient interface {
	SearchCalls(ctx context.Context, q hubspot.CallSearch) (*hubspot.CallPage, error)
	CallAssociations(ctx context.Context, to hubspot.ObjectType, callIDs []string) (map[string][]string, error)
	ContactNames(ctx context.Context, ids []string) (map[string]string, error)
	CompanyNames(ctx context.Context, ids []string) (map[string]string, error)
}

// NameCache memoizes CRM display names across pages and runs
type NameCache interface {
	GetMany(namespace string, ids []string) (map[string]string, []string)
	SetMany(namespace string, names map[string]string)
}

// StageLocker grants advisory per-stage locks. ok is false when the lock is held elsewhere.
type StageLocker interface {
	TryLock(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// RunArchiver stores a copy of each orchestrated run report
type RunArchiver interface {
	ArchiveRun(ctx context.Context, run *entities.PipelineRun, report interface{}) (string, error)
}

// Deps are the collaborators of the pipeline. External clients may be nil; a
// stage that needs a missing client fails with its not-configured error.
type Deps struct {
	Calls      repositories.CallRepository
	Analyses   repositories.AnalysisRepository
	Aggregates repositories.AggregateRepository
	SDRs       repositories.SDRRepository
	Runs       repositories.PipelineRunRepository

	CRM         CRMClient
	Transcriber ai.Transcriber
	LLM         ai.Completer

	Names    NameCache
	Locker   StageLocker
	Archiver RunArchiver

	Now    func() time.Time
	Logger *zap.Logger
}

// Options are the per-deployment tunables. The batch limits bound the cost of one run.
type Options struct {
	LookbackDays          int
	TranscribeLimit       int
	ScoreLimit            int
	RepairLimit           int
	CRMPageSize           int
	MinTranscribeDuration time.Duration
	StageTimeout          time.Duration
	Temperature           float64
	MaxTokens             int
}

// DefaultOptions mirrors the config defaults
func DefaultOptions() Options {
	return Options{
		LookbackDays:          2,
		TranscribeLimit:       10,
		ScoreLimit:            10,
		RepairLimit:           25,
		CRMPageSize:           200,
		MinTranscribeDuration: 30 * time.Second,
		StageTimeout:          120 * time.Second,
		Temperature:           0.2,
		MaxTokens:             4000,
	}
}

// OptionsFromConfig reads the pipeline tunables from config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		LookbackDays:          cfg.Pipeline.LookbackDays,
		TranscribeLimit:       cfg.Pipeline.TranscribeBatchLimit,
		ScoreLimit:            cfg.Pipeline.ScoreBatchLimit,
		RepairLimit:           cfg.Pipeline.RepairBatchLimit,
		CRMPageSize:           cfg.Pipeline.CRMPageSize,
		MinTranscribeDuration: cfg.Pipeline.MinTranscribeDuration,
		StageTimeout:          cfg.Pipeline.StageTimeout,
		Temperature:           cfg.LLM.Temperature,
		MaxTokens:             cfg.LLM.MaxTokens,
	}
}

type pipelineService struct {
	calls      repositories.CallRepository
	analyses   repositories.AnalysisRepository
	aggregates repositories.AggregateRepository
	sdrs       repositories.SDRRepository
	runs       repositories.PipelineRunRepository

	crm         CRMClient
	transcriber ai.Transcriber
	llm         ai.Completer

	names    NameCache
	locker   StageLocker
	archiver RunArchiver

	opts   Options
	now    func() time.Time
	logger *zap.Logger
}

// NewPipelineService constructs the pipeline service
func NewPipelineService(deps Deps, opts Options) Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	locker := deps.Locker
	if locker == nil {
		locker = noopLocker{}
	}

	def := DefaultOptions()
	if opts.TranscribeLimit <= 0 {
		opts.TranscribeLimit = def.TranscribeLimit
	}
	if opts.ScoreLimit <= 0 {
		opts.ScoreLimit = def.ScoreLimit
	}
	if opts.RepairLimit <= 0 {
		opts.RepairLimit = def.RepairLimit
	}
	if opts.CRMPageSize <= 0 {
		opts.CRMPageSize = def.CRMPageSize
	}
	if opts.StageTimeout <= 0 {
		opts.StageTimeout = def.StageTimeout
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = def.MaxTokens
	}

	return &pipelineService{
		calls:       deps.Calls,
		analyses:    deps.Analyses,
		aggregates:  deps.Aggregates,
		sdrs:        deps.SDRs,
		runs:        deps.Runs,
		crm:         deps.CRM,
		transcriber: deps.Transcriber,
		llm:         deps.LLM,
		names:       deps.Names,
		locker:      locker,
		archiver:    deps.Archiver,
		opts:        opts,
		now:         now,
		logger:      logger,
	}
}

// MonthlyBenchmark returns the team comparator row for a month
func (s *pipelineService) MonthlyBenchmark(ctx context.Context, year, month int) (*entities.MonthlyBenchmark, error) {
	b, err := s.aggregates.GetMonthlyBenchmark(ctx, year, month)
	if err != nil {
		return nil, storeError("load monthly benchmark", err)
	}
	return b, nil
}

// RecentRuns lists orchestrated runs, newest first
func (s *pipelineService) RecentRuns(ctx context.Context, limit int) ([]*entities.PipelineRun, error) {
	if s.runs == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.runs.ListRecentRuns(ctx, limit)
	if err != nil {
		return nil, storeError("list pipeline runs", err)
	}
	return runs, nil
}
