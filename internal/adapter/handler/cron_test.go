package handler

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/internal/domain/repositories"
	"github.com/johnquangdev/call-coach/internal/usecase/pipeline"
	"github.com/johnquangdev/call-coach/pkg/config"
	pkgvalidator "github.com/johnquangdev/call-coach/pkg/validator"
)

const (
	testCronSecret    = "cron-s3cret"
	testWebhookSecret = "hook-s3cret"
)

// fakeService implements pipeline.Service with overridable funcs
type fakeService struct {
	EnrichFunc     func(ctx context.Context, days int) (*pipeline.EnrichResult, error)
	TranscribeFunc func(ctx context.Context) (*pipeline.TranscribeResult, error)
	ScoreFunc      func(ctx context.Context) (*pipeline.ScoreResult, error)
	AggregateFunc  func(ctx context.Context, date time.Time) (*pipeline.AggregateResult, error)
	RunFunc        func(ctx context.Context, trigger string) (*pipeline.RunResult, error)
	RepairFunc     func(ctx context.Context, year, week int) (*pipeline.RepairResult, error)
	IngestFunc     func(ctx context.Context, in pipeline.CallIngest) (*pipeline.IngestResult, error)
	BenchmarkFunc  func(ctx context.Context, year, month int) (*entities.MonthlyBenchmark, error)
	RunsFunc       func(ctx context.Context, limit int) ([]*entities.PipelineRun, error)
}

func (f *fakeService) Enrich(ctx context.Context, days int) (*pipeline.EnrichResult, error) {
	if f.EnrichFunc != nil {
		return f.EnrichFunc(ctx, days)
	}
	return &pipeline.EnrichResult{LookbackDays: days}, nil
}

func (f *fakeService) Transcribe(ctx context.Context) (*pipeline.TranscribeResult, error) {
	if f.TranscribeFunc != nil {
		return f.TranscribeFunc(ctx)
	}
	return &pipeline.TranscribeResult{}, nil
}

func (f *fakeService) Score(ctx context.Context) (*pipeline.ScoreResult, error) {
	if f.ScoreFunc != nil {
		return f.ScoreFunc(ctx)
	}
	return &pipeline.ScoreResult{}, nil
}

func (f *fakeService) Aggregate(ctx context.Context, date time.Time) (*pipeline.AggregateResult, error) {
	if f.AggregateFunc != nil {
		return f.AggregateFunc(ctx, date)
	}
	return &pipeline.AggregateResult{}, nil
}

func (f *fakeService) RunPipeline(ctx context.Context, trigger string) (*pipeline.RunResult, error) {
	if f.RunFunc != nil {
		return f.RunFunc(ctx, trigger)
	}
	return &pipeline.RunResult{Trigger: trigger, AllSucceeded: true, Status: entities.PipelineRunSuccess}, nil
}

func (f *fakeService) RepairBreakdowns(ctx context.Context, year, week int) (*pipeline.RepairResult, error) {
	if f.RepairFunc != nil {
		return f.RepairFunc(ctx, year, week)
	}
	return &pipeline.RepairResult{ISOYear: year, ISOWeek: week}, nil
}

func (f *fakeService) IngestCall(ctx context.Context, in pipeline.CallIngest) (*pipeline.IngestResult, error) {
	if f.IngestFunc != nil {
		return f.IngestFunc(ctx, in)
	}
	return &pipeline.IngestResult{ExternalID: in.ExternalID, Upsert: repositories.UpsertInserted}, nil
}

func (f *fakeService) MonthlyBenchmark(ctx context.Context, year, month int) (*entities.MonthlyBenchmark, error) {
	if f.BenchmarkFunc != nil {
		return f.BenchmarkFunc(ctx, year, month)
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeService) RecentRuns(ctx context.Context, limit int) ([]*entities.PipelineRun, error) {
	if f.RunsFunc != nil {
		return f.RunsFunc(ctx, limit)
	}
	return nil, nil
}

type testServer struct {
	e   *echo.Echo
	cfg *config.Config
}

type fakeLister struct {
	prefixes []string
	objects  []string
}

func (f *fakeLister) ListRuns(_ context.Context, prefix string) ([]string, error) {
	f.prefixes = append(f.prefixes, prefix)
	return f.objects, nil
}

func newTestServer(svc pipeline.Service, mutate ...func(*config.Config)) *testServer {
	return newTestServerWithArchive(svc, nil, mutate...)
}

func newTestServerWithArchive(svc pipeline.Service, lister RunLister, mutate ...func(*config.Config)) *testServer {
	cfg := &config.Config{
		Server:  config.ServerConfig{Environment: "test"},
		Secrets: config.SecretsConfig{CronSecret: testCronSecret, WebhookSecret: testWebhookSecret},
	}
	for _, m := range mutate {
		m(cfg)
	}

	e := echo.New()
	e.Validator = pkgvalidator.New()
	e.HTTPErrorHandler = ErrorHandler(nil)

	cron := NewCron(svc, nil)
	cron.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	NewRouter(cfg, cron, NewCallWebhook(svc, nil), NewArchive(lister, nil), nil).Setup(e)
	return &testServer{e: e, cfg: cfg}
}

func (s *testServer) do(method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) cron(method, target string) *httptest.ResponseRecorder {
	return s.do(method, target, nil, map[string]string{echo.HeaderAuthorization: "Bearer " + testCronSecret})
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestCron_RejectsMissingOrWrongSecret(t *testing.T) {
	s := newTestServer(&fakeService{})

	rec := s.do(http.MethodPost, "/v1/cron/score", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHENTICATED", decodeBody(t, rec)["code"])

	rec = s.do(http.MethodPost, "/v1/cron/score", nil, map[string]string{"X-Cron-Secret": "guess"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCron_AcceptsEverySecretCarrier(t *testing.T) {
	s := newTestServer(&fakeService{})

	cases := []struct {
		name    string
		target  string
		headers map[string]string
	}{
		{"bearer", "/v1/cron/score", map[string]string{echo.HeaderAuthorization: "Bearer " + testCronSecret}},
		{"header", "/v1/cron/score", map[string]string{"X-Cron-Secret": testCronSecret}},
		{"query", "/v1/cron/score?secret=" + testCronSecret, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodGet, tc.target, nil, tc.headers)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestCron_MissingServerSecretIsMisconfigured(t *testing.T) {
	s := newTestServer(&fakeService{}, func(c *config.Config) { c.Secrets.CronSecret = "" })

	rec := s.do(http.MethodPost, "/v1/cron/score", nil, map[string]string{"X-Cron-Secret": "anything"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "MISCONFIGURED", body["code"])
	assert.Equal(t, "CRON_SECRET", body["details"].(map[string]interface{})["setting"])
}

func TestCron_EnrichDays(t *testing.T) {
	var got int
	s := newTestServer(&fakeService{EnrichFunc: func(_ context.Context, days int) (*pipeline.EnrichResult, error) {
		got = days
		return &pipeline.EnrichResult{LookbackDays: days}, nil
	}})

	rec := s.cron(http.MethodPost, "/v1/cron/enrich?days=7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, got)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, 7.0, data["lookback_days"])

	rec = s.cron(http.MethodPost, "/v1/cron/enrich?days=lots")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.cron(http.MethodPost, "/v1/cron/enrich?days=90")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCron_AggregateDate(t *testing.T) {
	var got time.Time
	s := newTestServer(&fakeService{AggregateFunc: func(_ context.Context, date time.Time) (*pipeline.AggregateResult, error) {
		got = date
		return &pipeline.AggregateResult{Date: date.Format(time.DateOnly)}, nil
	}})

	rec := s.cron(http.MethodGet, "/v1/cron/aggregate")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, got.IsZero())

	rec = s.cron(http.MethodGet, "/v1/cron/aggregate?date=2026-10-14")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC), got)

	rec = s.cron(http.MethodGet, "/v1/cron/aggregate?date=14/10/2026")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCron_PipelineStatusReflectsPartialRuns(t *testing.T) {
	runID := uuid.New()
	allOK := true
	s := newTestServer(&fakeService{RunFunc: func(_ context.Context, trigger string) (*pipeline.RunResult, error) {
		res := &pipeline.RunResult{RunID: runID, Trigger: trigger, AllSucceeded: allOK, Status: entities.PipelineRunSuccess}
		if !allOK {
			res.Status = entities.PipelineRunPartial
			res.Stages = []pipeline.StageReport{{Stage: pipeline.StageEnrich, Error: "crm down"}}
		}
		return res, nil
	}})

	rec := s.cron(http.MethodPost, "/v1/cron/pipeline")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, "cron", data["trigger"])

	allOK = false
	rec = s.cron(http.MethodPost, "/v1/cron/pipeline")
	require.Equal(t, http.StatusMultiStatus, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "PIPELINE_PARTIAL", body["code"])
	assert.Equal(t, false, body["data"].(map[string]interface{})["all_succeeded"])
}

func TestCron_StageErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"busy", pipeline.ErrStageBusy, http.StatusConflict, "STAGE_BUSY"},
		{"no llm", pipeline.ErrLLMNotConfigured, http.StatusInternalServerError, "MISCONFIGURED"},
		{"wrapped crm", fmt.Errorf("enrich: %w", pipeline.ErrCRMNotConfigured), http.StatusInternalServerError, "MISCONFIGURED"},
		{"other", fmt.Errorf("database went away"), http.StatusInternalServerError, "STAGE_FAILED"},
		{"store query", &pipeline.StoreError{Op: "select calls", Err: fmt.Errorf("syntax error")},
			http.StatusInternalServerError, "DB_QUERY_FAILED"},
		{"store connection", &pipeline.StoreError{Op: "select calls", Err: &net.OpError{Op: "dial", Err: fmt.Errorf("connection refused")}},
			http.StatusServiceUnavailable, "DB_CONNECTION_FAILED"},
		{"store bad conn", &pipeline.StoreError{Op: "select calls", Err: fmt.Errorf("exec: %w", driver.ErrBadConn)},
			http.StatusServiceUnavailable, "DB_CONNECTION_FAILED"},
		{"lock backend down", fmt.Errorf("%w: score: %w", pipeline.ErrLockUnavailable, fmt.Errorf("dial tcp: i/o timeout")),
			http.StatusServiceUnavailable, "LOCK_FAILED"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(&fakeService{ScoreFunc: func(context.Context) (*pipeline.ScoreResult, error) {
				return nil, tc.err
			}})
			rec := s.cron(http.MethodPost, "/v1/cron/score")
			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tc.code, body["code"])
			assert.NotContains(t, rec.Body.String(), "goroutine")
		})
	}
}

func TestCron_StoreErrorDetails(t *testing.T) {
	s := newTestServer(&fakeService{ScoreFunc: func(context.Context) (*pipeline.ScoreResult, error) {
		return nil, &pipeline.StoreError{Op: "check existing analyses", Err: fmt.Errorf("relation does not exist")}
	}})

	rec := s.cron(http.MethodPost, "/v1/cron/score")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	details, ok := body["details"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "check existing analyses", details["operation"])
	assert.Contains(t, body["info"], "relation does not exist")
}

func TestCron_UntypedErrorIsInternal(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	require.NoError(t, HandleError(nil, e.NewContext(req, rec), fmt.Errorf("boom")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "INTERNAL", body["code"])
	assert.Equal(t, "boom", body["info"])
}

func TestCron_RepairDefaultsToLastCompleteWeek(t *testing.T) {
	var year, week int
	s := newTestServer(&fakeService{RepairFunc: func(_ context.Context, y, w int) (*pipeline.RepairResult, error) {
		year, week = y, w
		return &pipeline.RepairResult{ISOYear: y, ISOWeek: w}, nil
	}})

	// Monday 2026-10-19 is in week 43, so the default is week 42
	rec := s.cron(http.MethodPost, "/v1/cron/repair/breakdown")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 42, week)

	rec = s.cron(http.MethodPost, "/v1/cron/repair/breakdown?year=2025&week=7")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2025, year)
	assert.Equal(t, 7, week)

	rec = s.cron(http.MethodPost, "/v1/cron/repair/breakdown?week=forty")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCron_RepairInvalidWeek(t *testing.T) {
	s := newTestServer(&fakeService{RepairFunc: func(_ context.Context, y, w int) (*pipeline.RepairResult, error) {
		return nil, fmt.Errorf("%w: %d-W%02d", pipeline.ErrInvalidWeek, y, w)
	}})

	rec := s.cron(http.MethodPost, "/v1/cron/repair/breakdown?year=2021&week=53")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_ARGUMENT", decodeBody(t, rec)["code"])
}

func TestCron_Benchmark(t *testing.T) {
	s := newTestServer(&fakeService{BenchmarkFunc: func(_ context.Context, year, month int) (*entities.MonthlyBenchmark, error) {
		if month != 9 {
			return nil, repositories.ErrNotFound
		}
		return &entities.MonthlyBenchmark{Year: year, Month: month}, nil
	}})

	rec := s.cron(http.MethodGet, "/v1/cron/benchmarks/2026/9")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.cron(http.MethodGet, "/v1/cron/benchmarks/2026/8")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.cron(http.MethodGet, "/v1/cron/benchmarks/2026/13")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_HealthAndUnknownRoutes(t *testing.T) {
	s := newTestServer(&fakeService{})

	rec := s.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "test", decodeBody(t, rec)["environment"])

	rec = s.do(http.MethodGet, "/v1/nothing-here", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeBody(t, rec)["code"])
}

func TestCron_RunsArePresentedWithoutStageResults(t *testing.T) {
	stages := []pipeline.StageReport{
		{Stage: pipeline.StageEnrich, Success: false, Error: "crm down"},
		{Stage: pipeline.StageScore, Success: true, Result: &pipeline.ScoreResult{Scored: 3}},
	}
	raw, err := json.Marshal(stages)
	require.NoError(t, err)

	var limit int
	s := newTestServer(&fakeService{RunsFunc: func(_ context.Context, n int) ([]*entities.PipelineRun, error) {
		limit = n
		return []*entities.PipelineRun{{ID: uuid.New(), Trigger: "cron", Status: entities.PipelineRunPartial, Stages: raw}}, nil
	}})

	rec := s.cron(http.MethodGet, "/v1/cron/runs?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, limit)
	assert.NotContains(t, rec.Body.String(), "scored")

	runs := decodeBody(t, rec)["data"].([]interface{})
	require.Len(t, runs, 1)
	first := runs[0].(map[string]interface{})
	assert.Equal(t, []interface{}{"enrich"}, first["failed_stages"])
	assert.Len(t, first["stages"], 2)
}

func TestArchive_ListRuns(t *testing.T) {
	lister := &fakeLister{objects: []string{"runs/2026/10/18/a.json"}}
	s := newTestServerWithArchive(&fakeService{}, lister)

	rec := s.cron(http.MethodGet, "/v1/cron/runs/archive?date=2026-10-18")
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]interface{})
	assert.Equal(t, 1.0, data["count"])

	rec = s.cron(http.MethodGet, "/v1/cron/runs/archive?month=2026-10")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.cron(http.MethodGet, "/v1/cron/runs/archive")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"runs/2026/10/18/", "runs/2026/10/", "runs/"}, lister.prefixes)

	rec = s.cron(http.MethodGet, "/v1/cron/runs/archive?month=Oct")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestArchive_DisabledStorageIsMisconfigured(t *testing.T) {
	s := newTestServer(&fakeService{})
	rec := s.cron(http.MethodGet, "/v1/cron/runs/archive")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "MISCONFIGURED", decodeBody(t, rec)["code"])
}
