package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/pkg/ai"
	"github.com/johnquangdev/call-coach/pkg/hubspot"
	"github.com/johnquangdev/call-coach/pkg/jobcontext"
)

type panickingTranscriber struct{}

func (panickingTranscriber) Transcribe(context.Context, string) (*ai.DiarizedTranscript, error) {
	panic("decoder blew up")
}

func TestRunPipeline_AllStagesSucceed(t *testing.T) {
	f := newFixture()
	ts := time.Date(2026, 10, 18, 15, 0, 0, 0, time.UTC)
	f.crm.pages["owner-1"] = []hubspot.CallPage{{Calls: []hubspot.CallRecord{crmCall("c1", ts)}}}
	f.stt.byURL["https://recordings.example.com/c1.mp3"] = &ai.DiarizedTranscript{Text: "Rep: hello"}
	f.llm.scores = []string{openerOnlyReply}

	res, err := f.service().RunPipeline(context.Background(), "cron")
	require.NoError(t, err)
	assert.True(t, res.AllSucceeded)
	assert.Equal(t, entities.PipelineRunSuccess, res.Status)
	assert.Equal(t, "cron", res.Trigger)

	require.Len(t, res.Stages, 4)
	names := []string{}
	for _, s := range res.Stages {
		names = append(names, s.Stage)
		assert.True(t, s.Success, s.Stage)
	}
	assert.Equal(t, []string{StageEnrich, StageTranscribe, StageScore, StageAggregate}, names)

	score := res.Stages[2].Result.(*ScoreResult)
	assert.Equal(t, 1, score.Scored)

	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, res.RunID, f.runs.runs[0].ID)
	assert.Equal(t, []uuid.UUID{res.RunID}, f.archiver.archived)

	var stored []StageReport
	require.NoError(t, json.Unmarshal(f.runs.runs[0].Stages, &stored))
	assert.Len(t, stored, 4)
}

func TestRunPipeline_FailedStageDoesNotStopTheRest(t *testing.T) {
	f := newFixture()
	svc := f.service(func(d *Deps) {
		d.CRM = nil
		d.Transcriber = panickingTranscriber{}
	})
	f.calls.add(&entities.Call{
		ExternalID:   "c1",
		SDRID:        f.sdr.ID,
		CallDate:     day(2026, 10, 18),
		DurationMs:   120000,
		RecordingURL: strPtr("https://rec/c1.mp3"),
	})

	res, err := svc.RunPipeline(context.Background(), "manual")
	require.NoError(t, err)
	assert.False(t, res.AllSucceeded)
	assert.Equal(t, entities.PipelineRunPartial, res.Status)

	require.Len(t, res.Stages, 4)
	assert.False(t, res.Stages[0].Success)
	assert.Equal(t, ErrCRMNotConfigured.Error(), res.Stages[0].Error)
	assert.Nil(t, res.Stages[0].Result)

	assert.False(t, res.Stages[1].Success)
	assert.Contains(t, res.Stages[1].Error, "decoder blew up")

	assert.True(t, res.Stages[2].Success)
	assert.True(t, res.Stages[3].Success)

	require.Len(t, f.runs.runs, 1)
	assert.Equal(t, entities.PipelineRunPartial, f.runs.runs[0].Status)
}

func TestRunPipeline_PersistFailureIsOnlyLogged(t *testing.T) {
	f := newFixture()
	f.runs.err = errors.New("db down")

	res, err := f.service().RunPipeline(context.Background(), "manual")
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Len(t, f.archiver.archived, 1)
}

func TestRunPipeline_Busy(t *testing.T) {
	f := newFixture()
	svc := f.service(func(d *Deps) { d.Locker = &fakeLocker{held: map[string]bool{StagePipeline: true}} })

	_, err := svc.RunPipeline(context.Background(), "cron")
	assert.ErrorIs(t, err, ErrStageBusy)
	assert.Empty(t, f.runs.runs)
}

func TestRunStage_KeepsTheRunID(t *testing.T) {
	f := newFixture()
	runID := uuid.New()
	ctx, cancel := jobcontext.StageBegin(context.Background(), runID, StagePipeline, 0)
	defer cancel()

	var seen uuid.UUID
	report := f.service().runStage(ctx, StageScore, func(ctx context.Context) (interface{}, error) {
		seen, _ = jobcontext.GetRunID(ctx)
		return "done", nil
	})
	assert.True(t, report.Success)
	assert.Equal(t, "done", report.Result)
	assert.Equal(t, runID, seen)
}
