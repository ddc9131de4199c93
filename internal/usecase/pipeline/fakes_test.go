package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnquangdev/call-coach/internal/domain/entities"
	"github.com/johnquangdev/call-coach/internal/domain/repositories"
	"github.com/johnquangdev/call-coach/pkg/ai"
	"github.com/johnquangdev/call-coach/pkg/hubspot"
)

type fakeCallRepo struct {
	mu    sync.Mutex
	calls map[string]*entities.Call
	// skipAnalyzed hides calls from analysis selection, standing in for the NOT EXISTS clause
	skipAnalyzed map[uuid.UUID]bool
}

func newFakeCallRepo() *fakeCallRepo {
	return &fakeCallRepo{calls: map[string]*entities.Call{}, skipAnalyzed: map[uuid.UUID]bool{}}
}

func (r *fakeCallRepo) UpsertCall(_ context.Context, u entities.CallUpsert) (repositories.UpsertOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.Normalize()
	if existing, ok := r.calls[u.ExternalID]; ok {
		if existing.MergeFrom(u) {
			return repositories.UpsertMerged, nil
		}
		return repositories.UpsertUnchanged, nil
	}
	r.calls[u.ExternalID] = entities.NewCall(u)
	return repositories.UpsertInserted, nil
}

func (r *fakeCallRepo) FindByExternalID(_ context.Context, id string) (*entities.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.calls[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return c, nil
}

func (r *fakeCallRepo) sorted(filter func(*entities.Call) bool, limit int) []*entities.Call {
	out := make([]*entities.Call, 0)
	for _, c := range r.calls {
		if filter(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CallDate.Equal(out[j].CallDate) {
			return out[i].CallDate.Before(out[j].CallDate)
		}
		return out[i].ExternalID < out[j].ExternalID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (r *fakeCallRepo) FindCallsMissingTranscript(_ context.Context, limit int) ([]*entities.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(c *entities.Call) bool {
		return !c.HasTranscript && c.RecordingURL != nil
	}, limit), nil
}

func (r *fakeCallRepo) FindCallsMissingAnalysis(_ context.Context, limit int) ([]*entities.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sorted(func(c *entities.Call) bool {
		return c.Transcript != nil && *c.Transcript != "" && !r.skipAnalyzed[c.ID]
	}, limit), nil
}

func (r *fakeCallRepo) FindByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*entities.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := map[uuid.UUID]*entities.Call{}
	for _, c := range r.calls {
		if _, ok := want[c.ID]; ok {
			out[c.ID] = c
		}
	}
	return out, nil
}

func (r *fakeCallRepo) UpdateTranscript(_ context.Context, id uuid.UUID, transcript *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.calls {
		if c.ID == id {
			c.Transcript = transcript
			c.HasTranscript = true
			return nil
		}
	}
	return repositories.ErrNotFound
}

func (r *fakeCallRepo) ListCallsForSDRDate(_ context.Context, sdrID uuid.UUID, date time.Time) ([]*entities.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day := entities.DateOnly(date)
	return r.sorted(func(c *entities.Call) bool {
		return c.SDRID == sdrID && c.CallDate.Equal(day)
	}, 0), nil
}

func (r *fakeCallRepo) add(c *entities.Call) *entities.Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.calls[c.ExternalID] = c
	return c
}

type breakdownPatch struct {
	breakdown entities.AreaBreakdown
	scores    map[entities.SkillArea]*float64
}

type fakeAnalysisRepo struct {
	mu       sync.Mutex
	byCall   map[uuid.UUID]*entities.CallAnalysis
	patches  map[uuid.UUID]breakdownPatch
	inserted int
}

func newFakeAnalysisRepo() *fakeAnalysisRepo {
	return &fakeAnalysisRepo{
		byCall:  map[uuid.UUID]*entities.CallAnalysis{},
		patches: map[uuid.UUID]breakdownPatch{},
	}
}

func (r *fakeAnalysisRepo) AnalyzedCallIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[uuid.UUID]struct{}{}
	for _, id := range ids {
		if _, ok := r.byCall[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (r *fakeAnalysisRepo) InsertAnalysis(_ context.Context, a *entities.CallAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byCall[a.CallID]; ok {
		return repositories.ErrDuplicateAnalysis
	}
	r.byCall[a.CallID] = a
	r.inserted++
	return nil
}

func (r *fakeAnalysisRepo) inRange(a *entities.CallAnalysis, from, to time.Time) bool {
	d := entities.DateOnly(a.AnalysisDate)
	return !d.Before(entities.DateOnly(from)) && !d.After(entities.DateOnly(to))
}

func (r *fakeAnalysisRepo) ListAnalysesForSDRRange(_ context.Context, sdrID uuid.UUID, from, to time.Time) ([]*entities.CallAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.CallAnalysis, 0)
	for _, a := range r.byCall {
		if a.SDRID == sdrID && r.inRange(a, from, to) {
			out = append(out, a)
		}
	}
	sortAnalyses(out)
	return out, nil
}

func (r *fakeAnalysisRepo) ListAnalysesInRange(_ context.Context, from, to time.Time) ([]*entities.CallAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entities.CallAnalysis, 0)
	for _, a := range r.byCall {
		if r.inRange(a, from, to) {
			out = append(out, a)
		}
	}
	sortAnalyses(out)
	return out, nil
}

func (r *fakeAnalysisRepo) UpdateBreakdown(_ context.Context, id uuid.UUID, b entities.AreaBreakdown, scores map[entities.SkillArea]*float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byCall {
		if a.ID == id {
			a.SetBreakdown(b)
			for area, v := range scores {
				a.SkillScores.Set(area, v)
			}
			r.patches[id] = breakdownPatch{breakdown: b, scores: scores}
			return nil
		}
	}
	return repositories.ErrNotFound
}

func sortAnalyses(as []*entities.CallAnalysis) {
	sort.Slice(as, func(i, j int) bool {
		if !as[i].AnalysisDate.Equal(as[j].AnalysisDate) {
			return as[i].AnalysisDate.Before(as[j].AnalysisDate)
		}
		return as[i].ID.String() < as[j].ID.String()
	})
}

type fakeAggregateRepo struct {
	mu         sync.Mutex
	stats      map[string]*entities.DailyStats
	focus      map[string]*entities.DailyFocus
	weekly     map[string]*entities.WeeklySummary
	benchmarks map[[2]int]*entities.MonthlyBenchmark
}

func newFakeAggregateRepo() *fakeAggregateRepo {
	return &fakeAggregateRepo{
		stats:      map[string]*entities.DailyStats{},
		focus:      map[string]*entities.DailyFocus{},
		weekly:     map[string]*entities.WeeklySummary{},
		benchmarks: map[[2]int]*entities.MonthlyBenchmark{},
	}
}

func dayKey(id uuid.UUID, d time.Time) string {
	return id.String() + "/" + d.Format(time.DateOnly)
}

func weekKey(id uuid.UUID, week, year int) string {
	return fmt.Sprintf("%s/%d-W%02d", id, year, week)
}

func (r *fakeAggregateRepo) UpsertDailyStats(_ context.Context, s *entities.DailyStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats[dayKey(s.SDRID, s.StatDate)] = s
	return nil
}

func (r *fakeAggregateRepo) UpsertDailyFocus(_ context.Context, f *entities.DailyFocus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.focus[dayKey(f.SDRID, f.FocusDate)] = f
	return nil
}

func (r *fakeAggregateRepo) UpsertWeeklySummary(_ context.Context, w *entities.WeeklySummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.weekly[weekKey(w.SDRID, w.WeekNumber, w.Year)] = w
	return nil
}

func (r *fakeAggregateRepo) GetWeeklySummary(_ context.Context, sdrID uuid.UUID, week, year int) (*entities.WeeklySummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.weekly[weekKey(sdrID, week, year)]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return w, nil
}

func (r *fakeAggregateRepo) GetMonthlyBenchmark(_ context.Context, year, month int) (*entities.MonthlyBenchmark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.benchmarks[[2]int{year, month}]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return b, nil
}

type fakeSDRRepo struct {
	sdrs []*entities.SDR
	err  error
}

func (r *fakeSDRRepo) ListActive(context.Context) ([]*entities.SDR, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]*entities.SDR, 0, len(r.sdrs))
	for _, s := range r.sdrs {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSDRRepo) FindByCRMOwnerID(_ context.Context, ownerID string) (*entities.SDR, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, s := range r.sdrs {
		if s.OwnerID() == ownerID {
			return s, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeSDRRepo) FindBySlug(_ context.Context, slug string) (*entities.SDR, error) {
	for _, s := range r.sdrs {
		if s.Slug == slug {
			return s, nil
		}
	}
	return nil, repositories.ErrNotFound
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs []*entities.PipelineRun
	err  error
}

func (r *fakeRunRepo) SaveRun(_ context.Context, run *entities.PipelineRun) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.runs = append(r.runs, run)
	return nil
}

func (r *fakeRunRepo) ListRecentRuns(_ context.Context, limit int) ([]*entities.PipelineRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.runs) < limit {
		limit = len(r.runs)
	}
	return r.runs[:limit], nil
}

type fakeCRM struct {
	pages       map[string][]hubspot.CallPage // by owner id, served in order
	contacts    map[string][]string
	companies   map[string][]string
	names       map[string]string
	nameLookups int
	searchErr   error
}

func (c *fakeCRM) SearchCalls(_ context.Context, q hubspot.CallSearch) (*hubspot.CallPage, error) {
	if c.searchErr != nil {
		return nil, c.searchErr
	}
	pages := c.pages[q.OwnerID]
	if len(pages) == 0 {
		return &hubspot.CallPage{}, nil
	}
	idx := 0
	if q.After != "" {
		for i, p := range pages {
			if p.NextAfter == q.After {
				idx = i + 1
			}
		}
	}
	if idx >= len(pages) {
		return &hubspot.CallPage{}, nil
	}
	p := pages[idx]
	return &p, nil
}

func (c *fakeCRM) CallAssociations(_ context.Context, to hubspot.ObjectType, callIDs []string) (map[string][]string, error) {
	src := c.contacts
	if to == hubspot.ObjectCompanies {
		src = c.companies
	}
	out := map[string][]string{}
	for _, id := range callIDs {
		if ids, ok := src[id]; ok {
			out[id] = ids
		}
	}
	return out, nil
}

func (c *fakeCRM) lookup(ids []string) map[string]string {
	c.nameLookups++
	out := map[string]string{}
	for _, id := range ids {
		if n, ok := c.names[id]; ok {
			out[id] = n
		}
	}
	return out
}

func (c *fakeCRM) ContactNames(_ context.Context, ids []string) (map[string]string, error) {
	return c.lookup(ids), nil
}

func (c *fakeCRM) CompanyNames(_ context.Context, ids []string) (map[string]string, error) {
	return c.lookup(ids), nil
}

type fakeTranscriber struct {
	byURL map[string]*ai.DiarizedTranscript
	calls int
}

func (t *fakeTranscriber) Transcribe(_ context.Context, url string) (*ai.DiarizedTranscript, error) {
	t.calls++
	tr, ok := t.byURL[url]
	if !ok {
		return nil, errors.New("transcript error: audio not found")
	}
	return tr, nil
}

// fakeLLM answers by matching the system prompt; score replies are served in order
type fakeLLM struct {
	mu         sync.Mutex
	scores     []string
	dailyFocus string
	weekFocus  string
	err        error
	requests   []ai.CompletionRequest
}

func (l *fakeLLM) Complete(_ context.Context, req ai.CompletionRequest) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.requests = append(l.requests, req)
	if l.err != nil {
		return "", l.err
	}
	switch req.System {
	case dailyFocusSystemPrompt:
		return l.dailyFocus, nil
	case weekFocusSystemPrompt:
		if l.weekFocus == "" {
			return "", errors.New("week focus unavailable")
		}
		return l.weekFocus, nil
	}
	if len(l.scores) == 0 {
		return "", errors.New("no scripted score reply")
	}
	reply := l.scores[0]
	if len(l.scores) > 1 {
		l.scores = l.scores[1:]
	}
	return reply, nil
}

func (l *fakeLLM) Model() string { return "fake-model" }

type fakeLocker struct {
	held map[string]bool
	err  error
}

func (f *fakeLocker) TryLock(_ context.Context, name string, _ time.Duration) (func(context.Context) error, bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if f.held[name] {
		return nil, false, nil
	}
	return func(context.Context) error { return nil }, true, nil
}

type fakeArchiver struct {
	archived []uuid.UUID
}

func (a *fakeArchiver) ArchiveRun(_ context.Context, run *entities.PipelineRun, _ interface{}) (string, error) {
	a.archived = append(a.archived, run.ID)
	return "runs/" + run.ID.String() + ".json", nil
}

type fixture struct {
	calls      *fakeCallRepo
	analyses   *fakeAnalysisRepo
	aggregates *fakeAggregateRepo
	sdrs       *fakeSDRRepo
	runs       *fakeRunRepo
	crm        *fakeCRM
	stt        *fakeTranscriber
	llm        *fakeLLM
	archiver   *fakeArchiver
	sdr        *entities.SDR
	now        time.Time
}

func newFixture() *fixture {
	owner := "owner-1"
	sdr := &entities.SDR{ID: uuid.New(), Name: "Alex Rivera", Slug: "alex", CRMOwnerID: &owner, IsActive: true}
	return &fixture{
		calls:      newFakeCallRepo(),
		analyses:   newFakeAnalysisRepo(),
		aggregates: newFakeAggregateRepo(),
		sdrs:       &fakeSDRRepo{sdrs: []*entities.SDR{sdr}},
		runs:       &fakeRunRepo{},
		crm:        &fakeCRM{pages: map[string][]hubspot.CallPage{}, names: map[string]string{}},
		stt:        &fakeTranscriber{byURL: map[string]*ai.DiarizedTranscript{}},
		llm:        &fakeLLM{},
		archiver:   &fakeArchiver{},
		sdr:        sdr,
		now:        time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) service(mutate ...func(*Deps)) *pipelineService {
	deps := Deps{
		Calls:       f.calls,
		Analyses:    f.analyses,
		Aggregates:  f.aggregates,
		SDRs:        f.sdrs,
		Runs:        f.runs,
		CRM:         f.crm,
		Transcriber: f.stt,
		LLM:         f.llm,
		Archiver:    f.archiver,
		Now:         func() time.Time { return f.now },
	}
	for _, m := range mutate {
		m(&deps)
	}
	return NewPipelineService(deps, DefaultOptions()).(*pipelineService)
}

func strPtr(s string) *string    { return &s }
func floatPtr(v float64) *float64 { return &v }

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
