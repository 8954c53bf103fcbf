package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap/zaptest"

	"in8/internal/cache"
	"in8/internal/metrics"
	"in8/internal/model"
	"in8/internal/repository"
)

var errStoreDown = errors.New("store unreachable")

const (
	cA model.ConstitutionName = "A"
	cB model.ConstitutionName = "B"
)

// twoQuestionTemplate: Q1 {A:2,B:0}|{A:0,B:2}, Q2 {A:1,B:1}|{A:0,B:0}
func twoQuestionTemplate() *model.SurveyTemplate {
	return &model.SurveyTemplate{
		Constitutions: []model.ConstitutionName{cA, cB},
		Questions: []model.Question{
			{ID: 1, Text: "q1", Options: []model.Option{
				{Text: "a", Scores: map[model.ConstitutionName]float64{cA: 2, cB: 0}},
				{Text: "b", Scores: map[model.ConstitutionName]float64{cA: 0, cB: 2}},
			}},
			{ID: 2, Text: "q2", Options: []model.Option{
				{Text: "a", Scores: map[model.ConstitutionName]float64{cA: 1, cB: 1}},
				{Text: "b", Scores: map[model.ConstitutionName]float64{cA: 0, cB: 0}},
			}},
		},
	}
}

// stepClock returns a clock that advances one second per call
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

type fakeProgressRepo struct {
	mu      sync.Mutex
	records map[string]*model.ProgressRecord
	down    bool
	hang    bool
	puts    int
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{records: map[string]*model.ProgressRecord{}}
}

func (r *fakeProgressRepo) setDown(down bool) {
	r.mu.Lock()
	r.down = down
	r.mu.Unlock()
}

// stall blocks until ctx ends when the repo is set to hang
func (r *fakeProgressRepo) stall(ctx context.Context) error {
	r.mu.Lock()
	hang := r.hang
	r.mu.Unlock()
	if !hang {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (r *fakeProgressRepo) Get(ctx context.Context, userID string) (*model.ProgressRecord, error) {
	if err := r.stall(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return nil, errStoreDown
	}
	rec, ok := r.records[userID]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.Answers = rec.Answers.Clone()
	return &cp, nil
}

func (r *fakeProgressRepo) Put(ctx context.Context, rec *model.ProgressRecord) error {
	if err := r.stall(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errStoreDown
	}
	cp := *rec
	cp.Answers = rec.Answers.Clone()
	r.records[rec.UserID] = &cp
	r.puts++
	return nil
}

func (r *fakeProgressRepo) Delete(ctx context.Context, userID string) error {
	if err := r.stall(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.down {
		return errStoreDown
	}
	delete(r.records, userID)
	return nil
}

type fakeResultRepo struct {
	mu               sync.Mutex
	results          []*model.StoredResult
	seq              int
	addErr           error
	indexUnavailable bool
}

func (r *fakeResultRepo) Add(_ context.Context, res *model.StoredResult) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.addErr != nil {
		return "", r.addErr
	}
	r.seq++
	cp := *res
	cp.ID = fmt.Sprintf("r%04d", r.seq)
	r.results = append(r.results, &cp)
	return cp.ID, nil
}

func (r *fakeResultRepo) sorted(filter func(*model.StoredResult) bool) []*model.StoredResult {
	var out []*model.StoredResult
	for _, res := range r.results {
		if filter == nil || filter(res) {
			cp := *res
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeResultRepo) ListByUser(_ context.Context, userID string, limit int) ([]*model.StoredResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.indexUnavailable {
		return nil, fmt.Errorf("%w: hint provided does not correspond to an existing index", repository.ErrIndexUnavailable)
	}
	out := r.sorted(func(s *model.StoredResult) bool { return s.UserID == userID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeResultRepo) ListRecent(_ context.Context, limit int) ([]*model.StoredResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(nil)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeResultRepo) LatestByUser(_ context.Context, userID string) (*model.StoredResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.sorted(func(s *model.StoredResult) bool { return s.UserID == userID })
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *fakeResultRepo) CountByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, res := range r.results {
		if res.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *fakeResultRepo) CountByTop(_ context.Context) (map[model.ConstitutionName]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := map[model.ConstitutionName]int64{}
	for _, res := range r.results {
		counts[res.TopConstitution.Constitution]++
	}
	return counts, nil
}

func (r *fakeResultRepo) DeleteByUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.results[:0]
	var n int64
	for _, res := range r.results {
		if res.UserID == userID {
			n++
			continue
		}
		kept = append(kept, res)
	}
	r.results = kept
	return n, nil
}

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]*model.UserSummary
	applyErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.UserSummary{}}
}

func (r *fakeUserRepo) getOrCreate(userID string, at time.Time) *model.UserSummary {
	u, ok := r.users[userID]
	if !ok {
		u = &model.UserSummary{UserID: userID, CreatedAt: at}
		r.users[userID] = u
	}
	return u
}

func (r *fakeUserRepo) Get(_ context.Context, userID string) (*model.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) UpsertProfile(_ context.Context, userID, name, loginType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.getOrCreate(userID, time.Now())
	if name != "" {
		u.Name = name
	}
	if loginType != "" {
		u.LoginType = loginType
	}
	return nil
}

func (r *fakeUserRepo) ApplyResult(_ context.Context, userID string, top model.ScoreEntry, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.applyErr != nil {
		return r.applyErr
	}
	u := r.getOrCreate(userID, at)
	u.SurveyCount++
	u.LastConstitution = top.Constitution
	u.LastConstitutionScore = top.Score
	u.LastSurveyDate = &at
	return nil
}

func (r *fakeUserRepo) SetSummary(_ context.Context, userID string, count int64, top *model.ScoreEntry, at *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.getOrCreate(userID, time.Now())
	u.SurveyCount = int(count)
	if top != nil && at != nil {
		u.LastConstitution = top.Constitution
		u.LastConstitutionScore = top.Score
		t := *at
		u.LastSurveyDate = &t
	} else {
		u.LastConstitution = ""
		u.LastConstitutionScore = 0
		u.LastSurveyDate = nil
	}
	return nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]*model.UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*model.UserSummary, 0, len(r.users))
	for _, u := range r.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *fakeUserRepo) Delete(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, userID)
	return nil
}

// fakeTemplateRepo replays scripted responses, repeating the last one
type fakeTemplateRepo struct {
	mu        sync.Mutex
	responses []templateOutcome
	calls     int
	block     bool
	put       *model.SurveyTemplate
}

func (r *fakeTemplateRepo) GetCurrent(ctx context.Context) (*model.SurveyTemplate, error) {
	r.mu.Lock()
	r.calls++
	block := r.block
	var out templateOutcome
	if len(r.responses) > 0 {
		i := r.calls - 1
		if i >= len(r.responses) {
			i = len(r.responses) - 1
		}
		out = r.responses[i]
	}
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return out.tpl.Clone(), out.err
}

func (r *fakeTemplateRepo) PutCurrent(_ context.Context, tpl *model.SurveyTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.put = tpl.Clone()
	return nil
}

func (r *fakeTemplateRepo) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []string
}

func (b *fakeBroadcaster) BroadcastToAdmins(msgType string, _ interface{}) {
	b.mu.Lock()
	b.events = append(b.events, msgType)
	b.mu.Unlock()
}

// harness wires real services over fakes and miniredis
type harness struct {
	mr           *miniredis.Miniredis
	progressRepo *fakeProgressRepo
	resultRepo   *fakeResultRepo
	userRepo     *fakeUserRepo
	templateRepo *fakeTemplateRepo
	localCache   cache.ProgressCache
	progress     *ProgressStore
	results      *ResultService
	loader       *TemplateLoader
	sessions     *SessionService
	metrics      *metrics.Metrics
	broadcaster  *fakeBroadcaster
}

func newHarness(t *testing.T, tpl *model.SurveyTemplate) *harness {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mr, client := newRedis(t)

	h := &harness{
		mr:           mr,
		progressRepo: newFakeProgressRepo(),
		resultRepo:   &fakeResultRepo{},
		userRepo:     newFakeUserRepo(),
		templateRepo: &fakeTemplateRepo{responses: []templateOutcome{{tpl: tpl}}},
		localCache:   cache.NewProgressCache(client, time.Hour),
		metrics:      metrics.New(),
		broadcaster:  &fakeBroadcaster{},
	}
	h.progress = NewProgressStore(h.progressRepo, h.localCache, h.metrics, logger)
	h.results = NewResultService(h.resultRepo, h.userRepo, h.metrics, logger)
	h.results.now = stepClock()
	h.results.SetBroadcaster(h.broadcaster)

	policy := DefaultRetryPolicy()
	policy.Sleep = func(context.Context, time.Duration) error { return nil }
	h.loader = NewTemplateLoader(h.templateRepo, cache.NewTemplateBackup(client, logger), policy, h.metrics, logger)
	h.sessions = NewSessionService(h.loader, h.progress, h.results, time.Second, logger)
	return h
}
