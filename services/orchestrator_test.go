package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tutorial-scraper/config"
	"tutorial-scraper/models"
	"tutorial-scraper/scraper/youtube"
	"tutorial-scraper/storage"
	"tutorial-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource serves generated beginner tutorials per term
type fakeSource struct {
	perTerm int
	fail    map[string]bool
	results map[string][]models.RawVideo // overrides generation
	calls   atomic.Int64
	delay   time.Duration
}

func (s *fakeSource) Search(ctx context.Context, term string, maxResults int) ([]models.RawVideo, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.fail[term] {
		return nil, utils.Permanent(errors.New("quota exceeded"))
	}
	if r, ok := s.results[term]; ok {
		return r, nil
	}
	out := make([]models.RawVideo, 0, s.perTerm)
	for i := 0; i < s.perTerm; i++ {
		raw := *beginnerRaw()
		raw.ID = fmt.Sprintf("%s-%d", term, i)
		raw.Title = fmt.Sprintf("Zapier Tutorial for Beginners %d", i)
		raw.PublishedAt = time.Now().AddDate(0, 0, -10)
		out = append(out, raw)
	}
	return out, nil
}

func (s *fakeSource) FetchDetails(ctx context.Context, id string) (*models.RawVideo, error) {
	return nil, youtube.ErrNotFound
}

func (s *fakeSource) mustSearch(term string) []models.RawVideo {
	out, _ := s.Search(context.Background(), term, s.perTerm)
	return out
}

// fakeStore records batch sizes and can fail chosen batches
type fakeStore struct {
	mu      sync.Mutex
	batches []int
	rows    map[string]*models.Video
	failOn  map[int]bool // 1-based batch number
	calls   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[string]*models.Video), failOn: make(map[int]bool)}
}

func (s *fakeStore) UpsertBatch(ctx context.Context, videos []*models.Video) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failOn[s.calls] {
		return 0, &storage.BatchError{VideoID: videos[0].ID, Err: errors.New("constraint violation")}
	}
	s.batches = append(s.batches, len(videos))
	for _, v := range videos {
		s.rows[v.ID] = v
	}
	return len(videos), nil
}

func (s *fakeStore) Count(ctx context.Context, f storage.Filter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows), nil
}

func (s *fakeStore) Query(ctx context.Context, f storage.Filter, o storage.Order, limit, offset int) ([]*models.Video, error) {
	return nil, nil
}

func (s *fakeStore) Summary(ctx context.Context, tool string) ([]models.DifficultySummary, error) {
	return nil, nil
}

func (s *fakeStore) Close() error { return nil }

func (s *fakeStore) totalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newTestOrchestrator(t *testing.T, src youtube.Source, store storage.VideoStore, workers int) *Orchestrator {
	t.Helper()
	catalog, err := config.LoadCatalog("")
	require.NoError(t, err)
	logger := utils.NewNopLogger()
	return NewOrchestrator(
		catalog,
		src,
		NewKeywordClassifier(DefaultClassifierConfig()),
		NewCompositeScorer(logger),
		NewDifficultyFilter(catalog.Filters, DefaultQualityFloor),
		store,
		OrchestratorConfig{
			BatchSize:  50,
			Workers:    workers,
			MaxResults: 10,
			Retry:      fastRetry(),
		},
		logger,
	)
}

func fastRetry() utils.RetryPolicy {
	return utils.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func termList(n int) []string {
	terms := make([]string, n)
	for i := range terms {
		terms[i] = fmt.Sprintf("zapier tutorial %d", i)
	}
	return terms
}

func TestRunUnknownToolTouchesNothing(t *testing.T) {
	src := &fakeSource{perTerm: 3}
	store := newFakeStore()
	o := newTestOrchestrator(t, src, store, 2)

	assert.False(t, o.Run(context.Background(), RunRequest{Tool: "ifttt"}))
	assert.Zero(t, src.calls.Load())
	assert.Zero(t, store.totalCalls())
}

func TestRunZeroTermsReturnsFalse(t *testing.T) {
	src := &fakeSource{perTerm: 3}
	store := newFakeStore()
	o := newTestOrchestrator(t, src, store, 2)

	ok := o.Run(context.Background(), RunRequest{Tool: "zapier", Categories: []string{"no_such_category"}})
	assert.False(t, ok)
	assert.Zero(t, src.calls.Load())
	assert.Zero(t, store.totalCalls())
}

func TestRunBatchesAcceptedVideos(t *testing.T) {
	src := &fakeSource{perTerm: 10}
	store := newFakeStore()
	o := newTestOrchestrator(t, src, store, 3)

	var progressCalls atomic.Int64
	ok := o.Run(context.Background(), RunRequest{
		Tool:  "zapier",
		Terms: termList(12),
		Progress: func(completed, total int, term string, found int) {
			progressCalls.Add(1)
			assert.Equal(t, 12, total)
		},
	})
	require.True(t, ok)

	assert.Equal(t, []int{50, 50, 20}, store.batches)
	assert.Equal(t, int64(12), progressCalls.Load())

	snap := o.Stats()
	assert.Equal(t, int64(12), snap.Searched)
	assert.Equal(t, int64(120), snap.Found)
	assert.Equal(t, int64(120), snap.PassedQuality)
	assert.Equal(t, int64(120), snap.Inserted)
	assert.False(t, snap.FinishedAt.IsZero())

	for _, v := range store.rows {
		assert.Equal(t, "zapier", v.Tool)
		assert.True(t, v.Difficulty == models.Beginner || v.Difficulty == models.Intermediate || v.Difficulty == models.Advanced)
		assert.NotEmpty(t, v.URL)
		assert.NotEmpty(t, v.ContentHash)
	}
}

func TestRunSameTermTwiceNotDoubleCounted(t *testing.T) {
	src := &fakeSource{perTerm: 5}
	store := newFakeStore()
	o := newTestOrchestrator(t, src, store, 2)

	// explicit terms are de-duplicated, and repeated results are caught by the run's dedup
	shared := (&fakeSource{perTerm: 5}).mustSearch("zapier basics")
	src.results = map[string][]models.RawVideo{
		"zapier basics":     shared,
		"zapier basics 101": shared,
	}

	ok := o.Run(context.Background(), RunRequest{
		Tool:  "zapier",
		Terms: []string{"zapier basics", "Zapier Basics", "zapier basics 101"},
	})
	require.True(t, ok)

	snap := o.Stats()
	assert.Equal(t, int64(2), snap.Searched)
	assert.Equal(t, int64(10), snap.Found)
	assert.Equal(t, int64(5), snap.Duplicates)
	assert.Equal(t, int64(5), snap.Inserted)
	assert.Len(t, store.rows, 5)
}

func TestRunFailedTermIsNotFatal(t *testing.T) {
	terms := termList(4)
	src := &fakeSource{perTerm: 3, fail: map[string]bool{terms[1]: true}}
	store := newFakeStore()
	o := newTestOrchestrator(t, src, store, 2)

	var progressCalls atomic.Int64
	ok := o.Run(context.Background(), RunRequest{
		Tool:     "zapier",
		Terms:    terms,
		Progress: func(int, int, string, int) { progressCalls.Add(1) },
	})
	require.True(t, ok)

	snap := o.Stats()
	assert.Equal(t, int64(4), progressCalls.Load())
	assert.Equal(t, int64(1), snap.FailedTerms)
	assert.Equal(t, int64(9), snap.Inserted)
}

func TestRunFailedBatchContinues(t *testing.T) {
	src := &fakeSource{perTerm: 10}
	store := newFakeStore()
	store.failOn[1] = true
	o := newTestOrchestrator(t, src, store, 1)

	ok := o.Run(context.Background(), RunRequest{Tool: "zapier", Terms: termList(12)})
	require.True(t, ok)

	snap := o.Stats()
	assert.Equal(t, int64(1), snap.FailedBatches)
	assert.Equal(t, int64(70), snap.Inserted)
	assert.Equal(t, []int{50, 20}, store.batches)
}

func TestRunRejectsAndCountsMalformed(t *testing.T) {
	good := *beginnerRaw()
	good.PublishedAt = time.Now()
	tooLong := good
	tooLong.ID = "long"
	tooLong.DurationSeconds = 5000

	src := &fakeSource{results: map[string][]models.RawVideo{
		"zapier tutorial": {good, tooLong, {ID: "", Title: "no id"}, {ID: "notitle"}},
	}}
	store := newFakeStore()
	o := newTestOrchestrator(t, src, store, 1)

	ok := o.Run(context.Background(), RunRequest{Tool: "zapier", Terms: []string{"zapier tutorial"}})
	require.True(t, ok)

	snap := o.Stats()
	assert.Equal(t, int64(2), snap.Malformed)
	assert.Equal(t, int64(2), snap.Found)
	assert.Equal(t, int64(1), snap.Rejected)
	assert.Equal(t, int64(1), snap.Inserted)
}

func TestRunMaxVideosStopsEarly(t *testing.T) {
	src := &fakeSource{perTerm: 10, delay: 5 * time.Millisecond}
	store := newFakeStore()
	o := newTestOrchestrator(t, src, store, 1)

	ok := o.Run(context.Background(), RunRequest{Tool: "zapier", Terms: termList(20), MaxVideos: 25})
	require.True(t, ok)

	snap := o.Stats()
	assert.Equal(t, int64(25), snap.Inserted)
	assert.Less(t, snap.Searched, int64(20))
	assert.Less(t, src.calls.Load(), int64(20))
}

func TestStopFinishesInFlightTerms(t *testing.T) {
	src := &fakeSource{perTerm: 2, delay: 20 * time.Millisecond}
	store := newFakeStore()
	o := newTestOrchestrator(t, src, store, 1)

	var once sync.Once
	ok := o.Run(context.Background(), RunRequest{
		Tool:  "zapier",
		Terms: termList(10),
		Progress: func(completed, total int, term string, found int) {
			once.Do(o.Stop)
		},
	})
	require.True(t, ok)

	snap := o.Stats()
	assert.Less(t, snap.Searched, int64(10))
	assert.Equal(t, snap.Searched*2, snap.Inserted)
}

func TestRunDifficultiesUsesQuotas(t *testing.T) {
	src := &fakeSource{perTerm: 4}
	store := newFakeStore()
	o := newTestOrchestrator(t, src, store, 2)

	results := o.RunDifficulties(context.Background(), "zapier", map[models.Difficulty]int{models.Beginner: 6}, nil)
	require.Len(t, results, 1)
	assert.True(t, results[models.Beginner])
	assert.Equal(t, int64(6), o.Stats().Inserted)
}

func TestBatchBuffer(t *testing.T) {
	mk := func(n int) []*models.Video {
		out := make([]*models.Video, n)
		for i := range out {
			out[i] = &models.Video{}
		}
		return out
	}

	b := newBatchBuffer(50, 0)
	full, reached := b.add(mk(70))
	assert.False(t, reached)
	require.Len(t, full, 1)
	assert.Len(t, full[0], 50)
	full, _ = b.add(mk(30))
	require.Len(t, full, 1)
	assert.Len(t, b.drain(), 0)

	limited := newBatchBuffer(10, 12)
	full, reached = limited.add(mk(8))
	assert.Empty(t, full)
	assert.False(t, reached)
	full, reached = limited.add(mk(8))
	assert.True(t, reached)
	require.Len(t, full, 1)
	assert.Len(t, limited.drain(), 2)
	full, reached = limited.add(mk(5))
	assert.Empty(t, full)
	assert.False(t, reached)
}
