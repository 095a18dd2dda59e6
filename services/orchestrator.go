package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tutorial-scraper/config"
	"tutorial-scraper/models"
	"tutorial-scraper/scraper/youtube"
	"tutorial-scraper/storage"
	"tutorial-scraper/utils"
)

const DefaultBatchSize = 50

// DefaultDifficultyQuotas caps accepted videos per targeted difficulty run
func DefaultDifficultyQuotas() map[models.Difficulty]int {
	return map[models.Difficulty]int{
		models.Beginner:     5,
		models.Intermediate: 10,
		models.Advanced:     8,
	}
}

// OrchestratorConfig tunes one orchestrator
type OrchestratorConfig struct {
	BatchSize  int
	Workers    int
	MaxResults int           // per term, when the request leaves it unset
	Cooldown   time.Duration // after each completed term
	Retry      utils.RetryPolicy
}

// RunRequest describes one run. Only Tool is required.
type RunRequest struct {
	Tool       string
	Categories []string // restrict catalog terms to these categories
	Terms      []string // explicit terms, overriding the catalog
	Difficulty models.Difficulty
	MaxResults int
	MaxVideos  int // stop dispatching once this many videos were accepted
	Progress   youtube.ProgressFunc
}

// Orchestrator drives a run: fan-out search, then per term dedup, classify,
// score, filter, and batched upserts into the store
type Orchestrator struct {
	catalog    *config.Catalog
	source     youtube.Source
	classifier Classifier
	scorer     Scorer
	filter     *DifficultyFilter
	cleaner    *DataCleaner
	store      storage.VideoStore
	cfg        OrchestratorConfig
	logger     *utils.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	stats  *models.RunStatistics
}

// NewOrchestrator wires the pipeline stages together
func NewOrchestrator(
	catalog *config.Catalog,
	source youtube.Source,
	classifier Classifier,
	scorer Scorer,
	filter *DifficultyFilter,
	store storage.VideoStore,
	cfg OrchestratorConfig,
	logger *utils.Logger,
) *Orchestrator {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &Orchestrator{
		catalog:    catalog,
		source:     source,
		classifier: classifier,
		scorer:     scorer,
		filter:     filter,
		cleaner:    NewDataCleaner(logger),
		store:      store,
		cfg:        cfg,
		logger:     logger,
	}
}

// Stop asks the current run to stop dispatching terms. Terms already
// running finish and their videos are still stored.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Stats returns the statistics of the current or last run
func (o *Orchestrator) Stats() models.RunSnapshot {
	o.mu.Lock()
	stats := o.stats
	o.mu.Unlock()
	if stats == nil {
		return models.RunSnapshot{}
	}
	return stats.Snapshot()
}

// Run executes one run and reports whether anything was stored
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) bool {
	tool := strings.ToLower(strings.TrimSpace(req.Tool))
	stats := models.NewRunStatistics(tool)
	log := o.logger.With("run", stats.RunID, "tool", tool)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	o.mu.Lock()
	o.stats = stats
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()
	defer stats.Finish()

	terms, err := o.resolveTerms(tool, req)
	if err != nil {
		log.Error("Cannot start run: %v", err)
		return false
	}
	log.Info("Starting run: %d terms, difficulty=%q, batch size %d", len(terms), req.Difficulty, o.cfg.BatchSize)

	maxResults := req.MaxResults
	if maxResults < 1 {
		maxResults = o.cfg.MaxResults
	}
	fan := youtube.NewFanOut(o.source, youtube.FanOutConfig{
		Workers:    o.cfg.Workers,
		MaxResults: maxResults,
		Cooldown:   o.cfg.Cooldown,
		Retry:      o.cfg.Retry,
	}, log).WithPipeline(o.termPipeline(tool, req.Difficulty, NewDeduplicator(), stats, log))

	// stores outlive a stop so finished terms are not lost
	persistCtx := context.WithoutCancel(ctx)
	buf := newBatchBuffer(o.cfg.BatchSize, req.MaxVideos)

	onBatch := func(res youtube.TermResult) {
		stats.Searched.Add(1)
		stats.Malformed.Add(int64(res.Dropped))
		if res.Err != nil {
			stats.FailedTerms.Add(1)
		}
		full, limitReached := buf.add(res.Videos)
		if limitReached {
			log.Info("Reached %d accepted videos, stopping", req.MaxVideos)
			cancel()
		}
		for _, batch := range full {
			o.flush(persistCtx, batch, stats, log)
		}
	}

	fan.SearchAllStreaming(runCtx, terms, onBatch, req.Progress)

	if rest := buf.drain(); len(rest) > 0 {
		o.flush(persistCtx, rest, stats, log)
	}

	stats.Finish()
	snap := stats.Snapshot()
	log.Info("Run finished in %s: searched=%d found=%d duplicates=%d rejected=%d passed=%d inserted=%d failed_terms=%d failed_batches=%d",
		snap.Duration().Round(time.Millisecond), snap.Searched, snap.Found, snap.Duplicates, snap.Rejected,
		snap.PassedQuality, snap.Inserted, snap.FailedTerms, snap.FailedBatches)
	return snap.Inserted > 0
}

// RunDifficulties runs one targeted run per storage difficulty, each
// limited to its quota of accepted videos
func (o *Orchestrator) RunDifficulties(ctx context.Context, tool string, quotas map[models.Difficulty]int, progress youtube.ProgressFunc) map[models.Difficulty]bool {
	if quotas == nil {
		quotas = DefaultDifficultyQuotas()
	}
	results := make(map[models.Difficulty]bool, len(models.StorageLevels))
	for _, d := range models.StorageLevels {
		if ctx.Err() != nil {
			o.logger.Info("Stop requested, skipping remaining difficulties")
			break
		}
		quota, ok := quotas[d]
		if !ok || quota <= 0 {
			continue
		}
		o.logger.Info("Collecting %s videos for %s (quota %d)", d, tool, quota)
		results[d] = o.Run(ctx, RunRequest{
			Tool:       tool,
			Difficulty: d,
			MaxVideos:  quota,
			Progress:   progress,
		})
	}
	return results
}

func (o *Orchestrator) resolveTerms(tool string, req RunRequest) ([]string, error) {
	if _, err := o.catalog.Tool(tool); err != nil {
		return nil, err
	}

	var terms []string
	var err error
	switch {
	case len(req.Terms) > 0:
		terms = uniqueTerms(req.Terms)
	case len(req.Categories) > 0:
		terms, err = o.catalog.Terms(tool, req.Categories...)
	case req.Difficulty != "":
		terms, err = o.catalog.TermsForDifficulty(tool, req.Difficulty)
	default:
		terms, err = o.catalog.Terms(tool)
	}
	if err != nil {
		return nil, err
	}
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w for %q", config.ErrNoSearchTerms, tool)
	}
	return terms, nil
}

// termPipeline runs inside the fan-out workers, concurrently across terms
func (o *Orchestrator) termPipeline(tool string, target models.Difficulty, dedup *Deduplicator, stats *models.RunStatistics, log *utils.Logger) youtube.TermPipeline {
	return func(_ context.Context, term string, raw []models.RawVideo) []*models.Video {
		stats.Found.Add(int64(len(raw)))
		accepted := make([]*models.Video, 0, len(raw))

		for i := range raw {
			r := &raw[i]
			hash, fresh := dedup.Claim(r)
			if !fresh {
				stats.Duplicates.Add(1)
				continue
			}

			v := models.NewVideo(*r, term, tool)
			v.ContentHash = hash
			Annotate(v, o.classifier.Classify(r))
			Enrich(v, term)
			o.scorer.Score(v, term)

			d := target
			if d == "" {
				d = v.Difficulty
			}
			if ok, reason := o.filter.Evaluate(v, d); !ok {
				stats.Rejected.Add(1)
				log.Debug("Rejected %s (%s): %s", v.ID, d, reason)
				continue
			}
			stats.PassedQuality.Add(1)
			accepted = append(accepted, v)
		}
		return accepted
	}
}

func (o *Orchestrator) flush(ctx context.Context, batch []*models.Video, stats *models.RunStatistics, log *utils.Logger) {
	clean := o.cleaner.Clean(batch)
	if len(clean) == 0 {
		return
	}
	n, err := o.store.UpsertBatch(ctx, clean)
	if err != nil {
		stats.FailedBatches.Add(1)
		var be *storage.BatchError
		if errors.As(err, &be) {
			log.Error("Batch of %d rolled back at video %s: %v", len(clean), be.VideoID, be.Err)
		} else {
			log.Error("Batch of %d starting at video %s failed: %v", len(clean), clean[0].ID, err)
		}
		return
	}
	stats.Inserted.Add(int64(n))
	log.Debug("Stored batch of %d (%d rows affected)", len(clean), n)
}

func uniqueTerms(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// batchBuffer collects accepted videos across terms and cuts full batches
type batchBuffer struct {
	mu       sync.Mutex
	size     int
	limit    int // 0 = unlimited
	accepted int
	pending  []*models.Video
}

func newBatchBuffer(size, limit int) *batchBuffer {
	return &batchBuffer{size: size, limit: max(limit, 0)}
}

// add appends videos and returns the batches that became full. The second
// result is true the first time the accepted limit is reached.
func (b *batchBuffer) add(videos []*models.Video) ([][]*models.Video, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	reached := false
	if b.limit > 0 {
		room := b.limit - b.accepted
		if room <= 0 {
			return nil, false
		}
		if len(videos) >= room {
			videos = videos[:room]
			reached = true
		}
	}
	b.accepted += len(videos)
	b.pending = append(b.pending, videos...)

	var full [][]*models.Video
	for len(b.pending) >= b.size {
		batch := make([]*models.Video, b.size)
		copy(batch, b.pending[:b.size])
		b.pending = b.pending[b.size:]
		full = append(full, batch)
	}
	return full, reached
}

func (b *batchBuffer) drain() []*models.Video {
	b.mu.Lock()
	defer b.mu.Unlock()
	rest := b.pending
	b.pending = nil
	return rest
}
