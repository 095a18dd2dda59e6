package youtube

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"

	"golang.org/x/sync/errgroup"
)

// ProgressFunc is called once per completed term from the worker that ran it
type ProgressFunc func(completed, total int, term string, found int)

// TermPipeline turns one term's raw results into accepted videos. It runs
// inside the worker goroutine, so implementations must be safe for
// concurrent use across terms.
type TermPipeline func(ctx context.Context, term string, raw []models.RawVideo) []*models.Video

// TermResult is the yield of one search term
type TermResult struct {
	Term    string
	Videos  []*models.Video
	Dropped int // malformed records removed at extraction
	Err     error
}

// FanOutConfig bounds the worker pool
type FanOutConfig struct {
	Workers    int
	MaxResults int           // per term
	Cooldown   time.Duration // pause after each completed term
	Retry      utils.RetryPolicy
}

// FanOut runs search terms concurrently against a Source
type FanOut struct {
	source   Source
	cfg      FanOutConfig
	pipeline TermPipeline
	logger   *utils.Logger
}

// NewFanOut creates a FanOut
func NewFanOut(source Source, cfg FanOutConfig, logger *utils.Logger) *FanOut {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.MaxResults < 1 {
		cfg.MaxResults = 10
	}
	return &FanOut{source: source, cfg: cfg, logger: logger}
}

// WithPipeline returns a copy of f that runs p on every term's results
func (f *FanOut) WithPipeline(p TermPipeline) *FanOut {
	cp := *f
	cp.pipeline = p
	return &cp
}

// SearchAll runs every term and returns the results in completion order
func (f *FanOut) SearchAll(ctx context.Context, terms []string, progress ProgressFunc) []TermResult {
	var mu sync.Mutex
	results := make([]TermResult, 0, len(terms))
	f.SearchAllStreaming(ctx, terms, func(r TermResult) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}, progress)
	return results
}

// SearchAllStreaming hands each term's result to onBatch as soon as it is
// ready. Cancelling ctx stops new terms from starting; terms already running
// finish. Returns the number of terms that ran.
func (f *FanOut) SearchAllStreaming(ctx context.Context, terms []string, onBatch func(TermResult), progress ProgressFunc) int {
	total := len(terms)
	if total == 0 {
		return 0
	}
	work := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(f.cfg.Workers)

	var completed, started atomic.Int64
	for i, term := range terms {
		if ctx.Err() != nil {
			f.logger.Info("Stop requested, skipping %d remaining terms", total-i)
			break
		}
		g.Go(func() error {
			// the slot may have opened after a stop
			if ctx.Err() != nil {
				return nil
			}
			started.Add(1)

			res := f.runTerm(work, term)
			f.deliver(onBatch, res)

			n := completed.Add(1)
			if progress != nil {
				progress(int(n), total, term, len(res.Videos))
			}
			utils.Pause(ctx, f.cfg.Cooldown)
			return nil
		})
	}
	_ = g.Wait()
	return int(started.Load())
}

func (f *FanOut) runTerm(ctx context.Context, term string) (res TermResult) {
	res.Term = term
	log := f.logger.With("term", term)
	defer func() {
		if r := recover(); r != nil {
			log.Error("Term processing panicked: %v", r)
			res.Videos = nil
			res.Err = fmt.Errorf("term %q: panic: %v", term, r)
		}
	}()

	raw, err := utils.RetryWithBackoff(ctx, f.cfg.Retry, log, func(ctx context.Context) ([]models.RawVideo, error) {
		return f.source.Search(ctx, term, f.cfg.MaxResults)
	})
	if err != nil {
		log.Error("Search failed: %v", err)
		res.Err = err
		return res
	}

	valid, dropped := sanitize(raw)
	res.Dropped = dropped
	if dropped > 0 {
		log.Debug("Dropped %d malformed records", dropped)
	}

	if f.pipeline != nil {
		res.Videos = f.pipeline(ctx, term, valid)
	} else {
		res.Videos = make([]*models.Video, 0, len(valid))
		for _, r := range valid {
			res.Videos = append(res.Videos, models.NewVideo(r, term, ""))
		}
	}
	log.Debug("Found %d raw, kept %d", len(raw), len(res.Videos))
	return res
}

func (f *FanOut) deliver(onBatch func(TermResult), res TermResult) {
	if onBatch == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			f.logger.Error("Batch handler for %q panicked: %v", res.Term, r)
		}
	}()
	onBatch(res)
}
