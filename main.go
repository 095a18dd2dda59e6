package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tutorial-scraper/config"
	"tutorial-scraper/models"
	"tutorial-scraper/scraper/youtube"
	"tutorial-scraper/services"
	"tutorial-scraper/storage"
	"tutorial-scraper/utils"

	"github.com/redis/go-redis/v9"
)

const exportLimit = 5000

func main() {
	var (
		tool            = flag.String("tool", "zapier", "Tool to collect tutorials for")
		categories      = flag.String("categories", "", "Comma separated catalog categories (default: all)")
		difficulty      = flag.String("difficulty", "", "Target difficulty: beginner, intermediate, advanced")
		terms           = flag.String("terms", "", "Comma separated search terms, overriding the catalog")
		allDifficulties = flag.Bool("all-difficulties", false, "Run once per difficulty with default quotas")
		maxResults      = flag.Int("max-results", 0, "Videos requested per search term (default from MAX_VIDEOS_PER_TERM)")
		maxVideos       = flag.Int("max-videos", 0, "Stop after this many accepted videos (0 = no limit)")
		export          = flag.Bool("export", false, "Export stored videos of the tool to CSV")
		statsOnly       = flag.Bool("stats", false, "Print the stored catalog report and exit")
	)
	flag.Parse()

	// ================== Bootstrap ====================
	cfg := config.Load()
	logger := utils.NewLogger(cfg.LogMode)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, options{
		tool:            *tool,
		categories:      splitList(*categories),
		difficulty:      *difficulty,
		terms:           splitList(*terms),
		allDifficulties: *allDifficulties,
		maxResults:      *maxResults,
		maxVideos:       *maxVideos,
		export:          *export,
		statsOnly:       *statsOnly,
	}); err != nil {
		logger.Error("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}

type options struct {
	tool            string
	categories      []string
	difficulty      string
	terms           []string
	allDifficulties bool
	maxResults      int
	maxVideos       int
	export          bool
	statsOnly       bool
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger, opts options) error {
	logger.Info("Workflow Automation Tutorial Scraper")

	catalog, err := config.LoadCatalog(cfg.ToolsConfigPath)
	if err != nil {
		return fmt.Errorf("loading tool catalog: %w", err)
	}
	if _, err := catalog.Tool(opts.tool); err != nil {
		return fmt.Errorf("%w (known: %s)", err, strings.Join(catalog.ToolKeys(), ", "))
	}
	target, err := models.ParseDifficulty(opts.difficulty)
	if err != nil {
		return err
	}

	logger.Info("Tool: %s | Store: %s | Scoring: %s", opts.tool, cfg.StoreDriver, cfg.ScoringPolicy)
	logger.Info("Workers: %d | Cooldown: %dms | Retries: %d | Batch size: %d",
		cfg.MaxWorkers, cfg.RateLimitDelay, cfg.MaxRetries, cfg.BatchSize)

	// =================== Store Setup ========================================
	store, err := storage.Open(ctx, cfg, logger)
	if err != nil {
		if cfg.StoreDriver == "postgres" {
			logger.Error("Make sure PostgreSQL is running, or set STORE_DRIVER=sqlite")
		}
		return fmt.Errorf("cannot open store: %w", err)
	}
	defer store.Close()

	if opts.statsOnly {
		return report(ctx, store, opts.tool, logger)
	}

	// =================== Source Setup ========================================
	source, api, closeSource, err := buildSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	// =============== Pipeline ===================================
	scorer, err := services.NewScorer(cfg.ScoringPolicy, logger)
	if err != nil {
		return err
	}
	filter := services.NewDifficultyFilter(catalog.Filters, cfg.MinQualityScore)
	classifier := services.NewKeywordClassifier(services.DefaultClassifierConfig())

	retry := utils.DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries
	retry.AttemptTimeout = cfg.SocketTimeout

	orch := services.NewOrchestrator(catalog, source, classifier, scorer, filter, store, services.OrchestratorConfig{
		BatchSize:  cfg.BatchSize,
		Workers:    cfg.MaxWorkers,
		MaxResults: cfg.MaxVideosPerTerm,
		Cooldown:   time.Duration(cfg.RateLimitDelay) * time.Millisecond,
		Retry:      retry,
	}, logger)

	progress := func(completed, total int, term string, found int) {
		logger.Info("[%d/%d] %q: %d videos accepted", completed, total, term, found)
	}

	// =============== Scraping ===================================
	if opts.allDifficulties {
		results := orch.RunDifficulties(ctx, opts.tool, services.DefaultDifficultyQuotas(), progress)
		for _, d := range models.StorageLevels {
			if ok, ran := results[d]; ran {
				logger.Info("%s run stored videos: %t", d, ok)
			}
		}
	} else {
		ok := orch.Run(ctx, services.RunRequest{
			Tool:       opts.tool,
			Categories: opts.categories,
			Terms:      opts.terms,
			Difficulty: target,
			MaxResults: opts.maxResults,
			MaxVideos:  opts.maxVideos,
			Progress:   progress,
		})
		services.PrintRunReport(orch.Stats())
		if !ok {
			logger.Warn("No videos stored. Check your network connection, API keys or filters")
		}
	}

	if api != nil {
		logger.Info("YouTube API quota used: %d units", api.QuotaUsed())
	}

	// ========= CSV export ===========================
	if opts.export {
		videos, err := store.Query(context.WithoutCancel(ctx), storage.Filter{Tool: opts.tool}, storage.ByQuality, exportLimit, 0)
		if err != nil {
			logger.Error("Failed to read videos for export: %v", err)
		} else if err := storage.NewCSVWriter(cfg.CSVFilePath, logger).WriteVideos(videos); err != nil {
			logger.Error("Failed to write CSV: %v", err)
			// Non-fatal: the store already has the data
		}
	}

	// ==== Insights ============================
	return report(context.WithoutCancel(ctx), store, opts.tool, logger)
}

// buildSource picks the Data API when keys are configured and the browser
// otherwise, behind the result cache
func buildSource(ctx context.Context, cfg *config.Config, logger *utils.Logger) (youtube.Source, *youtube.APISource, func(), error) {
	var inner youtube.Source
	var api *youtube.APISource
	closeFn := func() {}

	if len(cfg.YouTubeAPIKeys) > 0 {
		var err error
		api, err = youtube.NewAPISource(ctx, youtube.APIConfig{
			Keys:            cfg.YouTubeAPIKeys,
			PublishedWithin: cfg.PublishedWithin,
			RequestInterval: cfg.RequestInterval,
		}, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("cannot create YouTube API source: %w", err)
		}
		inner = api
	} else {
		logger.Warn("YOUTUBE_API_KEYS not set, using the headless browser source")
		browser := youtube.NewBrowserSource(cfg.SocketTimeout, cfg.RequestInterval, logger)
		inner = browser
		closeFn = browser.Close
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		client, err := youtube.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis cache disabled: %v", err)
		} else {
			rdb = client
			prev := closeFn
			closeFn = func() {
				_ = client.Close()
				prev()
			}
		}
	}

	cached := youtube.NewCachedSource(inner, rdb, cfg.CacheTTL, logger)
	return cached, api, func() {
		hits, misses := cached.Stats()
		logger.Debug("Source cache: %d hits, %d misses", hits, misses)
		closeFn()
	}, nil
}

func report(ctx context.Context, store storage.VideoStore, tool string, logger *utils.Logger) error {
	summaries, err := store.Summary(ctx, tool)
	if err != nil {
		return fmt.Errorf("summarizing catalog: %w", err)
	}
	top, err := store.Query(ctx, storage.Filter{Tool: tool}, storage.ByQuality, 200, 0)
	if err != nil {
		return fmt.Errorf("querying catalog: %w", err)
	}
	insights := services.NewInsightService(logger)
	services.PrintInsightReport(insights.Generate(tool, top, summaries))
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
