package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"

	"github.com/chromedp/chromedp"
	ytclient "github.com/kkdai/youtube/v2"
)

const resultsURL = "https://www.youtube.com/results?sp=EgIQAQ%3D%3D&search_query="

// BrowserSource renders search result pages in headless Chrome and reads
// per-video metadata from the watch page. It needs no API key.
type BrowserSource struct {
	client      *ytclient.Client
	rateLimiter *utils.RateLimiter
	logger      *utils.Logger

	rootCtx     context.Context
	cancelRoot  context.CancelFunc
	cancelAlloc context.CancelFunc
	startOnce   sync.Once
	startErr    error
}

// NewBrowserSource starts one shared headless browser; each search opens a tab
func NewBrowserSource(timeout time.Duration, requestIntervalMs int, logger *utils.Logger) *BrowserSource {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("log-level", "3"), // suppress Chrome logs
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
		chromedp.WindowSize(1280, 900),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	rootCtx, cancelRoot := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &BrowserSource{
		client:      &ytclient.Client{HTTPClient: &http.Client{Timeout: timeout}},
		rateLimiter: utils.NewRateLimiter(requestIntervalMs),
		logger:      logger,
		rootCtx:     rootCtx,
		cancelRoot:  cancelRoot,
		cancelAlloc: cancelAlloc,
	}
}

// Close shuts the browser down
func (s *BrowserSource) Close() {
	s.cancelRoot()
	s.cancelAlloc()
}

// start launches the browser on first use so tabs share it
func (s *BrowserSource) start() error {
	s.startOnce.Do(func() {
		s.startErr = chromedp.Run(s.rootCtx)
	})
	return s.startErr
}

// resultCard is what the page script extracts per search hit
type resultCard struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Channel  string `json:"channel"`
	Duration string `json:"duration"`
	Views    string `json:"views"`
}

// Search lists the result page for term and loads details for each hit.
// Hits whose details cannot be loaded keep the card data.
func (s *BrowserSource) Search(ctx context.Context, term string, maxResults int) ([]models.RawVideo, error) {
	if err := s.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}
	cards, err := s.searchPage(ctx, term)
	if err != nil {
		return nil, err
	}
	if len(cards) > maxResults {
		cards = cards[:maxResults]
	}

	videos := make([]models.RawVideo, 0, len(cards))
	for _, c := range cards {
		v := c.toRawVideo()
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return videos, nil
		}
		if detail, err := s.FetchDetails(ctx, c.ID); err != nil {
			s.logger.Debug("Details for %s unavailable: %v", c.ID, err)
		} else {
			mergeDetails(&v, detail)
		}
		videos = append(videos, v)
	}
	return videos, nil
}

func (s *BrowserSource) searchPage(ctx context.Context, term string) ([]resultCard, error) {
	if err := s.start(); err != nil {
		return nil, utils.Permanent(fmt.Errorf("browser start: %w", err))
	}
	tabCtx, cancelTab := chromedp.NewContext(s.rootCtx)
	defer cancelTab()
	if dl, ok := ctx.Deadline(); ok {
		var cancelDl context.CancelFunc
		tabCtx, cancelDl = context.WithDeadline(tabCtx, dl)
		defer cancelDl()
	}
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var cards []resultCard
	err := chromedp.Run(tabCtx,
		chromedp.Navigate(resultsURL+url.QueryEscape(term)),
		chromedp.Sleep(3*time.Second), // give JS time to render
		chromedp.Evaluate(`
			(function() {
				var out = [];
				var seen = {};
				function text(t) {
					if (!t) return '';
					if (t.simpleText) return t.simpleText;
					if (t.runs) return t.runs.map(function(r) { return r.text; }).join('');
					return '';
				}
				function walk(node) {
					if (!node || typeof node !== 'object') return;
					var r = node.videoRenderer;
					if (r && r.videoId) {
						if (!seen[r.videoId]) {
							seen[r.videoId] = true;
							out.push({
								id: r.videoId,
								title: text(r.title),
								channel: text(r.ownerText),
								duration: text(r.lengthText),
								views: text(r.viewCountText)
							});
						}
						return;
					}
					for (var k in node) {
						if (Object.prototype.hasOwnProperty.call(node, k)) walk(node[k]);
					}
				}
				walk(window.ytInitialData);

				// fallback: rendered anchors
				if (out.length === 0) {
					document.querySelectorAll('a#video-title').forEach(function(a) {
						var m = /[?&]v=([\w-]{11})/.exec(a.href || '');
						if (m && !seen[m[1]]) {
							seen[m[1]] = true;
							out.push({id: m[1], title: (a.title || a.innerText || '').trim(), channel: '', duration: '', views: ''});
						}
					});
				}
				return out;
			})()
		`, &cards),
	)
	if err != nil {
		return nil, fmt.Errorf("results page for %q: %w", term, err)
	}
	return cards, nil
}

// FetchDetails reads the watch page metadata for id
func (s *BrowserSource) FetchDetails(ctx context.Context, id string) (*models.RawVideo, error) {
	video, err := s.client.GetVideoContext(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("video %s: %w", id, err)
	}
	if video == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	v := convertWatchVideo(video)
	return &v, nil
}

func convertWatchVideo(video *ytclient.Video) models.RawVideo {
	v := models.RawVideo{
		ID:              video.ID,
		Title:           video.Title,
		Description:     video.Description,
		DurationSeconds: int(video.Duration / time.Second),
		ViewCount:       int64(video.Views),
		ChannelName:     video.Author,
		ChannelID:       video.ChannelID,
		PublishedAt:     video.PublishDate,
	}
	var widest uint64
	for _, t := range video.Thumbnails {
		if w := uint64(t.Width); t.URL != "" && w >= widest {
			widest = w
			v.ThumbnailURL = t.URL
		}
	}
	return v
}

func (c resultCard) toRawVideo() models.RawVideo {
	return models.RawVideo{
		ID:              c.ID,
		Title:           c.Title,
		ChannelName:     c.Channel,
		DurationSeconds: parseClock(c.Duration),
		ViewCount:       parseCount(c.Views),
		ThumbnailURL:    "https://i.ytimg.com/vi/" + c.ID + "/hqdefault.jpg",
	}
}

// mergeDetails overlays non-empty watch page fields onto card data
func mergeDetails(v *models.RawVideo, d *models.RawVideo) {
	if d.Title != "" {
		v.Title = d.Title
	}
	if d.Description != "" {
		v.Description = d.Description
	}
	if d.DurationSeconds > 0 {
		v.DurationSeconds = d.DurationSeconds
	}
	if d.ViewCount > 0 {
		v.ViewCount = d.ViewCount
	}
	if d.ChannelName != "" {
		v.ChannelName = d.ChannelName
	}
	if d.ChannelID != "" {
		v.ChannelID = d.ChannelID
	}
	if !d.PublishedAt.IsZero() {
		v.PublishedAt = d.PublishedAt
	}
	if d.ThumbnailURL != "" {
		v.ThumbnailURL = d.ThumbnailURL
	}
}

// parseClock turns "1:02:03" or "12:34" into seconds
func parseClock(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	total := 0
	for _, part := range strings.Split(s, ":") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// parseCount keeps the digits of "15,234 views"
func parseCount(s string) int64 {
	var n int64
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n = n*10 + int64(r-'0')
		}
	}
	return n
}
