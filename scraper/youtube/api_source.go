package youtube

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"sync/atomic"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

const (
	searchQuotaCost = 100
	listQuotaCost   = 1
	maxPageSize     = 50
)

// APIConfig configures the Data API source
type APIConfig struct {
	Keys            []string
	PublishedWithin int // years; 0 disables the publishedAfter filter
	RequestInterval int // milliseconds
	Options         []option.ClientOption
}

// APISource searches through the YouTube Data API v3, rotating API keys
type APISource struct {
	services       []*ytapi.Service
	next           atomic.Uint64
	quotaUsed      atomic.Int64
	publishedYears int
	rateLimiter    *utils.RateLimiter
	logger         *utils.Logger
}

// NewAPISource creates one API client per key
func NewAPISource(ctx context.Context, cfg APIConfig, logger *utils.Logger) (*APISource, error) {
	if len(cfg.Keys) == 0 {
		return nil, errors.New("youtube api source needs at least one API key")
	}
	s := &APISource{
		publishedYears: cfg.PublishedWithin,
		rateLimiter:    utils.NewRateLimiter(cfg.RequestInterval),
		logger:         logger,
	}
	for i, key := range cfg.Keys {
		opts := append([]option.ClientOption{option.WithAPIKey(key)}, cfg.Options...)
		svc, err := ytapi.NewService(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create youtube service for key #%d: %w", i+1, err)
		}
		s.services = append(s.services, svc)
	}
	logger.Info("YouTube Data API source ready (%d keys)", len(s.services))
	return s, nil
}

// QuotaUsed returns the quota units spent so far
func (s *APISource) QuotaUsed() int64 {
	return s.quotaUsed.Load()
}

func (s *APISource) service() *ytapi.Service {
	i := s.next.Add(1) - 1
	return s.services[i%uint64(len(s.services))]
}

// Search finds up to maxResults medium-length videos for term
func (s *APISource) Search(ctx context.Context, term string, maxResults int) ([]models.RawVideo, error) {
	var ids []string
	pageToken := ""
	for len(ids) < maxResults {
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		call := s.service().Search.List([]string{"id"}).
			Q(term).
			Type("video").
			Order("relevance").
			VideoDuration("medium").
			MaxResults(int64(min(maxPageSize, maxResults-len(ids)))).
			Context(ctx)
		if s.publishedYears > 0 {
			call = call.PublishedAfter(time.Now().AddDate(-s.publishedYears, 0, 0).UTC().Format(time.RFC3339))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		s.quotaUsed.Add(searchQuotaCost)
		if err != nil {
			return nil, classifyAPIError(err)
		}
		for _, item := range resp.Items {
			if item.Id != nil && item.Id.VideoId != "" {
				ids = append(ids, item.Id.VideoId)
			}
		}
		pageToken = resp.NextPageToken
		if pageToken == "" || len(resp.Items) == 0 {
			break
		}
	}

	if len(ids) == 0 {
		return nil, nil
	}
	return s.videos(ctx, ids)
}

// FetchDetails loads one video by id
func (s *APISource) FetchDetails(ctx context.Context, id string) (*models.RawVideo, error) {
	videos, err := s.videos(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(videos) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return &videos[0], nil
}

func (s *APISource) videos(ctx context.Context, ids []string) ([]models.RawVideo, error) {
	var out []models.RawVideo
	for start := 0; start < len(ids); start += maxPageSize {
		chunk := ids[start:min(start+maxPageSize, len(ids))]
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := s.service().Videos.List([]string{"snippet", "statistics", "contentDetails"}).
			Id(chunk...).
			Context(ctx).
			Do()
		s.quotaUsed.Add(listQuotaCost)
		if err != nil {
			return nil, classifyAPIError(err)
		}
		for _, item := range resp.Items {
			out = append(out, convertAPIVideo(item))
		}
	}
	s.attachFollowers(ctx, out)
	return out, nil
}

// attachFollowers fills channel subscriber counts. Failures only cost the
// creator signal, so they are logged and ignored.
func (s *APISource) attachFollowers(ctx context.Context, videos []models.RawVideo) {
	seen := make(map[string]bool)
	var channelIDs []string
	for _, v := range videos {
		if v.ChannelID != "" && !seen[v.ChannelID] {
			seen[v.ChannelID] = true
			channelIDs = append(channelIDs, v.ChannelID)
		}
	}

	followers := make(map[string]int64, len(channelIDs))
	for start := 0; start < len(channelIDs); start += maxPageSize {
		chunk := channelIDs[start:min(start+maxPageSize, len(channelIDs))]
		if err := s.rateLimiter.Wait(ctx); err != nil {
			return
		}
		resp, err := s.service().Channels.List([]string{"statistics"}).Id(chunk...).Context(ctx).Do()
		s.quotaUsed.Add(listQuotaCost)
		if err != nil {
			s.logger.Warn("Channel statistics lookup failed: %v", err)
			return
		}
		for _, ch := range resp.Items {
			if ch.Statistics != nil {
				followers[ch.Id] = int64(ch.Statistics.SubscriberCount)
			}
		}
	}
	for i := range videos {
		videos[i].ChannelFollowers = followers[videos[i].ChannelID]
	}
}

func convertAPIVideo(item *ytapi.Video) models.RawVideo {
	v := models.RawVideo{ID: item.Id}
	if sn := item.Snippet; sn != nil {
		v.Title = sn.Title
		v.Description = sn.Description
		v.ChannelName = sn.ChannelTitle
		v.ChannelID = sn.ChannelId
		v.PublishedAt = models.ParsePublished(sn.PublishedAt)
		v.Tags = sn.Tags
		if th := sn.Thumbnails; th != nil {
			for _, t := range []*ytapi.Thumbnail{th.High, th.Medium, th.Default} {
				if t != nil && t.Url != "" {
					v.ThumbnailURL = t.Url
					break
				}
			}
		}
	}
	if st := item.Statistics; st != nil {
		v.ViewCount = int64(st.ViewCount)
		v.LikeCount = int64(st.LikeCount)
		v.CommentCount = int64(st.CommentCount)
	}
	if cd := item.ContentDetails; cd != nil {
		v.DurationSeconds = parseISODuration(cd.Duration)
	}
	return v
}

var isoDurationRe = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// parseISODuration converts PT#H#M#S into seconds, 0 when malformed
func parseISODuration(s string) int {
	m := isoDurationRe.FindStringSubmatch(s)
	if m == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}

// classifyAPIError marks quota and credential failures as permanent
func classifyAPIError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 400, 401, 403, 404:
			return utils.Permanent(fmt.Errorf("youtube api: %w", err))
		}
	}
	return fmt.Errorf("youtube api: %w", err)
}
