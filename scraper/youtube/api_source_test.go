package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tutorial-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

const videosJSON = `{
  "items": [
    {
      "id": "vid1",
      "snippet": {
        "title": "n8n Tutorial for Beginners",
        "description": "Build your first workflow",
        "channelTitle": "Flow Lab",
        "channelId": "UC1",
        "publishedAt": "2024-05-01T10:00:00Z",
        "tags": ["n8n", "automation"],
        "thumbnails": {"default": {"url": "d.jpg"}, "high": {"url": "h.jpg"}}
      },
      "statistics": {"viewCount": "15000", "likeCount": "600", "commentCount": "45"},
      "contentDetails": {"duration": "PT12M30S"}
    },
    {
      "id": "vid2",
      "snippet": {"title": "n8n webhooks", "channelTitle": "Flow Lab", "channelId": "UC1"},
      "statistics": {"viewCount": "900"},
      "contentDetails": {"duration": "PT1H2M"}
    }
  ]
}`

func newTestAPISource(t *testing.T, handler http.HandlerFunc) *APISource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	src, err := NewAPISource(context.Background(), APIConfig{
		Keys:            []string{"key-a", "key-b"},
		PublishedWithin: 5,
		Options: []option.ClientOption{
			option.WithEndpoint(srv.URL + "/"),
			option.WithHTTPClient(srv.Client()),
		},
	}, utils.NewNopLogger())
	require.NoError(t, err)
	return src
}

func TestAPISourceSearch(t *testing.T) {
	var searchQuery atomic.Value
	src := newTestAPISource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/search"):
			searchQuery.Store(r.URL.RawQuery)
			fmt.Fprint(w, `{"items": [{"id": {"kind": "youtube#video", "videoId": "vid1"}}, {"id": {"kind": "youtube#video", "videoId": "vid2"}}]}`)
		case strings.HasSuffix(r.URL.Path, "/videos"):
			fmt.Fprint(w, videosJSON)
		case strings.HasSuffix(r.URL.Path, "/channels"):
			fmt.Fprint(w, `{"items": [{"id": "UC1", "statistics": {"subscriberCount": "42000"}}]}`)
		default:
			http.NotFound(w, r)
		}
	})

	videos, err := src.Search(context.Background(), "n8n tutorial", 2)
	require.NoError(t, err)
	require.Len(t, videos, 2)

	query, _ := searchQuery.Load().(string)
	assert.Contains(t, query, "videoDuration=medium")
	assert.Contains(t, query, "publishedAfter=")

	v := videos[0]
	assert.Equal(t, "vid1", v.ID)
	assert.Equal(t, "n8n Tutorial for Beginners", v.Title)
	assert.Equal(t, 750, v.DurationSeconds)
	assert.Equal(t, int64(15000), v.ViewCount)
	assert.Equal(t, int64(600), v.LikeCount)
	assert.Equal(t, int64(45), v.CommentCount)
	assert.Equal(t, int64(42000), v.ChannelFollowers)
	assert.Equal(t, "h.jpg", v.ThumbnailURL)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC), v.PublishedAt)
	assert.Equal(t, 3720, videos[1].DurationSeconds)
	assert.True(t, videos[1].PublishedAt.IsZero())

	assert.Equal(t, int64(searchQuotaCost+2*listQuotaCost), src.QuotaUsed())
}

func TestAPISourceEmptySearch(t *testing.T) {
	src := newTestAPISource(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items": []}`)
	})
	videos, err := src.Search(context.Background(), "nothing here", 5)
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestAPISourceQuotaErrorIsPermanent(t *testing.T) {
	var calls atomic.Int64
	src := newTestAPISource(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `{"error": {"code": 403, "message": "quotaExceeded"}}`)
	})

	policy := utils.RetryPolicy{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	_, err := utils.RetryWithBackoff(context.Background(), policy, utils.NewNopLogger(), func(ctx context.Context) (int, error) {
		videos, err := src.Search(ctx, "zapier", 5)
		return len(videos), err
	})
	require.Error(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestAPISourceServerErrorIsRetried(t *testing.T) {
	var calls atomic.Int64
	src := newTestAPISource(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	policy := utils.RetryPolicy{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
	_, err := utils.RetryWithBackoff(context.Background(), policy, utils.NewNopLogger(), func(ctx context.Context) (int, error) {
		videos, err := src.Search(ctx, "zapier", 5)
		return len(videos), err
	})
	require.Error(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestNewAPISourceNeedsKeys(t *testing.T) {
	_, err := NewAPISource(context.Background(), APIConfig{}, utils.NewNopLogger())
	assert.Error(t, err)
}

func TestParseISODuration(t *testing.T) {
	tests := map[string]int{
		"PT12M30S": 750,
		"PT1H":     3600,
		"PT45S":    45,
		"P1DT1S":   86401,
		"":         0,
		"12:30":    0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseISODuration(in), in)
	}
}
