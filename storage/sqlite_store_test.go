package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "db", "videos.db"), utils.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func storedVideo(id string, d models.Difficulty, quality float64) *models.Video {
	v := models.NewVideo(models.RawVideo{
		ID:              id,
		Title:           "Video " + id,
		Description:     "About " + id,
		DurationSeconds: 600,
		ViewCount:       1000,
		ChannelName:     "Flow Lab",
		PublishedAt:     baseTime.AddDate(0, -2, 0),
		ThumbnailURL:    "https://i.ytimg.com/vi/" + id + "/hqdefault.jpg",
		Tags:            []string{"n8n", "automation"},
	}, "n8n tutorial", "n8n")
	v.URL = models.WatchURL(id)
	v.Difficulty = d
	v.QualityScore = quality
	v.ClassificationConfidence = 0.75
	v.ContentHash = "hash-" + id
	v.Keywords = []string{"n8n", "tutorial"}
	v.HasTutorialContent = true
	v.ScrapedAt = baseTime
	return v
}

func TestSQLiteUpsertPreservesFirstSeen(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	n, err := store.UpsertBatch(ctx, []*models.Video{storedVideo("a", models.Beginner, 60)})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	updated := storedVideo("a", models.Beginner, 72.5)
	updated.Title = "Video a (remastered)"
	updated.ScrapedAt = baseTime.Add(24 * time.Hour)
	n, err = store.UpsertBatch(ctx, []*models.Video{updated})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := store.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	videos, err := store.Query(ctx, Filter{}, ByQuality, 10, 0)
	require.NoError(t, err)
	require.Len(t, videos, 1)

	got := videos[0]
	assert.Equal(t, "Video a (remastered)", got.Title)
	assert.Equal(t, 72.5, got.QualityScore)
	assert.True(t, baseTime.Equal(got.FirstSeenAt))
	assert.True(t, updated.ScrapedAt.Equal(got.ScrapedAt))
	assert.Equal(t, []string{"n8n", "tutorial"}, got.Keywords)
	assert.Equal(t, []string{"n8n", "automation"}, got.Tags)
	assert.True(t, got.HasTutorialContent)
	assert.False(t, got.IsSeries)
	assert.Equal(t, models.Beginner, got.Difficulty)
	assert.Equal(t, 600, got.DurationSeconds)
}

func TestSQLiteBatchRollsBack(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	batch := []*models.Video{
		storedVideo("ok1", models.Beginner, 50),
		storedVideo("bad", models.Expert, 50), // rejected by the CHECK constraint
		storedVideo("ok2", models.Advanced, 50),
	}
	_, err := store.UpsertBatch(ctx, batch)
	require.Error(t, err)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "bad", be.VideoID)

	count, err := store.Count(ctx, Filter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSQLiteQueryFilters(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	var batch []*models.Video
	for i, d := range []models.Difficulty{models.Beginner, models.Beginner, models.Intermediate, models.Advanced} {
		v := storedVideo(fmt.Sprintf("v%d", i), d, float64(40+i*10))
		v.ViewCount = int64(100 * (4 - i))
		batch = append(batch, v)
	}
	other := storedVideo("z1", models.Beginner, 99)
	other.Tool = "zapier"
	batch = append(batch, other)

	n, err := store.UpsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	count, err := store.Count(ctx, Filter{Tool: "N8N"})
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	count, err = store.Count(ctx, Filter{Tool: "n8n", Difficulty: models.Beginner})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// expert queries the folded level
	count, err = store.Count(ctx, Filter{Difficulty: models.Expert})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.Count(ctx, Filter{MinQuality: 55})
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	byQuality, err := store.Query(ctx, Filter{Tool: "n8n"}, ByQuality, 2, 0)
	require.NoError(t, err)
	require.Len(t, byQuality, 2)
	assert.Equal(t, "v3", byQuality[0].ID)
	assert.Equal(t, "v2", byQuality[1].ID)

	page2, err := store.Query(ctx, Filter{Tool: "n8n"}, ByQuality, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.Equal(t, "v1", page2[0].ID)

	byViews, err := store.Query(ctx, Filter{Tool: "n8n"}, ByViews, 1, 0)
	require.NoError(t, err)
	require.Len(t, byViews, 1)
	assert.Equal(t, "v0", byViews[0].ID)
}

func TestSQLiteSummary(t *testing.T) {
	store := newTestSQLite(t)
	ctx := context.Background()

	_, err := store.UpsertBatch(ctx, []*models.Video{
		storedVideo("b1", models.Beginner, 50),
		storedVideo("b2", models.Beginner, 70),
		storedVideo("a1", models.Advanced, 90),
	})
	require.NoError(t, err)

	summaries, err := store.Summary(ctx, "n8n")
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, models.Advanced, summaries[0].Difficulty)
	assert.Equal(t, 1, summaries[0].Count)
	assert.Equal(t, models.Beginner, summaries[1].Difficulty)
	assert.Equal(t, 2, summaries[1].Count)
	assert.InDelta(t, 60.0, summaries[1].AverageQuality, 1e-9)

	empty, err := store.Summary(ctx, "zapier")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteEmptyBatch(t *testing.T) {
	store := newTestSQLite(t)
	n, err := store.UpsertBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}
