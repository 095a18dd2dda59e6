package services

import (
	"testing"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanNormalizes(t *testing.T) {
	c := NewDataCleaner(utils.NewNopLogger())
	c.now = func() time.Time { return fixedNow }

	tags := make([]string, 15)
	for i := range tags {
		tags[i] = "t"
	}
	v := models.NewVideo(models.RawVideo{
		ID:              " abc ",
		Title:           "  Zapier basics  ",
		DurationSeconds: -5,
		ViewCount:       -1,
		LikeCount:       -2,
		Tags:            tags,
	}, "zapier basics", "zapier")
	v.Difficulty = models.Expert

	out := c.Clean([]*models.Video{v, nil, models.NewVideo(models.RawVideo{ID: "  "}, "", "")})
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "Zapier basics", got.Title)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", got.URL)
	assert.Equal(t, "Unknown", got.ChannelName)
	assert.Zero(t, got.DurationSeconds)
	assert.Zero(t, got.ViewCount)
	assert.Zero(t, got.LikeCount)
	assert.Equal(t, models.Advanced, got.Difficulty)
	assert.Len(t, got.Tags, 10)
	assert.NotNil(t, got.Keywords)
	assert.Equal(t, Fingerprint("abc", "Zapier basics"), got.ContentHash)
	assert.Equal(t, fixedNow, got.PublishedAt)
	assert.Equal(t, fixedNow, got.ScrapedAt)
}

func TestCleanDefaultsDifficulty(t *testing.T) {
	c := NewDataCleaner(utils.NewNopLogger())
	v := models.NewVideo(models.RawVideo{ID: "x", Title: "Some title"}, "", "n8n")
	v.Difficulty = "guru"

	out := c.Clean([]*models.Video{v})
	require.Len(t, out, 1)
	assert.Equal(t, models.Intermediate, out[0].Difficulty)
}

func TestCleanKeepsKnownValues(t *testing.T) {
	c := NewDataCleaner(utils.NewNopLogger())
	published := fixedNow.AddDate(-1, 0, 0)
	v := models.NewVideo(models.RawVideo{
		ID:          "keep",
		Title:       "Keep me",
		ChannelName: "Automation Academy",
		PublishedAt: published,
	}, "", "zapier")
	v.Difficulty = models.Beginner
	v.ContentHash = "precomputed"

	out := c.Clean([]*models.Video{v})
	require.Len(t, out, 1)
	assert.Equal(t, "Automation Academy", out[0].ChannelName)
	assert.Equal(t, published, out[0].PublishedAt)
	assert.Equal(t, models.Beginner, out[0].Difficulty)
	assert.Equal(t, "precomputed", out[0].ContentHash)
}
