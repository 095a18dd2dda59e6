package services

import (
	"bytes"
	"fmt"
	"testing"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVideos() []*models.Video {
	var videos []*models.Video
	for i, q := range []float64{55, 91, 47.5, 80, 62, 73} {
		v := models.NewVideo(models.RawVideo{
			ID:              fmt.Sprintf("v%d", i),
			Title:           fmt.Sprintf("Video %d", i),
			DurationSeconds: 300 + i*100,
			ViewCount:       1000,
		}, "zapier", "zapier")
		v.QualityScore = q
		v.Difficulty = models.StorageLevels[i%3]
		videos = append(videos, v)
	}
	return videos
}

func TestInsightsFromSample(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	report := svc.Generate("zapier", sampleVideos(), nil)

	assert.Equal(t, 6, report.TotalVideos)
	assert.Equal(t, int64(6000), report.TotalViews)
	assert.InDelta(t, 68.08, report.AverageQuality, 0.01)
	assert.Equal(t, 2, report.ByDifficulty[models.Beginner])

	require.Len(t, report.TopRated, 5)
	assert.Equal(t, 91.0, report.TopRated[0].QualityScore)
	assert.Equal(t, 55.0, report.TopRated[4].QualityScore)
	require.NotNil(t, report.Longest)
	assert.Equal(t, "v5", report.Longest.ID)
}

func TestInsightsPreferStoreSummaries(t *testing.T) {
	svc := NewInsightService(utils.NewNopLogger())
	summaries := []models.DifficultySummary{
		{Difficulty: models.Beginner, Count: 40, AverageQuality: 61.2},
		{Difficulty: models.Advanced, Count: 12, AverageQuality: 70},
	}
	report := svc.Generate("zapier", sampleVideos(), summaries)
	assert.Equal(t, 52, report.TotalVideos)
	assert.Equal(t, 40, report.ByDifficulty[models.Beginner])
	assert.Zero(t, report.ByDifficulty[models.Intermediate])
}

func TestInsightsEmpty(t *testing.T) {
	report := NewInsightService(utils.NewNopLogger()).Generate("n8n", nil, nil)
	assert.Zero(t, report.TotalVideos)
	assert.Nil(t, report.Longest)
	assert.Empty(t, report.TopRated)
}

func TestWriteReports(t *testing.T) {
	var buf bytes.Buffer
	report := NewInsightService(utils.NewNopLogger()).Generate("zapier", sampleVideos(), nil)
	WriteInsightReport(&buf, report)
	out := buf.String()
	assert.Contains(t, out, "TUTORIAL CATALOG INSIGHTS")
	assert.Contains(t, out, "beginner:")
	assert.Contains(t, out, "Video 1")

	buf.Reset()
	stats := models.NewRunStatistics("zapier")
	stats.Inserted.Add(42)
	stats.Finish()
	WriteRunReport(&buf, stats.Snapshot())
	assert.Contains(t, buf.String(), "SCRAPING RUN ZAPIER")
	assert.Contains(t, buf.String(), ": 42")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
