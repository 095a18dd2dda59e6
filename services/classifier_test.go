package services

import (
	"testing"

	"tutorial-scraper/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beginnerRaw() *models.RawVideo {
	return &models.RawVideo{
		ID:              "zap123",
		Title:           "Zapier Tutorial for Beginners",
		Description:     "Learn how to get started with Zapier in this beginner friendly guide.",
		DurationSeconds: 600,
		ViewCount:       50000,
		LikeCount:       2500,
		CommentCount:    300,
	}
}

func TestClassifyBeginnerTutorial(t *testing.T) {
	c := NewKeywordClassifier(DefaultClassifierConfig())
	cl := c.Classify(beginnerRaw())

	assert.Equal(t, models.Beginner, cl.Difficulty)
	assert.Greater(t, cl.Confidence, 0.5)
	assert.LessOrEqual(t, cl.Confidence, 1.0)
	assert.Len(t, cl.Scores, len(models.Levels))
}

func TestClassifyAllZeroScores(t *testing.T) {
	c := NewKeywordClassifier(DefaultClassifierConfig())
	cl := c.Classify(&models.RawVideo{ID: "x", Title: "zzz qqq"})

	assert.Equal(t, 0.0, cl.Confidence)
	// ties go to the first level
	assert.Equal(t, models.Beginner, cl.Difficulty)

	cl = c.Classify(nil)
	assert.Equal(t, 0.0, cl.Confidence)
}

func TestClassifyLevels(t *testing.T) {
	c := NewKeywordClassifier(DefaultClassifierConfig())
	tests := []struct {
		name     string
		title    string
		desc     string
		duration int
		want     models.Difficulty
	}{
		{
			name:     "intermediate workflow",
			title:    "Build a Practical Slack Integration Workflow",
			desc:     "A real world use case: connect and sync your project data.",
			duration: 1500,
			want:     models.Intermediate,
		},
		{
			name:     "advanced webhooks",
			title:    "Advanced Webhook Coding with JavaScript",
			desc:     "Custom API programming deep dive for developers.",
			duration: 2000,
			want:     models.Advanced,
		},
		{
			name:     "expert architecture",
			title:    "Enterprise Production Infrastructure and System Design",
			desc:     "Microservices, scalability, kubernetes and ci/cd deployment.",
			duration: 3600,
			want:     models.Expert,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := c.Classify(&models.RawVideo{Title: tt.title, Description: tt.desc, DurationSeconds: tt.duration})
			assert.Equal(t, tt.want, cl.Difficulty)
			assert.GreaterOrEqual(t, cl.Confidence, 0.0)
			assert.LessOrEqual(t, cl.Confidence, 1.0)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewKeywordClassifier(DefaultClassifierConfig())
	first := c.Classify(beginnerRaw())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Classify(beginnerRaw()))
	}
}

func TestClassifyBatchAnnotates(t *testing.T) {
	c := NewKeywordClassifier(DefaultClassifierConfig())
	videos := []*models.Video{models.NewVideo(*beginnerRaw(), "zapier tutorial", "zapier")}
	out := c.ClassifyBatch(videos)
	require.Len(t, out, 1)
	assert.Equal(t, models.Beginner, out[0].Difficulty)
	assert.NotEmpty(t, out[0].ClassificationScores)
}

func TestDurationScore(t *testing.T) {
	assert.Equal(t, 2.0, durationScore(600, 300, 1200))
	assert.InDelta(t, 0.5, durationScore(150, 300, 1200), 1e-9)
	assert.InDelta(t, 0.5, durationScore(2400, 300, 1200), 1e-9)
	assert.Equal(t, 0.0, durationScore(0, 300, 1200))
}
