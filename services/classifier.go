package services

import (
	"strings"

	"tutorial-scraper/models"
)

// Classification is the outcome of classifying one video
type Classification struct {
	Difficulty models.Difficulty
	Confidence float64
	Scores     map[models.Difficulty]float64
}

// Classifier assigns a difficulty to a video
type Classifier interface {
	Classify(v *models.RawVideo) Classification
}

// LevelProfile describes the signals of one difficulty level
type LevelProfile struct {
	Level       models.Difficulty
	Strong      []string
	Medium      []string
	MinDuration int // seconds
	MaxDuration int
}

// ClassifierConfig holds the keyword tables and weights
type ClassifierConfig struct {
	Levels            []LevelProfile // tie-break order
	StrongWeight      float64
	MediumWeight      float64
	TitleWeight       float64
	DescriptionWeight float64
	DurationWeight    float64
}

// DefaultClassifierConfig returns a fresh copy of the built-in tables
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		Levels: []LevelProfile{
			{
				Level: models.Beginner,
				Strong: []string{
					"beginner", "beginners", "for beginners", "absolute beginner", "getting started",
					"intro", "introduction", "basics", "basic", "fundamentals", "tutorial", "guide",
					"walkthrough", "step by step", "easy", "simple", "quick start", "101",
					"crash course", "from scratch", "zero to",
				},
				Medium: []string{
					"learn", "how to", "start", "first", "new to", "understand", "explained",
					"overview", "demo",
				},
				MinDuration: 300,
				MaxDuration: 1200,
			},
			{
				Level: models.Intermediate,
				Strong: []string{
					"intermediate", "workflow", "automation", "integration", "project", "build",
					"create", "practical", "real world", "use case", "example", "hands on",
					"building", "implementing", "working with",
				},
				Medium: []string{
					"setup", "configure", "connect", "sync", "process", "manage", "organize", "automate",
				},
				MinDuration: 900,
				MaxDuration: 2400,
			},
			{
				Level: models.Advanced,
				Strong: []string{
					"advanced", "complex", "custom", "api", "webhook", "code", "coding",
					"programming", "developer", "javascript", "python", "technical", "development",
					"professional", "expert level", "deep dive",
				},
				Medium: []string{
					"optimization", "performance", "scaling", "architecture", "patterns",
					"best practices", "troubleshooting",
				},
				MinDuration: 1500,
				MaxDuration: 3600,
			},
			{
				Level: models.Expert,
				Strong: []string{
					"expert", "enterprise", "production", "architecture", "scalability",
					"optimization", "advanced optimization", "system design", "microservices",
					"infrastructure",
				},
				Medium: []string{
					"security", "deployment", "ci/cd", "devops", "kubernetes", "docker compose",
				},
				MinDuration: 2400,
				MaxDuration: 7200,
			},
		},
		StrongWeight:      2.0,
		MediumWeight:      1.0,
		TitleWeight:       0.6,
		DescriptionWeight: 0.25,
		DurationWeight:    0.15,
	}
}

// KeywordClassifier scores text and duration against per-level tables
type KeywordClassifier struct {
	cfg ClassifierConfig
}

// NewKeywordClassifier creates a classifier from cfg
func NewKeywordClassifier(cfg ClassifierConfig) *KeywordClassifier {
	return &KeywordClassifier{cfg: cfg}
}

// Classify returns the best matching level. Pure and deterministic.
func (c *KeywordClassifier) Classify(v *models.RawVideo) Classification {
	var title, desc string
	var duration int
	if v != nil {
		title = strings.ToLower(v.Title)
		desc = strings.ToLower(v.Description)
		duration = v.DurationSeconds
	}

	scores := make(map[models.Difficulty]float64, len(c.cfg.Levels))
	var total float64
	best := Classification{Scores: scores}
	bestScore := -1.0

	for _, p := range c.cfg.Levels {
		score := c.keywordScore(title, p)*c.cfg.TitleWeight +
			c.keywordScore(desc, p)*c.cfg.DescriptionWeight +
			durationScore(duration, p.MinDuration, p.MaxDuration)*c.cfg.DurationWeight
		scores[p.Level] = score
		total += score
		if score > bestScore {
			bestScore = score
			best.Difficulty = p.Level
		}
	}

	if total > 0 {
		best.Confidence = bestScore / total
	}
	return best
}

// ClassifyBatch annotates each video in place, keeping order
func (c *KeywordClassifier) ClassifyBatch(videos []*models.Video) []*models.Video {
	for _, v := range videos {
		Annotate(v, c.Classify(&v.RawVideo))
	}
	return videos
}

// Annotate copies a classification onto a video
func Annotate(v *models.Video, cl Classification) {
	v.Difficulty = cl.Difficulty
	v.ClassificationConfidence = cl.Confidence
	v.ClassificationScores = cl.Scores
}

func (c *KeywordClassifier) keywordScore(text string, p LevelProfile) float64 {
	if text == "" {
		return 0
	}
	var score float64
	for _, kw := range p.Strong {
		if strings.Contains(text, kw) {
			score += c.cfg.StrongWeight
		}
	}
	for _, kw := range p.Medium {
		if strings.Contains(text, kw) {
			score += c.cfg.MediumWeight
		}
	}
	return score
}

// durationScore gives full credit inside [lo,hi] and linear partial credit outside
func durationScore(duration, lo, hi int) float64 {
	switch {
	case duration >= lo && duration <= hi:
		return 2.0
	case duration < lo:
		if lo <= 0 {
			return 0
		}
		return float64(duration) / float64(lo)
	default:
		if duration <= 0 {
			return 0
		}
		return float64(hi) / float64(duration)
	}
}
