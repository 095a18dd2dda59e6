package services

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"
)

const (
	PolicyComposite = "composite"
	PolicyHeuristic = "heuristic"

	neutralScore = 50.0
)

// ErrUnknownPolicy is returned by NewScorer for an unsupported policy name
var ErrUnknownPolicy = errors.New("unknown scoring policy")

// Scorer rates a video between 0 and 100 and records the breakdown on it
type Scorer interface {
	Score(v *models.Video, searchTerm string) float64
}

// NewScorer returns the scoring strategy named by policy
func NewScorer(policy string, logger *utils.Logger) (Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(policy)) {
	case "", PolicyComposite:
		return NewCompositeScorer(logger), nil
	case PolicyHeuristic:
		return NewHeuristicScorer(logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, policy)
	}
}

// CompositeScorer blends five 0-100 sub-scores with fixed weights
type CompositeScorer struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewCompositeScorer creates a CompositeScorer
func NewCompositeScorer(logger *utils.Logger) *CompositeScorer {
	return &CompositeScorer{logger: logger, now: time.Now}
}

// Score never panics; failures score 50
func (s *CompositeScorer) Score(v *models.Video, searchTerm string) (score float64) {
	defer recoverScore(s.logger, v, &score)

	b := models.QualityBreakdown{
		Engagement: clamp(engagementScore(v)),
		Content:    clamp(contentScore(v)),
		Creator:    neutralScore,
		Relevance:  clamp(relevanceScore(v, searchTerm)),
		Freshness:  clamp(freshnessScore(v.PublishedAt, s.now())),
	}
	score = b.Engagement*0.30 + b.Content*0.25 + b.Creator*0.20 + b.Relevance*0.15 + b.Freshness*0.10
	return finish(s.logger, v, b, score)
}

func engagementScore(v *models.Video) float64 {
	views := float64(v.ViewCount)
	likes := float64(v.LikeCount)
	comments := float64(v.CommentCount)

	score := math.Min(40, views/1000*2)
	if views > 0 {
		score += math.Min(30, likes/views*100*10)
		score += math.Min(10, (likes+comments)/views*100*5)
	}
	score += math.Min(20, comments/10)
	return score
}

func contentScore(v *models.Video) float64 {
	var score float64

	d := v.DurationSeconds
	switch {
	case d >= 600 && d <= 1800:
		score += 40
	case d >= 300 && d <= 2400:
		score += 30
	case d < 300:
		score += 10
	default:
		score += 20
	}

	switch n := utf8.RuneCountInString(v.Description); {
	case n > 500:
		score += 30
	case n > 200:
		score += 20
	case n > 50:
		score += 10
	default:
		score += 5
	}

	switch n := utf8.RuneCountInString(v.Title); {
	case n >= 30 && n <= 70:
		score += 30
	case n >= 20 && n <= 100:
		score += 20
	default:
		score += 10
	}
	return score
}

func relevanceScore(v *models.Video, searchTerm string) float64 {
	term := strings.ToLower(strings.TrimSpace(searchTerm))
	if term == "" {
		return neutralScore
	}
	title := strings.ToLower(v.Title)
	desc := strings.ToLower(v.Description)

	var score float64
	if strings.Contains(title, term) {
		score += 50
	}
	words := strings.Fields(term)
	matched := 0
	for _, w := range words {
		if strings.Contains(title, w) {
			matched++
		}
	}
	score += float64(matched) / float64(len(words)) * 25
	if strings.Contains(desc, term) {
		score += 25
	}
	return math.Min(100, score)
}

func freshnessScore(published, now time.Time) float64 {
	if published.IsZero() {
		return neutralScore
	}
	days := now.Sub(published).Hours() / 24
	switch {
	case days <= 90:
		return 100
	case days <= 180:
		return 90
	case days <= 365:
		return 80
	case days <= 730:
		return 60
	case days <= 1095:
		return 40
	default:
		return 20
	}
}

var titleQualityIndicators = []string{"tutorial", "guide", "step by step", "complete", "comprehensive"}

// HeuristicScorer sums engagement, content, creator, relevance and
// freshness points directly, capped at 100. It is the cheaper formula used
// while searching and does not agree numerically with CompositeScorer.
type HeuristicScorer struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewHeuristicScorer creates a HeuristicScorer
func NewHeuristicScorer(logger *utils.Logger) *HeuristicScorer {
	return &HeuristicScorer{logger: logger, now: time.Now}
}

func (s *HeuristicScorer) Score(v *models.Video, searchTerm string) (score float64) {
	defer recoverScore(s.logger, v, &score)

	var b models.QualityBreakdown

	if v.ViewCount > 0 {
		rate := float64(v.LikeCount+2*v.CommentCount) / float64(v.ViewCount) * 1000
		b.Engagement = math.Min(25, rate)
	}

	title := strings.ToLower(v.Title)
	for _, ind := range titleQualityIndicators {
		if strings.Contains(title, ind) {
			b.Content += 5
		}
	}
	if utf8.RuneCountInString(v.Description) > 200 {
		b.Content += 5
	}

	switch {
	case v.ChannelFollowers > 10000:
		b.Creator = 10
	case v.ChannelFollowers > 1000:
		b.Creator = 5
	}

	titleWords := make(map[string]bool)
	for _, w := range strings.Fields(title) {
		titleWords[w] = true
	}
	for _, w := range strings.Fields(strings.ToLower(searchTerm)) {
		if titleWords[w] {
			b.Relevance += 3
		}
	}

	if !v.PublishedAt.IsZero() {
		days := s.now().Sub(v.PublishedAt).Hours() / 24
		if days < 365 {
			b.Freshness = math.Min(10, 10-days/36.5)
		}
	}

	score = math.Min(100, b.Engagement+b.Content+b.Creator+b.Relevance+b.Freshness)
	return finish(s.logger, v, b, score)
}

func finish(logger *utils.Logger, v *models.Video, b models.QualityBreakdown, score float64) float64 {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		logger.Warn("Quality score for %s is not a number, using %.0f", v.ID, neutralScore)
		score = neutralScore
	}
	score = math.Round(clamp(score)*100) / 100
	v.QualityScore = score
	v.QualityBreakdown = b
	return score
}

func recoverScore(logger *utils.Logger, v *models.Video, score *float64) {
	if r := recover(); r != nil {
		id := "<nil>"
		if v != nil {
			id = v.ID
			v.QualityScore = neutralScore
		}
		logger.Error("Quality scoring failed for %s: %v", id, r)
		*score = neutralScore
	}
}

func clamp(x float64) float64 {
	return math.Max(0, math.Min(100, x))
}
