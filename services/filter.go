package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"tutorial-scraper/config"
	"tutorial-scraper/models"
)

// DefaultQualityFloor is kept low so valid results are not starved
const DefaultQualityFloor = 40.0

// DifficultyFilter is the per-difficulty acceptance gate
type DifficultyFilter struct {
	rules            map[models.Difficulty]config.FilterRule
	advancedContexts []string
	spamKeywords     []string
	minTitleLength   int
	qualityFloor     float64
}

// NewDifficultyFilter builds a filter from the catalog's filter section
func NewDifficultyFilter(f config.Filters, qualityFloor float64) *DifficultyFilter {
	rules := make(map[models.Difficulty]config.FilterRule, len(f.Levels))
	for d, r := range f.Levels {
		rules[d] = config.FilterRule{
			MinDuration: r.MinDuration,
			MaxDuration: r.MaxDuration,
			MinViews:    r.MinViews,
			Keywords:    lowerAll(r.Keywords),
			Exclude:     lowerAll(r.Exclude),
		}
	}
	return &DifficultyFilter{
		rules:            rules,
		advancedContexts: lowerAll(f.AdvancedContexts),
		spamKeywords:     lowerAll(f.SpamKeywords),
		minTitleLength:   f.MinTitleLength,
		qualityFloor:     qualityFloor,
	}
}

// QualityFloor returns the minimum accepted quality score
func (f *DifficultyFilter) QualityFloor() float64 {
	return f.qualityFloor
}

// Accepts reports whether v passes every rule for difficulty d
func (f *DifficultyFilter) Accepts(v *models.Video, d models.Difficulty) bool {
	ok, _ := f.Evaluate(v, d)
	return ok
}

// Evaluate is Accepts with the reason for a rejection
func (f *DifficultyFilter) Evaluate(v *models.Video, d models.Difficulty) (bool, string) {
	title := strings.ToLower(v.Title)
	if n := utf8.RuneCountInString(strings.TrimSpace(v.Title)); n < f.minTitleLength {
		return false, fmt.Sprintf("title too short (%d chars)", n)
	}
	for _, spam := range f.spamKeywords {
		if strings.Contains(title, spam) {
			return false, fmt.Sprintf("spam phrase %q", spam)
		}
	}

	if rule, ok := f.rules[d.Storage()]; ok {
		if v.DurationSeconds < rule.MinDuration || v.DurationSeconds > rule.MaxDuration {
			return false, fmt.Sprintf("duration %ds outside %d-%ds", v.DurationSeconds, rule.MinDuration, rule.MaxDuration)
		}
		if v.ViewCount < rule.MinViews {
			return false, fmt.Sprintf("%d views below %d", v.ViewCount, rule.MinViews)
		}

		text := title + " " + strings.ToLower(v.Description)
		if len(rule.Keywords) > 0 && firstMatch(text, rule.Keywords) == "" {
			return false, "no required keyword"
		}
		if ex := firstMatch(text, rule.Exclude); ex != "" {
			if adv := firstMatch(text, f.advancedContexts); adv != "" {
				return false, fmt.Sprintf("excluded keyword %q in %q context", ex, adv)
			}
		}
	}

	if v.QualityScore < f.qualityFloor {
		return false, fmt.Sprintf("quality %.2f below %.2f", v.QualityScore, f.qualityFloor)
	}
	return true, ""
}

func firstMatch(text string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
