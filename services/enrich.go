package services

import (
	"regexp"
	"sort"
	"strings"

	"tutorial-scraper/models"
)

const maxKeywords = 10

var keywordPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(automation|workflow|integration|tutorial|guide|step by step)\b`),
	regexp.MustCompile(`\b(beginner|intermediate|advanced|basics|getting started)\b`),
	regexp.MustCompile(`\b(api|webhook|trigger|action|zap|node)\b`),
	regexp.MustCompile(`\b(setup|configuration|custom|enterprise)\b`),
}

var (
	tutorialIndicators = []string{"tutorial", "guide", "how to", "step by step", "walkthrough", "lesson"}
	codeIndicators     = []string{"code", "script", "javascript", "python", "api", "webhook", "json"}
	seriesIndicators   = []string{"part", "episode", "series", "#", "lesson"}
)

// Enrich derives keywords and content flags from the video text
func Enrich(v *models.Video, searchTerm string) {
	text := strings.ToLower(v.Title + " " + v.Description)
	v.Keywords = extractKeywords(text, searchTerm)
	v.HasTutorialContent = containsAny(text, tutorialIndicators)
	v.HasCodeExamples = containsAny(text, codeIndicators)
	v.IsSeries = containsAny(strings.ToLower(v.Title), seriesIndicators)
}

func extractKeywords(text, searchTerm string) []string {
	set := make(map[string]bool)
	for _, re := range keywordPatterns {
		for _, m := range re.FindAllString(text, -1) {
			set[m] = true
		}
	}
	for _, w := range strings.Fields(strings.ToLower(searchTerm)) {
		set[w] = true
	}

	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	if len(out) > maxKeywords {
		out = out[:maxKeywords]
	}
	return out
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
