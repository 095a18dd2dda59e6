package services

import (
	"sort"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"
)

const topRatedCount = 5

// InsightService computes analytics over stored videos
type InsightService struct {
	logger *utils.Logger
}

// NewInsightService creates a new InsightService
func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate builds a catalog report from videos and per-difficulty summaries
func (s *InsightService) Generate(tool string, videos []*models.Video, summaries []models.DifficultySummary) *models.CatalogReport {
	report := &models.CatalogReport{
		Tool:         tool,
		ByDifficulty: make(map[models.Difficulty]int),
		Summaries:    summaries,
	}

	for _, sum := range summaries {
		report.ByDifficulty[sum.Difficulty] = sum.Count
		report.TotalVideos += sum.Count
	}

	if len(videos) == 0 {
		s.logger.Warn("No videos to generate insights from")
		return report
	}

	var totalQuality float64
	for _, v := range videos {
		totalQuality += v.QualityScore
		report.TotalViews += v.ViewCount
		if report.Longest == nil || v.DurationSeconds > report.Longest.DurationSeconds {
			report.Longest = v
		}
	}
	report.AverageQuality = totalQuality / float64(len(videos))

	// summaries come from the store; fall back to the sample when it had none
	if len(summaries) == 0 {
		for _, v := range videos {
			report.ByDifficulty[v.Difficulty]++
		}
		report.TotalVideos = len(videos)
	}

	rated := make([]*models.Video, len(videos))
	copy(rated, videos)
	sort.SliceStable(rated, func(i, j int) bool {
		return rated[i].QualityScore > rated[j].QualityScore
	})
	report.TopRated = rated[:min(topRatedCount, len(rated))]

	return report
}
