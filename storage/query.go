package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"tutorial-scraper/models"
)

// placeholder renders the n-th bind parameter (1-based) for a dialect
type placeholder func(n int) string

func dollar(n int) string { return fmt.Sprintf("$%d", n) }
func question(int) string { return "?" }

// whereClause builds the WHERE part of a filtered query
func whereClause(f Filter, ph placeholder) (string, []interface{}) {
	var conds []string
	var args []interface{}

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, ph(len(args))))
	}
	if f.Tool != "" {
		add("tool = %s", strings.ToLower(f.Tool))
	}
	if f.Difficulty != "" {
		add("difficulty = %s", string(f.Difficulty.Storage()))
	}
	if f.MinQuality > 0 {
		add("quality_score >= %s", f.MinQuality)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(o Order) string {
	switch o {
	case ByNewest:
		return " ORDER BY scraped_at DESC, video_id"
	case ByViews:
		return " ORDER BY view_count DESC, video_id"
	case ByPublished:
		return " ORDER BY published_at DESC, video_id"
	default:
		return " ORDER BY quality_score DESC, video_id"
	}
}

// videoColumns is the select list shared by both dialects
const videoColumns = `video_id, video_url, title, description, thumbnail_url, channel, channel_id,
	channel_followers, duration, view_count, like_count, comment_count, difficulty, tool,
	search_query, quality_score, classification_confidence, content_hash, keywords, tags,
	has_tutorial_content, has_code_examples, is_series, published_at, first_seen_at, scraped_at`

func scanSummaries(rows *sql.Rows) ([]models.DifficultySummary, error) {
	var out []models.DifficultySummary
	for rows.Next() {
		var sum models.DifficultySummary
		var difficulty string
		if err := rows.Scan(&difficulty, &sum.Count, &sum.AverageQuality); err != nil {
			return nil, fmt.Errorf("scanning summary row: %w", err)
		}
		sum.Difficulty = models.Difficulty(difficulty)
		out = append(out, sum)
	}
	return out, rows.Err()
}
