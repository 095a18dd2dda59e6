package youtube

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"tutorial-scraper/models"
)

// ErrNotFound is returned by FetchDetails for an unknown id
var ErrNotFound = errors.New("video not found")

// Source searches the video platform. Implementations may return partial
// or empty results and transient errors.
type Source interface {
	Search(ctx context.Context, term string, maxResults int) ([]models.RawVideo, error)
	FetchDetails(ctx context.Context, id string) (*models.RawVideo, error)
}

const (
	maxDescriptionRunes = 1000
	maxTags             = 10
)

// sanitize drops records without id or title and trims oversized fields
func sanitize(raw []models.RawVideo) ([]models.RawVideo, int) {
	valid := make([]models.RawVideo, 0, len(raw))
	dropped := 0
	for _, r := range raw {
		r.ID = strings.TrimSpace(r.ID)
		r.Title = strings.TrimSpace(r.Title)
		if r.ID == "" || r.Title == "" {
			dropped++
			continue
		}
		if utf8.RuneCountInString(r.Description) > maxDescriptionRunes {
			r.Description = string([]rune(r.Description)[:maxDescriptionRunes])
		}
		if len(r.Tags) > maxTags {
			r.Tags = r.Tags[:maxTags]
		}
		r.DurationSeconds = max(r.DurationSeconds, 0)
		r.ViewCount = max(r.ViewCount, 0)
		r.LikeCount = max(r.LikeCount, 0)
		r.CommentCount = max(r.CommentCount, 0)
		valid = append(valid, r)
	}
	return valid, dropped
}
