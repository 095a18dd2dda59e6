package services

import (
	"strings"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"
)

const (
	defaultChannel    = "Unknown"
	defaultDifficulty = models.Intermediate
	maxTags           = 10
)

// DataCleaner fills the required fields of a video before it is stored
type DataCleaner struct {
	logger *utils.Logger
	now    func() time.Time
}

// NewDataCleaner creates a new DataCleaner
func NewDataCleaner(logger *utils.Logger) *DataCleaner {
	return &DataCleaner{logger: logger, now: time.Now}
}

// Clean normalizes every video in place and drops records with no id.
// Expert is folded into advanced here and nowhere else.
func (c *DataCleaner) Clean(videos []*models.Video) []*models.Video {
	now := c.now().UTC()
	cleaned := make([]*models.Video, 0, len(videos))

	for _, v := range videos {
		if v == nil || strings.TrimSpace(v.ID) == "" {
			c.logger.Debug("Skipping video with empty id")
			continue
		}
		c.normalize(v, now)
		cleaned = append(cleaned, v)
	}
	return cleaned
}

func (c *DataCleaner) normalize(v *models.Video, now time.Time) {
	v.ID = strings.TrimSpace(v.ID)
	v.Title = strings.TrimSpace(v.Title)
	v.Description = strings.TrimSpace(v.Description)
	v.ChannelName = strings.TrimSpace(v.ChannelName)

	if v.URL == "" {
		v.URL = models.WatchURL(v.ID)
	}
	if v.ChannelName == "" {
		v.ChannelName = defaultChannel
	}
	if v.DurationSeconds < 0 {
		v.DurationSeconds = 0
	}
	v.ViewCount = max(v.ViewCount, 0)
	v.LikeCount = max(v.LikeCount, 0)
	v.CommentCount = max(v.CommentCount, 0)
	v.ChannelFollowers = max(v.ChannelFollowers, 0)

	if !v.Difficulty.Valid() {
		v.Difficulty = defaultDifficulty
	}
	v.Difficulty = v.Difficulty.Storage()

	if v.ContentHash == "" {
		v.ContentHash = Fingerprint(v.ID, v.Title)
	}
	if len(v.Tags) > maxTags {
		v.Tags = v.Tags[:maxTags]
	}
	if v.Tags == nil {
		v.Tags = []string{}
	}
	if v.Keywords == nil {
		v.Keywords = []string{}
	}
	if v.PublishedAt.IsZero() {
		v.PublishedAt = now
	}
	if v.ScrapedAt.IsZero() {
		v.ScrapedAt = now
	}
}
