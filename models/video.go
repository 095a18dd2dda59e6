package models

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is the coarse skill level assigned to a video
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Expert       Difficulty = "expert"
)

// Levels lists every classification output in tie-break order
var Levels = []Difficulty{Beginner, Intermediate, Advanced, Expert}

// StorageLevels lists the difficulties the store accepts
var StorageLevels = []Difficulty{Beginner, Intermediate, Advanced}

// Storage folds expert into advanced for the three-tier schema
func (d Difficulty) Storage() Difficulty {
	if d == Expert {
		return Advanced
	}
	return d
}

// Valid reports whether d is one of the four known levels
func (d Difficulty) Valid() bool {
	for _, l := range Levels {
		if d == l {
			return true
		}
	}
	return false
}

// ParseDifficulty converts user input into a Difficulty. Empty input returns "".
func ParseDifficulty(s string) (Difficulty, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	d := Difficulty(s)
	if !d.Valid() {
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
	return d, nil
}

// RawVideo is an unprocessed record as returned by a video source
type RawVideo struct {
	ID               string
	Title            string
	Description      string
	DurationSeconds  int
	ViewCount        int64
	LikeCount        int64
	CommentCount     int64
	ChannelName      string
	ChannelID        string
	ChannelFollowers int64     // 0 when the source cannot tell
	PublishedAt      time.Time // zero when unknown
	ThumbnailURL     string
	Tags             []string
}

// QualityBreakdown holds the sub-scores behind a quality score
type QualityBreakdown struct {
	Engagement float64
	Content    float64
	Creator    float64
	Relevance  float64
	Freshness  float64
}

// Video is a classified, scored record ready for the store
type Video struct {
	RawVideo

	URL         string
	SearchQuery string
	Tool        string
	ContentHash string

	Difficulty               Difficulty
	ClassificationConfidence float64
	ClassificationScores     map[Difficulty]float64

	QualityScore     float64
	QualityBreakdown QualityBreakdown

	Keywords           []string
	HasTutorialContent bool
	HasCodeExamples    bool
	IsSeries           bool

	ScrapedAt   time.Time
	FirstSeenAt time.Time // set by the store on first insert
}

// NewVideo wraps a raw record found by term for tool
func NewVideo(raw RawVideo, term, tool string) *Video {
	return &Video{
		RawVideo:    raw,
		SearchQuery: term,
		Tool:        tool,
	}
}

// WatchURL returns the canonical watch page for a video id
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ParsePublished accepts the date layouts the sources emit.
// Unparseable input yields the zero time.
func ParsePublished(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05Z", "20060102", "2006-01-02", "Jan 2, 2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
