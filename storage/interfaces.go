package storage

import (
	"context"
	"errors"
	"fmt"

	"tutorial-scraper/models"
)

// ErrUnknownDriver is returned by Open for an unsupported driver name
var ErrUnknownDriver = errors.New("unknown store driver")

// Filter narrows count and query results. Zero fields match everything.
type Filter struct {
	Tool       string
	Difficulty models.Difficulty
	MinQuality float64
}

// Order selects the sort of Query results
type Order int

const (
	ByQuality Order = iota
	ByNewest
	ByViews
	ByPublished
)

// VideoStore persists enriched videos keyed by video id
type VideoStore interface {
	// UpsertBatch writes videos in one transaction and returns how many rows
	// were inserted or updated. On error nothing from the batch is kept.
	UpsertBatch(ctx context.Context, videos []*models.Video) (int, error)
	Count(ctx context.Context, f Filter) (int, error)
	Query(ctx context.Context, f Filter, order Order, limit, offset int) ([]*models.Video, error)
	Summary(ctx context.Context, tool string) ([]models.DifficultySummary, error)
	Close() error
}

// RawStorage receives raw exports of stored videos
type RawStorage interface {
	WriteVideos(videos []*models.Video) error
}

// BatchError reports a failed, rolled back batch
type BatchError struct {
	VideoID string // first video of the batch that could not be written
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch rolled back at video %s: %v", e.VideoID, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
