package models

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RunStatistics tracks a single orchestration run. Counters are safe for
// concurrent use by fan-out workers.
type RunStatistics struct {
	RunID string
	Tool  string

	Searched      atomic.Int64
	Found         atomic.Int64
	Malformed     atomic.Int64
	Duplicates    atomic.Int64
	Rejected      atomic.Int64
	PassedQuality atomic.Int64
	Inserted      atomic.Int64
	FailedTerms   atomic.Int64
	FailedBatches atomic.Int64

	mu         sync.Mutex
	startedAt  time.Time
	finishedAt time.Time
}

// NewRunStatistics starts a run for tool
func NewRunStatistics(tool string) *RunStatistics {
	return &RunStatistics{
		RunID:     uuid.NewString(),
		Tool:      tool,
		startedAt: time.Now(),
	}
}

// Finish stamps the end time once
func (s *RunStatistics) Finish() {
	s.mu.Lock()
	if s.finishedAt.IsZero() {
		s.finishedAt = time.Now()
	}
	s.mu.Unlock()
}

// Snapshot copies the counters into a plain value
func (s *RunStatistics) Snapshot() RunSnapshot {
	s.mu.Lock()
	started, finished := s.startedAt, s.finishedAt
	s.mu.Unlock()

	return RunSnapshot{
		RunID:         s.RunID,
		Tool:          s.Tool,
		Searched:      s.Searched.Load(),
		Found:         s.Found.Load(),
		Malformed:     s.Malformed.Load(),
		Duplicates:    s.Duplicates.Load(),
		Rejected:      s.Rejected.Load(),
		PassedQuality: s.PassedQuality.Load(),
		Inserted:      s.Inserted.Load(),
		FailedTerms:   s.FailedTerms.Load(),
		FailedBatches: s.FailedBatches.Load(),
		StartedAt:     started,
		FinishedAt:    finished,
	}
}

// RunSnapshot is a point-in-time copy of RunStatistics
type RunSnapshot struct {
	RunID         string
	Tool          string
	Searched      int64
	Found         int64
	Malformed     int64
	Duplicates    int64
	Rejected      int64
	PassedQuality int64
	Inserted      int64
	FailedTerms   int64
	FailedBatches int64
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Duration is the elapsed run time, up to now for a run still in progress
func (s RunSnapshot) Duration() time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// DifficultySummary aggregates stored videos of one difficulty
type DifficultySummary struct {
	Difficulty     Difficulty
	Count          int
	AverageQuality float64
}

// CatalogReport holds computed analytics over stored videos
type CatalogReport struct {
	Tool           string
	TotalVideos    int
	AverageQuality float64
	TotalViews     int64
	ByDifficulty   map[Difficulty]int
	Summaries      []DifficultySummary
	TopRated       []*Video
	Longest        *Video
}
