package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"

	_ "modernc.org/sqlite"
)

// timestamps are fixed-width UTC text so they sort lexically
const sqliteTimeLayout = "2006-01-02 15:04:05.000000"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS scraped_videos (
	video_id                  TEXT PRIMARY KEY,
	video_url                 TEXT NOT NULL,
	title                     TEXT NOT NULL,
	description               TEXT NOT NULL DEFAULT '',
	thumbnail_url             TEXT NOT NULL DEFAULT '',
	channel                   TEXT NOT NULL,
	channel_id                TEXT NOT NULL DEFAULT '',
	channel_followers         INTEGER NOT NULL DEFAULT 0,
	duration                  INTEGER NOT NULL DEFAULT 0,
	view_count                INTEGER NOT NULL DEFAULT 0,
	like_count                INTEGER NOT NULL DEFAULT 0,
	comment_count             INTEGER NOT NULL DEFAULT 0,
	difficulty                TEXT NOT NULL CHECK (difficulty IN ('beginner', 'intermediate', 'advanced')),
	tool                      TEXT NOT NULL,
	search_query              TEXT NOT NULL DEFAULT '',
	quality_score             REAL NOT NULL DEFAULT 50,
	classification_confidence REAL NOT NULL DEFAULT 0,
	content_hash              TEXT NOT NULL DEFAULT '',
	keywords                  TEXT NOT NULL DEFAULT '[]',
	tags                      TEXT NOT NULL DEFAULT '[]',
	has_tutorial_content      INTEGER NOT NULL DEFAULT 0,
	has_code_examples         INTEGER NOT NULL DEFAULT 0,
	is_series                 INTEGER NOT NULL DEFAULT 0,
	published_at              TEXT NOT NULL,
	first_seen_at             TEXT NOT NULL,
	scraped_at                TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scraped_videos_tool ON scraped_videos(tool);
CREATE INDEX IF NOT EXISTS idx_scraped_videos_difficulty ON scraped_videos(difficulty);
CREATE INDEX IF NOT EXISTS idx_scraped_videos_quality ON scraped_videos(quality_score);
`

const sqliteUpsert = `
INSERT INTO scraped_videos (` + videoColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (video_id) DO UPDATE SET
	title         = excluded.title,
	description   = excluded.description,
	thumbnail_url = excluded.thumbnail_url,
	channel       = excluded.channel,
	quality_score = excluded.quality_score,
	scraped_at    = excluded.scraped_at
`

// SQLiteStore keeps videos in a local SQLite file
type SQLiteStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewSQLiteStore opens or creates the database at path and its schema
func NewSQLiteStore(ctx context.Context, path string, logger *utils.Logger) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database at %s: %w", path, err)
	}
	// one writer; batches serialize on the single connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store ready at %s", path)
	return &SQLiteStore{db: db, logger: logger}, nil
}

// UpsertBatch writes videos in a single transaction
func (s *SQLiteStore) UpsertBatch(ctx context.Context, videos []*models.Video) (n int, err error) {
	if len(videos) == 0 {
		return 0, nil
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to check out connection: %w", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, sqliteUpsert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, v := range videos {
		res, execErr := stmt.ExecContext(ctx,
			v.ID, v.URL, v.Title, v.Description, v.ThumbnailURL, v.ChannelName, v.ChannelID,
			v.ChannelFollowers, v.DurationSeconds, v.ViewCount, v.LikeCount, v.CommentCount,
			string(v.Difficulty), v.Tool, v.SearchQuery, v.QualityScore, v.ClassificationConfidence,
			v.ContentHash, jsonList(v.Keywords), jsonList(v.Tags),
			boolInt(v.HasTutorialContent), boolInt(v.HasCodeExamples), boolInt(v.IsSeries),
			sqliteTime(v.PublishedAt), sqliteTime(v.ScrapedAt), sqliteTime(v.ScrapedAt),
		)
		if execErr != nil {
			err = &BatchError{VideoID: v.ID, Err: execErr}
			return 0, err
		}
		if affected, raErr := res.RowsAffected(); raErr == nil {
			n += int(affected)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return n, nil
}

// Count returns the number of stored videos matching f
func (s *SQLiteStore) Count(ctx context.Context, f Filter) (int, error) {
	where, args := whereClause(f, question)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scraped_videos"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting videos: %w", err)
	}
	return count, nil
}

// Query pages through stored videos matching f
func (s *SQLiteStore) Query(ctx context.Context, f Filter, order Order, limit, offset int) ([]*models.Video, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	where, args := whereClause(f, question)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+videoColumns+" FROM scraped_videos"+where+orderClause(order)+" LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("querying videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v := &models.Video{}
		var difficulty, keywords, tags, published, firstSeen, scraped string
		var tutorial, code, series int
		if err := rows.Scan(
			&v.ID, &v.URL, &v.Title, &v.Description, &v.ThumbnailURL, &v.ChannelName, &v.ChannelID,
			&v.ChannelFollowers, &v.DurationSeconds, &v.ViewCount, &v.LikeCount, &v.CommentCount,
			&difficulty, &v.Tool, &v.SearchQuery, &v.QualityScore, &v.ClassificationConfidence,
			&v.ContentHash, &keywords, &tags,
			&tutorial, &code, &series,
			&published, &firstSeen, &scraped,
		); err != nil {
			return nil, fmt.Errorf("scanning video row: %w", err)
		}
		v.Difficulty = models.Difficulty(difficulty)
		v.Keywords = parseJSONList(keywords)
		v.Tags = parseJSONList(tags)
		v.HasTutorialContent = tutorial != 0
		v.HasCodeExamples = code != 0
		v.IsSeries = series != 0
		v.PublishedAt = parseSQLiteTime(published)
		v.FirstSeenAt = parseSQLiteTime(firstSeen)
		v.ScrapedAt = parseSQLiteTime(scraped)
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// Summary groups stored videos of tool by difficulty
func (s *SQLiteStore) Summary(ctx context.Context, tool string) ([]models.DifficultySummary, error) {
	where, args := whereClause(Filter{Tool: tool}, question)
	rows, err := s.db.QueryContext(ctx, `
		SELECT difficulty, COUNT(*), COALESCE(AVG(quality_score), 0)
		FROM scraped_videos`+where+`
		GROUP BY difficulty
		ORDER BY difficulty`, args...)
	if err != nil {
		return nil, fmt.Errorf("summarizing videos: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func parseJSONList(s string) []string {
	out := []string{}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqliteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) time.Time {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
