package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"

	"github.com/lib/pq"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS scraped_videos (
		video_id                  VARCHAR(20)  PRIMARY KEY,
		video_url                 TEXT         NOT NULL,
		title                     TEXT         NOT NULL,
		description               TEXT         NOT NULL DEFAULT '',
		thumbnail_url             TEXT         NOT NULL DEFAULT '',
		channel                   TEXT         NOT NULL,
		channel_id                TEXT         NOT NULL DEFAULT '',
		channel_followers         BIGINT       NOT NULL DEFAULT 0,
		duration                  INTEGER      NOT NULL DEFAULT 0,
		view_count                BIGINT       NOT NULL DEFAULT 0,
		like_count                BIGINT       NOT NULL DEFAULT 0,
		comment_count             BIGINT       NOT NULL DEFAULT 0,
		difficulty                VARCHAR(20)  NOT NULL CHECK (difficulty IN ('beginner', 'intermediate', 'advanced')),
		tool                      VARCHAR(50)  NOT NULL,
		search_query              TEXT         NOT NULL DEFAULT '',
		quality_score             NUMERIC(5,2) NOT NULL DEFAULT 50,
		classification_confidence REAL         NOT NULL DEFAULT 0,
		content_hash              VARCHAR(32)  NOT NULL DEFAULT '',
		keywords                  TEXT[]       NOT NULL DEFAULT '{}',
		tags                      TEXT[]       NOT NULL DEFAULT '{}',
		has_tutorial_content      BOOLEAN      NOT NULL DEFAULT FALSE,
		has_code_examples         BOOLEAN      NOT NULL DEFAULT FALSE,
		is_series                 BOOLEAN      NOT NULL DEFAULT FALSE,
		published_at              TIMESTAMPTZ  NOT NULL,
		first_seen_at             TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
		scraped_at                TIMESTAMPTZ  NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_scraped_videos_tool       ON scraped_videos (tool);
	CREATE INDEX IF NOT EXISTS idx_scraped_videos_difficulty ON scraped_videos (difficulty);
	CREATE INDEX IF NOT EXISTS idx_scraped_videos_quality    ON scraped_videos (quality_score DESC);
	`

const postgresUpsert = `
	INSERT INTO scraped_videos (` + videoColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26)
	ON CONFLICT (video_id) DO UPDATE SET
		title         = EXCLUDED.title,
		description   = EXCLUDED.description,
		thumbnail_url = EXCLUDED.thumbnail_url,
		channel       = EXCLUDED.channel,
		quality_score = EXCLUDED.quality_score,
		scraped_at    = EXCLUDED.scraped_at
	`

// PostgresConfig sizes the connection pool
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// PostgresStore keeps videos in PostgreSQL
type PostgresStore struct {
	db     *sql.DB
	logger *utils.Logger
}

// NewPostgresStore opens the pool and pings the DB
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, logger *utils.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open DB: %w", err)
	}

	db.SetMaxOpenConns(max(cfg.MaxOpenConns, 2))
	db.SetMaxIdleConns(max(cfg.MaxIdleConns, 1))
	db.SetConnMaxLifetime(time.Minute * 5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	logger.Info("Connected to PostgreSQL successfully")
	return &PostgresStore{db: db, logger: logger}, nil
}

// CreateTable creates the scraped_videos table if it doesn't exist, with indexes
func (s *PostgresStore) CreateTable(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}
	s.logger.Info("Table 'scraped_videos' is ready")
	return nil
}

// UpsertBatch writes videos on one pooled connection in a single transaction
func (s *PostgresStore) UpsertBatch(ctx context.Context, videos []*models.Video) (n int, err error) {
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

	stmt, err := tx.PrepareContext(ctx, postgresUpsert)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, v := range videos {
		res, execErr := stmt.ExecContext(ctx,
			v.ID, v.URL, v.Title, v.Description, v.ThumbnailURL, v.ChannelName, v.ChannelID,
			v.ChannelFollowers, v.DurationSeconds, v.ViewCount, v.LikeCount, v.CommentCount,
			string(v.Difficulty), v.Tool, v.SearchQuery, v.QualityScore, v.ClassificationConfidence,
			v.ContentHash, pq.Array(v.Keywords), pq.Array(v.Tags),
			v.HasTutorialContent, v.HasCodeExamples, v.IsSeries,
			v.PublishedAt, v.ScrapedAt, v.ScrapedAt,
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

	s.logger.Debug("Upserted %d/%d videos into PostgreSQL", n, len(videos))
	return n, nil
}

// Count returns the number of stored videos matching f
func (s *PostgresStore) Count(ctx context.Context, f Filter) (int, error) {
	where, args := whereClause(f, dollar)
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM scraped_videos"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting videos: %w", err)
	}
	return count, nil
}

// Query pages through stored videos matching f
func (s *PostgresStore) Query(ctx context.Context, f Filter, order Order, limit, offset int) ([]*models.Video, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	where, args := whereClause(f, dollar)
	args = append(args, limit, offset)
	query := "SELECT " + videoColumns + " FROM scraped_videos" + where + orderClause(order) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying videos: %w", err)
	}
	defer rows.Close()

	var videos []*models.Video
	for rows.Next() {
		v := &models.Video{}
		var difficulty string
		if err := rows.Scan(
			&v.ID, &v.URL, &v.Title, &v.Description, &v.ThumbnailURL, &v.ChannelName, &v.ChannelID,
			&v.ChannelFollowers, &v.DurationSeconds, &v.ViewCount, &v.LikeCount, &v.CommentCount,
			&difficulty, &v.Tool, &v.SearchQuery, &v.QualityScore, &v.ClassificationConfidence,
			&v.ContentHash, pq.Array(&v.Keywords), pq.Array(&v.Tags),
			&v.HasTutorialContent, &v.HasCodeExamples, &v.IsSeries,
			&v.PublishedAt, &v.FirstSeenAt, &v.ScrapedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning video row: %w", err)
		}
		v.Difficulty = models.Difficulty(difficulty)
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// Summary groups stored videos of tool by difficulty
func (s *PostgresStore) Summary(ctx context.Context, tool string) ([]models.DifficultySummary, error) {
	where, args := whereClause(Filter{Tool: tool}, dollar)
	rows, err := s.db.QueryContext(ctx, `
		SELECT difficulty, COUNT(*), COALESCE(AVG(quality_score), 0)::float8
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
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
