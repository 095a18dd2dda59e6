package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"tutorial-scraper/models"
	"tutorial-scraper/utils"
)

// CSVWriter exports stored videos to a CSV file
type CSVWriter struct {
	filePath string
	logger   *utils.Logger
}

// NewCSVWriter creates a new CSVWriter
func NewCSVWriter(filePath string, logger *utils.Logger) *CSVWriter {
	return &CSVWriter{filePath: filePath, logger: logger}
}

var csvHeader = []string{
	"video_id", "title", "url", "channel", "tool", "difficulty",
	"quality_score", "confidence", "duration", "views", "likes", "comments",
	"search_query", "keywords", "published_at", "scraped_at",
}

// WriteVideos writes videos to the CSV file, replacing any previous export
func (w *CSVWriter) WriteVideos(videos []*models.Video) error {
	// Ensure output directory exists
	dir := filepath.Dir(w.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	written := 0
	for _, v := range videos {
		if v == nil {
			continue
		}
		if err := writer.Write(csvRow(v)); err != nil {
			w.logger.Error("Failed to write CSV row for '%s': %v", v.ID, err)
			continue
		}
		written++
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	w.logger.Info("Videos exported to: %s (%d rows)", w.filePath, written)
	return nil
}

func csvRow(v *models.Video) []string {
	return []string{
		v.ID,
		v.Title,
		v.URL,
		v.ChannelName,
		v.Tool,
		string(v.Difficulty),
		strconv.FormatFloat(v.QualityScore, 'f', 2, 64),
		strconv.FormatFloat(v.ClassificationConfidence, 'f', 3, 64),
		strconv.Itoa(v.DurationSeconds),
		strconv.FormatInt(v.ViewCount, 10),
		strconv.FormatInt(v.LikeCount, 10),
		strconv.FormatInt(v.CommentCount, 10),
		v.SearchQuery,
		strings.Join(v.Keywords, ";"),
		csvTime(v.PublishedAt),
		csvTime(v.ScrapedAt),
	}
}

func csvTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
