package storage

import (
	"context"
	"fmt"
	"strings"

	"tutorial-scraper/config"
	"tutorial-scraper/utils"
)

// Open connects the store selected by cfg.StoreDriver and makes sure its
// schema exists
func Open(ctx context.Context, cfg *config.Config, logger *utils.Logger) (VideoStore, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "postgres", "postgresql":
		pg, err := NewPostgresStore(ctx, PostgresConfig{
			URL:          cfg.DatabaseURL,
			MaxOpenConns: cfg.DBMaxOpenConns,
			MaxIdleConns: cfg.DBMaxIdleConns,
		}, logger)
		if err != nil {
			return nil, err
		}
		if err := pg.CreateTable(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case "sqlite":
		return NewSQLiteStore(ctx, cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
	}
}
