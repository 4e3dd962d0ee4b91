package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/catalog"
	"github.com/mcdev12/bidroom/go/internal/config"
	"github.com/mcdev12/bidroom/go/internal/dbconfig"
	"github.com/mcdev12/bidroom/go/internal/migrations"
	"github.com/mcdev12/bidroom/go/internal/models"
)

// needsDatabase reports whether any backend is configured on Postgres.
func needsDatabase(cfg *config.Config) bool {
	return cfg.CatalogBackend == config.BackendPostgres || cfg.RoomStore == config.BackendPostgres
}

func setupDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := dbconfig.Open(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := migrations.Up(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info().
		Str("host", cfg.DB.Host).
		Int("port", cfg.DB.Port).
		Str("database", cfg.DB.Name).
		Msg("connected to database")
	return db, nil
}

// setupCatalog seeds the configured catalog store when it is empty and
// returns the full item pool.
func setupCatalog(ctx context.Context, cfg *config.Config, db *sql.DB) ([]models.Player, error) {
	seed := catalog.Defaults()
	if cfg.CatalogFile != "" {
		players, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		seed = players
	}

	var store catalog.Store = catalog.NewMemoryStore()
	if cfg.CatalogBackend == config.BackendPostgres {
		store = catalog.NewRepository(db)
	}

	players, err := catalog.Load(ctx, store, seed)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog from %s: %w", cfg.CatalogBackend, err)
	}
	return players, nil
}
