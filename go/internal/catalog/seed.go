package catalog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/models"
)

// SeedResult reports what a seeding pass did.
type SeedResult struct {
	Total         int
	Inserted      int
	Skipped       int
	AlreadySeeded bool
}

// Seed bulk-loads players into an empty store. A store that already holds
// players is left untouched.
func Seed(ctx context.Context, store Store, players []models.Player) (SeedResult, error) {
	res := SeedResult{Total: len(players)}

	count, err := store.Count(ctx)
	if err != nil {
		return res, fmt.Errorf("failed to count catalog: %w", err)
	}
	if count > 0 {
		res.AlreadySeeded = true
		res.Skipped = len(players)
		return res, nil
	}

	for _, p := range players {
		if err := p.Validate(); err != nil {
			return res, err
		}
	}

	inserted, err := store.InsertMany(ctx, players)
	if err != nil {
		return res, fmt.Errorf("failed to seed catalog: %w", err)
	}
	res.Inserted = inserted
	res.Skipped = len(players) - inserted
	return res, nil
}

// Load seeds the store when it is empty and returns the full catalog. An
// empty catalog is an error: no auction can run without players.
func Load(ctx context.Context, store Store, seed []models.Player) ([]models.Player, error) {
	res, err := Seed(ctx, store, seed)
	if err != nil {
		return nil, err
	}
	log.Info().
		Int("total", res.Total).
		Int("inserted", res.Inserted).
		Int("skipped", res.Skipped).
		Bool("already_seeded", res.AlreadySeeded).
		Msg("catalog seed")

	players, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if len(players) == 0 {
		return nil, ErrEmptyCatalog
	}
	return players, nil
}
