package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/bidroom/go/internal/catalog"
	"github.com/mcdev12/bidroom/go/internal/dbconfig"
	"github.com/mcdev12/bidroom/go/internal/models"
)

func main() {
	file := flag.String("file", "", "YAML player file; the built-in catalog when empty")
	flag.Parse()

	ctx := context.Background()

	// 1) Load players
	players := catalog.Defaults()
	if *file != "" {
		loaded, err := catalog.LoadFile(*file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load %s: %v\n", *file, err)
			os.Exit(1)
		}
		players = loaded
	}

	// 2) Connect to DB
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Seed players
	total, inserted, skipped, errs := len(players), 0, 0, 0
	for _, p := range players {
		stats, err := statsParam(p.Stats)
		if err != nil {
			fmt.Fprintf(os.Stderr, "encode stats for %s: %v\n", p.Name, err)
			errs++
			continue
		}
		tag, err := pool.Exec(ctx, `
            INSERT INTO players (
              id, name, role, base_price, country, rating, stats
            ) VALUES ($1,$2,$3,$4,$5,$6,$7)
            ON CONFLICT (id) DO NOTHING
        `, p.ID, p.Name, string(p.Role), p.BasePrice, p.Country, p.Rating, stats)
		if err != nil {
			fmt.Fprintf(os.Stderr, "insert %s: %v\n", p.Name, err)
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Players seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
	if errs > 0 {
		os.Exit(1)
	}
}

// statsParam returns the JSONB value for stats, nil for none.
func statsParam(stats models.Attributes) (any, error) {
	if len(stats) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}
