package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/bidroom/go/internal/models"
	"github.com/mcdev12/bidroom/go/internal/sqlutil"
)

// Repository is the Postgres-backed catalog.
type Repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

const selectPlayers = `
	SELECT id, name, role, base_price, country, rating, stats
	FROM players`

func (r *Repository) LoadAll(ctx context.Context) ([]models.Player, error) {
	rows, err := r.db.QueryContext(ctx, selectPlayers+` ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	return scanPlayers(rows)
}

// ListByRoles returns the players having any of roles, in catalog order.
func (r *Repository) ListByRoles(ctx context.Context, roles []models.Role) ([]models.Player, error) {
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	rows, err := r.db.QueryContext(ctx, selectPlayers+` WHERE role = ANY($1) ORDER BY seq`, pq.Array(names))
	if err != nil {
		return nil, fmt.Errorf("failed to query players by role: %w", err)
	}
	return scanPlayers(rows)
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return n, nil
}

func (r *Repository) InsertMany(ctx context.Context, players []models.Player) (int, error) {
	inserted := 0
	err := sqlutil.InTx(ctx, r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO players (id, name, role, base_price, country, rating, stats)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("failed to prepare player insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range players {
			stats, err := encodeStats(p.Stats)
			if err != nil {
				return fmt.Errorf("failed to encode stats for %s: %w", p.Name, err)
			}
			res, err := stmt.ExecContext(ctx, p.ID, p.Name, string(p.Role), p.BasePrice, p.Country, p.Rating, stats)
			if err != nil {
				return fmt.Errorf("failed to insert player %s: %w", p.Name, err)
			}
			if n, err := res.RowsAffected(); err == nil && n == 1 {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func scanPlayers(rows *sql.Rows) ([]models.Player, error) {
	defer rows.Close()

	var players []models.Player
	for rows.Next() {
		var (
			p     models.Player
			role  string
			stats pqtype.NullRawMessage
		)
		if err := rows.Scan(&p.ID, &p.Name, &role, &p.BasePrice, &p.Country, &p.Rating, &stats); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		p.Role = models.Role(role)
		if stats.Valid {
			if err := json.Unmarshal(stats.RawMessage, &p.Stats); err != nil {
				return nil, fmt.Errorf("failed to decode stats for %s: %w", p.Name, err)
			}
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}
	return players, nil
}

func encodeStats(stats models.Attributes) (pqtype.NullRawMessage, error) {
	if len(stats) == 0 {
		return pqtype.NullRawMessage{}, nil
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		return pqtype.NullRawMessage{}, err
	}
	return pqtype.NullRawMessage{RawMessage: raw, Valid: true}, nil
}
