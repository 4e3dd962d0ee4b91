package roomstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/bidroom/go/internal/models"
)

// PostgresStore keeps snapshots in the room_snapshots table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Get(ctx context.Context, code string) (*models.Room, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT snapshot FROM room_snapshots WHERE code = $1`, code).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room %s: %w", code, err)
	}
	var room models.Room
	if err := json.Unmarshal(raw, &room); err != nil {
		return nil, fmt.Errorf("failed to decode room %s: %w", code, err)
	}
	return &room, nil
}

func (s *PostgresStore) Put(ctx context.Context, room *models.Room) error {
	raw, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to encode room %s: %w", room.Code, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO room_snapshots (code, room_id, version, phase, closed, snapshot, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (code) DO UPDATE SET
			room_id = EXCLUDED.room_id,
			version = EXCLUDED.version,
			phase = EXCLUDED.phase,
			closed = EXCLUDED.closed,
			snapshot = EXCLUDED.snapshot,
			updated_at = now()
		WHERE room_snapshots.room_id <> EXCLUDED.room_id
		   OR room_snapshots.version < EXCLUDED.version`,
		room.Code, room.ID, int64(room.Version), string(room.Phase), room.Closed, raw)
	if err != nil {
		return fmt.Errorf("failed to put room %s: %w", room.Code, err)
	}
	return nil
}
