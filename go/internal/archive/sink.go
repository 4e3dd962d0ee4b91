// Package archive copies room events from the JetStream stream into
// Postgres for after-the-fact auditing of auctions.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/bidroom/go/internal/auction/events"
)

// ErrMalformed marks messages that can never be stored; they are acked and
// dropped rather than redelivered.
var ErrMalformed = errors.New("malformed event")

// Sink writes events to the auction_events table.
type Sink struct {
	db *sql.DB
}

func NewSink(db *sql.DB) *Sink {
	return &Sink{db: db}
}

// Store decodes one stream message and inserts it. Redelivered events are
// ignored by id.
func (s *Sink) Store(ctx context.Context, data []byte) error {
	e, err := decode(data)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO auction_events (id, room_code, type, occurred_at, data)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, e.RoomCode, string(e.Type), e.Timestamp, pqtype.NullRawMessage{RawMessage: e.Data, Valid: len(e.Data) > 0})
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", e.ID, err)
	}
	return nil
}

// History returns the archived events of a room in the order they happened.
func (s *Sink) History(ctx context.Context, code string) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, room_code, type, occurred_at, data
		FROM auction_events
		WHERE room_code = $1
		ORDER BY occurred_at, seq`, code)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e    events.Event
			typ  string
			data pqtype.NullRawMessage
		)
		if err := rows.Scan(&e.ID, &e.RoomCode, &typ, &e.Timestamp, &data); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Type = events.Type(typ)
		if data.Valid {
			e.Data = data.RawMessage
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return out, nil
}

func decode(data []byte) (*events.Event, error) {
	var e events.Event
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	switch {
	case e.ID == "":
		return nil, fmt.Errorf("%w: missing id", ErrMalformed)
	case e.RoomCode == "":
		return nil, fmt.Errorf("%w: missing room code", ErrMalformed)
	case e.Type == "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	return &e, nil
}
