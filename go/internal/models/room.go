package models

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the auction lifecycle state of a room.
type Phase string

const (
	PhaseWaiting   Phase = "waiting"
	PhaseActive    Phase = "active"
	PhaseCompleted Phase = "completed"
)

// Room is a point-in-time snapshot of an auction room. Snapshots are
// immutable once published; readers must not modify them.
type Room struct {
	ID        uuid.UUID `json:"id"`
	Code      string    `json:"code"`
	CreatorID string    `json:"host_id"`
	Teams     []Team    `json:"teams"`
	Phase     Phase     `json:"auction_state"`

	CurrentIndex  int        `json:"current_player_index"`
	CurrentPlayer *Player    `json:"current_player,omitempty"`
	CurrentBid    int64      `json:"current_bid"`
	CurrentBidder *uuid.UUID `json:"current_bidder,omitempty"`
	TimerEnd      *time.Time `json:"timer_end,omitempty"`

	// PlayersPool holds the players not yet closed, current one included.
	PlayersPool   []uuid.UUID `json:"players_pool"`
	SoldPlayers   []uuid.UUID `json:"sold_players"`
	UnsoldPlayers []uuid.UUID `json:"unsold_players"`
	TotalPlayers  int         `json:"total_players"`

	Closed      bool       `json:"closed"`
	Version     uint64     `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Team returns the team with the given id.
func (r *Room) Team(id uuid.UUID) (Team, bool) {
	for _, t := range r.Teams {
		if t.ID == id {
			return t, true
		}
	}
	return Team{}, false
}

// TimeRemaining returns how long the open player has left, zero when no
// countdown is running.
func (r *Room) TimeRemaining(now time.Time) time.Duration {
	if r.TimerEnd == nil {
		return 0
	}
	if d := r.TimerEnd.Sub(now); d > 0 {
		return d
	}
	return 0
}
