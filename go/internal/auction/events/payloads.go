package events

import (
	"time"

	"github.com/mcdev12/bidroom/go/internal/models"
)

// Payload types shared by the engine, the gateway and the archive consumer.

// ConnectedPayload is sent to a websocket client right after the upgrade.
type ConnectedPayload struct {
	ConnectionID string `json:"connection_id"`
}

// TeamJoinedPayload is the payload for a team_joined event
type TeamJoinedPayload struct {
	Team       models.Team `json:"team"`
	TotalTeams int         `json:"total_teams"`
}

// AuctionStartedPayload is the payload for an auction_started event
type AuctionStartedPayload struct {
	CurrentItem models.Player `json:"current_item"`
	CurrentBid  int64         `json:"current_bid"`
	TotalItems  int           `json:"total_items"`
}

// ItemOpenedPayload announces the player now up for bidding.
type ItemOpenedPayload struct {
	Item       models.Player `json:"item"`
	ItemIndex  int           `json:"item_index"`
	CurrentBid int64         `json:"current_bid"`
	TimerEnd   time.Time     `json:"timer_end"`
}

// NewBidPayload is the payload for a new_bid event
type NewBidPayload struct {
	BidAmount    int64     `json:"bid_amount"`
	BidderTeam   string    `json:"bidder_team"`
	BidderTeamID string    `json:"bidder_team_id"`
	ItemID       string    `json:"item_id"`
	TimerEnd     time.Time `json:"timer_end"`
}

// ItemSoldPayload is the payload for an item_sold event
type ItemSoldPayload struct {
	Team  models.Team   `json:"team"`
	Item  models.Player `json:"item"`
	Price int64         `json:"price"`
}

// ItemUnsoldPayload is the payload for an item_unsold event
type ItemUnsoldPayload struct {
	Item   models.Player `json:"item"`
	Reason string        `json:"reason"`
}

// AuctionCompletedPayload is the payload for an auction_completed event
type AuctionCompletedPayload struct {
	SoldCount   int       `json:"sold_count"`
	UnsoldCount int       `json:"unsold_count"`
	CompletedAt time.Time `json:"completed_at"`
}

// RoomClosedPayload is the payload for a room_closed event
type RoomClosedPayload struct {
	Reason string `json:"reason,omitempty"`
}

// RoomStatePayload carries a full snapshot to one connection after it
// subscribes or joins.
type RoomStatePayload struct {
	Room *models.Room `json:"room"`
}

// ErrorPayload is sent to a single connection, never broadcast.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}
