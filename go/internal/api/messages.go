package api

import (
	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/models"
)

type CreateRoomRequest struct {
	CreatorID string `json:"creator_id,omitempty"`
}

type CreateRoomResponse struct {
	RoomCode string       `json:"room_code"`
	Room     *models.Room `json:"room"`
}

type GetRoomRequest struct {
	RoomCode string `json:"room_code" validate:"required,len=6,numeric"`
}

// GetRoomResponse reports an unknown code with Found=false rather than an
// error.
type GetRoomResponse struct {
	Found bool         `json:"found"`
	Room  *models.Room `json:"room,omitempty"`
	Error string       `json:"error,omitempty"`
}

type StartAuctionRequest struct {
	RoomCode    string `json:"room_code" validate:"required,len=6,numeric"`
	RequesterID string `json:"requester_id,omitempty"`
}

type StartAuctionResponse struct {
	Message string       `json:"message"`
	Room    *models.Room `json:"room"`
}

type JoinRoomRequest struct {
	RoomCode string `json:"room_code" validate:"required,len=6,numeric"`
	TeamName string `json:"team_name" validate:"required"`
	OwnerID  string `json:"owner_id" validate:"required"`
}

type JoinRoomResponse struct {
	Team models.Team  `json:"team"`
	Room *models.Room `json:"room"`
}

type PlaceBidRequest struct {
	RoomCode  string `json:"room_code" validate:"required,len=6,numeric"`
	OwnerID   string `json:"owner_id" validate:"required"`
	BidAmount int64  `json:"bid_amount" validate:"gt=0"`
}

type PlaceBidResponse struct {
	Bid auction.BidReceipt `json:"bid"`
}

type ListPlayersRequest struct {
	Role string `json:"role,omitempty" validate:"omitempty,oneof=batsman bowler all-rounder wicket-keeper"`
}

type ListPlayersResponse struct {
	Players []models.Player `json:"players"`
}

type CloseRoomRequest struct {
	RoomCode    string `json:"room_code" validate:"required,len=6,numeric"`
	RequesterID string `json:"requester_id,omitempty"`
}

type CloseRoomResponse struct {
	Message string `json:"message"`
}
