package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/validate"
)

// Inbound message types.
const (
	MsgJoinRoom  = "join_room"
	MsgPlaceBid  = "place_bid"
	MsgSubscribe = "subscribe"
)

// ClientMessage is the frame a client sends.
type ClientMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type JoinRoomRequest struct {
	RoomCode string `json:"room_code" validate:"required,len=6,numeric"`
	TeamName string `json:"team_name" validate:"required"`
}

type PlaceBidRequest struct {
	// RoomCode defaults to the room the connection is watching.
	RoomCode  string `json:"room_code" validate:"omitempty,len=6,numeric"`
	BidAmount int64  `json:"bid_amount" validate:"gt=0"`
}

type SubscribeRequest struct {
	RoomCode string `json:"room_code" validate:"required,len=6,numeric"`
}

// decodeRequest unmarshals and validates a message body. Failures wrap
// auction.ErrInvalidArgument.
func decodeRequest(data json.RawMessage, dst any) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: missing data", auction.ErrInvalidArgument)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("%w: malformed data", auction.ErrInvalidArgument)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %s", auction.ErrInvalidArgument, validate.Summary(err))
	}
	return nil
}
