package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event is the envelope for everything a room emits.
type Event struct {
	ID        string          `json:"id"`
	RoomCode  string          `json:"room_code"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Type is the wire name of an event.
type Type string

const (
	TypeConnected        Type = "connected"
	TypeTeamJoined       Type = "team_joined"
	TypeAuctionStarted   Type = "auction_started"
	TypeItemOpened       Type = "item_opened"
	TypeNewBid           Type = "new_bid"
	TypeItemSold         Type = "item_sold"
	TypeItemUnsold       Type = "item_unsold"
	TypeAuctionCompleted Type = "auction_completed"
	TypeRoomClosed       Type = "room_closed"
	TypeRoomState        Type = "room_state"
	TypeError            Type = "error"
)

// New wraps payload in an envelope stamped with a fresh id.
func New(roomCode string, t Type, payload any, at time.Time) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", t, err)
	}
	return &Event{
		ID:        uuid.NewString(),
		RoomCode:  roomCode,
		Type:      t,
		Timestamp: at.UTC(),
		Data:      data,
	}, nil
}

// Decode unmarshals the event data into the payload struct for its type.
func Decode(e *Event) (any, error) {
	var payload any
	switch e.Type {
	case TypeConnected:
		payload = &ConnectedPayload{}
	case TypeTeamJoined:
		payload = &TeamJoinedPayload{}
	case TypeAuctionStarted:
		payload = &AuctionStartedPayload{}
	case TypeItemOpened:
		payload = &ItemOpenedPayload{}
	case TypeNewBid:
		payload = &NewBidPayload{}
	case TypeItemSold:
		payload = &ItemSoldPayload{}
	case TypeItemUnsold:
		payload = &ItemUnsoldPayload{}
	case TypeAuctionCompleted:
		payload = &AuctionCompletedPayload{}
	case TypeRoomClosed:
		payload = &RoomClosedPayload{}
	case TypeRoomState:
		payload = &RoomStatePayload{}
	case TypeError:
		payload = &ErrorPayload{}
	default:
		return nil, fmt.Errorf("unknown event type: %s", e.Type)
	}
	if err := json.Unmarshal(e.Data, payload); err != nil {
		return nil, fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return payload, nil
}

// Publisher receives room events. Implementations must not block: Publish is
// called while a room is processing a command.
type Publisher interface {
	Publish(e *Event)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(e *Event)

func (f PublisherFunc) Publish(e *Event) { f(e) }

// Multi fans an event out to several publishers in order.
type Multi []Publisher

func (m Multi) Publish(e *Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(e)
		}
	}
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(*Event) {})
