// Package rooms is the request surface shared by the HTTP, RPC and websocket
// transports. It resolves room codes and forwards each request to the room's
// engine.
package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/broadcast"
	"github.com/mcdev12/bidroom/go/internal/catalog"
	"github.com/mcdev12/bidroom/go/internal/models"
	"github.com/mcdev12/bidroom/go/internal/registry"
	"github.com/mcdev12/bidroom/go/internal/roomstore"
)

const CloseReasonHost = "closed_by_host"

var ErrCloseForbidden = fmt.Errorf("%w: only the room creator can close the room", auction.ErrForbidden)

// Registry defines what the app needs from the room registry.
type Registry interface {
	Create(ctx context.Context, creatorID string) (*registry.Handle, error)
	Lookup(code string) (*registry.Handle, error)
	Remove(code, reason string) error
}

// App handles room requests.
type App struct {
	registry Registry
	players  []models.Player
	store    roomstore.Store
}

// NewApp creates an App over the loaded catalog. store may be nil; when set,
// rooms that left the registry can still be read from it.
func NewApp(reg Registry, players []models.Player, store roomstore.Store) *App {
	return &App{registry: reg, players: players, store: store}
}

// CreateRoom opens a new room in the waiting phase.
func (a *App) CreateRoom(ctx context.Context, creatorID string) (*models.Room, error) {
	h, err := a.registry.Create(ctx, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return h.Engine.Snapshot(), nil
}

// GetRoom returns the current snapshot of a room.
func (a *App) GetRoom(ctx context.Context, code string) (*models.Room, error) {
	h, err := a.registry.Lookup(code)
	if err == nil {
		return h.Engine.Snapshot(), nil
	}
	if a.store == nil {
		return nil, err
	}

	room, serr := a.store.Get(ctx, code)
	switch {
	case errors.Is(serr, roomstore.ErrNotFound):
		return nil, auction.ErrRoomNotFound
	case serr != nil:
		log.Error().Err(serr).Str("room_code", code).Msg("room store lookup failed")
		return nil, auction.ErrRoomNotFound
	}
	return room, nil
}

// StartAuction moves a waiting room to active and opens its first player.
func (a *App) StartAuction(ctx context.Context, code, requesterID string) (*models.Room, error) {
	h, err := a.registry.Lookup(code)
	if err != nil {
		return nil, err
	}
	if err := h.Engine.Start(ctx, requesterID); err != nil {
		return nil, err
	}
	return h.Engine.Snapshot(), nil
}

// JoinRoom seats a team owned by ownerID.
func (a *App) JoinRoom(ctx context.Context, code, teamName, ownerID string) (models.Team, *models.Room, error) {
	h, err := a.registry.Lookup(code)
	if err != nil {
		return models.Team{}, nil, err
	}
	team, err := h.Engine.Join(ctx, teamName, ownerID)
	if err != nil {
		return models.Team{}, nil, err
	}
	return team, h.Engine.Snapshot(), nil
}

// PlaceBid submits a bid on the open player for the team owned by ownerID.
func (a *App) PlaceBid(ctx context.Context, code, ownerID string, amount int64) (auction.BidReceipt, error) {
	h, err := a.registry.Lookup(code)
	if err != nil {
		return auction.BidReceipt{}, err
	}
	return h.Engine.PlaceBid(ctx, ownerID, amount)
}

// ListPlayers returns the catalog, optionally narrowed to one role.
func (a *App) ListPlayers(ctx context.Context, role models.Role) []models.Player {
	return catalog.FilterByRole(a.players, role)
}

// CloseRoom tears a room down. Only its creator may do so when the room
// recorded one.
func (a *App) CloseRoom(ctx context.Context, code, requesterID string) error {
	h, err := a.registry.Lookup(code)
	if err != nil {
		return err
	}
	if creator := h.Engine.Snapshot().CreatorID; creator != "" && creator != requesterID {
		return ErrCloseForbidden
	}
	return a.registry.Remove(code, CloseReasonHost)
}

// Subscribe attaches sub to the room's event stream and returns the snapshot
// at the time of subscribing.
func (a *App) Subscribe(code string, sub broadcast.Subscriber) (*models.Room, error) {
	h, err := a.registry.Lookup(code)
	if err != nil {
		return nil, err
	}
	if err := h.Subscribers.Subscribe(sub); err != nil {
		return nil, auction.ErrRoomClosed
	}
	return h.Engine.Snapshot(), nil
}

// Unsubscribe detaches a connection. Unknown rooms are ignored.
func (a *App) Unsubscribe(code, id string) {
	if h, err := a.registry.Lookup(code); err == nil {
		h.Subscribers.Unsubscribe(id)
	}
}
