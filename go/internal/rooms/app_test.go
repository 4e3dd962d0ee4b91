package rooms

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/models"
	"github.com/mcdev12/bidroom/go/internal/registry"
	"github.com/mcdev12/bidroom/go/internal/roomstore"
)

func samplePlayers() []models.Player {
	return []models.Player{
		{ID: models.PlayerID("Opener"), Name: "Opener", Role: models.RoleBatsman, BasePrice: 500, Country: "India", Rating: 4},
		{ID: models.PlayerID("Quick"), Name: "Quick", Role: models.RoleBowler, BasePrice: 300, Country: "England", Rating: 3},
	}
}

type sink struct{}

func (sink) ID() string          { return "watcher" }
func (sink) Deliver([]byte) bool { return true }

func newApp(t *testing.T, store roomstore.Store) (*App, *registry.Registry) {
	t.Helper()
	reg := registry.New(samplePlayers(), registry.DefaultConfig(), registry.WithClock(clockwork.NewFakeClock()))
	t.Cleanup(func() { reg.Shutdown("test") })
	return NewApp(reg, samplePlayers(), store), reg
}

func TestRoomLifecycle(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, nil)

	room, err := app.CreateRoom(ctx, "host")
	require.NoError(t, err)
	assert.Len(t, room.Code, 6)
	assert.Equal(t, models.PhaseWaiting, room.Phase)
	assert.Equal(t, 2, room.TotalPlayers)

	team, room, err := app.JoinRoom(ctx, room.Code, "Kings", "host")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultBudget, team.Budget)
	require.Len(t, room.Teams, 1)

	_, _, err = app.JoinRoom(ctx, room.Code, "Riders", "guest")
	require.NoError(t, err)

	_, err = app.StartAuction(ctx, room.Code, "guest")
	require.ErrorIs(t, err, auction.ErrForbidden)

	room, err = app.StartAuction(ctx, room.Code, "host")
	require.NoError(t, err)
	assert.Equal(t, models.PhaseActive, room.Phase)
	require.NotNil(t, room.CurrentPlayer)
	assert.Equal(t, "Opener", room.CurrentPlayer.Name)

	_, err = app.PlaceBid(ctx, room.Code, "guest", 500)
	require.ErrorIs(t, err, auction.ErrBidTooLow)

	receipt, err := app.PlaceBid(ctx, room.Code, "guest", 600)
	require.NoError(t, err)
	assert.Equal(t, "Riders", receipt.TeamName)

	got, err := app.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.Equal(t, int64(600), got.CurrentBid)
}

func TestUnknownRoom(t *testing.T) {
	ctx := context.Background()
	app, _ := newApp(t, nil)

	_, err := app.GetRoom(ctx, "000000")
	require.ErrorIs(t, err, auction.ErrNotFound)
	_, err = app.StartAuction(ctx, "000000", "")
	require.ErrorIs(t, err, auction.ErrNotFound)
	_, _, err = app.JoinRoom(ctx, "000000", "Kings", "c1")
	require.ErrorIs(t, err, auction.ErrNotFound)
	_, err = app.PlaceBid(ctx, "000000", "c1", 100)
	require.ErrorIs(t, err, auction.ErrNotFound)
	_, err = app.Subscribe("000000", sink{})
	require.ErrorIs(t, err, auction.ErrNotFound)
	require.ErrorIs(t, app.CloseRoom(ctx, "000000", ""), auction.ErrNotFound)
}

func TestCloseRoom(t *testing.T) {
	ctx := context.Background()
	app, reg := newApp(t, nil)

	room, err := app.CreateRoom(ctx, "host")
	require.NoError(t, err)

	require.ErrorIs(t, app.CloseRoom(ctx, room.Code, "someone"), ErrCloseForbidden)
	require.NoError(t, app.CloseRoom(ctx, room.Code, "host"))
	assert.Zero(t, reg.Len())

	_, err = app.GetRoom(ctx, room.Code)
	require.ErrorIs(t, err, auction.ErrRoomNotFound)
}

func TestGetRoomFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	store := roomstore.NewMemoryStore()
	app, reg := newApp(t, store)

	room, err := app.CreateRoom(ctx, "")
	require.NoError(t, err)
	h, err := reg.Lookup(room.Code)
	require.NoError(t, err)

	require.NoError(t, reg.Remove(room.Code, "expired"))
	<-h.Engine.Done()
	require.NoError(t, store.Put(ctx, h.Engine.Snapshot()))

	got, err := app.GetRoom(ctx, room.Code)
	require.NoError(t, err)
	assert.True(t, got.Closed)
	assert.Equal(t, room.ID, got.ID)
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	app, reg := newApp(t, nil)

	room, err := app.CreateRoom(ctx, "")
	require.NoError(t, err)

	snap, err := app.Subscribe(room.Code, sink{})
	require.NoError(t, err)
	assert.Equal(t, room.Code, snap.Code)

	h, err := reg.Lookup(room.Code)
	require.NoError(t, err)
	assert.Equal(t, 1, h.Subscribers.Len())

	app.Unsubscribe(room.Code, "watcher")
	assert.Zero(t, h.Subscribers.Len())
	app.Unsubscribe("000000", "watcher")
}

func TestListPlayers(t *testing.T) {
	app, _ := newApp(t, nil)
	assert.Len(t, app.ListPlayers(context.Background(), ""), 2)

	bowlers := app.ListPlayers(context.Background(), models.RoleBowler)
	require.Len(t, bowlers, 1)
	assert.Equal(t, "Quick", bowlers[0].Name)
}
