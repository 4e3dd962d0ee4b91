package auction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bidroom/go/internal/auction/events"
	"github.com/mcdev12/bidroom/go/internal/models"
)

type recorder struct {
	mu     sync.Mutex
	events []*events.Event
}

func (r *recorder) Publish(e *events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) ofType(t events.Type) []*events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func testPlayers(prices ...int64) []models.Player {
	players := make([]models.Player, 0, len(prices))
	for i, price := range prices {
		name := fmt.Sprintf("Player %d", i+1)
		players = append(players, models.Player{
			ID:        models.PlayerID(name),
			Name:      name,
			Role:      models.RoleBatsman,
			BasePrice: price,
			Country:   "India",
			Rating:    3,
		})
	}
	return players
}

type harness struct {
	engine *Engine
	clock  *clockwork.FakeClock
	events *recorder
}

func newHarness(t *testing.T, players []models.Player, mutate func(*Settings), opts ...Option) *harness {
	t.Helper()
	settings := DefaultSettings()
	if mutate != nil {
		mutate(&settings)
	}
	h := &harness{clock: clockwork.NewFakeClock(), events: &recorder{}}
	opts = append([]Option{WithClock(h.clock), WithPublisher(h.events)}, opts...)
	h.engine = New("123456", players, settings, opts...)
	t.Cleanup(func() { h.engine.Close("test finished") })
	return h
}

func (h *harness) join(t *testing.T, name, owner string) models.Team {
	t.Helper()
	team, err := h.engine.Join(context.Background(), name, owner)
	require.NoError(t, err)
	return team
}

func (h *harness) waitIndex(t *testing.T, index int) *models.Room {
	t.Helper()
	require.Eventually(t, func() bool {
		return h.engine.Snapshot().CurrentIndex == index
	}, 2*time.Second, 5*time.Millisecond)
	return h.engine.Snapshot()
}

func TestEngine_SoldOnExpiryScenario(t *testing.T) {
	players := testPlayers(1000, 500, 700)
	h := newHarness(t, players, nil)
	ctx := context.Background()

	teamA := h.join(t, "Team A", "conn-a")
	h.join(t, "Team B", "conn-b")
	assert.Equal(t, int64(8000), teamA.Budget)

	require.NoError(t, h.engine.Start(ctx, ""))
	room := h.engine.Snapshot()
	require.Equal(t, models.PhaseActive, room.Phase)
	require.Equal(t, 0, room.CurrentIndex)
	require.Equal(t, int64(1000), room.CurrentBid)
	require.Nil(t, room.CurrentBidder)
	require.NotNil(t, room.TimerEnd)

	receipt, err := h.engine.PlaceBid(ctx, "conn-a", 1100)
	require.NoError(t, err)
	assert.Equal(t, teamA.ID, receipt.TeamID)
	assert.False(t, receipt.Sold)

	_, err = h.engine.PlaceBid(ctx, "conn-b", 1050)
	require.ErrorIs(t, err, ErrBidTooLow)

	room = h.engine.Snapshot()
	require.Equal(t, int64(1100), room.CurrentBid)
	require.Equal(t, teamA.ID, *room.CurrentBidder)

	h.clock.Advance(30 * time.Second)
	room = h.waitIndex(t, 1)

	assert.Equal(t, []uuid.UUID{players[0].ID}, room.SoldPlayers)
	assert.Equal(t, int64(500), room.CurrentBid)
	assert.Nil(t, room.CurrentBidder)
	a, ok := room.Team(teamA.ID)
	require.True(t, ok)
	assert.Equal(t, int64(8000-1100), a.Budget)
	assert.Equal(t, []uuid.UUID{players[0].ID}, a.Players)

	sold := h.events.ofType(events.TypeItemSold)
	require.Len(t, sold, 1)
	var payload events.ItemSoldPayload
	require.NoError(t, json.Unmarshal(sold[0].Data, &payload))
	assert.Equal(t, int64(1100), payload.Price)
	assert.Equal(t, "Team A", payload.Team.Name)

	opened := h.events.ofType(events.TypeItemOpened)
	require.Len(t, opened, 2)
}

func TestEngine_BidRejections(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		amount  int64
		started bool
		wantErr error
	}{
		{"before start", "conn-a", 2000, false, ErrAuctionNotActive},
		{"equal to base price", "conn-a", 1000, true, ErrBidTooLow},
		{"below base price", "conn-a", 10, true, ErrBidTooLow},
		{"unknown connection", "conn-x", 2000, true, ErrUnknownTeam},
		{"too low beats unknown team", "conn-x", 500, true, ErrBidTooLow},
		{"over budget", "conn-a", 8001, true, ErrInsufficientBudget},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, testPlayers(1000, 500), nil)
			ctx := context.Background()
			h.join(t, "Team A", "conn-a")
			h.join(t, "Team B", "conn-b")
			if tt.started {
				require.NoError(t, h.engine.Start(ctx, ""))
			}
			before := h.engine.Snapshot()

			_, err := h.engine.PlaceBid(ctx, tt.owner, tt.amount)
			require.ErrorIs(t, err, tt.wantErr)

			after := h.engine.Snapshot()
			assert.Equal(t, before.Version, after.Version, "rejected bid must not publish state")
			assert.Equal(t, before.CurrentBid, after.CurrentBid)
			assert.Equal(t, before.CurrentBidder, after.CurrentBidder)
			assert.Empty(t, h.events.ofType(events.TypeNewBid))
		})
	}
}

func TestEngine_AuctionNotActiveIsInvalidTransition(t *testing.T) {
	h := newHarness(t, testPlayers(1000), nil)
	h.join(t, "Team A", "conn-a")

	_, err := h.engine.PlaceBid(context.Background(), "conn-a", 2000)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, "invalid_transition", Code(err))
}

func TestEngine_JoinRules(t *testing.T) {
	ctx := context.Background()

	t.Run("room full", func(t *testing.T) {
		h := newHarness(t, testPlayers(100), func(s *Settings) { s.MaxTeams = 2 })
		h.join(t, "One", "c1")
		h.join(t, "Two", "c2")

		_, err := h.engine.Join(ctx, "Three", "c3")
		require.ErrorIs(t, err, ErrRoomFull)
		assert.Len(t, h.engine.Snapshot().Teams, 2)
	})

	t.Run("after start", func(t *testing.T) {
		h := newHarness(t, testPlayers(100), nil)
		h.join(t, "One", "c1")
		require.NoError(t, h.engine.Start(ctx, ""))

		_, err := h.engine.Join(ctx, "Late", "c2")
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("name taken ignoring case", func(t *testing.T) {
		h := newHarness(t, testPlayers(100), nil)
		h.join(t, "Chennai", "c1")

		_, err := h.engine.Join(ctx, "  chennai ", "c2")
		require.ErrorIs(t, err, ErrTeamNameTaken)
	})

	t.Run("one team per connection", func(t *testing.T) {
		h := newHarness(t, testPlayers(100), nil)
		h.join(t, "Chennai", "c1")

		_, err := h.engine.Join(ctx, "Mumbai", "c1")
		require.ErrorIs(t, err, ErrAlreadyJoined)
	})

	t.Run("blank name", func(t *testing.T) {
		h := newHarness(t, testPlayers(100), nil)

		_, err := h.engine.Join(ctx, "   ", "c1")
		require.ErrorIs(t, err, ErrInvalidArgument)
	})

	t.Run("team joined event", func(t *testing.T) {
		h := newHarness(t, testPlayers(100), nil)
		h.join(t, "One", "c1")
		h.join(t, "Two", "c2")

		joined := h.events.ofType(events.TypeTeamJoined)
		require.Len(t, joined, 2)
		var payload events.TeamJoinedPayload
		require.NoError(t, json.Unmarshal(joined[1].Data, &payload))
		assert.Equal(t, "Two", payload.Team.Name)
		assert.Equal(t, "c2", payload.Team.OwnerID)
		assert.Equal(t, 2, payload.TotalTeams)
	})
}

func TestEngine_StartRules(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a team", func(t *testing.T) {
		h := newHarness(t, testPlayers(100), nil)

		err := h.engine.Start(ctx, "")
		require.ErrorIs(t, err, ErrNoTeams)
		assert.Equal(t, models.PhaseWaiting, h.engine.Snapshot().Phase)
	})

	t.Run("only creator", func(t *testing.T) {
		h := newHarness(t, testPlayers(100), nil, WithCreator("host"))
		h.join(t, "One", "c1")

		require.ErrorIs(t, h.engine.Start(ctx, "c1"), ErrNotCreator)
		require.NoError(t, h.engine.Start(ctx, "host"))
	})

	t.Run("twice", func(t *testing.T) {
		h := newHarness(t, testPlayers(100, 200), nil)
		h.join(t, "One", "c1")
		h.join(t, "Two", "c2")
		require.NoError(t, h.engine.Start(ctx, ""))

		require.ErrorIs(t, h.engine.Start(ctx, ""), ErrAlreadyStarted)
	})

	t.Run("empty pool completes", func(t *testing.T) {
		h := newHarness(t, nil, nil)
		h.join(t, "One", "c1")
		require.NoError(t, h.engine.Start(ctx, ""))

		room := h.engine.Snapshot()
		assert.Equal(t, models.PhaseCompleted, room.Phase)
		assert.Equal(t, []events.Type{events.TypeTeamJoined, events.TypeAuctionCompleted}, h.events.types())
	})

	t.Run("event order", func(t *testing.T) {
		h := newHarness(t, testPlayers(100, 200), nil)
		h.join(t, "One", "c1")
		h.join(t, "Two", "c2")
		require.NoError(t, h.engine.Start(ctx, ""))

		assert.Equal(t, []events.Type{
			events.TypeTeamJoined,
			events.TypeTeamJoined,
			events.TypeAuctionStarted,
			events.TypeItemOpened,
		}, h.events.types())
	})
}

func TestEngine_BidResetsCountdown(t *testing.T) {
	h := newHarness(t, testPlayers(1000, 500), nil)
	ctx := context.Background()
	h.join(t, "Team A", "conn-a")
	h.join(t, "Team B", "conn-b")
	require.NoError(t, h.engine.Start(ctx, ""))

	for i, amount := range []int64{1100, 1200, 1300, 1400} {
		owner := "conn-a"
		if i%2 == 1 {
			owner = "conn-b"
		}
		_, err := h.engine.PlaceBid(ctx, owner, amount)
		require.NoError(t, err)
		h.clock.Advance(20 * time.Second)
	}

	// 80 seconds since the item opened, 20 since the last bid.
	room := h.engine.Snapshot()
	require.Equal(t, 0, room.CurrentIndex)
	require.Equal(t, int64(1400), room.CurrentBid)

	blockCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntilContext(blockCtx, 1), "exactly one countdown should be pending")

	h.clock.Advance(10 * time.Second)
	room = h.waitIndex(t, 1)
	require.Equal(t, []uuid.UUID{testPlayers(1000)[0].ID}, room.SoldPlayers)
	assert.Len(t, h.events.ofType(events.TypeItemSold), 1)
}

func TestEngine_UnsoldOnExpiry(t *testing.T) {
	players := testPlayers(1000, 500)
	h := newHarness(t, players, nil)
	h.join(t, "Team A", "conn-a")
	require.NoError(t, h.engine.Start(context.Background(), ""))

	h.clock.Advance(30 * time.Second)
	room := h.waitIndex(t, 1)

	assert.Equal(t, []uuid.UUID{players[0].ID}, room.UnsoldPlayers)
	assert.Empty(t, room.SoldPlayers)
	unsold := h.events.ofType(events.TypeItemUnsold)
	require.Len(t, unsold, 1)
	var payload events.ItemUnsoldPayload
	require.NoError(t, json.Unmarshal(unsold[0].Data, &payload))
	assert.Equal(t, "no_bids", payload.Reason)
}

func TestEngine_StaleExpiryIsNoop(t *testing.T) {
	h := newHarness(t, testPlayers(1000, 500), nil)
	ctx := context.Background()
	h.join(t, "Team A", "conn-a")
	h.join(t, "Team B", "conn-b")
	require.NoError(t, h.engine.Start(ctx, ""))

	// The opening countdown is generation 1; the bid re-arms as generation 2.
	_, err := h.engine.PlaceBid(ctx, "conn-a", 1500)
	require.NoError(t, err)

	h.engine.enqueueExpiry(Expiry{Generation: 1, ItemIndex: 0})
	h.engine.enqueueExpiry(Expiry{Generation: 2, ItemIndex: 7})

	// Anything queued after the expiries is processed after them.
	_, err = h.engine.PlaceBid(ctx, "conn-b", 1)
	require.ErrorIs(t, err, ErrBidTooLow)

	room := h.engine.Snapshot()
	assert.Equal(t, 0, room.CurrentIndex)
	assert.Equal(t, int64(1500), room.CurrentBid)
	assert.Empty(t, h.events.ofType(events.TypeItemSold))
}

func TestEngine_UncontestedAndUnaffordable(t *testing.T) {
	players := testPlayers(9000, 100, 300)
	h := newHarness(t, players, nil)
	ctx := context.Background()
	team := h.join(t, "Solo", "conn-a")
	require.NoError(t, h.engine.Start(ctx, ""))

	room := h.engine.Snapshot()
	require.Equal(t, 1, room.CurrentIndex, "nobody can afford the first player")
	require.Equal(t, []uuid.UUID{players[0].ID}, room.UnsoldPlayers)

	assert.Equal(t, []events.Type{
		events.TypeTeamJoined,
		events.TypeAuctionStarted,
		events.TypeItemUnsold,
		events.TypeItemOpened,
	}, h.events.types())
	started := h.events.ofType(events.TypeAuctionStarted)
	require.Len(t, started, 1)
	payload, err := events.Decode(started[0])
	require.NoError(t, err)
	sp := payload.(*events.AuctionStartedPayload)
	require.NotNil(t, room.CurrentPlayer)
	assert.Equal(t, room.CurrentPlayer.ID, sp.CurrentItem.ID)
	assert.Equal(t, room.CurrentBid, sp.CurrentBid)

	receipt, err := h.engine.PlaceBid(ctx, "conn-a", 200)
	require.NoError(t, err)
	assert.True(t, receipt.Sold, "no other team can outbid")

	room = h.engine.Snapshot()
	assert.Equal(t, 2, room.CurrentIndex)
	solo, _ := room.Team(team.ID)
	assert.Equal(t, int64(7800), solo.Budget)
}

func TestEngine_BudgetNeverExceeded(t *testing.T) {
	players := testPlayers(3000, 3000, 3000)
	h := newHarness(t, players, nil)
	ctx := context.Background()
	teamA := h.join(t, "Team A", "conn-a")
	h.join(t, "Team B", "conn-b")
	require.NoError(t, h.engine.Start(ctx, ""))

	for i := 0; i < 2; i++ {
		_, err := h.engine.PlaceBid(ctx, "conn-a", 3500)
		require.NoError(t, err)
		h.clock.Advance(30 * time.Second)
		h.waitIndex(t, i+1)
	}

	_, err := h.engine.PlaceBid(ctx, "conn-a", 3500)
	require.ErrorIs(t, err, ErrInsufficientBudget)

	room := h.engine.Snapshot()
	a, _ := room.Team(teamA.ID)
	assert.Equal(t, int64(1000), a.Budget)
	assert.Len(t, a.Players, 2)
}

func TestEngine_ConcurrentBidsStrictlyIncreasing(t *testing.T) {
	h := newHarness(t, testPlayers(1000), func(s *Settings) { s.MailboxSize = 4 })
	ctx := context.Background()
	const bidders = 8
	for i := 0; i < bidders; i++ {
		h.join(t, fmt.Sprintf("Team %d", i), fmt.Sprintf("conn-%d", i))
	}
	require.NoError(t, h.engine.Start(ctx, ""))

	var wg sync.WaitGroup
	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(owner string, seed uint64) {
			defer wg.Done()
			rng := rand.New(rand.NewPCG(seed, seed*31))
			for j := 0; j < 50; j++ {
				amount := 1001 + rng.Int64N(6998)
				_, err := h.engine.PlaceBid(ctx, owner, amount)
				if err != nil && !errors.Is(err, ErrBidTooLow) {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}(fmt.Sprintf("conn-%d", i), uint64(i+1))
	}
	wg.Wait()

	bids := h.events.ofType(events.TypeNewBid)
	require.NotEmpty(t, bids)
	var last int64
	for _, e := range bids {
		var payload events.NewBidPayload
		require.NoError(t, json.Unmarshal(e.Data, &payload))
		require.Greater(t, payload.BidAmount, last)
		last = payload.BidAmount
	}
	assert.Equal(t, last, h.engine.Snapshot().CurrentBid)
}

func TestEngine_CloseRejectsAndCancelsTimer(t *testing.T) {
	h := newHarness(t, testPlayers(1000, 500), nil)
	ctx := context.Background()
	h.join(t, "Team A", "conn-a")
	require.NoError(t, h.engine.Start(ctx, ""))

	h.engine.Close("host left")

	_, err := h.engine.Join(ctx, "Team B", "conn-b")
	require.ErrorIs(t, err, ErrRoomClosed)
	_, err = h.engine.PlaceBid(ctx, "conn-a", 2000)
	require.ErrorIs(t, err, ErrRoomClosed)

	h.clock.Advance(time.Minute)
	room := h.engine.Snapshot()
	assert.True(t, room.Closed)
	assert.Equal(t, 0, room.CurrentIndex)
	assert.Len(t, h.events.ofType(events.TypeRoomClosed), 1)
	assert.Empty(t, h.events.ofType(events.TypeItemUnsold))
}

type panickingMetrics struct{}

func (panickingMetrics) BidEvaluated(string) { panic("metrics backend exploded") }
func (panickingMetrics) ItemClosed(string)   {}

func TestEngine_PanicClosesRoom(t *testing.T) {
	h := newHarness(t, testPlayers(1000, 500), nil, WithMetrics(panickingMetrics{}))
	ctx := context.Background()
	h.join(t, "Team A", "conn-a")
	h.join(t, "Team B", "conn-b")
	require.NoError(t, h.engine.Start(ctx, ""))

	_, err := h.engine.PlaceBid(ctx, "conn-a", 1100)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRoomClosed)

	select {
	case <-h.engine.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room kept running after a panic")
	}

	_, err = h.engine.PlaceBid(ctx, "conn-b", 1200)
	require.ErrorIs(t, err, ErrRoomClosed)

	room := h.engine.Snapshot()
	assert.True(t, room.Closed)
	closed := h.events.ofType(events.TypeRoomClosed)
	require.Len(t, closed, 1)
	payload, err := events.Decode(closed[0])
	require.NoError(t, err)
	assert.Equal(t, CloseReasonInternalError, payload.(*events.RoomClosedPayload).Reason)
}

func TestEngine_ContextCancelled(t *testing.T) {
	h := newHarness(t, testPlayers(1000), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.engine.Join(ctx, "Team A", "conn-a")
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestEngine_CompletesAfterLastPlayer(t *testing.T) {
	players := testPlayers(1000, 500)
	h := newHarness(t, players, nil)
	ctx := context.Background()
	h.join(t, "Team A", "conn-a")
	h.join(t, "Team B", "conn-b")
	require.NoError(t, h.engine.Start(ctx, ""))

	_, err := h.engine.PlaceBid(ctx, "conn-b", 1200)
	require.NoError(t, err)
	h.clock.Advance(30 * time.Second)
	h.waitIndex(t, 1)

	h.clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool {
		return h.engine.Snapshot().Phase == models.PhaseCompleted
	}, 2*time.Second, 5*time.Millisecond)

	room := h.engine.Snapshot()
	assert.Equal(t, []uuid.UUID{players[0].ID}, room.SoldPlayers)
	assert.Equal(t, []uuid.UUID{players[1].ID}, room.UnsoldPlayers)
	assert.Empty(t, room.PlayersPool)
	assert.Nil(t, room.TimerEnd)
	assert.Len(t, h.events.ofType(events.TypeAuctionCompleted), 1)
}
