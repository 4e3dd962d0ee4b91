package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bidroom/go/internal/auction/events"
)

type fakeJS struct {
	mu   sync.Mutex
	msgs []*nats.Msg
	err  error
	sent chan struct{}
}

func (f *fakeJS) PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.mu.Lock()
	f.msgs = append(f.msgs, msg)
	f.mu.Unlock()
	if f.sent != nil {
		f.sent <- struct{}{}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: "AUCTION_EVENTS", Sequence: 1}, nil
}

func newEvent(t *testing.T, typ events.Type, payload any) *events.Event {
	t.Helper()
	e, err := events.New("123456", typ, payload, time.Now())
	require.NoError(t, err)
	return e
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "auction.events.123456.new_bid", Subject("auction.events", "123456", events.TypeNewBid))
}

func TestPublisherForwardsEvents(t *testing.T) {
	js := &fakeJS{sent: make(chan struct{}, 4)}
	p := NewPublisher(js, DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	e := newEvent(t, events.TypeNewBid, events.NewBidPayload{BidAmount: 900, BidderTeam: "Kings"})
	p.Publish(e)

	select {
	case <-js.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("event not published")
	}

	js.mu.Lock()
	defer js.mu.Unlock()
	require.Len(t, js.msgs, 1)
	msg := js.msgs[0]
	assert.Equal(t, "auction.events.123456.new_bid", msg.Subject)
	assert.Equal(t, e.ID, msg.Header.Get("Event-ID"))

	var got events.Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, events.TypeNewBid, got.Type)
}

func TestPublisherSkipsConnectionEvents(t *testing.T) {
	js := &fakeJS{}
	p := NewPublisher(js, DefaultConfig())

	p.Publish(newEvent(t, events.TypeError, events.ErrorPayload{Message: "nope"}))
	p.Publish(newEvent(t, events.TypeConnected, events.ConnectedPayload{ConnectionID: "c1"}))

	assert.Empty(t, p.queue)
}

func TestPublisherDropsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Buffer = 2
	p := NewPublisher(&fakeJS{}, cfg)

	for range 5 {
		p.Publish(newEvent(t, events.TypeTeamJoined, events.TeamJoinedPayload{TotalTeams: 1}))
	}
	assert.Equal(t, uint64(3), p.Dropped())
}

func TestPublisherDrainsOnShutdown(t *testing.T) {
	js := &fakeJS{err: errors.New("no responders")}
	p := NewPublisher(js, DefaultConfig())
	for range 3 {
		p.Publish(newEvent(t, events.TypeItemUnsold, events.ItemUnsoldPayload{Reason: "no_bids"}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	js.mu.Lock()
	defer js.mu.Unlock()
	assert.Len(t, js.msgs, 3, "queued events are attempted before exit")
}
