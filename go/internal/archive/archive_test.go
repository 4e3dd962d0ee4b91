package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/bidroom/go/internal/auction/events"
	"github.com/mcdev12/bidroom/go/internal/migrations"
)

type fakeMsg struct {
	data                 []byte
	acked, naked, termed bool
}

func (m *fakeMsg) Data() []byte    { return m.data }
func (m *fakeMsg) Subject() string { return "auction.events.123456.new_bid" }

func (m *fakeMsg) Ack() error {
	m.acked = true
	return nil
}

func (m *fakeMsg) Nak() error {
	m.naked = true
	return nil
}

func (m *fakeMsg) Term() error {
	m.termed = true
	return nil
}

func TestDecode(t *testing.T) {
	e, err := events.New("123456", events.TypeItemSold, events.ItemSoldPayload{Price: 1200}, time.Now())
	require.NoError(t, err)
	raw, err := json.Marshal(e)
	require.NoError(t, err)

	got, err := decode(raw)
	require.NoError(t, err)
	assert.Equal(t, e.ID, got.ID)
	assert.Equal(t, events.TypeItemSold, got.Type)

	for _, bad := range []string{`not json`, `{}`, `{"id":"x"}`, `{"id":"x","room_code":"123456"}`} {
		_, err := decode([]byte(bad))
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestProcessSettlesMessages(t *testing.T) {
	ctx := context.Background()

	ok := &fakeMsg{}
	process(ctx, func(context.Context, []byte) error { return nil }, ok)
	assert.True(t, ok.acked)

	malformed := &fakeMsg{}
	process(ctx, func(context.Context, []byte) error { return ErrMalformed }, malformed)
	assert.True(t, malformed.termed)
	assert.False(t, malformed.naked)

	transient := &fakeMsg{}
	process(ctx, func(context.Context, []byte) error { return errors.New("db down") }, transient)
	assert.True(t, transient.naked)
	assert.False(t, transient.acked)
}

func TestSinkIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration tests")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, migrations.Up(db))

	ctx := context.Background()
	sink := NewSink(db)
	code := time.Now().Format("150405")

	first, err := events.New(code, events.TypeTeamJoined, events.TeamJoinedPayload{TotalTeams: 1}, time.Now())
	require.NoError(t, err)
	second, err := events.New(code, events.TypeAuctionStarted, events.AuctionStartedPayload{TotalItems: 2}, time.Now().Add(time.Second))
	require.NoError(t, err)

	for _, e := range []*events.Event{first, second, first} {
		raw, err := json.Marshal(e)
		require.NoError(t, err)
		require.NoError(t, sink.Store(ctx, raw))
	}

	history, err := sink.History(ctx, code)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, first.ID, history[0].ID)
	assert.Equal(t, events.TypeAuctionStarted, history[1].Type)
}
