package registry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/auction"
	"github.com/mcdev12/bidroom/go/internal/auction/events"
	"github.com/mcdev12/bidroom/go/internal/broadcast"
	"github.com/mcdev12/bidroom/go/internal/models"
)

const CodeLength = 6

var ErrCodeSpaceExhausted = errors.New("could not allocate a unique room code")

// Config holds the registry-wide room rules.
type Config struct {
	Settings     auction.Settings
	Shuffle      bool
	CompletedTTL time.Duration
	CodeAttempts int
}

func DefaultConfig() Config {
	return Config{
		Settings:     auction.DefaultSettings(),
		CompletedTTL: time.Hour,
		CodeAttempts: 32,
	}
}

// RoomGauge tracks how many rooms are live.
type RoomGauge interface {
	SetLiveRooms(n int)
}

type Option func(*Registry)

func WithClock(clock clockwork.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithPublisher adds a publisher that receives the events of every room, in
// addition to the room's own subscribers.
func WithPublisher(p events.Publisher) Option {
	return func(r *Registry) { r.publisher = p }
}

func WithSnapshotSink(s auction.SnapshotSink) Option {
	return func(r *Registry) { r.sink = s }
}

func WithMetrics(m auction.Metrics) Option {
	return func(r *Registry) { r.metrics = m }
}

func WithRoomGauge(g RoomGauge) Option {
	return func(r *Registry) { r.gauge = g }
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(fn func() string) Option {
	return func(r *Registry) { r.newCode = fn }
}

// Handle is a live room: its engine plus the connections watching it.
type Handle struct {
	Code        string
	Engine      *auction.Engine
	Subscribers *broadcast.Room
	CreatedAt   time.Time
}

// Registry maps join codes to live rooms. The lock guards only the map;
// rooms serialize their own state.
type Registry struct {
	cfg       Config
	players   []models.Player
	clock     clockwork.Clock
	publisher events.Publisher
	sink      auction.SnapshotSink
	metrics   auction.Metrics
	gauge     RoomGauge
	newCode   func() string

	mu    sync.RWMutex
	rooms map[string]*Handle
}

// New builds a registry whose rooms auction players in the given order.
func New(players []models.Player, cfg Config, opts ...Option) *Registry {
	if cfg.CodeAttempts < 1 {
		cfg.CodeAttempts = 1
	}
	r := &Registry{
		cfg:     cfg,
		players: append([]models.Player{}, players...),
		clock:   clockwork.NewRealClock(),
		newCode: randomCode,
		rooms:   make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func randomCode() string {
	return strconv.Itoa(100000 + rand.IntN(900000))
}

// Create allocates a fresh code and starts a room for it.
func (r *Registry) Create(ctx context.Context, creatorID string) (*Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < r.cfg.CodeAttempts; attempt++ {
		code := r.newCode()
		if len(code) != CodeLength {
			return nil, fmt.Errorf("code generator returned %q, want %d digits", code, CodeLength)
		}

		r.mu.Lock()
		if _, taken := r.rooms[code]; taken {
			r.mu.Unlock()
			log.Debug().Str("room_code", code).Int("attempt", attempt+1).Msg("room code collision, retrying")
			continue
		}
		h := r.newHandle(code, creatorID)
		r.rooms[code] = h
		live := len(r.rooms)
		r.mu.Unlock()

		r.reportLive(live)
		log.Info().
			Str("room_code", code).
			Str("room_id", h.Engine.ID().String()).
			Int("players", len(r.players)).
			Int("live_rooms", live).
			Msg("room created")
		return h, nil
	}
	return nil, ErrCodeSpaceExhausted
}

func (r *Registry) newHandle(code, creatorID string) *Handle {
	players := append([]models.Player{}, r.players...)
	if r.cfg.Shuffle {
		rand.Shuffle(len(players), func(i, j int) { players[i], players[j] = players[j], players[i] })
	}

	subs := broadcast.NewRoom(code)
	opts := []auction.Option{
		auction.WithClock(r.clock),
		auction.WithPublisher(events.Multi{subs, r.publisher}),
	}
	if r.sink != nil {
		opts = append(opts, auction.WithSnapshotSink(r.sink))
	}
	if r.metrics != nil {
		opts = append(opts, auction.WithMetrics(r.metrics))
	}
	if creatorID != "" {
		opts = append(opts, auction.WithCreator(creatorID))
	}

	return &Handle{
		Code:        code,
		Engine:      auction.New(code, players, r.cfg.Settings, opts...),
		Subscribers: subs,
		CreatedAt:   r.clock.Now(),
	}
}

// Lookup returns the live room for code.
func (r *Registry) Lookup(code string) (*Handle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.rooms[code]
	if !ok {
		return nil, auction.ErrRoomNotFound
	}
	return h, nil
}

// Remove tears the room down. Subscribers receive room_closed before they
// are detached.
func (r *Registry) Remove(code, reason string) error {
	r.mu.Lock()
	h, ok := r.rooms[code]
	if ok {
		delete(r.rooms, code)
	}
	live := len(r.rooms)
	r.mu.Unlock()

	if !ok {
		return auction.ErrRoomNotFound
	}

	h.Engine.Close(reason)
	h.Subscribers.Close()
	r.reportLive(live)

	log.Info().Str("room_code", code).Str("reason", reason).Int("live_rooms", live).Msg("room removed")
	return nil
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Codes lists the live room codes in sorted order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	r.mu.RUnlock()
	sort.Strings(codes)
	return codes
}

// Sweep removes rooms that completed more than CompletedTTL ago, and rooms
// whose engine has already shut itself down.
func (r *Registry) Sweep() int {
	now := r.clock.Now()

	var expired []string
	r.mu.RLock()
	for code, h := range r.rooms {
		snap := h.Engine.Snapshot()
		if snap.Closed {
			expired = append(expired, code)
			continue
		}
		if r.cfg.CompletedTTL > 0 && snap.Phase == models.PhaseCompleted && snap.CompletedAt != nil &&
			!now.Before(snap.CompletedAt.Add(r.cfg.CompletedTTL)) {
			expired = append(expired, code)
		}
	}
	r.mu.RUnlock()

	count := 0
	for _, code := range expired {
		if err := r.Remove(code, "expired"); err == nil {
			count++
		}
	}
	return count
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := r.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if n := r.Sweep(); n > 0 {
				log.Info().Int("removed", n).Msg("swept completed rooms")
			}
		}
	}
}

// Shutdown closes every live room.
func (r *Registry) Shutdown(reason string) {
	for _, code := range r.Codes() {
		_ = r.Remove(code, reason)
	}
}

func (r *Registry) reportLive(n int) {
	if r.gauge != nil {
		r.gauge.SetLiveRooms(n)
	}
}
