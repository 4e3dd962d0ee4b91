package roomstore

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/models"
)

// Persister writes room snapshots to a Store off the room goroutines. Only
// the latest pending snapshot of each room is written; intermediate ones are
// coalesced away.
type Persister struct {
	store   Store
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*models.Room
	wake    chan struct{}
}

func NewPersister(store Store) *Persister {
	return &Persister{
		store:   store,
		timeout: 5 * time.Second,
		pending: make(map[string]*models.Room),
		wake:    make(chan struct{}, 1),
	}
}

// Save queues room for writing. It never blocks.
func (p *Persister) Save(room *models.Room) {
	p.mu.Lock()
	if newer(p.pending[room.Code], room) {
		p.pending[room.Code] = room
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Run writes queued snapshots until ctx is cancelled, then flushes what is
// still pending.
func (p *Persister) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), p.timeout)
			p.Flush(flushCtx)
			cancel()
			return
		case <-p.wake:
			p.Flush(ctx)
		}
	}
}

// Flush writes every pending snapshot now.
func (p *Persister) Flush(ctx context.Context) {
	p.mu.Lock()
	batch := p.pending
	p.pending = make(map[string]*models.Room, len(batch))
	p.mu.Unlock()

	for code, room := range batch {
		putCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := p.store.Put(putCtx, room)
		cancel()
		if err != nil {
			log.Error().Err(err).Str("room_code", code).Uint64("version", room.Version).Msg("failed to persist room snapshot")
		}
	}
}

// Pending returns the number of rooms waiting to be written.
func (p *Persister) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}
