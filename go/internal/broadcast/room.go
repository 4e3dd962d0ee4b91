package broadcast

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/bidroom/go/internal/auction/events"
)

var ErrClosed = errors.New("broadcast room closed")

// Subscriber is a connection that receives a room's events. Deliver must not
// block; it returns false when the subscriber cannot keep up.
type Subscriber interface {
	ID() string
	Deliver(msg []byte) bool
}

// Room is the subscriber set of one auction room.
type Room struct {
	code string

	mu     sync.RWMutex
	subs   map[string]Subscriber
	closed bool
}

func NewRoom(code string) *Room {
	return &Room{code: code, subs: make(map[string]Subscriber)}
}

// Subscribe adds s. Subscribing the same id twice replaces the earlier one.
func (r *Room) Subscribe(s Subscriber) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.subs[s.ID()] = s

	log.Debug().
		Str("room_code", r.code).
		Str("connection_id", s.ID()).
		Int("subscribers", len(r.subs)).
		Msg("subscriber added")
	return nil
}

func (r *Room) Unsubscribe(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)
}

// drop removes s unless its id has since been taken by a newer
// subscription.
func (r *Room) drop(s Subscriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.subs[s.ID()]; ok && cur == s {
		delete(r.subs, s.ID())
	}
}

// Len returns the number of subscribers.
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Publish marshals the event once and hands it to every subscriber.
// Subscribers that cannot take it are dropped.
func (r *Room) Publish(e *events.Event) {
	r.mu.RLock()
	targets := make([]Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		targets = append(targets, s)
	}
	r.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		log.Error().Err(err).Str("room_code", r.code).Msg("failed to marshal event for broadcast")
		return
	}

	for _, s := range targets {
		if !s.Deliver(data) {
			log.Warn().
				Str("room_code", r.code).
				Str("connection_id", s.ID()).
				Str("event_type", string(e.Type)).
				Msg("subscriber send buffer full, dropping subscriber")
			r.drop(s)
		}
	}

	log.Debug().
		Str("event_type", string(e.Type)).
		Str("room_code", r.code).
		Int("subscribers", len(targets)).
		Msg("event broadcasted")
}

// Close drops every subscriber and refuses new ones. It returns the
// subscribers that were attached.
func (r *Room) Close() []Subscriber {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	out := make([]Subscriber, 0, len(r.subs))
	for _, s := range r.subs {
		out = append(out, s)
	}
	r.subs = make(map[string]Subscriber)
	return out
}
