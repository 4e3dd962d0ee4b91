// Package roomstore persists the latest snapshot of each room so that a room
// can still be read after it has left the in-process registry.
package roomstore

import (
	"context"
	"errors"
	"sync"

	"github.com/mcdev12/bidroom/go/internal/models"
)

var ErrNotFound = errors.New("room snapshot not found")

// Store keeps one snapshot per room code.
type Store interface {
	Get(ctx context.Context, code string) (*models.Room, error)
	// Put writes room unless the stored snapshot for the same room is newer.
	Put(ctx context.Context, room *models.Room) error
}

// newer reports whether next should replace prev.
func newer(prev, next *models.Room) bool {
	if prev == nil || prev.ID != next.ID {
		return true
	}
	return next.Version > prev.Version
}

type MemoryStore struct {
	mu    sync.RWMutex
	rooms map[string]*models.Room
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rooms: make(map[string]*models.Room)}
}

func (s *MemoryStore) Get(ctx context.Context, code string) (*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	return room, nil
}

func (s *MemoryStore) Put(ctx context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if newer(s.rooms[room.Code], room) {
		s.rooms[room.Code] = room
	}
	return nil
}
