package catalog

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/mcdev12/bidroom/go/internal/models"
)

var ErrEmptyCatalog = errors.New("catalog is empty")

// Store is the persistent pool of auctionable players.
type Store interface {
	// LoadAll returns every player in catalog order.
	LoadAll(ctx context.Context) ([]models.Player, error)
	Count(ctx context.Context) (int, error)
	// InsertMany adds players, skipping ids that already exist, and reports
	// how many were inserted.
	InsertMany(ctx context.Context, players []models.Player) (int, error)
}

// MemoryStore keeps the catalog in process.
type MemoryStore struct {
	mu      sync.RWMutex
	order   []models.Player
	present map[uuid.UUID]bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{present: make(map[uuid.UUID]bool)}
}

func (s *MemoryStore) LoadAll(ctx context.Context) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Player{}, s.order...), nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order), nil
}

func (s *MemoryStore) InsertMany(ctx context.Context, players []models.Player) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, p := range players {
		if s.present[p.ID] {
			continue
		}
		s.present[p.ID] = true
		s.order = append(s.order, p)
		inserted++
	}
	return inserted, nil
}

// FilterByRole returns the players with the given role, all of them when
// role is empty.
func FilterByRole(players []models.Player, role models.Role) []models.Player {
	if role == "" {
		return players
	}
	out := make([]models.Player, 0, len(players))
	for _, p := range players {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}
