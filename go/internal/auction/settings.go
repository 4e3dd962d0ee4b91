package auction

import (
	"fmt"
	"time"

	"github.com/mcdev12/bidroom/go/internal/models"
)

const MaxTeamNameLen = 32

// Settings are the per-room auction rules.
type Settings struct {
	BidWindow      time.Duration
	MaxTeams       int
	StartingBudget int64
	MinIncrement   int64
	MailboxSize    int
}

func DefaultSettings() Settings {
	return Settings{
		BidWindow:      30 * time.Second,
		MaxTeams:       8,
		StartingBudget: models.DefaultBudget,
		MinIncrement:   0,
		MailboxSize:    64,
	}
}

// Validate rejects settings no room could run with.
func (s Settings) Validate() error {
	switch {
	case s.BidWindow <= 0:
		return fmt.Errorf("bid window must be positive, got %s", s.BidWindow)
	case s.MaxTeams < 1:
		return fmt.Errorf("max teams must be at least 1, got %d", s.MaxTeams)
	case s.StartingBudget <= 0:
		return fmt.Errorf("starting budget must be positive, got %d", s.StartingBudget)
	case s.MinIncrement < 0:
		return fmt.Errorf("min increment cannot be negative, got %d", s.MinIncrement)
	case s.MailboxSize < 1:
		return fmt.Errorf("mailbox size must be at least 1, got %d", s.MailboxSize)
	}
	return nil
}
