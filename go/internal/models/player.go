package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Role is the playing role a player is auctioned under.
type Role string

const (
	RoleBatsman      Role = "batsman"
	RoleBowler       Role = "bowler"
	RoleAllRounder   Role = "all-rounder"
	RoleWicketKeeper Role = "wicket-keeper"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleBatsman, RoleBowler, RoleAllRounder, RoleWicketKeeper}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// ParseRole normalises s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

const (
	MinRating = 1
	MaxRating = 5
)

// Player is an auctionable catalog entry. Players are created once when the
// catalog loads and are never mutated afterwards.
type Player struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Role      Role       `json:"role"`
	BasePrice int64      `json:"base_price"`
	Country   string     `json:"country"`
	Rating    int        `json:"rating"`
	Stats     Attributes `json:"stats,omitempty"`
}

var ErrInvalidPlayer = errors.New("invalid player")

// Validate checks the catalog constraints on a player.
func (p Player) Validate() error {
	switch {
	case p.ID == uuid.Nil:
		return fmt.Errorf("%w: missing id", ErrInvalidPlayer)
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: missing name", ErrInvalidPlayer)
	case !p.Role.Valid():
		return fmt.Errorf("%w: %s has unknown role %q", ErrInvalidPlayer, p.Name, p.Role)
	case p.BasePrice <= 0:
		return fmt.Errorf("%w: %s has non-positive base price", ErrInvalidPlayer, p.Name)
	case p.Rating < MinRating || p.Rating > MaxRating:
		return fmt.Errorf("%w: %s rating %d outside %d-%d", ErrInvalidPlayer, p.Name, p.Rating, MinRating, MaxRating)
	}
	if err := p.Stats.Validate(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidPlayer, p.Name, err)
	}
	return nil
}

// PlayerID derives a stable id from a player's name so reseeding the same
// catalog produces the same identities.
func PlayerID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("bidroom/player/"+strings.ToLower(strings.TrimSpace(name))))
}
