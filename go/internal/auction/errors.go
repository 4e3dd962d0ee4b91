package auction

import (
	"errors"
	"fmt"
)

// Error kinds. Every rejection returned by an Engine matches exactly one of
// these with errors.Is.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrBidTooLow          = errors.New("bid must be higher than current bid")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrUnknownTeam        = errors.New("unknown team")
	ErrRoomFull           = errors.New("room is full")
	ErrRoomClosed         = errors.New("room closed")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrConflict           = errors.New("conflict")
	ErrForbidden          = errors.New("forbidden")
)

var (
	ErrRoomNotFound     = fmt.Errorf("room %w", ErrNotFound)
	ErrAuctionNotActive = fmt.Errorf("%w: auction not active", ErrInvalidTransition)
	ErrAlreadyStarted   = fmt.Errorf("%w: auction already started", ErrInvalidTransition)
	ErrNoTeams          = fmt.Errorf("%w: at least one team must join before the auction starts", ErrInvalidTransition)
	ErrInvalidTeamName  = fmt.Errorf("%w: team name must be 1-%d characters", ErrInvalidArgument, MaxTeamNameLen)
	ErrMissingOwner     = fmt.Errorf("%w: connection id is required", ErrInvalidArgument)
	ErrTeamNameTaken    = fmt.Errorf("%w: team name already taken", ErrConflict)
	ErrAlreadyJoined    = fmt.Errorf("%w: connection already owns a team", ErrConflict)
	ErrNotCreator       = fmt.Errorf("%w: only the room creator can start the auction", ErrForbidden)
)

// Code returns the stable wire name for err's kind, "internal" when err is
// not one of the auction errors.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrBidTooLow):
		return "bid_too_low"
	case errors.Is(err, ErrInsufficientBudget):
		return "insufficient_budget"
	case errors.Is(err, ErrUnknownTeam):
		return "unknown_team"
	case errors.Is(err, ErrRoomFull):
		return "room_full"
	case errors.Is(err, ErrRoomClosed):
		return "room_closed"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "internal"
	}
}
