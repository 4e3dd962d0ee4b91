package auction

import (
	"github.com/google/uuid"
)

// Lot is the arbiter's view of the player currently up for bidding.
type Lot struct {
	Open       bool
	CurrentBid int64
}

// Bid is a single bid attempt. Known is false when the submitting connection
// does not own a team in the room.
type Bid struct {
	TeamID uuid.UUID
	Known  bool
	Amount int64
}

// Funds answers whether a team can cover an amount.
type Funds interface {
	ReserveCheck(team uuid.UUID, amount int64) bool
}

// Arbiter decides whether a bid may replace the current high bid.
type Arbiter struct {
	// MinIncrement is the smallest raise over the current bid. Zero accepts
	// any amount above it.
	MinIncrement int64
}

// Evaluate runs the checks in a fixed order and returns the first failure.
func (a Arbiter) Evaluate(lot Lot, bid Bid, funds Funds) error {
	if !lot.Open {
		return ErrAuctionNotActive
	}
	if bid.Amount <= lot.CurrentBid {
		return ErrBidTooLow
	}
	if a.MinIncrement > 0 && bid.Amount-lot.CurrentBid < a.MinIncrement {
		return ErrBidTooLow
	}
	if !bid.Known {
		return ErrUnknownTeam
	}
	if !funds.ReserveCheck(bid.TeamID, bid.Amount) {
		return ErrInsufficientBudget
	}
	return nil
}

// NextMinimum is the lowest amount that would pass the price checks.
func (a Arbiter) NextMinimum(currentBid int64) int64 {
	if a.MinIncrement > 1 {
		return currentBid + a.MinIncrement
	}
	return currentBid + 1
}
