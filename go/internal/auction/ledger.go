package auction

import (
	"fmt"

	"github.com/google/uuid"
)

type account struct {
	budget int64
	owned  []uuid.UUID
}

// Ledger tracks each team's remaining purse and acquisitions. It is owned by
// a single Engine goroutine and is not safe for concurrent use.
type Ledger struct {
	accounts map[uuid.UUID]*account
}

func NewLedger() *Ledger {
	return &Ledger{accounts: make(map[uuid.UUID]*account)}
}

// Open registers a team with its starting budget.
func (l *Ledger) Open(team uuid.UUID, budget int64) {
	l.accounts[team] = &account{budget: budget}
}

// Budget returns the team's remaining funds.
func (l *Ledger) Budget(team uuid.UUID) (int64, bool) {
	a, ok := l.accounts[team]
	if !ok {
		return 0, false
	}
	return a.budget, true
}

// Owned returns a copy of the players the team has acquired, in order.
func (l *Ledger) Owned(team uuid.UUID) []uuid.UUID {
	a, ok := l.accounts[team]
	if !ok {
		return nil
	}
	return append([]uuid.UUID{}, a.owned...)
}

// ReserveCheck reports whether the team could pay amount right now.
func (l *Ledger) ReserveCheck(team uuid.UUID, amount int64) bool {
	a, ok := l.accounts[team]
	return ok && amount <= a.budget
}

// Debit charges amount for player. It never lets a budget go negative.
func (l *Ledger) Debit(team uuid.UUID, amount int64, player uuid.UUID) error {
	a, ok := l.accounts[team]
	if !ok {
		return fmt.Errorf("debit %s: %w", team, ErrUnknownTeam)
	}
	if amount <= 0 || amount > a.budget {
		return fmt.Errorf("debit %d from %s with %d left: %w", amount, team, a.budget, ErrInsufficientBudget)
	}
	a.budget -= amount
	a.owned = append(a.owned, player)
	return nil
}
