package auction

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Expiry identifies one armed countdown. A room only honours the expiry
// whose generation matches the countdown it currently has pending.
type Expiry struct {
	Generation uint64
	ItemIndex  int
}

// Timer holds the single bid countdown of a room. All methods must be called
// from the owning Engine goroutine; the fire callback runs on a timer
// goroutine and must hand the expiry back to the engine's mailbox.
type Timer struct {
	clock clockwork.Clock
	fire  func(Expiry)

	gen      uint64
	pending  bool
	deadline time.Time
	current  clockwork.Timer
	stop     chan struct{}
}

func NewTimer(clock clockwork.Clock, fire func(Expiry)) *Timer {
	return &Timer{clock: clock, fire: fire}
}

// Arm replaces any pending countdown with a fresh one of length d and returns
// its deadline.
func (t *Timer) Arm(d time.Duration, itemIndex int) time.Time {
	t.Cancel()

	t.gen++
	exp := Expiry{Generation: t.gen, ItemIndex: itemIndex}
	timer := t.clock.NewTimer(d)
	stop := make(chan struct{})

	t.current = timer
	t.stop = stop
	t.pending = true
	t.deadline = t.clock.Now().Add(d)

	go func() {
		select {
		case <-timer.Chan():
			t.fire(exp)
		case <-stop:
		}
	}()

	return t.deadline
}

// Cancel stops the pending countdown without firing it.
func (t *Timer) Cancel() {
	if t.current == nil {
		return
	}
	stopAndDrainTimer(t.current)
	close(t.stop)
	t.current = nil
	t.stop = nil
	t.pending = false
	t.deadline = time.Time{}
}

// Matches reports whether exp belongs to the countdown still pending.
func (t *Timer) Matches(exp Expiry) bool {
	return t.pending && exp.Generation == t.gen
}

// Fired marks the pending countdown as consumed by the engine.
func (t *Timer) Fired() {
	t.current = nil
	t.stop = nil
	t.pending = false
	t.deadline = time.Time{}
}

// Pending reports whether a countdown is armed.
func (t *Timer) Pending() bool { return t.pending }

// Deadline returns the pending countdown's deadline.
func (t *Timer) Deadline() (time.Time, bool) {
	return t.deadline, t.pending
}

// stopAndDrainTimer stops a timer and drains its channel if it already fired.
func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
