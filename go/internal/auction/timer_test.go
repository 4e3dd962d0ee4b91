package auction

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer_FiresOncePerArm(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fired := make(chan Expiry, 4)
	timer := NewTimer(clock, func(e Expiry) { fired <- e })

	deadline := timer.Arm(30*time.Second, 3)
	assert.Equal(t, clock.Now().Add(30*time.Second), deadline)
	require.True(t, timer.Pending())

	clock.Advance(30 * time.Second)
	select {
	case exp := <-fired:
		assert.Equal(t, Expiry{Generation: 1, ItemIndex: 3}, exp)
		assert.True(t, timer.Matches(exp))
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	clock.Advance(time.Minute)
	select {
	case exp := <-fired:
		t.Fatalf("unexpected second expiry %+v", exp)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimer_RearmSupersedes(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fired := make(chan Expiry, 4)
	timer := NewTimer(clock, func(e Expiry) { fired <- e })

	timer.Arm(30*time.Second, 0)
	clock.Advance(20 * time.Second)
	timer.Arm(30*time.Second, 0)
	clock.Advance(20 * time.Second)

	select {
	case exp := <-fired:
		t.Fatalf("superseded countdown fired %+v", exp)
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(10 * time.Second)
	select {
	case exp := <-fired:
		assert.Equal(t, uint64(2), exp.Generation)
		assert.False(t, timer.Matches(Expiry{Generation: 1}))
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

func TestTimer_Cancel(t *testing.T) {
	clock := clockwork.NewFakeClock()
	fired := make(chan Expiry, 1)
	timer := NewTimer(clock, func(e Expiry) { fired <- e })

	timer.Arm(time.Second, 0)
	timer.Cancel()
	assert.False(t, timer.Pending())
	_, ok := timer.Deadline()
	assert.False(t, ok)

	clock.Advance(time.Minute)
	select {
	case <-fired:
		t.Fatal("cancelled countdown fired")
	case <-time.After(50 * time.Millisecond):
	}

	timer.Cancel()
}
