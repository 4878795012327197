package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLimiter(perMinute float64, burst int) (*Limiter, *time.Time) {
	l := NewLimiter(perMinute, burst, 10*time.Minute)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestLimiter_Check_AllowsBurst(t *testing.T) {
	l, _ := newTestLimiter(6, 3)
	defer l.Stop()

	for i := 0; i < 3; i++ {
		allowed, wait := l.Check("client1")
		assert.True(t, allowed)
		assert.Zero(t, wait)
	}
}

func TestLimiter_Check_BlocksAfterBurst(t *testing.T) {
	l, _ := newTestLimiter(6, 2)
	defer l.Stop()

	l.Check("client1")
	l.Check("client1")

	allowed, wait := l.Check("client1")
	assert.False(t, allowed)
	assert.Equal(t, 10*time.Second, wait)
}

func TestLimiter_Check_RefillsOverTime(t *testing.T) {
	l, clock := newTestLimiter(6, 1)
	defer l.Stop()

	allowed, _ := l.Check("client1")
	assert.True(t, allowed)
	allowed, _ = l.Check("client1")
	assert.False(t, allowed)

	*clock = clock.Add(10 * time.Second)
	allowed, _ = l.Check("client1")
	assert.True(t, allowed)
}

func TestLimiter_Check_RejectedAttemptsDoNotConsume(t *testing.T) {
	l, clock := newTestLimiter(6, 1)
	defer l.Stop()

	l.Check("client1")
	for i := 0; i < 5; i++ {
		l.Check("client1")
	}

	*clock = clock.Add(10 * time.Second)
	allowed, _ := l.Check("client1")
	assert.True(t, allowed)
}

func TestLimiter_Check_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(6, 1)
	defer l.Stop()

	l.Check("client1")
	allowed, _ := l.Check("client2")
	assert.True(t, allowed)
}

func TestLimiter_ZeroRateIsUnlimited(t *testing.T) {
	l, _ := newTestLimiter(0, 1)
	defer l.Stop()

	for i := 0; i < 100; i++ {
		allowed, _ := l.Check("client1")
		assert.True(t, allowed)
	}
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter(6, 1)
	defer l.Stop()

	l.Check("client1")
	l.Reset("client1")

	allowed, _ := l.Check("client1")
	assert.True(t, allowed)
}

func TestLimiter_Prune(t *testing.T) {
	l, clock := newTestLimiter(6, 1)
	defer l.Stop()

	l.Check("old")
	*clock = clock.Add(11 * time.Minute)
	l.Check("fresh")

	l.prune()

	assert.Equal(t, 1, l.Len())
}
