package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter throttles an action per client with a token bucket.
type Limiter struct {
	mu       sync.Mutex
	clients  map[string]*clientLimiter
	limit    rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
	stopOnce sync.Once
	stop     chan struct{}
}

// NewLimiter allows perMinute actions per client on average with bursts of
// burst. Clients idle for longer than idleTTL are forgotten.
func NewLimiter(perMinute float64, burst int, idleTTL time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(perMinute / 60)
	}

	l := &Limiter{
		clients: make(map[string]*clientLimiter),
		limit:   limit,
		burst:   burst,
		idleTTL: idleTTL,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	go l.cleanup()

	return l
}

// Check consumes one token for clientID. When none is available it reports
// false and how long until one is.
func (l *Limiter) Check(clientID string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	c, ok := l.clients[clientID]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[clientID] = c
	}
	c.lastSeen = now

	r := c.limiter.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (l *Limiter) Reset(clientID string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.clients, clientID)
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.clients)
}

func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.prune()
		}
	}
}

func (l *Limiter) prune() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for clientID, c := range l.clients {
		if now.Sub(c.lastSeen) > l.idleTTL {
			delete(l.clients, clientID)
		}
	}
}
