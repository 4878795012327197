package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/port"
)

// Session is the signed-in user behind one session cookie. It is populated
// by a single whoami call and invalidated on logout or on any
// authentication failure. Views consult Active before opening streams.
type Session struct {
	auth     port.AuthAPI
	initOnce sync.Once

	mu          sync.RWMutex
	user        *domain.User
	initialized bool

	listenersMu sync.Mutex
	listeners   map[int]func()
	nextID      int
}

func NewSession(auth port.AuthAPI) *Session {
	return &Session{auth: auth}
}

// Init asks the backend who the cookie belongs to. Any failure leaves the
// session invalid.
func (s *Session) Init(ctx context.Context) error {
	user, err := s.auth.Me(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized = true
	if err != nil {
		s.user = nil
		return err
	}
	if user == nil || user.Disabled {
		s.user = nil
		return domain.ErrUnauthenticated
	}
	s.user = user
	return nil
}

// Ensure runs Init once. Concurrent callers wait for the first one.
func (s *Session) Ensure(ctx context.Context) {
	s.initOnce.Do(func() {
		if err := s.Init(ctx); err != nil {
			logger.Warn.Printf("session init failed: %v", err)
		}
	})
}

func (s *Session) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

// Invalidate drops the user. Listeners registered with OnInvalidate run when
// an active session becomes inactive.
func (s *Session) Invalidate() {
	s.mu.Lock()
	wasActive := s.user != nil
	s.initialized = true
	s.user = nil
	s.mu.Unlock()

	if wasActive {
		s.notifyInvalidated()
	}
}

// OnInvalidate registers fn and returns a function that unregisters it. fn
// must not block.
func (s *Session) OnInvalidate(fn func()) (remove func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()

	if s.listeners == nil {
		s.listeners = make(map[int]func())
	}
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn

	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, id)
	}
}

func (s *Session) notifyInvalidated() {
	s.listenersMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Session) User() (*domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user, s.user != nil
}

func (s *Session) Active() bool {
	_, ok := s.User()
	return ok
}

// Logout ends the session on the backend. The local state is invalidated
// even when the backend call fails.
func (s *Session) Logout(ctx context.Context) error {
	defer s.Invalidate()
	if err := s.auth.Logout(ctx); err != nil && !errors.Is(err, domain.ErrUnauthenticated) {
		return err
	}
	return nil
}

const (
	defaultSessionIdleTTL = 30 * time.Minute
	sessionPruneInterval  = time.Minute
)

type cachedSession struct {
	session  *Session
	lastSeen time.Time
}

// Sessions caches one active Session per cookie so whoami runs once per
// signed-in browser rather than once per request. Sessions that fail to
// initialize are not kept, and entries unused for idleTTL are pruned.
type Sessions struct {
	mu        sync.Mutex
	sessions  map[string]*cachedSession
	idleTTL   time.Duration
	now       func() time.Time
	lastPrune time.Time
}

func NewSessions() *Sessions {
	return NewSessionsWithTTL(defaultSessionIdleTTL)
}

func NewSessionsWithTTL(idleTTL time.Duration) *Sessions {
	if idleTTL <= 0 {
		idleTTL = defaultSessionIdleTTL
	}
	return &Sessions{
		sessions: make(map[string]*cachedSession),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Get returns the cached session for key, initializing a new one with auth
// when none exists or the cached one was invalidated. The returned session
// may be inactive; it is then not cached.
func (s *Sessions) Get(ctx context.Context, key string, auth port.AuthAPI) *Session {
	s.mu.Lock()
	now := s.now()
	s.pruneLocked(now)

	entry, ok := s.sessions[key]
	if ok && entry.session.Initialized() && !entry.session.Active() {
		delete(s.sessions, key)
		ok = false
	}
	if !ok {
		entry = &cachedSession{session: NewSession(auth)}
		s.sessions[key] = entry
	}
	entry.lastSeen = now
	sess := entry.session
	s.mu.Unlock()

	sess.Ensure(ctx)

	if !sess.Active() {
		s.mu.Lock()
		if cur, ok := s.sessions[key]; ok && cur.session == sess {
			delete(s.sessions, key)
		}
		s.mu.Unlock()
	}
	return sess
}

// pruneLocked drops idle entries at most once per sessionPruneInterval.
// Callers hold mu.
func (s *Sessions) pruneLocked(now time.Time) {
	if now.Sub(s.lastPrune) < sessionPruneInterval {
		return
	}
	s.lastPrune = now
	for key, entry := range s.sessions {
		if now.Sub(entry.lastSeen) > s.idleTTL {
			delete(s.sessions, key)
		}
	}
}

// Forget drops the cached session for key and invalidates it.
func (s *Sessions) Forget(key string) {
	s.mu.Lock()
	entry, ok := s.sessions[key]
	delete(s.sessions, key)
	s.mu.Unlock()

	if ok {
		entry.session.Invalidate()
	}
}

func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
