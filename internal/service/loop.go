package service

import (
	"context"
	"sync"

	"github.com/bnema/shortsdash/internal/domain"
)

// Loop runs callbacks one at a time on a single goroutine. Roster and
// Supervisor state is only touched from inside the loop, so neither needs
// locking.
type Loop struct {
	inbox    chan func()
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{
		inbox: make(chan func(), buffer),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run drains the inbox until Stop is called. Callbacks still queued at that
// point are discarded.
func (l *Loop) Run() {
	defer close(l.done)
	for {
		select {
		case <-l.stop:
			return
		case fn := <-l.inbox:
			select {
			case <-l.stop:
				return
			default:
			}
			fn()
		}
	}
}

// Post queues fn and reports whether it was accepted. It blocks while the
// inbox is full and gives up once the loop is stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.stop:
		return false
	default:
	}
	select {
	case l.inbox <- fn:
		return true
	case <-l.stop:
		return false
	}
}

// Do runs fn on the loop and waits for it. Never call Do from a callback
// already running on the loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return domain.ErrViewClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case <-finished:
			return nil
		default:
			return domain.ErrViewClosed
		}
	}
}

func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Loop) Done() <-chan struct{} {
	return l.done
}
