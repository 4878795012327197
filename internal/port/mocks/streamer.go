package mocks

import (
	"context"
	"sync"

	"github.com/bnema/shortsdash/internal/port"
)

// Streamer is a scriptable port.StatusStreamer. Every open is recorded and
// returns a Stream the test drives with Send and End.
type Streamer struct {
	mu      sync.Mutex
	streams map[string][]*Stream
	openErr map[string]error
}

var _ port.StatusStreamer = (*Streamer)(nil)

func NewStreamer() *Streamer {
	return &Streamer{
		streams: make(map[string][]*Stream),
		openErr: make(map[string]error),
	}
}

// FailOpen makes every later open of videoID fail with err.
func (s *Streamer) FailOpen(videoID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openErr[videoID] = err
}

func (s *Streamer) OpenStatusStream(ctx context.Context, videoID string) (port.StatusStream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.openErr[videoID]; err != nil {
		s.streams[videoID] = append(s.streams[videoID], nil)
		return nil, err
	}
	st := &Stream{
		ctx:    ctx,
		events: make(chan port.StreamEvent, 16),
		ended:  make(chan struct{}),
	}
	s.streams[videoID] = append(s.streams[videoID], st)
	return st, nil
}

// Opens returns how many times videoID was opened, failed opens included.
func (s *Streamer) Opens(videoID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams[videoID])
}

// Latest returns the most recent successfully opened stream of videoID.
func (s *Streamer) Latest(videoID string) *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	streams := s.streams[videoID]
	for i := len(streams) - 1; i >= 0; i-- {
		if streams[i] != nil {
			return streams[i]
		}
	}
	return nil
}

// Stream is one scripted status stream.
type Stream struct {
	ctx    context.Context
	events chan port.StreamEvent
	cur    port.StreamEvent

	mu      sync.Mutex
	err     error
	endErr  error
	endOnce sync.Once
	ended   chan struct{}
	closed  bool
}

// Send delivers a data event and reports whether the reader could still
// receive it.
func (s *Stream) Send(data string) bool {
	return s.SendEvent("message", data)
}

func (s *Stream) SendEvent(typ, data string) bool {
	select {
	case <-s.ended:
		return false
	case <-s.ctx.Done():
		return false
	default:
	}
	select {
	case s.events <- port.StreamEvent{Type: typ, Data: []byte(data)}:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// End finishes the stream. A nil err is a clean end of stream.
func (s *Stream) End(err error) {
	s.endOnce.Do(func() {
		s.mu.Lock()
		s.endErr = err
		s.mu.Unlock()
		close(s.ended)
	})
}

func (s *Stream) Next() bool {
	select {
	case ev := <-s.events:
		s.cur = ev
		return true
	default:
	}
	select {
	case ev := <-s.events:
		s.cur = ev
		return true
	case <-s.ended:
		s.mu.Lock()
		s.err = s.endErr
		s.mu.Unlock()
		return false
	case <-s.ctx.Done():
		s.mu.Lock()
		s.err = s.ctx.Err()
		s.mu.Unlock()
		return false
	}
}

func (s *Stream) Event() port.StreamEvent {
	return s.cur
}

func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Cancelled reports whether the consumer released the stream's context.
func (s *Stream) Cancelled() bool {
	return s.ctx.Err() != nil
}

// Closed reports whether the consumer called Close.
func (s *Stream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
