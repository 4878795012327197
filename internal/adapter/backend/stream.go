package backend

import (
	"io"
	"sync"

	"github.com/bnema/shortsdash/internal/port"
)

// statusStream adapts an event-stream response body to port.StatusStream.
type statusStream struct {
	body    io.ReadCloser
	scanner *sseScanner
	current port.StreamEvent
	once    sync.Once
}

func newStatusStream(body io.ReadCloser) *statusStream {
	return &statusStream{body: body, scanner: newSSEScanner(body)}
}

func (s *statusStream) Next() bool {
	if !s.scanner.Next() {
		return false
	}
	ev := s.scanner.Event()
	typ := ev.Type
	if typ == "" {
		typ = "message"
	}
	s.current = port.StreamEvent{Type: typ, Data: []byte(ev.Data)}
	return true
}

func (s *statusStream) Event() port.StreamEvent {
	return s.current
}

func (s *statusStream) Err() error {
	return s.scanner.Err()
}

func (s *statusStream) Close() error {
	var err error
	s.once.Do(func() { err = s.body.Close() })
	return err
}
