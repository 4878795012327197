package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/port"
)

// Reasons a status stream is closed.
const (
	CloseCompleted = "completed"
	CloseFailed    = "failed"
	CloseRemoved   = "removed"
	CloseInactive  = "session_inactive"
	CloseTransport = "transport_error"
	CloseTeardown  = "teardown"
)

var errStreamEnded = errors.New("stream ended without a terminal status")

// ignoredEventTypes are keep-alive events some backends emit between updates.
var ignoredEventTypes = map[string]bool{
	"ping":      true,
	"keepalive": true,
	"heartbeat": true,
}

// Gate decides whether streams may be opened at all.
type Gate interface {
	Active() bool
}

// StatusRecorder receives observations without blocking the caller.
type StatusRecorder interface {
	RecordStatus(videoID string, status domain.VideoStatus, at time.Time)
	RecordClosure(videoID string, reason string, at time.Time)
}

// handle is the close capability of one status stream.
type handle struct {
	videoID string
	cancel  context.CancelFunc
	once    sync.Once
}

// Close is idempotent.
func (h *handle) Close() {
	h.once.Do(h.cancel)
}

type SupervisorOptions struct {
	// Context bounds every stream the supervisor opens.
	Context  context.Context
	Roster   *Roster
	Streamer port.StatusStreamer
	// Post schedules a callback on the loop that owns Roster.
	Post     func(func()) bool
	Gate     Gate
	Recorder StatusRecorder
	Logger   *log.Logger
}

// Supervisor keeps exactly one open status stream per non-terminal video in
// the roster and none for terminal or absent ones. All methods must run on
// the roster's loop; stream goroutines only talk to it through Post.
type Supervisor struct {
	base     context.Context
	roster   *Roster
	streamer port.StatusStreamer
	post     func(func()) bool
	gate     Gate
	recorder StatusRecorder
	log      *log.Logger

	handles     map[string]*handle
	applying    *handle
	tornDown    bool
	reconciling bool
	dirty       bool

	// lost holds videos whose stream failed. They stay without a stream
	// until the next full reload.
	lost map[string]bool
}

func NewSupervisor(opts SupervisorOptions) *Supervisor {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("component", "supervisor")
	}

	s := &Supervisor{
		base:     opts.Context,
		roster:   opts.Roster,
		streamer: opts.Streamer,
		post:     opts.Post,
		gate:     opts.Gate,
		recorder: opts.Recorder,
		log:      opts.Logger,
		handles:  make(map[string]*handle),
		lost:     make(map[string]bool),
	}
	s.roster.OnChange(func(ev RosterEvent) {
		if ev.Kind == RosterReset {
			clear(s.lost)
		}
		s.Reconcile()
	})
	return s
}

// Reconcile opens streams for non-terminal videos that have none and closes
// streams whose video is terminal or gone. Calls made while a pass is running
// are folded into another pass.
func (s *Supervisor) Reconcile() {
	if s.tornDown {
		return
	}
	if s.reconciling {
		s.dirty = true
		return
	}

	s.reconciling = true
	defer func() { s.reconciling = false }()

	for {
		s.dirty = false
		s.reconcileOnce()
		if !s.dirty || s.tornDown {
			return
		}
	}
}

func (s *Supervisor) reconcileOnce() {
	if s.gate != nil && !s.gate.Active() {
		for _, h := range s.handles {
			s.closeHandle(h, CloseInactive, nil)
		}
		return
	}

	for _, h := range s.handles {
		v, ok := s.roster.Get(h.videoID)
		switch {
		case !ok:
			s.closeHandle(h, CloseRemoved, nil)
		case v.Status.IsTerminal() && h != s.applying:
			s.closeHandle(h, terminalReason(v.Status), nil)
		}
	}

	for id := range s.lost {
		if _, ok := s.roster.Get(id); !ok {
			delete(s.lost, id)
		}
	}

	for _, v := range s.roster.Videos() {
		if v.Status.IsTerminal() || s.lost[v.ID] {
			continue
		}
		if _, ok := s.handles[v.ID]; ok {
			continue
		}
		s.open(v.ID)
	}
}

func (s *Supervisor) open(videoID string) {
	ctx, cancel := context.WithCancel(s.base)
	h := &handle{videoID: videoID, cancel: cancel}
	s.handles[videoID] = h
	s.log.Debug("status stream opened", "video", videoID)

	go s.pump(ctx, h)
}

// pump reads one stream until it ends or h is closed. It never touches
// supervisor state directly.
func (s *Supervisor) pump(ctx context.Context, h *handle) {
	stream, err := s.streamer.OpenStatusStream(ctx, h.videoID)
	if err != nil {
		if ctx.Err() == nil {
			s.post(func() { s.handleTransportError(h, err) })
		}
		return
	}
	defer stream.Close() //nolint:errcheck

	for stream.Next() {
		ev := stream.Event()
		if ignoredEventTypes[ev.Type] {
			continue
		}
		data := ev.Data
		if !s.post(func() { s.handleMessage(h, data) }) {
			return
		}
	}

	if ctx.Err() != nil {
		return
	}
	err = stream.Err()
	if err == nil {
		err = errStreamEnded
	}
	s.post(func() { s.handleTransportError(h, err) })
}

func (s *Supervisor) current(h *handle) bool {
	return !s.tornDown && s.handles[h.videoID] == h
}

func (s *Supervisor) handleMessage(h *handle, data []byte) {
	if !s.current(h) {
		s.log.Debug("dropping update for closed stream", "video", h.videoID)
		return
	}

	u, err := domain.ParseVideoUpdate(data)
	if err != nil {
		s.log.Warn("malformed status payload", "video", h.videoID, "err", err,
			"payload", logger.SanitizeForLog(string(data)))
		return
	}
	if u.ID != h.videoID {
		s.log.Warn("status payload for another video", "video", h.videoID,
			"payload_id", logger.SanitizeForLog(u.ID))
		return
	}

	prev, _ := s.roster.Get(u.ID)

	// The update's own handle is closed below, after its status is recorded.
	s.applying = h
	v, ok := s.roster.ApplyUpdate(u)
	s.applying = nil

	if !ok {
		s.log.Debug("update for unknown video ignored", "video", u.ID)
		s.closeHandle(h, CloseRemoved, nil)
		return
	}

	if v.Status != prev.Status && s.recorder != nil {
		s.recorder.RecordStatus(v.ID, v.Status, time.Now())
	}

	if v.Status.IsTerminal() {
		s.closeHandle(h, terminalReason(v.Status), nil)
	}
}

func (s *Supervisor) handleTransportError(h *handle, err error) {
	if !s.current(h) {
		return
	}
	s.lost[h.videoID] = true
	s.closeHandle(h, CloseTransport, err)
}

// closeHandle closes h and drops it if it is still the registered handle
// for its video.
func (s *Supervisor) closeHandle(h *handle, reason string, cause error) {
	h.Close()
	if s.handles[h.videoID] != h {
		return
	}
	delete(s.handles, h.videoID)

	if cause != nil {
		s.log.Error("status stream lost, status may be stale until reload",
			"video", h.videoID, "err", cause)
	} else {
		s.log.Info("status stream closed", "video", h.videoID, "reason", reason)
	}

	if s.recorder != nil {
		s.recorder.RecordClosure(h.videoID, reason, time.Now())
	}
}

// Teardown closes every stream. Later reconciliations and queued updates are
// ignored.
func (s *Supervisor) Teardown() {
	if s.tornDown {
		return
	}
	s.tornDown = true
	for _, h := range s.handles {
		s.closeHandle(h, CloseTeardown, nil)
	}
}

// Lost returns the ids whose stream failed since the last reload, sorted.
func (s *Supervisor) Lost() []string {
	ids := make([]string, 0, len(s.lost))
	for id := range s.lost {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Open returns the ids that currently have a stream, sorted.
func (s *Supervisor) Open() []string {
	ids := make([]string, 0, len(s.handles))
	for id := range s.handles {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func terminalReason(status domain.VideoStatus) string {
	if status == domain.VideoStatusFailed {
		return CloseFailed
	}
	return CloseCompleted
}
