package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/port"
)

var ErrViewRunning = errors.New("view already running")

type ViewOptions struct {
	// ID identifies the view on the EventBus. A random one is used when empty.
	ID      string
	Backend port.Backend
	// Session gates streaming. Nil means always active.
	Session *Session
	Bus     *EventBus
	History port.StatusHistory
	Logger  *log.Logger
}

// View is one live dashboard: a roster of the user's videos kept current by
// a supervisor, with every roster change published on the EventBus under
// the view's id.
type View struct {
	id      string
	backend port.Backend
	session *Session
	bus     *EventBus
	log     *log.Logger

	loop       *Loop
	roster     *Roster
	supervisor *Supervisor
	recorder   *HistoryRecorder
	cancel     context.CancelFunc
	unwatch    func()

	started    atomic.Bool
	loaded     chan struct{}
	loadedOnce sync.Once
	closing    chan struct{}
	closeOnce  sync.Once
	done       chan struct{}
}

func NewView(opts ViewOptions) *View {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = logger.New("view", opts.ID)
	}

	streamCtx, cancel := context.WithCancel(context.Background())
	v := &View{
		id:      opts.ID,
		backend: opts.Backend,
		session: opts.Session,
		bus:     opts.Bus,
		log:     opts.Logger,
		loop:    NewLoop(0),
		roster:  NewRoster(),
		cancel:  cancel,
		loaded:  make(chan struct{}),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}

	if v.bus != nil {
		v.roster.OnChange(func(ev RosterEvent) { v.bus.Publish(v.id, ev) })
	}

	var recorder StatusRecorder
	if opts.History != nil {
		v.recorder = NewHistoryRecorder(opts.History, 0)
		recorder = v.recorder
	}

	var gate Gate
	if v.session != nil {
		gate = v.session
	}

	v.supervisor = NewSupervisor(SupervisorOptions{
		Context:  streamCtx,
		Roster:   v.roster,
		Streamer: opts.Backend,
		Post:     v.loop.Post,
		Gate:     gate,
		Recorder: recorder,
		Logger:   v.log,
	})
	return v
}

func (v *View) ID() string {
	return v.id
}

// Run loads the roster and supervises streams until ctx is done or Close is
// called, then closes every stream before returning.
func (v *View) Run(ctx context.Context) error {
	if !v.started.CompareAndSwap(false, true) {
		return ErrViewRunning
	}
	defer close(v.done)
	defer v.markLoaded()

	go v.loop.Run()

	if v.session != nil {
		v.session.Ensure(ctx)
		// Another view or request may invalidate the shared session; streams
		// here must close without waiting for a roster change.
		v.unwatch = v.session.OnInvalidate(func() {
			go v.loop.Post(v.supervisor.Reconcile)
		})
	}
	if v.session == nil || v.session.Active() {
		_ = v.Load(ctx)
	} else {
		v.log.Warn("session is not active, streaming disabled")
	}
	v.markLoaded()

	select {
	case <-ctx.Done():
	case <-v.closing:
	}

	v.teardown()
	return nil
}

func (v *View) markLoaded() {
	v.loadedOnce.Do(func() { close(v.loaded) })
}

// Loaded is closed once the initial load has finished, successfully or not.
func (v *View) Loaded() <-chan struct{} {
	return v.loaded
}

// teardown stops the loop first so nothing queued behind it runs, then
// closes every stream from this goroutine.
func (v *View) teardown() {
	if v.unwatch != nil {
		v.unwatch()
	}
	v.loop.Stop()
	<-v.loop.Done()

	v.supervisor.Teardown()
	v.cancel()

	if v.recorder != nil {
		v.recorder.Close()
	}
	if v.bus != nil {
		v.bus.CloseView(v.id)
	}
	v.log.Debug("view torn down")
}

// Load replaces the roster with the user's videos. On failure the roster is
// emptied and the error returned for logging only.
func (v *View) Load(ctx context.Context) error {
	videos, err := v.backend.ListVideos(ctx)
	if err != nil {
		v.log.Error("failed to load videos", "err", err)
		if errors.Is(err, domain.ErrUnauthenticated) && v.session != nil {
			v.session.Invalidate()
		}
		videos = nil
	}

	if doErr := v.loop.Do(ctx, func() { v.roster.Replace(videos) }); doErr != nil {
		return doErr
	}
	return err
}

// Create submits a new video and inserts the backend's record into the
// roster. On failure the roster is left untouched. It waits for the initial
// load so the insert is not overwritten by it.
func (v *View) Create(ctx context.Context, topic, voice string) (*domain.Video, error) {
	req, err := domain.NewVideoRequest(topic, voice)
	if err != nil {
		return nil, err
	}

	select {
	case <-v.loaded:
	case <-v.closing:
		return nil, domain.ErrViewClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	created, err := v.backend.CreateVideo(ctx, req.Topic, req.Voice)
	if err != nil {
		v.log.Error("failed to create video", "topic", logger.SanitizeForLog(req.Topic), "err", err)
		if errors.Is(err, domain.ErrUnauthenticated) && v.session != nil {
			v.session.Invalidate()
		}
		return nil, err
	}

	if err := v.loop.Do(ctx, func() { v.roster.Insert(*created) }); err != nil {
		return created, err
	}
	v.log.Info("video created", "video", created.ID, "topic", logger.SanitizeForLog(req.Topic))
	return created, nil
}

// Snapshot returns the roster in presentation order.
func (v *View) Snapshot(ctx context.Context) ([]domain.Video, error) {
	var videos []domain.Video
	err := v.loop.Do(ctx, func() { videos = v.roster.Videos() })
	return videos, err
}

// Streams returns the ids of videos with an open status stream.
func (v *View) Streams(ctx context.Context) ([]string, error) {
	var ids []string
	err := v.loop.Do(ctx, func() { ids = v.supervisor.Open() })
	return ids, err
}

// Close asks Run to tear the view down. It does not wait; use Done.
func (v *View) Close() {
	v.closeOnce.Do(func() { close(v.closing) })
}

func (v *View) Done() <-chan struct{} {
	return v.done
}
