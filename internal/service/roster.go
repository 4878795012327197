package service

import (
	"slices"

	"github.com/bnema/shortsdash/internal/domain"
)

type RosterEventKind string

const (
	RosterReset    RosterEventKind = "reset"
	RosterInserted RosterEventKind = "inserted"
	RosterUpdated  RosterEventKind = "updated"
)

// RosterEvent describes one roster mutation. Reset carries the full list,
// the other kinds carry the affected record.
type RosterEvent struct {
	Kind   RosterEventKind
	Video  domain.Video
	Videos []domain.Video
}

// Roster holds the videos of one dashboard view, newest first, at most one
// record per id. It is not safe for concurrent use; its owner serializes
// access through a Loop.
type Roster struct {
	videos    []domain.Video
	index     map[string]int
	listeners []func(RosterEvent)
}

func NewRoster() *Roster {
	return &Roster{index: make(map[string]int)}
}

// OnChange registers fn for every mutation. Listeners run synchronously and
// may call back into the roster.
func (r *Roster) OnChange(fn func(RosterEvent)) {
	r.listeners = append(r.listeners, fn)
}

// Replace swaps the whole roster for videos. Duplicate ids keep the last
// occurrence.
func (r *Roster) Replace(videos []domain.Video) {
	byID := make(map[string]int, len(videos))
	deduped := make([]domain.Video, 0, len(videos))
	for _, v := range videos {
		if v.ID == "" {
			continue
		}
		if i, ok := byID[v.ID]; ok {
			deduped[i] = v
			continue
		}
		byID[v.ID] = len(deduped)
		deduped = append(deduped, v)
	}

	slices.SortStableFunc(deduped, func(a, b domain.Video) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	r.videos = deduped
	r.reindex()
	r.notify(RosterEvent{Kind: RosterReset, Videos: r.Videos()})
}

// Insert adds a freshly created video at the front. A record that already
// exists is merged instead so ids stay unique.
func (r *Roster) Insert(v domain.Video) {
	if v.ID == "" {
		return
	}
	if _, ok := r.index[v.ID]; ok {
		r.ApplyUpdate(v.AsUpdate())
		return
	}

	r.videos = slices.Insert(r.videos, 0, v)
	r.reindex()
	r.notify(RosterEvent{Kind: RosterInserted, Video: v})
}

// ApplyUpdate merges u into the record with the same id and returns the
// merged record. It reports false and leaves the roster untouched when the id
// is unknown.
func (r *Roster) ApplyUpdate(u domain.VideoUpdate) (domain.Video, bool) {
	i, ok := r.index[u.ID]
	if !ok {
		return domain.Video{}, false
	}

	if !u.Apply(&r.videos[i]) {
		return r.videos[i], true
	}

	v := r.videos[i]
	r.notify(RosterEvent{Kind: RosterUpdated, Video: v})
	return v, true
}

func (r *Roster) Get(id string) (domain.Video, bool) {
	i, ok := r.index[id]
	if !ok {
		return domain.Video{}, false
	}
	return r.videos[i], true
}

// Videos returns a copy of the records in presentation order.
func (r *Roster) Videos() []domain.Video {
	return slices.Clone(r.videos)
}

func (r *Roster) Len() int {
	return len(r.videos)
}

func (r *Roster) reindex() {
	clear(r.index)
	for i, v := range r.videos {
		r.index[v.ID] = i
	}
}

func (r *Roster) notify(ev RosterEvent) {
	for _, fn := range r.listeners {
		fn(ev)
	}
}
