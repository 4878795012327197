package service

import (
	"errors"
	"sync"
)

var ErrViewExists = errors.New("view already registered")

type registeredView struct {
	view  *View
	owner string
}

// Views tracks the live views of the server so form posts can reach the
// view their page is streaming from. Each view is bound to the session key
// that opened it.
type Views struct {
	mu    sync.RWMutex
	views map[string]registeredView
}

func NewViews() *Views {
	return &Views{views: make(map[string]registeredView)}
}

func (r *Views) Add(owner string, v *View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.views[v.ID()]; ok {
		return ErrViewExists
	}
	r.views[v.ID()] = registeredView{view: v, owner: owner}
	return nil
}

// Get returns the view with id when it belongs to owner.
func (r *Views) Get(owner, id string) (*View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rv, ok := r.views[id]
	if !ok || rv.owner != owner {
		return nil, false
	}
	return rv.view, true
}

// Remove drops id only while it still maps to v.
func (r *Views) Remove(v *View) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rv, ok := r.views[v.ID()]; ok && rv.view == v {
		delete(r.views, v.ID())
	}
}

// CloseOwner closes every view opened by owner, used on logout.
func (r *Views) CloseOwner(owner string) int {
	r.mu.RLock()
	var matched []*View
	for _, rv := range r.views {
		if rv.owner == owner {
			matched = append(matched, rv.view)
		}
	}
	r.mu.RUnlock()

	for _, v := range matched {
		v.Close()
	}
	return len(matched)
}

// CloseAll closes every view, used on shutdown.
func (r *Views) CloseAll() {
	r.mu.RLock()
	views := make([]*View, 0, len(r.views))
	for _, rv := range r.views {
		views = append(views, rv.view)
	}
	r.mu.RUnlock()

	for _, v := range views {
		v.Close()
	}
}

func (r *Views) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}
