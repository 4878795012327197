package service

import (
	"sync"
)

const subscriberBuffer = 64

// EventBus fans roster events of a view out to its subscribers. A subscriber
// that falls a full buffer behind is cut off: its channel is closed so it
// knows its copy of the roster can no longer be trusted.
type EventBus struct {
	mu          sync.Mutex
	subscribers map[string][]chan RosterEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[string][]chan RosterEvent),
	}
}

func (eb *EventBus) Subscribe(viewID string) <-chan RosterEvent {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	ch := make(chan RosterEvent, subscriberBuffer)
	eb.subscribers[viewID] = append(eb.subscribers[viewID], ch)
	return ch
}

// Unsubscribe closes ch unless the bus already did.
func (eb *EventBus) Unsubscribe(viewID string, ch <-chan RosterEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.drop(viewID, func(sub chan RosterEvent) bool { return sub == ch })
}

// CloseView closes every subscription of viewID.
func (eb *EventBus) CloseView(viewID string) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.drop(viewID, func(chan RosterEvent) bool { return true })
}

func (eb *EventBus) Publish(viewID string, event RosterEvent) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	eb.drop(viewID, func(sub chan RosterEvent) bool {
		select {
		case sub <- event:
			return false
		default:
			return true
		}
	})
}

// Subscribers returns how many subscriptions viewID has.
func (eb *EventBus) Subscribers(viewID string) int {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	return len(eb.subscribers[viewID])
}

// drop closes and removes the subscriptions of viewID matched by remove.
// Callers hold mu.
func (eb *EventBus) drop(viewID string, remove func(chan RosterEvent) bool) {
	subs := eb.subscribers[viewID]
	kept := subs[:0]
	for _, sub := range subs {
		if remove(sub) {
			close(sub)
			continue
		}
		kept = append(kept, sub)
	}
	clear(subs[len(kept):])

	if len(kept) == 0 {
		delete(eb.subscribers, viewID)
		return
	}
	eb.subscribers[viewID] = kept
}
