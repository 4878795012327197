// Package tui is a terminal dashboard over a single [service.View].
//
// The [Model] follows bubbletea's Init/Update/View pattern. Roster events
// arrive from the view's EventBus subscription through a blocking command,
// so the terminal shows the same merged state a browser page would. Quitting
// closes the view, which tears down every status stream it opened.
package tui
