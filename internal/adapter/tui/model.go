package tui

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bnema/shortsdash/internal/domain"
	"github.com/bnema/shortsdash/internal/service"
)

const maxBarWidth = 40

type keyMap struct {
	reload key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Viewer is the part of a dashboard view the terminal drives.
type Viewer interface {
	Load(ctx context.Context) error
	Close()
}

type rosterMsg service.RosterEvent

type closedMsg struct{}

type reloadedMsg struct {
	err error
}

// Model renders the roster of one view and follows its changes.
type Model struct {
	view   Viewer
	events <-chan service.RosterEvent

	videos []domain.Video
	loaded bool
	closed bool
	err    error

	width int
	bar   progress.Model
	help  help.Model
	keys  keyMap
}

// NewModel watches view through events, its EventBus subscription.
func NewModel(view Viewer, events <-chan service.RosterEvent) *Model {
	return &Model{
		view:   view,
		events: events,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage(), progress.WithWidth(maxBarWidth)),
		help:   help.New(),
		keys:   newKeyMap(),
	}
}

func (m *Model) Init() tea.Cmd {
	return m.waitForEvent()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = min(maxBarWidth, max(10, msg.Width-60))
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.quit):
			m.view.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.reload):
			return m, m.reload()
		}

	case rosterMsg:
		m.apply(service.RosterEvent(msg))
		return m, m.waitForEvent()

	case reloadedMsg:
		m.err = msg.err
		return m, nil

	case closedMsg:
		m.closed = true
		return m, tea.Quit
	}

	return m, nil
}

// apply mirrors a roster event onto the rendered list.
func (m *Model) apply(ev service.RosterEvent) {
	switch ev.Kind {
	case service.RosterReset:
		m.videos = slices.Clone(ev.Videos)
		m.loaded = true
	case service.RosterInserted:
		m.videos = slices.Insert(m.videos, 0, ev.Video)
	case service.RosterUpdated:
		i := slices.IndexFunc(m.videos, func(v domain.Video) bool { return v.ID == ev.Video.ID })
		if i >= 0 {
			m.videos[i] = ev.Video
		}
	}
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return closedMsg{}
		}
		return rosterMsg(ev)
	}
}

func (m *Model) reload() tea.Cmd {
	return func() tea.Msg {
		return reloadedMsg{err: m.view.Load(context.Background())}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(fmt.Sprintf("My Videos (%d)", len(m.videos))))
	b.WriteString("\n")

	switch {
	case !m.loaded:
		b.WriteString("Loading videos...\n")
	case len(m.videos) == 0:
		b.WriteString("No videos yet.\n")
	}

	for _, v := range m.videos {
		b.WriteString(m.renderRow(v))
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(fmt.Sprintf("Reload failed: %v", m.err)))
		b.WriteString("\n")
	}
	if m.closed {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render("Live updates stopped."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView([]key.Binding{m.keys.reload, m.keys.quit}))
	return b.String()
}

func (m *Model) renderRow(v domain.Video) string {
	status := statusStyle(v.Status).Render(styles.label.Render(v.Status.Label()))

	var bar string
	if v.Status == domain.VideoStatusFailed {
		bar = strings.Repeat(" ", m.bar.Width)
	} else {
		bar = m.bar.ViewAs(v.Status.Progress())
	}

	title := v.DisplayTitle()
	if url := v.ArtifactURL(); url != "" {
		title += " " + styles.help.Render(url)
	}
	return fmt.Sprintf("%s %s  %s", status, bar, title)
}
