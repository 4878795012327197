package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/shortsdash/internal/domain"
)

var styles = newPalette("#7D56F4", "#04B575", "#FF0000", "#FFA500", "#626262")

type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	label lipgloss.Style
}

func newPalette(t, s, e, w, h string) *palette {
	return &palette{
		title: newStyle(t).Bold(true).MarginBottom(1),
		ok:    newStyle(s).Bold(true),
		err:   newStyle(e).Bold(true),
		warn:  newStyle(w),
		help:  newStyle(h).Italic(true),
		label: lipgloss.NewStyle().Width(22),
	}
}

func newStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func statusStyle(s domain.VideoStatus) lipgloss.Style {
	switch s {
	case domain.VideoStatusCompleted:
		return styles.ok
	case domain.VideoStatusFailed:
		return styles.err
	default:
		return styles.warn
	}
}
