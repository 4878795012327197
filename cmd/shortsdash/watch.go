package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	sqlitestore "github.com/bnema/shortsdash/internal/adapter/storage/sqlite"
	"github.com/bnema/shortsdash/internal/adapter/tui"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
	"github.com/bnema/shortsdash/internal/service"
)

// Watch runs a dashboard view in the terminal. Quitting tears it down.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	backend := r.client().ForSession(cmd.String("session"))

	session := service.NewSession(backend)
	if err := session.Init(ctx); err != nil {
		return fmt.Errorf("session rejected: %w", err)
	}

	if err := os.MkdirAll(r.cfg.Storage.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Logs would draw over the terminal UI.
	logFile, err := os.OpenFile(filepath.Join(r.cfg.Storage.DataDir, "watch.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()
	logger.SetOutput(logFile)
	defer logger.SetOutput(os.Stdout)

	store, err := sqlitestore.NewStore(r.cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer func() { _ = store.Close() }()

	bus := service.NewEventBus()
	view := service.NewView(service.ViewOptions{
		Backend: backend,
		Session: session,
		Bus:     bus,
		History: store,
	})
	events := bus.Subscribe(view.ID())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = view.Run(runCtx) }()

	_, err = tea.NewProgram(tui.NewModel(view, events), tea.WithAltScreen(), tea.WithContext(ctx)).Run()

	view.Close()
	<-view.Done()

	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
