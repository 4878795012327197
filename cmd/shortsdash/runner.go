package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/bnema/shortsdash/config"
	"github.com/bnema/shortsdash/internal/adapter/backend"
	"github.com/bnema/shortsdash/internal/infrastructure/logger"
)

// Runner holds the loaded configuration and implements each command.
type Runner struct {
	cfg *config.Config
	out io.Writer
}

type RunnerOpts struct {
	// Config skips loading from disk when set.
	Config *config.Config
	Output io.Writer
}

func NewRunner(opts RunnerOpts) *Runner {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	return &Runner{cfg: opts.Config, out: opts.Output}
}

// Before loads the configuration and applies the log level.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.cfg == nil {
		cfg, err := config.Read(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.cfg = cfg
	}

	level := cmd.String("log-level")
	if level == "" {
		level = r.cfg.Log.Level
	}
	if level != "" {
		if err := logger.SetLevel(level); err != nil {
			return ctx, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}
	return ctx, nil
}

func (r *Runner) client() *backend.Client {
	return backend.NewClient(backend.Options{
		BaseURL:    r.cfg.Backend.URL,
		CookieName: r.cfg.Session.CookieName,
		Timeout:    r.cfg.Backend.Timeout,
	})
}
