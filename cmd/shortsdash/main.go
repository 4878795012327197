package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/bnema/shortsdash/internal/infrastructure/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	app := newApp(NewRunner(RunnerOpts{}))

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Error.Printf("%v", err)
		os.Exit(1)
	}
}

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "shortsdash",
		Usage:   "Dashboard and live status for video generation jobs",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Sources: cli.EnvVars("SHORTSDASH_CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error (overrides the config file)",
			},
		},
		Before:   runner.Before,
		Commands: runner.register(),
	}
}

func sessionFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "session",
		Usage:    "Backend session cookie value",
		Sources:  cli.EnvVars("SHORTSDASH_SESSION"),
		Required: true,
	}
}

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON",
	}
}

func (r *Runner) register() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Run the dashboard web server",
			Action: r.Serve,
		},
		{
			Name:   "watch",
			Usage:  "Follow your videos' progress in the terminal",
			Flags:  []cli.Flag{sessionFlag()},
			Action: r.Watch,
		},
		{
			Name:  "create",
			Usage: "Submit a new video",
			Flags: []cli.Flag{
				sessionFlag(),
				&cli.StringFlag{
					Name:     "topic",
					Aliases:  []string{"t"},
					Usage:    "Video theme",
					Required: true,
				},
				&cli.StringFlag{
					Name:     "voice",
					Usage:    "Voice style",
					Required: true,
				},
				jsonFlag(),
			},
			Action: r.Create,
		},
		{
			Name:  "history",
			Usage: "Print the recorded status history of a video",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "video",
					Usage:    "Video ID",
					Required: true,
				},
				jsonFlag(),
			},
			Action: r.History,
		},
	}
}
