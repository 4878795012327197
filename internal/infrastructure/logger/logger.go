package logger

import (
	"io"
	stdlog "log"
	"os"

	"github.com/charmbracelet/log"
)

var (
	base *log.Logger

	Info  *stdlog.Logger
	Error *stdlog.Logger
	Debug *stdlog.Logger
	Warn  *stdlog.Logger
)

func init() {
	SetOutput(os.Stdout)
}

// SetOutput rebuilds every logger on top of w, keeping the current level.
func SetOutput(w io.Writer) {
	level := log.InfoLevel
	if base != nil {
		level = base.GetLevel()
	}

	base = log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "2006/01/02 15:04:05",
		Level:           level,
	})

	Info = base.StandardLog(log.StandardLogOptions{ForceLevel: log.InfoLevel})
	Error = base.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel})
	Debug = base.StandardLog(log.StandardLogOptions{ForceLevel: log.DebugLevel})
	Warn = base.StandardLog(log.StandardLogOptions{ForceLevel: log.WarnLevel})
}

// SetLevel accepts debug, info, warn or error.
func SetLevel(name string) error {
	level, err := log.ParseLevel(name)
	if err != nil {
		return err
	}
	base.SetLevel(level)
	return nil
}

// New returns a structured logger carrying kv on every entry.
func New(kv ...any) *log.Logger {
	return base.With(kv...)
}
