// SPDX-License-Identifier: AGPL-3.0-only

package commands

import (
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

var logLevels = []string{"debug", "info", "warn", "error"}

// LoggerConfig configures the logger shared by every command.
type LoggerConfig struct {
	Level string

	out    io.Writer
	logger log.Logger
}

// Register adds the logging flags to the application. It must be called
// before any command is registered, so the logger exists when their
// actions run.
func (l *LoggerConfig) Register(app *kingpin.Application, envVars EnvVarNames) {
	app.Flag("log.level", "Only log messages with the given severity or above; alternatively, set "+envVars.LogLevel+".").
		Envar(envVars.LogLevel).
		Default("info").
		EnumVar(&l.Level, logLevels...)

	app.PreAction(func(*kingpin.ParseContext) error {
		l.logger = nil
		return nil
	})
}

// SetLevel overrides the configured level.
func (l *LoggerConfig) SetLevel(lvl string) {
	l.Level = lvl
	l.logger = nil
}

// Logger returns a logfmt logger writing to stderr, filtered by the
// configured level.
func (l *LoggerConfig) Logger() log.Logger {
	if l.logger == nil {
		out := l.out
		if out == nil {
			out = os.Stderr
		}
		l.logger = newLogger(out, l.Level)
	}
	return l.logger
}

func newLogger(w io.Writer, lvl string) log.Logger {
	logger := log.NewLogfmtLogger(log.NewSyncWriter(w))
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)
	return level.NewFilter(logger, level.Allow(level.ParseDefault(lvl, level.InfoValue())))
}
