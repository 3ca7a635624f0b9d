package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options selects the level and destination of the process logger.
type Options struct {
	// Level is one of debug, info, warn or error. Unknown values mean info.
	Level string

	// File, when set, receives JSON records through a rotating writer.
	// Otherwise records go to stderr as text.
	File string
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger from opts, installs it as the slog default and returns
// it together with a closer for the underlying file.
func New(opts Options) (*slog.Logger, io.Closer) {
	hopts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var (
		handler slog.Handler
		closer  io.Closer = nopCloser{}
	)
	if opts.File != "" {
		w := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    1, // MB
			MaxBackups: 3,
			MaxAge:     7, // days
			Compress:   true,
		}
		handler = slog.NewJSONHandler(w, hopts)
		closer = w
	} else {
		handler = slog.NewTextHandler(os.Stderr, hopts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
