// Package logging configures the zerolog logger shared by the server and
// provides the per-request access log middleware.
package logging

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// New builds a logger writing to w. format is "json" or "console".
func New(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", level, err)
	}

	switch format {
	case "json":
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format %q", format)
	}

	return zerolog.New(w).Level(lvl).With().Timestamp().Str("service", "goloyalty").Logger(), nil
}

// Setup replaces the global logger with one writing to stderr.
func Setup(level, format string) (zerolog.Logger, error) {
	logger, err := New(os.Stderr, level, format)
	if err != nil {
		return logger, err
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = logger
	return logger, nil
}

// Middleware attaches logger to the request context and writes one access
// line per request. It must run after middleware.RequestID.
func Middleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		l := hlog.FromRequest(r)
		var ev *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			ev = l.Error()
		case status >= http.StatusBadRequest:
			ev = l.Warn()
		default:
			ev = l.Info()
		}
		ev.Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})

	return func(next http.Handler) http.Handler {
		return hlog.NewHandler(logger)(access(next))
	}
}
