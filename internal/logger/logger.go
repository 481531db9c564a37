package logger

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	slogmulti "github.com/samber/slog-multi"
	slogsentry "github.com/samber/slog-sentry/v2"
)

// Init builds the process logger and installs it as slog's default, based on environment
// Development: Text format with Debug level
// Production: JSON format with Info level
// Optionally sends errors to Sentry for error tracking
func Init(isDev bool, sentryDSN string, loc *time.Location) *slog.Logger {
	return InitWriter(os.Stdout, isDev, sentryDSN, loc)
}

// InitWriter is Init with the local output directed to w.
func InitWriter(w io.Writer, isDev bool, sentryDSN string, loc *time.Location) *slog.Logger {
	var extra []slog.Handler

	if sentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              sentryDSN,
			TracesSampleRate: 1.0,
		})
		if err == nil {
			extra = append(extra, slogsentry.Option{
				Level: slog.LevelError,
			}.NewSentryHandler())
		}
	}

	log := New(w, isDev, loc, extra...)
	slog.SetDefault(log)
	return log
}

// New builds a logger writing to w, fanning out to any extra handlers.
// Timestamps are rendered in loc (UTC when nil).
func New(w io.Writer, isDev bool, loc *time.Location, extra ...slog.Handler) *slog.Logger {
	if loc == nil {
		loc = time.UTC
	}
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.TimeValue(a.Value.Time().In(loc))
			}
			return a
		},
	}

	var base slog.Handler
	if isDev {
		opts.Level = slog.LevelDebug
		base = slog.NewTextHandler(w, opts)
	} else {
		base = slog.NewJSONHandler(w, opts)
	}

	if len(extra) == 0 {
		return slog.New(base)
	}
	return slog.New(slogmulti.Fanout(append([]slog.Handler{base}, extra...)...))
}

// Flush waits for buffered Sentry events to be delivered.
func Flush() {
	sentry.Flush(2 * time.Second)
}

// Location resolves an IANA zone name, falling back to UTC.
func Location(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
