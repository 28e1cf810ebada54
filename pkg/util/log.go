package util

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
	"github.com/lmittmann/tint"
)

const sentryFlushTimeout = 2 * time.Second

// SetupLogger initializes Sentry and installs the default slog logger: tint on
// out plus a Sentry handler for warnings and errors. Sentry events are only
// sent when prod is set. The returned func flushes pending events.
func SetupLogger(out io.Writer, dsn string, prod bool) (func(), error) {
	err := sentry.Init(sentry.ClientOptions{
		Dsn:           dsn,
		EnableTracing: false,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			if prod {
				return event
			}
			return nil
		},
	})
	if err != nil {
		return nil, err
	}

	logger := slog.New(slog.NewMultiHandler(
		tint.NewHandler(out, &tint.Options{
			Level: slog.LevelInfo,
		}),
		sentryslog.Option{
			EventLevel: []slog.Level{slog.LevelWarn, slog.LevelError},
		}.NewSentryHandler(context.Background())))
	slog.SetDefault(logger)

	return func() {
		sentry.Flush(sentryFlushTimeout)
	}, nil
}
