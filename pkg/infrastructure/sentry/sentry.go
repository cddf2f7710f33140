package sentry

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
)

type Config struct {
	DSN              string
	Environment      string
	Release          string
	ServerName       string
	TracesSampleRate float64
}

// Headers that carry session credentials for the running backend.
var sensitiveHeaders = []string{"Authorization", "Cookie", "Organization"}

// Init initializes Sentry. An empty DSN disables error tracking.
func Init(cfg Config, logger *slog.Logger) error {
	if cfg.DSN == "" {
		if logger != nil {
			logger.Warn("Sentry DSN not configured - error tracking disabled")
		}
		return nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		ServerName:       cfg.ServerName,
		TracesSampleRate: cfg.TracesSampleRate,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			return scrubEvent(event)
		},
	})
	if err != nil {
		if logger != nil {
			logger.Error("Failed to initialize Sentry", "error", err)
		}
		return fmt.Errorf("sentry init: %w", err)
	}

	if logger != nil {
		logger.Info("Sentry initialized", "environment", cfg.Environment, "release", cfg.Release)
	}
	return nil
}

// scrubEvent drops credentials from the request and from context values.
func scrubEvent(event *sentry.Event) *sentry.Event {
	if event == nil {
		return nil
	}
	if event.Request != nil {
		for k := range event.Request.Headers {
			for _, h := range sensitiveHeaders {
				if http.CanonicalHeaderKey(k) == h {
					delete(event.Request.Headers, k)
				}
			}
		}
		event.Request.Cookies = ""
	}
	for name, ctx := range event.Contexts {
		for k := range ctx {
			lk := strings.ToLower(k)
			if strings.Contains(lk, "password") || strings.Contains(lk, "token") {
				ctx[k] = "[redacted]"
			}
		}
		event.Contexts[name] = ctx
	}
	return event
}

// CaptureException reports err with tags and context on a scope local to
// this call.
func CaptureException(err error, tags map[string]string, context map[string]interface{}, logger *slog.Logger) {
	if err == nil {
		return
	}

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		if len(context) > 0 {
			scope.SetContext("details", sentry.Context(context))
		}
		sentry.CaptureException(err)
	})

	if logger != nil {
		logger.Debug("Exception captured in Sentry", "error", err.Error())
	}
}

// Flush waits for all events to be sent to Sentry.
// Call this before function termination to ensure events are sent.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// CapturePanic turns a recovered value into an error, reports it and
// flushes. Call it from a deferred recover.
func CapturePanic(r interface{}, tags map[string]string, logger *slog.Logger) error {
	err, ok := r.(error)
	if ok {
		err = fmt.Errorf("panic: %w", err)
	} else {
		err = fmt.Errorf("panic: %v", r)
	}
	CaptureException(err, tags, nil, logger)
	Flush(2 * time.Second)
	return err
}
