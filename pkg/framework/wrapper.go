package framework

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/google/uuid"

	"github.com/yaoshiu/pretty-der6y/pkg/bootstrap"
	"github.com/yaoshiu/pretty-der6y/pkg/infrastructure/sentry"
	"github.com/yaoshiu/pretty-der6y/pkg/types"
)

// PubSubEventType is the CloudEvent type of a Pub/Sub push.
const PubSubEventType = "google.cloud.pubsub.topic.v1.messagePublished"

// FrameworkContext contains dependencies injected by the framework
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HandlerFunc is the signature for a cloud function handler
type HandlerFunc func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// WrapCloudEvent wraps a handler with an execution id, structured logging
// and error reporting. Pub/Sub envelopes carrying a CloudEvent are unwrapped
// so the handler sees the inner event.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler HandlerFunc) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) (err error) {
		execID := uuid.NewString()
		logger := bootstrap.NewLogger(serviceName, false).With("execution_id", execID)

		triggerType := "pubsub"
		if e.Type() == "google.cloud.functions.http" {
			triggerType = "http"
		}

		if inner, ok := unwrapEvent(e); ok {
			logger.Debug("Unwrapped nested CloudEvent", "outer_id", e.ID(), "inner_id", inner.ID())
			e = inner
		}

		logger.Info("Function started", "trigger", triggerType, "event_type", e.Type(), "event_id", e.ID())
		start := time.Now()

		tags := map[string]string{"service": serviceName, "execution_id": execID}
		defer func() {
			if r := recover(); r != nil {
				err = sentry.CapturePanic(r, tags, logger)
				logger.Error("Function panicked", "error", err)
			}
		}()

		fwCtx := &FrameworkContext{
			Service:     svc,
			Logger:      logger,
			ExecutionID: execID,
		}

		outputs, handlerErr := handler(ctx, e, fwCtx)
		if handlerErr != nil {
			logger.Error("Function failed", "error", handlerErr, "duration", time.Since(start))
			sentry.CaptureException(handlerErr, tags, map[string]interface{}{"event_id": e.ID(), "event_type": e.Type()}, logger)
			sentry.Flush(2 * time.Second)
			return handlerErr
		}

		logger.Info("Function completed successfully", "duration", time.Since(start), "outputs", outputs)
		return nil
	}
}

// unwrapEvent returns the CloudEvent carried in a Pub/Sub message, if any.
func unwrapEvent(e event.Event) (event.Event, bool) {
	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil || len(msg.Message.Data) == 0 {
		return e, false
	}

	var probe struct {
		SpecVersion string `json:"specversion"`
	}
	if err := json.Unmarshal(msg.Message.Data, &probe); err != nil || probe.SpecVersion == "" {
		return e, false
	}

	inner := event.New()
	if err := json.Unmarshal(msg.Message.Data, &inner); err != nil {
		return e, false
	}
	return inner, true
}

// MessageData returns the payload a handler should decode: the Pub/Sub
// message data for Pub/Sub pushes, otherwise the event data itself.
func MessageData(e event.Event) ([]byte, error) {
	if e.Type() != PubSubEventType {
		return e.Data(), nil
	}

	var msg types.PubSubMessage
	if err := e.DataAs(&msg); err != nil {
		return nil, fmt.Errorf("decode pub/sub message: %w", err)
	}
	return msg.Message.Data, nil
}
