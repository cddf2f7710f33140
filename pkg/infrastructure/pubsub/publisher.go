package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/cloudevents/sdk-go/v2/event"
)

// PubSubAdapter provides message publishing using Google Cloud Pub/Sub
type PubSubAdapter struct {
	Client *pubsub.Client
}

// PublishCloudEvent publishes e in binary content mode: the event data is
// the message body and the context attributes become ce-* attributes.
func (a *PubSubAdapter) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	msg, err := toMessage(e)
	if err != nil {
		return "", err
	}
	res := a.Client.Topic(topicID).Publish(ctx, msg)
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish to %s: %w", topicID, err)
	}
	return id, nil
}

func toMessage(e event.Event) (*pubsub.Message, error) {
	if err := e.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cloudevent: %w", err)
	}

	attrs := map[string]string{
		attrPrefix + "specversion": e.SpecVersion(),
		attrPrefix + "id":          e.ID(),
		attrPrefix + "type":        e.Type(),
		attrPrefix + "source":      e.Source(),
	}
	if !e.Time().IsZero() {
		attrs[attrPrefix+"time"] = e.Time().UTC().Format(time.RFC3339Nano)
	}
	if s := e.Subject(); s != "" {
		attrs[attrPrefix+"subject"] = s
	}
	if ct := e.DataContentType(); ct != "" {
		attrs[attrContentType] = ct
	}

	return &pubsub.Message{Data: e.Data(), Attributes: attrs}, nil
}

// LogPublisher is a mock publisher for local development
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) PublishCloudEvent(ctx context.Context, topicID string, e event.Event) (string, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "MOCK PUBLISH",
		"component", "LogPublisher",
		"topic", topicID,
		"type", e.Type(),
		"id", e.ID(),
		"data", string(e.Data()))
	return "mock-msg-id", nil
}
