package broker

import (
	"context"

	"courier/pkg/models"
)

type Producer interface {
	Publish(ctx context.Context, topic string, msg models.MessageEnvelope) error

	// PublishEvent publishes a configuration update event. Events travel on
	// their own topic and are not wrapped in a message envelope.
	PublishEvent(ctx context.Context, topic string, event models.ConfigUpdateEvent) error

	Close() error
}

type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error

	// ConsumeEvents reads configuration update events. One consumer instance
	// serves exactly one topic, so event consumption uses its own instance.
	ConsumeEvents(ctx context.Context, topic string, handler EventHandlerFunc) error

	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, msg models.MessageEnvelope) error

type EventHandlerFunc func(ctx context.Context, event models.ConfigUpdateEvent) error
