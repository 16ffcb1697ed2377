package queue

import (
	"context"
	"fmt"
)

// Publisher publishes batch lifecycle events. The event type is the routing key.
type Publisher interface {
	Publish(ctx context.Context, msg BatchEventMessage) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, msg BatchEventMessage) error

// Consumer consumes batch lifecycle events from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

const (
	// BatchEventsExchange is the topic exchange every batch event is published to.
	BatchEventsExchange = "number-console.batch"

	// BatchEventsQueue receives every batch event for the audit trail.
	BatchEventsQueue = "batch.events"

	batchEventsBindingKey = "batch.#"
)

// DLQName returns the dead-letter queue name for a work queue, e.g. dlq.batch.events.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}

// Bindings maps each work queue to the routing pattern it subscribes to.
func Bindings() map[string]string {
	return map[string]string{
		BatchEventsQueue: batchEventsBindingKey,
	}
}
