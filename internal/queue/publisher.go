package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var _ Publisher = (*RabbitMQPublisher)(nil)

// RabbitMQPublisher publishes batch events on one confirm-mode channel and
// waits for the broker to confirm each message.
type RabbitMQPublisher struct {
	client *RabbitMQ

	mu sync.Mutex
	ch *amqp.Channel
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, msg BatchEventMessage) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid batch event: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal batch event: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     msg.OccurredAt.UTC(),
		MessageId:     msg.EventID,
		CorrelationId: msg.JobID,
		Type:          msg.Event,
		Body:          payload,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked(ctx)
	if err != nil {
		return err
	}

	confirm, err := ch.PublishWithDeferredConfirmWithContext(ctx, BatchEventsExchange, msg.Event, false, false, publishing)
	if err != nil {
		p.dropChannelLocked()
		return fmt.Errorf("failed to publish %s for job %s: %w", msg.Event, msg.JobID, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("waiting for confirm of %s for job %s: %w", msg.Event, msg.JobID, err)
	}
	if !acked {
		return fmt.Errorf("broker nacked %s for job %s", msg.Event, msg.JobID)
	}
	return nil
}

func (p *RabbitMQPublisher) channelLocked(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return nil, err
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	p.ch = ch
	return ch, nil
}

func (p *RabbitMQPublisher) dropChannelLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}

	p.mu.Lock()
	p.dropChannelLocked()
	p.mu.Unlock()

	return p.client.Close()
}
