package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	dlxExchangeName  = "number-console.dlx"
	reconnectBackoff = time.Second
	maxBackoff       = 30 * time.Second
)

// RabbitMQ manages RabbitMQ connectivity and topology declaration.
type RabbitMQ struct {
	url string

	mu          sync.RWMutex
	reconnectMu sync.Mutex
	conn        *amqp.Connection
}

func NewRabbitMQ(url string) (*RabbitMQ, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	r := &RabbitMQ{url: url}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := r.ensureConnected(ctx); err != nil {
		return nil, err
	}

	return r, nil
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.mu.Unlock()

	if conn == nil || conn.IsClosed() {
		return nil
	}

	return conn.Close()
}

// Ping reports whether the broker connection is usable, reconnecting if it
// dropped. It gives up when ctx is done.
func (r *RabbitMQ) Ping(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("rabbitmq client is required")
	}
	return r.ensureConnected(ctx)
}

// channel opens a channel with the topology declared. A connection that
// refuses new channels is dropped and redialed once.
func (r *RabbitMQ) channel(ctx context.Context) (*amqp.Channel, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := r.ensureConnected(ctx); err != nil {
			return nil, err
		}

		r.mu.RLock()
		conn := r.conn
		r.mu.RUnlock()
		if conn == nil {
			lastErr = fmt.Errorf("rabbitmq connection is closed")
			continue
		}

		ch, err := conn.Channel()
		if err != nil {
			lastErr = err
			_ = conn.Close()
			continue
		}

		if err := declareTopology(ch); err != nil {
			_ = ch.Close()
			return nil, err
		}
		return ch, nil
	}

	return nil, fmt.Errorf("failed to open rabbitmq channel: %w", lastErr)
}

func (r *RabbitMQ) ensureConnected(ctx context.Context) error {
	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()

	if conn != nil && !conn.IsClosed() {
		return nil
	}

	return r.reconnectWithBackoff(ctx)
}

func (r *RabbitMQ) reconnectWithBackoff(ctx context.Context) error {
	r.reconnectMu.Lock()
	defer r.reconnectMu.Unlock()

	r.mu.RLock()
	conn := r.conn
	r.mu.RUnlock()
	if conn != nil && !conn.IsClosed() {
		return nil
	}

	wait := reconnectBackoff
	for {
		newConn, err := amqp.Dial(r.url)
		if err == nil {
			r.mu.Lock()
			oldConn := r.conn
			r.conn = newConn
			r.mu.Unlock()

			if oldConn != nil && !oldConn.IsClosed() {
				_ = oldConn.Close()
			}

			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("rabbitmq reconnect canceled: %w", ctx.Err())
		case <-time.After(wait):
		}

		wait *= 2
		if wait > maxBackoff {
			wait = maxBackoff
		}
	}
}

// declareTopology declares the batch topic exchange, its work queues and
// one dead-letter queue per work queue.
func declareTopology(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(BatchEventsExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare exchange %q: %w", BatchEventsExchange, err)
	}
	if err := ch.ExchangeDeclare(dlxExchangeName, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dlx exchange: %w", err)
	}

	for queueName, bindingKey := range Bindings() {
		dlqName := DLQName(queueName)
		if _, err := ch.QueueDeclare(dlqName, true, false, false, false, nil); err != nil {
			return fmt.Errorf("failed to declare dlq %q: %w", dlqName, err)
		}
		if err := ch.QueueBind(dlqName, queueName, dlxExchangeName, false, nil); err != nil {
			return fmt.Errorf("failed to bind dlq %q: %w", dlqName, err)
		}

		args := amqp.Table{
			"x-dead-letter-exchange":    dlxExchangeName,
			"x-dead-letter-routing-key": queueName,
		}
		if _, err := ch.QueueDeclare(queueName, true, false, false, false, args); err != nil {
			return fmt.Errorf("failed to declare queue %q: %w", queueName, err)
		}
		if err := ch.QueueBind(queueName, bindingKey, BatchEventsExchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind queue %q to %q: %w", queueName, BatchEventsExchange, err)
		}
	}

	return nil
}
