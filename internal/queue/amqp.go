package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/streadway/amqp"
)

const retryHeader = "x-retry-count"

// AMQPQueue maps each topic onto a durable RabbitMQ queue of the same name
// on the default exchange.
type AMQPQueue struct {
	conn       *amqp.Connection
	maxRetries int
	prefetch   int

	pubMu    sync.Mutex
	pubCh    *amqp.Channel
	declared map[string]bool
}

// DialAMQP connects and opens the publishing channel.
func DialAMQP(url string, maxRetries, prefetch int) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publish channel: %w", err)
	}
	return &AMQPQueue{
		conn:       conn,
		pubCh:      ch,
		maxRetries: maxRetries,
		prefetch:   prefetch,
		declared:   make(map[string]bool),
	}, nil
}

func declare(ch *amqp.Channel, topic string) error {
	_, err := ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	return nil
}

func (q *AMQPQueue) Publish(_ context.Context, topic string, body []byte) error {
	return q.publish(topic, body, amqp.Table{})
}

func (q *AMQPQueue) publish(topic string, body []byte, headers amqp.Table) error {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()

	if !q.declared[topic] {
		if err := declare(q.pubCh, topic); err != nil {
			return err
		}
		q.declared[topic] = true
	}

	err := q.pubCh.Publish("", topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Headers:      headers,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe starts a consumer goroutine on its own channel. It stops when ctx
// is cancelled or the delivery channel closes.
func (q *AMQPQueue) Subscribe(ctx context.Context, topic string, handler Handler) error {
	ch, err := q.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consume channel: %w", err)
	}
	if err := ch.Qos(q.prefetch, 0, false); err != nil {
		ch.Close()
		return fmt.Errorf("set prefetch: %w", err)
	}
	if err := declare(ch, topic); err != nil {
		ch.Close()
		return err
	}

	msgs, err := ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		ch.Close()
		return fmt.Errorf("register consumer on %s: %w", topic, err)
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					slog.Warn("delivery channel closed", "topic", topic)
					return
				}
				q.handle(ctx, topic, d, handler)
			}
		}
	}()
	return nil
}

// handle acks on success. On failure the message is republished with an
// incremented retry header until maxRetries, then dropped.
func (q *AMQPQueue) handle(ctx context.Context, topic string, d amqp.Delivery, handler Handler) {
	err := handler(ctx, d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	if retries >= q.maxRetries {
		slog.ErrorContext(ctx, "message permanently failed", "topic", topic, "attempts", retries+1, "err", err)
		_ = d.Ack(false)
		return
	}

	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[retryHeader] = int32(retries + 1)

	if pubErr := q.publish(topic, d.Body, headers); pubErr != nil {
		slog.ErrorContext(ctx, "requeue failed, returning message to broker", "topic", topic, "err", pubErr)
		_ = d.Nack(false, true)
		return
	}
	slog.WarnContext(ctx, "message failed, requeued", "topic", topic, "attempt", retries+1, "err", err)
	_ = d.Ack(false)
}

func retryCount(h amqp.Table) int {
	switch v := h[retryHeader].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	case int8:
		return int(v)
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	q.pubMu.Lock()
	defer q.pubMu.Unlock()
	if err := q.pubCh.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
