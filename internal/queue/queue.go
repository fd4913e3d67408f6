package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Topics used by the delivery pipeline.
const (
	TopicVendorSend      = "vendor.send"
	TopicDeliveryReceipt = "delivery.receipt"
)

// Handler consumes one message body. A non-nil error asks for a retry.
type Handler func(ctx context.Context, body []byte) error

// Queue interface
type Queue interface {
	Publish(ctx context.Context, topic string, body []byte) error
	Subscribe(ctx context.Context, topic string, handler Handler) error
}

// PublishJSON encodes v and publishes it on topic.
func PublishJSON(ctx context.Context, q Queue, topic string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}
	return q.Publish(ctx, topic, body)
}

// InMemoryQueue fans each message out to every subscriber of its topic and
// retries failed handlers. In sync mode the whole chain runs on the
// publisher's goroutine before Publish returns.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]Handler

	sync       bool
	maxRetries int
	retryDelay time.Duration
	inflight   sync.WaitGroup
}

type Option func(*InMemoryQueue)

// WithRetry sets how many times a failed handler is retried and the base
// delay; attempt n waits n*delay.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(q *InMemoryQueue) {
		q.maxRetries = maxRetries
		q.retryDelay = delay
	}
}

// NewInMemoryQueue creates a new asynchronous queue
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		handlers:   make(map[string][]Handler),
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// NewSyncQueue creates a queue that delivers inline.
func NewSyncQueue(opts ...Option) *InMemoryQueue {
	q := NewInMemoryQueue(opts...)
	q.sync = true
	return q
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(ctx context.Context, topic string, body []byte) error {
	q.mu.Lock()
	handlers := append([]Handler(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	for _, handler := range handlers {
		if q.sync {
			q.processJob(ctx, topic, handler, body)
			continue
		}
		q.inflight.Add(1)
		go func(h Handler) {
			defer q.inflight.Done()
			q.processJob(context.WithoutCancel(ctx), topic, h, body)
		}(handler)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(ctx context.Context, topic string, handler Handler, body []byte) {
	for attempt := 0; ; attempt++ {
		err := handler(ctx, body)
		if err == nil {
			return
		}

		if attempt >= q.maxRetries {
			slog.ErrorContext(ctx, "job permanently failed", "topic", topic, "attempts", attempt+1, "err", err)
			return
		}
		slog.WarnContext(ctx, "job failed, retrying", "topic", topic, "attempt", attempt+1, "max_retries", q.maxRetries, "err", err)

		if q.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt+1) * q.retryDelay):
			}
		}
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(_ context.Context, topic string, handler Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Wait blocks until every asynchronously delivered job has finished.
func (q *InMemoryQueue) Wait() {
	q.inflight.Wait()
}

var _ Queue = (*InMemoryQueue)(nil)
