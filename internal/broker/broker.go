// Package broker implements the in-process Event Broker: a topic-keyed
// pub/sub bus for flow events and alerts.
//
// Design (grounded on internal/kernel/events.go's channel/goroutine
// backpressure pattern and original_source/pkg/infra/local/broker.py's
// per-topic dispatch loop):
//
//   - Publish is non-blocking: it appends to an unbounded per-topic
//     queue and signals the topic's dispatcher goroutine.
//   - Each topic has exactly one dispatcher goroutine, so handlers for
//     that topic run strictly in publish order. Across topics, no
//     ordering is implied.
//   - A handler that returns an error is logged and skipped; the
//     broker never redelivers and never stops the dispatcher loop.
//   - There is no persistence: a restart loses whatever is still
//     queued.
package broker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Handler is invoked once per published event on the topic it was
// registered against. An error return is logged; it never halts the
// broker or causes redelivery.
type Handler func(event any) error

type topic struct {
	mu          sync.Mutex
	cond        *sync.Cond
	queue       []any
	subscribers []Handler
	draining    bool
}

// Broker is an in-process, topic-keyed pub/sub bus.
type Broker struct {
	log *zap.Logger

	mu     sync.Mutex
	topics map[string]*topic
	wg     sync.WaitGroup

	onDrop func(topicName string)
}

// New constructs a Broker. onDrop, if non-nil, is invoked whenever a
// handler invocation fails, so callers can wire a metrics counter
// without this package importing internal/metrics directly.
func New(log *zap.Logger, onDrop func(topicName string)) *Broker {
	return &Broker{
		log:    log,
		topics: make(map[string]*topic),
		onDrop: onDrop,
	}
}

func (b *Broker) getOrCreateTopic(ctx context.Context, name string) *topic {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[name]
	if ok {
		return t
	}
	t = &topic{}
	t.cond = sync.NewCond(&t.mu)
	b.topics[name] = t

	b.wg.Add(1)
	go b.dispatchLoop(ctx, name, t)
	return t
}

// dispatchLoop is the single goroutine that serializes delivery for one topic.
func (b *Broker) dispatchLoop(ctx context.Context, name string, t *topic) {
	defer b.wg.Done()

	go func() {
		<-ctx.Done()
		t.mu.Lock()
		t.draining = true
		t.cond.Broadcast()
		t.mu.Unlock()
	}()

	for {
		t.mu.Lock()
		for len(t.queue) == 0 && !t.draining {
			t.cond.Wait()
		}
		if len(t.queue) == 0 && t.draining {
			t.mu.Unlock()
			return
		}
		event := t.queue[0]
		t.queue = t.queue[1:]
		subscribers := make([]Handler, len(t.subscribers))
		copy(subscribers, t.subscribers)
		t.mu.Unlock()

		for _, h := range subscribers {
			b.invoke(name, h, event)
		}
	}
}

func (b *Broker) invoke(topicName string, h Handler, event any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("broker handler panicked",
				zap.String("topic", topicName), zap.Any("panic", r))
			if b.onDrop != nil {
				b.onDrop(topicName)
			}
		}
	}()
	if err := h(event); err != nil {
		b.log.Error("broker handler failed",
			zap.String("topic", topicName), zap.Error(err))
		if b.onDrop != nil {
			b.onDrop(topicName)
		}
	}
}

// Publish enqueues event on topic for delivery to every current and
// future subscriber. Non-blocking: the queue is unbounded in local mode.
func (b *Broker) Publish(ctx context.Context, topicName string, event any) {
	t := b.getOrCreateTopic(ctx, topicName)
	t.mu.Lock()
	t.queue = append(t.queue, event)
	t.cond.Signal()
	t.mu.Unlock()
}

// Subscribe registers handler to be invoked for every future publish
// to topicName. Events published before Subscribe is called are not
// redelivered.
func (b *Broker) Subscribe(ctx context.Context, topicName string, h Handler) {
	t := b.getOrCreateTopic(ctx, topicName)
	t.mu.Lock()
	t.subscribers = append(t.subscribers, h)
	t.mu.Unlock()
}

// Stop cancels every topic dispatcher, letting each drain its queue
// with no new publishes expected, then waits for them to exit.
// Intended to be called after the context passed to Publish/Subscribe
// has already been canceled.
func (b *Broker) Stop() {
	b.wg.Wait()
}

// Topics known to the core pipeline.
const (
	TopicTelemetryTraffic = "telemetry.traffic"
	TopicAlerts           = "alerts"
)

// UnexpectedEventType is returned by handlers that receive a value of
// an unexpected dynamic type, so every subscriber reports the same
// message shape.
func UnexpectedEventType(event any) error {
	return fmt.Errorf("broker: unexpected event type %T", event)
}
