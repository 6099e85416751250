package pubsubmux

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/pubsubmux/pkg/idpool"
	"github.com/dmitrymomot/pubsubmux/pkg/logger"
)

// HandlerFunc receives the payload of every message published on the
// channel it was subscribed to.
type HandlerFunc func(payload string)

// registry maps channels to their handlers.
//
// Lock order is topic.mu before registry.mu; registry.mu is never held while
// a topic lock is acquired.
type registry struct {
	mu     sync.RWMutex
	topics map[string]*topic

	idLimit     uint32
	concurrency int
	log         *slog.Logger
	metrics     *metrics
}

// topic is one channel's consumer set. A retired topic has been removed from
// the registry and must not accept registrations.
type topic struct {
	mu       sync.RWMutex
	ids      *idpool.Pool
	handlers map[idpool.ID]HandlerFunc
	// ready is closed once the broker confirmed the physical subscription;
	// nil until it has been requested.
	ready   <-chan struct{}
	retired bool
}

func newRegistry(idLimit uint32, concurrency int, log *slog.Logger, m *metrics) *registry {
	return &registry{
		topics:      make(map[string]*topic),
		idLimit:     idLimit,
		concurrency: concurrency,
		log:         log,
		metrics:     m,
	}
}

func (r *registry) lookup(channel string) *topic {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.topics[channel]
}

// topicFor returns the channel's topic, creating it when absent.
func (r *registry) topicFor(channel string) *topic {
	if t := r.lookup(channel); t != nil {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.topics[channel]
	if !ok {
		t = &topic{
			ids:      idpool.NewWithLimit(r.idLimit),
			handlers: make(map[idpool.ID]HandlerFunc),
		}
		r.topics[channel] = t
	}
	return t
}

// retire drops t from the registry. The caller holds t.mu.
func (r *registry) retire(channel string, t *topic) {
	t.retired = true

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.topics[channel] == t {
		delete(r.topics, channel)
	}
}

// register adds h to channel and returns its id together with the channel's
// confirmation signal. onFirst runs, with the topic locked, when the channel
// has no physical subscription yet; if it fails nothing is registered.
// Callers wait on the signal after register returned, never under a lock.
func (r *registry) register(channel string, h HandlerFunc, onFirst func() (<-chan struct{}, error)) (idpool.ID, <-chan struct{}, error) {
	for {
		t := r.topicFor(channel)
		t.mu.Lock()
		if t.retired {
			// Lost a race with the last unregister; the next lookup sees a fresh topic.
			t.mu.Unlock()
			continue
		}

		id, err := t.ids.Draw()
		if err != nil {
			t.mu.Unlock()
			return 0, nil, err
		}

		if t.ready == nil {
			ready, err := onFirst()
			if err != nil {
				t.ids.Surrender(id)
				r.retire(channel, t)
				t.mu.Unlock()
				return 0, nil, err
			}
			t.ready = ready
		}

		t.handlers[id] = h
		ready := t.ready
		t.mu.Unlock()
		return id, ready, nil
	}
}

// unregister removes the handler registered under id. When the channel is
// left without handlers, onLast runs before the topic is retired so that a
// concurrent register issues its physical subscribe afterwards.
func (r *registry) unregister(channel string, id idpool.ID, onLast func()) (found, empty bool) {
	t := r.lookup(channel)
	if t == nil {
		return false, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.retired {
		return false, false
	}
	if _, ok := t.handlers[id]; !ok {
		return false, false
	}

	delete(t.handlers, id)
	t.ids.Surrender(id)
	if len(t.handlers) > 0 {
		return true, false
	}

	onLast()
	r.retire(channel, t)
	return true, true
}

// dispatch hands payload to every handler of channel and returns once all of
// them have finished. Handlers run outside the topic lock, so a handler may
// cancel subscriptions, including its own.
func (r *registry) dispatch(ctx context.Context, channel, payload string) {
	t := r.lookup(channel)
	if t == nil {
		r.unexpected(ctx, channel)
		return
	}

	t.mu.RLock()
	ids := make([]idpool.ID, 0, len(t.handlers))
	handlers := make([]HandlerFunc, 0, len(t.handlers))
	for id, h := range t.handlers {
		ids = append(ids, id)
		handlers = append(handlers, h)
	}
	t.mu.RUnlock()

	if len(handlers) == 0 {
		r.unexpected(ctx, channel)
		return
	}
	r.metrics.messageDispatched()

	if len(handlers) == 1 {
		r.invoke(ctx, channel, ids[0], handlers[0], payload)
		return
	}

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}
	for i := range handlers {
		g.Go(func() error {
			r.invoke(ctx, channel, ids[i], handlers[i], payload)
			return nil
		})
	}
	_ = g.Wait()
}

// invoke runs h, containing any panic to this handler.
func (r *registry) invoke(ctx context.Context, channel string, id idpool.ID, h HandlerFunc, payload string) {
	defer func() {
		if v := recover(); v != nil {
			r.metrics.handlerPanicked()
			r.log.ErrorContext(ctx, "subscriber handler panicked",
				logger.Channel(channel),
				logger.SubscriberID(id),
				logger.Panic(v),
			)
		}
	}()
	h(payload)
}

func (r *registry) unexpected(ctx context.Context, channel string) {
	r.metrics.unexpectedMessage()
	r.log.WarnContext(ctx, "message for channel without subscribers", logger.Channel(channel))
}

// channels lists channels that currently have handlers, sorted.
func (r *registry) channels() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.topics))
	topics := make([]*topic, 0, len(r.topics))
	for name, t := range r.topics {
		names = append(names, name)
		topics = append(topics, t)
	}
	r.mu.RUnlock()

	out := names[:0]
	for i, t := range topics {
		t.mu.RLock()
		live := !t.retired && len(t.handlers) > 0
		t.mu.RUnlock()
		if live {
			out = append(out, names[i])
		}
	}
	slices.Sort(out)
	return out
}

// consumers returns the number of handlers registered on channel.
func (r *registry) consumers(channel string) int {
	t := r.lookup(channel)
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.retired {
		return 0
	}
	return len(t.handlers)
}
