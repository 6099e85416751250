package pubsubmux

import (
	"sync/atomic"

	"github.com/dmitrymomot/pubsubmux/pkg/idpool"
)

// Subscription is the handle returned by Manager.Subscribe.
type Subscription struct {
	channel   string
	id        idpool.ID
	cancel    func()
	cancelled atomic.Bool
}

func newSubscription(channel string, id idpool.ID, cancel func()) *Subscription {
	return &Subscription{channel: channel, id: id, cancel: cancel}
}

// Channel returns the subscribed channel.
func (s *Subscription) Channel() string { return s.channel }

// ID returns the subscriber id, unique among live subscriptions of the channel.
func (s *Subscription) ID() idpool.ID { return s.id }

// Cancelled reports whether Cancel has been called.
func (s *Subscription) Cancelled() bool { return s.cancelled.Load() }

// Cancel stops deliveries to this subscription. Only the first call has an
// effect; it is safe to call concurrently and after the manager is closed.
func (s *Subscription) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		s.cancel()
	}
}

// Close implements io.Closer. It always returns nil.
func (s *Subscription) Close() error {
	s.Cancel()
	return nil
}
