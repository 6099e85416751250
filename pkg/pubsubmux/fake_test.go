package pubsubmux_test

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrymomot/pubsubmux/pkg/pubsubmux"
)

// fakeBroker is an in-memory broker. Every fakeConn gets its own inbox; a
// published message is copied into the inbox of each conn subscribed to the
// channel.
type fakeBroker struct {
	mu    sync.Mutex
	conns map[*fakeConn]map[string]bool

	dialErr error
	pingErr error
	// drop reports whether a publish should be swallowed.
	drop func(channel, payload string) bool
	// ignoreUnsubscribeAll keeps Listen blocked after an unsubscribe-all.
	ignoreUnsubscribeAll bool
	// unconfirmed leaves subscriptions without a broker confirmation.
	unconfirmed bool
	// beforeSubscribe runs at the start of every Subscribe, without the lock.
	beforeSubscribe func()

	dials     int
	published []fakeMsg
}

type fakeMsg struct {
	channel string
	payload string
	stop    bool
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{conns: make(map[*fakeConn]map[string]bool)}
}

func (b *fakeBroker) dialer() pubsubmux.Dialer {
	return pubsubmux.DialerFunc(func(ctx context.Context, host string, port int) (pubsubmux.Conn, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.dials++
		if b.dialErr != nil {
			return nil, b.dialErr
		}
		c := &fakeConn{
			broker: b,
			inbox:  make(chan fakeMsg, 1024),
			closed: make(chan struct{}),
		}
		b.conns[c] = make(map[string]bool)
		return c, nil
	})
}

func (b *fakeBroker) publish(channel, payload string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.published = append(b.published, fakeMsg{channel: channel, payload: payload})
	if b.drop != nil && b.drop(channel, payload) {
		return
	}
	for c, subs := range b.conns {
		if subs[channel] {
			c.inbox <- fakeMsg{channel: channel, payload: payload}
		}
	}
}

// inject delivers a message to c regardless of its subscriptions.
func (b *fakeBroker) inject(c *fakeConn, channel, payload string) {
	c.inbox <- fakeMsg{channel: channel, payload: payload}
}

// publishedOn counts publishes whose channel starts with prefix.
func (b *fakeBroker) publishedOn(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, m := range b.published {
		if strings.HasPrefix(m.channel, prefix) {
			n++
		}
	}
	return n
}

// listening returns the conns that have entered Listen.
func (b *fakeBroker) listening() []*fakeConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*fakeConn
	for c := range b.conns {
		if c.listening {
			out = append(out, c)
		}
	}
	return out
}

func (b *fakeBroker) openConns() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

type fakeConn struct {
	broker *fakeBroker
	inbox  chan fakeMsg

	closeOnce sync.Once
	closed    chan struct{}

	// guarded by broker.mu
	listening  bool
	subCalls   []string
	unsubCalls []string
	unsubAll   int
}

func (c *fakeConn) Publish(ctx context.Context, channel, payload string) error {
	select {
	case <-c.closed:
		return errors.New("fake: closed")
	default:
	}
	c.broker.publish(channel, payload)
	return nil
}

func (c *fakeConn) Listen(ctx context.Context, initial string, onMessage func(channel, payload string)) error {
	c.broker.mu.Lock()
	c.listening = true
	if subs, ok := c.broker.conns[c]; ok {
		subs[initial] = true
	}
	c.broker.mu.Unlock()

	for {
		select {
		case msg := <-c.inbox:
			if msg.stop {
				return nil
			}
			onMessage(msg.channel, msg.payload)
		case <-c.closed:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *fakeConn) Subscribe(ctx context.Context, channel string) (<-chan struct{}, error) {
	b := c.broker
	b.mu.Lock()
	hook := b.beforeSubscribe
	b.mu.Unlock()
	if hook != nil {
		hook()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.conns[c]
	if !ok {
		return nil, errors.New("fake: closed")
	}
	subs[channel] = true
	c.subCalls = append(c.subCalls, channel)

	confirmed := make(chan struct{})
	if !b.unconfirmed {
		close(confirmed)
	}
	return confirmed, nil
}

func (c *fakeConn) Unsubscribe(ctx context.Context, channels ...string) error {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.conns[c]
	if !ok {
		return errors.New("fake: closed")
	}
	if len(channels) == 0 {
		c.unsubAll++
		clear(subs)
		if !b.ignoreUnsubscribeAll {
			c.inbox <- fakeMsg{stop: true}
		}
		return nil
	}
	for _, ch := range channels {
		delete(subs, ch)
		c.unsubCalls = append(c.unsubCalls, ch)
	}
	return nil
}

func (c *fakeConn) Ping(ctx context.Context) error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	return c.broker.pingErr
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() {
		c.broker.mu.Lock()
		delete(c.broker.conns, c)
		c.broker.mu.Unlock()
		close(c.closed)
	})
	return nil
}

// subscribed returns the non-sentinel channels c is physically subscribed to.
func (c *fakeConn) subscribed(sentinelPrefix string) []string {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	var out []string
	for ch := range c.broker.conns[c] {
		if !strings.HasPrefix(ch, sentinelPrefix) {
			out = append(out, ch)
		}
	}
	slices.Sort(out)
	return out
}

func (c *fakeConn) calls() (subs, unsubs []string, unsubAll int) {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	return slices.Clone(c.subCalls), slices.Clone(c.unsubCalls), c.unsubAll
}
