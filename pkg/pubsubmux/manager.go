package pubsubmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/pubsubmux/pkg/idpool"
	"github.com/dmitrymomot/pubsubmux/pkg/logger"
)

// State is the lifecycle stage of a Manager.
type State int32

const (
	StateOpen State = iota
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Manager multiplexes logical subscriptions onto one broker connection.
// All methods are safe for concurrent use. Handlers must not call Close.
type Manager struct {
	cfg      Config
	conn     Conn
	log      *slog.Logger
	metrics  *metrics
	registry *registry

	sentinel  string
	handshake *handshake
	listener  *listener

	// ctx scopes broker calls made on behalf of subscriptions; cancelled
	// once the manager is closed.
	ctx    context.Context
	cancel context.CancelFunc

	count   atomic.Int64
	state   atomic.Int32
	closeMu sync.Mutex
}

// New connects to the broker at host:port and returns a manager whose
// listener has been proven to receive messages.
func New(ctx context.Context, host string, port int, opts ...Option) (*Manager, error) {
	cfg := DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	return NewFromConfig(ctx, cfg, opts...)
}

// NewFromConfig is New with the address and tuning taken from cfg.
func NewFromConfig(ctx context.Context, cfg Config, opts ...Option) (*Manager, error) {
	o := &options{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.cfg.validate(); err != nil {
		return nil, err
	}
	cfg = o.cfg

	log := o.logger.With(logger.Component("pubsubmux"))
	if o.dialer == nil {
		o.dialer = RedisDialer(cfg.Redis, log)
	}

	met, err := newMetrics(o.registerer)
	if err != nil {
		return nil, err
	}

	conn, err := o.dialer.Dial(ctx, cfg.Host, cfg.Port)
	if err != nil {
		return nil, errors.Join(ErrConnection, err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, errors.Join(ErrConnection, err)
	}

	token := uuid.NewString()
	m := &Manager{
		cfg:      cfg,
		conn:     conn,
		log:      log,
		metrics:  met,
		registry: newRegistry(cfg.IDLimit, cfg.DispatchConcurrency, log, met),
		sentinel: cfg.SentinelPrefix + token,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.handshake = newHandshake(m.sentinel, "pubsubmux-beacon:"+token, cfg.HandshakeAttempts, cfg.HandshakeInterval, log, met)
	m.listener = startListener(m.ctx, conn, m.sentinel, m.onMessage, log)

	start := time.Now()
	err = m.handshake.run(ctx, m.listener, func(ctx context.Context) (Conn, error) {
		return o.dialer.Dial(ctx, cfg.Host, cfg.Port)
	})
	if err != nil {
		m.abort()
		return nil, err
	}

	m.log.InfoContext(ctx, "pubsub manager ready", logger.Duration(time.Since(start)))
	return m, nil
}

// abort tears down a manager whose construction failed.
func (m *Manager) abort() {
	m.state.Store(int32(StateClosing))
	_ = m.conn.Unsubscribe(m.ctx)
	// Closing the connection also unblocks a listener the unsubscribe did not reach.
	_ = m.conn.Close()
	<-m.listener.done()
	m.cancel()
	m.state.Store(int32(StateClosed))
}

// onMessage is the listener callback.
func (m *Manager) onMessage(channel, payload string) {
	if channel == m.sentinel {
		m.handshake.acknowledge(payload)
		return
	}
	m.registry.dispatch(m.ctx, channel, payload)
}

// State returns the lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

func (m *Manager) usable() bool {
	return m.State() == StateOpen && !m.listener.exited()
}

// Subscribe registers handler for channel. The first subscription to a
// channel issues the physical subscribe and waits, up to SubscribeTimeout,
// for the broker to confirm it, so a message published after Subscribe
// returns is delivered. Returns ErrManagerClosed once Close has started.
//
// A handler that subscribes to a channel without subscribers must do so from
// another goroutine: the confirmation is read by the listener the handler
// runs on.
func (m *Manager) Subscribe(channel string, handler HandlerFunc) (*Subscription, error) {
	if !m.usable() {
		return nil, ErrManagerClosed
	}
	switch {
	case channel == "":
		return nil, ErrEmptyChannel
	case handler == nil:
		return nil, ErrNilHandler
	case strings.HasPrefix(channel, m.cfg.SentinelPrefix):
		return nil, ErrReservedChannel
	}

	id, ready, err := m.registry.register(channel, handler, func() (<-chan struct{}, error) {
		ready, err := m.conn.Subscribe(m.ctx, channel)
		if err != nil {
			return nil, errors.Join(ErrBroker, err)
		}
		m.metrics.channelOpened()
		return ready, nil
	})
	if err != nil {
		if m.State() != StateOpen {
			return nil, ErrManagerClosed
		}
		return nil, err
	}

	if err := m.awaitConfirmation(channel, ready); err != nil {
		m.release(channel, id)
		return nil, err
	}

	m.count.Add(1)
	m.metrics.subscriptionAdded()
	sub := newSubscription(channel, id, func() { m.unsubscribe(channel, id) })

	// Close may have completed while registering.
	if m.State() == StateClosed {
		sub.Cancel()
		return nil, ErrManagerClosed
	}

	m.log.Debug("subscribed", logger.Channel(channel), logger.SubscriberID(id))
	return sub, nil
}

// awaitConfirmation blocks until the broker confirmed the channel's physical
// subscription.
func (m *Manager) awaitConfirmation(channel string, ready <-chan struct{}) error {
	select {
	case <-ready:
		return nil
	default:
	}

	timer := time.NewTimer(m.cfg.SubscribeTimeout)
	defer timer.Stop()

	select {
	case <-ready:
		return nil
	case <-m.listener.done():
		return ErrManagerClosed
	case <-m.ctx.Done():
		return ErrManagerClosed
	case <-timer.C:
		if m.State() != StateOpen {
			return ErrManagerClosed
		}
		m.log.Warn("subscription not confirmed", logger.Channel(channel), logger.Duration(m.cfg.SubscribeTimeout))
		return errors.Join(ErrBroker, fmt.Errorf("subscription to %q not confirmed within %s", channel, m.cfg.SubscribeTimeout))
	}
}

// release unregisters id and drops the physical subscription when the
// channel is left empty. It reports whether id was registered.
func (m *Manager) release(channel string, id idpool.ID) bool {
	found, _ := m.registry.unregister(channel, id, func() {
		m.metrics.channelClosed()
		if m.State() == StateClosed {
			return
		}
		if err := m.conn.Unsubscribe(m.ctx, channel); err != nil {
			m.log.Warn("physical unsubscribe failed", logger.Channel(channel), logger.Error(err))
		}
	})
	return found
}

// unsubscribe is the cancel action of a Subscription.
func (m *Manager) unsubscribe(channel string, id idpool.ID) {
	if !m.release(channel, id) {
		return
	}

	m.count.Add(-1)
	m.metrics.subscriptionRemoved()
	m.log.Debug("unsubscribed", logger.Channel(channel), logger.SubscriberID(id))
}

// SubscriptionCount returns the number of live subscriptions.
func (m *Manager) SubscriptionCount() int64 {
	return m.count.Load()
}

// Channels returns the channels that have at least one subscription, sorted.
func (m *Manager) Channels() []string {
	return m.registry.channels()
}

// Healthcheck pings the broker over the manager's connection.
func (m *Manager) Healthcheck(ctx context.Context) error {
	if m.State() == StateClosed {
		return ErrManagerClosed
	}
	return m.conn.Ping(ctx)
}

// Close shuts the manager down and waits for the listener to exit.
func (m *Manager) Close() error {
	return m.Shutdown(context.Background())
}

// Shutdown drops every physical subscription with a single unsubscribe-all,
// waits for the listener to return and releases the connection. If ctx ends
// first the connection is closed forcibly and ErrInterrupted is returned.
// Later calls wait for the listener to have returned, bounded by their own
// ctx, and then return nil.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.State() == StateClosed {
		// An interrupted first call may have left the listener running.
		select {
		case <-m.listener.done():
			return nil
		case <-ctx.Done():
			return errors.Join(ErrInterrupted, ctx.Err())
		}
	}
	m.state.Store(int32(StateClosing))

	if err := m.conn.Unsubscribe(ctx); err != nil && !m.listener.exited() {
		m.log.WarnContext(ctx, "unsubscribe-all failed, closing connection", logger.Error(err))
		_ = m.conn.Close()
	}

	var errs []error
	select {
	case <-m.listener.done():
		if err := m.listener.err(); err != nil {
			errs = append(errs, errors.Join(ErrBroker, err))
		}
	case <-ctx.Done():
		errs = append(errs, errors.Join(ErrInterrupted, ctx.Err()))
	}

	m.state.Store(int32(StateClosed))
	m.cancel()
	if err := m.conn.Close(); err != nil {
		errs = append(errs, errors.Join(ErrBroker, err))
	}

	m.log.InfoContext(ctx, "pubsub manager closed", slog.Int64("subscriptions", m.count.Load()))
	return errors.Join(errs...)
}
