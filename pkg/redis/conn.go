package redis

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// receiveBackoff is the pause after a failed receive before go-redis is asked
// to reconnect and resubscribe.
const receiveBackoff = 100 * time.Millisecond

// Dialer opens broker connections to arbitrary host/port pairs sharing one
// base configuration.
type Dialer struct {
	cfg    Config
	logger *slog.Logger
}

// DialerOption configures a Dialer.
type DialerOption func(*Dialer)

// WithLogger sets the logger used for receive errors. Nil is ignored.
func WithLogger(l *slog.Logger) DialerOption {
	return func(d *Dialer) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDialer creates a dialer. An empty ConnectionURL falls back to DefaultConfig.
func NewDialer(cfg Config, opts ...DialerOption) *Dialer {
	if cfg.ConnectionURL == "" {
		cfg.ConnectionURL = DefaultConfig().ConnectionURL
	}
	d := &Dialer{cfg: cfg, logger: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dial connects to host:port and verifies the connection with a ping.
func (d *Dialer) Dial(ctx context.Context, host string, port int) (*Conn, error) {
	opts, err := parseOptions(d.cfg.ConnectionURL)
	if err != nil {
		return nil, err
	}
	opts.Addr = net.JoinHostPort(host, strconv.Itoa(port))

	client, err := connect(ctx, opts, d.cfg)
	if err != nil {
		return nil, err
	}
	return NewConn(client, d.logger), nil
}

// Conn is a broker connection able to publish and to run one blocking
// listen loop. Subscribe and Unsubscribe may be called from any goroutine
// while Listen is blocked.
type Conn struct {
	client *redis.Client
	logger *slog.Logger

	mu       sync.Mutex
	ps       *redis.PubSub
	closed   bool
	closeErr error
	// pending holds, per channel, the confirmations Listen has yet to see.
	pending map[string][]chan struct{}
}

// NewConn wraps an established client. A nil logger means slog.Default().
func NewConn(client *redis.Client, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conn{client: client, logger: logger, pending: make(map[string][]chan struct{})}
}

// Client returns the underlying go-redis client.
func (c *Conn) Client() *redis.Client {
	return c.client
}

// pubSub lazily creates the dedicated pub/sub connection.
func (c *Conn) pubSub() (*redis.PubSub, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrConnClosed
	}
	if c.ps == nil {
		c.ps = c.client.Subscribe(context.Background())
	}
	return c.ps, nil
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Publish sends payload to channel.
func (c *Conn) Publish(ctx context.Context, channel, payload string) error {
	if err := c.client.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Join(ErrPublishFailed, err)
	}
	return nil
}

// Listen subscribes to initial and blocks, calling onMessage for every
// delivered message in delivery order. It returns nil once the broker
// confirms that no subscriptions remain (see Unsubscribe) or the
// connection has been closed, and ctx.Err() when ctx is done.
func (c *Conn) Listen(ctx context.Context, initial string, onMessage func(channel, payload string)) error {
	ps, err := c.pubSub()
	if err != nil {
		return err
	}
	if err := ps.Subscribe(ctx, initial); err != nil {
		return errors.Join(ErrSubscribeFailed, err)
	}

	for {
		msg, err := ps.Receive(ctx)
		if err != nil {
			if errors.Is(err, redis.ErrClosed) || c.isClosed() {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			c.logger.WarnContext(ctx, "pubsub receive failed, retrying", slog.Any("error", err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(receiveBackoff):
			}
			continue
		}

		switch m := msg.(type) {
		case *redis.Message:
			onMessage(m.Channel, m.Payload)
		case *redis.Subscription:
			switch {
			case m.Kind == "subscribe":
				c.confirm(m.Channel)
			case m.Kind == "unsubscribe" && m.Count == 0:
				return nil
			}
		}
	}
}

// Subscribe adds channel to the listening connection. The returned channel
// is closed once Listen has received the broker's confirmation; from then on
// every message published on channel is delivered.
func (c *Conn) Subscribe(ctx context.Context, channel string) (<-chan struct{}, error) {
	ps, err := c.pubSub()
	if err != nil {
		return nil, err
	}

	confirmed := make(chan struct{})
	c.mu.Lock()
	c.pending[channel] = append(c.pending[channel], confirmed)
	c.mu.Unlock()

	if err := ps.Subscribe(ctx, channel); err != nil {
		c.dropPending(channel, confirmed)
		return nil, errors.Join(ErrSubscribeFailed, err)
	}
	return confirmed, nil
}

// confirm releases everyone waiting for a subscribe reply on channel.
func (c *Conn) confirm(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.pending[channel] {
		close(ch)
	}
	delete(c.pending, channel)
}

func (c *Conn) dropPending(channel string, confirmed chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	waiters := slices.DeleteFunc(c.pending[channel], func(ch chan struct{}) bool { return ch == confirmed })
	if len(waiters) == 0 {
		delete(c.pending, channel)
		return
	}
	c.pending[channel] = waiters
}

// Unsubscribe removes channels from the listening connection.
// Without arguments every channel is dropped, which makes Listen return.
func (c *Conn) Unsubscribe(ctx context.Context, channels ...string) error {
	ps, err := c.pubSub()
	if err != nil {
		return err
	}
	if err := ps.Unsubscribe(ctx, channels...); err != nil {
		if errors.Is(err, redis.ErrClosed) {
			return ErrConnClosed
		}
		return errors.Join(ErrUnsubscribeFailed, err)
	}
	return nil
}

// Ping checks the command connection.
func (c *Conn) Ping(ctx context.Context) error {
	return Healthcheck(c.client)(ctx)
}

// Close releases the pub/sub connection and the client. Safe to call twice.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.closeErr
	}
	c.closed = true

	var errs []error
	if c.ps != nil {
		if err := c.ps.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
			errs = append(errs, err)
		}
	}
	if err := c.client.Close(); err != nil && !errors.Is(err, redis.ErrClosed) {
		errs = append(errs, err)
	}
	c.closeErr = errors.Join(errs...)
	return c.closeErr
}
