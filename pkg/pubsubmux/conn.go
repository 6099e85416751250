package pubsubmux

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/pubsubmux/pkg/redis"
)

// Conn is the broker connection a Manager drives. Listen blocks until the
// connection has no subscriptions left; Subscribe and Unsubscribe are called
// from other goroutines while it blocks. The channel returned by Subscribe
// is closed once Listen has seen the broker confirm the subscription.
// Unsubscribe without channels drops every subscription.
type Conn interface {
	Publish(ctx context.Context, channel, payload string) error
	Listen(ctx context.Context, initial string, onMessage func(channel, payload string)) error
	Subscribe(ctx context.Context, channel string) (<-chan struct{}, error)
	Unsubscribe(ctx context.Context, channels ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Dialer opens broker connections.
type Dialer interface {
	Dial(ctx context.Context, host string, port int) (Conn, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, host string, port int) (Conn, error)

func (f DialerFunc) Dial(ctx context.Context, host string, port int) (Conn, error) {
	return f(ctx, host, port)
}

// RedisDialer returns a Dialer backed by pkg/redis.
func RedisDialer(cfg redis.Config, logger *slog.Logger) Dialer {
	d := redis.NewDialer(cfg, redis.WithLogger(logger))
	return DialerFunc(func(ctx context.Context, host string, port int) (Conn, error) {
		conn, err := d.Dial(ctx, host, port)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
