package pubsubmux

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Manager.
type Option func(*options)

type options struct {
	cfg        Config
	dialer     Dialer
	logger     *slog.Logger
	registerer prometheus.Registerer
}

// WithDialer replaces the default Redis dialer. Nil is ignored.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics registers the manager's Prometheus collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithHandshake sets how many beacons are published and how long each waits.
// Non-positive values keep the configured ones.
func WithHandshake(attempts int, interval time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.cfg.HandshakeAttempts = attempts
		}
		if interval > 0 {
			o.cfg.HandshakeInterval = interval
		}
	}
}

// WithSubscribeTimeout sets how long the first Subscribe on a channel waits
// for the broker's confirmation. Non-positive values are ignored.
func WithSubscribeTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.cfg.SubscribeTimeout = d
		}
	}
}

// WithDispatchConcurrency caps how many handlers of one message run at once.
// 0 removes the cap.
func WithDispatchConcurrency(n int) Option {
	return func(o *options) {
		o.cfg.DispatchConcurrency = n
	}
}

// WithSentinelPrefix sets the namespace of the handshake channel.
func WithSentinelPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.cfg.SentinelPrefix = prefix
		}
	}
}

// WithIDLimit bounds the number of simultaneous subscribers per channel.
func WithIDLimit(limit uint32) Option {
	return func(o *options) {
		o.cfg.IDLimit = limit
	}
}
