package pubsubmux

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "pubsubmux"

// metrics is nil-safe: a nil *metrics records nothing.
type metrics struct {
	subscriptions     prometheus.Gauge
	channels          prometheus.Gauge
	dispatched        prometheus.Counter
	unexpected        prometheus.Counter
	handlerPanics     prometheus.Counter
	handshakeAttempts prometheus.Counter
}

// newMetrics registers the collectors with reg. Collectors already
// registered by another manager are shared, so gauges only move by deltas.
func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &metrics{
		subscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "subscriptions",
			Help:      "Live logical subscriptions.",
		}),
		channels: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "channels",
			Help:      "Channels with an active physical subscription.",
		}),
		dispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "messages_dispatched_total",
			Help:      "Messages fanned out to at least one subscriber.",
		}),
		unexpected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "unexpected_messages_total",
			Help:      "Messages received for channels without subscribers.",
		}),
		handlerPanics: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handler_panics_total",
			Help:      "Subscriber handlers that panicked.",
		}),
		handshakeAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "handshake_attempts_total",
			Help:      "Handshake beacons published.",
		}),
	}

	var err error
	if m.subscriptions, err = register(reg, m.subscriptions); err != nil {
		return nil, err
	}
	if m.channels, err = register(reg, m.channels); err != nil {
		return nil, err
	}
	if m.dispatched, err = register(reg, m.dispatched); err != nil {
		return nil, err
	}
	if m.unexpected, err = register(reg, m.unexpected); err != nil {
		return nil, err
	}
	if m.handlerPanics, err = register(reg, m.handlerPanics); err != nil {
		return nil, err
	}
	if m.handshakeAttempts, err = register(reg, m.handshakeAttempts); err != nil {
		return nil, err
	}
	return m, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, errors.Join(ErrInvalidConfig, err)
	}
	return c, nil
}

func (m *metrics) subscriptionAdded() {
	if m != nil {
		m.subscriptions.Inc()
	}
}

func (m *metrics) subscriptionRemoved() {
	if m != nil {
		m.subscriptions.Dec()
	}
}

func (m *metrics) channelOpened() {
	if m != nil {
		m.channels.Inc()
	}
}

func (m *metrics) channelClosed() {
	if m != nil {
		m.channels.Dec()
	}
}

func (m *metrics) messageDispatched() {
	if m != nil {
		m.dispatched.Inc()
	}
}

func (m *metrics) unexpectedMessage() {
	if m != nil {
		m.unexpected.Inc()
	}
}

func (m *metrics) handlerPanicked() {
	if m != nil {
		m.handlerPanics.Inc()
	}
}

func (m *metrics) handshakeAttempted() {
	if m != nil {
		m.handshakeAttempts.Inc()
	}
}
