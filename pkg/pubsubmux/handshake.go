package pubsubmux

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrymomot/pubsubmux/pkg/logger"
)

var (
	errNoAck          = errors.New("no acknowledgement within interval")
	errListenerExited = errors.New("listener exited during handshake")
)

// handshake proves that the listener receives messages on the sentinel
// channel before the manager is handed out.
type handshake struct {
	sentinel string
	beacon   string
	attempts int
	interval time.Duration

	acked   chan struct{}
	ackOnce sync.Once

	log     *slog.Logger
	metrics *metrics
}

func newHandshake(sentinel, beacon string, attempts int, interval time.Duration, log *slog.Logger, m *metrics) *handshake {
	return &handshake{
		sentinel: sentinel,
		beacon:   beacon,
		attempts: max(attempts, 1),
		interval: interval,
		acked:    make(chan struct{}),
		log:      log,
		metrics:  m,
	}
}

// acknowledge is called by the listener for every sentinel message.
// Any sentinel message proves delivery; a foreign payload is only logged.
func (h *handshake) acknowledge(payload string) {
	if payload != h.beacon {
		h.log.Warn("unexpected payload on sentinel channel", logger.Channel(h.sentinel))
	}
	h.ackOnce.Do(func() { close(h.acked) })
}

// run waits for the listener to start, then publishes beacons through a
// separate connection until one is acknowledged or the attempts run out.
func (h *handshake) run(ctx context.Context, l *listener, dial func(context.Context) (Conn, error)) error {
	select {
	case <-l.ready:
	case <-l.done():
		return errors.Join(ErrInitialization, errListenerExited, l.err())
	case <-ctx.Done():
		return errors.Join(ErrInterrupted, ctx.Err())
	}

	aux, err := dial(ctx)
	if err != nil {
		return errors.Join(ErrConnection, err)
	}
	defer func() {
		if err := aux.Close(); err != nil {
			h.log.DebugContext(ctx, "closing handshake connection", logger.Error(err))
		}
	}()

	start := time.Now()
	attempt := 0
	backoff := retry.WithMaxRetries(uint64(h.attempts-1), retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, false
	}))

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		h.metrics.handshakeAttempted()

		if err := aux.Publish(ctx, h.sentinel, h.beacon); err != nil {
			return errors.Join(ErrConnection, err)
		}

		timer := time.NewTimer(h.interval)
		defer timer.Stop()

		select {
		case <-h.acked:
			return nil
		case <-l.done():
			return errors.Join(errListenerExited, l.err())
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			h.log.DebugContext(ctx, "handshake beacon not acknowledged", logger.Attempt(attempt))
			return retry.RetryableError(errNoAck)
		}
	})

	switch {
	case err == nil:
		h.log.DebugContext(ctx, "handshake acknowledged",
			logger.Attempt(attempt),
			logger.Duration(time.Since(start)),
		)
		return nil
	case errors.Is(err, errNoAck):
		return errors.Join(ErrInitialization, fmt.Errorf("%d beacons on %q unacknowledged", attempt, h.sentinel))
	case errors.Is(err, errListenerExited):
		return errors.Join(ErrInitialization, err)
	case errors.Is(err, ErrConnection):
		return err
	case ctx.Err() != nil:
		return errors.Join(ErrInterrupted, ctx.Err())
	default:
		return errors.Join(ErrInitialization, err)
	}
}
