package pubsubmux

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/pubsubmux/pkg/async"
	"github.com/dmitrymomot/pubsubmux/pkg/logger"
)

// listener owns the goroutine blocked in Conn.Listen.
// ready closes right before Listen is entered; the future completes with
// Listen's error once it returned.
type listener struct {
	ready  chan struct{}
	future *async.Future[struct{}]
}

func startListener(ctx context.Context, conn Conn, initial string, onMessage func(channel, payload string), log *slog.Logger) *listener {
	l := &listener{ready: make(chan struct{})}

	l.future = async.Async(ctx, initial, func(ctx context.Context, initial string) (struct{}, error) {
		close(l.ready)
		err := conn.Listen(ctx, initial, onMessage)
		if err != nil && ctx.Err() == nil {
			log.Error("listen loop exited", logger.Error(err))
		}
		return struct{}{}, err
	})

	return l
}

// done is closed once the listen loop has returned.
func (l *listener) done() <-chan struct{} {
	return l.future.Done()
}

// exited reports whether the listen loop has returned.
func (l *listener) exited() bool {
	return l.future.IsComplete()
}

// err is the listen loop's result. Only valid after done is closed.
func (l *listener) err() error {
	_, err := l.future.Await()
	return err
}
