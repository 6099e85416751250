package pubsubmux

import (
	"errors"

	"github.com/dmitrymomot/pubsubmux/pkg/idpool"
)

var (
	// ErrConnection is returned by New when the broker cannot be reached.
	ErrConnection = errors.New("pubsubmux: failed to connect to broker")
	// ErrInitialization is returned by New when the listener never
	// acknowledged a handshake beacon.
	ErrInitialization = errors.New("pubsubmux: listener did not acknowledge the handshake")
	// ErrInterrupted is returned when a blocking wait is abandoned because
	// its context is done.
	ErrInterrupted = errors.New("pubsubmux: wait interrupted")
	// ErrManagerClosed is returned by Subscribe once Close has started.
	ErrManagerClosed = errors.New("pubsubmux: manager is closed")
	// ErrBroker wraps failures of broker operations after construction.
	ErrBroker = errors.New("pubsubmux: broker operation failed")

	ErrEmptyChannel    = errors.New("pubsubmux: channel name is empty")
	ErrReservedChannel = errors.New("pubsubmux: channel name uses the reserved sentinel prefix")
	ErrNilHandler      = errors.New("pubsubmux: handler is nil")
	ErrInvalidConfig   = errors.New("pubsubmux: invalid configuration")

	// ErrIDExhausted is returned by Subscribe when a channel has no free
	// subscriber ids left.
	ErrIDExhausted = idpool.ErrExhausted
)
