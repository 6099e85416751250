// Package pubsubmux multiplexes any number of logical subscribers onto a
// single pub/sub connection to a Redis-compatible broker.
//
// A broker connection can run only one blocking listen loop. Manager owns
// that loop and keeps, per channel, the set of registered handlers: the
// first Subscribe on a channel issues the physical SUBSCRIBE, the last
// Cancel issues the physical UNSUBSCRIBE, and everything in between only
// touches in-memory state.
//
// # Usage
//
//	m, err := pubsubmux.New(ctx, "localhost", 6379)
//	if err != nil {
//	    return err // ErrConnection, ErrInitialization or ErrInterrupted
//	}
//	defer m.Close()
//
//	sub, err := m.Subscribe("orders", func(payload string) {
//	    fmt.Println("order:", payload)
//	})
//	if err != nil {
//	    return err
//	}
//	defer sub.Cancel()
//
// # Startup handshake
//
// The listen loop runs on its own goroutine and the broker may not have
// registered its subscription by the time New would return. New therefore
// subscribes the loop to a private sentinel channel (SentinelPrefix followed
// by a random UUID) and publishes beacons on it from a second, short-lived
// connection until the loop reports one, waiting HandshakeInterval per
// beacon for at most HandshakeAttempts beacons. Only then is the manager
// returned.
//
// The first Subscribe on a channel likewise waits for the broker's
// subscribe reply (at most SubscribeTimeout, then ErrBroker), so a message
// published as soon as Subscribe returns is delivered. The reply is read by
// the listen loop: a handler that subscribes to a channel nobody listens on
// yet must do it from another goroutine.
//
// # Delivery
//
// Messages of one channel are delivered in broker order: the loop does not
// read the next message until every handler of the current one has
// returned. Handlers of the same message may run concurrently (bounded by
// DispatchConcurrency). A panicking handler is logged and does not affect
// its siblings or the loop. Messages for channels without handlers are
// logged and dropped.
//
// # Shutdown
//
// Close sends a single unsubscribe-all, waits for the loop to return and
// closes the connection. Subscribe fails with ErrManagerClosed from the
// moment Close starts. Subscriptions stay cancellable afterwards; cancelling
// them only updates bookkeeping so SubscriptionCount stays exact.
//
// # Configuration
//
// Config can be loaded from the environment with LoadConfig (PUBSUB_* and
// REDIS_* variables, optional .env file) and passed to NewFromConfig.
// Options such as WithLogger, WithMetrics and WithDialer override it.
package pubsubmux
