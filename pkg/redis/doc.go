// Package redis is the broker client used by pubsubmux. It wraps the
// go-redis client and exposes the small set of primitives a pub/sub
// multiplexer needs from a Redis-compatible server.
//
// The package provides:
//
//   - Connect, which parses a connection URL and pings the server, retrying
//     according to Config.
//   - Dialer, which opens connections to a given host and port while taking
//     credentials, database and TLS settings from Config.ConnectionURL.
//   - Conn, which publishes, runs a single blocking Listen loop and adds or
//     drops channels on that loop from other goroutines.
//   - Healthcheck, a ping check for readiness checks.
//
// # Usage
//
//	dialer := redis.NewDialer(redis.DefaultConfig())
//	conn, err := dialer.Dial(ctx, "localhost", 6379)
//	if err != nil {
//	    return err
//	}
//	defer conn.Close()
//
//	go func() {
//	    // Blocks until every channel has been unsubscribed.
//	    _ = conn.Listen(ctx, "bootstrap", func(channel, payload string) {
//	        fmt.Println(channel, payload)
//	    })
//	}()
//
//	confirmed, err := conn.Subscribe(ctx, "orders")
//	if err != nil {
//	    return err
//	}
//	<-confirmed // the server has registered the subscription
//	...
//	_ = conn.Unsubscribe(ctx) // drop everything, Listen returns
//
// # Listen semantics
//
// Listen subscribes to its initial channel and then reads replies from the
// dedicated pub/sub connection. Messages are handed to the callback one at a
// time in the order the server delivered them; the next message is not read
// until the callback returns. Listen returns nil when an unsubscribe reply
// reports that no subscriptions remain or when the connection is closed.
// Transient read errors are logged and retried; go-redis reconnects and
// restores the subscribed channels on its own.
//
// # Errors
//
// Sentinel errors (ErrRedisNotReady, ErrPublishFailed, ...) are joined with the
// underlying go-redis error using errors.Join, so errors.Is works on both.
//
// Configuration fields carry env tags and can be populated with
// github.com/caarlos0/env.
package redis
