// Package async runs a function on its own goroutine and exposes its
// completion as a Future.
//
// A Future is completed exactly once. Await blocks for the result,
// AwaitContext bounds the wait by a context, Done returns a channel usable in
// select statements and IsComplete polls without blocking.
//
//	f := async.Async(ctx, conn, func(ctx context.Context, c *redis.Conn) (struct{}, error) {
//	    return struct{}{}, c.Listen(ctx, "events", onMessage)
//	})
//
//	select {
//	case <-f.Done():
//	    _, err := f.Await()
//	    log.Println("listen loop ended:", err)
//	case <-time.After(time.Second):
//	}
//
// A context that is already cancelled when Async is called completes the
// future immediately with the context error; the function is not invoked.
package async
