// Package idpool hands out small unique integer identifiers and takes them
// back for reuse.
//
// A Pool keeps the set of claimed ids and a rolling counter. Draw returns the
// counter's value and advances it, skipping values that are still claimed, so
// a freshly surrendered id is only handed out again after the counter has
// travelled the whole id space. Draw fails with ErrExhausted instead of
// wrapping onto a claimed id.
//
//	pool := idpool.New()
//	id, err := pool.Draw()
//	if err != nil {
//	    // pool is full
//	}
//	defer pool.Surrender(id)
//
// All methods are safe for concurrent use. Pools share no state, so callers
// keep one pool per namespace (for example per channel) without contention.
package idpool
