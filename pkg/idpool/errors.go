package idpool

import "errors"

var ErrExhausted = errors.New("idpool: every id in the pool is claimed")
