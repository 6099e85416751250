package idpool

import (
	"math"
	"sync"
)

// ID identifies a claim inside a single Pool.
type ID = uint32

// DefaultLimit is the size of the id space used by New.
const DefaultLimit uint32 = math.MaxUint32

// Pool tracks claimed ids in the range [0, limit).
type Pool struct {
	mu      sync.Mutex
	held    map[ID]struct{}
	counter ID
	limit   uint32
}

// New creates a pool covering DefaultLimit ids.
func New() *Pool {
	return NewWithLimit(DefaultLimit)
}

// NewWithLimit creates a pool covering ids [0, limit).
// A zero limit falls back to DefaultLimit.
func NewWithLimit(limit uint32) *Pool {
	if limit == 0 {
		limit = DefaultLimit
	}
	return &Pool{
		held:  make(map[ID]struct{}),
		limit: limit,
	}
}

// Draw claims the next free id.
// Returns ErrExhausted when all ids are already claimed.
func (p *Pool) Draw() (ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if uint64(len(p.held)) >= uint64(p.limit) {
		return 0, ErrExhausted
	}

	for {
		id := p.counter
		p.advance()
		if _, taken := p.held[id]; !taken {
			p.held[id] = struct{}{}
			return id, nil
		}
	}
}

// Surrender releases id. It reports false when id was not claimed.
func (p *Pool) Surrender(id ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.held[id]; !ok {
		return false
	}
	delete(p.held, id)
	return true
}

// Held reports whether id is currently claimed.
func (p *Pool) Held(id ID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	_, ok := p.held[id]
	return ok
}

// Len returns the number of claimed ids.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.held)
}

// advance moves the counter forward, wrapping at the limit.
func (p *Pool) advance() {
	if p.counter+1 >= p.limit {
		p.counter = 0
		return
	}
	p.counter++
}
