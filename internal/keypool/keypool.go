package keypool

import (
	"errors"
	"sync/atomic"
)

// ErrNoCredentials is returned when a pool is constructed without any API keys.
var ErrNoCredentials = errors.New("key pool requires at least one credential")

// Pool hands out API keys round-robin so request load and rate-limit exposure
// are spread across all configured keys. The key set is fixed at construction;
// the only mutable state is the rotation cursor, advanced atomically so that
// concurrent callers each observe a distinct rotation step.
type Pool struct {
	keys   []string
	cursor atomic.Uint64
}

// New creates a Pool over the given keys. The slice is copied. An empty key
// set is a fatal configuration problem, not a runtime condition.
func New(keys []string) (*Pool, error) {
	if len(keys) == 0 {
		return nil, ErrNoCredentials
	}
	p := &Pool{keys: make([]string, len(keys))}
	copy(p.keys, keys)
	return p, nil
}

// Next returns the key at the current cursor and advances the rotation.
// Safe for concurrent use; never blocks and performs no I/O.
func (p *Pool) Next() string {
	n := p.cursor.Add(1) - 1
	return p.keys[n%uint64(len(p.keys))]
}

// Size returns the number of configured keys.
func (p *Pool) Size() int {
	return len(p.keys)
}
