package keypool

import (
	"sync"

	"github.com/TylerAdamMartinez/JWKS-server/pkg/errors"
	"github.com/TylerAdamMartinez/JWKS-server/pkg/keypair"
)

// Pool is the operational collection of key pairs. Members are immutable, so
// the pool is a single-writer many-reader structure: readers get a snapshot
// of the membership slice, and only the administrative create path appends.
// Iteration order is stable insertion order.
type Pool struct {
	mu   sync.RWMutex
	keys []*keypair.KeyPair
}

// NewPool creates a pool over the given key pairs
func NewPool(keys []*keypair.KeyPair) *Pool {
	return &Pool{
		keys: append([]*keypair.KeyPair(nil), keys...),
	}
}

// Keys returns a snapshot of the pool membership in insertion order
func (p *Pool) Keys() []*keypair.KeyPair {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return append([]*keypair.KeyPair(nil), p.keys...)
}

// Len returns the number of pool members
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return len(p.keys)
}

// Append adds a key pair to the pool
func (p *Pool) Append(kp *keypair.KeyPair) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.keys = append(p.keys, kp)
}

// Replace swaps the entire membership for a freshly loaded snapshot
func (p *Pool) Replace(keys []*keypair.KeyPair) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.keys = append([]*keypair.KeyPair(nil), keys...)
}

// SelectForIssue returns the first pool member (by insertion order) whose
// expiry state at the given instant matches wantExpired
func (p *Pool) SelectForIssue(wantExpired bool, now int64) (*keypair.KeyPair, error) {
	return SelectForIssue(p.Keys(), wantExpired, now)
}

// SelectForIssue returns the first key pair in the slice whose expiry state at
// the given instant matches wantExpired. This lets a caller deterministically
// request a token signed by a valid key or by a deliberately expired one,
// without manipulating the wall clock.
func SelectForIssue(keys []*keypair.KeyPair, wantExpired bool, now int64) (*keypair.KeyPair, error) {
	for _, kp := range keys {
		if kp.IsExpiredAt(now) == wantExpired {
			return kp, nil
		}
	}
	return nil, errors.Newf(errors.ErrCodeNoMatchingKey, "no key pair in pool with expired=%t", wantExpired)
}
