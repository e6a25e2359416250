// Package faultinjector provides an optional probabilistic send-drop
// hook for lab testing on a lossy link, usable from either peer since
// Selective Repeat exercises typically inject loss in both directions.
package faultinjector

import (
	"math/rand"
	"sync"
)

// Policy decides, once per sequence number, whether an outbound message
// should be dropped. Once a sequence number has actually been dropped it
// is never dropped again on retransmission — this keeps the link lossy
// but not adversarial, so every session still terminates with
// probability 1.
//
// A single Policy is shared across every concurrent session on the
// server side (one drop-rate/seed pair per process), so ShouldDrop
// guards its state with a mutex; the client side constructs one Policy
// per dial and never shares it, but the lock costs nothing there either.
type Policy struct {
	mu      sync.Mutex
	rate    float64
	rnd     *rand.Rand
	dropped map[uint32]struct{}
}

// New returns a Policy with drop probability rate in [0,1). A rate <= 0
// disables the injector; New still returns a non-nil, inert Policy so
// callers don't need a nil check.
func New(rate float64, seed int64) *Policy {
	return &Policy{rate: rate, rnd: rand.New(rand.NewSource(seed)), dropped: make(map[uint32]struct{})}
}

// ShouldDrop reports whether the datagram for seq should be dropped. Once
// a seq has been dropped, every later retransmission of it always goes
// through; a seq that survives one roll can still be dropped on a later
// attempt, but only ever once in the session's lifetime.
func (p *Policy) ShouldDrop(seq uint32) bool {
	if p == nil || p.rate <= 0 {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, already := p.dropped[seq]; already {
		return false
	}
	if p.rnd.Float64() < p.rate {
		p.dropped[seq] = struct{}{}
		return true
	}
	return false
}
