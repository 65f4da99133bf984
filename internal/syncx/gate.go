package syncx

import "sync/atomic"

// Gate is a mutual-exclusion lock that costs a single atomic add when
// uncontended (a benaphore). Only the second and later concurrent lockers
// touch the semaphore channel.
//
// Gate is not reentrant: a goroutine that locks twice deadlocks.
//
// The zero Gate is not usable; construct with NewGate.
type Gate struct {
	count atomic.Int32
	sem   chan struct{}
}

// NewGate returns an unlocked gate.
func NewGate() *Gate {
	return &Gate{sem: make(chan struct{}, 1)}
}

// Lock acquires the gate, blocking while another holder is inside.
func (g *Gate) Lock() {
	if g.count.Add(1) > 1 {
		<-g.sem
	}
}

// TryLock acquires the gate only if it is free.
func (g *Gate) TryLock() bool {
	return g.count.CompareAndSwap(0, 1)
}

// Unlock releases the gate and hands it to exactly one waiter, if any.
func (g *Gate) Unlock() {
	if g.count.Add(-1) > 0 {
		g.sem <- struct{}{}
	}
}

// Release gives up the holder's slot without waking a waiter. A waiter that
// is already blocked stays blocked until a later Unlock hands off to it.
func (g *Gate) Release() {
	g.count.Add(-1)
}
