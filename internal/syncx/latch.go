package syncx

import "context"

// Latch is a countdown barrier. Waiters block until the count reaches zero;
// all of them are released together, exactly once per round. Arrivals past
// zero clamp and do not release again until Reset arms a new round. Reset
// never releases anyone.
type Latch struct {
	gate    *Gate
	initial int
	count   int
	done    chan struct{}
}

// NewLatch returns a latch armed with count n. A latch created with n <= 0
// is already released.
func NewLatch(n int) *Latch {
	l := &Latch{gate: NewGate(), initial: n}
	l.arm()
	return l
}

func (l *Latch) arm() {
	l.count = l.initial
	l.done = make(chan struct{})
	if l.count <= 0 {
		l.count = 0
		close(l.done)
	}
}

// Arrive decrements the count by n and releases every waiter when it reaches
// zero. It reports whether this call performed the release.
func (l *Latch) Arrive(n int) bool {
	l.gate.Lock()
	defer l.gate.Unlock()

	if l.count == 0 {
		return false
	}
	l.count -= n
	if l.count > 0 {
		return false
	}
	l.count = 0
	close(l.done)
	return true
}

// Wait blocks until the current round is released.
func (l *Latch) Wait() {
	<-l.Done()
}

// WaitContext blocks until the current round is released or ctx is done.
func (l *Latch) WaitContext(ctx context.Context) error {
	select {
	case <-l.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed when the current round is released.
func (l *Latch) Done() <-chan struct{} {
	l.gate.Lock()
	defer l.gate.Unlock()
	return l.done
}

// Reset arms a new round with the initial count. Goroutines still waiting on
// an unreleased round stay blocked and are released with the new round.
func (l *Latch) Reset() {
	l.gate.Lock()
	defer l.gate.Unlock()

	if l.count > 0 {
		l.count = l.initial
		return
	}
	l.arm()
}

// Remaining returns the outstanding count.
func (l *Latch) Remaining() int {
	l.gate.Lock()
	defer l.gate.Unlock()
	return l.count
}
