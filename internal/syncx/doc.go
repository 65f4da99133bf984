// Package syncx provides the lightweight synchronization primitives the
// simulation is built on: Gate (a benaphore), Latch (a countdown barrier),
// TierLock (a two-priority lock) and WorkQueue (a gate-guarded FIFO).
package syncx

import "errors"

// ErrClosed is returned by WorkQueue.Pop once the queue is closed and empty.
var ErrClosed = errors.New("syncx: queue closed")
