package syncx

// TierLock is a two-priority lock over one resource.
//
// The high tier (the simulation goroutine) takes the resource directly. The
// low tier (participants) must first pass the admission gate, so the high
// tier can shut out new low-tier entrants with CloseLow before it contends for
// the resource. That ordering keeps a steady stream of low-tier lockers from
// starving the high tier.
//
// Typical high-tier cycle:
//
//	tl.CloseLow()
//	tl.LockHigh()
//	// mutate, commit
//	tl.UnlockHigh()
//	tl.OpenLow()
type TierLock struct {
	resource  *Gate
	admission *Gate
}

// NewTierLock returns an unlocked tier lock.
func NewTierLock() *TierLock {
	return &TierLock{resource: NewGate(), admission: NewGate()}
}

// LockHigh acquires the resource for the high tier.
func (t *TierLock) LockHigh() { t.resource.Lock() }

// UnlockHigh releases the resource held by the high tier.
func (t *TierLock) UnlockHigh() { t.resource.Unlock() }

// LockLow passes admission and then acquires the resource. Admission is held
// only while waiting for the resource.
func (t *TierLock) LockLow() {
	t.admission.Lock()
	t.resource.Lock()
	t.admission.Unlock()
}

// UnlockLow releases the resource held by a low-tier caller.
func (t *TierLock) UnlockLow() { t.resource.Unlock() }

// CloseLow blocks new low-tier callers at admission. A low-tier caller
// already waiting on the resource keeps its place.
func (t *TierLock) CloseLow() { t.admission.Lock() }

// OpenLow readmits low-tier callers.
func (t *TierLock) OpenLow() { t.admission.Unlock() }
