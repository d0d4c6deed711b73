package fiber

import "github.com/picofiber/picofiber/pkg/perr"

// Mutex behaves like a Semaphore with initial count 1, but remembers
// its holder so Unlock can reject a non-holder with perr.Protocol (spec
// §4.8). Priority inheritance is documented upstream as "planned but
// not implemented" (spec §9 open question); this implementation makes
// the same choice and does not reorder a blocked-on holder's priority.
type Mutex struct {
	k         *Kernel
	holder    *Fiber
	waiters   priorityFIFO
	destroyed bool
}

// NewMutex creates an unlocked Mutex.
func (k *Kernel) NewMutex() *Mutex {
	return &Mutex{k: k}
}

// Destroy wakes every waiter with perr.Canceled and marks the mutex
// unusable.
func (m *Mutex) Destroy() {
	k := m.k
	k.mu.Lock()
	m.destroyed = true
	k.cancelWaitersLocked(&m.waiters, "mutex_destroy")
	k.mu.Unlock()
}

// TimedLock attempts to acquire the mutex, blocking up to timeout ticks
// if already held. timeout == 0 polls; timeout == Forever waits
// indefinitely.
func (m *Mutex) TimedLock(timeout Ticks) error {
	k := m.k
	k.mu.Lock()
	if m.destroyed {
		k.mu.Unlock()
		return newErr(perr.Canceled, "mutex_lock", "")
	}
	if m.holder == nil {
		m.holder = k.current
		k.mu.Unlock()
		return nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return newErr(perr.TimedOut, "mutex_lock", "")
	}
	k.mu.Unlock()

	if err := k.blockOn(&m.waiters, timeout); err != nil {
		return err
	}
	// Woken by Unlock, which already assigned m.holder to us.
	return nil
}

// Lock waits indefinitely to acquire the mutex.
func (m *Mutex) Lock() error { return m.TimedLock(Forever) }

// TryLock polls once without blocking.
func (m *Mutex) TryLock() error { return m.TimedLock(0) }

// Unlock releases the mutex. Called by any fiber other than the current
// holder, it returns perr.Protocol without changing any state (spec
// §4.8/§7: "unlock from a non-holder returns protocol").
func (m *Mutex) Unlock() error {
	k := m.k
	k.mu.Lock()
	defer k.mu.Unlock()
	return m.unlockLocked(k.current)
}

func (m *Mutex) unlockLocked(caller *Fiber) error {
	k := m.k
	if m.destroyed {
		return newErr(perr.Canceled, "mutex_unlock", "")
	}
	if m.holder != caller {
		return newErr(perr.Protocol, "mutex_unlock", "")
	}
	if f := m.waiters.popFront(); f != nil {
		m.holder = f
		k.wakeLocked(f, nil)
		return nil
	}
	m.holder = nil
	return nil
}

// UnlockISR is the interrupt-context form of Unlock; caller identifies
// the releasing fiber explicitly since there is no "current fiber" in
// interrupt context. cs must already be entered by the caller.
func (m *Mutex) UnlockISR(holder *Fiber, cs *CriticalSection) error {
	_ = cs
	return m.unlockLocked(holder)
}
