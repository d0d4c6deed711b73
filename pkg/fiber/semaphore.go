package fiber

import "github.com/picofiber/picofiber/pkg/perr"

// Semaphore is a count-based synchronisation primitive (spec §4.8):
// Take decrements or blocks; Give increments and, if waiters exist,
// immediately decrements again and wakes the head waiter.
type Semaphore struct {
	k         *Kernel
	count     int
	waiters   priorityFIFO
	destroyed bool
}

// NewSemaphore creates a Semaphore with the given initial count.
func (k *Kernel) NewSemaphore(initial int) *Semaphore {
	return &Semaphore{k: k, count: initial}
}

// Destroy wakes every waiter with perr.Canceled and marks the semaphore
// unusable.
func (s *Semaphore) Destroy() {
	k := s.k
	k.mu.Lock()
	s.destroyed = true
	k.cancelWaitersLocked(&s.waiters, "semaphore_destroy")
	k.mu.Unlock()
}

// TimedTake attempts to decrement the semaphore, blocking up to timeout
// ticks if the count is zero. timeout == 0 polls; timeout == Forever
// waits indefinitely.
func (s *Semaphore) TimedTake(timeout Ticks) error {
	k := s.k
	k.mu.Lock()
	if s.destroyed {
		k.mu.Unlock()
		return newErr(perr.Canceled, "semaphore_take", "")
	}
	if s.count > 0 {
		s.count--
		k.mu.Unlock()
		return nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return newErr(perr.TimedOut, "semaphore_take", "")
	}
	k.mu.Unlock()
	return k.blockOn(&s.waiters, timeout)
}

// Take waits indefinitely to decrement the semaphore.
func (s *Semaphore) Take() error { return s.TimedTake(Forever) }

// TryTake polls once without blocking.
func (s *Semaphore) TryTake() error { return s.TimedTake(0) }

// Give increments the semaphore, waking the head waiter (if any) by
// immediately consuming the increment on its behalf (spec §4.8).
func (s *Semaphore) Give() error {
	k := s.k
	k.mu.Lock()
	defer k.mu.Unlock()
	return s.giveLocked()
}

func (s *Semaphore) giveLocked() error {
	if s.destroyed {
		return newErr(perr.Canceled, "semaphore_give", "")
	}
	s.count++
	if f := s.waiters.popFront(); f != nil {
		s.count--
		s.k.wakeLocked(f, nil)
	}
	return nil
}

// GiveISR is the interrupt-context form of Give. cs must already be
// entered by the caller.
func (s *Semaphore) GiveISR(cs *CriticalSection) error {
	_ = cs
	return s.giveLocked()
}
