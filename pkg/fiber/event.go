package fiber

import "github.com/picofiber/picofiber/pkg/perr"

// WaitMode selects how an Event or Signal wait is satisfied against its
// pattern (spec §4.8 / source's fiber_event_mode).
type WaitMode int

const (
	// WaitOr succeeds as soon as any requested bit is set.
	WaitOr WaitMode = iota
	// WaitAnd succeeds only once every requested bit is set.
	WaitAnd
)

// Event is a bit-pattern synchronisation object (spec §4.8 "Event"):
// any number of fibers may wait, in OR or AND mode, for a subset of its
// current bits, optionally clearing the satisfied bits on a successful
// wake.
type Event struct {
	k         *Kernel
	current   uint32
	waiters   priorityFIFO
	destroyed bool
}

// NewEvent creates an Event with its bit-pattern initialised to zero.
func (k *Kernel) NewEvent() *Event {
	return &Event{k: k}
}

// Destroy wakes every waiter with perr.Canceled (spec §4.8's common
// destroy-while-waiting contract) and marks the event unusable.
func (e *Event) Destroy() {
	k := e.k
	k.mu.Lock()
	e.destroyed = true
	k.cancelWaitersLocked(&e.waiters, "event_destroy")
	k.mu.Unlock()
}

func satisfies(mode WaitMode, current, pattern uint32) bool {
	if mode == WaitAnd {
		return current&pattern == pattern
	}
	return current&pattern != 0
}

// TimedWait waits, with timeout in ticks, for the event's current
// pattern to satisfy mode against wait. On success it returns the
// current pattern at the moment of success (spec: "producing current");
// if clearOnExit is set, the bits of wait are then cleared from current,
// after the returned value was taken. timeout == 0 polls; timeout == Forever waits
// indefinitely.
func (e *Event) TimedWait(mode WaitMode, wait uint32, clearOnExit bool, timeout Ticks) (uint32, error) {
	k := e.k
	k.mu.Lock()
	if e.destroyed {
		k.mu.Unlock()
		return 0, newErr(perr.Canceled, "event_wait", "")
	}
	if satisfies(mode, e.current, wait) {
		result := e.current
		if clearOnExit {
			e.current &^= wait
		}
		k.mu.Unlock()
		return result, nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return 0, newErr(perr.TimedOut, "event_wait", "")
	}

	f := k.current
	f.eventSpec = waitSpec{pattern: wait, mode: mode, clearOnExit: clearOnExit}
	f.waitReason = waitBlocked
	f.waiterList = &e.waiters
	f.waiterElem = e.waiters.push(f)
	if timeout != Forever {
		f.wakeTick = k.tick + timeout
		f.delayElem = k.delay.PushBack(f)
	}
	k.mu.Unlock()

	k.handoff(f)

	k.mu.Lock()
	res := f.result
	var result uint32
	if res == nil {
		result = f.resultBits
	}
	f.result = nil
	k.mu.Unlock()
	return result, res
}

// Wait waits indefinitely (spec: equivalent to TimedWait with Forever).
func (e *Event) Wait(mode WaitMode, wait uint32) (uint32, error) {
	return e.TimedWait(mode, wait, false, Forever)
}

// TryWait polls once without blocking (spec: equivalent to TimedWait
// with timeout 0).
func (e *Event) TryWait(mode WaitMode, wait uint32) (uint32, error) {
	return e.TimedWait(mode, wait, false, 0)
}

// Set ORs pattern into the event's current bits, then tries to satisfy
// every waiter in FIFO-within-priority order (spec §4.8).
func (e *Event) Set(pattern uint32) error {
	k := e.k
	k.mu.Lock()
	defer k.mu.Unlock()
	return e.setLocked(pattern)
}

func (e *Event) setLocked(pattern uint32) error {
	k := e.k
	if e.destroyed {
		return newErr(perr.Canceled, "event_set", "")
	}
	e.current |= pattern

	e.waiters.forEachMatching(func(f *Fiber) bool {
		if !satisfies(f.eventSpec.mode, e.current, f.eventSpec.pattern) {
			return false
		}
		f.resultBits = e.current
		if f.eventSpec.clearOnExit {
			e.current &^= f.eventSpec.pattern
		}
		k.wakeLocked(f, nil)
		return true
	})
	return nil
}

// SetISR is the interrupt-context form of Set (spec §4.8): it must not
// block and never triggers a context switch itself; woken fibers are
// merely marked ready for the scheduler's next pass. cs must already be
// entered by the caller.
func (e *Event) SetISR(pattern uint32, cs *CriticalSection) error {
	_ = cs
	return e.setLocked(pattern)
}

// Clear ANDs the complement of pattern into current and returns the
// pre-clear value (spec §4.8).
func (e *Event) Clear(pattern uint32) uint32 {
	k := e.k
	k.mu.Lock()
	defer k.mu.Unlock()
	return e.clearLocked(pattern)
}

func (e *Event) clearLocked(pattern uint32) uint32 {
	prev := e.current
	e.current &^= pattern
	return prev
}

// ClearISR is the interrupt-context form of Clear. cs must already be
// entered by the caller.
func (e *Event) ClearISR(pattern uint32, cs *CriticalSection) uint32 {
	_ = cs
	return e.clearLocked(pattern)
}

// Get returns the event's current bit pattern.
func (e *Event) Get() uint32 {
	k := e.k
	k.mu.Lock()
	defer k.mu.Unlock()
	return e.current
}

// GetISR is the interrupt-context form of Get. cs must already be
// entered by the caller.
func (e *Event) GetISR(cs *CriticalSection) uint32 {
	_ = cs
	return e.current
}
