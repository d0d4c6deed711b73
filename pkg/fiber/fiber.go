// Package fiber implements the cooperative, single-threaded fiber
// kernel (spec §4.7, component C8) and its eight synchronisation
// primitives (spec §4.8, component C9): event, signal, semaphore,
// mutex, pool, mailbox, queue, and channel.
//
// The context-switch mechanism is one goroutine per fiber, hand-off
// scheduled over unbuffered channels (spec §9's "mechanism is
// implementation-chosen"; the choice is recorded in SPEC_FULL.md §4.9):
// every fiber goroutine blocks on its own resume channel and only
// proceeds when the scheduler sends on it, and the scheduler blocks on
// a single channel waiting for the running fiber to give control back.
// At most one fiber goroutine is ever unblocked at a time, so the
// single-threaded, no-parallelism contract of spec §5 holds even though
// real goroutines are involved.
package fiber

import (
	"container/list"
)

// MaxPriority is the number of distinct priority levels (spec §3: "0..7
// ready queues").
const MaxPriority = 8

// Ticks is the kernel's timekeeping unit (spec §5: "a tick is a
// kernel-defined unit, millisecond-scale"); the kernel itself never
// interprets ticks against wall-clock time, only against its own
// monotonically advancing counter.
type Ticks int64

// Forever disables a wait's timeout.
const Forever Ticks = -1

// State is the externally-observable run state of a Fiber (spec §3).
// Suspension is tracked as an orthogonal flag (see Fiber.Suspended), not
// as a member of this enum, because a fiber can be simultaneously
// delayed (or blocked) and suspended — the "two-level block" spec §3
// describes.
type State int

const (
	StateReady State = iota
	StateRunning
	StateDelayed
	StateBlocked
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateRunning:
		return "running"
	case StateDelayed:
		return "delayed"
	case StateBlocked:
		return "blocked"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// waitReason is the internal bookkeeping of why a fiber is parked,
// distinct from State only in that it never includes "suspended" (see
// package doc).
type waitReason int

const (
	waitNone waitReason = iota
	waitDelayed
	waitBlocked
)

// Func is a fiber's entry point. Unlike the source's XFiberFunc, the
// argument is passed as an ordinary Go closure capture rather than a
// void* — idiomatic here, equivalent in effect.
type Func func()

// Fiber is a cooperatively scheduled execution context with its own
// goroutine stack (spec §3). Fibers are created only via Kernel.Create;
// the zero value is not usable.
type Fiber struct {
	name     string
	priority int
	id       uint64
	kernel   *Kernel
	fn       Func

	resume chan struct{}

	waitReason waitReason
	suspended  bool
	terminated bool

	wakeTick Ticks

	readyElem  *list.Element
	delayElem  *list.Element
	waiterElem *list.Element
	waiterList *priorityFIFO

	result error

	// eventSpec holds the (pattern, mode, clearOnExit) of the Event wait
	// this fiber is currently parked on, so Event.Set can evaluate every
	// waiter without a separate side table.
	eventSpec waitSpec

	// Signal state: spec §4.8 "lives on the fiber itself, not a separate
	// object". sigSpec mirrors eventSpec's role for a fiber's own signal
	// wait; sigPending is the fiber's accumulated raised bits.
	sigPending uint32
	sigWaiting bool
	sigSpec    waitSpec

	// resultBits carries the satisfied bit-pattern back from an Event or
	// Signal wake, alongside the ordinary result error.
	resultBits uint32

	// payload carries a primitive-specific value back from whoever woke
	// this fiber (a pool block, a mailbox message, a received queue/
	// channel item) — set by the waker before calling wakeLocked, read
	// by the blocked call immediately after handoff returns.
	payload interface{}
}

type waitSpec struct {
	pattern     uint32
	mode        WaitMode
	clearOnExit bool
}

// Name returns the fiber's diagnostic name.
func (f *Fiber) Name() string { return f.name }

// Priority returns the fiber's fixed scheduling priority.
func (f *Fiber) Priority() int { return f.priority }

// Suspended reports whether the fiber's suspend gate is currently set
// (spec §3's "two-level block" flag, independent of State).
func (f *Fiber) Suspended() bool {
	f.kernel.mu.Lock()
	defer f.kernel.mu.Unlock()
	return f.suspended
}

// State reports the fiber's primary run state.
func (f *Fiber) State() State {
	f.kernel.mu.Lock()
	defer f.kernel.mu.Unlock()
	return f.stateLocked()
}

func (f *Fiber) stateLocked() State {
	switch {
	case f.terminated:
		return StateTerminated
	case f.kernel.current == f:
		return StateRunning
	case f.waitReason == waitDelayed:
		return StateDelayed
	case f.waitReason == waitBlocked:
		return StateBlocked
	default:
		return StateReady
	}
}
