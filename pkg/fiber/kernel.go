package fiber

import (
	"container/list"
	"sync"

	"github.com/picofiber/picofiber/pkg/perr"
	"github.com/picofiber/picofiber/pkg/plog"
	"github.com/sirupsen/logrus"
)

const component = "fiber"

func newErr(k perr.Kind, op, name string) error {
	return perr.New(k, component, op).WithPath(name)
}

// IdleHook is called when no fiber is ready to run (spec §4.7 step 3).
// A non-zero return value ends the scheduler loop.
type IdleHook func() int

// Kernel is the scheduler and fiber registry (spec §3/§4.7). The zero
// value is not usable; construct with NewKernel.
type Kernel struct {
	mu sync.Mutex

	ready priorityFIFO
	delay list.List

	fibers map[uint64]*Fiber
	nextID uint64

	tick Ticks

	idleHook IdleHook
	current  *Fiber

	schedCh      chan struct{}
	endRequested bool
	running      bool

	log     *logrus.Entry
	metrics *Metrics
}

// NewKernel returns a Kernel with an empty ready/delay set. log may be
// nil (defaults to a discard entry, per the teacher's optional-injection
// constructor shape); metrics may be nil (instrumentation disabled).
func NewKernel(idleHook IdleHook, log *logrus.Entry, metrics *Metrics) *Kernel {
	if log == nil {
		log = plog.Discard()
	}
	return &Kernel{
		fibers:   make(map[uint64]*Fiber),
		idleHook: idleHook,
		schedCh:  make(chan struct{}),
		log:      log.WithField("subsystem", "kernel"),
		metrics:  metrics,
	}
}

// Critical returns the token *_isr methods require: a handle on the
// kernel's own mutex, standing in for the platform enter/exit-critical
// pair spec §4.7 calls for (spec §5 / SPEC_FULL.md §5 — there is no real
// interrupt controller in a Go process).
func (k *Kernel) Critical() *CriticalSection { return &CriticalSection{k: k} }

// CriticalSection guards shared kernel/primitive state for *_isr entry
// points, the way a disabled-interrupts region would on the original
// target.
type CriticalSection struct{ k *Kernel }

// Enter acquires the critical section.
func (c *CriticalSection) Enter() { c.k.mu.Lock() }

// Exit releases the critical section.
func (c *CriticalSection) Exit() { c.k.mu.Unlock() }

// Create spawns a new fiber at the given priority (0..MaxPriority-1),
// ready to run on the next scheduler pass. The fiber's goroutine is
// started immediately but parks on its own resume channel until the
// scheduler first selects it.
func (k *Kernel) Create(name string, priority int, fn Func) (*Fiber, error) {
	if priority < 0 || priority >= MaxPriority {
		return nil, newErr(perr.Invalid, "create", name)
	}

	k.mu.Lock()
	k.nextID++
	f := &Fiber{
		name:     name,
		priority: priority,
		id:       k.nextID,
		kernel:   k,
		fn:       fn,
		resume:   make(chan struct{}),
	}
	k.fibers[f.id] = f
	k.enqueueReadyLocked(f)
	k.mu.Unlock()

	go k.run(f)

	k.log.WithFields(logrus.Fields{"fiber": name, "priority": priority}).Debug("fiber created")
	return f, nil
}

func (k *Kernel) run(f *Fiber) {
	<-f.resume
	f.fn()

	k.mu.Lock()
	f.terminated = true
	delete(k.fibers, f.id)
	k.mu.Unlock()

	k.log.WithField("fiber", f.name).Debug("fiber terminated")
	k.schedCh <- struct{}{}
}

func (k *Kernel) enqueueReadyLocked(f *Fiber) {
	f.readyElem = k.ready.push(f)
	if k.metrics != nil {
		k.metrics.ready.WithLabelValues(itoa(f.priority)).Set(float64(k.ready.lanes[f.priority].Len()))
	}
}

func (k *Kernel) removeFromReadyLocked(f *Fiber) {
	if f.readyElem == nil {
		return
	}
	k.ready.remove(f, f.readyElem)
	f.readyElem = nil
}

// itoa avoids importing strconv solely for a one-digit priority label.
func itoa(p int) string {
	return string(rune('0' + p))
}

// StartScheduler runs the main loop (spec §4.7) until EndScheduler is
// called or the idle hook returns non-zero, at which point it returns to
// its caller. Fibers are not destroyed on return; their state is frozen
// (spec §4.7 "Cancellation").
func (k *Kernel) StartScheduler() {
	k.mu.Lock()
	k.running = true
	k.mu.Unlock()

	for {
		k.mu.Lock()
		if k.endRequested {
			k.endRequested = false
			k.running = false
			k.mu.Unlock()
			return
		}

		k.tick++
		if k.metrics != nil {
			k.metrics.schedulerTicks.Inc()
		}
		k.drainDelayedLocked()

		f := k.ready.popFront()
		if f == nil {
			k.mu.Unlock()
			if k.idleHook != nil && k.idleHook() != 0 {
				k.mu.Lock()
				k.running = false
				k.mu.Unlock()
				return
			}
			continue
		}
		f.readyElem = nil
		k.current = f
		k.mu.Unlock()

		if k.metrics != nil {
			k.metrics.contextSwitch.Inc()
		}
		f.resume <- struct{}{}
		<-k.schedCh

		k.mu.Lock()
		k.current = nil
		k.mu.Unlock()
	}
}

// EndScheduler requests the main loop exit on its next iteration (spec
// §4.7 "Cancellation"). Safe to call from any fiber or external
// goroutine.
func (k *Kernel) EndScheduler() {
	k.mu.Lock()
	k.endRequested = true
	k.mu.Unlock()
}

func (k *Kernel) drainDelayedLocked() {
	var next *list.Element
	for e := k.delay.Front(); e != nil; e = next {
		next = e.Next()
		f := e.Value.(*Fiber)
		if f.wakeTick > k.tick {
			continue
		}
		k.delay.Remove(e)
		f.delayElem = nil

		switch f.waitReason {
		case waitDelayed:
			f.waitReason = waitNone
		case waitBlocked:
			if f.waiterList != nil && f.waiterElem != nil {
				f.waiterList.remove(f, f.waiterElem)
			}
			f.waiterElem = nil
			f.waiterList = nil
			f.waitReason = waitNone
			f.result = newErr(perr.TimedOut, "wait", f.name)
		}

		if !f.suspended {
			k.enqueueReadyLocked(f)
		}
	}
}

// handoff gives control back to the scheduler and parks the calling
// fiber's goroutine until the scheduler resumes it again.
func (k *Kernel) handoff(f *Fiber) {
	k.schedCh <- struct{}{}
	<-f.resume
}

// Self returns the fiber currently running on the calling goroutine. It
// must only be called from within a fiber's own Func.
func (k *Kernel) Self() *Fiber {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.current
}

// Yield moves the calling fiber to the tail of its priority's ready
// queue (spec §4.7).
func (k *Kernel) Yield() {
	f := k.Self()
	k.mu.Lock()
	k.enqueueReadyLocked(f)
	k.mu.Unlock()
	k.handoff(f)
}

// Delay moves the calling fiber to the delay queue; it becomes ready no
// earlier than now+ticks (spec §4.7), subject to the suspend gate.
func (k *Kernel) Delay(ticks Ticks) {
	f := k.Self()
	k.mu.Lock()
	f.waitReason = waitDelayed
	f.wakeTick = k.tick + ticks
	f.delayElem = k.delay.PushBack(f)
	k.mu.Unlock()
	k.handoff(f)
}

// Suspend moves target to the suspended state (spec §4.7). If target is
// the calling fiber, control is handed back to the scheduler; if target
// is some other fiber currently sitting in a ready queue, it is removed
// from that queue so it cannot be picked. A fiber that is delayed or
// blocked on a primitive when suspended enters the "two-level block"
// spec §3 describes: its wait continues, but clearing the wait alone
// will not make it ready again until Resume also clears the suspend
// gate.
func (k *Kernel) Suspend(target *Fiber) error {
	k.mu.Lock()
	if target.terminated {
		k.mu.Unlock()
		return newErr(perr.Invalid, "suspend", target.name)
	}
	self := target == k.current
	if !target.suspended && target.waitReason == waitNone && !self {
		k.removeFromReadyLocked(target)
	}
	target.suspended = true
	k.mu.Unlock()

	k.log.WithField("fiber", target.name).Debug("fiber suspended")
	if self {
		k.handoff(target)
	}
	return nil
}

// Resume clears target's suspend gate (spec §4.7). Unlike the other
// kernel calls, Resume is not itself a suspension point: it never blocks
// the caller, and it does not appear in spec §4.7's list of calls that
// may cause a context switch — it is the operation that clears one half
// of the two-level block §3 describes, not a wait of its own. If
// target's wait reason has also already cleared, it becomes ready
// immediately; otherwise it remains parked until its delay/block
// condition clears too.
func (k *Kernel) Resume(target *Fiber) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if target.terminated {
		return newErr(perr.Invalid, "resume", target.name)
	}
	if !target.suspended {
		return nil
	}
	target.suspended = false
	if target.waitReason == waitNone && target != k.current {
		k.enqueueReadyLocked(target)
	}
	return nil
}

// blockOn parks the calling fiber on waiters (a primitive's
// priority-ordered waiter list) until woken by wake, timed out, or
// canceled by destruction. timeout == Forever disables the timer.
func (k *Kernel) blockOn(waiters *priorityFIFO, timeout Ticks) error {
	f := k.Self()
	k.mu.Lock()
	f.waitReason = waitBlocked
	f.waiterList = waiters
	f.waiterElem = waiters.push(f)
	if timeout != Forever {
		f.wakeTick = k.tick + timeout
		f.delayElem = k.delay.PushBack(f)
		if k.metrics != nil {
			k.metrics.timedWait.Observe(float64(timeout))
		}
	}
	k.mu.Unlock()

	k.handoff(f)

	k.mu.Lock()
	res := f.result
	f.result = nil
	k.mu.Unlock()
	return res
}

// blockOnValue is blockOn's counterpart for primitives whose wake also
// hands the waiter a value (a pool block, a mailbox message, a received
// item): the waker stores it on f.payload before calling wakeLocked.
func (k *Kernel) blockOnValue(waiters *priorityFIFO, timeout Ticks) (interface{}, error) {
	f := k.Self()
	k.mu.Lock()
	f.waitReason = waitBlocked
	f.waiterList = waiters
	f.waiterElem = waiters.push(f)
	if timeout != Forever {
		f.wakeTick = k.tick + timeout
		f.delayElem = k.delay.PushBack(f)
		if k.metrics != nil {
			k.metrics.timedWait.Observe(float64(timeout))
		}
	}
	k.mu.Unlock()

	k.handoff(f)

	k.mu.Lock()
	res := f.result
	val := f.payload
	f.result = nil
	f.payload = nil
	k.mu.Unlock()
	return val, res
}

// wakeLocked clears f's wait (removing any pending timeout) and makes it
// ready, subject to the suspend gate. Must be called with k.mu held.
func (k *Kernel) wakeLocked(f *Fiber, result error) {
	if f.delayElem != nil {
		k.delay.Remove(f.delayElem)
		f.delayElem = nil
	}
	f.waiterElem = nil
	f.waiterList = nil
	f.waitReason = waitNone
	f.result = result
	if !f.suspended {
		k.enqueueReadyLocked(f)
	}
}

// cancelWaitersLocked wakes every fiber on waiters with perr.Canceled (spec
// §4.8: "if the primitive is destroyed while waiting, returns canceled
// and the waiter is detached before destroy returns"). Must be called
// with k.mu held.
func (k *Kernel) cancelWaitersLocked(waiters *priorityFIFO, op string) {
	waiters.drainAll(func(f *Fiber) {
		k.wakeLocked(f, newErr(perr.Canceled, op, f.name))
	})
}
