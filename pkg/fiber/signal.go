package fiber

import "github.com/picofiber/picofiber/pkg/perr"

// TimedWaitSignal waits, with timeout in ticks, for bits raised on the
// calling fiber to satisfy mode against wait (spec §4.8 "Signal"): the
// same bit-pattern contract as Event, but the state lives on the fiber
// itself rather than a separate object, and a fiber may only wait on its
// own signals.
func (k *Kernel) TimedWaitSignal(mode WaitMode, wait uint32, timeout Ticks) (uint32, error) {
	k.mu.Lock()
	f := k.current
	if satisfies(mode, f.sigPending, wait) {
		result := f.sigPending
		f.sigPending &^= wait
		k.mu.Unlock()
		return result, nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return 0, newErr(perr.TimedOut, "signal_wait", f.name)
	}

	f.sigSpec = waitSpec{pattern: wait, mode: mode, clearOnExit: true}
	f.sigWaiting = true
	f.waitReason = waitBlocked
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
	f.sigWaiting = false
	k.mu.Unlock()
	return result, res
}

// WaitSignal waits indefinitely for the calling fiber's own signal bits.
func (k *Kernel) WaitSignal(mode WaitMode, wait uint32) (uint32, error) {
	return k.TimedWaitSignal(mode, wait, Forever)
}

// TryWaitSignal polls the calling fiber's own signal bits once, without
// blocking.
func (k *Kernel) TryWaitSignal(mode WaitMode, wait uint32) (uint32, error) {
	return k.TimedWaitSignal(mode, wait, 0)
}

// RaiseSignal ORs sigs into target's pending bits and wakes it if it is
// currently waiting on a satisfied pattern (spec §4.8: "the raiser
// supplies a target fiber reference").
func (k *Kernel) RaiseSignal(target *Fiber, sigs uint32) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.raiseSignalLocked(target, sigs)
}

func (k *Kernel) raiseSignalLocked(target *Fiber, sigs uint32) error {
	if target.terminated {
		return newErr(perr.Invalid, "signal_raise", target.name)
	}
	target.sigPending |= sigs
	if target.sigWaiting && satisfies(target.sigSpec.mode, target.sigPending, target.sigSpec.pattern) {
		target.resultBits = target.sigPending
		if target.sigSpec.clearOnExit {
			target.sigPending &^= target.sigSpec.pattern
		}
		k.wakeLocked(target, nil)
	}
	return nil
}

// RaiseSignalISR is the interrupt-context form of RaiseSignal. cs must
// already be entered by the caller.
func (k *Kernel) RaiseSignalISR(target *Fiber, sigs uint32, cs *CriticalSection) error {
	_ = cs
	return k.raiseSignalLocked(target, sigs)
}

// SignalBits returns target's current pending bit pattern.
func (k *Kernel) SignalBits(target *Fiber) uint32 {
	k.mu.Lock()
	defer k.mu.Unlock()
	return target.sigPending
}

// SignalBitsISR is the interrupt-context form of SignalBits. cs must
// already be entered by the caller.
func (k *Kernel) SignalBitsISR(target *Fiber, cs *CriticalSection) uint32 {
	_ = cs
	return target.sigPending
}
