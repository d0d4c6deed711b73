package fiber

import "github.com/picofiber/picofiber/pkg/perr"

// Channel is a ring buffer of variable-size, size-prefixed items (spec
// §4.8): unlike Queue, items are only ever appended at the tail and
// consumed from the head — there is no SendFront. capacity bounds the
// total payload bytes the ring may hold at once (no per-item length
// prefix is counted); maxItemSize bounds a single item.
type Channel struct {
	k           *Kernel
	capacity    int
	maxItemSize int
	items       [][]byte
	used        int
	sendWait    priorityFIFO
	recvWait    priorityFIFO
	destroyed   bool
}

// NewChannel creates a Channel with the given total byte capacity and
// per-item size ceiling.
func (k *Kernel) NewChannel(capacity, maxItemSize int) *Channel {
	return &Channel{k: k, capacity: capacity, maxItemSize: maxItemSize}
}

// Destroy wakes every sender and receiver with perr.Canceled and marks
// the channel unusable.
func (c *Channel) Destroy() {
	k := c.k
	k.mu.Lock()
	c.destroyed = true
	k.cancelWaitersLocked(&c.sendWait, "channel_destroy")
	k.cancelWaitersLocked(&c.recvWait, "channel_destroy")
	k.mu.Unlock()
}

func (c *Channel) fits(n int) bool { return c.used+n <= c.capacity }

// enqueueLocked appends item, or hands it directly to a waiting
// receiver. Reports whether it was accepted.
func (c *Channel) enqueueLocked(item []byte) bool {
	if f := c.recvWait.popFront(); f != nil {
		f.payload = item
		c.k.wakeLocked(f, nil)
		return true
	}
	if !c.fits(len(item)) {
		return false
	}
	c.items = append(c.items, item)
	c.used += len(item)
	return true
}

func (c *Channel) dequeueLocked() ([]byte, bool) {
	if len(c.items) == 0 {
		return nil, false
	}
	item := c.items[0]
	c.items = c.items[1:]
	c.used -= len(item)

	if f := c.sendWait.popFront(); f != nil {
		pending := f.payload.([]byte)
		if c.fits(len(pending)) {
			c.items = append(c.items, pending)
			c.used += len(pending)
			c.k.wakeLocked(f, nil)
		} else {
			// Still doesn't fit (a larger item is queued behind a
			// smaller one that just made room); leave it parked.
			f.waiterElem = c.sendWait.push(f)
		}
	}
	return item, true
}

// send appends item to the channel, blocking up to timeout ticks if it
// would not fit; it is the shared body of the public send entry points.
func (c *Channel) send(item []byte, timeout Ticks) error {
	k := c.k
	if len(item) > c.maxItemSize {
		return newErr(perr.Range, "channel_send", "")
	}
	cp := make([]byte, len(item))
	copy(cp, item)

	k.mu.Lock()
	if c.destroyed {
		k.mu.Unlock()
		return newErr(perr.Canceled, "channel_send", "")
	}
	if c.enqueueLocked(cp) {
		k.mu.Unlock()
		return nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return newErr(perr.TimedOut, "channel_send", "")
	}

	f := k.current
	f.payload = cp
	f.waitReason = waitBlocked
	f.waiterList = &c.sendWait
	f.waiterElem = c.sendWait.push(f)
	if timeout != Forever {
		f.wakeTick = k.tick + timeout
		f.delayElem = k.delay.PushBack(f)
	}
	k.mu.Unlock()

	k.handoff(f)

	k.mu.Lock()
	res := f.result
	f.payload = nil
	f.result = nil
	k.mu.Unlock()
	return res
}

// TimedSend appends item, blocking up to timeout ticks if it does not
// currently fit.
func (c *Channel) TimedSend(item []byte, timeout Ticks) error { return c.send(item, timeout) }

// Send waits indefinitely to append item.
func (c *Channel) Send(item []byte) error { return c.send(item, Forever) }

// TrySend polls once without blocking.
func (c *Channel) TrySend(item []byte) error { return c.send(item, 0) }

// SendISR is the interrupt-context form of Send; it never blocks,
// returning perr.NoSpace if item does not currently fit. cs must
// already be entered by the caller.
func (c *Channel) SendISR(item []byte, cs *CriticalSection) error {
	_ = cs
	if c.destroyed {
		return newErr(perr.Canceled, "channel_send", "")
	}
	if len(item) > c.maxItemSize {
		return newErr(perr.Range, "channel_send", "")
	}
	cp := make([]byte, len(item))
	copy(cp, item)
	if !c.enqueueLocked(cp) {
		return newErr(perr.NoSpace, "channel_send", "")
	}
	return nil
}

// TimedReceive pops the head item, blocking up to timeout ticks if the
// channel is empty.
func (c *Channel) TimedReceive(timeout Ticks) ([]byte, error) {
	k := c.k
	k.mu.Lock()
	if c.destroyed {
		k.mu.Unlock()
		return nil, newErr(perr.Canceled, "channel_receive", "")
	}
	if item, ok := c.dequeueLocked(); ok {
		k.mu.Unlock()
		return item, nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return nil, newErr(perr.TimedOut, "channel_receive", "")
	}
	k.mu.Unlock()

	val, err := k.blockOnValue(&c.recvWait, timeout)
	if err != nil {
		return nil, err
	}
	return val.([]byte), nil
}

// Receive waits indefinitely for an item.
func (c *Channel) Receive() ([]byte, error) { return c.TimedReceive(Forever) }

// TryReceive polls once without blocking.
func (c *Channel) TryReceive() ([]byte, error) { return c.TimedReceive(0) }

// ReceiveISR is the interrupt-context form of Receive; it never
// blocks, returning perr.Again if the channel is empty.
func (c *Channel) ReceiveISR(cs *CriticalSection) ([]byte, error) {
	_ = cs
	if c.destroyed {
		return nil, newErr(perr.Canceled, "channel_receive", "")
	}
	item, ok := c.dequeueLocked()
	if !ok {
		return nil, newErr(perr.Again, "channel_receive", "")
	}
	return item, nil
}
