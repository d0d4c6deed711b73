package fiber

import "github.com/picofiber/picofiber/pkg/perr"

// Queue is a fixed-length ring buffer of fixed-size items (spec §4.8).
// Items are copied in and out; SendFront lets a sender jump the queue
// (e.g. to return a high-priority item), which the variable-size
// Channel deliberately does not support.
type Queue struct {
	k         *Kernel
	itemSize  int
	buf       [][]byte
	head      int
	count     int
	sendWait  priorityFIFO
	recvWait  priorityFIFO
	destroyed bool
}

// NewQueue creates a Queue holding up to itemLen items of itemSize
// bytes each.
func (k *Kernel) NewQueue(itemLen, itemSize int) *Queue {
	return &Queue{k: k, itemSize: itemSize, buf: make([][]byte, itemLen)}
}

// Destroy wakes every sender and receiver with perr.Canceled and marks
// the queue unusable.
func (q *Queue) Destroy() {
	k := q.k
	k.mu.Lock()
	q.destroyed = true
	k.cancelWaitersLocked(&q.sendWait, "queue_destroy")
	k.cancelWaitersLocked(&q.recvWait, "queue_destroy")
	k.mu.Unlock()
}

func (q *Queue) copyItem(item []byte) []byte {
	cp := make([]byte, q.itemSize)
	copy(cp, item)
	return cp
}

func (q *Queue) tailIndex() int {
	return (q.head + q.count) % len(q.buf)
}

// pushBackLocked inserts at the tail, or hands the item directly to a
// waiting receiver. Reports whether the item was accepted.
func (q *Queue) pushBackLocked(item []byte) bool {
	if f := q.recvWait.popFront(); f != nil {
		f.payload = item
		q.k.wakeLocked(f, nil)
		return true
	}
	if q.count == len(q.buf) {
		return false
	}
	q.buf[q.tailIndex()] = item
	q.count++
	return true
}

// pushFrontLocked inserts at the head, or hands the item directly to a
// waiting receiver. Reports whether the item was accepted.
func (q *Queue) pushFrontLocked(item []byte) bool {
	if f := q.recvWait.popFront(); f != nil {
		f.payload = item
		q.k.wakeLocked(f, nil)
		return true
	}
	if q.count == len(q.buf) {
		return false
	}
	q.head = (q.head - 1 + len(q.buf)) % len(q.buf)
	q.buf[q.head] = item
	q.count++
	return true
}

// pendingSend is what a fiber blocked in timedSend stashes on its own
// payload so popFrontLocked can finish the send on its behalf once a
// slot frees up.
type pendingSend struct {
	item  []byte
	front bool
}

func (q *Queue) popFrontLocked() ([]byte, bool) {
	if q.count == 0 {
		return nil, false
	}
	item := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.count--
	if f := q.sendWait.popFront(); f != nil {
		pending := f.payload.(pendingSend)
		if pending.front {
			q.pushFrontLocked(pending.item)
		} else {
			q.pushBackLocked(pending.item)
		}
		q.k.wakeLocked(f, nil)
	}
	return item, true
}

// timedSend blocks the calling fiber directly (rather than via blockOn)
// because a blocked sender must stash its own pending item on its
// payload for popFrontLocked to consume when a slot frees up.
func (q *Queue) timedSend(item []byte, timeout Ticks, front bool) error {
	k := q.k
	cp := q.copyItem(item)

	k.mu.Lock()
	if q.destroyed {
		k.mu.Unlock()
		return newErr(perr.Canceled, "queue_send", "")
	}
	var ok bool
	if front {
		ok = q.pushFrontLocked(cp)
	} else {
		ok = q.pushBackLocked(cp)
	}
	if ok {
		k.mu.Unlock()
		return nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return newErr(perr.TimedOut, "queue_send", "")
	}

	f := k.current
	f.payload = pendingSend{item: cp, front: front}
	f.waitReason = waitBlocked
	f.waiterList = &q.sendWait
	f.waiterElem = q.sendWait.push(f)
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

// TimedSendBack appends item at the tail, blocking up to timeout ticks
// if the queue is full.
func (q *Queue) TimedSendBack(item []byte, timeout Ticks) error {
	return q.timedSend(item, timeout, false)
}

// SendBack waits indefinitely to append item.
func (q *Queue) SendBack(item []byte) error { return q.TimedSendBack(item, Forever) }

// TrySendBack polls once without blocking.
func (q *Queue) TrySendBack(item []byte) error { return q.TimedSendBack(item, 0) }

// TimedSendFront inserts item at the head, blocking up to timeout
// ticks if the queue is full.
func (q *Queue) TimedSendFront(item []byte, timeout Ticks) error {
	return q.timedSend(item, timeout, true)
}

// SendFront waits indefinitely to insert item at the head.
func (q *Queue) SendFront(item []byte) error { return q.TimedSendFront(item, Forever) }

// TrySendFront polls once without blocking.
func (q *Queue) TrySendFront(item []byte) error { return q.TimedSendFront(item, 0) }

func (q *Queue) sendISR(item []byte, cs *CriticalSection, front bool) error {
	_ = cs
	if q.destroyed {
		return newErr(perr.Canceled, "queue_send", "")
	}
	cp := q.copyItem(item)
	var ok bool
	if front {
		ok = q.pushFrontLocked(cp)
	} else {
		ok = q.pushBackLocked(cp)
	}
	if !ok {
		return newErr(perr.Many, "queue_send", "")
	}
	return nil
}

// SendBackISR is the interrupt-context form of SendBack.
func (q *Queue) SendBackISR(item []byte, cs *CriticalSection) error {
	return q.sendISR(item, cs, false)
}

// SendFrontISR is the interrupt-context form of SendFront.
func (q *Queue) SendFrontISR(item []byte, cs *CriticalSection) error {
	return q.sendISR(item, cs, true)
}

// TimedReceive pops the head item, blocking up to timeout ticks if the
// queue is empty.
func (q *Queue) TimedReceive(timeout Ticks) ([]byte, error) {
	k := q.k
	k.mu.Lock()
	if q.destroyed {
		k.mu.Unlock()
		return nil, newErr(perr.Canceled, "queue_receive", "")
	}
	if item, ok := q.popFrontLocked(); ok {
		k.mu.Unlock()
		return item, nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return nil, newErr(perr.TimedOut, "queue_receive", "")
	}
	k.mu.Unlock()

	val, err := k.blockOnValue(&q.recvWait, timeout)
	if err != nil {
		return nil, err
	}
	return val.([]byte), nil
}

// Receive waits indefinitely for an item.
func (q *Queue) Receive() ([]byte, error) { return q.TimedReceive(Forever) }

// TryReceive polls once without blocking.
func (q *Queue) TryReceive() ([]byte, error) { return q.TimedReceive(0) }

// ReceiveISR is the interrupt-context form of Receive; it never blocks,
// returning perr.Again if the queue is empty.
func (q *Queue) ReceiveISR(cs *CriticalSection) ([]byte, error) {
	_ = cs
	if q.destroyed {
		return nil, newErr(perr.Canceled, "queue_receive", "")
	}
	item, ok := q.popFrontLocked()
	if !ok {
		return nil, newErr(perr.Again, "queue_receive", "")
	}
	return item, nil
}
