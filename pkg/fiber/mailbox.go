package fiber

import (
	"container/list"

	"github.com/picofiber/picofiber/pkg/perr"
)

// Mailbox is an intrusive, no-copy FIFO of caller-owned messages (spec
// §4.8): Send appends a message and never blocks the sender; Receive
// pops the head message or blocks until one arrives.
type Mailbox struct {
	k         *Kernel
	messages  list.List
	waiters   priorityFIFO
	destroyed bool
}

// NewMailbox creates an empty Mailbox.
func (k *Kernel) NewMailbox() *Mailbox {
	return &Mailbox{k: k}
}

// Destroy wakes every waiter with perr.Canceled and marks the mailbox
// unusable.
func (m *Mailbox) Destroy() {
	k := m.k
	k.mu.Lock()
	m.destroyed = true
	k.cancelWaitersLocked(&m.waiters, "mailbox_destroy")
	k.mu.Unlock()
}

// Send appends msg to the tail of the mailbox, handing it directly to
// the head waiter if one is already blocked on Receive. Send never
// blocks (spec §4.8: "no send-wait ever occurs").
func (m *Mailbox) Send(msg interface{}) error {
	k := m.k
	k.mu.Lock()
	defer k.mu.Unlock()
	return m.sendLocked(msg)
}

func (m *Mailbox) sendLocked(msg interface{}) error {
	if m.destroyed {
		return newErr(perr.Canceled, "mailbox_send", "")
	}
	if f := m.waiters.popFront(); f != nil {
		f.payload = msg
		m.k.wakeLocked(f, nil)
		return nil
	}
	m.messages.PushBack(msg)
	return nil
}

// SendISR is the interrupt-context form of Send. cs must already be
// entered by the caller.
func (m *Mailbox) SendISR(msg interface{}, cs *CriticalSection) error {
	_ = cs
	return m.sendLocked(msg)
}

// TimedReceive pops the head message, blocking up to timeout ticks if
// the mailbox is empty.
func (m *Mailbox) TimedReceive(timeout Ticks) (interface{}, error) {
	k := m.k
	k.mu.Lock()
	if m.destroyed {
		k.mu.Unlock()
		return nil, newErr(perr.Canceled, "mailbox_receive", "")
	}
	if e := m.messages.Front(); e != nil {
		m.messages.Remove(e)
		k.mu.Unlock()
		return e.Value, nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return nil, newErr(perr.TimedOut, "mailbox_receive", "")
	}
	k.mu.Unlock()
	return k.blockOnValue(&m.waiters, timeout)
}

// Receive waits indefinitely for a message.
func (m *Mailbox) Receive() (interface{}, error) { return m.TimedReceive(Forever) }

// TryReceive polls once without blocking.
func (m *Mailbox) TryReceive() (interface{}, error) { return m.TimedReceive(0) }
