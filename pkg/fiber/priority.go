package fiber

import "container/list"

// priorityFIFO is a set of per-priority FIFO lanes: the shape shared by
// the scheduler's ready queue and by every synchronisation primitive's
// waiter list (spec §3/§4.8: "waiters are served in FIFO-within-priority
// order"). Grounded on the teacher's internal/cache.LRUCache use of
// container/list for O(1) detach, generalised here to one list per
// priority level instead of one list total.
type priorityFIFO struct {
	lanes [MaxPriority]list.List
	n     int
}

// push appends f to the tail of its priority's lane and returns the
// element, which the caller must keep to support O(1) removal later.
func (q *priorityFIFO) push(f *Fiber) *list.Element {
	e := q.lanes[f.priority].PushBack(f)
	q.n++
	return e
}

// remove detaches f (previously returned by push) from its lane.
func (q *priorityFIFO) remove(f *Fiber, e *list.Element) {
	if e == nil {
		return
	}
	q.lanes[f.priority].Remove(e)
	q.n--
}

// popFront removes and returns the fiber at the head of the
// highest-priority non-empty lane, or nil if every lane is empty.
func (q *priorityFIFO) popFront() *Fiber {
	for p := 0; p < MaxPriority; p++ {
		if e := q.lanes[p].Front(); e != nil {
			q.lanes[p].Remove(e)
			q.n--
			return e.Value.(*Fiber)
		}
	}
	return nil
}

// empty reports whether every lane is empty.
func (q *priorityFIFO) empty() bool { return q.n == 0 }

// len reports the total number of fibers across every lane.
func (q *priorityFIFO) len() int { return q.n }

// drainAll removes every waiting fiber across all lanes, in
// priority-then-FIFO order, invoking fn on each. Used by a primitive's
// Destroy to wake every waiter with perr.Canceled.
func (q *priorityFIFO) drainAll(fn func(*Fiber)) {
	for {
		f := q.popFront()
		if f == nil {
			return
		}
		fn(f)
	}
}

// forEachMatching walks every waiter in priority-then-FIFO order,
// calling fn for each. A waiter for which fn returns true is removed
// from the queue; the caller is responsible for waking it. Used by
// Event.Set, which may satisfy several differently-specified waiters in
// one call.
func (q *priorityFIFO) forEachMatching(fn func(*Fiber) bool) {
	for p := 0; p < MaxPriority; p++ {
		lane := &q.lanes[p]
		var next *list.Element
		for e := lane.Front(); e != nil; e = next {
			next = e.Next()
			f := e.Value.(*Fiber)
			if fn(f) {
				lane.Remove(e)
				q.n--
			}
		}
	}
}
