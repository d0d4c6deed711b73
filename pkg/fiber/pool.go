package fiber

import "github.com/picofiber/picofiber/pkg/perr"

// Pool is a fixed-block-size allocator (spec §4.8): Get pops from the
// free list or blocks; Release pushes back and wakes the head waiter,
// handing it the released block directly. Blocks are cut from one
// backing array, so within a block they share Go's normal slice
// alignment guarantees (the "platform max alignment" of the source
// becomes moot on a garbage-collected target).
type Pool struct {
	k         *Kernel
	blockSize int
	free      [][]byte
	waiters   priorityFIFO
	destroyed bool
}

// NewPool creates a Pool of numBlocks blocks, each blockSize bytes.
func (k *Kernel) NewPool(blockSize, numBlocks int) *Pool {
	backing := make([]byte, blockSize*numBlocks)
	free := make([][]byte, 0, numBlocks)
	for i := 0; i < numBlocks; i++ {
		free = append(free, backing[i*blockSize:(i+1)*blockSize:(i+1)*blockSize])
	}
	return &Pool{k: k, blockSize: blockSize, free: free}
}

// Destroy wakes every waiter with perr.Canceled and marks the pool
// unusable.
func (p *Pool) Destroy() {
	k := p.k
	k.mu.Lock()
	p.destroyed = true
	k.cancelWaitersLocked(&p.waiters, "pool_destroy")
	k.mu.Unlock()
}

// TimedGet attempts to take one block, blocking up to timeout ticks if
// none is free.
func (p *Pool) TimedGet(timeout Ticks) ([]byte, error) {
	k := p.k
	k.mu.Lock()
	if p.destroyed {
		k.mu.Unlock()
		return nil, newErr(perr.Canceled, "pool_get", "")
	}
	if n := len(p.free); n > 0 {
		blk := p.free[n-1]
		p.free = p.free[:n-1]
		k.mu.Unlock()
		return blk, nil
	}
	if timeout == 0 {
		k.mu.Unlock()
		return nil, newErr(perr.TimedOut, "pool_get", "")
	}
	k.mu.Unlock()

	val, err := k.blockOnValue(&p.waiters, timeout)
	if err != nil {
		return nil, err
	}
	return val.([]byte), nil
}

// Get waits indefinitely for a block.
func (p *Pool) Get() ([]byte, error) { return p.TimedGet(Forever) }

// TryGet polls once without blocking.
func (p *Pool) TryGet() ([]byte, error) { return p.TimedGet(0) }

// Release returns mem to the pool, handing it directly to the head
// waiter if one exists (spec §4.8).
func (p *Pool) Release(mem []byte) error {
	k := p.k
	k.mu.Lock()
	defer k.mu.Unlock()
	return p.releaseLocked(mem)
}

func (p *Pool) releaseLocked(mem []byte) error {
	if p.destroyed {
		return newErr(perr.Canceled, "pool_release", "")
	}
	if f := p.waiters.popFront(); f != nil {
		f.payload = mem
		p.k.wakeLocked(f, nil)
		return nil
	}
	p.free = append(p.free, mem)
	return nil
}

// ReleaseISR is the interrupt-context form of Release. cs must already
// be entered by the caller.
func (p *Pool) ReleaseISR(mem []byte, cs *CriticalSection) error {
	_ = cs
	return p.releaseLocked(mem)
}
