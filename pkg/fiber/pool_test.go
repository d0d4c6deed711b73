package fiber

import (
	"testing"
	"time"

	"github.com/picofiber/picofiber/pkg/perr"
)

func TestPoolGetReturnsDistinctBlocks(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	p := k.NewPool(8, 2)
	type result struct {
		blk []byte
		err error
	}
	results := make(chan result, 2)
	_, err := k.Create("a", 0, func() {
		blk, err := p.TryGet()
		results <- result{blk, err}
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = k.Create("b", 0, func() {
		blk, err := p.TryGet()
		results <- result{blk, err}
	})
	if err != nil {
		t.Fatal(err)
	}
	_, err = k.Create("c", 0, func() {
		_, err := p.TryGet()
		results <- result{nil, err}
	})
	if err != nil {
		t.Fatal(err)
	}

	r1 := <-results
	r2 := <-results
	r3 := <-results
	if r1.err != nil || r2.err != nil {
		t.Fatalf("expected first two gets to succeed, got %v, %v", r1.err, r2.err)
	}
	if !perr.Is(r3.err, perr.TimedOut) {
		t.Fatalf("expected third get to time out, got %v", r3.err)
	}
	if len(r1.blk) != 8 || len(r2.blk) != 8 {
		t.Fatalf("expected 8-byte blocks, got %d and %d", len(r1.blk), len(r2.blk))
	}
	if &r1.blk[0] == &r2.blk[0] {
		t.Fatal("expected distinct backing blocks")
	}
}

func TestPoolReleaseWakesBlockedGetter(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	p := k.NewPool(4, 1)
	taken, err := p.TryGet()
	if err != nil {
		t.Fatalf("try get: %v", err)
	}

	errs := make(chan error, 1)
	_, err = k.Create("waiter", 0, func() {
		_, err := p.Get()
		errs <- err
	})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := p.Release(taken); err != nil {
		t.Fatalf("release: %v", err)
	}

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("expected get to succeed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never woke on release")
	}
}

func TestPoolDestroyCancelsWaiters(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	p := k.NewPool(4, 1)
	if _, err := p.TryGet(); err != nil {
		t.Fatalf("try get: %v", err)
	}

	errs := make(chan error, 1)
	_, err := k.Create("waiter", 0, func() {
		_, err := p.Get()
		errs <- err
	})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	p.Destroy()

	select {
	case got := <-errs:
		if !perr.Is(got, perr.Canceled) {
			t.Fatalf("expected Canceled, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never woke on destroy")
	}
}
