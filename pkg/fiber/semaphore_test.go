package fiber

import (
	"testing"
	"time"

	"github.com/picofiber/picofiber/pkg/perr"
)

func TestSemaphoreTakeDecrementsAvailableCount(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	sem := k.NewSemaphore(1)
	errs := make(chan error, 2)
	_, err := k.Create("a", 0, func() { errs <- sem.TryTake() })
	if err != nil {
		t.Fatal(err)
	}
	_, err = k.Create("b", 0, func() { errs <- sem.TryTake() })
	if err != nil {
		t.Fatal(err)
	}

	first := <-errs
	second := <-errs
	if first != nil || !perr.Is(second, perr.TimedOut) {
		t.Fatalf("expected one success and one timeout, got %v and %v", first, second)
	}
}

func TestSemaphoreGiveWakesBlockedTaker(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	sem := k.NewSemaphore(0)
	done := make(chan error, 1)
	_, err := k.Create("taker", 0, func() {
		done <- sem.Take()
	})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := sem.Give(); err != nil {
		t.Fatalf("give: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected take to succeed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("taker never woke")
	}
}

func TestSemaphoreTimedTakeTimesOut(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	sem := k.NewSemaphore(0)
	errs := make(chan error, 1)
	_, err := k.Create("taker", 0, func() {
		errs <- sem.TimedTake(5)
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-errs:
		if !perr.Is(got, perr.TimedOut) {
			t.Fatalf("expected TimedOut, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("take never timed out")
	}
}

func TestSemaphoreDestroyCancelsWaiters(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	sem := k.NewSemaphore(0)
	errs := make(chan error, 1)
	_, err := k.Create("taker", 0, func() {
		errs <- sem.Take()
	})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	sem.Destroy()

	select {
	case got := <-errs:
		if !perr.Is(got, perr.Canceled) {
			t.Fatalf("expected Canceled, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("taker never woke on destroy")
	}
}
