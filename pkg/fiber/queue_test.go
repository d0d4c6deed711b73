package fiber

import (
	"testing"
	"time"

	"github.com/picofiber/picofiber/pkg/perr"
)

func TestQueueSendBackAndReceiveRoundTrip(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	q := k.NewQueue(2, 4)
	if err := q.TrySendBack([]byte("ab")); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := q.TryReceive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(got[:2]) != "ab" {
		t.Fatalf("expected ab, got %q", got)
	}
}

func TestQueueSendFrontJumpsAheadOfBackItems(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	q := k.NewQueue(2, 4)
	if err := q.TrySendBack([]byte("one")); err != nil {
		t.Fatalf("send back: %v", err)
	}
	if err := q.TrySendFront([]byte("two")); err != nil {
		t.Fatalf("send front: %v", err)
	}

	first, err := q.TryReceive()
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if string(first[:3]) != "two" {
		t.Fatalf("expected front item first, got %q", first)
	}
}

func TestQueueFullBlocksSenderUntilReceive(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	q := k.NewQueue(1, 4)
	if err := q.TrySendBack([]byte("full")); err != nil {
		t.Fatalf("send: %v", err)
	}

	errs := make(chan error, 1)
	_, err := k.Create("sender", 0, func() {
		errs <- q.SendBack([]byte("next"))
	})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	select {
	case <-errs:
		t.Fatal("send returned before queue had room")
	default:
	}

	if _, err := q.TryReceive(); err != nil {
		t.Fatalf("drain: %v", err)
	}

	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("expected send to succeed once a slot freed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked sender never woke")
	}
}

func TestQueueReceiveBlocksUntilSend(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	q := k.NewQueue(2, 4)
	type result struct {
		item []byte
		err  error
	}
	results := make(chan result, 1)
	_, err := k.Create("receiver", 0, func() {
		item, err := q.Receive()
		results <- result{item, err}
	})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	if err := q.SendBack([]byte("hi")); err != nil {
		t.Fatalf("send: %v", err)
	}

	select {
	case r := <-results:
		if r.err != nil {
			t.Fatalf("receive: %v", r.err)
		}
		if string(r.item[:2]) != "hi" {
			t.Fatalf("expected hi, got %q", r.item)
		}
	case <-time.After(time.Second):
		t.Fatal("receiver never woke")
	}
}

func TestQueueDestroyCancelsBothSendersAndReceivers(t *testing.T) {
	k := NewKernel(neverStopIdle, nil, nil)
	stop := startScheduler(t, k)
	defer stop()

	q := k.NewQueue(1, 4)
	if err := q.TrySendBack([]byte("full")); err != nil {
		t.Fatal(err)
	}

	sendErrs := make(chan error, 1)
	_, err := k.Create("sender", 0, func() {
		sendErrs <- q.SendBack([]byte("next"))
	})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)

	q.Destroy()

	select {
	case got := <-sendErrs:
		if !perr.Is(got, perr.Canceled) {
			t.Fatalf("expected Canceled, got %v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("sender never woke on destroy")
	}
}
