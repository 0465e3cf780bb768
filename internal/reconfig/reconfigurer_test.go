package reconfig

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestReconcileRunsSynchronously(t *testing.T) {
	var calls int32
	r := New(time.Hour, func() error {
		atomic.AddInt32(&calls, 1)
		return nil
	}, nil)

	if err := r.Reconcile(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestWakeNowTriggersLoopIteration(t *testing.T) {
	done := make(chan struct{})
	r := New(time.Hour, func() error {
		close(done)
		return nil
	}, nil)

	r.Start()
	r.WakeNow()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("WakeNow did not trigger a reconcile within timeout")
	}
	r.Stop()
}

func TestStopIsIdempotentAndUnblocksLoop(t *testing.T) {
	r := New(time.Hour, func() error { return nil }, nil)
	r.Start()

	done := make(chan struct{})
	go func() {
		r.Stop()
		r.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Stop did not return promptly")
	}
}

func TestReconcileErrorIsSwallowedByLoop(t *testing.T) {
	errCh := make(chan error, 1)
	r := New(time.Hour, func() error {
		select {
		case errCh <- errors.New("fail"):
		default:
		}
		return errors.New("fail")
	}, nil)

	r.Start()
	r.WakeNow()

	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected reconcile to run")
	}
	r.Stop()
}
