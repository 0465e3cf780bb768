package workerpool

import (
	"sync/atomic"
	"testing"
)

type fakeWorker struct {
	stopped int32
}

func (w *fakeWorker) Stop() { atomic.StoreInt32(&w.stopped, 1) }

func TestAddAndLen(t *testing.T) {
	p := New()
	p.Add("a:1", &fakeWorker{})
	p.Add("b:2", &fakeWorker{})

	if p.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", p.Len())
	}
}

func TestRemoveStopsWorker(t *testing.T) {
	p := New()
	w := &fakeWorker{}
	p.Add("a:1", w)

	p.Remove("a:1")

	if atomic.LoadInt32(&w.stopped) != 1 {
		t.Fatalf("expected worker to be stopped")
	}
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", p.Len())
	}
}

func TestRemoveMissingKeyIsNoop(t *testing.T) {
	p := New()
	p.Remove("missing")
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", p.Len())
	}
}

func TestStopAllEmptiesPoolAndStopsEveryWorker(t *testing.T) {
	p := New()
	w1, w2 := &fakeWorker{}, &fakeWorker{}
	p.Add("a:1", w1)
	p.Add("b:2", w2)

	p.StopAll()

	if p.Len() != 0 {
		t.Fatalf("expected pool empty after StopAll")
	}
	if atomic.LoadInt32(&w1.stopped) != 1 || atomic.LoadInt32(&w2.stopped) != 1 {
		t.Fatalf("expected all workers stopped")
	}

	// Second call is a no-op over an empty pool.
	p.StopAll()
}

func TestKeysReflectsCurrentContents(t *testing.T) {
	p := New()
	p.Add("a:1", &fakeWorker{})
	p.Add("b:2", &fakeWorker{})

	keys := p.Keys()
	if _, ok := keys["a:1"]; !ok {
		t.Fatalf("expected a:1 in keys")
	}
	if _, ok := keys["b:2"]; !ok {
		t.Fatalf("expected b:2 in keys")
	}
	if len(keys) != 2 {
		t.Fatalf("len(keys) = %d, want 2", len(keys))
	}
}
