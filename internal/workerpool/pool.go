// Package workerpool implements the connection-key → worker-handle map
// (spec.md §3's WorkerPool) that the Reconfigurer mutates and Publisher/
// Consumer close. It is grounded on the reference codebase's
// asyncqueue/eventbus worker pools: a mutex-guarded map plus an idempotent
// stop-all, generalized to hold any Worker rather than a fixed task type.
package workerpool

import "sync"

// Worker is anything the Reconfigurer can start and later stop. All three
// CORE worker types (PublisherWorker, ConsumerWorker, AckWorker)
// satisfy it.
type Worker interface {
	Stop()
}

// Pool maps connection-key to the worker currently serving it. Invariants
// (spec.md §3): every key has a running worker until explicitly stopped;
// stopping is idempotent; after StopAll the pool is empty.
type Pool struct {
	mu      sync.Mutex
	workers map[string]Worker
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{workers: make(map[string]Worker)}
}

// Add inserts a worker under key. It is the Reconfigurer's job to never
// call Add for a key that already has a running worker.
func (p *Pool) Add(key string, w Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers[key] = w
}

// Remove stops and removes the worker at key, if present. A missing key is
// a no-op, keeping Remove safe to call idempotently.
func (p *Pool) Remove(key string) {
	p.mu.Lock()
	w, ok := p.workers[key]
	if ok {
		delete(p.workers, key)
	}
	p.mu.Unlock()

	if ok {
		w.Stop()
	}
}

// Keys returns the current set of connection-keys in the pool.
func (p *Pool) Keys() map[string]struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make(map[string]struct{}, len(p.workers))
	for k := range p.workers {
		keys[k] = struct{}{}
	}
	return keys
}

// Len returns the number of workers currently in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// StopAll stops every worker in the pool and empties it. Safe to call
// multiple times; a second call is a no-op since the map is already empty.
func (p *Pool) StopAll() {
	p.mu.Lock()
	workers := p.workers
	p.workers = make(map[string]Worker)
	p.mu.Unlock()

	for _, w := range workers {
		w.Stop()
	}
}
