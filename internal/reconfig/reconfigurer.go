// Package reconfig implements the periodic host-set reconciliation task
// shared by Publisher and Consumer (spec.md §4.3). It is grounded on the
// reference codebase's cluster.Registry periodic-sync loop
// (ticker + select + stop channel), generalized with a manual wake-now
// signal so a caller can force an out-of-band reconfiguration.
package reconfig

import (
	"sync"
	"time"

	"github.com/oriys/cherami-client-go/internal/logging"
)

// ReconcileFunc fetches the authoritative host set and reconciles it
// against the owner's WorkerPool. An error is logged and swallowed by the
// Reconfigurer's background loop; the first, synchronous call made before
// Start is the caller's responsibility to treat as fatal (spec.md §4.3).
type ReconcileFunc func() error

// Reconfigurer runs reconcile on a fixed interval, or immediately when
// WakeNow is called, until Stop is called. The same type is used by both
// Publisher and Consumer; only the ReconcileFunc differs.
type Reconfigurer struct {
	interval time.Duration
	reconcile ReconcileFunc
	logger   logging.Logger

	wake     chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Reconfigurer. logger may be nil, in which case the
// package-level default slog-backed logger is used.
func New(interval time.Duration, reconcile ReconcileFunc, logger logging.Logger) *Reconfigurer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconfigurer{
		interval:  interval,
		reconcile: reconcile,
		logger:    logger,
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
	}
}

// Start launches the background loop. The first, synchronous
// reconfiguration is the caller's own responsibility (via Reconcile) before
// calling Start, so that its failure can be treated as fatal at open time.
func (r *Reconfigurer) Start() {
	r.wg.Add(1)
	go r.loop()
}

// Reconcile runs the reconcile function once, synchronously, bypassing the
// loop entirely. Used for the mandatory first reconfiguration at open time.
func (r *Reconfigurer) Reconcile() error {
	return r.reconcile()
}

// WakeNow requests an out-of-band reconfiguration at the next loop
// iteration, without waiting for the interval to elapse.
func (r *Reconfigurer) WakeNow() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Stop signals the loop to return and blocks until it has. Stop is
// idempotent; calling it twice is a no-op the second time.
func (r *Reconfigurer) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
		// Per spec.md §4.3: stop sets both the stop signal and the
		// wake-now signal, so a loop iteration currently waiting on the
		// interval returns promptly rather than via the stop case alone.
		select {
		case r.wake <- struct{}{}:
		default:
		}
	})
	r.wg.Wait()
}

func (r *Reconfigurer) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-r.wake:
		case <-ticker.C:
		}

		select {
		case <-r.stop:
			return
		default:
		}

		if err := r.reconcile(); err != nil {
			r.logger.Info("reconfiguration failed", "error", err)
		}
	}
}
