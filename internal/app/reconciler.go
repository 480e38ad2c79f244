package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyprconnect/hyprconnect/internal/metrics"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

// Trigger sources, used as metric labels.
const (
	sourcePoll    = "poll"
	sourceSignal  = "signal"
	sourceStartup = "startup"
)

// Fetcher returns a complete enumeration of backend devices.
type Fetcher interface {
	FetchDevices(ctx context.Context) ([]state.Device, error)
}

// Reconciler is the single consumer of refresh requests. A request is
// accepted only while no reconciliation is pending or running, so at most
// one backend fetch is ever in flight; requests arriving meanwhile are
// dropped, since the running fetch will observe the same backend state.
type Reconciler struct {
	fetcher Fetcher
	store   *state.Store
	onDiff  func(context.Context, state.Diff)
	timeout time.Duration
	log     zerolog.Logger
	metrics *metrics.Metrics

	busy     atomic.Bool
	requests chan string
}

// ReconcilerOptions configure a Reconciler.
type ReconcilerOptions struct {
	// OnDiff receives every successful reconciliation's diff on the
	// reconciler goroutine.
	OnDiff func(context.Context, state.Diff)
	// FetchTimeout bounds one backend enumeration.
	FetchTimeout time.Duration
	Log          zerolog.Logger
	Metrics      *metrics.Metrics
}

// NewReconciler returns a Reconciler writing into store.
func NewReconciler(fetcher Fetcher, store *state.Store, opts ReconcilerOptions) *Reconciler {
	return &Reconciler{
		fetcher:  fetcher,
		store:    store,
		onDiff:   opts.OnDiff,
		timeout:  opts.FetchTimeout,
		log:      opts.Log,
		metrics:  opts.Metrics,
		requests: make(chan string, 1),
	}
}

// Request asks for a reconciliation and reports whether it was accepted.
// It never blocks.
func (r *Reconciler) Request(source string) bool {
	if !r.busy.CompareAndSwap(false, true) {
		r.metrics.IncCoalesced(source)
		r.log.Trace().Str("source", source).Msg("reconciliation already in flight")
		return false
	}
	// The gate guarantees the buffered slot is free.
	r.requests <- source
	return true
}

// Run consumes requests until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case source := <-r.requests:
			r.reconcile(ctx, source)
			r.busy.Store(false)
		}
	}
}

func (r *Reconciler) reconcile(ctx context.Context, source string) {
	fetchCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	start := time.Now()
	devices, err := r.fetcher.FetchDevices(fetchCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.store.RecordFailure(err)
		snap := r.store.Current()
		r.metrics.ObserveReconcile(false, snap.Generation, len(snap.Devices))
		r.log.Warn().
			Err(err).
			Str("source", source).
			Int("consecutive_failures", r.store.Health().ConsecutiveFailures).
			Msg("reconciliation failed; keeping cached devices")
		return
	}

	diff := r.store.Reconcile(devices)
	snap := r.store.Current()
	r.metrics.ObserveReconcile(true, snap.Generation, len(snap.Devices))
	r.log.Debug().
		Str("source", source).
		Uint64("generation", diff.Generation).
		Int("devices", len(snap.Devices)).
		Int("changes", len(diff.Changes)).
		Dur("took", time.Since(start)).
		Msg("reconciled")

	if r.onDiff != nil && !diff.Empty() {
		r.onDiff(ctx, diff)
	}
}
