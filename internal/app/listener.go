package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyprconnect/hyprconnect/internal/kdeconnect"
)

const (
	baseBackoff = 2 * time.Second
	maxBackoff  = 30 * time.Second
)

// Subscriber opens backend change subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context) (*kdeconnect.Subscription, error)
}

// calculateBackoff returns the exponential backoff duration for the given
// number of consecutive failures, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	d := base
	for i := 0; i < failures; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

type signalListener struct {
	source Subscriber
	r      Requester
	log    zerolog.Logger
	base   time.Duration
}

// StartSignalListener subscribes to backend change signals and requests a
// reconciliation for each one. A broken subscription is re-established with
// exponential backoff; the poller keeps the cache fresh in the meantime.
func StartSignalListener(ctx context.Context, source Subscriber, r Requester, log zerolog.Logger) {
	l := &signalListener{source: source, r: r, log: log, base: baseBackoff}
	go l.run(ctx)
}

func (l *signalListener) run(ctx context.Context) {
	failures := 0
	for ctx.Err() == nil {
		sub, err := l.source.Subscribe(ctx)
		if err != nil {
			wait := calculateBackoff(failures, l.base)
			failures++
			l.log.Warn().Err(err).Dur("retry_in", wait).Msg("signal subscription failed; relying on polling")
			if !sleepCtx(ctx, wait) {
				return
			}
			continue
		}

		if failures > 0 {
			l.log.Info().Msg("signal subscription restored")
			// Signals may have been missed while unsubscribed.
			l.r.Request(sourceSignal)
		}
		failures = 0
		l.drain(ctx, sub)
		sub.Close()

		if ctx.Err() != nil {
			return
		}
		wait := calculateBackoff(failures, l.base)
		failures++
		l.log.Warn().Dur("retry_in", wait).Msg("signal subscription lost; relying on polling")
		if !sleepCtx(ctx, wait) {
			return
		}
	}
}

func (l *signalListener) drain(ctx context.Context, sub *kdeconnect.Subscription) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			l.r.Request(sourceSignal)
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
