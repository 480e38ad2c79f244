package app

import (
	"context"
	"time"
)

const defaultPollInterval = 10 * time.Second

// Requester accepts reconciliation requests.
type Requester interface {
	Request(source string) bool
}

// StartPoller launches a background goroutine that requests a
// reconciliation at a fixed cadence. Ticks that land while a reconciliation
// is in flight are skipped, not queued. It returns immediately.
func StartPoller(ctx context.Context, r Requester, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Request(sourcePoll)
			}
		}
	}()
}
