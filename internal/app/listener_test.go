package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyprconnect/hyprconnect/internal/kdeconnect"
)

func TestCalculateBackoff(t *testing.T) {
	baseInterval := 2 * time.Second

	tests := []struct {
		name     string
		failures int
		want     time.Duration
	}{
		{"zero failures", 0, 2 * time.Second},
		{"negative failures", -1, 2 * time.Second},
		{"one failure", 1, 4 * time.Second},
		{"two failures", 2, 8 * time.Second},
		{"three failures", 3, 16 * time.Second},
		{"four failures capped", 4, 30 * time.Second}, // Would be 32s, capped to 30s
		{"many failures capped", 10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, baseInterval)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, baseInterval, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Verify that backoff never exceeds maxBackoff regardless of input
	baseInterval := 2 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, baseInterval)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, baseInterval, got, maxBackoff)
		}
	}
}

type scriptedSubscriber struct {
	mu       sync.Mutex
	attempts int
	failN    int // first failN attempts fail
	subs     chan chan struct{}
}

func (s *scriptedSubscriber) Subscribe(ctx context.Context) (*kdeconnect.Subscription, error) {
	s.mu.Lock()
	s.attempts++
	n := s.attempts
	s.mu.Unlock()
	if n <= s.failN {
		return nil, errors.New("bus down")
	}
	ch := make(chan struct{}, 1)
	s.subs <- ch
	return &kdeconnect.Subscription{C: ch}, nil
}

type recordingRequester struct {
	mu      sync.Mutex
	sources []string
	notify  chan string
}

func (r *recordingRequester) Request(source string) bool {
	r.mu.Lock()
	r.sources = append(r.sources, source)
	r.mu.Unlock()
	if r.notify != nil {
		r.notify <- source
	}
	return true
}

func TestSignalListenerRequestsOnSignalAndResubscribes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := &scriptedSubscriber{failN: 1, subs: make(chan chan struct{}, 4)}
	req := &recordingRequester{notify: make(chan string, 8)}
	l := &signalListener{source: sub, r: req, log: zerolog.Nop(), base: time.Millisecond}
	go l.run(ctx)

	var ch chan struct{}
	select {
	case ch = <-sub.subs:
	case <-time.After(2 * time.Second):
		t.Fatal("listener never subscribed after a failed attempt")
	}
	// Recovering from a failure requests a catch-up reconciliation.
	expectSource(t, req.notify, sourceSignal)

	ch <- struct{}{}
	expectSource(t, req.notify, sourceSignal)

	// A closed channel is a broken subscription.
	close(ch)
	select {
	case <-sub.subs:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not resubscribe after the subscription broke")
	}
}

func TestSignalListenerStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &scriptedSubscriber{failN: 1 << 30, subs: make(chan chan struct{}, 1)}
	l := &signalListener{source: sub, r: &recordingRequester{}, log: zerolog.Nop(), base: time.Hour}

	done := make(chan struct{})
	go func() {
		l.run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancellation")
	}
}

func expectSource(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Fatalf("request source = %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no %s request", want)
	}
}
