// Package notify turns reconciliation diffs into desktop notifications for
// the transitions a user cares about: a phone connecting or disconnecting and
// a pairing being granted or revoked.
package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyprconnect/hyprconnect/internal/metrics"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

// Kind is a significant device transition.
type Kind string

const (
	Connected    Kind = "connected"
	Disconnected Kind = "disconnected"
	Paired       Kind = "paired"
	Unpaired     Kind = "unpaired"
)

// Body returns the notification text for the transition.
func (k Kind) Body() string {
	switch k {
	case Connected:
		return "Phone connected"
	case Disconnected:
		return "Phone disconnected"
	case Paired:
		return "Paired"
	case Unpaired:
		return "Unpaired"
	}
	return string(k)
}

// Event is one notification to show.
type Event struct {
	DeviceID string
	Name     string
	Kind     Kind
}

// Transitions filters a diff down to significant transitions. Each device
// yields at most one event per kind; a device that appears already reachable
// counts as connected. Disappearances are not reported: the debounced
// eviction follows a reachable→false change that was already announced.
func Transitions(diff state.Diff) []Event {
	var out []Event
	seen := make(map[Event]bool)
	emit := func(c state.Change, kind Kind) {
		ev := Event{DeviceID: c.DeviceID, Name: c.Name, Kind: kind}
		key := Event{DeviceID: c.DeviceID, Kind: kind}
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, ev)
	}

	for _, c := range diff.Changes {
		switch c.Field {
		case state.FieldReachable:
			if flipped(c, false, true) {
				emit(c, Connected)
			} else if flipped(c, true, false) {
				emit(c, Disconnected)
			}
		case state.FieldPaired:
			if flipped(c, false, true) {
				emit(c, Paired)
			} else if flipped(c, true, false) {
				emit(c, Unpaired)
			}
		case state.FieldAppeared:
			if d, ok := c.New.(state.Device); ok && d.Reachable {
				emit(c, Connected)
			}
		}
	}
	return out
}

func flipped(c state.Change, from, to bool) bool {
	o, ok1 := c.Old.(bool)
	n, ok2 := c.New.(bool)
	return ok1 && ok2 && o == from && n == to
}

// Sink delivers a single event.
type Sink interface {
	Notify(ctx context.Context, ev Event) error
}

// notifyTimeout bounds a single sink call so a stuck notification server
// cannot hold up reconciliation.
const notifyTimeout = 2 * time.Second

// Notifier forwards significant transitions to a Sink.
type Notifier struct {
	enabled bool
	sink    Sink
	log     zerolog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

// New returns a Notifier. With enabled false, Handle never calls the sink.
func New(enabled bool, sink Sink, log zerolog.Logger, m *metrics.Metrics) *Notifier {
	return &Notifier{enabled: enabled, sink: sink, log: log, metrics: m, timeout: notifyTimeout}
}

// Handle notifies every significant transition in diff and returns the
// events that were sent. The first generation is the startup baseline and is
// never announced.
func (n *Notifier) Handle(ctx context.Context, diff state.Diff) []Event {
	if n == nil || !n.enabled || n.sink == nil || diff.Generation <= 1 {
		return nil
	}
	events := Transitions(diff)
	sent := events[:0:0]
	for _, ev := range events {
		if err := n.notify(ctx, ev); err != nil {
			n.log.Warn().Err(err).Str("device", ev.DeviceID).Str("event", string(ev.Kind)).Msg("notification failed")
			continue
		}
		n.metrics.IncNotification()
		n.log.Debug().Str("device", ev.DeviceID).Str("event", string(ev.Kind)).Msg("notification sent")
		sent = append(sent, ev)
	}
	return sent
}

func (n *Notifier) notify(ctx context.Context, ev Event) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	return n.sink.Notify(ctx, ev)
}
