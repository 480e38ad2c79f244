package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyprconnect/hyprconnect/internal/state"
)

type recordingSink struct {
	events []Event
	err    error
}

func (s *recordingSink) Notify(_ context.Context, ev Event) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

// stuckSink never answers before the context ends.
type stuckSink struct{}

func (stuckSink) Notify(ctx context.Context, _ Event) error {
	<-ctx.Done()
	return ctx.Err()
}

func phone(reachable, paired bool, battery int) state.Device {
	return state.Device{ID: "a1", Name: "Pixel", Reachable: reachable, Paired: paired, BatteryPercent: state.Int(battery)}
}

func TestTransitionsReachableFlipEmitsOneEvent(t *testing.T) {
	store := state.NewStore(2)
	store.Reconcile([]state.Device{phone(false, true, 50)})
	diff := store.Reconcile([]state.Device{phone(true, true, 80)})

	events := Transitions(diff)
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1 (%+v)", len(events), events)
	}
	if events[0].Kind != Connected || events[0].DeviceID != "a1" || events[0].Name != "Pixel" {
		t.Fatalf("event = %+v, want connected a1", events[0])
	}
}

func TestTransitionsIgnoresUnchangedAndMinorFields(t *testing.T) {
	store := state.NewStore(2)
	store.Reconcile([]state.Device{phone(true, true, 50)})
	diff := store.Reconcile([]state.Device{phone(true, true, 49)})
	if diff.Empty() {
		t.Fatal("battery change should produce a diff")
	}
	if events := Transitions(diff); len(events) != 0 {
		t.Fatalf("events = %+v, want none", events)
	}
}

func TestTransitionsKinds(t *testing.T) {
	tests := []struct {
		name   string
		before state.Device
		after  state.Device
		want   []Kind
	}{
		{"disconnect", phone(true, true, 50), phone(false, true, 50), []Kind{Disconnected}},
		{"pair", phone(true, false, 50), phone(true, true, 50), []Kind{Paired}},
		{"unpair", phone(true, true, 50), phone(true, false, 50), []Kind{Unpaired}},
		{"connect and pair", phone(false, false, 50), phone(true, true, 50), []Kind{Paired, Connected}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewStore(2)
			store.Reconcile([]state.Device{tt.before})
			events := Transitions(store.Reconcile([]state.Device{tt.after}))
			if len(events) != len(tt.want) {
				t.Fatalf("events = %+v, want %v", events, tt.want)
			}
			for i, k := range tt.want {
				if events[i].Kind != k {
					t.Fatalf("events[%d] = %s, want %s", i, events[i].Kind, k)
				}
			}
		})
	}
}

func TestTransitionsAppearedReachable(t *testing.T) {
	store := state.NewStore(2)
	store.Reconcile(nil)
	diff := store.Reconcile([]state.Device{phone(true, true, 70)})
	events := Transitions(diff)
	if len(events) != 1 || events[0].Kind != Connected {
		t.Fatalf("events = %+v, want one connected", events)
	}
}

func TestTransitionsDedupesRepeatedChanges(t *testing.T) {
	diff := state.Diff{Generation: 3, Changes: []state.Change{
		{DeviceID: "a1", Field: state.FieldReachable, Old: false, New: true},
		{DeviceID: "a1", Field: state.FieldReachable, Old: false, New: true},
	}}
	if got := len(Transitions(diff)); got != 1 {
		t.Fatalf("len(Transitions) = %d, want 1", got)
	}
}

func TestNotifierHandle(t *testing.T) {
	diff := state.Diff{Generation: 2, Changes: []state.Change{
		{DeviceID: "a1", Name: "Pixel", Field: state.FieldReachable, Old: false, New: true},
	}}

	t.Run("enabled", func(t *testing.T) {
		sink := &recordingSink{}
		n := New(true, sink, zerolog.Nop(), nil)
		n.Handle(context.Background(), diff)
		if len(sink.events) != 1 {
			t.Fatalf("sink got %d events, want 1", len(sink.events))
		}
	})

	t.Run("disabled", func(t *testing.T) {
		sink := &recordingSink{}
		n := New(false, sink, zerolog.Nop(), nil)
		if sent := n.Handle(context.Background(), diff); sent != nil {
			t.Fatalf("Handle returned %v, want nil", sent)
		}
		if len(sink.events) != 0 {
			t.Fatalf("sink got %d events, want 0", len(sink.events))
		}
	})

	t.Run("baseline generation", func(t *testing.T) {
		sink := &recordingSink{}
		n := New(true, sink, zerolog.Nop(), nil)
		first := diff
		first.Generation = 1
		n.Handle(context.Background(), first)
		if len(sink.events) != 0 {
			t.Fatalf("sink got %d events on baseline, want 0", len(sink.events))
		}
	})

	t.Run("sink failure", func(t *testing.T) {
		sink := &recordingSink{err: errors.New("no notification daemon")}
		n := New(true, sink, zerolog.Nop(), nil)
		if sent := n.Handle(context.Background(), diff); len(sent) != 0 {
			t.Fatalf("sent = %v, want none", sent)
		}
	})
}

func TestNotifierBoundsStuckSink(t *testing.T) {
	diff := state.Diff{Generation: 2, Changes: []state.Change{
		{DeviceID: "a1", Name: "Pixel", Field: state.FieldReachable, Old: false, New: true},
		{DeviceID: "b2", Name: "Tab", Field: state.FieldPaired, Old: false, New: true},
	}}
	n := New(true, stuckSink{}, zerolog.Nop(), nil)
	n.timeout = 20 * time.Millisecond

	done := make(chan []Event, 1)
	go func() { done <- n.Handle(context.Background(), diff) }()
	select {
	case sent := <-done:
		if len(sent) != 0 {
			t.Fatalf("sent = %v, want none", sent)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Handle blocked on a stuck sink")
	}
}

func TestKindBody(t *testing.T) {
	for k, want := range map[Kind]string{
		Connected:    "Phone connected",
		Disconnected: "Phone disconnected",
		Paired:       "Paired",
		Unpaired:     "Unpaired",
	} {
		if got := k.Body(); got != want {
			t.Fatalf("%s.Body() = %q, want %q", k, got, want)
		}
	}
}
