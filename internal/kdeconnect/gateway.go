package kdeconnect

import "time"

// Gateway is the complete backend: D-Bus reads, signals and media control
// from Bus, one-shot commands from Runner.
type Gateway struct {
	*Bus
	*Runner
}

// Options configure a Gateway.
type Options struct {
	Dial          Dialer
	ActionTimeout time.Duration
}

// New builds a Gateway on the session bus.
func New(opts Options) *Gateway {
	return &Gateway{
		Bus:    NewBus(opts.Dial),
		Runner: NewRunner(opts.ActionTimeout),
	}
}
