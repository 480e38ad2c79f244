package kdeconnect

import (
	"context"

	"github.com/hyprconnect/hyprconnect/internal/state"
)

// Command is a named one-shot action against a device.
type Command struct {
	Name   string
	Device string
	Args   []string
}

// Command names understood by Runner.Invoke.
const (
	CmdPair       = "pair"
	CmdUnpair     = "unpair"
	CmdShare      = "share"
	CmdPing       = "ping"
	CmdRing       = "ring"
	CmdRefresh    = "refresh"
	CmdMount      = "mount"
	CmdMountPoint = "mount-point"
	CmdUnmount    = "unmount"
	CmdOpen       = "open"
)

// Result is the exit status and captured output of an invoked command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// MediaStatus is the now-playing state reported by the mprisremote plugin.
type MediaStatus struct {
	Player  string `json:"player"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
	Playing bool   `json:"playing"`
	Volume  int    `json:"volume"`
}

// Subscription delivers an opaque tick whenever the backend reports that
// something changed. C is closed when the subscription breaks.
type Subscription struct {
	C     <-chan struct{}
	close func()
}

// Close tears the subscription down. It is safe to call more than once.
func (s *Subscription) Close() {
	if s != nil && s.close != nil {
		s.close()
	}
}

// DeviceSource is the read side of the backend: full enumerations and
// change notifications.
type DeviceSource interface {
	FetchDevices(ctx context.Context) ([]state.Device, error)
	Subscribe(ctx context.Context) (*Subscription, error)
}

// ActionBackend executes user-triggered actions.
type ActionBackend interface {
	Invoke(ctx context.Context, cmd Command) (Result, error)
	MediaStatus(ctx context.Context, device string) (MediaStatus, error)
	MediaPlayers(ctx context.Context, device string) ([]string, error)
	MediaAction(ctx context.Context, device, action string) error
	MediaSeek(ctx context.Context, device string, deltaMS int32) error
	SetMediaVolume(ctx context.Context, device string, volume int32) error
	SetMediaPlayer(ctx context.Context, device, name string) error
}

// Ensure Gateway implements both sides at compile time.
var (
	_ DeviceSource  = (*Gateway)(nil)
	_ ActionBackend = (*Gateway)(nil)
)
