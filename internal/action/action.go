package action

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyprconnect/hyprconnect/internal/failure"
	"github.com/hyprconnect/hyprconnect/internal/kdeconnect"
	"github.com/hyprconnect/hyprconnect/internal/metrics"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

// Command names accepted by Execute. They double as IPC command tags.
const (
	CmdPair           = "pair"
	CmdUnpair         = "unpair"
	CmdShareFile      = "share_file"
	CmdShareURL       = "share_url"
	CmdShareClipboard = "share_clipboard"
	CmdPing           = "ping"
	CmdRefresh        = "refresh"
	CmdFind           = "find"
	CmdMount          = "mount"
	CmdOpenMount      = "open_mount"
	CmdToggleMount    = "toggle_mount"
	CmdMedia          = "media"
)

// DefaultPingMessage is sent when a ping request carries no message.
const DefaultPingMessage = "Ping from Hyprconnect"

const (
	defaultMountWait = 1400 * time.Millisecond
	defaultMountPoll = 100 * time.Millisecond
	defaultTimeout   = 10 * time.Second
	internalStorage  = "storage/emulated/0"
	triggerSource    = "action"
)

// Request is a user-triggered action. Device may be empty to let the
// dispatcher pick one.
type Request struct {
	Command string
	Device  string
	Path    string
	URL     string
	Message string
	Media   MediaArgs
}

// MediaArgs select a media operation and its argument.
type MediaArgs struct {
	Op      string
	DeltaMS int64
	Volume  *int
	Name    string
}

// Result is the minimal outcome of a successful action.
type Result struct {
	Device     string                  `json:"device,omitempty"`
	Message    string                  `json:"message,omitempty"`
	Mountpoint string                  `json:"mountpoint,omitempty"`
	Players    []string                `json:"players,omitempty"`
	Media      *kdeconnect.MediaStatus `json:"media,omitempty"`
}

// Cache is the read side of the device cache.
type Cache interface {
	Current() *state.Snapshot
}

// Trigger asks for a reconciliation through the shared coalescing gate.
type Trigger interface {
	Request(source string) bool
}

// Options tune a Dispatcher. Zero values select the defaults.
type Options struct {
	DefaultDevice string
	Trigger       Trigger
	Clipboard     func() (string, error)
	Log           zerolog.Logger
	Metrics       *metrics.Metrics

	// MountWait bounds how long mount waits for the filesystem to appear.
	MountWait time.Duration
	MountPoll time.Duration
	// IsMounted reports whether path is an active mount point.
	IsMounted func(path string) bool
	// ActionTimeout bounds each media call to the backend.
	ActionTimeout time.Duration
}

// Dispatcher validates action requests against the cache and executes them
// through the backend. It never retries.
type Dispatcher struct {
	cache   Cache
	backend kdeconnect.ActionBackend
	opts    Options
}

// New returns a Dispatcher.
func New(cache Cache, backend kdeconnect.ActionBackend, opts Options) *Dispatcher {
	if opts.MountWait <= 0 {
		opts.MountWait = defaultMountWait
	}
	if opts.MountPoll <= 0 {
		opts.MountPoll = defaultMountPoll
	}
	if opts.IsMounted == nil {
		opts.IsMounted = procMounted
	}
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultTimeout
	}
	return &Dispatcher{cache: cache, backend: backend, opts: opts}
}

// Execute runs one action. Precondition failures return before the backend
// is contacted.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	res, err := d.execute(ctx, req)
	d.opts.Metrics.ObserveAction(req.Command, time.Since(start))
	if err != nil {
		d.opts.Log.Info().
			Str("command", req.Command).
			Str("device", req.Device).
			Str("kind", string(failure.KindOf(err, failure.ActionFailed))).
			Err(err).
			Msg("action failed")
		return Result{}, err
	}
	d.opts.Log.Debug().Str("command", req.Command).Str("device", res.Device).Msg("action completed")
	return res, nil
}

func (d *Dispatcher) execute(ctx context.Context, req Request) (Result, error) {
	switch req.Command {
	case CmdPair:
		return d.pair(ctx, req)
	case CmdUnpair:
		return d.unpair(ctx, req)
	case CmdShareFile:
		return d.shareFile(ctx, req)
	case CmdShareURL:
		if strings.TrimSpace(req.URL) == "" {
			return Result{}, failure.New(failure.InvalidArgument, "url is required")
		}
		return d.share(ctx, req.Device, req.URL)
	case CmdShareClipboard:
		return d.shareClipboard(ctx, req)
	case CmdPing:
		return d.ping(ctx, req)
	case CmdRefresh:
		if _, err := d.backend.Invoke(ctx, kdeconnect.Command{Name: kdeconnect.CmdRefresh}); err != nil {
			return Result{}, err
		}
		d.reconcile()
		return Result{Message: "Refreshed KDE Connect device discovery"}, nil
	case CmdFind:
		dev, err := d.target(req.Device)
		if err != nil {
			return Result{}, err
		}
		if err := d.invoke(ctx, kdeconnect.CmdRing, dev.ID); err != nil {
			return Result{}, err
		}
		return Result{Device: dev.ID, Message: "Ringing " + dev.Name}, nil
	case CmdMount:
		return d.mount(ctx, req)
	case CmdOpenMount:
		dev, err := d.target(req.Device)
		if err != nil {
			return Result{}, err
		}
		return d.mountAndOpen(ctx, dev)
	case CmdToggleMount:
		return d.toggleMount(ctx, req)
	case CmdMedia:
		return d.media(ctx, req)
	case "":
		return Result{}, failure.New(failure.InvalidArgument, "command is required")
	}
	return Result{}, failure.New(failure.InvalidArgument, "unknown action %q", req.Command)
}

// Resolve picks the device a request targets from the latest snapshot.
func (d *Dispatcher) Resolve(id string) (state.Device, error) {
	return d.ResolveIn(d.cache.Current(), id)
}

// ResolveIn picks the device a request targets within snap: the explicit
// id, then the configured default when it is paired and reachable, then the
// first paired and reachable device by id.
func (d *Dispatcher) ResolveIn(snap *state.Snapshot, id string) (state.Device, error) {
	if snap == nil {
		snap = &state.Snapshot{}
	}
	if id = strings.TrimSpace(id); id != "" {
		dev, ok := snap.Lookup(id)
		if !ok {
			return state.Device{}, failure.New(failure.DeviceNotFound, "device %q not found", id)
		}
		return dev, nil
	}
	if def := strings.TrimSpace(d.opts.DefaultDevice); def != "" {
		if dev, ok := snap.Lookup(def); ok && dev.Usable() {
			return dev, nil
		}
	}
	for _, dev := range snap.Devices {
		if dev.Usable() {
			return dev, nil
		}
	}
	return state.Device{}, failure.New(failure.DeviceNotFound, "no paired and reachable device")
}

// target resolves a device that must be reachable.
func (d *Dispatcher) target(id string) (state.Device, error) {
	dev, err := d.Resolve(id)
	if err != nil {
		return dev, err
	}
	if !dev.Reachable {
		return dev, failure.New(failure.DeviceUnreachable, "device %s is not reachable", dev.ID)
	}
	return dev, nil
}

func (d *Dispatcher) invoke(ctx context.Context, name, device string, args ...string) error {
	_, err := d.backend.Invoke(ctx, kdeconnect.Command{Name: name, Device: device, Args: args})
	return err
}

func (d *Dispatcher) reconcile() {
	if d.opts.Trigger != nil {
		d.opts.Trigger.Request(triggerSource)
	}
}

func (d *Dispatcher) pair(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Device) == "" {
		return Result{}, failure.New(failure.InvalidArgument, "pair requires a device id")
	}
	dev, err := d.target(req.Device)
	if err != nil {
		return Result{}, err
	}
	if err := d.invoke(ctx, kdeconnect.CmdPair, dev.ID); err != nil {
		return Result{}, err
	}
	d.reconcile()
	return Result{Device: dev.ID, Message: "Pair request sent to " + dev.Name}, nil
}

func (d *Dispatcher) unpair(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Device) == "" {
		return Result{}, failure.New(failure.InvalidArgument, "unpair requires a device id")
	}
	dev, err := d.Resolve(req.Device)
	if err != nil {
		return Result{}, err
	}
	if err := d.invoke(ctx, kdeconnect.CmdUnpair, dev.ID); err != nil {
		return Result{}, err
	}
	d.reconcile()
	return Result{Device: dev.ID, Message: "Unpaired " + dev.Name}, nil
}

func (d *Dispatcher) shareFile(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Path) == "" {
		return Result{}, failure.New(failure.InvalidArgument, "path is required")
	}
	path, err := filepath.Abs(req.Path)
	if err != nil {
		return Result{}, failure.Wrap(failure.InvalidArgument, err, "resolve %s", req.Path)
	}
	if _, err := os.Stat(path); err != nil {
		return Result{}, failure.Wrap(failure.InvalidArgument, err, "cannot share %s", path)
	}
	return d.share(ctx, req.Device, path)
}

func (d *Dispatcher) shareClipboard(ctx context.Context, req Request) (Result, error) {
	if d.opts.Clipboard == nil {
		return Result{}, failure.New(failure.ActionFailed, "clipboard is not available")
	}
	text, err := d.opts.Clipboard()
	if err != nil {
		return Result{}, failure.Wrap(failure.ActionFailed, err, "read clipboard")
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, failure.New(failure.InvalidArgument, "clipboard is empty")
	}
	return d.share(ctx, req.Device, text)
}

func (d *Dispatcher) share(ctx context.Context, device, value string) (Result, error) {
	dev, err := d.target(device)
	if err != nil {
		return Result{}, err
	}
	if err := d.invoke(ctx, kdeconnect.CmdShare, dev.ID, value); err != nil {
		return Result{}, err
	}
	return Result{Device: dev.ID, Message: "Shared to " + dev.Name}, nil
}

func (d *Dispatcher) ping(ctx context.Context, req Request) (Result, error) {
	dev, err := d.target(req.Device)
	if err != nil {
		return Result{}, err
	}
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		msg = DefaultPingMessage
	}
	if err := d.invoke(ctx, kdeconnect.CmdPing, dev.ID, msg); err != nil {
		return Result{}, err
	}
	return Result{Device: dev.ID, Message: "Ping sent to " + dev.Name}, nil
}

func (d *Dispatcher) mount(ctx context.Context, req Request) (Result, error) {
	dev, err := d.target(req.Device)
	if err != nil {
		return Result{}, err
	}
	path, err := d.mountDevice(ctx, dev.ID)
	d.reconcile()
	if err != nil {
		return Result{}, err
	}
	return Result{Device: dev.ID, Mountpoint: path, Message: fmt.Sprintf("Mounted %s at %s", dev.Name, path)}, nil
}

// toggleMount inspects the cached mount state exactly once. Two toggles
// issued back to back may both see the same state; the worst case is a
// redundant mount or a no-op unmount.
func (d *Dispatcher) toggleMount(ctx context.Context, req Request) (Result, error) {
	dev, err := d.target(req.Device)
	if err != nil {
		return Result{}, err
	}
	if dev.Mounted && dev.Mountpoint != "" {
		err := d.invoke(ctx, kdeconnect.CmdUnmount, dev.ID, dev.Mountpoint)
		d.reconcile()
		if err != nil {
			return Result{}, err
		}
		return Result{Device: dev.ID, Message: fmt.Sprintf("Unmounted %s from %s", dev.Name, dev.Mountpoint)}, nil
	}
	res, err := d.mountAndOpen(ctx, dev)
	if err != nil {
		return Result{}, err
	}
	res.Message = fmt.Sprintf("Mounted and opened %s: %s", dev.Name, res.Mountpoint)
	return res, nil
}

func (d *Dispatcher) mountAndOpen(ctx context.Context, dev state.Device) (Result, error) {
	path, err := d.mountDevice(ctx, dev.ID)
	d.reconcile()
	if err != nil {
		return Result{}, err
	}
	target := storagePath(path)
	if err := d.invoke(ctx, kdeconnect.CmdOpen, dev.ID, target); err != nil {
		return Result{}, err
	}
	return Result{Device: dev.ID, Mountpoint: path, Message: fmt.Sprintf("Opened mount for %s: %s", dev.Name, target)}, nil
}

// mountDevice asks the backend to mount and then polls for the mount point
// until it is live or MountWait elapses.
func (d *Dispatcher) mountDevice(ctx context.Context, device string) (string, error) {
	if err := d.invoke(ctx, kdeconnect.CmdMount, device); err != nil {
		return "", err
	}

	deadline := time.Now().Add(d.opts.MountWait)
	for {
		res, err := d.backend.Invoke(ctx, kdeconnect.Command{Name: kdeconnect.CmdMountPoint, Device: device})
		if err == nil {
			if path := firstLine(res.Stdout); path != "" && d.opts.IsMounted(path) {
				return path, nil
			}
		}
		if time.Now().After(deadline) {
			return "", failure.New(failure.ActionTimeout, "timed out waiting for mount point of %s", device)
		}
		select {
		case <-ctx.Done():
			return "", failure.Wrap(failure.ActionTimeout, ctx.Err(), "waiting for mount point of %s", device)
		case <-time.After(d.opts.MountPoll):
		}
	}
}

// storagePath prefers the phone's internal storage inside the mount.
func storagePath(mount string) string {
	target := filepath.Join(mount, internalStorage)
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return target
	}
	return mount
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

// procMounted reports whether path appears as a mount target in /proc/mounts.
func procMounted(path string) bool {
	data, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == path {
			return true
		}
	}
	return false
}
