package kdeconnect

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/godbus/dbus/v5"

	"github.com/hyprconnect/hyprconnect/internal/failure"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

const (
	busName        = "org.kde.kdeconnect"
	daemonPath     = "/modules/kdeconnect"
	devicesPath    = "/modules/kdeconnect/devices/"
	daemonIface    = "org.kde.kdeconnect.daemon"
	deviceIface    = "org.kde.kdeconnect.device"
	batteryIface   = "org.kde.kdeconnect.device.battery"
	connIface      = "org.kde.kdeconnect.device.connectivity_report"
	sftpIface      = "org.kde.kdeconnect.device.sftp"
	mprisIface     = "org.kde.kdeconnect.device.mprisremote"
	propsIface     = "org.freedesktop.DBus.Properties"
	signalBuffer   = 16
	subscribeMatch = daemonPath
)

func devicePath(id string, plugin string) dbus.ObjectPath {
	p := devicesPath + id
	if plugin != "" {
		p += "/" + plugin
	}
	return dbus.ObjectPath(p)
}

// deviceFromPath extracts the device id from a kdeconnect object path.
func deviceFromPath(path dbus.ObjectPath) string {
	s := string(path)
	if !strings.HasPrefix(s, devicesPath) {
		return ""
	}
	id := strings.TrimPrefix(s, devicesPath)
	if i := strings.IndexByte(id, '/'); i >= 0 {
		id = id[:i]
	}
	return id
}

// Dialer opens a D-Bus connection. It is dbus.ConnectSessionBus by default.
type Dialer func() (*dbus.Conn, error)

// Bus reads kdeconnect state over the session bus. The read connection is
// dialled lazily and replaced when it drops.
type Bus struct {
	dial Dialer

	mu   sync.Mutex
	conn *dbus.Conn
}

// NewBus returns a Bus using dial (the session bus when nil).
func NewBus(dial Dialer) *Bus {
	if dial == nil {
		dial = func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() }
	}
	return &Bus{dial: dial}
}

func (b *Bus) connection() (*dbus.Conn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil && b.conn.Connected() {
		return b.conn, nil
	}
	conn, err := b.dial()
	if err != nil {
		return nil, failure.Wrap(failure.BackendUnavailable, err, "connect to session bus")
	}
	b.conn = conn
	return conn, nil
}

// Close releases the read connection.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	b.conn = nil
	return err
}

func (b *Bus) call(ctx context.Context, path dbus.ObjectPath, method string, out any, args ...any) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	call := conn.Object(busName, path).CallWithContext(ctx, method, 0, args...)
	if call.Err != nil {
		return call.Err
	}
	if out == nil {
		return nil
	}
	return call.Store(out)
}

func (b *Bus) getProp(ctx context.Context, path dbus.ObjectPath, iface, prop string) (any, error) {
	var v dbus.Variant
	if err := b.call(ctx, path, propsIface+".Get", &v, iface, prop); err != nil {
		return nil, err
	}
	return v.Value(), nil
}

func (b *Bus) setProp(ctx context.Context, path dbus.ObjectPath, iface, prop string, val any) error {
	return b.call(ctx, path, propsIface+".Set", nil, iface, prop, dbus.MakeVariant(val))
}

// Available reports whether the kdeconnect daemon owns its bus name.
func (b *Bus) Available(ctx context.Context) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	var owned bool
	call := conn.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.NameHasOwner", 0, busName)
	if err := call.Store(&owned); err != nil {
		return classify(ctx, err, "query bus name owner")
	}
	if !owned {
		return failure.New(failure.BackendUnavailable, "%s is not running on the session bus", busName)
	}
	return nil
}

// SupportedPlugins lists the plugin ids a device advertises.
func (b *Bus) SupportedPlugins(ctx context.Context, device string) ([]string, error) {
	v, err := b.getProp(ctx, devicePath(device, ""), deviceIface, "supportedPlugins")
	if err != nil {
		return nil, classify(ctx, err, "read supported plugins")
	}
	plugins, ok := v.([]string)
	if !ok {
		return nil, failure.New(failure.ProtocolError, "supportedPlugins has type %T", v)
	}
	return plugins, nil
}

// FetchDevices enumerates every device kdeconnect knows about. Only a failed
// enumeration is an error; unreadable plugin properties leave the matching
// optional fields unset and unreadable devices are skipped.
func (b *Bus) FetchDevices(ctx context.Context) ([]state.Device, error) {
	var ids []string
	if err := b.call(ctx, daemonPath, daemonIface+".devices", &ids, false, false); err != nil {
		return nil, failure.Wrap(failure.BackendUnavailable, err, "list kdeconnect devices")
	}

	return collectDevices(ctx, ids, b.readDevice)
}

// collectDevices reads each enumerated device. A device whose core
// properties cannot be read, typically because it vanished after the
// enumeration, is left out so the cache's miss debounce handles it. Only a
// cancelled or expired context fails the whole fetch.
func collectDevices(ctx context.Context, ids []string, read func(context.Context, string) (state.Device, error)) ([]state.Device, error) {
	devices := make([]state.Device, 0, len(ids))
	for _, id := range ids {
		d, err := read(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, failure.Wrap(failure.BackendUnavailable, ctx.Err(), "read device %s", id)
			}
			continue
		}
		devices = append(devices, d)
	}
	return devices, nil
}

func (b *Bus) readDevice(ctx context.Context, id string) (state.Device, error) {
	d := state.Device{ID: id, Name: id}
	base := devicePath(id, "")

	if v, err := b.getProp(ctx, base, deviceIface, "name"); err == nil {
		if name, ok := v.(string); ok && strings.TrimSpace(name) != "" {
			d.Name = name
		}
	} else if ctx.Err() != nil {
		return d, failure.Wrap(failure.BackendUnavailable, ctx.Err(), "read device %s", id)
	}

	reachable, err := b.getBool(ctx, base, deviceIface, "isReachable")
	if err != nil {
		return d, failure.Wrap(failure.BackendUnavailable, err, "read reachability of %s", id)
	}
	d.Reachable = reachable

	paired, err := b.getBool(ctx, base, deviceIface, "isPaired")
	if err != nil {
		paired, err = b.getBool(ctx, base, deviceIface, "isTrusted")
	}
	if err != nil {
		return d, failure.Wrap(failure.BackendUnavailable, err, "read pairing of %s", id)
	}
	d.Paired = paired

	if !d.Reachable {
		return d, nil
	}

	// Plugin objects only exist for reachable, paired devices.
	if charge, ok := b.optionalInt(ctx, devicePath(id, "battery"), batteryIface, "charge"); ok {
		d.BatteryPercent = state.Int(charge)
		if charging, err := b.getBool(ctx, devicePath(id, "battery"), batteryIface, "isCharging"); err == nil {
			d.Charging = state.Bool(charging)
		}
	}
	if bars, ok := b.optionalInt(ctx, devicePath(id, "connectivity_report"), connIface, "cellularNetworkStrength"); ok {
		d.SignalPercent = signalPercent(bars)
	}
	if v, err := b.getProp(ctx, devicePath(id, "connectivity_report"), connIface, "cellularNetworkType"); err == nil {
		if s, ok := v.(string); ok {
			d.NetworkType = state.ParseNetworkType(s)
		}
	}

	var mounted bool
	if err := b.call(ctx, devicePath(id, "sftp"), sftpIface+".isMounted", &mounted); err == nil && mounted {
		var mountPoint string
		if err := b.call(ctx, devicePath(id, "sftp"), sftpIface+".mountPoint", &mountPoint); err == nil {
			d.Mounted = strings.TrimSpace(mountPoint) != ""
			d.Mountpoint = mountPoint
		}
	}

	if err := ctx.Err(); err != nil {
		return d, failure.Wrap(failure.BackendUnavailable, err, "read device %s", id)
	}
	return d, nil
}

func (b *Bus) getBool(ctx context.Context, path dbus.ObjectPath, iface, prop string) (bool, error) {
	v, err := b.getProp(ctx, path, iface, prop)
	if err != nil {
		return false, err
	}
	val, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("property %s is %T, not bool", prop, v)
	}
	return val, nil
}

func (b *Bus) optionalInt(ctx context.Context, path dbus.ObjectPath, iface, prop string) (int, bool) {
	v, err := b.getProp(ctx, path, iface, prop)
	if err != nil {
		return 0, false
	}
	n, ok := toInt(v)
	if !ok || n < 0 {
		return 0, false
	}
	return n, true
}

// Subscribe opens a dedicated connection and forwards one tick per
// refresh-worthy kdeconnect signal. Ticks are dropped while the consumer is
// behind; a single pending tick is enough to cause a refresh.
func (b *Bus) Subscribe(ctx context.Context) (*Subscription, error) {
	conn, err := b.dial()
	if err != nil {
		return nil, failure.Wrap(failure.BackendUnavailable, err, "connect to session bus")
	}
	if err := conn.AddMatchSignalContext(ctx, dbus.WithMatchPathNamespace(subscribeMatch)); err != nil {
		conn.Close()
		return nil, failure.Wrap(failure.BackendUnavailable, err, "subscribe to kdeconnect signals")
	}

	raw := make(chan *dbus.Signal, signalBuffer)
	conn.Signal(raw)

	out := make(chan struct{}, 1)
	var once sync.Once
	stop := func() { once.Do(func() { conn.Close() }) }

	go func() {
		defer close(out)
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			case sig, ok := <-raw:
				if !ok {
					return
				}
				if !isRefreshSignal(sig) {
					continue
				}
				select {
				case out <- struct{}{}:
				default:
				}
			}
		}
	}()

	return &Subscription{C: out, close: stop}, nil
}

// isRefreshSignal reports whether a kdeconnect signal may change cached state.
func isRefreshSignal(sig *dbus.Signal) bool {
	if sig == nil {
		return false
	}
	i := strings.LastIndexByte(sig.Name, '.')
	if i < 0 {
		return false
	}
	iface, member := sig.Name[:i], sig.Name[i+1:]
	switch iface {
	case deviceIface:
		return member == "reachableChanged" || member == "pairStateChanged" || member == "nameChanged"
	case batteryIface, connIface:
		return member == "refreshed"
	case sftpIface:
		return member == "mounted" || member == "unmounted"
	case daemonIface:
		return member == "deviceAdded" || member == "deviceRemoved" || member == "deviceVisibilityChanged"
	}
	return false
}

// signalPercent converts kdeconnect's 0-4 bar count to a percentage.
func signalPercent(bars int) *int {
	if bars < 0 {
		return nil
	}
	if bars > 4 {
		return state.Int(100)
	}
	return state.Int(bars * 25)
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case int:
		return n, true
	case uint32:
		return int(n), true
	case int16:
		return int(n), true
	case uint16:
		return int(n), true
	case byte:
		return int(n), true
	}
	return 0, false
}

// classify maps a D-Bus call error onto an action failure kind.
func classify(ctx context.Context, err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return failure.Wrap(failure.ActionTimeout, err, "%s timed out", what)
	}
	var fe *failure.Error
	if errors.As(err, &fe) {
		return err
	}
	var de dbus.Error
	if errors.As(err, &de) {
		return failure.Wrap(failure.ActionFailed, err, "%s", what)
	}
	return failure.Wrap(failure.BackendUnavailable, err, "%s", what)
}
