package kdeconnect

import (
	"context"
	"errors"
	"testing"

	"github.com/godbus/dbus/v5"

	"github.com/hyprconnect/hyprconnect/internal/failure"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

func TestDeviceFromPath(t *testing.T) {
	tests := []struct {
		path dbus.ObjectPath
		want string
	}{
		{"/modules/kdeconnect/devices/abc123", "abc123"},
		{"/modules/kdeconnect/devices/abc123/battery", "abc123"},
		{"/modules/kdeconnect", ""},
		{"/org/other", ""},
	}
	for _, tt := range tests {
		if got := deviceFromPath(tt.path); got != tt.want {
			t.Fatalf("deviceFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDevicePath(t *testing.T) {
	if got := devicePath("abc", ""); got != "/modules/kdeconnect/devices/abc" {
		t.Fatalf("devicePath = %q", got)
	}
	if got := devicePath("abc", "sftp"); got != "/modules/kdeconnect/devices/abc/sftp" {
		t.Fatalf("devicePath = %q", got)
	}
}

func TestSignalPercent(t *testing.T) {
	tests := []struct {
		bars int
		want *int
	}{
		{-1, nil},
		{0, intPtr(0)},
		{2, intPtr(50)},
		{4, intPtr(100)},
		{7, intPtr(100)},
	}
	for _, tt := range tests {
		got := signalPercent(tt.bars)
		switch {
		case got == nil && tt.want == nil:
		case got == nil || tt.want == nil || *got != *tt.want:
			t.Fatalf("signalPercent(%d) = %v, want %v", tt.bars, deref(got), deref(tt.want))
		}
	}
}

func TestIsRefreshSignal(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"org.kde.kdeconnect.device.reachableChanged", true},
		{"org.kde.kdeconnect.device.pairStateChanged", true},
		{"org.kde.kdeconnect.device.battery.refreshed", true},
		{"org.kde.kdeconnect.device.connectivity_report.refreshed", true},
		{"org.kde.kdeconnect.device.sftp.mounted", true},
		{"org.kde.kdeconnect.daemon.deviceAdded", true},
		{"org.kde.kdeconnect.device.mprisremote.propertiesChanged", false},
		{"org.kde.kdeconnect.device.somethingElse", false},
		{"nodots", false},
	}
	for _, tt := range tests {
		if got := isRefreshSignal(&dbus.Signal{Name: tt.name}); got != tt.want {
			t.Fatalf("isRefreshSignal(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
	if isRefreshSignal(nil) {
		t.Fatal("isRefreshSignal(nil) = true")
	}
}

func TestToInt(t *testing.T) {
	for _, v := range []any{int32(42), int64(42), 42, uint32(42), int16(42), uint16(42), byte(42)} {
		if n, ok := toInt(v); !ok || n != 42 {
			t.Fatalf("toInt(%T) = %d, %v", v, n, ok)
		}
	}
	if _, ok := toInt("42"); ok {
		t.Fatal("toInt(string) should fail")
	}
}

func TestClassify(t *testing.T) {
	ctx := context.Background()
	if classify(ctx, nil, "x") != nil {
		t.Fatal("classify(nil) should be nil")
	}
	if err := classify(ctx, dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownMethod"}, "x"); !failure.Is(err, failure.ActionFailed) {
		t.Fatalf("dbus error = %v, want ActionFailed", err)
	}
	if err := classify(ctx, context.DeadlineExceeded, "x"); !failure.Is(err, failure.ActionTimeout) {
		t.Fatalf("deadline = %v, want ActionTimeout", err)
	}
	if err := classify(ctx, errors.New("broken pipe"), "x"); !failure.Is(err, failure.BackendUnavailable) {
		t.Fatalf("plain error = %v, want BackendUnavailable", err)
	}
	orig := failure.New(failure.DeviceUnreachable, "gone")
	if err := classify(ctx, orig, "x"); err != orig {
		t.Fatalf("failure error should pass through, got %v", err)
	}
}

func TestFetchDevicesWithoutBusIsBackendUnavailable(t *testing.T) {
	b := NewBus(func() (*dbus.Conn, error) { return nil, errors.New("no session bus") })
	if _, err := b.FetchDevices(context.Background()); !failure.Is(err, failure.BackendUnavailable) {
		t.Fatalf("FetchDevices error = %v, want BackendUnavailable", err)
	}
	if _, err := b.Subscribe(context.Background()); !failure.Is(err, failure.BackendUnavailable) {
		t.Fatalf("Subscribe error = %v, want BackendUnavailable", err)
	}
	if err := b.Available(context.Background()); !failure.Is(err, failure.BackendUnavailable) {
		t.Fatalf("Available error = %v, want BackendUnavailable", err)
	}
}

func TestCollectDevicesSkipsUnreadableDevice(t *testing.T) {
	read := func(_ context.Context, id string) (state.Device, error) {
		if id == "gone" {
			return state.Device{}, dbus.Error{Name: "org.freedesktop.DBus.Error.UnknownObject"}
		}
		return state.Device{ID: id, Reachable: true}, nil
	}
	devices, err := collectDevices(context.Background(), []string{"a", "gone", "b"}, read)
	if err != nil {
		t.Fatalf("collectDevices error = %v", err)
	}
	if len(devices) != 2 || devices[0].ID != "a" || devices[1].ID != "b" {
		t.Fatalf("devices = %+v, want a and b", devices)
	}
}

func TestCollectDevicesFailsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	read := func(ctx context.Context, id string) (state.Device, error) {
		cancel()
		return state.Device{}, ctx.Err()
	}
	if _, err := collectDevices(ctx, []string{"a", "b"}, read); !failure.Is(err, failure.BackendUnavailable) {
		t.Fatalf("collectDevices error = %v, want BackendUnavailable", err)
	}
}

func intPtr(v int) *int { return &v }

func deref(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
