package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
)

const (
	notificationsName  = "org.freedesktop.Notifications"
	notificationsPath  = "/org/freedesktop/Notifications"
	notificationsIface = "org.freedesktop.Notifications"

	appName  = "Hyprconnect"
	appIcon  = "smartphone"
	expireMS = int32(5000)
)

// DesktopSink posts events through the freedesktop notification service on
// the session bus.
type DesktopSink struct {
	dial func() (*dbus.Conn, error)

	mu   sync.Mutex
	conn *dbus.Conn
}

// NewDesktopSink returns a sink that dials the session bus on first use.
func NewDesktopSink(dial func() (*dbus.Conn, error)) *DesktopSink {
	if dial == nil {
		dial = func() (*dbus.Conn, error) { return dbus.ConnectSessionBus() }
	}
	return &DesktopSink{dial: dial}
}

func (s *DesktopSink) Notify(ctx context.Context, ev Event) error {
	conn, err := s.connection()
	if err != nil {
		return err
	}
	summary := ev.Name
	if summary == "" {
		summary = ev.DeviceID
	}
	call := conn.Object(notificationsName, notificationsPath).CallWithContext(ctx,
		notificationsIface+".Notify", 0,
		appName, uint32(0), appIcon, summary, ev.Kind.Body(),
		[]string{}, map[string]dbus.Variant{}, expireMS)
	if call.Err != nil {
		return fmt.Errorf("notify %s: %w", ev.DeviceID, call.Err)
	}
	return nil
}

func (s *DesktopSink) connection() (*dbus.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil && s.conn.Connected() {
		return s.conn, nil
	}
	conn, err := s.dial()
	if err != nil {
		return nil, fmt.Errorf("connect to session bus: %w", err)
	}
	s.conn = conn
	return conn, nil
}

// Close releases the bus connection.
func (s *DesktopSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}
