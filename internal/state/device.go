package state

import (
	"strings"
	"time"
)

// NetworkType is the cellular (or wifi) technology reported by a device.
type NetworkType string

const (
	NetworkUnknown NetworkType = "unknown"
	Network2G      NetworkType = "2g"
	Network3G      NetworkType = "3g"
	Network4G      NetworkType = "4g"
	Network5G      NetworkType = "5g"
	NetworkWifi    NetworkType = "wifi"
)

// ParseNetworkType maps a backend technology name (e.g. "LTE", "HSPA+",
// "GSM") onto a NetworkType. Empty input yields "".
func ParseNetworkType(raw string) NetworkType {
	s := strings.ToUpper(strings.TrimSpace(raw))
	switch s {
	case "":
		return ""
	case "GSM", "GPRS", "EDGE", "CDMA", "IDEN", "2G":
		return Network2G
	case "UMTS", "HSPA", "HSPA+", "HSDPA", "HSUPA", "EVDO", "EVDO_A", "EVDO_B", "CDMA2000", "1XRTT", "TD_SCDMA", "3G":
		return Network3G
	case "LTE", "LTE_CA", "4G":
		return Network4G
	case "5G", "NR", "NR_NSA", "NR_SA":
		return Network5G
	case "WIFI", "WLAN", "WI-FI":
		return NetworkWifi
	default:
		return NetworkUnknown
	}
}

// Device is one cached companion device. Optional attributes are nil when the
// backend does not report them.
type Device struct {
	ID             string      `json:"id"`
	Name           string      `json:"name"`
	Paired         bool        `json:"paired"`
	Reachable      bool        `json:"reachable"`
	BatteryPercent *int        `json:"battery_percent,omitempty"`
	Charging       *bool       `json:"charging,omitempty"`
	SignalPercent  *int        `json:"signal_percent,omitempty"`
	NetworkType    NetworkType `json:"network_type,omitempty"`
	Mounted        bool        `json:"mounted"`
	Mountpoint     string      `json:"mountpoint,omitempty"`
	LastUpdated    time.Time   `json:"last_updated"`
}

// Normalize enforces the record invariants: percentages are clamped to
// 0..100, charging is dropped without a battery level and a device is only
// mounted when it has a mount point.
func (d Device) Normalize() Device {
	d.ID = strings.TrimSpace(d.ID)
	d.Mountpoint = strings.TrimSpace(d.Mountpoint)
	if d.Name == "" {
		d.Name = d.ID
	}
	d.BatteryPercent = clampPercent(d.BatteryPercent)
	d.SignalPercent = clampPercent(d.SignalPercent)
	if d.BatteryPercent == nil {
		d.Charging = nil
	}
	if d.Mountpoint == "" {
		d.Mounted = false
	}
	return d
}

// Clone returns a copy that shares no pointers with d.
func (d Device) Clone() Device {
	d.BatteryPercent = cloneInt(d.BatteryPercent)
	d.SignalPercent = cloneInt(d.SignalPercent)
	if d.Charging != nil {
		v := *d.Charging
		d.Charging = &v
	}
	return d
}

// Usable reports whether actions that need a live link may target the device.
func (d Device) Usable() bool {
	return d.Paired && d.Reachable
}

// Int and Bool are small helpers for building optional fields.
func Int(v int) *int    { return &v }
func Bool(v bool) *bool { return &v }

func clampPercent(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	if v < 0 {
		return nil
	}
	if v > 100 {
		v = 100
	}
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
