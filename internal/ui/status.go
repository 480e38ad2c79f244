package ui

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/hyprconnect/hyprconnect/internal/config"
	"github.com/hyprconnect/hyprconnect/internal/ipc"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

// Device states used for badges and Waybar classes.
const (
	stateConnected    = "connected"
	stateDisconnected = "disconnected"
	stateUnpaired     = "unpaired"
	stateMounted      = "mounted"

	batteryOK      = config.BatteryOK
	batteryWarn    = config.BatteryWarn
	batteryCrit    = config.BatteryCrit
	batteryUnknown = config.BatteryUnknown
)

// Thresholds are the battery warn/crit percentages.
type Thresholds struct {
	Warn int
	Crit int
}

// ThresholdsFrom extracts Thresholds from a loaded config.
func ThresholdsFrom(cfg config.Config) Thresholds {
	return Thresholds{Warn: cfg.BatteryWarnPercent, Crit: cfg.BatteryCritPercent}
}

func (t Thresholds) class(percent *int) string {
	return config.BatteryClass(percent, t.Warn, t.Crit)
}

// DeviceState summarizes pairing and reachability as one word.
func DeviceState(d state.Device) string {
	switch {
	case !d.Paired:
		return stateUnpaired
	case d.Reachable:
		return stateConnected
	default:
		return stateDisconnected
	}
}

func percentText(p *int) string {
	if p == nil {
		return "--"
	}
	return fmt.Sprintf("%d%%", *p)
}

// BatteryText renders the battery level with a charging marker.
func BatteryText(d state.Device) string {
	text := percentText(d.BatteryPercent)
	if d.Charging != nil && *d.Charging {
		text += " (charging)"
	}
	return text
}

// SignalText renders cellular strength and network type.
func SignalText(d state.Device) string {
	text := percentText(d.SignalPercent)
	if d.NetworkType != "" && d.NetworkType != state.NetworkUnknown {
		text += " " + strings.ToUpper(string(d.NetworkType))
	}
	return text
}

// StatusLine renders one device on a single line.
func StatusLine(d state.Device) string {
	parts := []string{
		fmt.Sprintf("%s (%s)", d.Name, d.ID),
		DeviceState(d),
		"battery " + BatteryText(d),
		"signal " + SignalText(d),
	}
	if d.Mounted {
		parts = append(parts, "mounted at "+d.Mountpoint)
	}
	return strings.Join(parts, " · ")
}

// WriteStatus prints the status response: the targeted device first, then a
// device count and backend health.
func WriteStatus(w io.Writer, st *ipc.State) {
	if st == nil {
		fmt.Fprintln(w, "No state available")
		return
	}
	if st.Backend != nil && !st.Backend.Online {
		fmt.Fprintf(w, "Backend offline: %s\n", st.Backend.LastError)
	}
	if st.Device != nil {
		fmt.Fprintln(w, StatusLine(*st.Device))
	} else {
		fmt.Fprintln(w, "No paired and reachable device")
	}
	fmt.Fprintf(w, "Devices known: %d (generation %d, updated %s)\n",
		len(st.Devices), st.Generation, formatUpdated(st))
}

// WriteDevices prints a device table.
func WriteDevices(w io.Writer, devices []state.Device, emptyText string) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, emptyText)
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tID\tSTATE\tBATTERY\tSIGNAL\tMOUNT")
	for _, d := range devices {
		mount := "-"
		if d.Mounted {
			mount = d.Mountpoint
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			d.Name, d.ID, DeviceState(d), BatteryText(d), SignalText(d), mount)
	}
	return tw.Flush()
}

func formatUpdated(st *ipc.State) string {
	if st.UpdatedAt.IsZero() {
		return "never"
	}
	return st.UpdatedAt.Local().Format("15:04:05")
}

// WaybarPayload is the JSON object a Waybar custom module reads.
type WaybarPayload struct {
	Text       string `json:"text"`
	Tooltip    string `json:"tooltip"`
	Class      string `json:"class"`
	Percentage int    `json:"percentage,omitempty"`
}

const (
	iconPhone        = "󰄜"
	iconPhoneOff     = "󰄰"
	iconMounted      = "󰛳"
	iconCharging     = ""
	iconSignalNone   = "󰣾"
	iconSignalWeak   = "󰣴"
	iconSignalFair   = "󰣶"
	iconSignalGood   = "󰣸"
	iconSignalStrong = "󰣺"
)

// Waybar builds the module payload from a status response. The class is
// the battery class for the shown device, or "disconnected" when no device
// is reachable.
func Waybar(st *ipc.State, th Thresholds) WaybarPayload {
	offline := WaybarPayload{Text: iconPhoneOff, Tooltip: "Phone: offline", Class: stateDisconnected}
	if st == nil {
		return offline
	}

	var dev *state.Device
	if st.Device != nil && st.Device.Reachable {
		dev = st.Device
	} else {
		for i := range st.Devices {
			if st.Devices[i].Reachable {
				dev = &st.Devices[i]
				break
			}
		}
	}
	if dev == nil {
		return offline
	}

	connected := 0
	for _, d := range st.Devices {
		if d.Reachable {
			connected++
		}
	}

	text := signalIcon(dev.SignalPercent) + " " + iconPhone
	if dev.Mounted {
		text += " " + iconMounted
	}
	text += " " + percentText(dev.BatteryPercent)
	if dev.Charging != nil && *dev.Charging {
		text += " " + iconCharging
	}

	mounted, mountPoint := "No", "--"
	if dev.Mounted {
		mounted, mountPoint = "Yes", dev.Mountpoint
	}
	paired := "No"
	if dev.Paired {
		paired = "Yes"
	}
	network := "Unknown"
	if dev.NetworkType != "" {
		network = strings.ToUpper(string(dev.NetworkType))
	}

	tooltip := strings.Join([]string{
		dev.Name,
		"Battery: " + BatteryText(*dev),
		"Status: Connected",
		"Paired: " + paired,
		"Mounted: " + mounted,
		"Mount point: " + mountPoint,
		"Signal: " + percentText(dev.SignalPercent),
		"Network: " + network,
		fmt.Sprintf("Devices connected: %d", connected),
	}, "\n")

	payload := WaybarPayload{Text: text, Tooltip: tooltip, Class: th.class(dev.BatteryPercent)}
	if dev.BatteryPercent != nil {
		payload.Percentage = *dev.BatteryPercent
	}
	return payload
}

func signalIcon(p *int) string {
	if p == nil {
		return iconSignalNone
	}
	switch v := *p; {
	case v >= 75:
		return iconSignalStrong
	case v >= 50:
		return iconSignalGood
	case v >= 30:
		return iconSignalFair
	case v >= 10:
		return iconSignalWeak
	}
	return iconSignalNone
}
