// Package ui renders daemon state for hyprconnectctl.
//
// Three presentations share the same formatting helpers:
//
//   - status.go: plain-text status lines and device tables for scripts
//   - status.go (Waybar): a single JSON object for a Waybar custom module
//   - app.go: the Bubble Tea "watch" view, which polls the daemon once a
//     second and lets the user trigger a discovery refresh
//
// Battery colors come from config.BatteryClass so the watch view, Waybar
// and any other consumer agree on where warn and crit begin.
package ui
