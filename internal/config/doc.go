// Package config loads hyprconnect's TOML configuration.
//
// # Configuration Discovery
//
// Load resolves the file in this order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use $XDG_CONFIG_HOME/hyprconnect/config.toml
//     (~/.config/hyprconnect/config.toml when XDG_CONFIG_HOME is unset)
//  3. If the file doesn't exist, fall back to Default()
//  4. Keys missing from the file keep their defaults
//
// # TOML Format
//
//	default_device = ""            # empty: first paired+reachable device
//	poll_interval_seconds = 10     # clamped to >= 1
//	battery_warn_percent = 30
//	battery_crit_percent = 15
//	notifications_enabled = true
//	log_level = "info"
//	metrics_listen = ""            # e.g. "127.0.0.1:9477"; empty disables
//	action_timeout_seconds = 10
//	read_timeout_seconds = 5
//	missing_threshold = 2          # consecutive misses before eviction
//
// # Socket Location
//
// SocketPath returns $XDG_RUNTIME_DIR/hyprconnect.sock, or
// /tmp/hyprconnect.sock when the runtime directory is unset. Both the daemon
// and hyprconnectctl use it.
//
// # Battery Classes
//
// BatteryClass is a pure function of a battery level and the two threshold
// keys. The daemon never consults the thresholds itself; presentation code
// calls BatteryClass so the mapping lives in one place.
package config
