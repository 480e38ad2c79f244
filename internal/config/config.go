package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config captures the daemon and client settings read from config.toml.
type Config struct {
	DefaultDevice        string
	PollInterval         time.Duration
	BatteryWarnPercent   int
	BatteryCritPercent   int
	NotificationsEnabled bool
	LogLevel             string
	MetricsListen        string
	ActionTimeout        time.Duration
	ReadTimeout          time.Duration
	MissingThreshold     int
	LogFile              string
}

const (
	defaultConfigDir        = "~/.config"
	defaultPollInterval     = 10 * time.Second
	defaultBatteryWarn      = 30
	defaultBatteryCrit      = 15
	defaultLogLevel         = "info"
	defaultActionTimeout    = 10 * time.Second
	defaultReadTimeout      = 5 * time.Second
	defaultMissingThreshold = 2
	socketName              = "hyprconnect.sock"
	fallbackRuntimeDir      = "/tmp"
)

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		PollInterval:         defaultPollInterval,
		BatteryWarnPercent:   defaultBatteryWarn,
		BatteryCritPercent:   defaultBatteryCrit,
		NotificationsEnabled: true,
		LogLevel:             defaultLogLevel,
		ActionTimeout:        defaultActionTimeout,
		ReadTimeout:          defaultReadTimeout,
		MissingThreshold:     defaultMissingThreshold,
	}
}

type rawConfig struct {
	DefaultDevice        *string `toml:"default_device"`
	PollIntervalSeconds  *int    `toml:"poll_interval_seconds"`
	BatteryWarnPercent   *int    `toml:"battery_warn_percent"`
	BatteryCritPercent   *int    `toml:"battery_crit_percent"`
	NotificationsEnabled *bool   `toml:"notifications_enabled"`
	LogLevel             *string `toml:"log_level"`
	MetricsListen        *string `toml:"metrics_listen"`
	ActionTimeoutSeconds *int    `toml:"action_timeout_seconds"`
	ReadTimeoutSeconds   *int    `toml:"read_timeout_seconds"`
	MissingThreshold     *int    `toml:"missing_threshold"`
	LogFile              *string `toml:"log_file"`
}

// Load locates and parses config.toml, falling back to defaults when missing.
// An empty path resolves to $XDG_CONFIG_HOME/hyprconnect/config.toml.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if raw.DefaultDevice != nil {
		cfg.DefaultDevice = strings.TrimSpace(*raw.DefaultDevice)
	}
	if raw.PollIntervalSeconds != nil {
		secs := *raw.PollIntervalSeconds
		if secs < 1 {
			secs = 1
		}
		cfg.PollInterval = time.Duration(secs) * time.Second
	}
	if raw.BatteryWarnPercent != nil {
		cfg.BatteryWarnPercent = clampPercent(*raw.BatteryWarnPercent)
	}
	if raw.BatteryCritPercent != nil {
		cfg.BatteryCritPercent = clampPercent(*raw.BatteryCritPercent)
	}
	if raw.NotificationsEnabled != nil {
		cfg.NotificationsEnabled = *raw.NotificationsEnabled
	}
	if raw.LogLevel != nil && strings.TrimSpace(*raw.LogLevel) != "" {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(*raw.LogLevel))
	}
	if raw.MetricsListen != nil {
		cfg.MetricsListen = strings.TrimSpace(*raw.MetricsListen)
	}
	if raw.ActionTimeoutSeconds != nil && *raw.ActionTimeoutSeconds > 0 {
		cfg.ActionTimeout = time.Duration(*raw.ActionTimeoutSeconds) * time.Second
	}
	if raw.ReadTimeoutSeconds != nil && *raw.ReadTimeoutSeconds > 0 {
		cfg.ReadTimeout = time.Duration(*raw.ReadTimeoutSeconds) * time.Second
	}
	if raw.MissingThreshold != nil && *raw.MissingThreshold > 0 {
		cfg.MissingThreshold = *raw.MissingThreshold
	}
	if raw.LogFile != nil && strings.TrimSpace(*raw.LogFile) != "" {
		logFile, err := expandPath(*raw.LogFile)
		if err != nil {
			return Config{}, fmt.Errorf("log_file: %w", err)
		}
		cfg.LogFile = logFile
	}

	return cfg, nil
}

// DefaultPath returns the config.toml location used when Load gets "".
func DefaultPath() string {
	dir := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME"))
	if dir == "" {
		dir = defaultConfigDir
	}
	return filepath.Join(dir, "hyprconnect", "config.toml")
}

// SocketPath returns the daemon's IPC socket path.
func SocketPath() string {
	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		dir = fallbackRuntimeDir
	}
	return filepath.Join(dir, socketName)
}

// Battery classes returned by BatteryClass.
const (
	BatteryUnknown = "unknown"
	BatteryOK      = "ok"
	BatteryWarn    = "warn"
	BatteryCrit    = "crit"
)

// BatteryClass maps a battery level onto a severity class using the warn and
// crit thresholds. A nil level is BatteryUnknown.
func BatteryClass(percent *int, warn, crit int) string {
	if percent == nil {
		return BatteryUnknown
	}
	switch p := *percent; {
	case p < crit:
		return BatteryCrit
	case p < warn:
		return BatteryWarn
	default:
		return BatteryOK
	}
}

// BatteryClass applies the package-level function with c's thresholds.
func (c Config) BatteryClass(percent *int) string {
	return BatteryClass(percent, c.BatteryWarnPercent, c.BatteryCritPercent)
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(DefaultPath())
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
