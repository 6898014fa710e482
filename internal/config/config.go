// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Keys are flat snake_case so env vars map 1:1 (HANDNAV_TICK_INTERVAL_MS).
// - New returns defaults; Load layers file and env on top and validates.
package config

import "time"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level" validate:"omitempty,oneof=debug info warn warning error"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format" validate:"oneof=text json"`

	// LogFile, when set, receives a rotated copy of the log stream.
	LogFile string `koanf:"log_file"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Threshold is the minimum confidence (0-100) for a reading to trigger an action.
	Threshold float64 `koanf:"threshold" validate:"gte=0,lte=100"`

	// TickIntervalMS is the recognition interval in milliseconds.
	TickIntervalMS int `koanf:"tick_interval_ms" validate:"gt=0"`

	// ScrollDelta is the pixel distance for pointing_up/pointing_down.
	ScrollDelta int `koanf:"scroll_delta" validate:"gt=0"`

	// Camera resolution requested on session start.
	CameraWidth  int `koanf:"camera_width" validate:"gt=0"`
	CameraHeight int `koanf:"camera_height" validate:"gt=0"`

	// CameraDenied and CameraUnavailable make the simulated camera fail.
	CameraDenied      bool `koanf:"camera_denied"`
	CameraUnavailable bool `koanf:"camera_unavailable"`

	// Source selects the recognition source: random or script.
	Source string `koanf:"source" validate:"oneof=random script"`

	// ScriptPath points at a YAML readings script when Source is "script".
	ScriptPath string `koanf:"script_path" validate:"required_if=Source script"`

	// RandomSeed seeds the random source; 0 picks a time-based seed.
	RandomSeed int64 `koanf:"random_seed"`

	// BroadcastTransport selects memory, redis or none.
	BroadcastTransport string `koanf:"broadcast_transport" validate:"oneof=memory redis none"`

	// BroadcastChannel is the channel name shared by all tabs.
	BroadcastChannel string `koanf:"broadcast_channel" validate:"required"`

	// Redis connection for the redis transport.
	RedisAddr     string `koanf:"redis_addr" validate:"required_if=BroadcastTransport redis"`
	RedisPassword string `koanf:"redis_password"`
	RedisDB       int    `koanf:"redis_db" validate:"gte=0"`
	RedisPrefix   string `koanf:"redis_prefix"`

	// MailboxSize bounds each subscriber's pending message queue.
	MailboxSize int `koanf:"mailbox_size" validate:"gt=0"`

	// HistorySize bounds the in-memory gesture history.
	HistorySize int `koanf:"history_size" validate:"gt=0"`

	// MaxHistoryLimit caps GET /history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit" validate:"gt=0"`

	// WSPublishRate and WSPublishBurst limit messages a single tab may publish.
	WSPublishRate  float64 `koanf:"ws_publish_rate" validate:"gt=0"`
	WSPublishBurst int     `koanf:"ws_publish_burst" validate:"gt=0"`

	// RemoteActions executes gestures received from other tabs locally.
	RemoteActions bool `koanf:"remote_actions"`

	// FullscreenSupported toggles the virtual host's fullscreen capability.
	FullscreenSupported bool `koanf:"fullscreen_supported"`

	// Autostart starts a session when the server boots.
	Autostart bool `koanf:"autostart"`

	// MetricsEnabled turns Prometheus recording on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace prefixes every metric name.
	MetricsNamespace string `koanf:"metrics_namespace" validate:"required"`

	// MetricsLabels are constant labels added to every series. File only.
	MetricsLabels map[string]string `koanf:"metrics_labels"`

	// MetricsRefreshMS paces the system and history gauge updaters.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms" validate:"gt=0"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		Threshold:           70,
		TickIntervalMS:      500,
		ScrollDelta:         100,
		CameraWidth:         640,
		CameraHeight:        480,
		Source:              "random",
		BroadcastTransport:  "memory",
		BroadcastChannel:    "gesture-navigation",
		RedisPrefix:         "handnav",
		MailboxSize:         256,
		HistorySize:         500,
		MaxHistoryLimit:     100,
		WSPublishRate:       10,
		WSPublishBurst:      20,
		RemoteActions:       true,
		FullscreenSupported: true,
		MetricsEnabled:      true,
		MetricsNamespace:    "handnav",
		MetricsRefreshMS:    10000,
	}
}

// TickInterval returns TickIntervalMS as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}
