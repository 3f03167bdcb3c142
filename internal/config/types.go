package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete xrplmon.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Listen is the address the dashboard API binds to.
	Listen string `yaml:"listen" mapstructure:"listen"`

	// Database is the path to the sqlite database file.
	Database string `yaml:"database" mapstructure:"database"`

	// Nodes seeds the node registry on first start.
	Nodes []NodeConfig `yaml:"nodes" mapstructure:"nodes"`

	// Default names the node that starts out active.
	// Defaults to the first entry in Nodes.
	Default string `yaml:"default" mapstructure:"default"`

	Poll      PollConfig      `yaml:"poll" mapstructure:"poll"`
	Transport TransportConfig `yaml:"transport" mapstructure:"transport"`
	Alerts    AlertsConfig    `yaml:"alerts" mapstructure:"alerts"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// NodeConfig describes one rippled node the monitor can talk to.
type NodeConfig struct {
	// Name identifies the node in the registry and the comparison view.
	Name string `yaml:"name" mapstructure:"name"`

	// Host is the hostname or IP of the node.
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the primary websocket port.
	Port int `yaml:"port" mapstructure:"port"`

	// AdminPort is the admin websocket port, if one is exposed.
	AdminPort int `yaml:"admin_port" mapstructure:"admin_port"`
}

// PollConfig controls the snapshot collector.
type PollConfig struct {
	// Interval between collection ticks.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// RetentionDays is how long snapshots are kept before pruning.
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
}

// TransportConfig controls the websocket client's timeout and fallback behavior.
type TransportConfig struct {
	// HandshakeTimeout bounds how long the connection may take to become ready.
	HandshakeTimeout time.Duration `yaml:"handshake_timeout" mapstructure:"handshake_timeout"`

	// RequestTimeout bounds the full round trip, inclusive of the handshake.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`

	// FallbackPorts are tried in order when the preferred port fails.
	FallbackPorts []int `yaml:"fallback_ports" mapstructure:"fallback_ports"`
}

// AlertsConfig controls the alert engine.
type AlertsConfig struct {
	// DedupWindow is the cool-down during which repeat breaches of the
	// same metric do not create new alerts.
	DedupWindow time.Duration `yaml:"dedup_window" mapstructure:"dedup_window"`
}

// LogConfig controls process logging.
type LogConfig struct {
	// Level: "debug", "info", "warn", or "error".
	Level string `yaml:"level" mapstructure:"level"`

	// Format: "text" or "json".
	Format string `yaml:"format" mapstructure:"format"`

	// File enables rotated file logging when set.
	File string `yaml:"file" mapstructure:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:  CurrentConfigVersion,
		Listen:   ":8090",
		Database: "xrplmon.db",
		Poll: PollConfig{
			Interval:      30 * time.Second,
			RetentionDays: 7,
		},
		Transport: TransportConfig{
			HandshakeTimeout: 5 * time.Second,
			RequestTimeout:   10 * time.Second,
			FallbackPorts:    []int{6006, 51233, 5005, 443},
		},
		Alerts: AlertsConfig{
			DedupWindow: 5 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
