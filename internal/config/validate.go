package config

import (
	"fmt"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but xrplmon only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade xrplmon, or set version: 1")
	}

	if cfg.Poll.Interval <= 0 {
		return errors.New(errors.ErrConfig,
			"poll.interval must be positive",
			"Use a duration like 30s or 1m")
	}

	if cfg.Poll.RetentionDays < 1 {
		return errors.New(errors.ErrConfig,
			"poll.retention_days must be at least 1",
			"Snapshots need a retention window to be pruned against")
	}

	if cfg.Transport.HandshakeTimeout <= 0 || cfg.Transport.RequestTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"transport timeouts must be positive",
			"Use durations like 5s and 10s")
	}

	if cfg.Transport.HandshakeTimeout > cfg.Transport.RequestTimeout {
		return errors.New(errors.ErrConfig,
			"transport.handshake_timeout cannot exceed transport.request_timeout",
			"The handshake budget is spent inside the overall request budget")
	}

	if cfg.Alerts.DedupWindow <= 0 {
		return errors.New(errors.ErrConfig,
			"alerts.dedup_window must be positive",
			"Use a duration like 5m")
	}

	for _, port := range cfg.Transport.FallbackPorts {
		if port < 1 || port > 65535 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("fallback port %d is out of range", port),
				"Ports must be between 1 and 65535")
		}
	}

	seen := make(map[string]bool)
	for _, node := range cfg.Nodes {
		if node.Name == "" {
			return errors.New(errors.ErrConfig,
				"every node needs a name",
				"Add a name: field to each entry under nodes:")
		}
		if seen[node.Name] {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("duplicate node name %q", node.Name),
				"Node names must be unique")
		}
		seen[node.Name] = true

		if node.Host == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("node %q has no host", node.Name),
				"Add a host: field with the node's hostname or IP")
		}
		if node.Port < 1 || node.Port > 65535 {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("node %q has an invalid port %d", node.Name, node.Port),
				"Set port: to the node's websocket port (commonly 6006 or 51233)")
		}
		if node.AdminPort != 0 && (node.AdminPort < 1 || node.AdminPort > 65535) {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("node %q has an invalid admin_port %d", node.Name, node.AdminPort),
				"Remove admin_port: or set it to a valid port")
		}
	}

	if cfg.Default != "" && !seen[cfg.Default] {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("default node %q is not defined under nodes:", cfg.Default),
			"Set default: to the name of a configured node")
	}

	return nil
}
