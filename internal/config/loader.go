package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/errors"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = "xrplmon.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/xrplmon"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
)

// Load reads config from the specified path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Config file not found",
				"Run 'xrplmon init' to create a config file, or specify one with --config")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read config file",
			"Check the file exists and is valid YAML")
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
//  1. Explicit path (from --config flag)
//  2. xrplmon.yaml in the current directory
//  3. ~/.config/xrplmon/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	// 1. Explicit path takes precedence
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	// 2. Current directory
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	// 3. Global config
	if home, _ := os.UserHomeDir(); home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault loads config from the found path, or returns defaults if not found.
// This is useful for commands like 'xrplmon init' that should work without existing config.
func LoadOrDefault() (*Config, error) {
	path, err := Find("")
	if err != nil {
		return nil, err
	}

	if path == "" {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	// Start with defaults
	cfg := DefaultConfig()

	setDefaults(v)

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+path)
	}

	// An explicit empty fallback list is honored; a missing key gets defaults.
	if !v.IsSet("transport.fallback_ports") {
		cfg.Transport.FallbackPorts = DefaultConfig().Transport.FallbackPorts
	}

	if cfg.Default == "" && len(cfg.Nodes) > 0 {
		cfg.Default = cfg.Nodes[0].Name
	}

	return cfg, nil
}

// setDefaults configures viper defaults for nested keys so partial config
// files still produce a complete Config.
func setDefaults(v *viper.Viper) {
	v.SetDefault("listen", ":8090")
	v.SetDefault("database", "xrplmon.db")
	v.SetDefault("poll.interval", "30s")
	v.SetDefault("poll.retention_days", 7)
	v.SetDefault("transport.handshake_timeout", "5s")
	v.SetDefault("transport.request_timeout", "10s")
	v.SetDefault("alerts.dedup_window", "5m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
