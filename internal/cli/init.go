package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/config"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/errors"
)

var (
	initHostFlag string
	initPortFlag int
	initForce    bool
)

// initCmd creates a new xrplmon.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create xrplmon.yaml configuration",
	Long: `Initialize a new monitor configuration file.

Creates an xrplmon.yaml in the current directory with sensible defaults
and one node entry.

Examples:
  xrplmon init
  xrplmon init --host r.ripple.com --port 51233
  xrplmon init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initHostFlag, initPortFlag, initForce)
	},
}

func init() {
	initCmd.Flags().StringVar(&initHostFlag, "host", "localhost", "node hostname")
	initCmd.Flags().IntVar(&initPortFlag, "port", 6006, "node websocket port")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite existing config")
	rootCmd.AddCommand(initCmd)
}

func initCommand(host string, port int, force bool) error {
	configPath := filepath.Join(".", config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Config file already exists: %s", configPath),
			"Use --force to overwrite")
	}

	cfg := config.DefaultConfig()
	cfg.Nodes = []config.NodeConfig{{
		Name: "primary",
		Host: host,
		Port: port,
	}}
	cfg.Default = "primary"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to generate config", "")
	}

	header := `# xrplmon configuration
# Run 'xrplmon serve' to start the monitor
# Run 'xrplmon status' to probe configured nodes

`
	if err := os.WriteFile(configPath, []byte(header+string(data)), 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("Failed to write config file: %s", configPath),
			"Check directory permissions")
	}

	fmt.Printf("Created %s\n\n", configPath)
	fmt.Println("Next steps:")
	fmt.Println("  xrplmon status  - Probe the configured node")
	fmt.Println("  xrplmon serve   - Start the monitor")

	return nil
}
