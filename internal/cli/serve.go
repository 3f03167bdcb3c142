package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/alert"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/collector"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/compare"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/config"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/logger"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/notify"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/server"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/store"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/xrpl"
)

// serveCmd runs the monitor: collector loop plus HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitor and its HTTP API",
	Long: `Start the snapshot collector and serve the dashboard API.

The collector polls the active node on the configured interval, records
snapshots, and raises alerts on threshold breaches. Stop with Ctrl+C;
in-flight notifications are flushed before exit.

Examples:
  xrplmon serve
  xrplmon serve --config /etc/xrplmon/xrplmon.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serveCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})

	st, err := store.Open(cfg.Database)
	if err != nil {
		return err
	}
	if err := st.SeedDefaultThresholds(); err != nil {
		return err
	}
	if err := st.SeedNodes(registryNodes(cfg), cfg.Default); err != nil {
		return err
	}

	client := xrpl.NewClient(
		cfg.Transport.HandshakeTimeout,
		cfg.Transport.RequestTimeout,
		cfg.Transport.FallbackPorts,
		logger.WithComponent(log, "transport"),
	)
	dispatcher := notify.NewDispatcher(st, nil, logger.WithComponent(log, "notify"))
	engine := alert.NewEngine(st, dispatcher, cfg.Alerts.DedupWindow, logger.WithComponent(log, "alert"))
	coll := collector.New(client, st, engine, dispatcher,
		cfg.Poll.Interval, cfg.Poll.RetentionDays, logger.WithComponent(log, "collector"))
	comparator := compare.NewComparator(client, st, logger.WithComponent(log, "compare"))
	api := server.New(cfg.Listen, st, comparator, logger.WithComponent(log, "server"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithField("interval", cfg.Poll.Interval).Info("monitor starting")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return coll.Run(gctx) })
	g.Go(func() error { return api.Run(gctx) })

	err = g.Wait()
	dispatcher.Flush()
	log.Info("monitor stopped")
	return err
}

// loadConfig resolves, loads, and validates the config. A missing config
// file falls back to defaults so the monitor can run against a database
// seeded earlier.
func loadConfig() (*config.Config, error) {
	path, err := config.Find(Config())
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if path == "" {
		cfg = config.DefaultConfig()
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// registryNodes converts configured nodes to registry rows.
func registryNodes(cfg *config.Config) []store.Node {
	nodes := make([]store.Node, 0, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		nodes = append(nodes, store.Node{
			Name:      n.Name,
			Host:      n.Host,
			Port:      n.Port,
			AdminPort: n.AdminPort,
		})
	}
	return nodes
}
