package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/compare"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/config"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/errors"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/store"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/xrpl"
)

var statusJSON bool

// statusCmd probes every configured node once and prints the results.
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe configured nodes and show their health",
	Long: `Probe each configured node's websocket RPC once and report its state.

Shows server state, peer count, validated ledger, and round-trip latency
per node. Unreachable nodes show as disconnected.

Examples:
  xrplmon status
  xrplmon status --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return statusCommand()
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "output in JSON format")
	rootCmd.AddCommand(statusCmd)
}

// configRegistry adapts the config's node list to the comparator, so
// status works without touching the database.
type configRegistry struct {
	cfg *config.Config
}

func (r *configRegistry) ListNodes() ([]store.Node, error) {
	nodes := make([]store.Node, 0, len(r.cfg.Nodes))
	for _, n := range r.cfg.Nodes {
		nodes = append(nodes, store.Node{
			Name:   n.Name,
			Host:   n.Host,
			Port:   n.Port,
			Active: n.Name == r.cfg.Default,
		})
	}
	return nodes, nil
}

func statusCommand() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if len(cfg.Nodes) == 0 {
		return errors.New(errors.ErrConfig,
			"No nodes configured",
			"Run 'xrplmon init' to create a config with a node entry")
	}

	client := xrpl.NewClient(
		cfg.Transport.HandshakeTimeout,
		cfg.Transport.RequestTimeout,
		cfg.Transport.FallbackPorts,
		nil,
	)
	comparator := compare.NewComparator(client, &configRegistry{cfg: cfg}, nil)

	results, err := comparator.CompareAll(context.Background())
	if err != nil {
		return err
	}

	if statusJSON {
		return outputStatusJSON(results)
	}
	return outputStatusText(results)
}

func outputStatusJSON(results []compare.Result) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{"nodes": results})
}

func outputStatusText(results []compare.Result) error {
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NODE\tHOST\tSTATUS\tSTATE\tPEERS\tLEDGER\tLATENCY")

	for _, r := range results {
		marker := r.Node
		if r.Active {
			marker = r.Node + " *"
		}

		peers, ledger, latency := "-", "-", "-"
		if r.PeerCount != nil {
			peers = fmt.Sprintf("%d", *r.PeerCount)
		}
		if r.LedgerIndex != nil {
			ledger = fmt.Sprintf("%d", *r.LedgerIndex)
		}
		if r.LatencyMs != nil {
			latency = fmt.Sprintf("%.0fms", *r.LatencyMs)
		}

		state := r.ServerState
		if state == "" {
			state = "-"
		}

		fmt.Fprintf(w, "%s\t%s:%d\t%s\t%s\t%s\t%s\t%s\n",
			marker, r.Host, r.Port, r.Status, state, peers, ledger, latency)
	}
	return w.Flush()
}
