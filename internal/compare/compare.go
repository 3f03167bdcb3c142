// Package compare probes every registered node in parallel for the
// side-by-side comparison view.
package compare

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/store"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/xrpl"
)

// Node statuses in the comparison view.
const (
	StatusOK           = "ok"
	StatusDegraded     = "degraded"
	StatusDisconnected = "disconnected"
)

// Prober is the single-port probe surface of the transport client.
// Comparison probes deliberately skip port fallback: the view should show
// whether each node answers on its configured port.
type Prober interface {
	Send(ctx context.Context, host string, port int, cmd xrpl.Command) (*xrpl.Reply, error)
}

// Registry lists the nodes to compare.
type Registry interface {
	ListNodes() ([]store.Node, error)
}

// Result is one node's probe outcome. Probe failures produce a
// disconnected entry rather than an error: unreachable nodes are an
// expected operating condition.
type Result struct {
	Node        string   `json:"node"`
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	Active      bool     `json:"active"`
	Status      string   `json:"status"`
	ServerState string   `json:"server_state,omitempty"`
	PeerCount   *int     `json:"peer_count,omitempty"`
	LedgerIndex *int64   `json:"ledger_index,omitempty"`
	LatencyMs   *float64 `json:"latency_ms,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Comparator fans a status probe out to every registered node.
type Comparator struct {
	prober   Prober
	registry Registry
	log      *logrus.Entry
}

// NewComparator creates a comparator.
func NewComparator(prober Prober, registry Registry, log *logrus.Entry) *Comparator {
	return &Comparator{prober: prober, registry: registry, log: log}
}

// CompareAll probes all registered nodes concurrently and returns exactly
// one result per node, in registry order. One slow or unreachable node
// never delays or drops the others' results; the whole call is bounded by
// the transport client's per-probe timeout, not the node count.
func (c *Comparator) CompareAll(ctx context.Context) ([]Result, error) {
	nodes, err := c.registry.ListNodes()
	if err != nil {
		return nil, err
	}

	results := make([]Result, len(nodes))
	g, gctx := errgroup.WithContext(ctx)

	for i, node := range nodes {
		g.Go(func() error {
			results[i] = c.probe(gctx, node)
			return nil
		})
	}

	// Goroutines never return errors; failures live in the results.
	_ = g.Wait()
	return results, nil
}

func (c *Comparator) probe(ctx context.Context, node store.Node) Result {
	result := Result{
		Node:   node.Name,
		Host:   node.Host,
		Port:   node.Port,
		Active: node.Active,
	}

	reply, err := c.prober.Send(ctx, node.Host, node.Port, xrpl.NewCommand("server_info"))
	if err != nil {
		result.Status = StatusDisconnected
		result.Error = err.Error()
		if c.log != nil {
			c.log.WithField("node", node.Name).WithError(err).Debug("comparison probe failed")
		}
		return result
	}
	if !reply.IsSuccess() {
		result.Status = StatusDisconnected
		result.Error = reply.ErrorMessage
		return result
	}

	info := reply.Result.Doc("info")
	result.ServerState = info.Str("server_state")
	result.Status = statusFor(result.ServerState)

	if peers, ok := info.Int("peers"); ok {
		p := int(peers)
		result.PeerCount = &p
	}
	if seq, ok := info.Doc("validated_ledger").Int("seq"); ok {
		result.LedgerIndex = &seq
	}
	latency := float64(reply.Latency.Milliseconds())
	result.LatencyMs = &latency

	return result
}

// statusFor maps a rippled server state to a comparison status. States
// that participate in consensus or track the full ledger count as healthy.
func statusFor(serverState string) string {
	switch serverState {
	case "full", "validating", "proposing":
		return StatusOK
	case "":
		return StatusDisconnected
	default:
		// connected, syncing, tracking, disconnected, ...
		return StatusDegraded
	}
}
