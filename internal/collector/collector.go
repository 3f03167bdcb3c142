// Package collector runs the recurring snapshot tick: poll the active
// node, derive throughput from ledger advancement, sample host resources,
// persist the composite snapshot, prune old data, and hand the tick's
// values to the alert engine.
package collector

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/alert"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/store"
	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/xrpl"
)

// Transport is the fallback-capable request surface of the transport client.
type Transport interface {
	SendWithFallback(ctx context.Context, host string, preferredPort int, cmd xrpl.Command) (*xrpl.Reply, error)
}

// Store is the subset of store operations a tick needs.
type Store interface {
	ActiveNode() (*store.Node, error)
	WriteSnapshot(*store.Snapshot) error
	PruneSnapshotsOlderThan(days int) error
}

// AlertSink evaluates a tick's values. In production this is the alert engine.
type AlertSink interface {
	Evaluate(values alert.Values) ([]store.Alert, error)
}

// Notifier receives the connectivity-loss event.
type Notifier interface {
	Fire(event, message, severity string)
}

// throughputState tracks ledger advancement between ticks. Written only
// by the collector's tick, and ticks are serialized, so no locking.
type throughputState struct {
	lastLedgerIndex int64
	lastObservedAt  time.Time
}

// Collector owns the tick loop. Construct one per process; tests can
// instantiate independent collectors freely.
type Collector struct {
	transport     Transport
	store         Store
	alerts        AlertSink
	notifier      Notifier
	interval      time.Duration
	retentionDays int
	log           *logrus.Entry

	throughput throughputState
	reachable  bool

	// test hooks
	now        func() time.Time
	sampleHost func(ctx context.Context) (cpu, mem *float64)
}

// New creates a collector. interval and retentionDays fall back to 30s
// and 7 days when unset.
func New(transport Transport, s Store, alerts AlertSink, notifier Notifier, interval time.Duration, retentionDays int, log *logrus.Entry) *Collector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if retentionDays <= 0 {
		retentionDays = 7
	}
	return &Collector{
		transport:     transport,
		store:         s,
		alerts:        alerts,
		notifier:      notifier,
		interval:      interval,
		retentionDays: retentionDays,
		log:           log,
		reachable:     true,
		now:           time.Now,
		sampleHost:    sampleHostMetrics,
	}
}

// Run ticks until the context is canceled. Ticks run inline in the loop,
// so they are serialized by construction: a tick that outlasts the
// interval delays the next one instead of overlapping it. A failed tick
// is logged and never stops the loop.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	if err := c.Tick(ctx); err != nil && c.log != nil {
		c.log.WithError(err).Error("collection tick failed")
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Tick(ctx); err != nil && c.log != nil {
				c.log.WithError(err).Error("collection tick failed")
			}
		}
	}
}

// Tick executes one collection cycle. Node-side failures degrade the
// snapshot to host-only fields; only store-layer failures are returned.
func (c *Collector) Tick(ctx context.Context) error {
	snap := &store.Snapshot{Timestamp: c.now()}

	node, err := c.store.ActiveNode()
	if err != nil {
		return err
	}

	if node != nil {
		snap.SourceHost = node.Host
		c.pollNode(ctx, node, snap)
	} else if c.log != nil {
		c.log.Debug("no active node configured; collecting host metrics only")
	}

	// Host resources are sampled regardless of node availability.
	snap.CPULoad, snap.MemoryPercent = c.sampleHost(ctx)

	if err := c.store.WriteSnapshot(snap); err != nil {
		return err
	}

	var tickErr error
	if err := c.store.PruneSnapshotsOlderThan(c.retentionDays); err != nil {
		tickErr = err
	}

	// Snapshot persistence completed above, so the engine never sees
	// values newer than what is stored.
	values := alert.Values{
		CPULoad:       snap.CPULoad,
		MemoryPercent: snap.MemoryPercent,
		PeerCount:     snap.PeerCount,
	}
	if snap.LedgerCloseTimeMs != nil {
		closeSec := *snap.LedgerCloseTimeMs / 1000
		values.LedgerCloseTimeSec = &closeSec
	}
	if _, err := c.alerts.Evaluate(values); err != nil {
		tickErr = err
	}

	return tickErr
}

// pollNode fills the node-side snapshot fields. Failures leave the fields
// nil and fire a connectivity-loss event on the reachable-to-unreachable
// transition.
func (c *Collector) pollNode(ctx context.Context, node *store.Node, snap *store.Snapshot) {
	reply, err := c.transport.SendWithFallback(ctx, node.Host, node.Port, xrpl.NewCommand("server_info"))
	if err != nil || !reply.IsSuccess() {
		if c.log != nil {
			entry := c.log.WithField("host", node.Host)
			if err != nil {
				entry = entry.WithError(err)
			} else {
				entry = entry.WithField("node_error", reply.ErrorCode)
			}
			entry.Warn("node poll failed; degrading to host-only snapshot")
		}
		if c.reachable {
			c.reachable = false
			if c.notifier != nil {
				c.notifier.Fire(store.EventConnectivityLoss,
					"Lost connectivity to "+node.Host+" on all candidate ports", "")
			}
		}
		return
	}
	c.reachable = true

	info := reply.Result.Doc("info")

	if peers, ok := info.Int("peers"); ok {
		p := int(peers)
		snap.PeerCount = &p
	}
	if state := info.Str("server_state"); state != "" {
		snap.ServerState = &state
	}
	if load, ok := info.Float("load_factor"); ok {
		snap.LoadFactor = &load
	}
	if converge, ok := info.Doc("last_close").Float("converge_time_s"); ok {
		ms := converge * 1000
		snap.LedgerCloseTimeMs = &ms
	}

	ledger := info.Doc("validated_ledger")
	if fee, ok := ledger.Float("base_fee_xrp"); ok {
		snap.BaseFee = &fee
	}
	if reserve, ok := ledger.Float("reserve_base_xrp"); ok {
		snap.ReserveBase = &reserve
	}
	if inc, ok := ledger.Float("reserve_inc_xrp"); ok {
		snap.ReserveInc = &inc
	}

	latency := float64(reply.Latency.Milliseconds())
	snap.RoundTripLatencyMs = &latency

	if seq, ok := ledger.Int("seq"); ok {
		snap.LedgerIndex = &seq
		snap.ThroughputPerSec = c.deriveThroughput(ctx, node, seq)
	}
}

// deriveThroughput computes transactions per second from ledger
// advancement. It only fires when the index strictly advanced past a
// non-zero prior; the observation clock only moves on ledger change, so
// repeated no-change ticks neither re-trigger the math nor shrink the
// eventual elapsed window.
func (c *Collector) deriveThroughput(ctx context.Context, node *store.Node, seq int64) *float64 {
	prior := c.throughput
	advanced := seq > prior.lastLedgerIndex

	c.throughput.lastLedgerIndex = seq
	if advanced {
		c.throughput.lastObservedAt = c.now()
	}

	if !advanced || prior.lastLedgerIndex == 0 {
		return nil
	}

	cmd := xrpl.NewCommand("ledger").
		WithParam("ledger_index", seq).
		WithParam("transactions", true)
	reply, err := c.transport.SendWithFallback(ctx, node.Host, node.Port, cmd)
	if err != nil || !reply.IsSuccess() {
		if c.log != nil {
			c.log.WithField("ledger_index", seq).Warn("ledger detail poll failed; throughput unknown this tick")
		}
		return nil
	}

	txCount := len(reply.Result.Doc("ledger").List("transactions"))

	elapsed := c.now().Sub(prior.lastObservedAt)
	if elapsed < time.Second {
		// Clamp so a burst of quick ticks cannot blow the division up.
		elapsed = time.Second
	}

	tps := float64(txCount) / elapsed.Seconds()
	return &tps
}
