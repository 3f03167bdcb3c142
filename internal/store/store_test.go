package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	return s
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestWriteAndReadSnapshot(t *testing.T) {
	s := openTestStore(t)

	snap := &Snapshot{
		Timestamp:  time.Now(),
		SourceHost: "node.example.com",
		CPULoad:    floatPtr(42.5),
		PeerCount:  intPtr(17),
		// Node-side fields left nil: the node was unreachable this tick
	}
	require.NoError(t, s.WriteSnapshot(snap))

	snaps, err := s.RecentSnapshots(1)
	require.NoError(t, err)
	require.Len(t, snaps, 1)

	got := snaps[0]
	assert.Equal(t, "node.example.com", got.SourceHost)
	require.NotNil(t, got.CPULoad)
	assert.InDelta(t, 42.5, *got.CPULoad, 0.001)
	require.NotNil(t, got.PeerCount)
	assert.Equal(t, 17, *got.PeerCount)

	// Unknown stays unknown: nil must not come back as zero
	assert.Nil(t, got.LedgerIndex)
	assert.Nil(t, got.ThroughputPerSec)
	assert.Nil(t, got.ServerState)
}

func TestRecentSnapshots_ExcludesOld(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.WriteSnapshot(&Snapshot{Timestamp: time.Now().Add(-3 * time.Hour)}))
	require.NoError(t, s.WriteSnapshot(&Snapshot{Timestamp: time.Now()}))

	snaps, err := s.RecentSnapshots(1)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestPruneSnapshots(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.WriteSnapshot(&Snapshot{Timestamp: time.Now().AddDate(0, 0, -8)}))
	require.NoError(t, s.WriteSnapshot(&Snapshot{Timestamp: time.Now()}))

	require.NoError(t, s.PruneSnapshotsOlderThan(7))
	// Pruning twice is fine
	require.NoError(t, s.PruneSnapshotsOlderThan(7))

	snaps, err := s.RecentSnapshots(24 * 30)
	require.NoError(t, err)
	assert.Len(t, snaps, 1)
}

func TestRecentAlertForMetric_WithinWindow(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.WriteAlert(&Alert{
		Timestamp: time.Now().Add(-2 * time.Minute),
		MetricKey: "cpu",
		Severity:  SeverityWarning,
	}))

	alert, err := s.RecentAlertForMetric("cpu", 5*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, SeverityWarning, alert.Severity)

	// Different metric is not suppressed
	other, err := s.RecentAlertForMetric("memory", 5*time.Minute)
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestRecentAlertForMetric_OutsideWindow(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.WriteAlert(&Alert{
		Timestamp: time.Now().Add(-6 * time.Minute),
		MetricKey: "cpu",
		Severity:  SeverityWarning,
	}))

	alert, err := s.RecentAlertForMetric("cpu", 5*time.Minute)
	require.NoError(t, err)
	assert.Nil(t, alert, "alert outside the window must not suppress")
}

func TestAcknowledgeAlert(t *testing.T) {
	s := openTestStore(t)

	alert := &Alert{Timestamp: time.Now(), MetricKey: "cpu", Severity: SeverityCritical}
	require.NoError(t, s.WriteAlert(alert))

	unacked, err := s.UnacknowledgedAlerts()
	require.NoError(t, err)
	require.Len(t, unacked, 1)

	require.NoError(t, s.AcknowledgeAlert(alert.ID))

	unacked, err = s.UnacknowledgedAlerts()
	require.NoError(t, err)
	assert.Empty(t, unacked)

	err = s.AcknowledgeAlert(99999)
	assert.Error(t, err, "acknowledging a missing alert should fail")
}

func TestSeedDefaultThresholds(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SeedDefaultThresholds())

	thresholds, err := s.EnabledThresholds()
	require.NoError(t, err)
	assert.Len(t, thresholds, len(DefaultThresholds()))

	// Seeding again must not duplicate or overwrite
	cpu := thresholds[0]
	cpu.WarningValue = 50
	require.NoError(t, s.SaveThreshold(&cpu))
	require.NoError(t, s.SeedDefaultThresholds())

	all, err := s.AllThresholds()
	require.NoError(t, err)
	assert.Len(t, all, len(DefaultThresholds()))
}

func TestEnabledThresholds_SkipsDisabled(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.SeedDefaultThresholds())

	all, err := s.AllThresholds()
	require.NoError(t, err)
	disabled := all[0]
	disabled.Enabled = false
	require.NoError(t, s.SaveThreshold(&disabled))

	enabled, err := s.EnabledThresholds()
	require.NoError(t, err)
	assert.Len(t, enabled, len(all)-1)
}

func TestEnabledChannelsForEvent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveChannel(&NotificationChannel{
		Name: "ops-discord", Kind: KindStructuredEmbed, Enabled: true,
		SubscribedEvents: "alert_warning,alert_critical",
	}))
	require.NoError(t, s.SaveChannel(&NotificationChannel{
		Name: "pager", Kind: KindGenericJSON, Enabled: true,
		SubscribedEvents: "alert_critical, connectivity_loss",
	}))
	require.NoError(t, s.SaveChannel(&NotificationChannel{
		Name: "muted", Kind: KindChatBot, Enabled: false,
		SubscribedEvents: "alert_critical",
	}))

	critical, err := s.EnabledChannelsForEvent(EventAlertCritical)
	require.NoError(t, err)
	assert.Len(t, critical, 2, "disabled channel must be excluded")

	warning, err := s.EnabledChannelsForEvent(EventAlertWarning)
	require.NoError(t, err)
	require.Len(t, warning, 1)
	assert.Equal(t, "ops-discord", warning[0].Name)

	loss, err := s.EnabledChannelsForEvent(EventConnectivityLoss)
	require.NoError(t, err)
	require.Len(t, loss, 1)
	assert.Equal(t, "pager", loss[0].Name, "whitespace around event names is tolerated")
}

func TestNodeRegistry(t *testing.T) {
	s := openTestStore(t)

	seed := []Node{
		{Name: "primary", Host: "n1.example.com", Port: 6006, AdminPort: 6007},
		{Name: "backup", Host: "n2.example.com", Port: 51233},
	}
	require.NoError(t, s.SeedNodes(seed, "primary"))

	active, err := s.ActiveNode()
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, "primary", active.Name)

	// Switching takes effect on the next read
	require.NoError(t, s.ActivateNode("backup"))
	active, err = s.ActiveNode()
	require.NoError(t, err)
	assert.Equal(t, "backup", active.Name)

	nodes, err := s.ListNodes()
	require.NoError(t, err)
	assert.Len(t, nodes, 2)

	var activeCount int
	for _, node := range nodes {
		if node.Active {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount, "exactly one node active")

	assert.Error(t, s.ActivateNode("missing"))
}

func TestSeedNodes_PreservesExistingAndActive(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SeedNodes([]Node{{Name: "primary", Host: "old.example.com", Port: 6006}}, "primary"))
	require.NoError(t, s.ActivateNode("primary"))

	// Re-seeding with a changed host and different default must not clobber
	require.NoError(t, s.SeedNodes([]Node{
		{Name: "primary", Host: "new.example.com", Port: 6006},
		{Name: "backup", Host: "n2.example.com", Port: 6006},
	}, "backup"))

	nodes, err := s.ListNodes()
	require.NoError(t, err)
	require.Len(t, nodes, 2)

	active, err := s.ActiveNode()
	require.NoError(t, err)
	assert.Equal(t, "primary", active.Name, "existing active node is kept")

	for _, node := range nodes {
		if node.Name == "primary" {
			assert.Equal(t, "old.example.com", node.Host, "existing rows keep their edits")
		}
	}
}

func TestSubscribedTo(t *testing.T) {
	channel := &NotificationChannel{SubscribedEvents: "alert_warning, alert_critical"}
	assert.True(t, channel.SubscribedTo("alert_warning"))
	assert.True(t, channel.SubscribedTo("alert_critical"))
	assert.False(t, channel.SubscribedTo("connectivity_loss"))
	assert.False(t, (&NotificationChannel{}).SubscribedTo("alert_warning"))
}
