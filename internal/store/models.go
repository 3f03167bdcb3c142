// Package store persists snapshots, alerts, thresholds, notification
// channels, and the node registry in a sqlite database. It is the only
// durable state in the monitor; everything else is rebuilt each tick.
package store

import (
	"strings"
	"time"
)

// Alert severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Threshold directions.
const (
	DirectionAbove = "above"
	DirectionBelow = "below"
)

// Notification channel kinds.
const (
	KindStructuredEmbed = "structured-embed"
	KindChatBot         = "chat-bot"
	KindGenericJSON     = "generic-json"
)

// Notification event names.
const (
	EventAlertWarning     = "alert_warning"
	EventAlertCritical    = "alert_critical"
	EventConnectivityLoss = "connectivity_loss"
)

// Snapshot is one point-in-time composite reading of node and host health.
// Node-side fields are pointers: nil means "unknown this tick" (node was
// unreachable), which must never be conflated with a legitimate zero.
type Snapshot struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Timestamp  time.Time `json:"timestamp" gorm:"index"`
	SourceHost string    `json:"source_host"`

	CPULoad       *float64 `json:"cpu_load"`
	MemoryPercent *float64 `json:"memory_percent"`

	PeerCount          *int     `json:"peer_count"`
	LedgerIndex        *int64   `json:"ledger_index"`
	LedgerCloseTimeMs  *float64 `json:"ledger_close_time_ms"`
	LoadFactor         *float64 `json:"load_factor"`
	ServerState        *string  `json:"server_state"`
	RoundTripLatencyMs *float64 `json:"round_trip_latency_ms"`
	BaseFee            *float64 `json:"base_fee"`
	ReserveBase        *float64 `json:"reserve_base"`
	ReserveInc         *float64 `json:"reserve_inc"`

	ThroughputPerSec *float64 `json:"throughput_per_sec"`
}

// Alert records one threshold breach. Immutable after creation except for
// acknowledgement, which the dashboard owns.
type Alert struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Timestamp      time.Time `json:"timestamp" gorm:"index"`
	MetricKey      string    `json:"metric_key" gorm:"index"`
	Severity       string    `json:"severity"`
	Message        string    `json:"message"`
	ObservedValue  float64   `json:"observed_value"`
	ThresholdValue float64   `json:"threshold_value"`
	Acknowledged   bool      `json:"acknowledged" gorm:"default:false"`
}

// AlertThreshold configures warning/critical bounds for one metric.
type AlertThreshold struct {
	ID            uint    `json:"id" gorm:"primaryKey"`
	MetricKey     string  `json:"metric_key" gorm:"uniqueIndex"`
	Label         string  `json:"label"`
	WarningValue  float64 `json:"warning_value"`
	CriticalValue float64 `json:"critical_value"`
	Enabled       bool    `json:"enabled"`
	Direction     string  `json:"direction"`
}

// NotificationChannel is one delivery endpoint for alert events.
// SubscribedEvents is a comma-separated list of event names.
type NotificationChannel struct {
	ID               uint   `json:"id" gorm:"primaryKey"`
	Name             string `json:"name"`
	Kind             string `json:"kind"`
	Endpoint         string `json:"endpoint"`
	Enabled          bool   `json:"enabled"`
	SubscribedEvents string `json:"subscribed_events"`
}

// SubscribedTo reports whether the channel wants the given event.
func (c *NotificationChannel) SubscribedTo(event string) bool {
	for _, name := range strings.Split(c.SubscribedEvents, ",") {
		if strings.TrimSpace(name) == event {
			return true
		}
	}
	return false
}

// Node is one registered rippled node. Exactly one node is active at a
// time; the collector polls the active node, the comparison view probes
// them all.
type Node struct {
	ID        uint   `json:"id" gorm:"primaryKey"`
	Name      string `json:"name" gorm:"uniqueIndex"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	AdminPort int    `json:"admin_port"`
	Active    bool   `json:"active"`
}

// DefaultThresholds seed the threshold table on first start.
// Close time is in seconds; CPU and memory are percentages.
func DefaultThresholds() []AlertThreshold {
	return []AlertThreshold{
		{MetricKey: "cpu", Label: "CPU load", WarningValue: 80, CriticalValue: 95, Enabled: true, Direction: DirectionAbove},
		{MetricKey: "memory", Label: "Memory usage", WarningValue: 85, CriticalValue: 95, Enabled: true, Direction: DirectionAbove},
		{MetricKey: "peers", Label: "Peer count", WarningValue: 5, CriticalValue: 2, Enabled: true, Direction: DirectionBelow},
		{MetricKey: "ledger_close_time", Label: "Ledger close time", WarningValue: 10, CriticalValue: 20, Enabled: true, Direction: DirectionAbove},
	}
}
