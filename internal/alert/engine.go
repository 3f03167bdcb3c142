// Package alert evaluates tick metrics against configured thresholds and
// raises deduplicated alerts.
package alert

import (
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/store"
)

// Store is the subset of store operations the engine needs.
type Store interface {
	EnabledThresholds() ([]store.AlertThreshold, error)
	RecentAlertForMetric(metricKey string, within time.Duration) (*store.Alert, error)
	WriteAlert(*store.Alert) error
}

// Dispatcher delivers alert events. Implementations must be
// fire-and-forget: Fire never blocks meaningfully and never fails the
// caller.
type Dispatcher interface {
	Fire(event, message, severity string)
}

// Values are the observed metrics for one collection tick. Nil means the
// metric was not observed this tick and its thresholds are skipped.
type Values struct {
	CPULoad            *float64
	MemoryPercent      *float64
	PeerCount          *int
	LedgerCloseTimeSec *float64
}

// lookup resolves a threshold's metric key to this tick's observed value.
func (v Values) lookup(metricKey string) (float64, bool) {
	switch metricKey {
	case "cpu":
		if v.CPULoad != nil {
			return *v.CPULoad, true
		}
	case "memory":
		if v.MemoryPercent != nil {
			return *v.MemoryPercent, true
		}
	case "peers":
		if v.PeerCount != nil {
			return float64(*v.PeerCount), true
		}
	case "ledger_close_time":
		if v.LedgerCloseTimeSec != nil {
			return *v.LedgerCloseTimeSec, true
		}
	}
	return 0, false
}

// Engine turns tick metrics into persisted alerts. Deduplication is keyed
// by metric only: any alert for a metric inside the window suppresses new
// ones, even on a warning-to-critical escalation.
type Engine struct {
	store       Store
	dispatcher  Dispatcher
	dedupWindow time.Duration
	log         *logrus.Entry
	now         func() time.Time
}

// NewEngine creates an engine with the given dedup window.
func NewEngine(s Store, d Dispatcher, dedupWindow time.Duration, log *logrus.Entry) *Engine {
	if dedupWindow <= 0 {
		dedupWindow = 5 * time.Minute
	}
	return &Engine{
		store:       s,
		dispatcher:  d,
		dedupWindow: dedupWindow,
		log:         log,
		now:         time.Now,
	}
}

// Evaluate checks every enabled threshold against the tick's values,
// persists each non-suppressed breach, and dispatches a notification for
// it. Returns the alerts created this tick. Store failures surface to the
// caller; dispatch failures never do.
func (e *Engine) Evaluate(values Values) ([]store.Alert, error) {
	thresholds, err := e.store.EnabledThresholds()
	if err != nil {
		return nil, err
	}

	var created []store.Alert
	for _, threshold := range thresholds {
		observed, ok := values.lookup(threshold.MetricKey)
		if !ok {
			continue
		}

		severity, thresholdValue, breached := classify(threshold, observed)
		if !breached {
			continue
		}

		recent, err := e.store.RecentAlertForMetric(threshold.MetricKey, e.dedupWindow)
		if err != nil {
			return created, err
		}
		if recent != nil {
			if e.log != nil {
				e.log.WithFields(logrus.Fields{"metric": threshold.MetricKey, "severity": severity}).
					Debug("breach suppressed by dedup window")
			}
			continue
		}

		alert := store.Alert{
			Timestamp:      e.now(),
			MetricKey:      threshold.MetricKey,
			Severity:       severity,
			Message:        breachMessage(threshold, severity, observed, thresholdValue),
			ObservedValue:  observed,
			ThresholdValue: thresholdValue,
		}
		if err := e.store.WriteAlert(&alert); err != nil {
			return created, err
		}
		created = append(created, alert)

		if e.log != nil {
			e.log.WithFields(logrus.Fields{"metric": threshold.MetricKey, "severity": severity, "observed": observed}).
				Warn("threshold breached")
		}
		if e.dispatcher != nil {
			e.dispatcher.Fire("alert_"+severity, alert.Message, severity)
		}
	}

	return created, nil
}

// classify applies the directional comparison. Boundaries are inclusive
// and critical wins when both tiers match.
func classify(t store.AlertThreshold, observed float64) (severity string, thresholdValue float64, breached bool) {
	switch t.Direction {
	case store.DirectionBelow:
		if observed <= t.CriticalValue {
			return store.SeverityCritical, t.CriticalValue, true
		}
		if observed <= t.WarningValue {
			return store.SeverityWarning, t.WarningValue, true
		}
	default: // above
		if observed >= t.CriticalValue {
			return store.SeverityCritical, t.CriticalValue, true
		}
		if observed >= t.WarningValue {
			return store.SeverityWarning, t.WarningValue, true
		}
	}
	return "", 0, false
}

// breachMessage renders the operator-facing alert text.
func breachMessage(t store.AlertThreshold, severity string, observed, thresholdValue float64) string {
	label := t.Label
	if label == "" {
		label = t.MetricKey
	}

	verb := "exceeded"
	if t.Direction == store.DirectionBelow {
		verb = "dropped below"
	}

	return fmt.Sprintf("%s %s %s threshold: %s (threshold: %s)",
		label, verb, severity, formatValue(observed), formatValue(thresholdValue))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
