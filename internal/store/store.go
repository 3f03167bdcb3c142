package store

import (
	stderrors "errors"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/errors"
)

// Store wraps the sqlite database. Safe for concurrent use; gorm
// serializes access to the underlying connection pool.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Failed to open database at "+path,
			"Check the path is writable")
	}

	if err := db.AutoMigrate(&Snapshot{}, &Alert{}, &AlertThreshold{}, &NotificationChannel{}, &Node{}); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore,
			"Failed to migrate database schema", "")
	}

	return &Store{db: db}, nil
}

// WriteSnapshot persists one snapshot.
func (s *Store) WriteSnapshot(snap *Snapshot) error {
	if err := s.db.Create(snap).Error; err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Failed to write snapshot", "")
	}
	return nil
}

// LatestSnapshot returns the newest snapshot, or nil if none exist yet.
func (s *Store) LatestSnapshot() (*Snapshot, error) {
	var snap Snapshot
	err := s.db.Order("timestamp desc").First(&snap).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to read latest snapshot", "")
	}
	return &snap, nil
}

// RecentSnapshots returns snapshots from the last N hours, oldest first.
func (s *Store) RecentSnapshots(hours int) ([]Snapshot, error) {
	if hours <= 0 {
		hours = 24
	}
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var snaps []Snapshot
	if err := s.db.Where("timestamp >= ?", cutoff).Order("timestamp asc").Find(&snaps).Error; err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to read snapshots", "")
	}
	return snaps, nil
}

// PruneSnapshotsOlderThan deletes snapshots past the retention window.
// Idempotent; deleting zero rows is not an error.
func (s *Store) PruneSnapshotsOlderThan(days int) error {
	cutoff := time.Now().AddDate(0, 0, -days)
	if err := s.db.Where("timestamp < ?", cutoff).Delete(&Snapshot{}).Error; err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Failed to prune snapshots", "")
	}
	return nil
}

// WriteAlert persists one alert.
func (s *Store) WriteAlert(alert *Alert) error {
	if err := s.db.Create(alert).Error; err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Failed to write alert", "")
	}
	return nil
}

// RecentAlertForMetric returns the newest alert for metricKey created
// within the given window, or nil if there is none. This is the dedup
// lookup: any hit, regardless of severity, suppresses a new alert.
func (s *Store) RecentAlertForMetric(metricKey string, within time.Duration) (*Alert, error) {
	cutoff := time.Now().Add(-within)

	var alert Alert
	err := s.db.Where("metric_key = ? AND timestamp > ?", metricKey, cutoff).
		Order("timestamp desc").First(&alert).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to look up recent alerts", "")
	}
	return &alert, nil
}

// UnacknowledgedAlerts returns all unacknowledged alerts, newest first.
func (s *Store) UnacknowledgedAlerts() ([]Alert, error) {
	var alerts []Alert
	if err := s.db.Where("acknowledged = ?", false).Order("timestamp desc").Find(&alerts).Error; err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to read alerts", "")
	}
	return alerts, nil
}

// AcknowledgeAlert marks one alert as acknowledged.
func (s *Store) AcknowledgeAlert(id uint) error {
	result := s.db.Model(&Alert{}).Where("id = ?", id).Update("acknowledged", true)
	if result.Error != nil {
		return errors.WrapWithCode(result.Error, errors.ErrStore, "Failed to acknowledge alert", "")
	}
	if result.RowsAffected == 0 {
		return errors.New(errors.ErrStore, "No such alert", "")
	}
	return nil
}

// EnabledThresholds returns the thresholds the alert engine evaluates.
func (s *Store) EnabledThresholds() ([]AlertThreshold, error) {
	var thresholds []AlertThreshold
	if err := s.db.Where("enabled = ?", true).Find(&thresholds).Error; err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to read thresholds", "")
	}
	return thresholds, nil
}

// AllThresholds returns every threshold, for the configuration view.
func (s *Store) AllThresholds() ([]AlertThreshold, error) {
	var thresholds []AlertThreshold
	if err := s.db.Order("metric_key asc").Find(&thresholds).Error; err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to read thresholds", "")
	}
	return thresholds, nil
}

// SaveThreshold updates an existing threshold by metric key, or creates it.
func (s *Store) SaveThreshold(threshold *AlertThreshold) error {
	var existing AlertThreshold
	err := s.db.Where("metric_key = ?", threshold.MetricKey).First(&existing).Error
	if err == nil {
		threshold.ID = existing.ID
		return s.db.Save(threshold).Error
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(threshold).Error
	}
	return errors.WrapWithCode(err, errors.ErrStore, "Failed to save threshold", "")
}

// SeedDefaultThresholds inserts the default thresholds when the table is
// empty. Existing thresholds are never touched.
func (s *Store) SeedDefaultThresholds() error {
	var count int64
	if err := s.db.Model(&AlertThreshold{}).Count(&count).Error; err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Failed to count thresholds", "")
	}
	if count > 0 {
		return nil
	}

	defaults := DefaultThresholds()
	if err := s.db.Create(&defaults).Error; err != nil {
		return errors.WrapWithCode(err, errors.ErrStore, "Failed to seed thresholds", "")
	}
	return nil
}

// EnabledChannelsForEvent returns the enabled channels subscribed to the
// given event name.
func (s *Store) EnabledChannelsForEvent(event string) ([]NotificationChannel, error) {
	var channels []NotificationChannel
	if err := s.db.Where("enabled = ?", true).Find(&channels).Error; err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to read channels", "")
	}

	matched := channels[:0]
	for _, channel := range channels {
		if channel.SubscribedTo(event) {
			matched = append(matched, channel)
		}
	}
	return matched, nil
}

// AllChannels returns every notification channel, for the configuration view.
func (s *Store) AllChannels() ([]NotificationChannel, error) {
	var channels []NotificationChannel
	if err := s.db.Order("name asc").Find(&channels).Error; err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to read channels", "")
	}
	return channels, nil
}

// SaveChannel creates or updates a notification channel by name.
func (s *Store) SaveChannel(channel *NotificationChannel) error {
	var existing NotificationChannel
	err := s.db.Where("name = ?", channel.Name).First(&existing).Error
	if err == nil {
		channel.ID = existing.ID
		return s.db.Save(channel).Error
	}
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(channel).Error
	}
	return errors.WrapWithCode(err, errors.ErrStore, "Failed to save channel", "")
}

// ListNodes returns every registered node.
func (s *Store) ListNodes() ([]Node, error) {
	var nodes []Node
	if err := s.db.Order("name asc").Find(&nodes).Error; err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to read nodes", "")
	}
	return nodes, nil
}

// ActiveNode returns the currently active node, or nil if none is set.
// Callers read this fresh per tick so a node switch takes effect without
// a restart.
func (s *Store) ActiveNode() (*Node, error) {
	var node Node
	err := s.db.Where("active = ?", true).First(&node).Error
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrStore, "Failed to read active node", "")
	}
	return &node, nil
}

// ActivateNode makes the named node active and deactivates the rest.
func (s *Store) ActivateNode(name string) error {
	var node Node
	if err := s.db.Where("name = ?", name).First(&node).Error; err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New(errors.ErrStore, "No node named "+name, "Check the registered node names")
		}
		return errors.WrapWithCode(err, errors.ErrStore, "Failed to look up node", "")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&Node{}).Where("active = ?", true).Update("active", false).Error; err != nil {
			return err
		}
		return tx.Model(&Node{}).Where("name = ?", name).Update("active", true).Error
	})
}

// SeedNodes registers nodes that are not yet in the registry and marks the
// default one active if no node is active yet. Existing rows keep their
// host/port edits.
func (s *Store) SeedNodes(nodes []Node, defaultName string) error {
	for _, node := range nodes {
		var existing Node
		err := s.db.Where("name = ?", node.Name).First(&existing).Error
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			node.Active = false
			if err := s.db.Create(&node).Error; err != nil {
				return errors.WrapWithCode(err, errors.ErrStore, "Failed to seed node "+node.Name, "")
			}
		} else if err != nil {
			return errors.WrapWithCode(err, errors.ErrStore, "Failed to seed nodes", "")
		}
	}

	active, err := s.ActiveNode()
	if err != nil {
		return err
	}
	if active == nil && defaultName != "" {
		return s.ActivateNode(defaultName)
	}
	return nil
}
