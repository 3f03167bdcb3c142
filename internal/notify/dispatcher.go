// Package notify delivers alert events to registered webhook channels.
// Delivery is best-effort: no retries, no queueing, and failures are
// logged per channel without ever reaching the caller. Operators who need
// guaranteed delivery poll the alert store instead.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/peterbiggam/XRPL-Node-Monitor-sub000/internal/store"
)

// deliverTimeout bounds one webhook POST.
const deliverTimeout = 10 * time.Second

// Store is the subset of store operations the dispatcher needs.
type Store interface {
	EnabledChannelsForEvent(event string) ([]store.NotificationChannel, error)
}

// Dispatcher fans alert events out to subscribed channels.
type Dispatcher struct {
	store  Store
	client *http.Client
	log    *logrus.Entry
	wg     sync.WaitGroup
}

// NewDispatcher creates a dispatcher posting through the given client.
// Pass nil to use a default client with a sane timeout.
func NewDispatcher(s Store, client *http.Client, log *logrus.Entry) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: deliverTimeout}
	}
	return &Dispatcher{store: s, client: client, log: log}
}

// Fire delivers the event to every subscribed channel on a detached
// goroutine. It returns immediately and never surfaces an error: the
// alert engine must not stall or fail because a webhook is down.
func (d *Dispatcher) Fire(event, message, severity string) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil && d.log != nil {
				d.log.WithField("event", event).Errorf("dispatch panicked: %v", r)
			}
		}()
		d.deliver(event, message, severity)
	}()
}

// Flush blocks until in-flight dispatches finish. Used on shutdown and in
// tests.
func (d *Dispatcher) Flush() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(event, message, severity string) {
	channels, err := d.store.EnabledChannelsForEvent(event)
	if err != nil {
		if d.log != nil {
			d.log.WithError(err).Error("failed to resolve notification channels")
		}
		return
	}

	for _, channel := range channels {
		if err := d.send(channel, event, message, severity); err != nil {
			if d.log != nil {
				d.log.WithFields(logrus.Fields{"channel": channel.Name, "kind": channel.Kind}).
					WithError(err).Error("notification delivery failed")
			}
			// One channel's failure must not stop the others.
			continue
		}
		if d.log != nil {
			d.log.WithFields(logrus.Fields{"channel": channel.Name, "event": event}).
				Debug("notification delivered")
		}
	}
}

func (d *Dispatcher) send(channel store.NotificationChannel, event, message, severity string) error {
	payload, err := buildPayload(channel.Kind, event, message, severity)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, channel.Endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// buildPayload renders the channel-kind specific body.
func buildPayload(kind, event, message, severity string) (any, error) {
	switch kind {
	case store.KindStructuredEmbed:
		return map[string]any{
			"embeds": []map[string]any{{
				"title":       embedTitle(event),
				"description": message,
				"color":       embedColor(severity),
				"timestamp":   time.Now().UTC().Format(time.RFC3339),
			}},
		}, nil
	case store.KindChatBot:
		return map[string]any{
			"text": fmt.Sprintf("%s %s", severityEmoji(severity), message),
		}, nil
	case store.KindGenericJSON:
		return map[string]any{
			"event":     event,
			"severity":  severity,
			"message":   message,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}, nil
	default:
		return nil, fmt.Errorf("unknown channel kind %q", kind)
	}
}

func embedTitle(event string) string {
	if event == store.EventConnectivityLoss {
		return "Node connectivity lost"
	}
	return "XRPL node alert"
}

func embedColor(severity string) int {
	switch severity {
	case store.SeverityCritical:
		return 0xE74C3C // red
	case store.SeverityWarning:
		return 0xF39C12 // amber
	default:
		return 0x3498DB // blue
	}
}

func severityEmoji(severity string) string {
	switch severity {
	case store.SeverityCritical:
		return "🚨"
	case store.SeverityWarning:
		return "⚠️"
	default:
		return "ℹ️"
	}
}
