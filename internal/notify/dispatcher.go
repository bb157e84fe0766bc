// Package notify persists engine events and pushes them to an MQTT broker so
// dashboards and mobile clients can subscribe to maintenance activity.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

const publishTimeout = 5 * time.Second

// Publisher is the subset of the MQTT client the dispatcher needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Dispatcher stores every event as a notification document and, when a
// broker is configured, publishes it to maintenance/events/<type>.
type Dispatcher struct {
	store  db.Store
	client Publisher
	log    *log.Logger
}

// NewDispatcher builds a dispatcher. A nil client disables MQTT publishing;
// persistence always happens.
func NewDispatcher(store db.Store, client Publisher, logger *log.Logger) *Dispatcher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Dispatcher{store: store, client: client, log: logger}
}

// ConnectBroker dials the MQTT broker named by MQTT_BROKER (for example
// tcp://mosquitto:1883). An empty value means notifications stay
// database-only.
func ConnectBroker() (mqtt.Client, error) {
	brokerAddr := os.Getenv("MQTT_BROKER")
	if brokerAddr == "" {
		return nil, nil
	}
	opts := mqtt.NewClientOptions().
		AddBroker(brokerAddr).
		SetClientID("maintenance-engine").
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt broker %s: %w", brokerAddr, token.Error())
	}
	return client, nil
}

// Emit implements scheduler.EventSink. Failures are logged and swallowed:
// notification trouble must never fail the operation that raised the event.
func (d *Dispatcher) Emit(ctx context.Context, ev models.Event) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	id, err := d.store.Create(ctx, db.CollEvents, ev)
	if err != nil {
		d.log.WithField("event_type", ev.Type).WithError(err).Error("failed to persist notification event")
	} else {
		ev.ID = id
	}

	if d.client == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		d.log.WithField("event_type", ev.Type).WithError(err).Error("failed to marshal notification event")
		return
	}
	topic := fmt.Sprintf("maintenance/events/%s", ev.Type)
	token := d.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		d.log.WithField("topic", topic).Warn("mqtt publish timed out")
		return
	}
	if token.Error() != nil {
		d.log.WithField("topic", topic).WithError(token.Error()).Error("mqtt publish failed")
	}
}

// ListEvents returns stored notifications for a building, newest first
// capped at limit (0 means no cap).
func (d *Dispatcher) ListEvents(ctx context.Context, buildingID string, limit int) ([]models.Event, error) {
	var events []models.Event
	filters := []db.Filter{db.Eq("building_id", buildingID)}
	if err := d.store.Query(ctx, db.CollEvents, filters, &events); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].CreatedAt.After(events[j].CreatedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}
