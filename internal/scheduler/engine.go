package scheduler

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

// EventSink receives notification events emitted by the engine. The engine
// only hands events over; delivery belongs to the notification dispatcher.
type EventSink interface {
	Emit(ctx context.Context, ev models.Event)
}

type noopSink struct{}

func (noopSink) Emit(context.Context, models.Event) {}

// Engine coordinates maintenance schedules, task generation, usage-threshold
// evaluation, and the task lifecycle on top of a document store.
type Engine struct {
	store  db.Store
	clock  Clock
	log    *log.Logger
	events EventSink
}

// NewEngine constructs an engine. A nil clock defaults to the system clock,
// a nil logger to the logrus standard logger, and a nil sink discards events.
func NewEngine(store db.Store, clock Clock, logger *log.Logger, events EventSink) *Engine {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	if events == nil {
		events = noopSink{}
	}
	return &Engine{store: store, clock: clock, log: logger, events: events}
}

// equipmentInfo resolves the display name and location for generated task
// descriptions. A missing equipment record is tolerated with placeholders.
func (e *Engine) equipmentInfo(ctx context.Context, equipmentID string) (name, location string) {
	name, location = "Unknown Equipment", "Unknown Location"
	var eq models.Equipment
	if err := e.store.Get(ctx, db.CollEquipment, equipmentID, &eq); err != nil {
		e.log.WithField("equipment_id", equipmentID).WithError(err).Warn("equipment lookup failed, using placeholders")
		return name, location
	}
	if eq.Name != "" {
		name = eq.Name
	}
	if eq.Location != "" {
		location = eq.Location
	}
	return name, location
}

// templateInfo resolves the optional maintenance template a schedule
// references. Absence is tolerated.
func (e *Engine) templateInfo(ctx context.Context, templateID string) *models.MaintenanceTemplate {
	if templateID == "" {
		return nil
	}
	var tpl models.MaintenanceTemplate
	if err := e.store.Get(ctx, db.CollTemplates, templateID, &tpl); err != nil {
		e.log.WithField("template_id", templateID).WithError(err).Warn("template lookup failed, using schedule defaults")
		return nil
	}
	return &tpl
}
