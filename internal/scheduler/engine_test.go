package scheduler

import (
	"context"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

// captureSink records emitted events for assertions.
type captureSink struct {
	events []models.Event
}

func (c *captureSink) Emit(_ context.Context, ev models.Event) {
	c.events = append(c.events, ev)
}

func (c *captureSink) ofType(t models.EventType) []models.Event {
	var out []models.Event
	for _, ev := range c.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestEngine(now time.Time) (*Engine, *db.MemoryStore, *captureSink) {
	store := db.NewMemoryStore()
	sink := &captureSink{}
	logger := log.New()
	logger.SetOutput(io.Discard)
	return NewEngine(store, FixedClock(now), logger, sink), store, sink
}

func seedEquipment(t *testing.T, store *db.MemoryStore, id, name, location, buildingID string) {
	t.Helper()
	_, err := store.Create(context.Background(), db.CollEquipment, models.Equipment{
		ID:            id,
		Name:          name,
		EquipmentType: "HVAC",
		Location:      location,
		BuildingID:    buildingID,
		Status:        "operational",
	})
	require.NoError(t, err)
}

func seedTimeSchedule(t *testing.T, store *db.MemoryStore, s models.MaintenanceSchedule) string {
	t.Helper()
	if s.ScheduleType == "" {
		s.ScheduleType = models.ScheduleTimeBased
	}
	s.IsActive = true
	id, err := store.Create(context.Background(), db.CollSchedules, s)
	require.NoError(t, err)
	return id
}

func seedUsageLog(t *testing.T, store *db.MemoryStore, equipmentID, unit string, value float64, at time.Time) {
	t.Helper()
	_, err := store.Create(context.Background(), db.CollUsageLogs, models.UsageLog{
		EquipmentID: equipmentID,
		BuildingID:  "bldg-1",
		UsageType:   "runtime_hours",
		UsageValue:  value,
		UsageUnit:   unit,
		RecordedBy:  "sensor-1",
		RecordedAt:  at,
		CreatedAt:   at,
	})
	require.NoError(t, err)
}
