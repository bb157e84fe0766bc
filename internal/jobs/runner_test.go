package jobs

import (
	"context"
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
	"github.com/facilix/building-maintenance/internal/scheduler"
)

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.applyDefaults()
	assert.Equal(t, defaultGenerateInterval, cfg.GenerateInterval)
	assert.Equal(t, defaultEvaluateInterval, cfg.EvaluateInterval)
	assert.Equal(t, defaultSweepInterval, cfg.SweepInterval)
	assert.Equal(t, defaultHorizonDays, cfg.HorizonDays)

	cfg = Config{GenerateInterval: time.Minute, HorizonDays: 7}
	cfg.applyDefaults()
	assert.Equal(t, time.Minute, cfg.GenerateInterval)
	assert.Equal(t, 7, cfg.HorizonDays)
}

func TestRunner_RunsJobsAndStops(t *testing.T) {
	store := db.NewMemoryStore()
	engine := scheduler.NewEngine(store, nil, testLogger(), nil)

	due := time.Now().UTC().Add(24 * time.Hour)
	_, err := store.Create(context.Background(), db.CollSchedules, models.MaintenanceSchedule{
		EquipmentID:  "eq-1",
		BuildingID:   "bldg-1",
		ScheduleName: "Weekly check",
		ScheduleType: models.ScheduleTimeBased,
		TimeBased:    &models.TimeBasedConfig{Pattern: models.PatternWeekly, IntervalValue: 1},
		NextDueDate:  &due,
		IsActive:     true,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	runner := NewRunner(engine, Config{
		GenerateInterval: time.Hour,
		EvaluateInterval: time.Hour,
		SweepInterval:    time.Hour,
		HorizonDays:      10,
	}, testLogger())
	runner.Start(ctx)

	// Each job fires once at startup before waiting on its ticker.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var tasks []models.MaintenanceTask
		require.NoError(t, store.Query(context.Background(), db.CollTasks, nil, &tasks))
		if len(tasks) > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("generation job never produced tasks")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	done := make(chan struct{})
	go func() {
		runner.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}
