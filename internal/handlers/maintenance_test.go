package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
	"github.com/facilix/building-maintenance/internal/notify"
	"github.com/facilix/building-maintenance/internal/scheduler"
)

func testLogger() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestHandler(t *testing.T) (*MaintenanceHandler, *db.MemoryStore) {
	t.Helper()
	store := db.NewMemoryStore()
	logger := testLogger()
	dispatcher := notify.NewDispatcher(store, nil, logger)
	engine := scheduler.NewEngine(store, nil, logger, dispatcher)
	return NewMaintenanceHandler(engine, dispatcher, logger), store
}

func seedEquipment(t *testing.T, store *db.MemoryStore, id string) {
	t.Helper()
	_, err := store.Create(context.Background(), db.CollEquipment, models.Equipment{
		ID:         id,
		Name:       "AHU-01",
		Location:   "Roof",
		BuildingID: "bldg-1",
		Status:     "operational",
	})
	require.NoError(t, err)
}

func TestSchedules_CreateAndList(t *testing.T) {
	h, store := newTestHandler(t)
	seedEquipment(t, store, "eq-1")

	body, _ := json.Marshal(models.MaintenanceSchedule{
		EquipmentID:  "eq-1",
		BuildingID:   "bldg-1",
		ScheduleName: "Weekly filter check",
		ScheduleType: models.ScheduleTimeBased,
		TimeBased:    &models.TimeBasedConfig{Pattern: models.PatternWeekly, IntervalValue: 1},
	})
	w := httptest.NewRecorder()
	h.Schedules(w, httptest.NewRequest("POST", "/api/schedules", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created["id"])

	w = httptest.NewRecorder()
	h.Schedules(w, httptest.NewRequest("GET", "/api/schedules?building_id=bldg-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var schedules []models.MaintenanceSchedule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &schedules))
	require.Len(t, schedules, 1)
	assert.Equal(t, "Weekly filter check", schedules[0].ScheduleName)
}

func TestSchedules_CreateInvalidConfig(t *testing.T) {
	h, _ := newTestHandler(t)

	body, _ := json.Marshal(models.MaintenanceSchedule{
		EquipmentID:  "eq-1",
		BuildingID:   "bldg-1",
		ScheduleName: "Broken",
		ScheduleType: models.ScheduleTimeBased,
	})
	w := httptest.NewRecorder()
	h.Schedules(w, httptest.NewRequest("POST", "/api/schedules", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedules_ListRequiresBuilding(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.Schedules(w, httptest.NewRequest("GET", "/api/schedules", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleByID_GetUpdateDeactivate(t *testing.T) {
	h, store := newTestHandler(t)
	seedEquipment(t, store, "eq-1")

	body, _ := json.Marshal(models.MaintenanceSchedule{
		EquipmentID:  "eq-1",
		BuildingID:   "bldg-1",
		ScheduleName: "Monthly check",
		ScheduleType: models.ScheduleTimeBased,
		TimeBased:    &models.TimeBasedConfig{Pattern: models.PatternMonthly, IntervalValue: 1},
	})
	w := httptest.NewRecorder()
	h.Schedules(w, httptest.NewRequest("POST", "/api/schedules", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"]

	w = httptest.NewRecorder()
	h.ScheduleByID(w, httptest.NewRequest("GET", "/api/schedules/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	upd, _ := json.Marshal(map[string]string{"description": "updated"})
	w = httptest.NewRecorder()
	h.ScheduleByID(w, httptest.NewRequest("PUT", "/api/schedules/"+id, bytes.NewReader(upd)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ScheduleByID(w, httptest.NewRequest("DELETE", "/api/schedules/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var schedule models.MaintenanceSchedule
	require.NoError(t, store.Get(context.Background(), db.CollSchedules, id, &schedule))
	assert.False(t, schedule.IsActive)
}

func TestScheduleByID_NotFound(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.ScheduleByID(w, httptest.NewRequest("GET", "/api/schedules/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTasks_AdHocCreateAndStatus(t *testing.T) {
	h, store := newTestHandler(t)

	body, _ := json.Marshal(models.MaintenanceTask{
		EquipmentID:   "eq-1",
		BuildingID:    "bldg-1",
		Title:         "Broken door",
		ScheduledDate: time.Now().UTC().Add(24 * time.Hour),
	})
	w := httptest.NewRecorder()
	h.Tasks(w, httptest.NewRequest("POST", "/api/tasks", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)
	var created map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := created["id"]

	statusBody, _ := json.Marshal(map[string]string{"status": "in_progress"})
	w = httptest.NewRecorder()
	h.TaskByID(w, httptest.NewRequest("POST", "/api/tasks/"+id+"/status", bytes.NewReader(statusBody)))
	require.Equal(t, http.StatusOK, w.Code)

	var task models.MaintenanceTask
	require.NoError(t, store.Get(context.Background(), db.CollTasks, id, &task))
	assert.Equal(t, models.TaskInProgress, task.Status)

	// completed -> in_progress is a forbidden transition
	statusBody, _ = json.Marshal(map[string]string{"status": "completed"})
	w = httptest.NewRecorder()
	h.TaskByID(w, httptest.NewRequest("POST", "/api/tasks/"+id+"/status", bytes.NewReader(statusBody)))
	require.Equal(t, http.StatusOK, w.Code)

	statusBody, _ = json.Marshal(map[string]string{"status": "in_progress"})
	w = httptest.NewRecorder()
	h.TaskByID(w, httptest.NewRequest("POST", "/api/tasks/"+id+"/status", bytes.NewReader(statusBody)))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestTasks_ListWithStatusFilter(t *testing.T) {
	h, store := newTestHandler(t)

	_, err := store.Create(context.Background(), db.CollTasks, models.MaintenanceTask{
		BuildingID: "bldg-1", EquipmentID: "eq-1", Title: "a",
		Status: models.TaskScheduled, ScheduledDate: time.Now().UTC(),
	})
	require.NoError(t, err)
	_, err = store.Create(context.Background(), db.CollTasks, models.MaintenanceTask{
		BuildingID: "bldg-1", EquipmentID: "eq-1", Title: "b",
		Status: models.TaskCompleted, ScheduledDate: time.Now().UTC(),
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.Tasks(w, httptest.NewRequest("GET", "/api/tasks?building_id=bldg-1&status=completed", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var tasks []models.MaintenanceTask
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tasks))
	require.Len(t, tasks, 1)
	assert.Equal(t, "b", tasks[0].Title)
}

func TestUsageLogs_PostAndThresholdRoundTrip(t *testing.T) {
	h, store := newTestHandler(t)
	seedEquipment(t, store, "eq-1")

	_, err := store.Create(context.Background(), db.CollSchedules, models.MaintenanceSchedule{
		EquipmentID:  "eq-1",
		BuildingID:   "bldg-1",
		ScheduleName: "Runtime service",
		ScheduleType: models.ScheduleUsageBased,
		UsageBased:   &models.UsageBasedConfig{Threshold: 100, Unit: "hours"},
		IsActive:     true,
	})
	require.NoError(t, err)

	body, _ := json.Marshal(models.UsageLog{
		EquipmentID: "eq-1",
		UsageType:   "runtime_hours",
		UsageValue:  120,
		UsageUnit:   "hours",
	})
	w := httptest.NewRecorder()
	h.UsageLogs(w, httptest.NewRequest("POST", "/api/usage", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	h.EvaluateUsage(w, httptest.NewRequest("POST", "/api/admin/evaluate", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var result scheduler.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Created)
}

func TestUsageLogs_UnknownEquipment(t *testing.T) {
	h, _ := newTestHandler(t)

	body, _ := json.Marshal(models.UsageLog{
		EquipmentID: "ghost",
		UsageValue:  10,
		UsageUnit:   "hours",
	})
	w := httptest.NewRecorder()
	h.UsageLogs(w, httptest.NewRequest("POST", "/api/usage", bytes.NewReader(body)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestEvents_ListAfterSweep(t *testing.T) {
	h, store := newTestHandler(t)

	_, err := store.Create(context.Background(), db.CollTasks, models.MaintenanceTask{
		BuildingID: "bldg-1", EquipmentID: "eq-1", Title: "missed",
		Status: models.TaskScheduled, ScheduledDate: time.Now().UTC().Add(-48 * time.Hour),
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	h.SweepOverdue(w, httptest.NewRequest("POST", "/api/admin/sweep", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.Events(w, httptest.NewRequest("GET", "/api/events?building_id=bldg-1", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var events []models.Event
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &events))
	require.Len(t, events, 1)
	assert.Equal(t, models.EventTaskOverdue, events[0].Type)
}

func TestGenerateTasks_BadHorizon(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.GenerateTasks(w, httptest.NewRequest("POST", "/api/admin/generate?horizon_days=zero", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newTestHandler(t)

	w := httptest.NewRecorder()
	h.UsageLogs(w, httptest.NewRequest("GET", "/api/usage", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)

	w = httptest.NewRecorder()
	h.Events(w, httptest.NewRequest("POST", "/api/events", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
