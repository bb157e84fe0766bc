package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

func seedTask(t *testing.T, store *db.MemoryStore, task models.MaintenanceTask) string {
	t.Helper()
	if task.Status == "" {
		task.Status = models.TaskScheduled
	}
	id, err := store.Create(context.Background(), db.CollTasks, task)
	require.NoError(t, err)
	return id
}

func TestUpdateTaskStatus_InProgressStampsStartedAt(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(now)

	id := seedTask(t, store, models.MaintenanceTask{
		EquipmentID:   "eq-1",
		BuildingID:    "bldg-1",
		Title:         "Pump inspection",
		ScheduledDate: now,
	})

	require.NoError(t, engine.UpdateTaskStatus(context.Background(), id, models.TaskInProgress, "tech-1", ""))

	var task models.MaintenanceTask
	require.NoError(t, store.Get(context.Background(), db.CollTasks, id, &task))
	assert.Equal(t, models.TaskInProgress, task.Status)
	require.NotNil(t, task.StartedAt)
	assert.True(t, task.StartedAt.Equal(now))
	assert.Nil(t, task.CompletedAt)
}

func TestUpdateTaskStatus_CompletionReschedulesMonthly(t *testing.T) {
	// Completing on 2025-03-10 moves the schedule's next due date to
	// 2025-04-10 regardless of the original scheduled date.
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	engine, store, sink := newTestEngine(now)

	originalDue := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	scheduleID := seedTimeSchedule(t, store, models.MaintenanceSchedule{
		EquipmentID:  "eq-1",
		BuildingID:   "bldg-1",
		ScheduleName: "Monthly belt check",
		TimeBased:    &models.TimeBasedConfig{Pattern: models.PatternMonthly, IntervalValue: 1},
		NextDueDate:  &originalDue,
	})
	taskID := seedTask(t, store, models.MaintenanceTask{
		ScheduleID:    scheduleID,
		EquipmentID:   "eq-1",
		BuildingID:    "bldg-1",
		Title:         "Monthly belt check - AHU-01",
		ScheduledDate: originalDue,
	})

	require.NoError(t, engine.UpdateTaskStatus(context.Background(), taskID, models.TaskCompleted, "tech-1", "replaced belt"))

	var task models.MaintenanceTask
	require.NoError(t, store.Get(context.Background(), db.CollTasks, taskID, &task))
	assert.Equal(t, models.TaskCompleted, task.Status)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, "replaced belt", task.CompletionNotes)

	var schedule models.MaintenanceSchedule
	require.NoError(t, store.Get(context.Background(), db.CollSchedules, scheduleID, &schedule))
	require.NotNil(t, schedule.NextDueDate)
	assert.Equal(t, time.Date(2025, 4, 10, 14, 0, 0, 0, time.UTC), schedule.NextDueDate.UTC())

	require.Len(t, sink.ofType(models.EventTaskCompleted), 1)
}

func TestUpdateTaskStatus_CompletionSnapshotsUsage(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(now)
	seedEquipment(t, store, "eq-1", "Chiller 1", "Basement", "bldg-1")

	scheduleID := seedTimeSchedule(t, store, models.MaintenanceSchedule{
		EquipmentID:  "eq-1",
		BuildingID:   "bldg-1",
		ScheduleName: "Runtime service",
		ScheduleType: models.ScheduleUsageBased,
		UsageBased:   &models.UsageBasedConfig{Threshold: 100, Unit: "hours"},
	})
	seedUsageLog(t, store, "eq-1", "hours", 80, now.AddDate(0, 0, -2))
	seedUsageLog(t, store, "eq-1", "hours", 45, now.AddDate(0, 0, -1))

	taskID := seedTask(t, store, models.MaintenanceTask{
		ScheduleID:    scheduleID,
		EquipmentID:   "eq-1",
		BuildingID:    "bldg-1",
		Title:         "Runtime service - Chiller 1",
		ScheduledDate: now,
	})

	require.NoError(t, engine.UpdateTaskStatus(context.Background(), taskID, models.TaskCompleted, "tech-1", ""))

	var task models.MaintenanceTask
	require.NoError(t, store.Get(context.Background(), db.CollTasks, taskID, &task))
	require.NotNil(t, task.UsageAtCompletion)
	assert.Equal(t, 125.0, *task.UsageAtCompletion)
}

func TestUpdateTaskStatus_AdHocTaskHasNoSideEffects(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(now)

	taskID := seedTask(t, store, models.MaintenanceTask{
		EquipmentID:   "eq-1",
		BuildingID:    "bldg-1",
		Title:         "One-off repair",
		ScheduledDate: now,
	})

	require.NoError(t, engine.UpdateTaskStatus(context.Background(), taskID, models.TaskCompleted, "tech-1", ""))

	var task models.MaintenanceTask
	require.NoError(t, store.Get(context.Background(), db.CollTasks, taskID, &task))
	assert.Nil(t, task.UsageAtCompletion)
}

func TestUpdateTaskStatus_OverdueTaskCanResume(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(now)

	taskID := seedTask(t, store, models.MaintenanceTask{
		EquipmentID:   "eq-1",
		BuildingID:    "bldg-1",
		Title:         "Late inspection",
		ScheduledDate: now.AddDate(0, 0, -3),
		Status:        models.TaskOverdue,
	})

	require.NoError(t, engine.UpdateTaskStatus(context.Background(), taskID, models.TaskInProgress, "tech-1", ""))
	require.NoError(t, engine.UpdateTaskStatus(context.Background(), taskID, models.TaskCompleted, "tech-1", "caught up"))

	var task models.MaintenanceTask
	require.NoError(t, store.Get(context.Background(), db.CollTasks, taskID, &task))
	assert.Equal(t, models.TaskCompleted, task.Status)
}

func TestUpdateTaskStatus_Rejections(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(now)

	err := engine.UpdateTaskStatus(context.Background(), "missing", models.TaskAssigned, "tech-1", "")
	assert.ErrorIs(t, err, ErrNotFound)

	taskID := seedTask(t, store, models.MaintenanceTask{
		EquipmentID:   "eq-1",
		BuildingID:    "bldg-1",
		Title:         "Inspection",
		ScheduledDate: now,
	})

	err = engine.UpdateTaskStatus(context.Background(), taskID, models.TaskStatus("bogus"), "tech-1", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	require.NoError(t, engine.UpdateTaskStatus(context.Background(), taskID, models.TaskCompleted, "tech-1", ""))
	err = engine.UpdateTaskStatus(context.Background(), taskID, models.TaskInProgress, "tech-1", "")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCreateTask_AdHoc(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(now)

	id, err := engine.CreateTask(context.Background(), models.MaintenanceTask{
		EquipmentID:   "eq-1",
		BuildingID:    "bldg-1",
		Title:         "Broken door handle",
		Location:      "Floor 3",
		ScheduledDate: now.AddDate(0, 0, 1),
	}, "manager-1")
	require.NoError(t, err)

	var task models.MaintenanceTask
	require.NoError(t, store.Get(context.Background(), db.CollTasks, id, &task))
	assert.Equal(t, models.TaskScheduled, task.Status)
	assert.Equal(t, "on_demand", task.TaskType)
	assert.Equal(t, "corrective", task.Category)
	assert.Equal(t, "none", task.RecurrenceType)
	assert.Equal(t, "manager-1", task.CreatedBy)
	assert.Empty(t, task.ScheduleID)
}

func TestCreateTask_Validation(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	engine, _, _ := newTestEngine(now)

	var verr *ValidationError
	_, err := engine.CreateTask(context.Background(), models.MaintenanceTask{Title: "x", ScheduledDate: now}, "u")
	assert.ErrorAs(t, err, &verr)
	_, err = engine.CreateTask(context.Background(), models.MaintenanceTask{BuildingID: "b", ScheduledDate: now}, "u")
	assert.ErrorAs(t, err, &verr)
	_, err = engine.CreateTask(context.Background(), models.MaintenanceTask{BuildingID: "b", Title: "x"}, "u")
	assert.ErrorAs(t, err, &verr)
}

func TestListTasks_FiltersAndSorts(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	engine, store, _ := newTestEngine(now)

	seedTask(t, store, models.MaintenanceTask{
		BuildingID: "bldg-1", EquipmentID: "eq-1", Title: "c",
		ScheduledDate: now.AddDate(0, 0, 3),
	})
	seedTask(t, store, models.MaintenanceTask{
		BuildingID: "bldg-1", EquipmentID: "eq-1", Title: "a",
		ScheduledDate: now.AddDate(0, 0, 1),
	})
	seedTask(t, store, models.MaintenanceTask{
		BuildingID: "bldg-1", EquipmentID: "eq-2", Title: "b",
		ScheduledDate: now.AddDate(0, 0, 2), Status: models.TaskCompleted,
	})
	seedTask(t, store, models.MaintenanceTask{
		BuildingID: "bldg-2", EquipmentID: "eq-3", Title: "other building",
		ScheduledDate: now,
	})

	all, err := engine.ListTasks(context.Background(), "bldg-1", TaskFilters{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].Title)
	assert.Equal(t, "b", all[1].Title)
	assert.Equal(t, "c", all[2].Title)

	completed, err := engine.ListTasks(context.Background(), "bldg-1", TaskFilters{Status: models.TaskCompleted})
	require.NoError(t, err)
	require.Len(t, completed, 1)

	from := now.AddDate(0, 0, 2)
	windowed, err := engine.ListTasks(context.Background(), "bldg-1", TaskFilters{From: &from})
	require.NoError(t, err)
	assert.Len(t, windowed, 2)

	byEquipment, err := engine.ListTasks(context.Background(), "bldg-1", TaskFilters{EquipmentID: "eq-1"})
	require.NoError(t, err)
	assert.Len(t, byEquipment, 2)
}
