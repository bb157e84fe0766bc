package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

// UpdateTaskStatus moves a task through its lifecycle. Entering in_progress
// stamps started_at; entering completed stamps completed_at, stores the
// completion notes, snapshots cumulative usage for usage-based schedules,
// and recomputes the owning schedule's next due date from the completion
// moment.
func (e *Engine) UpdateTaskStatus(ctx context.Context, taskID string, status models.TaskStatus, actor, notes string) error {
	task, err := e.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !models.IsValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidStatus, status)
	}
	if !models.CanTransition(task.Status, status) {
		return fmt.Errorf("%w: cannot move task from %s to %s", ErrInvalidStatus, task.Status, status)
	}

	now := e.clock.Now()
	patch := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}

	switch status {
	case models.TaskInProgress:
		patch["started_at"] = now
	case models.TaskCompleted:
		patch["completed_at"] = now
		if notes != "" {
			patch["completion_notes"] = notes
		}
		if snapshot, ok := e.usageSnapshot(ctx, task); ok {
			patch["usage_at_completion"] = snapshot
		}
	}

	if err := e.store.Update(ctx, db.CollTasks, taskID, patch); err != nil {
		return fmt.Errorf("update task %s: %w", taskID, err)
	}
	e.log.WithFields(map[string]interface{}{
		"task_id": taskID,
		"status":  status,
		"actor":   actor,
	}).Info("updated task status")

	if status == models.TaskCompleted {
		e.rescheduleAfterCompletion(ctx, task)
	}
	e.emitTransitionEvent(ctx, task, status, actor, now)
	return nil
}

// GetTask fetches one task by id.
func (e *Engine) GetTask(ctx context.Context, id string) (*models.MaintenanceTask, error) {
	var task models.MaintenanceTask
	if err := e.store.Get(ctx, db.CollTasks, id, &task); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &task, nil
}

// CreateTask records an ad hoc task not tied to any schedule.
func (e *Engine) CreateTask(ctx context.Context, task models.MaintenanceTask, createdBy string) (string, error) {
	if task.BuildingID == "" {
		return "", &ValidationError{Field: "building_id", Reason: "required"}
	}
	if task.Title == "" {
		return "", &ValidationError{Field: "title", Reason: "required"}
	}
	if task.ScheduledDate.IsZero() {
		return "", &ValidationError{Field: "scheduled_date", Reason: "required"}
	}

	now := e.clock.Now()
	task.Status = models.TaskScheduled
	if task.TaskType == "" {
		task.TaskType = "on_demand"
	}
	if task.Category == "" {
		task.Category = "corrective"
	}
	if task.Priority == "" {
		task.Priority = "medium"
	}
	if task.RecurrenceType == "" {
		task.RecurrenceType = "none"
	}
	task.CreatedBy = createdBy
	task.CreatedAt = now
	task.UpdatedAt = now

	id, err := e.store.Create(ctx, db.CollTasks, task)
	if err != nil {
		return "", fmt.Errorf("create task: %w", err)
	}
	e.log.WithField("task_id", id).Info("created ad hoc maintenance task")
	return id, nil
}

// TaskFilters narrows ListTasks results. Zero values are ignored.
type TaskFilters struct {
	Status      models.TaskStatus
	EquipmentID string
	AssignedTo  string
	From        *time.Time
	To          *time.Time
}

// ListTasks returns a building's tasks sorted by scheduled date.
func (e *Engine) ListTasks(ctx context.Context, buildingID string, f TaskFilters) ([]models.MaintenanceTask, error) {
	filters := []db.Filter{db.Eq("building_id", buildingID)}
	if f.Status != "" {
		filters = append(filters, db.Eq("status", f.Status))
	}
	if f.EquipmentID != "" {
		filters = append(filters, db.Eq("equipment_id", f.EquipmentID))
	}
	if f.AssignedTo != "" {
		filters = append(filters, db.Eq("assigned_to", f.AssignedTo))
	}
	if f.From != nil {
		filters = append(filters, db.Filter{Field: "scheduled_date", Op: ">=", Value: *f.From})
	}
	if f.To != nil {
		filters = append(filters, db.Filter{Field: "scheduled_date", Op: "<=", Value: *f.To})
	}

	var tasks []models.MaintenanceTask
	if err := e.store.Query(ctx, db.CollTasks, filters, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ScheduledDate.Before(tasks[j].ScheduledDate)
	})
	return tasks, nil
}

// usageSnapshot captures cumulative usage at completion time for tasks whose
// owning schedule is usage-based. That value becomes the next evaluation
// baseline.
func (e *Engine) usageSnapshot(ctx context.Context, task *models.MaintenanceTask) (float64, bool) {
	if task.ScheduleID == "" {
		return 0, false
	}
	schedule, err := e.GetSchedule(ctx, task.ScheduleID)
	if err != nil {
		e.log.WithField("task_id", task.ID).WithError(err).Warn("owning schedule lookup failed, skipping usage snapshot")
		return 0, false
	}
	if schedule.ScheduleType != models.ScheduleUsageBased || schedule.UsageBased == nil {
		return 0, false
	}
	total, err := e.TotalUsage(ctx, schedule.EquipmentID, schedule.UsageBased.Unit)
	if err != nil {
		e.log.WithField("task_id", task.ID).WithError(err).Warn("usage snapshot failed")
		return 0, false
	}
	return total, true
}

// rescheduleAfterCompletion advances the owning time-based schedule's next
// due date from the completion moment, not from the original scheduled date,
// so a late completion shifts all future occurrences forward.
func (e *Engine) rescheduleAfterCompletion(ctx context.Context, task *models.MaintenanceTask) {
	if task.ScheduleID == "" {
		return
	}
	schedule, err := e.GetSchedule(ctx, task.ScheduleID)
	if err != nil {
		e.log.WithField("task_id", task.ID).WithError(err).Warn("owning schedule lookup failed, skipping reschedule")
		return
	}
	if schedule.ScheduleType != models.ScheduleTimeBased || schedule.TimeBased == nil {
		return
	}
	due := NextDue(*schedule.TimeBased, e.clock.Now())
	if err := e.store.Update(ctx, db.CollSchedules, schedule.ID, map[string]interface{}{
		"next_due_date": due,
	}); err != nil {
		e.log.WithField("schedule_id", schedule.ID).WithError(err).Error("failed to advance next due date")
		return
	}
	e.log.WithFields(map[string]interface{}{
		"schedule_id":   schedule.ID,
		"next_due_date": due,
	}).Info("advanced schedule after task completion")
}

func (e *Engine) emitTransitionEvent(ctx context.Context, task *models.MaintenanceTask, status models.TaskStatus, actor string, now time.Time) {
	var evType models.EventType
	var title string
	switch status {
	case models.TaskAssigned:
		evType, title = models.EventTaskAssigned, "Maintenance task assigned"
	case models.TaskCompleted:
		evType, title = models.EventTaskCompleted, "Maintenance task completed"
	case models.TaskOverdue:
		evType, title = models.EventTaskOverdue, "Maintenance task overdue"
	default:
		return
	}
	e.events.Emit(ctx, models.Event{
		Type:        evType,
		TaskID:      task.ID,
		ScheduleID:  task.ScheduleID,
		EquipmentID: task.EquipmentID,
		BuildingID:  task.BuildingID,
		Title:       title,
		Message:     fmt.Sprintf("%s is now %s (by %s)", task.Title, status, actor),
		CreatedAt:   now,
	})
}
