package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

// TotalUsage sums every logged usage value for an equipment unit in the
// given unit of measure. Logged values are treated as summable deltas.
func (e *Engine) TotalUsage(ctx context.Context, equipmentID, unit string) (float64, error) {
	var logs []models.UsageLog
	err := e.store.Query(ctx, db.CollUsageLogs, []db.Filter{
		db.Eq("equipment_id", equipmentID),
		db.Eq("usage_unit", unit),
	}, &logs)
	if err != nil {
		return 0, fmt.Errorf("query usage logs for %s: %w", equipmentID, err)
	}
	total := 0.0
	for _, l := range logs {
		total += l.UsageValue
	}
	return total, nil
}

// lastMaintenanceUsage returns the usage value snapshotted at the most
// recently completed task for a schedule, or 0 if none was ever completed.
func (e *Engine) lastMaintenanceUsage(ctx context.Context, scheduleID string) (float64, error) {
	var tasks []models.MaintenanceTask
	err := e.store.Query(ctx, db.CollTasks, []db.Filter{
		db.Eq("schedule_id", scheduleID),
		db.Eq("status", models.TaskCompleted),
	}, &tasks)
	if err != nil {
		return 0, fmt.Errorf("query completed tasks for schedule %s: %w", scheduleID, err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}
	sort.Slice(tasks, func(i, j int) bool {
		ti, tj := tasks[i].CompletedAt, tasks[j].CompletedAt
		if ti == nil {
			return false
		}
		if tj == nil {
			return true
		}
		return ti.After(*tj)
	})
	if tasks[0].UsageAtCompletion == nil {
		return 0, nil
	}
	return *tasks[0].UsageAtCompletion, nil
}

// UsageSinceMaintenance derives how much usage the equipment has accumulated
// since the schedule's last completed task.
func (e *Engine) UsageSinceMaintenance(ctx context.Context, schedule models.MaintenanceSchedule) (float64, error) {
	if schedule.ScheduleType != models.ScheduleUsageBased || schedule.UsageBased == nil {
		return 0, &ValidationError{Field: "schedule_type", Reason: "usage accumulation requires a usage_based schedule"}
	}
	current, err := e.TotalUsage(ctx, schedule.EquipmentID, schedule.UsageBased.Unit)
	if err != nil {
		return 0, err
	}
	baseline, err := e.lastMaintenanceUsage(ctx, schedule.ID)
	if err != nil {
		return 0, err
	}
	return current - baseline, nil
}

// EvaluateUsageThresholds checks every active usage-based schedule and
// generates a task when accumulated usage since the last completed
// maintenance meets or exceeds the threshold. Repeated passes before the
// triggered task is completed will generate additional tasks; the baseline
// only resets on completion.
func (e *Engine) EvaluateUsageThresholds(ctx context.Context) BatchResult {
	var result BatchResult

	var schedules []models.MaintenanceSchedule
	err := e.store.Query(ctx, db.CollSchedules, []db.Filter{
		db.Eq("is_active", true),
		db.Eq("schedule_type", models.ScheduleUsageBased),
	}, &schedules)
	if err != nil {
		e.log.WithError(err).Error("failed to query usage-based schedules")
		result.recordFailure(fmt.Errorf("query schedules: %w", err))
		return result
	}

	for _, schedule := range schedules {
		result.Attempted++
		created, err := e.evaluateSchedule(ctx, schedule)
		if err != nil {
			e.log.WithField("schedule_id", schedule.ID).WithError(err).Error("usage threshold evaluation failed")
			result.recordFailure(fmt.Errorf("schedule %s: %w", schedule.ID, err))
			continue
		}
		result.Succeeded++
		result.Created += created
	}

	e.log.WithField("created", result.Created).Info("usage threshold evaluation complete")
	return result
}

func (e *Engine) evaluateSchedule(ctx context.Context, schedule models.MaintenanceSchedule) (int, error) {
	delta, err := e.UsageSinceMaintenance(ctx, schedule)
	if err != nil {
		return 0, err
	}
	if delta < schedule.UsageBased.Threshold {
		return 0, nil
	}

	now := e.clock.Now()
	task := e.buildTask(ctx, schedule, now)
	task.Description = fmt.Sprintf("%s (usage threshold reached: %g of %g %s)",
		task.Description, delta, schedule.UsageBased.Threshold, schedule.UsageBased.Unit)

	taskID, err := e.store.Create(ctx, db.CollTasks, task)
	if err != nil {
		return 0, fmt.Errorf("create usage-based task: %w", err)
	}
	if err := e.store.Update(ctx, db.CollSchedules, schedule.ID, map[string]interface{}{
		"last_generated": now,
	}); err != nil {
		e.log.WithField("schedule_id", schedule.ID).WithError(err).Warn("failed to stamp last_generated")
	}

	e.log.WithFields(map[string]interface{}{
		"schedule_id":  schedule.ID,
		"equipment_id": schedule.EquipmentID,
		"delta":        delta,
	}).Info("generated usage-based maintenance task")

	e.events.Emit(ctx, models.Event{
		Type:        models.EventUsageThreshold,
		TaskID:      taskID,
		ScheduleID:  schedule.ID,
		EquipmentID: schedule.EquipmentID,
		BuildingID:  schedule.BuildingID,
		Title:       "Equipment usage threshold reached",
		Message: fmt.Sprintf("%s accumulated %g %s since last maintenance (threshold %g)",
			schedule.EquipmentID, delta, schedule.UsageBased.Unit, schedule.UsageBased.Threshold),
		CreatedAt: now,
	})
	return 1, nil
}

// LogUsage validates and appends one usage-log entry, then bumps the
// equipment's last-usage marker.
func (e *Engine) LogUsage(ctx context.Context, entry models.UsageLog) (string, error) {
	if entry.EquipmentID == "" {
		return "", &ValidationError{Field: "equipment_id", Reason: "required"}
	}
	if entry.UsageValue <= 0 {
		return "", &ValidationError{Field: "usage_value", Reason: "must be positive"}
	}
	if entry.UsageUnit == "" {
		return "", &ValidationError{Field: "usage_unit", Reason: "required"}
	}

	var eq models.Equipment
	if err := e.store.Get(ctx, db.CollEquipment, entry.EquipmentID, &eq); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("equipment %s: %w", entry.EquipmentID, ErrNotFound)
		}
		return "", err
	}

	now := e.clock.Now()
	if entry.BuildingID == "" {
		entry.BuildingID = eq.BuildingID
	}
	if entry.RecordedBy == "" {
		entry.RecordedBy = "system"
	}
	if entry.RecordingMethod == "" {
		entry.RecordingMethod = "manual"
	}
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = now
	}
	entry.CreatedAt = now

	id, err := e.store.Create(ctx, db.CollUsageLogs, entry)
	if err != nil {
		return "", fmt.Errorf("create usage log: %w", err)
	}
	if err := e.store.Update(ctx, db.CollEquipment, entry.EquipmentID, map[string]interface{}{
		"last_usage_logged": now,
	}); err != nil {
		e.log.WithField("equipment_id", entry.EquipmentID).WithError(err).Warn("failed to stamp last_usage_logged")
	}
	e.log.WithFields(map[string]interface{}{
		"equipment_id": entry.EquipmentID,
		"usage_value":  entry.UsageValue,
		"usage_unit":   entry.UsageUnit,
	}).Info("logged equipment usage")
	return id, nil
}
