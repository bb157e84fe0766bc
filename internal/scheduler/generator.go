package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

// maxTasksPerRun bounds one generation walk so a misconfigured interval
// cannot materialize unbounded work in a single pass.
const maxTasksPerRun = 100

// GenerateForSchedule walks a time-based schedule's occurrences from its
// next due date (or now, if unset) up to the horizon, creating one task per
// occurrence unless a task already exists for that schedule on that calendar
// day. Returns the number of tasks created.
func (e *Engine) GenerateForSchedule(ctx context.Context, schedule models.MaintenanceSchedule, horizon time.Time) (int, error) {
	if schedule.ScheduleType != models.ScheduleTimeBased || schedule.TimeBased == nil {
		return 0, &ValidationError{Field: "schedule_type", Reason: "task generation requires a time_based schedule"}
	}

	cursor := e.clock.Now()
	if schedule.NextDueDate != nil {
		cursor = *schedule.NextDueDate
	}

	created := 0
	for !cursor.After(horizon) {
		exists, err := e.taskExistsOn(ctx, schedule.ID, cursor)
		if err != nil {
			return created, err
		}
		if !exists {
			task := e.buildTask(ctx, schedule, cursor)
			if _, err := e.store.Create(ctx, db.CollTasks, task); err != nil {
				return created, fmt.Errorf("create task for schedule %s: %w", schedule.ID, err)
			}
			created++
			e.log.WithFields(map[string]interface{}{
				"schedule_id":    schedule.ID,
				"scheduled_date": cursor,
			}).Debug("generated maintenance task")
		}
		if created >= maxTasksPerRun {
			e.log.WithField("schedule_id", schedule.ID).
				Warnf("generated maximum tasks (%d) in one pass, aborting walk: %v", maxTasksPerRun, ErrGenerationLimit)
			break
		}
		cursor = NextOccurrence(*schedule.TimeBased, cursor)
	}
	return created, nil
}

// GenerateAll runs generation for every active time-based schedule over a
// rolling horizon of horizonDays. A failure on one schedule is logged and
// reported in the summary without aborting the batch.
func (e *Engine) GenerateAll(ctx context.Context, horizonDays int) BatchResult {
	var result BatchResult

	var schedules []models.MaintenanceSchedule
	err := e.store.Query(ctx, db.CollSchedules, []db.Filter{
		db.Eq("is_active", true),
		db.Eq("schedule_type", models.ScheduleTimeBased),
	}, &schedules)
	if err != nil {
		e.log.WithError(err).Error("failed to query active schedules")
		result.recordFailure(fmt.Errorf("query schedules: %w", err))
		return result
	}

	now := e.clock.Now()
	horizon := now.AddDate(0, 0, horizonDays)
	e.log.WithField("schedules", len(schedules)).Infof("generating scheduled tasks through %s", horizon.Format("2006-01-02"))

	for _, schedule := range schedules {
		result.Attempted++
		count, err := e.GenerateForSchedule(ctx, schedule, horizon)
		result.Created += count
		if err != nil {
			e.log.WithField("schedule_id", schedule.ID).WithError(err).Error("task generation failed")
			result.recordFailure(fmt.Errorf("schedule %s: %w", schedule.ID, err))
			continue
		}
		result.Succeeded++
		if err := e.store.Update(ctx, db.CollSchedules, schedule.ID, map[string]interface{}{
			"last_generated": now,
		}); err != nil {
			e.log.WithField("schedule_id", schedule.ID).WithError(err).Warn("failed to stamp last_generated")
		}
	}

	e.log.WithFields(map[string]interface{}{
		"created": result.Created,
		"failed":  result.Failed,
	}).Info("task generation pass complete")
	return result
}

// taskExistsOn reports whether a task for the schedule already exists within
// the same calendar day as the occurrence. This read-then-write guard is the
// idempotency mechanism; concurrent passes over the same schedule can still
// race, which is an accepted bounded risk.
func (e *Engine) taskExistsOn(ctx context.Context, scheduleID string, occurrence time.Time) (bool, error) {
	dayStart := time.Date(occurrence.Year(), occurrence.Month(), occurrence.Day(), 0, 0, 0, 0, occurrence.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	var tasks []models.MaintenanceTask
	err := e.store.Query(ctx, db.CollTasks, []db.Filter{
		db.Eq("schedule_id", scheduleID),
		{Field: "scheduled_date", Op: ">=", Value: dayStart},
		{Field: "scheduled_date", Op: "<", Value: dayEnd},
	}, &tasks)
	if err != nil {
		return false, fmt.Errorf("check existing tasks: %w", err)
	}
	return len(tasks) > 0, nil
}

// buildTask materializes one task from a schedule, enriched with the
// equipment's display name/location and the optional template's defaults.
func (e *Engine) buildTask(ctx context.Context, schedule models.MaintenanceSchedule, scheduledDate time.Time) models.MaintenanceTask {
	equipmentName, location := e.equipmentInfo(ctx, schedule.EquipmentID)

	duration := schedule.EstimatedDuration
	parts := schedule.RequiredParts
	if tpl := e.templateInfo(ctx, schedule.TemplateID); tpl != nil {
		if duration == 0 {
			duration = tpl.EstimatedDuration
		}
		if len(parts) == 0 {
			parts = tpl.RequiredParts
		}
	}

	recurrence := "none"
	if schedule.TimeBased != nil {
		recurrence = string(schedule.TimeBased.Pattern)
	}

	now := e.clock.Now()
	return models.MaintenanceTask{
		ScheduleID:        schedule.ID,
		TemplateID:        schedule.TemplateID,
		EquipmentID:       schedule.EquipmentID,
		BuildingID:        schedule.BuildingID,
		Title:             fmt.Sprintf("%s - %s", schedule.ScheduleName, equipmentName),
		Description:       schedule.Description,
		Location:          location,
		Category:          "preventive",
		Priority:          schedule.Priority,
		TaskType:          "scheduled",
		ScheduledDate:     scheduledDate,
		EstimatedDuration: duration,
		RequiredParts:     parts,
		RecurrenceType:    recurrence,
		Status:            models.TaskScheduled,
		CreatedBy:         "system",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
