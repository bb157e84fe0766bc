package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

// initialHorizonDays is the short forward horizon materialized immediately
// when a schedule is created.
const initialHorizonDays = 30

// CreateSchedule validates and persists a new schedule, bootstraps its next
// due date, and runs an initial generation pass over a short horizon.
func (e *Engine) CreateSchedule(ctx context.Context, s models.MaintenanceSchedule, createdBy string) (string, error) {
	if err := validateSchedule(&s); err != nil {
		return "", err
	}

	now := e.clock.Now()
	s.CreatedBy = createdBy
	s.CreatedAt = now
	s.UpdatedAt = now
	s.IsActive = true
	s.LastGenerated = nil

	if s.ScheduleType == models.ScheduleTimeBased {
		due := NextDue(*s.TimeBased, now)
		s.NextDueDate = &due
	} else {
		s.NextDueDate = nil
	}

	id, err := e.store.Create(ctx, db.CollSchedules, s)
	if err != nil {
		return "", fmt.Errorf("create schedule: %w", err)
	}
	s.ID = id
	e.log.WithField("schedule_id", id).Info("created maintenance schedule")

	if s.ScheduleType == models.ScheduleTimeBased {
		horizon := now.AddDate(0, 0, initialHorizonDays)
		if _, err := e.GenerateForSchedule(ctx, s, horizon); err != nil {
			e.log.WithField("schedule_id", id).WithError(err).Error("initial task generation failed")
		}
	}
	return id, nil
}

// UpdateSchedule applies a partial update. Changing any scheduling parameter
// recomputes the next due date.
func (e *Engine) UpdateSchedule(ctx context.Context, id string, upd models.ScheduleUpdate) error {
	existing, err := e.GetSchedule(ctx, id)
	if err != nil {
		return err
	}

	if upd.ScheduleName != nil {
		existing.ScheduleName = *upd.ScheduleName
	}
	if upd.Description != nil {
		existing.Description = *upd.Description
	}
	if upd.TimeBased != nil {
		existing.TimeBased = upd.TimeBased
	}
	if upd.UsageBased != nil {
		existing.UsageBased = upd.UsageBased
	}
	if upd.EstimatedDuration != nil {
		existing.EstimatedDuration = *upd.EstimatedDuration
	}
	if upd.RequiredParts != nil {
		existing.RequiredParts = upd.RequiredParts
	}
	if upd.Priority != nil {
		existing.Priority = *upd.Priority
	}
	if upd.IsActive != nil {
		existing.IsActive = *upd.IsActive
	}
	if err := validateSchedule(existing); err != nil {
		return err
	}

	now := e.clock.Now()
	patch := map[string]interface{}{
		"schedule_name":      existing.ScheduleName,
		"description":        existing.Description,
		"estimated_duration": existing.EstimatedDuration,
		"required_parts":     existing.RequiredParts,
		"priority":           existing.Priority,
		"is_active":          existing.IsActive,
		"updated_at":         now,
	}
	if upd.TimeBased != nil {
		patch["time_based"] = existing.TimeBased
	}
	if upd.UsageBased != nil {
		patch["usage_based"] = existing.UsageBased
	}
	if upd.ChangesScheduling() && existing.ScheduleType == models.ScheduleTimeBased {
		due := NextDue(*existing.TimeBased, now)
		patch["next_due_date"] = due
	}

	if err := e.store.Update(ctx, db.CollSchedules, id, patch); err != nil {
		return fmt.Errorf("update schedule %s: %w", id, err)
	}
	e.log.WithField("schedule_id", id).Info("updated maintenance schedule")
	return nil
}

// GetSchedule fetches one schedule by id.
func (e *Engine) GetSchedule(ctx context.Context, id string) (*models.MaintenanceSchedule, error) {
	var s models.MaintenanceSchedule
	if err := e.store.Get(ctx, db.CollSchedules, id, &s); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &s, nil
}

// ListSchedules returns schedules for a building, optionally narrowed to one
// equipment unit and/or active schedules only, sorted by name.
func (e *Engine) ListSchedules(ctx context.Context, buildingID, equipmentID string, activeOnly bool) ([]models.MaintenanceSchedule, error) {
	filters := []db.Filter{db.Eq("building_id", buildingID)}
	if equipmentID != "" {
		filters = append(filters, db.Eq("equipment_id", equipmentID))
	}
	if activeOnly {
		filters = append(filters, db.Eq("is_active", true))
	}
	var schedules []models.MaintenanceSchedule
	if err := e.store.Query(ctx, db.CollSchedules, filters, &schedules); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].ScheduleName < schedules[j].ScheduleName
	})
	return schedules, nil
}

// DeactivateSchedule soft-deletes a schedule. Generated tasks keep their
// linkage; generation and evaluation skip inactive schedules.
func (e *Engine) DeactivateSchedule(ctx context.Context, id string) error {
	inactive := false
	return e.UpdateSchedule(ctx, id, models.ScheduleUpdate{IsActive: &inactive})
}

// validateSchedule rejects malformed configurations and normalizes
// defaults. A schedule is either time-based or usage-based, never both.
func validateSchedule(s *models.MaintenanceSchedule) error {
	if s.EquipmentID == "" {
		return &ValidationError{Field: "equipment_id", Reason: "required"}
	}
	if s.BuildingID == "" {
		return &ValidationError{Field: "building_id", Reason: "required"}
	}
	if s.ScheduleName == "" {
		return &ValidationError{Field: "schedule_name", Reason: "required"}
	}
	if s.Priority == "" {
		s.Priority = "medium"
	}

	switch s.ScheduleType {
	case models.ScheduleTimeBased:
		if s.TimeBased == nil {
			return &ValidationError{Field: "time_based", Reason: "required for time_based schedules"}
		}
		if s.UsageBased != nil {
			return &ValidationError{Field: "usage_based", Reason: "not allowed on time_based schedules"}
		}
		return validateTimeConfig(s.TimeBased)
	case models.ScheduleUsageBased:
		if s.UsageBased == nil {
			return &ValidationError{Field: "usage_based", Reason: "required for usage_based schedules"}
		}
		if s.TimeBased != nil {
			return &ValidationError{Field: "time_based", Reason: "not allowed on usage_based schedules"}
		}
		if s.UsageBased.Threshold <= 0 {
			return &ValidationError{Field: "usage_based.threshold", Reason: "must be positive"}
		}
		if s.UsageBased.Unit == "" {
			return &ValidationError{Field: "usage_based.unit", Reason: "required"}
		}
		return nil
	case models.ScheduleConditionBased:
		return &ValidationError{Field: "schedule_type", Reason: "condition_based schedules are not supported yet"}
	default:
		return &ValidationError{Field: "schedule_type", Reason: fmt.Sprintf("unknown type %q", s.ScheduleType)}
	}
}

func validateTimeConfig(cfg *models.TimeBasedConfig) error {
	if !models.IsValidPattern(cfg.Pattern) {
		return &ValidationError{Field: "time_based.pattern", Reason: fmt.Sprintf("unknown pattern %q", cfg.Pattern)}
	}
	if cfg.IntervalValue < 0 {
		return &ValidationError{Field: "time_based.interval_value", Reason: "must be at least 1"}
	}
	if cfg.IntervalValue == 0 {
		cfg.IntervalValue = 1
	}
	if len(cfg.SpecificDays) > 0 {
		if cfg.Pattern != models.PatternWeekly {
			return &ValidationError{Field: "time_based.specific_days", Reason: "only valid for weekly schedules"}
		}
		for _, d := range cfg.SpecificDays {
			if _, ok := weekdayNames[normalizeDay(d)]; !ok {
				return &ValidationError{Field: "time_based.specific_days", Reason: fmt.Sprintf("unknown weekday %q", d)}
			}
		}
	}
	if len(cfg.SpecificDates) > 0 {
		if cfg.Pattern != models.PatternMonthly {
			return &ValidationError{Field: "time_based.specific_dates", Reason: "only valid for monthly schedules"}
		}
		for _, d := range cfg.SpecificDates {
			if d < 1 || d > 31 {
				return &ValidationError{Field: "time_based.specific_dates", Reason: "days must be between 1 and 31"}
			}
		}
	}
	return nil
}
