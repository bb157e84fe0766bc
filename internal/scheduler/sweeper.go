package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/facilix/building-maintenance/internal/db"
	"github.com/facilix/building-maintenance/internal/models"
)

// SweepOverdue marks every still-scheduled task whose scheduled date has
// passed as overdue. The pass is idempotent (already-overdue tasks no longer
// match the filter) and only ever sets the overdue status; later status
// updates are never blocked by it.
func (e *Engine) SweepOverdue(ctx context.Context, now time.Time) BatchResult {
	var result BatchResult

	var tasks []models.MaintenanceTask
	err := e.store.Query(ctx, db.CollTasks, []db.Filter{
		db.Eq("status", models.TaskScheduled),
		{Field: "scheduled_date", Op: "<", Value: now},
	}, &tasks)
	if err != nil {
		e.log.WithError(err).Error("failed to query overdue candidates")
		result.recordFailure(fmt.Errorf("query tasks: %w", err))
		return result
	}

	for _, task := range tasks {
		result.Attempted++
		err := e.store.Update(ctx, db.CollTasks, task.ID, map[string]interface{}{
			"status":     models.TaskOverdue,
			"updated_at": now,
		})
		if err != nil {
			e.log.WithField("task_id", task.ID).WithError(err).Error("failed to mark task overdue")
			result.recordFailure(fmt.Errorf("task %s: %w", task.ID, err))
			continue
		}
		result.Succeeded++
		e.emitTransitionEvent(ctx, &task, models.TaskOverdue, "system", now)
	}

	if result.Succeeded > 0 {
		e.log.WithField("marked", result.Succeeded).Info("marked tasks overdue")
	}
	return result
}
