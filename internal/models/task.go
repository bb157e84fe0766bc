package models

import (
	"time"
)

// TaskStatus is the lifecycle state of a maintenance task.
type TaskStatus string

const (
	TaskScheduled  TaskStatus = "scheduled"
	TaskAssigned   TaskStatus = "assigned"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
	TaskOverdue    TaskStatus = "overdue"
)

// IsValidStatus reports whether s is a known task status.
func IsValidStatus(s TaskStatus) bool {
	switch s {
	case TaskScheduled, TaskAssigned, TaskInProgress, TaskCompleted, TaskCancelled, TaskOverdue:
		return true
	default:
		return false
	}
}

// taskTransitions lists the permitted target states per current state.
// The overdue state is reversible: work can resume on an overdue task.
var taskTransitions = map[TaskStatus][]TaskStatus{
	TaskScheduled:  {TaskAssigned, TaskInProgress, TaskCompleted, TaskCancelled, TaskOverdue},
	TaskAssigned:   {TaskInProgress, TaskCompleted, TaskCancelled, TaskOverdue},
	TaskInProgress: {TaskCompleted, TaskCancelled, TaskOverdue},
	TaskOverdue:    {TaskAssigned, TaskInProgress, TaskCompleted, TaskCancelled},
}

// CanTransition reports whether a task may move from one status to another.
// Terminal states (completed, cancelled) have no outgoing transitions.
func CanTransition(from, to TaskStatus) bool {
	for _, t := range taskTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// MaintenanceTask is one concrete, assignable unit of maintenance work.
// ScheduleID is empty for ad hoc tasks.
type MaintenanceTask struct {
	ID          string `bson:"_id,omitempty" json:"id"`
	ScheduleID  string `bson:"schedule_id,omitempty" json:"schedule_id,omitempty"`
	TemplateID  string `bson:"template_id,omitempty" json:"template_id,omitempty"`
	EquipmentID string `bson:"equipment_id" json:"equipment_id"`
	BuildingID  string `bson:"building_id" json:"building_id"`
	AssignedTo  string `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`

	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Location    string `bson:"location" json:"location"`
	Category    string `bson:"category" json:"category"` // preventive, corrective, emergency
	Priority    string `bson:"priority" json:"priority"`
	TaskType    string `bson:"task_type" json:"task_type"` // scheduled, on_demand

	ScheduledDate     time.Time `bson:"scheduled_date" json:"scheduled_date"`
	EstimatedDuration int       `bson:"estimated_duration,omitempty" json:"estimated_duration,omitempty"` // minutes
	RequiredParts     []string  `bson:"required_parts,omitempty" json:"required_parts,omitempty"`
	RecurrenceType    string    `bson:"recurrence_type" json:"recurrence_type"` // pattern of the owning schedule, or "none"

	Status          TaskStatus `bson:"status" json:"status"`
	StartedAt       *time.Time `bson:"started_at,omitempty" json:"started_at,omitempty"`
	CompletedAt     *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	CompletionNotes string     `bson:"completion_notes,omitempty" json:"completion_notes,omitempty"`

	// UsageAtCompletion is the cumulative logged usage for the equipment at
	// the moment of completion; it becomes the baseline for the next
	// usage-threshold evaluation of the owning schedule.
	UsageAtCompletion *float64 `bson:"usage_at_completion,omitempty" json:"usage_at_completion,omitempty"`

	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
