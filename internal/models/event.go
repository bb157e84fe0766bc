package models

import (
	"time"
)

// EventType classifies notification events the engine emits. The engine only
// records events as data; delivery is the notification dispatcher's job.
type EventType string

const (
	EventTaskAssigned   EventType = "task_assigned"
	EventTaskCompleted  EventType = "task_completed"
	EventTaskOverdue    EventType = "task_overdue"
	EventUsageThreshold EventType = "usage_threshold"
)

// Event is one task-lifecycle or threshold-breach notification record.
type Event struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Type        EventType `bson:"type" json:"type"`
	TaskID      string    `bson:"task_id,omitempty" json:"task_id,omitempty"`
	ScheduleID  string    `bson:"schedule_id,omitempty" json:"schedule_id,omitempty"`
	EquipmentID string    `bson:"equipment_id,omitempty" json:"equipment_id,omitempty"`
	BuildingID  string    `bson:"building_id,omitempty" json:"building_id,omitempty"`
	Title       string    `bson:"title" json:"title"`
	Message     string    `bson:"message" json:"message"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
