package models

import (
	"time"
)

// ScheduleType selects how a maintenance schedule triggers task generation.
type ScheduleType string

const (
	ScheduleTimeBased      ScheduleType = "time_based"
	ScheduleUsageBased     ScheduleType = "usage_based"
	ScheduleConditionBased ScheduleType = "condition_based" // reserved, rejected at validation
)

// RecurrencePattern is the calendar cadence of a time-based schedule.
type RecurrencePattern string

const (
	PatternDaily     RecurrencePattern = "daily"
	PatternWeekly    RecurrencePattern = "weekly"
	PatternMonthly   RecurrencePattern = "monthly"
	PatternQuarterly RecurrencePattern = "quarterly"
	PatternYearly    RecurrencePattern = "yearly"
	PatternCustom    RecurrencePattern = "custom"
)

// IsValidPattern reports whether a pattern is one the engine can walk.
// "custom" is a recognized value but has no arithmetic behind it yet.
func IsValidPattern(p RecurrencePattern) bool {
	switch p {
	case PatternDaily, PatternWeekly, PatternMonthly, PatternQuarterly, PatternYearly:
		return true
	default:
		return false
	}
}

// TimeBasedConfig holds the recurrence parameters of a time-based schedule.
type TimeBasedConfig struct {
	Pattern       RecurrencePattern `bson:"pattern" json:"pattern"`
	IntervalValue int               `bson:"interval_value" json:"interval_value"`
	// SpecificDays restricts weekly schedules to named weekdays
	// ("monday" ... "sunday").
	SpecificDays []string `bson:"specific_days,omitempty" json:"specific_days,omitempty"`
	// SpecificDates restricts monthly schedules to days of the month.
	SpecificDates []int `bson:"specific_dates,omitempty" json:"specific_dates,omitempty"`
}

// UsageBasedConfig holds the trigger parameters of a usage-based schedule.
type UsageBasedConfig struct {
	Threshold float64 `bson:"threshold" json:"threshold"`
	Unit      string  `bson:"unit" json:"unit"` // must match the unit used in usage logs
}

// MaintenanceSchedule is a recurring or usage-triggered maintenance
// definition for one piece of equipment. Exactly one of TimeBased or
// UsageBased is set, matching ScheduleType.
type MaintenanceSchedule struct {
	ID           string       `bson:"_id,omitempty" json:"id"`
	EquipmentID  string       `bson:"equipment_id" json:"equipment_id"`
	BuildingID   string       `bson:"building_id" json:"building_id"`
	ScheduleName string       `bson:"schedule_name" json:"schedule_name"`
	Description  string       `bson:"description" json:"description"`
	ScheduleType ScheduleType `bson:"schedule_type" json:"schedule_type"`

	TimeBased  *TimeBasedConfig  `bson:"time_based,omitempty" json:"time_based,omitempty"`
	UsageBased *UsageBasedConfig `bson:"usage_based,omitempty" json:"usage_based,omitempty"`

	TemplateID        string   `bson:"template_id,omitempty" json:"template_id,omitempty"`
	EstimatedDuration int      `bson:"estimated_duration,omitempty" json:"estimated_duration,omitempty"` // minutes
	RequiredParts     []string `bson:"required_parts,omitempty" json:"required_parts,omitempty"`
	Priority          string   `bson:"priority" json:"priority"`

	IsActive      bool       `bson:"is_active" json:"is_active"`
	NextDueDate   *time.Time `bson:"next_due_date,omitempty" json:"next_due_date,omitempty"` // time-based only
	LastGenerated *time.Time `bson:"last_generated,omitempty" json:"last_generated,omitempty"`

	CreatedBy string    `bson:"created_by" json:"created_by"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// ScheduleUpdate carries the mutable fields of a schedule; nil pointers mean
// "leave unchanged". Changing any scheduling parameter triggers a next-due
// recomputation in the registry.
type ScheduleUpdate struct {
	ScheduleName      *string           `json:"schedule_name,omitempty"`
	Description       *string           `json:"description,omitempty"`
	TimeBased         *TimeBasedConfig  `json:"time_based,omitempty"`
	UsageBased        *UsageBasedConfig `json:"usage_based,omitempty"`
	EstimatedDuration *int              `json:"estimated_duration,omitempty"`
	RequiredParts     []string          `json:"required_parts,omitempty"`
	Priority          *string           `json:"priority,omitempty"`
	IsActive          *bool             `json:"is_active,omitempty"`
}

// ChangesScheduling reports whether the update touches any field that feeds
// the recurrence calculator or threshold evaluator.
func (u *ScheduleUpdate) ChangesScheduling() bool {
	return u.TimeBased != nil || u.UsageBased != nil
}
