package models

import (
	"time"
)

// UsageLog is an append-only usage measurement for a piece of equipment.
// All values logged for a unit are treated as summable deltas.
type UsageLog struct {
	ID              string    `bson:"_id,omitempty" json:"id"`
	EquipmentID     string    `bson:"equipment_id" json:"equipment_id"`
	BuildingID      string    `bson:"building_id" json:"building_id"`
	UsageType       string    `bson:"usage_type" json:"usage_type"` // runtime_hours, cycles, distance, ...
	UsageValue      float64   `bson:"usage_value" json:"usage_value"`
	UsageUnit       string    `bson:"usage_unit" json:"usage_unit"` // hours, cycles, km, ...
	RecordedBy      string    `bson:"recorded_by" json:"recorded_by"`
	RecordingMethod string    `bson:"recording_method" json:"recording_method"` // manual, sensor, calculated
	Notes           string    `bson:"notes,omitempty" json:"notes,omitempty"`
	RecordedAt      time.Time `bson:"recorded_at" json:"recorded_at"`
	CreatedAt       time.Time `bson:"created_at" json:"created_at"`
}
