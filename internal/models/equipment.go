package models

import (
	"time"
)

// Equipment is the read contract the engine needs from the equipment
// registry; the registry's own CRUD surface lives elsewhere.
type Equipment struct {
	ID              string     `bson:"_id,omitempty" json:"id"`
	Name            string     `bson:"equipment_name" json:"equipment_name"`
	EquipmentType   string     `bson:"equipment_type" json:"equipment_type"` // HVAC, elevator, fire_safety, ...
	Location        string     `bson:"location" json:"location"`
	BuildingID      string     `bson:"building_id" json:"building_id"`
	Status          string     `bson:"status" json:"status"`
	LastUsageLogged *time.Time `bson:"last_usage_logged,omitempty" json:"last_usage_logged,omitempty"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updated_at"`
}

// MaintenanceTemplate provides defaults for tasks generated from a schedule
// that references it. Absence of the template is always tolerated.
type MaintenanceTemplate struct {
	ID                string    `bson:"_id,omitempty" json:"id"`
	TemplateName      string    `bson:"template_name" json:"template_name"`
	EquipmentType     string    `bson:"equipment_type" json:"equipment_type"`
	Category          string    `bson:"category" json:"category"`
	Description       string    `bson:"description" json:"description"`
	EstimatedDuration int       `bson:"estimated_duration" json:"estimated_duration"` // minutes
	RequiredParts     []string  `bson:"required_parts,omitempty" json:"required_parts,omitempty"`
	IsActive          bool      `bson:"is_active" json:"is_active"`
	CreatedAt         time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at" json:"updated_at"`
}
