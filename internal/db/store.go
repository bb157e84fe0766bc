package db

import (
	"context"
	"errors"
)

// Collection names used by the engine.
const (
	CollSchedules = "maintenance_schedules"
	CollTasks     = "maintenance_tasks"
	CollUsageLogs = "equipment_usage_logs"
	CollEquipment = "equipment"
	CollTemplates = "maintenance_templates"
	CollEvents    = "notification_events"
	CollUsers     = "users"
)

// ErrNotFound is returned when a document id does not exist in a collection.
var ErrNotFound = errors.New("document not found")

// Filter is a single field comparison applied to a query. Op is one of
// "==", ">", ">=", "<", "<="; an empty Op means equality.
type Filter struct {
	Field string
	Op    string
	Value interface{}
}

// Eq builds an equality filter.
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Op: "==", Value: value}
}

// Store is the narrow document-store contract all engine persistence goes
// through. No transactional multi-document writes are assumed.
type Store interface {
	// Create inserts a document and returns its id. Documents without an
	// id get one minted for them.
	Create(ctx context.Context, collection string, doc interface{}) (string, error)
	// Get decodes the document with the given id into out.
	Get(ctx context.Context, collection, id string, out interface{}) error
	// Update applies a partial set of field updates to one document.
	Update(ctx context.Context, collection, id string, patch map[string]interface{}) error
	// Query decodes all documents matching every filter into out, which
	// must be a pointer to a slice.
	Query(ctx context.Context, collection string, filters []Filter, out interface{}) error
}
