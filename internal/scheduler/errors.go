package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced schedule, task, or
	// equipment document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStatus is returned when a task status update names an
	// unknown status or a forbidden transition.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrGenerationLimit marks a generation walk that hit the per-run task
	// cap. It is a warning condition, not a failure.
	ErrGenerationLimit = errors.New("generation limit reached")
)

// ValidationError describes a malformed schedule configuration.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// BatchResult summarizes one batch pass. Per-item failures are collected in
// Errors; a batch operation itself never fails outright.
type BatchResult struct {
	Attempted int      `json:"attempted"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Created   int      `json:"created"`
	Errors    []string `json:"errors,omitempty"`
}

func (r *BatchResult) recordFailure(err error) {
	r.Failed++
	r.Errors = append(r.Errors, err.Error())
}
