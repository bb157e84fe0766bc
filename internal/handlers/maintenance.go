// Package handlers exposes the maintenance engine over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/facilix/building-maintenance/internal/middleware"
	"github.com/facilix/building-maintenance/internal/models"
	"github.com/facilix/building-maintenance/internal/notify"
	"github.com/facilix/building-maintenance/internal/scheduler"
)

// MaintenanceHandler serves schedules, tasks, usage logs, and notifications.
type MaintenanceHandler struct {
	engine     *scheduler.Engine
	dispatcher *notify.Dispatcher
	log        *log.Logger
}

func NewMaintenanceHandler(engine *scheduler.Engine, dispatcher *notify.Dispatcher, logger *log.Logger) *MaintenanceHandler {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &MaintenanceHandler{engine: engine, dispatcher: dispatcher, log: logger}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	var verr *scheduler.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, scheduler.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, scheduler.ErrInvalidStatus):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func currentUserID(r *http.Request) string {
	if claims, ok := middleware.GetUserFromContext(r.Context()); ok {
		return claims.UserID
	}
	return "system"
}

// Schedules routes /api/schedules: GET lists, POST creates.
func (h *MaintenanceHandler) Schedules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		buildingID := r.URL.Query().Get("building_id")
		if buildingID == "" {
			http.Error(w, "building_id is required", http.StatusBadRequest)
			return
		}
		activeOnly := r.URL.Query().Get("active") != "false"
		schedules, err := h.engine.ListSchedules(r.Context(), buildingID, r.URL.Query().Get("equipment_id"), activeOnly)
		if err != nil {
			h.log.WithError(err).Error("failed to list schedules")
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, schedules)
	case http.MethodPost:
		var schedule models.MaintenanceSchedule
		if err := json.NewDecoder(r.Body).Decode(&schedule); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		id, err := h.engine.CreateSchedule(r.Context(), schedule, currentUserID(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// ScheduleByID routes /api/schedules/{id}: GET, PUT, DELETE (deactivate).
func (h *MaintenanceHandler) ScheduleByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/schedules/")
	if id == "" || strings.Contains(id, "/") {
		http.Error(w, "Schedule id required", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		schedule, err := h.engine.GetSchedule(r.Context(), id)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, schedule)
	case http.MethodPut:
		var upd models.ScheduleUpdate
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		if err := h.engine.UpdateSchedule(r.Context(), id, upd); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Schedule updated"})
	case http.MethodDelete:
		if err := h.engine.DeactivateSchedule(r.Context(), id); err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "Schedule deactivated"})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Tasks routes /api/tasks: GET lists with filters, POST creates an ad hoc
// task.
func (h *MaintenanceHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		buildingID := r.URL.Query().Get("building_id")
		if buildingID == "" {
			http.Error(w, "building_id is required", http.StatusBadRequest)
			return
		}
		filters := scheduler.TaskFilters{
			Status:      models.TaskStatus(r.URL.Query().Get("status")),
			EquipmentID: r.URL.Query().Get("equipment_id"),
			AssignedTo:  r.URL.Query().Get("assigned_to"),
		}
		if from := r.URL.Query().Get("from"); from != "" {
			t, err := time.Parse(time.RFC3339, from)
			if err != nil {
				http.Error(w, "from must be RFC 3339", http.StatusBadRequest)
				return
			}
			filters.From = &t
		}
		if to := r.URL.Query().Get("to"); to != "" {
			t, err := time.Parse(time.RFC3339, to)
			if err != nil {
				http.Error(w, "to must be RFC 3339", http.StatusBadRequest)
				return
			}
			filters.To = &t
		}
		tasks, err := h.engine.ListTasks(r.Context(), buildingID, filters)
		if err != nil {
			h.log.WithError(err).Error("failed to list tasks")
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tasks)
	case http.MethodPost:
		var task models.MaintenanceTask
		if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		id, err := h.engine.CreateTask(r.Context(), task, currentUserID(r))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// TaskByID routes /api/tasks/{id} and /api/tasks/{id}/status.
func (h *MaintenanceHandler) TaskByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/tasks/")
	if rest == "" {
		http.Error(w, "Task id required", http.StatusBadRequest)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/status"); ok {
		h.updateTaskStatus(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	task, err := h.engine.GetTask(r.Context(), rest)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *MaintenanceHandler) updateTaskStatus(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Status models.TaskStatus `json:"status"`
		Notes  string            `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if err := h.engine.UpdateTaskStatus(r.Context(), id, req.Status, currentUserID(r), req.Notes); err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task updated"})
}

// UsageLogs routes /api/usage: POST records a usage reading.
func (h *MaintenanceHandler) UsageLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var entry models.UsageLog
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}
	if entry.RecordedBy == "" {
		entry.RecordedBy = currentUserID(r)
	}
	id, err := h.engine.LogUsage(r.Context(), entry)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// Events routes /api/events: GET lists recent notifications for a building.
func (h *MaintenanceHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	buildingID := r.URL.Query().Get("building_id")
	if buildingID == "" {
		http.Error(w, "building_id is required", http.StatusBadRequest)
		return
	}
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	events, err := h.dispatcher.ListEvents(r.Context(), buildingID, limit)
	if err != nil {
		h.log.WithError(err).Error("failed to list events")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// GenerateTasks routes POST /api/admin/generate: runs a generation pass on
// demand. The optional horizon_days query parameter defaults to 30.
func (h *MaintenanceHandler) GenerateTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	horizonDays := 30
	if s := r.URL.Query().Get("horizon_days"); s != "" {
		parsed, err := strconv.Atoi(s)
		if err != nil || parsed < 1 {
			http.Error(w, "horizon_days must be a positive integer", http.StatusBadRequest)
			return
		}
		horizonDays = parsed
	}
	writeJSON(w, http.StatusOK, h.engine.GenerateAll(r.Context(), horizonDays))
}

// EvaluateUsage routes POST /api/admin/evaluate: runs a threshold pass.
func (h *MaintenanceHandler) EvaluateUsage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.EvaluateUsageThresholds(r.Context()))
}

// SweepOverdue routes POST /api/admin/sweep: flips past-due scheduled tasks
// to overdue.
func (h *MaintenanceHandler) SweepOverdue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.engine.SweepOverdue(r.Context(), time.Now().UTC()))
}

// Health serves /health for load balancer probes.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
