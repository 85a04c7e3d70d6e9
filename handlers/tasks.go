package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"streamrec/config"
	"streamrec/services/scheduler"
)

type schedulerService interface {
	GetTaskStatus() []config.ScheduledTask
	RunTaskNow(taskID string) error
}

var _ schedulerService = (*scheduler.Service)(nil)

// TasksHandler exposes scheduled task status and manual triggering.
type TasksHandler struct {
	Scheduler schedulerService
}

func NewTasksHandler(svc schedulerService) *TasksHandler {
	return &TasksHandler{Scheduler: svc}
}

// List handles GET /api/tasks
func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks := h.Scheduler.GetTaskStatus()
	if tasks == nil {
		tasks = []config.ScheduledTask{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(tasks)
}

// Run handles POST /api/tasks/{id}/run
func (h *TasksHandler) Run(w http.ResponseWriter, r *http.Request) {
	taskID := mux.Vars(r)["id"]

	if err := h.Scheduler.RunTaskNow(taskID); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}
