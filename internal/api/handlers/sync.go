package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/jask/moneyboard/internal/api/middleware"
	"github.com/jask/moneyboard/internal/service"
)

const trainTask = "train"

// SyncRecent handles POST /api/sync/recent
func (h *Handler) SyncRecent(w http.ResponseWriter, r *http.Request) {
	h.sync(w, r, service.SyncRecent)
}

// SyncFull handles POST /api/sync/full
func (h *Handler) SyncFull(w http.ResponseWriter, r *http.Request) {
	h.sync(w, r, service.SyncFull)
}

func (h *Handler) sync(w http.ResponseWriter, r *http.Request, mode service.SyncMode) {
	res, err := h.Sync.Sync(r.Context(), mode)
	if err != nil {
		h.fail(w, r, err, "sync")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, res)
}

// Train handles POST /api/classifier/train. Training runs as a background
// task; poll GET /api/tasks/{id}.
func (h *Handler) Train(w http.ResponseWriter, r *http.Request) {
	if h.Trainer == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Classifier is not configured")
		return
	}
	task, err := h.Tasks.Start(trainTask, func(ctx context.Context) (string, error) {
		run, err := h.Trainer.Train(ctx)
		if err == nil && !run.Succeeded() {
			err = fmt.Errorf("classifier exited with code %d", run.ExitCode)
		}
		return run.Output, err
	})
	if errors.Is(err, service.ErrTaskRunning) {
		middleware.WriteJSON(w, http.StatusConflict, map[string]interface{}{"error": "Training already running", "task": task})
		return
	}
	if err != nil {
		h.fail(w, r, err, "start training")
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, task)
}

// ListTasks handles GET /api/tasks
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.Tasks.List())
}

// GetTask handles GET /api/tasks/{id}
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	task, err := h.Tasks.Get(mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, r, err, "get task")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, task)
}

// CancelTask handles DELETE /api/tasks/{id}
func (h *Handler) CancelTask(w http.ResponseWriter, r *http.Request) {
	if err := h.Tasks.Cancel(mux.Vars(r)["id"]); err != nil {
		h.fail(w, r, err, "cancel task")
		return
	}
	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{"message": "Cancellation requested"})
}
