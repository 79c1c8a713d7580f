package queue

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"

	"github.com/maheshrc27/postflow/internal/engine"
)

// Handler executes publish attempt tasks inside the asynq server.
type Handler struct {
	worker *engine.Worker
}

func NewHandler(worker *engine.Worker) *Handler {
	return &Handler{worker: worker}
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskTypePublishAttempt, h.HandlePublishAttemptTask)
}

func (h *Handler) HandlePublishAttemptTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishAttemptPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return err
	}

	_, err := h.worker.Execute(ctx, payload.RequestID)
	return err
}
