package queue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/maheshrc27/postflow/internal/models"
)

// AsynqDispatcher enqueues due publish requests as asynq tasks. Retries
// are owned by the scheduler's backoff, so tasks are enqueued with
// MaxRetry(0); a lost task is recovered by the dispatched-state sweep
// on restart.
type AsynqDispatcher struct {
	client *asynq.Client
}

func NewAsynqDispatcher(client *asynq.Client) *AsynqDispatcher {
	return &AsynqDispatcher{client: client}
}

func (d *AsynqDispatcher) Dispatch(ctx context.Context, req *models.PublishRequest) error {
	payload, err := json.Marshal(PublishAttemptPayload{RequestID: req.ID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TaskTypePublishAttempt, payload)
	if _, err := d.client.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return err
	}

	slog.Info("publish attempt enqueued", slog.String("request_id", req.ID))
	return nil
}
