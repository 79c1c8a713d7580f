// Package queue is the asynq-backed execution path for publish
// attempts. The scheduler decides when a request is due; this package
// carries it to a worker process as a Redis task. Delivery is
// at-least-once, which the worker tolerates by re-checking request
// state before acting.
package queue

const TaskTypePublishAttempt = "publish:attempt"

type PublishAttemptPayload struct {
	RequestID string `json:"request_id"`
}
