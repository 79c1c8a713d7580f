package models

import "time"

// PublishAttempt is one entry in the append-only attempt log of a
// publish request. Attempts are never mutated after creation.
type PublishAttempt struct {
	ID             string    `db:"id" json:"id"`
	RequestID      string    `db:"request_id" json:"request_id"`
	Number         int       `db:"attempt_number" json:"attempt_number"`
	Outcome        string    `db:"outcome" json:"outcome"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id,omitempty"`
	Reason         string    `db:"reason" json:"reason,omitempty"`
	StartedAt      time.Time `db:"started_at" json:"started_at"`
	FinishedAt     time.Time `db:"finished_at" json:"finished_at"`
}

const (
	OutcomeSuccess          = "success"
	OutcomeTransientFailure = "transient_failure"
	OutcomePermanentFailure = "permanent_failure"
)
