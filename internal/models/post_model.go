package models

import "time"

type PublishRequest struct {
	ID             string    `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	AccountID      int64     `db:"account_id" json:"account_id"`
	MediaRef       string    `db:"media_ref" json:"media_ref"`
	Title          string    `db:"title" json:"title"`
	Caption        string    `db:"caption" json:"caption"`
	Hashtags       []string  `db:"hashtags" json:"hashtags"`
	ScheduledTime  time.Time `db:"scheduled_time" json:"scheduled_time"`
	Priority       int       `db:"priority" json:"priority"`
	Status         string    `db:"status" json:"status"`
	NextAttemptAt  time.Time `db:"next_attempt_at" json:"next_attempt_at"`
	PlatformPostID string    `db:"platform_post_id" json:"platform_post_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

const (
	RequestStatusScheduled  = "scheduled"
	RequestStatusDispatched = "dispatched"
	RequestStatusSucceeded  = "succeeded"
	RequestStatusFailed     = "failed"
	RequestStatusCancelled  = "cancelled"
)

const (
	PriorityLow    = 1
	PriorityNormal = 2
	PriorityHigh   = 3
	PriorityUrgent = 4
)

// Terminal reports whether the request has reached a final state.
func (r *PublishRequest) Terminal() bool {
	switch r.Status {
	case RequestStatusSucceeded, RequestStatusFailed, RequestStatusCancelled:
		return true
	}
	return false
}

type MediaAsset struct {
	ID        string    `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
