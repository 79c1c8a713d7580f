package transfer

// PublishCreation is the submission payload for a scheduled publish.
type PublishCreation struct {
	AccountID     int64    `json:"account_id"`
	MediaRef      string   `json:"media_ref"`
	Title         string   `json:"title"`
	Caption       string   `json:"caption"`
	Hashtags      []string `json:"hashtags"`
	ScheduledTime string   `json:"scheduled_time"`
	Priority      int      `json:"priority"`
}

// AttemptSummary is one attempt in a status response.
type AttemptSummary struct {
	Number         int    `json:"attempt_number"`
	Outcome        string `json:"outcome"`
	Reason         string `json:"reason,omitempty"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
	StartedAt      string `json:"started_at"`
}

// PublishStatus is the status query response for one request.
type PublishStatus struct {
	RequestID      string           `json:"request_id"`
	Status         string           `json:"status"`
	PlatformPostID string           `json:"platform_post_id,omitempty"`
	Attempts       []AttemptSummary `json:"attempts"`
}
