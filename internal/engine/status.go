package engine

import "github.com/maheshrc27/postflow/internal/models"

// Externally visible publish statuses derived from the attempt history.
const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// DeriveStatus computes the external status of a request purely from
// its stored state and attempt history. A success anywhere wins; a
// permanent failure or an exhausted retry budget is terminal; anything
// else is pending or in progress depending on whether an attempt has
// been made yet.
func DeriveStatus(req *models.PublishRequest, attempts []*models.PublishAttempt, maxAttempts int) string {
	if req.Status == models.RequestStatusCancelled {
		return StatusCancelled
	}
	for _, a := range attempts {
		if a.Outcome == models.OutcomeSuccess {
			return StatusSucceeded
		}
	}
	for _, a := range attempts {
		if a.Outcome == models.OutcomePermanentFailure {
			return StatusFailed
		}
	}
	if len(attempts) >= maxAttempts {
		return StatusFailed
	}
	if len(attempts) == 0 && req.Status == models.RequestStatusScheduled {
		return StatusPending
	}
	return StatusInProgress
}

// AccountSummary aggregates the statuses of every request on one
// account.
type AccountSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
}

func Summarize(statuses []string) AccountSummary {
	var s AccountSummary
	for _, st := range statuses {
		s.Total++
		switch st {
		case StatusPending:
			s.Pending++
		case StatusInProgress:
			s.InProgress++
		case StatusSucceeded:
			s.Succeeded++
		case StatusFailed:
			s.Failed++
		case StatusCancelled:
			s.Cancelled++
		}
	}
	return s
}
