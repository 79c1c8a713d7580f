package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/maheshrc27/postflow/internal/models"
)

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		outcomes []string
		want     string
	}{
		{"no attempts yet", models.RequestStatusScheduled, nil, StatusPending},
		{"dispatched without attempts", models.RequestStatusDispatched, nil, StatusInProgress},
		{"success on first attempt", models.RequestStatusSucceeded, []string{models.OutcomeSuccess}, StatusSucceeded},
		{"success after transient failures", models.RequestStatusSucceeded,
			[]string{models.OutcomeTransientFailure, models.OutcomeTransientFailure, models.OutcomeSuccess}, StatusSucceeded},
		{"permanent failure is terminal", models.RequestStatusFailed,
			[]string{models.OutcomePermanentFailure}, StatusFailed},
		{"retrying after transient failure", models.RequestStatusScheduled,
			[]string{models.OutcomeTransientFailure}, StatusInProgress},
		{"retry budget exhausted", models.RequestStatusFailed,
			[]string{models.OutcomeTransientFailure, models.OutcomeTransientFailure, models.OutcomeTransientFailure}, StatusFailed},
		{"cancelled", models.RequestStatusCancelled, nil, StatusCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &models.PublishRequest{ID: "r", Status: tt.status}
			attempts := make([]*models.PublishAttempt, len(tt.outcomes))
			for i, outcome := range tt.outcomes {
				attempts[i] = &models.PublishAttempt{RequestID: "r", Number: i + 1, Outcome: outcome}
			}
			assert.Equal(t, tt.want, DeriveStatus(req, attempts, 3))
		})
	}
}

func TestSummarize(t *testing.T) {
	summary := Summarize([]string{
		StatusPending, StatusPending,
		StatusInProgress,
		StatusSucceeded, StatusSucceeded, StatusSucceeded,
		StatusFailed,
		StatusCancelled,
	})

	assert.Equal(t, 8, summary.Total)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 1, summary.InProgress)
	assert.Equal(t, 3, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Cancelled)
}
