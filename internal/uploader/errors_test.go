package uploader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		kind   Kind
	}{
		{"rate limited", http.StatusTooManyRequests, KindTransient},
		{"server error", http.StatusInternalServerError, KindTransient},
		{"bad gateway", http.StatusBadGateway, KindTransient},
		{"unauthorized", http.StatusUnauthorized, KindTransient},
		{"bad request", http.StatusBadRequest, KindPermanent},
		{"forbidden", http.StatusForbidden, KindPermanent},
		{"not found", http.StatusNotFound, KindPermanent},
		{"payload too large", http.StatusRequestEntityTooLarge, KindPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyStatus(tt.status, "details")
			assert.Equal(t, tt.kind, err.Kind)
			assert.Contains(t, err.Error(), fmt.Sprintf("status %d", tt.status))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(Transient(errors.New("flaky"))))
	assert.False(t, IsTransient(Permanent(errors.New("rejected"))))
	assert.True(t, IsTransient(context.DeadlineExceeded))

	// Wrapped classified errors keep their classification.
	wrapped := fmt.Errorf("upload: %w", Permanent(errors.New("rejected")))
	assert.False(t, IsTransient(wrapped))

	// Unclassified errors retry; the attempt cap bounds the cost.
	assert.True(t, IsTransient(errors.New("unknown")))
}
