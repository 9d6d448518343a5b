package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunStatus_Terminal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status RunStatus
		want   bool
	}{
		{RunStatusQueued, false},
		{RunStatusCrawling, false},
		{RunStatusGenerating, false},
		{RunStatusRegistering, false},
		{RunStatusComplete, true},
		{RunStatusFailed, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.status.Terminal())
		})
	}
}

func TestRunStatusStringValues(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "queued", string(RunStatusQueued))
	assert.Equal(t, "registering", string(RunStatusRegistering))
	assert.Equal(t, "failed", string(RunStatusFailed))
}
