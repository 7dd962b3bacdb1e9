package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatusJSON_OmitsUnsetTimes(t *testing.T) {
	running := JobStatus{ID: "a", State: JobStateRunning, StartTime: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)}
	data, err := json.Marshal(running)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.Equal(t, "2026-01-02T03:04:05Z", fields["start_time"])
	assert.NotContains(t, fields, "end_time")

	data, err = json.Marshal(JobStatus{State: JobStateIdle})
	require.NoError(t, err)
	fields = nil
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.NotContains(t, fields, "start_time")
}

func TestJobSpec_CloneDoesNotShareRounds(t *testing.T) {
	spec := JobSpec{Rounds: []int{2, 3}}
	clone := spec.Clone()
	spec.Rounds[0] = 9
	assert.Equal(t, []int{2, 3}, clone.Rounds)
	assert.Equal(t, 5, clone.Total())
}
