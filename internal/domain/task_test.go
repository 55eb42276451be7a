package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanStartTimer(t *testing.T) {
	cases := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskTodo, true},
		{TaskInProgress, true},
		{TaskDone, false},
		{TaskClosed, false},
		{"archived", true},
	}
	for _, tc := range cases {
		task := &Task{ID: "t1", Status: tc.status}
		assert.Equal(t, tc.want, task.CanStartTimer(), "status %s", tc.status)
	}
}

func TestTaskValidate(t *testing.T) {
	require.NoError(t, (&Task{ID: "t1", Status: TaskTodo}).Validate())
	require.NoError(t, (&Task{ID: "t1"}).Validate())

	err := (&Task{}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")

	require.NoError(t, (&Task{ID: "t1", Status: "archived"}).Validate(), "unknown statuses pass through")
}

func TestTaskStatusKnown(t *testing.T) {
	assert.True(t, TaskInProgress.Known())
	assert.False(t, TaskStatus("archived").Known())
}

func TestTimeLogEntrySeconds(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	end := start.Add(90*time.Second + 900*time.Millisecond)
	before := start.Add(-time.Second)

	assert.Equal(t, int64(90), TimeLogEntry{Start: start, End: &end}.Seconds())
	assert.Equal(t, int64(0), TimeLogEntry{Start: start}.Seconds())
	assert.Equal(t, int64(0), TimeLogEntry{Start: start, End: &before}.Seconds())
	assert.True(t, TimeLogEntry{Start: start}.IsOpen())
}

func TestTimerViewTotalSeconds(t *testing.T) {
	v := TimerView{IsRunning: true, LiveElapsedSeconds: 12, TotalCompletedSeconds: 30}
	assert.Equal(t, int64(42), v.TotalSeconds())
}
