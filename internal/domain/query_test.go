package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryKeyMatches(t *testing.T) {
	assert.True(t, TaskKey("42").Matches(TaskKey("42")))
	assert.True(t, QueryKey{"task"}.Matches(TaskKey("42")))
	assert.False(t, TaskKey("42").Matches(TaskKey("43")))
	assert.False(t, TaskKey("42").Matches(QueryKey{"task"}))
	assert.False(t, TasksKey().Matches(DashboardKey()))
}
