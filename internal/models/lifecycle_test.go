package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("completing stamps completed_at and progress", func(t *testing.T) {
		task := &Task{Status: StatusInProgress, Progress: 40}
		require.NoError(t, Transition(task, StatusCompleted, now))

		assert.Equal(t, StatusCompleted, task.Status)
		assert.Equal(t, 100, task.Progress)
		require.NotNil(t, task.CompletedAt)
		assert.True(t, task.CompletedAt.Equal(now))
	})

	t.Run("reopening clears completed_at", func(t *testing.T) {
		task := &Task{Status: StatusCompleted, Progress: 100, CompletedAt: &now}
		require.NoError(t, Transition(task, StatusInProgress, now.Add(time.Hour)))

		assert.Equal(t, StatusInProgress, task.Status)
		assert.Nil(t, task.CompletedAt)
		assert.Equal(t, 100, task.Progress)
	})

	t.Run("cancelling keeps progress", func(t *testing.T) {
		task := &Task{Status: StatusOnHold, Progress: 30}
		require.NoError(t, Transition(task, StatusCancelled, now))

		assert.Equal(t, 30, task.Progress)
		assert.Nil(t, task.CompletedAt)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		task := &Task{Status: StatusCompleted, CompletedAt: &now, Progress: 100}
		require.NoError(t, Transition(task, StatusCompleted, now.Add(time.Hour)))
		assert.True(t, task.CompletedAt.Equal(now))
	})

	tests := []struct {
		name string
		from TaskStatus
		to   TaskStatus
	}{
		{"completed to cancelled", StatusCompleted, StatusCancelled},
		{"cancelled to completed", StatusCancelled, StatusCompleted},
		{"unknown status", StatusPending, TaskStatus("archived")},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			task := &Task{Status: tt.from}
			assert.Error(t, Transition(task, tt.to, now))
			assert.Equal(t, tt.from, task.Status)
		})
	}
}

func TestTaskIsOverdue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	tests := []struct {
		name   string
		task   Task
		expect bool
	}{
		{"no due date", Task{Status: StatusPending}, false},
		{"past due and pending", Task{Status: StatusPending, DueDate: &past}, true},
		{"past due and on hold", Task{Status: StatusOnHold, DueDate: &past}, true},
		{"past due but completed", Task{Status: StatusCompleted, DueDate: &past}, false},
		{"past due but cancelled", Task{Status: StatusCancelled, DueDate: &past}, false},
		{"due in the future", Task{Status: StatusInProgress, DueDate: &future}, false},
		{"due exactly now", Task{Status: StatusInProgress, DueDate: &now}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.task.IsOverdue(now))
		})
	}

	t.Run("completion flips overdue off", func(t *testing.T) {
		task := &Task{Status: StatusPending, DueDate: &past}
		require.True(t, task.IsOverdue(now))
		require.NoError(t, Transition(task, StatusCompleted, now))
		assert.False(t, task.IsOverdue(now))
	})
}

func TestNextDueDate(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	due := time.Date(2026, 1, 31, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		pattern RecurrencePattern
		expect  time.Time
	}{
		{RecurrenceDaily, due.AddDate(0, 0, 1)},
		{RecurrenceWeekly, due.AddDate(0, 0, 7)},
		{RecurrenceMonthly, due.AddDate(0, 0, 30)},
		{RecurrenceYearly, due.AddDate(0, 0, 365)},
	}
	for _, tt := range tests {
		t.Run(string(tt.pattern), func(t *testing.T) {
			next, ok := NextDueDate(&Task{RecurrencePattern: tt.pattern, DueDate: &due}, now)
			require.True(t, ok)
			assert.True(t, next.Equal(tt.expect), "got %s", next)
		})
	}

	t.Run("without due date recurs from now", func(t *testing.T) {
		next, ok := NextDueDate(&Task{RecurrencePattern: RecurrenceWeekly}, now)
		require.True(t, ok)
		assert.True(t, next.Equal(now.Add(7*24*time.Hour)))
	})

	t.Run("none never recurs", func(t *testing.T) {
		_, ok := NextDueDate(&Task{RecurrencePattern: RecurrenceNone, DueDate: &due}, now)
		assert.False(t, ok)
	})
}

func TestTaskRecipients(t *testing.T) {
	task := &Task{OwnerID: "owner", AssigneeIDs: []string{"a", "owner", "b"}}
	assert.Equal(t, []string{"owner", "a", "b"}, task.Recipients())
	assert.True(t, task.IsAssigned("a"))
	assert.False(t, task.IsAssigned("c"))
}

func TestTaskFilterOrdering(t *testing.T) {
	terms, err := TaskFilter{}.Ordering()
	require.NoError(t, err)
	assert.Equal(t, []string{"-created_at"}, terms)

	terms, err = TaskFilter{OrderBy: []string{"priority", "-due_date"}}.Ordering()
	require.NoError(t, err)
	assert.Equal(t, []string{"priority", "-due_date"}, terms)

	_, err = TaskFilter{OrderBy: []string{"password_hash"}}.Ordering()
	assert.Error(t, err)

	assert.Error(t, TaskFilter{Statuses: []TaskStatus{"done"}}.Validate())
	assert.Error(t, TaskFilter{SubtasksOnly: true, TopLevelOnly: true}.Validate())
}
