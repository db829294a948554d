package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store/memstore"
)

var now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func TestPlanRecurrence(t *testing.T) {
	due := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		pattern  models.RecurrencePattern
		due      *time.Time
		end      *time.Time
		kind     EffectKind
		expected time.Time
	}{
		{"daily", models.RecurrenceDaily, &due, nil, EffectSpawn, due.AddDate(0, 0, 1)},
		{"weekly", models.RecurrenceWeekly, &due, nil, EffectSpawn, due.AddDate(0, 0, 7)},
		{"monthly is thirty days", models.RecurrenceMonthly, &due, nil, EffectSpawn, due.AddDate(0, 0, 30)},
		{"yearly is 365 days", models.RecurrenceYearly, &due, nil, EffectSpawn, due.AddDate(0, 0, 365)},
		{"no due date recurs from now", models.RecurrenceDaily, nil, nil, EffectSpawn, now.Add(24 * time.Hour)},
		{"end date reached", models.RecurrenceWeekly, &due, at(due.AddDate(0, 0, 3)), EffectRetire, time.Time{}},
		{"end date on next due", models.RecurrenceDaily, &due, at(due.AddDate(0, 0, 1)), EffectSpawn, due.AddDate(0, 0, 1)},
		{"no pattern", models.RecurrenceNone, &due, nil, EffectRetire, time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &models.Task{
				ID: "src", Title: "Standup", OwnerID: "u1", Status: models.StatusCompleted,
				DueDate: tt.due, IsRecurring: true, RecurrencePattern: tt.pattern, RecurrenceEndDate: tt.end,
				TagIDs: []string{"tag"}, AssigneeIDs: []string{"u2"},
			}
			effect := PlanRecurrence(src, now)
			assert.Equal(t, tt.kind, effect.Kind)
			assert.Equal(t, "src", effect.SourceID)
			if tt.kind == EffectRetire {
				assert.Nil(t, effect.Next)
				return
			}
			require.NotNil(t, effect.Next)
			assert.True(t, effect.Next.DueDate.Equal(tt.expected))
			assert.Equal(t, models.StatusPending, effect.Next.Status)
			assert.True(t, effect.Next.IsRecurring)
			assert.Equal(t, tt.pattern, effect.Next.RecurrencePattern)
			assert.Equal(t, []string{"tag"}, effect.Next.TagIDs)
			assert.Equal(t, []string{"u2"}, effect.Next.AssigneeIDs)
		})
	}
}

func seed(t *testing.T) *memstore.Store {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	for _, id := range []string{"owner", "helper"} {
		require.NoError(t, s.Users().Create(ctx, &models.User{ID: id, Email: id + "@example.com", Role: models.RoleUser, IsActive: true}))
	}
	require.NoError(t, s.Taxonomy().CreateTag(ctx, &models.Tag{ID: "tag", OwnerID: "owner", Name: "daily"}))
	return s
}

func TestRecurrenceTickIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	due := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)
	require.NoError(t, s.Tasks().Create(ctx, &models.Task{
		ID: "src", Title: "Standup", OwnerID: "owner", Status: models.StatusCompleted, Progress: 100,
		Priority: models.PriorityHigh, DueDate: &due, CompletedAt: at(due),
		IsRecurring: true, RecurrencePattern: models.RecurrenceDaily,
		AssigneeIDs: []string{"helper"}, TagIDs: []string{"tag"},
		CreatedAt: due, UpdatedAt: due,
	}))
	rec := NewRecurrence(s, logger.Nop())

	spawned, err := rec.Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, spawned)

	spawned, err = rec.Run(ctx, now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, spawned)

	all := s.AllTasks()
	require.Len(t, all, 2)
	var next models.Task
	for _, task := range all {
		if task.ID != "src" {
			next = task
		}
	}
	assert.Equal(t, models.StatusPending, next.Status)
	assert.True(t, next.DueDate.Equal(due.AddDate(0, 0, 1)))
	assert.Equal(t, "owner", next.OwnerID)
	assert.Equal(t, models.PriorityHigh, next.Priority)
	assert.Equal(t, []string{"helper"}, next.AssigneeIDs)
	assert.Equal(t, []string{"tag"}, next.TagIDs)
	assert.True(t, next.IsRecurring)

	source, err := s.Tasks().Get(ctx, "src")
	require.NoError(t, err)
	assert.False(t, source.IsRecurring)

	history := s.AllHistory()
	require.Len(t, history, 1)
	assert.Equal(t, next.ID, history[0].TaskID)
	assert.Equal(t, models.ActionCreated, history[0].Action)
}

func TestRecurrenceRetiresAtEndDate(t *testing.T) {
	ctx := context.Background()
	s := seed(t)
	due := time.Date(2026, 3, 9, 17, 0, 0, 0, time.UTC)
	require.NoError(t, s.Tasks().Create(ctx, &models.Task{
		ID: "src", Title: "Report", OwnerID: "owner", Status: models.StatusCompleted, Progress: 100,
		Priority: models.PriorityMedium, DueDate: &due, CompletedAt: at(due),
		IsRecurring: true, RecurrencePattern: models.RecurrenceWeekly, RecurrenceEndDate: at(now.Add(48 * time.Hour)),
		CreatedAt: due, UpdatedAt: due,
	}))

	spawned, err := NewRecurrence(s, logger.Nop()).Run(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, spawned)
	assert.Len(t, s.AllTasks(), 1)

	source, err := s.Tasks().Get(ctx, "src")
	require.NoError(t, err)
	assert.False(t, source.IsRecurring)

	candidates, err := s.Tasks().RecurringCandidates(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, candidates)
}
