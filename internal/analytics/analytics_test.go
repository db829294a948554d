package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/taskflow/internal/access"
	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store/memstore"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

var now = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func at(t time.Time) *time.Time { return &t }

func hours(h float64) *float64 { return &h }

func TestDailyFor(t *testing.T) {
	yesterday := StartOfDay(now, time.UTC).Add(-24 * time.Hour)
	tasks := []models.Task{
		{ID: "created", Status: models.StatusPending, CreatedAt: yesterday.Add(2 * time.Hour)},
		{ID: "done", Status: models.StatusCompleted, CreatedAt: yesterday.Add(-48 * time.Hour),
			CompletedAt: at(yesterday.Add(10 * time.Hour)), ActualHours: hours(2.5)},
		{ID: "late", Status: models.StatusInProgress, CreatedAt: yesterday.Add(-72 * time.Hour),
			DueDate: at(yesterday.Add(12 * time.Hour))},
		{ID: "finished after day", Status: models.StatusCompleted, CreatedAt: yesterday.Add(-72 * time.Hour),
			DueDate: at(yesterday.Add(time.Hour)), CompletedAt: at(now), ActualHours: hours(4)},
		{ID: "cancelled", Status: models.StatusCancelled, CreatedAt: yesterday.Add(-72 * time.Hour),
			DueDate: at(yesterday.Add(time.Hour))},
		{ID: "due later", Status: models.StatusPending, CreatedAt: yesterday.Add(-72 * time.Hour),
			DueDate: at(now.Add(time.Hour))},
	}

	row := DailyFor("u1", tasks, yesterday.Add(5*time.Hour), time.UTC)
	assert.Equal(t, "u1", row.UserID)
	assert.True(t, row.Date.Equal(yesterday))
	assert.Equal(t, 1, row.TasksCreated)
	assert.Equal(t, 1, row.TasksCompleted)
	assert.Equal(t, 2, row.TasksOverdue)
	assert.InDelta(t, 2.5, row.TotalHoursLogged, 0.001)
}

func TestTeamFor(t *testing.T) {
	tasks := []models.Task{
		{Status: models.StatusCompleted, DueDate: at(now), CompletedAt: at(now.Add(-time.Hour))},
		{Status: models.StatusCompleted, DueDate: at(now.Add(-48 * time.Hour)), CompletedAt: at(now.Add(-time.Hour))},
		{Status: models.StatusCompleted, CompletedAt: at(now)},
		{Status: models.StatusPending, DueDate: at(now.Add(-time.Hour))},
	}

	row := TeamFor("m1", 2, tasks, now, time.UTC)
	assert.Equal(t, 2, row.TeamSize)
	assert.Equal(t, 4, row.TotalTasks)
	assert.Equal(t, 3, row.CompletedTasks)
	assert.Equal(t, 1, row.OverdueTasks)
	assert.Equal(t, 75.0, row.CompletionRate)
	assert.Equal(t, 66.67, row.OnTimeRate)

	empty := TeamFor("m1", 1, nil, now, time.UTC)
	assert.Zero(t, empty.CompletionRate)
	assert.Zero(t, empty.OnTimeRate)
}

func TestDailyForFollowsLocation(t *testing.T) {
	sydney := time.FixedZone("UTC+10", 10*60*60)
	// 19:00 local on the 10th
	ref := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	// 01:00 local on the 10th, still the 9th in UTC
	created := time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC)
	tasks := []models.Task{{ID: "t1", Status: models.StatusPending, CreatedAt: created}}

	tests := []struct {
		name    string
		loc     *time.Location
		date    time.Time
		created int
	}{
		{"utc", time.UTC, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 0},
		{"ahead of utc", sydney, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 1},
		{"nil is utc", nil, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := DailyFor("u1", tasks, ref, tt.loc)
			assert.True(t, row.Date.Equal(tt.date), "date %s", row.Date)
			assert.Equal(t, tt.created, row.TasksCreated)
		})
	}

	start := StartOfDay(ref, sydney)
	assert.Equal(t, time.Date(2026, 3, 9, 14, 0, 0, 0, time.UTC), start.UTC())
}

type fixture struct {
	store *memstore.Store
	svc   *Service
	mgr   *models.User
	alice *models.User
	bob   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	f := &fixture{store: s, svc: NewService(s, access.NewResolver(), logger.Nop())}

	mk := func(id string, role models.Role, manager *string) *models.User {
		u := &models.User{ID: id, Email: id + "@example.com", FirstName: id, Role: role, ManagerID: manager, IsActive: true}
		require.NoError(t, s.Users().Create(ctx, u))
		return u
	}
	f.mgr = mk("mgr", models.RoleManager, nil)
	f.alice = mk("alice", models.RoleUser, &f.mgr.ID)
	f.bob = mk("bob", models.RoleUser, nil)
	return f
}

func (f *fixture) task(t *testing.T, owner string, status models.TaskStatus, due *time.Time, completed *time.Time) {
	t.Helper()
	created := now.Add(-72 * time.Hour)
	require.NoError(t, f.store.Tasks().Create(context.Background(), &models.Task{
		ID: models.NewID(), Title: "t", OwnerID: owner, Status: status, Priority: models.PriorityMedium,
		DueDate: due, CompletedAt: completed, CreatedAt: created, UpdatedAt: created,
	}))
}

func TestRunStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task(t, f.alice.ID, models.StatusCompleted, nil, at(now.Add(-20*time.Hour)))
	f.task(t, f.alice.ID, models.StatusPending, at(now.Add(-time.Hour)), nil)
	f.task(t, f.bob.ID, models.StatusPending, nil, nil)

	n, err := f.svc.RunDailyStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := f.store.Stats().ListDaily(ctx, f.alice.ID, time.Time{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Date.Equal(StartOfDay(now, time.UTC).Add(-24*time.Hour)))
	assert.Equal(t, 1, rows[0].TasksCompleted)

	// a rerun replaces the row
	_, err = f.svc.RunDailyStats(ctx, now)
	require.NoError(t, err)
	rows, err = f.store.Stats().ListDaily(ctx, f.alice.ID, time.Time{})
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	n, err = f.svc.RunTeamStats(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	row, ok := f.store.TeamStatsFor(f.mgr.ID, now)
	require.True(t, ok)
	assert.Equal(t, 1, row.TeamSize)
	assert.Equal(t, 2, row.TotalTasks)
	assert.Equal(t, 1, row.CompletedTasks)
	assert.Equal(t, 1, row.OverdueTasks)
	assert.Equal(t, 50.0, row.CompletionRate)
	assert.Equal(t, 100.0, row.OnTimeRate)
}

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task(t, f.alice.ID, models.StatusPending, at(now.Add(-time.Hour)), nil)
	f.task(t, f.alice.ID, models.StatusInProgress, at(now.Add(3*time.Hour)), nil)
	f.task(t, f.alice.ID, models.StatusCompleted, at(now.Add(time.Hour)), at(now))
	f.task(t, f.bob.ID, models.StatusPending, nil, nil)

	d, err := f.svc.Dashboard(ctx, f.mgr, now)
	require.NoError(t, err)
	assert.Equal(t, 3, d.Total)
	assert.Equal(t, 1, d.ByStatus[models.StatusPending])
	assert.Equal(t, 1, d.ByStatus[models.StatusCompleted])
	assert.Equal(t, 1, d.Overdue)
	assert.Equal(t, 2, d.DueToday)

	d, err = f.svc.Dashboard(ctx, f.bob, now)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Total)
}

func TestTeamSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.task(t, f.alice.ID, models.StatusCompleted, nil, at(now))
	f.task(t, f.alice.ID, models.StatusInProgress, at(now.Add(-time.Hour)), nil)

	summary, err := f.svc.TeamSummary(ctx, f.mgr, now)
	require.NoError(t, err)
	require.Len(t, summary, 1)
	assert.Equal(t, f.alice.ID, summary[0].User.ID)
	assert.Equal(t, 2, summary[0].Total)
	assert.Equal(t, 1, summary[0].Completed)
	assert.Equal(t, 1, summary[0].InProgress)
	assert.Equal(t, 1, summary[0].Overdue)
	assert.Equal(t, 50.0, summary[0].CompletionRate)

	lonely := &models.User{ID: "lead", Email: "lead@example.com", Role: models.RoleManager, IsActive: true}
	require.NoError(t, f.store.Users().Create(ctx, lonely))
	_, err = f.svc.TeamSummary(ctx, lonely, now)
	assert.ErrorIs(t, err, taskflow.ErrNoTeamMembers)
	assert.True(t, taskflow.IsNotFound(err))

	_, err = f.svc.TeamSummary(ctx, f.bob, now)
	assert.True(t, taskflow.IsPermissionDenied(err))
}
