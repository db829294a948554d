package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store/memstore"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

var now = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func clock() time.Time { return now }

type fixture struct {
	store *memstore.Store
	owner *models.User
	alice *models.User
	bob   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := memstore.New()
	f := &fixture{
		store: s,
		owner: &models.User{ID: "owner", Email: "olga@example.com", FirstName: "Olga", LastName: "Owner", Role: models.RoleUser, IsActive: true},
		alice: &models.User{ID: "alice", Email: "alice@example.com", FirstName: "Alice", Role: models.RoleUser, IsActive: true},
		bob:   &models.User{ID: "bob", Email: "bob@example.com", FirstName: "Bob", Role: models.RoleUser, IsActive: true},
	}
	for _, u := range []*models.User{f.owner, f.alice, f.bob} {
		require.NoError(t, s.Users().Create(ctx, u))
	}
	return f
}

func (f *fixture) task(t *testing.T, id string, due *time.Time, assignees ...string) *models.Task {
	t.Helper()
	task := &models.Task{
		ID: id, Title: "Write report", OwnerID: f.owner.ID, DueDate: due,
		Status: models.StatusPending, Priority: models.PriorityMedium,
		RecurrencePattern: models.RecurrenceNone, AssigneeIDs: assignees,
		CreatedAt: now.Add(-48 * time.Hour), UpdatedAt: now.Add(-48 * time.Hour),
	}
	require.NoError(t, f.store.Tasks().Create(context.Background(), task))
	return task
}

func at(t time.Time) *time.Time { return &t }

func byRecipient(ns []models.Notification) map[string]models.Notification {
	out := make(map[string]models.Notification, len(ns))
	for _, n := range ns {
		out[n.RecipientID] = n
	}
	return out
}

func TestTaskAssignedSkipsOwner(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "t1", nil)
	d := NewDispatcher(f.store, logger.Nop()).WithClock(clock)

	sent := d.TaskAssigned(context.Background(), task, []string{"owner", "alice"})
	assert.Equal(t, 1, sent)

	all := f.store.AllNotifications()
	require.Len(t, all, 1)
	n := all[0]
	assert.Equal(t, "alice", n.RecipientID)
	assert.Equal(t, models.NotifyTaskAssigned, n.Type)
	assert.Equal(t, "New Task Assignment", n.Title)
	assert.Equal(t, `You have been assigned to "Write report"`, n.Message)
	assert.Equal(t, models.NotificationMedium, n.Priority)
	require.NotNil(t, n.SenderID)
	assert.Equal(t, "owner", *n.SenderID)
}

func TestTaskAssignedRepeatsAreNotDeduplicated(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "t1", nil)
	d := NewDispatcher(f.store, logger.Nop()).WithClock(clock)

	d.TaskAssigned(context.Background(), task, []string{"alice"})
	d.TaskAssigned(context.Background(), task, []string{"alice"})
	assert.Len(t, f.store.AllNotifications(), 2)
}

func TestTaskCompletedOncePerAssignee(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "t1", nil, "owner", "alice", "bob")
	d := NewDispatcher(f.store, logger.Nop()).WithClock(clock)

	assert.Equal(t, 2, d.TaskCompleted(context.Background(), task))
	assert.Equal(t, 0, d.TaskCompleted(context.Background(), task))

	got := byRecipient(f.store.AllNotifications())
	require.Len(t, got, 2)
	assert.Equal(t, "Task Completed", got["alice"].Title)
	assert.Equal(t, `The task "Write report" has been marked as completed`, got["bob"].Message)
	assert.Equal(t, models.NotificationLow, got["bob"].Priority)
}

func TestCommentAndMentions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := f.task(t, "t1", nil, "alice")
	comment := &models.Comment{ID: "c1", TaskID: "t1", AuthorID: "alice", Content: "@bob @alice look", CreatedAt: now}
	require.NoError(t, f.store.Comments().Create(ctx, comment))
	d := NewDispatcher(f.store, logger.Nop()).WithClock(clock)

	assert.Equal(t, 1, d.CommentAdded(ctx, task, comment, f.alice))
	assert.Equal(t, 1, d.Mentions(ctx, task, comment, f.alice, []models.User{*f.bob, *f.alice}))

	// same comment again: keyed per comment
	assert.Equal(t, 0, d.CommentAdded(ctx, task, comment, f.alice))
	assert.Equal(t, 0, d.Mentions(ctx, task, comment, f.alice, []models.User{*f.bob}))

	got := byRecipient(f.store.AllNotifications())
	require.Len(t, got, 2)
	assert.Equal(t, "New comment on your task", got["owner"].Title)
	assert.Equal(t, `Alice commented on "Write report"`, got["owner"].Message)
	assert.Equal(t, "You were mentioned", got["bob"].Title)
	assert.Equal(t, `Alice mentioned you in a comment on "Write report"`, got["bob"].Message)
	require.NotNil(t, got["bob"].CommentID)
	assert.Equal(t, "c1", *got["bob"].CommentID)
}

func TestOwnerCommentNotifiesNobody(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	task := f.task(t, "t1", nil)
	comment := &models.Comment{ID: "c1", TaskID: "t1", AuthorID: "owner", Content: "note", CreatedAt: now}
	require.NoError(t, f.store.Comments().Create(ctx, comment))

	assert.Equal(t, 0, NewDispatcher(f.store, logger.Nop()).CommentAdded(ctx, task, comment, f.owner))
	assert.Empty(t, f.store.AllNotifications())
}

func TestDispatchFailuresAreSwallowed(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, "t1", nil, "alice")
	f.store.FailNotifications = true

	d := NewDispatcher(f.store, logger.Nop()).WithClock(clock)
	assert.NotPanics(t, func() {
		assert.Equal(t, 0, d.TaskAssigned(context.Background(), task, []string{"alice"}))
		assert.Equal(t, 0, d.TaskCompleted(context.Background(), task))
	})
}

func TestPlanDueSoon(t *testing.T) {
	today := &models.Task{ID: "a", Title: "Today", OwnerID: "owner", Status: models.StatusPending, DueDate: at(now.Add(2 * time.Hour)), AssigneeIDs: []string{"alice"}}
	tomorrow := &models.Task{ID: "b", Title: "Tomorrow", OwnerID: "owner", Status: models.StatusInProgress, DueDate: at(now.Add(20 * time.Hour)), AssigneeIDs: []string{"alice"}}
	later := &models.Task{ID: "c", Title: "Later", OwnerID: "owner", Status: models.StatusPending, DueDate: at(now.Add(72 * time.Hour))}
	done := &models.Task{ID: "d", Title: "Done", OwnerID: "owner", Status: models.StatusCompleted, DueDate: at(now.Add(time.Hour))}

	plan := PlanDueSoon([]models.Task{*today, *tomorrow, *later, *done}, now, time.UTC)
	require.Len(t, plan, 4)

	tests := []struct {
		idx      int
		title    string
		message  string
		priority models.NotificationPriority
	}{
		{0, "Task Due Today", `Your task "Today" is due today!`, models.NotificationHigh},
		{1, "Assigned Task Due Today", `The task "Today" is due today!`, models.NotificationHigh},
		{2, "Task Due Tomorrow", `Your task "Tomorrow" is due tomorrow.`, models.NotificationMedium},
		{3, "Task Due Tomorrow", `The task "Tomorrow" assigned to you is due tomorrow.`, models.NotificationMedium},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			n := plan[tt.idx]
			assert.Equal(t, tt.title, n.Title)
			assert.Equal(t, tt.message, n.Message)
			assert.Equal(t, tt.priority, n.Priority)
			require.NotNil(t, n.DedupKey)
			assert.Contains(t, *n.DedupKey, ":2026-03-10")
		})
	}
}

func TestPlanDueSoonUsesLocation(t *testing.T) {
	// 23:30 in UTC is already the next morning in Tokyo.
	late := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
	tokyo := time.FixedZone("JST", 9*3600)
	task := models.Task{ID: "a", Title: "T", OwnerID: "owner", Status: models.StatusPending, DueDate: at(time.Date(2026, 3, 12, 1, 0, 0, 0, time.UTC))}

	assert.Empty(t, PlanDueSoon([]models.Task{task}, late, time.UTC))

	plan := PlanDueSoon([]models.Task{task}, late, tokyo)
	require.Len(t, plan, 1)
	assert.Equal(t, "Task Due Tomorrow", plan[0].Title)
}

func TestRunDueSoonSweepIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.task(t, "t1", at(now.Add(3*time.Hour)), "alice")
	sweeper := NewSweeper(f.store, logger.Nop(), SweepOptions{})

	created, err := sweeper.RunDueSoonSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = sweeper.RunDueSoonSweep(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, created)
	assert.Len(t, f.store.AllNotifications(), 2)
}

func TestRunOverdueSweep(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.task(t, "recent", at(now.Add(-30*time.Minute)), "alice")
	f.task(t, "old", at(now.Add(-3*time.Hour)))
	f.task(t, "future", at(now.Add(time.Hour)))

	created, err := NewSweeper(f.store, logger.Nop(), SweepOptions{}).RunOverdueSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	got := byRecipient(f.store.AllNotifications())
	assert.Equal(t, "Task Overdue", got["owner"].Title)
	assert.Equal(t, `Your task "Write report" is now overdue.`, got["owner"].Message)
	assert.Equal(t, "Assigned Task Overdue", got["alice"].Title)
	assert.Equal(t, `The task "Write report" assigned to you is now overdue.`, got["alice"].Message)
	assert.Equal(t, models.NotificationHigh, got["alice"].Priority)
}

func TestRunRetention(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	old := now.Add(-40 * 24 * time.Hour)
	notes := []models.Notification{
		{ID: "read-old", RecipientID: "alice", IsRead: true, CreatedAt: old},
		{ID: "unread-old", RecipientID: "alice", CreatedAt: old},
		{ID: "read-new", RecipientID: "alice", IsRead: true, CreatedAt: now.Add(-time.Hour)},
	}
	for i := range notes {
		require.NoError(t, f.store.Notifications().Create(ctx, &notes[i]))
	}

	deleted, err := NewSweeper(f.store, logger.Nop(), SweepOptions{}).RunRetention(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.Len(t, f.store.AllNotifications(), 2)
}

func TestInbox(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	notes := []models.Notification{
		{ID: "n1", RecipientID: "alice", CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "n2", RecipientID: "alice", CreatedAt: now.Add(-time.Hour)},
		{ID: "n3", RecipientID: "bob", CreatedAt: now},
	}
	for i := range notes {
		require.NoError(t, f.store.Notifications().Create(ctx, &notes[i]))
	}
	inbox := NewService(f.store).WithClock(clock)

	t.Run("list newest first", func(t *testing.T) {
		list, err := inbox.List(ctx, f.alice, false, 0)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "n2", list[0].ID)
	})

	t.Run("mark read is idempotent", func(t *testing.T) {
		n, err := inbox.MarkRead(ctx, f.alice, "n1")
		require.NoError(t, err)
		require.NotNil(t, n.ReadAt)
		assert.True(t, n.ReadAt.Equal(now))

		later := NewService(f.store).WithClock(func() time.Time { return now.Add(time.Hour) })
		n, err = later.MarkRead(ctx, f.alice, "n1")
		require.NoError(t, err)
		assert.True(t, n.ReadAt.Equal(now))

		count, err := inbox.UnreadCount(ctx, f.alice)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("other recipient is not found", func(t *testing.T) {
		_, err := inbox.MarkRead(ctx, f.alice, "n3")
		assert.True(t, taskflow.IsNotFound(err))
		assert.True(t, taskflow.IsNotFound(inbox.Dismiss(ctx, f.alice, "n3")))
	})

	t.Run("mark all and clear", func(t *testing.T) {
		n, err := inbox.MarkAllRead(ctx, f.alice)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.NoError(t, inbox.Dismiss(ctx, f.alice, "n1"))
		cleared, err := inbox.ClearAll(ctx, f.alice)
		require.NoError(t, err)
		assert.Equal(t, 1, cleared)
	})
}
