package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
)

const (
	DefaultRetention = 30 * 24 * time.Hour
	overdueWindow    = time.Hour
)

// SweepOptions configures the periodic sweeps.
type SweepOptions struct {
	// Location decides calendar days for due-soon reminders.
	Location *time.Location
	// Retention is how long read notifications are kept.
	Retention time.Duration
}

// Sweeper runs the time-driven notification jobs.
type Sweeper struct {
	store store.Store
	log   logger.Logger
	opts  SweepOptions
}

func NewSweeper(s store.Store, log logger.Logger, opts SweepOptions) *Sweeper {
	if log == nil {
		log = logger.Notify()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	return &Sweeper{store: s, log: log, opts: opts}
}

// startOfDay returns local midnight of the day containing t.
func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// PlanDueSoon builds the reminders for tasks due today or tomorrow. Each
// carries a key scoped to the run day so a rerun on the same day is a no-op.
func PlanDueSoon(tasks []models.Task, now time.Time, loc *time.Location) []models.Notification {
	today := startOfDay(now, loc)
	tomorrow := today.AddDate(0, 0, 1)
	dayAfter := today.AddDate(0, 0, 2)
	day := today.Format("2006-01-02")
	created := now.UTC()

	var out []models.Notification
	for i := range tasks {
		t := &tasks[i]
		if t.DueDate == nil || t.IsDeleted || !t.Status.IsActive() {
			continue
		}
		due := t.DueDate.In(loc)
		if due.Before(today) || !due.Before(dayAfter) {
			continue
		}
		dueToday := due.Before(tomorrow)

		for _, recipient := range t.Recipients() {
			var title, message string
			priority := models.NotificationMedium
			owner := recipient == t.OwnerID
			switch {
			case dueToday && owner:
				title, message = "Task Due Today", fmt.Sprintf("Your task \"%s\" is due today!", t.Title)
			case dueToday:
				title, message = "Assigned Task Due Today", fmt.Sprintf("The task \"%s\" is due today!", t.Title)
			case owner:
				title, message = "Task Due Tomorrow", fmt.Sprintf("Your task \"%s\" is due tomorrow.", t.Title)
			default:
				title, message = "Task Due Tomorrow", fmt.Sprintf("The task \"%s\" assigned to you is due tomorrow.", t.Title)
			}
			if dueToday {
				priority = models.NotificationHigh
			}
			n := build(models.NotifyTaskDueSoon, recipient, nil, t, title, message, priority, created)
			out = append(out, withKey(n, models.DedupKeyFor(models.NotifyTaskDueSoon, recipient, t.ID, day)))
		}
	}
	return out
}

// PlanOverdue builds the alerts for tasks that became overdue within the
// last hour.
func PlanOverdue(tasks []models.Task, now time.Time) []models.Notification {
	from := now.Add(-overdueWindow)
	var out []models.Notification
	for i := range tasks {
		t := &tasks[i]
		if t.DueDate == nil || t.IsDeleted || !t.Status.IsActive() {
			continue
		}
		if t.DueDate.Before(from) || !t.DueDate.Before(now) {
			continue
		}
		for _, recipient := range t.Recipients() {
			title, message := "Task Overdue", fmt.Sprintf("Your task \"%s\" is now overdue.", t.Title)
			if recipient != t.OwnerID {
				title, message = "Assigned Task Overdue", fmt.Sprintf("The task \"%s\" assigned to you is now overdue.", t.Title)
			}
			out = append(out, build(models.NotifyTaskOverdue, recipient, nil, t, title, message, models.NotificationHigh, now.UTC()))
		}
	}
	return out
}

// RunDueSoonSweep reminds owners and assignees of tasks due today or
// tomorrow and returns how many notifications were created.
func (s *Sweeper) RunDueSoonSweep(ctx context.Context, now time.Time) (int, error) {
	today := startOfDay(now, s.opts.Location)
	tasks, err := s.store.Tasks().DueBetween(ctx, today, today.AddDate(0, 0, 2))
	if err != nil {
		return 0, fmt.Errorf("due soon sweep: %w", err)
	}

	created := 0
	for _, n := range PlanDueSoon(tasks, now, s.opts.Location) {
		n.ID = models.NewID()
		ok, err := s.store.Notifications().CreateOnce(ctx, &n)
		if err != nil {
			s.log.Warn("due soon notification failed", "task", *n.TaskID, "recipient", n.RecipientID, "error", err)
			continue
		}
		if ok {
			created++
		}
	}
	s.log.Info("due soon sweep finished", "tasks", len(tasks), "created", created)
	return created, nil
}

// RunOverdueSweep alerts owners and assignees of tasks whose due date
// passed within the last hour.
func (s *Sweeper) RunOverdueSweep(ctx context.Context, now time.Time) (int, error) {
	tasks, err := s.store.Tasks().DueBetween(ctx, now.Add(-overdueWindow), now)
	if err != nil {
		return 0, fmt.Errorf("overdue sweep: %w", err)
	}

	created := 0
	for _, n := range PlanOverdue(tasks, now) {
		n.ID = models.NewID()
		if err := s.store.Notifications().Create(ctx, &n); err != nil {
			s.log.Warn("overdue notification failed", "task", *n.TaskID, "recipient", n.RecipientID, "error", err)
			continue
		}
		created++
	}
	s.log.Info("overdue sweep finished", "tasks", len(tasks), "created", created)
	return created, nil
}

// RunRetention deletes read notifications older than the retention period.
func (s *Sweeper) RunRetention(ctx context.Context, now time.Time) (int, error) {
	n, err := s.store.Notifications().PurgeRead(ctx, now.Add(-s.opts.Retention))
	if err != nil {
		return 0, fmt.Errorf("notification retention: %w", err)
	}
	s.log.Info("notification retention finished", "deleted", n)
	return n, nil
}
