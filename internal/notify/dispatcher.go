package notify

import (
	"context"
	"time"

	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
)

// Dispatcher emits notifications in reaction to task events. It runs
// after the triggering change has committed; failures are logged and
// never returned to the caller.
type Dispatcher struct {
	store store.Store
	log   logger.Logger
	now   func() time.Time
}

func NewDispatcher(s store.Store, log logger.Logger) *Dispatcher {
	if log == nil {
		log = logger.Notify()
	}
	return &Dispatcher{store: s, log: log, now: time.Now}
}

// WithClock replaces the time source.
func (d *Dispatcher) WithClock(now func() time.Time) *Dispatcher {
	d.now = now
	return d
}

// TaskAssigned notifies every listed user other than the owner.
func (d *Dispatcher) TaskAssigned(ctx context.Context, task *models.Task, userIDs []string) int {
	now := d.now().UTC()
	owner := task.OwnerID
	sent := 0
	for _, id := range userIDs {
		if id == task.OwnerID {
			continue
		}
		n := build(models.NotifyTaskAssigned, id, &owner, task,
			"New Task Assignment", assignedMessage(task.Title), models.NotificationMedium, now)
		if d.create(ctx, &n) {
			sent++
		}
	}
	return sent
}

// TaskCompleted notifies non-owner assignees, once per task.
func (d *Dispatcher) TaskCompleted(ctx context.Context, task *models.Task) int {
	now := d.now().UTC()
	owner := task.OwnerID
	sent := 0
	for _, id := range task.AssigneeIDs {
		if id == task.OwnerID {
			continue
		}
		n := withKey(build(models.NotifyTaskCompleted, id, &owner, task,
			"Task Completed", completedMessage(task.Title), models.NotificationLow, now),
			models.DedupKeyFor(models.NotifyTaskCompleted, id, task.ID, ""))
		if d.createOnce(ctx, &n) {
			sent++
		}
	}
	return sent
}

// CommentAdded tells the owner about a comment written by someone else.
func (d *Dispatcher) CommentAdded(ctx context.Context, task *models.Task, comment *models.Comment, author *models.User) int {
	if author.ID == task.OwnerID {
		return 0
	}
	n := withKey(build(models.NotifyCommentAdded, task.OwnerID, &author.ID, task,
		"New comment on your task", commentMessage(author.FullName(), task.Title), models.NotificationMedium, d.now().UTC()),
		models.DedupKeyFor(models.NotifyCommentAdded, task.OwnerID, comment.ID, ""))
	n.CommentID = &comment.ID
	if d.createOnce(ctx, &n) {
		return 1
	}
	return 0
}

// Mentions sends one notification per mentioned user except the author.
func (d *Dispatcher) Mentions(ctx context.Context, task *models.Task, comment *models.Comment, author *models.User, users []models.User) int {
	now := d.now().UTC()
	sent := 0
	for _, u := range users {
		if u.ID == author.ID {
			continue
		}
		n := withKey(build(models.NotifyMention, u.ID, &author.ID, task,
			"You were mentioned", mentionMessage(author.FullName(), task.Title), models.NotificationMedium, now),
			models.DedupKeyFor(models.NotifyMention, u.ID, comment.ID, ""))
		n.CommentID = &comment.ID
		if d.createOnce(ctx, &n) {
			sent++
		}
	}
	return sent
}

func (d *Dispatcher) create(ctx context.Context, n *models.Notification) bool {
	n.ID = models.NewID()
	if err := d.store.Notifications().Create(ctx, n); err != nil {
		d.log.Error("failed to create notification", "type", n.Type, "recipient", n.RecipientID, "error", err)
		return false
	}
	return true
}

func (d *Dispatcher) createOnce(ctx context.Context, n *models.Notification) bool {
	n.ID = models.NewID()
	created, err := d.store.Notifications().CreateOnce(ctx, n)
	if err != nil {
		d.log.Error("failed to create notification", "type", n.Type, "recipient", n.RecipientID, "error", err)
		return false
	}
	if !created {
		d.log.Debug("notification already sent", "key", *n.DedupKey)
	}
	return created
}
