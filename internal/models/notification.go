package models

import (
	"fmt"
	"time"
)

type NotificationType string

const (
	NotifyTaskAssigned  NotificationType = "task_assigned"
	NotifyTaskCompleted NotificationType = "task_completed"
	NotifyTaskDueSoon   NotificationType = "task_due_soon"
	NotifyTaskOverdue   NotificationType = "task_overdue"
	NotifyCommentAdded  NotificationType = "comment_added"
	NotifyMention       NotificationType = "mention"
	NotifyTeamUpdate    NotificationType = "team_update"
	NotifySystemAlert   NotificationType = "system_alert"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotifyTaskAssigned, NotifyTaskCompleted, NotifyTaskDueSoon, NotifyTaskOverdue,
		NotifyCommentAdded, NotifyMention, NotifyTeamUpdate, NotifySystemAlert:
		return true
	}
	return false
}

type NotificationPriority string

const (
	NotificationLow    NotificationPriority = "low"
	NotificationMedium NotificationPriority = "medium"
	NotificationHigh   NotificationPriority = "high"
)

type Notification struct {
	ID          string               `db:"id"`
	RecipientID string               `db:"recipient_id"`
	SenderID    *string              `db:"sender_id"`
	Type        NotificationType     `db:"notification_type"`
	Title       string               `db:"title"`
	Message     string               `db:"message"`
	Priority    NotificationPriority `db:"priority"`
	TaskID      *string              `db:"task_id"`
	CommentID   *string              `db:"comment_id"`
	IsRead      bool                 `db:"is_read"`
	ReadAt      *time.Time           `db:"read_at"`
	IsEmailSent bool                 `db:"is_email_sent"`
	IsPushSent  bool                 `db:"is_push_sent"`
	Metadata    Metadata             `db:"metadata"`
	DedupKey    *string              `db:"dedup_key"`
	CreatedAt   time.Time            `db:"created_at"`
	UpdatedAt   time.Time            `db:"updated_at"`
}

func (Notification) TableName() string { return "notifications" }

// MarkRead flips the read pair. The first read time is kept.
func (n *Notification) MarkRead(now time.Time) bool {
	if n.IsRead {
		return false
	}
	n.IsRead = true
	n.ReadAt = &now
	return true
}

// DedupKeyFor builds the unique key that makes a notification insert
// idempotent. Scope is whatever further narrows the key: a comment id, a
// calendar day, or nothing.
func DedupKeyFor(typ NotificationType, recipientID, subjectID, scope string) string {
	if scope == "" {
		return fmt.Sprintf("%s:%s:%s", typ, recipientID, subjectID)
	}
	return fmt.Sprintf("%s:%s:%s:%s", typ, recipientID, subjectID, scope)
}
