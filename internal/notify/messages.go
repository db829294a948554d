// Package notify creates, sweeps and serves user notifications.
package notify

import (
	"fmt"
	"time"

	"github.com/eleven-am/taskflow/internal/models"
)

// build fills the fields shared by every notification.
func build(typ models.NotificationType, recipientID string, sender *string, task *models.Task, title, message string, priority models.NotificationPriority, now time.Time) models.Notification {
	n := models.Notification{
		RecipientID: recipientID,
		SenderID:    sender,
		Type:        typ,
		Title:       title,
		Message:     message,
		Priority:    priority,
		Metadata:    models.Metadata{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task != nil {
		id := task.ID
		n.TaskID = &id
		n.Metadata["task_title"] = task.Title
	}
	return n
}

func withKey(n models.Notification, key string) models.Notification {
	n.DedupKey = &key
	return n
}

func assignedMessage(title string) string {
	return fmt.Sprintf("You have been assigned to \"%s\"", title)
}

func completedMessage(title string) string {
	return fmt.Sprintf("The task \"%s\" has been marked as completed", title)
}

func commentMessage(author, title string) string {
	return fmt.Sprintf("%s commented on \"%s\"", author, title)
}

func mentionMessage(author, title string) string {
	return fmt.Sprintf("%s mentioned you in a comment on \"%s\"", author, title)
}
