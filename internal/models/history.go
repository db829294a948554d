package models

import "time"

type HistoryAction string

const (
	ActionCreated  HistoryAction = "created"
	ActionUpdated  HistoryAction = "updated"
	ActionDeleted  HistoryAction = "deleted"
	ActionRestored HistoryAction = "restored"
)

// TaskHistory rows are append only.
type TaskHistory struct {
	ID        string        `db:"id"`
	TaskID    string        `db:"task_id"`
	UserID    string        `db:"user_id"`
	FieldName string        `db:"field_name"`
	OldValue  *string       `db:"old_value"`
	NewValue  *string       `db:"new_value"`
	Action    HistoryAction `db:"action"`
	CreatedAt time.Time     `db:"created_at"`
}

func (TaskHistory) TableName() string { return "task_history" }
