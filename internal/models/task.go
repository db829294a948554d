package models

import (
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusOnHold     TaskStatus = "on_hold"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// ActiveStatuses are the statuses a task can be worked on in.
var ActiveStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusOnHold}

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusOnHold, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

func (s TaskStatus) IsActive() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusOnHold
}

// IsTerminal is true for completed and cancelled.
func (s TaskStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities from low (0) to urgent (3).
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityMedium:
		return 1
	case PriorityHigh:
		return 2
	case PriorityUrgent:
		return 3
	}
	return 0
}

const MaxTitleLength = 200

type Task struct {
	ID                string            `db:"id"`
	Title             string            `db:"title"`
	Description       string            `db:"description"`
	Status            TaskStatus        `db:"status"`
	Priority          TaskPriority      `db:"priority"`
	DueDate           *time.Time        `db:"due_date"`
	StartDate         *time.Time        `db:"start_date"`
	CompletedAt       *time.Time        `db:"completed_at"`
	Progress          int               `db:"progress"`
	EstimatedHours    *float64          `db:"estimated_hours"`
	ActualHours       *float64          `db:"actual_hours"`
	OwnerID           string            `db:"owner_id"`
	CategoryID        *string           `db:"category_id"`
	ParentID          *string           `db:"parent_id"`
	IsRecurring       bool              `db:"is_recurring"`
	RecurrencePattern RecurrencePattern `db:"recurrence_pattern"`
	RecurrenceEndDate *time.Time        `db:"recurrence_end_date"`
	IsDeleted         bool              `db:"is_deleted"`
	DeletedAt         *time.Time        `db:"deleted_at"`
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`

	// Relationships, loaded by the store
	AssigneeIDs []string `db:"-"`
	TagIDs      []string `db:"-"`
}

func (Task) TableName() string { return "tasks" }

// IsOverdue is derived and never stored: the due date has passed and the
// task is still open.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil || t.Status.IsTerminal() {
		return false
	}
	return t.DueDate.Before(now)
}

func (t *Task) IsAssigned(userID string) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Recipients returns the owner followed by every assignee who is not the owner.
func (t *Task) Recipients() []string {
	out := []string{t.OwnerID}
	for _, id := range t.AssigneeIDs {
		if id != t.OwnerID {
			out = append(out, id)
		}
	}
	return out
}

// Clone copies the task including its relation slices.
func (t *Task) Clone() *Task {
	c := *t
	c.AssigneeIDs = append([]string(nil), t.AssigneeIDs...)
	c.TagIDs = append([]string(nil), t.TagIDs...)
	return &c
}

type TaskAssignee struct {
	TaskID    string    `db:"task_id"`
	UserID    string    `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

func (TaskAssignee) TableName() string { return "task_assignees" }

type TaskTag struct {
	TaskID string `db:"task_id"`
	TagID  string `db:"tag_id"`
}

func (TaskTag) TableName() string { return "task_tags" }
