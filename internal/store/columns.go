package store

import (
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
)

const (
	tableUsers           = "users"
	tableTasks           = "tasks"
	tableTaskAssignees   = "task_assignees"
	tableTaskTags        = "task_tags"
	tableCategories      = "categories"
	tableTags            = "tags"
	tableComments        = "comments"
	tableCommentMentions = "comment_mentions"
	tableNotifications   = "notifications"
	tableHistory         = "task_history"
	tableDailyStats      = "daily_task_stats"
	tableTeamStats       = "team_stats"
)

// Column references used when building conditions.

var userColumns = struct {
	ID        orm.StringColumn
	Email     orm.StringColumn
	FirstName orm.StringColumn
	Role      orm.Column[models.Role]
	ManagerID orm.StringColumn
	IsActive  orm.BoolColumn
}{
	ID:        orm.String("", "id"),
	Email:     orm.String("", "email"),
	FirstName: orm.String("", "first_name"),
	Role:      orm.Enum[models.Role]("", "role"),
	ManagerID: orm.String("", "manager_id"),
	IsActive:  orm.Bool("", "is_active"),
}

var taskColumns = struct {
	ID                orm.StringColumn
	Title             orm.StringColumn
	Description       orm.StringColumn
	Status            orm.Column[models.TaskStatus]
	Priority          orm.Column[models.TaskPriority]
	DueDate           orm.TimeColumn
	CreatedAt         orm.TimeColumn
	Progress          orm.ComparableColumn[int]
	OwnerID           orm.StringColumn
	CategoryID        orm.StringColumn
	ParentID          orm.StringColumn
	IsRecurring       orm.BoolColumn
	RecurrencePattern orm.Column[models.RecurrencePattern]
	RecurrenceEndDate orm.TimeColumn
	IsDeleted         orm.BoolColumn
}{
	ID:                orm.String(tableTasks, "id"),
	Title:             orm.String(tableTasks, "title"),
	Description:       orm.String(tableTasks, "description"),
	Status:            orm.Enum[models.TaskStatus](tableTasks, "status"),
	Priority:          orm.Enum[models.TaskPriority](tableTasks, "priority"),
	DueDate:           orm.Time(tableTasks, "due_date"),
	CreatedAt:         orm.Time(tableTasks, "created_at"),
	Progress:          orm.Int(tableTasks, "progress"),
	OwnerID:           orm.String(tableTasks, "owner_id"),
	CategoryID:        orm.String(tableTasks, "category_id"),
	ParentID:          orm.String(tableTasks, "parent_id"),
	IsRecurring:       orm.Bool(tableTasks, "is_recurring"),
	RecurrencePattern: orm.Enum[models.RecurrencePattern](tableTasks, "recurrence_pattern"),
	RecurrenceEndDate: orm.Time(tableTasks, "recurrence_end_date"),
	IsDeleted:         orm.Bool(tableTasks, "is_deleted"),
}

var notificationColumns = struct {
	ID          orm.StringColumn
	RecipientID orm.StringColumn
	IsRead      orm.BoolColumn
	CreatedAt   orm.TimeColumn
}{
	ID:          orm.String("", "id"),
	RecipientID: orm.String("", "recipient_id"),
	IsRead:      orm.Bool("", "is_read"),
	CreatedAt:   orm.Time("", "created_at"),
}

var (
	ownerColumn  = orm.String("", "owner_id")
	idColumn     = orm.String("", "id")
	taskIDColumn = orm.String("", "task_id")
	userIDColumn = orm.String("", "user_id")
)
