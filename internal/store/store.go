// Package store is the entity store: durable users, tasks, taxonomy,
// comments, notifications, history and statistics.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// Store groups the repositories. WithinTx hands fn a Store whose
// repositories all share one transaction.
type Store interface {
	Users() UserRepository
	Tasks() TaskRepository
	Taxonomy() TaxonomyRepository
	Comments() CommentRepository
	Notifications() NotificationRepository
	History() HistoryRepository
	Stats() StatsRepository
	WithinTx(ctx context.Context, fn func(Store) error) error
}

// UserFilter narrows user listings.
type UserFilter struct {
	IDs        []string
	ManagerID  string
	Roles      []models.Role
	ActiveOnly bool
}

type UserRepository interface {
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	List(ctx context.Context, f UserFilter) ([]models.User, error)
	ManagerOf(ctx context.Context, id string) (*string, error)
	// FindByMention resolves @name tokens against email local parts and
	// first names, case-insensitively. Inactive users are ignored.
	FindByMention(ctx context.Context, names []string) ([]models.User, error)
}

type TaskRepository interface {
	// Get returns the task including soft-deleted ones, with relations loaded.
	Get(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, scope models.TaskScope, f models.TaskFilter) ([]models.Task, error)
	Create(ctx context.Context, t *models.Task) error
	Update(ctx context.Context, t *models.Task) error
	SetAssignees(ctx context.Context, taskID string, userIDs []string) error
	SetTags(ctx context.Context, taskID string, tagIDs []string) error
	ParentOf(ctx context.Context, id string) (*string, error)
	// SoftDelete marks the task and its live descendants deleted at the
	// given instant and returns the affected ids.
	SoftDelete(ctx context.Context, id string, at time.Time) ([]string, error)
	// Restore undeletes the task and the descendants that were deleted in
	// the same cascade, returning the affected ids.
	Restore(ctx context.Context, id string, deletedAt, at time.Time) ([]string, error)
	HardDelete(ctx context.Context, id string) error
	// DueBetween returns live, active tasks with a due date in [from, to).
	DueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error)
	// RecurringCandidates returns completed recurring tasks whose
	// recurrence has not ended at now.
	RecurringCandidates(ctx context.Context, now time.Time) ([]models.Task, error)
}

type TaxonomyRepository interface {
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	ListCategories(ctx context.Context, ownerID string) ([]models.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	GetTag(ctx context.Context, id string) (*models.Tag, error)
	CreateTag(ctx context.Context, t *models.Tag) error
	ListTags(ctx context.Context, ownerID string) ([]models.Tag, error)
	DeleteTag(ctx context.Context, id string) error
	// CountTagsOwnedBy counts how many of ids are tags owned by ownerID.
	CountTagsOwnedBy(ctx context.Context, ownerID string, ids []string) (int, error)
}

type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	Get(ctx context.Context, id string) (*models.Comment, error)
	ListByTask(ctx context.Context, taskID string) ([]models.Comment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	// CreateOnce inserts n unless a row with the same dedup key exists and
	// reports whether it was written.
	CreateOnce(ctx context.Context, n *models.Notification) (bool, error)
	Get(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, recipientID string, unreadOnly bool, limit uint64) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	MarkRead(ctx context.Context, id string, at time.Time) (bool, error)
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error)
	Delete(ctx context.Context, id string) error
	DeleteForRecipient(ctx context.Context, recipientID string) (int, error)
	PurgeRead(ctx context.Context, before time.Time) (int, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, h *models.TaskHistory) error
	ListByTask(ctx context.Context, taskID string) ([]models.TaskHistory, error)
}

type StatsRepository interface {
	UpsertDaily(ctx context.Context, s *models.DailyTaskStats) error
	UpsertTeam(ctx context.Context, s *models.TeamStats) error
	ListDaily(ctx context.Context, userID string, since time.Time) ([]models.DailyTaskStats, error)
}

// translate maps orm errors onto the public taxonomy.
func translate(err error, op, entity string) error {
	if err == nil {
		return nil
	}

	var tfErr *taskflow.Error
	if errors.As(err, &tfErr) {
		return err
	}

	var ormErr *orm.Error
	column := ""
	if errors.As(err, &ormErr) {
		column = ormErr.Column
	}

	switch {
	case errors.Is(err, orm.ErrNotFound):
		return &taskflow.Error{Op: op, Kind: taskflow.KindNotFound, Entity: entity, Message: entity + " not found", Err: err}
	case errors.Is(err, orm.ErrDuplicateKey):
		return &taskflow.Error{Op: op, Kind: taskflow.KindConflict, Entity: entity, Message: entity + " already exists", Err: err}
	case errors.Is(err, orm.ErrForeignKey):
		return &taskflow.Error{Op: op, Kind: taskflow.KindValidation, Entity: entity, Message: "references a missing record", Err: err}
	case errors.Is(err, orm.ErrNotNull), errors.Is(err, orm.ErrCheckConstraint), errors.Is(err, orm.ErrInvalidValue):
		return &taskflow.Error{Op: op, Kind: taskflow.KindValidation, Entity: entity, Field: column, Message: "invalid value", Err: err}
	}
	return fmt.Errorf("%s %s: %w", op, entity, err)
}
