package store

import (
	"context"
	"errors"
	"time"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
)

type pgNotifications struct {
	db *orm.DB
}

func (r *pgNotifications) repo() *orm.Repository[models.Notification] {
	return orm.NewRepository[models.Notification](r.db, tableNotifications)
}

func (r *pgNotifications) Create(ctx context.Context, n *models.Notification) error {
	return translate(r.repo().Insert(ctx, n), "create", "notification")
}

func (r *pgNotifications) CreateOnce(ctx context.Context, n *models.Notification) (bool, error) {
	if n.DedupKey == nil {
		return false, errors.New("create once: notification has no dedup key")
	}
	created, err := r.repo().InsertIgnore(ctx, n, "dedup_key")
	return created, translate(err, "create", "notification")
}

func (r *pgNotifications) Get(ctx context.Context, id string) (*models.Notification, error) {
	n, err := r.repo().Query(ctx).Where(notificationColumns.ID.Eq(id)).First()
	return n, translate(err, "get", "notification")
}

func (r *pgNotifications) List(ctx context.Context, recipientID string, unreadOnly bool, limit uint64) ([]models.Notification, error) {
	q := r.repo().Query(ctx).
		Where(notificationColumns.RecipientID.Eq(recipientID)).
		OrderBy("-created_at", "id")
	if unreadOnly {
		q = q.Where(notificationColumns.IsRead.IsFalse())
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	ns, err := q.Find()
	return ns, translate(err, "list", "notification")
}

func (r *pgNotifications) CountUnread(ctx context.Context, recipientID string) (int, error) {
	n, err := r.repo().Query(ctx).
		Where(notificationColumns.RecipientID.Eq(recipientID)).
		Where(notificationColumns.IsRead.IsFalse()).
		Count()
	return int(n), translate(err, "count", "notification")
}

// MarkRead only touches unread rows, so read_at keeps the first read time.
func (r *pgNotifications) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	n, err := r.repo().UpdateWhere(ctx,
		map[string]interface{}{"is_read": true, "read_at": at, "updated_at": at},
		orm.And(notificationColumns.ID.Eq(id), notificationColumns.IsRead.IsFalse()))
	return n > 0, translate(err, "mark read", "notification")
}

func (r *pgNotifications) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	n, err := r.repo().UpdateWhere(ctx,
		map[string]interface{}{"is_read": true, "read_at": at, "updated_at": at},
		orm.And(notificationColumns.RecipientID.Eq(recipientID), notificationColumns.IsRead.IsFalse()))
	return int(n), translate(err, "mark read", "notification")
}

func (r *pgNotifications) Delete(ctx context.Context, id string) error {
	n, err := r.repo().DeleteWhere(ctx, notificationColumns.ID.Eq(id))
	if err == nil && n == 0 {
		err = &orm.Error{Op: "delete", Table: tableNotifications, Err: orm.ErrNotFound}
	}
	return translate(err, "delete", "notification")
}

func (r *pgNotifications) DeleteForRecipient(ctx context.Context, recipientID string) (int, error) {
	n, err := r.repo().DeleteWhere(ctx, notificationColumns.RecipientID.Eq(recipientID))
	return int(n), translate(err, "delete", "notification")
}

func (r *pgNotifications) PurgeRead(ctx context.Context, before time.Time) (int, error) {
	n, err := r.repo().DeleteWhere(ctx, orm.And(
		notificationColumns.IsRead.IsTrue(),
		notificationColumns.CreatedAt.Before(before),
	))
	return int(n), translate(err, "purge", "notification")
}
