package store

import (
	"context"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
)

type pgUsers struct {
	db *orm.DB
}

func (r *pgUsers) repo() *orm.Repository[models.User] {
	return orm.NewRepository[models.User](r.db, tableUsers)
}

func (r *pgUsers) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := r.repo().Query(ctx).Where(userColumns.ID.Eq(id)).First()
	return u, translate(err, "get", "user")
}

func (r *pgUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := r.repo().Query(ctx).Where(userColumns.Email.EqualFold(email)).First()
	return u, translate(err, "get", "user")
}

func (r *pgUsers) Create(ctx context.Context, u *models.User) error {
	return translate(r.repo().Insert(ctx, u), "create", "user")
}

func (r *pgUsers) Update(ctx context.Context, u *models.User) error {
	err := r.repo().Save(ctx, u, "id",
		"email", "first_name", "last_name", "password_hash", "role", "manager_id",
		"is_active", "email_notifications", "push_notifications", "last_login_at", "updated_at")
	return translate(err, "update", "user")
}

func (r *pgUsers) List(ctx context.Context, f UserFilter) ([]models.User, error) {
	q := r.repo().Query(ctx).OrderBy("last_name", "first_name", "email")
	if f.IDs != nil {
		q = q.Where(userColumns.ID.Any(f.IDs))
	}
	if f.ManagerID != "" {
		q = q.Where(userColumns.ManagerID.Eq(f.ManagerID))
	}
	if len(f.Roles) > 0 {
		q = q.Where(userColumns.Role.In(f.Roles...))
	}
	if f.ActiveOnly {
		q = q.Where(userColumns.IsActive.IsTrue())
	}
	users, err := q.Find()
	return users, translate(err, "list", "user")
}

func (r *pgUsers) ManagerOf(ctx context.Context, id string) (*string, error) {
	var managerID *string
	err := r.db.Get(ctx, tableUsers, &managerID,
		orm.Statement().Select("manager_id").From(tableUsers).Where(squirrel.Eq{"id": id}))
	return managerID, translate(err, "get", "user")
}

func (r *pgUsers) FindByMention(ctx context.Context, names []string) ([]models.User, error) {
	if len(names) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(n)
	}

	users, err := r.repo().Query(ctx).
		Where(userColumns.IsActive.IsTrue()).
		Where(orm.Raw("(LOWER(split_part(email, '@', 1)) = ANY(?) OR LOWER(first_name) = ANY(?))",
			pq.Array(lowered), pq.Array(lowered))).
		OrderBy("email").
		Find()
	return users, translate(err, "find", "user")
}
