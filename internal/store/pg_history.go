package store

import (
	"context"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
)

type pgHistory struct {
	db *orm.DB
}

func (r *pgHistory) repo() *orm.Repository[models.TaskHistory] {
	return orm.NewRepository[models.TaskHistory](r.db, tableHistory)
}

func (r *pgHistory) Append(ctx context.Context, h *models.TaskHistory) error {
	return translate(r.repo().Insert(ctx, h), "append", "task history")
}

func (r *pgHistory) ListByTask(ctx context.Context, taskID string) ([]models.TaskHistory, error) {
	rows, err := r.repo().Query(ctx).Where(taskIDColumn.Eq(taskID)).OrderBy("-created_at", "id").Find()
	return rows, translate(err, "list", "task history")
}
