package tasks

import (
	"context"

	"github.com/eleven-am/taskflow/internal/access"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

func (s *Service) GetTask(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	return s.load(ctx, s.store, actor, id, access.OpRead)
}

// ListVisibleTasks lists live tasks within actor's visibility.
func (s *Service) ListVisibleTasks(ctx context.Context, actor *models.User, f models.TaskFilter) ([]models.Task, error) {
	if err := f.Validate(); err != nil {
		return nil, taskflow.Invalid("list", "filter", err.Error())
	}
	if f.Now.IsZero() {
		f.Now = s.clock()
	}
	f.OnlyDeleted = false
	return s.store.Tasks().List(ctx, s.access.TaskScope(actor), f)
}

// Trash lists soft-deleted tasks the actor owns; admins see every one.
func (s *Service) Trash(ctx context.Context, actor *models.User) ([]models.Task, error) {
	f := models.TaskFilter{OnlyDeleted: true, OrderBy: []string{"-updated_at"}, Now: s.clock()}
	if !actor.IsAdmin() {
		f.OwnerID = actor.ID
	}
	return s.store.Tasks().List(ctx, models.TaskScope{All: true}, f)
}

// History returns the audit trail of a task, newest first.
func (s *Service) History(ctx context.Context, actor *models.User, id string) ([]models.TaskHistory, error) {
	t, err := s.store.Tasks().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.resource(ctx, s.store, t)
	if err != nil {
		return nil, err
	}
	if err := s.access.Can(actor, access.OpRead, res); err != nil {
		return nil, err
	}
	return s.store.History().ListByTask(ctx, id)
}
