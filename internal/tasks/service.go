// Package tasks implements the task lifecycle: creation, updates, status
// transitions, soft deletion, comments and the owner-scoped taxonomy.
package tasks

import (
	"context"
	"time"

	"github.com/eleven-am/taskflow/internal/access"
	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// Notifier receives task events after they commit.
type Notifier interface {
	TaskAssigned(ctx context.Context, task *models.Task, userIDs []string) int
	TaskCompleted(ctx context.Context, task *models.Task) int
	CommentAdded(ctx context.Context, task *models.Task, comment *models.Comment, author *models.User) int
	Mentions(ctx context.Context, task *models.Task, comment *models.Comment, author *models.User, users []models.User) int
}

type Service struct {
	store  store.Store
	access *access.Resolver
	notify Notifier
	log    logger.Logger
	now    func() time.Time
}

func NewService(s store.Store, resolver *access.Resolver, notifier Notifier, log logger.Logger) *Service {
	if log == nil {
		log = logger.Tasks()
	}
	return &Service{store: s, access: resolver, notify: notifier, log: log, now: time.Now}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// load fetches a task and checks op against it. Deleted tasks are only
// reachable by the operations that act on the trash.
func (s *Service) load(ctx context.Context, st store.Store, actor *models.User, id string, op access.Operation) (*models.Task, error) {
	t, err := st.Tasks().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	trashOp := op == access.OpRestore || op == access.OpHardDelete
	if t.IsDeleted != trashOp {
		if trashOp {
			return nil, taskflow.NotFoundf(string(op), "task", "deleted task not found")
		}
		return nil, taskflow.NotFound(string(op), "task")
	}
	res, err := s.resource(ctx, st, t)
	if err != nil {
		return nil, err
	}
	if err := s.access.Can(actor, op, res); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) resource(ctx context.Context, st store.Store, t *models.Task) (access.TaskResource, error) {
	managerID, err := st.Users().ManagerOf(ctx, t.OwnerID)
	if err != nil && !taskflow.IsNotFound(err) {
		return access.TaskResource{}, err
	}
	return access.ForTask(t, managerID), nil
}

// record appends one audit row.
func (s *Service) record(ctx context.Context, st store.Store, taskID, userID, field string, oldValue, newValue *string, action models.HistoryAction, at time.Time) error {
	return st.History().Append(ctx, &models.TaskHistory{
		ID:        models.NewID(),
		TaskID:    taskID,
		UserID:    userID,
		FieldName: field,
		OldValue:  oldValue,
		NewValue:  newValue,
		Action:    action,
		CreatedAt: at,
	})
}
